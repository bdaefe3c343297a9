package store

import (
	"cgd/internal/identity"
	"cgd/internal/models"
	"cgd/internal/structures"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/google/uuid"
)

// timeFormat is fixed-width UTC so stored timestamps order correctly as
// text.
const timeFormat = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeFormat)
}

func parseTime(s string) time.Time {
	t, err := time.Parse(timeFormat, s)
	if err != nil {
		return time.Time{}
	}
	return t
}

type SiteRepositoryInterface interface {
	GetByKey(ctx context.Context, siteKey string) (*models.Site, error)
	Create(ctx context.Context, site *models.Site) error
	EnsureSeeds(ctx context.Context, seeds []structures.SiteSeed) error
}

type SiteRepository struct {
	store *Store
}

func NewSiteRepository(store *Store) SiteRepositoryInterface {
	return &SiteRepository{store: store}
}

// GetByKey returns (nil, nil) for an unknown key; callers decide whether
// that is an error.
func (r *SiteRepository) GetByKey(ctx context.Context, siteKey string) (*models.Site, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, site_key, site_salt, policy_version, origin_whitelist,
		       COALESCE(captcha_provider, ''), COALESCE(captcha_site_key, ''),
		       COALESCE(captcha_secret, ''), created_at
		FROM sites WHERE site_key = ?`, siteKey)

	var site models.Site
	var whitelist, createdAt string
	err := row.Scan(&site.ID, &site.Key, &site.Salt, &site.PolicyVersion,
		&whitelist, &site.CaptchaProvider, &site.CaptchaSiteKey,
		&site.CaptchaSecret, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load site %s: %w", siteKey, err)
	}

	if err := json.Unmarshal([]byte(whitelist), &site.OriginWhitelist); err != nil {
		return nil, fmt.Errorf("corrupt origin whitelist for site %s: %w", siteKey, err)
	}
	site.CreatedAt = parseTime(createdAt)
	return &site, nil
}

func (r *SiteRepository) Create(ctx context.Context, site *models.Site) error {
	if site.Key == "" {
		site.Key = uuid.NewString()
	}
	if site.Salt == "" {
		site.Salt = identity.GenerateSiteSalt()
	}
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now()
	}

	whitelist, err := json.Marshal(site.OriginWhitelist)
	if err != nil {
		return err
	}

	res, err := r.store.db.ExecContext(ctx, `
		INSERT INTO sites(site_key, site_salt, policy_version, origin_whitelist,
		                  captcha_provider, captcha_site_key, captcha_secret, created_at)
		VALUES(?,?,?,json(?),?,?,?,?)`,
		site.Key, site.Salt, site.PolicyVersion, string(whitelist),
		nullable(site.CaptchaProvider), nullable(site.CaptchaSiteKey),
		nullable(site.CaptchaSecret), formatTime(site.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to create site %s: %w", site.Key, err)
	}

	site.ID, err = res.LastInsertId()
	return err
}

// EnsureSeeds reconciles configured sites at startup. Existing sites
// track the config for policy version, whitelist and captcha settings;
// the salt is immutable and never overwritten.
func (r *SiteRepository) EnsureSeeds(ctx context.Context, seeds []structures.SiteSeed) error {
	for _, seed := range seeds {
		existing, err := r.GetByKey(ctx, seed.Key)
		if err != nil {
			return err
		}

		if existing == nil {
			site := &models.Site{
				Key:             seed.Key,
				Salt:            seed.Salt,
				PolicyVersion:   seed.PolicyVersion,
				OriginWhitelist: seed.OriginWhitelist,
				CaptchaProvider: seed.CaptchaProvider,
				CaptchaSiteKey:  seed.CaptchaSiteKey,
				CaptchaSecret:   seed.CaptchaSecret,
			}
			if err := r.Create(ctx, site); err != nil {
				return err
			}
			continue
		}

		whitelist, err := json.Marshal(seed.OriginWhitelist)
		if err != nil {
			return err
		}
		_, err = r.store.db.ExecContext(ctx, `
			UPDATE sites
			SET policy_version = ?, origin_whitelist = json(?),
			    captcha_provider = ?, captcha_site_key = ?, captcha_secret = ?
			WHERE site_key = ?`,
			seed.PolicyVersion, string(whitelist),
			nullable(seed.CaptchaProvider), nullable(seed.CaptchaSiteKey),
			nullable(seed.CaptchaSecret), seed.Key)
		if err != nil {
			return fmt.Errorf("failed to reconcile site %s: %w", seed.Key, err)
		}
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
