package store

import (
	"cgd/internal/models"
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
)

type ConsentRepositoryInterface interface {
	Upsert(ctx context.Context, record *models.ConsentRecord) error
	LatestByDevice(ctx context.Context, siteID int64, deviceID string) (*models.ConsentRecord, error)
}

type ConsentRepository struct {
	store *Store
}

func NewConsentRepository(store *Store) ConsentRepositoryInterface {
	return &ConsentRepository{store: store}
}

// Upsert replaces the row for (site, device, policy_version) in place, so
// only the latest decision per policy version is retained.
func (r *ConsentRepository) Upsert(ctx context.Context, record *models.ConsentRecord) error {
	choices, err := json.Marshal(record.Choices)
	if err != nil {
		return err
	}
	if record.CreatedAt.IsZero() {
		record.CreatedAt = time.Now()
	}

	_, err = r.store.db.ExecContext(ctx, `
		INSERT INTO consents(site_id, device_id, policy_version, choices,
		                     user_agent, ip_truncated, created_at)
		VALUES(?,?,?,json(?),?,?,?)
		ON CONFLICT(site_id, device_id, policy_version)
		DO UPDATE SET choices = excluded.choices,
		              user_agent = excluded.user_agent,
		              ip_truncated = excluded.ip_truncated,
		              created_at = excluded.created_at`,
		record.SiteID, record.DeviceID, record.PolicyVersion, string(choices),
		nullable(record.UserAgent), nullable(record.IPTruncated),
		formatTime(record.CreatedAt))
	if err != nil {
		return fmt.Errorf("failed to upsert consent: %w", err)
	}
	return nil
}

// LatestByDevice returns the most recently created record regardless of
// policy version, or (nil, nil) when the device never decided.
func (r *ConsentRepository) LatestByDevice(ctx context.Context, siteID int64, deviceID string) (*models.ConsentRecord, error) {
	row := r.store.db.QueryRowContext(ctx, `
		SELECT id, site_id, device_id, policy_version, choices,
		       COALESCE(user_agent, ''), COALESCE(ip_truncated, ''), created_at
		FROM consents
		WHERE site_id = ? AND device_id = ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, siteID, deviceID)

	var record models.ConsentRecord
	var choices, createdAt string
	err := row.Scan(&record.ID, &record.SiteID, &record.DeviceID,
		&record.PolicyVersion, &choices, &record.UserAgent,
		&record.IPTruncated, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load latest consent: %w", err)
	}

	if err := json.Unmarshal([]byte(choices), &record.Choices); err != nil {
		return nil, fmt.Errorf("corrupt choices for consent %d: %w", record.ID, err)
	}
	record.CreatedAt = parseTime(createdAt)
	return &record, nil
}
