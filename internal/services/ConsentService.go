package services

import (
	"cgd/internal/captcha"
	"cgd/internal/guard"
	"cgd/internal/identity"
	"cgd/internal/models"
	"cgd/internal/providers"
	"cgd/internal/store"
	"cgd/internal/structures"
	"cgd/internal/telemetry"
	"context"
	"fmt"
	"time"

	json "github.com/goccy/go-json"
	"github.com/spf13/cast"
)

// RequestMeta carries the request attributes the consent pipeline needs
// without coupling the service to net/http.
type RequestMeta struct {
	Origin    string
	Referer   string
	UserAgent string
	RemoteIP  string
}

// CaptchaDescriptor is the public half of a site's captcha config; the
// secret never leaves the server.
type CaptchaDescriptor struct {
	Provider string `json:"provider"`
	SiteKey  string `json:"siteKey"`
}

type StatusResult struct {
	NeedCaptcha   bool               `json:"needCaptcha"`
	NeedConsent   bool               `json:"needConsent"`
	PolicyVersion string             `json:"policyVersion"`
	DeviceSeen    bool               `json:"deviceSeen"`
	Choices       models.Choices     `json:"choices"`
	Captcha       *CaptchaDescriptor `json:"captcha"`
}

type ConsentReceipt struct {
	DeviceID string    `json:"deviceId"`
	StoredAt time.Time `json:"storedAt"`
}

type ConsentServiceInterface interface {
	Status(ctx context.Context, query *models.StatusQuery, meta RequestMeta) (*StatusResult, error)
	RecordConsent(ctx context.Context, payload *models.ConsentPayload, meta RequestMeta) (*ConsentReceipt, error)
	Collect(ctx context.Context, payload *models.CollectPayload, meta RequestMeta) (int, error)
}

type ConsentService struct {
	sites    store.SiteRepositoryInterface
	devices  store.DeviceRepositoryInterface
	consents store.ConsentRepositoryInterface
	events   store.EventRepositoryInterface
	limiter  guard.LimiterInterface
	verifier captcha.VerifierInterface
	cache    providers.CacheProviderInterface
	metrics  providers.MetricsProviderInterface
	logger   providers.Logger
	conf     *structures.Config
}

func NewConsentService(
	sites store.SiteRepositoryInterface,
	devices store.DeviceRepositoryInterface,
	consents store.ConsentRepositoryInterface,
	events store.EventRepositoryInterface,
	limiter guard.LimiterInterface,
	verifier captcha.VerifierInterface,
	cache providers.CacheProviderInterface,
	metrics providers.MetricsProviderInterface,
	logger providers.Logger,
	conf *structures.Config,
) ConsentServiceInterface {
	return &ConsentService{
		sites:    sites,
		devices:  devices,
		consents: consents,
		events:   events,
		limiter:  limiter,
		verifier: verifier,
		cache:    cache,
		metrics:  metrics,
		logger:   logger,
		conf:     conf,
	}
}

// getSite resolves a site by public key through the lookup cache.
func (cs *ConsentService) getSite(ctx context.Context, siteKey string) (*models.Site, error) {
	cacheKey := "site:" + siteKey
	if data, ok := cs.cache.Get(cacheKey); ok {
		cs.metrics.IncCacheHits()
		var site models.Site
		if err := json.Unmarshal(data, &site); err == nil {
			return &site, nil
		}
		cs.cache.Del(cacheKey)
	}
	cs.metrics.IncCacheMisses()

	site, err := cs.sites.GetByKey(ctx, siteKey)
	if err != nil {
		return nil, err
	}
	if site == nil {
		return nil, ErrSiteNotFound
	}

	if data, err := json.Marshal(site); err == nil {
		cs.cache.Set(cacheKey, data)
	}
	return site, nil
}

// resolveVisitorID falls back to a server-derived fingerprint hash when
// the client script could not supply a visitor id. Payload validation
// guarantees at least one of the two is present.
func resolveVisitorID(visitorID string, fallback *identity.FallbackSignals) string {
	if visitorID != "" {
		return visitorID
	}
	return identity.FallbackVisitorID(*fallback)
}

func (cs *ConsentService) checkOrigin(site *models.Site, meta RequestMeta) error {
	if !guard.IsOriginAllowed(meta.Origin, meta.Referer, site.OriginWhitelist) {
		return ErrOriginNotAllowed
	}
	return nil
}

// Status computes the negotiation payload the embedded script uses to
// decide whether to show a prompt. Read-only, safe to call on every page
// load.
func (cs *ConsentService) Status(ctx context.Context, query *models.StatusQuery, meta RequestMeta) (*StatusResult, error) {
	site, err := cs.getSite(ctx, query.SiteKey)
	if err != nil {
		return nil, err
	}
	if err := cs.checkOrigin(site, meta); err != nil {
		return nil, err
	}

	deviceSeen := false
	var consent *models.ConsentRecord

	if query.VisitorID != "" {
		deviceID := identity.SaltedDeviceID(query.VisitorID, site.Salt)
		device, err := cs.devices.Get(ctx, site.ID, deviceID)
		if err != nil {
			return nil, err
		}
		deviceSeen = device != nil
		if deviceSeen {
			consent, err = cs.consents.LatestByDevice(ctx, site.ID, deviceID)
			if err != nil {
				return nil, err
			}
		}
	}

	needCaptcha := captcha.ShouldEnforce(site, deviceSeen)
	needConsent := consent == nil || consent.PolicyVersion != site.PolicyVersion

	result := &StatusResult{
		NeedCaptcha:   needCaptcha,
		NeedConsent:   needConsent,
		PolicyVersion: site.PolicyVersion,
		DeviceSeen:    deviceSeen,
	}
	if consent != nil {
		result.Choices = consent.Choices
	}
	if needCaptcha && site.CaptchaSiteKey != "" {
		result.Captcha = &CaptchaDescriptor{
			Provider: site.CaptchaProvider,
			SiteKey:  site.CaptchaSiteKey,
		}
	}
	return result, nil
}

// enforceCaptcha runs the first-contact admission decision and verifies
// the supplied token when enforcement applies.
func (cs *ConsentService) enforceCaptcha(ctx context.Context, site *models.Site, deviceSeen bool, payload *models.CaptchaPayload, remoteIP string) error {
	if !captcha.ShouldEnforce(site, deviceSeen) {
		return nil
	}
	if payload == nil {
		return ErrCaptchaRequired
	}

	valid, err := cs.verifier.Verify(ctx, payload.Provider, payload.Token, remoteIP, site.CaptchaSecret)
	if err != nil {
		cs.metrics.IncCaptchaVerifications(payload.Provider, "error")
		return fmt.Errorf("captcha verification unavailable: %w", err)
	}
	if !valid {
		cs.metrics.IncCaptchaVerifications(payload.Provider, "rejected")
		return ErrCaptchaInvalid
	}
	cs.metrics.IncCaptchaVerifications(payload.Provider, "verified")
	return nil
}

func (cs *ConsentService) consume(siteID int64, deviceID, endpoint string, limit int) error {
	key := fmt.Sprintf("%d:%s:%s", siteID, deviceID, endpoint)
	decision := cs.limiter.Consume(key, limit, cs.conf.RateLimit.Window)
	if !decision.Allowed {
		cs.metrics.IncRateLimited(endpoint)
		return &RateLimitedError{RetryAfter: decision.RetryAfter}
	}
	return nil
}

// RecordConsent runs the full admission pipeline (origin, captcha, rate)
// and then upserts the decision keyed by (site, device, policy version).
func (cs *ConsentService) RecordConsent(ctx context.Context, payload *models.ConsentPayload, meta RequestMeta) (*ConsentReceipt, error) {
	site, err := cs.getSite(ctx, payload.SiteKey)
	if err != nil {
		return nil, err
	}
	if err := cs.checkOrigin(site, meta); err != nil {
		return nil, err
	}

	deviceID := identity.SaltedDeviceID(resolveVisitorID(payload.VisitorID, payload.Fallback), site.Salt)
	device, err := cs.devices.Get(ctx, site.ID, deviceID)
	if err != nil {
		return nil, err
	}

	if err := cs.enforceCaptcha(ctx, site, device != nil, payload.Captcha, meta.RemoteIP); err != nil {
		return nil, err
	}
	if err := cs.consume(site.ID, deviceID, "consent", cs.conf.RateLimit.ConsentLimit); err != nil {
		return nil, err
	}

	record := &models.ConsentRecord{
		SiteID:        site.ID,
		DeviceID:      deviceID,
		PolicyVersion: payload.PolicyVersion,
		Choices:       models.SanitizeChoices(payload.Choices),
		UserAgent:     meta.UserAgent,
		IPTruncated:   identity.TruncateOrHashIP(meta.RemoteIP, site.Salt),
		CreatedAt:     time.Now(),
	}
	if err := cs.consents.Upsert(ctx, record); err != nil {
		return nil, err
	}
	// Device upsert failing after the consent write is tolerable: the
	// device row is idempotently re-creatable on the next request.
	if err := cs.devices.Upsert(ctx, site.ID, deviceID); err != nil {
		return nil, err
	}

	cs.metrics.IncConsentWrites()
	return &ConsentReceipt{DeviceID: deviceID, StoredAt: record.CreatedAt}, nil
}

// Collect filters the batch by recorded consent and persists survivors.
// Zero admitted events is a valid outcome and skips the rate limiter.
func (cs *ConsentService) Collect(ctx context.Context, payload *models.CollectPayload, meta RequestMeta) (int, error) {
	site, err := cs.getSite(ctx, payload.SiteKey)
	if err != nil {
		return 0, err
	}
	if err := cs.checkOrigin(site, meta); err != nil {
		return 0, err
	}

	deviceID := identity.SaltedDeviceID(resolveVisitorID(payload.VisitorID, payload.Fallback), site.Salt)
	device, err := cs.devices.Get(ctx, site.ID, deviceID)
	if err != nil {
		return 0, err
	}

	if err := cs.enforceCaptcha(ctx, site, device != nil, payload.Captcha, meta.RemoteIP); err != nil {
		return 0, err
	}

	consent, err := cs.consents.LatestByDevice(ctx, site.ID, deviceID)
	if err != nil {
		return 0, err
	}
	var choices models.Choices
	if consent != nil {
		choices = consent.Choices
	}

	filtered := telemetry.FilterByConsent(payload.Events, choices)
	cs.metrics.AddEventsDropped(len(payload.Events) - len(filtered))
	if len(filtered) == 0 {
		return 0, nil
	}

	if err := cs.consume(site.ID, deviceID, "collect", cs.conf.RateLimit.CollectLimit); err != nil {
		return 0, err
	}

	ipTruncated := identity.TruncateOrHashIP(meta.RemoteIP, site.Salt)
	stored := make([]models.StoredEvent, 0, len(filtered))
	for _, event := range filtered {
		stored = append(stored, cs.toStoredEvent(site.ID, deviceID, ipTruncated, meta.UserAgent, event))
	}
	if err := cs.events.InsertBatch(ctx, stored); err != nil {
		return 0, err
	}
	if err := cs.devices.Upsert(ctx, site.ID, deviceID); err != nil {
		return 0, err
	}

	cs.metrics.AddEventsAccepted(len(filtered))
	return len(filtered), nil
}

func (cs *ConsentService) toStoredEvent(siteID int64, deviceID, ipTruncated, fallbackUA string, event models.Event) models.StoredEvent {
	ts := time.Now()
	if millis := cast.ToInt64(event.TS); millis > 0 {
		ts = time.UnixMilli(millis)
	}

	ua := event.UA
	if ua == "" {
		ua = fallbackUA
	}

	var payload []byte
	if len(event.Payload) > 0 {
		if data, err := json.Marshal(event.Payload); err == nil {
			payload = data
		}
	}

	return models.StoredEvent{
		SiteID:      siteID,
		DeviceID:    deviceID,
		Type:        event.Type,
		Purpose:     event.Purpose,
		URL:         event.URL,
		Referrer:    event.Referrer,
		UA:          ua,
		IPTruncated: ipTruncated,
		TS:          ts,
		Payload:     payload,
	}
}
