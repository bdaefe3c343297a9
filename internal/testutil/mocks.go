package testutil

import (
	"cgd/internal/guard"
	"cgd/internal/models"
	"cgd/internal/providers"
	"cgd/internal/structures"
	"context"
	"sync"
	"time"
)

// MockLogger implements providers.Logger and records calls.
type MockLogger struct {
	mu   sync.Mutex
	Logs []LogEntry
}

type LogEntry struct {
	Level  string
	Type   providers.TypeEnum
	Format string
	Args   []interface{}
}

func (m *MockLogger) record(level string, t providers.TypeEnum, format string, args ...interface{}) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Logs = append(m.Logs, LogEntry{Level: level, Type: t, Format: format, Args: args})
}

func (m *MockLogger) Errorf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("error", t, format, args...)
}
func (m *MockLogger) Warnf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("warn", t, format, args...)
}
func (m *MockLogger) Debugf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("debug", t, format, args...)
}
func (m *MockLogger) Infof(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("info", t, format, args...)
}
func (m *MockLogger) Fatalf(t providers.TypeEnum, format string, args ...interface{}) {
	m.record("fatal", t, format, args...)
}
func (m *MockLogger) Close() {}

// MockCache implements providers.CacheProviderInterface.
type MockCache struct {
	mu   sync.Mutex
	Data map[string][]byte
}

func NewMockCache() *MockCache {
	return &MockCache{Data: make(map[string][]byte)}
}

func (m *MockCache) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.Data[key]
	return val, ok
}

func (m *MockCache) Set(key string, value []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Data[key] = value
}

func (m *MockCache) Del(key string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Data, key)
}

// MockMetrics implements providers.MetricsProviderInterface and counts calls.
type MockMetrics struct {
	mu             sync.Mutex
	EventsAccepted int
	EventsDropped  int
	ConsentWrites  int
	RateLimited    map[string]int
	Captcha        map[string]int // provider:outcome
	EventsArchived int
}

func NewMockMetrics() *MockMetrics {
	return &MockMetrics{RateLimited: make(map[string]int), Captcha: make(map[string]int)}
}

func (m *MockMetrics) IncRequestsTotal(_ string, _ int)                 {}
func (m *MockMetrics) ObserveRequestDuration(_ string, _ time.Duration) {}
func (m *MockMetrics) IncCacheHits()                                    {}
func (m *MockMetrics) IncCacheMisses()                                  {}

func (m *MockMetrics) AddEventsAccepted(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsAccepted += n
}

func (m *MockMetrics) AddEventsDropped(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsDropped += n
}

func (m *MockMetrics) IncConsentWrites() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ConsentWrites++
}

func (m *MockMetrics) IncCaptchaVerifications(provider, outcome string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Captcha[provider+":"+outcome]++
}

func (m *MockMetrics) IncRateLimited(endpoint string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.RateLimited[endpoint]++
}

func (m *MockMetrics) AddEventsArchived(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.EventsArchived += n
}

// MockLimiter implements guard.LimiterInterface with injectable decisions.
type MockLimiter struct {
	mu       sync.Mutex
	Decision guard.Decision
	Keys     []string
}

func NewMockLimiter() *MockLimiter {
	return &MockLimiter{Decision: guard.Decision{Allowed: true}}
}

func (m *MockLimiter) Consume(key string, _ int, _ time.Duration) guard.Decision {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Keys = append(m.Keys, key)
	return m.Decision
}

func (m *MockLimiter) Sweep() {}
func (m *MockLimiter) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Keys)
}
func (m *MockLimiter) Totals() (int64, int64) { return 0, 0 }

// MockVerifier implements captcha.VerifierInterface.
type MockVerifier struct {
	mu     sync.Mutex
	Valid  bool
	Err    error
	Calls  int
	Tokens []string
}

func (m *MockVerifier) Verify(_ context.Context, _, token, _, _ string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Tokens = append(m.Tokens, token)
	return m.Valid, m.Err
}

// MockSiteRepo implements store.SiteRepositoryInterface over a map.
type MockSiteRepo struct {
	Sites map[string]*models.Site
}

func NewMockSiteRepo(sites ...*models.Site) *MockSiteRepo {
	m := &MockSiteRepo{Sites: make(map[string]*models.Site)}
	for _, s := range sites {
		m.Sites[s.Key] = s
	}
	return m
}

func (m *MockSiteRepo) GetByKey(_ context.Context, siteKey string) (*models.Site, error) {
	return m.Sites[siteKey], nil
}

func (m *MockSiteRepo) Create(_ context.Context, site *models.Site) error {
	m.Sites[site.Key] = site
	return nil
}

func (m *MockSiteRepo) EnsureSeeds(_ context.Context, _ []structures.SiteSeed) error { return nil }

// MockDeviceRepo implements store.DeviceRepositoryInterface.
type MockDeviceRepo struct {
	mu      sync.Mutex
	Devices map[string]*models.Device
	Upserts []string
}

func NewMockDeviceRepo(devices ...*models.Device) *MockDeviceRepo {
	m := &MockDeviceRepo{Devices: make(map[string]*models.Device)}
	for _, d := range devices {
		m.Devices[d.DeviceID] = d
	}
	return m
}

func (m *MockDeviceRepo) Get(_ context.Context, _ int64, deviceID string) (*models.Device, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Devices[deviceID], nil
}

func (m *MockDeviceRepo) Upsert(_ context.Context, siteID int64, deviceID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upserts = append(m.Upserts, deviceID)
	m.Devices[deviceID] = &models.Device{SiteID: siteID, DeviceID: deviceID, LastSeenAt: time.Now()}
	return nil
}

// MockConsentRepo implements store.ConsentRepositoryInterface.
type MockConsentRepo struct {
	mu      sync.Mutex
	Latest  *models.ConsentRecord
	Upserts []*models.ConsentRecord
}

func (m *MockConsentRepo) Upsert(_ context.Context, record *models.ConsentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Upserts = append(m.Upserts, record)
	m.Latest = record
	return nil
}

func (m *MockConsentRepo) LatestByDevice(_ context.Context, _ int64, _ string) (*models.ConsentRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Latest, nil
}

// MockEventRepo implements store.EventRepositoryInterface.
type MockEventRepo struct {
	mu       sync.Mutex
	Inserted []models.StoredEvent
	Pruned   []models.StoredEvent
	Err      error
}

func (m *MockEventRepo) InsertBatch(_ context.Context, events []models.StoredEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.Inserted = append(m.Inserted, events...)
	return nil
}

func (m *MockEventRepo) PruneBefore(_ context.Context, _ time.Time) ([]models.StoredEvent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return nil, m.Err
	}
	pruned := m.Pruned
	m.Pruned = nil
	return pruned, nil
}

func (m *MockEventRepo) Count(_ context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.Inserted)), nil
}
