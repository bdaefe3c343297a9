package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"cgd/internal/models"
	"cgd/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	conf := &structures.Config{}
	conf.Storage.Path = filepath.Join(t.TempDir(), "cgd.db")

	st, err := NewStore(conf)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func seedSite(t *testing.T, st *Store) *models.Site {
	t.Helper()
	site := &models.Site{
		Key:             "site-abc",
		PolicyVersion:   "2025-01",
		OriginWhitelist: []string{"https://shop.example"},
	}
	require.NoError(t, NewSiteRepository(st).Create(context.Background(), site))
	return site
}

func TestStorePing(t *testing.T) {
	st := newTestStore(t)

	assert.NoError(t, st.Ping(context.Background()))
}

func TestSiteCreateAndGetByKey(t *testing.T) {
	st := newTestStore(t)
	repo := NewSiteRepository(st)
	ctx := context.Background()

	site := &models.Site{
		Key:             "site-abc",
		PolicyVersion:   "2025-01",
		OriginWhitelist: []string{"https://shop.example", "https://blog.example"},
		CaptchaProvider: "turnstile",
		CaptchaSiteKey:  "sk-public",
		CaptchaSecret:   "sk-secret",
	}
	require.NoError(t, repo.Create(ctx, site))
	assert.NotZero(t, site.ID)
	assert.Len(t, site.Salt, 64)

	loaded, err := repo.GetByKey(ctx, "site-abc")
	require.NoError(t, err)
	require.NotNil(t, loaded)
	assert.Equal(t, site.ID, loaded.ID)
	assert.Equal(t, site.Salt, loaded.Salt)
	assert.Equal(t, "2025-01", loaded.PolicyVersion)
	assert.Equal(t, []string{"https://shop.example", "https://blog.example"}, loaded.OriginWhitelist)
	assert.Equal(t, "turnstile", loaded.CaptchaProvider)
	assert.Equal(t, "sk-secret", loaded.CaptchaSecret)
	assert.False(t, loaded.CreatedAt.IsZero())
}

func TestSiteGetByKeyMissing(t *testing.T) {
	st := newTestStore(t)

	site, err := NewSiteRepository(st).GetByKey(context.Background(), "nope")

	require.NoError(t, err)
	assert.Nil(t, site)
}

func TestSiteCreateGeneratesKey(t *testing.T) {
	st := newTestStore(t)
	site := &models.Site{PolicyVersion: "2025-01"}

	require.NoError(t, NewSiteRepository(st).Create(context.Background(), site))

	assert.NotEmpty(t, site.Key)
	assert.NotEmpty(t, site.Salt)
}

func TestEnsureSeedsCreatesAndReconciles(t *testing.T) {
	st := newTestStore(t)
	repo := NewSiteRepository(st)
	ctx := context.Background()

	seeds := []structures.SiteSeed{{
		Key:             "seeded",
		PolicyVersion:   "2025-01",
		OriginWhitelist: []string{"https://shop.example"},
	}}
	require.NoError(t, repo.EnsureSeeds(ctx, seeds))

	created, err := repo.GetByKey(ctx, "seeded")
	require.NoError(t, err)
	require.NotNil(t, created)
	originalSalt := created.Salt

	// a changed seed updates policy and whitelist but never the salt
	seeds[0].PolicyVersion = "2025-02"
	seeds[0].OriginWhitelist = []string{"https://new.example"}
	seeds[0].Salt = "attempted-override"
	require.NoError(t, repo.EnsureSeeds(ctx, seeds))

	updated, err := repo.GetByKey(ctx, "seeded")
	require.NoError(t, err)
	assert.Equal(t, "2025-02", updated.PolicyVersion)
	assert.Equal(t, []string{"https://new.example"}, updated.OriginWhitelist)
	assert.Equal(t, originalSalt, updated.Salt)
}

func TestDeviceUpsert(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)
	repo := NewDeviceRepository(st)
	ctx := context.Background()

	missing, err := repo.Get(ctx, site.ID, "dev-1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	require.NoError(t, repo.Upsert(ctx, site.ID, "dev-1"))
	first, err := repo.Get(ctx, site.ID, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, first)

	time.Sleep(2 * time.Millisecond)
	require.NoError(t, repo.Upsert(ctx, site.ID, "dev-1"))
	second, err := repo.Get(ctx, site.ID, "dev-1")
	require.NoError(t, err)

	assert.Equal(t, first.FirstSeenAt, second.FirstSeenAt)
	assert.True(t, second.LastSeenAt.After(first.LastSeenAt))
}

func TestConsentUpsertReplaces(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)
	repo := NewConsentRepository(st)
	ctx := context.Background()

	record := &models.ConsentRecord{
		SiteID:        site.ID,
		DeviceID:      "dev-1",
		PolicyVersion: "2025-01",
		Choices:       models.Choices{"necessary": true, "ads": false},
	}
	require.NoError(t, repo.Upsert(ctx, record))

	record.Choices = models.Choices{"necessary": true, "ads": true}
	record.CreatedAt = time.Time{}
	require.NoError(t, repo.Upsert(ctx, record))

	latest, err := repo.LatestByDevice(ctx, site.ID, "dev-1")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.True(t, latest.Choices["ads"])

	// replaced in place, not appended
	var count int
	require.NoError(t, st.db.QueryRow(`SELECT COUNT(*) FROM consents`).Scan(&count))
	assert.Equal(t, 1, count)
}

func TestConsentLatestAcrossPolicyVersions(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)
	repo := NewConsentRepository(st)
	ctx := context.Background()

	old := &models.ConsentRecord{
		SiteID: site.ID, DeviceID: "dev-1", PolicyVersion: "2024-12",
		Choices:   models.Choices{"necessary": true},
		CreatedAt: time.Now().Add(-time.Hour),
	}
	current := &models.ConsentRecord{
		SiteID: site.ID, DeviceID: "dev-1", PolicyVersion: "2025-01",
		Choices: models.Choices{"necessary": true, "ads": true},
	}
	require.NoError(t, repo.Upsert(ctx, old))
	require.NoError(t, repo.Upsert(ctx, current))

	latest, err := repo.LatestByDevice(ctx, site.ID, "dev-1")
	require.NoError(t, err)
	assert.Equal(t, "2025-01", latest.PolicyVersion)
}

func TestConsentLatestByDeviceMissing(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)

	latest, err := NewConsentRepository(st).LatestByDevice(context.Background(), site.ID, "ghost")

	require.NoError(t, err)
	assert.Nil(t, latest)
}

func TestEventInsertBatchAndCount(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)
	repo := NewEventRepository(st)
	ctx := context.Background()

	events := []models.StoredEvent{
		{SiteID: site.ID, DeviceID: "dev-1", Type: "page_view", Purpose: "other",
			URL: "https://shop.example/", TS: time.Now(), Payload: []byte(`{"a":1}`)},
		{SiteID: site.ID, DeviceID: "dev-1", Type: "heartbeat", TS: time.Now()},
	}
	require.NoError(t, repo.InsertBatch(ctx, events))

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

func TestEventPruneBefore(t *testing.T) {
	st := newTestStore(t)
	site := seedSite(t, st)
	repo := NewEventRepository(st)
	ctx := context.Background()

	require.NoError(t, repo.InsertBatch(ctx, []models.StoredEvent{
		{SiteID: site.ID, DeviceID: "dev-1", Type: "page_view", TS: time.Now()},
	}))

	// nothing is older than a cutoff in the past
	pruned, err := repo.PruneBefore(ctx, time.Now().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, pruned)

	pruned, err = repo.PruneBefore(ctx, time.Now().Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, pruned, 1)
	assert.Equal(t, "page_view", pruned[0].Type)

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestTimeFormatOrdersLexicographically(t *testing.T) {
	earlier := formatTime(time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC))
	later := formatTime(time.Date(2025, 1, 2, 3, 4, 5, 10, time.UTC))

	assert.Less(t, earlier, later)
	assert.Equal(t, len(earlier), len(later))
}
