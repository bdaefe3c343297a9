package providers

import (
	"testing"
	"time"

	"cgd/internal/structures"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type nopLogger struct{}

func (nopLogger) Errorf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Warnf(_ TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Debugf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Infof(_ TypeEnum, _ string, _ ...interface{})  {}
func (nopLogger) Fatalf(_ TypeEnum, _ string, _ ...interface{}) {}
func (nopLogger) Close()                                        {}

func cacheConfig(enabled bool, sizeMB int) *structures.Config {
	conf := &structures.Config{}
	conf.Cache = structures.CacheConfig{Enabled: enabled, Size: sizeMB, TTL: 30 * time.Second}
	return conf
}

func TestCacheProviderSetGet(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 1), nopLogger{})

	cache.Set("site:abc", []byte(`{"id":1}`))

	val, ok := cache.Get("site:abc")
	require.True(t, ok)
	assert.Equal(t, []byte(`{"id":1}`), val)
}

func TestCacheProviderMiss(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 1), nopLogger{})

	_, ok := cache.Get("missing")

	assert.False(t, ok)
}

func TestCacheProviderDel(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 1), nopLogger{})

	cache.Set("site:abc", []byte("x"))
	cache.Del("site:abc")

	_, ok := cache.Get("site:abc")
	assert.False(t, ok)
}

func TestCacheProviderDisabled(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(false, 1), nopLogger{})

	cache.Set("site:abc", []byte("x"))

	_, ok := cache.Get("site:abc")
	assert.False(t, ok)
}

func TestCacheProviderZeroSizeFallsBackToNoop(t *testing.T) {
	cache := NewCacheProvider(cacheConfig(true, 0), nopLogger{})

	cache.Set("site:abc", []byte("x"))

	_, ok := cache.Get("site:abc")
	assert.False(t, ok)
}
