package guard

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIsOriginAllowedEmptyWhitelist(t *testing.T) {
	assert.True(t, IsOriginAllowed("https://evil.test", "", nil))
	assert.True(t, IsOriginAllowed("", "", []string{}))
}

func TestIsOriginAllowedExactMatch(t *testing.T) {
	whitelist := []string{"https://shop.example", "https://blog.example"}

	assert.True(t, IsOriginAllowed("https://shop.example", "", whitelist))
	assert.True(t, IsOriginAllowed("https://blog.example", "", whitelist))
	assert.False(t, IsOriginAllowed("https://evil.example", "", whitelist))
}

func TestIsOriginAllowedNoSubdomainWildcard(t *testing.T) {
	whitelist := []string{"https://example.com"}

	assert.False(t, IsOriginAllowed("https://sub.example.com", "", whitelist))
	assert.False(t, IsOriginAllowed("http://example.com", "", whitelist))
}

func TestIsOriginAllowedRefererFallback(t *testing.T) {
	whitelist := []string{"https://shop.example"}

	assert.True(t, IsOriginAllowed("", "https://shop.example/cart?step=2", whitelist))
	assert.False(t, IsOriginAllowed("", "https://evil.example/cart", whitelist))
}

func TestIsOriginAllowedUnparsableHeaders(t *testing.T) {
	whitelist := []string{"https://shop.example"}

	assert.False(t, IsOriginAllowed("not a url", "also not a url", whitelist))
	assert.False(t, IsOriginAllowed("", "", whitelist))
}

func TestIsOriginAllowedPortIsPartOfOrigin(t *testing.T) {
	whitelist := []string{"http://localhost:3000"}

	assert.True(t, IsOriginAllowed("http://localhost:3000", "", whitelist))
	assert.False(t, IsOriginAllowed("http://localhost:4000", "", whitelist))
}

func TestMemoryLimiterConsume(t *testing.T) {
	limiter := NewMemoryLimiter()

	first := limiter.Consume("1:dev:consent", 1, time.Minute)
	second := limiter.Consume("1:dev:consent", 1, time.Minute)

	assert.True(t, first.Allowed)
	assert.False(t, second.Allowed)
	assert.Greater(t, second.RetryAfter, time.Duration(0))
	assert.LessOrEqual(t, second.RetryAfter, time.Minute)
}

func TestMemoryLimiterKeysAreIndependent(t *testing.T) {
	limiter := NewMemoryLimiter()

	limiter.Consume("1:dev-a:collect", 1, time.Minute)
	decision := limiter.Consume("1:dev-b:collect", 1, time.Minute)

	assert.True(t, decision.Allowed)
	assert.Equal(t, 2, limiter.Len())
}

func TestMemoryLimiterWindowReset(t *testing.T) {
	limiter := NewMemoryLimiter()

	limiter.Consume("key", 1, time.Nanosecond)
	time.Sleep(5 * time.Millisecond)
	decision := limiter.Consume("key", 1, time.Nanosecond)

	assert.True(t, decision.Allowed)
}

func TestMemoryLimiterSweep(t *testing.T) {
	limiter := NewMemoryLimiter()

	for i := 0; i < 10; i++ {
		limiter.Consume(fmt.Sprintf("stale-%d", i), 5, time.Nanosecond)
	}
	limiter.Consume("fresh", 5, time.Hour)

	time.Sleep(5 * time.Millisecond)
	limiter.Sweep()

	assert.Equal(t, 1, limiter.Len())
}

func TestMemoryLimiterTotals(t *testing.T) {
	limiter := NewMemoryLimiter()

	limiter.Consume("key", 1, time.Minute)
	limiter.Consume("key", 1, time.Minute)
	limiter.Consume("key", 1, time.Minute)

	allowed, rejected := limiter.Totals()
	assert.Equal(t, int64(1), allowed)
	assert.Equal(t, int64(2), rejected)
}
