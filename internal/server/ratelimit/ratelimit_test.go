package ratelimit

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(endpoints ...EndpointConfig) *Config {
	return &Config{
		Enabled:         true,
		DefaultLimit:    100,
		DefaultWindow:   time.Minute,
		Whitelist:       map[string]bool{},
		Blacklist:       map[string]bool{},
		EndpointConfigs: endpoints,
	}
}

func TestLimiter_BurstThenDeny(t *testing.T) {
	l := NewLimiter(testConfig(EndpointConfig{Path: "/hunts", Method: "POST", Limit: 10, Window: time.Hour, Burst: 2}))
	defer l.Stop()

	for i := 0; i < 2; i++ {
		allowed, info := l.Allow("1.2.3.4", "/hunts", "POST")
		require.True(t, allowed, "request %d", i+1)
		assert.Equal(t, 10, info.Limit)
	}

	allowed, info := l.Allow("1.2.3.4", "/hunts", "POST")
	assert.False(t, allowed)
	assert.Equal(t, 0, info.Remaining)
	assert.Greater(t, info.RetryAfter, time.Duration(0))
	assert.True(t, info.ResetTime.After(time.Now()))
}

func TestLimiter_SeparateClients(t *testing.T) {
	l := NewLimiter(testConfig(EndpointConfig{Path: "/dispatch", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1}))
	defer l.Stop()

	allowed, _ := l.Allow("a", "/dispatch", "POST")
	assert.True(t, allowed)
	allowed, _ = l.Allow("a", "/dispatch", "POST")
	assert.False(t, allowed)
	allowed, _ = l.Allow("b", "/dispatch", "POST")
	assert.True(t, allowed)
}

func TestLimiter_Refill(t *testing.T) {
	l := NewLimiter(testConfig(EndpointConfig{Path: "/leads", Method: "GET", Limit: 20, Window: time.Second, Burst: 1}))
	defer l.Stop()

	allowed, _ := l.Allow("c", "/leads", "GET")
	require.True(t, allowed)
	allowed, _ = l.Allow("c", "/leads", "GET")
	require.False(t, allowed)

	time.Sleep(100 * time.Millisecond)
	allowed, _ = l.Allow("c", "/leads", "GET")
	assert.True(t, allowed)
}

func TestLimiter_Disabled(t *testing.T) {
	l := NewLimiter(&Config{Enabled: false})
	defer l.Stop()
	for i := 0; i < 50; i++ {
		allowed, _ := l.Allow("x", "/hunts", "POST")
		assert.True(t, allowed)
	}
}

func TestLimiter_WhitelistBlacklist(t *testing.T) {
	cfg := testConfig(EndpointConfig{Path: "/hunts", Method: "POST", Limit: 1, Window: time.Hour, Burst: 1})
	cfg.Whitelist["10.0.0.1"] = true
	cfg.Blacklist["10.0.0.2"] = true
	l := NewLimiter(cfg)
	defer l.Stop()

	for i := 0; i < 5; i++ {
		allowed, _ := l.Allow("10.0.0.1", "/hunts", "POST")
		assert.True(t, allowed)
	}
	allowed, _ := l.Allow("10.0.0.2", "/health", "GET")
	assert.False(t, allowed)
}

func TestLimiter_HealthUnlimited(t *testing.T) {
	cfg := testConfig()
	cfg.DefaultLimit = 1
	l := NewLimiter(cfg)
	defer l.Stop()
	for i := 0; i < 10; i++ {
		allowed, _ := l.Allow("x", "/health", "GET")
		assert.True(t, allowed)
	}
}

func TestLimiter_Concurrent(t *testing.T) {
	l := NewLimiter(testConfig(EndpointConfig{Path: "/hunts", Method: "POST", Limit: 10, Window: time.Hour, Burst: 10}))
	defer l.Stop()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowedCount := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := l.Allow("same", "/hunts", "POST"); ok {
				mu.Lock()
				allowedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 10, allowedCount)
}

func TestLimiter_CleanupBuckets(t *testing.T) {
	l := NewLimiter(testConfig())
	defer l.Stop()
	for i := 0; i < 3; i++ {
		l.Allow(fmt.Sprintf("client-%d", i), "/leads", "GET")
	}
	l.cleanupBuckets(time.Now().Add(time.Minute))

	l.mu.Lock()
	defer l.mu.Unlock()
	assert.Empty(t, l.buckets)
}

func TestLimiter_StopTwice(t *testing.T) {
	l := NewLimiter(&Config{Enabled: true, DefaultLimit: 10, DefaultWindow: time.Minute, CleanupInterval: time.Hour})
	l.Stop()
	assert.NotPanics(t, l.Stop)
}

func TestMatchEndpoint(t *testing.T) {
	configs := DefaultEndpointConfigs()

	assert.Equal(t, 10, MatchEndpoint("/hunts", "POST", configs).Limit)
	assert.Equal(t, "/hunts/", MatchEndpoint("/hunts/abc", "DELETE", configs).Path)
	assert.Nil(t, MatchEndpoint("/hunts/abc", "GET", configs))
	assert.Equal(t, 0, MatchEndpoint("/health", "GET", configs).Limit)
}

func TestMatchEndpoint_LongestPrefixAndAnyMethod(t *testing.T) {
	configs := []EndpointConfig{
		{Path: "/hunts/", Limit: 1},
		{Path: "/hunts/special/", Method: "GET", Limit: 2},
		{Path: "/leads", Limit: 3},
	}

	assert.Equal(t, 2, MatchEndpoint("/hunts/special/events", "GET", configs).Limit)
	assert.Equal(t, 1, MatchEndpoint("/hunts/special/events", "POST", configs).Limit)
	assert.Equal(t, 3, MatchEndpoint("/leads", "DELETE", configs).Limit)
	assert.Nil(t, MatchEndpoint("/leads/export", "GET", configs))
}

func TestLoadConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_ENABLED", "true")
	t.Setenv("RATE_LIMIT_DEFAULT_LIMIT", "42")
	t.Setenv("RATE_LIMIT_WHITELIST", "127.0.0.1, 10.0.0.1")

	cfg := LoadConfig()
	assert.True(t, cfg.Enabled)
	assert.Equal(t, 42, cfg.DefaultLimit)
	assert.True(t, cfg.Whitelist["10.0.0.1"])

	t.Setenv("RATE_LIMIT_ENABLED", "false")
	assert.False(t, LoadConfig().Enabled)
}
