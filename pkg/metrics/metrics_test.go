package metrics_test

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crmb/pkg/cache"
	"github.com/dmitrymomot/crmb/pkg/metrics"
	"github.com/dmitrymomot/crmb/pkg/ratelimiter"
)

func TestScope(t *testing.T) {
	t.Parallel()

	tests := []struct {
		key  string
		want string
	}{
		{"tmdb", "tmdb"},
		{"global:10.0.0.1", "global"},
		{"user:42:/api/tmdb", "user"},
		{"route:/api/tmdb:10.0.0.1", "route:/api/tmdb"},
		{"route:/api/tmdb:2001:db8::1", "route:/api/tmdb"},
		{"route:/healthz", "route:/healthz"},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, metrics.Scope(tt.key))
		})
	}
}

func TestMetrics_ObserveDecision(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	limiter, err := ratelimiter.NewRegistry(
		ratelimiter.Static(ratelimiter.Config{MaxRequests: 1, TimeWindow: time.Minute}),
		ratelimiter.WithObserver(m),
	)
	require.NoError(t, err)
	t.Cleanup(limiter.Close)

	limiter.CheckAndConsume("global:10.0.0.1")
	limiter.CheckAndConsume("global:10.0.0.1")
	limiter.CheckAndConsume("global:10.0.0.2")

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Decisions.WithLabelValues("global", "allowed")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Decisions.WithLabelValues("global", "denied")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.RetryAfter))
}

func TestMetrics_ObserveCache(t *testing.T) {
	t.Parallel()
	reg := prometheus.NewRegistry()
	m := metrics.NewMetrics(reg)

	svc, err := cache.New(cache.DefaultConfig(), cache.WithObserver(m))
	require.NoError(t, err)
	t.Cleanup(svc.Close)
	metrics.RegisterCacheStats(reg, svc)

	ctx := t.Context()
	require.NoError(t, svc.SetBytes(ctx, "k", []byte("abc"), time.Minute))
	_, _, _ = svc.GetBytes(ctx, "k")
	_, _, _ = svc.GetBytes(ctx, "missing")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOps.WithLabelValues("set", "memory", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOps.WithLabelValues("get", "memory", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.CacheOps.WithLabelValues("get", "memory", "miss")))

	expected := `
# HELP crmb_cache_entries Entries held by the memory tier
# TYPE crmb_cache_entries gauge
crmb_cache_entries 1
# HELP crmb_cache_memory_bytes Payload bytes held by the memory tier
# TYPE crmb_cache_memory_bytes gauge
crmb_cache_memory_bytes 3
# HELP crmb_cache_hit_ratio Hits divided by lookups since the last clear
# TYPE crmb_cache_hit_ratio gauge
crmb_cache_hit_ratio 0.5
`
	assert.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected),
		"crmb_cache_entries", "crmb_cache_memory_bytes", "crmb_cache_hit_ratio"))
}
