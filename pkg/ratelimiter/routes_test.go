package ratelimiter_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/crmb/pkg/ratelimiter"
)

func TestRoutes_Resolve(t *testing.T) {
	t.Parallel()

	routes, err := ratelimiter.NewRoutes(ratelimiter.DefaultRoutes())
	require.NoError(t, err)

	tests := []struct {
		name string
		key  string
		want ratelimiter.Config
		ok   bool
	}{
		{"exact upstream", "tmdb", ratelimiter.TMDB(), true},
		{"global prefix", "global:203.0.113.7", ratelimiter.Config{MaxRequests: 1000, TimeWindow: time.Hour}, true},
		{"auth prefix", "auth:203.0.113.7", ratelimiter.Config{MaxRequests: 5, TimeWindow: 5 * time.Minute}, true},
		{"user prefix", "user:42:/api/tmdb", ratelimiter.Config{MaxRequests: 100, TimeWindow: time.Minute}, true},
		{"longest route prefix", "route:/api/auth/register:203.0.113.7", ratelimiter.Config{MaxRequests: 3, TimeWindow: time.Hour}, true},
		{"nested route", "route:/api/tmdb/movie/603:203.0.113.7", ratelimiter.Config{MaxRequests: 100, TimeWindow: time.Minute}, true},
		{"unconfigured route", "route:/healthz:203.0.113.7", ratelimiter.Config{}, false},
		{"unknown", "unknown", ratelimiter.Config{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got, ok := routes.Resolve(tt.key)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRoutes_ExactBeforePrefix(t *testing.T) {
	t.Parallel()

	short := ratelimiter.Config{MaxRequests: 1, TimeWindow: time.Second}
	long := ratelimiter.Config{MaxRequests: 2, TimeWindow: time.Second}
	exact := ratelimiter.Config{MaxRequests: 3, TimeWindow: time.Second}

	routes, err := ratelimiter.NewRoutes(map[string]ratelimiter.Config{
		"api":         short,
		"api:v1":      long,
		"api:v1:ping": exact,
	})
	require.NoError(t, err)

	got, _ := routes.Resolve("api:v1:ping")
	assert.Equal(t, exact, got)
	got, _ = routes.Resolve("api:v1:pong")
	assert.Equal(t, long, got)
	got, _ = routes.Resolve("api:v2")
	assert.Equal(t, short, got)

	assert.Equal(t, []string{"api:v1:ping", "api:v1", "api"}, routes.Patterns())
}

func TestRoutes_Fallback(t *testing.T) {
	t.Parallel()

	routes, err := ratelimiter.NewRoutes(ratelimiter.UpstreamRoutes(), ratelimiter.WithFallback(ratelimiter.Conservative()))
	require.NoError(t, err)

	got, ok := routes.Resolve("some-new-api")
	assert.True(t, ok)
	assert.Equal(t, ratelimiter.Conservative(), got)
}

func TestNewRoutes_Invalid(t *testing.T) {
	t.Parallel()

	_, err := ratelimiter.NewRoutes(map[string]ratelimiter.Config{"tmdb": {MaxRequests: 0, TimeWindow: time.Second}})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewRoutes(map[string]ratelimiter.Config{"": ratelimiter.TMDB()})
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)

	_, err = ratelimiter.NewRoutes(nil, ratelimiter.WithFallback(ratelimiter.Config{}))
	assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
}

const routesYAML = `
routes:
  tmdb:
    max_requests: 40
    time_window: 10s
    min_interval: 250ms
  "route:/api/tmdb":
    max_requests: 100
    time_window: 1m
fallback:
  max_requests: 1000
  time_window: 1h
`

func TestLoadRoutes(t *testing.T) {
	t.Parallel()

	t.Run("valid document", func(t *testing.T) {
		t.Parallel()
		routes, err := ratelimiter.LoadRoutes(strings.NewReader(routesYAML))
		require.NoError(t, err)

		got, ok := routes.Resolve("tmdb")
		require.True(t, ok)
		assert.Equal(t, ratelimiter.TMDB(), got)

		got, ok = routes.Resolve("route:/api/tmdb/search:10.0.0.1")
		require.True(t, ok)
		assert.Equal(t, 100, got.MaxRequests)
		assert.Equal(t, time.Minute, got.TimeWindow)

		got, ok = routes.Resolve("anything")
		require.True(t, ok)
		assert.Equal(t, time.Hour, got.TimeWindow)
	})

	t.Run("empty document", func(t *testing.T) {
		t.Parallel()
		routes, err := ratelimiter.LoadRoutes(strings.NewReader(""))
		require.NoError(t, err)
		assert.Empty(t, routes.Patterns())
	})

	t.Run("unknown field", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.LoadRoutes(strings.NewReader("routes:\n  tmdb:\n    max_request: 1\n"))
		assert.ErrorIs(t, err, ratelimiter.ErrRoutesFile)
	})

	t.Run("invalid quota", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.LoadRoutes(strings.NewReader("routes:\n  tmdb:\n    max_requests: 0\n    time_window: 1s\n"))
		assert.ErrorIs(t, err, ratelimiter.ErrRoutesFile)
		assert.ErrorIs(t, err, ratelimiter.ErrInvalidConfig)
	})

	t.Run("from file", func(t *testing.T) {
		t.Parallel()
		path := filepath.Join(t.TempDir(), "routes.yaml")
		require.NoError(t, os.WriteFile(path, []byte(routesYAML), 0o600))

		routes, err := ratelimiter.LoadRoutesFile(path)
		require.NoError(t, err)
		assert.Len(t, routes.Patterns(), 2)
	})

	t.Run("missing file", func(t *testing.T) {
		t.Parallel()
		_, err := ratelimiter.LoadRoutesFile(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorIs(t, err, ratelimiter.ErrRoutesFile)
	})
}

func TestEnvConfig_Routes(t *testing.T) {
	t.Parallel()

	cfg := ratelimiter.EnvConfig{
		Requests:    20,
		Window:      5 * time.Second,
		MinInterval: 0,
	}

	routes, err := cfg.Routes()
	require.NoError(t, err)

	got, ok := routes.Resolve(ratelimiter.ResourceTMDB)
	require.True(t, ok)
	assert.Equal(t, ratelimiter.Config{MaxRequests: 20, TimeWindow: 5 * time.Second}, got)

	_, ok = routes.Resolve("global:10.0.0.1")
	assert.True(t, ok)
}
