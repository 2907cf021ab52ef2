package cache_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dmitrymomot/crmb/pkg/cache"
)

func TestKey(t *testing.T) {
	t.Parallel()

	base := cache.NewKey("tmdb").Add("movie")
	a := base.Add(1)
	b := base.Add(2)

	assert.Equal(t, "tmdb", cache.NewKey("tmdb").Build())
	assert.Equal(t, "tmdb:movie:1", a.Build())
	assert.Equal(t, "tmdb:movie:2", b.String())
	assert.Equal(t, "tmdb:movie", base.Build())
}

func TestKeyPresets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"movie", cache.TMDBMovie(550), "tmdb:movie:550"},
		{"tv", cache.TMDBTV(1399), "tmdb:tv:1399"},
		{"search", cache.TMDBSearch("matrix", 2), "tmdb:search:matrix:2"},
		{"search tv", cache.TMDBSearchTV("office", 1), "tmdb:search:tv:office:1"},
		{"popular", cache.TMDBPopular("movie", 3), "tmdb:movie:popular:3"},
		{"trending", cache.TMDBTrending("tv", "week"), "tmdb:trending:tv:week"},
		{"catalog", cache.StremioCatalog("movie", "top", 1), "stremio:catalog:movie:top:1"},
		{"catalog page", cache.StremioCatalogPage("movie", "top", 1, "Drama"), "stremio:catalog:movie:top:1:Drama"},
		{"catalog page without genre", cache.StremioCatalogPage("movie", "top", 1, ""), "stremio:catalog:movie:top:1:none"},
		{"meta", cache.StremioMeta("series", "tt0903747"), "stremio:meta:series:tt0903747"},
		{"streams", cache.StremioStreams("movie", "tt0133093"), "stremio:streams:movie:tt0133093"},
		{"watchlist", cache.UserWatchlist("u-1"), "user:watchlist:u-1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.got)
		})
	}
}

func TestTier_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "memory", cache.TierMemory.String())
	assert.Equal(t, "remote", cache.TierRemote.String())

	text, err := cache.TierRemote.MarshalText()
	assert.NoError(t, err)
	assert.Equal(t, "remote", string(text))
}
