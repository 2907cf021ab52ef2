package cache

import (
	"fmt"
	"strings"
)

// Key builds cache keys from a prefix and ordered components joined by ":".
// Every caller must build keys the same way for hits to happen at all, so
// the presets below are the only sanctioned key shapes.
type Key struct {
	prefix     string
	components []string
}

// NewKey starts a key with the given prefix.
func NewKey(prefix string) Key {
	return Key{prefix: prefix}
}

// Add appends a component formatted with fmt.Sprint.
func (k Key) Add(component any) Key {
	components := make([]string, len(k.components), len(k.components)+1)
	copy(components, k.components)
	k.components = append(components, fmt.Sprint(component))
	return k
}

// Build returns "prefix" or "prefix:c1:c2:...".
func (k Key) Build() string {
	if len(k.components) == 0 {
		return k.prefix
	}
	return k.prefix + ":" + strings.Join(k.components, ":")
}

func (k Key) String() string { return k.Build() }

// TMDBMovie is "tmdb:movie:<id>".
func TMDBMovie(id int) string {
	return NewKey("tmdb").Add("movie").Add(id).Build()
}

// TMDBTV is "tmdb:tv:<id>".
func TMDBTV(id int) string {
	return NewKey("tmdb").Add("tv").Add(id).Build()
}

// TMDBSearch is "tmdb:search:<query>:<page>".
func TMDBSearch(query string, page int) string {
	return NewKey("tmdb").Add("search").Add(query).Add(page).Build()
}

// TMDBSearchTV is "tmdb:search:tv:<query>:<page>".
func TMDBSearchTV(query string, page int) string {
	return NewKey("tmdb").Add("search").Add("tv").Add(query).Add(page).Build()
}

// TMDBPopular is "tmdb:<media>:popular:<page>".
func TMDBPopular(media string, page int) string {
	return NewKey("tmdb").Add(media).Add("popular").Add(page).Build()
}

// TMDBTrending is "tmdb:trending:<media>:<window>", window being "day" or "week".
func TMDBTrending(media, window string) string {
	return NewKey("tmdb").Add("trending").Add(media).Add(window).Build()
}

// StremioCatalog is "stremio:catalog:<type>:<id>:<page>".
func StremioCatalog(catalogType, id string, page int) string {
	return NewKey("stremio").Add("catalog").Add(catalogType).Add(id).Add(page).Build()
}

// StremioCatalogPage is "stremio:catalog:<type>:<id>:<page>:<genre>", with
// "none" standing in for an empty genre.
func StremioCatalogPage(catalogType, id string, page int, genre string) string {
	if genre == "" {
		genre = "none"
	}
	return NewKey("stremio").Add("catalog").Add(catalogType).Add(id).Add(page).Add(genre).Build()
}

// StremioMeta is "stremio:meta:<type>:<id>".
func StremioMeta(mediaType, id string) string {
	return NewKey("stremio").Add("meta").Add(mediaType).Add(id).Build()
}

// StremioStreams is "stremio:streams:<type>:<id>".
func StremioStreams(mediaType, id string) string {
	return NewKey("stremio").Add("streams").Add(mediaType).Add(id).Build()
}

// UserWatchlist is "user:watchlist:<id>".
func UserWatchlist(userID any) string {
	return NewKey("user").Add("watchlist").Add(userID).Build()
}
