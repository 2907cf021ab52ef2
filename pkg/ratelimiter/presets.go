package ratelimiter

import "time"

// Upstream resource names used as bucket keys by the provider clients.
const (
	ResourceTMDB         = "tmdb"
	ResourceStremio      = "stremio"
	ResourceMDBList      = "mdblist"
	ResourceGeneral      = "general"
	ResourceConservative = "conservative"
)

// TMDB allows 40 requests per 10 seconds, at most 4 per second.
func TMDB() Config {
	return Config{MaxRequests: 40, TimeWindow: 10 * time.Second, MinInterval: 250 * time.Millisecond}
}

// Stremio is the addon protocol quota.
func Stremio() Config {
	return Config{MaxRequests: 100, TimeWindow: time.Minute, MinInterval: 100 * time.Millisecond}
}

// MDBList allows 1000 requests per hour.
func MDBList() Config {
	return Config{MaxRequests: 1000, TimeWindow: time.Hour, MinInterval: 50 * time.Millisecond}
}

// General is used for upstreams without a dedicated quota.
func General() Config {
	return Config{MaxRequests: 100, TimeWindow: time.Minute, MinInterval: 100 * time.Millisecond}
}

// Conservative is meant for unknown APIs.
func Conservative() Config {
	return Config{MaxRequests: 10, TimeWindow: time.Minute, MinInterval: time.Second}
}

// UpstreamRoutes returns the quotas of the upstream providers keyed by resource name.
func UpstreamRoutes() map[string]Config {
	return map[string]Config{
		ResourceTMDB:         TMDB(),
		ResourceStremio:      Stremio(),
		ResourceMDBList:      MDBList(),
		ResourceGeneral:      General(),
		ResourceConservative: Conservative(),
	}
}

// InboundRoutes returns the quotas applied to inbound API traffic.
// Patterns follow the key grammar of the KeyFunc helpers in this package.
func InboundRoutes() map[string]Config {
	return map[string]Config{
		PrefixGlobal:                       {MaxRequests: 1000, TimeWindow: time.Hour},
		PrefixAuth:                         {MaxRequests: 5, TimeWindow: 5 * time.Minute},
		PrefixUser:                         {MaxRequests: 100, TimeWindow: time.Minute},
		PrefixRoute + "/api/auth/login":    {MaxRequests: 5, TimeWindow: 5 * time.Minute},
		PrefixRoute + "/api/auth/register": {MaxRequests: 3, TimeWindow: time.Hour},
		PrefixRoute + "/api/tmdb":          {MaxRequests: 100, TimeWindow: time.Minute},
		PrefixRoute + "/api/stremio":       {MaxRequests: 50, TimeWindow: time.Minute},
	}
}

// DefaultRoutes merges upstream and inbound quotas.
func DefaultRoutes() map[string]Config {
	routes := UpstreamRoutes()
	for k, v := range InboundRoutes() {
		routes[k] = v
	}
	return routes
}
