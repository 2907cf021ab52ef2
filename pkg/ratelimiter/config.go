package ratelimiter

import "time"

// EnvConfig carries the rate limiter settings read from the environment.
type EnvConfig struct {
	Requests         int           `env:"RATE_LIMIT_REQUESTS" envDefault:"40"`          // TMDB quota per window
	Window           time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"10s"`           // TMDB quota window
	MinInterval      time.Duration `env:"RATE_LIMIT_MIN_INTERVAL" envDefault:"250ms"`   // Minimum gap between TMDB calls
	RoutesFile       string        `env:"RATE_LIMIT_ROUTES_FILE"`                       // Optional YAML file overriding the default quotas
	MaxBuckets       int           `env:"RATE_LIMIT_MAX_BUCKETS" envDefault:"0"`        // Upper bound on live buckets, 0 disables it
	Shards           int           `env:"RATE_LIMIT_SHARDS" envDefault:"32"`            // Number of lock partitions
	IdleTTL          time.Duration `env:"RATE_LIMIT_IDLE_TTL" envDefault:"1h"`          // Buckets idle for longer are evicted
	EvictionInterval time.Duration `env:"RATE_LIMIT_EVICTION_INTERVAL" envDefault:"5m"` // How often idle buckets are swept
	MaxDelay         time.Duration `env:"RATE_LIMIT_MAX_DELAY" envDefault:"1s"`         // Longest Delayed wait absorbed by the middleware
}

// TMDB returns the TMDB quota described by the environment.
func (c EnvConfig) TMDB() Config {
	return Config{
		MaxRequests: c.Requests,
		TimeWindow:  c.Window,
		MinInterval: c.MinInterval,
	}
}

// Routes builds the resolver described by the environment: the routes file
// when set, otherwise the default quotas with the TMDB quota from the env.
func (c EnvConfig) Routes() (*Routes, error) {
	if c.RoutesFile != "" {
		return LoadRoutesFile(c.RoutesFile)
	}
	routes := DefaultRoutes()
	routes[ResourceTMDB] = c.TMDB()
	return NewRoutes(routes)
}

// Options translates the environment into registry options.
func (c EnvConfig) Options() []Option {
	return []Option{
		WithShards(c.Shards),
		WithMaxBuckets(c.MaxBuckets),
	}
}
