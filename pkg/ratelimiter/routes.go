package ratelimiter

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Resolver maps a resource key to the quota of its bucket.
// Keys without a quota are not rate limited.
type Resolver interface {
	Resolve(key string) (Config, bool)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(key string) (Config, bool)

func (f ResolverFunc) Resolve(key string) (Config, bool) { return f(key) }

// Static returns a resolver that applies cfg to every key.
func Static(cfg Config) Resolver {
	return ResolverFunc(func(string) (Config, bool) { return cfg, true })
}

// Routes resolves quotas by exact key first, then by the longest configured
// pattern the key starts with, then by the optional fallback.
type Routes struct {
	exact    map[string]Config
	prefixes []string // sorted by length, longest first
	fallback *Config
}

// RoutesOption configures Routes.
type RoutesOption func(*Routes)

// WithFallback sets the quota used for keys that match no pattern.
func WithFallback(cfg Config) RoutesOption {
	return func(r *Routes) {
		r.fallback = &cfg
	}
}

// NewRoutes validates every quota and builds the resolver.
func NewRoutes(routes map[string]Config, opts ...RoutesOption) (*Routes, error) {
	r := &Routes{
		exact:    make(map[string]Config, len(routes)),
		prefixes: make([]string, 0, len(routes)),
	}

	for pattern, cfg := range routes {
		if pattern == "" {
			return nil, fmt.Errorf("%w: empty route pattern", ErrInvalidConfig)
		}
		if err := cfg.Validate(); err != nil {
			return nil, fmt.Errorf("route %q: %w", pattern, err)
		}
		r.exact[pattern] = cfg
		r.prefixes = append(r.prefixes, pattern)
	}

	for _, opt := range opts {
		opt(r)
	}
	if r.fallback != nil {
		if err := r.fallback.Validate(); err != nil {
			return nil, fmt.Errorf("fallback: %w", err)
		}
	}

	sort.Slice(r.prefixes, func(i, j int) bool {
		if len(r.prefixes[i]) != len(r.prefixes[j]) {
			return len(r.prefixes[i]) > len(r.prefixes[j])
		}
		return r.prefixes[i] < r.prefixes[j]
	})

	return r, nil
}

func (r *Routes) Resolve(key string) (Config, bool) {
	if cfg, ok := r.exact[key]; ok {
		return cfg, true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(key, p) {
			return r.exact[p], true
		}
	}
	if r.fallback != nil {
		return *r.fallback, true
	}
	return Config{}, false
}

// Patterns returns the configured patterns, longest first.
func (r *Routes) Patterns() []string {
	return append([]string(nil), r.prefixes...)
}

type routesFile struct {
	Routes   map[string]Config `yaml:"routes"`
	Fallback *Config           `yaml:"fallback"`
}

// LoadRoutes parses a YAML quota document:
//
//	routes:
//	  "route:/api/tmdb":
//	    max_requests: 100
//	    time_window: 1m
//	fallback:
//	  max_requests: 1000
//	  time_window: 1h
func LoadRoutes(r io.Reader) (*Routes, error) {
	var doc routesFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil && !errors.Is(err, io.EOF) {
		return nil, errors.Join(ErrRoutesFile, err)
	}

	var opts []RoutesOption
	if doc.Fallback != nil {
		opts = append(opts, WithFallback(*doc.Fallback))
	}

	routes, err := NewRoutes(doc.Routes, opts...)
	if err != nil {
		return nil, errors.Join(ErrRoutesFile, err)
	}
	return routes, nil
}

// LoadRoutesFile reads quotas from a YAML file, see LoadRoutes.
func LoadRoutesFile(path string) (*Routes, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Join(ErrRoutesFile, err)
	}
	defer f.Close()

	return LoadRoutes(f)
}
