package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

const defaultEnvFile = ".env"

type options struct {
	files       []string
	optional    bool
	prefix      string
	environment map[string]string
}

// Option configures Load.
type Option func(*options)

// WithEnvFiles reads variables from the given files instead of the default
// ".env". Missing files are an error.
func WithEnvFiles(files ...string) Option {
	return func(o *options) {
		o.files = files
		o.optional = false
	}
}

// WithPrefix only considers variables starting with prefix, e.g. "CRMB_".
func WithPrefix(prefix string) Option {
	return func(o *options) {
		o.prefix = prefix
	}
}

// WithEnvironment replaces the process environment. Intended for tests.
func WithEnvironment(environment map[string]string) Option {
	return func(o *options) {
		o.environment = environment
	}
}

// Load populates v from the environment using `env` struct tags.
//
// Variables from .env files are merged under the process environment: a
// variable already set in the process always wins. By default the ".env"
// file of the working directory is read when it exists. The process
// environment itself is never modified.
//
// Example:
//
//	type CacheConfig struct {
//		MaxEntries int           `env:"CACHE_MAX_MEMORY_ENTRIES" envDefault:"10000"`
//		DefaultTTL time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"1h"`
//	}
//
//	var cfg CacheConfig
//	if err := config.Load(&cfg); err != nil {
//		// Handle error
//	}
func Load[T any](v *T, opts ...Option) error {
	if v == nil {
		return ErrNilPointer
	}

	o := &options{
		files:    []string{defaultEnvFile},
		optional: true,
	}
	for _, opt := range opts {
		opt(o)
	}

	environment, err := o.resolveEnvironment()
	if err != nil {
		return err
	}

	if err := env.ParseWithOptions(v, env.Options{
		Prefix:      o.prefix,
		Environment: environment,
	}); err != nil {
		return errors.Join(ErrParsingConfig, err)
	}
	return nil
}

func (o *options) resolveEnvironment() (map[string]string, error) {
	if o.environment != nil {
		return o.environment, nil
	}

	merged := make(map[string]string)
	for _, file := range o.files {
		values, err := godotenv.Read(file)
		if err != nil {
			if o.optional && errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, errors.Join(ErrReadingEnvFile, fmt.Errorf("%s: %w", file, err))
		}
		for k, val := range values {
			if _, seen := merged[k]; !seen {
				merged[k] = val
			}
		}
	}

	for _, kv := range os.Environ() {
		if k, val, ok := strings.Cut(kv, "="); ok {
			merged[k] = val
		}
	}
	return merged, nil
}
