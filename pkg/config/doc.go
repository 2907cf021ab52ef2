// Package config loads application configuration from environment variables
// into tagged structs.
//
// It wraps github.com/joho/godotenv (for .env files) and
// github.com/caarlos0/env/v11 (for struct parsing). Nothing is cached at
// package level: each call to Load parses a fresh value, so the caller
// decides where configuration lives and tests can load isolated instances.
//
// # Usage
//
//	type Config struct {
//		AppEnv string `env:"APP_ENV" envDefault:"development"`
//		Addr   string `env:"HTTP_ADDR" envDefault:":8080"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Values from .env files never override variables already present in the
// process environment. Use WithEnvFiles for explicit files, WithPrefix to
// namespace variables, and WithEnvironment to parse from a map in tests.
//
// # Error Handling
//
// Parsing failures wrap ErrParsingConfig; unreadable explicit files wrap
// ErrReadingEnvFile:
//
//	if errors.Is(err, config.ErrParsingConfig) {
//		// a required variable is missing or malformed
//	}
package config
