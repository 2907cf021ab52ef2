package cache

import (
	"fmt"
	"time"
)

// Config holds the cache settings, populated from the environment.
type Config struct {
	MaxMemoryEntries int           `env:"CACHE_MAX_MEMORY_ENTRIES" envDefault:"10000"` // Capacity of the memory tier
	DefaultTTL       time.Duration `env:"CACHE_DEFAULT_TTL" envDefault:"1h"`           // TTL for promoted entries and non-positive TTLs
	CleanupInterval  time.Duration `env:"CACHE_CLEANUP_INTERVAL" envDefault:"5m"`      // Cadence of the expiry sweep
	EnableRemoteTier bool          `env:"CACHE_ENABLE_REMOTE_TIER" envDefault:"false"` // Use the remote tier when one is provided
	RemoteTimeout    time.Duration `env:"CACHE_REMOTE_TIMEOUT" envDefault:"2s"`        // Budget of a single remote tier call
	EnableWarming    bool          `env:"CACHE_ENABLE_WARMING" envDefault:"true"`      // WarmCache is a no-op when false
	WarmConcurrency  int           `env:"CACHE_WARM_CONCURRENCY" envDefault:"4"`       // Parallel warm-up fetches
	CoalesceMisses   bool          `env:"CACHE_COALESCE_MISSES" envDefault:"true"`     // Deduplicate concurrent loads of one key
	LoadTimeout      time.Duration `env:"CACHE_LOAD_TIMEOUT" envDefault:"30s"`         // Budget of a shared load; 0 means no limit
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxMemoryEntries: 10000,
		DefaultTTL:       time.Hour,
		CleanupInterval:  5 * time.Minute,
		RemoteTimeout:    2 * time.Second,
		EnableWarming:    true,
		WarmConcurrency:  4,
		CoalesceMisses:   true,
		LoadTimeout:      30 * time.Second,
	}
}

// Validate reports whether the config can back a cache service.
func (c Config) Validate() error {
	if c.MaxMemoryEntries <= 0 {
		return fmt.Errorf("%w: max memory entries must be positive, got %d", ErrInvalidConfig, c.MaxMemoryEntries)
	}
	if c.DefaultTTL <= 0 {
		return fmt.Errorf("%w: default ttl must be positive, got %v", ErrInvalidConfig, c.DefaultTTL)
	}
	if c.CleanupInterval <= 0 {
		return fmt.Errorf("%w: cleanup interval must be positive, got %v", ErrInvalidConfig, c.CleanupInterval)
	}
	if c.EnableRemoteTier && c.RemoteTimeout <= 0 {
		return fmt.Errorf("%w: remote timeout must be positive, got %v", ErrInvalidConfig, c.RemoteTimeout)
	}
	return nil
}
