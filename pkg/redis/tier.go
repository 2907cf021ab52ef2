package redis

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/crmb/pkg/cache"
)

var _ cache.RemoteTier = (*Tier)(nil)

const defaultScanBatchSize = 1000

// Tier is the remote cache tier backed by Redis. Every key is stored under
// a prefix, so several applications can share one database.
type Tier struct {
	db            redis.UniversalClient
	prefix        string
	scanBatchSize int64
}

// TierOption configures a Tier.
type TierOption func(*Tier)

// WithKeyPrefix namespaces every key. An empty prefix makes Clear flush the
// whole database.
func WithKeyPrefix(prefix string) TierOption {
	return func(t *Tier) {
		t.prefix = prefix
	}
}

// WithScanBatchSize sets the SCAN COUNT hint used by Clear.
func WithScanBatchSize(n int) TierOption {
	return func(t *Tier) {
		if n > 0 {
			t.scanBatchSize = int64(n)
		}
	}
}

// NewTier wraps a connected client.
func NewTier(client redis.UniversalClient, opts ...TierOption) *Tier {
	t := &Tier{
		db:            client,
		scanBatchSize: defaultScanBatchSize,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// NewTierWithConfig creates a tier using the prefix and scan size from cfg.
func NewTierWithConfig(client redis.UniversalClient, cfg Config) *Tier {
	return NewTier(client, WithKeyPrefix(cfg.KeyPrefix), WithScanBatchSize(cfg.ScanBatchSize))
}

// Get returns the payload for key. A missing key is a miss, not an error.
func (t *Tier) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := t.db.Get(ctx, t.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, errors.Join(ErrCommandFailed, err)
	}
	return val, true, nil
}

// Set stores data with the given expiration. Zero ttl means no expiration.
func (t *Tier) Set(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if err := t.db.Set(ctx, t.prefix+key, data, ttl).Err(); err != nil {
		return errors.Join(ErrCommandFailed, err)
	}
	return nil
}

// Delete removes key and reports whether it existed.
func (t *Tier) Delete(ctx context.Context, key string) (bool, error) {
	n, err := t.db.Del(ctx, t.prefix+key).Result()
	if err != nil {
		return false, errors.Join(ErrCommandFailed, err)
	}
	return n > 0, nil
}

// Clear removes every key under the prefix using SCAN to avoid blocking Redis.
// Without a prefix it falls back to FLUSHDB.
func (t *Tier) Clear(ctx context.Context) error {
	if t.prefix == "" {
		if err := t.db.FlushDB(ctx).Err(); err != nil {
			return errors.Join(ErrCommandFailed, err)
		}
		return nil
	}

	var cursor uint64
	for {
		batch, next, err := t.db.Scan(ctx, cursor, t.prefix+"*", t.scanBatchSize).Result()
		if err != nil {
			return errors.Join(ErrCommandFailed, err)
		}

		if len(batch) > 0 {
			if err := t.db.Del(ctx, batch...).Err(); err != nil {
				return errors.Join(ErrCommandFailed, err)
			}
		}

		if next == 0 {
			return nil
		}
		cursor = next
	}
}

// Conn returns the underlying client for advanced operations.
func (t *Tier) Conn() redis.UniversalClient {
	return t.db
}
