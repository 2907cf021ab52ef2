package cache

import (
	"context"
	"time"
)

// RemoteTier is a slower cache layer shared between processes.
// Get reports a miss with ok == false and a nil error.
type RemoteTier interface {
	Get(ctx context.Context, key string) (data []byte, ok bool, err error)
	Set(ctx context.Context, key string, data []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) (bool, error)
	Clear(ctx context.Context) error
}
