package cache

import (
	"context"
	"errors"
	"time"
)

// Get returns the value cached under key decoded into T, and the tier that
// served it. A payload that cannot be decoded into T is purged and reported
// as a miss.
func Get[T any](ctx context.Context, s *Service, key string) (T, Tier, bool) {
	var v T
	_, tier, ok := s.lookup(ctx, key, func(data []byte) error {
		var decoded T
		if err := s.codec.Unmarshal(data, &decoded); err != nil {
			return err
		}
		v = decoded
		return nil
	})
	if !ok {
		var zero T
		return zero, TierMemory, false
	}
	return v, tier, true
}

// Set encodes v and stores it under key. A non-positive ttl means the
// default TTL. Only encoding fails the call; remote tier failures are logged.
func Set[T any](ctx context.Context, s *Service, key string, v T, ttl time.Duration) error {
	data, err := s.codec.Marshal(v)
	if err != nil {
		return errors.Join(ErrSerialization, err)
	}
	return s.SetBytes(ctx, key, data, ttl)
}

// GetOrLoad returns the cached value for key or calls load, caches its
// result and returns it. Load errors are returned and nothing is cached.
//
// With CoalesceMisses enabled, concurrent misses on the same key share a
// single load. The shared load runs detached from any one caller, bounded by
// LoadTimeout, and each caller stops waiting when its own ctx ends.
func GetOrLoad[T any](ctx context.Context, s *Service, key string, ttl time.Duration, load func(context.Context) (T, error)) (T, error) {
	var zero T
	if v, _, ok := Get[T](ctx, s, key); ok {
		return v, nil
	}

	fetch := func(ctx context.Context) ([]byte, error) {
		v, err := load(ctx)
		if err != nil {
			return nil, err
		}
		data, err := s.codec.Marshal(v)
		if err != nil {
			return nil, errors.Join(ErrSerialization, err)
		}
		if err := s.SetBytes(ctx, key, data, ttl); err != nil {
			return nil, err
		}
		return data, nil
	}

	var (
		data []byte
		err  error
	)
	if s.cfg.CoalesceMisses {
		ch := s.loads.DoChan(key, func() (any, error) {
			loadCtx := context.WithoutCancel(ctx)
			if s.cfg.LoadTimeout > 0 {
				var cancel context.CancelFunc
				loadCtx, cancel = context.WithTimeout(loadCtx, s.cfg.LoadTimeout)
				defer cancel()
			}
			return fetch(loadCtx)
		})
		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case res := <-ch:
			if err = res.Err; err == nil {
				data = res.Val.([]byte)
			}
		}
	} else {
		data, err = fetch(ctx)
	}
	if err != nil {
		return zero, err
	}

	var v T
	if err := s.codec.Unmarshal(data, &v); err != nil {
		return zero, errors.Join(ErrSerialization, err)
	}
	return v, nil
}
