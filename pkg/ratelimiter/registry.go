package ratelimiter

import (
	"context"
	"fmt"
	"hash/fnv"
	"log/slog"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/crmb/pkg/logger"
)

const defaultShards = 32

// failClosed is reported when a bucket operation fails unexpectedly.
var failClosed = Decision{Outcome: Denied, Wait: time.Second}

type shard struct {
	mu      sync.Mutex
	buckets map[string]*TokenBucket
}

// Registry owns the token buckets of every protected resource.
//
// Buckets are partitioned into shards by the FNV-1a hash of their key; each
// shard has its own mutex, so operations on one key are atomic while unrelated
// keys do not contend. Buckets are created lazily from the Resolver.
type Registry struct {
	shards   []*shard
	resolver Resolver
	now      func() time.Time
	logger   *slog.Logger
	observer Observer

	maxBuckets int64 // 0 means unbounded
	size       atomic.Int64

	stop      chan struct{}
	closeOnce sync.Once
	wg        sync.WaitGroup
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock replaces time.Now. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithShards sets the number of lock partitions.
func WithShards(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.shards = newShards(n)
		}
	}
}

// WithLogger sets the logger used for denials and internal failures.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithObserver registers a decision observer, e.g. a metrics sink.
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithMaxBuckets bounds the number of live buckets across the registry.
// When the bound is reached the bucket idle the longest, in any shard, is
// dropped to make room. Finding it scans every shard.
func WithMaxBuckets(n int) Option {
	return func(r *Registry) {
		if n > 0 {
			r.maxBuckets = int64(n)
		}
	}
}

// NewRegistry creates a registry resolving quotas with resolver.
func NewRegistry(resolver Resolver, opts ...Option) (*Registry, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", ErrInvalidConfig)
	}

	r := &Registry{
		shards:   newShards(defaultShards),
		resolver: resolver,
		now:      time.Now,
		logger:   logger.Discard(),
		stop:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

func newShards(n int) []*shard {
	shards := make([]*shard, n)
	for i := range shards {
		shards[i] = &shard{buckets: make(map[string]*TokenBucket)}
	}
	return shards
}

func (r *Registry) shardFor(key string) *shard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return r.shards[h.Sum32()%uint32(len(r.shards))]
}

// Check reports the decision for key without spending a token.
func (r *Registry) Check(key string) Decision {
	d := r.withBucket(key, func(b *TokenBucket, now time.Time) Decision {
		return b.Check(now)
	})
	r.observe(key, d)
	return d
}

// Consume spends a token for key. Call it only after an Allowed decision, or
// after waiting out a Delayed one. It returns false when no token was available.
func (r *Registry) Consume(key string) bool {
	consumed := true
	r.withBucket(key, func(b *TokenBucket, now time.Time) Decision {
		consumed = b.Consume(now)
		return Decision{}
	})
	return consumed
}

// CheckAndConsume checks key and, when allowed, spends a token in the same
// critical section. Concurrent callers can never both take the last token.
func (r *Registry) CheckAndConsume(key string) Decision {
	d := r.withBucket(key, func(b *TokenBucket, now time.Time) Decision {
		d := b.Check(now)
		if d.Outcome == Allowed && b.Consume(now) {
			d.Remaining = b.tokens
		}
		return d
	})
	r.observe(key, d)

	if d.Outcome == Denied {
		r.logger.Debug("rate limit exceeded",
			logger.Key(key),
			logger.Outcome(d.Outcome.String()),
			logger.RetryAfter(d.Wait),
		)
	}
	return d
}

// Acquire blocks through Delayed decisions until a token is spent for key.
// It returns an *ExceededError when the bucket is empty and ctx.Err() when
// the context ends while waiting.
func (r *Registry) Acquire(ctx context.Context, key string) error {
	for {
		d := r.CheckAndConsume(key)
		switch d.Outcome {
		case Allowed:
			return nil
		case Denied:
			return &ExceededError{Key: key, RetryAfter: d.Wait}
		}

		r.logger.DebugContext(ctx, "delaying request", logger.Key(key), logger.Duration(d.Wait))

		timer := time.NewTimer(d.Wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset refills the bucket of key. It returns false if the bucket does not exist.
func (r *Registry) Reset(key string) bool {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return false
	}
	b.Reset(r.now())
	return true
}

// ResetAll refills every bucket.
func (r *Registry) ResetAll() {
	now := r.now()
	for _, s := range r.shards {
		s.mu.Lock()
		for _, b := range s.buckets {
			b.Reset(now)
		}
		s.mu.Unlock()
	}
}

// Status returns the state of the bucket for key, if it exists.
func (r *Registry) Status(key string) (Status, bool) {
	s := r.shardFor(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return Status{}, false
	}
	return b.Status(key, r.now()), true
}

// Statuses returns the state of every bucket, sorted by key.
func (r *Registry) Statuses() []Status {
	now := r.now()
	var out []Status
	for _, s := range r.shards {
		s.mu.Lock()
		for key, b := range s.buckets {
			out = append(out, b.Status(key, now))
		}
		s.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Len returns the number of live buckets.
func (r *Registry) Len() int {
	return int(r.size.Load())
}

// EvictIdle drops buckets that have not been touched for maxIdle and returns
// how many were removed. An evicted key starts over with a full bucket.
func (r *Registry) EvictIdle(maxIdle time.Duration) int {
	now := r.now()
	removed := 0
	for _, s := range r.shards {
		s.mu.Lock()
		for key, b := range s.buckets {
			if now.Sub(b.lastAccess) > maxIdle {
				delete(s.buckets, key)
				removed++
			}
		}
		s.mu.Unlock()
	}
	r.size.Add(int64(-removed))
	return removed
}

// StartEviction runs EvictIdle every interval until ctx is done or the
// registry is closed.
func (r *Registry) StartEviction(ctx context.Context, interval, maxIdle time.Duration) {
	if interval <= 0 || maxIdle <= 0 {
		return
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				if n := r.EvictIdle(maxIdle); n > 0 {
					r.logger.Debug("evicted idle rate limit buckets", logger.Count(n))
				}
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()
}

// Close stops background eviction and waits for it to exit. Safe to call multiple times.
func (r *Registry) Close() {
	r.closeOnce.Do(func() { close(r.stop) })
	r.wg.Wait()
}

// withBucket runs fn on the bucket for key under its shard lock. Keys without
// a quota are allowed without creating a bucket. A panic inside fn is logged
// and reported as Denied.
func (r *Registry) withBucket(key string, fn func(*TokenBucket, time.Time) Decision) (d Decision) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("rate limiter failure",
				logger.Key(key),
				logger.Error(fmt.Errorf("%w: %v", ErrInternal, rec)),
			)
			d = failClosed
		}
	}()

	cfg, ok := r.resolver.Resolve(key)
	if !ok {
		return Decision{Outcome: Allowed}
	}

	s := r.shardFor(key)
	if d, ok := s.apply(key, r.now, fn); ok {
		return d
	}

	// New key: take a slot first. Eviction locks other shards, so it must
	// run without holding s.
	r.reserve()

	s.mu.Lock()
	defer s.mu.Unlock()

	now := r.now()
	b, exists := s.buckets[key]
	if exists {
		// Created concurrently; give the slot back.
		r.size.Add(-1)
	} else {
		b = NewTokenBucket(cfg, now)
		s.buckets[key] = b
	}
	b.lastAccess = now

	return fn(b, now)
}

// apply runs fn on an existing bucket and reports whether there was one.
func (s *shard) apply(key string, clock func() time.Time, fn func(*TokenBucket, time.Time) Decision) (Decision, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.buckets[key]
	if !ok {
		return Decision{}, false
	}
	now := clock()
	b.lastAccess = now
	return fn(b, now), true
}

// reserve counts one more bucket, evicting the idlest ones while the
// registry is at its bound.
func (r *Registry) reserve() {
	if r.maxBuckets <= 0 {
		r.size.Add(1)
		return
	}
	for {
		cur := r.size.Load()
		if cur < r.maxBuckets {
			if r.size.CompareAndSwap(cur, cur+1) {
				return
			}
			continue
		}
		if !r.evictIdlest() {
			// Slots are held by creations in flight, or the victim was touched.
			runtime.Gosched()
		}
	}
}

// evictIdlest drops the bucket with the oldest lastAccess across all shards.
// It returns false when there was nothing to drop or the victim was used
// between the scan and the delete.
func (r *Registry) evictIdlest() bool {
	var (
		victim    *shard
		victimKey string
		oldest    time.Time
	)
	for _, s := range r.shards {
		s.mu.Lock()
		for key, b := range s.buckets {
			if victim == nil || b.lastAccess.Before(oldest) {
				victim, victimKey, oldest = s, key, b.lastAccess
			}
		}
		s.mu.Unlock()
	}
	if victim == nil {
		return false
	}

	victim.mu.Lock()
	defer victim.mu.Unlock()

	b, ok := victim.buckets[victimKey]
	if !ok || !b.lastAccess.Equal(oldest) {
		return false
	}
	delete(victim.buckets, victimKey)
	r.size.Add(-1)
	return true
}

func (r *Registry) observe(key string, d Decision) {
	if r.observer != nil {
		r.observer.ObserveDecision(key, d)
	}
}
