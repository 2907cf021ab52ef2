package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/dmitrymomot/crmb/pkg/logger"
)

// Operation and result labels reported to the Observer.
const (
	OpGet   = "get"
	OpSet   = "set"
	OpEvict = "evict"
	OpClear = "clear"
	OpDel   = "delete"

	ResultHit   = "hit"
	ResultMiss  = "miss"
	ResultOK    = "ok"
	ResultError = "error"
)

// Observer receives cache operations, e.g. for metrics.
type Observer interface {
	ObserveCache(op string, tier Tier, result string)
}

// Service is the multi-tier cache façade: the memory tier first, an optional
// remote tier second. Remote hits are promoted into memory with the default
// TTL. Remote failures are logged and never fail an operation.
type Service struct {
	cfg      Config
	memory   *MemoryCache
	remote   RemoteTier
	codec    Codec
	logger   *slog.Logger
	observer Observer
	warmer   Warmer
	sources  map[StrategyKind]KeysFunc
	now      func() time.Time
	loads    singleflight.Group

	hits         atomic.Uint64
	misses       atomic.Uint64
	remoteHits   atomic.Uint64
	remoteErrors atomic.Uint64

	mu          sync.RWMutex // guards the fields below and registration of remote writes
	closed      bool
	stopCleanup chan struct{}
	cleanupDone chan struct{}
	writes      sync.WaitGroup
}

// Option configures a Service.
type Option func(*Service)

// WithRemoteTier sets the second tier. It is used only when
// Config.EnableRemoteTier is true.
func WithRemoteTier(rt RemoteTier) Option {
	return func(s *Service) { s.remote = rt }
}

// WithCodec replaces the JSON codec used by the typed helpers.
func WithCodec(c Codec) Option {
	return func(s *Service) {
		if c != nil {
			s.codec = c
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

func WithObserver(o Observer) Option {
	return func(s *Service) { s.observer = o }
}

// WithWarmer sets the collaborator that re-fetches values during warming.
func WithWarmer(w Warmer) Option {
	return func(s *Service) { s.warmer = w }
}

// WithKeySource overrides the keys produced for a built-in strategy.
func WithKeySource(kind StrategyKind, fn KeysFunc) Option {
	return func(s *Service) {
		if fn != nil && kind != KindCustom {
			s.sources[kind] = fn
		}
	}
}

// WithClock replaces time.Now for the memory tier. Intended for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New creates a cache service.
func New(cfg Config, opts ...Option) (*Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	s := &Service{
		cfg:     cfg,
		codec:   JSONCodec{},
		logger:  logger.Discard(),
		sources: defaultKeySources(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}

	switch {
	case cfg.EnableRemoteTier && s.remote == nil:
		return nil, fmt.Errorf("%w: remote tier enabled but not provided", ErrInvalidConfig)
	case !cfg.EnableRemoteTier:
		s.remote = nil
	}

	s.memory = NewMemoryCache(cfg.MaxMemoryEntries,
		WithDefaultTTL(cfg.DefaultTTL),
		WithMemoryClock(s.now),
		WithEvictCallback(func(string, Entry) {
			s.observe(OpEvict, TierMemory, ResultOK)
		}),
	)

	return s, nil
}

// Memory exposes the memory tier.
func (s *Service) Memory() *MemoryCache {
	return s.memory
}

// GetBytes returns the raw payload for key and the tier that served it.
func (s *Service) GetBytes(ctx context.Context, key string) ([]byte, Tier, bool) {
	return s.lookup(ctx, key, nil)
}

// SetBytes stores data under key. The memory tier is written synchronously,
// the remote tier in the background. A non-positive ttl means the default TTL.
func (s *Service) SetBytes(ctx context.Context, key string, data []byte, ttl time.Duration) error {
	if key == "" {
		return ErrEmptyKey
	}
	if ttl <= 0 {
		ttl = s.cfg.DefaultTTL
	}

	s.memory.Set(key, data, ttl)
	s.observe(OpSet, TierMemory, ResultOK)

	if s.remote != nil {
		s.writeRemote(ctx, key, data, ttl)
	}
	return nil
}

// Remove deletes key from every tier and reports whether any tier held it.
func (s *Service) Remove(ctx context.Context, key string) bool {
	removed := s.memory.Remove(key)
	s.observe(OpDel, TierMemory, ResultOK)

	if s.remote != nil {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		defer cancel()

		ok, err := s.remote.Delete(ctx, key)
		if err != nil {
			s.remoteFailure(ctx, OpDel, key, err)
		} else {
			s.observe(OpDel, TierRemote, ResultOK)
		}
		removed = removed || ok
	}
	return removed
}

// Clear empties every tier and resets the statistics.
func (s *Service) Clear(ctx context.Context) {
	s.memory.Clear()
	s.hits.Store(0)
	s.misses.Store(0)
	s.remoteHits.Store(0)
	s.remoteErrors.Store(0)
	s.observe(OpClear, TierMemory, ResultOK)

	if s.remote != nil {
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		defer cancel()

		if err := s.remote.Clear(ctx); err != nil {
			s.remoteFailure(ctx, OpClear, "", err)
			return
		}
		s.observe(OpClear, TierRemote, ResultOK)
	}
}

// Stats returns a snapshot of the service counters. Hits and misses are
// counted once per lookup, whichever tier answered.
func (s *Service) Stats() Stats {
	m := s.memory.Stats()
	hits, misses := s.hits.Load(), s.misses.Load()
	return Stats{
		Hits:         hits,
		Misses:       misses,
		Evictions:    m.Evictions,
		Entries:      m.Entries,
		MemoryUsage:  m.MemoryUsage,
		HitRate:      hitRate(hits, misses),
		RemoteHits:   s.remoteHits.Load(),
		RemoteErrors: s.remoteErrors.Load(),
	}
}

// WarmCache asks the Warmer to refresh every key produced by strategy.
// Keys are processed concurrently; every failure is collected and returned
// joined with ErrWarming. It is a no-op when warming is disabled.
func (s *Service) WarmCache(ctx context.Context, strategy Strategy) error {
	if !s.cfg.EnableWarming {
		s.logger.DebugContext(ctx, "cache warming disabled", logger.Strategy(strategy.String()))
		return nil
	}
	if s.warmer == nil {
		return ErrNoWarmer
	}

	keys := s.keysFor(ctx, strategy)
	s.logger.InfoContext(ctx, "starting cache warming",
		logger.Strategy(strategy.String()),
		logger.Count(len(keys)),
	)

	var (
		mu   sync.Mutex
		errs []error
	)
	var g errgroup.Group
	g.SetLimit(max(1, s.cfg.WarmConcurrency))

	for _, key := range keys {
		g.Go(func() (err error) {
			defer func() {
				if rec := recover(); rec != nil {
					err = fmt.Errorf("panic: %v", rec)
				}
				if err != nil {
					mu.Lock()
					errs = append(errs, fmt.Errorf("warm %q: %w", key, err))
					mu.Unlock()
				}
			}()

			if err := ctx.Err(); err != nil {
				return err
			}
			return s.warmer.Warm(ctx, key)
		})
	}
	_ = g.Wait()

	if len(errs) > 0 {
		s.logger.WarnContext(ctx, "cache warming finished with errors",
			logger.Strategy(strategy.String()),
			logger.Count(len(errs)),
			logger.Errors(errs...),
		)
		return errors.Join(append([]error{ErrWarming}, errs...)...)
	}

	s.logger.InfoContext(ctx, "cache warming completed", logger.Strategy(strategy.String()))
	return nil
}

func (s *Service) keysFor(ctx context.Context, strategy Strategy) []string {
	if strategy.Kind == KindCustom {
		if strategy.keys == nil {
			return nil
		}
		return strategy.keys(ctx)
	}
	if fn, ok := s.sources[strategy.Kind]; ok {
		return fn(ctx)
	}
	return nil
}

// StartCleanup sweeps expired entries from the memory tier every
// CleanupInterval until ctx is done or the service is closed.
// Calling it more than once has no effect.
func (s *Service) StartCleanup(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed || s.cleanupDone != nil {
		return
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	s.stopCleanup, s.cleanupDone = stop, done

	go func() {
		defer close(done)

		ticker := time.NewTicker(s.cfg.CleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.runCleanup(ctx)
			case <-ctx.Done():
				return
			case <-stop:
				return
			}
		}
	}()
}

func (s *Service) runCleanup(ctx context.Context) {
	defer func() {
		if rec := recover(); rec != nil {
			s.logger.ErrorContext(ctx, "cache cleanup failed", logger.Error(fmt.Errorf("panic: %v", rec)))
		}
	}()

	start := time.Now()
	n := s.memory.CleanupExpired()
	s.logger.DebugContext(ctx, "cache cleanup completed",
		logger.Count(n),
		logger.Duration(time.Since(start)),
	)
}

// Close stops the cleanup task and waits for pending remote writes.
// Safe to call multiple times.
func (s *Service) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	stop, done := s.stopCleanup, s.cleanupDone
	s.mu.Unlock()

	if stop != nil {
		close(stop)
		<-done
	}
	s.writes.Wait()
}

// lookup tries the memory tier, then the remote tier. decode, when set,
// validates the payload; a payload it rejects is purged and the lookup moves on.
func (s *Service) lookup(ctx context.Context, key string, decode func([]byte) error) ([]byte, Tier, bool) {
	if e, ok := s.memory.Get(key); ok {
		if s.accept(ctx, key, TierMemory, e.Data, decode) {
			s.hits.Add(1)
			s.observe(OpGet, TierMemory, ResultHit)
			return e.Data, TierMemory, true
		}
	} else {
		s.observe(OpGet, TierMemory, ResultMiss)
	}

	if s.remote != nil {
		if data, ok := s.remoteGet(ctx, key); ok && s.accept(ctx, key, TierRemote, data, decode) {
			s.memory.Set(key, data, s.cfg.DefaultTTL)
			s.hits.Add(1)
			s.remoteHits.Add(1)
			s.observe(OpGet, TierRemote, ResultHit)
			return data, TierRemote, true
		}
	}

	s.misses.Add(1)
	return nil, TierMemory, false
}

// accept decodes data and purges the entry from tier when it is corrupted.
func (s *Service) accept(ctx context.Context, key string, tier Tier, data []byte, decode func([]byte) error) bool {
	if decode == nil {
		return true
	}
	err := decode(data)
	if err == nil {
		return true
	}

	s.logger.WarnContext(ctx, "purging corrupted cache entry",
		logger.Key(key),
		logger.Tier(tier),
		logger.Error(errors.Join(ErrSerialization, err)),
	)

	switch tier {
	case TierMemory:
		s.memory.Remove(key)
	case TierRemote:
		ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		defer cancel()
		if _, err := s.remote.Delete(ctx, key); err != nil {
			s.remoteFailure(ctx, OpDel, key, err)
		}
	}
	return false
}

func (s *Service) remoteGet(ctx context.Context, key string) ([]byte, bool) {
	ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
	defer cancel()

	data, ok, err := s.remote.Get(ctx, key)
	if err != nil {
		s.remoteFailure(ctx, OpGet, key, err)
		return nil, false
	}
	if !ok {
		s.observe(OpGet, TierRemote, ResultMiss)
		return nil, false
	}
	return data, true
}

func (s *Service) writeRemote(ctx context.Context, key string, data []byte, ttl time.Duration) {
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		s.logger.DebugContext(ctx, "skipping remote write after close", logger.Key(key))
		return
	}
	s.writes.Add(1)
	s.mu.RUnlock()

	payload := append([]byte(nil), data...)
	ctx = context.WithoutCancel(ctx)

	go func() {
		defer s.writes.Done()
		defer func() {
			if rec := recover(); rec != nil {
				s.remoteFailure(ctx, OpSet, key, fmt.Errorf("panic: %v", rec))
			}
		}()

		ctx, cancel := context.WithTimeout(ctx, s.cfg.RemoteTimeout)
		defer cancel()

		if err := s.remote.Set(ctx, key, payload, ttl); err != nil {
			s.remoteFailure(ctx, OpSet, key, err)
			return
		}
		s.observe(OpSet, TierRemote, ResultOK)
	}()
}

func (s *Service) remoteFailure(ctx context.Context, op, key string, err error) {
	s.remoteErrors.Add(1)
	s.observe(op, TierRemote, ResultError)
	s.logger.WarnContext(ctx, "remote cache tier unavailable",
		slog.String("op", op),
		logger.Key(key),
		logger.Error(errors.Join(ErrRemoteTierUnavailable, err)),
	)
}

func (s *Service) observe(op string, tier Tier, result string) {
	if s.observer != nil {
		s.observer.ObserveCache(op, tier, result)
	}
}
