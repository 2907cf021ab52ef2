package metrics

import (
	"strings"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/dmitrymomot/crmb/pkg/cache"
	"github.com/dmitrymomot/crmb/pkg/ratelimiter"
)

const namespace = "crmb"

// Metrics holds the Prometheus collectors for admission control and caching.
// It implements ratelimiter.Observer and cache.Observer.
type Metrics struct {
	Decisions  *prometheus.CounterVec
	CacheOps   *prometheus.CounterVec
	RetryAfter prometheus.Histogram
}

var (
	_ ratelimiter.Observer = (*Metrics)(nil)
	_ cache.Observer       = (*Metrics)(nil)
)

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "ratelimit_decisions_total",
		Help:      "Rate limit decisions by key scope and outcome",
	}, []string{"scope", "outcome"})

	cacheOps := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "cache_operations_total",
		Help:      "Cache operations by tier and result",
	}, []string{"op", "tier", "result"})

	retryAfter := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "ratelimit_retry_after_seconds",
		Help:      "Wait hints handed out with delayed and denied decisions",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 5, 30, 60, 300, 3600},
	})

	reg.MustRegister(decisions, cacheOps, retryAfter)

	return &Metrics{
		Decisions:  decisions,
		CacheOps:   cacheOps,
		RetryAfter: retryAfter,
	}
}

// ObserveDecision counts a rate limit decision. Keys are reduced to their
// scope so client addresses never become label values.
func (m *Metrics) ObserveDecision(key string, d ratelimiter.Decision) {
	m.Decisions.WithLabelValues(Scope(key), d.Outcome.String()).Inc()
	if d.Outcome != ratelimiter.Allowed {
		m.RetryAfter.Observe(d.Wait.Seconds())
	}
}

// ObserveCache counts a cache operation.
func (m *Metrics) ObserveCache(op string, tier cache.Tier, result string) {
	m.CacheOps.WithLabelValues(op, tier.String(), result).Inc()
}

// Scope returns the part of a rate limit key before the first ":", e.g.
// "global" for "global:10.0.0.1" and "tmdb" for "tmdb". Route keys keep
// their path: "route:/api/tmdb:10.0.0.1" becomes "route:/api/tmdb".
func Scope(key string) string {
	scope, rest, found := strings.Cut(key, ":")
	if !found {
		return key
	}
	if scope+":" == ratelimiter.PrefixRoute {
		path, _, _ := strings.Cut(rest, ":")
		return scope + ":" + path
	}
	return scope
}

// StatsSource provides cache statistics, e.g. *cache.Service.
type StatsSource interface {
	Stats() cache.Stats
}

// RegisterCacheStats exports the cache snapshot as gauges read at scrape time.
func RegisterCacheStats(reg prometheus.Registerer, src StatsSource) {
	gauge := func(name, help string, value func(cache.Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return value(src.Stats()) })
	}

	reg.MustRegister(
		gauge("cache_entries", "Entries held by the memory tier",
			func(s cache.Stats) float64 { return float64(s.Entries) }),
		gauge("cache_memory_bytes", "Payload bytes held by the memory tier",
			func(s cache.Stats) float64 { return float64(s.MemoryUsage) }),
		gauge("cache_hit_ratio", "Hits divided by lookups since the last clear",
			func(s cache.Stats) float64 { return s.HitRate }),
		gauge("cache_evictions", "LRU evictions since the last clear",
			func(s cache.Stats) float64 { return float64(s.Evictions) }),
	)
}
