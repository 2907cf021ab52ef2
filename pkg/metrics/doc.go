// Package metrics exports rate limiter and cache activity to Prometheus.
//
//	m := metrics.NewMetrics(prometheus.DefaultRegisterer)
//	reg, _ := ratelimiter.NewRegistry(routes, ratelimiter.WithObserver(m))
//	svc, _ := cache.New(cfg, cache.WithObserver(m))
//	metrics.RegisterCacheStats(prometheus.DefaultRegisterer, svc)
package metrics
