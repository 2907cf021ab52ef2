// Package ratelimiter provides token bucket admission control for upstream
// metadata providers and inbound API traffic.
//
// Each protected resource ("tmdb", "global:203.0.113.7", "user:42:/api/tmdb")
// owns a TokenBucket. Buckets start full, refill lazily at
// MaxRequests/TimeWindow tokens per second and may enforce a minimum interval
// between two consumed requests. A Registry owns the buckets, creates them on
// first use from a Resolver and serializes access per key.
//
// # Basic Usage
//
// Build a registry from quotas and ask it before each upstream call:
//
//	routes, err := ratelimiter.NewRoutes(ratelimiter.UpstreamRoutes())
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	reg, err := ratelimiter.NewRegistry(routes)
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer reg.Close()
//
//	switch d := reg.CheckAndConsume("tmdb"); d.Outcome {
//	case ratelimiter.Allowed:
//		// call the upstream
//	case ratelimiter.Delayed:
//		// sleep d.Wait and try again
//	case ratelimiter.Denied:
//		// give up, retry after d.Wait
//	}
//
// Acquire wraps that loop, sleeping through Delayed decisions:
//
//	if err := reg.Acquire(ctx, ratelimiter.ResourceTMDB); err != nil {
//		var exceeded *ratelimiter.ExceededError
//		if errors.As(err, &exceeded) {
//			// exceeded.RetryAfter
//		}
//		return err
//	}
//
// Check is a dry run: it reports the decision without spending a token.
// Consume spends one afterwards. CheckAndConsume does both atomically and is
// what request paths should use.
//
// # Quotas
//
// Routes resolves a key by exact match, then by the longest configured
// pattern the key starts with, then by an optional fallback. Keys that resolve
// to nothing are allowed without creating a bucket. Quotas can be loaded from
// YAML with LoadRoutes or LoadRoutesFile.
//
// # HTTP Middleware
//
//	mw := ratelimiter.Middleware(reg, ratelimiter.GlobalKey,
//		ratelimiter.WithMaxDelay(500*time.Millisecond),
//	)
//
// Denied requests get 429 with Retry-After rounded up to whole seconds.
// Key helpers produce the key grammar the default quotas expect:
// "global:<ip>", "auth:<ip>", "route:<path>:<ip>" and "user:<id>:<path>".
//
// # Memory Management
//
// Buckets that have been idle for a while can be dropped with EvictIdle or
// periodically with StartEviction. WithMaxBuckets bounds the registry size.
// Close stops the background eviction.
//
// # Failure Handling
//
// Unexpected failures inside a bucket operation are logged and reported as
// Denied. The limiter never fails open.
package ratelimiter
