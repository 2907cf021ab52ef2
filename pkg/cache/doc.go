// Package cache provides a two-tier cache for metadata responses: a bounded
// in-process LRU tier with per-entry TTL, and an optional remote tier shared
// between instances (see package redis for the Redis implementation).
//
// # Memory Tier
//
// MemoryCache holds at most a configured number of byte payloads. Reads move
// an entry to the most recently used position; inserting a new key into a
// full cache evicts the least recently used entry first. An entry is served
// only while now < CreatedAt + TTL. Expired entries are dropped on read and by
// CleanupExpired.
//
// # Service
//
// Service layers the tiers:
//
//	svc, err := cache.New(cfg,
//		cache.WithRemoteTier(redisTier),
//		cache.WithLogger(log),
//	)
//	if err != nil {
//		return err
//	}
//	defer svc.Close()
//	svc.StartCleanup(ctx)
//
//	err = cache.Set(ctx, svc, cache.TMDBMovie(603), movie, time.Hour)
//	movie, tier, ok := cache.Get[Movie](ctx, svc, cache.TMDBMovie(603))
//
// Lookups try memory, then the remote tier. A remote hit is copied into
// memory with the default TTL. Writes go to memory synchronously and to the
// remote tier in the background. Remote failures are logged, counted in
// Stats.RemoteErrors and never surface to the caller.
//
// A payload that no longer decodes into the requested type is purged from
// the tier that held it and reported as a miss.
//
// GetOrLoad fills a miss from a loader. Concurrent misses on one key share a
// single load when CoalesceMisses is enabled.
//
// # Keys
//
// Key and the preset builders (TMDBMovie, StremioCatalogPage, ...) are the
// only way keys should be built, so that producers and readers agree.
//
// # Warming
//
// WarmCache hands each key of a Strategy to a Warmer, which re-fetches the
// value from its owner. Failures are collected and returned together.
package cache
