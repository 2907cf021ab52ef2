package main

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/crmb/pkg/cache"
	"github.com/dmitrymomot/crmb/pkg/logger"
)

// gapWarmer audits a warming key set against the memory tier. The gateway
// has no upstream metadata client, so it reports gaps instead of filling
// them; the service that owns the upstream plugs in a real cache.Warmer.
type gapWarmer struct {
	memory *cache.MemoryCache
	log    *slog.Logger
}

func (w *gapWarmer) Warm(ctx context.Context, key string) error {
	if w.memory == nil || w.memory.Contains(key) {
		return nil
	}
	w.log.InfoContext(ctx, "warm key not cached", logger.Key(key))
	return nil
}
