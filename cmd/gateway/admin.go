package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrymomot/crmb/pkg/cache"
	"github.com/dmitrymomot/crmb/pkg/logger"
	"github.com/dmitrymomot/crmb/pkg/ratelimiter"
)

// admin exposes read and reset operations over the limiter and the cache.
type admin struct {
	limiter *ratelimiter.Registry
	cache   *cache.Service
	log     *slog.Logger
}

func newAdmin(limiter *ratelimiter.Registry, svc *cache.Service, log *slog.Logger) *admin {
	return &admin{limiter: limiter, cache: svc, log: log}
}

// Routes mounts the admin API. Rate limit keys contain "/" and ":", so they
// travel in the "key" query parameter rather than in the path.
func (a *admin) Routes() http.Handler {
	r := chi.NewRouter()

	r.Route("/ratelimits", func(r chi.Router) {
		r.Get("/", a.listBuckets)
		r.Get("/status", a.bucketStatus)
		r.Post("/reset", a.resetBuckets)
	})

	r.Route("/cache", func(r chi.Router) {
		r.Get("/stats", a.cacheStats)
		r.Get("/entry", a.cacheEntry)
		r.Delete("/entry", a.removeCacheEntry)
		r.Delete("/", a.clearCache)
		r.Post("/warm/{strategy}", a.warmCache)
	})

	return r
}

func (a *admin) listBuckets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"buckets": a.limiter.Statuses(),
		"count":   a.limiter.Len(),
	})
}

func (a *admin) bucketStatus(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	st, ok := a.limiter.Status(key)
	if !ok {
		writeError(w, http.StatusNotFound, "bucket not found")
		return
	}
	writeJSON(w, http.StatusOK, st)
}

// resetBuckets refills one bucket when "key" is given, every bucket otherwise.
func (a *admin) resetBuckets(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		a.limiter.ResetAll()
		a.log.InfoContext(r.Context(), "all rate limit buckets reset")
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if !a.limiter.Reset(key) {
		writeError(w, http.StatusNotFound, "bucket not found")
		return
	}
	a.log.InfoContext(r.Context(), "rate limit bucket reset", logger.Key(key))
	w.WriteHeader(http.StatusNoContent)
}

func (a *admin) cacheStats(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.cache.Stats())
}

func (a *admin) cacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	data, tier, ok := a.cache.GetBytes(r.Context(), key)
	if !ok {
		writeError(w, http.StatusNotFound, "cache miss")
		return
	}
	w.Header().Set("Content-Type", "application/octet-stream")
	w.Header().Set("X-Cache-Tier", tier.String())
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *admin) removeCacheEntry(w http.ResponseWriter, r *http.Request) {
	key := r.URL.Query().Get("key")
	if key == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}
	if !a.cache.Remove(r.Context(), key) {
		writeError(w, http.StatusNotFound, "cache miss")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *admin) clearCache(w http.ResponseWriter, r *http.Request) {
	a.cache.Clear(r.Context())
	a.log.InfoContext(r.Context(), "cache cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (a *admin) warmCache(w http.ResponseWriter, r *http.Request) {
	var strategy cache.Strategy
	switch name := chi.URLParam(r, "strategy"); name {
	case cache.KindPopular.String():
		strategy = cache.Popular
	case cache.KindTrending.String():
		strategy = cache.Trending
	case cache.KindUserBased.String():
		strategy = cache.UserBased
	default:
		writeError(w, http.StatusBadRequest, "unknown strategy "+name)
		return
	}

	err := a.cache.WarmCache(r.Context(), strategy)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusAccepted)
	case errors.Is(err, cache.ErrNoWarmer):
		writeError(w, http.StatusNotImplemented, err.Error())
	default:
		a.log.WarnContext(r.Context(), "cache warming failed", logger.Error(err))
		writeError(w, http.StatusBadGateway, err.Error())
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
