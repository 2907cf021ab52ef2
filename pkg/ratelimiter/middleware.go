package ratelimiter

import (
	"net/http"
	"strconv"
	"time"
)

const defaultMaxDelay = time.Second

// DeniedHandler writes the response for a rejected request.
type DeniedHandler func(w http.ResponseWriter, r *http.Request, d Decision)

type middlewareConfig struct {
	maxDelay time.Duration
	denied   DeniedHandler
}

// MiddlewareOption configures Middleware.
type MiddlewareOption func(*middlewareConfig)

// WithMaxDelay sets the longest Delayed wait the middleware absorbs by
// sleeping. Longer delays are answered with 429. Zero rejects every Delayed.
func WithMaxDelay(d time.Duration) MiddlewareOption {
	return func(c *middlewareConfig) {
		if d >= 0 {
			c.maxDelay = d
		}
	}
}

// WithDeniedHandler customizes the 429 response.
func WithDeniedHandler(h DeniedHandler) MiddlewareOption {
	return func(c *middlewareConfig) {
		if h != nil {
			c.denied = h
		}
	}
}

// Middleware creates an HTTP middleware for rate limiting.
//
// Allowed requests carry X-RateLimit-Limit and X-RateLimit-Remaining headers.
// Delayed requests wait transparently when the delay fits in the configured
// maximum. Everything else gets 429 with Retry-After in whole seconds.
func Middleware(reg *Registry, keyFunc KeyFunc, opts ...MiddlewareOption) func(http.Handler) http.Handler {
	cfg := &middlewareConfig{
		maxDelay: defaultMaxDelay,
		denied:   defaultDenied,
	}
	for _, opt := range opts {
		opt(cfg)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			key := keyFunc(r)
			if key == "" {
				next.ServeHTTP(w, r)
				return
			}

			d := reg.CheckAndConsume(key)
			for d.Outcome == Delayed && d.Wait <= cfg.maxDelay {
				timer := time.NewTimer(d.Wait)
				select {
				case <-r.Context().Done():
					timer.Stop()
					return
				case <-timer.C:
				}
				d = reg.CheckAndConsume(key)
			}

			if d.Limit > 0 {
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(max(0, d.Remaining)))
			}

			if !d.Allowed() {
				cfg.denied(w, r, d)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func defaultDenied(w http.ResponseWriter, r *http.Request, d Decision) {
	w.Header().Set("Retry-After", strconv.Itoa(d.RetryAfterSeconds()))
	w.Header().Set("X-RateLimit-Remaining", "0")
	http.Error(w, "Too Many Requests", http.StatusTooManyRequests)
}
