// Command gateway runs the admission control and caching engine behind an
// HTTP server: inbound rate limiting, the multi-tier cache, Prometheus
// metrics and the admin endpoints used to inspect both.
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dmitrymomot/crmb/pkg/cache"
	"github.com/dmitrymomot/crmb/pkg/clientip"
	"github.com/dmitrymomot/crmb/pkg/config"
	"github.com/dmitrymomot/crmb/pkg/httpserver"
	"github.com/dmitrymomot/crmb/pkg/logger"
	"github.com/dmitrymomot/crmb/pkg/metrics"
	"github.com/dmitrymomot/crmb/pkg/ratelimiter"
	"github.com/dmitrymomot/crmb/pkg/redis"
	"github.com/dmitrymomot/crmb/pkg/requestid"
)

const serviceName = "crmb-gateway"

type appConfig struct {
	Env       string `env:"APP_ENV" envDefault:"development"`
	Version   string `env:"APP_VERSION" envDefault:"dev"`
	LogLevel  string `env:"LOG_LEVEL"`
	LogFormat string `env:"LOG_FORMAT"` // json or text; overrides the environment preset
}

func main() {
	if err := run(context.Background()); err != nil {
		slog.Error("gateway stopped", logger.Error(err))
		os.Exit(1)
	}
}

func run(ctx context.Context) error {
	var (
		app      appConfig
		httpCfg  httpserver.Config
		rlCfg    ratelimiter.EnvConfig
		cacheCfg cache.Config
	)
	if err := errors.Join(
		config.Load(&app),
		config.Load(&httpCfg),
		config.Load(&rlCfg),
		config.Load(&cacheCfg),
	); err != nil {
		return err
	}

	logOpts := []logger.Option{
		logger.WithEnvironment(app.Env, serviceName),
		logger.WithAttr(slog.String("version", app.Version)),
		logger.WithContextExtractors(requestid.LogAttr, clientIPFromContext),
	}
	if app.LogLevel != "" {
		logOpts = append(logOpts, logger.WithLevelName(app.LogLevel))
	}
	if app.LogFormat != "" {
		logOpts = append(logOpts, logger.WithFormat(logger.Format(app.LogFormat)))
	}
	log := logger.New(logOpts...)
	logger.SetAsDefault(log)

	promReg := prometheus.NewRegistry()
	promReg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	m := metrics.NewMetrics(promReg)

	routes, err := rlCfg.Routes()
	if err != nil {
		return err
	}
	limiter, err := ratelimiter.NewRegistry(routes, append(rlCfg.Options(),
		ratelimiter.WithLogger(log.With(logger.Component("ratelimiter"))),
		ratelimiter.WithObserver(m),
	)...)
	if err != nil {
		return err
	}
	limiter.StartEviction(ctx, rlCfg.EvictionInterval, rlCfg.IdleTTL)

	cacheLog := log.With(logger.Component("cache"))
	warmer := &gapWarmer{log: cacheLog}
	cacheOpts := []cache.Option{
		cache.WithLogger(cacheLog),
		cache.WithObserver(m),
		cache.WithWarmer(warmer),
	}
	var checks []httpserver.Check
	if cacheCfg.EnableRemoteTier {
		var redisCfg redis.Config
		if err := config.Load(&redisCfg); err != nil {
			return err
		}
		client, err := redis.Connect(ctx, redisCfg)
		if err != nil {
			return err
		}
		defer func() { _ = client.Close() }()

		cacheOpts = append(cacheOpts, cache.WithRemoteTier(redis.NewTierWithConfig(client, redisCfg)))
		checks = append(checks, redis.Healthcheck(client))
	}

	svc, err := cache.New(cacheCfg, cacheOpts...)
	if err != nil {
		return err
	}
	warmer.memory = svc.Memory()
	svc.StartCleanup(ctx)

	log.InfoContext(ctx, "gateway configured",
		logger.Group("ratelimit",
			slog.Int("max_buckets", rlCfg.MaxBuckets),
			slog.Duration("idle_ttl", rlCfg.IdleTTL),
		),
		logger.Group("cache",
			slog.Int("max_entries", cacheCfg.MaxMemoryEntries),
			slog.Bool("remote_tier", cacheCfg.EnableRemoteTier),
			slog.Bool("coalesce_misses", cacheCfg.CoalesceMisses),
		),
	)
	metrics.RegisterCacheStats(promReg, svc)

	r := chi.NewRouter()
	r.Use(requestid.Middleware())
	r.Use(clientip.Middleware)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", httpserver.HealthCheckHandler(log))
	r.Get("/readyz", httpserver.HealthCheckHandler(log, checks...))
	r.Handle("/metrics", promhttp.HandlerFor(promReg, promhttp.HandlerOpts{Registry: promReg}))

	r.Group(func(r chi.Router) {
		r.Use(ratelimiter.Middleware(limiter, ratelimiter.GlobalKey, ratelimiter.WithMaxDelay(rlCfg.MaxDelay)))
		r.Use(ratelimiter.Middleware(limiter, ratelimiter.RouteKey, ratelimiter.WithMaxDelay(rlCfg.MaxDelay)))
		r.Mount("/admin", newAdmin(limiter, svc, log).Routes())
	})

	srv := httpserver.New(httpCfg,
		httpserver.WithLogger(log),
		httpserver.WithStopHook(func(context.Context, *slog.Logger) error {
			svc.Close()
			return nil
		}),
		httpserver.WithStopHook(func(context.Context, *slog.Logger) error {
			limiter.Close()
			return nil
		}),
	)

	if err := srv.Run(ctx, r); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func clientIPFromContext(ctx context.Context) (slog.Attr, bool) {
	if ip := clientip.GetIPFromContext(ctx); ip != "" {
		return slog.String("client_ip", ip), true
	}
	return slog.Attr{}, false
}
