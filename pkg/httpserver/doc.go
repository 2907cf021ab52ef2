// Package httpserver runs the gateway HTTP server with graceful shutdown,
// lifecycle hooks and health probes.
//
// Run binds the listener, runs the start hooks and serves until the context
// is cancelled, SIGINT or SIGTERM arrives, or Shutdown is called. Shutdown
// drains in-flight requests within the shutdown timeout and then runs the
// stop hooks in reverse order, which is where background tasks such as the
// cache cleanup and the rate limiter eviction are stopped.
//
// # Usage
//
//	r := chi.NewRouter()
//	r.Get("/healthz", httpserver.HealthCheckHandler(log, redis.Healthcheck(client)))
//
//	srv := httpserver.New(cfg,
//		httpserver.WithLogger(log),
//		httpserver.WithStopHook(func(context.Context, *slog.Logger) error {
//			cacheService.Close()
//			return nil
//		}),
//	)
//	if err := srv.Run(ctx, r); err != nil {
//		log.Error("server failed", logger.Error(err))
//	}
//
// Errors are wrapped with ErrStart and ErrShutdown so they can be inspected
// with errors.Is.
package httpserver
