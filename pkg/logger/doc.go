// Package logger builds *slog.Logger instances with functional options,
// helper attribute constructors and transparent injection of values stored
// in context.Context.
//
// New creates a text or JSON slog handler. ContextExtractor callbacks
// registered with WithContextExtractors run for every record, so request IDs
// and client addresses stored on the context end up in the output.
//
// # Usage
//
//	log := logger.New(
//		logger.WithEnvironment(os.Getenv("APP_ENV"), "gateway"),
//		logger.WithLevelName(os.Getenv("LOG_LEVEL")),
//	)
//	logger.SetAsDefault(log)
//
//	log.Warn("remote cache tier unavailable",
//		logger.Key("tmdb:movie:550"),
//		logger.Tier("remote"),
//		logger.Error(err),
//	)
//
// Attribute helpers keep key naming consistent between the rate limiter, the
// cache and the HTTP layer. Error and Errors return an empty attribute for nil
// errors, so they can be passed unconditionally.
//
// Discard returns a logger that drops everything; packages fall back to it
// when no logger is injected.
package logger
