// Package requestid tags every inbound request with a correlation ID.
//
// Middleware reuses a well-formed X-Request-ID header or generates a UUIDv7,
// stores it in the request context and echoes it on the response. LogAttr
// plugs into logger.WithContextExtractors so every record written while
// serving the request carries request_id:
//
//	log := logger.New(logger.WithContextExtractors(requestid.LogAttr))
//	r.Use(requestid.Middleware())
package requestid
