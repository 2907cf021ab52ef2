package httpserver

import "time"

// Config holds the server settings read from the environment.
// Zero values fall back to the defaults below.
type Config struct {
	Addr            string        `env:"HTTP_ADDR" envDefault:":8080"`          // Listen address
	ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`    // Budget for reading a whole request
	WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`   // Budget for writing a response; must exceed the rate limit max delay
	IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`   // Keep-alive idle limit
	ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"5s"` // Drain budget, shared with the stop hooks
}

const (
	defaultAddr            = ":8080"
	defaultShutdownTimeout = 5 * time.Second
)

func (c Config) withDefaults() Config {
	if c.Addr == "" {
		c.Addr = defaultAddr
	}
	if c.ShutdownTimeout <= 0 {
		c.ShutdownTimeout = defaultShutdownTimeout
	}
	return c
}
