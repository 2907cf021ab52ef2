package requestid

import (
	"net/http"
	"regexp"

	"github.com/google/uuid"
)

// Header is the header read from clients and echoed on responses.
const Header = "X-Request-ID"

const maxIDLength = 128

var validID = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

type options struct {
	header   string
	generate func() string
}

// Option configures Middleware.
type Option func(*options)

// WithHeader overrides the request and response header name.
func WithHeader(name string) Option {
	return func(o *options) {
		if name != "" {
			o.header = name
		}
	}
}

// WithGenerator replaces the ID generator. Intended for tests.
func WithGenerator(fn func() string) Option {
	return func(o *options) {
		if fn != nil {
			o.generate = fn
		}
	}
}

// NewID returns a time-ordered UUIDv7 string, falling back to v4 if the
// clock source fails.
func NewID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}

// Middleware attaches a request ID to every request. A client supplied ID is
// reused when it is short and made of [a-zA-Z0-9_-], otherwise a new one is
// generated.
func Middleware(opts ...Option) func(http.Handler) http.Handler {
	o := options{header: Header, generate: NewID}
	for _, opt := range opts {
		opt(&o)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := r.Header.Get(o.header)
			if !Valid(id) {
				id = o.generate()
			}
			w.Header().Set(o.header, id)
			next.ServeHTTP(w, r.WithContext(WithContext(r.Context(), id)))
		})
	}
}

// Valid reports whether id may be propagated as is.
func Valid(id string) bool {
	return id != "" && len(id) <= maxIDLength && validID.MatchString(id)
}
