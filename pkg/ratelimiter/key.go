package ratelimiter

import (
	"hash/fnv"
	"net/http"
	"strconv"
	"strings"

	"github.com/dmitrymomot/crmb/pkg/clientip"
)

// maxKeyLength is the maximum allowed length for a rate limit key
// to prevent excessively long storage keys.
const maxKeyLength = 64

// Key prefixes of the inbound key grammar. Quotas in Routes are matched
// against these prefixes.
const (
	PrefixGlobal = "global:"
	PrefixAuth   = "auth:"
	PrefixUser   = "user:"
	PrefixRoute  = "route:"
)

// KeyFunc extracts a rate limit key from the request.
// An empty key skips rate limiting for the request.
type KeyFunc func(r *http.Request) string

// Composite combines multiple key functions into one.
// Parts are joined with ":". When the result exceeds 64 characters everything
// after the first part is hashed with FNV-1a, so prefix-matched quotas keep
// resolving.
func Composite(keyFuncs ...KeyFunc) KeyFunc {
	return func(r *http.Request) string {
		parts := make([]string, 0, len(keyFuncs))
		for _, fn := range keyFuncs {
			if key := fn(r); key != "" {
				parts = append(parts, key)
			}
		}

		if len(parts) == 0 {
			return ""
		}

		combined := strings.Join(parts, ":")
		if len(combined) <= maxKeyLength {
			return combined
		}

		h := fnv.New64a()
		h.Write([]byte(strings.Join(parts[1:], ":")))
		// Base36 encoding for compact output (~13 chars)
		return parts[0] + ":" + strconv.FormatUint(h.Sum64(), 36)
	}
}

// IP returns the client IP stored by clientip.Middleware, falling back to
// extracting it from the request.
func IP(r *http.Request) string {
	if ip := clientip.GetIPFromContext(r.Context()); ip != "" {
		return ip
	}
	return clientip.GetIP(r)
}

// GlobalKey limits every client by IP: "global:<ip>".
func GlobalKey(r *http.Request) string {
	return PrefixGlobal + IP(r)
}

// AuthKey limits authentication attempts by IP: "auth:<ip>".
func AuthKey(r *http.Request) string {
	return PrefixAuth + IP(r)
}

// RouteKey limits each client per endpoint: "route:<path>:<ip>".
func RouteKey(r *http.Request) string {
	return PrefixRoute + r.URL.Path + ":" + IP(r)
}

// UserKey limits authenticated users per endpoint: "user:<id>:<path>".
// Requests without a user id yield an empty key and are not limited by it.
func UserKey(userID func(r *http.Request) string) KeyFunc {
	return func(r *http.Request) string {
		id := userID(r)
		if id == "" {
			return ""
		}
		return PrefixUser + id + ":" + r.URL.Path
	}
}
