package clientip

import (
	"net"
	"net/http"
	"net/netip"
	"strings"
)

// Unknown is returned when no valid client address can be found.
const Unknown = "unknown"

// proxyHeaders are consulted after X-Forwarded-For, in order.
var proxyHeaders = []string{"X-Real-IP", "CF-Connecting-IP", "X-Client-IP"}

// GetIP returns the client address of r: the first valid X-Forwarded-For
// entry, then X-Real-IP, CF-Connecting-IP, X-Client-IP and finally
// RemoteAddr. IPv4-mapped IPv6 addresses are unmapped so one client always
// yields the same rate limit key. Returns Unknown when nothing parses.
func GetIP(r *http.Request) string {
	for entry := range strings.SplitSeq(r.Header.Get("X-Forwarded-For"), ",") {
		if ip, ok := normalize(entry); ok {
			return ip
		}
	}

	for _, h := range proxyHeaders {
		if ip, ok := normalize(r.Header.Get(h)); ok {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if ip, ok := normalize(host); ok {
		return ip
	}
	return Unknown
}

func normalize(s string) (string, bool) {
	addr, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return "", false
	}
	return addr.Unmap().WithZone("").String(), true
}
