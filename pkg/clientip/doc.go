// Package clientip extracts the originating client's IP address from an
// *http.Request when the service runs behind one or more reverse proxies.
//
// The resolved address is the identity used by the inbound rate limit keys
// ("global:<ip>", "auth:<ip>", "route:<path>:<ip>"), so the resolution is
// deterministic and never returns an empty string.
//
// Headers are examined in descending priority until the first valid IP
// address is found:
//
//  1. X-Forwarded-For  – comma-separated list (the first valid IP is used)
//  2. X-Real-IP        – set by reverse proxies such as Nginx
//  3. CF-Connecting-IP – Cloudflare
//  4. X-Client-IP
//  5. RemoteAddr       – TCP peer address as a fallback
//
// When nothing yields a valid address GetIP returns Unknown.
//
// # Usage
//
//	router.Use(clientip.Middleware)
//
//	func handler(w http.ResponseWriter, r *http.Request) {
//		ip := clientip.GetIPFromContext(r.Context())
//	}
package clientip
