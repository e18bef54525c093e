// Package httputil holds small request helpers shared by the API and the
// tracking stream.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP resolves the client address for logging and per-IP limits.
// With trustProxy set, forwarding headers are consulted first; leave it
// unset unless a trusted reverse proxy fronts the server, since both
// headers are client-forgeable.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if ip := forwardedIP(r); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// forwardedIP reads X-Forwarded-For (leftmost entry, the original client)
// and falls back to X-Real-IP.
func forwardedIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.IndexByte(xff, ','); i > 0 {
			xff = xff[:i]
		}
		if ip := strings.TrimSpace(xff); ip != "" {
			return ip
		}
	}
	return strings.TrimSpace(r.Header.Get("X-Real-IP"))
}
