package utils

import (
	"net"
	"net/http"
)

// ClientIP extracts the caller's IP for rate limiting. chi's RealIP
// middleware has already folded X-Forwarded-For / X-Real-IP into RemoteAddr.
func ClientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
