package middleware

import (
	"net"
	"net/http"
	"strings"
)

// RealIP rewrites r.RemoteAddr from the X-Real-IP or X-Forwarded-For header
// when the connection peer is one of the trusted proxy networks. Everyone
// else keeps the socket address, so a direct client cannot choose the
// identity the rate limiter and request log see. The trusted set is parsed
// and validated by the config package at startup.
func RealIP(trusted []*net.IPNet) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if trustedPeer(r.RemoteAddr, trusted) {
				if client := forwardedClient(r.Header); client != nil {
					r.RemoteAddr = client.String()
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// forwardedClient reads the client IP a proxy reports: X-Real-IP wins, then
// the first (leftmost) hop of X-Forwarded-For. Unparseable values are
// ignored rather than propagated into logs.
func forwardedClient(h http.Header) net.IP {
	if v := strings.TrimSpace(h.Get("X-Real-IP")); v != "" {
		return net.ParseIP(v)
	}
	first, _, _ := strings.Cut(h.Get("X-Forwarded-For"), ",")
	if first = strings.TrimSpace(first); first != "" {
		return net.ParseIP(first)
	}
	return nil
}

// trustedPeer reports whether addr ("host:port" or bare host) falls inside
// any of the trusted networks.
func trustedPeer(addr string, trusted []*net.IPNet) bool {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		host = addr
	}
	ip := net.ParseIP(host)
	if ip == nil {
		return false
	}
	for _, network := range trusted {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}
