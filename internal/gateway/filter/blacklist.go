// Package filter holds the gateway's ordered verification stages. Each
// stage is an independent httpx.Middleware; the app wires them so that
// blacklist and auth always run before sanitation and logging.
package filter

import (
	"log/slog"
	"net"
	"net/http"
	"strings"

	"github.com/noteloom/noteloom/pkg/httpx"
)

// Blacklist rejects requests from listed client addresses before anything
// else sees them. Entries are single IPs or CIDR ranges.
type Blacklist struct {
	ips  map[string]struct{}
	nets []*net.IPNet
}

// NewBlacklist parses the entries; malformed ones are skipped and logged.
func NewBlacklist(entries []string, logger *slog.Logger) *Blacklist {
	b := &Blacklist{ips: make(map[string]struct{})}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if strings.Contains(entry, "/") {
			_, ipnet, err := net.ParseCIDR(entry)
			if err != nil {
				logger.Warn("skipping malformed blacklist entry", "entry", entry)
				continue
			}
			b.nets = append(b.nets, ipnet)
			continue
		}
		if net.ParseIP(entry) == nil {
			logger.Warn("skipping malformed blacklist entry", "entry", entry)
			continue
		}
		b.ips[entry] = struct{}{}
	}
	return b
}

// Blocked reports whether the address is listed.
func (b *Blacklist) Blocked(addr string) bool {
	if _, ok := b.ips[addr]; ok {
		return true
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range b.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// Middleware short-circuits blocked callers with a bare 403. The
// decision uses the socket peer only: forwarding headers are
// client-supplied and an ACL must not let the caller pick which address
// gets checked.
func (b *Blacklist) Middleware() httpx.Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if b.Blocked(peerIP(r)) {
				http.Error(w, "forbidden", http.StatusForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// peerIP is the transport-level peer address, header-proof.
func peerIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// clientIP prefers the forwarding headers an upstream LB sets, falling
// back to the socket peer. Good enough for log attribution; never used
// for access control.
func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if i := strings.Index(xff, ","); i >= 0 {
			return strings.TrimSpace(xff[:i])
		}
		return strings.TrimSpace(xff)
	}
	if rip := r.Header.Get("X-Real-IP"); rip != "" {
		return strings.TrimSpace(rip)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
