package identity

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP picks the caller's address from proxy headers, falling back to
// the socket peer when the daemon fronts traffic directly.
func ClientIP(r *http.Request) string {
	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		first, _, _ := strings.Cut(forwarded, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if realIP := r.Header.Get("X-Real-Ip"); realIP != "" {
		return realIP
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// TruncateOrHashIP zeroes the last octet of an IPv4 address; anything else
// (IPv6, unparsable) is reduced to a salted hash. Nothing reversible to a
// full address is ever stored.
func TruncateOrHashIP(ip, siteSalt string) string {
	if ip == "" {
		return ""
	}
	if parsed := net.ParseIP(ip); parsed != nil {
		if v4 := parsed.To4(); v4 != nil {
			masked := make(net.IP, len(v4))
			copy(masked, v4)
			masked[3] = 0
			return masked.String()
		}
	}
	return SHA256Hex(ip + ":" + siteSalt)
}
