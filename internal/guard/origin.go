// Package guard holds the admission-control checks that run before any
// state-mutating request is persisted: origin allow-listing and
// fixed-window rate limiting.
package guard

import (
	"net/url"
	"slices"
)

// IsOriginAllowed accepts a request when the site's whitelist is empty, or
// when the Origin header (Referer as fallback) parses to an origin that
// exactly matches a whitelist entry. No subdomain wildcards. Two
// unparsable headers mean deny.
func IsOriginAllowed(originHeader, refererHeader string, whitelist []string) bool {
	if len(whitelist) == 0 {
		return true
	}

	for _, raw := range []string{originHeader, refererHeader} {
		if raw == "" {
			continue
		}
		origin, ok := parseOrigin(raw)
		if !ok {
			continue
		}
		if slices.Contains(whitelist, origin) {
			return true
		}
	}
	return false
}

func parseOrigin(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	return u.Scheme + "://" + u.Host, true
}
