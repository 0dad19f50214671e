package server

import (
	"net/http"
	"net/url"
	"strings"
)

// normalizeOrigin reduces an origin to lowercase scheme://host form so
// comparisons ignore case and trailing paths.
func normalizeOrigin(raw string) string {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return ""
	}
	return strings.ToLower(parsed.Scheme + "://" + parsed.Host)
}

// buildOriginSet normalizes the configured allowlist. An empty list or a
// "*" entry allows any origin.
func buildOriginSet(origins []string) (map[string]struct{}, bool) {
	set := make(map[string]struct{}, len(origins))
	for _, origin := range origins {
		if strings.TrimSpace(origin) == "*" {
			return nil, true
		}
		if normalized := normalizeOrigin(origin); normalized != "" {
			set[normalized] = struct{}{}
		}
	}
	return set, len(set) == 0
}

// checkOrigin authorizes upgrade requests. Requests without an Origin
// header come from non-browser clients and are accepted; browser origins
// must match the allowlist.
func (a *App) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || a.allowAnyOrigin {
		return true
	}
	normalized := normalizeOrigin(origin)
	if normalized == "" {
		return false
	}
	_, ok := a.allowedOrigins[normalized]
	return ok
}
