package server

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// parseID parses a wire identifier into a numeric database ID.
func parseID(raw string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid identifier %q", raw)
	}
	return id, nil
}

// bearerToken extracts the access token from the Authorization header,
// falling back to the access_token query parameter for clients that
// cannot set headers during the WebSocket handshake.
func bearerToken(r *http.Request) string {
	if header := r.Header.Get("Authorization"); header != "" {
		if token, ok := strings.CutPrefix(header, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
		return ""
	}
	return r.URL.Query().Get("access_token")
}
