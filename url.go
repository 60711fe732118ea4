package fetchkit

import "strings"

// BuildURL joins a base URL and an endpoint with exactly one separating
// slash. Absolute endpoints (http:// or https://) pass through unchanged.
func BuildURL(base, endpoint string) string {
	if strings.HasPrefix(endpoint, "http://") || strings.HasPrefix(endpoint, "https://") {
		return endpoint
	}
	if base == "" {
		return endpoint
	}
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(endpoint, "/")
}
