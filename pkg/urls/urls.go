// Package urls provides utility functions for working with URLs.
package urls

import (
	"net/url"
	"strings"
)

const (
	schemeHTTP  = "http"
	schemeHTTPS = "https"
)

// IsURLValid checks if the given URL is an absolute http(s) URL.
func IsURLValid(raw string) bool {
	u, err := url.Parse(raw)

	return err == nil && u.Scheme != "" && u.Host != "" && (u.Scheme == schemeHTTP || u.Scheme == schemeHTTPS)
}

// FixURL prepends the https scheme to a URL that has none.
// Example: youtu.be/abc => https://youtu.be/abc
func FixURL(raw string) string {
	if raw == "" || strings.Contains(raw, "://") {
		return raw
	}

	return schemeHTTPS + "://" + raw
}

// Normalize trims spaces, fixes the scheme and returns the URL in string format.
// ok is false when the result is not a usable http(s) URL.
func Normalize(raw string) (string, bool) {
	raw = FixURL(strings.TrimSpace(raw))

	u, err := url.Parse(raw)
	if err != nil {
		return raw, false
	}

	normalized := u.String()

	return normalized, IsURLValid(normalized)
}
