package httpcache

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// fingerprint returns a 16-character hex digest of data. xxhash is a
// content fingerprint here, not a security boundary.
func fingerprint(data []byte) string {
	return fmt.Sprintf("%016x", xxhash.Sum64(data))
}

// ETagFor returns the entity tag for a response body, quoted per the
// HTTP convention.
func ETagFor(body []byte) string {
	return `"` + fingerprint(body) + `"`
}

// CacheKey derives the cache key for a request: lowercase method, path
// and query, the values of any vary-by request headers, and the first
// 8 hex characters of a hash of the Authorization header when present.
// Hashing keeps per-user partitioning without storing the credential.
// The assembled key is sanitized to alphanumerics and underscores.
func CacheKey(r *http.Request, varyHeaders []string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(r.Method))
	b.WriteString(":")
	b.WriteString(r.URL.Path)
	if query := r.URL.RawQuery; query != "" {
		b.WriteString("?")
		b.WriteString(query)
	}

	for _, name := range varyHeaders {
		// Authorization is always folded in below, as a hash.
		if strings.EqualFold(name, "Authorization") {
			continue
		}
		if value := r.Header.Get(name); value != "" {
			b.WriteString(":")
			b.WriteString(strings.ToLower(name))
			b.WriteString("=")
			b.WriteString(value)
		}
	}

	if auth := r.Header.Get("Authorization"); auth != "" {
		b.WriteString(":auth=")
		b.WriteString(fingerprint([]byte(auth))[:8])
	}

	return sanitizeKey(b.String())
}

// sanitizeKey replaces every byte outside [a-zA-Z0-9] with an
// underscore so keys are safe for any backend.
func sanitizeKey(s string) string {
	out := []byte(s)
	for i, c := range out {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		default:
			out[i] = '_'
		}
	}
	return string(out)
}

// sanitizePattern sanitizes an invalidation pattern the same way as
// keys while preserving "*" wildcards.
func sanitizePattern(s string) string {
	segments := strings.Split(s, "*")
	for i, segment := range segments {
		segments[i] = sanitizeKey(segment)
	}
	return strings.Join(segments, "*")
}
