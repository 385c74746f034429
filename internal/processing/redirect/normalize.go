package redirect

import (
	"net"
	"net/url"
	"strings"
)

// RootKey is the key stored for a link served at the bare domain.
const RootKey = "_root"

// Normalize turns a raw host, path and query into the lookup tuple. Aliases
// map local or staging hosts (with or without port) to a canonical domain.
func Normalize(host, path, rawQuery string, aliases map[string]string) Normalized {
	return Normalized{
		Domain:  normalizeHost(host, aliases),
		Key:     firstSegment(decodePath(path)),
		FullKey: fullKey(decodePath(path)),
		Query:   parseQuery(rawQuery),
	}
}

func normalizeHost(host string, aliases map[string]string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	host = strings.TrimSuffix(host, ".")
	host = strings.TrimPrefix(host, "www.")

	if canonical, ok := aliases[host]; ok {
		return canonical
	}

	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	if canonical, ok := aliases[host]; ok {
		return canonical
	}
	return host
}

func decodePath(path string) string {
	trimmed := strings.Trim(path, "/")
	decoded, err := url.PathUnescape(trimmed)
	if err != nil {
		return trimmed
	}
	return decoded
}

func firstSegment(decoded string) string {
	if decoded == "" {
		return RootKey
	}
	if i := strings.IndexByte(decoded, '/'); i >= 0 {
		return decoded[:i]
	}
	return decoded
}

func fullKey(decoded string) string {
	if decoded == "" {
		return RootKey
	}
	return decoded
}

// parseQuery keeps every well-formed pair and drops the rest.
func parseQuery(rawQuery string) url.Values {
	values, _ := url.ParseQuery(rawQuery)
	if values == nil {
		values = url.Values{}
	}
	return values
}
