package urlutil

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// ErrMalformed reports a link that cannot be turned into a crawlable URL.
var ErrMalformed = errors.New("malformed url")

// Normalize resolves href against base and returns a canonical absolute URL:
// lowercase scheme and host, default ports stripped, fragment dropped, and a
// bare "/" path collapsed to empty. Query strings are preserved verbatim so
// query-driven pages stay distinct. Normalizing an already-normalized URL is
// a no-op.
func Normalize(href string, base *url.URL) (*url.URL, error) {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return nil, fmt.Errorf("%w: empty reference", ErrMalformed)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if parsed.Scheme == "" && base != nil {
		parsed = base.ResolveReference(parsed)
	}

	if !isSupportedScheme(parsed.Scheme) {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformed, parsed.Scheme)
	}

	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformed)
	}

	canonicalize(parsed)

	return parsed, nil
}

// ParseStart validates and canonicalizes the crawl's start URL.
func ParseStart(raw string) (*url.URL, error) {
	parsed, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing scheme or host", ErrMalformed)
	}

	if !isSupportedScheme(strings.ToLower(parsed.Scheme)) {
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformed, parsed.Scheme)
	}

	canonicalize(parsed)

	return parsed, nil
}

func canonicalize(u *url.URL) {
	u.Scheme = strings.ToLower(u.Scheme)
	u.Fragment = ""
	u.RawFragment = ""

	host := strings.ToLower(u.Hostname())
	port := u.Port()

	switch {
	case u.Scheme == "http" && port == "80":
		port = ""
	case u.Scheme == "https" && port == "443":
		port = ""
	}

	if port == "" {
		u.Host = host
	} else {
		u.Host = net.JoinHostPort(host, port)
	}

	if u.Path == "/" {
		u.Path = ""
		u.RawPath = ""
	}

	if u.RawQuery == "" {
		u.ForceQuery = false
	}
}

// Host returns the comparison host for scope decisions: lowercased, default
// port ignored, and a leading "www." removed so www and bare hosts count as
// one site.
func Host(u *url.URL) string {
	return strings.TrimPrefix(strings.ToLower(u.Hostname()), "www.")
}

// SameSite reports whether u belongs to the crawl's site. The comparison is
// scheme-insensitive; only hosts are compared.
func SameSite(siteHost string, u *url.URL) bool {
	return Host(u) == strings.TrimPrefix(strings.ToLower(siteHost), "www.")
}

// Skippable reports whether href is a non-navigational reference that should
// never reach the frontier.
func Skippable(href string) bool {
	trimmed := strings.TrimSpace(href)
	if trimmed == "" || strings.HasPrefix(trimmed, "#") {
		return true
	}

	lower := strings.ToLower(trimmed)
	for _, prefix := range []string{"javascript:", "mailto:", "tel:", "data:"} {
		if strings.HasPrefix(lower, prefix) {
			return true
		}
	}

	return false
}

func isSupportedScheme(scheme string) bool {
	return scheme == "http" || scheme == "https"
}
