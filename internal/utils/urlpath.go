package utils

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
)

// ErrMalformedURL is returned for strings that are not absolute http(s) URLs
var ErrMalformedURL = errors.New("malformed url")

// ParseDownloadURL parses rawURL and requires an absolute http or https URL with a host.
func ParseDownloadURL(rawURL string) (*url.URL, error) {
	trimmed := strings.TrimSpace(rawURL)
	if trimmed == "" {
		return nil, fmt.Errorf("%w: empty", ErrMalformedURL)
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedURL, err)
	}

	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("%w: unsupported scheme %q", ErrMalformedURL, parsed.Scheme)
	}
	if parsed.Host == "" {
		return nil, fmt.Errorf("%w: missing host", ErrMalformedURL)
	}

	return parsed, nil
}

// URLExtension returns the lower-cased extension of the URL path without the dot.
// Example: https://example.com/a/Report.PDF?x=1 -> pdf
func URLExtension(u *url.URL) string {
	if u == nil {
		return ""
	}
	ext := path.Ext(u.Path)
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// ContentTypeForURL maps the URL's file extension to the MIME type a
// download of it is expected to carry. Unknown extensions map to "".
func ContentTypeForURL(u *url.URL) string {
	switch URLExtension(u) {
	case "pdf":
		return "application/pdf"
	case "jpg", "jpeg":
		return "image/jpeg"
	case "png":
		return "image/png"
	default:
		return ""
	}
}

// ShouldIntercept reports whether a navigation to rawURL should become a
// download instead, by substring match against patterns.
func ShouldIntercept(rawURL string, patterns []string) bool {
	if rawURL == "" {
		return false
	}
	for _, p := range patterns {
		if p != "" && strings.Contains(rawURL, p) {
			return true
		}
	}
	return false
}
