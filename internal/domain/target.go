package domain

import (
	"net/url"
	"strings"
)

// Target represents the canonical runtime truth of one outreach candidate.
//
// It is NOT tied to any input format (JSON, CSV, YAML) or to the remote
// service's presentation layer. All loader inputs are merged into this
// structure.
//
// A Target is considered uniquely identified by its ID.
type Target struct {
	// ID is the canonical unique identifier, derived deterministically
	// from the normalized URL (last path segment).
	ID string

	// URL is the normalized target URL: query string stripped,
	// trailing slash guaranteed.
	URL string

	// Descriptive metadata. Optional, carried into the ledger verbatim.
	DisplayName string
	JobTitle    string
	Company     string
}

// NormalizeURL strips the query string and fragment from a target URL and
// guarantees a trailing slash, so that the same profile always yields the
// same canonical form.
//
// Example:
//
//	https://example.com/in/johndoe?trackingId=abc -> https://example.com/in/johndoe/
func NormalizeURL(raw string) string {
	if raw == "" {
		return ""
	}

	clean := raw
	if idx := strings.IndexAny(clean, "?#"); idx != -1 {
		clean = clean[:idx]
	}
	if !strings.HasSuffix(clean, "/") {
		clean += "/"
	}
	return clean
}

// TargetIDFromURL derives the stable target identifier from a normalized
// URL: the last non-empty path segment. Returns "" when the URL has no
// usable path.
func TargetIDFromURL(normalized string) string {
	u, err := url.Parse(normalized)
	if err != nil {
		return ""
	}
	path := strings.Trim(u.Path, "/")
	if path == "" {
		return ""
	}
	segments := strings.Split(path, "/")
	return segments[len(segments)-1]
}

// ValidTargetURL reports whether raw looks like a usable absolute http(s)
// URL with a non-empty path. Loader inputs that fail this check are
// dropped before normalization.
func ValidTargetURL(raw string) bool {
	if raw == "" {
		return false
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	if u.Host == "" {
		return false
	}
	return strings.Trim(u.Path, "/") != ""
}
