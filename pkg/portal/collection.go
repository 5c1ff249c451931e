package portal

import (
	"fmt"
	"strings"
	"unicode"
)

// ValidateCollection checks a collection identifier before it is joined onto the API base URL.
//
// Rules:
// - Non-empty string
// - Maximum length of 250 characters
// - No control or whitespace characters
// - No leading or trailing slash, no ".." segment
func ValidateCollection(name string) error {
	if name == "" {
		return ErrInvalidCollection
	}

	if len(name) > 250 {
		return fmt.Errorf("%w: name too long (max 250 characters)", ErrInvalidCollection)
	}

	for _, r := range name {
		if unicode.IsControl(r) || unicode.IsSpace(r) {
			return fmt.Errorf("%w: name contains control or space character", ErrInvalidCollection)
		}
	}

	if strings.HasPrefix(name, "/") || strings.HasSuffix(name, "/") {
		return fmt.Errorf("%w: name has leading or trailing slash", ErrInvalidCollection)
	}

	for _, seg := range strings.Split(name, "/") {
		if seg == ".." || seg == "" {
			return fmt.Errorf("%w: bad path segment", ErrInvalidCollection)
		}
	}

	return nil
}

// RoutePattern builds API routes from a fixed prefix.
// Example: NewRoutePattern("api").Build("token") -> "api/token/"
type RoutePattern struct {
	prefix string
}

// NewRoutePattern creates a pattern rooted at prefix.
func NewRoutePattern(prefix string) *RoutePattern {
	return &RoutePattern{prefix: strings.Trim(prefix, "/")}
}

// Build joins the parts under the prefix and appends the trailing slash the API expects.
func (rp *RoutePattern) Build(parts ...string) string {
	segs := make([]string, 0, len(parts)+1)
	if rp.prefix != "" {
		segs = append(segs, rp.prefix)
	}
	for _, p := range parts {
		segs = append(segs, strings.Trim(p, "/"))
	}
	return "/" + strings.Join(segs, "/") + "/"
}
