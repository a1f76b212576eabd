// Package filter narrows a folder's item list the way a viewer's filter bar does.
// Everything downstream of a filter (visible paths, top anchors, restore
// decisions) works on the filtered list, so paths that are filtered out
// behave exactly like paths that are gone.
package filter

import (
	"path"
	"strings"

	"github.com/folio-media/folio/internal/models"
)

// Config holds filter configuration. The zero value keeps every item.
type Config struct {
	// Include patterns (glob-style) matched against the item name. Empty means include all.
	// Example: []string{"*.jpg", "*.heic"}
	Include []string `json:"include,omitempty"`

	// Exclude patterns (glob-style). Takes precedence over Include.
	Exclude []string `json:"exclude,omitempty"`

	// Search terms (case-insensitive substring match on the name).
	// An item must match ALL search terms.
	Search []string `json:"search,omitempty"`

	// PathInclude patterns match against the full item path.
	// Supports ** for any number of directories, e.g. "/photos/**/raw/*".
	PathInclude []string `json:"pathInclude,omitempty"`

	// Kinds keeps only items of these kinds ("image", "video", ...). Empty means all.
	Kinds []string `json:"kinds,omitempty"`

	// MinRating drops items rated below it. 0 disables the check.
	MinRating int `json:"minRating,omitempty"`
}

// Active reports whether any criterion is set.
func (c Config) Active() bool {
	return len(c.Include) > 0 || len(c.Exclude) > 0 || len(c.Search) > 0 ||
		len(c.PathInclude) > 0 || len(c.Kinds) > 0 || c.MinRating > 0
}

// Apply returns the items that pass c, in their original order.
// When no criterion is set the input slice is returned as is.
func Apply(items []models.Item, c Config) []models.Item {
	if !c.Active() {
		return items
	}
	out := make([]models.Item, 0, len(items))
	for _, it := range items {
		if Matches(it, c) {
			out = append(out, it)
		}
	}
	return out
}

// Matches reports whether a single item passes c.
func Matches(it models.Item, c Config) bool {
	if len(c.PathInclude) > 0 && !matchesAny(it.Path, c.PathInclude, matchPath) {
		return false
	}
	if len(c.Kinds) > 0 && !containsFold(c.Kinds, it.Kind) {
		return false
	}
	if c.MinRating > 0 && it.Rating < c.MinRating {
		return false
	}

	name := itemName(it)
	if matchesAny(name, c.Exclude, matchName) {
		return false
	}
	if len(c.Include) > 0 && !matchesAny(name, c.Include, matchName) {
		return false
	}

	lower := strings.ToLower(name)
	for _, term := range c.Search {
		if !strings.Contains(lower, strings.ToLower(term)) {
			return false
		}
	}
	return true
}

// itemName is the display name, falling back to the last path segment.
func itemName(it models.Item) string {
	if it.Name != "" {
		return it.Name
	}
	return path.Base(it.Path)
}

func matchesAny(s string, patterns []string, match func(s, pattern string) bool) bool {
	for _, p := range patterns {
		if match(s, p) {
			return true
		}
	}
	return false
}

// matchName is a case-insensitive glob match on a single name.
func matchName(name, pattern string) bool {
	ok, err := path.Match(strings.ToLower(pattern), strings.ToLower(name))
	return err == nil && ok
}

// matchPath matches a slash path against a pattern segment by segment.
// A "**" segment matches zero or more path segments.
func matchPath(p, pattern string) bool {
	return matchSegments(splitPath(p), splitPath(pattern))
}

func matchSegments(segs, pats []string) bool {
	for len(pats) > 0 {
		if pats[0] == "**" {
			rest := pats[1:]
			for i := 0; i <= len(segs); i++ {
				if matchSegments(segs[i:], rest) {
					return true
				}
			}
			return false
		}
		if len(segs) == 0 {
			return false
		}
		if ok, err := path.Match(pats[0], segs[0]); err != nil || !ok {
			return false
		}
		segs, pats = segs[1:], pats[1:]
	}
	return len(segs) == 0
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(v, s) {
			return true
		}
	}
	return false
}

// ParsePatternList parses a comma-separated list of patterns into a slice.
// Example: "*.jpg, *.png" -> []string{"*.jpg", "*.png"}
func ParsePatternList(patternStr string) []string {
	if patternStr == "" {
		return nil
	}
	parts := strings.Split(patternStr, ",")
	patterns := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			patterns = append(patterns, trimmed)
		}
	}
	return patterns
}
