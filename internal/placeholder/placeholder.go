// Package placeholder handles the canonical {name} template syntax shared by
// every specification format.
package placeholder

import (
	"regexp"
	"strings"
)

var (
	canonicalRe = regexp.MustCompile(`\{([A-Za-z_][A-Za-z0-9_.\-]*)\}`)
	postmanRe   = regexp.MustCompile(`\{\{\s*([A-Za-z_$][A-Za-z0-9_.\-]*)\s*\}\}`)
)

// Normalize rewrites Postman {{var}} references and :param path segments into {var}
func Normalize(s string) string {
	s = postmanRe.ReplaceAllString(s, "{$1}")
	if !strings.Contains(s, ":") {
		return s
	}
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		if len(seg) > 1 && seg[0] == ':' {
			segments[i] = "{" + seg[1:] + "}"
		}
	}
	return strings.Join(segments, "/")
}

// Names returns the placeholder names in order of first appearance
func Names(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range canonicalRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// PostmanNames returns the {{var}} references of a raw Postman document in order of first appearance
func PostmanNames(s string) []string {
	var names []string
	seen := map[string]bool{}
	for _, m := range postmanRe.FindAllStringSubmatch(s, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			names = append(names, m[1])
		}
	}
	return names
}

// Has reports whether s contains at least one placeholder
func Has(s string) bool {
	return canonicalRe.MatchString(s)
}

// Expand substitutes placeholders using lookup and returns the names it could not resolve
func Expand(s string, lookup func(name string) (string, bool)) (string, []string) {
	var missing []string
	out := canonicalRe.ReplaceAllStringFunc(s, func(m string) string {
		name := m[1 : len(m)-1]
		if v, ok := lookup(name); ok {
			return v
		}
		missing = append(missing, name)
		return m
	})
	return out, missing
}
