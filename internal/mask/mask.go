// Package mask hides credential values in anything rendered for humans.
package mask

import (
	"net/url"
	"strings"
)

// Token replaces every masked value
const Token = "***"

var sensitiveMarkers = []string{"auth", "secret", "password"}

// IsSensitive reports whether a variable or field name looks credential-bearing
func IsSensitive(name string) bool {
	lower := strings.ToLower(name)
	for _, m := range sensitiveMarkers {
		if strings.Contains(lower, m) {
			return true
		}
	}
	return false
}

// Value returns Token for sensitive names and the value otherwise
func Value(name, value string) string {
	if IsSensitive(name) {
		return Token
	}
	return value
}

// Map returns a copy of vars with sensitive values masked
func Map(vars map[string]string) map[string]string {
	out := make(map[string]string, len(vars))
	for k, v := range vars {
		out[k] = Value(k, v)
	}
	return out
}

// Headers masks sensitive header names plus any name listed in extra
func Headers(headers map[string]string, extra ...string) map[string]string {
	if headers == nil {
		return nil
	}
	out := make(map[string]string, len(headers))
	for k, v := range headers {
		if IsSensitive(k) || containsFold(extra, k) {
			out[k] = Token
			continue
		}
		out[k] = v
	}
	return out
}

// URL masks query parameters that are sensitive or listed in extra
func URL(raw string, extra ...string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for k := range q {
		if IsSensitive(k) || containsFold(extra, k) {
			q.Set(k, Token)
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

// Body walks a decoded JSON value and masks fields with sensitive names
func Body(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if IsSensitive(k) {
				out[k] = Token
				continue
			}
			out[k] = Body(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = Body(val)
		}
		return out
	default:
		return v
	}
}

// Text replaces every occurrence of the sensitive values in vars within s
func Text(s string, vars map[string]string) string {
	for k, v := range vars {
		if v == "" || !IsSensitive(k) {
			continue
		}
		s = strings.ReplaceAll(s, v, Token)
	}
	return s
}

func containsFold(list []string, s string) bool {
	for _, item := range list {
		if strings.EqualFold(item, s) {
			return true
		}
	}
	return false
}
