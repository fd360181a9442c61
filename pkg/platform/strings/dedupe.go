// Package strings provides order-preserving helpers for alias and tag lists.
package strings

import (
	"slices"
	"strings"
)

// Normalizer maps a raw value to its canonical form. An empty result drops the value.
type Normalizer func(string) string

// Trim is the Normalizer used for usernames and display names.
func Trim(v string) string { return strings.TrimSpace(v) }

// TrimLower is the Normalizer used for emails.
func TrimLower(v string) string { return strings.ToLower(strings.TrimSpace(v)) }

// DedupeAndTrim removes duplicates and blank entries, trimming each element.
// Order of first occurrence is preserved.
//
//	DedupeAndTrim([]string{"  foo ", "bar", "foo", "", "  "}) // []string{"foo", "bar"}
func DedupeAndTrim(values []string) []string {
	return dedupe(values, Trim)
}

// DedupeAndTrimLower is like DedupeAndTrim but also lowercases each element.
func DedupeAndTrimLower(values []string) []string {
	return dedupe(values, TrimLower)
}

func dedupe(values []string, norm Normalizer) []string {
	if len(values) == 0 {
		return values
	}
	return Merge(nil, values, norm)
}

// Merge appends the normalized additions to base, skipping blanks and values
// already present. base is copied, never modified, and is assumed to be
// normalized already. The result is never nil.
func Merge(base, additions []string, norm Normalizer) []string {
	result := make([]string, 0, len(base)+len(additions))
	seen := make(map[string]struct{}, len(base)+len(additions))
	for _, v := range base {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	for _, v := range additions {
		n := norm(v)
		if n == "" {
			continue
		}
		if _, ok := seen[n]; ok {
			continue
		}
		seen[n] = struct{}{}
		result = append(result, n)
	}
	return result
}

// ContainsNormalized reports whether norm(v) is in values.
func ContainsNormalized(values []string, v string, norm Normalizer) bool {
	n := norm(v)
	if n == "" {
		return false
	}
	return slices.Contains(values, n)
}
