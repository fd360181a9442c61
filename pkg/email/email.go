// Package email validates and normalizes email addresses.
package email

import (
	"regexp"
	"strings"
	"unicode"
)

// pattern is deliberately loose: one @, no whitespace, a dot in the domain.
var pattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// IsValid reports whether raw, after trimming, looks like an email address.
func IsValid(raw string) bool {
	return pattern.MatchString(strings.TrimSpace(raw))
}

// Normalize trims and lowercases an address.
func Normalize(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// DeriveDisplayName builds "First Last" from the local part of an address.
// Used when GitHub exposes an email but no profile name.
func DeriveDisplayName(address string) string {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return ""
	}
	if len(parts) == 1 {
		return capitalize(parts[0])
	}
	return capitalize(parts[0]) + " " + capitalize(parts[len(parts)-1])
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
