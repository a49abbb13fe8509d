// Package email holds the account email rules: comparison is
// case-insensitive and surrounding whitespace is never significant.
package email

import (
	"strings"
	"unicode"
)

// Normalize returns the canonical lookup form of an address.
func Normalize(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}

// LooksValid is a structural check only: one @, non-empty local part and a
// dotted domain.
func LooksValid(address string) bool {
	local, domain, ok := strings.Cut(strings.TrimSpace(address), "@")
	if !ok || local == "" || strings.Contains(domain, "@") {
		return false
	}
	dot := strings.LastIndexByte(domain, '.')
	return dot > 0 && dot < len(domain)-1
}

// DeriveName guesses a display name from the local part, for profiles
// backfilled on accounts that never supplied one.
func DeriveName(address string) (first, last string) {
	localPart := address
	if at := strings.IndexByte(address, '@'); at > 0 {
		localPart = address[:at]
	}

	parts := strings.FieldsFunc(localPart, func(r rune) bool {
		return r == '.' || r == '_' || r == '-' || r == '+'
	})
	if len(parts) == 0 {
		return "Participant", ""
	}

	first = capitalize(parts[0])
	if len(parts) > 1 {
		last = capitalize(parts[len(parts)-1])
	}
	return first, last
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	runes := []rune(s)
	runes[0] = unicode.ToUpper(runes[0])
	return string(runes)
}
