package utils

import (
	"strings"
	"unicode"
)

// DigitsOnly strips every non-digit character.
func DigitsOnly(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// NormalizePhone converts Ukrainian numbers to the 380XXXXXXXXX form.
// It returns false when the input cannot be a valid number.
func NormalizePhone(s string) (string, bool) {
	d := DigitsOnly(s)
	switch {
	case len(d) == 12 && strings.HasPrefix(d, "380"):
		return d, true
	case len(d) == 10 && strings.HasPrefix(d, "0"):
		return "38" + d, true
	case len(d) == 9:
		return "380" + d, true
	}
	return "", false
}

// IsNumeric reports whether s is a non-empty string of ASCII digits.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// IsUkrainianName accepts Cyrillic letters, apostrophes, hyphens and spaces.
func IsUkrainianName(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	for _, r := range s {
		switch {
		case unicode.Is(unicode.Cyrillic, r):
		case r == '\'' || r == '’' || r == 'ʼ' || r == '-' || r == ' ':
		default:
			return false
		}
	}
	return true
}
