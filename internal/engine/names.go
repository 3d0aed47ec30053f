package engine

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"golang.org/x/text/unicode/norm"
)

// NormalizeName trims and NFC-normalizes a display name, then enforces
// 1..maxLen runes with no control characters.
func NormalizeName(name string, maxLen int) (string, error) {
	if !utf8.ValidString(name) {
		return "", ErrInvalidName
	}
	name = strings.TrimSpace(norm.NFC.String(name))
	n := utf8.RuneCountInString(name)
	if n == 0 || (maxLen > 0 && n > maxLen) {
		return "", ErrInvalidName
	}
	if strings.IndexFunc(name, unicode.IsControl) >= 0 {
		return "", ErrInvalidName
	}
	return name, nil
}
