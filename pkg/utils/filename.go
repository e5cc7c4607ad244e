package utils

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const maxFilenameLength = 200

// SanitizeFilename makes name safe to use as a single path element on
// Windows, macOS and Linux.
func SanitizeFilename(name string) string {
	result := norm.NFC.String(name)

	result = strings.Map(func(r rune) rune {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			return '_'
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, result)

	// Trim spaces and dots from ends
	result = strings.TrimSpace(result)
	result = strings.Trim(result, ".")
	result = strings.TrimSpace(result)

	if len(result) > maxFilenameLength {
		cut := maxFilenameLength
		for cut > 0 && !isRuneStart(result[cut]) {
			cut--
		}
		result = strings.TrimSpace(result[:cut])
	}

	if result == "" {
		return "untitled"
	}
	return result
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
