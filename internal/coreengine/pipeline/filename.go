package pipeline

import (
	"strings"
	"unicode"
)

const artifactExtension = ".jpg"

// DeriveFilename maps a prompt to its object-store key: trimmed, whitespace
// runes replaced by underscores, periods removed, ".jpg" appended. Equal
// prompts map to the same key.
func DeriveFilename(prompt string) string {
	stem := strings.Map(func(r rune) rune {
		switch {
		case r == '.':
			return -1
		case unicode.IsSpace(r):
			return '_'
		default:
			return r
		}
	}, strings.TrimSpace(prompt))
	return stem + artifactExtension
}
