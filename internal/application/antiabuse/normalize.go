package antiabuse

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Normalize folds text for duplicate detection: NFKC, lowercase, emoji and
// pictographs removed, whitespace collapsed to single spaces and trimmed.
// The result does not depend on the process locale.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ToLower(s)

	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if isDecorative(r) {
			continue
		}
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return b.String()
}

// Hash is the hex SHA-256 of Normalize(s).
func Hash(s string) string {
	sum := sha256.Sum256([]byte(Normalize(s)))
	return hex.EncodeToString(sum[:])
}

func isDecorative(r rune) bool {
	switch {
	case unicode.Is(unicode.So, r):
		return true
	case r == 0x200D, r == 0xFE0E, r == 0xFE0F, r == 0x20E3:
		// joiner, variation selectors, keycap
		return true
	case r >= 0x1F3FB && r <= 0x1F3FF:
		// skin tone modifiers
		return true
	case r >= 0xE0020 && r <= 0xE007F:
		// tag sequences used by flag emoji
		return true
	}
	return false
}

func hasMeaningfulRune(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
