package auth

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
)

// CodeAlphabet holds uppercase letters and digits without the look-alikes I, O, 0 and 1.
const CodeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// CodeLength is the number of characters in a verification code.
const CodeLength = 8

var alphabetSize = big.NewInt(int64(len(CodeAlphabet)))

// GenerateCode returns a random verification code. Each character is drawn
// uniformly from CodeAlphabet using crypto/rand.
func GenerateCode() (string, error) {
	var b strings.Builder
	b.Grow(CodeLength)
	for i := 0; i < CodeLength; i++ {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", fmt.Errorf("failed to generate code: %w", err)
		}
		b.WriteByte(CodeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

// FormatCode renders a code as two hyphen-separated groups of four (XXXX-XXXX).
// Anything that is not a full-length code is returned unchanged.
func FormatCode(code string) string {
	if len(code) != CodeLength {
		return code
	}
	return code[:CodeLength/2] + "-" + code[CodeLength/2:]
}

// NormalizeCode strips everything except ASCII letters and digits and uppercases the rest,
// so "abcd-efgh" and " ABCD EFGH " compare equal to the stored "ABCDEFGH".
func NormalizeCode(input string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z':
			return r - 'a' + 'A'
		case r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		default:
			return -1
		}
	}, input)
}

// IsValidCodeFormat reports whether a normalized code has the expected length.
func IsValidCodeFormat(code string) bool {
	return len(code) == CodeLength
}
