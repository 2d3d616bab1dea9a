package vault

import (
	"crypto/rand"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	DefaultPasswordLength = 14

	symbols = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789" +
		"!\"#$%&'()*+,-./:;<=>?@[\\]^_`{|}~"
)

// GeneratePassword returns a random password drawn uniformly from the 94
// printable ASCII symbols. A non-positive length means
// DefaultPasswordLength.
func GeneratePassword(length int) (*Secret, error) {
	if length <= 0 {
		length = DefaultPasswordLength
	}
	n := big.NewInt(int64(len(symbols)))
	out := make([]byte, length)
	for i := range out {
		idx, err := rand.Int(rand.Reader, n)
		if err != nil {
			zero(out)
			return nil, err
		}
		out[i] = symbols[idx.Int64()]
	}
	return NewSecret(out), nil
}

// Weakness is one failed strength rule.
type Weakness string

const (
	TooShort     Weakness = "fewer than 14 characters"
	FewUppercase Weakness = "fewer than 3 uppercase letters"
	FewSpecial   Weakness = "fewer than 2 special characters"
	FewUnique    Weakness = "fewer than 6 unique characters"
	FewDigits    Weakness = "fewer than 3 digits"
)

const (
	minLength      = 14
	minUppercase   = 3
	minSpecial     = 2
	minUniqueChars = 6
	minDigits      = 3
)

// CheckStrength returns every rule password fails; nil means strong.
func CheckStrength(password *Secret) []Weakness {
	var upper, special, digits int
	unique := make(map[rune]struct{})
	runes := 0
	for b := password.Bytes(); len(b) > 0; {
		r, size := utf8.DecodeRune(b)
		b = b[size:]
		runes++
		unique[r] = struct{}{}
		switch {
		case unicode.IsUpper(r):
			upper++
		case unicode.IsDigit(r):
			digits++
		case r < unicode.MaxASCII && strings.ContainsRune(symbols[62:], r):
			special++
		}
	}

	var weak []Weakness
	if runes < minLength {
		weak = append(weak, TooShort)
	}
	if upper < minUppercase {
		weak = append(weak, FewUppercase)
	}
	if special < minSpecial {
		weak = append(weak, FewSpecial)
	}
	if len(unique) < minUniqueChars {
		weak = append(weak, FewUnique)
	}
	if digits < minDigits {
		weak = append(weak, FewDigits)
	}
	return weak
}
