// Package shortcode generates the random identifiers that short links are
// minted under.
package shortcode

import (
	"crypto/rand"
	"fmt"
)

const (
	// Alphabet is the 62-symbol character set codes are drawn from.
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// Length is the fixed code length. 62^8 is roughly 2.18e14 combinations,
	// so a single random draw colliding with an existing row stays negligible
	// until the table holds hundreds of billions of entries.
	Length = 8
)

// Generate returns a fresh Length-character code sampled uniformly from
// Alphabet. The source is crypto/rand: predictable codes would let an
// attacker enumerate live links or pre-register collisions.
func Generate() (string, error) {
	code := make([]byte, Length)

	// Rejection sampling keeps the distribution uniform. 62 does not divide
	// 256, so a plain modulo would bias toward the low end of the alphabet.
	const limit = 256 - (256 % len(Alphabet)) // 248

	buf := make([]byte, Length*2)
	i := 0
	for i < Length {
		if _, err := rand.Read(buf); err != nil {
			return "", fmt.Errorf("shortcode: read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= limit {
				continue
			}
			code[i] = Alphabet[int(b)%len(Alphabet)]
			i++
			if i == Length {
				break
			}
		}
	}

	return string(code), nil
}

// Valid reports whether s is syntactically a short code: exactly Length
// characters, all from Alphabet. Lookups for anything else can be rejected
// without touching storage.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c >= 'A' && c <= 'Z':
		case c >= 'a' && c <= 'z':
		case c >= '0' && c <= '9':
		default:
			return false
		}
	}
	return true
}
