// Package token mints the customer-facing handles of negotiations.
package token

import (
	"math/rand/v2"
)

const (
	Length   = 12
	Alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
)

// Generator draws candidate tokens. Uniqueness is the caller's concern.
type Generator interface {
	NewToken() string
}

type randomGenerator struct{}

func NewGenerator() Generator {
	return randomGenerator{}
}

func (randomGenerator) NewToken() string {
	b := make([]byte, Length)
	for i := range b {
		b[i] = Alphabet[rand.IntN(len(Alphabet))]
	}
	return string(b)
}

// Valid reports whether s has the shape of a generated token.
func Valid(s string) bool {
	if len(s) != Length {
		return false
	}
	for i := 0; i < len(s); i++ {
		c := s[i]
		if !(c >= 'A' && c <= 'Z' || c >= 'a' && c <= 'z' || c >= '0' && c <= '9') {
			return false
		}
	}
	return true
}
