package signaling

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"strconv"
)

const (
	DefaultPasswordDigits = 4

	// Random draws attempted before falling back to a linear scan of the
	// keyspace.
	maxRandomDraws = 64
)

// PasswordGenerator issues numeric passwords with a fixed number of digits,
// e.g. 1000-9999 for four digits.
type PasswordGenerator struct {
	min    int64
	size   int64
	random io.Reader
}

// NewPasswordGenerator creates a generator for passwords of the given length.
func NewPasswordGenerator(digits int) (*PasswordGenerator, error) {
	if digits < 1 || digits > 9 {
		return nil, fmt.Errorf("password digits must be between 1 and 9, got %d", digits)
	}

	min := int64(1)
	for i := 1; i < digits; i++ {
		min *= 10
	}
	max := min * 10
	if digits == 1 {
		min = 0
	}

	return &PasswordGenerator{
		min:    min,
		size:   max - min,
		random: rand.Reader,
	}, nil
}

// Size returns the number of distinct passwords the generator can issue.
func (g *PasswordGenerator) Size() int {
	return int(g.size)
}

// Generate returns a password for which taken reports false. taken must be
// evaluated under the same lock that later records the password, otherwise
// two callers can be handed the same value.
func (g *PasswordGenerator) Generate(taken func(string) bool) (string, error) {
	for i := 0; i < maxRandomDraws; i++ {
		n, err := g.randomOffset()
		if err != nil {
			return "", err
		}
		if p := g.format(n); !taken(p) {
			return p, nil
		}
	}

	// The keyspace is crowded. Walk it once from a random start so the call
	// either finds the remaining free value or fails.
	start, err := g.randomOffset()
	if err != nil {
		return "", err
	}
	for i := int64(0); i < g.size; i++ {
		if p := g.format((start + i) % g.size); !taken(p) {
			return p, nil
		}
	}
	return "", ErrPasswordsExhausted
}

func (g *PasswordGenerator) randomOffset() (int64, error) {
	n, err := rand.Int(g.random, big.NewInt(g.size))
	if err != nil {
		return 0, fmt.Errorf("generate password: %w", err)
	}
	return n.Int64(), nil
}

func (g *PasswordGenerator) format(offset int64) string {
	return strconv.FormatInt(g.min+offset, 10)
}
