// Package shortcode produces random short codes for shortened URLs.
package shortcode

import (
	"errors"
	"fmt"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// Alphabet is the base62 character set short codes are drawn from.
const Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"

const (
	MinLength     = 4
	MaxLength     = 32
	DefaultLength = 7
)

// ErrInvalidLength is returned when a generator is configured with an unsupported code length.
var ErrInvalidLength = errors.New("invalid short code length")

// Generator generates random base62 short codes of a fixed length.
type Generator struct {
	length int
}

// NewGenerator creates a generator of codes with the given length.
func NewGenerator(length int) (*Generator, error) {
	const op = "shortcode.NewGenerator"

	if length < MinLength || length > MaxLength {
		return nil, fmt.Errorf("%s: %w: %d not in [%d, %d]", op, ErrInvalidLength, length, MinLength, MaxLength)
	}

	return &Generator{length: length}, nil
}

// Length returns the length of generated codes.
func (g *Generator) Length() int {
	return g.length
}

// Generate returns a new random short code.
func (g *Generator) Generate() (string, error) {
	const op = "shortcode.Generator.Generate"

	code, err := gonanoid.Generate(Alphabet, g.length)
	if err != nil {
		return "", fmt.Errorf("%s: failed to generate short code: %w", op, err)
	}

	return code, nil
}
