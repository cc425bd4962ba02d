package shortcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	tests := []struct {
		name    string
		length  int
		wantErr bool
	}{
		{name: "too short", length: MinLength - 1, wantErr: true},
		{name: "negative", length: -1, wantErr: true},
		{name: "too long", length: MaxLength + 1, wantErr: true},
		{name: "min", length: MinLength},
		{name: "default", length: DefaultLength},
		{name: "max", length: MaxLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g, err := NewGenerator(tt.length)

			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidLength)
				assert.Nil(t, g)
				return
			}

			assert.NoError(t, err)
			assert.Equal(t, tt.length, g.Length())
		})
	}
}

func TestGenerator_Generate(t *testing.T) {
	g, err := NewGenerator(DefaultLength)
	require.NoError(t, err)

	t.Run("length and alphabet", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			code, err := g.Generate()

			require.NoError(t, err)
			assert.Len(t, code, DefaultLength)
			for _, c := range code {
				assert.True(t, strings.ContainsRune(Alphabet, c), "unexpected character %q", c)
			}
		}
	})

	t.Run("distinct codes", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)

		for i := 0; i < 1000; i++ {
			code, err := g.Generate()
			require.NoError(t, err)

			_, dup := seen[code]
			assert.False(t, dup, "duplicate code %q", code)
			seen[code] = struct{}{}
		}
	})
}
