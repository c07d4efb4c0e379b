package token_test

import (
	"testing"

	"github.com/mna/loxvm/lang/token"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLookup(t *testing.T) {
	cases := []struct {
		ident string
		want  token.Kind
	}{
		{"and", token.AND},
		{"class", token.CLASS},
		{"break", token.BREAK},
		{"continue", token.CONTINUE},
		{"nope", token.IDENT},
		{"", token.IDENT},
	}
	for _, c := range cases {
		t.Run(c.ident, func(t *testing.T) {
			require.Equal(t, c.want, token.Lookup(c.ident))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "+", token.PLUS.String())
	assert.Equal(t, "and", token.AND.String())
	assert.Equal(t, "end of file", token.EOF.String())
	assert.Equal(t, "unknown token", token.Kind(127).String())
}
