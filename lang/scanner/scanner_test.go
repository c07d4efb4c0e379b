package scanner_test

import (
	"testing"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, src string) []token.Token {
	t.Helper()
	s := scanner.New(src)
	var toks []token.Token
	for {
		tok := s.Scan()
		toks = append(toks, tok)
		if tok.Kind == token.EOF {
			return toks
		}
	}
}

func TestScanPunctuationAndOperators(t *testing.T) {
	toks := scanAll(t, "( ) { } [ ] , . - + ; * / & | ^ ~ ! != = == < <= << > >= >>")
	want := []token.Kind{
		token.LPAREN, token.RPAREN, token.LBRACE, token.RBRACE, token.LBRACKET, token.RBRACKET,
		token.COMMA, token.DOT, token.MINUS, token.PLUS, token.SEMICOLON, token.STAR, token.SLASH,
		token.AMPERSAND, token.PIPE, token.CARET, token.TILDE,
		token.BANG, token.BANG_EQUAL, token.EQUAL, token.EQUAL_EQUAL,
		token.LESS, token.LESS_EQUAL, token.LESS_LESS,
		token.GREATER, token.GREATER_EQUAL, token.GREATER_GREATER,
		token.EOF,
	}
	require.Len(t, toks, len(want))
	for i, k := range want {
		require.Equalf(t, k, toks[i].Kind, "token %d (%q)", i, toks[i].Lexeme)
	}
}

func TestScanKeywordsAndIdentifiers(t *testing.T) {
	toks := scanAll(t, "var x = foo and bar")
	require.Equal(t, token.VAR, toks[0].Kind)
	require.Equal(t, token.IDENT, toks[1].Kind)
	require.Equal(t, "x", toks[1].Lexeme)
	require.Equal(t, token.EQUAL, toks[2].Kind)
	require.Equal(t, token.IDENT, toks[3].Kind)
	require.Equal(t, token.AND, toks[4].Kind)
	require.Equal(t, token.IDENT, toks[5].Kind)
}

func TestScanNumbers(t *testing.T) {
	toks := scanAll(t, "123 1.23 4.")
	require.Equal(t, "123", toks[0].Lexeme)
	require.Equal(t, "1.23", toks[1].Lexeme)
	// trailing dot with no following digit is not part of the number
	require.Equal(t, "4", toks[2].Lexeme)
	require.Equal(t, token.DOT, toks[3].Kind)
}

func TestScanString(t *testing.T) {
	toks := scanAll(t, `"hello world"`)
	require.Equal(t, token.STRING, toks[0].Kind)
	require.Equal(t, `"hello world"`, toks[0].Lexeme)
	require.Equal(t, "hello world", scanner.Unquote(toks[0].Lexeme))
}

func TestScanUnterminatedString(t *testing.T) {
	toks := scanAll(t, `"hello`)
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
	require.Equal(t, "Unterminated string.", toks[0].Lexeme)
}

func TestScanLineComments(t *testing.T) {
	toks := scanAll(t, "1 // a comment\n2")
	require.Equal(t, "1", toks[0].Lexeme)
	require.Equal(t, 1, toks[0].Line)
	require.Equal(t, "2", toks[1].Lexeme)
	require.Equal(t, 2, toks[1].Line)
}

func TestScanIllegalCharacter(t *testing.T) {
	toks := scanAll(t, "@")
	require.Equal(t, token.ILLEGAL, toks[0].Kind)
}
