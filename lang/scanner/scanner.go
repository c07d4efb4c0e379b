// Package scanner tokenizes Lox source text for the compiler to consume. It
// adapts the rune-at-a-time scanning style used elsewhere in this module's
// lineage (advance/peek over a byte buffer, lazily producing one token at a
// time) to the grammar described in spec.md §4.1.
package scanner

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/mna/loxvm/lang/token"
)

// Scanner produces tokens from source text, one token ahead, on demand. It
// holds no buffered lookahead beyond the single current rune required to
// recognize two-character operators.
type Scanner struct {
	src  string
	start int // byte offset of the start of the token being scanned
	off   int // byte offset of cur
	roff  int // byte offset just past cur
	cur   rune
	line  int
}

// New returns a Scanner ready to tokenize src.
func New(src string) *Scanner {
	s := &Scanner{src: src, line: 1}
	s.advance()
	return s
}

func (s *Scanner) atEnd() bool { return s.cur == -1 }

func (s *Scanner) advance() {
	if s.roff >= len(s.src) {
		s.off = len(s.src)
		s.roff = len(s.src)
		s.cur = -1
		return
	}
	s.off = s.roff
	r, w := rune(s.src[s.roff]), 1
	if r >= utf8.RuneSelf {
		r, w = utf8.DecodeRuneInString(s.src[s.roff:])
	}
	s.roff += w
	s.cur = r
}

func (s *Scanner) peekNext() rune {
	if s.roff >= len(s.src) {
		return -1
	}
	r, _ := utf8.DecodeRuneInString(s.src[s.roff:])
	return r
}

// advanceIf consumes cur and returns true if it equals want.
func (s *Scanner) advanceIf(want rune) bool {
	if s.cur == want {
		s.advance()
		return true
	}
	return false
}

func (s *Scanner) make(k token.Kind) token.Token {
	return token.Token{Kind: k, Lexeme: s.src[s.start:s.off], Line: s.line}
}

func (s *Scanner) errorToken(msg string) token.Token {
	return token.Token{Kind: token.ILLEGAL, Lexeme: msg, Line: s.line}
}

func (s *Scanner) skipWhitespaceAndComments() {
	for {
		switch s.cur {
		case ' ', '\r', '\t':
			s.advance()
		case '\n':
			s.line++
			s.advance()
		case '/':
			if s.peekNext() != '/' {
				return
			}
			for s.cur != '\n' && !s.atEnd() {
				s.advance()
			}
		default:
			return
		}
	}
}

// Scan returns the next token in the source. Once EOF has been returned,
// subsequent calls keep returning EOF.
func (s *Scanner) Scan() token.Token {
	s.skipWhitespaceAndComments()
	s.start = s.off

	if s.atEnd() {
		return s.make(token.EOF)
	}

	cur := s.cur
	s.advance()

	switch {
	case isAlpha(cur):
		return s.identifier()
	case isDigit(cur):
		return s.number()
	}

	switch cur {
	case '(':
		return s.make(token.LPAREN)
	case ')':
		return s.make(token.RPAREN)
	case '{':
		return s.make(token.LBRACE)
	case '}':
		return s.make(token.RBRACE)
	case '[':
		return s.make(token.LBRACKET)
	case ']':
		return s.make(token.RBRACKET)
	case ',':
		return s.make(token.COMMA)
	case '.':
		return s.make(token.DOT)
	case '-':
		return s.make(token.MINUS)
	case '+':
		return s.make(token.PLUS)
	case ';':
		return s.make(token.SEMICOLON)
	case '*':
		return s.make(token.STAR)
	case '&':
		return s.make(token.AMPERSAND)
	case '|':
		return s.make(token.PIPE)
	case '^':
		return s.make(token.CARET)
	case '~':
		return s.make(token.TILDE)
	case '/':
		return s.make(token.SLASH)
	case '!':
		if s.advanceIf('=') {
			return s.make(token.BANG_EQUAL)
		}
		return s.make(token.BANG)
	case '=':
		if s.advanceIf('=') {
			return s.make(token.EQUAL_EQUAL)
		}
		return s.make(token.EQUAL)
	case '<':
		if s.advanceIf('=') {
			return s.make(token.LESS_EQUAL)
		}
		if s.advanceIf('<') {
			return s.make(token.LESS_LESS)
		}
		return s.make(token.LESS)
	case '>':
		if s.advanceIf('=') {
			return s.make(token.GREATER_EQUAL)
		}
		if s.advanceIf('>') {
			return s.make(token.GREATER_GREATER)
		}
		return s.make(token.GREATER)
	case '"':
		return s.string()
	}

	return s.errorToken("Unexpected character.")
}

func (s *Scanner) identifier() token.Token {
	for isAlpha(s.cur) || isDigit(s.cur) {
		s.advance()
	}
	lit := s.src[s.start:s.off]
	return s.make(token.Lookup(lit))
}

func (s *Scanner) number() token.Token {
	for isDigit(s.cur) {
		s.advance()
	}
	if s.cur == '.' && isDigit(s.peekNext()) {
		s.advance()
		for isDigit(s.cur) {
			s.advance()
		}
	}
	return s.make(token.NUMBER)
}

// string scans a double-quoted string literal. The returned token's Lexeme
// includes the surrounding quotes; the compiler is responsible for stripping
// them (spec.md §4.1).
func (s *Scanner) string() token.Token {
	for s.cur != '"' && !s.atEnd() {
		if s.cur == '\n' {
			s.line++
		}
		s.advance()
	}
	if s.atEnd() {
		return s.errorToken("Unterminated string.")
	}
	s.advance() // closing quote
	return s.make(token.STRING)
}

func isDigit(r rune) bool { return r >= '0' && r <= '9' }

func isAlpha(r rune) bool {
	return r == '_' || unicode.IsLetter(r)
}

// Unquote strips the surrounding quotes from a STRING token's lexeme.
func Unquote(lexeme string) string {
	return strings.TrimSuffix(strings.TrimPrefix(lexeme, `"`), `"`)
}
