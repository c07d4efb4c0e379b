package compiler

import "github.com/mna/loxvm/lang/token"

type parseFn func(c *Compiler, canAssign bool)

type parseRule struct {
	prefix     parseFn
	infix      parseFn
	precedence Precedence
}

// rules is the Pratt-parser table keyed by token kind (spec.md §4.2
// "Expression parsing"). A zero-value parseRule (no prefix, no infix,
// PrecNone) is correct for tokens with no expression meaning.
var rules = map[token.Kind]parseRule{
	token.LPAREN:         {prefix: grouping, infix: call, precedence: PrecCall},
	token.LBRACKET:       {prefix: arrayLiteral, infix: subscript, precedence: PrecCall},
	token.DOT:            {infix: dot, precedence: PrecCall},
	token.MINUS:          {prefix: unary, infix: binary, precedence: PrecTerm},
	token.PLUS:           {infix: binary, precedence: PrecTerm},
	token.SLASH:          {infix: binary, precedence: PrecFactor},
	token.STAR:           {infix: binary, precedence: PrecFactor},
	token.BANG:           {prefix: unary},
	token.TILDE:          {prefix: unary},
	token.BANG_EQUAL:     {infix: binary, precedence: PrecEquality},
	token.EQUAL_EQUAL:    {infix: binary, precedence: PrecEquality},
	token.GREATER:        {infix: binary, precedence: PrecComparison},
	token.GREATER_EQUAL:  {infix: binary, precedence: PrecComparison},
	token.LESS:           {infix: binary, precedence: PrecComparison},
	token.LESS_EQUAL:     {infix: binary, precedence: PrecComparison},
	token.GREATER_GREATER: {infix: binary, precedence: PrecShift},
	token.LESS_LESS:      {infix: binary, precedence: PrecShift},
	token.AMPERSAND:      {infix: binary, precedence: PrecBitAnd},
	token.PIPE:           {infix: binary, precedence: PrecBitOr},
	token.CARET:          {infix: binary, precedence: PrecBitXor},
	token.IDENT:          {prefix: variable},
	token.STRING:         {prefix: stringLiteral},
	token.NUMBER:         {prefix: number},
	token.AND:            {infix: and_, precedence: PrecAnd},
	token.OR:             {infix: or_, precedence: PrecOr},
	token.FALSE:          {prefix: literal},
	token.TRUE:           {prefix: literal},
	token.NIL:            {prefix: literal},
	token.THIS:           {prefix: this_},
	token.SUPER:          {prefix: super_},
	token.FUN:            {prefix: lambdaRule},
}

func getRule(k token.Kind) parseRule { return rules[k] }
