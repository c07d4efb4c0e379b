package compiler

import (
	"strconv"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
)

func (c *Compiler) expression() {
	c.parsePrecedence(PrecAssignment)
}

// parsePrecedence is the core Pratt-parser loop (spec.md §4.2 "Expression
// parsing"): it runs the prefix rule for c.current, then repeatedly runs
// infix rules as long as their precedence binds at least as tightly as min.
func (c *Compiler) parsePrecedence(min Precedence) {
	c.advance()
	rule := getRule(c.previous.Kind)
	if rule.prefix == nil {
		c.error("Expect expression.")
		return
	}
	canAssign := min <= PrecAssignment
	rule.prefix(c, canAssign)

	for min <= getRule(c.current.Kind).precedence {
		c.advance()
		infix := getRule(c.previous.Kind).infix
		infix(c, canAssign)
	}

	if canAssign && c.match(token.EQUAL) {
		c.error("Invalid assignment target.")
	}
}

func grouping(c *Compiler, _ bool) {
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after expression.")
}

func unary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	c.parsePrecedence(PrecUnary)
	switch opKind {
	case token.MINUS:
		c.emitOp(value.OpNegate)
	case token.BANG:
		c.emitOp(value.OpNot)
	case token.TILDE:
		c.emitOp(value.OpInvert)
	}
}

func binary(c *Compiler, _ bool) {
	opKind := c.previous.Kind
	rule := getRule(opKind)
	c.parsePrecedence(rule.precedence + 1)

	switch opKind {
	case token.BANG_EQUAL:
		c.emitOp(value.OpNotEqual)
	case token.EQUAL_EQUAL:
		c.emitOp(value.OpEqual)
	case token.GREATER:
		c.emitOp(value.OpGreater)
	case token.GREATER_EQUAL:
		c.emitOp(value.OpGreaterEqual)
	case token.LESS:
		c.emitOp(value.OpLess)
	case token.LESS_EQUAL:
		c.emitOp(value.OpLessEqual)
	case token.PLUS:
		c.emitOp(value.OpAdd)
	case token.MINUS:
		c.emitOp(value.OpSubtract)
	case token.STAR:
		c.emitOp(value.OpMultiply)
	case token.SLASH:
		c.emitOp(value.OpDivide)
	case token.GREATER_GREATER:
		c.emitOp(value.OpShiftRight)
	case token.LESS_LESS:
		c.emitOp(value.OpShiftLeft)
	case token.AMPERSAND:
		c.emitOp(value.OpBitAnd)
	case token.PIPE:
		c.emitOp(value.OpBitOr)
	case token.CARET:
		c.emitOp(value.OpBitXor)
	}
}

func number(c *Compiler, _ bool) {
	n, err := strconv.ParseFloat(c.previous.Lexeme, 64)
	if err != nil {
		c.error("Invalid number literal.")
		return
	}
	c.emitNumber(n)
}

func stringLiteral(c *Compiler, _ bool) {
	s := scanner.Unquote(c.previous.Lexeme)
	idx := c.stringConstant(s)
	c.emitShortOrLong(value.OpConstant, value.OpConstantLong, idx)
}

func literal(c *Compiler, _ bool) {
	switch c.previous.Kind {
	case token.FALSE:
		c.emitOp(value.OpFalse)
	case token.TRUE:
		c.emitOp(value.OpTrue)
	case token.NIL:
		c.emitOp(value.OpNil)
	}
}

func and_(c *Compiler, _ bool) {
	endJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.parsePrecedence(PrecAnd)
	c.patchJump(endJump)
}

func or_(c *Compiler, _ bool) {
	endJump := c.emitJump(value.OpJumpIfTrue)
	c.emitOp(value.OpPop)
	c.parsePrecedence(PrecOr)
	c.patchJump(endJump)
}

func variable(c *Compiler, canAssign bool) {
	c.namedVariable(c.previous.Lexeme, canAssign)
}

// namedVariable resolves name to a local, upvalue, or global slot and emits
// the matching get/set opcode (spec.md §4.2 "Local resolution").
func (c *Compiler) namedVariable(name string, canAssign bool) {
	var getOp, getOpLong, setOp, setOpLong value.Opcode
	var arg int

	if local := resolveLocal(c.cur, c, name); local != -1 {
		arg = local
		getOp, setOp = value.OpGetLocal, value.OpSetLocal
	} else if up := resolveUpvalue(c.cur, c, name); up != -1 {
		arg = up
		getOp, setOp = value.OpGetUpvalue, value.OpSetUpvalue
	} else {
		arg = c.identifierConstant(name)
		getOp, getOpLong = value.OpGetGlobal, value.OpGetGlobalLong
		setOp, setOpLong = value.OpSetGlobal, value.OpSetGlobalLong
	}

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		if setOpLong != 0 {
			c.emitShortOrLong(setOp, setOpLong, arg)
		} else {
			c.emitOp(setOp)
			c.emitByte(byte(arg))
		}
		return
	}
	if getOpLong != 0 {
		c.emitShortOrLong(getOp, getOpLong, arg)
	} else {
		c.emitOp(getOp)
		c.emitByte(byte(arg))
	}
}

// argumentList parses a parenthesized call-argument list, already past the
// opening '(', and returns the argument count (spec.md §7: "more than 255
// arguments").
func (c *Compiler) argumentList() int {
	count := 0
	if !c.check(token.RPAREN) {
		for {
			c.expression()
			if count == 255 {
				c.error("Can't have more than 255 arguments.")
			}
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after arguments.")
	return count
}

func call(c *Compiler, _ bool) {
	argCount := c.argumentList()
	c.emitOp(value.OpCall)
	c.emitByte(byte(argCount))
}

// dot compiles `expr.name`, `expr.name = value`, and fuses `expr.name(...)`
// into OP_INVOKE[_LONG] (spec.md §4.2 "Method-call fusion").
func dot(c *Compiler, canAssign bool) {
	c.consume(token.IDENT, "Expect property name after '.'.")
	name := c.previous.Lexeme
	nameConstant := c.identifierConstant(name)

	switch {
	case canAssign && c.match(token.EQUAL):
		c.expression()
		c.emitShortOrLong(value.OpSetProperty, value.OpSetPropertyLong, nameConstant)
	case c.match(token.LPAREN):
		argCount := c.argumentList()
		c.emitShortOrLong(value.OpInvoke, value.OpInvokeLong, nameConstant)
		c.emitByte(byte(argCount))
	default:
		c.emitShortOrLong(value.OpGetProperty, value.OpGetPropertyLong, nameConstant)
	}
}

func this_(c *Compiler, _ bool) {
	if c.cls == nil {
		c.error("Can't use 'this' outside of a class.")
		return
	}
	variable(c, false)
}

// super_ compiles `super.name` and `super.name(...)` (fused into
// OP_SUPER_INVOKE[_LONG]), resolving both the enclosing `this` and the
// synthetic `super` local declared by classDeclaration (spec.md §4.2
// "Superclass access").
func super_(c *Compiler, _ bool) {
	if c.cls == nil {
		c.error("Can't use 'super' outside of a class.")
	} else if !c.cls.hasSuperclass {
		c.error("Can't use 'super' in a class with no superclass.")
	}

	c.consume(token.DOT, "Expect '.' after 'super'.")
	c.consume(token.IDENT, "Expect superclass method name.")
	name := c.previous.Lexeme
	nameConstant := c.identifierConstant(name)

	c.namedVariable("this", false)
	if c.match(token.LPAREN) {
		argCount := c.argumentList()
		c.namedVariable("super", false)
		c.emitShortOrLong(value.OpSuperInvoke, value.OpSuperInvokeLong, nameConstant)
		c.emitByte(byte(argCount))
		return
	}
	c.namedVariable("super", false)
	c.emitShortOrLong(value.OpGetSuper, value.OpGetSuperLong, nameConstant)
}

// arrayLiteral compiles `[e1, e2, ...]` (spec.md §6 "Arrays").
func arrayLiteral(c *Compiler, _ bool) {
	count := 0
	if !c.check(token.RBRACKET) {
		for {
			c.expression()
			count++
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RBRACKET, "Expect ']' after array elements.")
	c.emitOp(value.OpNewArray)
	c.chunk().WriteUint16(uint16(count), c.previous.Line)
}

// subscript compiles `expr[index]` and `expr[index] = value` (spec.md §6
// "Arrays").
func subscript(c *Compiler, canAssign bool) {
	c.expression()
	c.consume(token.RBRACKET, "Expect ']' after index.")

	if canAssign && c.match(token.EQUAL) {
		c.expression()
		c.emitOp(value.OpSubscriptAssign)
		return
	}
	c.emitOp(value.OpSubscript)
}

func lambdaRule(c *Compiler, _ bool) {
	c.lambda(false)
}
