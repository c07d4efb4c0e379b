package compiler

import (
	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
)

// declaration parses one top-level or block-level declaration, recovering
// via synchronize() after a compile error (spec.md §4.2 "Panic-mode
// recovery").
func (c *Compiler) declaration() {
	switch {
	case c.match(token.CLASS):
		c.classDeclaration()
	case c.match(token.FUN):
		c.funDeclaration()
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.statement()
	}

	if c.panicMode {
		c.synchronize()
	}
}

func (c *Compiler) funDeclaration() {
	global := c.parseVariable("Expect function name.")
	c.markInitialized()
	c.function(TypeFunction)
	c.defineVariable(global)
}

// function compiles a function/method/lambda body: "(" params? ")" block,
// in a fresh nested frame, then emits OP_CLOSURE[_LONG] into the enclosing
// chunk (spec.md §4.2 "Function emission").
func (c *Compiler) function(t FuncType) {
	var name *value.String
	if c.previous.Kind == token.IDENT {
		name = value.NewString(c.previous.Lexeme)
	}
	c.pushFrame(t, name)
	c.beginScope()

	c.consume(token.LPAREN, "Expect '(' after function name.")
	if !c.check(token.RPAREN) {
		for {
			c.cur.fn.Arity++
			if c.cur.fn.Arity > 255 {
				c.errorAtCurrent("Can't have more than 255 parameters.")
			}
			constant := c.parseVariable("Expect parameter name.")
			c.defineVariable(constant)
			if !c.match(token.COMMA) {
				break
			}
		}
	}
	c.consume(token.RPAREN, "Expect ')' after parameters.")
	c.consume(token.LBRACE, "Expect '{' before function body.")
	c.block()

	enclosing := c.cur.enclosing
	upvalues := c.cur.upvalues
	fn := c.endFrame()

	idx := c.makeConstant(fn)
	c.emitShortOrLong(value.OpClosure, value.OpClosureLong, idx)
	for _, uv := range upvalues {
		if uv.isLocal {
			c.emitByte(1)
		} else {
			c.emitByte(0)
		}
		c.emitByte(uv.index)
	}
	_ = enclosing
}

// lambda parses an anonymous `fun (...) ...` expression (spec.md §4.2
// "Declaration syntax": "an anonymous `fun (…) …` is an expression").
func (c *Compiler) lambda(canAssign bool) {
	c.function(TypeFunction)
}

func (c *Compiler) classDeclaration() {
	c.consume(token.IDENT, "Expect class name.")
	className := c.previous.Lexeme
	nameConstant := c.identifierConstant(className)
	c.declareVariable(className)

	c.emitShortOrLong(value.OpClass, value.OpClassLong, nameConstant)
	c.defineVariable(nameConstant)

	cls := &classCtx{enclosing: c.cls}
	c.cls = cls

	if c.match(token.LESS) {
		c.consume(token.IDENT, "Expect superclass name.")
		superclassName := c.previous.Lexeme
		if superclassName == className {
			c.error("A class can't inherit from itself.")
		}
		c.namedVariable(superclassName, false)

		c.beginScope()
		c.addLocal("super")
		c.markInitialized()

		c.namedVariable(className, false)
		c.emitOp(value.OpInherit)
		cls.hasSuperclass = true
	}

	c.namedVariable(className, false)
	c.consume(token.LBRACE, "Expect '{' before class body.")
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.method()
	}
	c.consume(token.RBRACE, "Expect '}' after class body.")
	c.emitOp(value.OpPop) // pop the class itself

	if cls.hasSuperclass {
		c.endScope()
	}
	c.cls = cls.enclosing
}

func (c *Compiler) method() {
	c.consume(token.IDENT, "Expect method name.")
	name := c.previous.Lexeme
	nameConstant := c.identifierConstant(name)

	t := TypeMethod
	if name == "init" {
		t = TypeInitializer
	}
	c.function(t)
	c.emitShortOrLong(value.OpMethod, value.OpMethodLong, nameConstant)
}

func (c *Compiler) varDeclaration() {
	global := c.parseVariable("Expect variable name.")
	if c.match(token.EQUAL) {
		c.expression()
	} else {
		c.emitOp(value.OpNil)
	}
	c.consume(token.SEMICOLON, "Expect ';' after variable declaration.")
	c.defineVariable(global)
}

// parseVariable consumes an identifier, declares it as a local (if in a
// block scope), and returns the constant-pool index of its name (used only
// for globals; locals ignore the returned index).
func (c *Compiler) parseVariable(msg string) int {
	c.consume(token.IDENT, msg)
	name := c.previous.Lexeme
	c.declareVariable(name)
	if c.cur.scopeDepth > 0 {
		return 0
	}
	return c.identifierConstant(name)
}

func (c *Compiler) defineVariable(global int) {
	if c.cur.scopeDepth > 0 {
		c.markInitialized()
		return
	}
	c.emitShortOrLong(value.OpDefineGlobal, value.OpDefineGlobalLong, global)
}
