package compiler

import (
	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
)

func (c *Compiler) statement() {
	switch {
	case c.match(token.PRINT):
		c.printStatement()
	case c.match(token.IF):
		c.ifStatement()
	case c.match(token.WHILE):
		c.whileStatement()
	case c.match(token.FOR):
		c.forStatement()
	case c.match(token.RETURN):
		c.returnStatement()
	case c.match(token.BREAK):
		c.breakStatement()
	case c.match(token.CONTINUE):
		c.continueStatement()
	case c.match(token.LBRACE):
		c.beginScope()
		c.block()
		c.endScope()
	default:
		c.expressionStatement()
	}
}

func (c *Compiler) block() {
	for !c.check(token.RBRACE) && !c.check(token.EOF) {
		c.declaration()
	}
	c.consume(token.RBRACE, "Expect '}' after block.")
}

func (c *Compiler) printStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after value.")
	c.emitOp(value.OpPrint)
}

func (c *Compiler) expressionStatement() {
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after expression.")
	c.emitOp(value.OpPop)
}

func (c *Compiler) ifStatement() {
	c.consume(token.LPAREN, "Expect '(' after 'if'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	thenJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()

	elseJump := c.emitJump(value.OpJump)
	c.patchJump(thenJump)
	c.emitOp(value.OpPop)

	if c.match(token.ELSE) {
		c.statement()
	}
	c.patchJump(elseJump)
}

// pushLoop/popLoop bracket a loop body, tracking the jumps its break
// statements must patch and the locals count at loop entry, used by
// break/continue to pop the right number of locals before jumping (spec.md
// §4.2 "Loop compilation").
func (c *Compiler) pushLoop(continueTarget int) {
	if len(c.cur.loops) >= MaxLoops {
		c.error("Too many nested loops.")
	}
	c.cur.loops = append(c.cur.loops, loopCtx{
		continueTarget: continueTarget,
		localsAtStart:  len(c.cur.locals),
	})
}

func (c *Compiler) popLoop() loopCtx {
	fr := c.cur
	l := fr.loops[len(fr.loops)-1]
	fr.loops = fr.loops[:len(fr.loops)-1]
	return l
}

func (c *Compiler) currentLoop() *loopCtx {
	if len(c.cur.loops) == 0 {
		return nil
	}
	return &c.cur.loops[len(c.cur.loops)-1]
}

func (c *Compiler) whileStatement() {
	loopStart := len(c.chunk().Code)
	c.pushLoop(loopStart)

	c.consume(token.LPAREN, "Expect '(' after 'while'.")
	c.expression()
	c.consume(token.RPAREN, "Expect ')' after condition.")

	exitJump := c.emitJump(value.OpJumpIfFalse)
	c.emitOp(value.OpPop)
	c.statement()
	c.emitLoop(loopStart)

	c.patchJump(exitJump)
	c.emitOp(value.OpPop)

	l := c.popLoop()
	for _, j := range l.breakJumps {
		c.patchJump(j)
	}
}

// forStatement compiles `for (init; cond; incr) body` using the
// body-before-increment jump pattern: the condition jumps straight to the
// body, the body jumps to the increment, and the increment loops back to
// the condition. continue therefore targets the increment clause, matching
// clox (spec.md §4.2 "for loops").
func (c *Compiler) forStatement() {
	c.beginScope()
	c.consume(token.LPAREN, "Expect '(' after 'for'.")

	switch {
	case c.match(token.SEMICOLON):
		// no initializer
	case c.match(token.VAR):
		c.varDeclaration()
	default:
		c.expressionStatement()
	}

	loopStart := len(c.chunk().Code)
	exitJump := -1
	if !c.match(token.SEMICOLON) {
		c.expression()
		c.consume(token.SEMICOLON, "Expect ';' after loop condition.")
		exitJump = c.emitJump(value.OpJumpIfFalse)
		c.emitOp(value.OpPop)
	}

	if !c.check(token.RPAREN) {
		bodyJump := c.emitJump(value.OpJump)
		incrStart := len(c.chunk().Code)
		c.expression()
		c.emitOp(value.OpPop)
		c.consume(token.RPAREN, "Expect ')' after for clauses.")

		c.emitLoop(loopStart)
		loopStart = incrStart
		c.patchJump(bodyJump)
	} else {
		c.consume(token.RPAREN, "Expect ')' after for clauses.")
	}

	c.pushLoop(loopStart)
	c.statement()
	c.emitLoop(loopStart)

	if exitJump != -1 {
		c.patchJump(exitJump)
		c.emitOp(value.OpPop)
	}

	l := c.popLoop()
	for _, j := range l.breakJumps {
		c.patchJump(j)
	}

	c.endScope()
}

// breakStatement emits pops for any locals declared since loop entry, then
// an unconditional jump patched once the loop's end is known. spec.md §4.2
// permits at most one break per loop body frame.
func (c *Compiler) breakStatement() {
	loop := c.currentLoop()
	if loop == nil {
		c.error("Can't use 'break' outside of a loop.")
		c.consume(token.SEMICOLON, "Expect ';' after 'break'.")
		return
	}
	if loop.hasBreak {
		c.error("Already a 'break' statement for this loop.")
	}
	loop.hasBreak = true
	c.consume(token.SEMICOLON, "Expect ';' after 'break'.")

	c.emitPopLocalsSince(loop.localsAtStart)
	jump := c.emitJump(value.OpJump)
	loop.breakJumps = append(loop.breakJumps, jump)
}

func (c *Compiler) continueStatement() {
	loop := c.currentLoop()
	if loop == nil {
		c.error("Can't use 'continue' outside of a loop.")
		c.consume(token.SEMICOLON, "Expect ';' after 'continue'.")
		return
	}
	c.consume(token.SEMICOLON, "Expect ';' after 'continue'.")

	c.emitPopLocalsSince(loop.localsAtStart)
	c.emitLoop(loop.continueTarget)
}

// emitPopLocalsSince pops (or closes, if captured) every local declared
// after the given count, without touching the compiler's own local table —
// break/continue jump out of the block but the enclosing endScope calls
// still run afterward and must see the full list.
func (c *Compiler) emitPopLocalsSince(count int) {
	locals := c.cur.locals
	for i := len(locals) - 1; i >= count; i-- {
		if locals[i].captured {
			c.emitOp(value.OpCloseUpvalue)
		} else {
			c.emitOp(value.OpPop)
		}
	}
}

func (c *Compiler) returnStatement() {
	if c.cur.fnType == TypeScript {
		c.error("Can't return from top-level code.")
	}
	if c.match(token.SEMICOLON) {
		c.emitReturn()
		return
	}
	if c.cur.fnType == TypeInitializer {
		c.error("Can't return a value from an initializer.")
	}
	c.expression()
	c.consume(token.SEMICOLON, "Expect ';' after return value.")
	c.emitOp(value.OpReturn)
}
