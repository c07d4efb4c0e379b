// Package compiler implements the single-pass Pratt compiler: it both
// parses Lox source and emits bytecode directly into a value.Chunk, with
// lexical scope resolution, upvalue capture, and string-interning of
// constants (spec.md §4.2). There is no separate AST: each parse rule emits
// code as it recognizes a construct.
package compiler

import (
	"errors"
	"fmt"
	"math"

	"github.com/mna/loxvm/lang/scanner"
	"github.com/mna/loxvm/lang/token"
	"github.com/mna/loxvm/lang/value"
)

// MaxLocals, MaxUpvalues, MaxLoops bound the per-function tables spec.md §3
// requires ("Local-variable slots per function ≤ 256; upvalues per function
// ≤ 256").
const (
	MaxLocals   = 256
	MaxUpvalues = 256
	MaxLoops    = 256
)

// FuncType distinguishes the kind of function body currently being
// compiled, which affects implicit-return codegen and what `this`/`super`
// resolve to (spec.md §4.2 "Scope model").
type FuncType int

const (
	TypeScript FuncType = iota
	TypeFunction
	TypeMethod
	TypeInitializer
)

type local struct {
	name     string
	depth    int // -1 means declared but not yet initialized
	captured bool
}

type upvalueRef struct {
	index   byte
	isLocal bool
}

type loopCtx struct {
	// continueTarget is the bytecode offset CONTINUE jumps back to: a
	// while loop's condition re-check, or a for loop's increment clause
	// (spec.md §4.2 "the increment is compiled as a body-before-increment
	// jump pattern so break/continue target the increment").
	continueTarget int
	breakJumps     []int
	localsAtStart  int
	hasBreak       bool
}

// classCtx tracks class-body compilation nesting, for `this`/`super`
// validity checks (spec.md §7: "this/super outside class", "super without
// superclass").
type classCtx struct {
	enclosing     *classCtx
	hasSuperclass bool
}

// frame is one nested compiler activation: one per script, function, lambda
// or method body (spec.md §4.2 "Scope model"). Frames form a stack via
// enclosing, mirroring the call-frame stack the VM builds at run time.
type frame struct {
	enclosing *frame
	fn        *value.Function
	fnType    FuncType

	locals     []local
	upvalues   []upvalueRef
	loops      []loopCtx
	scopeDepth int

	// stringConstants caches the constant-pool index already assigned to a
	// given string literal in this frame's chunk, so repeated literals are
	// deduped rather than re-added (spec.md §4.2 "Constant interning").
	stringConstants map[string]int
}

// CompileError is a single compile-time diagnostic (spec.md §7). Message is
// already formatted as "[line L] Error {at 'LEXEME'|at end}: MESSAGE", or as
// "[line L] Error: MESSAGE" for an error reported by the scanner.
type CompileError struct {
	Line    int
	Message string
}

func (e *CompileError) Error() string { return e.Message }

// Compiler drives the single-pass compile of one source text into a
// top-level value.Function wrapping the script's Chunk (spec.md §4.2).
type Compiler struct {
	scanner *scanner.Scanner

	previous token.Token
	current  token.Token

	cur *frame
	cls *classCtx

	hadError  bool
	panicMode bool
	errs      []error
}

// Compile compiles source into a top-level Function. It always finishes
// scanning (panic-mode recovery synchronizes and keeps going) and returns a
// non-nil Function only if compilation succeeded (spec.md §4.2 "Panic-mode
// recovery": "compile() returns success only if no error occurred").
func Compile(source string) (*value.Function, error) {
	c := &Compiler{scanner: scanner.New(source)}
	c.pushFrame(TypeScript, nil)

	c.advance()
	for !c.match(token.EOF) {
		c.declaration()
	}
	c.consume(token.EOF, "Expect end of expression.")

	fn := c.endFrame()
	if c.hadError {
		return nil, errors.Join(c.errs...)
	}
	return fn, nil
}

func (c *Compiler) pushFrame(t FuncType, name *value.String) {
	fn := &value.Function{Name: name}
	fr := &frame{
		enclosing:       c.cur,
		fn:              fn,
		fnType:          t,
		stringConstants: make(map[string]int),
	}
	// Slot 0 is reserved: `this` for methods/initializers, the callee itself
	// otherwise (spec.md §4.2 "`this` is implicitly bound to local slot 0 of
	// every method and initializer").
	slot0 := ""
	if t == TypeMethod || t == TypeInitializer {
		slot0 = "this"
	}
	fr.locals = append(fr.locals, local{name: slot0, depth: 0})
	c.cur = fr
}

// endFrame finalizes the current frame's chunk (implicit return, spec.md
// §4.2 "Function emission") and pops back to the enclosing frame.
func (c *Compiler) endFrame() *value.Function {
	c.emitReturn()
	fn := c.cur.fn
	fn.UpvalueCount = len(c.cur.upvalues)
	c.cur = c.cur.enclosing
	return fn
}

// --- token stream plumbing ---

func (c *Compiler) advance() {
	c.previous = c.current
	for {
		c.current = c.scanner.Scan()
		if c.current.Kind != token.ILLEGAL {
			break
		}
		c.errorAtCurrent(c.current.Lexeme)
	}
}

func (c *Compiler) check(k token.Kind) bool { return c.current.Kind == k }

func (c *Compiler) match(k token.Kind) bool {
	if !c.check(k) {
		return false
	}
	c.advance()
	return true
}

func (c *Compiler) consume(k token.Kind, msg string) {
	if c.current.Kind == k {
		c.advance()
		return
	}
	c.errorAtCurrent(msg)
}

func (c *Compiler) errorAt(tok token.Token, msg string) {
	if c.panicMode {
		return
	}
	c.panicMode = true
	c.hadError = true

	var where string
	switch tok.Kind {
	case token.EOF:
		where = "at end"
	case token.ILLEGAL:
		where = ""
	default:
		where = fmt.Sprintf("at '%s'", tok.Lexeme)
	}
	var full string
	if where == "" {
		full = fmt.Sprintf("[line %d] Error: %s", tok.Line, msg)
	} else {
		full = fmt.Sprintf("[line %d] Error %s: %s", tok.Line, where, msg)
	}
	c.errs = append(c.errs, &CompileError{Line: tok.Line, Message: full})
}

func (c *Compiler) error(msg string)        { c.errorAt(c.previous, msg) }
func (c *Compiler) errorAtCurrent(msg string) { c.errorAt(c.current, msg) }

// synchronize discards tokens until a likely statement boundary, ending
// panic mode (spec.md §4.2 "Panic-mode recovery").
func (c *Compiler) synchronize() {
	c.panicMode = false
	for c.current.Kind != token.EOF {
		if c.previous.Kind == token.SEMICOLON {
			return
		}
		switch c.current.Kind {
		case token.CLASS, token.FUN, token.VAR, token.FOR, token.IF, token.WHILE, token.PRINT, token.RETURN:
			return
		}
		c.advance()
	}
}

// --- bytecode emission ---

func (c *Compiler) chunk() *value.Chunk { return &c.cur.fn.Chunk }

func (c *Compiler) emitByte(b byte) { c.chunk().Write(b, c.previous.Line) }

func (c *Compiler) emitOp(op value.Opcode) { c.emitByte(byte(op)) }

func (c *Compiler) emitOps(op1, op2 value.Opcode) {
	c.emitByte(byte(op1))
	c.emitByte(byte(op2))
}

// emitShortOrLong emits short with a u8 operand if idx fits in a byte,
// otherwise long with idx as u16 big-endian (spec.md §4.2 "Variable
// emission").
func (c *Compiler) emitShortOrLong(short, long value.Opcode, idx int) {
	if idx <= 0xff {
		c.emitByte(byte(short))
		c.emitByte(byte(idx))
		return
	}
	c.emitByte(byte(long))
	c.chunk().WriteUint16(uint16(idx), c.previous.Line)
}

func (c *Compiler) emitReturn() {
	if c.cur.fnType == TypeInitializer {
		c.emitOp(value.OpGetLocal)
		c.emitByte(0)
		c.emitOp(value.OpReturn)
		return
	}
	c.emitOp(value.OpReturnNil)
}

// emitJump emits a jump instruction with a placeholder 2-byte operand and
// returns the offset of that operand, to be patched later (spec.md §4.2
// "Jump patching").
func (c *Compiler) emitJump(instr value.Opcode) int {
	c.emitOp(instr)
	c.emitByte(0xff)
	c.emitByte(0xff)
	return len(c.chunk().Code) - 2
}

func (c *Compiler) patchJump(offset int) {
	jump := len(c.chunk().Code) - offset - 2
	if jump > 0xffff {
		c.error("Too much code to jump over.")
		return
	}
	c.chunk().Code[offset] = byte(jump >> 8)
	c.chunk().Code[offset+1] = byte(jump)
}

// emitLoop emits OP_JUMP_BACKWARDS back to loopStart (spec.md §4.2 "Jump
// patching").
func (c *Compiler) emitLoop(loopStart int) {
	c.emitOp(value.OpJumpBackwards)
	offset := len(c.chunk().Code) - loopStart + 2
	if offset > 0xffff {
		c.error("Loop body too large.")
	}
	c.emitByte(byte(offset >> 8))
	c.emitByte(byte(offset))
}

func (c *Compiler) makeConstant(v value.Value) int {
	idx, err := c.chunk().AddConstant(v)
	if err != nil {
		c.error(err.Error())
		return 0
	}
	return idx
}

// emitNumber picks OP_BYTE_NUM for small non-negative integral literals or
// OP_CONSTANT[_LONG] otherwise (spec.md §4.2 "Number emission").
func (c *Compiler) emitNumber(v float64) {
	if v >= 0 && v <= 255 && v == math.Trunc(v) {
		c.emitOp(value.OpByteNum)
		c.emitByte(byte(v))
		return
	}
	idx := c.makeConstant(value.Number(v))
	c.emitShortOrLong(value.OpConstant, value.OpConstantLong, idx)
}

// stringConstant interns the given string content as a constant in the
// current chunk, reusing the frame's per-chunk dedupe cache (spec.md §4.2
// "Constant interning").
func (c *Compiler) stringConstant(s string) int {
	if idx, ok := c.cur.stringConstants[s]; ok {
		return idx
	}
	idx := c.makeConstant(value.NewString(s))
	c.cur.stringConstants[s] = idx
	return idx
}

func (c *Compiler) identifierConstant(name string) int { return c.stringConstant(name) }
