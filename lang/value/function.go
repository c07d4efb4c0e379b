package value

import "fmt"

// Function is the compiled form of a function or lambda body, or of the
// implicit top-level script (spec.md §3, §4.2). It owns its Chunk; a
// Function is immutable once the compiler finishes emitting into it.
type Function struct {
	ObjHeader
	Name         *String // nil for the top-level script
	Arity        int
	UpvalueCount int
	Chunk        Chunk
}

func (fn *Function) String() string {
	if fn.Name == nil {
		return "<script>"
	}
	return fmt.Sprintf("<fun %s>", fn.Name.Go())
}
func (fn *Function) Type() string { return "function" }

// Closure pairs a Function with the Upvalues it captured when created
// (spec.md §3). A Closure does not own its Function: several closures may
// share the same Function (e.g. a function recreated on every loop
// iteration that closes over different locals).
type Closure struct {
	ObjHeader
	Fn       *Function
	Upvalues []*Upvalue
}

func (c *Closure) String() string { return c.Fn.String() }
func (c *Closure) Type() string   { return "closure" }
func (c *Closure) Name() string {
	if c.Fn.Name == nil {
		return ""
	}
	return c.Fn.Name.Go()
}
