// Package value implements the runtime value representation shared by the
// compiler (which emits constants of these types into a Chunk) and the
// virtual machine (which operates on them): the tagged Value union, the
// heap object model, the bytecode Chunk and opcode table, the open-addressed
// hash table, and stringification (spec.md §3, §4.3, §4.4, §4.6).
package value

import "fmt"

// Value is implemented by every value the machine can hold: Nil, Bool,
// Number, and every heap object (String, Function, Closure, Upvalue, Class,
// Instance, BoundMethod, NativeFn, Array). An Int variant is also defined,
// but neither the compiler nor the VM creates Int values.
type Value interface {
	String() string
	Type() string
}

// Nil is the type of the nil value. There is exactly one Nil value.
type Nil struct{}

func (Nil) String() string { return "nil" }
func (Nil) Type() string   { return "nil" }

// NilValue is the sole Nil value.
var NilValue = Nil{}

// Bool is the boolean value type.
type Bool bool

func (b Bool) String() string {
	if b {
		return "true"
	}
	return "false"
}
func (Bool) Type() string { return "boolean" }

// Number is an IEEE-754 double-precision value (spec.md §3: "number (double)"
// is the only numeric Value variant).
type Number float64

func (n Number) String() string { return fmt.Sprintf("%g", float64(n)) }
func (Number) Type() string     { return "number" }

// Int is an integer Value variant whose type name is "int". No code path in
// the compiler or the VM produces one: the compiler tracks constant-pool
// indices as plain Go ints.
type Int int

func (i Int) String() string { return fmt.Sprintf("%d", int(i)) }
func (Int) Type() string     { return "int" }

// Truthy implements the language's truthiness rule (spec.md §4.4): nil is
// falsey, false is falsey, the number 0 is falsey, the empty string is
// falsey, everything else is truthy.
func Truthy(v Value) bool {
	switch vv := v.(type) {
	case Nil:
		return false
	case Bool:
		return bool(vv)
	case Number:
		return float64(vv) != 0
	case *String:
		return len(vv.s) > 0
	default:
		return true
	}
}
