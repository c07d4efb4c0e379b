package value

// Stringify produces the human-readable form of v used by the PRINT opcode,
// runtime diagnostics, and the toString native (spec.md §4.6). Every Value
// variant's String method already returns exactly this form, so Stringify is
// a thin, named entry point rather than a type switch — it exists so call
// sites document *why* they call String (producing the language's textual
// representation) rather than e.g. a debug dump.
func Stringify(v Value) string { return v.String() }

// TypeName returns the value returned by the getTypeName native (spec.md
// §6): the Type() of v, except that an Instance reports its class's name
// instead of the generic "instance" (Type() on *Instance already does this,
// see class.go), and nil is reported as "nil" per the native's documented
// contract.
func TypeName(v Value) string {
	if v == nil {
		return "nil"
	}
	return v.Type()
}
