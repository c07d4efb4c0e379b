package value

// Upvalue is a level of indirection through which a Closure reaches a
// variable that outlives the activation which declared it (spec.md §3,
// glossary). While Location points at a VM stack slot, the upvalue is "open";
// once closed, Location points at the upvalue's own Closed field and the slot
// may be reused.
//
// Open upvalues are linked, per VM, in a singly-linked list sorted by
// descending stack-slot address (spec.md §3 invariant); NextOpen implements
// that intrusive list. At most one open Upvalue exists for a given slot.
type Upvalue struct {
	ObjHeader
	Location *Value
	Closed   Value
	NextOpen *Upvalue
}

func (u *Upvalue) String() string { return "upvalue" }
func (u *Upvalue) Type() string   { return "upvalue" }

// Close copies the current value at Location into Closed and redirects
// Location to point at it, detaching the upvalue from the stack slot it used
// to track (spec.md §3 "Lifecycles").
func (u *Upvalue) Close() {
	u.Closed = *u.Location
	u.Location = &u.Closed
}
