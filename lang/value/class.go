package value

import "fmt"

// Class is a class value: a name and a method table (spec.md §3). Method
// lookup on an Instance falls through to its Class's Methods table; single
// inheritance is implemented at class-creation time by copying the
// superclass's Methods entries into the subclass's table (OP_INHERIT,
// spec.md §4.2/§4.4), after which overriding a method is simply redefining
// it in the subclass's own table.
type Class struct {
	ObjHeader
	Name    *String
	Methods *Table
}

// NewClass returns a new, method-less Class named name.
func NewClass(name *String) *Class {
	return &Class{Name: name, Methods: NewTable(0)}
}

func (c *Class) String() string { return fmt.Sprintf("<class %s>", c.Name.Go()) }
func (c *Class) Type() string   { return "class" }

// Instance is an instance of a Class: the class reference plus a field
// table (spec.md §3).
type Instance struct {
	ObjHeader
	Class  *Class
	Fields *Table
}

// NewInstance returns a new, field-less Instance of cls.
func NewInstance(cls *Class) *Instance {
	return &Instance{Class: cls, Fields: NewTable(0)}
}

func (i *Instance) String() string {
	return fmt.Sprintf("<%s instance at %p>", i.Class.Name.Go(), i)
}
func (i *Instance) Type() string { return i.Class.Name.Go() }

// BoundMethod pairs a receiver value with the Closure to invoke for it
// (spec.md §3), produced when a method is read off an instance as a value
// (rather than immediately invoked via OP_INVOKE).
type BoundMethod struct {
	ObjHeader
	Receiver Value
	Method   *Closure
}

func (b *BoundMethod) String() string {
	return fmt.Sprintf("<bound method %s of object '%s'>", b.Method.Name(), b.Receiver.String())
}
func (b *BoundMethod) Type() string { return "bound method" }
