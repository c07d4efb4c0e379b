package value

// Obj is implemented by every heap-allocated Value variant (spec.md §3
// "Heap objects"). Each carries a GC header: a mark bit and an intrusive
// "next" pointer threading every live object into the VM's single object
// list, which is the sole liveness authority between mark phases (spec.md §3
// invariant).
type Obj interface {
	Value
	header() *ObjHeader
}

// ObjHeader is embedded by every heap object type. GC (spec.md §4.7) reads
// and writes it directly; nothing outside the value and machine packages
// should touch it.
type ObjHeader struct {
	Marked bool
	Next   Obj
}

func (h *ObjHeader) header() *ObjHeader { return h }

var (
	_ Obj = (*String)(nil)
	_ Obj = (*Function)(nil)
	_ Obj = (*Closure)(nil)
	_ Obj = (*Upvalue)(nil)
	_ Obj = (*Class)(nil)
	_ Obj = (*Instance)(nil)
	_ Obj = (*BoundMethod)(nil)
	_ Obj = (*NativeFn)(nil)
	_ Obj = (*Array)(nil)
)

// Header exposes an object's GC header (used by package machine's collector
// and by tests). Kept as a free function, rather than exporting Obj's
// unexported method, so the mark/sweep bookkeeping stays a value/machine
// concern without widening the public Obj interface unnecessarily.
func Header(o Obj) *ObjHeader { return o.header() }
