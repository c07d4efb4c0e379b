package machine

import (
	"unsafe"

	"github.com/mna/loxvm/lang/value"
)

// sizeofValue and sizeofPtr are the per-slot costs of the two backing-slice
// element kinds tracked objects grow: a Value (an interface, two words) for
// Array.Elems, and a pointer (one word) for Closure.Upvalues.
const (
	sizeofValue = unsafe.Sizeof(value.Value(nil))
	sizeofPtr   = unsafe.Sizeof((*value.Upvalue)(nil))
)

// sizeOf estimates the heap footprint of a freshly allocated object for the
// GC's bytesAllocated accounting (spec.md §5 "every created heap object ...
// must notify the GC of delta bytes to keep the bytes_allocated counter
// honest"): the struct header plus, for the two variants with a backing
// slice, the slice's current length.
func sizeOf(o value.Obj) int {
	switch v := o.(type) {
	case *value.String:
		return int(unsafe.Sizeof(*v)) + v.Len()
	case *value.Function:
		return int(unsafe.Sizeof(*v))
	case *value.Closure:
		return int(unsafe.Sizeof(*v)) + len(v.Upvalues)*int(sizeofPtr)
	case *value.Upvalue:
		return int(unsafe.Sizeof(*v))
	case *value.Class:
		return int(unsafe.Sizeof(*v))
	case *value.Instance:
		return int(unsafe.Sizeof(*v))
	case *value.BoundMethod:
		return int(unsafe.Sizeof(*v))
	case *value.NativeFn:
		return int(unsafe.Sizeof(*v))
	case *value.Array:
		return int(unsafe.Sizeof(*v)) + len(v.Elems)*int(sizeofValue)
	default:
		return 0
	}
}

// gcHeapGrowFactor mirrors clox's default: each collection moves the next
// collection threshold to growFactor times the heap size retained by the
// collection that just ran.
const gcHeapGrowFactor = 2

// collectGarbage runs one full mark-and-sweep cycle over every VM root:
// the value stack, the call-frame closures, globals, open upvalues, and the
// interned "init" string (spec.md §5 "Garbage collection roots"). The rest of
// the string intern table is weak: an interned string that is not otherwise
// reached is removed from it by sweep. Compile-time
// constants (numbers, strings, nested functions) are not tracked by this
// allocator at all: they live inside a reachable Function's Chunk and are
// kept alive transitively once that Function is marked, the same way clox
// never frees a chunk's constant pool during normal execution.
func (vm *VM) collectGarbage() {
	vm.gray = vm.gray[:0]

	for i := 0; i < vm.stackTop; i++ {
		vm.markValue(vm.stack[i])
	}
	for i := range vm.frames[:vm.frameCount] {
		vm.markObject(vm.frames[i].closure)
	}
	for uv := vm.openUpvalues; uv != nil; uv = uv.NextOpen {
		vm.markObject(uv)
	}
	vm.markTable(vm.globals)
	vm.markObject(vm.initString)

	for len(vm.gray) > 0 {
		o := vm.gray[len(vm.gray)-1]
		vm.gray = vm.gray[:len(vm.gray)-1]
		vm.blacken(o)
	}

	vm.sweep()
	vm.nextGC = vm.bytesAllocated * gcHeapGrowFactor
	if vm.nextGC < gcMinThreshold {
		vm.nextGC = gcMinThreshold
	}
}

const gcMinThreshold = 1 << 20

func (vm *VM) markValue(v value.Value) {
	if o, ok := v.(value.Obj); ok {
		vm.markObject(o)
	}
}

func (vm *VM) markObject(o value.Obj) {
	if o == nil {
		return
	}
	h := value.Header(o)
	if h.Marked {
		return
	}
	h.Marked = true
	vm.gray = append(vm.gray, o)
}

func (vm *VM) markTable(t *value.Table) {
	t.Each(func(_ string, v value.Value) { vm.markValue(v) })
}

// blacken traces the outgoing references of an already-marked object,
// graying anything it points to (spec.md §5 "Tracing").
func (vm *VM) blacken(o value.Obj) {
	switch obj := o.(type) {
	case *value.String:
		// no outgoing references

	case *value.Upvalue:
		vm.markValue(*obj.Location)
		vm.markValue(obj.Closed)

	case *value.Function:
		vm.markObject(obj.Name)
		for _, k := range obj.Chunk.Constants {
			vm.markValue(k)
		}

	case *value.Closure:
		vm.markObject(obj.Fn)
		for _, uv := range obj.Upvalues {
			vm.markObject(uv)
		}

	case *value.Class:
		vm.markObject(obj.Name)
		vm.markTable(obj.Methods)

	case *value.Instance:
		vm.markObject(obj.Class)
		vm.markTable(obj.Fields)

	case *value.BoundMethod:
		vm.markValue(obj.Receiver)
		vm.markObject(obj.Method)

	case *value.Array:
		for _, e := range obj.Elems {
			vm.markValue(e)
		}

	case *value.NativeFn:
		// no outgoing references
	}
}

// sweep walks the intrusive allocation list, freeing every object that was
// not marked during this cycle and unlinking it from both the allocation
// list and (for strings) the intern table.
func (vm *VM) sweep() {
	var prev value.Obj
	obj := vm.objects
	for obj != nil {
		h := value.Header(obj)
		if h.Marked {
			h.Marked = false
			prev = obj
			obj = h.Next
			continue
		}

		unreached := obj
		obj = h.Next
		if prev != nil {
			value.Header(prev).Next = obj
		} else {
			vm.objects = obj
		}
		if s, ok := unreached.(*value.String); ok {
			delete(vm.strings, s.Go())
		}
	}
}

// track links a freshly allocated object into the VM's object list (the
// list sweep walks) and triggers a collection if the configured budget has been exceeded
// (spec.md §5 "Collection trigger"). The object's estimated size (sizeOf)
// is added to bytesAllocated so every heap allocation — not just
// string-interning — pushes the VM toward its next collection.
func (vm *VM) track(o value.Obj) value.Obj {
	h := value.Header(o)
	h.Next = vm.objects
	vm.objects = o
	vm.bytesAllocated += sizeOf(o)

	if vm.bytesAllocated > vm.nextGC {
		vm.collectGarbage()
	}
	return o
}
