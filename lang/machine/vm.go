package machine

import (
	"fmt"
	"io"
	"math"
	"os"
	"time"
	"unsafe"

	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
)

// MaxFrames bounds the call-frame stack (spec.md §3 "call frames ≤ 256").
const MaxFrames = 256

// stackSize is the fixed capacity of the operand stack: frames_max × 256,
// matching spec.md §3 and original_source/vm.h's
// `STACK_MAX (FRAMES_MAX * UINT8_COUNT)` exactly, since a single frame may
// hold up to 256 locals on this same contiguous buffer (spec.md §5 "operand
// stack (a contiguous buffer, stack_top pointer)").
const stackSize = MaxFrames * 256

// VM is the stack-based bytecode interpreter (spec.md §5). It owns every
// garbage-collection root: the operand stack, the call-frame stack, the
// globals table, the string intern table, and the open-upvalue list.
type VM struct {
	stack    [stackSize]value.Value
	stackTop int

	frames     [MaxFrames]CallFrame
	frameCount int

	globals *value.Table
	strings map[string]*value.String

	openUpvalues *value.Upvalue

	objects         value.Obj
	gray            []value.Obj
	bytesAllocated int
	nextGC          int

	initString *value.String
	startTime  time.Time

	Stdout io.Writer
	Stderr io.Writer
}

// New creates a VM ready to interpret programs. Stdout/Stderr are set to
// os.Stdout/os.Stderr and may be replaced by the caller, following the
// teacher's Thread I/O abstraction convention. startTime anchors the clock() native (spec.md §6
// "seconds since process start").
func New() *VM {
	vm := &VM{
		globals:   value.NewTable(16),
		strings:   make(map[string]*value.String),
		nextGC:    gcMinThreshold,
		startTime: time.Now(),
		Stdout:    os.Stdout,
		Stderr:    os.Stderr,
	}
	vm.initString = vm.internString("init")
	vm.defineNatives()
	return vm
}

// internString returns the canonical *value.String for s, creating and
// registering one if this is the first time s is seen (spec.md §4.5
// "String interning").
func (vm *VM) internString(s string) *value.String {
	if existing, ok := vm.strings[s]; ok {
		return existing
	}
	str := value.NewString(s)
	vm.strings[s] = str
	vm.track(str)
	return str
}

func (vm *VM) push(v value.Value) {
	vm.stack[vm.stackTop] = v
	vm.stackTop++
}

func (vm *VM) pop() value.Value {
	vm.stackTop--
	return vm.stack[vm.stackTop]
}

func (vm *VM) peek(distance int) value.Value {
	return vm.stack[vm.stackTop-1-distance]
}

func (vm *VM) resetStack() {
	vm.stackTop = 0
	vm.frameCount = 0
	vm.openUpvalues = nil
}

// Interpret compiles and runs source to completion (spec.md §5 "Data
// flow"): the resulting top-level Function is wrapped in a zero-upvalue
// Closure and pushed at stack slot 0 before the run loop starts.
func (vm *VM) Interpret(source string) error {
	fn, err := compiler.Compile(source)
	if err != nil {
		return err
	}

	closure := vm.newClosure(fn)
	vm.push(closure)
	if err := vm.callValue(closure, 0); err != nil {
		return err
	}

	return vm.run()
}

// newClosure allocates a Closure over fn with one Upvalue slot per fn's
// declared upvalue count, left nil until CLOSURE's operand bytes populate
// them.
func (vm *VM) newClosure(fn *value.Function) *value.Closure {
	cl := &value.Closure{Fn: fn, Upvalues: make([]*value.Upvalue, fn.UpvalueCount)}
	vm.track(cl)
	return cl
}

func (vm *VM) currentFrame() *CallFrame { return &vm.frames[vm.frameCount-1] }

// run is the fetch-decode-dispatch loop (spec.md §5 "Dispatch loop"). The
// local `frame` pointer is refreshed after any opcode that may have changed
// the active call frame.
func (vm *VM) run() error {
	frame := vm.currentFrame()

	for {
		op := value.Opcode(frame.readByte())

		switch op {
		case value.OpConstant:
			vm.push(frame.readConstant(int(frame.readByte())))
		case value.OpConstantLong:
			vm.push(frame.readConstant(int(frame.readUint16())))
		case value.OpByteNum:
			vm.push(value.Number(frame.readByte()))

		case value.OpNil:
			vm.push(value.NilValue)
		case value.OpTrue:
			vm.push(value.Bool(true))
		case value.OpFalse:
			vm.push(value.Bool(false))

		case value.OpPop:
			vm.pop()

		case value.OpEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(valuesEqual(a, b)))
		case value.OpNotEqual:
			b, a := vm.pop(), vm.pop()
			vm.push(value.Bool(!valuesEqual(a, b)))

		case value.OpGreater, value.OpGreaterEqual, value.OpLess, value.OpLessEqual:
			if err := vm.comparisonOp(op); err != nil {
				return vm.reportAndReset(err)
			}

		case value.OpAdd:
			if err := vm.addOp(); err != nil {
				return vm.reportAndReset(err)
			}
		case value.OpSubtract, value.OpMultiply, value.OpDivide,
			value.OpShiftLeft, value.OpShiftRight, value.OpBitAnd, value.OpBitOr, value.OpBitXor:
			if err := vm.numericOp(op); err != nil {
				return vm.reportAndReset(err)
			}

		case value.OpNegate:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.reportAndReset(vm.runtimeError("Operand must be a number."))
			}
			vm.pop()
			vm.push(-n)
		case value.OpNot:
			vm.push(value.Bool(!value.Truthy(vm.pop())))
		case value.OpInvert:
			n, ok := vm.peek(0).(value.Number)
			if !ok {
				return vm.reportAndReset(vm.runtimeError("Operand must be a number."))
			}
			vm.pop()
			vm.push(-n - 1)

		case value.OpDefineGlobal:
			name := frame.readConstant(int(frame.readByte())).(*value.String)
			vm.globals.Set(name.Go(), vm.pop())
		case value.OpDefineGlobalLong:
			name := frame.readConstant(int(frame.readUint16())).(*value.String)
			vm.globals.Set(name.Go(), vm.pop())

		case value.OpGetGlobal, value.OpGetGlobalLong:
			var name *value.String
			if op == value.OpGetGlobal {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			v, ok := vm.globals.Get(name.Go())
			if !ok {
				return vm.reportAndReset(vm.runtimeError("Undefined variable '%s'.", name.Go()))
			}
			vm.push(v)

		case value.OpSetGlobal, value.OpSetGlobalLong:
			var name *value.String
			if op == value.OpSetGlobal {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			if isNew := vm.globals.Set(name.Go(), vm.peek(0)); isNew {
				vm.globals.Delete(name.Go())
				return vm.reportAndReset(vm.runtimeError("Undefined variable '%s'.", name.Go()))
			}

		case value.OpGetLocal:
			slot := int(frame.readByte())
			vm.push(vm.stack[frame.slots+slot])
		case value.OpSetLocal:
			slot := int(frame.readByte())
			vm.stack[frame.slots+slot] = vm.peek(0)

		case value.OpGetUpvalue:
			slot := int(frame.readByte())
			uv := frame.closure.Upvalues[slot]
			vm.push(*uv.Location)
		case value.OpSetUpvalue:
			slot := int(frame.readByte())
			uv := frame.closure.Upvalues[slot]
			*uv.Location = vm.peek(0)

		case value.OpGetProperty, value.OpGetPropertyLong:
			var name *value.String
			if op == value.OpGetProperty {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			v, err := vm.getProperty(vm.peek(0), name.Go())
			if err != nil {
				return vm.reportAndReset(err)
			}
			vm.pop()
			vm.push(v)

		case value.OpSetProperty, value.OpSetPropertyLong:
			var name *value.String
			if op == value.OpSetProperty {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			inst, ok := vm.peek(1).(*value.Instance)
			if !ok {
				return vm.reportAndReset(vm.runtimeError("Only instances have fields."))
			}
			inst.Fields.Set(name.Go(), vm.peek(0))
			v := vm.pop()
			vm.pop()
			vm.push(v)

		case value.OpGetSuper, value.OpGetSuperLong:
			var name *value.String
			if op == value.OpGetSuper {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			super := vm.pop().(*value.Class)
			receiver := vm.pop()
			bound, err := vm.bindMethod(super, receiver, name.Go())
			if err != nil {
				return vm.reportAndReset(err)
			}
			vm.push(bound)

		case value.OpJump:
			offset := frame.readUint16()
			frame.ip += int(offset)
		case value.OpJumpIfFalse:
			offset := frame.readUint16()
			if !value.Truthy(vm.peek(0)) {
				frame.ip += int(offset)
			}
		case value.OpJumpIfTrue:
			offset := frame.readUint16()
			if value.Truthy(vm.peek(0)) {
				frame.ip += int(offset)
			}
		case value.OpJumpBackwards:
			offset := frame.readUint16()
			frame.ip -= int(offset)

		case value.OpCall:
			argCount := int(frame.readByte())
			callee := vm.peek(argCount)
			if err := vm.callValue(callee, argCount); err != nil {
				return vm.reportAndReset(err)
			}
			frame = vm.currentFrame()

		case value.OpInvoke, value.OpInvokeLong:
			var name *value.String
			if op == value.OpInvoke {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			argCount := int(frame.readByte())
			if err := vm.invoke(name.Go(), argCount); err != nil {
				return vm.reportAndReset(err)
			}
			frame = vm.currentFrame()

		case value.OpSuperInvoke, value.OpSuperInvokeLong:
			var name *value.String
			if op == value.OpSuperInvoke {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			argCount := int(frame.readByte())
			super := vm.pop().(*value.Class)
			if err := vm.invokeFromClass(super, name.Go(), argCount); err != nil {
				return vm.reportAndReset(err)
			}
			frame = vm.currentFrame()

		case value.OpClosure, value.OpClosureLong:
			var fn *value.Function
			if op == value.OpClosure {
				fn = frame.readConstant(int(frame.readByte())).(*value.Function)
			} else {
				fn = frame.readConstant(int(frame.readUint16())).(*value.Function)
			}
			closure := vm.newClosure(fn)
			vm.push(closure)
			for i := range closure.Upvalues {
				isLocal := frame.readByte()
				index := int(frame.readByte())
				if isLocal != 0 {
					closure.Upvalues[i] = vm.captureUpvalue(frame.slots + index)
				} else {
					closure.Upvalues[i] = frame.closure.Upvalues[index]
				}
			}

		case value.OpCloseUpvalue:
			vm.closeUpvalues(vm.stackTop - 1)
			vm.pop()

		case value.OpReturn, value.OpReturnNil:
			var result value.Value = value.NilValue
			if op == value.OpReturn {
				result = vm.pop()
			}
			vm.closeUpvalues(frame.slots)
			vm.frameCount--
			if vm.frameCount == 0 {
				vm.pop()
				return nil
			}
			vm.stackTop = frame.slots
			vm.push(result)
			frame = vm.currentFrame()

		case value.OpClass, value.OpClassLong:
			var name *value.String
			if op == value.OpClass {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			cls := value.NewClass(name)
			vm.track(cls)
			vm.push(cls)

		case value.OpInherit:
			sup, ok := vm.peek(1).(*value.Class)
			if !ok {
				return vm.reportAndReset(vm.runtimeError("Superclass must be a class."))
			}
			sub := vm.peek(0).(*value.Class)
			sup.Methods.Each(func(name string, m value.Value) { sub.Methods.Set(name, m) })
			vm.pop() // the temporary subclass reference; "super" stays bound to sup

		case value.OpMethod, value.OpMethodLong:
			var name *value.String
			if op == value.OpMethod {
				name = frame.readConstant(int(frame.readByte())).(*value.String)
			} else {
				name = frame.readConstant(int(frame.readUint16())).(*value.String)
			}
			vm.defineMethod(name.Go())

		case value.OpNewArray:
			count := int(frame.readUint16())
			elems := make([]value.Value, count)
			copy(elems, vm.stack[vm.stackTop-count:vm.stackTop])
			vm.stackTop -= count
			arr := value.NewArray(elems)
			vm.track(arr)
			vm.push(arr)

		case value.OpSubscript:
			idx := vm.pop()
			recv := vm.pop()
			v, err := vm.subscriptGet(recv, idx)
			if err != nil {
				return vm.reportAndReset(err)
			}
			vm.push(v)

		case value.OpSubscriptAssign:
			val := vm.pop()
			idx := vm.pop()
			recv := vm.pop()
			if err := vm.subscriptSet(recv, idx, val); err != nil {
				return vm.reportAndReset(err)
			}
			vm.push(val)

		case value.OpPrint:
			fmt.Fprintln(vm.Stdout, value.Stringify(vm.pop()))

		default:
			return vm.reportAndReset(vm.runtimeError("unimplemented opcode %s", op))
		}
	}
}

func (vm *VM) reportAndReset(err error) error {
	vm.resetStack()
	return err
}

// --- arithmetic / comparison ---

func valuesEqual(a, b value.Value) bool {
	switch x := a.(type) {
	case value.Nil:
		_, ok := b.(value.Nil)
		return ok
	case value.Bool:
		y, ok := b.(value.Bool)
		return ok && x == y
	case value.Number:
		y, ok := b.(value.Number)
		return ok && x == y
	case *value.String:
		// The compiler builds constant strings independently of any VM
		// instance (it has nothing to intern into), so only strings created
		// at run time via the VM's own intern table are guaranteed
		// pointer-identical; comparing by content here gives both the same
		// observable result without requiring the compiler to hold a VM
		// reference.
		y, ok := b.(*value.String)
		return ok && x.Go() == y.Go()
	default:
		// Every other heap object variant compares by identity.
		return a == b
	}
}

func toInt64(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int64(f)
}

// addOp implements the permissive OP_ADD variant resolved in spec.md's Open
// Questions: if either operand is a string, both are stringified and
// concatenated; otherwise both must be numbers.
func (vm *VM) addOp() error {
	b := vm.peek(0)
	a := vm.peek(1)

	_, aStr := a.(*value.String)
	_, bStr := b.(*value.String)
	if aStr || bStr {
		vm.pop()
		vm.pop()
		vm.push(vm.internString(value.Stringify(a) + value.Stringify(b)))
		return nil
	}

	an, aOk := a.(value.Number)
	bn, bOk := b.(value.Number)
	if !aOk || !bOk {
		return vm.runtimeError("Operands must be two numbers or at least one string.")
	}
	vm.pop()
	vm.pop()
	vm.push(an + bn)
	return nil
}

func (vm *VM) numericOp(op value.Opcode) error {
	b, bOk := vm.peek(0).(value.Number)
	a, aOk := vm.peek(1).(value.Number)
	if !aOk || !bOk {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case value.OpSubtract:
		vm.push(a - b)
	case value.OpMultiply:
		vm.push(a * b)
	case value.OpDivide:
		vm.push(a / b)
	case value.OpShiftLeft:
		vm.push(value.Number(toInt64(float64(a)) << uint(toInt64(float64(b)))))
	case value.OpShiftRight:
		vm.push(value.Number(toInt64(float64(a)) >> uint(toInt64(float64(b)))))
	case value.OpBitAnd:
		vm.push(value.Number(toInt64(float64(a)) & toInt64(float64(b))))
	case value.OpBitOr:
		vm.push(value.Number(toInt64(float64(a)) | toInt64(float64(b))))
	case value.OpBitXor:
		vm.push(value.Number(toInt64(float64(a)) ^ toInt64(float64(b))))
	}
	return nil
}

func (vm *VM) comparisonOp(op value.Opcode) error {
	b, bOk := vm.peek(0).(value.Number)
	a, aOk := vm.peek(1).(value.Number)
	if !aOk || !bOk {
		return vm.runtimeError("Operands must be numbers.")
	}
	vm.pop()
	vm.pop()

	switch op {
	case value.OpGreater:
		vm.push(value.Bool(a > b))
	case value.OpGreaterEqual:
		vm.push(value.Bool(a >= b))
	case value.OpLess:
		vm.push(value.Bool(a < b))
	case value.OpLessEqual:
		vm.push(value.Bool(a <= b))
	}
	return nil
}

// --- calls ---

func (vm *VM) callValue(callee value.Value, argCount int) error {
	switch c := callee.(type) {
	case *value.Closure:
		return vm.call(c, argCount)
	case *value.NativeFn:
		return vm.callNative(c, argCount)
	case *value.Class:
		inst := value.NewInstance(c)
		vm.track(inst)
		vm.stack[vm.stackTop-argCount-1] = inst
		if init, ok := c.Methods.Get(vm.initString.Go()); ok {
			return vm.call(init.(*value.Closure), argCount)
		}
		if argCount != 0 {
			return vm.runtimeError("Expected 0 arguments but got %d.", argCount)
		}
		return nil
	case *value.BoundMethod:
		vm.stack[vm.stackTop-argCount-1] = c.Receiver
		return vm.call(c.Method, argCount)
	default:
		return vm.runtimeError("Can only call functions and classes.")
	}
}

func (vm *VM) call(closure *value.Closure, argCount int) error {
	if argCount != closure.Fn.Arity {
		return vm.runtimeError("Expected %d arguments but got %d.", closure.Fn.Arity, argCount)
	}
	if vm.frameCount >= MaxFrames {
		return vm.runtimeError("Stack overflow.")
	}
	vm.frames[vm.frameCount] = CallFrame{
		closure: closure,
		ip:      0,
		slots:   vm.stackTop - argCount - 1,
	}
	vm.frameCount++
	return nil
}

func (vm *VM) callNative(nat *value.NativeFn, argCount int) error {
	args := vm.stack[vm.stackTop-argCount : vm.stackTop]
	result, err := nat.Fn(args)
	if err != nil {
		return err
	}
	if result == value.NativeFailure {
		return vm.runtimeError("Call to native function '%s' failed.", nat.Name)
	}
	vm.stackTop -= argCount + 1
	vm.push(result)
	return nil
}

// invoke fuses property-get and call: if the receiver instance has a field
// by that name, it is called as a value; otherwise the class method table
// is consulted directly, skipping BoundMethod allocation (spec.md §5
// "Method resolution").
func (vm *VM) invoke(name string, argCount int) error {
	receiver := vm.peek(argCount)
	inst, ok := receiver.(*value.Instance)
	if !ok {
		return vm.runtimeError("Only instances have methods.")
	}
	if field, ok := inst.Fields.Get(name); ok {
		vm.stack[vm.stackTop-argCount-1] = field
		return vm.callValue(field, argCount)
	}
	return vm.invokeFromClass(inst.Class, name, argCount)
}

func (vm *VM) invokeFromClass(cls *value.Class, name string, argCount int) error {
	method, ok := cls.Methods.Get(name)
	if !ok {
		return vm.runtimeError("Undefined property '%s'.", name)
	}
	return vm.call(method.(*value.Closure), argCount)
}

// getProperty implements spec.md §5 "Property get on instance": field
// lookup first, otherwise bind the class method into a BoundMethod.
func (vm *VM) getProperty(recv value.Value, name string) (value.Value, error) {
	inst, ok := recv.(*value.Instance)
	if !ok {
		return nil, vm.runtimeError("Only instances have properties.")
	}
	if v, ok := inst.Fields.Get(name); ok {
		return v, nil
	}
	return vm.bindMethod(inst.Class, recv, name)
}

// bindMethod looks up name on cls's method table and, if found, allocates a
// BoundMethod pairing it with receiver. It returns an error iff the method
// was not found: callers get (bound, nil) or (nil, err).
func (vm *VM) bindMethod(cls *value.Class, receiver value.Value, name string) (value.Value, error) {
	method, ok := cls.Methods.Get(name)
	if !ok {
		return nil, vm.runtimeError("Undefined property '%s'.", name)
	}
	bound := &value.BoundMethod{Receiver: receiver, Method: method.(*value.Closure)}
	vm.track(bound)
	return bound, nil
}

func (vm *VM) defineMethod(name string) {
	method := vm.peek(0)
	cls := vm.peek(1).(*value.Class)
	cls.Methods.Set(name, method)
	vm.pop()
}

// --- upvalues ---

// slotIndex recovers the absolute stack index a Location pointer refers to.
// The open-upvalue list needs to stay ordered by stack address (spec.md §5
// "sorted by descending stack-slot address"); Go forbids relational
// operators on pointers, so the index is recovered via its offset into the
// stack array instead.
func (vm *VM) slotIndex(p *value.Value) int {
	return int((uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(&vm.stack[0]))) / unsafe.Sizeof(vm.stack[0]))
}

// captureUpvalue returns the open Upvalue for the given absolute stack
// index, reusing an existing entry if one is already open for that slot
// (spec.md §5 "Upvalue capture").
func (vm *VM) captureUpvalue(index int) *value.Upvalue {
	var prev *value.Upvalue
	uv := vm.openUpvalues
	for uv != nil && vm.slotIndex(uv.Location) > index {
		prev = uv
		uv = uv.NextOpen
	}
	if uv != nil && vm.slotIndex(uv.Location) == index {
		return uv
	}

	created := &value.Upvalue{Location: &vm.stack[index]}
	vm.track(created)
	created.NextOpen = uv
	if prev == nil {
		vm.openUpvalues = created
	} else {
		prev.NextOpen = created
	}
	return created
}

// closeUpvalues closes every open upvalue whose stack slot is at or above
// the given absolute index (spec.md §5 "Closing").
func (vm *VM) closeUpvalues(fromIndex int) {
	for vm.openUpvalues != nil && vm.slotIndex(vm.openUpvalues.Location) >= fromIndex {
		uv := vm.openUpvalues
		uv.Close()
		vm.openUpvalues = uv.NextOpen
		uv.NextOpen = nil
	}
}

// --- subscripting ---

func (vm *VM) subscriptGet(recv, idx value.Value) (value.Value, error) {
	arr, ok := recv.(*value.Array)
	if !ok {
		return nil, vm.runtimeError("Only arrays support subscript access.")
	}
	i, ok := idx.(value.Number)
	if !ok {
		return nil, vm.runtimeError("Array index must be a number.")
	}
	n := int(i)
	if n < 0 || n >= arr.Len() {
		return nil, vm.runtimeError("Array index out of bounds.")
	}
	return arr.Get(n), nil
}

func (vm *VM) subscriptSet(recv, idx, val value.Value) error {
	arr, ok := recv.(*value.Array)
	if !ok {
		return vm.runtimeError("Only arrays support subscript assignment.")
	}
	i, ok := idx.(value.Number)
	if !ok {
		return vm.runtimeError("Array index must be a number.")
	}
	n := int(i)
	if n < 0 || n >= arr.Len() {
		return vm.runtimeError("Array index out of bounds.")
	}
	arr.Set(n, val)
	return nil
}
