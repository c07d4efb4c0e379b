package machine

import (
	"time"

	"github.com/mna/loxvm/lang/value"
)

// nativeError reports a native-function failure the way the VM reports any
// other runtime error: it returns the value.NativeFailure sentinel together
// with a RuntimeError carrying the message, and callNative returns that
// error (spec.md §6 "an internal 'null' sentinel from the native signals
// failure").
func nativeError(vm *VM, format string, args ...any) (value.Value, error) {
	return value.NativeFailure, vm.runtimeError(format, args...)
}

// defineNatives installs every built-in global listed in spec.md §6: has,
// get, set, size, getTypeName, toString, clock (grounded on
// original_source/natives.c).
func (vm *VM) defineNatives() {
	vm.defineNative("has", 2, nativeHas)
	vm.defineNative("get", 2, nativeGet)
	vm.defineNative("set", 3, nativeSet)
	vm.defineNative("size", 1, nativeSize)
	vm.defineNative("getTypeName", 1, nativeGetTypeName)
	vm.defineNative("toString", 1, nativeToString)
	vm.defineNative("clock", 0, nativeClock)
}

func (vm *VM) defineNative(name string, arity int, fn func(vm *VM, args []value.Value) (value.Value, error)) {
	nat := &value.NativeFn{Name: name, Fn: func(args []value.Value) (value.Value, error) {
		return fn(vm, args)
	}}
	vm.track(nat)
	vm.globals.Set(name, nat)
}

func nativeHas(vm *VM, args []value.Value) (value.Value, error) {
	field, ok := args[1].(*value.String)
	if !ok {
		return value.Bool(false), nil
	}
	inst, ok := args[0].(*value.Instance)
	if !ok {
		return value.Bool(false), nil
	}
	_, found := inst.Fields.Get(field.Go())
	return value.Bool(found), nil
}

func nativeGet(vm *VM, args []value.Value) (value.Value, error) {
	field, ok := args[1].(*value.String)
	if !ok {
		return nativeError(vm, "Cannot have non-string property of object.")
	}
	v, err := vm.getProperty(args[0], field.Go())
	if err != nil {
		return value.NativeFailure, err
	}
	return v, nil
}

func nativeSet(vm *VM, args []value.Value) (value.Value, error) {
	field, ok := args[1].(*value.String)
	if !ok {
		return nativeError(vm, "Cannot have non-string property of object.")
	}
	inst, ok := args[0].(*value.Instance)
	if !ok {
		return nativeError(vm, "Only instances have fields.")
	}
	inst.Fields.Set(field.Go(), args[2])
	return value.NilValue, nil
}

func nativeSize(vm *VM, args []value.Value) (value.Value, error) {
	switch v := args[0].(type) {
	case *value.String:
		return value.Number(v.Len()), nil
	case *value.Array:
		return value.Number(v.Len()), nil
	default:
		return nativeError(vm, "Only strings and arrays have size.")
	}
}

func nativeGetTypeName(vm *VM, args []value.Value) (value.Value, error) {
	return vm.internString(value.TypeName(args[0])), nil
}

func nativeToString(vm *VM, args []value.Value) (value.Value, error) {
	return vm.internString(value.Stringify(args[0])), nil
}

func nativeClock(vm *VM, _ []value.Value) (value.Value, error) {
	return value.Number(time.Since(vm.startTime).Seconds()), nil
}
