package machine

import (
	"fmt"
	"strings"
)

// RuntimeError is a failed execution reported with the Lox call stack active
// at the point of failure, formatted the way the original clox interpreter
// prints it to stderr: the message line followed by one "[line L] in NAME"
// line per frame, innermost first.
type RuntimeError struct {
	Message string
	Trace   []StackTraceEntry
}

// StackTraceEntry describes one active call at the time a RuntimeError was
// raised.
type StackTraceEntry struct {
	Line int
	Name string
}

func (e *RuntimeError) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	for _, fr := range e.Trace {
		b.WriteByte('\n')
		if fr.Name == "" {
			fmt.Fprintf(&b, "[line %d] in script", fr.Line)
		} else {
			fmt.Fprintf(&b, "[line %d] in %s()", fr.Line, fr.Name)
		}
	}
	return b.String()
}

// runtimeError builds a RuntimeError from the VM's current frame stack,
// innermost frame first (spec.md §7 "Error reporting").
func (vm *VM) runtimeError(format string, args ...any) *RuntimeError {
	msg := fmt.Sprintf(format, args...)
	trace := make([]StackTraceEntry, 0, vm.frameCount)
	for i := vm.frameCount - 1; i >= 0; i-- {
		fr := &vm.frames[i]
		name := ""
		if fr.closure.Fn.Name != nil {
			name = fr.closure.Fn.Name.Go()
		}
		trace = append(trace, StackTraceEntry{Line: fr.line(), Name: name})
	}
	return &RuntimeError{Message: msg, Trace: trace}
}
