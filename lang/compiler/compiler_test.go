package compiler_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/loxvm/lang/compiler"
	"github.com/mna/loxvm/lang/value"
)

func TestCompileSimpleExpression(t *testing.T) {
	fn, err := compiler.Compile(`print 1 + 2;`)
	require.NoError(t, err)
	require.NotNil(t, fn)
	require.Contains(t, fn.Chunk.Code, byte(value.OpPrint))
}

func TestCompileErrorUnterminatedString(t *testing.T) {
	_, err := compiler.Compile(`var s = "oops;`)
	require.Error(t, err)
}

func TestCompileErrorReturnOutsideFunction(t *testing.T) {
	_, err := compiler.Compile(`return 1;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't return from top-level code.")
}

func TestCompileErrorReturnValueFromInitializer(t *testing.T) {
	_, err := compiler.Compile(`
class Foo {
  init() {
    return 1;
  }
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't return a value from an initializer.")
}

func TestCompileErrorBreakOutsideLoop(t *testing.T) {
	_, err := compiler.Compile(`break;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't use 'break' outside of a loop.")
}

func TestCompileErrorContinueOutsideLoop(t *testing.T) {
	_, err := compiler.Compile(`continue;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can't use 'continue' outside of a loop.")
}

func TestCompileErrorThisOutsideClass(t *testing.T) {
	_, err := compiler.Compile(`print this;`)
	require.Error(t, err)
}

func TestCompileErrorSuperOutsideClass(t *testing.T) {
	_, err := compiler.Compile(`print super.foo();`)
	require.Error(t, err)
}

func TestCompileErrorSuperWithoutSuperclass(t *testing.T) {
	_, err := compiler.Compile(`
class Foo {
  bar() {
    return super.bar();
  }
}
`)
	require.Error(t, err)
}

func TestCompileErrorInvalidAssignmentTarget(t *testing.T) {
	_, err := compiler.Compile(`1 + 2 = 3;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Invalid assignment target.")
}

func TestCompileErrorDuplicateLocal(t *testing.T) {
	_, err := compiler.Compile(`
{
  var a = 1;
  var a = 2;
}
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Already a variable with this name in this scope.")
}

func TestCompileClosureUpvalues(t *testing.T) {
	fn, err := compiler.Compile(`
fun outer() {
  var x = 1;
  fun inner() {
    return x;
  }
  return inner;
}
`)
	require.NoError(t, err)
	require.NotNil(t, fn)
}

func TestCompileFunctionArityCheckedAtCall(t *testing.T) {
	fn, err := compiler.Compile(`
fun add(a, b) {
  return a + b;
}
print add(1, 2, 3);
`)
	require.NoError(t, err)
	require.NotNil(t, fn)
}
