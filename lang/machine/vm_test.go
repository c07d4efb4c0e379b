package machine_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mna/loxvm/lang/machine"
)

func run(t *testing.T, src string) (string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	vm := machine.New()
	vm.Stdout = &out
	vm.Stderr = &errOut
	err := vm.Interpret(src)
	return out.String(), err
}

func TestArithmeticAndPrint(t *testing.T) {
	out, err := run(t, `print 1 + 2 * 3;`)
	require.NoError(t, err)
	require.Equal(t, "7\n", out)
}

func TestStringConcatenation(t *testing.T) {
	out, err := run(t, `print "foo" + "bar";`)
	require.NoError(t, err)
	require.Equal(t, "foobar\n", out)
}

func TestStringNumberConcatenation(t *testing.T) {
	out, err := run(t, `print "count: " + 3;`)
	require.NoError(t, err)
	require.Equal(t, "count: 3\n", out)
}

func TestGlobalVariables(t *testing.T) {
	out, err := run(t, `
var a = 1;
var b = 2;
print a + b;
`)
	require.NoError(t, err)
	require.Equal(t, "3\n", out)
}

func TestUndefinedGlobalGet(t *testing.T) {
	_, err := run(t, `print nope;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'nope'")
}

func TestUndefinedGlobalSet(t *testing.T) {
	_, err := run(t, `nope = 1;`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Undefined variable 'nope'")
}

func TestSelfReferentialLocalDeclaration(t *testing.T) {
	_, err := run(t, `
{
  var a = a;
}
`)
	require.Error(t, err)
}

func TestIfElseAndWhile(t *testing.T) {
	out, err := run(t, `
var i = 0;
var sum = 0;
while (i < 5) {
  sum = sum + i;
  i = i + 1;
}
if (sum == 10) {
  print "yes";
} else {
  print "no";
}
`)
	require.NoError(t, err)
	require.Equal(t, "yes\n", out)
}

func TestForLoopBreakContinue(t *testing.T) {
	out, err := run(t, `
for (var i = 0; i < 10; i = i + 1) {
  if (i == 2) continue;
  if (i == 5) break;
  print i;
}
`)
	require.NoError(t, err)
	require.Equal(t, "0\n1\n3\n4\n", out)
}

func TestClosures(t *testing.T) {
	out, err := run(t, `
fun makeCounter() {
  var i = 0;
  fun counter() {
    i = i + 1;
    return i;
  }
  return counter;
}
var c1 = makeCounter();
var c2 = makeCounter();
print c1();
print c1();
print c2();
`)
	require.NoError(t, err)
	require.Equal(t, "1\n2\n1\n", out)
}

func TestClassesAndInheritance(t *testing.T) {
	out, err := run(t, `
class Animal {
  init(name) {
    this.name = name;
  }
  speak() {
    print this.name + " makes a noise.";
  }
}
class Dog < Animal {
  speak() {
    super.speak();
    print this.name + " barks.";
  }
}
var d = Dog("Rex");
d.speak();
`)
	require.NoError(t, err)
	require.Equal(t, "Rex makes a noise.\nRex barks.\n", out)
}

func TestSelfInheritingClassIsCompileError(t *testing.T) {
	_, err := run(t, `class Oops < Oops {}`)
	require.Error(t, err)
}

func TestFieldAssignmentAndRead(t *testing.T) {
	out, err := run(t, `
class Box {}
var b = Box();
b.value = 42;
print b.value;
`)
	require.NoError(t, err)
	require.Equal(t, "42\n", out)
}

func TestArrayLiteralAndSubscript(t *testing.T) {
	out, err := run(t, `
var a = [1, 2, 3];
print a[1];
a[1] = 99;
print a[1];
`)
	require.NoError(t, err)
	require.Equal(t, "2\n99\n", out)
}

func TestArrayOutOfBounds(t *testing.T) {
	_, err := run(t, `
var a = [1, 2];
print a[5];
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "out of bounds")
}

func TestFibonacci(t *testing.T) {
	out, err := run(t, `
fun fib(n) {
  if (n < 2) return n;
  return fib(n - 1) + fib(n - 2);
}
print fib(10);
`)
	require.NoError(t, err)
	require.Equal(t, "55\n", out)
}

func TestNativeFunctions(t *testing.T) {
	out, err := run(t, `
class Point {
  init(x, y) {
    this.x = x;
    this.y = y;
  }
}
var p = Point(1, 2);
print has(p, "x");
print has(p, "z");
print get(p, "y");
set(p, "z", 3);
print get(p, "z");
print size([1, 2, 3]);
print size("hello");
print getTypeName(p);
print toString(42);
`)
	require.NoError(t, err)
	require.Equal(t, strings.Join([]string{
		"true", "false", "2", "3", "3", "5", "Point", "42",
	}, "\n")+"\n", out)
}

func TestCallingNonFunctionIsRuntimeError(t *testing.T) {
	_, err := run(t, `
var x = 1;
x();
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Can only call functions and classes.")
}

func TestStackOverflow(t *testing.T) {
	_, err := run(t, `
fun recurse() {
  return recurse();
}
recurse();
`)
	require.Error(t, err)
	require.Contains(t, err.Error(), "Stack overflow.")
}

func TestBitwiseAndShiftOperators(t *testing.T) {
	out, err := run(t, `
print 6 & 3;
print 6 | 1;
print 6 ^ 2;
print 1 << 4;
print 256 >> 4;
print ~0;
`)
	require.NoError(t, err)
	require.Equal(t, "2\n7\n4\n16\n16\n-1\n", out)
}

func TestLogicalShortCircuit(t *testing.T) {
	out, err := run(t, `
fun sideEffect() {
  print "called";
  return true;
}
print false and sideEffect();
print true or sideEffect();
`)
	require.NoError(t, err)
	require.Equal(t, "false\ntrue\n", out)
}
