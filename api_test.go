package matiria

import (
	"testing"

	"github.com/stretchr/testify/require"
)

// compileAndRun is the shared harness every scenario below uses: compile
// source, fail loudly on any diagnostic, then run "main" to completion.
func compileAndRun(t *testing.T, source string) Value {
	t.Helper()
	pkg, diags, err := Compile([]byte(source), NewConfig())
	require.NoError(t, err)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %s", diags.String())
	require.NotNil(t, pkg)

	result, err := Run(pkg, NewConfig())
	require.NoError(t, err)
	return result
}

func TestEndToEnd_FactorialRecursion(t *testing.T) {
	source := `
fn factorial(Int n) -> Int {
	if n <= 1 : {
		return 1;
	} else {
		return n * factorial(n - 1);
	}
}

fn main() -> Int {
	return factorial(5);
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(120), result.Int)
}

func TestEndToEnd_ArithmeticPrecedence(t *testing.T) {
	source := `
fn main() -> Int {
	return 2 + 3 * 4 - 1;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(13), result.Int)
}

// TestEndToEnd_WhileLoopSummation declares its locals directly in main's
// own body (spec section 8 scenario 3), exercising main's frame sitting
// above the pushed globals rather than aliasing slot 0.
func TestEndToEnd_WhileLoopSummation(t *testing.T) {
	source := `
fn main() -> Int {
	Int total := 0;
	Int i := 1;
	while i <= 10 : {
		total := total + i;
		i := i + 1;
	}
	return total;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(55), result.Int)
}

// TestEndToEnd_ArrayMutation declares its array directly in main (spec
// section 8 scenario 4), not behind a helper function.
func TestEndToEnd_ArrayMutation(t *testing.T) {
	source := `
fn main() -> Int {
	[Int] arr := [1, 2, 3];
	arr[0] := 10;
	return arr[0] + arr[1] + arr[2];
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(15), result.Int)
}

// TestEndToEnd_StructAccess declares its Point directly in main (spec
// section 8 scenario 6).
func TestEndToEnd_StructAccess(t *testing.T) {
	source := `
type Point := { Int x := 0, Int y := 0 };

fn main() -> Int {
	Point p := Point();
	p.x := 3;
	p.y := 4;
	return p.x + p.y;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(7), result.Int)
}

// TestEndToEnd_ClosureUpvalueCapture is spec section 8 scenario 5: an
// anonymous closure captures both a parameter and a local upvalue from its
// enclosing function, stored in a function-typed local before being invoked.
func TestEndToEnd_ClosureUpvalueCapture(t *testing.T) {
	source := `
fn makeAdder(Int x) -> Int {
	Int y := 10;
	() -> Int noop := fn() -> Int := x + y;
	return noop();
}

fn main() -> Int {
	return makeAdder(5);
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(15), result.Int)
}

func TestEndToEnd_ShortCircuitAnd(t *testing.T) {
	// If AND ever evaluated its RHS despite a false LHS, the division by
	// zero below would surface as a runtime error instead of false.
	source := `
fn main() -> Bool {
	return false && (1 / 0 = 0);
}
`
	result := compileAndRun(t, source)
	require.False(t, result.Bool())
}

func TestEndToEnd_ShortCircuitOr(t *testing.T) {
	source := `
fn main() -> Bool {
	return true || (1 / 0 = 0);
}
`
	result := compileAndRun(t, source)
	require.True(t, result.Bool())
}

func TestEndToEnd_CompileErrorOnTypeMismatch(t *testing.T) {
	source := `
fn main() -> Int {
	return 1 + 1.5;
}
`
	_, diags, err := Compile([]byte(source), NewConfig())
	require.NoError(t, err)
	require.True(t, diags.HasErrors(), "mixed Int/Float operand must be rejected")
}

// TestEndToEnd_IntConditionAccepted exercises spec section 4.4's
// Int/Float/Bool if/while condition rule: a nonzero Int condition, not
// just Bool, takes the then-branch.
func TestEndToEnd_IntConditionAccepted(t *testing.T) {
	source := `
fn main() -> Int {
	if 1 :
		return 10;
	return 20;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(10), result.Int)
}

// TestEndToEnd_FloatConditionAccepted exercises the same rule for a
// nonzero Float condition, which needs emitCondition's normalization to
// read as true at JMP_Z (Value.Bool only inspects Value.Int).
func TestEndToEnd_FloatConditionAccepted(t *testing.T) {
	source := `
fn main() -> Int {
	if 2.5 :
		return 10;
	return 20;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(10), result.Int)
}

// TestEndToEnd_MapMissingKeyIsNil exercises spec section 4.6: indexing a
// map with a missing key yields NIL, not a fatal runtime error.
func TestEndToEnd_MapMissingKeyIsNil(t *testing.T) {
	source := `
fn main() -> Int {
	[Int, Int] m := [1: 100];
	Int v := m[2];
	return v;
}
`
	result := compileAndRun(t, source)
	require.Equal(t, int64(0), result.Int)
}
