package matiria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseOne(t *testing.T, source string) (*Program, *Diagnostics) {
	t.Helper()
	diags := &Diagnostics{}
	interner := NewInterner([]byte(source))
	p := NewParser([]byte(source), interner, diags)
	return p.ParseProgram(), diags
}

func TestParser_FunctionDecl(t *testing.T) {
	source := `
fn add(Int a, Int b) -> Int {
	return a + b;
}
`
	prog, diags := parseOne(t, source)
	require.False(t, diags.HasErrors())
	require.Len(t, prog.Stmts, 1)
	fn, ok := prog.Stmts[0].(*FuncDecl)
	require.True(t, ok)
	assert.Equal(t, "add", fn.Name.Text([]byte(source)))
	require.Len(t, fn.Params, 2)
	assert.Same(t, TypeInt, fn.Params[0].Type)
	assert.Same(t, TypeInt, fn.Return)
	require.Len(t, fn.Body, 1)
	_, isReturn := fn.Body[0].(*Return)
	assert.True(t, isReturn)
}

func TestParser_VarDeclWithInit(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	Int x := 5;
	return x;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	vd, ok := fn.Body[0].(*VarDecl)
	require.True(t, ok)
	assert.Same(t, TypeInt, vd.Declared)
	require.NotNil(t, vd.Init)
}

func TestParser_StructDecl(t *testing.T) {
	prog, diags := parseOne(t, `
type Point := { Int x := 0, Int y := 0 }
`)
	require.False(t, diags.HasErrors())
	decl, ok := prog.Stmts[0].(*StructDecl)
	require.True(t, ok)
	require.Len(t, decl.Members, 2)
	require.Len(t, decl.MemberInits, 2)
	assert.NotNil(t, decl.MemberInits[0])
}

func TestParser_UnionDecl(t *testing.T) {
	prog, diags := parseOne(t, `
type Shape := Int | String;
`)
	require.False(t, diags.HasErrors())
	decl, ok := prog.Stmts[0].(*UnionDecl)
	require.True(t, ok)
	require.Len(t, decl.Variants, 2)
}

func TestParser_IfElse(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	if true : {
		return 1;
	} else {
		return 2;
	}
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	ifStmt, ok := fn.Body[0].(*If)
	require.True(t, ok)
	require.NotNil(t, ifStmt.Otherwise)
}

func TestParser_ArrayVsMapLiteralDisambiguation(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	[Int] a := [1, 2, 3];
	[String, Int] m := ['a': 1];
	return 0;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	arrDecl := fn.Body[0].(*VarDecl)
	_, isArray := arrDecl.Init.(*ArrayLiteral)
	assert.True(t, isArray)

	mapDecl := fn.Body[1].(*VarDecl)
	_, isMap := mapDecl.Init.(*MapLiteral)
	assert.True(t, isMap)
}

func TestParser_OperatorPrecedence(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	return 2 + 3 * 4;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	ret := fn.Body[0].(*Return)
	bin, ok := ret.Value.(*Binary)
	require.True(t, ok)
	assert.Equal(t, TokenPlus, bin.Op.Type)
	// RHS must be the tighter-binding "3 * 4", not "2 + 3" re-grouped.
	rhs, ok := bin.RHS.(*Binary)
	require.True(t, ok)
	assert.Equal(t, TokenStar, rhs.Op.Type)
}

func TestParser_CallArguments(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	return f(1, 2);
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	ret := fn.Body[0].(*Return)
	call, ok := ret.Value.(*Call)
	require.True(t, ok)
	assert.Len(t, call.Args, 2)
}

func TestParser_IfColonBareStatement(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	if true :
		return 1;
	return 2;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	ifStmt, ok := fn.Body[0].(*If)
	require.True(t, ok)
	require.Len(t, ifStmt.Then.Stmts, 1)
	_, isReturn := ifStmt.Then.Stmts[0].(*Return)
	assert.True(t, isReturn)
	assert.Nil(t, ifStmt.Otherwise)
}

func TestParser_WhileColonBareStatement(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	Int i := 0;
	while i < 3 :
		i := i + 1;
	return i;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	wh, ok := fn.Body[1].(*While)
	require.True(t, ok)
	require.Len(t, wh.Body.Stmts, 1)
	_, isAssign := wh.Body.Stmts[0].(*Assignment)
	assert.True(t, isAssign)
}

func TestParser_AssignmentUsesColonEqual(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	Int x := 1;
	x := 2;
	return x;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	assign, ok := fn.Body[1].(*Assignment)
	require.True(t, ok)
	_, isPrimary := assign.Target.(*Primary)
	assert.True(t, isPrimary)
}

func TestParser_NativeFunctionDecl(t *testing.T) {
	prog, diags := parseOne(t, `
fn sqrt(Float x) -> Float ...;
`)
	require.False(t, diags.HasErrors())
	fn, ok := prog.Stmts[0].(*FuncDecl)
	require.True(t, ok)
	assert.True(t, fn.IsNative)
	assert.Nil(t, fn.Body)
}

func TestParser_ExpressionFunctionBodySugar(t *testing.T) {
	prog, diags := parseOne(t, `
fn add(Int a, Int b) -> Int := a + b;
`)
	require.False(t, diags.HasErrors())
	fn, ok := prog.Stmts[0].(*FuncDecl)
	require.True(t, ok)
	require.Len(t, fn.Body, 1)
	_, isReturn := fn.Body[0].(*Return)
	assert.True(t, isReturn)
}

func TestParser_NamedClosureExpr(t *testing.T) {
	source := `
fn main() -> Int {
	() -> Int thunk := fn answer() -> Int := 42;
	return thunk();
}
`
	prog, diags := parseOne(t, source)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	vd := fn.Body[0].(*VarDecl)
	closure, ok := vd.Init.(*ClosureExpr)
	require.True(t, ok)
	assert.Equal(t, "answer", closure.Func.Name.Text([]byte(source)))
}

func TestParser_FunctionTypeVarDecl(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	(Int, Int) -> Int op := add;
	return op(1, 2);
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	vd, ok := fn.Body[0].(*VarDecl)
	require.True(t, ok)
	require.NotNil(t, vd.Declared)
	assert.Equal(t, KindFunction, vd.Declared.Kind)
	require.Len(t, vd.Declared.Params, 2)
}

func TestParser_EmptyArrayLiteralParsesAsEmptyArray(t *testing.T) {
	prog, diags := parseOne(t, `
fn main() -> Int {
	[Int] a := [];
	return 0;
}
`)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	vd := fn.Body[0].(*VarDecl)
	arr, ok := vd.Init.(*ArrayLiteral)
	require.True(t, ok)
	assert.Len(t, arr.Elements, 0)
}

func TestParser_ErrorRecoveryContinuesPastFirstMistake(t *testing.T) {
	_, diags := parseOne(t, `
fn broken( -> Int {
	return 1;
}

fn ok() -> Int {
	return 2;
}
`)
	require.True(t, diags.HasErrors())
}
