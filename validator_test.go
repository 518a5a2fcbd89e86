package matiria

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validateSource(t *testing.T, source string) (*Program, *Diagnostics) {
	t.Helper()
	diags := &Diagnostics{}
	interner := NewInterner([]byte(source))
	p := NewParser([]byte(source), interner, diags)
	prog := p.ParseProgram()
	require.False(t, diags.HasErrors(), "parse errors: %s", diags.String())

	v := NewValidator([]byte(source), interner, diags)
	v.Validate(prog)
	return prog, diags
}

// analyzeIf must write the checked else-branch into Otherwise, not
// overwrite Then with it — the spec section 9 correction over the
// original implementation's analyze_if bug.
func TestValidator_IfElseWritesOtherwiseNotThen(t *testing.T) {
	source := `
fn main() -> Int {
	if true : {
		return 1;
	} else {
		return 2;
	}
}
`
	prog, diags := validateSource(t, source)
	require.False(t, diags.HasErrors())
	fn := prog.Stmts[0].(*FuncDecl)
	ifStmt := fn.Body[0].(*If)

	require.Len(t, ifStmt.Then.Stmts, 1)
	thenReturn := ifStmt.Then.Stmts[0].(*Return)
	thenLit := thenReturn.Value.(*Literal)
	assert.Equal(t, "1", thenLit.Token.Text([]byte(source)))

	require.NotNil(t, ifStmt.Otherwise)
	otherwiseBlock, ok := ifStmt.Otherwise.(*Block)
	require.True(t, ok)
	require.Len(t, otherwiseBlock.Stmts, 1)
	elseReturn := otherwiseBlock.Stmts[0].(*Return)
	elseLit := elseReturn.Value.(*Literal)
	assert.Equal(t, "2", elseLit.Token.Text([]byte(source)),
		"the else branch's own return must have been analyzed into Otherwise, not overwritten into Then")
}

func TestValidator_RejectsMismatchedOperandTypes(t *testing.T) {
	_, diags := validateSource(t, `
fn main() -> Int {
	return 1 + 1.5;
}
`)
	assert.True(t, diags.HasErrors())
}

// Int and Float if/while conditions are accepted, not just Bool (spec
// section 4.4): 0/1/2.5 are all valid conditions, only String/Array/Map/
// user-typed conditions are rejected.
func TestValidator_AcceptsIntAndFloatIfCondition(t *testing.T) {
	_, diags := validateSource(t, `
fn main() -> Int {
	if 1 : {
		return 1;
	}
	if 0.0 : {
		return 2;
	}
	return 0;
}
`)
	assert.False(t, diags.HasErrors(), "Int/Float if conditions must be accepted: %s", diags.String())
}

func TestValidator_RejectsStringIfCondition(t *testing.T) {
	_, diags := validateSource(t, `
fn main() -> Int {
	if 'yes' : {
		return 1;
	}
	return 0;
}
`)
	assert.True(t, diags.HasErrors(), "String is not a valid if/while condition type")
}

func TestValidator_RequiresTerminalReturn(t *testing.T) {
	_, diags := validateSource(t, `
fn main() -> Int {
	Int x := 1;
}
`)
	assert.True(t, diags.HasErrors(), "non-void function must end in a return statement")
}

func TestValidator_ClosureCapturesUpvalue(t *testing.T) {
	prog, diags := validateSource(t, `
fn makeAdder(Int x) -> Int {
	return (fn() -> Int { return x; })();
}
`)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %s", diags.String())
	fn := prog.Stmts[0].(*FuncDecl)
	ret := fn.Body[0].(*Return)
	call := ret.Value.(*Call)
	closure := call.Callee.(*ClosureExpr)
	require.Len(t, closure.Func.Upvalues, 1)
	assert.True(t, closure.Func.Upvalues[0].Local)
	assert.Equal(t, "x", closure.Func.Upvalues[0].Name)
}

func TestValidator_UndefinedNameIsRejected(t *testing.T) {
	_, diags := validateSource(t, `
fn main() -> Int {
	return doesNotExist;
}
`)
	assert.True(t, diags.HasErrors())
}

func TestValidator_StructMemberAccessResolvesOrdinal(t *testing.T) {
	prog, diags := validateSource(t, `
type Point := { Int x := 0, Int y := 0 }

fn getY() -> Int {
	Point p := Point();
	return p.y;
}
`)
	require.False(t, diags.HasErrors(), "unexpected diagnostics: %s", diags.String())
	fn := prog.Stmts[1].(*FuncDecl)
	ret := fn.Body[1].(*Return)
	access := ret.Value.(*Access)
	assert.Equal(t, 1, access.MemberIndex)
}
