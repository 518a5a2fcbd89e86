package matiria

// Expr is any node that evaluates to a Value. Its Type() is set by the
// validator's first pass over the expression and is nil (never
// TypeInvalid) until then.
type Expr interface {
	ExprRange() Range
	Type() *Type
	setType(*Type)
	Accept(ExprVisitor) error
}

type exprBase struct {
	rg Range
	ty *Type
}

func (e *exprBase) ExprRange() Range  { return e.rg }
func (e *exprBase) Type() *Type       { return e.ty }
func (e *exprBase) setType(t *Type)   { e.ty = t }

// SetType is exported so the validator (a different file, same
// package) can annotate a node without every node needing a public
// setter beyond the interface.
func SetType(e Expr, t *Type) { e.setType(t) }

// Literal covers Int/Float/Bool/String literals; Token is the literal
// token, whose text is interpreted lazily by the emitter (evaluate_int /
// evaluate_float in the original implementation).
type Literal struct {
	exprBase
	Token Token
}

func NewLiteral(tok Token, rg Range) *Literal { return &Literal{exprBase{rg: rg}, tok} }
func (n *Literal) Accept(v ExprVisitor) error { return v.VisitLiteral(n) }

// ArrayLiteral is `[e1, e2, ...]`.
type ArrayLiteral struct {
	exprBase
	Elements []Expr
}

func (n *ArrayLiteral) Accept(v ExprVisitor) error { return v.VisitArrayLiteral(n) }

// MapEntry is one `key: value` pair inside a MapLiteral.
type MapEntry struct {
	Key   Expr
	Value Expr
}

// MapLiteral is `[k1: v1, k2: v2, ...]`.
type MapLiteral struct {
	exprBase
	Entries []MapEntry
}

func (n *MapLiteral) Accept(v ExprVisitor) error { return v.VisitMapLiteral(n) }

// Primary is a bare identifier reference. The validator fills Symbol
// once it resolves the binding (local/global/upvalue), per
// analyze_primary's closure-capture logic.
type Primary struct {
	exprBase
	Name   Token
	Symbol *Symbol
}

func (n *Primary) Accept(v ExprVisitor) error { return v.VisitPrimary(n) }

// Unary is `-e` or `!e`.
type Unary struct {
	exprBase
	Op      Token
	Operand Expr
}

func (n *Unary) Accept(v ExprVisitor) error { return v.VisitUnary(n) }

// Binary is `lhs op rhs` for arithmetic, comparison, and the `&&`/`||`
// short-circuit operators (the emitter special-cases the latter two).
type Binary struct {
	exprBase
	Op  Token
	LHS Expr
	RHS Expr
}

func (n *Binary) Accept(v ExprVisitor) error { return v.VisitBinary(n) }

// Call is `callee(args...)`.
type Call struct {
	exprBase
	Callee Expr
	Args   []Expr
}

func (n *Call) Accept(v ExprVisitor) error { return v.VisitCall(n) }

// Subscript is `target[index]`.
type Subscript struct {
	exprBase
	Target Expr
	Index  Expr
}

func (n *Subscript) Accept(v ExprVisitor) error { return v.VisitSubscript(n) }

// Access is `target.Member`; MemberIndex is filled by the validator
// once the struct's member ordinal is known (STRUCT_GET/STRUCT_SET
// operand).
type Access struct {
	exprBase
	Target      Expr
	Member      Token
	MemberIndex int
}

func (n *Access) Accept(v ExprVisitor) error { return v.VisitAccess(n) }

// Cast is `Int(e)` / `Float(e)`, the only two casts the language
// defines.
type Cast struct {
	exprBase
	Target TokenType // TokenInt or TokenFloat
	Operand Expr
}

func (n *Cast) Accept(v ExprVisitor) error { return v.VisitCast(n) }

// ClosureExpr is a function literal: `fn(params) -> Ret { body }`
// used as a value. FuncDecl carries the shared shape with top-level
// function declarations; Upvalues is filled in by the validator.
type ClosureExpr struct {
	exprBase
	Func *FuncDecl
}

func (n *ClosureExpr) Accept(v ExprVisitor) error { return v.VisitClosureExpr(n) }

// ExprVisitor dispatches over every Expr concrete type, mirroring the
// teacher's AstNodeVisitor pattern (one Visit method per node kind).
type ExprVisitor interface {
	VisitLiteral(*Literal) error
	VisitArrayLiteral(*ArrayLiteral) error
	VisitMapLiteral(*MapLiteral) error
	VisitPrimary(*Primary) error
	VisitUnary(*Unary) error
	VisitBinary(*Binary) error
	VisitCall(*Call) error
	VisitSubscript(*Subscript) error
	VisitAccess(*Access) error
	VisitCast(*Cast) error
	VisitClosureExpr(*ClosureExpr) error
}

// Stmt is any node executed for effect.
type Stmt interface {
	StmtRange() Range
	Accept(StmtVisitor) error
}

type stmtBase struct{ rg Range }

func (s *stmtBase) StmtRange() Range { return s.rg }

// Param is one `Type name` entry in a function's parameter list.
type Param struct {
	Name Token
	Type *Type
}

// FuncDecl is `fn name(params) -> Ret { body }`; Name is empty for an
// unnamed closure literal. Upvalues and LocalCount are filled in by the
// validator during analyze_closure/analyze_fn.
type FuncDecl struct {
	stmtBase
	Name       Token
	Params     []Param
	Return     *Type
	Body       []Stmt
	Symbol     *Symbol
	Upvalues   []Upvalue
	LocalCount int
	IsClosure  bool
	// IsNative marks a `...`-bodied declaration: implementation supplied
	// by the host via register_native, out of scope for this compiler
	// (spec section 1's non-goals). Parsed so the grammar accepts it;
	// the validator skips the terminal-return requirement for it and
	// the emitter falls back to the type's default return value.
	IsNative bool
}

func (n *FuncDecl) Accept(v StmtVisitor) error { return v.VisitFuncDecl(n) }

// VarDecl is `Type name := init` or, for struct-typed locals omitting
// an initializer, a synthesized zero-argument constructor call
// (analyze_variable in the original validator).
type VarDecl struct {
	stmtBase
	Declared *Type
	Name     Token
	Init     Expr
	Symbol   *Symbol
}

func (n *VarDecl) Accept(v StmtVisitor) error { return v.VisitVarDecl(n) }

// Assignment is `target := value`; Target is restricted by the
// validator to Primary, Subscript, or Access (check_assignemnt).
type Assignment struct {
	stmtBase
	Target Expr
	Value  Expr
}

func (n *Assignment) Accept(v StmtVisitor) error { return v.VisitAssignment(n) }

// Block is `{ stmts... }`; Scope is attached by the validator and
// LocalCount sizes the trailing POP_V the emitter writes on exit.
type Block struct {
	stmtBase
	Stmts      []Stmt
	Scope      *Scope
	LocalCount int
}

func (n *Block) Accept(v StmtVisitor) error { return v.VisitBlock(n) }

// If is `if cond : then` or `if cond : then else otherwise`, where
// then/otherwise are either a brace block or a single bare statement
// (wrapped in a one-statement Block by the parser either way).
// Otherwise is nil for a bare `if`. (spec.md §9 calls out that the
// original implementation's analyze_if writes the checked else-branch
// into the wrong field — Matiria's validator writes it into Otherwise,
// per spec.)
type If struct {
	stmtBase
	Cond      Expr
	Then      *Block
	Otherwise Stmt // *Block or *If (else-if chaining), nil if absent
}

func (n *If) Accept(v StmtVisitor) error { return v.VisitIf(n) }

// While is `while cond : body`, body either a brace block or a single
// bare statement.
type While struct {
	stmtBase
	Cond Expr
	Body *Block
}

func (n *While) Accept(v StmtVisitor) error { return v.VisitWhile(n) }

// Return is `return expr` or a bare `return` in a Void function.
type Return struct {
	stmtBase
	Value Expr // nil for bare return
}

func (n *Return) Accept(v StmtVisitor) error { return v.VisitReturn(n) }

// ExprStmt is an expression evaluated for its side effect and
// discarded (analyze_call_stmt in the original validator restricts
// this to calls, but Matiria allows any expression statement).
type ExprStmt struct {
	stmtBase
	Expr Expr
}

func (n *ExprStmt) Accept(v StmtVisitor) error { return v.VisitExprStmt(n) }

// StructDecl is `type Name := { Type member, ... }`; MemberInits
// parallels Members, holding each member's optional default-value
// expression (a SUPPLEMENTED FEATURES enrichment over the distilled
// spec — see SPEC_FULL.md section 3).
type StructDecl struct {
	stmtBase
	Name        Token
	Members     []Member
	MemberInits []Expr
	Type        *Type
	Ctor        *FuncDecl // not set by the parser or validator; the emitter builds the constructor chunk (emitConstructor)
}

func (n *StructDecl) Accept(v StmtVisitor) error { return v.VisitStructDecl(n) }

// UnionDecl is `type Name := A | B | C`.
type UnionDecl struct {
	stmtBase
	Name     Token
	Variants []*Type
	Type     *Type
}

func (n *UnionDecl) Accept(v StmtVisitor) error { return v.VisitUnionDecl(n) }

// StmtVisitor dispatches over every Stmt concrete type.
type StmtVisitor interface {
	VisitFuncDecl(*FuncDecl) error
	VisitVarDecl(*VarDecl) error
	VisitAssignment(*Assignment) error
	VisitBlock(*Block) error
	VisitIf(*If) error
	VisitWhile(*While) error
	VisitReturn(*Return) error
	VisitExprStmt(*ExprStmt) error
	VisitStructDecl(*StructDecl) error
	VisitUnionDecl(*UnionDecl) error
}

// Program is the root of a parsed source file: a flat list of
// top-level statements (function/struct/union declarations and
// top-level var declarations), in source order — mirrors
// mtr_load_package's registration order, which the VM's mtr_execute
// depends on to find "main".
type Program struct {
	Stmts []Stmt
}
