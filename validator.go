package matiria

import "fmt"

// Validator is the two-pass semantic checker: load_global registers
// every top-level name (functions, struct constructors, top-level
// variables; unions add no symbol) before any body is analyzed, so
// forward references between top-level declarations resolve
// regardless of source order; global_analysis then walks each
// declaration's body, setting every Expr's Type() and every Primary's
// Symbol.
type Validator struct {
	source   []byte
	interner *Interner
	diags    *Diagnostics
	global   *Scope
	scope    *Scope
	fn       *FuncDecl // enclosing function being analyzed, nil at top level

	// nextLocal is the running frame-slot counter for the function (or
	// closure) currently being analyzed. Unlike Scope.Count (which only
	// counts symbols bound directly in one lexical scope), this counts
	// across every nested block of the function body, so a local
	// declared inside a nested if/while still gets a slot past the end
	// of the enclosing function's params and locals rather than
	// colliding with slot 0. analyzeBlock restores it when the block
	// ends, matching the POP_V that drops the block's locals at run
	// time, so a later local reuses those slots.
	nextLocal int
}

func NewValidator(source []byte, interner *Interner, diags *Diagnostics) *Validator {
	global := NewScope(nil)
	return &Validator{source: source, interner: interner, diags: diags, global: global, scope: global}
}

func (v *Validator) errorf(rg Range, format string, args ...interface{}) {
	v.diags.Add("validator", fmt.Sprintf(format, args...), rg)
}

func (v *Validator) text(tok Token) string { return tok.Text(v.source) }

// Validate runs both passes over prog, returning true iff no
// diagnostic was raised (mtr_validate's boolean result).
func (v *Validator) Validate(prog *Program) bool {
	v.loadGlobals(prog)
	for _, s := range prog.Stmts {
		v.analyzeStmt(s)
	}
	return !v.diags.HasErrors()
}

// loadGlobals is load_global/global_analysis's first half: register
// every top-level function and struct-constructor name as a global
// symbol before analyzing any bodies.
func (v *Validator) loadGlobals(prog *Program) {
	index := 0
	for _, s := range prog.Stmts {
		switch decl := s.(type) {
		case *FuncDecl:
			paramTypes := make([]*Type, len(decl.Params))
			for i, p := range decl.Params {
				paramTypes[i] = p.Type
			}
			fnType := v.interner.InternFunction(decl.Return, paramTypes)
			sym := &Symbol{Name: decl.Name, Type: fnType, Index: index, IsGlobal: true}
			index++
			v.global.Add(v.text(decl.Name), sym)
			decl.Symbol = sym
		case *StructDecl:
			sym := &Symbol{Name: decl.Name, Type: decl.Type, Index: index, IsGlobal: true}
			index++
			v.global.Add(v.text(decl.Name), sym)
		case *UnionDecl:
			// Unions contribute only a type, no constructor symbol.
		case *VarDecl:
			sym := &Symbol{Name: decl.Name, Type: decl.Declared, Index: index, IsGlobal: true, Assignable: true}
			index++
			v.global.Add(v.text(decl.Name), sym)
			decl.Symbol = sym
		}
	}
}

func (v *Validator) analyzeStmt(s Stmt) {
	switch n := s.(type) {
	case *FuncDecl:
		v.analyzeFunction(n)
	case *StructDecl:
		v.analyzeStructDecl(n)
	case *UnionDecl:
		// nothing further to check: variant types were interned by the parser.
	case *VarDecl:
		v.analyzeVarDecl(n)
	case *Assignment:
		v.analyzeAssignment(n)
	case *Block:
		v.analyzeBlock(n)
	case *If:
		v.analyzeIf(n)
	case *While:
		v.analyzeWhile(n)
	case *Return:
		v.analyzeReturn(n)
	case *ExprStmt:
		v.analyzeExpr(n.Expr)
	}
}

// analyzeFunction is analyze_fn: opens a fresh child scope for
// parameters, analyzes the body, then requires a terminal Return for
// any non-Void function.
func (v *Validator) analyzeFunction(fn *FuncDecl) {
	enclosingScope := v.scope
	enclosingFn := v.fn
	enclosingNextLocal := v.nextLocal
	scope := NewScope(enclosingScope)
	v.scope = scope
	v.fn = fn
	v.nextLocal = len(fn.Params)

	for i := range fn.Params {
		p := &fn.Params[i]
		sym := &Symbol{Name: p.Name, Type: p.Type, Index: i, Assignable: true}
		scope.Add(v.text(p.Name), sym)
	}

	for _, s := range fn.Body {
		v.analyzeStmt(s)
	}

	if !fn.IsNative && fn.Return != TypeVoid && !blockReturns(fn.Body) {
		rg := fn.StmtRange()
		if len(fn.Body) > 0 {
			rg = fn.Body[len(fn.Body)-1].StmtRange()
		}
		v.errorf(rg, "non-void function %q must end in a return statement", v.text(fn.Name))
	}

	fn.LocalCount = v.nextLocal - len(fn.Params)
	fn.Upvalues = scope.Upvalues
	v.scope = enclosingScope
	v.fn = enclosingFn
	v.nextLocal = enclosingNextLocal
}

// blockReturns reports whether the last statement of body is
// definitely a Return (or an If whose both branches definitely
// return), the minimal check the original analyze_fn performs.
func blockReturns(body []Stmt) bool {
	if len(body) == 0 {
		return false
	}
	switch last := body[len(body)-1].(type) {
	case *Return:
		return true
	case *If:
		if last.Otherwise == nil {
			return false
		}
		thenReturns := blockReturns(last.Then.Stmts)
		switch o := last.Otherwise.(type) {
		case *Block:
			return thenReturns && blockReturns(o.Stmts)
		case *If:
			return thenReturns && blockReturns([]Stmt{o})
		}
		return false
	case *Block:
		return blockReturns(last.Stmts)
	}
	return false
}

// analyzeStructDecl type-checks each member's optional initializer
// against the member's declared type. Member ordinals are the members'
// positions in the declaration, and the constructor chunk itself is
// built by the emitter (emitConstructor).
func (v *Validator) analyzeStructDecl(decl *StructDecl) {
	for i, init := range decl.MemberInits {
		if init == nil {
			continue
		}
		v.analyzeExpr(init)
		if !CheckAssignment(decl.Members[i].Type, init.Type()) {
			v.errorf(init.ExprRange(), "member %q initializer type mismatch", v.text(decl.Members[i].Name))
		}
	}
}

func (v *Validator) analyzeVarDecl(decl *VarDecl) {
	declared := decl.Declared
	if decl.Init != nil {
		v.analyzeExpr(decl.Init)
		if !CheckAssignment(declared, decl.Init.Type()) {
			v.errorf(decl.Init.ExprRange(), "cannot assign %s to variable of type %s", decl.Init.Type(), declared)
		}
	} else if st := underlying(declared); st.Kind == KindStruct {
		// analyze_variable: synthesize a zero-arg constructor call for
		// a struct-typed local declared without an initializer.
		ctor, _ := v.global.ResolveLocal(v.text(st.Name))
		decl.Init = &Call{exprBase: exprBase{rg: decl.StmtRange(), ty: declared}, Callee: &Primary{
			exprBase: exprBase{rg: decl.Name.Range(), ty: st},
			Name:     st.Name,
			Symbol:   ctor,
		}}
	}
	sym := &Symbol{Name: decl.Name, Type: declared, Assignable: true}
	sym.Index = v.nextLocal
	v.nextLocal++
	v.scope.Add(v.text(decl.Name), sym)
	decl.Symbol = sym
}

// analyzeAssignment is analyze_assignment / check_assignemnt: the
// target must be a resolved, assignable lvalue (Primary, Subscript,
// or Access) and the value's type must satisfy CheckAssignment against
// the target's static type.
func (v *Validator) analyzeAssignment(a *Assignment) {
	v.analyzeExpr(a.Target)
	v.analyzeExpr(a.Value)

	switch t := a.Target.(type) {
	case *Primary:
		if t.Symbol != nil && !t.Symbol.Assignable {
			v.errorf(t.ExprRange(), "cannot assign to %q", v.text(t.Name))
		}
	case *Subscript, *Access:
		// always assignable once the target expression itself resolves
	default:
		v.errorf(a.Target.ExprRange(), "invalid assignment target")
	}

	if !CheckAssignment(a.Target.Type(), a.Value.Type()) {
		v.errorf(a.Value.ExprRange(), "cannot assign %s to %s", a.Value.Type(), a.Target.Type())
	}
}

func (v *Validator) analyzeBlock(b *Block) {
	enclosing := v.scope
	enclosingNextLocal := v.nextLocal
	v.scope = NewScope(enclosing)
	for _, s := range b.Stmts {
		v.analyzeStmt(s)
	}
	b.Scope = v.scope
	b.LocalCount = v.scope.Count()
	v.scope = enclosing
	v.nextLocal = enclosingNextLocal
}

// isConditionType reports whether t is one of the types a condition
// may have: Int, Float, or Bool (spec section 4.4). String and Array
// are rejected.
func isConditionType(t *Type) bool {
	return t == TypeInt || t == TypeFloat || t == TypeBool
}

// analyzeIf is analyze_if, corrected per spec section 9: the checked
// else-branch is stored into Otherwise (the original implementation's
// analyze_if mistakenly overwrites Then instead).
func (v *Validator) analyzeIf(n *If) {
	v.analyzeExpr(n.Cond)
	if !isConditionType(n.Cond.Type()) {
		v.errorf(n.Cond.ExprRange(), "if condition must be Int, Float, or Bool, got %s", n.Cond.Type())
	}
	v.analyzeBlock(n.Then)
	if n.Otherwise != nil {
		v.analyzeStmt(n.Otherwise)
	}
}

func (v *Validator) analyzeWhile(n *While) {
	v.analyzeExpr(n.Cond)
	if !isConditionType(n.Cond.Type()) {
		v.errorf(n.Cond.ExprRange(), "while condition must be Int, Float, or Bool, got %s", n.Cond.Type())
	}
	v.analyzeBlock(n.Body)
}

func (v *Validator) analyzeReturn(n *Return) {
	var actual *Type = TypeVoid
	if n.Value != nil {
		v.analyzeExpr(n.Value)
		actual = n.Value.Type()
	}
	if v.fn != nil && !CheckAssignment(v.fn.Return, actual) {
		v.errorf(n.StmtRange(), "return type mismatch: expected %s, got %s", v.fn.Return, actual)
	}
}

// ---- expressions ----

func (v *Validator) analyzeExpr(e Expr) {
	switch n := e.(type) {
	case *Literal:
		v.analyzeLiteral(n)
	case *ArrayLiteral:
		v.analyzeArrayLiteral(n)
	case *MapLiteral:
		v.analyzeMapLiteral(n)
	case *Primary:
		v.analyzePrimary(n)
	case *Unary:
		v.analyzeUnary(n)
	case *Binary:
		v.analyzeBinary(n)
	case *Call:
		v.analyzeCall(n)
	case *Subscript:
		v.analyzeSubscript(n)
	case *Access:
		v.analyzeAccess(n)
	case *Cast:
		v.analyzeCast(n)
	case *ClosureExpr:
		v.analyzeClosureExpr(n)
	}
}

func (v *Validator) analyzeLiteral(n *Literal) {
	switch n.Token.Type {
	case TokenIntLiteral:
		SetType(n, TypeInt)
	case TokenFloatLiteral:
		SetType(n, TypeFloat)
	case TokenStringLiteral:
		SetType(n, TypeString)
	case TokenTrue, TokenFalse:
		SetType(n, TypeBool)
	default:
		SetType(n, TypeInvalid)
	}
}

func (v *Validator) analyzeArrayLiteral(n *ArrayLiteral) {
	if len(n.Elements) == 0 {
		v.errorf(n.ExprRange(), "array literal must not be empty")
		SetType(n, v.interner.InternArray(TypeInvalid))
		return
	}
	var elem *Type = TypeAny
	for i, e := range n.Elements {
		v.analyzeExpr(e)
		if i == 0 {
			elem = e.Type()
		} else if e.Type() != elem {
			v.errorf(e.ExprRange(), "array elements must share a single type")
		}
	}
	SetType(n, v.interner.InternArray(elem))
}

func (v *Validator) analyzeMapLiteral(n *MapLiteral) {
	if len(n.Entries) == 0 {
		v.errorf(n.ExprRange(), "map literal must not be empty")
		SetType(n, v.interner.InternMap(TypeInvalid, TypeInvalid))
		return
	}
	var key, value *Type = TypeAny, TypeAny
	for i, entry := range n.Entries {
		v.analyzeExpr(entry.Key)
		v.analyzeExpr(entry.Value)
		if i == 0 {
			key, value = entry.Key.Type(), entry.Value.Type()
		}
	}
	SetType(n, v.interner.InternMap(key, value))
}

// analyzePrimary is analyze_primary: resolves the identifier, and when
// the current function is a closure and the binding lives outside it,
// tries resolve_local then falls back to resolve_upvalue — the exact
// capture logic from the original validator.
func (v *Validator) analyzePrimary(n *Primary) {
	name := v.text(n.Name)

	if sym, ok := v.scope.ResolveLocal(name); ok {
		n.Symbol = sym
		SetType(n, sym.Type)
		return
	}

	check := v.fn != nil && v.fn.IsClosure
	if check {
		if idx, ok := v.scope.ResolveUpvalue(name); ok {
			if sym, ok2 := v.findEnclosingSymbol(name); ok2 {
				n.Symbol = &Symbol{Name: n.Name, Type: sym.Type, Index: idx, IsUpvalue: true, Assignable: sym.Assignable}
				SetType(n, sym.Type)
				return
			}
		}
	}

	if sym, ok := v.scope.Resolve(name); ok {
		n.Symbol = sym
		SetType(n, sym.Type)
		return
	}

	v.errorf(n.ExprRange(), "undefined name %q", name)
	SetType(n, TypeInvalid)
}

// findEnclosingSymbol walks outward (skipping the innermost scope,
// already tried by ResolveLocal) to recover the type of a name that
// ResolveUpvalue just proved reachable.
func (v *Validator) findEnclosingSymbol(name string) (*Symbol, bool) {
	for s := v.scope.Enclosing; s != nil; s = s.Enclosing {
		if sym, ok := s.ResolveLocal(name); ok {
			return sym, true
		}
	}
	return nil, false
}

func (v *Validator) analyzeUnary(n *Unary) {
	v.analyzeExpr(n.Operand)
	switch n.Op.Type {
	case TokenBang:
		SetType(n, TypeBool)
	case TokenMinus:
		t := n.Operand.Type()
		if t != TypeInt && t != TypeFloat {
			v.errorf(n.ExprRange(), "unary '-' requires Int or Float, got %s", t)
			SetType(n, TypeInvalid)
			return
		}
		SetType(n, t)
	}
}

// analyzeBinary is get_operator_type / analyze_binary: picks the
// higher-ranked operand's type as the result for both arithmetic and
// comparison, but still requires identical operand types — the
// "higher-ranked operand" language in spec section 4.4 is preserved
// literally rather than implemented as implicit promotion (see
// SPEC_FULL.md section 3).
func (v *Validator) analyzeBinary(n *Binary) {
	v.analyzeExpr(n.LHS)
	v.analyzeExpr(n.RHS)

	if n.Op.Type == TokenAnd || n.Op.Type == TokenOr {
		if n.LHS.Type() != TypeBool || n.RHS.Type() != TypeBool {
			v.errorf(n.ExprRange(), "%q requires Bool operands", v.text(n.Op))
		}
		SetType(n, TypeBool)
		return
	}

	result := OperatorResultType(n.Op.Type, n.LHS.Type(), n.RHS.Type())
	if result == TypeInvalid {
		v.errorf(n.ExprRange(), "operator %q is not defined for %s and %s", v.text(n.Op), n.LHS.Type(), n.RHS.Type())
	}
	switch n.Op.Type {
	case TokenEqual, TokenBangEqual, TokenLess, TokenLessEqual, TokenGreater, TokenGreaterEqual:
		if result != TypeInvalid {
			result = TypeBool
		}
	}
	SetType(n, result)
}

// analyzeCall is function_call/analyze_call: the callee's Type must be
// a Function, arity must match, and each argument must satisfy
// CheckAssignment against the declared parameter type (Any params
// skip the check).
func (v *Validator) analyzeCall(n *Call) {
	v.analyzeExpr(n.Callee)
	for _, a := range n.Args {
		v.analyzeExpr(a)
	}

	fnType := underlying(n.Callee.Type())
	if fnType == nil || fnType.Kind != KindFunction {
		if fnType != nil && fnType.Kind == KindStruct {
			// zero-arg struct constructor call (analyze_variable synthesis)
			SetType(n, n.Callee.Type())
			return
		}
		v.errorf(n.ExprRange(), "callee is not callable")
		SetType(n, TypeInvalid)
		return
	}
	if len(n.Args) != len(fnType.Params) {
		v.errorf(n.ExprRange(), "expected %d arguments, got %d", len(fnType.Params), len(n.Args))
	}
	for i, a := range n.Args {
		if i >= len(fnType.Params) {
			break
		}
		if fnType.Params[i].Kind != KindAny && !CheckAssignment(fnType.Params[i], a.Type()) {
			v.errorf(a.ExprRange(), "argument %d: cannot assign %s to %s", i, a.Type(), fnType.Params[i])
		}
	}
	SetType(n, fnType.Return)
}

// analyzeSubscript is analyze_subscript: target must be Array or Map;
// the result type is the element/value type.
func (v *Validator) analyzeSubscript(n *Subscript) {
	v.analyzeExpr(n.Target)
	v.analyzeExpr(n.Index)

	t := underlying(n.Target.Type())
	switch {
	case t != nil && t.Kind == KindArray:
		if n.Index.Type() != TypeInt {
			v.errorf(n.Index.ExprRange(), "array index must be Int")
		}
		SetType(n, t.Elem)
	case t != nil && t.Kind == KindMap:
		if !TypeMatch(t.Key, n.Index.Type()) {
			v.errorf(n.Index.ExprRange(), "map key type mismatch")
		}
		SetType(n, t.Value)
	default:
		v.errorf(n.ExprRange(), "value is not indexable")
		SetType(n, TypeInvalid)
	}
}

// analyzeAccess is analyze_access: target must resolve to a Struct,
// Member must name one of its fields, MemberIndex records the ordinal
// the emitter will use for STRUCT_GET/STRUCT_SET.
func (v *Validator) analyzeAccess(n *Access) {
	v.analyzeExpr(n.Target)
	t := underlying(n.Target.Type())
	if t == nil || t.Kind != KindStruct {
		v.errorf(n.ExprRange(), "value is not a struct")
		SetType(n, TypeInvalid)
		return
	}
	name := v.text(n.Member)
	for i, m := range t.Members {
		if m.Name.Equal(v.source, n.Member) || v.text(m.Name) == name {
			n.MemberIndex = i
			SetType(n, m.Type)
			return
		}
	}
	v.errorf(n.ExprRange(), "struct %s has no member %q", t, name)
	SetType(n, TypeInvalid)
}

func (v *Validator) analyzeCast(n *Cast) {
	v.analyzeExpr(n.Operand)
	t := n.Operand.Type()
	if t != TypeInt && t != TypeFloat {
		v.errorf(n.ExprRange(), "cast operand must be Int or Float")
	}
	if n.Target == TokenInt {
		SetType(n, TypeInt)
	} else {
		SetType(n, TypeFloat)
	}
}

// analyzeClosureExpr is analyze_closure: analyzes the body in a fresh
// scope flagged IsClosure so nested analyzePrimary calls know to
// attempt upvalue capture. A named closure's name is not bound in any
// scope, so the body cannot refer to the closure by that name.
func (v *Validator) analyzeClosureExpr(n *ClosureExpr) {
	paramTypes := make([]*Type, len(n.Func.Params))
	for i, p := range n.Func.Params {
		paramTypes[i] = p.Type
	}
	fnType := v.interner.InternFunction(n.Func.Return, paramTypes)
	SetType(n, fnType)

	enclosingScope := v.scope
	enclosingFn := v.fn
	enclosingNextLocal := v.nextLocal
	scope := NewScope(enclosingScope)
	scope.IsClosure = true
	v.scope = scope
	v.fn = n.Func
	v.nextLocal = len(n.Func.Params)

	for i := range n.Func.Params {
		p := &n.Func.Params[i]
		sym := &Symbol{Name: p.Name, Type: p.Type, Index: i, Assignable: true}
		scope.Add(v.text(p.Name), sym)
	}
	for _, s := range n.Func.Body {
		v.analyzeStmt(s)
	}
	if !n.Func.IsNative && n.Func.Return != TypeVoid && !blockReturns(n.Func.Body) {
		v.errorf(n.ExprRange(), "non-void closure must end in a return statement")
	}

	n.Func.LocalCount = v.nextLocal - len(n.Func.Params)
	n.Func.Upvalues = scope.Upvalues
	v.scope = enclosingScope
	v.fn = enclosingFn
	v.nextLocal = enclosingNextLocal
}
