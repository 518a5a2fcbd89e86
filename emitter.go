package matiria

import "strconv"

// Emitter walks a validated AST and writes bytecode, one Chunk per
// function/closure/struct-constructor — write_bytecode/mtr_compile in
// the original compiler.c, restructured around Go's []byte Chunk
// instead of a manually-grown C buffer.
type Emitter struct {
	source []byte
	pkg    *Package
	diags  *Diagnostics
}

func NewEmitter(source []byte, pkg *Package, diags *Diagnostics) *Emitter {
	return &Emitter{source: source, pkg: pkg, diags: diags}
}

func (em *Emitter) text(tok Token) string { return tok.Text(em.source) }

// Emit is write_bytecode's top-level loop: one callable is registered
// per top-level function/struct declaration, in source order, which
// Run() later depends on for its "push every global, then call main"
// convention.
func (em *Emitter) Emit(prog *Program) {
	for _, s := range prog.Stmts {
		switch decl := s.(type) {
		case *FuncDecl:
			chunk := NewChunk(em.text(decl.Name))
			chunk.ParamCount = len(decl.Params)
			em.emitBlock(chunk, decl.Body)
			em.writeImplicitReturn(chunk, decl.Return)
			em.pkg.Register(em.text(decl.Name), NewFunctionObject(chunk))
		case *StructDecl:
			chunk := em.emitConstructor(decl)
			em.pkg.Register(em.text(decl.Name), NewFunctionObject(chunk))
		case *VarDecl:
			// top-level var decls are not emitted: no chunk runs their
			// initializer and nothing is registered for them in the
			// package.
		}
	}
}

func (em *Emitter) writeImplicitReturn(chunk *Chunk, ret *Type) {
	if len(chunk.Code) > 0 && Op(chunk.Code[len(chunk.Code)-1]) == OpReturn {
		return
	}
	em.writeDefaultValue(chunk, ret)
	chunk.WriteOp(OpReturn)
}

// emitConstructor is write_struct: push one default value per member
// (its own initializer if the struct decl supplied one, otherwise the
// type-appropriate nil opcode), then CONSTRUCTOR, then RETURN.
func (em *Emitter) emitConstructor(decl *StructDecl) *Chunk {
	chunk := NewChunk(em.text(decl.Name))
	for i, m := range decl.Members {
		if init := decl.MemberInits[i]; init != nil {
			em.emitExpr(chunk, init)
		} else {
			em.writeDefaultValue(chunk, m.Type)
		}
	}
	chunk.WriteOp(OpConstructor)
	chunk.WriteU16(uint16(len(decl.Members)))
	chunk.WriteU16(chunk.AddString(em.text(decl.Name)))
	chunk.WriteOp(OpReturn)
	return chunk
}

// writeDefaultValue is write_variable's default-initializer half: one
// nil-ish opcode per declared type, keyed the same way the original
// compiler keys EMPTY_STRING/EMPTY_ARRAY/EMPTY_MAP/NIL.
func (em *Emitter) writeDefaultValue(chunk *Chunk, t *Type) {
	switch underlying(t).Kind {
	case KindInt:
		chunk.WriteOp(OpInt)
		chunk.WriteU16(chunk.AddInt(0))
	case KindFloat:
		chunk.WriteOp(OpFloat)
		chunk.WriteU16(chunk.AddFloat(0))
	case KindBool:
		chunk.WriteOp(OpFalse)
	case KindString:
		chunk.WriteOp(OpEmptyString)
	case KindArray:
		chunk.WriteOp(OpEmptyArray)
	case KindMap:
		chunk.WriteOp(OpEmptyMap)
	default:
		chunk.WriteOp(OpNil)
	}
}

// emitBlock is write_block: emit every statement. The caller is
// responsible for popping any locals the block declared once it ends
// (see the *Block case in emitStmt).
func (em *Emitter) emitBlock(chunk *Chunk, stmts []Stmt) {
	for _, s := range stmts {
		em.emitStmt(chunk, s)
	}
}

func (em *Emitter) emitStmt(chunk *Chunk, s Stmt) {
	switch n := s.(type) {
	case *VarDecl:
		if n.Init != nil {
			em.emitExpr(chunk, n.Init)
		} else {
			em.writeDefaultValue(chunk, n.Declared)
		}
	case *Assignment:
		em.emitAssignment(chunk, n)
		chunk.WriteOp(OpPop)
	case *Block:
		em.emitBlock(chunk, n.Stmts)
		if n.LocalCount > 0 {
			chunk.WriteOp(OpPopV)
			chunk.WriteByte(byte(n.LocalCount))
		}
	case *If:
		em.emitIf(chunk, n)
	case *While:
		em.emitWhile(chunk, n)
	case *Return:
		em.emitReturn(chunk, n)
	case *ExprStmt:
		em.emitExpr(chunk, n.Expr)
		chunk.WriteOp(OpPop)
	case *FuncDecl, *StructDecl, *UnionDecl:
		// nested declarations are emitted by Emit's top-level pass.
	}
}

func (em *Emitter) emitAssignment(chunk *Chunk, a *Assignment) {
	switch target := a.Target.(type) {
	case *Primary:
		em.emitExpr(chunk, a.Value)
		em.writeStore(chunk, target.Symbol)
	case *Subscript:
		em.emitExpr(chunk, target.Target)
		em.emitExpr(chunk, target.Index)
		em.emitExpr(chunk, a.Value)
		chunk.WriteOp(OpIndexSet)
	case *Access:
		em.emitExpr(chunk, target.Target)
		em.emitExpr(chunk, a.Value)
		chunk.WriteOp(OpStructSet)
		chunk.WriteU16(uint16(target.MemberIndex))
	}
}

func (em *Emitter) writeStore(chunk *Chunk, sym *Symbol) {
	switch {
	case sym.IsUpvalue:
		chunk.WriteOp(OpUpvalueSet)
		chunk.WriteU16(uint16(sym.Index))
	case sym.IsGlobal:
		chunk.WriteOp(OpGlobalSet)
		chunk.WriteU16(uint16(sym.Index))
	default:
		chunk.WriteOp(OpSet)
		chunk.WriteU16(uint16(sym.Index))
	}
}

// emitCondition emits an If/While condition, normalizing a Float
// result to a Bool (nonzero-is-true) so that JMP_Z's Value.Bool() test
// — which only inspects the Int field — sees a meaningful value. Int
// and Bool conditions already round-trip through Value.Int untouched.
func (em *Emitter) emitCondition(chunk *Chunk, cond Expr) {
	em.emitExpr(chunk, cond)
	if cond.Type() == TypeFloat {
		chunk.WriteOp(OpFloat)
		chunk.WriteU16(chunk.AddFloat(0))
		chunk.WriteOp(OpEqualF)
		chunk.WriteOp(OpNot)
	}
}

// emitIf is write_if: a JMP_Z over the then-branch, with a trailing
// JMP past the else-branch when one is present.
func (em *Emitter) emitIf(chunk *Chunk, n *If) {
	em.emitCondition(chunk, n.Cond)
	thenJump := chunk.WriteJump(OpJmpZ)
	em.emitStmt(chunk, n.Then)

	if n.Otherwise != nil {
		elseJump := chunk.WriteJump(OpJmp)
		chunk.PatchJump(thenJump)
		em.emitStmt(chunk, n.Otherwise)
		chunk.PatchJump(elseJump)
	} else {
		chunk.PatchJump(thenJump)
	}
}

// emitWhile is write_while: the condition is emitted once at the loop
// head, and the body ends in a backward jump to that condition.
func (em *Emitter) emitWhile(chunk *Chunk, n *While) {
	loopStart := len(chunk.Code)
	em.emitCondition(chunk, n.Cond)
	exitJump := chunk.WriteJump(OpJmpZ)
	em.emitStmt(chunk, n.Body)
	chunk.WriteLoop(OpJmp, loopStart)
	chunk.PatchJump(exitJump)
}

func (em *Emitter) emitReturn(chunk *Chunk, n *Return) {
	if n.Value != nil {
		em.emitExpr(chunk, n.Value)
	} else {
		chunk.WriteOp(OpNil)
	}
	chunk.WriteOp(OpReturn)
}

// ---- expressions ----

func (em *Emitter) emitExpr(chunk *Chunk, e Expr) {
	switch n := e.(type) {
	case *Literal:
		em.emitLiteral(chunk, n)
	case *ArrayLiteral:
		em.emitArrayLiteral(chunk, n)
	case *MapLiteral:
		em.emitMapLiteral(chunk, n)
	case *Primary:
		em.emitPrimary(chunk, n)
	case *Unary:
		em.emitUnary(chunk, n)
	case *Binary:
		em.emitBinary(chunk, n)
	case *Call:
		em.emitCall(chunk, n)
	case *Subscript:
		em.emitSubscript(chunk, n)
	case *Access:
		em.emitAccess(chunk, n)
	case *Cast:
		em.emitCast(chunk, n)
	case *ClosureExpr:
		em.emitClosure(chunk, n)
	}
}

// emitLiteral is write_literal: evaluate_int/evaluate_float parse the
// token text directly (base-10, no strconv.ParseFloat edge-case
// handling beyond what the grammar already restricts to digits).
func (em *Emitter) emitLiteral(chunk *Chunk, n *Literal) {
	text := em.text(n.Token)
	switch n.Token.Type {
	case TokenIntLiteral:
		val, _ := strconv.ParseInt(text, 10, 64)
		chunk.WriteOp(OpInt)
		chunk.WriteU16(chunk.AddInt(val))
	case TokenFloatLiteral:
		val, _ := strconv.ParseFloat(text, 64)
		chunk.WriteOp(OpFloat)
		chunk.WriteU16(chunk.AddFloat(val))
	case TokenStringLiteral:
		// strip the delimiting quotes the lexer included in the span
		s := text
		if len(s) >= 2 {
			s = s[1 : len(s)-1]
		}
		chunk.WriteOp(OpStringLiteral)
		chunk.WriteU16(chunk.AddString(s))
	case TokenTrue:
		chunk.WriteOp(OpTrue)
	case TokenFalse:
		chunk.WriteOp(OpFalse)
	}
}

// emitArrayLiteral/emitMapLiteral emit elements in reverse so the VM,
// which pops LIFO, reconstructs the original left-to-right order —
// write_array_literal/write_map_literal in the original compiler.
func (em *Emitter) emitArrayLiteral(chunk *Chunk, n *ArrayLiteral) {
	if len(n.Elements) == 0 {
		chunk.WriteOp(OpEmptyArray)
		return
	}
	for i := len(n.Elements) - 1; i >= 0; i-- {
		em.emitExpr(chunk, n.Elements[i])
	}
	chunk.WriteOp(OpArrayLiteral)
	chunk.WriteU16(uint16(len(n.Elements)))
}

func (em *Emitter) emitMapLiteral(chunk *Chunk, n *MapLiteral) {
	if len(n.Entries) == 0 {
		chunk.WriteOp(OpEmptyMap)
		return
	}
	for i := len(n.Entries) - 1; i >= 0; i-- {
		em.emitExpr(chunk, n.Entries[i].Value)
		em.emitExpr(chunk, n.Entries[i].Key)
	}
	chunk.WriteOp(OpMapLiteral)
	chunk.WriteU16(uint16(len(n.Entries)))
}

// emitPrimary is write_primary: dispatches GLOBAL_GET/UPVALUE_GET/GET
// on the resolved symbol's flags.
func (em *Emitter) emitPrimary(chunk *Chunk, n *Primary) {
	if n.Symbol == nil {
		chunk.WriteOp(OpNil)
		return
	}
	switch {
	case n.Symbol.IsUpvalue:
		chunk.WriteOp(OpUpvalueGet)
		chunk.WriteU16(uint16(n.Symbol.Index))
	case n.Symbol.IsGlobal:
		chunk.WriteOp(OpGlobalGet)
		chunk.WriteU16(uint16(n.Symbol.Index))
	default:
		chunk.WriteOp(OpGet)
		chunk.WriteU16(uint16(n.Symbol.Index))
	}
}

func (em *Emitter) emitUnary(chunk *Chunk, n *Unary) {
	em.emitExpr(chunk, n.Operand)
	switch n.Op.Type {
	case TokenBang:
		chunk.WriteOp(OpNot)
	case TokenMinus:
		if n.Operand.Type() == TypeFloat {
			chunk.WriteOp(OpNegateF)
		} else {
			chunk.WriteOp(OpNegateI)
		}
	}
}

// emitBinary is write_binary's BINARY_OP dispatch: select the _I or
// _F opcode variant by operand type, synthesizing <=/>= from
// GREATER/LESS + NOT the way the original compiler does, and AND/OR
// via short-circuit jump-and-patch.
func (em *Emitter) emitBinary(chunk *Chunk, n *Binary) {
	if n.Op.Type == TokenAnd {
		em.emitExpr(chunk, n.LHS)
		jump := chunk.WriteJump(OpAnd)
		chunk.WriteOp(OpPop)
		em.emitExpr(chunk, n.RHS)
		chunk.PatchJump(jump)
		return
	}
	if n.Op.Type == TokenOr {
		em.emitExpr(chunk, n.LHS)
		jump := chunk.WriteJump(OpOr)
		chunk.WriteOp(OpPop)
		em.emitExpr(chunk, n.RHS)
		chunk.PatchJump(jump)
		return
	}

	em.emitExpr(chunk, n.LHS)
	em.emitExpr(chunk, n.RHS)
	isFloat := n.LHS.Type() == TypeFloat

	switch n.Op.Type {
	case TokenPlus:
		chunk.WriteOp(pick(isFloat, OpAddF, OpAddI))
	case TokenMinus:
		chunk.WriteOp(pick(isFloat, OpSubF, OpSubI))
	case TokenStar:
		chunk.WriteOp(pick(isFloat, OpMulF, OpMulI))
	case TokenSlash:
		chunk.WriteOp(pick(isFloat, OpDivF, OpDivI))
	case TokenEqual:
		chunk.WriteOp(pick(isFloat, OpEqualF, OpEqualI))
	case TokenBangEqual:
		chunk.WriteOp(pick(isFloat, OpEqualF, OpEqualI))
		chunk.WriteOp(OpNot)
	case TokenLess:
		chunk.WriteOp(pick(isFloat, OpLessF, OpLessI))
	case TokenGreater:
		chunk.WriteOp(pick(isFloat, OpGreaterF, OpGreaterI))
	case TokenLessEqual:
		chunk.WriteOp(pick(isFloat, OpGreaterF, OpGreaterI))
		chunk.WriteOp(OpNot)
	case TokenGreaterEqual:
		chunk.WriteOp(pick(isFloat, OpLessF, OpLessI))
		chunk.WriteOp(OpNot)
	}
}

func pick(cond bool, a, b Op) Op {
	if cond {
		return a
	}
	return b
}

// emitCall pushes arguments before the callee, so OpCall's pop (top of
// stack) lands on the callable object and the argc values beneath it
// land exactly at the new frame's base — function_call in the
// original compiler/engine pair.
func (em *Emitter) emitCall(chunk *Chunk, n *Call) {
	for _, a := range n.Args {
		em.emitExpr(chunk, a)
	}
	em.emitExpr(chunk, n.Callee)
	chunk.WriteOp(OpCall)
	chunk.WriteByte(byte(len(n.Args)))
}

func (em *Emitter) emitSubscript(chunk *Chunk, n *Subscript) {
	em.emitExpr(chunk, n.Target)
	em.emitExpr(chunk, n.Index)
	chunk.WriteOp(OpIndexGet)
}

func (em *Emitter) emitAccess(chunk *Chunk, n *Access) {
	em.emitExpr(chunk, n.Target)
	chunk.WriteOp(OpStructGet)
	chunk.WriteU16(uint16(n.MemberIndex))
}

func (em *Emitter) emitCast(chunk *Chunk, n *Cast) {
	em.emitExpr(chunk, n.Operand)
	if n.Target == TokenInt {
		chunk.WriteOp(OpIntCast)
	} else {
		chunk.WriteOp(OpFloatCast)
	}
}

// emitClosure is write_closure: instead of embedding a raw pointer to
// a boxed closure prototype in the bytecode stream (the original
// implementation's scheme, flagged by spec's Design Notes as needing a
// redesign for a managed-memory host), the prototype Chunk is
// registered in the Package's side table and referenced by index.
func (em *Emitter) emitClosure(chunk *Chunk, n *ClosureExpr) {
	proto := NewChunk("<closure>")
	proto.ParamCount = len(n.Func.Params)
	em.emitBlock(proto, n.Func.Body)
	em.writeImplicitReturn(proto, n.Func.Return)
	protoIdx := em.pkg.AddClosureProto(proto)

	chunk.WriteOp(OpClosure)
	chunk.WriteU16(uint16(protoIdx))
	chunk.WriteByte(byte(len(n.Func.Upvalues)))
	for _, uv := range n.Func.Upvalues {
		if uv.Local {
			chunk.WriteByte(1)
		} else {
			chunk.WriteByte(0)
		}
		chunk.WriteU16(uint16(uv.Index))
	}
}
