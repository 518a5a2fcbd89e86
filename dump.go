package matiria

import "strings"

// Dump renders prog back into Matiria source text. It is the "dump"
// half of spec section 8's round-trip law ("parse -> dump -> re-parse
// is idempotent on ASTs for the subset of programs without error
// recovery"): re-parsing Dump's output must produce a Program whose
// Snapshot matches the original's, even though token byte offsets
// will differ between the two source buffers.
func Dump(prog *Program, source []byte) string {
	d := &dumper{source: source}
	for _, s := range prog.Stmts {
		d.stmt(s)
		d.nl()
	}
	return d.b.String()
}

type dumper struct {
	source []byte
	b      strings.Builder
}

func (d *dumper) text(tok Token) string { return tok.Text(d.source) }
func (d *dumper) write(s string)        { d.b.WriteString(s) }
func (d *dumper) nl()                   { d.b.WriteString("\n") }

// typeName renders a Type as a parseable type expression. Unlike
// Type.String (diagnostics-only; rawText is a stub), this reads the
// user/struct/union name directly out of source via its Token.
func (d *dumper) typeName(t *Type) string {
	if t == nil {
		return "Any"
	}
	switch t.Kind {
	case KindInt:
		return "Int"
	case KindFloat:
		return "Float"
	case KindBool:
		return "Bool"
	case KindString:
		return "String"
	case KindAny:
		return "Any"
	case KindVoid:
		return "Void"
	case KindArray:
		return "[" + d.typeName(t.Elem) + "]"
	case KindMap:
		return "[" + d.typeName(t.Key) + ", " + d.typeName(t.Value) + "]"
	case KindFunction:
		var parts []string
		for _, p := range t.Params {
			parts = append(parts, d.typeName(p))
		}
		return "(" + strings.Join(parts, ", ") + ") -> " + d.typeName(t.Return)
	case KindUser, KindStruct, KindUnion:
		return d.text(t.Name)
	default:
		return "Any"
	}
}

func (d *dumper) stmt(s Stmt) {
	switch n := s.(type) {
	case *FuncDecl:
		d.funcDecl(n)
	case *StructDecl:
		d.write("type " + d.text(n.Name) + " := {")
		for i, m := range n.Members {
			if i > 0 {
				d.write(", ")
			}
			d.write(d.typeName(m.Type) + " " + d.text(m.Name))
			if n.MemberInits[i] != nil {
				d.write(" := ")
				d.expr(n.MemberInits[i])
			}
		}
		d.write("};")
	case *UnionDecl:
		d.write("type " + d.text(n.Name) + " := ")
		for i, v := range n.Variants {
			if i > 0 {
				d.write(" | ")
			}
			d.write(d.typeName(v))
		}
		d.write(";")
	case *VarDecl:
		d.write(d.typeName(n.Declared) + " " + d.text(n.Name))
		if n.Init != nil {
			d.write(" := ")
			d.expr(n.Init)
		}
		d.write(";")
	case *Assignment:
		d.expr(n.Target)
		d.write(" := ")
		d.expr(n.Value)
		d.write(";")
	case *Block:
		d.block(n)
	case *If:
		d.write("if ")
		d.expr(n.Cond)
		d.write(": ")
		d.block(n.Then)
		if n.Otherwise != nil {
			d.write(" else ")
			d.stmt(n.Otherwise)
		}
	case *While:
		d.write("while ")
		d.expr(n.Cond)
		d.write(": ")
		d.block(n.Body)
	case *Return:
		d.write("return")
		if n.Value != nil {
			d.write(" ")
			d.expr(n.Value)
		}
		d.write(";")
	case *ExprStmt:
		d.expr(n.Expr)
		d.write(";")
	}
}

func (d *dumper) block(b *Block) {
	d.write("{ ")
	for _, s := range b.Stmts {
		d.stmt(s)
		d.write(" ")
	}
	d.write("}")
}

func (d *dumper) funcDecl(n *FuncDecl) {
	d.write("fn " + d.text(n.Name) + "(")
	for i, p := range n.Params {
		if i > 0 {
			d.write(", ")
		}
		d.write(d.typeName(p.Type) + " " + d.text(p.Name))
	}
	d.write(")")
	if n.Return != TypeVoid {
		d.write(" -> " + d.typeName(n.Return))
	}
	d.write(" ")
	switch {
	case n.IsNative:
		d.write("...;")
	default:
		d.block(&Block{Stmts: n.Body})
	}
}

func (d *dumper) expr(e Expr) {
	switch n := e.(type) {
	case *Literal:
		d.write(d.text(n.Token))
	case *ArrayLiteral:
		d.write("[")
		for i, el := range n.Elements {
			if i > 0 {
				d.write(", ")
			}
			d.expr(el)
		}
		d.write("]")
	case *MapLiteral:
		d.write("[")
		for i, entry := range n.Entries {
			if i > 0 {
				d.write(", ")
			}
			d.expr(entry.Key)
			d.write(": ")
			d.expr(entry.Value)
		}
		d.write("]")
	case *Primary:
		d.write(d.text(n.Name))
	case *Unary:
		d.write(d.text(n.Op))
		d.expr(n.Operand)
	case *Binary:
		d.write("(")
		d.expr(n.LHS)
		d.write(" " + d.text(n.Op) + " ")
		d.expr(n.RHS)
		d.write(")")
	case *Call:
		d.expr(n.Callee)
		d.write("(")
		for i, a := range n.Args {
			if i > 0 {
				d.write(", ")
			}
			d.expr(a)
		}
		d.write(")")
	case *Subscript:
		d.expr(n.Target)
		d.write("[")
		d.expr(n.Index)
		d.write("]")
	case *Access:
		d.expr(n.Target)
		d.write("." + d.text(n.Member))
	case *Cast:
		if n.Target == TokenInt {
			d.write("Int(")
		} else {
			d.write("Float(")
		}
		d.expr(n.Operand)
		d.write(")")
	case *ClosureExpr:
		d.funcDecl(n.Func)
	}
}

// Snapshot reduces prog to a normalized, comparable tree: semantic
// content only (identifier text, literal text, operator text, type
// names), with every Range/Token byte offset dropped. Two programs
// produced from different source buffers compare equal under
// cmp.Diff iff they are the same program modulo source position,
// which is exactly what the parse -> dump -> re-parse law needs.
func Snapshot(prog *Program, source []byte) []interface{} {
	d := &dumper{source: source}
	out := make([]interface{}, 0, len(prog.Stmts))
	for _, s := range prog.Stmts {
		out = append(out, d.snapStmt(s))
	}
	return out
}

func (d *dumper) snapStmt(s Stmt) map[string]interface{} {
	switch n := s.(type) {
	case *FuncDecl:
		return d.snapFunc(n)
	case *StructDecl:
		members := make([]interface{}, len(n.Members))
		for i, m := range n.Members {
			var init interface{}
			if n.MemberInits[i] != nil {
				init = d.snapExpr(n.MemberInits[i])
			}
			members[i] = map[string]interface{}{
				"name": d.text(m.Name), "type": d.typeName(m.Type), "init": init,
			}
		}
		return map[string]interface{}{"kind": "struct", "name": d.text(n.Name), "members": members}
	case *UnionDecl:
		variants := make([]interface{}, len(n.Variants))
		for i, v := range n.Variants {
			variants[i] = d.typeName(v)
		}
		return map[string]interface{}{"kind": "union", "name": d.text(n.Name), "variants": variants}
	case *VarDecl:
		var init interface{}
		if n.Init != nil {
			init = d.snapExpr(n.Init)
		}
		return map[string]interface{}{
			"kind": "var", "type": d.typeName(n.Declared), "name": d.text(n.Name), "init": init,
		}
	case *Assignment:
		return map[string]interface{}{
			"kind": "assign", "target": d.snapExpr(n.Target), "value": d.snapExpr(n.Value),
		}
	case *Block:
		return map[string]interface{}{"kind": "block", "stmts": d.snapStmts(n.Stmts)}
	case *If:
		var otherwise interface{}
		if n.Otherwise != nil {
			otherwise = d.snapStmt(n.Otherwise)
		}
		return map[string]interface{}{
			"kind": "if", "cond": d.snapExpr(n.Cond), "then": d.snapStmt(n.Then), "otherwise": otherwise,
		}
	case *While:
		return map[string]interface{}{"kind": "while", "cond": d.snapExpr(n.Cond), "body": d.snapStmt(n.Body)}
	case *Return:
		var value interface{}
		if n.Value != nil {
			value = d.snapExpr(n.Value)
		}
		return map[string]interface{}{"kind": "return", "value": value}
	case *ExprStmt:
		return map[string]interface{}{"kind": "exprstmt", "expr": d.snapExpr(n.Expr)}
	default:
		return map[string]interface{}{"kind": "unknown"}
	}
}

func (d *dumper) snapStmts(stmts []Stmt) []interface{} {
	out := make([]interface{}, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, d.snapStmt(s))
	}
	return out
}

func (d *dumper) snapFunc(n *FuncDecl) map[string]interface{} {
	params := make([]interface{}, len(n.Params))
	for i, p := range n.Params {
		params[i] = map[string]interface{}{"name": d.text(p.Name), "type": d.typeName(p.Type)}
	}
	return map[string]interface{}{
		"kind": "fn", "name": d.text(n.Name), "params": params,
		"return": d.typeName(n.Return), "native": n.IsNative, "body": d.snapStmts(n.Body),
	}
}

func (d *dumper) snapExpr(e Expr) map[string]interface{} {
	switch n := e.(type) {
	case *Literal:
		return map[string]interface{}{"kind": "lit", "text": d.text(n.Token)}
	case *ArrayLiteral:
		elems := make([]interface{}, len(n.Elements))
		for i, el := range n.Elements {
			elems[i] = d.snapExpr(el)
		}
		return map[string]interface{}{"kind": "array", "elements": elems}
	case *MapLiteral:
		entries := make([]interface{}, len(n.Entries))
		for i, en := range n.Entries {
			entries[i] = map[string]interface{}{"key": d.snapExpr(en.Key), "value": d.snapExpr(en.Value)}
		}
		return map[string]interface{}{"kind": "map", "entries": entries}
	case *Primary:
		return map[string]interface{}{"kind": "name", "text": d.text(n.Name)}
	case *Unary:
		return map[string]interface{}{"kind": "unary", "op": d.text(n.Op), "operand": d.snapExpr(n.Operand)}
	case *Binary:
		return map[string]interface{}{
			"kind": "binary", "op": d.text(n.Op), "lhs": d.snapExpr(n.LHS), "rhs": d.snapExpr(n.RHS),
		}
	case *Call:
		args := make([]interface{}, len(n.Args))
		for i, a := range n.Args {
			args[i] = d.snapExpr(a)
		}
		return map[string]interface{}{"kind": "call", "callee": d.snapExpr(n.Callee), "args": args}
	case *Subscript:
		return map[string]interface{}{
			"kind": "subscript", "target": d.snapExpr(n.Target), "index": d.snapExpr(n.Index),
		}
	case *Access:
		return map[string]interface{}{
			"kind": "access", "target": d.snapExpr(n.Target), "member": d.text(n.Member),
		}
	case *Cast:
		return map[string]interface{}{
			"kind": "cast", "target": n.Target.String(), "operand": d.snapExpr(n.Operand),
		}
	case *ClosureExpr:
		return map[string]interface{}{"kind": "closure", "func": d.snapFunc(n.Func)}
	default:
		return map[string]interface{}{"kind": "unknown"}
	}
}
