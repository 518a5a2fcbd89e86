package matiria

import "fmt"

// precedence is the Pratt parser's binding-power ladder from spec
// section 4.2: NONE < LOGIC < EQUALITY < COMPARISON < TERM < FACTOR <
// UNARY < CALL < SUBSCRIPT < ACCESS < PRIMARY.
type precedence int

const (
	precNone precedence = iota
	precLogic
	precEquality
	precComparison
	precTerm
	precFactor
	precUnary
	precCall
	precSubscript
	precAccess
	precPrimary
)

var tokenPrecedence = map[TokenType]precedence{
	TokenAnd:          precLogic,
	TokenOr:           precLogic,
	TokenEqual:        precEquality,
	TokenBangEqual:    precEquality,
	TokenLess:         precComparison,
	TokenLessEqual:    precComparison,
	TokenGreater:      precComparison,
	TokenGreaterEqual: precComparison,
	TokenPlus:         precTerm,
	TokenMinus:        precTerm,
	TokenStar:         precFactor,
	TokenSlash:        precFactor,
	TokenParenL:       precCall,
	TokenSqrL:         precSubscript,
	TokenDot:          precAccess,
}

// syncPoints are the token types synchronize() scans forward to after
// a parse error: Int, Float, Bool, String, fn, if, while, {, } and
// type (a ';' just consumed also ends the scan).
var syncPoints = map[TokenType]bool{
	TokenInt:     true,
	TokenFloat:   true,
	TokenBool:    true,
	TokenString:  true,
	TokenFn:      true,
	TokenIf:      true,
	TokenWhile:   true,
	TokenCurlyL:  true,
	TokenCurlyR:  true,
	TokenType_:   true,
}

// Parser is a single-pass recursive-descent / Pratt parser over the
// Lexer's token stream. It never backtracks: on a malformed
// production it records a compileError, synchronizes to the next
// statement boundary, and keeps going so a single source file can
// report more than one mistake per invocation (spec section 7).
type Parser struct {
	lexer    *Lexer
	source   []byte
	interner *Interner
	diags    *Diagnostics

	previous Token
	current  Token
	hadError bool
	panicking bool

	peeked    Token
	hasPeeked bool
}

func NewParser(source []byte, interner *Interner, diags *Diagnostics) *Parser {
	p := &Parser{lexer: NewLexer(source), source: source, interner: interner, diags: diags}
	p.advance()
	return p
}

func (p *Parser) advance() {
	p.previous = p.current
	if p.hasPeeked {
		p.current = p.peeked
		p.hasPeeked = false
		return
	}
	p.current = p.scan()
}

func (p *Parser) scan() Token {
	for {
		tok := p.lexer.Next()
		if tok.Type != TokenComment {
			return tok
		}
	}
}

// peekNext returns the token after current without consuming it, for
// the identifier-as-statement disambiguation (spec section 4.2): a
// one-token lookahead cached until the next advance.
func (p *Parser) peekNext() Token {
	if !p.hasPeeked {
		p.peeked = p.scan()
		p.hasPeeked = true
	}
	return p.peeked
}

func (p *Parser) check(t TokenType) bool { return p.current.Type == t }

func (p *Parser) match(t TokenType) bool {
	if !p.check(t) {
		return false
	}
	p.advance()
	return true
}

func (p *Parser) expect(t TokenType, msg string) Token {
	if p.check(t) {
		tok := p.current
		p.advance()
		return tok
	}
	p.errorAt(p.current, msg)
	return invalidToken
}

func (p *Parser) errorAt(tok Token, msg string) {
	if p.panicking {
		return
	}
	p.panicking = true
	p.hadError = true
	p.diags.Add("parser", msg, tok.Range())
}

// synchronize discards tokens until it lands on a statement boundary,
// mirroring the original parser's panic-mode recovery.
func (p *Parser) synchronize() {
	p.panicking = false
	for p.current.Type != TokenEOF {
		if p.previous.Type == TokenSemicolon {
			return
		}
		if syncPoints[p.current.Type] {
			return
		}
		p.advance()
	}
}

func (p *Parser) text(tok Token) string { return tok.Text(p.source) }

// ParseProgram parses an entire source file into a flat, ordered list
// of top-level statements (mtr_load_package's registration order).
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	for !p.check(TokenEOF) {
		if s := p.declaration(); s != nil {
			prog.Stmts = append(prog.Stmts, s)
		}
		if p.panicking {
			p.synchronize()
		}
	}
	return prog
}

// ---- declarations / statements ----

func (p *Parser) declaration() Stmt {
	switch {
	case p.match(TokenFn):
		return p.functionDecl()
	case p.match(TokenType_):
		return p.typeDecl()
	case p.looksLikeType():
		return p.varDecl()
	case p.check(TokenIdentifier) && p.peekNext().Type == TokenIdentifier:
		// Identifier-as-statement disambiguation (spec section 4.2):
		// IDENT IDENT ... is a user-typed variable declaration.
		return p.varDecl()
	default:
		return p.statement()
	}
}

// looksLikeFunctionType reports whether the parens starting at
// p.current open a function type `(T, ...) -> Ret` rather than a
// parenthesized expression, by speculatively scanning forward over a
// cloned Lexer (cheap: Lexer is a small value type over a shared,
// read-only source buffer) to find the matching ')' and check for a
// following '->'.
func (p *Parser) looksLikeFunctionType() bool {
	scratch := *p.lexer
	var tok Token
	if p.hasPeeked {
		tok = p.peeked
	} else {
		tok = scratch.Next()
	}
	depth := 1
	for {
		switch tok.Type {
		case TokenParenL:
			depth++
		case TokenParenR:
			depth--
			if depth == 0 {
				return scratch.Next().Type == TokenArrow
			}
		case TokenEOF:
			return false
		}
		tok = scratch.Next()
	}
}

// looksLikeType reports whether the current token begins a type
// annotation (Int/Float/Bool/String/Any/[.../(params)->ret), which
// disambiguates a variable declaration from a bare expression
// statement. A user type name followed by an identifier is detected
// separately, by declaration()'s IDENT IDENT lookahead.
func (p *Parser) looksLikeType() bool {
	switch p.current.Type {
	case TokenInt, TokenFloat, TokenBool, TokenString, TokenAny, TokenSqrL:
		return true
	case TokenParenL:
		return p.looksLikeFunctionType()
	default:
		return false
	}
}

func (p *Parser) parseType() *Type {
	switch {
	case p.match(TokenInt):
		return TypeInt
	case p.match(TokenFloat):
		return TypeFloat
	case p.match(TokenBool):
		return TypeBool
	case p.match(TokenString):
		return TypeString
	case p.match(TokenAny):
		return TypeAny
	case p.match(TokenSqrL):
		first := p.parseType()
		if p.match(TokenComma) {
			value := p.parseType()
			p.expect(TokenSqrR, "expect ']' after map type")
			return p.interner.InternMap(first, value)
		}
		p.expect(TokenSqrR, "expect ']' after array type")
		return p.interner.InternArray(first)
	case p.match(TokenParenL):
		var params []*Type
		if !p.check(TokenParenR) {
			for {
				params = append(params, p.parseType())
				if !p.match(TokenComma) {
					break
				}
			}
		}
		p.expect(TokenParenR, "expect ')' after function type parameters")
		p.expect(TokenArrow, "expect '->' in function type")
		ret := p.parseType()
		return p.interner.InternFunction(ret, params)
	case p.check(TokenIdentifier):
		name := p.current
		p.advance()
		return p.interner.InternUserByName(name, p.text(name))
	default:
		p.errorAt(p.current, "expect type")
		return TypeInvalid
	}
}

func (p *Parser) varDecl() Stmt {
	start := p.current
	ty := p.parseType()
	name := p.expect(TokenIdentifier, "expect variable name")
	var init Expr
	if p.match(TokenAssign) {
		init = p.expression()
	}
	p.expect(TokenSemicolon, "expect ';' after variable declaration")
	return &VarDecl{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Declared: ty, Name: name, Init: init}
}

func (p *Parser) functionDecl() Stmt {
	start := p.previous
	name := p.expect(TokenIdentifier, "expect function name")
	p.expect(TokenParenL, "expect '(' after function name")

	var params []Param
	if !p.check(TokenParenR) {
		for {
			if len(params) >= 255 {
				p.errorAt(p.current, "can't have more than 255 parameters")
			}
			pty := p.parseType()
			pname := p.expect(TokenIdentifier, "expect parameter name")
			params = append(params, Param{Name: pname, Type: pty})
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenParenR, "expect ')' after parameters")

	retType := TypeVoid
	if p.match(TokenArrow) {
		retType = p.parseType()
	}

	body, native := p.parseFunctionBody(false)
	return &FuncDecl{
		stmtBase: stmtBase{rg: spanFrom(start, p.previous)},
		Name:     name,
		Params:   params,
		Return:   retType,
		Body:     body,
		IsNative: native,
	}
}

// parseFunctionBody is the FnDecl/closure body alternative (spec
// section 4.2): a brace block, a `:= Expr ;` single-expression body
// (sugar for `{ return Expr; }`), or `...` for a native declaration
// whose implementation is supplied by the host. For a closure
// expression the `:= Expr` body takes no ';' of its own: the ';' that
// follows belongs to the enclosing statement.
func (p *Parser) parseFunctionBody(closure bool) ([]Stmt, bool) {
	switch {
	case p.match(TokenAssign):
		start := p.previous
		value := p.expression()
		if !closure {
			p.expect(TokenSemicolon, "expect ';' after expression function body")
		}
		ret := &Return{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Value: value}
		return []Stmt{ret}, false
	case p.match(TokenEllipsis):
		p.expect(TokenSemicolon, "expect ';' after native function declaration")
		return nil, true
	default:
		return p.block().Stmts, false
	}
}

func (p *Parser) typeDecl() Stmt {
	start := p.previous
	name := p.expect(TokenIdentifier, "expect type name")
	p.expect(TokenAssign, "expect ':=' in type declaration")

	if p.match(TokenCurlyL) {
		var members []Member
		var inits []Expr
		for !p.check(TokenCurlyR) && !p.check(TokenEOF) {
			mty := p.parseType()
			mname := p.expect(TokenIdentifier, "expect member name")
			var init Expr
			if p.match(TokenAssign) {
				init = p.expression()
			}
			members = append(members, Member{Name: mname, Type: mty})
			inits = append(inits, init)
			if !p.match(TokenComma) {
				break
			}
		}
		p.expect(TokenCurlyR, "expect '}' after struct members")
		p.match(TokenSemicolon) // a trailing ';' after the struct body is optional
		st := p.interner.RegisterStruct(name, p.text(name), members)
		return &StructDecl{
			stmtBase:    stmtBase{rg: spanFrom(start, p.previous)},
			Name:        name,
			Members:     members,
			MemberInits: inits,
			Type:        st,
		}
	}

	var variants []*Type
	variants = append(variants, p.parseType())
	for p.match(TokenPipe) {
		variants = append(variants, p.parseType())
	}
	p.expect(TokenSemicolon, "expect ';' after union declaration")
	un := p.interner.RegisterUnion(name, p.text(name), variants)
	return &UnionDecl{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Name: name, Variants: variants, Type: un}
}

func (p *Parser) statement() Stmt {
	switch {
	case p.match(TokenCurlyL):
		return p.blockFrom(p.previous)
	case p.match(TokenIf):
		return p.ifStatement()
	case p.match(TokenWhile):
		return p.whileStatement()
	case p.match(TokenReturn):
		return p.returnStatement()
	default:
		return p.exprOrAssignment()
	}
}

func (p *Parser) block() *Block {
	p.expect(TokenCurlyL, "expect '{'")
	return p.blockFrom(p.previous)
}

func (p *Parser) blockFrom(open Token) *Block {
	var stmts []Stmt
	for !p.check(TokenCurlyR) && !p.check(TokenEOF) {
		if s := p.declaration(); s != nil {
			stmts = append(stmts, s)
		}
		if p.panicking {
			p.synchronize()
		}
	}
	p.expect(TokenCurlyR, "expect '}' after block")
	return &Block{stmtBase: stmtBase{rg: spanFrom(open, p.previous)}, Stmts: stmts}
}

// branchBody parses the shared (Block | Stmt) if/while branch
// alternative: a brace-delimited block, or a single bare statement
// treated as an implicit one-statement block.
func (p *Parser) branchBody() *Block {
	if p.check(TokenCurlyL) {
		return p.block()
	}
	start := p.current
	var stmts []Stmt
	if s := p.declaration(); s != nil {
		stmts = []Stmt{s}
	}
	return &Block{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Stmts: stmts}
}

func (p *Parser) ifStatement() Stmt {
	start := p.previous
	cond := p.expression()
	p.expect(TokenColon, "expect ':' after if condition")
	then := p.branchBody()
	var otherwise Stmt
	if p.match(TokenElse) {
		if p.match(TokenIf) {
			otherwise = p.ifStatement()
		} else {
			otherwise = p.branchBody()
		}
	}
	return &If{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Cond: cond, Then: then, Otherwise: otherwise}
}

func (p *Parser) whileStatement() Stmt {
	start := p.previous
	cond := p.expression()
	p.expect(TokenColon, "expect ':' after while condition")
	body := p.branchBody()
	return &While{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Cond: cond, Body: body}
}

func (p *Parser) returnStatement() Stmt {
	start := p.previous
	var value Expr
	if !p.check(TokenSemicolon) {
		value = p.expression()
	}
	p.expect(TokenSemicolon, "expect ';' after return value")
	return &Return{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Value: value}
}

// exprOrAssignment parses either an assignment target followed by
// ':=' or a plain expression statement, the way analyze_assignment's
// rewrite in the original validator treats an unbound primary LHS.
// Assignment shares ':=' with VarDecl's initializer; the leading
// IDENT-IDENT lookahead in declaration() is what keeps the two apart.
func (p *Parser) exprOrAssignment() Stmt {
	start := p.current
	expr := p.expression()
	if p.match(TokenAssign) {
		value := p.expression()
		p.expect(TokenSemicolon, "expect ';' after assignment")
		return &Assignment{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Target: expr, Value: value}
	}
	p.expect(TokenSemicolon, "expect ';' after expression")
	return &ExprStmt{stmtBase: stmtBase{rg: spanFrom(start, p.previous)}, Expr: expr}
}

// ---- expressions (Pratt) ----

func (p *Parser) expression() Expr { return p.parsePrecedence(precLogic) }

func (p *Parser) parsePrecedence(min precedence) Expr {
	left := p.unary()
	for {
		prec, ok := tokenPrecedence[p.current.Type]
		if !ok || prec < min {
			break
		}
		op := p.current
		switch op.Type {
		case TokenParenL:
			p.advance()
			left = p.finishCall(left)
		case TokenSqrL:
			p.advance()
			idx := p.expression()
			p.expect(TokenSqrR, "expect ']' after index")
			left = &Subscript{exprBase: exprBase{rg: spanFrom(op, p.previous)}, Target: left, Index: idx}
		case TokenDot:
			p.advance()
			member := p.expect(TokenIdentifier, "expect member name after '.'")
			left = &Access{exprBase: exprBase{rg: spanFrom(op, p.previous)}, Target: left, Member: member}
		default:
			p.advance()
			right := p.parsePrecedence(prec + 1)
			left = &Binary{exprBase: exprBase{rg: spanFrom(op, p.previous)}, Op: op, LHS: left, RHS: right}
		}
	}
	return left
}

func (p *Parser) finishCall(callee Expr) Expr {
	var args []Expr
	if !p.check(TokenParenR) {
		for {
			if len(args) >= 255 {
				p.errorAt(p.current, "can't have more than 255 arguments")
			}
			args = append(args, p.expression())
			if !p.match(TokenComma) {
				break
			}
		}
	}
	close := p.expect(TokenParenR, "expect ')' after arguments")
	rg := Range{Start: callee.ExprRange().Start, End: close.Range().End}
	return &Call{exprBase: exprBase{rg: rg}, Callee: callee, Args: args}
}

func (p *Parser) unary() Expr {
	if p.check(TokenBang) || p.check(TokenMinus) {
		op := p.current
		p.advance()
		operand := p.parsePrecedence(precUnary)
		return &Unary{exprBase: exprBase{rg: spanFrom(op, p.previous)}, Op: op, Operand: operand}
	}
	return p.primary()
}

func (p *Parser) primary() Expr {
	switch {
	case p.check(TokenIntLiteral), p.check(TokenFloatLiteral), p.check(TokenStringLiteral),
		p.check(TokenTrue), p.check(TokenFalse):
		tok := p.current
		p.advance()
		return NewLiteral(tok, tok.Range())
	case p.match(TokenInt):
		return p.castExpr(TokenInt)
	case p.match(TokenFloat):
		return p.castExpr(TokenFloat)
	case p.match(TokenParenL):
		e := p.expression()
		p.expect(TokenParenR, "expect ')' after expression")
		return e
	case p.match(TokenSqrL):
		return p.arrayOrMapLiteral()
	case p.match(TokenFn):
		return p.closureExpr()
	case p.check(TokenIdentifier):
		tok := p.current
		p.advance()
		return &Primary{exprBase: exprBase{rg: tok.Range()}, Name: tok}
	default:
		p.errorAt(p.current, fmt.Sprintf("unexpected token %s", p.current.Type))
		tok := p.current
		p.advance()
		return &Primary{exprBase: exprBase{rg: tok.Range()}, Name: tok}
	}
}

func (p *Parser) castExpr(which TokenType) Expr {
	start := p.previous
	p.expect(TokenParenL, "expect '(' after cast target")
	operand := p.expression()
	close := p.expect(TokenParenR, "expect ')' after cast operand")
	return &Cast{exprBase: exprBase{rg: spanFrom(start, close)}, Target: which, Operand: operand}
}

// arrayOrMapLiteral disambiguates `[e1, e2]` from `[k1: v1, k2: v2]`
// by checking for a ':' after the first element. `[]` parses as an
// empty ArrayLiteral; the validator rejects it (spec section 4.4
// requires array/map literals to be non-empty).
func (p *Parser) arrayOrMapLiteral() Expr {
	start := p.previous
	if p.match(TokenSqrR) {
		return &ArrayLiteral{exprBase: exprBase{rg: spanFrom(start, p.previous)}}
	}
	first := p.expression()
	if p.match(TokenColon) {
		value := p.expression()
		entries := []MapEntry{{Key: first, Value: value}}
		for p.match(TokenComma) {
			k := p.expression()
			p.expect(TokenColon, "expect ':' in map literal")
			v := p.expression()
			entries = append(entries, MapEntry{Key: k, Value: v})
		}
		close := p.expect(TokenSqrR, "expect ']' after map literal")
		return &MapLiteral{exprBase: exprBase{rg: spanFrom(start, close)}, Entries: entries}
	}
	elems := []Expr{first}
	for p.match(TokenComma) {
		elems = append(elems, p.expression())
	}
	close := p.expect(TokenSqrR, "expect ']' after array literal")
	return &ArrayLiteral{exprBase: exprBase{rg: spanFrom(start, close)}, Elements: elems}
}

func (p *Parser) closureExpr() Expr {
	start := p.previous
	var name Token
	if p.check(TokenIdentifier) {
		name = p.current
		p.advance()
	}
	p.expect(TokenParenL, "expect '(' after 'fn'")
	var params []Param
	if !p.check(TokenParenR) {
		for {
			pty := p.parseType()
			pname := p.expect(TokenIdentifier, "expect parameter name")
			params = append(params, Param{Name: pname, Type: pty})
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenParenR, "expect ')' after parameters")
	retType := TypeVoid
	if p.match(TokenArrow) {
		retType = p.parseType()
	}
	body, native := p.parseFunctionBody(true)
	fn := &FuncDecl{
		stmtBase:  stmtBase{rg: spanFrom(start, p.previous)},
		Name:      name,
		Params:    params,
		Return:    retType,
		Body:      body,
		IsClosure: true,
		IsNative:  native,
	}
	return &ClosureExpr{exprBase: exprBase{rg: fn.StmtRange()}, Func: fn}
}

func spanFrom(a, b interface{ Range() Range }) Range {
	ra, rb := a.Range(), b.Range()
	return Range{Start: ra.Start, End: rb.End}
}
