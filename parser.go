package til

import "fmt"

// Parser is a recursive-descent parser producing the Expr tree, per
// spec §4.2. It never guesses recovery: it stops at the first surface
// error (except the lexer's reserved-word diagnostics, which are
// batched ahead of time).
type Parser struct {
	file  string
	toks  []Token
	pos   int
	diags Diagnostics

	// loopVarCounter implements spec §4.2/§5: loop variables named `_`
	// are rewritten to a fresh `_loop_N` name, reset per function.
	loopVarCounter int
}

func NewParser(file string, toks []Token) *Parser {
	return &Parser{file: file, toks: toks}
}

func (p *Parser) Diagnostics() Diagnostics { return p.diags }

func (p *Parser) cur() Token  { return p.toks[p.pos] }
func (p *Parser) atEnd() bool { return p.cur().Kind == TokEOF }

func (p *Parser) advance() Token {
	t := p.cur()
	if !p.atEnd() {
		p.pos++
	}
	return t
}

func (p *Parser) check(k TokenKind) bool { return p.cur().Kind == k }

func (p *Parser) match(k TokenKind) bool {
	if p.check(k) {
		p.advance()
		return true
	}
	return false
}

// parseAbort is a sentinel panicked from fail() and recovered by
// Parse(), matching spec §4.2's "stops on first surface error" rule
// without threading an error return through every recursive call.
type parseAbort struct{ d Diagnostic }

func (p *Parser) fail(format string, args ...any) {
	t := p.cur()
	d := NewDiagnostic(t.Loc, PhaseParser, SeverityError, format, args...)
	p.diags.Add(d)
	panic(parseAbort{d})
}

func (p *Parser) expect(k TokenKind, what string) Token {
	if !p.check(k) {
		p.fail("expected %s, got %q", what, p.cur().Lexeme)
	}
	return p.advance()
}

// skipStmtSeparators consumes any run of newline/`;` separators.
// `;;` is banned per spec §4.2.
func (p *Parser) skipStmtSeparators() {
	sawSemi := false
	for p.check(TokNewline) || p.check(TokSemi) {
		if p.check(TokSemi) {
			if sawSemi {
				p.fail("`;;` is not a valid statement separator")
			}
			sawSemi = true
		} else {
			sawSemi = false
		}
		p.advance()
	}
}

// Parse parses a complete file: mode statement, imports, and top-level
// declarations.
func (p *Parser) Parse() (body *Expr, err error) {
	defer func() {
		if r := recover(); r != nil {
			if ab, ok := r.(parseAbort); ok {
				err = ab.d
				return
			}
			panic(r)
		}
	}()

	loc := p.cur().Loc
	root := newExpr(NBody, loc, Range{})
	p.skipStmtSeparators()
	for !p.atEnd() {
		root.Params = append(root.Params, p.parseStmt())
		p.skipStmtSeparators()
	}
	return root, nil
}

// parseStmt parses one statement inside a body (top-level or nested).
func (p *Parser) parseStmt() *Expr {
	switch p.cur().Kind {
	case TokMode:
		return p.parseModeStmt()
	case TokImport:
		return p.parseImportStmt()
	case TokIf:
		return p.parseIf()
	case TokWhile:
		return p.parseWhile()
	case TokFor:
		return p.parseFor()
	case TokSwitch:
		return p.parseSwitch()
	case TokReturn:
		return p.parseReturn()
	case TokThrow:
		return p.parseThrow()
	case TokTry:
		return p.parseTryCatch()
	case TokBreak:
		loc := p.advance().Loc
		return newExpr(NBreak, loc, Range{})
	case TokContinue:
		loc := p.advance().Loc
		return newExpr(NContinue, loc, Range{})
	case TokDefer:
		loc := p.advance().Loc
		inner := p.parseStmt()
		return newExpr(NDefer, loc, Range{}, inner)
	case TokMut, TokCopy, TokOwn:
		return p.parseDeclOrAssign()
	case TokIdentifier:
		return p.parseIdentLedStmt()
	default:
		p.fail("unexpected token %q at start of statement", p.cur().Lexeme)
		return nil
	}
}

func (p *Parser) parseModeStmt() *Expr {
	loc := p.advance().Loc // 'mode'
	name := p.expect(TokIdentifier, "mode name")
	e := newExpr(NDeclaration, loc, Range{})
	e.Decl = &Declaration{Name: "mode", ValueType: NewCustomType(name.Lexeme)}
	return e
}

func (p *Parser) parseImportStmt() *Expr {
	loc := p.advance().Loc // 'import'
	path := p.expect(TokString, "import path")
	e := newExpr(NCall, loc, Range{})
	callee := newExpr(NIdentifier, loc, Range{})
	callee.Name = "import"
	arg := newExpr(NLiteral, loc, Range{})
	arg.LitKind = LitString
	arg.LitStr = path.Lexeme
	e.Params = []*Expr{callee, arg}
	return e
}

// parseDeclOrAssign handles `mut name := expr`, `copy name := expr`,
// `own name := expr`, and their `: Type =` counterparts.
func (p *Parser) parseDeclOrAssign() *Expr {
	loc := p.cur().Loc
	mode := BindNone
	switch p.cur().Kind {
	case TokMut:
		mode = BindMut
		p.advance()
	case TokCopy:
		mode = BindCopy
		p.advance()
	case TokOwn:
		mode = BindOwn
		p.advance()
	}
	name := p.expect(TokIdentifier, "declared name")
	return p.finishDeclaration(loc, name.Lexeme, mode)
}

// parseIdentLedStmt disambiguates `name := expr`, `name : Type = expr`,
// `name.field = expr` (assignment), and bare call-statements like
// `f(x)` or `a.b.c()`.
func (p *Parser) parseIdentLedStmt() *Expr {
	loc := p.cur().Loc
	startPos := p.pos
	name := p.advance().Lexeme

	if p.check(TokColonEq) || p.check(TokColon) {
		return p.finishDeclaration(loc, name, BindNone)
	}

	// Not a declaration: re-parse as an expression (identifier chain,
	// call chain, etc.) starting from where we began.
	p.pos = startPos
	expr := p.parseExprChain()
	if p.match(TokAssign) {
		rhs := p.parseExpr()
		a := newExpr(NAssignment, loc, Range{}, expr, rhs)
		return a
	}
	return expr
}

func (p *Parser) finishDeclaration(loc Location, name string, mode BindingMode) *Expr {
	var vt ValueType
	hasType := false
	if p.match(TokColon) {
		vt = p.parseTypeRef()
		hasType = true
		p.expect(TokAssign, "`=` after typed declaration")
	} else {
		p.expect(TokColonEq, "`:=` in declaration")
	}
	val := p.parseExpr()
	if !hasType {
		vt = NewCustomType("auto")
	}
	e := newExpr(NDeclaration, loc, Range{}, val)
	e.Decl = &Declaration{Name: name, ValueType: vt, Mode: mode}
	return e
}

// parseTypeRef parses a type name. TMulti variadics are written
// `...Elem`; everything else is a bare identifier naming a TCustom
// type (resolved to TType/TFunction by the typer once struct/enum/func
// tables exist).
func (p *Parser) parseTypeRef() ValueType {
	name := p.expect(TokIdentifier, "type name")
	return NewCustomType(name.Lexeme)
}

// --- expressions ---

func (p *Parser) parseExpr() *Expr {
	switch p.cur().Kind {
	case TokFunc, TokProc, TokMacro, TokExtFunc, TokExtProc:
		return p.parseFuncLiteral()
	case TokStruct:
		return p.parseStructLiteral()
	case TokEnum:
		return p.parseEnumLiteral()
	default:
		return p.parseExprChain()
	}
}

// parseExprChain parses a primary expression followed by any number of
// `.ident` / `(args)` postfixes, building the left-spined dotted chain
// and call nodes the UFCS pass later rewrites (spec §4.2, §4.9).
func (p *Parser) parseExprChain() *Expr {
	e := p.parsePrimary()
	for {
		switch p.cur().Kind {
		case TokDot:
			p.advance()
			loc := p.cur().Loc
			name := p.expect(TokIdentifier, "field/method name")
			next := newExpr(NIdentifier, loc, Range{})
			next.Name = name.Lexeme
			e = attachDotted(e, next)
		case TokLParen:
			e = p.parseCallArgs(e)
		case TokQuestion, TokBang:
			bang := p.cur().Kind == TokBang
			p.advance()
			if e.Type == NCall {
				e.Flags.DoesThrow = true
				e.Flags.IsBang = bang
			}
		default:
			return e
		}
	}
}

// isPureIdentChain reports whether e is a left-spined chain of bare
// identifiers all the way down (e.g. `a.b.c`), as opposed to one
// terminating in a non-identifier receiver (e.g. `f().m`).
func isPureIdentChain(e *Expr) bool {
	cur := e
	for {
		if cur.Type != NIdentifier {
			return false
		}
		if len(cur.Params) == 0 {
			return true
		}
		cur = cur.Params[0]
	}
}

// attachDotted appends next onto a dotted chain rooted at e, per spec
// §3's dotted-path representation. For a pure identifier chain (`a.b`)
// next is attached at the rightmost position, extending the spine. For
// a chain that bottoms out in a non-identifier receiver (the result of
// a call, as in `f().m`), next instead wraps the whole thing: the
// outermost node is always the most recently attached segment, so
// chains compose to arbitrary depth (`f().m.n` wraps `f().m` in turn).
func attachDotted(e, next *Expr) *Expr {
	if isPureIdentChain(e) {
		cur := e
		for len(cur.Params) > 0 {
			cur = cur.Params[0]
		}
		cur.Params = []*Expr{next}
		return e
	}
	wrapper := newExpr(NIdentifier, next.Loc, Range{})
	wrapper.Name = next.Name
	wrapper.Params = []*Expr{e}
	return wrapper
}

func (p *Parser) parseCallArgs(callee *Expr) *Expr {
	loc := callee.Loc
	p.expect(TokLParen, "`(`")
	call := newExpr(NCall, loc, Range{}, callee)
	for !p.check(TokRParen) {
		call.Params = append(call.Params, p.parseArg())
		if !p.match(TokComma) {
			break
		}
	}
	p.expect(TokRParen, "`)`")
	return call
}

// parseArg parses either a positional argument or a `name=value` named
// argument, per spec §4.2/§4.9.
func (p *Parser) parseArg() *Expr {
	if p.check(TokIdentifier) {
		save := p.pos
		loc := p.cur().Loc
		name := p.advance().Lexeme
		if p.match(TokAssign) {
			val := p.parseExpr()
			e := newExpr(NNamedArg, loc, Range{}, val)
			e.Name = name
			return e
		}
		p.pos = save
	}
	return p.parseExpr()
}

func (p *Parser) parsePrimary() *Expr {
	t := p.cur()
	loc := t.Loc
	switch t.Kind {
	case TokInt:
		p.advance()
		e := newExpr(NLiteral, loc, Range{})
		e.LitKind = LitInt
		e.LitStr = t.Lexeme
		return e
	case TokFloat:
		p.advance()
		e := newExpr(NLiteral, loc, Range{})
		e.LitKind = LitFloat
		e.LitStr = t.Lexeme
		return e
	case TokString:
		p.advance()
		e := newExpr(NLiteral, loc, Range{})
		e.LitKind = LitString
		e.LitStr = t.Lexeme
		return e
	case TokTrue, TokFalse:
		p.advance()
		e := newExpr(NLiteral, loc, Range{})
		e.LitKind = LitBool
		if t.Kind == TokTrue {
			e.LitStr = "true"
		} else {
			e.LitStr = "false"
		}
		return e
	case TokIdentifier:
		p.advance()
		e := newExpr(NIdentifier, loc, Range{})
		e.Name = t.Lexeme
		return e
	case TokLParen:
		p.advance()
		inner := p.parseExpr()
		p.expect(TokRParen, "`)`")
		return inner
	default:
		p.fail("unexpected token %q in expression", t.Lexeme)
		return nil
	}
}

// --- control flow ---

func (p *Parser) parseBraceBody() *Expr {
	loc := p.cur().Loc
	p.expect(TokLBrace, "`{`")
	body := newExpr(NBody, loc, Range{})
	p.skipStmtSeparators()
	for !p.check(TokRBrace) && !p.atEnd() {
		body.Params = append(body.Params, p.parseStmt())
		p.skipStmtSeparators()
	}
	p.expect(TokRBrace, "`}`")
	return body
}

func (p *Parser) parseIf() *Expr {
	loc := p.advance().Loc
	cond := p.parseExpr()
	then := p.parseBraceBody()
	e := newExpr(NIf, loc, Range{}, cond, then)
	if p.match(TokElse) {
		if p.check(TokIf) {
			e.Params = append(e.Params, p.parseIf())
		} else {
			e.Params = append(e.Params, p.parseBraceBody())
		}
	}
	return e
}

func (p *Parser) parseWhile() *Expr {
	loc := p.advance().Loc
	cond := p.parseExpr()
	body := p.parseBraceBody()
	return newExpr(NWhile, loc, Range{}, cond, body)
}

// parseFor parses all three flavors of spec §4.2:
//
//	for x in start..end         -> desugared here into NWhile
//	for x: T in start..end      -> desugared here into NWhile
//	for x: T in coll            -> becomes NForIn (desugarer finishes
//	                                the job, §4.7)
func (p *Parser) parseFor() *Expr {
	loc := p.advance().Loc
	varName := p.expect(TokIdentifier, "loop variable").Lexeme
	if varName == "_" {
		varName = fmt.Sprintf("_loop_%d", p.loopVarCounter)
		p.loopVarCounter++
	}

	var elemType *ValueType
	if p.match(TokColon) {
		vt := p.parseTypeRef()
		elemType = &vt
	}
	p.expect(TokIn, "`in`")

	start := p.parseExpr()
	if p.match(TokDotDot) {
		end := p.parseExpr()
		body := p.parseBraceBody()
		rewriteLoopContinue(body, varName)
		return desugarRangeFor(loc, varName, start, end, body)
	}

	// `for x: T in coll`
	body := p.parseBraceBody()
	forIn := newExpr(NForIn, loc, Range{}, start, body)
	forIn.Name = varName
	if elemType != nil {
		forIn.ElemTypeName = elemType.CustomName
	}
	return forIn
}

// desugarRangeFor lowers `for x in start..end { body }` into a while
// loop over a monotonic induction variable, per spec §4.2/§4.7.
func desugarRangeFor(loc Location, varName string, start, end, body *Expr) *Expr {
	initDecl := newExpr(NDeclaration, loc, Range{}, start)
	initDecl.Decl = &Declaration{Name: varName, ValueType: NewCustomType(TypeI64), Mode: BindMut}

	varRef := newExpr(NIdentifier, loc, Range{})
	varRef.Name = varName
	condCall := newExpr(NCall, loc, Range{})
	ltCallee := newExpr(NIdentifier, loc, Range{})
	ltCallee.Name = "lt"
	condCall.Params = []*Expr{ltCallee, varRef, end}

	step := newExpr(NAssignment, loc, Range{})
	addCall := newExpr(NCall, loc, Range{})
	addCallee := newExpr(NIdentifier, loc, Range{})
	addCallee.Name = "add"
	one := newExpr(NLiteral, loc, Range{})
	one.LitKind = LitInt
	one.LitStr = "1"
	varRefForAdd := newExpr(NIdentifier, loc, Range{})
	varRefForAdd.Name = varName
	addCall.Params = []*Expr{addCallee, varRefForAdd, one}
	varRefForAssign := newExpr(NIdentifier, loc, Range{})
	varRefForAssign.Name = varName
	step.Params = []*Expr{varRefForAssign, addCall}

	bodyWithStep := newExpr(NBody, loc, Range{})
	bodyWithStep.Params = append(append([]*Expr{}, body.Params...), step)

	whileLoop := newExpr(NWhile, loc, Range{}, condCall, bodyWithStep)

	wrapper := newExpr(NBody, loc, Range{}, initDecl, whileLoop)
	return wrapper
}

// rewriteLoopContinue rewrites bare `continue` inside a desugared-for
// body into `{ step; continue }` so the induction variable always
// advances, per spec §4.2.
func rewriteLoopContinue(body *Expr, varName string) {
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		for i, child := range e.Params {
			if child != nil && child.Type == NContinue {
				e.Params[i] = wrapContinueWithStep(child, varName)
				continue
			}
			walk(child)
		}
	}
	walk(body)
}

func wrapContinueWithStep(continueExpr *Expr, varName string) *Expr {
	loc := continueExpr.Loc
	addCall := newExpr(NCall, loc, Range{})
	addCallee := newExpr(NIdentifier, loc, Range{})
	addCallee.Name = "add"
	one := newExpr(NLiteral, loc, Range{})
	one.LitKind = LitInt
	one.LitStr = "1"
	varRef := newExpr(NIdentifier, loc, Range{})
	varRef.Name = varName
	addCall.Params = []*Expr{addCallee, varRef, one}

	step := newExpr(NAssignment, loc, Range{})
	varRefAssign := newExpr(NIdentifier, loc, Range{})
	varRefAssign.Name = varName
	step.Params = []*Expr{varRefAssign, addCall}

	return newExpr(NBody, loc, Range{}, step, continueExpr)
}

func (p *Parser) parseSwitch() *Expr {
	loc := p.advance().Loc
	subject := p.parseExpr()
	p.expect(TokLBrace, "`{`")
	sw := newExpr(NSwitch, loc, Range{}, subject)
	p.skipStmtSeparators()
	for !p.check(TokRBrace) && !p.atEnd() {
		sw.Params = append(sw.Params, p.parseCaseArm())
		p.skipStmtSeparators()
	}
	p.expect(TokRBrace, "`}`")
	return sw
}

func (p *Parser) parseCaseArm() *Expr {
	if p.match(TokDefault) {
		loc := p.toks[p.pos-1].Loc
		p.expect(TokColon, "`:`")
		body := p.parseCaseBody()
		return newExpr(NDefault, loc, Range{}, body)
	}
	loc := p.expect(TokCase, "`case`").Loc
	pattern := p.parseCasePattern()
	p.expect(TokColon, "`:`")
	body := p.parseCaseBody()
	return newExpr(NCase, loc, Range{}, pattern, body)
}

// parseCasePattern parses `Variant(bind)`, a bare `Variant`, or a
// `lo..hi` range, per spec §4.2.
func (p *Parser) parseCasePattern() *Expr {
	loc := p.cur().Loc
	if p.check(TokInt) {
		lo := p.parsePrimary()
		if p.match(TokDotDot) {
			hi := p.parsePrimary()
			return newExpr(NRange, loc, Range{}, lo, hi)
		}
		return lo
	}
	name := p.expect(TokIdentifier, "pattern").Lexeme
	pat := newExpr(NPattern, loc, Range{})
	pat.PatternVariant = name
	if p.match(TokLParen) {
		bind := p.expect(TokIdentifier, "binding variable").Lexeme
		pat.PatternBind = bind
		p.expect(TokRParen, "`)`")
	}
	return pat
}

// parseCaseBody parses the statement(s) until the next `case`/
// `default`/`}` — arms are not brace-delimited.
func (p *Parser) parseCaseBody() *Expr {
	loc := p.cur().Loc
	body := newExpr(NBody, loc, Range{})
	p.skipStmtSeparators()
	for !p.check(TokCase) && !p.check(TokDefault) && !p.check(TokRBrace) && !p.atEnd() {
		body.Params = append(body.Params, p.parseStmt())
		p.skipStmtSeparators()
	}
	return body
}

func (p *Parser) parseReturn() *Expr {
	loc := p.advance().Loc
	e := newExpr(NReturn, loc, Range{})
	if !p.check(TokNewline) && !p.check(TokSemi) && !p.check(TokRBrace) && !p.atEnd() {
		e.Params = append(e.Params, p.parseExpr())
		for p.match(TokComma) {
			e.Params = append(e.Params, p.parseExpr())
		}
	}
	return e
}

func (p *Parser) parseThrow() *Expr {
	loc := p.advance().Loc
	val := p.parseExpr()
	return newExpr(NThrow, loc, Range{}, val)
}

// parseTryCatch parses `try { ... } catch (err: T) { ... }`.
func (p *Parser) parseTryCatch() *Expr {
	loc := p.advance().Loc // 'try'
	tryBody := p.parseBraceBody()
	p.expect(TokCatch, "`catch`")
	p.expect(TokLParen, "`(`")
	errName := p.expect(TokIdentifier, "bound error name").Lexeme
	p.expect(TokColon, "`:`")
	errType := p.parseTypeRef()
	p.expect(TokRParen, "`)`")
	catchBody := p.parseBraceBody()

	c := newExpr(NCatch, loc, Range{}, tryBody, catchBody)
	c.Name = errName
	c.Decl = &Declaration{Name: errName, ValueType: errType}
	return c
}

// --- definitions ---

func (p *Parser) parseFuncLiteral() *Expr {
	loc := p.cur().Loc
	var kind FuncKind
	switch p.advance().Kind {
	case TokFunc:
		kind = FuncFunc
	case TokProc:
		kind = FuncProc
	case TokMacro:
		kind = FuncMacro
	case TokExtFunc:
		kind = FuncExtFunc
	case TokExtProc:
		kind = FuncExtProc
	}

	p.expect(TokLParen, "`(`")
	var args []Declaration
	var names []string
	variadic := false
	for !p.check(TokRParen) {
		mode := BindNone
		switch p.cur().Kind {
		case TokMut:
			mode = BindMut
			p.advance()
		case TokCopy:
			mode = BindCopy
			p.advance()
		case TokOwn:
			mode = BindOwn
			p.advance()
		}
		argName := p.expect(TokIdentifier, "argument name").Lexeme
		p.expect(TokColon, "`:`")
		var vt ValueType
		if p.check(TokDotDot) {
			p.advance()
			p.expect(TokDot, "`...` before variadic element type")
			vt = NewMultiType(p.parseTypeRef().CustomName)
			variadic = true
		} else {
			vt = p.parseTypeRef()
		}
		var def *Expr
		if p.match(TokAssign) {
			def = p.parseExpr()
		}
		args = append(args, Declaration{Name: argName, ValueType: vt, Mode: mode, DefaultValue: def})
		names = append(names, argName)
		if !p.match(TokComma) {
			break
		}
	}
	p.expect(TokRParen, "`)`")

	var returns []ValueType
	if p.match(TokReturns) {
		returns = append(returns, p.parseTypeRef())
		for p.match(TokComma) {
			returns = append(returns, p.parseTypeRef())
		}
	}
	var throws []ValueType
	if p.match(TokThrows) {
		throws = append(throws, p.parseTypeRef())
		for p.match(TokComma) {
			throws = append(throws, p.parseTypeRef())
		}
	}

	prevCounter := p.loopVarCounter
	p.loopVarCounter = 0 // reset per function, per spec §4.2/§5
	var body []*Expr
	if !kind.IsExternal() {
		b := p.parseBraceBody()
		body = b.Params
	}
	p.loopVarCounter = prevCounter

	fd := &FuncDef{Kind: kind, Args: args, ArgNames: names, Returns: returns, Throws: throws, Body: body, SourcePath: p.file, IsVariadic: variadic}
	e := newExpr(NFuncDef, loc, Range{})
	e.Func = fd
	return e
}

func (p *Parser) parseStructLiteral() *Expr {
	loc := p.advance().Loc // 'struct'
	p.expect(TokLBrace, "`{`")
	sd := NewStructDef()
	p.skipStmtSeparators()
	for !p.check(TokRBrace) && !p.atEnd() {
		if p.check(TokNamespace) {
			p.advance()
			p.expect(TokColon, "`:`")
			p.skipStmtSeparators()
			for !p.check(TokRBrace) && !p.atEnd() {
				name, fd := p.parseNamespaceMethod()
				sd.NS.Set(name, fd)
				p.skipStmtSeparators()
			}
			continue
		}
		mode := BindNone
		switch p.cur().Kind {
		case TokMut:
			mode = BindMut
			p.advance()
		case TokCopy:
			mode = BindCopy
			p.advance()
		case TokOwn:
			mode = BindOwn
			p.advance()
		}
		name := p.expect(TokIdentifier, "member name").Lexeme
		p.expect(TokColon, "`:`")
		vt := p.parseTypeRef()
		if p.match(TokAssign) {
			sd.DefaultValues[name] = p.parseExpr()
		}
		sd.Members = append(sd.Members, Declaration{Name: name, ValueType: vt, Mode: mode})
		p.skipStmtSeparators()
	}
	p.expect(TokRBrace, "`}`")
	e := newExpr(NStructDef, loc, Range{})
	e.Struct = sd
	return e
}

func (p *Parser) parseNamespaceMethod() (string, *FuncDef) {
	name := p.expect(TokIdentifier, "method name").Lexeme
	p.expect(TokColonEq, "`:=`")
	lit := p.parseFuncLiteral()
	return name, lit.Func
}

func (p *Parser) parseEnumLiteral() *Expr {
	loc := p.advance().Loc // 'enum'
	p.expect(TokLBrace, "`{`")
	ed := NewEnumDef()
	p.skipStmtSeparators()
	for !p.check(TokRBrace) && !p.atEnd() {
		if p.check(TokNamespace) {
			p.advance()
			p.expect(TokColon, "`:`")
			p.skipStmtSeparators()
			for !p.check(TokRBrace) && !p.atEnd() {
				name, fd := p.parseNamespaceMethod()
				ed.NS.Set(name, fd)
				p.skipStmtSeparators()
			}
			continue
		}
		name := p.expect(TokIdentifier, "variant name").Lexeme
		var payload *ValueType
		if p.match(TokColon) {
			vt := p.parseTypeRef()
			payload = &vt
		}
		ed.Variants = append(ed.Variants, EnumVariant{Name: name, PayloadType: payload})
		if !p.match(TokComma) {
			p.skipStmtSeparators()
		}
	}
	p.expect(TokRBrace, "`}`")
	e := newExpr(NEnumDef, loc, Range{})
	e.Enum = ed
	return e
}
