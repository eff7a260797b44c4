package til

// Desugarer lowers for-in loops, switch statements, and defer
// statements into the constructs earlier passes and the interpreter
// already understand, per spec §4.7. Afterwards no NForIn, NSwitch, or
// NDefer node should remain reachable from a function body; anything
// that slips through is a compiler bug (see bug() calls in
// interpreter.go; codegen_c.go returns an unsupported-node error).
//
// `own` parameter passing (spec's "OwnArg") never gets a transient AST
// node in this design: ownership mode lives on Declaration.Mode and is
// consumed directly by call semantics in the interpreter, so there is
// nothing here to strip for it.
type Desugarer struct{}

func NewDesugarer() *Desugarer { return &Desugarer{} }

func (d *Desugarer) Run(body *Expr) {
	for _, s := range body.Params {
		d.desugarTopLevel(s)
	}
}

func (d *Desugarer) desugarTopLevel(s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		d.desugarFuncDef(s.Params[0].Func)
	case NStructDef:
		sd := s.Params[0].Struct
		for _, name := range sd.NS.Names() {
			fd, _ := sd.NS.Get(name)
			d.desugarFuncDef(fd)
		}
	case NEnumDef:
		ed := s.Params[0].Enum
		for _, name := range ed.NS.Names() {
			fd, _ := ed.NS.Get(name)
			d.desugarFuncDef(fd)
		}
	}
}

func (d *Desugarer) desugarFuncDef(fd *FuncDef) {
	if fd.Kind.IsExternal() {
		return
	}
	fd.Body = d.desugarStmts(fd.Body)
	desugarDefers(fd)
}

func (d *Desugarer) desugarStmts(stmts []*Expr) []*Expr {
	out := make([]*Expr, 0, len(stmts))
	for _, s := range stmts {
		out = append(out, d.desugarStmt(s))
	}
	return out
}

func (d *Desugarer) desugarStmt(e *Expr) *Expr {
	if e == nil {
		return e
	}
	switch e.Type {
	case NBody:
		e.Params = d.desugarStmts(e.Params)
		return e
	case NIf:
		for i := 1; i < len(e.Params); i++ {
			e.Params[i] = d.desugarStmt(e.Params[i])
		}
		return e
	case NWhile:
		if len(e.Params) > 1 {
			e.Params[1] = d.desugarStmt(e.Params[1])
		}
		return e
	case NCatch:
		for i := range e.Params {
			e.Params[i] = d.desugarStmt(e.Params[i])
		}
		return e
	case NForIn:
		if len(e.Params) > 1 {
			e.Params[1] = d.desugarStmt(e.Params[1])
		}
		return desugarForIn(e)
	case NSwitch:
		for i := 1; i < len(e.Params); i++ {
			arm := e.Params[i]
			if arm.Type == NDefault || arm.Type == NCase {
				last := len(arm.Params) - 1
				arm.Params[last] = d.desugarStmt(arm.Params[last])
			}
		}
		return desugarSwitch(e)
	case NDeclaration:
		if len(e.Params) == 1 {
			switch e.Params[0].Type {
			case NFuncDef:
				d.desugarFuncDef(e.Params[0].Func)
			case NStructDef:
				sd := e.Params[0].Struct
				for _, name := range sd.NS.Names() {
					fd, _ := sd.NS.Get(name)
					d.desugarFuncDef(fd)
				}
			case NEnumDef:
				ed := e.Params[0].Enum
				for _, name := range ed.NS.Names() {
					fd, _ := ed.NS.Get(name)
					d.desugarFuncDef(fd)
				}
			}
		}
		return e
	default:
		return e
	}
}

// --- for-in lowering ---

// desugarForIn lowers `for x: T in coll { body }` into an index-driven
// while loop over `coll.len()`/`coll.get(i)`, per spec §4.7.
func desugarForIn(forIn *Expr) *Expr {
	loc := forIn.Loc
	coll := forIn.Child(0)
	body := forIn.Child(1)
	idxName := "_idx_" + forIn.Name

	idxDecl := newExpr(NDeclaration, loc, Range{}, intLit(loc, "0"))
	idxDecl.Decl = &Declaration{Name: idxName, ValueType: NewCustomType(TypeI64), Mode: BindMut}

	lenCall := buildMethodCallExpr(loc, coll, "len")
	cond := buildCallByName(loc, "lt", identRef(loc, idxName), lenCall)

	stepBuilder := func() *Expr {
		add := buildCallByName(loc, "add", identRef(loc, idxName), intLit(loc, "1"))
		return newExpr(NAssignment, loc, Range{}, identRef(loc, idxName), add)
	}
	rewriteContinueWithStmt(body, stepBuilder)

	getCall := buildMethodCallExpr(loc, coll, "get", identRef(loc, idxName))
	bindDecl := newExpr(NDeclaration, loc, Range{}, getCall)
	bindDecl.Decl = &Declaration{Name: forIn.Name, ValueType: NewCustomType(forIn.ElemTypeName)}

	newStmts := append([]*Expr{bindDecl}, body.Params...)
	newStmts = append(newStmts, stepBuilder())
	loopBody := newExpr(NBody, loc, Range{}, newStmts...)

	whileLoop := newExpr(NWhile, loc, Range{}, cond, loopBody)
	return newExpr(NBody, loc, Range{}, idxDecl, whileLoop)
}

// rewriteContinueWithStmt wraps every bare `continue` directly inside
// body's statement lists with a fresh copy of the step statement, so
// the induction variable always advances before the jump, mirroring
// the range-for handling in parser.go.
func rewriteContinueWithStmt(e *Expr, stepBuilder func() *Expr) {
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		for i, c := range e.Params {
			if c != nil && c.Type == NContinue {
				e.Params[i] = newExpr(NBody, c.Loc, Range{}, stepBuilder(), c)
				continue
			}
			walk(c)
		}
	}
	walk(e)
}

// --- switch lowering ---

// desugarSwitch lowers a switch into an if/else-if chain testing each
// pattern in order, per spec §4.7. Enum patterns with a binding
// introduce a declaration at the top of the matched arm's body.
func desugarSwitch(sw *Expr) *Expr {
	subject := sw.Child(0)
	arms := sw.Params[1:]
	return buildSwitchChain(subject, arms, 0)
}

func buildSwitchChain(subject *Expr, arms []*Expr, idx int) *Expr {
	if idx >= len(arms) {
		return newExpr(NBody, subject.Loc, Range{})
	}
	arm := arms[idx]
	if arm.Type == NDefault {
		return arm.Child(0)
	}

	pattern := arm.Child(0)
	body := arm.Child(1)
	cond := buildPatternCond(subject, pattern)

	thenBody := body
	if pattern.Type == NPattern && pattern.PatternBind != "" {
		bindDecl := buildPatternBindDecl(subject, pattern)
		stmts := append([]*Expr{bindDecl}, body.Params...)
		thenBody = newExpr(NBody, body.Loc, Range{}, stmts...)
	}

	elseBranch := buildSwitchChain(subject, arms, idx+1)
	return newExpr(NIf, arm.Loc, Range{}, cond, thenBody, elseBranch)
}

// buildPatternCond builds the boolean test for one case pattern.
// Enum-variant patterns compile to the `__switch_match` intrinsic the
// interpreter evaluates by comparing the subject's stored variant
// name, since there is no surface-level enum-tag-comparison builtin in
// the catalogue of spec §4.13.
func buildPatternCond(subject, pattern *Expr) *Expr {
	loc := pattern.Loc
	switch pattern.Type {
	case NRange:
		lo, hi := pattern.Child(0), pattern.Child(1)
		notLt := buildCallByName(loc, "not", buildCallByName(loc, "lt", copyExpr(subject), lo))
		notGt := buildCallByName(loc, "not", buildCallByName(loc, "gt", copyExpr(subject), hi))
		return buildCallByName(loc, "and", notLt, notGt)
	case NPattern:
		return buildCallByName(loc, "__switch_match", copyExpr(subject), strLit(loc, pattern.PatternVariant))
	default:
		return buildCallByName(loc, "eq", copyExpr(subject), pattern)
	}
}

func buildPatternBindDecl(subject, pattern *Expr) *Expr {
	loc := pattern.Loc
	payload := buildCallByName(loc, "__switch_bind", copyExpr(subject), strLit(loc, pattern.PatternVariant))
	decl := newExpr(NDeclaration, loc, Range{}, payload)
	decl.Decl = &Declaration{Name: pattern.PatternBind, ValueType: NewCustomType("auto")}
	return decl
}

// --- defer lowering ---

// desugarDefers extracts every NDefer anywhere in fd's body (treating
// defer as function-scoped, as in the teacher's own host language),
// inserts the deferred calls in LIFO order immediately before every
// return/throw reachable in the body, and appends them once more for
// the fall-through exit path, per spec §4.7.
func desugarDefers(fd *FuncDef) {
	var deferred []*Expr
	fd.Body = stripDefers(fd.Body, &deferred)
	if len(deferred) == 0 {
		return
	}

	lifo := make([]*Expr, len(deferred))
	for i, e := range deferred {
		lifo[len(deferred)-1-i] = e
	}

	fd.Body = insertDefersBeforeExits(fd.Body, lifo)
	for _, d := range lifo {
		fd.Body = append(fd.Body, copyExpr(d))
	}
}

func stripDefers(stmts []*Expr, acc *[]*Expr) []*Expr {
	out := make([]*Expr, 0, len(stmts))
	for _, s := range stmts {
		if s.Type == NDefer {
			*acc = append(*acc, stripDefersExpr(s.Child(0), acc))
			continue
		}
		out = append(out, stripDefersExpr(s, acc))
	}
	return out
}

func stripDefersExpr(e *Expr, acc *[]*Expr) *Expr {
	if e == nil {
		return e
	}
	switch e.Type {
	case NBody:
		e.Params = stripDefers(e.Params, acc)
	case NIf:
		for i := 1; i < len(e.Params); i++ {
			e.Params[i] = stripDefersExpr(e.Params[i], acc)
		}
	case NWhile:
		if len(e.Params) > 1 {
			e.Params[1] = stripDefersExpr(e.Params[1], acc)
		}
	case NCatch:
		for i := range e.Params {
			e.Params[i] = stripDefersExpr(e.Params[i], acc)
		}
	}
	return e
}

func insertDefersBeforeExits(stmts []*Expr, lifo []*Expr) []*Expr {
	out := make([]*Expr, len(stmts))
	for i, s := range stmts {
		out[i] = insertDefersBeforeExitsExpr(s, lifo)
	}
	return out
}

func insertDefersBeforeExitsExpr(e *Expr, lifo []*Expr) *Expr {
	if e == nil {
		return e
	}
	switch e.Type {
	case NReturn, NThrow:
		wrapped := make([]*Expr, 0, len(lifo)+1)
		for _, d := range lifo {
			wrapped = append(wrapped, copyExpr(d))
		}
		wrapped = append(wrapped, e)
		return newExpr(NBody, e.Loc, Range{}, wrapped...)
	case NBody:
		e.Params = insertDefersBeforeExits(e.Params, lifo)
	case NIf:
		for i := 1; i < len(e.Params); i++ {
			e.Params[i] = insertDefersBeforeExitsExpr(e.Params[i], lifo)
		}
	case NWhile:
		if len(e.Params) > 1 {
			e.Params[1] = insertDefersBeforeExitsExpr(e.Params[1], lifo)
		}
	case NCatch:
		for i := range e.Params {
			e.Params[i] = insertDefersBeforeExitsExpr(e.Params[i], lifo)
		}
	}
	return e
}

// --- shared AST-building helpers ---

func copyExpr(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Params = make([]*Expr, len(e.Params))
	for i, c := range e.Params {
		cp.Params[i] = copyExpr(c)
	}
	return &cp
}

func intLit(loc Location, s string) *Expr {
	e := newExpr(NLiteral, loc, Range{})
	e.LitKind = LitInt
	e.LitStr = s
	return e
}

func strLit(loc Location, s string) *Expr {
	e := newExpr(NLiteral, loc, Range{})
	e.LitKind = LitString
	e.LitStr = s
	return e
}

func identRef(loc Location, name string) *Expr {
	e := newExpr(NIdentifier, loc, Range{})
	e.Name = name
	return e
}

func buildCallByName(loc Location, name string, args ...*Expr) *Expr {
	callee := identRef(loc, name)
	return newExpr(NCall, loc, Range{}, append([]*Expr{callee}, args...)...)
}

// buildMethodCallExpr builds the dotted-chain call `receiver.method(args…)`
// over a fresh copy of receiver, per the left-spined representation of
// spec §3.
func buildMethodCallExpr(loc Location, receiver *Expr, method string, args ...*Expr) *Expr {
	recv := copyExpr(receiver)
	methodIdent := identRef(loc, method)
	chain := attachDotted(recv, methodIdent)
	return newExpr(NCall, loc, Range{}, append([]*Expr{chain}, args...)...)
}
