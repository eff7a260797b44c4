package til

// UFCSPass implements spec §4.9: uniform function call syntax
// resolution and named-argument reordering. It runs after the typer
// (so receiver types are already resolved from `auto`) and after
// desugaring (so for/switch/defer rewrites are already in their final
// call-shaped form).
//
// `recv.m(args…)` rewrites to `Type(recv).m(recv, args…)` when a
// namespace method `m` exists on recv's static type, or to
// `m(recv, args…)` when a standalone function `m` exists in scope.
// Neither existing disambiguates in favor of the method: a namespace
// method always wins over a same-named free function, matching how
// struct/enum namespaces shadow the enclosing scope. A chain that
// matches neither is left untouched for the interpreter to report as
// an unresolved call.
type UFCSPass struct {
	ctx *Context
}

func NewUFCS(ctx *Context) *UFCSPass { return &UFCSPass{ctx: ctx} }

func (u *UFCSPass) Run(body *Expr) {
	for _, s := range body.Params {
		u.rewriteTopLevel(s)
	}
}

func (u *UFCSPass) rewriteTopLevel(s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		u.rewriteFuncDef(s.Params[0].Func)
	case NStructDef:
		sd := s.Params[0].Struct
		for _, name := range sd.NS.Names() {
			fd, _ := sd.NS.Get(name)
			u.rewriteFuncDef(fd)
		}
	case NEnumDef:
		ed := s.Params[0].Enum
		for _, name := range ed.NS.Names() {
			fd, _ := ed.NS.Get(name)
			u.rewriteFuncDef(fd)
		}
	}
}

func (u *UFCSPass) rewriteFuncDef(fd *FuncDef) {
	if fd == nil || fd.Kind.IsExternal() {
		return
	}
	u.ctx.Scopes.Push(ScopeFunction)
	defer u.ctx.Scopes.Pop()
	for _, a := range fd.Args {
		u.ctx.Scopes.DeclareSymbol(a.Name, SymbolInfo{ValueType: a.ValueType, Mode: a.Mode})
	}
	for i, s := range fd.Body {
		fd.Body[i] = u.rewrite(s)
	}
}

// rewrite recurses through e, rewriting method-call shapes in place
// and returning the (possibly new) node to sit where e sat.
func (u *UFCSPass) rewrite(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	switch e.Type {
	case NDeclaration:
		if len(e.Params) == 1 {
			e.Params[0] = u.rewrite(e.Params[0])
		}
		if e.Decl != nil {
			u.ctx.Scopes.DeclareSymbol(e.Decl.Name, SymbolInfo{ValueType: e.Decl.ValueType, Mode: e.Decl.Mode})
		}
		return e
	case NBody:
		u.ctx.Scopes.Push(ScopeBlock)
		for i, c := range e.Params {
			e.Params[i] = u.rewrite(c)
		}
		u.ctx.Scopes.Pop()
		return e
	case NForIn:
		e.Params[0] = u.rewrite(e.Params[0])
		u.ctx.Scopes.Push(ScopeBlock)
		u.ctx.Scopes.DeclareSymbol(e.Name, SymbolInfo{ValueType: NewCustomType(e.ElemTypeName)})
		e.Params[1] = u.rewrite(e.Params[1])
		u.ctx.Scopes.Pop()
		return e
	case NCatch:
		e.Params[0] = u.rewrite(e.Params[0])
		u.ctx.Scopes.Push(ScopeCatch)
		if e.Decl != nil {
			ct := e.Decl.ValueType
			u.ctx.Scopes.Top().CatchType = &ct
			u.ctx.Scopes.Top().CatchVar = e.Name
			u.ctx.Scopes.DeclareSymbol(e.Name, SymbolInfo{ValueType: ct})
		}
		e.Params[1] = u.rewrite(e.Params[1])
		u.ctx.Scopes.Pop()
		return e
	case NCall:
		for i, a := range e.Params {
			e.Params[i] = u.rewrite(a)
		}
		return u.resolveCall(e)
	default:
		for i, c := range e.Params {
			e.Params[i] = u.rewrite(c)
		}
		return e
	}
}

// resolveCall attempts the UFCS rewrite on call, then reorders any
// named arguments into declared parameter order.
func (u *UFCSPass) resolveCall(call *Expr) *Expr {
	if len(call.Params) == 0 {
		return call
	}
	callee := call.Params[0]
	recv, method, ok := splitMethodCallee(callee)
	if ok {
		if fd, typeName, isMethod := u.resolveMethod(recv, method); isMethod {
			newCallee := buildIdentChain(callee.Loc, []string{typeName, method})
			args := append([]*Expr{recv}, call.Params[1:]...)
			call.Params = append([]*Expr{newCallee}, args...)
			u.reorderNamedArgs(call, fd)
			return call
		}
		if fd, ok := u.ctx.Scopes.LookupFunc(method); ok {
			newCallee := buildIdentChain(callee.Loc, []string{method})
			args := append([]*Expr{recv}, call.Params[1:]...)
			call.Params = append([]*Expr{newCallee}, args...)
			u.reorderNamedArgs(call, fd)
			return call
		}
		// Neither a method nor a standalone function: leave the chain
		// as-is for the interpreter/typer diagnostics to flag.
		return call
	}
	if fd, ok := u.ctx.Scopes.LookupFunc(callee.Name); ok {
		u.reorderNamedArgs(call, fd)
	}
	return call
}

// resolveMethod reports whether a namespace method named `method`
// exists on recv's static type, returning the FuncDef and the owning
// type's name.
func (u *UFCSPass) resolveMethod(recv *Expr, method string) (*FuncDef, string, bool) {
	vt := inferType(u.ctx, recv)
	if vt.Kind != TCustom {
		return nil, "", false
	}
	if sd, ok := u.ctx.Scopes.LookupStruct(vt.CustomName); ok {
		if fd, ok := sd.NS.Get(method); ok {
			return fd, vt.CustomName, true
		}
	}
	if ed, ok := u.ctx.Scopes.LookupEnum(vt.CustomName); ok {
		if fd, ok := ed.NS.Get(method); ok {
			return fd, vt.CustomName, true
		}
	}
	return nil, "", false
}

// reorderNamedArgs rewrites call.Params[1:] (the argument list) into
// fd's declared parameter order, per spec §4.9: positional arguments
// fill left to right, named arguments fill by name, any parameter
// left unfilled takes its default. Variadic functions don't accept
// named arguments: their trailing args are left positional. Malformed
// named-arg usage (a positional arg after a named one, an unknown
// parameter name, a parameter assigned twice) is diagnosed earlier by
// Typer.checkNamedArgs, which runs before this pass; this function
// assumes a call site that already passed that check.
func (u *UFCSPass) reorderNamedArgs(call *Expr, fd *FuncDef) {
	if fd == nil || fd.IsVariadic {
		return
	}
	args := call.Params[1:]
	hasNamed := false
	for _, a := range args {
		if a.Type == NNamedArg {
			hasNamed = true
			break
		}
	}
	if !hasNamed {
		return
	}

	byName := make(map[string]*Expr, len(args))
	var positional []*Expr
	for _, a := range args {
		if a.Type == NNamedArg {
			byName[a.Name] = a.Child(0)
		} else {
			positional = append(positional, a)
		}
	}

	ordered := make([]*Expr, 0, len(fd.Args))
	posIdx := 0
	for _, argDecl := range fd.Args {
		if v, ok := byName[argDecl.Name]; ok {
			ordered = append(ordered, v)
			continue
		}
		if posIdx < len(positional) {
			ordered = append(ordered, positional[posIdx])
			posIdx++
			continue
		}
		if argDecl.DefaultValue != nil {
			ordered = append(ordered, copyExpr(argDecl.DefaultValue))
			continue
		}
		// Missing required argument; leave a hole for the typer/
		// interpreter to report rather than panicking here.
		ordered = append(ordered, nil)
	}
	call.Params = append([]*Expr{call.Params[0]}, ordered...)
}

// splitMethodCallee reports whether callee is shaped like a method
// call (`recv.method`), returning the receiver expression and method
// name. Two chain shapes are recognized: a pure identifier spine
// (`a.b.c`, receiver "a.b", method "c") and a wrapper around a
// non-identifier receiver (`f().m`, receiver `f()`, method "m"), per
// attachDotted's two construction modes in the parser.
func splitMethodCallee(callee *Expr) (*Expr, string, bool) {
	if callee.Type != NIdentifier || len(callee.Params) == 0 {
		return nil, "", false
	}
	if !isPureIdentChain(callee) {
		return callee.Params[0], callee.Name, true
	}
	path := callee.DottedPath()
	if len(path) < 2 {
		return nil, "", false
	}
	method := path[len(path)-1]
	receiver := buildIdentChain(callee.Loc, path[:len(path)-1])
	return receiver, method, true
}
