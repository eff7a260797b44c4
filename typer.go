package til

// Typer runs the two sub-phases of spec §4.6 over every top-level
// function body in the root scope: a validation pass (type
// compatibility, mutability, throw coverage, pattern exhaustiveness)
// and an inference pass (resolving `auto` declarations to a concrete
// type from their RHS). Errors are collected, never fatal
// per-occurrence, so the typer reports everything it can.
type Typer struct {
	ctx *Context
}

func NewTyper(ctx *Context) *Typer { return &Typer{ctx: ctx} }

// Run type-checks every statement in body, recursing into function
// bodies reachable from top-level declarations (including namespace
// methods).
func (t *Typer) Run(body *Expr) {
	for _, s := range body.Params {
		t.checkTopLevel(s)
	}
}

func (t *Typer) checkTopLevel(s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		t.checkStmt(s)
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		t.checkFuncDef(s.Decl.Name, s.Params[0].Func)
	case NStructDef:
		sd := s.Params[0].Struct
		for _, name := range sd.NS.Names() {
			fd, _ := sd.NS.Get(name)
			t.checkFuncDef(name, fd)
		}
	case NEnumDef:
		ed := s.Params[0].Enum
		for _, name := range ed.NS.Names() {
			fd, _ := ed.NS.Get(name)
			t.checkFuncDef(name, fd)
		}
	default:
		t.inferDeclaration(s)
	}
}

func (t *Typer) checkFuncDef(name string, fd *FuncDef) {
	if fd.Kind.IsExternal() {
		return
	}
	t.ctx.Scopes.Push(ScopeFunction)
	defer t.ctx.Scopes.Pop()

	for _, a := range fd.Args {
		t.ctx.Scopes.DeclareSymbol(a.Name, SymbolInfo{ValueType: a.ValueType, Mode: a.Mode})
	}
	for _, s := range fd.Body {
		t.checkStmt(s)
	}
}

// inferDeclaration resolves `auto` to the RHS's inferred type and
// declares the symbol, per spec §4.6's inference pass.
func (t *Typer) inferDeclaration(s *Expr) {
	if s.Decl == nil {
		return
	}
	var rhs *Expr
	if len(s.Params) == 1 {
		rhs = s.Params[0]
	}
	if s.Decl.ValueType.Kind == TCustom && s.Decl.ValueType.CustomName == "auto" && rhs != nil {
		s.Decl.ValueType = t.inferExprType(rhs)
	}
	t.ctx.Scopes.DeclareSymbol(s.Decl.Name, SymbolInfo{ValueType: s.Decl.ValueType, Mode: s.Decl.Mode})
	if rhs != nil {
		t.checkExpr(rhs)
	}
}

// inferExprType best-effort infers the static type of e, consulting
// the scope stack for identifiers/calls (structural tests: "is this
// name a struct, enum, or function?").
func (t *Typer) inferExprType(e *Expr) ValueType {
	return inferType(t.ctx, e)
}

// inferType is the free-function form of Typer.inferExprType, shared
// with the UFCS pass (which runs after the typer and needs the same
// best-effort static typing to resolve method receivers).
func inferType(ctx *Context, e *Expr) ValueType {
	switch e.Type {
	case NLiteral:
		switch e.LitKind {
		case LitInt:
			return NewCustomType(TypeI64)
		case LitFloat:
			return NewCustomType(TypeI64) // no distinct float primitive in this language's runtime layout
		case LitString:
			return NewCustomType(TypeStr)
		case LitBool:
			return NewCustomType(TypeBool)
		}
	case NIdentifier:
		if len(e.Params) == 0 {
			if sym, ok := ctx.Scopes.LookupSymbol(e.Name); ok {
				return sym.ValueType
			}
		}
		if _, vt, err := ctx.Scopes.FieldOffset(e.DottedPath()); err == nil {
			return vt
		}
	case NCall:
		return inferCallType(ctx, e)
	case NFuncDef:
		return ValueType{Kind: TFunction, FnKind: e.Func.Kind}
	case NStructDef, NEnumDef:
		return ValueType{Kind: TType}
	}
	return NewCustomType(TypeDynamic)
}

func inferCallType(ctx *Context, call *Expr) ValueType {
	if len(call.Params) == 0 {
		return NewCustomType(TypeDynamic)
	}
	callee := call.Params[0]
	if callee.Type == NIdentifier && len(callee.Params) == 0 {
		if st, ok := ctx.Scopes.LookupStruct(callee.Name); ok {
			_ = st
			return NewCustomType(callee.Name) // constructor call
		}
		if fd, ok := ctx.Scopes.LookupFunc(callee.Name); ok {
			if len(fd.Returns) > 0 {
				return fd.Returns[0]
			}
			return NewCustomType(TypeDynamic)
		}
	}
	if callee.Type == NIdentifier && isPureIdentChain(callee) {
		path := callee.DottedPath()
		if len(path) == 2 {
			typeName, member := path[0], path[1]
			if ed, ok := ctx.Scopes.LookupEnum(typeName); ok {
				if _, isVariant := ed.Variant(member); isVariant {
					return NewCustomType(typeName) // enum-variant constructor call
				}
				if fd, ok := ed.NS.Get(member); ok && len(fd.Returns) > 0 {
					return fd.Returns[0]
				}
			}
			if sd, ok := ctx.Scopes.LookupStruct(typeName); ok {
				if fd, ok := sd.NS.Get(member); ok && len(fd.Returns) > 0 {
					return fd.Returns[0]
				}
			}
		}
	}
	return NewCustomType(TypeDynamic)
}

// checkStmt performs validation for one statement: assignment
// mutability, argument/return arity, throw coverage, pattern
// exhaustiveness.
func (t *Typer) checkStmt(s *Expr) {
	if s == nil {
		return
	}
	switch s.Type {
	case NDeclaration:
		t.inferDeclaration(s)
	case NAssignment:
		t.checkAssignment(s)
	case NIf:
		t.checkExpr(s.Child(0))
		t.checkStmt(s.Child(1))
		if len(s.Params) > 2 {
			t.checkStmt(s.Child(2))
		}
	case NWhile:
		t.checkExpr(s.Child(0))
		t.checkStmt(s.Child(1))
	case NForIn:
		t.ctx.Scopes.Push(ScopeBlock)
		t.ctx.Scopes.DeclareSymbol(s.Name, SymbolInfo{ValueType: NewCustomType(s.ElemTypeName)})
		t.checkExpr(s.Child(0))
		t.checkStmt(s.Child(1))
		t.ctx.Scopes.Pop()
	case NSwitch:
		t.checkSwitch(s)
	case NBody:
		t.ctx.Scopes.Push(ScopeBlock)
		for _, c := range s.Params {
			t.checkStmt(c)
		}
		t.ctx.Scopes.Pop()
	case NReturn:
		for _, c := range s.Params {
			t.checkExpr(c)
		}
	case NThrow:
		t.checkExpr(s.Child(0))
	case NCatch:
		// The catch frame must be visible while checking the try body
		// itself: a throw bubbles up from inside try{} to the catch
		// that guards it, per spec §4.13 ("throw bubbling").
		t.ctx.Scopes.Push(ScopeCatch)
		ct := s.Decl.ValueType
		t.ctx.Scopes.Top().CatchType = &ct
		t.ctx.Scopes.Top().CatchVar = s.Name
		t.ctx.Scopes.DeclareSymbol(s.Name, SymbolInfo{ValueType: ct})
		t.checkStmt(s.Child(0))
		t.checkStmt(s.Child(1))
		t.ctx.Scopes.Pop()
	case NDefer:
		t.checkStmt(s.Child(0))
	case NCall:
		t.checkCallThrowCoverage(s)
		t.checkNamedArgs(s)
		for _, a := range s.Params {
			t.checkExpr(a)
		}
	case NBreak, NContinue:
		// no payload to check
	default:
		t.checkExpr(s)
	}
}

func (t *Typer) checkAssignment(s *Expr) {
	if len(s.Params) != 2 {
		return
	}
	target, val := s.Params[0], s.Params[1]
	t.checkExpr(val)
	if target.Type == NIdentifier {
		path := target.DottedPath()
		if sym, ok := t.ctx.Scopes.LookupSymbol(path[0]); ok {
			if !sym.IsMut() {
				t.errf(s.Loc, "cannot assign to non-mut binding %q", path[0])
			}
		} else {
			t.errf(s.Loc, "assignment to undeclared variable %q", path[0])
		}
	}
}

// checkCallThrowCoverage verifies that a `?`/`!`-marked throwing call
// is inside a catch whose type matches one of the callee's declared
// throw types, per spec §4.6/§7. The enclosing function's own `throws`
// list is not consulted, so a call that relies on it alone is reported.
func (t *Typer) checkCallThrowCoverage(call *Expr) {
	if !call.Flags.DoesThrow {
		return
	}
	if len(call.Params) == 0 || call.Params[0].Type != NIdentifier {
		return
	}
	name := call.Params[0].Name
	fd, ok := t.ctx.Scopes.LookupFunc(name)
	if !ok || len(fd.Throws) == 0 {
		return
	}
	for _, thrown := range fd.Throws {
		if _, ok := t.ctx.Scopes.LookupCatch(thrown); ok {
			return
		}
	}
	t.errf(call.Loc, "call to %q may throw %v, not covered by an enclosing catch or declared throws", name, fd.Throws)
}

// checkNamedArgs validates spec §4.9's named-argument rules directly at
// the call site, independent of whatever the UFCS pass later resolves
// the callee to (it runs before UFCS, per the fixed pipeline order): a
// positional argument may not follow a named one, the same parameter
// may not be assigned twice, and — when the callee resolves to a known,
// non-variadic function — every named argument must match one of its
// declared parameter names.
func (t *Typer) checkNamedArgs(call *Expr) {
	if len(call.Params) < 2 {
		return
	}
	args := call.Params[1:]

	var fd *FuncDef
	if callee := call.Params[0]; callee.Type == NIdentifier && len(callee.Params) == 0 {
		if f, ok := t.ctx.Scopes.LookupFunc(callee.Name); ok {
			fd = f
		}
	}

	seenNamed := false
	assigned := make(map[string]bool, len(args))
	for _, a := range args {
		if a.Type != NNamedArg {
			if seenNamed {
				t.errf(a.Loc, "positional argument follows named argument")
			}
			continue
		}
		seenNamed = true
		if assigned[a.Name] {
			t.errf(a.Loc, "parameter %q assigned more than once", a.Name)
		}
		assigned[a.Name] = true
		if fd == nil || fd.IsVariadic {
			continue
		}
		found := false
		for _, argDecl := range fd.Args {
			if argDecl.Name == a.Name {
				found = true
				break
			}
		}
		if !found {
			t.errf(a.Loc, "unknown parameter %q", a.Name)
		}
	}
}

// checkSwitch validates exhaustiveness: every enum variant must be
// covered by a case pattern or a default arm must be present.
func (t *Typer) checkSwitch(s *Expr) {
	if len(s.Params) == 0 {
		return
	}
	subject := s.Params[0]
	t.checkExpr(subject)

	subjectType := t.inferExprType(subject)
	var ed *EnumDef
	if subjectType.Kind == TCustom {
		ed, _ = t.ctx.Scopes.LookupEnum(subjectType.CustomName)
	}

	covered := make(map[string]bool)
	hasDefault := false
	for _, arm := range s.Params[1:] {
		if arm.Type == NDefault {
			hasDefault = true
			t.checkStmt(arm.Child(0))
			continue
		}
		if arm.Type != NCase {
			continue
		}
		pattern := arm.Child(0)
		if pattern.Type == NPattern {
			covered[pattern.PatternVariant] = true
			t.ctx.Scopes.Push(ScopeBlock)
			if pattern.PatternBind != "" && ed != nil {
				if v, ok := ed.Variant(pattern.PatternVariant); ok && v.PayloadType != nil {
					t.ctx.Scopes.DeclareSymbol(pattern.PatternBind, SymbolInfo{ValueType: *v.PayloadType})
				}
			}
			t.checkStmt(arm.Child(1))
			t.ctx.Scopes.Pop()
		} else {
			t.checkStmt(arm.Child(1))
		}
	}

	if ed != nil && !hasDefault {
		for _, v := range ed.Variants {
			if !covered[v.Name] {
				t.errf(s.Loc, "switch over %s is not exhaustive: missing case %q", subjectType, v.Name)
			}
		}
	}
}

func (t *Typer) checkExpr(e *Expr) {
	if e == nil {
		return
	}
	switch e.Type {
	case NCall:
		t.checkCallThrowCoverage(e)
		t.checkNamedArgs(e)
		for _, a := range e.Params {
			t.checkExpr(a)
		}
	case NIdentifier:
		if len(e.Params) > 0 {
			// A dotted chain rooted at a struct/enum type name
			// (Type.Variant, Type.method) is resolved dynamically by
			// the interpreter/UFCS, not via FieldOffset, per spec §4.9.
			if _, ok := t.ctx.Scopes.LookupStruct(e.Name); ok {
				break
			}
			if _, ok := t.ctx.Scopes.LookupEnum(e.Name); ok {
				break
			}
			if _, _, err := t.ctx.Scopes.FieldOffset(e.DottedPath()); err != nil {
				if _, ok := t.ctx.Scopes.LookupSymbol(e.Name); !ok {
					t.errf(e.Loc, "%v", err)
				}
			}
		} else if _, ok := t.ctx.Scopes.LookupSymbol(e.Name); !ok {
			if _, ok := t.ctx.Scopes.LookupFunc(e.Name); !ok {
				if _, ok := t.ctx.Scopes.LookupStruct(e.Name); !ok {
					if _, ok := t.ctx.Scopes.LookupEnum(e.Name); !ok {
						t.errf(e.Loc, "undeclared identifier %q", e.Name)
					}
				}
			}
		}
	case NNamedArg:
		t.checkExpr(e.Child(0))
	default:
		for _, c := range e.Params {
			t.checkExpr(c)
		}
	}
}

func (t *Typer) errf(loc Location, format string, args ...any) {
	t.ctx.Diags.Add(NewDiagnostic(loc, PhaseTyper, SeverityError, format, args...))
}
