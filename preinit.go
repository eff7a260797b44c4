package til

// Preinit walks the AST once before Init runs, synthesizing `delete`
// and `clone` into every struct/enum's namespace when the user hasn't
// already supplied one, per spec §4.4. Struct/enum literals only ever
// appear as the sole value of a declaration in this grammar, so the
// walk keys derivation off that shape to recover the type's own name
// for the synthesized `Self` parameter type.
func Preinit(body *Expr) {
	preinitWalk(body)
}

func preinitWalk(e *Expr) {
	if e == nil {
		return
	}
	if e.Type == NDeclaration && e.Decl != nil && len(e.Params) == 1 {
		switch e.Params[0].Type {
		case NStructDef:
			sd := e.Params[0].Struct
			deriveStructMethods(e.Decl.Name, sd)
			for _, name := range sd.NS.Names() {
				fd, _ := sd.NS.Get(name)
				for _, s := range fd.Body {
					preinitWalk(s)
				}
			}
			return
		case NEnumDef:
			ed := e.Params[0].Enum
			deriveEnumMethods(e.Decl.Name, ed)
			for _, name := range ed.NS.Names() {
				fd, _ := ed.NS.Get(name)
				for _, s := range fd.Body {
					preinitWalk(s)
				}
			}
			return
		case NFuncDef:
			for _, s := range e.Params[0].Func.Body {
				preinitWalk(s)
			}
			return
		}
	}
	for _, c := range e.Params {
		preinitWalk(c)
	}
}

func deriveStructMethods(typeName string, sd *StructDef) {
	if !sd.NS.Has("delete") {
		sd.NS.Set("delete", buildDerivedDelete(typeName, sd))
	}
	if !sd.NS.Has("clone") {
		sd.NS.Set("clone", buildDerivedClone(typeName, sd))
	}
}

func deriveEnumMethods(typeName string, ed *EnumDef) {
	if !ed.NS.Has("delete") {
		ed.NS.Set("delete", &FuncDef{
			Kind:     FuncProc,
			Args:     []Declaration{{Name: "_self", ValueType: NewCustomType(typeName), Mode: BindMut}},
			ArgNames: []string{"_self"},
		})
	}
	if !ed.NS.Has("clone") {
		loc := Location{}
		selfRef := newExpr(NIdentifier, loc, Range{})
		selfRef.Name = "self"
		ret := newExpr(NReturn, loc, Range{}, selfRef)
		ed.NS.Set("clone", &FuncDef{
			Kind:     FuncFunc,
			Args:     []Declaration{{Name: "self", ValueType: NewCustomType(typeName)}},
			ArgNames: []string{"self"},
			Returns:  []ValueType{NewCustomType(typeName)},
			Body:     []*Expr{ret},
		})
	}
}

// buildDerivedDelete synthesizes `delete(mut self)`: calls
// `self.field.delete()` on each mutable non-primitive field, in
// reverse declaration order, per spec §4.4.
func buildDerivedDelete(typeName string, sd *StructDef) *FuncDef {
	loc := Location{}
	var nonPrim []Declaration
	for _, m := range sd.MutableMembers() {
		if !isSkippedInDerivedOps(m.ValueType) {
			nonPrim = append(nonPrim, m)
		}
	}

	selfName := "self"
	if len(nonPrim) == 0 {
		selfName = "_self" // unused self, per spec §4.4
	}

	var body []*Expr
	for i := len(nonPrim) - 1; i >= 0; i-- {
		body = append(body, buildChainCall(loc, selfName, nonPrim[i].Name, "delete"))
	}

	return &FuncDef{
		Kind:     FuncProc,
		Args:     []Declaration{{Name: selfName, ValueType: NewCustomType(typeName), Mode: BindMut}},
		ArgNames: []string{selfName},
		Body:     body,
	}
}

// buildDerivedClone synthesizes `clone(self) returns Self`: a fresh
// instance built from a named-arg constructor call, cloning
// non-primitive fields and copying primitives by value, per spec §4.4.
func buildDerivedClone(typeName string, sd *StructDef) *FuncDef {
	loc := Location{}

	callee := newExpr(NIdentifier, loc, Range{})
	callee.Name = typeName
	ctor := newExpr(NCall, loc, Range{}, callee)

	for _, m := range sd.MutableMembers() {
		var valueExpr *Expr
		if isSkippedInDerivedOps(m.ValueType) {
			valueExpr = buildIdentChain(loc, []string{"self", m.Name})
		} else {
			valueExpr = buildChainCall(loc, "self", m.Name, "clone")
		}
		arg := newExpr(NNamedArg, loc, Range{}, valueExpr)
		arg.Name = m.Name
		ctor.Params = append(ctor.Params, arg)
	}

	ret := newExpr(NReturn, loc, Range{}, ctor)

	return &FuncDef{
		Kind:     FuncFunc,
		Args:     []Declaration{{Name: "self", ValueType: NewCustomType(typeName)}},
		ArgNames: []string{"self"},
		Returns:  []ValueType{NewCustomType(typeName)},
		Body:     []*Expr{ret},
	}
}

// buildIdentChain builds the left-spined Identifier chain for
// names[0].names[1]....names[n-1].
func buildIdentChain(loc Location, names []string) *Expr {
	if len(names) == 0 {
		return nil
	}
	root := newExpr(NIdentifier, loc, Range{})
	root.Name = names[0]
	cur := root
	for _, n := range names[1:] {
		next := newExpr(NIdentifier, loc, Range{})
		next.Name = n
		cur.Params = []*Expr{next}
		cur = next
	}
	return root
}

// buildChainCall builds a zero-argument method-call Expr over a dotted
// chain, e.g. buildChainCall(loc, "self", "field", "delete") produces
// `self.field.delete()`.
func buildChainCall(loc Location, names ...string) *Expr {
	chain := buildIdentChain(loc, names)
	return newExpr(NCall, loc, Range{}, chain)
}
