package til

import "strconv"

// Precomp implements spec §4.10: folds calls to the built-in pure
// catalogue when every argument is a literal, and substitutes
// `loc`/`_file`/`_line`/`_col` calls with literals taken from the call
// site's own position — the single source of those values; they never
// execute at runtime.
//
// Folding is restricted to the built-in catalogue (arithmetic,
// comparison, bitwise, conversions): user-defined `func`s could in
// principle also fold when every argument is a literal, but doing so
// would require evaluating an arbitrary function body at this point in
// the pipeline, before the interpreter this pass feeds into exists.
// Left unfolded, such calls still execute correctly at runtime; they
// just don't get the compile-time constant.
type Precomp struct{}

func NewPrecomp() *Precomp { return &Precomp{} }

func (p *Precomp) Run(body *Expr) {
	for _, s := range body.Params {
		p.foldTopLevel(s)
	}
}

func (p *Precomp) foldTopLevel(s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		p.foldFuncDef(s.Params[0].Func)
	case NStructDef:
		sd := s.Params[0].Struct
		for _, name := range sd.NS.Names() {
			fd, _ := sd.NS.Get(name)
			p.foldFuncDef(fd)
		}
	case NEnumDef:
		ed := s.Params[0].Enum
		for _, name := range ed.NS.Names() {
			fd, _ := ed.NS.Get(name)
			p.foldFuncDef(fd)
		}
	}
}

func (p *Precomp) foldFuncDef(fd *FuncDef) {
	if fd == nil || fd.Kind.IsExternal() {
		return
	}
	for i, s := range fd.Body {
		fd.Body[i] = p.fold(s)
	}
}

func (p *Precomp) fold(e *Expr) *Expr {
	if e == nil {
		return nil
	}
	for i, c := range e.Params {
		e.Params[i] = p.fold(c)
	}
	if e.Type != NCall || len(e.Params) == 0 {
		return e
	}
	callee := e.Params[0]
	if callee.Type != NIdentifier || len(callee.Params) > 0 {
		return e
	}
	switch callee.Name {
	case "loc", "_file":
		return strLit(e.Loc, e.Loc.File)
	case "_line":
		return intLit(e.Loc, strconv.Itoa(int(e.Loc.Line)))
	case "_col":
		return intLit(e.Loc, strconv.Itoa(int(e.Loc.Column)))
	}
	if folded, ok := foldBuiltinCall(e); ok {
		return folded
	}
	return e
}

// foldBuiltinCall evaluates call if its callee names a foldable pure
// builtin and every argument is already an NLiteral.
func foldBuiltinCall(call *Expr) (*Expr, bool) {
	name := call.Params[0].Name
	args := call.Params[1:]
	lits := make([]*Expr, len(args))
	for i, a := range args {
		if a.Type != NLiteral {
			return nil, false
		}
		lits[i] = a
	}

	intArg := func(i int) (int64, bool) {
		if i >= len(lits) || lits[i].LitKind != LitInt {
			return 0, false
		}
		v, err := strconv.ParseInt(lits[i].LitStr, 10, 64)
		return v, err == nil
	}
	boolArg := func(i int) (bool, bool) {
		if i >= len(lits) || lits[i].LitKind != LitBool {
			return false, false
		}
		return lits[i].LitStr == "true", true
	}

	switch name {
	case "add", "sub", "mul", "div", "mod", "xor", "and", "or", "lt", "gt":
		a, aOk := intArg(0)
		b, bOk := intArg(1)
		if !aOk || !bOk {
			return nil, false
		}
		mkInt := func(v int64) *Expr { return intLit(call.Loc, strconv.FormatInt(v, 10)) }
		switch name {
		case "add":
			return mkInt(a + b), true
		case "sub":
			return mkInt(a - b), true
		case "mul":
			return mkInt(a * b), true
		case "div":
			if b == 0 {
				return mkInt(0), true
			}
			return mkInt(a / b), true
		case "mod":
			if b == 0 {
				return mkInt(0), true
			}
			return mkInt(a % b), true
		case "xor":
			return mkInt(a ^ b), true
		case "and":
			return mkInt(a & b), true
		case "or":
			return mkInt(a | b), true
		case "lt":
			return boolLit(call.Loc, a < b), true
		case "gt":
			return boolLit(call.Loc, a > b), true
		}
	case "i64_to_str":
		v, ok := intArg(0)
		if !ok {
			return nil, false
		}
		return strLit(call.Loc, strconv.FormatInt(v, 10)), true
	case "str_to_i64":
		if len(lits) != 1 || lits[0].LitKind != LitString {
			return nil, false
		}
		v, err := strconv.ParseInt(lits[0].LitStr, 10, 64)
		if err != nil {
			return nil, false
		}
		return intLit(call.Loc, strconv.FormatInt(v, 10)), true
	case "u8_to_i64":
		v, ok := intArg(0)
		if !ok {
			return nil, false
		}
		return intLit(call.Loc, strconv.FormatInt(v&0xff, 10)), true
	case "i64_to_u8":
		v, ok := intArg(0)
		if !ok {
			return nil, false
		}
		return intLit(call.Loc, strconv.FormatInt(v&0xff, 10)), true
	case "not":
		b, ok := boolArg(0)
		if !ok {
			return nil, false
		}
		return boolLit(call.Loc, !b), true
	}
	return nil, false
}

func boolLit(loc Location, v bool) *Expr {
	e := newExpr(NLiteral, loc, Range{})
	e.LitKind = LitBool
	if v {
		e.LitStr = "true"
	} else {
		e.LitStr = "false"
	}
	return e
}
