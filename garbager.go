package til

// VarLifetime records the span, in statement index terms, a binding is
// live across within one function body. The garbager computes these
// but does not yet act on them, per spec §4.8 and the Open Question
// resolution in §9: "implementations may leave it identity-preserving."
// It is the designed home for a future liveness analysis that inserts
// `Type.delete(var)` at last use; today, lifetime destruction is
// provided only by the preinit-derived `delete` plus explicit user
// calls.
type VarLifetime struct {
	Name     string
	DeclStmt int
	LastUse  int
}

// Garbager walks every surviving function body with a fresh scope,
// recording VarLifetime entries per declared name, and returns the
// body unchanged.
type Garbager struct {
	Lifetimes map[string][]VarLifetime // keyed by "<funcName>" or "<Type>.<method>"
}

func NewGarbager() *Garbager {
	return &Garbager{Lifetimes: make(map[string][]VarLifetime)}
}

func (g *Garbager) Run(body *Expr) {
	for _, s := range body.Params {
		g.visitTopLevel(s)
	}
}

func (g *Garbager) visitTopLevel(s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		g.analyzeFunc(s.Decl.Name, s.Params[0].Func)
	case NStructDef:
		sd := s.Params[0].Struct
		for _, name := range sd.NS.Names() {
			fd, _ := sd.NS.Get(name)
			g.analyzeFunc(s.Decl.Name+"."+name, fd)
		}
	case NEnumDef:
		ed := s.Params[0].Enum
		for _, name := range ed.NS.Names() {
			fd, _ := ed.NS.Get(name)
			g.analyzeFunc(s.Decl.Name+"."+name, fd)
		}
	}
}

// analyzeFunc records one VarLifetime per declaration statement found
// at any nesting depth in fd's body, using a flat statement counter as
// the position unit. This is deliberately coarse: the garbager doesn't
// act on the result, so precise basic-block numbering isn't needed
// yet.
func (g *Garbager) analyzeFunc(name string, fd *FuncDef) {
	if fd.Kind.IsExternal() {
		return
	}
	pos := 0
	var lifetimes []VarLifetime
	var walk func(e *Expr)
	walk = func(e *Expr) {
		if e == nil {
			return
		}
		pos++
		if e.Type == NDeclaration && e.Decl != nil {
			lifetimes = append(lifetimes, VarLifetime{Name: e.Decl.Name, DeclStmt: pos, LastUse: pos})
		}
		if e.Type == NIdentifier && len(e.Params) == 0 {
			for i := range lifetimes {
				if lifetimes[i].Name == e.Name {
					lifetimes[i].LastUse = pos
				}
			}
		}
		for _, c := range e.Params {
			walk(c)
		}
	}
	for _, s := range fd.Body {
		walk(s)
	}
	g.Lifetimes[name] = lifetimes
}
