package til

// Scavenger implements spec §4.11: dead-code elimination by transitive
// closure from mode-specific roots. All `ext_*` functions are kept
// regardless of reachability (they're the link-time contract with the
// host environment); if any surviving function is variadic, the
// `Array.new/set/get/delete/len` family is retained too and the
// closure is recomputed to pick up whatever those reference.
type Scavenger struct {
	ctx *Context
}

func NewScavenger(ctx *Context) *Scavenger { return &Scavenger{ctx: ctx} }

// Run rewrites body to keep only declarations reachable from mode's
// roots, per the table in spec §4.11:
//   - cli: root is `main`.
//   - script/safe_script/test: roots are every function directly
//     referenced by a top-level statement.
//   - lib/pure: no roots; everything is a removal candidate, so only
//     functions referenced by other surviving code remain — which, with
//     no roots at all, means nothing survives. In practice lib/pure
//     files are imported for their declarations by a cli/script entry
//     point, so this pass runs per-file before cross-file linking by
//     the caller, not after.
func (sc *Scavenger) Run(mode ModeDef, body *Expr) *Expr {
	roots := sc.collectRoots(mode, body)
	live := sc.closure(roots)

	if sc.anyVariadic(live) {
		for _, n := range []string{"Array.new", "Array.set", "Array.get", "Array.delete", "Array.len"} {
			if _, ok := live[n]; !ok {
				live[n] = true
			}
		}
		live = sc.closure(keys(live))
	}

	var kept []*Expr
	for _, s := range body.Params {
		name, isDeclOfFunc := sc.declaredFuncName(s)
		if !isDeclOfFunc || live[name] || sc.isExternalDecl(s) {
			kept = append(kept, s)
		}
	}
	return newExpr(NBody, body.Loc, body.Rg, kept...)
}

func keys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func (sc *Scavenger) collectRoots(mode ModeDef, body *Expr) []string {
	switch mode.Name {
	case "cli":
		if _, ok := findTopLevelFunc(body.Params, "main"); ok {
			return []string{"main"}
		}
		return nil
	case "lib", "pure":
		return nil
	default: // script, safe_script, test
		var roots []string
		seen := make(map[string]bool)
		for _, s := range body.Params {
			if s.Type == NDeclaration && s.Decl != nil && len(s.Params) == 1 {
				continue // definitions aren't "top-level statements" in the root sense
			}
			for _, name := range referencedFuncNames(s) {
				if !seen[name] {
					seen[name] = true
					roots = append(roots, name)
				}
			}
		}
		return roots
	}
}

// closure grows roots into the full set of function/method names
// transitively reachable through call expressions in their bodies.
func (sc *Scavenger) closure(roots []string) map[string]bool {
	live := make(map[string]bool)
	var work []string
	for _, r := range roots {
		if !live[r] {
			live[r] = true
			work = append(work, r)
		}
	}
	for len(work) > 0 {
		name := work[len(work)-1]
		work = work[:len(work)-1]
		fd, ok := sc.ctx.Scopes.LookupFunc(name)
		if !ok {
			continue
		}
		for _, s := range fd.Body {
			for _, ref := range referencedFuncNames(s) {
				if !live[ref] {
					live[ref] = true
					work = append(work, ref)
				}
			}
		}
	}
	return live
}

func (sc *Scavenger) anyVariadic(live map[string]bool) bool {
	for name := range live {
		if fd, ok := sc.ctx.Scopes.LookupFunc(name); ok && fd.IsVariadic {
			return true
		}
	}
	return false
}

func (sc *Scavenger) declaredFuncName(s *Expr) (string, bool) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return "", false
	}
	if s.Params[0].Type != NFuncDef {
		return "", false
	}
	return s.Decl.Name, true
}

func (sc *Scavenger) isExternalDecl(s *Expr) bool {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 || s.Params[0].Type != NFuncDef {
		return false
	}
	return s.Params[0].Func.Kind.IsExternal()
}

// referencedFuncNames collects every bare function-name callee
// reachable from e, recursing into every child regardless of
// statement/expression shape.
func referencedFuncNames(e *Expr) []string {
	var out []string
	var walk func(*Expr)
	walk = func(n *Expr) {
		if n == nil {
			return
		}
		if n.Type == NCall && len(n.Params) > 0 {
			if callee := n.Params[0]; callee.Type == NIdentifier {
				if len(callee.Params) == 0 {
					out = append(out, callee.Name)
				} else {
					path := callee.DottedPath()
					if len(path) >= 2 {
						out = append(out, path[len(path)-2]+"."+path[len(path)-1])
					}
				}
			}
		}
		for _, c := range n.Params {
			walk(c)
		}
	}
	walk(e)
	return out
}
