package til

// ExtractMode scans a freshly parsed file body for its leading `mode`
// statement (emitted by the parser as an NDeclaration named "mode"
// whose ValueType names the mode), validates it against the fixed
// table in spec §6, and strips the statement out of body so later
// passes never see it. A missing mode statement defaults to "lib",
// per spec §4.5/§6.
func ExtractMode(body *Expr, diags *Diagnostics) (ModeDef, []*Expr) {
	rest := make([]*Expr, 0, len(body.Params))
	modeName := "lib"
	found := false

	for _, stmt := range body.Params {
		if !found && stmt.Type == NDeclaration && stmt.Decl != nil && stmt.Decl.Name == "mode" {
			modeName = stmt.Decl.ValueType.CustomName
			found = true
			continue
		}
		rest = append(rest, stmt)
	}

	m, ok := LookupMode(modeName)
	if !ok {
		diags.Add(NewDiagnostic(body.Loc, PhaseMode, SeverityError,
			"unknown mode %q: must be one of lib, pure, script, safe_script, cli, test", modeName))
		m = modeTable["lib"]
	}
	return m, rest
}

// CheckTopLevelLegality enforces the per-mode top-level rules of spec
// §6: which statement shapes are legal directly in a file body versus
// only inside a function/proc.
func CheckTopLevelLegality(mode ModeDef, stmts []*Expr, diags *Diagnostics) {
	for _, stmt := range stmts {
		switch stmt.Type {
		case NFuncDef, NStructDef, NEnumDef:
			continue
		case NDeclaration:
			if stmt.Decl != nil && stmt.Decl.IsMut() && !mode.AllowsTopLevelMut {
				diags.Add(NewDiagnostic(stmt.Loc, PhaseMode, SeverityError,
					"mode %q does not allow top-level `mut` declarations", mode.Name))
			}
		case NCall:
			if !mode.AllowsTopLevelCalls {
				diags.Add(NewDiagnostic(stmt.Loc, PhaseMode, SeverityError,
					"mode %q does not allow top-level function calls", mode.Name))
			}
		default:
			if !mode.AllowsTopLevelCalls {
				diags.Add(NewDiagnostic(stmt.Loc, PhaseMode, SeverityError,
					"mode %q does not allow top-level statements of kind %s", mode.Name, stmt.Type))
			}
		}
	}
	if mode.NeedsMain {
		if _, ok := findTopLevelFunc(stmts, "main"); !ok {
			diags.Add(NewDiagnostic(Location{File: "?"}, PhaseMode, SeverityError,
				"mode %q requires a top-level `main` function", mode.Name))
		}
	}
}

func findTopLevelFunc(stmts []*Expr, name string) (*Expr, bool) {
	for _, stmt := range stmts {
		if stmt.Type == NDeclaration && stmt.Decl != nil && stmt.Decl.Name == name {
			if len(stmt.Params) == 1 && stmt.Params[0].Type == NFuncDef {
				return stmt.Params[0], true
			}
		}
	}
	return nil, false
}

// ImplicitImportPaths returns the import paths mode implicitly adds to
// every file, per spec §6 (e.g. "test" mode implicitly imports the
// test harness).
func ImplicitImportPaths(mode ModeDef) []string {
	out := make([]string, len(mode.ImplicitImports))
	copy(out, mode.ImplicitImports)
	return out
}
