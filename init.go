package til

// Init lexes, parses, and registers the main file plus everything it
// transitively imports into ctx's root scope, per spec §4.5. It
// returns the main file's body with its `mode` statement stripped
// (ExtractMode already removed it) and preinit-derived methods filled
// in.
func Init(ctx *Context, mainPath string) (*Expr, error) {
	content, err := ctx.Resolver.ReadMain(mainPath)
	if err != nil {
		return nil, err
	}

	body, err := lexAndParse(ctx, mainPath, content)
	if err != nil {
		return nil, err
	}
	ctx.CacheAST(mainPath, body)
	ctx.BeginImportInit(mainPath)

	return registerFile(ctx, mainPath, body)
}

func lexAndParse(ctx *Context, path string, content []byte) (*Expr, error) {
	lx := NewLexer(path, content, ctx.Log)
	toks := lx.Tokens()
	ctx.Diags = append(ctx.Diags, lx.Diagnostics()...)

	p := NewParser(path, toks)
	body, err := p.Parse()
	if err != nil {
		if d, ok := err.(Diagnostic); ok {
			ctx.Diags.Add(d)
		}
		return nil, err
	}
	return body, nil
}

// registerFile extracts the mode, runs preinit, recursively processes
// imports (mode-implicit ones first, then user `import` statements, in
// source order), registers every surviving top-level declaration into
// the root scope frame, and checks mode legality.
func registerFile(ctx *Context, path string, body *Expr) (*Expr, error) {
	mode, stmts := ExtractMode(body, &ctx.Diags)
	if ctx.Mode == nil {
		ctx.Mode = &mode
	}

	rebuilt := newExpr(NBody, body.Loc, body.Rg, stmts...)
	Preinit(rebuilt)

	for _, imp := range ImplicitImportPaths(mode) {
		initImportFile(ctx, path, imp)
	}
	for _, s := range stmts {
		if impPath, ok := importCallPath(s); ok {
			initImportFile(ctx, path, impPath)
		}
	}
	for _, s := range stmts {
		registerTopLevel(ctx, s)
	}

	CheckTopLevelLegality(mode, stmts, &ctx.Diags)
	return rebuilt, nil
}

// initImportFile resolves importPath relative to fromFile, guards
// against re-processing (the cycle guard of spec §4.5/§9), and
// recurses into the resolved file's own registerFile.
func initImportFile(ctx *Context, fromFile, importPath string) {
	resolvedPath, content, err := ctx.Resolver.Resolve(fromFile, importPath)
	if err != nil {
		ctx.Diags.Add(NewDiagnostic(Location{File: fromFile}, PhaseInit, SeverityError,
			"cannot resolve import %q: %v", importPath, err))
		return
	}
	if ctx.BeginImportInit(resolvedPath) {
		return
	}

	fileBody, ok := ctx.CachedAST(resolvedPath)
	if !ok {
		parsed, err := lexAndParse(ctx, resolvedPath, content)
		if err != nil {
			return
		}
		ctx.CacheAST(resolvedPath, parsed)
		fileBody = parsed
	}
	registerFile(ctx, resolvedPath, fileBody)
}

// importCallPath reports whether s is the `import "path"` call shape
// the parser emits for an import statement, returning its literal
// path.
func importCallPath(s *Expr) (string, bool) {
	if s.Type != NCall || len(s.Params) != 2 {
		return "", false
	}
	if s.Params[0].Type != NIdentifier || s.Params[0].Name != "import" {
		return "", false
	}
	if s.Params[1].Type != NLiteral || s.Params[1].LitKind != LitString {
		return "", false
	}
	return s.Params[1].LitStr, true
}

func registerTopLevel(ctx *Context, s *Expr) {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return
	}
	switch s.Params[0].Type {
	case NFuncDef:
		ctx.Scopes.DeclareFunc(s.Decl.Name, s.Params[0].Func)
	case NStructDef:
		ctx.Scopes.DeclareStruct(s.Decl.Name, s.Params[0].Struct)
	case NEnumDef:
		ctx.Scopes.DeclareEnum(s.Decl.Name, s.Params[0].Enum)
	default:
		ctx.Scopes.DeclareSymbol(s.Decl.Name, SymbolInfo{ValueType: s.Decl.ValueType, Mode: s.Decl.Mode})
	}
}
