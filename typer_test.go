package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runTyper(t *testing.T, src string) (*Context, *Expr) {
	t.Helper()
	ctx := newTestContext()
	body := parse(t, src)
	var diags Diagnostics
	mode, stmts := ExtractMode(body, &diags)
	ctx.Mode = &mode
	rebuilt := newExpr(NBody, body.Loc, body.Rg, stmts...)
	Preinit(rebuilt)
	for _, s := range stmts {
		registerTopLevel(ctx, s)
	}
	NewTyper(ctx).Run(rebuilt)
	return ctx, rebuilt
}

func TestTyper_InfersAutoDeclarationType(t *testing.T) {
	ctx, _ := runTyper(t, `x := 5`)
	sym, ok := ctx.Scopes.LookupSymbol("x")
	require.True(t, ok)
	assert.Equal(t, TypeI64, sym.ValueType.CustomName)
}

func TestTyper_InfersStringLiteralType(t *testing.T) {
	ctx, _ := runTyper(t, `s := "hi"`)
	sym, _ := ctx.Scopes.LookupSymbol("s")
	assert.Equal(t, TypeStr, sym.ValueType.CustomName)
}

func TestTyper_AssignmentToNonMutIsError(t *testing.T) {
	ctx, _ := runTyper(t, "x := 1\nx = 2")
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_AssignmentToMutIsFine(t *testing.T) {
	ctx, _ := runTyper(t, "mut x := 1\nx = 2")
	assert.False(t, ctx.Diags.HasFatal())
}

func TestTyper_AssignmentToUndeclaredIsError(t *testing.T) {
	ctx, _ := runTyper(t, "x = 2")
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_UndeclaredIdentifierIsError(t *testing.T) {
	ctx, _ := runTyper(t, "x := nonexistent")
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_NamedArgCallIsFine(t *testing.T) {
	ctx, _ := runTyper(t, `
greet := func(name: Str, greeting: Str) returns Str {
    return greeting
}
greet(name="Ana", greeting="hi")
`)
	assert.False(t, ctx.Diags.HasFatal())
}

func TestTyper_PositionalArgAfterNamedArgIsError(t *testing.T) {
	ctx, _ := runTyper(t, `
greet := func(name: Str, greeting: Str) returns Str {
    return greeting
}
greet(name="Ana", "hi")
`)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_DuplicateNamedArgIsError(t *testing.T) {
	ctx, _ := runTyper(t, `
greet := func(name: Str, greeting: Str) returns Str {
    return greeting
}
greet(name="Ana", name="Beto")
`)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_UnknownNamedArgIsError(t *testing.T) {
	ctx, _ := runTyper(t, `
greet := func(name: Str, greeting: Str) returns Str {
    return greeting
}
greet(name="Ana", farewell="bye")
`)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_SwitchExhaustivenessMissingVariant(t *testing.T) {
	ctx, _ := runTyper(t, `
Option := enum {
    None
    Some: I64
}
opt: Option = Option.None()
switch opt {
case None:
    x := 1
}
`)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_SwitchWithDefaultIsExhaustive(t *testing.T) {
	ctx, _ := runTyper(t, `
Option := enum {
    None
    Some: I64
}
opt: Option = Option.None()
switch opt {
case None:
    x := 1
default:
    y := 2
}
`)
	assert.False(t, ctx.Diags.HasFatal())
}

func TestTyper_SwitchCoveringAllVariantsIsExhaustive(t *testing.T) {
	ctx, _ := runTyper(t, `
Option := enum {
    None
    Some: I64
}
opt: Option = Option.None()
switch opt {
case None:
    x := 1
case Some(v):
    y := v
}
`)
	assert.False(t, ctx.Diags.HasFatal())
}

func TestTyper_ThrowNotCoveredIsError(t *testing.T) {
	ctx, _ := runTyper(t, `
risky := func() throws I64 {
    throw 1
}
main := proc() {
    risky()?
}
`)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestTyper_ThrowCoveredByCatchIsFine(t *testing.T) {
	ctx, _ := runTyper(t, `
risky := func() throws I64 {
    throw 1
}
main := proc() {
    try {
        risky()?
    } catch (e: I64) {
        x := e
    }
}
`)
	assert.False(t, ctx.Diags.HasFatal())
}
