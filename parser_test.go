package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, src string) *Expr {
	t.Helper()
	l := NewLexer("test.til", []byte(src), nil)
	toks := l.Tokens()
	require.Empty(t, l.Diagnostics())
	p := NewParser("test.til", toks)
	body, err := p.Parse()
	require.NoError(t, err)
	return body
}

func TestParser_DeclarationWithInferredType(t *testing.T) {
	body := parse(t, "x := 5")
	require.Len(t, body.Params, 1)
	decl := body.Params[0]
	assert.Equal(t, NDeclaration, decl.Type)
	assert.Equal(t, "x", decl.Decl.Name)
	assert.Equal(t, "auto", decl.Decl.ValueType.CustomName)
}

func TestParser_DeclarationWithExplicitType(t *testing.T) {
	body := parse(t, "x: I64 = 5")
	decl := body.Params[0]
	assert.Equal(t, TypeI64, decl.Decl.ValueType.CustomName)
}

func TestParser_MutCopyOwnBindingModes(t *testing.T) {
	tests := []struct {
		src  string
		mode BindingMode
	}{
		{"mut x := 1", BindMut},
		{"copy x := 1", BindCopy},
		{"own x := 1", BindOwn},
	}
	for _, tt := range tests {
		body := parse(t, tt.src)
		assert.Equal(t, tt.mode, body.Params[0].Decl.Mode)
	}
}

func TestParser_Assignment(t *testing.T) {
	body := parse(t, "x = 5")
	a := body.Params[0]
	assert.Equal(t, NAssignment, a.Type)
	assert.Equal(t, "x", a.Params[0].Name)
}

func TestParser_DottedFieldAssignment(t *testing.T) {
	body := parse(t, "p.x = 5")
	a := body.Params[0]
	assert.Equal(t, NAssignment, a.Type)
	assert.Equal(t, []string{"p", "x"}, a.Params[0].DottedPath())
}

func TestParser_CallExpression(t *testing.T) {
	body := parse(t, "add(1, 2)")
	call := body.Params[0]
	assert.Equal(t, NCall, call.Type)
	assert.Equal(t, "add", call.Params[0].Name)
	assert.Len(t, call.Params, 3)
}

func TestParser_CallWithNamedArg(t *testing.T) {
	body := parse(t, "f(x=1)")
	call := body.Params[0]
	namedArg := call.Params[1]
	assert.Equal(t, NNamedArg, namedArg.Type)
	assert.Equal(t, "x", namedArg.Name)
}

func TestParser_ThrowingAndBangCallFlags(t *testing.T) {
	body := parse(t, "risky()?")
	call := body.Params[0]
	assert.True(t, call.Flags.DoesThrow)
	assert.False(t, call.Flags.IsBang)

	body = parse(t, "risky()!")
	call = body.Params[0]
	assert.True(t, call.Flags.DoesThrow)
	assert.True(t, call.Flags.IsBang)
}

func TestParser_IfElseChain(t *testing.T) {
	body := parse(t, `if cond { x := 1 } else if other { x := 2 } else { x := 3 }`)
	ifExpr := body.Params[0]
	assert.Equal(t, NIf, ifExpr.Type)
	require.Len(t, ifExpr.Params, 3)
	elseIf := ifExpr.Params[2]
	assert.Equal(t, NIf, elseIf.Type)
}

func TestParser_While(t *testing.T) {
	body := parse(t, `while cond { x := 1 }`)
	w := body.Params[0]
	assert.Equal(t, NWhile, w.Type)
}

func TestParser_RangeForDesugarsToWhile(t *testing.T) {
	body := parse(t, `for i in 0..10 { x := i }`)
	wrapper := body.Params[0]
	assert.Equal(t, NBody, wrapper.Type)
	require.Len(t, wrapper.Params, 2)
	assert.Equal(t, NDeclaration, wrapper.Params[0].Type)
	assert.Equal(t, NWhile, wrapper.Params[1].Type)
}

func TestParser_ForInBecomesNForIn(t *testing.T) {
	body := parse(t, `for x: I64 in coll { y := x }`)
	forIn := body.Params[0]
	assert.Equal(t, NForIn, forIn.Type)
	assert.Equal(t, "x", forIn.Name)
	assert.Equal(t, TypeI64, forIn.ElemTypeName)
}

func TestParser_UnderscoreLoopVarGetsFreshName(t *testing.T) {
	body := parse(t, `for _ in 0..10 { x := 1 }`)
	wrapper := body.Params[0]
	assert.Equal(t, "_loop_0", wrapper.Params[0].Decl.Name)
}

func TestParser_SwitchWithCaseAndDefault(t *testing.T) {
	body := parse(t, `
switch x {
case Some(v):
    y := v
default:
    y := 0
}`)
	sw := body.Params[0]
	assert.Equal(t, NSwitch, sw.Type)
	require.Len(t, sw.Params, 3) // subject + case + default

	caseArm := sw.Params[1]
	assert.Equal(t, NCase, caseArm.Type)
	pattern := caseArm.Params[0]
	assert.Equal(t, "Some", pattern.PatternVariant)
	assert.Equal(t, "v", pattern.PatternBind)

	defaultArm := sw.Params[2]
	assert.Equal(t, NDefault, defaultArm.Type)
}

func TestParser_SwitchRangePattern(t *testing.T) {
	body := parse(t, `
switch x {
case 1..5:
    y := 1
}`)
	sw := body.Params[0]
	caseArm := sw.Params[1]
	rangePattern := caseArm.Params[0]
	assert.Equal(t, NRange, rangePattern.Type)
}

func TestParser_ReturnMultipleValues(t *testing.T) {
	body := parse(t, "return 1, 2")
	r := body.Params[0]
	assert.Equal(t, NReturn, r.Type)
	assert.Len(t, r.Params, 2)
}

func TestParser_ReturnNoValue(t *testing.T) {
	body := parse(t, "return")
	r := body.Params[0]
	assert.Equal(t, NReturn, r.Type)
	assert.Empty(t, r.Params)
}

func TestParser_ThrowStatement(t *testing.T) {
	body := parse(t, `throw "oops"`)
	th := body.Params[0]
	assert.Equal(t, NThrow, th.Type)
	assert.Equal(t, "oops", th.Params[0].LitStr)
}

func TestParser_TryCatch(t *testing.T) {
	body := parse(t, `
try {
    risky()
} catch (e: MyError) {
    handle()
}`)
	c := body.Params[0]
	assert.Equal(t, NCatch, c.Type)
	assert.Equal(t, "e", c.Name)
	assert.Equal(t, "MyError", c.Decl.ValueType.CustomName)
}

func TestParser_BreakContinueDefer(t *testing.T) {
	body := parse(t, `
while cond {
    break
}`)
	w := body.Params[0]
	brk := w.Params[1].Params[0]
	assert.Equal(t, NBreak, brk.Type)

	body = parse(t, "defer cleanup()")
	d := body.Params[0]
	assert.Equal(t, NDefer, d.Type)
	assert.Equal(t, NCall, d.Params[0].Type)
}

func TestParser_FuncLiteralWithReturnsAndThrows(t *testing.T) {
	body := parse(t, `
add := func(a: I64, b: I64) returns I64 {
    return a
}`)
	decl := body.Params[0]
	fn := decl.Params[0]
	assert.Equal(t, NFuncDef, fn.Type)
	fd := fn.Func
	assert.Equal(t, FuncFunc, fd.Kind)
	assert.Equal(t, []string{"a", "b"}, fd.ArgNames)
	assert.Equal(t, TypeI64, fd.Returns[0].CustomName)
}

func TestParser_ExternalFuncHasNoBody(t *testing.T) {
	body := parse(t, `sys_write := ext_proc(fd: I64, buf: Str)`)
	decl := body.Params[0]
	fd := decl.Params[0].Func
	assert.True(t, fd.Kind.IsExternal())
	assert.Empty(t, fd.Body)
}

func TestParser_VariadicArg(t *testing.T) {
	body := parse(t, `
f := func(rest: ...I64) {
}`)
	fd := body.Params[0].Params[0].Func
	assert.True(t, fd.IsVariadic)
	assert.Equal(t, TMulti, fd.Args[0].ValueType.Kind)
}

func TestParser_StructLiteralWithDefaultsAndNamespace(t *testing.T) {
	body := parse(t, `
Point := struct {
    mut x: I64 = 0
    mut y: I64 = 0

    namespace:
        len := func(self: Point) returns I64 {
            return self.x
        }
}`)
	sd := body.Params[0].Params[0].Struct
	require.Len(t, sd.Members, 2)
	assert.Equal(t, "x", sd.Members[0].Name)
	assert.True(t, sd.Members[0].IsMut())
	assert.Contains(t, sd.DefaultValues, "x")
	assert.True(t, sd.NS.Has("len"))
}

func TestParser_EnumLiteralWithPayloads(t *testing.T) {
	body := parse(t, `
Option := enum {
    None
    Some: I64
}`)
	ed := body.Params[0].Params[0].Enum
	require.Len(t, ed.Variants, 2)
	assert.Equal(t, "None", ed.Variants[0].Name)
	assert.Nil(t, ed.Variants[0].PayloadType)
	assert.Equal(t, TypeI64, ed.Variants[1].PayloadType.CustomName)
}

func TestParser_ImportStatement(t *testing.T) {
	body := parse(t, `import "lib/foo"`)
	imp := body.Params[0]
	assert.Equal(t, NCall, imp.Type)
	assert.Equal(t, "import", imp.Params[0].Name)
	assert.Equal(t, "lib/foo", imp.Params[1].LitStr)
}

func TestParser_ModeStatement(t *testing.T) {
	body := parse(t, `mode cli`)
	m := body.Params[0]
	assert.Equal(t, NDeclaration, m.Type)
	assert.Equal(t, "cli", m.Decl.ValueType.CustomName)
}

func TestParser_DoubleSemicolonRejected(t *testing.T) {
	l := NewLexer("test.til", []byte("x := 1;; y := 2"), nil)
	toks := l.Tokens()
	p := NewParser("test.til", toks)
	_, err := p.Parse()
	assert.Error(t, err)
}

func TestParser_SyntaxErrorStopsAtFirstFailure(t *testing.T) {
	l := NewLexer("test.til", []byte("x := "), nil)
	toks := l.Tokens()
	p := NewParser("test.til", toks)
	_, err := p.Parse()
	assert.Error(t, err)
}
