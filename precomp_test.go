package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runPrecomp(t *testing.T, src string) *Expr {
	t.Helper()
	body := parse(t, src)
	NewPrecomp().Run(body)
	return body
}

func TestPrecomp_FoldsAddOfLiterals(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := add(1, 2)
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, NLiteral, rhs.Type)
	assert.Equal(t, LitInt, rhs.LitKind)
	assert.Equal(t, "3", rhs.LitStr)
}

func TestPrecomp_FoldsNestedArithmetic(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := mul(add(1, 2), 3)
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, NLiteral, rhs.Type)
	assert.Equal(t, "9", rhs.LitStr)
}

func TestPrecomp_DivByZeroFoldsToZeroInsteadOfPanicking(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := div(5, 0)
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, "0", rhs.LitStr)
}

func TestPrecomp_FoldsComparisonToBoolLiteral(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := lt(1, 2)
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, LitBool, rhs.LitKind)
	assert.Equal(t, "true", rhs.LitStr)
}

func TestPrecomp_LeavesNonLiteralArgsUnfolded(t *testing.T) {
	body := runPrecomp(t, `
main := proc(n: I64) {
    x := add(n, 1)
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, NCall, rhs.Type)
}

func TestPrecomp_SubstitutesLineAndColFromCallSite(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := _line()
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	require.Equal(t, NLiteral, rhs.Type)
	assert.Equal(t, LitInt, rhs.LitKind)
}

func TestPrecomp_SubstitutesFileFromCallSite(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := _file()
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	require.Equal(t, NLiteral, rhs.Type)
	assert.Equal(t, LitString, rhs.LitKind)
	assert.Equal(t, "test.til", rhs.LitStr)
}

func TestPrecomp_StrToI64RoundTrip(t *testing.T) {
	body := runPrecomp(t, `
main := proc() {
    x := str_to_i64("42")
}
`)
	fd := body.Params[0].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, LitInt, rhs.LitKind)
	assert.Equal(t, "42", rhs.LitStr)
}

func TestPrecomp_UserDefinedFuncCallsAreNeverFolded(t *testing.T) {
	body := runPrecomp(t, `
double := func(v: I64) returns I64 {
    return v
}
main := proc() {
    x := double(2)
}
`)
	fd := body.Params[1].Params[0].Func
	rhs := fd.Body[0].Params[0]
	assert.Equal(t, NCall, rhs.Type)
}
