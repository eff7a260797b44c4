package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jtimon/til/internal/source"
)

func TestInit_RegistersTopLevelFuncsStructsEnums(t *testing.T) {
	resolver := source.NewMemResolver(map[string][]byte{
		"main.til": []byte(`
mode lib
add := func(a: I64, b: I64) returns I64 {
    return a
}
Point := struct {
    mut x: I64 = 0
}
Option := enum {
    None
    Some: I64
}
`),
	})
	ctx := NewContext("main.til", resolver, nil)
	_, err := Init(ctx, "main.til")
	require.NoError(t, err)
	assert.False(t, ctx.Diags.HasFatal())

	_, ok := ctx.Scopes.LookupFunc("add")
	assert.True(t, ok)
	_, ok = ctx.Scopes.LookupStruct("Point")
	assert.True(t, ok)
	_, ok = ctx.Scopes.LookupEnum("Option")
	assert.True(t, ok)
}

func TestInit_SetsContextMode(t *testing.T) {
	resolver := source.NewMemResolver(map[string][]byte{
		"main.til": []byte("mode cli\nmain := proc() {\n}"),
	})
	ctx := NewContext("main.til", resolver, nil)
	_, err := Init(ctx, "main.til")
	require.NoError(t, err)
	require.NotNil(t, ctx.Mode)
	assert.Equal(t, "cli", ctx.Mode.Name)
}

func TestInit_ResolvesAndRegistersImports(t *testing.T) {
	resolver := source.NewMemResolver(map[string][]byte{
		"main.til": []byte(`
mode lib
import "helper"
use_it := func() returns I64 {
    return helper_value
}
`),
		"helper.til": []byte(`
mode lib
helper_value: I64 = 1
`),
	})
	ctx := NewContext("main.til", resolver, nil)
	_, err := Init(ctx, "main.til")
	require.NoError(t, err)
	assert.False(t, ctx.Diags.HasFatal())

	_, ok := ctx.Scopes.LookupSymbol("helper_value")
	assert.True(t, ok)
}

func TestInit_UnresolvableImportProducesDiagnostic(t *testing.T) {
	resolver := source.NewMemResolver(map[string][]byte{
		"main.til": []byte(`
mode lib
import "missing"
`),
	})
	ctx := NewContext("main.til", resolver, nil)
	_, err := Init(ctx, "main.til")
	require.NoError(t, err)
	assert.True(t, ctx.Diags.HasFatal())
}

func TestInit_CyclicImportsDoNotInfiniteLoop(t *testing.T) {
	resolver := source.NewMemResolver(map[string][]byte{
		"main.til": []byte(`
mode lib
import "a"
`),
		"a.til": []byte(`
mode lib
import "main"
a_value: I64 = 1
`),
	})
	ctx := NewContext("main.til", resolver, nil)
	_, err := Init(ctx, "main.til")
	require.NoError(t, err)

	_, ok := ctx.Scopes.LookupSymbol("a_value")
	assert.True(t, ok)
}

func TestImportCallPath(t *testing.T) {
	body := parse(t, `import "lib/foo"`)
	path, ok := importCallPath(body.Params[0])
	require.True(t, ok)
	assert.Equal(t, "lib/foo", path)

	notImport := parse(t, `f()`)
	_, ok = importCallPath(notImport.Params[0])
	assert.False(t, ok)
}
