package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractMode_FindsAndStripsModeStatement(t *testing.T) {
	body := parse(t, "mode cli\nmain := proc() {\n}")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)

	assert.Empty(t, diags)
	assert.Equal(t, "cli", mode.Name)
	require.Len(t, rest, 1)
	assert.Equal(t, NDeclaration, rest[0].Type)
	assert.Equal(t, "main", rest[0].Decl.Name)
}

func TestExtractMode_DefaultsToLibWhenAbsent(t *testing.T) {
	body := parse(t, "x := 1")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)

	assert.Equal(t, "lib", mode.Name)
	assert.Len(t, rest, 1)
}

func TestExtractMode_UnknownModeReportsDiagnosticAndFallsBack(t *testing.T) {
	body := parse(t, "mode bogus")
	var diags Diagnostics
	mode, _ := ExtractMode(body, &diags)

	require.Len(t, diags, 1)
	assert.Equal(t, "lib", mode.Name)
}

func TestCheckTopLevelLegality_LibRejectsCallsAndMut(t *testing.T) {
	body := parse(t, "mut x := 1\nf()")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)
	diags = nil
	CheckTopLevelLegality(mode, rest, &diags)

	require.Len(t, diags, 2)
}

func TestCheckTopLevelLegality_ScriptAllowsMutAndCalls(t *testing.T) {
	body := parse(t, "mode script\nmut x := 1\nf()")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)
	diags = nil
	CheckTopLevelLegality(mode, rest, &diags)

	assert.Empty(t, diags)
}

func TestCheckTopLevelLegality_CliRequiresMain(t *testing.T) {
	body := parse(t, "mode cli\nx := 1")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)
	diags = nil
	CheckTopLevelLegality(mode, rest, &diags)

	require.Len(t, diags, 1)
	assert.Contains(t, diags[0].Message, "requires a top-level `main` function")
}

func TestCheckTopLevelLegality_CliWithMainPasses(t *testing.T) {
	body := parse(t, "mode cli\nmain := proc() {\n}")
	var diags Diagnostics
	mode, rest := ExtractMode(body, &diags)
	diags = nil
	CheckTopLevelLegality(mode, rest, &diags)

	assert.Empty(t, diags)
}

func TestImplicitImportPaths_TestModeImportsHarness(t *testing.T) {
	mode, _ := LookupMode("test")
	paths := ImplicitImportPaths(mode)
	assert.Equal(t, []string{"test/harness"}, paths)
}

func TestImplicitImportPaths_LibModeHasNone(t *testing.T) {
	mode, _ := LookupMode("lib")
	assert.Empty(t, ImplicitImportPaths(mode))
}
