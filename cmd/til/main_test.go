package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"

	til "github.com/jtimon/til"
	"github.com/jtimon/til/internal/target"
)

// runConfigFromArgs drives runConfigFrom through a real cli.App so c.String/c.Bool
// resolve exactly as they do for the actual binary, rather than hand-building
// a cli.Context.
func runConfigFromArgs(t *testing.T, args []string) (*til.RunConfig, error) {
	t.Helper()
	var rc *til.RunConfig
	var rcErr error
	app := &cli.App{
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target"},
			&cli.StringFlag{Name: "lang"},
			&cli.StringFlag{Name: "cc"},
			&cli.BoolFlag{Name: "force-rebuild"},
			&cli.BoolFlag{Name: "translate"},
			&cli.BoolFlag{Name: "verbose"},
		},
		Action: func(c *cli.Context) error {
			rc, rcErr = runConfigFrom(c, "main.til")
			return nil
		},
	}
	require.NoError(t, app.Run(append([]string{"til"}, args...)))
	return rc, rcErr
}

func TestRunConfigFrom_DefaultsToHostTargetAndLang(t *testing.T) {
	rc, err := runConfigFromArgs(t, nil)
	require.NoError(t, err)
	assert.Equal(t, "main.til", rc.Path)
	assert.Equal(t, target.DetectCurrent(), rc.Target)
	assert.Equal(t, target.DefaultLang(rc.Target), rc.Lang)
}

func TestRunConfigFrom_ExplicitTargetOverridesDefault(t *testing.T) {
	rc, err := runConfigFromArgs(t, []string{"--target", "linux-x64"})
	require.NoError(t, err)
	assert.Equal(t, target.LinuxX64, rc.Target)
}

func TestRunConfigFrom_UnknownTargetIsError(t *testing.T) {
	_, err := runConfigFromArgs(t, []string{"--target", "bogus-target"})
	assert.Error(t, err)
}

func TestRunConfigFrom_UnknownLangIsError(t *testing.T) {
	_, err := runConfigFromArgs(t, []string{"--lang", "bogus-lang"})
	assert.Error(t, err)
}

func TestRunConfigFrom_LangMustMatchTarget(t *testing.T) {
	_, err := runConfigFromArgs(t, []string{"--target", "linux-x64", "--lang", "holyc"})
	assert.Error(t, err)
}

func TestRunConfigFrom_CCOverride(t *testing.T) {
	rc, err := runConfigFromArgs(t, []string{"--cc", "clang"})
	require.NoError(t, err)
	assert.Equal(t, "clang", rc.CC)
}

func TestRunConfigFrom_FlagsThreadThrough(t *testing.T) {
	rc, err := runConfigFromArgs(t, []string{"--force-rebuild", "--translate", "--verbose"})
	require.NoError(t, err)
	assert.True(t, rc.Force)
	assert.True(t, rc.Translate)
	assert.True(t, rc.Verbose)
}

func TestFlushDiags_EmptyIsNil(t *testing.T) {
	ctx := &til.Context{}
	assert.NoError(t, flushDiags(ctx))
}

func TestFlushDiags_WarningOnlyIsNil(t *testing.T) {
	ctx := &til.Context{}
	ctx.Diags.Add(til.NewDiagnostic(til.Location{File: "main.til", Line: 1, Column: 1}, til.PhaseTyper, til.SeverityWarning, "unused variable"))
	assert.NoError(t, flushDiags(ctx))
}

func TestFlushDiags_FatalErrorIsError(t *testing.T) {
	ctx := &til.Context{}
	ctx.Diags.Add(til.NewDiagnostic(til.Location{File: "main.til", Line: 1, Column: 1}, til.PhaseTyper, til.SeverityError, "type mismatch"))
	assert.Error(t, flushDiags(ctx))
}
