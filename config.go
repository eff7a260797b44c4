package til

import "github.com/jtimon/til/internal/target"

// RunConfig is the typed configuration surface described in SPEC_FULL
// §3.1/§10.3: parsed once by cmd/til from urfave/cli flags and
// threaded through every pipeline phase. Unlike the teacher's generic
// Config map (built for an open-ended set of grammar-transform
// toggles), this module's configuration surface is small and fixed,
// so a typed struct is the better fit for it.
type RunConfig struct {
	Path      string
	Mode      string
	Target    target.Target
	Lang      target.Lang
	CC        string
	Force     bool
	Translate bool
	Verbose   bool
}

// NewRunConfig returns a RunConfig defaulted to the host platform and
// its native C backend, mirroring the teacher's NewConfig() priming a
// fresh Config with every default the rest of the pipeline expects.
func NewRunConfig(path string) *RunConfig {
	t := target.DetectCurrent()
	return &RunConfig{
		Path:   path,
		Mode:   "script",
		Target: t,
		Lang:   target.DefaultLang(t),
	}
}
