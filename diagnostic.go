package til

import "fmt"

// Phase names a pipeline stage, used to tag diagnostics the way the
// error format in spec §6 requires: "path:line:col: phase ERROR: msg".
type Phase string

const (
	PhaseLexer      Phase = "lexer"
	PhaseParser     Phase = "parser"
	PhaseMode       Phase = "mode"
	PhasePreinit    Phase = "preinit"
	PhaseInit       Phase = "init"
	PhaseTyper      Phase = "typer"
	PhaseDesugar    Phase = "desugar"
	PhaseGarbager   Phase = "garbager"
	PhaseUFCS       Phase = "ufcs"
	PhasePrecomp    Phase = "precomp"
	PhaseScavenger  Phase = "scavenger"
	PhaseInterp     Phase = "interpret"
	PhaseCodegen    Phase = "codegen"
)

// Severity classifies a Diagnostic per §7: user errors are fatal to the
// phase that produced them, warnings are advisory, bugs are unreachable
// conditions that indicate a compiler defect.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
	SeverityBug
)

// Diagnostic is the single type every phase emits. Phases collect
// diagnostics rather than stopping at the first one wherever feasible
// (lexer reserved-word errors, typer type errors); the parser still
// aborts on the first syntax error, per spec §4.2.
type Diagnostic struct {
	Path    string
	Line    int32
	Col     int32
	Phase   Phase
	Sev     Severity
	Message string
}

func NewDiagnostic(loc Location, phase Phase, sev Severity, format string, args ...any) Diagnostic {
	return Diagnostic{
		Path:    loc.File,
		Line:    loc.Line,
		Col:     loc.Column,
		Phase:   phase,
		Sev:     sev,
		Message: fmt.Sprintf(format, args...),
	}
}

// Error implements the error interface so a Diagnostic can be returned
// anywhere ordinary Go code expects one, e.g. from the CLI's final
// error check.
func (d Diagnostic) Error() string {
	label := "ERROR"
	switch d.Sev {
	case SeverityWarning:
		label = "WARNING"
	case SeverityBug:
		return fmt.Sprintf("%s:%d:%d: %s ERROR: %s\nExplanation: This should never happen, this is a bug in the language.",
			d.Path, d.Line, d.Col, d.Phase, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s %s: %s", d.Path, d.Line, d.Col, d.Phase, label, d.Message)
}

// IsFatal reports whether this diagnostic should abort compilation.
func (d Diagnostic) IsFatal() bool {
	return d.Sev == SeverityError || d.Sev == SeverityBug
}

// Diagnostics is an ordered collection of Diagnostic, accumulated by a
// phase and flushed by the caller (ultimately cmd/til).
type Diagnostics []Diagnostic

func (ds *Diagnostics) Add(d Diagnostic) { *ds = append(*ds, d) }

func (ds Diagnostics) HasFatal() bool {
	for _, d := range ds {
		if d.IsFatal() {
			return true
		}
	}
	return false
}

// bug panics with a Diagnostic-shaped message, per §7.3: reaching an
// unreachable-by-contract AST shape after the desugarer is a language
// bug, not a user error.
func bug(loc Location, phase Phase, format string, args ...any) {
	d := NewDiagnostic(loc, phase, SeverityBug, format, args...)
	panic(d)
}
