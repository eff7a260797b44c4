package til

import "go.uber.org/zap"

// RunPipeline drives every phase from Init through Scavenger (spec
// §2's fixed phase order), returning the final AST ready for either
// the interpreter or codegen_c.go; diagnostics and declarations
// accumulate in ctx, which the caller keeps. It is
// the one place cmd/til's `interpret`/`build`/`translate`/`run`
// subcommands all call into, so the phase order itself lives in
// exactly one spot.
func RunPipeline(ctx *Context, mainPath string) (*Expr, error) {
	body, err := Init(ctx, mainPath)
	if err != nil {
		return nil, err
	}
	if ctx.Diags.HasFatal() {
		return nil, ctx.Diags[0]
	}

	NewTyper(ctx).Run(body)
	if ctx.Diags.HasFatal() {
		return nil, ctx.Diags[0]
	}

	NewDesugarer().Run(body)
	NewGarbager().Run(body)
	NewUFCS(ctx).Run(body)
	NewPrecomp().Run(body)

	mode := ModeDef{}
	if ctx.Mode != nil {
		mode = *ctx.Mode
	}
	body = NewScavenger(ctx).Run(mode, body)

	ctx.Log.Debug("pipeline complete", zap.String("path", mainPath), zap.String("mode", mode.Name))
	return body, nil
}
