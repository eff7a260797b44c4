// Package ccinvoke shells out to the C compiler selected for a build,
// per spec §6/§9: codegen_c.go only produces source text; invoking the
// actual toolchain is kept separate so tests can generate C without a
// compiler installed.
package ccinvoke

import (
	"bytes"
	"fmt"
	"os/exec"

	"github.com/jtimon/til/internal/target"
)

// Result carries the compiler's combined stdout/stderr for diagnostic
// reporting back through cmd/til.
type Result struct {
	Command string
	Output  string
}

// Compile invokes cc (or the target's default toolchain command if cc
// is empty) on srcPath, producing binPath.
func Compile(cc string, t target.Target, lang target.Lang, srcPath, binPath string) (Result, error) {
	if cc == "" {
		resolved, err := target.ToolchainCommand(t, lang)
		if err != nil {
			return Result{}, err
		}
		cc = resolved
	}

	args := append([]string{}, target.ToolchainExtraArgs(t)...)
	args = append(args, srcPath, "-o", binPath)

	cmd := exec.Command(cc, args...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()

	res := Result{Command: fmt.Sprintf("%s %v", cc, args), Output: buf.String()}
	if err != nil {
		return res, fmt.Errorf("ccinvoke: %s failed: %w\n%s", cc, err, buf.String())
	}
	return res, nil
}
