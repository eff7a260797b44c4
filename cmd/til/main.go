package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	til "github.com/jtimon/til"
	"github.com/jtimon/til/internal/ccinvoke"
	"github.com/jtimon/til/internal/source"
	"github.com/jtimon/til/internal/target"
)

// implName names this implementation for the output path scheme (§6):
// gen/<impl>/<lang>/<mirrored_path>.c, bin/<impl>/<mirrored_path>[.exe].
const implName = "til"

func main() {
	var log *zap.Logger

	app := &cli.App{
		Name:  "til",
		Usage: "the til compiler/interpreter",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "target", Usage: "cross-compilation target, e.g. linux-x64"},
			&cli.StringFlag{Name: "lang", Usage: "codegen backend: c, holyc, til"},
			&cli.StringFlag{Name: "cc", Usage: "C compiler override"},
			&cli.BoolFlag{Name: "force-rebuild", Usage: "skip the rebuild-dependency check"},
			&cli.BoolFlag{Name: "translate", Usage: "emit source without invoking the compiler"},
			&cli.BoolFlag{Name: "verbose", Usage: "enable debug logging"},
		},
		Before: func(c *cli.Context) error {
			cfg := zap.NewDevelopmentConfig()
			cfg.DisableStacktrace = true
			cfg.Encoding = "console"
			if !c.Bool("verbose") {
				cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
			}
			built, err := cfg.Build()
			if err != nil {
				return err
			}
			log = built
			return nil
		},
		Commands: []*cli.Command{
			repLCommand(&log),
			interpretCommand(&log),
			buildCommand(&log),
			translateCommand(&log),
			runCommand(&log),
		},
	}

	defer func() {
		if r := recover(); r != nil {
			if d, ok := r.(til.Diagnostic); ok {
				fmt.Fprintln(os.Stdout, d.Error())
				os.Exit(1)
			}
			fmt.Fprintf(os.Stderr, "til: internal error: %v\n", r)
			os.Exit(1)
		}
	}()

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "til: %v\n", err)
		os.Exit(1)
	}
}

func runConfigFrom(c *cli.Context, path string) (*til.RunConfig, error) {
	rc := til.NewRunConfig(path)
	rc.Force = c.Bool("force-rebuild")
	rc.Translate = c.Bool("translate")
	rc.Verbose = c.Bool("verbose")
	if cc := c.String("cc"); cc != "" {
		rc.CC = cc
	}
	if t := c.String("target"); t != "" {
		parsed, err := target.ParseTarget(t)
		if err != nil {
			return nil, err
		}
		rc.Target = parsed
	}
	if l := c.String("lang"); l != "" {
		parsed, err := target.ParseLang(l)
		if err != nil {
			return nil, err
		}
		rc.Lang = parsed
	} else {
		rc.Lang = target.DefaultLang(rc.Target)
	}
	if err := target.ValidateLangForTarget(rc.Lang, rc.Target); err != nil {
		return nil, err
	}
	return rc, nil
}

func newContextFor(path string, log *zap.Logger) *til.Context {
	root := filepath.Dir(path)
	resolver := source.NewCachedResolver(source.NewOSResolver(root), 256)
	return til.NewContext(path, resolver, log)
}

func flushDiags(ctx *til.Context) error {
	if len(ctx.Diags) == 0 {
		return nil
	}
	for _, d := range ctx.Diags {
		fmt.Fprintln(os.Stdout, d.Error())
	}
	if ctx.Diags.HasFatal() {
		return fmt.Errorf("%d diagnostic(s)", len(ctx.Diags))
	}
	return nil
}

func interpretCommand(log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "interpret",
		Usage:     "run a .til file with the tree-walking interpreter",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			path := c.Args().First()
			if path == "" {
				return fmt.Errorf("interpret: missing <path>")
			}
			ctx := newContextFor(path, *log)
			body, err := til.RunPipeline(ctx, path)
			if flushErr := flushDiags(ctx); flushErr != nil {
				return flushErr
			}
			if err != nil {
				return err
			}

			interp := til.NewInterpreter(ctx)
			res, err := interp.RunMain()
			if err != nil {
				return err
			}
			_ = res
			_ = body
			return nil
		},
	}
}

func buildOrTranslate(c *cli.Context, log **zap.Logger, forceTranslate bool) error {
	path := c.Args().First()
	if path == "" {
		return fmt.Errorf("missing <path>")
	}
	rc, err := runConfigFrom(c, path)
	if err != nil {
		return err
	}
	if forceTranslate {
		rc.Translate = true
	}

	ctx := newContextFor(path, *log)
	body, err := til.RunPipeline(ctx, path)
	if flushErr := flushDiags(ctx); flushErr != nil {
		return flushErr
	}
	if err != nil {
		return err
	}

	mirrored := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	genDir := filepath.Join("gen", implName, string(rc.Lang))
	if err := os.MkdirAll(genDir, 0755); err != nil {
		return err
	}
	srcPath := filepath.Join(genDir, mirrored+".c")

	gen := til.NewCodegenC(ctx)
	src, err := gen.Generate(body, til.GenCOptions{IncludeRuntime: true})
	if err != nil {
		return err
	}
	if err := os.WriteFile(srcPath, []byte(src), 0644); err != nil {
		return err
	}
	(*log).Info("wrote generated source", zap.String("path", srcPath))

	if rc.Translate {
		return nil
	}

	binDir := filepath.Join("bin", implName)
	if err := os.MkdirAll(binDir, 0755); err != nil {
		return err
	}
	binPath := filepath.Join(binDir, mirrored+target.ExecutableExtension(rc.Target))

	res, err := ccinvoke.Compile(rc.CC, rc.Target, rc.Lang, srcPath, binPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, res.Output)
		return err
	}
	(*log).Info("built binary", zap.String("path", binPath))
	return nil
}

func buildCommand(log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "build",
		Usage:     "compile a .til file to a native binary",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			return buildOrTranslate(c, log, false)
		},
	}
}

func translateCommand(log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "translate",
		Usage:     "emit generated source without invoking the C compiler",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			return buildOrTranslate(c, log, true)
		},
	}
}

func runCommand(log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:      "run",
		Usage:     "build (if needed) and execute a .til file natively",
		ArgsUsage: "<path>",
		Action: func(c *cli.Context) error {
			if err := buildOrTranslate(c, log, false); err != nil {
				return err
			}
			path := c.Args().First()
			mirrored := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
			rc, err := runConfigFrom(c, path)
			if err != nil {
				return err
			}
			binPath := filepath.Join("bin", implName, mirrored+target.ExecutableExtension(rc.Target))
			return execBinary(binPath)
		},
	}
}

// repLCommand runs an interactive read-eval-print loop over
// interpret-and-print, mirroring neo-go's cli/vm REPL loop: a prompt,
// history via readline, one line interpreted and printed per
// iteration, Ctrl-D to exit. Each line is wrapped in an implicit
// `mode cli` / `main` and interpreted from scratch, since this
// module's Context carries no notion of incremental re-entry.
func repLCommand(log **zap.Logger) *cli.Command {
	return &cli.Command{
		Name:  "repl",
		Usage: "interactive read-eval-print loop",
		Action: func(c *cli.Context) error {
			rl, err := readline.New("til> ")
			if err != nil {
				return err
			}
			defer rl.Close()

			for {
				line, err := rl.Readline()
				if err != nil { // io.EOF on Ctrl-D
					break
				}
				line = strings.TrimSpace(line)
				if line == "" {
					continue
				}
				if err := evalReplLine(line, *log); err != nil {
					fmt.Println("ERROR: " + err.Error())
				}
			}
			return nil
		},
	}
}

// evalReplLine wraps line in an implicit main() and runs it through
// the normal pipeline; it writes to a throwaway file since Init reads
// source through a Resolver rather than accepting text directly.
func evalReplLine(line string, log *zap.Logger) error {
	dir, err := os.MkdirTemp("", "til-repl-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(dir)

	path := filepath.Join(dir, "repl.til")
	src := fmt.Sprintf("mode cli\nproc main() {\n    %s\n}\n", line)
	if err := os.WriteFile(path, []byte(src), 0644); err != nil {
		return err
	}

	ctx := newContextFor(path, log)
	if _, err := til.RunPipeline(ctx, path); err != nil {
		flushDiags(ctx)
		return err
	}
	interp := til.NewInterpreter(ctx)
	res, err := interp.RunMain()
	if err != nil {
		return err
	}
	fmt.Println(res.Value)
	return nil
}

func execBinary(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	return spawnAndWait(abs)
}

func spawnAndWait(path string) error {
	cmd := exec.Command(path)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
