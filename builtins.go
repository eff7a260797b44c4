package til

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/jtimon/til/internal/procmgr"
	"github.com/jtimon/til/internal/shellguard"
)

// builtinFunc is the shape every external (ext_func/ext_proc) built-in
// implements: it receives already-evaluated, already-bound-order
// arguments and returns a single EvalResult. None of the builtins in
// this catalogue throw; spec §7 names "integer division/modulo by zero
// return 0" as the one built-in safety default, and every other edge
// case here follows the same no-panic, best-effort convention.
type builtinFunc func(in *Interpreter, args []EvalResult) EvalResult

// builtins is the full catalogue of spec §4.13's external functions,
// keyed by the name ext_func/ext_proc declarations in the bundled
// library surface bind to.
var builtins = map[string]builtinFunc{
	"add": arith(func(a, b int64) int64 { return a + b }),
	"sub": arith(func(a, b int64) int64 { return a - b }),
	"mul": arith(func(a, b int64) int64 { return a * b }),
	"div": arith(func(a, b int64) int64 {
		if b == 0 {
			return 0
		}
		return a / b
	}),
	"mod": arith(func(a, b int64) int64 {
		if b == 0 {
			return 0
		}
		return a % b
	}),
	"xor": arith(func(a, b int64) int64 { return a ^ b }),
	"and": arith(func(a, b int64) int64 { return a & b }),
	"or":  arith(func(a, b int64) int64 { return a | b }),

	"lt": cmp(func(a, b int64) bool { return a < b }),
	"gt": cmp(func(a, b int64) bool { return a > b }),

	"str_to_i64": func(in *Interpreter, args []EvalResult) EvalResult {
		v, err := strconv.ParseInt(args[0].Value, 10, 64)
		if err != nil {
			return intResult(0)
		}
		return intResult(v)
	},
	"i64_to_str": func(in *Interpreter, args []EvalResult) EvalResult {
		return strResult(strconv.FormatInt(asInt(args[0]), 10))
	},
	"u8_to_i64": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(asInt(args[0]) & 0xff)
	},
	"i64_to_u8": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(asInt(args[0]) & 0xff)
	},

	// malloc/free/memset/memcpy/memcmp operate directly on the heap,
	// per spec §4.12/§4.13; offsets and lengths travel as decimal
	// EvalResult strings like every other value in this design.
	"malloc": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(int64(in.ctx.Heap.Alloc(int(asInt(args[0])))))
	},
	"free": func(in *Interpreter, args []EvalResult) EvalResult {
		in.ctx.Heap.Free(int(asInt(args[0])))
		return EvalResult{}
	},
	"memset": func(in *Interpreter, args []EvalResult) EvalResult {
		off, val, n := int(asInt(args[0])), byte(asInt(args[1])), int(asInt(args[2]))
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = val
		}
		_ = in.ctx.Heap.Set(off, buf)
		return EvalResult{}
	},
	"memcpy": func(in *Interpreter, args []EvalResult) EvalResult {
		dst, src, n := int(asInt(args[0])), int(asInt(args[1])), int(asInt(args[2]))
		_ = in.ctx.Heap.Set(dst, in.ctx.Heap.Get(src, n))
		return EvalResult{}
	},
	"memcmp": func(in *Interpreter, args []EvalResult) EvalResult {
		a, b, n := int(asInt(args[0])), int(asInt(args[1])), int(asInt(args[2]))
		ba, bb := in.ctx.Heap.Get(a, n), in.ctx.Heap.Get(b, n)
		for i := 0; i < n; i++ {
			if ba[i] != bb[i] {
				return intResult(int64(ba[i]) - int64(bb[i]))
			}
		}
		return intResult(0)
	},
	"to_ptr": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(int64(allocPtr(in, int(asInt(args[0])), false)))
	},
	"create_alias": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(int64(allocPtr(in, int(asInt(args[0])), true)))
	},
	"size_of": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(int64(in.ctx.Scopes.TypeSize(NewCustomType(args[0].Value))))
	},
	"type_as_str": func(in *Interpreter, args []EvalResult) EvalResult {
		return strResult(args[0].Value)
	},

	"single_print": func(in *Interpreter, args []EvalResult) EvalResult {
		in.stdout.WriteString(args[0].Value)
		return EvalResult{}
	},
	"print_flush": func(in *Interpreter, args []EvalResult) EvalResult {
		in.stdout.Flush()
		return EvalResult{}
	},
	"input_read_line": func(in *Interpreter, args []EvalResult) EvalResult {
		in.stdout.Flush()
		line, err := in.stdin.ReadString('\n')
		if err != nil && line == "" {
			return strResult("")
		}
		return strResult(strings.TrimRight(line, "\r\n"))
	},
	"readfile": func(in *Interpreter, args []EvalResult) EvalResult {
		data, err := os.ReadFile(args[0].Value)
		if err != nil {
			return strResult("")
		}
		return strResult(string(data))
	},
	"writefile": func(in *Interpreter, args []EvalResult) EvalResult {
		err := os.WriteFile(args[0].Value, []byte(args[1].Value), 0644)
		return boolResult(err == nil)
	},
	"list_dir_raw": func(in *Interpreter, args []EvalResult) EvalResult {
		entries, err := os.ReadDir(args[0].Value)
		if err != nil {
			return strResult("")
		}
		names := make([]string, len(entries))
		for i, e := range entries {
			names[i] = e.Name()
		}
		return strResult(strings.Join(names, "\n"))
	},
	"fs_parent_dir": func(in *Interpreter, args []EvalResult) EvalResult {
		return strResult(filepath.Dir(args[0].Value))
	},
	"fs_mkdir_p": func(in *Interpreter, args []EvalResult) EvalResult {
		return boolResult(os.MkdirAll(args[0].Value, 0755) == nil)
	},
	"file_mtime": func(in *Interpreter, args []EvalResult) EvalResult {
		st, err := os.Stat(args[0].Value)
		if err != nil {
			return intResult(0)
		}
		return intResult(st.ModTime().Unix())
	},

	"run_cmd": func(in *Interpreter, args []EvalResult) EvalResult {
		modeName := "script"
		if in.ctx.Mode != nil {
			modeName = in.ctx.Mode.Name
		}
		argv, err := shellguard.Check(modeName, args[0].Value)
		if err != nil {
			return strResult(err.Error())
		}
		out, err := runCmdSync(argv)
		if err != nil {
			return strResult(fmt.Sprintf("error: %v", err))
		}
		return strResult(out)
	},
	"spawn_cmd": func(in *Interpreter, args []EvalResult) EvalResult {
		modeName := "script"
		if in.ctx.Mode != nil {
			modeName = in.ctx.Mode.Name
		}
		argv, err := shellguard.Check(modeName, args[0].Value)
		if err != nil {
			return intResult(-1)
		}
		pid, err := procmgr.Spawn(argv)
		if err != nil {
			return intResult(-1)
		}
		return intResult(int64(pid))
	},
	"check_cmd_status": func(in *Interpreter, args []EvalResult) EvalResult {
		st, ok := procmgr.Check(int(asInt(args[0])))
		if !ok {
			return strResult("unknown")
		}
		if st.Running {
			return strResult("running")
		}
		return strResult(fmt.Sprintf("exited:%d", st.ExitCode))
	},
	"sleep": func(in *Interpreter, args []EvalResult) EvalResult {
		time.Sleep(time.Duration(asInt(args[0])) * time.Millisecond)
		return EvalResult{}
	},
	"get_thread_count": func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(int64(runtime.GOMAXPROCS(0)))
	},

	"has_const": func(in *Interpreter, args []EvalResult) EvalResult {
		typeName, name := args[0].Value, args[1].Value
		if ed, ok := in.ctx.Scopes.LookupEnum(typeName); ok {
			_, has := ed.Variant(name)
			return boolResult(has)
		}
		if sd, ok := in.ctx.Scopes.LookupStruct(typeName); ok {
			_, has := sd.DefaultValues[name]
			return boolResult(has)
		}
		return boolResult(false)
	},
	"has_field": func(in *Interpreter, args []EvalResult) EvalResult {
		typeName, name := args[0].Value, args[1].Value
		sd, ok := in.ctx.Scopes.LookupStruct(typeName)
		if !ok {
			return boolResult(false)
		}
		for _, m := range sd.Members {
			if m.Name == name {
				return boolResult(true)
			}
		}
		return boolResult(false)
	},

	"exit": func(in *Interpreter, args []EvalResult) EvalResult {
		in.stdout.Flush()
		os.Exit(int(asInt(args[0])))
		return EvalResult{}
	},
}

func arith(f func(a, b int64) int64) builtinFunc {
	return func(in *Interpreter, args []EvalResult) EvalResult {
		return intResult(f(asInt(args[0]), asInt(args[1])))
	}
}

func cmp(f func(a, b int64) bool) builtinFunc {
	return func(in *Interpreter, args []EvalResult) EvalResult {
		return boolResult(f(asInt(args[0]), asInt(args[1])))
	}
}

// allocPtr builds the {data:I64, is_borrowed:I64} Ptr layout of spec
// §4.6 around a raw heap offset.
func allocPtr(in *Interpreter, target int, borrowed bool) int {
	off := in.ctx.Heap.Alloc(16)
	in.ctx.Heap.SetI64(off, int64(target))
	if borrowed {
		in.ctx.Heap.SetI64(off+8, 1)
	} else {
		in.ctx.Heap.SetI64(off+8, 0)
	}
	return off
}

func runCmdSync(argv []string) (string, error) {
	cmd := exec.Command(argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()
	return string(out), err
}
