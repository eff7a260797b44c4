package til

import (
	"embed"
	"fmt"
	"strings"
)

// c/runtime.c is linked into every emitted translation unit: it
// supplies the Ptr/Str handle types, til_str_lit for string literals,
// and the til_ok/til_throw result convention, laid out like heap.go's
// representation so generated C and the tree-walking interpreter agree
// on it, per spec §9's "self-hosting ABI coupling between interpreter
// and codegen". It defines none of builtins.go's catalogue functions.
//
//go:embed c/runtime.c
var runtimeC embed.FS

// CodegenC translates a scavenged, desugared AST into a single C
// translation unit, per spec §4.14. It walks the same top-level
// Expr.Params shape every other pass dispatches over (mode.go,
// scavenger.go, ...): struct/enum defs become C typedefs, surviving
// func/proc defs become C functions, ext_* defs become forward
// declarations resolved by the linked runtime.
type CodegenC struct {
	ctx *Context
	out *outputWriter

	// structOrder/enumOrder preserve declaration order, since codegen
	// output must be deterministic (spec §5).
	structOrder []string
	structs     map[string]*StructDef
	enumOrder   []string
	enums       map[string]*EnumDef

	// currentFnThrows records whether the function body currently being
	// emitted declares `throws`, so NReturn knows to wrap its value in
	// til_ok(...) to match the til_result_t return type cSignature gave it.
	currentFnThrows bool

	// tryCounter names the per-try-block til_result_t temp emitTryCatch
	// introduces, so nested/sibling try/catch blocks in the same
	// function don't collide.
	tryCounter int
}

// GenCOptions controls the shape of the emitted translation unit.
type GenCOptions struct {
	// IncludeRuntime embeds c/runtime.c verbatim above the generated
	// code, producing a single self-contained file. When false, the
	// caller links runtime.c separately (a `build` with an existing,
	// up-to-date runtime object per the rebuild-dependency contract).
	IncludeRuntime bool
}

func NewCodegenC(ctx *Context) *CodegenC {
	return &CodegenC{
		ctx:     ctx,
		out:     newOutputWriter("    "),
		structs: make(map[string]*StructDef),
		enums:   make(map[string]*EnumDef),
	}
}

// Generate emits the full translation unit for body (the main file's
// top-level Expr after scavenging), returning C source text.
func (g *CodegenC) Generate(body *Expr, opts GenCOptions) (string, error) {
	g.collectTypes(body)

	if opts.IncludeRuntime {
		data, err := runtimeC.ReadFile("c/runtime.c")
		if err != nil {
			return "", fmt.Errorf("codegen_c: embedded runtime missing: %w", err)
		}
		g.out.writeLine(string(data))
	} else {
		g.out.writeLine(`#include "til_runtime.h"`)
	}
	g.out.writeLine("")

	for _, name := range g.structOrder {
		g.emitStructTypedef(name, g.structs[name])
	}
	for _, name := range g.enumOrder {
		g.emitEnumTypedef(name, g.enums[name])
	}

	var funcs []*Expr
	for _, top := range body.Params {
		if fn := topLevelFuncDef(top); fn != nil {
			funcs = append(funcs, fn)
		}
	}
	for _, fn := range funcs {
		g.emitForwardDecl(fn)
	}
	g.out.writeLine("")
	for _, fn := range funcs {
		if fn.Func.Kind.IsExternal() {
			continue
		}
		if err := g.emitFuncDef(fn); err != nil {
			return "", err
		}
	}

	return g.out.buffer.String(), nil
}

// topLevelFuncDef unwraps a top-level `Name := func(...)`/`proc(...)`
// declaration to its NFuncDef node, setting Name from the enclosing
// Declaration since the FuncDef node itself carries no name of its own.
func topLevelFuncDef(s *Expr) *Expr {
	if s.Type != NDeclaration || s.Decl == nil || len(s.Params) != 1 {
		return nil
	}
	fn := s.Params[0]
	if fn.Type != NFuncDef {
		return nil
	}
	fn.Name = s.Decl.Name
	return fn
}

func (g *CodegenC) collectTypes(body *Expr) {
	for _, top := range body.Params {
		if top.Type != NDeclaration || top.Decl == nil || len(top.Params) != 1 {
			continue
		}
		name := top.Decl.Name
		switch top.Params[0].Type {
		case NStructDef:
			if _, seen := g.structs[name]; !seen {
				g.structOrder = append(g.structOrder, name)
			}
			g.structs[name] = top.Params[0].Struct
		case NEnumDef:
			if _, seen := g.enums[name]; !seen {
				g.enumOrder = append(g.enumOrder, name)
			}
			g.enums[name] = top.Params[0].Enum
		}
	}
}

// cType renders vt as a C type name. Primitives map to fixed-width C
// types; custom struct/enum names map to the emitted typedef; Str
// maps to the runtime's til_str_t handle.
func cType(vt ValueType) string {
	switch {
	case vt.Kind == TCustom && vt.CustomName == TypeI64:
		return "int64_t"
	case vt.Kind == TCustom && vt.CustomName == TypeU8:
		return "uint8_t"
	case vt.Kind == TCustom && vt.CustomName == TypeBool:
		return "bool"
	case vt.Kind == TCustom && vt.CustomName == TypeStr:
		return "til_str_t"
	case vt.Kind == TCustom && vt.CustomName == TypePtr:
		return "til_ptr_t"
	case vt.Kind == TCustom:
		return "struct " + vt.CustomName
	default:
		return "void*"
	}
}

func (g *CodegenC) emitStructTypedef(name string, sd *StructDef) {
	g.out.writeLine(fmt.Sprintf("typedef struct %s {", name))
	g.out.indent()
	for _, m := range sd.MutableMembers() {
		g.out.writeLine(fmt.Sprintf("%s %s;", cType(m.ValueType), m.Name))
	}
	g.out.dedent()
	g.out.writeLine(fmt.Sprintf("} %s;", name))
	g.out.writeLine("")
}

// emitEnumTypedef renders a tag + fixed-size payload buffer, mirroring
// heap.go's in-memory layout (SetEnum/GetEnumTag/GetEnumPayload):
// every variant shares one struct wide enough for the largest payload,
// per spec §4.12's "enum max-size allocation" property.
func (g *CodegenC) emitEnumTypedef(name string, ed *EnumDef) {
	maxSize := 0
	for _, v := range ed.Variants {
		if v.PayloadType == nil {
			continue
		}
		if s := g.ctx.Scopes.TypeSize(*v.PayloadType); s > maxSize {
			maxSize = s
		}
	}
	g.out.writeLine(fmt.Sprintf("typedef struct %s {", name))
	g.out.indent()
	g.out.writeLine("int64_t tag;")
	g.out.writeLine(fmt.Sprintf("uint8_t payload[%d];", maxInt(maxSize, 1)))
	g.out.dedent()
	g.out.writeLine(fmt.Sprintf("} %s;", name))
	for i, v := range ed.Variants {
		g.out.writeLine(fmt.Sprintf("#define %s_%s %d", name, v.Name, i))
	}
	g.out.writeLine(fmt.Sprintf("static %s til_enum_new_%s(int64_t tag, uint8_t *payload, size_t payload_len) {", name, name))
	g.out.indent()
	g.out.writeLine(fmt.Sprintf("%s v;", name))
	g.out.writeLine("v.tag = tag;")
	g.out.writeLine("memset(v.payload, 0, sizeof(v.payload));")
	g.out.writeLine("if (payload_len) memcpy(v.payload, payload, payload_len);")
	g.out.writeLine("return v;")
	g.out.dedent()
	g.out.writeLine("}")
	g.out.writeLine("")
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

func (g *CodegenC) emitForwardDecl(fn *Expr) {
	fd := fn.Func
	g.out.writeLine(g.cSignature(fn.Name, fd) + ";")
}

// cSignature renders a function's C prototype. Functions that declare
// `throws` return the runtime's {status,value} struct per spec §4.13's
// throw-lowering convention; everything else returns its first
// declared return type (or void).
func (g *CodegenC) cSignature(name string, fd *FuncDef) string {
	ret := "void"
	if len(fd.Throws) > 0 {
		ret = "til_result_t"
	} else if len(fd.Returns) > 0 {
		ret = cType(fd.Returns[0])
	}
	var params []string
	for _, a := range fd.Args {
		params = append(params, fmt.Sprintf("%s %s", cType(a.ValueType), a.Name))
	}
	if len(params) == 0 {
		params = append(params, "void")
	}
	return fmt.Sprintf("%s %s(%s)", ret, name, strings.Join(params, ", "))
}

func (g *CodegenC) emitFuncDef(fn *Expr) error {
	fd := fn.Func
	g.out.writeLine(g.cSignature(fn.Name, fd) + " {")
	g.out.indent()
	g.currentFnThrows = len(fd.Throws) > 0
	for _, stmt := range fd.Body {
		if err := g.emitStmt(stmt); err != nil {
			return err
		}
	}
	g.currentFnThrows = false
	g.out.dedent()
	g.out.writeLine("}")
	g.out.writeLine("")
	return nil
}

func (g *CodegenC) emitStmt(e *Expr) error {
	switch e.Type {
	case NBody:
		for _, s := range e.Params {
			if err := g.emitStmt(s); err != nil {
				return err
			}
		}
		return nil
	case NDeclaration:
		rhs, err := g.emitExpr(e.Params[0])
		if err != nil {
			return err
		}
		g.out.writeLine(fmt.Sprintf("%s %s = %s;", cType(e.Decl.ValueType), e.Decl.Name, rhs))
		return nil
	case NAssignment:
		lhs, err := g.emitExpr(e.Params[0])
		if err != nil {
			return err
		}
		rhs, err := g.emitExpr(e.Params[1])
		if err != nil {
			return err
		}
		g.out.writeLine(fmt.Sprintf("%s = %s;", lhs, rhs))
		return nil
	case NIf:
		return g.emitIf(e)
	case NWhile:
		cond, err := g.emitExpr(e.Params[0])
		if err != nil {
			return err
		}
		g.out.writeLine(fmt.Sprintf("while (%s) {", cond))
		g.out.indent()
		if err := g.emitStmt(e.Params[1]); err != nil {
			return err
		}
		g.out.dedent()
		g.out.writeLine("}")
		return nil
	case NReturn:
		if len(e.Params) == 0 {
			g.out.writeLine("return;")
			return nil
		}
		v, err := g.emitExpr(e.Params[0])
		if err != nil {
			return err
		}
		if g.currentFnThrows {
			g.out.writeLine(fmt.Sprintf("return til_ok(%s);", v))
			return nil
		}
		g.out.writeLine(fmt.Sprintf("return %s;", v))
		return nil
	case NThrow:
		v, err := g.emitExpr(e.Params[0])
		if err != nil {
			return err
		}
		g.out.writeLine(fmt.Sprintf("return til_throw(%s);", v))
		return nil
	case NCatch:
		return g.emitTryCatch(e)
	case NBreak:
		g.out.writeLine("break;")
		return nil
	case NContinue:
		g.out.writeLine("continue;")
		return nil
	case NDefer:
		// C has no native defer; the desugarer (spec §4.7) already
		// lowers `defer` into an explicit end-of-scope call wherever
		// possible, so codegen only sees the fallback of emitting it
		// inline at its original position as a best-effort approximation.
		return g.emitStmt(e.Params[0])
	case NCall:
		v, err := g.emitExpr(e)
		if err != nil {
			return err
		}
		g.out.writeLine(v + ";")
		return nil
	default:
		_, err := g.emitExpr(e)
		return err
	}
}

func (g *CodegenC) emitIf(e *Expr) error {
	cond, err := g.emitExpr(e.Params[0])
	if err != nil {
		return err
	}
	g.out.writeLine(fmt.Sprintf("if (%s) {", cond))
	g.out.indent()
	if err := g.emitStmt(e.Params[1]); err != nil {
		return err
	}
	g.out.dedent()
	if len(e.Params) > 2 {
		g.out.writeLine("} else {")
		g.out.indent()
		if err := g.emitStmt(e.Params[2]); err != nil {
			return err
		}
		g.out.dedent()
	}
	g.out.writeLine("}")
	return nil
}

// emitTryCatch lowers a try/catch block. Every throwing function this
// codegen emits returns a til_result_t (see cSignature), and a call
// site marked with `?` (Flags.DoesThrow) is the signal that its result
// must be checked rather than discarded; so the try body is walked via
// emitTryStmts, which nests past the first such call into an if/else
// that checks its status and falls through to the catch body on
// failure, mirroring evalCallStmt's "any throw signal aborts the try
// body and transfers to the nearest enclosing catch" semantics (spec
// §4.13). Statements before and after the guarded call that can't
// throw are emitted unconditionally in sequence.
func (g *CodegenC) emitTryCatch(e *Expr) error {
	return g.emitTryStmts(e.Child(0).Params, e, e.Child(1))
}

func (g *CodegenC) emitTryStmts(stmts []*Expr, catchSite *Expr, catchBody *Expr) error {
	for i, s := range stmts {
		if s.Type != NCall || !s.Flags.DoesThrow {
			if err := g.emitStmt(s); err != nil {
				return err
			}
			continue
		}

		v, err := g.emitExpr(s)
		if err != nil {
			return err
		}
		tmp := fmt.Sprintf("__til_try%d", g.tryCounter)
		g.tryCounter++
		g.out.writeLine(fmt.Sprintf("til_result_t %s = %s;", tmp, v))
		g.out.writeLine(fmt.Sprintf("if (%s.status) {", tmp))
		g.out.indent()
		if catchSite.Decl != nil {
			g.out.writeLine(fmt.Sprintf("%s %s = %s.value;", cType(catchSite.Decl.ValueType), catchSite.Name, tmp))
		}
		for _, cs := range catchBody.Params {
			if err := g.emitStmt(cs); err != nil {
				return err
			}
		}
		g.out.dedent()
		g.out.writeLine("} else {")
		g.out.indent()
		if err := g.emitTryStmts(stmts[i+1:], catchSite, catchBody); err != nil {
			return err
		}
		g.out.dedent()
		g.out.writeLine("}")
		return nil
	}
	return nil
}

// builtinCOps are the builtin functions with a direct C operator
// rendering; every other bare-name call, builtins included, is emitted
// as a plain C call to a function of the same name, and c/runtime.c
// does not define those functions.
var builtinCOps = map[string]string{
	"add": "+", "sub": "-", "mul": "*", "div": "/", "mod": "%",
	"xor": "^", "and": "&", "or": "|", "lt": "<", "gt": ">",
}

func (g *CodegenC) emitExpr(e *Expr) (string, error) {
	switch e.Type {
	case NLiteral:
		switch e.LitKind {
		case LitString:
			return fmt.Sprintf("til_str_lit(%q)", e.LitStr), nil
		default:
			return e.LitStr, nil
		}
	case NIdentifier:
		if len(e.Params) == 0 {
			return e.Name, nil
		}
		return strings.Join(e.DottedPath(), "."), nil
	case NCall:
		return g.emitCall(e)
	default:
		return "", fmt.Errorf("codegen_c: unsupported expression node %s at %s", e.Type, e.Loc)
	}
}

func (g *CodegenC) emitCall(call *Expr) (string, error) {
	if len(call.Params) == 0 {
		return "", fmt.Errorf("codegen_c: empty call node")
	}
	callee := call.Params[0]
	args := call.Params[1:]

	if callee.Type == NIdentifier && len(callee.Params) == 0 {
		name := callee.Name
		if op, ok := builtinCOps[name]; ok && len(args) == 2 {
			lhs, err := g.emitExpr(args[0])
			if err != nil {
				return "", err
			}
			rhs, err := g.emitExpr(args[1])
			if err != nil {
				return "", err
			}
			return fmt.Sprintf("(%s %s %s)", lhs, op, rhs), nil
		}

		if sd, ok := g.structs[name]; ok {
			return g.emitStructLiteral(name, sd, args)
		}

		var rendered []string
		for _, a := range args {
			v, err := g.emitExpr(a)
			if err != nil {
				return "", err
			}
			rendered = append(rendered, v)
		}
		return fmt.Sprintf("%s(%s)", name, strings.Join(rendered, ", ")), nil
	}

	// Dotted two-segment callee: either Enum.Variant(...) construction
	// or a UFCS-rewritten Type.method(...) call; both become an
	// ordinary C call to the mangled `Type_method` name, since C has no
	// namespaces.
	if path := callee.DottedPath(); len(path) == 2 {
		typeName, member := path[0], path[1]
		if ed, ok := g.enums[typeName]; ok {
			if idx := ed.IndexOf(member); idx >= 0 {
				// A variant carries at most one payload value (spec §3);
				// the runtime constructor takes it as a raw byte pointer,
				// so a scalar payload argument is passed through a
				// compound-literal buffer instead of by value.
				if len(args) == 0 {
					return fmt.Sprintf("til_enum_new_%s(%s_%s, NULL, 0)", typeName, typeName, member), nil
				}
				v, err := g.emitExpr(args[0])
				if err != nil {
					return "", err
				}
				return fmt.Sprintf("til_enum_new_%s(%s_%s, (uint8_t*)&(typeof(%s)){%s}, sizeof(%s))",
					typeName, typeName, member, v, v, v), nil
			}
		}
		var rendered []string
		for _, a := range args {
			v, err := g.emitExpr(a)
			if err != nil {
				return "", err
			}
			rendered = append(rendered, v)
		}
		return fmt.Sprintf("%s_%s(%s)", typeName, member, strings.Join(rendered, ", ")), nil
	}

	return "", fmt.Errorf("codegen_c: unresolved call callee at %s", call.Loc)
}

func (g *CodegenC) emitStructLiteral(name string, sd *StructDef, args []*Expr) (string, error) {
	members := sd.MutableMembers()
	byPos := make(map[int]string)
	byName := make(map[string]string)
	for i, a := range args {
		if a.Type == NNamedArg {
			v, err := g.emitExpr(a.Child(0))
			if err != nil {
				return "", err
			}
			byName[a.Name] = v
			continue
		}
		v, err := g.emitExpr(a)
		if err != nil {
			return "", err
		}
		byPos[i] = v
	}
	var fields []string
	for i, m := range members {
		if v, ok := byName[m.Name]; ok {
			fields = append(fields, fmt.Sprintf(".%s = %s", m.Name, v))
		} else if v, ok := byPos[i]; ok {
			fields = append(fields, fmt.Sprintf(".%s = %s", m.Name, v))
		} else if sd.DefaultValues[m.Name] != nil {
			v, err := g.emitExpr(sd.DefaultValues[m.Name])
			if err != nil {
				return "", err
			}
			fields = append(fields, fmt.Sprintf(".%s = %s", m.Name, v))
		}
	}
	return fmt.Sprintf("(%s){%s}", name, strings.Join(fields, ", ")), nil
}
