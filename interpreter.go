package til

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
)

// EvalResult is the tree walker's uniform evaluation outcome, per spec
// §4.13: "value: String, is_throw: bool, throw_type?". value is the
// canonical printable form: integers as decimal strings, booleans as
// "true"/"false", strings verbatim, and structs/enums as the decimal
// string of their heap offset.
type EvalResult struct {
	Value     string
	IsThrow   bool
	ThrowType ValueType
}

func strResult(s string) EvalResult { return EvalResult{Value: s} }
func intResult(v int64) EvalResult  { return EvalResult{Value: strconv.FormatInt(v, 10)} }
func boolResult(b bool) EvalResult {
	if b {
		return EvalResult{Value: "true"}
	}
	return EvalResult{Value: "false"}
}

func asInt(r EvalResult) int64 {
	v, _ := strconv.ParseInt(r.Value, 10, 64)
	return v
}

func asBool(r EvalResult) bool { return r.Value == "true" }

// ctrlSignal is how a statement's execution communicates non-local
// control flow (return/throw/break/continue) to its caller up the
// body/if/while nesting, since evalStmt returns the same StmtResult
// shape for both "this was a value" and "this was a jump".
type ctrlSignal int

const (
	ctrlNone ctrlSignal = iota
	ctrlReturn
	ctrlThrow
	ctrlBreak
	ctrlContinue
)

// StmtResult unifies expression evaluation and statement execution: a
// plain expression produces {Signal: ctrlNone, Result: <value>}; a
// `return`/`throw`/`break`/`continue` produces the matching Signal,
// which every containing NBody/NIf/NWhile must check and propagate
// rather than continuing to the next statement.
type StmtResult struct {
	Signal ctrlSignal
	Result EvalResult
}

// Interpreter is spec §4.13's tree walker, holding the process-wide
// singletons (heap, scope stack) via ctx plus I/O handles threaded
// separately so tests can substitute buffers.
type Interpreter struct {
	ctx    *Context
	stdin  *bufio.Reader
	stdout *bufio.Writer
}

func NewInterpreter(ctx *Context) *Interpreter {
	return &Interpreter{
		ctx:    ctx,
		stdin:  bufio.NewReader(os.Stdin),
		stdout: bufio.NewWriter(os.Stdout),
	}
}

// RunMain looks up and calls the top-level `main` function with no
// arguments, per spec §6 (`cli` mode's required entry point).
func (in *Interpreter) RunMain() (EvalResult, error) {
	fd, ok := in.ctx.Scopes.LookupFunc("main")
	if !ok {
		return EvalResult{}, fmt.Errorf("no top-level `main` function")
	}
	defer in.stdout.Flush()
	res := in.callUserFunc("main", fd, nil)
	if res.IsThrow {
		return res, fmt.Errorf("main threw %s uncaught", res.ThrowType)
	}
	return res, nil
}

// execBody runs a sequence of statements in a fresh ScopeBlock frame,
// returning the first non-ctrlNone signal encountered (or the last
// statement's result on fall-through).
func (in *Interpreter) execBody(stmts []*Expr) StmtResult {
	in.ctx.Scopes.Push(ScopeBlock)
	defer in.ctx.Scopes.Pop()
	return in.execStmts(stmts)
}

func (in *Interpreter) execStmts(stmts []*Expr) StmtResult {
	var last StmtResult
	for _, s := range stmts {
		last = in.eval(s)
		if last.Signal != ctrlNone {
			return last
		}
	}
	return last
}

// eval is the single dispatch point for both expressions and
// statements, per spec §4.13's eval_expr — unified here with control
// flow since this language's statements and expressions share one AST
// node type.
func (in *Interpreter) eval(e *Expr) StmtResult {
	if e == nil {
		return StmtResult{}
	}
	switch e.Type {
	case NLiteral:
		return StmtResult{Result: in.evalLiteral(e)}
	case NIdentifier:
		return StmtResult{Result: in.evalIdentifier(e)}
	case NCall:
		return in.evalCallStmt(e)
	case NDeclaration:
		return in.evalDeclaration(e)
	case NAssignment:
		return in.evalAssignment(e)
	case NIf:
		return in.evalIf(e)
	case NWhile:
		return in.evalWhile(e)
	case NBody:
		return in.execBody(e.Params)
	case NReturn:
		if len(e.Params) == 0 {
			return StmtResult{Signal: ctrlReturn}
		}
		v := in.eval(e.Params[0])
		if v.Signal != ctrlNone {
			return v
		}
		return StmtResult{Signal: ctrlReturn, Result: v.Result}
	case NThrow:
		v := in.eval(e.Child(0))
		if v.Signal != ctrlNone {
			return v
		}
		return StmtResult{Signal: ctrlThrow, Result: EvalResult{
			Value: v.Result.Value, IsThrow: true, ThrowType: inferType(in.ctx, e.Child(0)),
		}}
	case NCatch:
		guarded := in.eval(e.Child(0))
		if guarded.Signal != ctrlThrow {
			return guarded
		}
		if e.Decl == nil || !guarded.Result.ThrowType.Equal(e.Decl.ValueType) {
			return guarded
		}
		in.ctx.Scopes.Push(ScopeCatch)
		defer in.ctx.Scopes.Pop()
		in.bindDeclaration(&Declaration{Name: e.Name, ValueType: e.Decl.ValueType}, EvalResult{Value: guarded.Result.Value})
		return in.eval(e.Child(1))
	case NBreak:
		return StmtResult{Signal: ctrlBreak}
	case NContinue:
		return StmtResult{Signal: ctrlContinue}
	default:
		bug(e.Loc, PhaseInterp, "eval: unhandled node type %s (should have been desugared away)", e.Type)
		return StmtResult{}
	}
}

func (in *Interpreter) evalLiteral(e *Expr) EvalResult {
	switch e.LitKind {
	case LitInt, LitFloat, LitString:
		return EvalResult{Value: e.LitStr}
	case LitBool:
		return EvalResult{Value: e.LitStr}
	}
	return EvalResult{}
}

func (in *Interpreter) evalIdentifier(e *Expr) EvalResult {
	if len(e.Params) == 0 {
		if off, ok := in.ctx.Scopes.LookupVarOffset(e.Name); ok {
			sym, _ := in.ctx.Scopes.LookupSymbol(e.Name)
			return in.readValueAt(off, sym.ValueType)
		}
		// Not a bound variable: a bare function/struct/enum name used
		// as a value (e.g. passed where a callable is expected). This
		// language doesn't give first-class functions heap storage, so
		// the name itself is the canonical representation.
		return strResult(e.Name)
	}
	off, vt, err := in.ctx.Scopes.FieldOffset(e.DottedPath())
	if err != nil {
		bug(e.Loc, PhaseInterp, "%v", err)
		return EvalResult{}
	}
	return in.readValueAt(off, vt)
}

// readValueAt decodes the byte representation at offset per vt, per
// spec §4.6/§4.12's layout rules.
func (in *Interpreter) readValueAt(offset int, vt ValueType) EvalResult {
	switch {
	case vt.Kind == TCustom && vt.CustomName == TypeI64:
		return intResult(in.ctx.Heap.GetI64(offset))
	case vt.Kind == TCustom && vt.CustomName == TypeU8:
		return intResult(int64(in.ctx.Heap.GetU8(offset)))
	case vt.Kind == TCustom && vt.CustomName == TypeBool:
		return boolResult(in.ctx.Heap.GetU8(offset) != 0)
	case vt.Kind == TCustom && vt.CustomName == TypeStr:
		strOff := in.ctx.Heap.GetI64(offset)
		return strResult(in.ctx.Heap.ReadCString(int(strOff)))
	case vt.Kind == TCustom:
		if _, ok := in.ctx.Scopes.LookupEnum(vt.CustomName); ok {
			return intResult(int64(offset)) // offset of the enum's tag+payload block
		}
		return intResult(int64(offset)) // struct: offset is the canonical value
	default:
		return intResult(int64(offset))
	}
}

// writeValueAt encodes result into the bytes at offset per vt.
func (in *Interpreter) writeValueAt(offset int, vt ValueType, result EvalResult) {
	switch {
	case vt.Kind == TCustom && vt.CustomName == TypeI64:
		in.ctx.Heap.SetI64(offset, asInt(result))
	case vt.Kind == TCustom && vt.CustomName == TypeU8:
		in.ctx.Heap.SetU8(offset, uint8(asInt(result)&0xff))
	case vt.Kind == TCustom && vt.CustomName == TypeBool:
		if asBool(result) {
			in.ctx.Heap.SetU8(offset, 1)
		} else {
			in.ctx.Heap.SetU8(offset, 0)
		}
	case vt.Kind == TCustom && vt.CustomName == TypeStr:
		strOff := in.ctx.Heap.AllocString(result.Value)
		buf := make([]byte, 32)
		putI64(buf[0:8], int64(strOff))
		putI64(buf[16:24], int64(len(result.Value)))
		putI64(buf[24:32], int64(len(result.Value)))
		_ = in.ctx.Heap.Set(offset, buf)
	case vt.Kind == TCustom:
		if ed, ok := in.ctx.Scopes.LookupEnum(vt.CustomName); ok {
			srcOff := int(asInt(result))
			maxSize := maxVariantPayloadSize(in.ctx.Scopes, ed)
			tag := in.ctx.Heap.GetEnumTag(srcOff)
			payload := in.ctx.Heap.GetEnumPayload(srcOff, maxSize)
			in.ctx.Heap.SetEnum(offset, tag, payload, maxSize)
			return
		}
		// struct: copy the source allocation's bytes in place so the
		// target's own offset (and any outstanding aliases to it)
		// keeps working, per spec §4.12's in-place-reassignment rule.
		size := in.ctx.Scopes.TypeSize(vt)
		srcOff := int(asInt(result))
		_ = in.ctx.Heap.Set(offset, in.ctx.Heap.Get(srcOff, size))
	default:
		in.ctx.Heap.SetI64(offset, asInt(result))
	}
}

func putI64(buf []byte, v int64) {
	for i := 0; i < 8; i++ {
		buf[i] = byte(v >> (8 * i))
	}
}

// bindDeclaration allocates storage for a new binding and records it
// in the innermost scope frame.
func (in *Interpreter) bindDeclaration(decl *Declaration, value EvalResult) {
	size := in.ctx.Scopes.TypeSize(decl.ValueType)
	offset := in.ctx.Heap.Alloc(size)
	in.writeValueAt(offset, decl.ValueType, value)
	in.ctx.Scopes.InsertVar(decl.Name, offset)
	in.ctx.Scopes.DeclareSymbol(decl.Name, SymbolInfo{ValueType: decl.ValueType, Mode: decl.Mode})
}

func (in *Interpreter) evalDeclaration(e *Expr) StmtResult {
	if e.Decl == nil {
		return StmtResult{}
	}
	if len(e.Params) == 1 {
		switch e.Params[0].Type {
		case NFuncDef:
			in.ctx.Scopes.DeclareFunc(e.Decl.Name, e.Params[0].Func)
			return StmtResult{}
		case NStructDef:
			in.ctx.Scopes.DeclareStruct(e.Decl.Name, e.Params[0].Struct)
			return StmtResult{}
		case NEnumDef:
			in.ctx.Scopes.DeclareEnum(e.Decl.Name, e.Params[0].Enum)
			return StmtResult{}
		}
	}
	var rhs StmtResult
	if len(e.Params) == 1 {
		rhs = in.eval(e.Params[0])
		if rhs.Signal != ctrlNone {
			return rhs
		}
	}
	in.bindDeclaration(e.Decl, rhs.Result)
	return StmtResult{}
}

func (in *Interpreter) evalAssignment(e *Expr) StmtResult {
	if len(e.Params) != 2 {
		return StmtResult{}
	}
	target, valExpr := e.Params[0], e.Params[1]
	rhs := in.eval(valExpr)
	if rhs.Signal != ctrlNone {
		return rhs
	}
	path := target.DottedPath()
	offset, vt, err := in.ctx.Scopes.FieldOffset(path)
	if err != nil {
		bug(e.Loc, PhaseInterp, "%v", err)
		return StmtResult{}
	}
	in.writeValueAt(offset, vt, rhs.Result)
	return StmtResult{}
}

func (in *Interpreter) evalIf(e *Expr) StmtResult {
	cond := in.eval(e.Child(0))
	if cond.Signal != ctrlNone {
		return cond
	}
	if asBool(cond.Result) {
		return in.eval(e.Child(1))
	}
	if len(e.Params) > 2 {
		return in.eval(e.Child(2))
	}
	return StmtResult{}
}

func (in *Interpreter) evalWhile(e *Expr) StmtResult {
	for {
		cond := in.eval(e.Child(0))
		if cond.Signal != ctrlNone {
			return cond
		}
		if !asBool(cond.Result) {
			return StmtResult{}
		}
		body := in.eval(e.Child(1))
		switch body.Signal {
		case ctrlBreak:
			return StmtResult{}
		case ctrlContinue, ctrlNone:
			continue
		default:
			return body
		}
	}
}

// evalCallStmt evaluates a call used in statement position; calls used
// as sub-expressions go through the same evalCall but callers that
// only need the resulting StmtResult use this wrapper directly.
func (in *Interpreter) evalCallStmt(e *Expr) StmtResult {
	res := in.evalCall(e)
	if res.Signal != ctrlNone {
		return res
	}
	if res.Result.IsThrow {
		if e.Flags.IsBang {
			panic(fmt.Sprintf("%s: uncaught throw of %s (bang call)", e.Loc, res.Result.ThrowType))
		}
		return StmtResult{Signal: ctrlThrow, Result: res.Result}
	}
	return res
}

// evalCall resolves and performs a call, per spec §4.13's call
// semantics: evaluate each argument (short-circuiting on throw), then
// dispatch to a struct/enum constructor, a namespace method (already
// rewritten to Type.method(recv,...) by UFCS), a user function, or a
// builtin.
func (in *Interpreter) evalCall(call *Expr) StmtResult {
	if len(call.Params) == 0 {
		return StmtResult{}
	}
	callee := call.Params[0]
	argExprs := call.Params[1:]

	if callee.Type == NIdentifier && len(callee.Params) == 0 {
		name := callee.Name
		if name == "import" {
			return StmtResult{} // already consumed by Init
		}
		if sd, ok := in.ctx.Scopes.LookupStruct(name); ok {
			return StmtResult{Result: in.constructStruct(name, sd, argExprs)}
		}
		args, sig := in.evalArgs(argExprs)
		if sig.Signal != ctrlNone {
			return sig
		}
		if fd, ok := in.ctx.Scopes.LookupFunc(name); ok {
			return StmtResult{Result: in.callUserFunc(name, fd, bindArgs(fd, args))}
		}
		if fn, ok := builtins[name]; ok {
			return StmtResult{Result: fn(in, args)}
		}
		bug(call.Loc, PhaseInterp, "call to undefined name %q survived typer/UFCS", name)
		return StmtResult{}
	}

	if callee.Type == NIdentifier && isPureIdentChain(callee) {
		path := callee.DottedPath()
		if len(path) == 2 {
			typeName, member := path[0], path[1]
			if ed, ok := in.ctx.Scopes.LookupEnum(typeName); ok {
				if _, isVariant := ed.Variant(member); isVariant {
					args, sig := in.evalArgs(argExprs)
					if sig.Signal != ctrlNone {
						return sig
					}
					return StmtResult{Result: in.constructEnum(typeName, ed, member, args)}
				}
				if fd, ok := ed.NS.Get(member); ok {
					args, sig := in.evalArgs(argExprs)
					if sig.Signal != ctrlNone {
						return sig
					}
					return StmtResult{Result: in.callUserFunc(member, fd, bindArgs(fd, args))}
				}
			}
			if sd, ok := in.ctx.Scopes.LookupStruct(typeName); ok {
				if fd, ok := sd.NS.Get(member); ok {
					args, sig := in.evalArgs(argExprs)
					if sig.Signal != ctrlNone {
						return sig
					}
					return StmtResult{Result: in.callUserFunc(member, fd, bindArgs(fd, args))}
				}
			}
		}
	}
	bug(call.Loc, PhaseInterp, "unresolved call callee (should have been rewritten by UFCS or rejected by the typer)")
	return StmtResult{}
}

// evalArgs evaluates each argument left to right, short-circuiting on
// the first throw, per spec §4.13 call semantics step 1.
func (in *Interpreter) evalArgs(exprs []*Expr) ([]EvalResult, StmtResult) {
	out := make([]EvalResult, 0, len(exprs))
	for _, a := range exprs {
		v := in.eval(a)
		if v.Signal != ctrlNone {
			return nil, v
		}
		if v.Result.IsThrow {
			return nil, StmtResult{Signal: ctrlThrow, Result: v.Result}
		}
		out = append(out, v.Result)
	}
	return out, StmtResult{}
}

// boundArg pairs a caller-supplied value with the declared parameter
// it binds to, so callUserFunc can apply the right binding mode.
type boundArg struct {
	decl  Declaration
	value EvalResult
}

// bindArgs pairs positional args with fd's declared parameters. UFCS
// has already reordered named arguments (filling defaults at call sites
// that use them), so this is purely positional. A variadic parameter is
// bound to the count of arguments from its position on; the values of
// those trailing arguments are not bound.
func bindArgs(fd *FuncDef, args []EvalResult) []boundArg {
	out := make([]boundArg, 0, len(fd.Args))
	for i, argDecl := range fd.Args {
		if argDecl.ValueType.Kind == TMulti {
			out = append(out, boundArg{decl: argDecl, value: EvalResult{Value: strconv.Itoa(len(args) - i)}})
			continue
		}
		if i < len(args) {
			out = append(out, boundArg{decl: argDecl, value: args[i]})
		}
	}
	return out
}

// callUserFunc performs spec §4.13 steps 2-6: build a frame, bind
// parameters per their mode, execute the body, and unwrap the result.
func (in *Interpreter) callUserFunc(name string, fd *FuncDef, args []boundArg) EvalResult {
	if fd.Kind.IsExternal() {
		if fn, ok := builtins[name]; ok {
			vals := make([]EvalResult, len(args))
			for i, a := range args {
				vals[i] = a.value
			}
			return fn(in, vals)
		}
		bug(Location{}, PhaseInterp, "external function %q has no registered implementation", name)
		return EvalResult{}
	}

	in.ctx.Scopes.Push(ScopeFunction)
	defer in.ctx.Scopes.Pop()
	for _, a := range args {
		in.bindDeclaration(&a.decl, a.value)
	}

	result := in.execStmts(fd.Body)
	switch result.Signal {
	case ctrlReturn:
		return result.Result
	case ctrlThrow:
		return result.Result
	default:
		return result.Result
	}
}

// constructStruct builds a new instance of sd via the template, then
// overwrites fields given as named/positional arguments, per spec
// §4.12/§8 ("template isomorphism").
func (in *Interpreter) constructStruct(typeName string, sd *StructDef, argExprs []*Expr) EvalResult {
	size := in.ctx.Scopes.TypeSize(NewCustomType(typeName))
	in.ctx.Heap.DefaultInstance(typeName, size, func(templateOff int) {
		for _, m := range sd.MutableMembers() {
			if dv, ok := sd.DefaultValues[m.Name]; ok {
				v := in.eval(dv)
				fieldOff, _, _ := in.fieldOffsetWithin(templateOff, typeName, m.Name)
				in.writeValueAt(fieldOff, m.ValueType, v.Result)
			}
		}
	})
	instOff := in.ctx.Heap.InstantiateFromTemplate(typeName, size)

	members := sd.MutableMembers()
	for i, a := range argExprs {
		if a.Type == NNamedArg {
			fieldOff, vt, err := in.fieldOffsetWithin(instOff, typeName, a.Name)
			if err != nil {
				continue
			}
			v := in.eval(a.Child(0))
			in.writeValueAt(fieldOff, vt, v.Result)
			continue
		}
		if i < len(members) {
			fieldOff, vt, err := in.fieldOffsetWithin(instOff, typeName, members[i].Name)
			if err != nil {
				continue
			}
			v := in.eval(a)
			in.writeValueAt(fieldOff, vt, v.Result)
		}
	}
	return intResult(int64(instOff))
}

// fieldOffsetWithin computes the byte offset of member `field` inside
// an instance of `typeName` already allocated at base, without going
// through a named scope variable (used during construction, before
// the instance has a binding).
func (in *Interpreter) fieldOffsetWithin(base int, typeName, field string) (int, ValueType, error) {
	sd, ok := in.ctx.Scopes.LookupStruct(typeName)
	if !ok {
		return 0, ValueType{}, fmt.Errorf("not a struct: %s", typeName)
	}
	rel := 0
	for _, m := range sd.MutableMembers() {
		if m.Name == field {
			return base + rel, m.ValueType, nil
		}
		rel += in.ctx.Scopes.TypeSize(m.ValueType)
	}
	return 0, ValueType{}, fmt.Errorf("struct %s has no field %q", typeName, field)
}

// constructEnum allocates an enum value of the given variant, per spec
// §4.12's tag+payload layout. The payload, if any, is the first
// argument's bytes; its type must match the declared PayloadType.
func (in *Interpreter) constructEnum(typeName string, ed *EnumDef, variant string, args []EvalResult) EvalResult {
	maxSize := maxVariantPayloadSize(in.ctx.Scopes, ed)
	off := in.ctx.Heap.Alloc(8 + maxSize)
	tag := int64(ed.IndexOf(variant))

	v, _ := ed.Variant(variant)
	var payload []byte
	if v.PayloadType != nil && len(args) > 0 {
		payload = encodeScalar(*v.PayloadType, args[0])
	}
	in.ctx.Heap.SetEnum(off, tag, payload, maxSize)
	return intResult(int64(off))
}

// encodeScalar produces the raw bytes for a primitive-typed value, used
// for enum payloads (which aren't addressed through a heap_index entry
// the way a declared variable is).
func encodeScalar(vt ValueType, r EvalResult) []byte {
	switch {
	case vt.Kind == TCustom && vt.CustomName == TypeU8:
		return []byte{byte(asInt(r) & 0xff)}
	case vt.Kind == TCustom && vt.CustomName == TypeBool:
		if asBool(r) {
			return []byte{1}
		}
		return []byte{0}
	default:
		buf := make([]byte, 8)
		putI64(buf, asInt(r))
		return buf
	}
}
