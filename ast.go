package til

import "fmt"

// NodeType is the closed tag set for Expr, per spec §3: "Expr (the
// uniform AST node): {node_type, params, line, col}".
type NodeType int

const (
	NLiteral NodeType = iota
	NIdentifier
	NDeclaration
	NAssignment
	NNamedArg
	NCall
	NFuncDef
	NStructDef
	NEnumDef
	NBody
	NIf
	NWhile
	NForRange // desugared at parse time into NWhile; kept only transiently
	NForIn
	NSwitch
	NCase
	NDefault
	NPattern
	NRange
	NReturn
	NThrow
	NCatch
	NBreak
	NContinue
	NDefer
)

func (n NodeType) String() string {
	names := [...]string{
		"literal", "identifier", "declaration", "assignment", "named-arg",
		"call", "func-def", "struct-def", "enum-def", "body", "if", "while",
		"for-range", "for-in", "switch", "case", "default", "pattern",
		"range", "return", "throw", "catch", "break", "continue", "defer",
	}
	if int(n) < len(names) {
		return names[n]
	}
	return "unknown"
}

// LiteralKind distinguishes the primitive literal forms carried by an
// NLiteral Expr.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
)

// CallFlags are the two annotations a function-call Expr node can
// carry, per spec §3: "function-call (with {does_throw, is_bang}
// flags)".
type CallFlags struct {
	DoesThrow bool // call site marked with `?`
	IsBang    bool // call site marked with `!` (implies panic-on-throw)
}

// Expr is the single AST node type every pass operates on. Dotted
// identifiers `a.b.c` are represented as a left-spined chain: a root
// Identifier("a") whose sole param is Identifier("b") whose sole param
// is Identifier("c").
type Expr struct {
	Type   NodeType
	Params []*Expr
	Loc    Location
	Rg     Range

	// --- payloads, populated depending on Type ---

	// NLiteral
	LitKind LiteralKind
	LitStr  string // canonical text form; interpreted per LitKind

	// NIdentifier
	Name string

	// NDeclaration
	Decl *Declaration

	// NCall
	Flags CallFlags

	// NFuncDef
	Func *FuncDef

	// NStructDef
	Struct *StructDef

	// NEnumDef
	Enum *EnumDef

	// NForIn: element type name, per spec §3
	ElemTypeName string

	// NPattern: variant name + binding var, per spec §3
	PatternVariant string
	PatternBind    string

	// NRange is inclusive on both ends at the surface-syntax level,
	// e.g. `lo..hi` in a `case` arm; Params[0]=lo, Params[1]=hi.
}

func newExpr(t NodeType, loc Location, rg Range, params ...*Expr) *Expr {
	return &Expr{Type: t, Loc: loc, Rg: rg, Params: params}
}

// Child is a convenience accessor; most passes walk Params directly
// but named access reads better at call sites that know the shape.
func (e *Expr) Child(i int) *Expr {
	if e == nil || i < 0 || i >= len(e.Params) {
		return nil
	}
	return e.Params[i]
}

// DottedPath flattens a left-spined identifier chain `a.b.c` into
// ["a","b","c"]. It is an error to call this on anything but an
// NIdentifier chain.
func (e *Expr) DottedPath() []string {
	var path []string
	cur := e
	for cur != nil && cur.Type == NIdentifier {
		path = append(path, cur.Name)
		if len(cur.Params) == 0 {
			break
		}
		cur = cur.Params[0]
	}
	return path
}

func (e *Expr) String() string {
	switch e.Type {
	case NLiteral:
		return e.LitStr
	case NIdentifier:
		if len(e.Params) > 0 {
			return fmt.Sprintf("%s.%s", e.Name, e.Params[0].String())
		}
		return e.Name
	case NCall:
		return fmt.Sprintf("%s(...)", e.Params[0].String())
	default:
		return fmt.Sprintf("<%s>", e.Type)
	}
}
