package til

import "fmt"

// ValueTypeKind tags the ValueType variant, per spec §3:
// "ValueType (tagged variant): TCustom(name), TFunction(fnkind),
// TType(kind), TMulti(elem_name)".
type ValueTypeKind int

const (
	TCustom ValueTypeKind = iota
	TFunction
	TType
	TMulti
)

// TypeKind is the payload of a TType ValueType.
type TypeKind int

const (
	TypeKindEnum TypeKind = iota
	TypeKindStruct
	TypeKindFuncSig
)

// ValueType is the tagged variant describing the type of a
// declaration, argument, or return slot.
type ValueType struct {
	Kind ValueTypeKind

	CustomName string    // TCustom
	FnKind     FuncKind  // TFunction
	TypeKind   TypeKind  // TType
	ElemName   string    // TMulti: the element type's name
}

func NewCustomType(name string) ValueType { return ValueType{Kind: TCustom, CustomName: name} }
func NewMultiType(elem string) ValueType  { return ValueType{Kind: TMulti, ElemName: elem} }

func (vt ValueType) String() string {
	switch vt.Kind {
	case TCustom:
		return vt.CustomName
	case TFunction:
		return fmt.Sprintf("func(%s)", vt.FnKind)
	case TType:
		return fmt.Sprintf("type(%s)", vt.TypeKind)
	case TMulti:
		return "..." + vt.ElemName
	default:
		return "?"
	}
}

func (vt ValueType) Equal(other ValueType) bool {
	if vt.Kind != other.Kind {
		return false
	}
	switch vt.Kind {
	case TCustom:
		return vt.CustomName == other.CustomName
	case TMulti:
		return vt.ElemName == other.ElemName
	case TFunction:
		return vt.FnKind == other.FnKind
	case TType:
		return vt.TypeKind == other.TypeKind
	}
	return true
}

// Primitive type names and their intrinsic sizes, per spec §4.6:
// "I64=8, U8=1, Ptr=16 (data:I64 + is_borrowed:I64)". Str and enums are
// composite and computed from their structure (see ScopeStack.TypeSize in scope.go).
const (
	TypeI64    = "I64"
	TypeU8     = "U8"
	TypePtr    = "Ptr"
	TypeStr    = "Str"
	TypeBool   = "Bool"
	TypeDynamic = "Dynamic"
	TypeTypeT  = "Type"
)

var primitiveSizes = map[string]int{
	TypeI64:  8,
	TypeU8:   1,
	TypePtr:  16,
	TypeBool: 1,
}

// isSkippedInDerivedOps reports whether this primitive type is
// skipped by preinit's derived delete/clone, per spec §4.4: "For
// primitives (I64, U8, Dynamic, Type, and any FuncSig type), the field
// is skipped."
func isSkippedInDerivedOps(vt ValueType) bool {
	if vt.Kind == TFunction {
		return true
	}
	if vt.Kind == TType && vt.TypeKind == TypeKindFuncSig {
		return true
	}
	if vt.Kind == TCustom {
		switch vt.CustomName {
		case TypeI64, TypeU8, TypeDynamic, TypeTypeT:
			return true
		}
	}
	return false
}

// BindingMode is exactly one of mut/copy/own, per spec §3: "Exactly
// one of is_mut, is_copy, is_own may be true".
type BindingMode int

const (
	BindNone BindingMode = iota
	BindMut
	BindCopy
	BindOwn
)

// Declaration describes a bound name: a function argument, a `name :=
// expr` statement, or a struct member.
type Declaration struct {
	Name         string
	ValueType    ValueType
	Mode         BindingMode
	DefaultValue *Expr // optional, used for function-argument defaults
}

func (d Declaration) IsMut() bool  { return d.Mode == BindMut }
func (d Declaration) IsCopy() bool { return d.Mode == BindCopy }
func (d Declaration) IsOwn() bool  { return d.Mode == BindOwn }

// FuncKind distinguishes pure/effectful/external/macro functions, per
// spec §3: "kind distinguishes pure (func) from effectful (proc),
// external (non-bodied) from internal, and macros (AST-returning)".
type FuncKind int

const (
	FuncFunc FuncKind = iota
	FuncProc
	FuncMacro
	FuncExtFunc
	FuncExtProc
)

func (k FuncKind) String() string {
	return [...]string{"func", "proc", "macro", "ext_func", "ext_proc"}[k]
}

func (k FuncKind) IsExternal() bool { return k == FuncExtFunc || k == FuncExtProc }
func (k FuncKind) IsPure() bool     { return k == FuncFunc || k == FuncExtFunc }
func (k FuncKind) IsMacro() bool    { return k == FuncMacro }

// FuncSig is the type-level signature of a function: kind + arg/return
// /throw types, without argument names. Used wherever a TType(funcsig)
// ValueType needs a concrete shape to compare against.
type FuncSig struct {
	Kind    FuncKind
	Args    []ValueType
	Returns []ValueType
	Throws  []ValueType
}

// FuncDef is a complete function/proc/macro definition, per spec §3.
type FuncDef struct {
	Kind       FuncKind
	Args       []Declaration
	ArgNames   []string
	Returns    []ValueType
	Throws     []ValueType
	Body       []*Expr
	SourcePath string
	IsVariadic bool // last Arg has a TMulti ValueType
}

func (f *FuncDef) Sig() FuncSig {
	sig := FuncSig{Kind: f.Kind, Returns: f.Returns, Throws: f.Throws}
	for _, a := range f.Args {
		sig.Args = append(sig.Args, a.ValueType)
	}
	return sig
}

// NamespaceDef collects the methods declared under a struct/enum's
// inline `namespace:` block, per spec §3. Preinit merges auto-derived
// delete/clone into here unless the user already provided them. It
// preserves insertion order, per spec §5 ("insertion-ordered map"),
// since codegen output must be deterministic.
type NamespaceDef struct {
	order []string
	byName map[string]*FuncDef
}

func NewNamespaceDef() *NamespaceDef {
	return &NamespaceDef{byName: make(map[string]*FuncDef)}
}

func (n *NamespaceDef) Has(name string) bool {
	_, ok := n.byName[name]
	return ok
}

func (n *NamespaceDef) Get(name string) (*FuncDef, bool) {
	f, ok := n.byName[name]
	return f, ok
}

func (n *NamespaceDef) Set(name string, f *FuncDef) {
	if _, exists := n.byName[name]; !exists {
		n.order = append(n.order, name)
	}
	n.byName[name] = f
}

func (n *NamespaceDef) Names() []string {
	out := make([]string, len(n.order))
	copy(out, n.order)
	return out
}

// StructDef describes a struct type, per spec §3. Members preserve
// declaration order: that order IS the layout.
type StructDef struct {
	Members       []Declaration
	DefaultValues map[string]*Expr
	NS            *NamespaceDef
}

func NewStructDef() *StructDef {
	return &StructDef{DefaultValues: make(map[string]*Expr), NS: NewNamespaceDef()}
}

// MutableMembers returns only the members that occupy per-instance
// storage, per spec §4.3: "Only mutable members contribute to
// layout." Declaration order is preserved.
func (s *StructDef) MutableMembers() []Declaration {
	var out []Declaration
	for _, m := range s.Members {
		if m.IsMut() {
			out = append(out, m)
		}
	}
	return out
}

// EnumVariant is one arm of an enum, per spec §3. Its tag value is its
// index in EnumDef.Variants.
type EnumVariant struct {
	Name        string
	PayloadType *ValueType
}

// EnumDef describes an enum type, per spec §3.
type EnumDef struct {
	Variants []EnumVariant
	NS       *NamespaceDef
}

func NewEnumDef() *EnumDef {
	return &EnumDef{NS: NewNamespaceDef()}
}

func (e *EnumDef) IndexOf(variant string) int {
	for i, v := range e.Variants {
		if v.Name == variant {
			return i
		}
	}
	return -1
}

func (e *EnumDef) Variant(name string) (EnumVariant, bool) {
	for _, v := range e.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return EnumVariant{}, false
}

// EnumVal is the runtime representation of an enum value, per spec §3.
type EnumVal struct {
	EnumType    string
	VariantName string
	PayloadType *ValueType
	Payload     []byte
}

// ModeDef is looked up by name from the fixed table in spec §6.
type ModeDef struct {
	Name                string
	AllowsTopLevelCalls bool
	AllowsTopLevelMut   bool
	NeedsMain           bool
	ImplicitImports     []string
}

var modeTable = map[string]ModeDef{
	"lib":          {Name: "lib"},
	"pure":         {Name: "pure"},
	"script":       {Name: "script", AllowsTopLevelCalls: true, AllowsTopLevelMut: true},
	"safe_script":  {Name: "safe_script", AllowsTopLevelCalls: true, AllowsTopLevelMut: true},
	"cli":          {Name: "cli", AllowsTopLevelMut: true, NeedsMain: true},
	"test":         {Name: "test", AllowsTopLevelCalls: true, AllowsTopLevelMut: true, ImplicitImports: []string{"test/harness"}},
}

func LookupMode(name string) (ModeDef, bool) {
	m, ok := modeTable[name]
	return m, ok
}
