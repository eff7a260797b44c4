package til

import "fmt"

// ScopeKind tags what kind of block pushed a ScopeFrame, per spec §3:
// "scope_type ∈ {Function, Block, Catch}".
type ScopeKind int

const (
	ScopeFunction ScopeKind = iota
	ScopeBlock
	ScopeCatch
)

// SymbolInfo is everything the typer and interpreter need to know
// about a bound name, per spec §3.
type SymbolInfo struct {
	ValueType      ValueType
	Mode           BindingMode
	IsComptimeConst bool
}

func (s SymbolInfo) IsMut() bool { return s.Mode == BindMut }

// ScopeFrame is one layer of the scope stack, per spec §3: "{heap_index,
// symbols, funcs, enums, structs, scope_type}". Heap offsets are
// stored only for base variables; dotted paths are resolved
// dynamically by FieldOffset, never cached (spec §3, §9).
type ScopeFrame struct {
	Kind ScopeKind

	heapIndex map[string]int
	symbols   map[string]SymbolInfo
	funcs     map[string]*FuncDef
	structs   map[string]*StructDef
	enums     map[string]*EnumDef

	// CatchType is set only for ScopeCatch frames: the thrown type
	// this catch covers and the bound error variable name.
	CatchType *ValueType
	CatchVar  string
}

func newScopeFrame(kind ScopeKind) *ScopeFrame {
	return &ScopeFrame{
		Kind:      kind,
		heapIndex: make(map[string]int),
		symbols:   make(map[string]SymbolInfo),
		funcs:     make(map[string]*FuncDef),
		structs:   make(map[string]*StructDef),
		enums:     make(map[string]*EnumDef),
	}
}

// ScopeStack is the stacked-frame symbol table, per spec §3/§4.3.
type ScopeStack struct {
	frames []*ScopeFrame
}

func NewScopeStack() *ScopeStack {
	s := &ScopeStack{}
	s.Push(ScopeBlock) // root frame
	return s
}

func (s *ScopeStack) Push(kind ScopeKind) *ScopeFrame {
	f := newScopeFrame(kind)
	s.frames = append(s.frames, f)
	return f
}

// Pop removes the innermost frame. Per spec §8 ("scope discipline"),
// every push must be matched by a pop; popping an empty stack is a
// compiler bug.
func (s *ScopeStack) Pop() {
	if len(s.frames) == 0 {
		panic("scope stack underflow: pop without matching push")
	}
	s.frames = s.frames[:len(s.frames)-1]
}

func (s *ScopeStack) Top() *ScopeFrame {
	return s.frames[len(s.frames)-1]
}

func (s *ScopeStack) Depth() int { return len(s.frames) }

// --- declare_* / lookup_* ---

func (s *ScopeStack) DeclareSymbol(name string, info SymbolInfo) {
	s.Top().symbols[name] = info
}

func (s *ScopeStack) DeclareFunc(name string, f *FuncDef) {
	s.Top().funcs[name] = f
}

func (s *ScopeStack) DeclareStruct(name string, d *StructDef) {
	s.Top().structs[name] = d
}

func (s *ScopeStack) DeclareEnum(name string, d *EnumDef) {
	s.Top().enums[name] = d
}

// InsertVar binds name -> heap offset in the current (innermost) frame.
func (s *ScopeStack) InsertVar(name string, offset int) {
	s.Top().heapIndex[name] = offset
}

// InsertVarInFrame binds name -> offset into a specific frame, used to
// build a call frame before entering a function body, per spec §4.12.
func (s *ScopeStack) InsertVarInFrame(frame *ScopeFrame, name string, offset int) {
	frame.heapIndex[name] = offset
}

func (s *ScopeStack) RemoveVar(name string) {
	s.Top().heapIndex[name] = -1
	delete(s.Top().heapIndex, name)
}

func (s *ScopeStack) RemoveSymbol(name string) {
	delete(s.Top().symbols, name)
}

// LookupSymbol walks frames innermost-out.
func (s *ScopeStack) LookupSymbol(name string) (SymbolInfo, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if info, ok := s.frames[i].symbols[name]; ok {
			return info, true
		}
	}
	return SymbolInfo{}, false
}

func (s *ScopeStack) LookupVarOffset(name string) (int, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if off, ok := s.frames[i].heapIndex[name]; ok {
			return off, true
		}
	}
	return 0, false
}

func (s *ScopeStack) LookupFunc(name string) (*FuncDef, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if f, ok := s.frames[i].funcs[name]; ok {
			return f, true
		}
	}
	return nil, false
}

func (s *ScopeStack) LookupStruct(name string) (*StructDef, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if d, ok := s.frames[i].structs[name]; ok {
			return d, true
		}
	}
	return nil, false
}

func (s *ScopeStack) LookupEnum(name string) (*EnumDef, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if d, ok := s.frames[i].enums[name]; ok {
			return d, true
		}
	}
	return nil, false
}

// LookupCatch walks outward from the top looking for an active
// ScopeCatch frame whose CatchType matches thrown. Used by the
// typer's throw-coverage check to find the catch a throw would bubble
// to, per spec §4.13/§8 ("throw bubbling").
func (s *ScopeStack) LookupCatch(thrown ValueType) (*ScopeFrame, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		f := s.frames[i]
		if f.Kind == ScopeCatch && f.CatchType != nil && f.CatchType.Equal(thrown) {
			return f, true
		}
	}
	return nil, false
}

// TypeSize returns the byte size of one member's ValueType, in
// a function form because it depends on other declared structs/enums
// (recursive composite sizing), per spec §4.6.
func (s *ScopeStack) TypeSize(vt ValueType) int {
	switch vt.Kind {
	case TCustom:
		if sz, ok := primitiveSizes[vt.CustomName]; ok {
			return sz
		}
		if vt.CustomName == TypeStr {
			return 32 // Ptr(16) + _len(8) + cap(8)
		}
		if st, ok := s.LookupStruct(vt.CustomName); ok {
			total := 0
			for _, m := range st.MutableMembers() {
				total += s.TypeSize(m.ValueType)
			}
			return total
		}
		if en, ok := s.LookupEnum(vt.CustomName); ok {
			return 8 + maxVariantPayloadSize(s, en)
		}
		return 8 // unknown custom type defaults to a word; typer should have rejected this
	case TFunction, TType:
		return 8 // a function/type value is represented by a pointer-sized handle
	case TMulti:
		return 16 // represented as a {Ptr,len} slice descriptor
	}
	return 8
}

func maxVariantPayloadSize(s *ScopeStack, en *EnumDef) int {
	max := 0
	for _, v := range en.Variants {
		if v.PayloadType == nil {
			continue
		}
		if sz := s.TypeSize(*v.PayloadType); sz > max {
			max = sz
		}
	}
	return max
}

// FieldOffset resolves a dotted path base.seg1.seg2… into a byte
// address, per spec §4.3:
//  1. base_offset = heap_index.lookup("a")
//  2. current type T = symbol("a").value_type (must be TCustom)
//  3. for each subsequent segment, sum the sizes of preceding mutable
//     members, add to the running offset, descend into that member's
//     type
//
// The result is never cached under the composite name "a.b.c" — every
// call walks the chain fresh, per spec §3/§9.
func (s *ScopeStack) FieldOffset(path []string) (int, ValueType, error) {
	if len(path) == 0 {
		return 0, ValueType{}, fmt.Errorf("empty field path")
	}
	base := path[0]
	offset, ok := s.LookupVarOffset(base)
	if !ok {
		return 0, ValueType{}, fmt.Errorf("undeclared variable %q", base)
	}
	sym, ok := s.LookupSymbol(base)
	if !ok {
		return 0, ValueType{}, fmt.Errorf("no symbol info for %q", base)
	}
	curType := sym.ValueType

	for _, seg := range path[1:] {
		if curType.Kind != TCustom {
			return 0, ValueType{}, fmt.Errorf("%q is not a struct field path (current type %s)", seg, curType)
		}
		st, ok := s.LookupStruct(curType.CustomName)
		if !ok {
			return 0, ValueType{}, fmt.Errorf("type %s is not a struct", curType.CustomName)
		}
		rel := 0
		found := false
		var fieldType ValueType
		for _, m := range st.MutableMembers() {
			if m.Name == seg {
				fieldType = m.ValueType
				found = true
				break
			}
			rel += s.TypeSize(m.ValueType)
		}
		if !found {
			return 0, ValueType{}, fmt.Errorf("struct %s has no field %q", curType.CustomName, seg)
		}
		offset += rel
		curType = fieldType
	}
	return offset, curType, nil
}
