package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScopeStack_DeclareAndLookupSymbol(t *testing.T) {
	s := NewScopeStack()
	s.DeclareSymbol("x", SymbolInfo{ValueType: NewCustomType(TypeI64), Mode: BindMut})

	info, ok := s.LookupSymbol("x")
	require.True(t, ok)
	assert.True(t, info.IsMut())
	assert.Equal(t, TypeI64, info.ValueType.CustomName)
}

func TestScopeStack_LookupWalksOutward(t *testing.T) {
	s := NewScopeStack()
	s.DeclareSymbol("outer", SymbolInfo{ValueType: NewCustomType(TypeI64)})
	s.Push(ScopeBlock)

	info, ok := s.LookupSymbol("outer")
	require.True(t, ok)
	assert.Equal(t, TypeI64, info.ValueType.CustomName)

	_, ok = s.LookupSymbol("nonexistent")
	assert.False(t, ok)
}

func TestScopeStack_InnerShadowsOuter(t *testing.T) {
	s := NewScopeStack()
	s.DeclareSymbol("x", SymbolInfo{ValueType: NewCustomType(TypeI64)})
	s.Push(ScopeBlock)
	s.DeclareSymbol("x", SymbolInfo{ValueType: NewCustomType(TypeU8)})

	info, ok := s.LookupSymbol("x")
	require.True(t, ok)
	assert.Equal(t, TypeU8, info.ValueType.CustomName)

	s.Pop()
	info, ok = s.LookupSymbol("x")
	require.True(t, ok)
	assert.Equal(t, TypeI64, info.ValueType.CustomName)
}

func TestScopeStack_PopUnderflowPanics(t *testing.T) {
	s := &ScopeStack{}
	assert.Panics(t, func() { s.Pop() })
}

func TestScopeStack_InsertAndRemoveVar(t *testing.T) {
	s := NewScopeStack()
	s.InsertVar("a", 40)

	off, ok := s.LookupVarOffset("a")
	require.True(t, ok)
	assert.Equal(t, 40, off)

	s.RemoveVar("a")
	_, ok = s.LookupVarOffset("a")
	assert.False(t, ok)
}

func TestScopeStack_LookupCatchMatchesByType(t *testing.T) {
	s := NewScopeStack()
	errType := NewCustomType("MyError")
	frame := s.Push(ScopeCatch)
	frame.CatchType = &errType
	frame.CatchVar = "e"

	found, ok := s.LookupCatch(NewCustomType("MyError"))
	require.True(t, ok)
	assert.Equal(t, "e", found.CatchVar)

	_, ok = s.LookupCatch(NewCustomType("OtherError"))
	assert.False(t, ok)
}

func TestScopeStack_TypeSizePrimitives(t *testing.T) {
	s := NewScopeStack()
	tests := []struct {
		name string
		vt   ValueType
		want int
	}{
		{"I64", NewCustomType(TypeI64), 8},
		{"U8", NewCustomType(TypeU8), 1},
		{"Bool", NewCustomType(TypeBool), 1},
		{"Ptr", NewCustomType(TypePtr), 16},
		{"Str", NewCustomType(TypeStr), 32},
		{"Multi", NewMultiType(TypeI64), 16},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, s.TypeSize(tt.vt))
		})
	}
}

func TestScopeStack_TypeSizeStructSumsMutableMembers(t *testing.T) {
	s := NewScopeStack()
	sd := NewStructDef()
	sd.Members = []Declaration{
		{Name: "x", ValueType: NewCustomType(TypeI64), Mode: BindMut},
		{Name: "y", ValueType: NewCustomType(TypeI64), Mode: BindMut},
		{Name: "const_field", ValueType: NewCustomType(TypeI64), Mode: BindCopy},
	}
	s.DeclareStruct("Point", sd)

	assert.Equal(t, 16, s.TypeSize(NewCustomType("Point")))
}

func TestScopeStack_TypeSizeEnumUsesMaxPayload(t *testing.T) {
	s := NewScopeStack()
	strType := NewCustomType(TypeStr)
	i64Type := NewCustomType(TypeI64)
	ed := NewEnumDef()
	ed.Variants = []EnumVariant{
		{Name: "None"},
		{Name: "Int", PayloadType: &i64Type},
		{Name: "Text", PayloadType: &strType},
	}
	s.DeclareEnum("Opt", ed)

	// tag(8) + max(payload sizes: 0, 8, 32) = 8 + 32 = 40
	assert.Equal(t, 40, s.TypeSize(NewCustomType("Opt")))
}

func TestScopeStack_FieldOffsetWalksNestedStructs(t *testing.T) {
	s := NewScopeStack()
	inner := NewStructDef()
	inner.Members = []Declaration{
		{Name: "x", ValueType: NewCustomType(TypeI64), Mode: BindMut},
		{Name: "y", ValueType: NewCustomType(TypeI64), Mode: BindMut},
	}
	s.DeclareStruct("Point", inner)

	outer := NewStructDef()
	outer.Members = []Declaration{
		{Name: "label", ValueType: NewCustomType(TypeI64), Mode: BindMut},
		{Name: "pos", ValueType: NewCustomType("Point"), Mode: BindMut},
	}
	s.DeclareStruct("Shape", outer)

	s.DeclareSymbol("shape", SymbolInfo{ValueType: NewCustomType("Shape")})
	s.InsertVar("shape", 100)

	off, vt, err := s.FieldOffset([]string{"shape", "pos", "y"})
	require.NoError(t, err)
	assert.Equal(t, TypeI64, vt.CustomName)
	// shape base(100) + label(8) + pos.x(8) = 116
	assert.Equal(t, 116, off)
}

func TestScopeStack_FieldOffsetRejectsUnknownField(t *testing.T) {
	s := NewScopeStack()
	sd := NewStructDef()
	sd.Members = []Declaration{{Name: "x", ValueType: NewCustomType(TypeI64), Mode: BindMut}}
	s.DeclareStruct("Point", sd)
	s.DeclareSymbol("p", SymbolInfo{ValueType: NewCustomType("Point")})
	s.InsertVar("p", 0)

	_, _, err := s.FieldOffset([]string{"p", "z"})
	assert.Error(t, err)
}

func TestScopeStack_FieldOffsetRejectsUndeclaredVar(t *testing.T) {
	s := NewScopeStack()
	_, _, err := s.FieldOffset([]string{"nope"})
	assert.Error(t, err)
}
