package til

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeap_AllocReservesNonZeroAddresses(t *testing.T) {
	h := NewHeap()
	off := h.Alloc(8)
	assert.NotZero(t, off)
}

func TestHeap_I64RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		val  int64
	}{
		{"zero", 0},
		{"positive", 42},
		{"negative", -17},
		{"max", 1<<62 - 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := NewHeap()
			off := h.Alloc(8)
			h.SetI64(off, tt.val)
			assert.Equal(t, tt.val, h.GetI64(off))
		})
	}
}

func TestHeap_U8RoundTrip(t *testing.T) {
	h := NewHeap()
	off := h.Alloc(1)
	h.SetU8(off, 200)
	assert.Equal(t, uint8(200), h.GetU8(off))
}

func TestHeap_AllocStrValueLayout(t *testing.T) {
	h := NewHeap()
	off := h.AllocStrValue("hello")

	strOff := h.GetI64(off)
	assert.Equal(t, "hello", h.ReadCString(int(strOff)))
	assert.Equal(t, int64(0), h.GetI64(off+8), "fresh Str is not borrowed")
	assert.Equal(t, int64(5), h.GetI64(off+16))
	assert.Equal(t, int64(5), h.GetI64(off+24))
}

func TestHeap_DefaultInstanceIsBuiltOnce(t *testing.T) {
	h := NewHeap()
	calls := 0
	build := func(off int) { calls++ }

	first := h.DefaultInstance("Point", 16, build)
	second := h.DefaultInstance("Point", 16, build)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, calls)
}

func TestHeap_InstantiateFromTemplateCopiesTemplateBytes(t *testing.T) {
	h := NewHeap()
	h.DefaultInstance("Point", 16, func(off int) {
		h.SetI64(off, 7)
		h.SetI64(off+8, 9)
	})

	inst := h.InstantiateFromTemplate("Point", 16)
	assert.Equal(t, int64(7), h.GetI64(inst))
	assert.Equal(t, int64(9), h.GetI64(inst+8))

	// Mutating the instance must not affect the template (spec §8's
	// template isomorphism property: each instance is independent).
	h.SetI64(inst, 100)
	templateOff, _ := h.defaultInstances["Point"]
	assert.Equal(t, int64(7), h.GetI64(templateOff))
}

func TestHeap_EnumVariantReassignmentNeverResizes(t *testing.T) {
	h := NewHeap()
	off := h.Alloc(8 + 8) // tag + max 8-byte payload

	h.SetEnum(off, 0, []byte{1, 2, 3, 4, 5, 6, 7, 8}, 16)
	firstTag := h.GetEnumTag(off)
	require.Equal(t, int64(0), firstTag)

	// Switch variants in place: same offset, same maxSize.
	h.SetEnum(off, 1, nil, 16)
	assert.Equal(t, int64(1), h.GetEnumTag(off))
	payload := h.GetEnumPayload(off, 8)
	assert.Equal(t, make([]byte, 8), payload, "switching variants zero-pads the unused payload")
}

func TestHeap_SetRejectsOversizedWrite(t *testing.T) {
	h := NewHeap()
	off := h.Alloc(4)
	err := h.Set(off, []byte{1, 2, 3, 4, 5, 6, 7, 8, 9, 10})
	assert.Error(t, err)
}

func TestHeap_FreeTolerantOfUnknownOffset(t *testing.T) {
	h := NewHeap()
	assert.NotPanics(t, func() { h.Free(9999) })
}

func TestAlign8(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{0, 8}, {1, 8}, {7, 8}, {8, 8}, {9, 16}, {-3, 8},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, align8(tt.in))
	}
}
