package til

import "encoding/binary"

// align8 rounds n up to the next multiple of 8, per spec §4.12: "Blocks
// are allocated with 8-byte alignment".
func align8(n int) int {
	if n <= 0 {
		return 8
	}
	return (n + 7) &^ 7
}

// Heap is the byte-addressable singleton memory every runtime value
// lives on, per spec §3/§4.12. Address 0 is reserved as the NULL
// sentinel and is never allocated.
type Heap struct {
	bytes []byte
	// sizes maps an allocated block's starting offset to its size, so
	// free() and bounds checks don't need a separate side table.
	sizes map[int]int

	// defaultInstances holds, per struct/enum type name, the heap
	// offset of that type's default template instance, per spec
	// §4.12: "one template per struct, populated when the struct is
	// first instantiated".
	defaultInstances map[string]int
}

// NewHeap constructs an empty heap with address 0 reserved.
func NewHeap() *Heap {
	h := &Heap{
		bytes:            make([]byte, 8), // reserve [0,8) so offset 0 is never a valid allocation
		sizes:            make(map[int]int),
		defaultInstances: make(map[string]int),
	}
	return h
}

// Alloc allocates max(size,1) zeroed, 8-byte-aligned bytes and returns
// their starting offset. Per spec §4.12, size 0 still yields a unique
// (non-zero) address.
func (h *Heap) Alloc(size int) int {
	n := size
	if n < 1 {
		n = 1
	}
	n = align8(n)

	offset := len(h.bytes)
	h.bytes = append(h.bytes, make([]byte, n)...)
	h.sizes[offset] = size
	return offset
}

// Free deallocates the block at offset. Unknown offsets are silently
// tolerated, per spec §4.12.
func (h *Heap) Free(offset int) {
	delete(h.sizes, offset)
}

// Get performs a raw read with no bounds check by construction; callers
// are expected to use typer-derived sizes, per spec §4.12.
func (h *Heap) Get(offset, length int) []byte {
	out := make([]byte, length)
	copy(out, h.bytes[offset:offset+length])
	return out
}

// Set performs a raw write. It enforces bounds derived from the
// recorded block size at offset — the "single set-bytes operation"
// spec §3 requires every heap write to go through.
func (h *Heap) Set(offset int, data []byte) error {
	size, ok := h.sizes[offset]
	if ok && len(data) > align8(size) {
		return &heapBoundsError{offset: offset, want: len(data), have: align8(size)}
	}
	if offset+len(data) > len(h.bytes) {
		grow := make([]byte, offset+len(data)-len(h.bytes))
		h.bytes = append(h.bytes, grow...)
	}
	copy(h.bytes[offset:offset+len(data)], data)
	return nil
}

type heapBoundsError struct {
	offset, want, have int
}

func (e *heapBoundsError) Error() string {
	return "heap write out of bounds at offset"
}

// --- typed primitive helpers ---

func (h *Heap) SetI64(offset int, v int64) {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(v))
	_ = h.Set(offset, buf)
}

func (h *Heap) GetI64(offset int) int64 {
	return int64(binary.LittleEndian.Uint64(h.Get(offset, 8)))
}

func (h *Heap) SetU8(offset int, v uint8) {
	_ = h.Set(offset, []byte{v})
}

func (h *Heap) GetU8(offset int) uint8 {
	return h.Get(offset, 1)[0]
}

// AllocString stores s as raw UTF-8 followed by a zero byte, per spec
// §3, and returns the offset of the start of the bytes (not the Str
// struct wrapper — callers that need the {c_string,_len,cap} layout
// build it separately via AllocStrValue).
func (h *Heap) AllocString(s string) int {
	data := append([]byte(s), 0)
	off := h.Alloc(len(data))
	_ = h.Set(off, data)
	return off
}

// AllocStrValue builds the {c_string: Ptr, _len: I64, cap: I64} layout
// spec §4.6 assigns to the Str type (size 16+8+8=32: Ptr is itself
// {data:I64, is_borrowed:I64}=16 bytes).
func (h *Heap) AllocStrValue(s string) int {
	strOff := h.AllocString(s)
	off := h.Alloc(32)
	h.SetI64(off, int64(strOff))   // Ptr.data
	h.SetI64(off+8, 0)             // Ptr.is_borrowed = false
	h.SetI64(off+16, int64(len(s))) // _len
	h.SetI64(off+24, int64(len(s))) // cap
	return off
}

func (h *Heap) ReadCString(offset int) string {
	end := offset
	for h.bytes[end] != 0 {
		end++
	}
	return string(h.bytes[offset:end])
}

// DefaultInstance returns the offset of typeName's template instance,
// lazily building it via build if absent. Subsequent construction of
// typeName is alloc + memcpy(template) + overwrite explicit fields, per
// spec §4.12/§8 ("template isomorphism").
func (h *Heap) DefaultInstance(typeName string, size int, build func(off int)) int {
	if off, ok := h.defaultInstances[typeName]; ok {
		return off
	}
	off := h.Alloc(size)
	if build != nil {
		build(off)
	}
	h.defaultInstances[typeName] = off
	return off
}

// InstantiateFromTemplate allocates a new size-byte block and copies
// the type's template instance into it, per spec §4.12.
func (h *Heap) InstantiateFromTemplate(typeName string, size int) int {
	templateOff, ok := h.defaultInstances[typeName]
	newOff := h.Alloc(size)
	if ok {
		copy(h.bytes[newOff:newOff+size], h.bytes[templateOff:templateOff+size])
	}
	return newOff
}

// SetEnum writes an enum value at offset using the fixed layout of
// spec §4.12: an 8-byte little-endian tag followed by the variant's
// payload bytes, zero-padded up to maxSize. This never resizes, so
// reassigning a variable to a different variant is always in-place.
func (h *Heap) SetEnum(offset int, tag int64, payload []byte, maxSize int) {
	buf := make([]byte, maxSize)
	binary.LittleEndian.PutUint64(buf[:8], uint64(tag))
	copy(buf[8:], payload)
	_ = h.Set(offset, buf)
}

func (h *Heap) GetEnumTag(offset int) int64 {
	return h.GetI64(offset)
}

func (h *Heap) GetEnumPayload(offset, payloadSize int) []byte {
	return h.Get(offset+8, payloadSize)
}
