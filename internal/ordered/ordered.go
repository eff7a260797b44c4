// Package ordered provides an insertion-ordered map for output that
// must be deterministic regardless of Go's randomized map iteration.
// No other package in this module imports it: types.go's NamespaceDef
// keeps its own insertion order.
//
// Ported from the reference implementation's OrderedMap<K,V>
// (src/rs/ordered_map.rs): a slice of keys records insertion order and
// a Go map holds the values, so lookup is a map access and iteration
// follows the key slice.
package ordered

// Map is an insertion-ordered key/value map.
type Map[K comparable, V any] struct {
	keys []K
	vals map[K]V
}

func New[K comparable, V any]() *Map[K, V] {
	return &Map[K, V]{vals: make(map[K]V)}
}

// Set inserts or updates key. First-time insertion appends to the
// order; updating an existing key leaves its position unchanged.
func (m *Map[K, V]) Set(key K, val V) {
	if _, exists := m.vals[key]; !exists {
		m.keys = append(m.keys, key)
	}
	m.vals[key] = val
}

func (m *Map[K, V]) Get(key K) (V, bool) {
	v, ok := m.vals[key]
	return v, ok
}

func (m *Map[K, V]) Has(key K) bool {
	_, ok := m.vals[key]
	return ok
}

// Delete removes key, if present, preserving the relative order of
// the remaining keys.
func (m *Map[K, V]) Delete(key K) {
	if _, ok := m.vals[key]; !ok {
		return
	}
	delete(m.vals, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
}

func (m *Map[K, V]) Len() int { return len(m.keys) }

// Keys returns the keys in insertion order. The returned slice is a
// copy; callers may not mutate the map through it.
func (m *Map[K, V]) Keys() []K {
	out := make([]K, len(m.keys))
	copy(out, m.keys)
	return out
}

// Each visits entries in insertion order.
func (m *Map[K, V]) Each(fn func(key K, val V)) {
	for _, k := range m.keys {
		fn(k, m.vals[k])
	}
}
