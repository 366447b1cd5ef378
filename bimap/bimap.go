// Package bimap implements a bidirectional map
package bimap

// BiMap is a map that can be looked up by key or by value
type BiMap struct {
	immutable bool
	forward   map[interface{}]interface{}
	inverse   map[interface{}]interface{}
}

// NewBiMap returns an empty, mutable BiMap
func NewBiMap() *BiMap {
	return &BiMap{
		forward: make(map[interface{}]interface{}),
		inverse: make(map[interface{}]interface{}),
	}
}

// New returns a BiMap initialized with the given forward map
func New(forward map[interface{}]interface{}) *BiMap {
	b := NewBiMap()
	for k, v := range forward {
		b.Insert(k, v)
	}
	return b
}

// Insert adds the key/value pair to the map in both directions
func (b *BiMap) Insert(k interface{}, v interface{}) {
	if b.immutable {
		panic("Cannot modify immutable map")
	}
	if existing, ok := b.forward[k]; ok {
		delete(b.inverse, existing)
	}
	b.forward[k] = v
	b.inverse[v] = k
}

// Exists checks whether the key is present in the map
func (b *BiMap) Exists(k interface{}) bool {
	_, ok := b.forward[k]
	return ok
}

// ExistsInverse checks whether the value is present in the map
func (b *BiMap) ExistsInverse(v interface{}) bool {
	_, ok := b.inverse[v]
	return ok
}

// Get looks up the value for a key
func (b *BiMap) Get(k interface{}) (interface{}, bool) {
	v, ok := b.forward[k]
	return v, ok
}

// GetInverse looks up the key for a value
func (b *BiMap) GetInverse(v interface{}) (interface{}, bool) {
	k, ok := b.inverse[v]
	return k, ok
}

// Delete removes the pair with the given key, if present
func (b *BiMap) Delete(k interface{}) {
	if b.immutable {
		panic("Cannot modify immutable map")
	}
	v, ok := b.forward[k]
	if !ok {
		return
	}
	delete(b.forward, k)
	delete(b.inverse, v)
}

// DeleteInverse removes the pair with the given value, if present
func (b *BiMap) DeleteInverse(v interface{}) {
	if b.immutable {
		panic("Cannot modify immutable map")
	}
	k, ok := b.inverse[v]
	if !ok {
		return
	}
	delete(b.forward, k)
	delete(b.inverse, v)
}

// Size returns the number of pairs in the map
func (b *BiMap) Size() int {
	return len(b.forward)
}

// MakeImmutable causes any further mutation attempt to panic
func (b *BiMap) MakeImmutable() {
	b.immutable = true
}

// GetForwardMap returns the key→value map
func (b *BiMap) GetForwardMap() map[interface{}]interface{} {
	return b.forward
}

// GetInverseMap returns the value→key map
func (b *BiMap) GetInverseMap() map[interface{}]interface{} {
	return b.inverse
}
