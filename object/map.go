package object

import (
	"strings"
)

// Map is a mutable string-keyed object. Keys keep their insertion order.
type Map struct {
	keys  []string
	items map[string]Object
}

func (m *Map) Type() Type { return OBJECT }

func (m *Map) Inspect() string {
	if len(m.keys) == 0 {
		return "{}"
	}
	parts := make([]string, len(m.keys))
	for i, k := range m.keys {
		parts[i] = k + ": " + inspectNested(m.items[k])
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (m *Map) Interface() any {
	out := make(map[string]any, len(m.items))
	for k, v := range m.items {
		out[k] = v.Interface()
	}
	return out
}

func (m *Map) Len() int { return len(m.keys) }

// Keys returns a copy of the keys in insertion order.
func (m *Map) Keys() []string {
	out := make([]string, len(m.keys))
	copy(out, m.keys)
	return out
}

func (m *Map) Get(key string) (Object, bool) {
	v, ok := m.items[key]
	return v, ok
}

func (m *Map) Has(key string) bool {
	_, ok := m.items[key]
	return ok
}

func (m *Map) Set(key string, value Object) {
	if _, ok := m.items[key]; !ok {
		m.keys = append(m.keys, key)
	}
	m.items[key] = value
}

// Delete removes key and reports whether it was present.
func (m *Map) Delete(key string) bool {
	if _, ok := m.items[key]; !ok {
		return false
	}
	delete(m.items, key)
	for i, k := range m.keys {
		if k == key {
			m.keys = append(m.keys[:i], m.keys[i+1:]...)
			break
		}
	}
	return true
}

// Update copies every entry of other into m.
func (m *Map) Update(other *Map) {
	for _, k := range other.keys {
		m.Set(k, other.items[k])
	}
}

func NewMap() *Map {
	return &Map{items: map[string]Object{}}
}
