package object

import (
	"strings"
)

// Array is a mutable integer-indexed sequence. Non-index attributes set on
// an array are kept in a secondary map.
type Array struct {
	items []Object
	attrs *Map
}

func (a *Array) Type() Type { return ARRAY }

func (a *Array) Inspect() string {
	parts := make([]string, len(a.items))
	for i, item := range a.items {
		parts[i] = inspectNested(item)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (a *Array) Interface() any {
	out := make([]any, len(a.items))
	for i, item := range a.items {
		out[i] = item.Interface()
	}
	return out
}

// Items returns the backing slice. Callers must not retain it across
// mutations of the array.
func (a *Array) Items() []Object { return a.items }

func (a *Array) Len() int { return len(a.items) }

// Get returns the element at i, or Undefined when i is out of range.
func (a *Array) Get(i int) Object {
	if i < 0 || i >= len(a.items) {
		return Undefined
	}
	return a.items[i]
}

// MaxArrayLength bounds the dense backing store of an array. Growing an
// array past it throws a RangeError.
const MaxArrayLength = 1 << 24

// Set stores value at i, growing the array with Undefined as needed.
func (a *Array) Set(i int, value Object) error {
	if i < 0 {
		return nil
	}
	if i >= len(a.items) {
		if err := a.grow(i + 1); err != nil {
			return err
		}
	}
	a.items[i] = value
	return nil
}

func (a *Array) grow(n int) error {
	if n > MaxArrayLength {
		return RangeErrorf("Invalid array length")
	}
	for len(a.items) < n {
		a.items = append(a.items, Undefined)
	}
	return nil
}

// Delete clears the element at i without shifting later elements.
func (a *Array) Delete(i int) {
	if i >= 0 && i < len(a.items) {
		a.items[i] = Undefined
	}
}

func (a *Array) Append(items ...Object) {
	a.items = append(a.items, items...)
}

// SetLength truncates or extends the array.
func (a *Array) SetLength(n int) error {
	if n < len(a.items) {
		a.items = a.items[:n]
		return nil
	}
	return a.grow(n)
}

func (a *Array) Pop() Object {
	if len(a.items) == 0 {
		return Undefined
	}
	last := a.items[len(a.items)-1]
	a.items = a.items[:len(a.items)-1]
	return last
}

func (a *Array) Shift() Object {
	if len(a.items) == 0 {
		return Undefined
	}
	first := a.items[0]
	a.items = a.items[1:]
	return first
}

// Attrs returns the secondary attribute map, creating it on first use.
func (a *Array) Attrs() *Map {
	if a.attrs == nil {
		a.attrs = NewMap()
	}
	return a.attrs
}

// NewArray returns an array that takes ownership of items.
func NewArray(items []Object) *Array {
	if items == nil {
		items = []Object{}
	}
	return &Array{items: items}
}

func inspectNested(obj Object) string {
	if s, ok := obj.(*String); ok {
		return s.Inspect()
	}
	if obj == nil {
		return "undefined"
	}
	return obj.Inspect()
}
