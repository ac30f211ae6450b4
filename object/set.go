package object

import (
	"math"
	"strings"
)

type nanKey struct{}

// Set holds distinct values in insertion order. Primitive values compare by
// value and everything else by identity.
type Set struct {
	items []Object
	index map[any]int
}

func (s *Set) Type() Type { return SET }

func (s *Set) Inspect() string {
	parts := make([]string, len(s.items))
	for i, item := range s.items {
		parts[i] = inspectNested(item)
	}
	return "Set(" + strings.Join(parts, ", ") + ")"
}

func (s *Set) Interface() any {
	out := make([]any, len(s.items))
	for i, item := range s.items {
		out[i] = item.Interface()
	}
	return out
}

func (s *Set) Len() int { return len(s.items) }

func (s *Set) Items() []Object { return s.items }

func (s *Set) Add(obj Object) {
	key := setKey(obj)
	if _, ok := s.index[key]; ok {
		return
	}
	s.index[key] = len(s.items)
	s.items = append(s.items, obj)
}

func (s *Set) Has(obj Object) bool {
	_, ok := s.index[setKey(obj)]
	return ok
}

func (s *Set) Delete(obj Object) bool {
	key := setKey(obj)
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	delete(s.index, key)
	for j := i; j < len(s.items); j++ {
		s.index[setKey(s.items[j])] = j
	}
	return true
}

func NewSet(items ...Object) *Set {
	s := &Set{index: map[any]int{}}
	for _, item := range items {
		s.Add(item)
	}
	return s
}

func setKey(obj Object) any {
	switch v := obj.(type) {
	case *Number:
		if math.IsNaN(v.value) {
			return nanKey{}
		}
		if v.value == 0 {
			return 0.0
		}
		return v.value
	case *String:
		return "s:" + v.value
	case *Bool:
		return v.value
	case *UndefinedType, *NullType:
		return obj.Type()
	}
	return obj
}
