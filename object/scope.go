package object

import (
	"strings"
)

// ScopeBinding exposes the named variables of a live activation.
type ScopeBinding interface {
	Lookup(name string) (Object, bool)
	Assign(name string, value Object) bool
	Names() []string
}

// Scope is the this value of a function called without a bound receiver.
// Its attributes read and write the variables of the activation; names the
// activation does not define are kept in a side map.
type Scope struct {
	binding ScopeBinding
	extras  *Map
}

func (s *Scope) Type() Type { return SCOPE }

func (s *Scope) Inspect() string {
	names := s.binding.Names()
	parts := make([]string, 0, len(names))
	for _, name := range names {
		if v, ok := s.binding.Lookup(name); ok {
			parts = append(parts, name+": "+inspectNested(v))
		}
	}
	for _, k := range s.extras.Keys() {
		v, _ := s.extras.Get(k)
		parts = append(parts, k+": "+inspectNested(v))
	}
	return "{" + strings.Join(parts, ", ") + "}"
}

func (s *Scope) Interface() any {
	out := map[string]any{}
	for _, name := range s.binding.Names() {
		if v, ok := s.binding.Lookup(name); ok {
			out[name] = v.Interface()
		}
	}
	for _, k := range s.extras.Keys() {
		v, _ := s.extras.Get(k)
		out[k] = v.Interface()
	}
	return out
}

// Keys returns the names of the bound variables that hold a value,
// followed by the extra keys.
func (s *Scope) Keys() []string {
	var keys []string
	for _, name := range s.binding.Names() {
		if _, ok := s.binding.Lookup(name); ok {
			keys = append(keys, name)
		}
	}
	return append(keys, s.extras.Keys()...)
}

func (s *Scope) Get(name string) (Object, bool) {
	if v, ok := s.binding.Lookup(name); ok {
		return v, true
	}
	return s.extras.Get(name)
}

func (s *Scope) Set(name string, value Object) {
	if !s.binding.Assign(name, value) {
		s.extras.Set(name, value)
	}
}

func (s *Scope) Delete(name string) bool {
	return s.extras.Delete(name)
}

func (s *Scope) Has(name string) bool {
	_, ok := s.Get(name)
	return ok
}

func NewScope(binding ScopeBinding) *Scope {
	return &Scope{binding: binding, extras: NewMap()}
}
