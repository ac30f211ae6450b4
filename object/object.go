// Package object provides the value model of the VM.
//
// Every runtime value is one of a closed set of types. Callers usually
// type switch on the concrete type:
//
//	switch v := obj.(type) {
//	case *object.String:
//		// v.Value()
//	case *object.Number:
//		// v.Value()
//	}
//
// Coercion and operator semantics live in operations.go as plain functions
// over that closed set rather than as methods on each type.
package object

import (
	"context"
	"math"
	"strconv"
)

// Type of an object as a string.
type Type string

// Type constants
const (
	UNDEFINED Type = "undefined"
	NULL      Type = "null"
	BOOL      Type = "bool"
	NUMBER    Type = "number"
	STRING    Type = "string"
	ARRAY     Type = "array"
	OBJECT    Type = "object"
	CLOSURE   Type = "closure"
	BUILTIN   Type = "builtin"
	CELL      Type = "cell"
	TUPLE     Type = "tuple"
	SET       Type = "set"
	PROMISE   Type = "promise"
	SCOPE     Type = "scope"
)

var (
	Undefined = &UndefinedType{}
	Null      = &NullType{}
	True      = &Bool{value: true}
	False     = &Bool{value: false}
	NaN       = &Number{value: math.NaN()}
)

// Object is the interface that all value types implement.
type Object interface {
	// Type of the object.
	Type() Type

	// Inspect returns a developer-facing representation of the object.
	Inspect() string

	// Interface converts the object to a native Go value.
	Interface() any
}

// Callable is implemented by *Builtin and *Closure. Closures are executed
// through the CallFunc installed in the context by the VM.
type Callable interface {
	Call(ctx context.Context, args ...Object) (Object, error)
}

type UndefinedType struct{}

func (u *UndefinedType) Type() Type      { return UNDEFINED }
func (u *UndefinedType) Inspect() string { return "undefined" }
func (u *UndefinedType) Interface() any  { return nil }

type NullType struct{}

func (n *NullType) Type() Type      { return NULL }
func (n *NullType) Inspect() string { return "null" }
func (n *NullType) Interface() any  { return nil }

type Bool struct {
	value bool
}

func (b *Bool) Type() Type      { return BOOL }
func (b *Bool) Value() bool     { return b.value }
func (b *Bool) Interface() any  { return b.value }
func (b *Bool) Inspect() string { return strconv.FormatBool(b.value) }

// NewBool returns the shared True or False value.
func NewBool(value bool) *Bool {
	if value {
		return True
	}
	return False
}

type Number struct {
	value float64
}

func (n *Number) Type() Type      { return NUMBER }
func (n *Number) Value() float64  { return n.value }
func (n *Number) Interface() any  { return n.value }
func (n *Number) Inspect() string { return FormatNumber(n.value) }
func (n *Number) String() string  { return FormatNumber(n.value) }

func NewNumber(value float64) *Number {
	return &Number{value: value}
}

// IsNullish reports whether obj is null or undefined.
func IsNullish(obj Object) bool {
	switch obj.(type) {
	case *UndefinedType, *NullType:
		return true
	}
	return false
}
