package object

import (
	"fmt"
)

// ThrownError carries a thrown value through Go code. A native function
// that returns one throws that value into the running program.
type ThrownError struct {
	Value Object
}

func (e *ThrownError) Error() string {
	return Describe(e.Value)
}

// Throw wraps value for raising from a native function.
func Throw(value Object) *ThrownError {
	return &ThrownError{Value: value}
}

// NewError builds an error object with name and message attributes.
func NewError(name, message string) *Map {
	m := NewMap()
	m.Set("name", NewString(name))
	m.Set("message", NewString(message))
	return m
}

// TypeErrorf returns a thrown TypeError object.
func TypeErrorf(format string, args ...any) *ThrownError {
	return Throw(NewError("TypeError", fmt.Sprintf(format, args...)))
}

// RangeErrorf returns a thrown RangeError object.
func RangeErrorf(format string, args ...any) *ThrownError {
	return Throw(NewError("RangeError", fmt.Sprintf(format, args...)))
}

// Describe renders a thrown value for error messages. Error objects render
// as "name: message".
func Describe(value Object) string {
	if m, ok := value.(*Map); ok {
		name, hasName := m.Get("name")
		msg, hasMsg := m.Get("message")
		if hasName && hasMsg {
			return ToString(name) + ": " + ToString(msg)
		}
	}
	if value == nil {
		return "undefined"
	}
	switch value.(type) {
	case *String, *Number, *Bool, *UndefinedType, *NullType:
		return ToString(value)
	}
	return value.Inspect()
}
