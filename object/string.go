package object

import (
	"strconv"
	"unicode/utf8"
)

// String is an immutable string. Indexing and length are in code points.
type String struct {
	value string
}

func (s *String) Type() Type      { return STRING }
func (s *String) Value() string   { return s.value }
func (s *String) Interface() any  { return s.value }
func (s *String) Inspect() string { return strconv.Quote(s.value) }
func (s *String) String() string  { return s.value }

// Len returns the number of code points in the string.
func (s *String) Len() int {
	return utf8.RuneCountInString(s.value)
}

// At returns the code point at index i as a one character string.
func (s *String) At(i int) (*String, bool) {
	if i < 0 {
		return nil, false
	}
	for j, r := range []rune(s.value) {
		if j == i {
			return NewString(string(r)), true
		}
	}
	return nil, false
}

func NewString(s string) *String {
	return &String{value: s}
}
