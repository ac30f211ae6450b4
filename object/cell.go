package object

import (
	"fmt"
	"strings"
)

// Cell is a boxed mutable value shared between the frame that defines a
// variable and every closure that captures it.
type Cell struct {
	value Object
}

func (c *Cell) Type() Type { return CELL }

func (c *Cell) Inspect() string {
	return fmt.Sprintf("cell(%s)", c.Value().Inspect())
}

func (c *Cell) Interface() any { return c.Value().Interface() }

// Value returns the boxed value, or Undefined if the cell is empty.
func (c *Cell) Value() Object {
	if c.value == nil {
		return Undefined
	}
	return c.value
}

func (c *Cell) Set(value Object) { c.value = value }

// Clear empties the cell.
func (c *Cell) Clear() { c.value = nil }

func NewCell(value Object) *Cell {
	return &Cell{value: value}
}

// Tuple is the fixed list of cells a closure captures.
type Tuple struct {
	items []Object
}

func (t *Tuple) Type() Type { return TUPLE }

func (t *Tuple) Inspect() string {
	parts := make([]string, len(t.items))
	for i, item := range t.items {
		parts[i] = item.Inspect()
	}
	return "(" + strings.Join(parts, ", ") + ")"
}

func (t *Tuple) Interface() any {
	out := make([]any, len(t.items))
	for i, item := range t.items {
		out[i] = item.Interface()
	}
	return out
}

func (t *Tuple) Items() []Object { return t.items }

// Cells returns the tuple entries that are cells.
func (t *Tuple) Cells() []*Cell {
	cells := make([]*Cell, 0, len(t.items))
	for _, item := range t.items {
		if c, ok := item.(*Cell); ok {
			cells = append(cells, c)
		}
	}
	return cells
}

func NewTuple(items []Object) *Tuple {
	return &Tuple{items: items}
}
