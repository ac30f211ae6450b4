package vm

import (
	"errors"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/object"
)

var errStackUnderflow = errors.New("stack underflow")

// frame is one function activation. Each frame owns its operand stack, so
// suspending or unwinding a frame never disturbs the others.
type frame struct {
	def     *compiler.FunctionDef
	closure *object.Closure // nil for the module body
	ip      int
	stack   []object.Object
	locals  []object.Object
	cells   []*object.Cell
	blocks  []*tryBlock
	this    object.Object
	scope   *object.Scope

	// returning holds the value of a return waiting for finally blocks.
	returning object.Object
}

func newFrame(def *compiler.FunctionDef, closure *object.Closure) *frame {
	return &frame{
		def:     def,
		closure: closure,
		stack:   make([]object.Object, 0, 16),
		locals:  make([]object.Object, def.Locals.Len()),
		cells:   make([]*object.Cell, def.Cells.Len()),
	}
}

func (f *frame) name() string {
	if f.def.Name == "" {
		return "<anonymous>"
	}
	return f.def.Name
}

func (f *frame) push(obj object.Object) {
	f.stack = append(f.stack, obj)
}

func (f *frame) pop() object.Object {
	n := len(f.stack)
	if n == 0 {
		panic(errStackUnderflow)
	}
	obj := f.stack[n-1]
	f.stack[n-1] = nil
	f.stack = f.stack[:n-1]
	return obj
}

func (f *frame) top() object.Object {
	if len(f.stack) == 0 {
		panic(errStackUnderflow)
	}
	return f.stack[len(f.stack)-1]
}

// popN removes the top n values and returns them in push order.
func (f *frame) popN(n int) []object.Object {
	if n < 0 || n > len(f.stack) {
		panic(errStackUnderflow)
	}
	start := len(f.stack) - n
	items := make([]object.Object, n)
	copy(items, f.stack[start:])
	for i := start; i < len(f.stack); i++ {
		f.stack[i] = nil
	}
	f.stack = f.stack[:start]
	return items
}

func (f *frame) truncate(sp int) {
	for i := sp; i < len(f.stack); i++ {
		f.stack[i] = nil
	}
	if sp < len(f.stack) {
		f.stack = f.stack[:sp]
	}
}

// cell returns the reference at idx, creating it on first access.
func (f *frame) cell(idx int) *object.Cell {
	c := f.cells[idx]
	if c == nil {
		c = object.NewCell(nil)
		f.cells[idx] = c
	}
	return c
}

func (f *frame) local(idx int) object.Object {
	if v := f.locals[idx]; v != nil {
		return v
	}
	return object.Undefined
}

// Scope returns the object that proxies this frame's variables.
func (f *frame) Scope() *object.Scope {
	if f.scope == nil {
		f.scope = object.NewScope(f)
	}
	return f.scope
}

// Lookup implements object.ScopeBinding.
func (f *frame) Lookup(name string) (object.Object, bool) {
	if idx, ok := f.def.Cells.Index(name); ok {
		if c := f.cells[idx]; c != nil {
			return c.Value(), true
		}
	}
	if idx, ok := f.def.Locals.Index(name); ok {
		if v := f.locals[idx]; v != nil {
			return v, true
		}
	}
	return nil, false
}

// Assign implements object.ScopeBinding.
func (f *frame) Assign(name string, value object.Object) bool {
	if idx, ok := f.def.Cells.Index(name); ok {
		f.cell(idx).Set(value)
		return true
	}
	if idx, ok := f.def.Locals.Index(name); ok {
		f.locals[idx] = value
		return true
	}
	return false
}

// Names implements object.ScopeBinding. The implicit this and rest
// locals are not listed.
func (f *frame) Names() []string {
	var names []string
	seen := map[string]bool{"this": true, compiler.DefaultRestName: true}
	for _, name := range f.def.Locals.Names() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, name := range f.def.Cells.Names() {
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	return names
}

var _ object.ScopeBinding = (*frame)(nil)
