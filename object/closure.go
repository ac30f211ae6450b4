package object

import (
	"context"
	"fmt"

	"github.com/daedalus-js/daedalus/compiler"
)

// Closure is a compiled function together with the cells it captured, its
// materialized default argument values and an optional bound receiver.
type Closure struct {
	def      *compiler.FunctionDef
	cells    []*Cell
	defaults []Object
	kwargs   *Map
	this     Object
	autobind bool
	attrs    *Map
}

func (c *Closure) Type() Type { return CLOSURE }

func (c *Closure) Inspect() string {
	return fmt.Sprintf("function %s() { [bytecode] }", c.Name())
}

func (c *Closure) Interface() any { return c }

func (c *Closure) Name() string {
	if c.def.Name == "" {
		return "<anonymous>"
	}
	return c.def.Name
}

func (c *Closure) Def() *compiler.FunctionDef { return c.def }

// Cells returns the captured cells in free variable order.
func (c *Closure) Cells() []*Cell { return c.cells }

// Defaults returns one value per argument label.
func (c *Closure) Defaults() []Object { return c.defaults }

// Kwargs returns the keyword argument template captured at creation.
func (c *Closure) Kwargs() *Map { return c.kwargs }

// This returns the bound receiver, or nil if none is bound.
func (c *Closure) This() Object { return c.this }

func (c *Closure) Autobind() bool { return c.autobind }

// Attrs returns the dynamic attributes set on the function value.
func (c *Closure) Attrs() *Map {
	if c.attrs == nil {
		c.attrs = NewMap()
	}
	return c.attrs
}

// Bind returns a copy of the closure with this bound to receiver.
func (c *Closure) Bind(receiver Object) *Closure {
	bound := *c
	bound.this = receiver
	bound.autobind = true
	return &bound
}

// Call runs the closure through the CallFunc found in ctx.
func (c *Closure) Call(ctx context.Context, args ...Object) (Object, error) {
	call, ok := GetCallFunc(ctx)
	if !ok {
		return nil, fmt.Errorf("no call function in context for %s", c.Name())
	}
	return call(ctx, c, args)
}

// ClosureOption configures a new Closure.
type ClosureOption func(*Closure)

// WithThis binds the receiver of an autobind closure.
func WithThis(this Object) ClosureOption {
	return func(c *Closure) {
		c.this = this
	}
}

// NewClosure creates a function value. A nil cells slice means the function
// captures nothing.
func NewClosure(def *compiler.FunctionDef, defaults []Object, kwargs *Map, autobind bool, cells []*Cell, opts ...ClosureOption) *Closure {
	if kwargs == nil {
		kwargs = NewMap()
	}
	c := &Closure{
		def:      def,
		cells:    cells,
		defaults: defaults,
		kwargs:   kwargs,
		autobind: autobind,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
