package object

import (
	"context"
	"fmt"
)

// BuiltinFunction is the signature of a native function.
type BuiltinFunction func(ctx context.Context, args ...Object) (Object, error)

// Builtin wraps a native function. Params names the positional slots that
// keyword arguments may fill.
type Builtin struct {
	name   string
	fn     BuiltinFunction
	params []string
	attrs  *Map
}

func (b *Builtin) Type() Type { return BUILTIN }

func (b *Builtin) Inspect() string {
	return fmt.Sprintf("function %s() { [native code] }", b.name)
}

func (b *Builtin) Interface() any { return b.fn }

func (b *Builtin) Name() string { return b.name }

func (b *Builtin) Params() []string { return b.params }

// Attrs returns the static attributes of the builtin, such as Array.isArray.
func (b *Builtin) Attrs() *Map {
	if b.attrs == nil {
		b.attrs = NewMap()
	}
	return b.attrs
}

func (b *Builtin) Call(ctx context.Context, args ...Object) (Object, error) {
	return b.fn(ctx, args...)
}

// BindKwargs places keyword arguments into their named positional slots.
func (b *Builtin) BindKwargs(args []Object, kwargs *Map) ([]Object, error) {
	if kwargs == nil || kwargs.Len() == 0 {
		return args, nil
	}
	out := append([]Object{}, args...)
	for _, key := range kwargs.Keys() {
		slot := -1
		for i, p := range b.params {
			if p == key {
				slot = i
				break
			}
		}
		if slot < 0 {
			return nil, TypeErrorf("%s() got an unexpected keyword argument %q", b.name, key)
		}
		for len(out) <= slot {
			out = append(out, Undefined)
		}
		v, _ := kwargs.Get(key)
		out[slot] = v
	}
	return out, nil
}

// NewBuiltin returns a native function value.
func NewBuiltin(name string, fn BuiltinFunction, params ...string) *Builtin {
	return &Builtin{name: name, fn: fn, params: params}
}

// Arg returns args[i], or Undefined when fewer arguments were passed.
func Arg(args []Object, i int) Object {
	if i < len(args) {
		return args[i]
	}
	return Undefined
}
