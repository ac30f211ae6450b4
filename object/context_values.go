package object

import (
	"context"
)

type contextKey string

// CallFunc runs a closure to completion and returns its result.
type CallFunc func(ctx context.Context, fn *Closure, args []Object) (Object, error)

const callFuncKey = contextKey("daedalus:call")

// WithCallFunc adds a CallFunc to the context, which natives use to call
// back into compiled code.
func WithCallFunc(ctx context.Context, fn CallFunc) context.Context {
	return context.WithValue(ctx, callFuncKey, fn)
}

// GetCallFunc returns the CallFunc from the context, if it exists.
func GetCallFunc(ctx context.Context) (CallFunc, bool) {
	if fn, ok := ctx.Value(callFuncKey).(CallFunc); ok && fn != nil {
		return fn, true
	}
	return nil, false
}

// Call invokes any callable value.
func Call(ctx context.Context, fn Object, args ...Object) (Object, error) {
	callable, ok := fn.(Callable)
	if !ok {
		return nil, TypeErrorf("%s is not a function", TypeOf(fn))
	}
	return callable.Call(ctx, args...)
}
