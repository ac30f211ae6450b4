package object

import (
	"context"
	"fmt"
)

// PromiseState is the settlement state of a Promise.
type PromiseState int

const (
	Pending PromiseState = iota
	Fulfilled
	Rejected
)

func (s PromiseState) String() string {
	switch s {
	case Fulfilled:
		return "fulfilled"
	case Rejected:
		return "rejected"
	}
	return "pending"
}

type reaction struct {
	onFulfilled Object
	onRejected  Object
	onFinally   Object
}

// Promise is a settle-once value container. Reactions registered before
// settlement run when it settles; reactions registered afterwards run
// immediately. There is no microtask queue.
type Promise struct {
	state     PromiseState
	value     Object
	reactions []reaction
}

func (p *Promise) Type() Type { return PROMISE }

func (p *Promise) Inspect() string {
	if p.state == Pending {
		return "Promise { <pending> }"
	}
	return fmt.Sprintf("Promise { <%s> %s }", p.state, p.value.Inspect())
}

func (p *Promise) Interface() any { return p }

func (p *Promise) State() PromiseState { return p.state }

// Value returns the fulfillment value or rejection reason.
func (p *Promise) Value() Object {
	if p.value == nil {
		return Undefined
	}
	return p.value
}

// Resolve fulfills a pending promise and runs its reactions.
func (p *Promise) Resolve(ctx context.Context, value Object) error {
	return p.settle(ctx, Fulfilled, value)
}

// Reject rejects a pending promise and runs its reactions.
func (p *Promise) Reject(ctx context.Context, reason Object) error {
	return p.settle(ctx, Rejected, reason)
}

func (p *Promise) settle(ctx context.Context, state PromiseState, value Object) error {
	if p.state != Pending {
		return nil
	}
	p.state = state
	p.value = value
	reactions := p.reactions
	p.reactions = nil
	for _, r := range reactions {
		if err := p.dispatch(ctx, r); err != nil {
			return err
		}
	}
	return nil
}

func (p *Promise) dispatch(ctx context.Context, r reaction) error {
	var fn Object
	var args []Object
	switch {
	case r.onFinally != nil:
		fn = r.onFinally
	case p.state == Fulfilled:
		fn, args = r.onFulfilled, []Object{p.Value()}
	default:
		fn, args = r.onRejected, []Object{p.Value()}
	}
	if fn == nil || IsNullish(fn) {
		return nil
	}
	_, err := Call(ctx, fn, args...)
	return err
}

func (p *Promise) react(ctx context.Context, r reaction) error {
	if p.state == Pending {
		p.reactions = append(p.reactions, r)
		return nil
	}
	return p.dispatch(ctx, r)
}

// Then registers fulfillment and rejection handlers. Either may be nil.
func (p *Promise) Then(ctx context.Context, onFulfilled, onRejected Object) error {
	return p.react(ctx, reaction{onFulfilled: onFulfilled, onRejected: onRejected})
}

// Finally registers a handler called with no arguments on settlement.
func (p *Promise) Finally(ctx context.Context, fn Object) error {
	return p.react(ctx, reaction{onFinally: fn})
}

// NewPromise returns a pending promise.
func NewPromise() *Promise {
	return &Promise{}
}

// ResolvingFunctions returns the resolve and reject builtins handed to a
// promise executor.
func (p *Promise) ResolvingFunctions() (*Builtin, *Builtin) {
	resolve := NewBuiltin("resolve", func(ctx context.Context, args ...Object) (Object, error) {
		return Undefined, p.Resolve(ctx, Arg(args, 0))
	})
	reject := NewBuiltin("reject", func(ctx context.Context, args ...Object) (Object, error) {
		return Undefined, p.Reject(ctx, Arg(args, 0))
	})
	return resolve, reject
}

func promiseMethod(p *Promise, name string) *Builtin {
	switch name {
	case "then":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			return p, p.Then(ctx, Arg(args, 0), Arg(args, 1))
		})
	case "catch":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			return p, p.Then(ctx, nil, Arg(args, 0))
		})
	case "finally":
		return method(name, func(ctx context.Context, args ...Object) (Object, error) {
			return p, p.Finally(ctx, Arg(args, 0))
		})
	}
	return nil
}
