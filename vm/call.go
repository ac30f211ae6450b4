package vm

import (
	"context"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
)

// call invokes fn from the running frame. Compiled functions get a new
// frame and run in the same loop. Builtins run immediately and their result
// is pushed onto fr.
func (vm *VirtualMachine) call(ctx context.Context, fr *frame, fn object.Object, args []object.Object, kwargs *object.Map, base int) error {
	switch fn := fn.(type) {
	case *object.Closure:
		return vm.enter(fn, args, kwargs)
	case *object.Builtin:
		if err := vm.observeCall(fn.Name(), len(args), true); err != nil {
			return err
		}
		bound, err := fn.BindKwargs(args, kwargs)
		if err != nil {
			return vm.raise(err, base)
		}
		result, err := fn.Call(ctx, bound...)
		if err != nil {
			return vm.raise(err, base)
		}
		if result == nil {
			result = object.Undefined
		}
		fr.push(result)
		return nil
	}
	return vm.throw(object.TypeErrorf("%s is not a function", object.TypeOf(fn)).Value, base)
}

// enter pushes a frame for fn with its arguments bound.
func (vm *VirtualMachine) enter(fn *object.Closure, args []object.Object, kwargs *object.Map) error {
	if len(vm.frames) >= vm.maxFrameDepth {
		return vm.fault(errz.ErrRuntime, "maximum call depth exceeded (%d)", vm.maxFrameDepth)
	}
	def := fn.Def()
	fr := newFrame(def, fn)

	filled := map[int]bool{}
	bindKwargs := func(m *object.Map) {
		if m == nil {
			return
		}
		for _, key := range m.Keys() {
			v, _ := m.Get(key)
			if idx, ok := def.Locals.Index(key); ok && key != "this" {
				fr.locals[idx] = v
				filled[idx] = true
				continue
			}
			fr.Scope().Set(key, v)
		}
	}
	bindKwargs(fn.Kwargs())
	bindKwargs(kwargs)

	// Positionals bind by slot. A keyword for the same label wins and the
	// positional value in that slot is dropped.
	defaults := fn.Defaults()
	for i, label := range def.ArgLabels {
		idx, _ := def.Locals.Index(label)
		if filled[idx] {
			continue
		}
		var v object.Object = object.Undefined
		if i < len(args) {
			v = args[i]
		}
		if v == object.Undefined && i < len(defaults) && defaults[i] != nil {
			v = defaults[i]
		}
		fr.locals[idx] = v
	}
	if def.RestIndex >= 0 {
		var rest []object.Object
		if n := len(def.ArgLabels); n < len(args) {
			rest = append(rest, args[n:]...)
		}
		fr.locals[def.RestIndex] = object.NewArray(rest)
	}

	captured := fn.Cells()
	if len(captured) < len(def.FreeCellIndex) {
		return vm.fault(errz.ErrRuntime, "%s expects %d captured cells, got %d",
			fn.Name(), len(def.FreeCellIndex), len(captured))
	}
	for j, ci := range def.FreeCellIndex {
		fr.cells[ci] = captured[j]
	}
	for i, ci := range def.ParamCells {
		if ci < 0 {
			continue
		}
		idx, _ := def.Locals.Index(def.ArgLabels[i])
		fr.cell(ci).Set(fr.local(idx))
	}
	if def.RestCell >= 0 && def.RestIndex >= 0 {
		fr.cell(def.RestCell).Set(fr.local(def.RestIndex))
	}

	if fn.Autobind() && fn.This() != nil {
		fr.this = fn.This()
	} else {
		fr.this = fr.Scope()
	}
	if def.ThisIndex >= 0 {
		fr.locals[def.ThisIndex] = fr.this
	}

	if err := vm.observeCall(fn.Name(), len(args), false); err != nil {
		return err
	}
	vm.frames = append(vm.frames, fr)
	return nil
}

// doReturn leaves fr with value. A try block whose finally has not run
// yet intercepts the return and resumes it at its TRYEND.
func (vm *VirtualMachine) doReturn(fr *frame, value object.Object, base int) (object.Object, bool, error) {
	for len(fr.blocks) > 0 {
		b := fr.blocks[len(fr.blocks)-1]
		if !b.finallyEntered {
			fr.returning = value
			fr.truncate(b.sp)
			fr.ip = b.finallyIP
			return nil, false, nil
		}
		// Returning from inside a finally discards the exception it was
		// running for.
		fr.blocks = fr.blocks[:len(fr.blocks)-1]
		if b.exc != nil {
			vm.exc = b.exc.prev
		}
	}
	if n := len(fr.stack); n > 0 {
		vm.log.Warn().
			Str("function", fr.name()).
			Int("depth", n).
			Msg("operand stack not empty after return")
	}
	if vm.observer != nil && vm.observerConfig.ObserveReturns {
		if !vm.observer.OnReturn(ReturnEvent{
			FunctionName: fr.def.Name,
			Location:     vm.locationOf(fr, fr.ip-1),
			FrameDepth:   len(vm.frames) - 1,
		}) {
			return nil, false, vm.haltedByObserver()
		}
	}
	vm.popFrame()
	if len(vm.frames) <= base {
		return value, true, nil
	}
	vm.frames[len(vm.frames)-1].push(value)
	return nil, false, nil
}

func (vm *VirtualMachine) popFrame() {
	n := len(vm.frames)
	vm.frames[n-1] = nil
	vm.frames = vm.frames[:n-1]
}

// callFunction runs fn to completion on top of the current frames. It is
// the CallFunc natives use to call back into compiled code.
func (vm *VirtualMachine) callFunction(ctx context.Context, fn *object.Closure, args []object.Object) (object.Object, error) {
	base := len(vm.frames)
	if err := vm.enter(fn, args, nil); err != nil {
		return nil, err
	}
	result, err := vm.eval(ctx, base)
	if err != nil {
		for len(vm.frames) > base {
			vm.popFrame()
		}
		return nil, err
	}
	return result, nil
}

func (vm *VirtualMachine) observeCall(name string, argc int, native bool) error {
	if vm.observer == nil || !vm.observerConfig.ObserveCalls {
		return nil
	}
	if !vm.observer.OnCall(CallEvent{
		FunctionName: name,
		ArgCount:     argc,
		Native:       native,
		Location:     vm.currentLocation(),
		FrameDepth:   len(vm.frames) + 1,
	}) {
		return vm.haltedByObserver()
	}
	return nil
}
