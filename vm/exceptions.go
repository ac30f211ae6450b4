package vm

import (
	"errors"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
)

// tryBlock records a TRY that has not reached its TRYEND.
type tryBlock struct {
	catchIP        int
	finallyIP      int
	sp             int
	caught         bool
	finallyEntered bool

	// exc is the exception routed to this block, if any.
	exc *exception
}

// exception is a thrown value on its way to a handler. prev links to the
// exception that was in flight when this one was thrown.
type exception struct {
	value   object.Object
	stack   []errz.StackFrame
	loc     errz.SourceLocation
	handled bool
	prev    *exception
}

// throw raises value at the current instruction. It returns nil when a
// handler in a frame at or above base takes the exception, otherwise the
// error that ends the evaluation.
func (vm *VirtualMachine) throw(value object.Object, base int) error {
	exc := &exception{
		value: value,
		stack: vm.captureStack(),
		loc:   vm.currentLocation(),
		prev:  vm.exc,
	}
	if vm.observer != nil && vm.observerConfig.ObserveThrows {
		if !vm.observer.OnThrow(ThrowEvent{
			Value:      object.Describe(value),
			Location:   exc.loc,
			FrameDepth: len(vm.frames),
		}) {
			return vm.haltedByObserver()
		}
	}
	vm.exc = exc
	return vm.unwind(exc, base)
}

// unwind sends exc to the innermost try block whose handlers have not run
// yet, popping finished blocks and frames on the way.
func (vm *VirtualMachine) unwind(exc *exception, base int) error {
	for len(vm.frames) > base {
		fr := vm.frames[len(vm.frames)-1]
		for len(fr.blocks) > 0 {
			b := fr.blocks[len(fr.blocks)-1]
			if b.finallyEntered {
				fr.blocks = fr.blocks[:len(fr.blocks)-1]
				continue
			}
			b.exc = exc
			if b.caught {
				fr.ip = b.finallyIP
			} else {
				fr.ip = b.catchIP
			}
			fr.truncate(b.sp)
			fr.returning = nil
			return nil
		}
		vm.popFrame()
	}
	return vm.uncaught(exc, base)
}

// uncaught builds the error for an exception that found no handler. Below
// the bottom frame it ends Run; inside a native callback it is handed back
// to the native as a ThrownError.
func (vm *VirtualMachine) uncaught(exc *exception, base int) error {
	vm.exc = exc.prev
	thrown := object.Throw(exc.value)
	if base > 0 {
		vm.escaped[thrown] = exc
		return thrown
	}
	return errz.NewStructuredErrorf(errz.ErrUncaught, exc.loc, exc.stack,
		"%s", object.Describe(exc.value)).WithCause(thrown)
}

// raise converts an error returned by an operation or native function. A
// ThrownError becomes a JS exception. Other errors end the evaluation.
func (vm *VirtualMachine) raise(err error, base int) error {
	var thrown *object.ThrownError
	if errors.As(err, &thrown) {
		if exc, ok := vm.escaped[thrown]; ok {
			// Rethrow from a native with the stack of the original throw.
			delete(vm.escaped, thrown)
			exc.handled = false
			exc.prev = vm.exc
			vm.exc = exc
			return vm.unwind(exc, base)
		}
		return vm.throw(thrown.Value, base)
	}
	var structured *errz.StructuredError
	if errors.As(err, &structured) {
		return err
	}
	return vm.fault(errz.ErrRuntime, "%v", err).WithCause(err)
}

// catchValue implements CATCH.
func (vm *VirtualMachine) catchValue(fr *frame) error {
	b := fr.currentBlock()
	if b == nil || b.exc == nil {
		return vm.fault(errz.ErrRuntime, "catch without an active exception")
	}
	b.exc.handled = true
	b.caught = true
	fr.push(b.exc.value)
	return nil
}

// endTry implements TRYEND. It reports done when a pending return left the
// bottom frame.
func (vm *VirtualMachine) endTry(fr *frame, base int) (result object.Object, done bool, err error) {
	b := fr.currentBlock()
	if b == nil {
		return nil, false, vm.fault(errz.ErrRuntime, "tryend without an active try")
	}
	fr.blocks = fr.blocks[:len(fr.blocks)-1]
	if exc := b.exc; exc != nil {
		if !exc.handled {
			return nil, false, vm.unwind(exc, base)
		}
		vm.exc = exc.prev
	}
	if fr.returning != nil {
		value := fr.returning
		fr.returning = nil
		return vm.doReturn(fr, value, base)
	}
	return nil, false, nil
}

func (f *frame) currentBlock() *tryBlock {
	if len(f.blocks) == 0 {
		return nil
	}
	return f.blocks[len(f.blocks)-1]
}
