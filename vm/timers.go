package vm

import (
	"context"
	"errors"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
)

// runTimers dispatches scheduled callbacks once the main body has
// finished. Uncaught exceptions in callbacks are collected and returned
// together; host faults stop dispatch immediately.
func (vm *VirtualMachine) runTimers(ctx context.Context) error {
	var errs *multierror.Error
	dispatched := 0
	for {
		wait, ok := vm.sched.untilNext()
		if !ok {
			break
		}
		if wait > 0 {
			if !vm.drainTimers {
				vm.log.Debug().
					Int("pending", vm.sched.pending()).
					Msg("leaving timers undispatched")
				break
			}
			if err := vm.sleep(ctx, wait); err != nil {
				return err
			}
		}
		t := vm.sched.popDue()
		if t == nil {
			continue
		}
		dispatched++
		vm.log.Debug().
			Int("timer", t.id).
			Bool("interval", t.repeat).
			Msg("dispatching timer")
		if err := vm.dispatch(ctx, t); err != nil {
			if errz.IsUncaught(err) {
				vm.log.Warn().Int("timer", t.id).Err(err).Msg("uncaught exception in timer callback")
				errs = multierror.Append(errs, err)
				continue
			}
			return multierror.Append(errs, err).ErrorOrNil()
		}
	}
	if dispatched > 0 {
		vm.log.Debug().Int("dispatched", dispatched).Msg("timers drained")
	}
	return errs.ErrorOrNil()
}

// dispatch runs one timer callback on an empty frame stack.
func (vm *VirtualMachine) dispatch(ctx context.Context, t *timer) error {
	if fn, ok := t.fn.(*object.Closure); ok {
		_, err := vm.callFunction(ctx, fn, t.args)
		return err
	}
	_, err := object.Call(ctx, t.fn, t.args...)
	if err == nil {
		return nil
	}
	var thrown *object.ThrownError
	if errors.As(err, &thrown) {
		return errz.NewStructuredErrorf(errz.ErrUncaught, errz.SourceLocation{Filename: vm.mod.Filename}, nil,
			"%s", object.Describe(thrown.Value)).WithCause(thrown)
	}
	return err
}

// millis converts a JS delay to a duration. NaN and negative delays are
// zero.
func millis(v object.Object) time.Duration {
	ms := object.ToNumber(v)
	if ms != ms || ms <= 0 {
		return 0
	}
	return time.Duration(ms * float64(time.Millisecond))
}

func (vm *VirtualMachine) setTimer(args []object.Object, repeat bool) (object.Object, error) {
	fn := object.Arg(args, 0)
	if _, ok := fn.(object.Callable); !ok {
		return nil, object.TypeErrorf("%s is not a function", object.TypeOf(fn))
	}
	var extra []object.Object
	if len(args) > 2 {
		extra = append(extra, args[2:]...)
	}
	id, err := vm.sched.add(fn, millis(object.Arg(args, 1)), extra, repeat)
	if err != nil {
		return nil, err
	}
	return object.NewNumber(float64(id)), nil
}

func (vm *VirtualMachine) clearTimer(args []object.Object) (object.Object, error) {
	if id := object.Arg(args, 0); !object.IsNullish(id) {
		vm.sched.cancel(int(object.ToNumber(id)))
	}
	return object.Undefined, nil
}

// wait sleeps for up to timeout milliseconds, returning early when the
// next timer falls due, and reports how many milliseconds it slept.
func (vm *VirtualMachine) wait(ctx context.Context, args ...object.Object) (object.Object, error) {
	timeout := 1000 * time.Millisecond
	if v := object.Arg(args, 0); v != object.Undefined {
		timeout = millis(v)
	}
	d := timeout
	if next, ok := vm.sched.untilNext(); ok && next < d {
		d = next
	}
	if d > 0 {
		if err := vm.sleep(ctx, d); err != nil {
			return nil, err
		}
	}
	return object.NewNumber(float64(d / time.Millisecond)), nil
}
