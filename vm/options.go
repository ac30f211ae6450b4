package vm

import (
	"io"

	"github.com/rs/zerolog"

	"github.com/daedalus-js/daedalus/object"
)

// Option is a configuration function for a Virtual Machine.
type Option func(*VirtualMachine)

// WithGlobals provides global variables with the given names. They are
// installed after the default builtins and replace any with the same name.
func WithGlobals(globals map[string]object.Object) Option {
	return func(vm *VirtualMachine) {
		for name, value := range globals {
			vm.inputGlobals[name] = value
		}
	}
}

// WithLogger sets the logger used for run diagnostics. The default discards
// everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(vm *VirtualMachine) {
		vm.baseLog = logger
	}
}

// WithStdout sets where console output is written. The default is
// os.Stdout.
func WithStdout(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stdout = w
	}
}

// WithStderr sets where console.warn and console.error write. The default
// is os.Stderr.
func WithStderr(w io.Writer) Option {
	return func(vm *VirtualMachine) {
		vm.stderr = w
	}
}

// WithClock sets the time source used by timers and wait.
func WithClock(clock Clock) Option {
	return func(vm *VirtualMachine) {
		vm.clock = clock
	}
}

// WithContextCheckInterval sets how often the VM checks ctx.Done() during
// execution, in instructions. A value of 0 disables the periodic check and
// relies on the goroutine watching the context.
func WithContextCheckInterval(interval int) Option {
	return func(vm *VirtualMachine) {
		vm.contextCheckInterval = interval
	}
}

// WithObserver sets an observer for execution events.
func WithObserver(observer Observer) Option {
	return func(vm *VirtualMachine) {
		vm.observer = observer
	}
}

// WithMaxFrameDepth limits the number of nested function activations.
func WithMaxFrameDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		if depth > 0 {
			vm.maxFrameDepth = depth
		}
	}
}

// WithMaxStackDepth limits the operand stack height of a single frame.
func WithMaxStackDepth(depth int) Option {
	return func(vm *VirtualMachine) {
		if depth > 0 {
			vm.maxStackDepth = depth
		}
	}
}

// WithDrainTimers controls whether Run sleeps until pending timers are due.
// When false, Run returns once no timer is due without waiting.
func WithDrainTimers(drain bool) Option {
	return func(vm *VirtualMachine) {
		vm.drainTimers = drain
	}
}

// WithMaxPendingTimers limits how many timers may be scheduled at once.
// Zero means no limit.
func WithMaxPendingTimers(n int) Option {
	return func(vm *VirtualMachine) {
		vm.maxPendingTimers = n
	}
}
