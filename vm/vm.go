// Package vm provides a VirtualMachine that executes compiled daedalus
// modules.
package vm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
	"github.com/daedalus-js/daedalus/op"
)

const (
	MaxFrameDepth = 1024
	MaxStackDepth = 1024

	// DefaultContextCheckInterval is the number of instructions between
	// deterministic checks of ctx.Done(). Set to 0 to disable.
	DefaultContextCheckInterval = 1000
)

var ErrGlobalNotFound = errors.New("global not found")

type VirtualMachine struct {
	mod          *compiler.Module
	constants    []object.Object
	inputGlobals map[string]object.Object
	globals      map[string]object.Object
	frames       []*frame
	exc          *exception
	escaped      map[*object.ThrownError]*exception
	sched        *scheduler
	clock        Clock
	stdout       io.Writer
	stderr       io.Writer
	baseLog      zerolog.Logger
	log          zerolog.Logger
	halt         int32
	running      bool
	runMutex     sync.Mutex
	stopWatch    func() bool
	steps        int
	lastLine     int

	contextCheckInterval int
	maxFrameDepth        int
	maxStackDepth        int
	drainTimers          bool
	maxPendingTimers     int

	observer       Observer
	observerConfig ObserverConfig
}

// New creates a Virtual Machine for the given module. Globals provided with
// WithGlobals are layered over the default builtins.
func New(mod *compiler.Module, options ...Option) *VirtualMachine {
	vm := &VirtualMachine{
		mod:                  mod,
		inputGlobals:         map[string]object.Object{},
		globals:              map[string]object.Object{},
		escaped:              map[*object.ThrownError]*exception{},
		clock:                RealClock(),
		stdout:               os.Stdout,
		stderr:               os.Stderr,
		baseLog:              zerolog.Nop(),
		contextCheckInterval: DefaultContextCheckInterval,
		maxFrameDepth:        MaxFrameDepth,
		maxStackDepth:        MaxStackDepth,
		drainTimers:          true,
	}
	for _, opt := range options {
		opt(vm)
	}
	vm.log = vm.baseLog
	vm.sched = newScheduler(vm.clock, vm.maxPendingTimers)
	for name, value := range vm.builtins() {
		vm.globals[name] = value
	}
	for name, value := range vm.inputGlobals {
		vm.globals[name] = value
	}
	vm.constants = make([]object.Object, len(mod.Constants))
	for i, c := range mod.Constants {
		switch c := c.(type) {
		case string:
			vm.constants[i] = object.NewString(c)
		case float64:
			vm.constants[i] = object.NewNumber(c)
		default:
			vm.constants[i] = object.Undefined
		}
	}
	return vm
}

func (vm *VirtualMachine) start(ctx context.Context) error {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.running {
		return fmt.Errorf("vm is already running")
	}
	vm.running = true
	atomic.StoreInt32(&vm.halt, 0)
	vm.stopWatch = context.AfterFunc(ctx, func() {
		atomic.StoreInt32(&vm.halt, 1)
	})
	return nil
}

func (vm *VirtualMachine) stop() {
	vm.runMutex.Lock()
	defer vm.runMutex.Unlock()
	if vm.stopWatch != nil {
		vm.stopWatch()
		vm.stopWatch = nil
	}
	vm.running = false
}

func (vm *VirtualMachine) withCallFunc(ctx context.Context) context.Context {
	return object.WithCallFunc(ctx, vm.callFunction)
}

// Run executes the module body, then dispatches timers until none remain.
// The result is the value of the module's final expression statement, or
// undefined. Globals persist across runs on the same VM.
func (vm *VirtualMachine) Run(ctx context.Context) (result object.Object, err error) {
	if err := vm.start(ctx); err != nil {
		return nil, err
	}
	defer vm.stop()

	runID := uuid.Must(uuid.NewV4()).String()
	vm.log = vm.baseLog.With().Str("run_id", runID).Logger()
	if vm.observer != nil {
		vm.observerConfig = NormalizeConfig(vm.observer.Config())
	}
	vm.frames = vm.frames[:0]
	vm.exc = nil
	vm.steps = 0
	vm.lastLine = 0
	clear(vm.escaped)

	started := vm.clock.Now()
	vm.log.Debug().
		Str("file", vm.mod.Filename).
		Int("functions", len(vm.mod.Functions)).
		Msg("run started")

	ctx = vm.withCallFunc(ctx)
	main := newFrame(vm.mod.Main(), nil)
	main.this = main.Scope()
	if main.def.ThisIndex >= 0 {
		main.locals[main.def.ThisIndex] = main.this
	}
	vm.frames = append(vm.frames, main)

	result, err = vm.eval(ctx, 0)
	if err != nil {
		vm.log.Debug().Err(err).Msg("run failed")
		return nil, err
	}
	if err := vm.runTimers(ctx); err != nil {
		vm.log.Debug().Err(err).Msg("timer dispatch failed")
		return nil, err
	}
	vm.log.Debug().
		Int("instructions", vm.steps).
		Dur("elapsed", vm.clock.Now().Sub(started)).
		Msg("run finished")
	return result, nil
}

// Get returns the value of a global variable.
func (vm *VirtualMachine) Get(name string) (object.Object, error) {
	value, ok := vm.globals[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGlobalNotFound, name)
	}
	return value, nil
}

// GlobalNames returns the names of all defined globals.
func (vm *VirtualMachine) GlobalNames() []string {
	names := make([]string, 0, len(vm.globals))
	for name := range vm.globals {
		names = append(names, name)
	}
	return names
}

// Call invokes a function value outside of Run, for example a closure
// stored in a global by an earlier run.
func (vm *VirtualMachine) Call(ctx context.Context, fn object.Object, args ...object.Object) (object.Object, error) {
	if err := vm.start(ctx); err != nil {
		return nil, err
	}
	defer vm.stop()
	ctx = vm.withCallFunc(ctx)
	if closure, ok := fn.(*object.Closure); ok {
		return vm.callFunction(ctx, closure, args)
	}
	return object.Call(ctx, fn, args...)
}

// eval runs instructions until the frame stack shrinks to base, returning
// the value returned by the frame at that depth.
func (vm *VirtualMachine) eval(ctx context.Context, base int) (result object.Object, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == errStackUnderflow {
				err = vm.fault(errz.ErrRuntime, "stack underflow")
				return
			}
			err = vm.fault(errz.ErrRuntime, "panic: %v", r)
		}
	}()

	for len(vm.frames) > base {
		fr := vm.frames[len(vm.frames)-1]
		code := fr.def.Instructions
		if fr.ip >= len(code) {
			value, done, err := vm.doReturn(fr, object.Undefined, base)
			if err != nil {
				return nil, err
			}
			if done {
				return value, nil
			}
			continue
		}
		in := code[fr.ip]
		fr.ip++

		vm.steps++
		if atomic.LoadInt32(&vm.halt) == 1 ||
			(vm.contextCheckInterval > 0 && vm.steps%vm.contextCheckInterval == 0) {
			if err := ctx.Err(); err != nil {
				return nil, vm.cancelled(err)
			}
		}
		if vm.observer != nil && vm.observerConfig.StepMode != StepNone {
			if !vm.observeStep(fr, in) {
				return nil, vm.haltedByObserver()
			}
		}

		// opErr holds errors from value operations, which may be thrown
		// into the program. err holds errors that end the evaluation.
		var opErr error
		switch in.Op {
		case op.Nop, op.Loop, op.End:

		case op.If:
			if !object.Truthy(fr.pop()) {
				fr.ip += in.Arg - 1
			}
		case op.IfNull:
			if object.IsNullish(fr.pop()) {
				fr.ip += in.Arg - 1
			}
		case op.Else, op.Jump:
			fr.ip += in.Arg - 1

		case op.Return:
			var value object.Object = object.Undefined
			if in.Arg > 0 {
				value = fr.pop()
			}
			value, done, err := vm.doReturn(fr, value, base)
			if err != nil {
				return nil, err
			}
			if done {
				return value, nil
			}

		case op.Try:
			p := fr.ip - 1
			finallyDelta := int(object.ToNumber(fr.pop()))
			catchDelta := int(object.ToNumber(fr.pop()))
			fr.blocks = append(fr.blocks, &tryBlock{
				catchIP:   p - 2 + catchDelta,
				finallyIP: p - 1 + finallyDelta,
				sp:        len(fr.stack),
			})
		case op.Catch:
			err = vm.catchValue(fr)
		case op.Finally:
			b := fr.currentBlock()
			if b == nil {
				return nil, vm.fault(errz.ErrRuntime, "finally without an active try")
			}
			b.finallyEntered = true
		case op.TryEnd:
			value, done, endErr := vm.endTry(fr, base)
			if endErr != nil {
				return nil, endErr
			}
			if done {
				return value, nil
			}
		case op.Throw:
			err = vm.throw(fr.pop(), base)

		case op.Call:
			args := fr.popN(in.Arg)
			fn := fr.pop()
			err = vm.call(ctx, fr, fn, args, nil, base)
		case op.CallKw:
			kwargs, ok := fr.pop().(*object.Map)
			if !ok {
				return nil, vm.fault(errz.ErrType, "CALL_KW expects an object of keyword arguments")
			}
			args := fr.popN(in.Arg)
			fn := fr.pop()
			err = vm.call(ctx, fr, fn, args, kwargs, base)
		case op.CallEx:
			kwargs, _ := fr.pop().(*object.Map)
			var args []object.Object
			switch seq := fr.pop().(type) {
			case *object.Array:
				args = append(args, seq.Items()...)
			case *object.Tuple:
				args = append(args, seq.Items()...)
			default:
				return nil, vm.fault(errz.ErrType, "CALL_EX expects an argument array, got %s", seq.Type())
			}
			fn := fr.pop()
			err = vm.call(ctx, fr, fn, args, kwargs, base)

		case op.Dup:
			fr.push(fr.top())
		case op.Pop:
			fr.pop()
		case op.Rot2:
			a, b := fr.pop(), fr.pop()
			fr.push(a)
			fr.push(b)
		case op.Rot3:
			c, b, a := fr.pop(), fr.pop(), fr.pop()
			fr.push(c)
			fr.push(a)
			fr.push(b)
		case op.Rot4:
			d, c, b, a := fr.pop(), fr.pop(), fr.pop(), fr.pop()
			fr.push(d)
			fr.push(a)
			fr.push(b)
			fr.push(c)

		case op.LocalGet:
			fr.push(fr.local(in.Arg))
		case op.LocalSet:
			fr.locals[in.Arg] = fr.pop()
		case op.LocalDelete:
			fr.locals[in.Arg] = nil

		case op.GlobalGet:
			value, ok := vm.globals[vm.mod.Globals.Name(in.Arg)]
			if !ok {
				value = object.Undefined
			}
			fr.push(value)
		case op.GlobalSet:
			vm.globals[vm.mod.Globals.Name(in.Arg)] = fr.pop()
		case op.GlobalDelete:
			delete(vm.globals, vm.mod.Globals.Name(in.Arg))

		case op.CellLoad:
			fr.push(fr.cell(in.Arg))
		case op.CellGet:
			fr.push(fr.cell(in.Arg).Value())
		case op.CellSet:
			fr.cell(in.Arg).Set(fr.pop())
		case op.CellDelete:
			fr.cell(in.Arg).Clear()

		case op.Int:
			fr.push(object.NewNumber(float64(in.Arg)))
		case op.Float, op.String:
			if in.Arg < 0 || in.Arg >= len(vm.constants) {
				return nil, vm.fault(errz.ErrRuntime, "constant index %d out of range", in.Arg)
			}
			fr.push(vm.constants[in.Arg])
		case op.Bool:
			fr.push(object.NewBool(in.Arg != 0))
		case op.Null:
			fr.push(object.Null)
		case op.Undefined:
			fr.push(object.Undefined)

		case op.Positive, op.Negative, op.BitwiseNot, op.Not:
			var value object.Object
			value, opErr = object.UnaryOp(in.Op, fr.pop())
			if opErr == nil {
				fr.push(value)
			}
		case op.LessThan, op.LessThanOrEqual, op.Equal, op.NotEqual,
			op.GreaterThanOrEqual, op.GreaterThan, op.StrictEqual, op.StrictNotEqual,
			op.And, op.Or, op.Add, op.Subtract, op.Multiply, op.Divide, op.Modulo,
			op.Power, op.BitwiseAnd, op.BitwiseOr, op.BitwiseXor, op.ShiftLeft, op.ShiftRight:
			rhs := fr.pop()
			lhs := fr.pop()
			var value object.Object
			value, opErr = object.BinaryOp(in.Op, lhs, rhs)
			if opErr == nil {
				fr.push(value)
			}

		case op.GetAttr:
			obj := fr.pop()
			var value object.Object
			value, opErr = object.GetAttr(obj, fr.def.Attrs.Name(in.Arg))
			if opErr == nil {
				fr.push(value)
			}
		case op.SetAttr:
			obj := fr.pop()
			value := fr.pop()
			opErr = object.SetAttr(obj, fr.def.Attrs.Name(in.Arg), value)
		case op.DelAttr:
			opErr = object.DelAttr(fr.pop(), fr.def.Attrs.Name(in.Arg))
		case op.HasAttr:
			obj := fr.pop()
			key := fr.pop()
			var ok bool
			ok, opErr = object.HasAttr(obj, key)
			if opErr == nil {
				fr.push(object.NewBool(ok))
			}
		case op.GetIndex:
			obj := fr.pop()
			index := fr.pop()
			var value object.Object
			value, opErr = object.GetIndex(obj, index)
			if opErr == nil {
				fr.push(value)
			}
		case op.SetIndex:
			obj := fr.pop()
			index := fr.pop()
			value := fr.pop()
			opErr = object.SetIndex(obj, index, value)
		case op.DelIndex:
			obj := fr.pop()
			index := fr.pop()
			opErr = object.DelIndex(obj, index)
		case op.GetTypename:
			fr.push(object.NewString(object.TypeOf(fr.pop())))
		case op.UpdateArray:
			source := fr.pop()
			target, ok := fr.top().(*object.Array)
			if !ok {
				return nil, vm.fault(errz.ErrType, "UPDATE_ARRAY target is %s", fr.top().Type())
			}
			opErr = spreadInto(target, source)
		case op.UpdateObject:
			source := fr.pop()
			target, ok := fr.top().(*object.Map)
			if !ok {
				return nil, vm.fault(errz.ErrType, "UPDATE_OBJECT target is %s", fr.top().Type())
			}
			opErr = assignInto(target, source)

		case op.CreateObject:
			items := fr.popN(2 * in.Arg)
			m := object.NewMap()
			for i := 0; i < len(items); i += 2 {
				m.Set(object.ToString(items[i]), items[i+1])
			}
			fr.push(m)
		case op.CreateArray:
			fr.push(object.NewArray(fr.popN(in.Arg)))
		case op.CreateTuple:
			fr.push(object.NewTuple(fr.popN(in.Arg)))
		case op.CreateSet:
			fr.push(object.NewSet(fr.popN(in.Arg)...))
		case op.CreateFunction:
			err = vm.createFunction(fr, in.Arg)

		default:
			return nil, vm.fault(errz.ErrRuntime, "invalid opcode %d", in.Op)
		}

		if opErr != nil {
			err = vm.raise(opErr, base)
		}
		if err != nil {
			return nil, err
		}
		if len(fr.stack) > vm.maxStackDepth {
			return nil, vm.fault(errz.ErrRuntime, "maximum stack depth exceeded (%d)", vm.maxStackDepth)
		}
	}
	return object.Undefined, nil
}

// createFunction implements CREATE_FUNCTION. It pops, in order, the
// captured cell tuple when the function has one, the bind flag, the
// keyword template, the argument count and that many defaults.
func (vm *VirtualMachine) createFunction(fr *frame, index int) error {
	if index < 0 || index >= len(vm.mod.Functions) {
		return vm.fault(errz.ErrRuntime, "function index %d out of range", index)
	}
	def := vm.mod.Functions[index]
	var cells []*object.Cell
	if def.HasClosure {
		tuple, ok := fr.pop().(*object.Tuple)
		if !ok {
			return vm.fault(errz.ErrType, "CREATE_FUNCTION expects a tuple of cells")
		}
		cells = tuple.Cells()
	}
	bind := object.Truthy(fr.pop())
	kwargs, ok := fr.pop().(*object.Map)
	if !ok {
		return vm.fault(errz.ErrType, "CREATE_FUNCTION expects a keyword template")
	}
	argc := int(object.ToNumber(fr.pop()))
	if argc < 0 || argc > len(fr.stack) {
		return vm.fault(errz.ErrRuntime, "CREATE_FUNCTION has %d defaults, stack has %d", argc, len(fr.stack))
	}
	defaults := fr.popN(argc)
	var opts []object.ClosureOption
	if bind {
		opts = append(opts, object.WithThis(fr.Scope()))
	}
	fr.push(object.NewClosure(def, defaults, kwargs, bind, cells, opts...))
	return nil
}

// spreadInto appends the items of source to target. Nullish sources are
// ignored.
func spreadInto(target *object.Array, source object.Object) error {
	switch src := source.(type) {
	case *object.Array:
		target.Append(append([]object.Object(nil), src.Items()...)...)
	case *object.Tuple:
		target.Append(src.Items()...)
	case *object.Set:
		target.Append(src.Items()...)
	case *object.String:
		for _, r := range src.Value() {
			target.Append(object.NewString(string(r)))
		}
	case *object.UndefinedType, *object.NullType:
	default:
		return object.TypeErrorf("%s is not iterable", object.TypeOf(source))
	}
	return nil
}

// assignInto copies the own properties of source onto target.
func assignInto(target *object.Map, source object.Object) error {
	switch src := source.(type) {
	case *object.Map:
		target.Update(src)
	case *object.Scope:
		for _, key := range src.Keys() {
			if v, ok := src.Get(key); ok {
				target.Set(key, v)
			}
		}
	case *object.Array:
		for i, item := range src.Items() {
			if item != nil {
				target.Set(object.FormatNumber(float64(i)), item)
			}
		}
	case *object.UndefinedType, *object.NullType, *object.Number, *object.Bool:
	default:
		return object.TypeErrorf("cannot spread %s into an object", object.TypeOf(source))
	}
	return nil
}

func (vm *VirtualMachine) observeStep(fr *frame, in compiler.Instruction) bool {
	cfg := vm.observerConfig
	switch cfg.StepMode {
	case StepSampled:
		if vm.steps%cfg.SampleInterval != 0 {
			return true
		}
	case StepOnLine:
		if in.Line == vm.lastLine {
			return true
		}
		vm.lastLine = in.Line
	}
	return vm.observer.OnStep(StepEvent{
		Function:   fr.def.Name,
		IP:         fr.ip - 1,
		Opcode:     in.Op,
		OpcodeName: in.Op.String(),
		Location:   vm.locationOf(fr, fr.ip-1),
		StackDepth: len(fr.stack),
		FrameDepth: len(vm.frames),
	})
}

func (vm *VirtualMachine) locationOf(fr *frame, ip int) errz.SourceLocation {
	loc := fr.def.Location(ip)
	loc.Filename = vm.mod.Filename
	return loc
}

func (vm *VirtualMachine) currentLocation() errz.SourceLocation {
	if len(vm.frames) == 0 {
		return errz.SourceLocation{Filename: vm.mod.Filename}
	}
	fr := vm.frames[len(vm.frames)-1]
	return vm.locationOf(fr, fr.ip-1)
}

// captureStack returns the active frames, innermost first.
func (vm *VirtualMachine) captureStack() []errz.StackFrame {
	stack := make([]errz.StackFrame, 0, len(vm.frames))
	for i := len(vm.frames) - 1; i >= 0; i-- {
		fr := vm.frames[i]
		stack = append(stack, errz.StackFrame{
			Function: fr.def.Name,
			IP:       fr.ip - 1,
			Location: vm.locationOf(fr, fr.ip-1),
		})
	}
	return stack
}

func (vm *VirtualMachine) fault(kind errz.ErrorKind, format string, args ...any) *errz.StructuredError {
	return errz.NewStructuredErrorf(kind, vm.currentLocation(), vm.captureStack(), format, args...)
}

func (vm *VirtualMachine) haltedByObserver() error {
	return vm.fault(errz.ErrRuntime, "execution halted by observer")
}

func (vm *VirtualMachine) cancelled(err error) error {
	return vm.fault(errz.ErrCancelled, "execution cancelled: %v", err).WithCause(err)
}

// sleep waits on the VM clock.
func (vm *VirtualMachine) sleep(ctx context.Context, d time.Duration) error {
	if err := vm.clock.Sleep(ctx, d); err != nil {
		return vm.cancelled(err)
	}
	return nil
}
