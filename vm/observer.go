package vm

import (
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/op"
)

// StepMode controls when OnStep callbacks are triggered.
type StepMode uint8

const (
	// StepAll calls OnStep for every instruction.
	StepAll StepMode = iota

	// StepNone never calls OnStep. Useful for observers that only need
	// call and return events.
	StepNone

	// StepSampled calls OnStep every SampleInterval instructions.
	StepSampled

	// StepOnLine calls OnStep when the source line changes.
	StepOnLine
)

// ObserverConfig specifies what events an observer wants to receive.
type ObserverConfig struct {
	StepMode StepMode

	// SampleInterval is the number of instructions between OnStep calls
	// in StepSampled mode. Values <= 0 are treated as 1.
	SampleInterval int

	ObserveCalls   bool
	ObserveReturns bool
	ObserveThrows  bool
}

// NewObserverConfig creates a config that observes calls, returns and
// throws in addition to the given step mode.
func NewObserverConfig(mode StepMode) ObserverConfig {
	return ObserverConfig{
		StepMode:       mode,
		SampleInterval: 1000,
		ObserveCalls:   true,
		ObserveReturns: true,
		ObserveThrows:  true,
	}
}

// NormalizeConfig clamps config values.
func NormalizeConfig(cfg ObserverConfig) ObserverConfig {
	if cfg.StepMode == StepSampled && cfg.SampleInterval <= 0 {
		cfg.SampleInterval = 1
	}
	return cfg
}

// Observer receives execution events for tracing, profiling and coverage.
// Methods are called synchronously on the VM goroutine. Returning false
// from any method halts execution.
//
// Implementations can embed NoOpObserver and override what they need.
type Observer interface {
	// Config is called once when a run starts.
	Config() ObserverConfig

	OnStep(event StepEvent) bool
	OnCall(event CallEvent) bool
	OnReturn(event ReturnEvent) bool
	OnThrow(event ThrowEvent) bool
}

// StepEvent describes the instruction about to execute.
type StepEvent struct {
	Function   string
	IP         int
	Opcode     op.Code
	OpcodeName string
	Location   errz.SourceLocation
	StackDepth int
	FrameDepth int
}

// CallEvent describes a function invocation. Native functions are reported
// with Native set.
type CallEvent struct {
	FunctionName string
	ArgCount     int
	Native       bool
	Location     errz.SourceLocation
	FrameDepth   int
}

// ReturnEvent describes a compiled function returning.
type ReturnEvent struct {
	FunctionName string
	Location     errz.SourceLocation
	FrameDepth   int
}

// ThrowEvent describes a value being thrown, before any handler is found.
type ThrowEvent struct {
	Value      string
	Location   errz.SourceLocation
	FrameDepth int
}

// NoOpObserver implements Observer and accepts every event. Its config
// steps through every instruction.
type NoOpObserver struct{}

func (NoOpObserver) Config() ObserverConfig {
	return NewObserverConfig(StepAll)
}

func (NoOpObserver) OnStep(StepEvent) bool     { return true }
func (NoOpObserver) OnCall(CallEvent) bool     { return true }
func (NoOpObserver) OnReturn(ReturnEvent) bool { return true }
func (NoOpObserver) OnThrow(ThrowEvent) bool   { return true }

var _ Observer = NoOpObserver{}
