package vm

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
)

func TestRunFunction(t *testing.T) {
	mod, err := compiler.Compile(ast.Module(ast.Binary("+", num("40"), num("2"))))
	require.Nil(t, err)
	result, err := Run(context.Background(), mod)
	require.Nil(t, err)
	require.Equal(t, object.NewNumber(42), result)
}

func TestEval(t *testing.T) {
	result, machine, err := Eval(context.Background(),
		ast.Module(set(glob("greeting"), ast.Binary("+", str("hello "), glob("name")))),
		WithGlobals(map[string]object.Object{"name": object.NewString("world")}),
	)
	require.Nil(t, err)
	require.Equal(t, object.NewString("hello world"), result)
	value, err := machine.Get("greeting")
	require.Nil(t, err)
	require.Equal(t, object.NewString("hello world"), value)
	require.Contains(t, machine.GlobalNames(), "greeting")
	require.Contains(t, machine.GlobalNames(), "console")
}

func TestEvalRejectsMalformedTree(t *testing.T) {
	_, machine, err := Eval(context.Background(), ast.Module(ast.Binary("<>", num("1"), num("2"))))
	require.Error(t, err)
	require.Nil(t, machine)
	require.Contains(t, err.Error(), "unsupported binary operator")
}

func TestGetMissingGlobal(t *testing.T) {
	_, e := run(t, set(glob("x"), num("1")))
	_, err := e.vm.Get("y")
	require.ErrorIs(t, err, ErrGlobalNotFound)
	require.Equal(t, "global not found: y", err.Error())
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	e := newEnv(t, []*ast.Node{
		ast.Assign("??=", glob("count"), num("0")),
		ast.Postfix("++", glob("count")),
	})
	for range 3 {
		_, err := e.vm.Run(context.Background())
		require.Nil(t, err)
	}
	require.Equal(t, 3.0, e.number(t, "count"))
}

func TestCallClosureAfterRun(t *testing.T) {
	_, e := run(t,
		function(glob("add"), params(loc("a"), def(loc("b"), num("10"))), block(
			ast.Return(ast.Binary("+", loc("a"), loc("b"))),
		)),
		function(glob("fail"), params(), block(ast.Throw(str("nope")))),
	)
	result, err := e.vm.Call(context.Background(), e.get(t, "add"), object.NewNumber(5))
	require.Nil(t, err)
	require.Equal(t, object.NewNumber(15), result)

	result, err = e.vm.Call(context.Background(), e.get(t, "isNaN"), object.NewString("x"))
	require.Nil(t, err)
	require.Equal(t, object.True, result)

	_, err = e.vm.Call(context.Background(), e.get(t, "fail"))
	requireKind(t, err, errz.ErrUncaught)
	require.Empty(t, e.vm.frames)
}

func TestLoggerReceivesRunEvents(t *testing.T) {
	var logs bytes.Buffer
	logger := zerolog.New(&logs).Level(zerolog.DebugLevel)
	mod, err := compiler.Compile(ast.Module(
		call(glob("setTimeout"), glob("isNaN"), num("5")),
	))
	require.Nil(t, err)
	machine := New(mod, WithLogger(logger), WithClock(NewFakeClock(time.Unix(0, 0))))
	_, err = machine.Run(context.Background())
	require.Nil(t, err)
	out := logs.String()
	require.Contains(t, out, `"run_id"`)
	require.Contains(t, out, "run started")
	require.Contains(t, out, "dispatching timer")
	require.Contains(t, out, "run finished")
}

func TestStackNotEmptyWarning(t *testing.T) {
	var logs bytes.Buffer
	mod, err := compiler.Compile(ast.Module(
		set(glob("x"), num("1")),
	))
	require.Nil(t, err)
	// Drop the final RETURN so the duplicated value stays on the stack.
	main := mod.Main()
	main.Instructions = main.Instructions[:len(main.Instructions)-1]
	machine := New(mod, WithLogger(zerolog.New(&logs)))
	_, err = machine.Run(context.Background())
	require.Nil(t, err)
	require.Contains(t, logs.String(), "operand stack not empty after return")
}

func TestMaxStackDepth(t *testing.T) {
	items := make([]*ast.Node, 8)
	for i := range items {
		items[i] = num("1")
	}
	e := newEnv(t, []*ast.Node{ast.Array(items...)}, WithMaxStackDepth(4))
	_, err := e.vm.Run(context.Background())
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Equal(t, "maximum stack depth exceeded (4)", structured.Message)
}

func TestConcurrentRunRejected(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	blocking := object.NewBuiltin("block", func(context.Context, ...object.Object) (object.Object, error) {
		close(started)
		<-release
		return object.Undefined, nil
	})
	e := newEnv(t, []*ast.Node{call(glob("block"))}, WithGlobals(map[string]object.Object{"block": blocking}))
	done := make(chan error, 1)
	go func() {
		_, err := e.vm.Run(context.Background())
		done <- err
	}()
	<-started
	_, err := e.vm.Run(context.Background())
	require.ErrorContains(t, err, "already running")
	close(release)
	require.Nil(t, <-done)
}
