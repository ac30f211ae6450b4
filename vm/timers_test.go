package vm

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
)

func TestTimerRunsAfterWait(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(loc("s")), block(set(glob("seen"), loc("s")))),
		call(glob("setTimeout"), glob("f"), num("500"), str("world")),
		set(glob("before"), glob("seen")),
		set(glob("waited"), call(glob("wait"))),
		set(glob("during"), glob("seen")),
	)
	require.Equal(t, object.Undefined, e.get(t, "before"))
	require.Equal(t, object.Undefined, e.get(t, "during"))
	require.Equal(t, 500.0, e.number(t, "waited"))
	require.Equal(t, object.NewString("world"), e.get(t, "seen"))
	require.Equal(t, []time.Duration{500 * time.Millisecond}, e.clock.Slept())
}

func TestWaitDefaultsAndKeyword(t *testing.T) {
	_, e := run(t,
		set(glob("a"), call(glob("wait"))),
		set(glob("b"), call(glob("wait"), ast.Kwarg("timeout", num("50")))),
		set(glob("c"), call(glob("wait"), num("0"))),
	)
	require.Equal(t, 1000.0, e.number(t, "a"))
	require.Equal(t, 50.0, e.number(t, "b"))
	require.Equal(t, 0.0, e.number(t, "c"))
	require.Equal(t, 1050*time.Millisecond, e.clock.Elapsed())
}

func TestIntervalUntilCleared(t *testing.T) {
	_, e := run(t,
		set(glob("n"), num("0")),
		set(glob("id"), call(glob("setInterval"), lambda(params(), block(
			ast.Postfix("++", glob("n")),
			ast.If(ast.Binary("===", glob("n"), num("3")),
				block(call(glob("clearInterval"), glob("id")))),
		)), num("100"))),
	)
	require.Equal(t, 3.0, e.number(t, "n"))
	require.Equal(t, 1.0, e.number(t, "id"))
	require.Equal(t, 300*time.Millisecond, e.clock.Elapsed())
	require.Zero(t, e.vm.sched.pending())
}

func TestClearTimeout(t *testing.T) {
	_, e := run(t,
		set(glob("fired"), ast.False()),
		set(glob("id"), call(glob("setTimeout"), lambda(params(), set(glob("fired"), ast.True())), num("10"))),
		call(glob("clearTimeout"), glob("id")),
		call(glob("clearTimeout"), num("42")),
		call(glob("clearTimeout")),
	)
	require.Equal(t, object.False, e.get(t, "fired"))
	require.Empty(t, e.clock.Slept())
}

func TestTimerOrdering(t *testing.T) {
	appendTo := func(s string) *ast.Node {
		return lambda(params(), ast.Assign("+=", glob("order"), str(s)))
	}
	_, e := run(t,
		set(glob("order"), str("")),
		call(glob("setTimeout"), appendTo("a"), num("30")),
		call(glob("setTimeout"), appendTo("b"), num("10")),
		call(glob("setTimeout"), appendTo("c"), num("10")),
		call(glob("setTimeout"), appendTo("d"), num("-5")),
	)
	require.Equal(t, object.NewString("dbca"), e.get(t, "order"))
	require.Equal(t, 30*time.Millisecond, e.clock.Elapsed())
}

func TestTimerScheduledFromCallback(t *testing.T) {
	_, e := run(t,
		set(glob("order"), str("")),
		call(glob("setTimeout"), lambda(params(), block(
			ast.Assign("+=", glob("order"), str("1")),
			call(glob("setTimeout"), lambda(params(), ast.Assign("+=", glob("order"), str("3"))), num("5")),
		)), num("10")),
		call(glob("setTimeout"), lambda(params(), ast.Assign("+=", glob("order"), str("2"))), num("12")),
	)
	require.Equal(t, object.NewString("123"), e.get(t, "order"))
	require.Equal(t, 15*time.Millisecond, e.clock.Elapsed())
}

func TestTimersNotDrained(t *testing.T) {
	e := newEnv(t, []*ast.Node{
		call(glob("setTimeout"), lambda(params(), set(glob("late"), ast.True())), num("100")),
		call(glob("setTimeout"), lambda(params(), set(glob("now"), ast.True())), num("0")),
	}, WithDrainTimers(false))
	_, err := e.vm.Run(context.Background())
	require.Nil(t, err)
	require.Equal(t, object.True, e.get(t, "now"))
	_, err = e.vm.Get("late")
	require.ErrorIs(t, err, ErrGlobalNotFound)
	require.Empty(t, e.clock.Slept())
}

func TestMaxPendingTimers(t *testing.T) {
	e := newEnv(t, []*ast.Node{
		call(glob("setTimeout"), glob("isNaN"), num("1")),
		ast.Try(
			block(call(glob("setTimeout"), glob("isNaN"), num("1"))),
			ast.Catch(glob("err"), block(set(glob("msg"), ast.GetAttr(glob("err"), "message")))),
			nil,
		),
	}, WithMaxPendingTimers(1))
	_, err := e.vm.Run(context.Background())
	require.Nil(t, err)
	require.Equal(t, object.NewString("too many pending timers (limit 1)"), e.get(t, "msg"))
}

func TestSetTimeoutRequiresFunction(t *testing.T) {
	err, _ := runErr(t, call(glob("setTimeout"), num("1"), num("10")))
	structured := requireKind(t, err, errz.ErrUncaught)
	require.Equal(t, "TypeError: number is not a function", structured.Message)
}

func TestUncaughtTimerErrorsAreCollected(t *testing.T) {
	err, e := runErr(t,
		call(glob("setTimeout"), lambda(params(), block(ast.Throw(str("first")))), num("10")),
		call(glob("setTimeout"), lambda(params(), block(ast.Throw(str("second")))), num("20")),
		call(glob("setTimeout"), lambda(params(), set(glob("ran"), ast.True())), num("30")),
	)
	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 2)
	require.Equal(t, "first", requireKind(t, merr.Errors[0], errz.ErrUncaught).Message)
	require.Equal(t, "second", requireKind(t, merr.Errors[1], errz.ErrUncaught).Message)
	require.Equal(t, object.True, e.get(t, "ran"))
}

func TestPromiseResolvesSynchronously(t *testing.T) {
	_, e := run(t,
		set(glob("p"), ast.New(call(glob("Promise"), lambda(params(loc("resolve"), loc("reject")), block(
			call(loc("resolve"), num("4")),
		))))),
		method(glob("p"), "then", lambda(params(loc("v")), set(glob("x"), loc("v")))),
	)
	require.Equal(t, 4.0, e.number(t, "x"))
	require.Equal(t, object.Fulfilled, e.get(t, "p").(*object.Promise).State())
}

func TestPromiseResolvedByTimer(t *testing.T) {
	executor := lambda(params(ast.Cell("resolve"), loc("reject")), block(
		call(glob("setTimeout"), lambda(params(), block(
			call(ast.Free("resolve"), num("4")),
		), ast.Free("resolve")), num("66")),
	), ast.Cell("resolve"))
	_, e := run(t,
		set(glob("p"), ast.New(call(glob("Promise"), executor))),
		method(glob("p"), "then", lambda(params(loc("v")), set(glob("x"), loc("v")))),
		set(glob("early"), glob("x")),
	)
	require.Equal(t, object.Undefined, e.get(t, "early"))
	require.Equal(t, 4.0, e.number(t, "x"))
	require.GreaterOrEqual(t, e.clock.Elapsed(), 66*time.Millisecond)
}

func TestPromiseRejection(t *testing.T) {
	_, e := run(t,
		method(ast.New(call(glob("Promise"), lambda(params(loc("resolve"), loc("reject")), block(
			call(loc("reject"), str("no")),
			call(loc("resolve"), str("ignored")),
		)))), "catch", lambda(params(loc("why")), set(glob("reason"), loc("why")))),
		method(ast.New(call(glob("Promise"), lambda(params(), block(ast.Throw(str("bad")))))),
			"catch", lambda(params(loc("why")), set(glob("thrown"), loc("why")))),
		method(call(ast.GetAttr(glob("Promise"), "resolve"), num("7")),
			"finally", lambda(params(), set(glob("settled"), ast.True()))),
	)
	require.Equal(t, object.NewString("no"), e.get(t, "reason"))
	require.Equal(t, object.NewString("bad"), e.get(t, "thrown"))
	require.Equal(t, object.True, e.get(t, "settled"))
}

func TestCancelledContext(t *testing.T) {
	e := newEnv(t, []*ast.Node{
		ast.While(ast.True(), block()),
	}, WithContextCheckInterval(1))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.vm.Run(ctx)
	structured := requireKind(t, err, errz.ErrCancelled)
	require.ErrorIs(t, err, context.Canceled)
	require.Contains(t, structured.Message, "execution cancelled")
}

func TestCancelledDuringTimerWait(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	e := newEnv(t, []*ast.Node{
		call(glob("setTimeout"), glob("cancel"), num("10")),
		call(glob("setTimeout"), lambda(params(), set(glob("late"), ast.True())), num("20")),
	}, WithGlobals(map[string]object.Object{
		"cancel": object.NewBuiltin("cancel", func(context.Context, ...object.Object) (object.Object, error) {
			cancel()
			return object.Undefined, nil
		}),
	}))
	_, err := e.vm.Run(ctx)
	requireKind(t, err, errz.ErrCancelled)
	_, err = e.vm.Get("late")
	require.ErrorIs(t, err, ErrGlobalNotFound)
}

func TestSchedulerQueue(t *testing.T) {
	clock := NewFakeClock(time.Unix(0, 0))
	s := newScheduler(clock, 0)
	_, ok := s.untilNext()
	require.False(t, ok)

	a, err := s.add(object.Undefined, 20*time.Millisecond, nil, false)
	require.Nil(t, err)
	b, err := s.add(object.Undefined, 10*time.Millisecond, nil, true)
	require.Nil(t, err)
	require.Equal(t, 1, a)
	require.Equal(t, 2, b)

	d, ok := s.untilNext()
	require.True(t, ok)
	require.Equal(t, 10*time.Millisecond, d)
	require.Nil(t, s.popDue())

	clock.Advance(10 * time.Millisecond)
	due := s.popDue()
	require.Equal(t, b, due.id)
	require.Equal(t, 2, s.pending())

	clock.Advance(15 * time.Millisecond)
	require.Equal(t, a, s.popDue().id)
	require.Equal(t, b, s.popDue().id)
	require.True(t, s.cancel(b))
	require.False(t, s.cancel(b))
	require.Zero(t, s.pending())
}
