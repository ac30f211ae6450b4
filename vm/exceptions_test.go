package vm

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/object"
	"github.com/daedalus-js/daedalus/op"
)

func requireKind(t *testing.T, err error, kind errz.ErrorKind) *errz.StructuredError {
	t.Helper()
	var structured *errz.StructuredError
	require.True(t, errors.As(err, &structured), "got %T: %v", err, err)
	require.Equal(t, kind, structured.Kind, structured.Error())
	return structured
}

func TestUncaughtAfterFinally(t *testing.T) {
	err, e := runErr(t,
		set(glob("g"), num("0")),
		ast.Try(
			block(set(glob("g"), num("1")), ast.Throw(str("boom"))),
			nil,
			ast.Finally(block(set(glob("g"), num("2")))),
		),
		set(glob("g"), num("99")),
	)
	structured := requireKind(t, err, errz.ErrUncaught)
	require.Equal(t, "boom", structured.Message)
	require.Equal(t, 2.0, e.number(t, "g"))

	var thrown *object.ThrownError
	require.True(t, errors.As(err, &thrown))
	require.Equal(t, object.NewString("boom"), thrown.Value)
}

func TestThrowFromNestedFunction(t *testing.T) {
	_, e := run(t,
		function(glob("inner"), params(), block(ast.Throw(num("3")))),
		function(glob("outer"), params(), block(call(glob("inner")), set(glob("skipped"), num("1")))),
		ast.Try(
			block(call(glob("outer"))),
			ast.Catch(loc("err"), block(set(glob("g"), ast.Binary("*", loc("err"), num("2"))))),
			nil,
		),
	)
	require.Equal(t, 6.0, e.number(t, "g"))
	_, err := e.vm.Get("skipped")
	require.ErrorIs(t, err, ErrGlobalNotFound)
}

func TestRethrowFromCatch(t *testing.T) {
	_, e := run(t,
		set(glob("g"), num("0")),
		ast.Try(
			block(ast.Try(
				block(ast.Throw(num("1"))),
				ast.Catch(glob("x"), block(ast.Throw(ast.Binary("+", glob("x"), num("1"))))),
				ast.Finally(block(ast.Assign("+=", glob("g"), num("1")))),
			)),
			ast.Catch(glob("y"), block(ast.Assign("+=", glob("g"), ast.Binary("*", glob("y"), num("3"))))),
			nil,
		),
	)
	require.Equal(t, 7.0, e.number(t, "g"))
}

func TestThrowInFinallyReplacesException(t *testing.T) {
	_, e := run(t,
		ast.Try(
			block(ast.Try(
				block(ast.Throw(str("a"))),
				nil,
				ast.Finally(block(ast.Throw(str("b")))),
			)),
			ast.Catch(glob("seen"), block()),
			nil,
		),
	)
	require.Equal(t, object.NewString("b"), e.get(t, "seen"))
}

func TestReturnInsideTryRunsFinally(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(), block(
			ast.Try(
				block(ast.Return(num("1"))),
				nil,
				ast.Finally(block(set(glob("g"), num("5")))),
			),
			set(glob("g"), num("100")),
		)),
		set(glob("r"), call(glob("f"))),
	)
	require.Equal(t, 1.0, e.number(t, "r"))
	require.Equal(t, 5.0, e.number(t, "g"))
}

func TestReturnInsideFinallyWins(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(), block(
			ast.Try(
				block(ast.Return(num("1"))),
				nil,
				ast.Finally(block(ast.Return(num("2")))),
			),
		)),
		function(glob("h"), params(), block(
			ast.Try(
				block(ast.Throw(str("lost"))),
				nil,
				ast.Finally(block(ast.Return(num("3")))),
			),
		)),
		set(glob("r"), call(glob("f"))),
		set(glob("s"), call(glob("h"))),
		ast.Try(block(ast.Throw(str("after"))), ast.Catch(glob("c"), block()), nil),
	)
	require.Equal(t, 2.0, e.number(t, "r"))
	require.Equal(t, 3.0, e.number(t, "s"))
	require.Equal(t, object.NewString("after"), e.get(t, "c"))
	require.Nil(t, e.vm.exc)
}

func TestReturnThroughCatch(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(), block(
			ast.Try(
				block(ast.Throw(num("4"))),
				ast.Catch(loc("err"), block(ast.Return(ast.Binary("+", loc("err"), num("1"))))),
				ast.Finally(block(set(glob("cleaned"), ast.True()))),
			),
		)),
		set(glob("r"), call(glob("f"))),
	)
	require.Equal(t, 5.0, e.number(t, "r"))
	require.Equal(t, object.True, e.get(t, "cleaned"))
}

func TestBreakOutOfTryKeepsHandlersBalanced(t *testing.T) {
	_, e := run(t,
		set(glob("i"), num("0")),
		ast.While(ast.True(), block(
			ast.Try(
				block(
					ast.Postfix("++", glob("i")),
					ast.If(ast.Binary("<", glob("i"), num("3")), block(ast.Continue())),
					ast.Break(),
				),
				ast.Catch(nil, block()),
				nil,
			),
		)),
		ast.Try(block(ast.Throw(str("z"))), ast.Catch(glob("c"), block()), nil),
	)
	require.Equal(t, 3.0, e.number(t, "i"))
	require.Equal(t, object.NewString("z"), e.get(t, "c"))
	require.Empty(t, e.vm.frames)
}

func TestNullMemberIsCatchableTypeError(t *testing.T) {
	_, e := run(t,
		ast.Try(
			block(ast.GetAttr(ast.Null(), "x")),
			ast.Catch(glob("err"), block(
				set(glob("name"), ast.GetAttr(glob("err"), "name")),
				set(glob("msg"), ast.GetAttr(glob("err"), "message")),
			)),
			nil,
		),
	)
	require.Equal(t, object.NewString("TypeError"), e.get(t, "name"))
	require.Equal(t, object.NewString("Cannot read properties of null (reading 'x')"), e.get(t, "msg"))
}

func TestThrowInsideNativeCallback(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(), block(
			method(ast.Array(num("1"), num("2")), "map",
				lambda(params(loc("v")), block(ast.Throw(ast.Binary("*", loc("v"), num("10")))))),
		)),
		ast.Try(
			block(call(glob("f"))),
			ast.Catch(glob("caught"), block()),
			nil,
		),
		set(glob("after"), ast.True()),
	)
	require.Equal(t, 10.0, e.number(t, "caught"))
	require.Equal(t, object.True, e.get(t, "after"))
	require.Empty(t, e.vm.escaped)
}

func TestCatchInsideNativeCallback(t *testing.T) {
	_, e := run(t,
		set(glob("r"), method(ast.Array(num("1"), num("2")), "map",
			lambda(params(loc("v")), block(
				ast.Try(
					block(ast.Throw(loc("v"))),
					ast.Catch(loc("x"), block(ast.Return(ast.Binary("+", loc("x"), num("1"))))),
					nil,
				),
			)))),
	)
	require.Equal(t, "2,3", object.ToString(e.get(t, "r")))
}

func TestCallingNonFunction(t *testing.T) {
	_, e := run(t,
		set(glob("x"), num("1")),
		ast.Try(
			block(call(glob("x"))),
			ast.Catch(glob("err"), block(set(glob("msg"), ast.GetAttr(glob("err"), "message")))),
			nil,
		),
	)
	require.Equal(t, object.NewString("number is not a function"), e.get(t, "msg"))
}

func TestErrorConstructors(t *testing.T) {
	_, e := run(t,
		ast.Try(
			block(ast.Throw(ast.New(call(glob("RangeError"), str("too big"))))),
			ast.Catch(glob("err"), block()),
			nil,
		),
	)
	err := e.get(t, "err").(*object.Map)
	name, _ := err.Get("name")
	msg, _ := err.Get("message")
	require.Equal(t, object.NewString("RangeError"), name)
	require.Equal(t, object.NewString("too big"), msg)
}

func TestUncaughtStackAndLocation(t *testing.T) {
	err, _ := runErr(t,
		function(glob("thrower"), params(), block(
			ast.Throw(call(glob("TypeError"), str("bad"))).At(3, 5),
		)).At(2, 1),
		call(glob("thrower")).At(5, 1),
	)
	structured := requireKind(t, err, errz.ErrUncaught)
	require.Equal(t, "TypeError: bad", structured.Message)
	require.Equal(t, 3, structured.Location.Line)
	require.Equal(t, 5, structured.Location.Column)
	require.Equal(t, "test.js", structured.Location.Filename)
	require.Len(t, structured.Stack, 2)
	require.Equal(t, "thrower", structured.Stack[0].Function)
	require.Equal(t, compiler.MainName, structured.Stack[1].Function)
	require.Equal(t, 5, structured.Stack[1].Location.Line)
	require.Contains(t, structured.FriendlyErrorMessage(), "at thrower")
}

func handBuilt(code ...compiler.Instruction) *compiler.Module {
	return &compiler.Module{
		Filename: "hand.js",
		Globals:  compiler.NewNameTable(),
		Functions: []*compiler.FunctionDef{{
			Name:         compiler.MainName,
			Instructions: code,
			Locals:       compiler.NewNameTable(),
			Cells:        compiler.NewNameTable(),
			Attrs:        compiler.NewNameTable(),
			RestIndex:    -1,
			RestCell:     -1,
			ThisIndex:    -1,
		}},
	}
}

func TestInvalidOpcode(t *testing.T) {
	machine := New(handBuilt(compiler.Instruction{Op: op.Code(250), Line: 1, Column: 1}))
	_, err := machine.Run(context.Background())
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Contains(t, structured.Message, "invalid opcode 250")
}

func TestStackUnderflow(t *testing.T) {
	machine := New(handBuilt(compiler.Instruction{Op: op.Pop}))
	_, err := machine.Run(context.Background())
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Equal(t, "stack underflow", structured.Message)
}

func TestCatchWithoutException(t *testing.T) {
	machine := New(handBuilt(compiler.Instruction{Op: op.Catch}))
	_, err := machine.Run(context.Background())
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Equal(t, "catch without an active exception", structured.Message)
}

func TestMaxFrameDepth(t *testing.T) {
	e := newEnv(t, []*ast.Node{
		function(glob("recurse"), params(loc("n")), block(
			ast.Return(call(glob("recurse"), ast.Binary("+", loc("n"), num("1")))),
		)),
		call(glob("recurse"), num("0")),
	}, WithMaxFrameDepth(16))
	_, err := e.vm.Run(context.Background())
	structured := requireKind(t, err, errz.ErrRuntime)
	require.Equal(t, "maximum call depth exceeded (16)", structured.Message)
	require.Len(t, structured.Stack, 16)
}

func TestHugeArrayWritesThrowRangeError(t *testing.T) {
	a := glob("a")
	catchName := func(target string, stmt *ast.Node) *ast.Node {
		return ast.Try(
			block(stmt),
			ast.Catch(glob("err"), block(set(glob(target), ast.GetAttr(glob("err"), "name")))),
			nil,
		)
	}
	_, e := run(t,
		set(a, ast.Array(num("1"))),
		catchName("far", set(ast.Subscr(a, num("2147483000")), num("1"))),
		catchName("long", set(ast.GetAttr(a, "length"), num("2e9"))),
		catchName("ctor", call(glob("Array"), num("2e9"))),
		set(ast.Subscr(a, str("99999999999")), num("2")),
		set(glob("n"), ast.GetAttr(a, "length")),
	)
	require.Equal(t, object.NewString("RangeError"), e.get(t, "far"))
	require.Equal(t, object.NewString("RangeError"), e.get(t, "long"))
	require.Equal(t, object.NewString("RangeError"), e.get(t, "ctor"))
	require.Equal(t, 1.0, e.number(t, "n"))
}
