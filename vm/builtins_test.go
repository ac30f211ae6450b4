package vm

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/object"
)

func TestConsole(t *testing.T) {
	console := glob("console")
	_, e := run(t,
		method(console, "log", str("a"), num("1"), ast.Array(str("x"), num("2"))),
		method(console, "info", ast.Object(ast.Pair(str("k"), ast.Null()))),
		method(console, "warn", str("careful")),
		method(console, "error", ast.Undefined()),
	)
	require.Equal(t, "a 1 [\"x\", 2]\n{k: null}\n", e.stdout.String())
	require.Equal(t, "careful\nundefined\n", e.stderr.String())
}

func TestJSON(t *testing.T) {
	json := glob("JSON")
	value := ast.Object(
		ast.Pair(str("a"), ast.Array(num("1"), ast.Null())),
		ast.Pair(str("f"), lambda(params(), num("1"))),
		ast.Pair(str("s"), str("q\"")),
	)
	_, e := run(t,
		set(glob("compact"), method(json, "stringify", value)),
		set(glob("pretty"), method(json, "stringify", ast.Array(num("1")), ast.Null(), num("2"))),
		set(glob("tabbed"), method(json, "stringify", ast.Object(ast.Pair(str("x"), num("1"))), ast.Null(), str("\t"))),
		set(glob("skipped"), method(json, "stringify", lambda(params(), num("1")))),
		set(glob("parsed"), method(json, "parse", str(`{"b": [1, "two", true], "a": {"n": null}}`))),
		set(glob("keys"), method(method(glob("Object"), "keys", glob("parsed")), "join", str(","))),
		ast.Try(
			block(method(json, "parse", str("{bad"))),
			ast.Catch(glob("err"), block(set(glob("errName"), ast.GetAttr(glob("err"), "name")))),
			nil,
		),
	)
	require.Equal(t, object.NewString(`{"a":[1,null],"s":"q\""}`), e.get(t, "compact"))
	require.Equal(t, object.NewString("[\n  1\n]"), e.get(t, "pretty"))
	require.Equal(t, object.NewString("{\n\t\"x\": 1\n}"), e.get(t, "tabbed"))
	require.Equal(t, object.Undefined, e.get(t, "skipped"))
	require.Equal(t, `{b: [1, "two", true], a: {n: null}}`, e.get(t, "parsed").Inspect())
	require.Equal(t, object.NewString("b,a"), e.get(t, "keys"))
	require.Equal(t, object.NewString("SyntaxError"), e.get(t, "errName"))
}

func TestMath(t *testing.T) {
	m := glob("Math")
	_, e := run(t,
		set(glob("r"), ast.Array(
			method(m, "abs", num("-3")),
			method(m, "floor", num("2.7")),
			method(m, "ceil", num("2.1")),
			method(m, "round", num("2.5")),
			method(m, "round", num("-2.5")),
			method(m, "sign", num("-9")),
			method(m, "pow", num("2"), num("10")),
			method(m, "max", num("1"), num("7"), num("3")),
			method(m, "min", num("4"), num("2")),
			method(m, "trunc", num("-4.7")),
			method(m, "sqrt", num("16")),
		)),
		set(glob("empty"), method(m, "max")),
		set(glob("nan"), method(m, "min", num("1"), str("x"))),
		set(glob("rnd"), method(m, "random")),
	)
	require.Equal(t, "3,2,3,3,-2,-1,1024,7,2,-4,4", object.ToString(e.get(t, "r")))
	require.True(t, math.IsInf(e.number(t, "empty"), -1))
	require.True(t, math.IsNaN(e.number(t, "nan")))
	rnd := e.number(t, "rnd")
	require.GreaterOrEqual(t, rnd, 0.0)
	require.Less(t, rnd, 1.0)
}

func TestParseNumbers(t *testing.T) {
	tests := []struct {
		fn   string
		args []*ast.Node
		want float64
	}{
		{"parseInt", []*ast.Node{str("42px")}, 42},
		{"parseInt", []*ast.Node{str("  -17")}, -17},
		{"parseInt", []*ast.Node{str("0x1f")}, 31},
		{"parseInt", []*ast.Node{str("ff"), num("16")}, 255},
		{"parseInt", []*ast.Node{str("101"), num("2")}, 5},
		{"parseInt", []*ast.Node{str("3.9")}, 3},
		{"parseFloat", []*ast.Node{str("3.25abc")}, 3.25},
		{"parseFloat", []*ast.Node{str(".5")}, 0.5},
		{"parseFloat", []*ast.Node{str("-1e3")}, -1000},
		{"parseFloat", []*ast.Node{str("-Infinity")}, math.Inf(-1)},
	}
	for _, tt := range tests {
		result, _ := run(t, call(glob(tt.fn), tt.args...))
		require.Equal(t, tt.want, result.(*object.Number).Value(), "%s(%v)", tt.fn, tt.args[0].Value)
	}

	for _, fn := range []string{"parseInt", "parseFloat"} {
		result, _ := run(t, call(glob(fn), str("abc")))
		require.True(t, math.IsNaN(result.(*object.Number).Value()), fn)
	}
	result, _ := run(t, call(glob("parseInt"), str("7"), num("40")))
	require.True(t, math.IsNaN(result.(*object.Number).Value()))
}

func TestConversions(t *testing.T) {
	result, _ := run(t, ast.Array(
		call(glob("String"), num("1.5")),
		call(glob("Number"), str("12")),
		call(glob("Boolean"), str("")),
		call(glob("isNaN"), str("x")),
		call(glob("String")),
		call(glob("Number")),
	))
	require.Equal(t, `["1.5", 12, false, true, "", 0]`, result.Inspect())
}

func TestObjectHelpers(t *testing.T) {
	o := glob("o")
	obj := glob("Object")
	_, e := run(t,
		set(o, ast.Object(ast.Pair(str("a"), num("1")), ast.Pair(str("b"), num("2")))),
		set(glob("keys"), method(obj, "keys", o)),
		set(glob("values"), method(obj, "values", o)),
		set(glob("entries"), method(obj, "entries", o)),
		set(glob("merged"), method(obj, "assign", ast.Object(ast.Pair(str("z"), num("0"))), o, ast.Object(ast.Pair(str("a"), num("9"))))),
		set(glob("arrayKeys"), method(obj, "keys", ast.Array(str("x"), str("y")))),
		ast.Try(
			block(method(obj, "assign", num("1"))),
			ast.Catch(glob("err"), block(set(glob("assignErr"), ast.GetAttr(glob("err"), "name")))),
			nil,
		),
	)
	require.Equal(t, `["a", "b"]`, e.get(t, "keys").Inspect())
	require.Equal(t, `[1, 2]`, e.get(t, "values").Inspect())
	require.Equal(t, `[["a", 1], ["b", 2]]`, e.get(t, "entries").Inspect())
	require.Equal(t, `{z: 0, a: 9, b: 2}`, e.get(t, "merged").Inspect())
	require.Equal(t, `["0", "1"]`, e.get(t, "arrayKeys").Inspect())
	require.Equal(t, object.NewString("TypeError"), e.get(t, "assignErr"))
}

func TestScopeKeysThroughThis(t *testing.T) {
	_, e := run(t,
		function(glob("f"), params(loc("a")), block(
			set(loc("b"), num("2")),
			ast.Return(method(glob("Object"), "keys", ast.This())),
		)),
		set(glob("keys"), call(glob("f"), num("1"), ast.Kwarg("extra", num("3")))),
	)
	require.Equal(t, `["a", "b", "extra"]`, e.get(t, "keys").Inspect())
}

func TestArrayAndSetConstructors(t *testing.T) {
	_, e := run(t,
		set(glob("sized"), call(glob("Array"), num("3"))),
		set(glob("listed"), call(glob("Array"), num("1"), num("2"))),
		set(glob("isArr"), method(glob("Array"), "isArray", glob("listed"))),
		set(glob("notArr"), method(glob("Array"), "isArray", str("x"))),
		set(glob("s"), call(glob("Set"), ast.Array(num("1"), num("1"), num("2")))),
		set(glob("chars"), call(glob("Set"), str("aba"))),
		ast.Try(
			block(call(glob("Array"), num("-1"))),
			ast.Catch(glob("err"), block(set(glob("lenErr"), ast.GetAttr(glob("err"), "message")))),
			nil,
		),
	)
	require.Equal(t, 3, e.get(t, "sized").(*object.Array).Len())
	require.Equal(t, "1,2", object.ToString(e.get(t, "listed")))
	require.Equal(t, object.True, e.get(t, "isArr"))
	require.Equal(t, object.False, e.get(t, "notArr"))
	require.Equal(t, 2, e.get(t, "s").(*object.Set).Len())
	require.Equal(t, 2, e.get(t, "chars").(*object.Set).Len())
	require.Equal(t, object.NewString("Invalid array length"), e.get(t, "lenErr"))
}

func TestBuiltinGlobals(t *testing.T) {
	result, _ := run(t, ast.Array(
		ast.Prefix("typeof", glob("undefined")),
		ast.Binary("===", glob("NaN"), glob("NaN")),
		ast.Binary(">", glob("Infinity"), num("1e308")),
		ast.Prefix("typeof", glob("setTimeout")),
	))
	require.Equal(t, "undefined,false,true,function", object.ToString(result))
}
