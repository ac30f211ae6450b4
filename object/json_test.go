package object

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestStringify(t *testing.T) {
	inner := NewMap()
	inner.Set("z", NewNumber(1))
	inner.Set("a", NewArray([]Object{True, Null, Undefined, NaN}))
	m := NewMap()
	m.Set("name", NewString("<x>\n"))
	m.Set("skip", NewBuiltin("f", nil))
	m.Set("inner", inner)

	got, ok, err := Stringify(m, "")
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, `{"name":"<x>\n","inner":{"z":1,"a":[true,null,null,null]}}`, got)

	got, ok, err = Stringify(inner, "  ")
	require.Nil(t, err)
	require.True(t, ok)
	require.Equal(t, "{\n  \"z\": 1,\n  \"a\": [\n    true,\n    null,\n    null,\n    null\n  ]\n}", got)
}

func TestStringifyEdgeCases(t *testing.T) {
	_, ok, err := Stringify(Undefined, "")
	require.Nil(t, err)
	require.False(t, ok)

	got, _, err := Stringify(NewArray(nil), "  ")
	require.Nil(t, err)
	require.Equal(t, "[]", got)

	got, _, err = Stringify(NewMap(), "  ")
	require.Nil(t, err)
	require.Equal(t, "{}", got)

	loop := NewArray(nil)
	loop.Append(loop)
	_, _, err = Stringify(loop, "")
	require.Error(t, err)
}

func TestParseJSON(t *testing.T) {
	value, err := ParseJSON(`{"z": [1, 2.5, "s", true, null], "a": {"nested": {}}, "e": []}`)
	require.Nil(t, err)
	m, ok := value.(*Map)
	require.True(t, ok)
	require.Equal(t, []string{"z", "a", "e"}, m.Keys())
	require.Equal(t, `{z: [1, 2.5, "s", true, null], a: {nested: {}}, e: []}`, m.Inspect())

	value, err = ParseJSON(` "text" `)
	require.Nil(t, err)
	require.Equal(t, NewString("text"), value)

	value, err = ParseJSON(`-12e2`)
	require.Nil(t, err)
	require.Equal(t, NewNumber(-1200), value)
}

func TestParseJSONErrors(t *testing.T) {
	for _, text := range []string{"", "{bad", `[1,]`, `{"a": 1} extra`, `{1: 2}`} {
		_, err := ParseJSON(text)
		require.Error(t, err, text)
		thrown, ok := err.(*ThrownError)
		require.True(t, ok, text)
		require.Equal(t, "SyntaxError", ToString(mustGet(t, thrown.Value, "name")), text)
	}
}
