package ast

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/require"
)

func TestString(t *testing.T) {
	n := Assign("=", Global("x"), Binary("+", Number("1"), String("a")))
	require.Equal(t, `(assign = (global x) (binary + (number 1) (string "a")))`, n.String())
}

func TestPreorder(t *testing.T) {
	n := Module(If(Local("a"), Block(Return(Number("1"))), Block()))
	var kinds []string
	for node := range Preorder(n) {
		kinds = append(kinds, string(node.Kind))
	}
	require.Equal(t, "module if local block return number block", strings.Join(kinds, " "))
}

func TestPreorderStopsEarly(t *testing.T) {
	count := 0
	Inspect(Module(Number("1"), Number("2"), Number("3")), func(n *Node) bool {
		count++
		return n.Kind != KindNumber
	})
	require.Equal(t, 2, count)
}

func TestPreorderDeepTree(t *testing.T) {
	n := Number("0")
	for i := 0; i < 100000; i++ {
		n = Grouping(n)
	}
	count := 0
	for range Preorder(n) {
		count++
	}
	require.Equal(t, 100001, count)
}

func TestValidateOK(t *testing.T) {
	f := Function(Global("f"),
		Params(Local("x"), Assign("=", Local("y"), Number("2")), Spread(Local("rest"))),
		Block(Return(Binary("+", Local("x"), Local("y")))),
		nil,
	)
	require.Nil(t, Validate(Module(f, Call(Global("f")))))
}

func TestValidateAggregates(t *testing.T) {
	tree := Module(
		&Node{Kind: "class"},
		Binary("<>", Number("1"), Number("2")),
		&Node{Kind: KindTernary, Children: []*Node{Number("1")}, Line: 4, Column: 2},
		Assign("=", Number("1"), Number("2")),
	)
	err := Validate(tree)
	require.NotNil(t, err)

	var merr *multierror.Error
	require.True(t, errors.As(err, &merr))
	require.Len(t, merr.Errors, 4)

	codes := make([]errz.ErrorCode, 0, len(merr.Errors))
	for _, e := range merr.Errors {
		var ce *errz.CompileError
		require.True(t, errors.As(e, &ce))
		codes = append(codes, ce.Code)
	}
	require.Equal(t, []errz.ErrorCode{errz.E2101, errz.E2104, errz.E2103, errz.E2105}, codes)
	require.Contains(t, err.Error(), "4 problem(s) in tree")
	require.Contains(t, err.Error(), "at 4:2")
}

func TestValidateTry(t *testing.T) {
	ok := Try(Block(), Catch(Local("e"), Block()), Finally(Block()))
	require.Nil(t, Validate(ok))

	bad := &Node{Kind: KindTry, Children: []*Node{Block(), Finally(Block()), Catch(nil, Block())}}
	require.NotNil(t, Validate(bad))
}

func TestValidateSwitch(t *testing.T) {
	require.Nil(t, Validate(Switch(Local("x"), Case(Number("1"), Break()), Default())))
	require.NotNil(t, Validate(Switch(Local("x"), Default(), Default())))
	require.NotNil(t, Validate(Switch(Local("x"), Block())))
}

func TestDecodeJSON(t *testing.T) {
	src := `{"kind":"module","children":[{"kind":"assign","value":"=","children":[
		{"kind":"global","value":"x"},{"kind":"number","value":"42","line":1,"column":5}]}]}`
	root, err := Decode(strings.NewReader(src), FormatJSON)
	require.Nil(t, err)
	require.Equal(t, "(module (assign = (global x) (number 42)))", root.String())
	require.Equal(t, 5, root.Children[0].Children[1].Column)

	_, err = Decode(strings.NewReader(`{"kind":"module","bogus":1}`), FormatJSON)
	require.NotNil(t, err)
}

func TestDecodeYAML(t *testing.T) {
	src := `
kind: module
children:
  - kind: call
    children:
      - kind: getattr
        value: log
        children:
          - {kind: global, value: console}
      - {kind: string, value: hello}
`
	root, err := Decode(strings.NewReader(src), FormatYAML)
	require.Nil(t, err)
	require.Equal(t, `(module (call (getattr log (global console)) (string "hello")))`, root.String())
}

func TestEncodeRoundTrip(t *testing.T) {
	tree := Module(Assign("=", Global("s"), Array(Number("1"), String("two"))))
	for _, format := range []Format{FormatJSON, FormatYAML} {
		var buf bytes.Buffer
		require.Nil(t, Encode(&buf, tree, format))
		back, err := Decode(&buf, format)
		require.Nil(t, err)
		require.Equal(t, tree.String(), back.String())
	}
}

func TestFormatForPath(t *testing.T) {
	require.Equal(t, FormatYAML, FormatForPath("prog.YML"))
	require.Equal(t, FormatYAML, FormatForPath("a/b.yaml"))
	require.Equal(t, FormatJSON, FormatForPath("prog.json"))
}
