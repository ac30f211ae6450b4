package dis

import (
	"bytes"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/op"
)

func noColor(t *testing.T) {
	saved := color.NoColor
	color.NoColor = true
	t.Cleanup(func() { color.NoColor = saved })
}

func def(name string, code ...compiler.Instruction) *compiler.FunctionDef {
	return &compiler.FunctionDef{
		Name:         name,
		Instructions: code,
		Locals:       compiler.NewNameTable(),
		Cells:        compiler.NewNameTable(),
		Attrs:        compiler.NewNameTable(),
		RestIndex:    -1,
		RestCell:     -1,
		ThisIndex:    -1,
	}
}

func TestPrintTable(t *testing.T) {
	noColor(t)
	main := def(compiler.MainName,
		compiler.Instruction{Op: op.Int, Arg: 42},
		compiler.Instruction{Op: op.GlobalSet, Arg: 0},
		compiler.Instruction{Op: op.String, Arg: 0},
		compiler.Instruction{Op: op.Float, Arg: 1},
		compiler.Instruction{Op: op.If, Arg: 2},
		compiler.Instruction{Op: op.Bool, Arg: 1},
		compiler.Instruction{Op: op.CreateFunction, Arg: 1},
		compiler.Instruction{Op: op.Return, Arg: 1},
	)
	mod := &compiler.Module{
		Globals:   compiler.NewNameTable("x"),
		Constants: []any{"hi", 2.5},
		Functions: []*compiler.FunctionDef{main, def("")},
	}
	instructions, err := Disassemble(mod, main)
	require.Nil(t, err)
	require.Len(t, instructions, 8)

	var buf bytes.Buffer
	Print(instructions, &buf)
	expected := strings.TrimSpace(`
+--------+-----------------+---------+------------------+
| OFFSET |     OPCODE      | OPERAND |       INFO       |
+--------+-----------------+---------+------------------+
|      0 | INT             |      42 | 42               |
|      1 | GLOBAL_SET      |       0 | x                |
|      2 | STRING          |       0 | "hi"             |
|      3 | FLOAT           |       1 | 2.5              |
|      4 | IF              |       2 | to 6             |
|      5 | BOOL            |       1 | true             |
|      6 | CREATE_FUNCTION |       1 | func:<anonymous> |
|      7 | RETURN          |       1 |                  |
+--------+-----------------+---------+------------------+
`)
	require.Equal(t, expected+"\n", buf.String())
}

func TestDisassembleCompiled(t *testing.T) {
	root := ast.Module(
		ast.Function(ast.Global("f"), ast.Params(ast.Local("a")), ast.Block(
			ast.Return(ast.GetAttr(ast.Local("a"), "size")),
		), nil),
		ast.Assign("=", ast.Global("y"), ast.Call(ast.Global("f"), ast.String("abc"))),
	)
	mod, err := compiler.Compile(root)
	require.Nil(t, err)

	fn, err := Lookup(mod, "f")
	require.Nil(t, err)
	instructions, err := Disassemble(mod, fn)
	require.Nil(t, err)
	var annotations []string
	for _, instr := range instructions {
		annotations = append(annotations, instr.Annotation)
	}
	require.Contains(t, annotations, "a")
	require.Contains(t, annotations, "size")

	_, err = Lookup(mod, "missing")
	require.EqualError(t, err, `function "missing" not found`)

	noColor(t)
	var buf bytes.Buffer
	require.Nil(t, PrintModule(mod, &buf))
	out := buf.String()
	require.Contains(t, out, "function 0: "+compiler.MainName)
	require.Contains(t, out, "function 1: f")
	require.Contains(t, out, "func:f")
	require.Contains(t, out, `"abc"`)
}

func TestDisassembleErrors(t *testing.T) {
	tests := []struct {
		name string
		in   compiler.Instruction
		want string
	}{
		{"opcode", compiler.Instruction{Op: op.Code(250)}, "invalid opcode 250"},
		{"local", compiler.Instruction{Op: op.LocalGet, Arg: 3}, "local index out of range: 3"},
		{"global", compiler.Instruction{Op: op.GlobalGet, Arg: 1}, "global index out of range: 1"},
		{"constant", compiler.Instruction{Op: op.String, Arg: 9}, "constant index out of range: 9"},
		{"function", compiler.Instruction{Op: op.CreateFunction, Arg: 4}, "function index out of range: 4"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fn := def("bad", tt.in)
			mod := &compiler.Module{Globals: compiler.NewNameTable(), Functions: []*compiler.FunctionDef{fn}}
			_, err := Disassemble(mod, fn)
			require.ErrorContains(t, err, tt.want)
		})
	}
}
