package compiler

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/op"
)

// DefaultRestName is the local that collects overflow positional arguments
// when a function does not declare a rest parameter.
const DefaultRestName = "_x_daedalus_js_args"

// MainName is the name of the module body function.
const MainName = "__main__"

// Instruction is a single opcode with at most one immediate.
type Instruction struct {
	Op     op.Code
	Arg    int
	Line   int
	Column int
}

// FunctionDef holds the compiled body of one function. Nested functions are
// siblings in the Module function table and refer to each other by index.
type FunctionDef struct {
	Index        int
	Name         string
	Instructions []Instruction

	// Locals holds argument labels, then the rest parameter, then every
	// other local in order of first assignment.
	Locals *NameTable

	// Cells holds the names of variables stored in shared references. Names
	// captured from an enclosing function are also listed in Frees.
	Cells *NameTable
	Frees []string

	// FreeCellIndex maps the j-th captured reference to its cell index.
	FreeCellIndex []int

	// Attrs holds attribute names used by GET_ATTR, SET_ATTR and DEL_ATTR.
	Attrs *NameTable

	ArgLabels  []string
	ParamCells []int // cell index per argument label, or -1
	RestIndex  int
	RestCell   int // cell index of the rest parameter, or -1
	ThisIndex  int // local index of "this", or -1

	HasClosure bool
	Autobind   bool

	Line   int
	Column int
}

// Location returns the source location of the instruction at ip.
func (f *FunctionDef) Location(ip int) errz.SourceLocation {
	if ip < 0 || ip >= len(f.Instructions) {
		return errz.SourceLocation{Line: f.Line, Column: f.Column}
	}
	in := f.Instructions[ip]
	return errz.SourceLocation{Line: in.Line, Column: in.Column}
}

// Module is the output of compiling one tree.
type Module struct {
	Filename  string
	Globals   *NameTable
	Constants []any // string or float64
	Functions []*FunctionDef
}

// Main returns the module body function.
func (m *Module) Main() *FunctionDef {
	return m.Functions[0]
}

// Constant returns the constant pool entry at idx.
func (m *Module) Constant(idx int) (any, bool) {
	if idx < 0 || idx >= len(m.Constants) {
		return nil, false
	}
	return m.Constants[idx], true
}

// OperandString renders the immediate of an instruction with the name or
// constant it refers to.
func (m *Module) OperandString(fn *FunctionDef, in Instruction) string {
	info := op.GetInfo(in.Op)
	if info.OperandCount == 0 {
		return ""
	}
	arg := strconv.Itoa(in.Arg)
	switch info.Category {
	case op.CategoryLocal:
		return arg + ":" + fn.Locals.Name(in.Arg)
	case op.CategoryGlobal:
		return arg + ":" + m.Globals.Name(in.Arg)
	case op.CategoryCell:
		return arg + ":" + fn.Cells.Name(in.Arg)
	}
	switch in.Op {
	case op.GetAttr, op.SetAttr, op.DelAttr:
		return arg + ":" + fn.Attrs.Name(in.Arg)
	case op.String, op.Float:
		value, ok := m.Constant(in.Arg)
		if !ok {
			return arg + ":?"
		}
		return arg + ":" + formatConstant(value)
	case op.CreateFunction:
		if in.Arg >= 0 && in.Arg < len(m.Functions) {
			return arg + ":" + m.Functions[in.Arg].Name
		}
	}
	return arg
}

func formatConstant(value any) string {
	switch v := value.(type) {
	case string:
		return strconv.Quote(v)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Dump writes every function in the module, one instruction per line in the
// form "<position> <opcode-name> <operand>".
func (m *Module) Dump(w io.Writer) error {
	for _, fn := range m.Functions {
		if err := m.DumpFunction(w, fn); err != nil {
			return err
		}
	}
	return nil
}

// DumpFunction writes a single function.
func (m *Module) DumpFunction(w io.Writer, fn *FunctionDef) error {
	name := fn.Name
	if name == "" {
		name = "<anonymous>"
	}
	if _, err := fmt.Fprintf(w, "--- %3d %s ---\n", fn.Index, name); err != nil {
		return err
	}
	for ip, in := range fn.Instructions {
		line := fmt.Sprintf("%4d %s %s", ip, in.Op, m.OperandString(fn, in))
		if _, err := fmt.Fprintln(w, strings.TrimRight(line, " ")); err != nil {
			return err
		}
	}
	return nil
}

// String returns the full dump as a string.
func (m *Module) String() string {
	var b strings.Builder
	_ = m.Dump(&b)
	return b.String()
}
