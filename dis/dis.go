// Package dis supports analysis of compiled modules by disassembling them
// into annotated instruction listings.
package dis

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/internal/table"
	"github.com/daedalus-js/daedalus/op"
)

// Instruction represents a single instruction and its operand.
type Instruction struct {
	Offset     int
	Name       string
	Opcode     op.Code
	Operand    int
	HasOperand bool
	Annotation string
	Constant   any
	Line       int
}

// Disassemble returns a parsed representation of one function of mod.
func Disassemble(mod *compiler.Module, fn *compiler.FunctionDef) ([]Instruction, error) {
	instructions := make([]Instruction, 0, len(fn.Instructions))
	for offset, in := range fn.Instructions {
		info := op.GetInfo(in.Op)
		if !info.Valid() {
			return nil, fmt.Errorf("%s: invalid opcode %d at offset %d", fn.Name, in.Op, offset)
		}
		instr := Instruction{
			Offset:     offset,
			Name:       info.Name,
			Opcode:     in.Op,
			Operand:    in.Arg,
			HasOperand: info.OperandCount > 0,
			Line:       in.Line,
		}
		var err error
		switch info.Category {
		case op.CategoryLocal:
			instr.Annotation, err = name(fn.Locals, "local", in.Arg)
		case op.CategoryGlobal:
			instr.Annotation, err = name(mod.Globals, "global", in.Arg)
		case op.CategoryCell:
			instr.Annotation, err = name(fn.Cells, "cell", in.Arg)
		}
		switch in.Op {
		case op.GetAttr, op.SetAttr, op.DelAttr:
			instr.Annotation, err = name(fn.Attrs, "attribute", in.Arg)
		case op.If, op.IfNull, op.Else, op.Jump:
			instr.Annotation = "to " + strconv.Itoa(offset+in.Arg)
		case op.Int:
			instr.Constant = in.Arg
		case op.Bool:
			instr.Constant = in.Arg != 0
		case op.Float, op.String:
			value, ok := mod.Constant(in.Arg)
			if !ok {
				err = fmt.Errorf("constant index out of range: %d", in.Arg)
			}
			instr.Constant = value
		case op.CreateFunction:
			if in.Arg < 0 || in.Arg >= len(mod.Functions) {
				err = fmt.Errorf("function index out of range: %d", in.Arg)
			} else {
				instr.Constant = mod.Functions[in.Arg]
			}
		}
		if err != nil {
			return nil, err
		}
		instructions = append(instructions, instr)
	}
	return instructions, nil
}

func name(t *compiler.NameTable, kind string, index int) (string, error) {
	if t == nil || index < 0 || index >= t.Len() {
		return "", fmt.Errorf("%s index out of range: %d", kind, index)
	}
	return t.Name(index), nil
}

// Lookup returns the function of mod with the given name.
func Lookup(mod *compiler.Module, fnName string) (*compiler.FunctionDef, error) {
	for _, fn := range mod.Functions {
		if fn.Name == fnName {
			return fn, nil
		}
	}
	return nil, fmt.Errorf("function %q not found", fnName)
}

var (
	bold      = color.New(color.Bold).SprintFunc()
	italic    = color.New(color.Italic).SprintFunc()
	number    = color.New(color.FgYellow).SprintFunc()
	text      = color.New(color.FgGreen).SprintFunc()
	function  = color.New(color.FgMagenta).SprintFunc()
	annotated = color.New(color.FgHiCyan).SprintFunc()
)

// Print a table of the given instructions to the given writer.
func Print(instructions []Instruction, writer io.Writer) {
	var lines [][]string
	for _, instr := range instructions {
		values := []string{strconv.Itoa(instr.Offset), bold(instr.Name), ""}
		if instr.HasOperand {
			values[2] = strconv.Itoa(instr.Operand)
		}
		switch c := instr.Constant.(type) {
		case nil:
			values = append(values, annotated(instr.Annotation))
		case int:
			values = append(values, number(strconv.Itoa(c)))
		case float64:
			values = append(values, number(strconv.FormatFloat(c, 'g', -1, 64)))
		case bool:
			values = append(values, number(strconv.FormatBool(c)))
		case string:
			if len(c) > 80 {
				c = c[:77] + "..."
			}
			values = append(values, text(strconv.Quote(c)))
		case *compiler.FunctionDef:
			fnName := c.Name
			if fnName == "" {
				fnName = italic("<anonymous>")
			}
			values = append(values, function("func:"+fnName))
		default:
			values = append(values, bold(fmt.Sprintf("%v", c)))
		}
		lines = append(lines, values)
	}

	table.NewTable(writer).
		WithHeader([]string{"OFFSET", "OPCODE", "OPERAND", "INFO"}).
		WithColumnAlignment([]table.Alignment{
			table.AlignRight,
			table.AlignLeft,
			table.AlignRight,
			table.AlignLeft,
		}).
		WithHeaderAlignment([]table.Alignment{
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
			table.AlignCenter,
		}).
		WithRows(lines).
		Render()
}

// PrintModule prints every function of mod under a heading line.
func PrintModule(mod *compiler.Module, writer io.Writer) error {
	for i, fn := range mod.Functions {
		instructions, err := Disassemble(mod, fn)
		if err != nil {
			return err
		}
		if i > 0 {
			fmt.Fprintln(writer)
		}
		heading := fn.Name
		if heading == "" {
			heading = "<anonymous>"
		}
		fmt.Fprintf(writer, "%s %s\n", bold(fmt.Sprintf("function %d:", fn.Index)), heading)
		Print(instructions, writer)
	}
	return nil
}
