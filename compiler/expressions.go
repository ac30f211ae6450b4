package compiler

import (
	"math"
	"math/big"
	"strconv"
	"strings"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/op"
)

var binaryOps = map[string]op.Code{
	"+":   op.Add,
	"-":   op.Subtract,
	"*":   op.Multiply,
	"/":   op.Divide,
	"%":   op.Modulo,
	"**":  op.Power,
	"<<":  op.ShiftLeft,
	">>":  op.ShiftRight,
	"&":   op.BitwiseAnd,
	"|":   op.BitwiseOr,
	"^":   op.BitwiseXor,
	"<":   op.LessThan,
	"<=":  op.LessThanOrEqual,
	"==":  op.Equal,
	"!=":  op.NotEqual,
	">=":  op.GreaterThanOrEqual,
	">":   op.GreaterThan,
	"===": op.StrictEqual,
	"!==": op.StrictNotEqual,
	"in":  op.HasAttr,
}

var prefixOps = map[string]op.Code{
	"!":      op.Not,
	"~":      op.BitwiseNot,
	"+":      op.Positive,
	"-":      op.Negative,
	"typeof": op.GetTypename,
}

func isUpdate(operator string) bool {
	return operator == "++" || operator == "--"
}

type access uint8

const (
	accessGet access = iota
	accessSet
	accessDelete
)

var (
	localOps  = [...]op.Code{op.LocalGet, op.LocalSet, op.LocalDelete}
	globalOps = [...]op.Code{op.GlobalGet, op.GlobalSet, op.GlobalDelete}
	cellOps   = [...]op.Code{op.CellGet, op.CellSet, op.CellDelete}
)

// emitVariable resolves a variable node against the current function's
// tables and schedules the matching get, set or delete instruction.
func (c *Compiler) emitVariable(n *ast.Node, a access) error {
	in, err := c.variableInstr(n, a)
	if err != nil {
		return err
	}
	c.fs.push(emit(in))
	return nil
}

func (c *Compiler) variableInstr(n *ast.Node, a access) (*Instruction, error) {
	def := c.fs.def
	name := n.Value
	switch n.Kind {
	case ast.KindGlobal:
		return c.instr(globalOps[a], c.module.Globals.Insert(name), n), nil
	case ast.KindCell:
		return c.instr(cellOps[a], def.Cells.Insert(name), n), nil
	case ast.KindFree:
		idx, ok := def.Cells.Index(name)
		if !ok {
			return nil, errorAt(n, errz.E2001, "captured variable %q is not in the closure of %s", name, def.Name)
		}
		return c.instr(cellOps[a], idx, n), nil
	case ast.KindLocal:
		if idx, ok := def.Cells.Index(name); ok {
			return c.instr(cellOps[a], idx, n), nil
		}
		idx, ok := def.Locals.Index(name)
		if !ok {
			if a != accessSet {
				return nil, errorAt(n, errz.E2001, "undefined local %q", name)
			}
			idx = def.Locals.Insert(name)
		}
		return c.instr(localOps[a], idx, n), nil
	}
	return nil, errorAt(n, errz.E2105, "%s is not a variable", n.Kind)
}

// visitStore schedules the instructions that consume the top of the stack
// into the target n.
func (c *Compiler) visitStore(n *ast.Node) error {
	switch n.Kind {
	case ast.KindLocal, ast.KindGlobal, ast.KindCell, ast.KindFree:
		return c.emitVariable(n, accessSet)
	case ast.KindGetAttr:
		attr := c.fs.def.Attrs.Insert(n.Value)
		c.fs.push(load(n.Children[0]), emit(c.instr(op.SetAttr, attr, n)))
	case ast.KindSubscr:
		c.fs.push(load(n.Children[1]), load(n.Children[0]), emit(c.instr(op.SetIndex, 0, n)))
	case ast.KindGrouping:
		c.fs.push(store(n.Children[0]))
	default:
		return errorAt(n, errz.E2105, "cannot assign to %s", n.Kind)
	}
	return nil
}

func (c *Compiler) visitLiteral(n *ast.Node) error {
	switch n.Kind {
	case ast.KindNumber:
		return c.emitNumber(n, n.Value)
	case ast.KindString:
		c.fs.push(emit(c.instr(op.String, c.stringConstant(n.Value), n)))
	case ast.KindKeyword:
		switch n.Value {
		case "true":
			c.fs.push(emit(c.instr(op.Bool, 1, n)))
		case "false":
			c.fs.push(emit(c.instr(op.Bool, 0, n)))
		case "null":
			c.fs.push(emit(c.instr(op.Null, 0, n)))
		case "undefined":
			c.fs.push(emit(c.instr(op.Undefined, 0, n)))
		case "this":
			c.fs.push(emit(c.instr(op.LocalGet, c.fs.def.Locals.Insert("this"), n)))
		default:
			return errorAt(n, errz.E2102, "unknown keyword %q", n.Value)
		}
	}
	return nil
}

func (c *Compiler) emitNumber(n *ast.Node, text string) error {
	value, isInt, err := parseNumber(text)
	if err != nil {
		return errorAt(n, errz.E2102, "invalid number literal %q", n.Value)
	}
	negZero := value == 0 && math.Signbit(value)
	if isInt && !negZero && value >= MinInt && value <= MaxInt {
		c.fs.push(emit(c.instr(op.Int, int(value), n)))
		return nil
	}
	c.fs.push(emit(c.instr(op.Float, c.floatConstant(value), n)))
	return nil
}

// parseNumber parses a numeric literal. Underscore separators are ignored
// and 0x, 0o and 0b prefixes select the radix. isInt reports whether the
// literal was written as an integer.
func parseNumber(text string) (value float64, isInt bool, err error) {
	s := strings.ReplaceAll(text, "_", "")
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}
	sign := 1.0
	if neg {
		sign = -1
	}
	if s == "" {
		return 0, false, strconv.ErrSyntax
	}
	if len(s) > 2 && s[0] == '0' {
		base := 0
		switch s[1] {
		case 'x', 'X':
			base = 16
		case 'o', 'O':
			base = 8
		case 'b', 'B':
			base = 2
		}
		if base != 0 {
			i, ok := new(big.Int).SetString(s[2:], base)
			if !ok {
				return 0, false, strconv.ErrSyntax
			}
			f, _ := new(big.Float).SetInt(i).Float64()
			return sign * f, true, nil
		}
	}
	if c := s[0]; c != '.' && (c < '0' || c > '9') {
		return 0, false, strconv.ErrSyntax
	}
	if strings.IndexFunc(s, func(r rune) bool { return r < '0' || r > '9' }) < 0 {
		i, ok := new(big.Int).SetString(s, 10)
		if !ok {
			return 0, false, strconv.ErrSyntax
		}
		f, _ := new(big.Float).SetInt(i).Float64()
		return sign * f, true, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil && !math.IsInf(f, 0) {
		return 0, false, strconv.ErrSyntax
	}
	return sign * f, false, nil
}

func (c *Compiler) visitBinary(n *ast.Node) error {
	lhs, rhs := n.Children[0], n.Children[1]
	switch n.Value {
	case "&&":
		end := c.instr(op.End, 0, n)
		test := c.jumpInstr(op.If, n)
		c.jumpTo(test, end)
		c.fs.push(
			load(lhs), emit(c.instr(op.Dup, 0, n)), emit(test),
			emit(c.instr(op.Pop, 0, n)), load(rhs), emit(end),
		)
		return nil
	case "||", "??":
		code := op.If
		if n.Value == "??" {
			code = op.IfNull
		}
		end := c.instr(op.End, 0, n)
		test := c.jumpInstr(code, n)
		els := c.jumpInstr(op.Else, n)
		c.jumpTo(test, els)
		c.jumpTo(els, end)
		c.fs.push(
			load(lhs), emit(c.instr(op.Dup, 0, n)), emit(test), emit(els),
			emit(c.instr(op.Pop, 0, n)), load(rhs), emit(end),
		)
		return nil
	}
	code, ok := binaryOps[n.Value]
	if !ok {
		return errorAt(n, errz.E2104, "unsupported binary operator %q", n.Value)
	}
	c.fs.push(load(lhs), load(rhs), emit(c.instr(code, 0, n)))
	return nil
}

func (c *Compiler) visitAssign(in intent, n *ast.Node) error {
	target, value := n.Children[0], n.Children[1]
	dup := func() []work {
		if in == intentLoad {
			return []work{emit(c.instr(op.Dup, 0, n))}
		}
		return nil
	}
	switch n.Value {
	case "=":
		items := append([]work{load(value)}, dup()...)
		c.fs.push(append(items, store(target))...)
		return nil
	case "??=", "||=":
		code := op.IfNull
		if n.Value == "||=" {
			code = op.If
		}
		end := c.instr(op.End, 0, n)
		test := c.jumpInstr(code, n)
		els := c.jumpInstr(op.Else, n)
		c.jumpTo(test, els)
		c.jumpTo(els, end)
		items := []work{load(target), emit(test), emit(els), load(value), store(target), emit(end)}
		if in == intentLoad {
			items = append(items, load(target))
		}
		c.fs.push(items...)
		return nil
	case "&&=":
		end := c.instr(op.End, 0, n)
		test := c.jumpInstr(op.If, n)
		c.jumpTo(test, end)
		items := []work{load(target), emit(test), load(value), store(target), emit(end)}
		if in == intentLoad {
			items = append(items, load(target))
		}
		c.fs.push(items...)
		return nil
	}
	code, ok := binaryOps[strings.TrimSuffix(n.Value, "=")]
	if !ok {
		return errorAt(n, errz.E2104, "unsupported assignment operator %q", n.Value)
	}
	items := []work{load(target), load(value), emit(c.instr(code, 0, n))}
	items = append(items, dup()...)
	c.fs.push(append(items, store(target))...)
	return nil
}

func (c *Compiler) visitTernary(in intent, n *ast.Node) error {
	end := c.instr(op.End, 0, n)
	test := c.jumpInstr(op.If, n)
	els := c.jumpInstr(op.Else, n)
	c.jumpTo(test, els)
	c.jumpTo(els, end)
	c.fs.push(
		load(n.Children[0]), emit(test),
		visitAs(in, n.Children[1]), emit(els),
		visitAs(in, n.Children[2]), emit(end),
	)
	return nil
}

func (c *Compiler) visitPrefix(in intent, n *ast.Node) error {
	operand := n.Children[0]
	switch n.Value {
	case "++", "--":
		items := []work{load(operand), emit(c.instr(op.Int, 1, n)), emit(c.instr(updateOp(n.Value), 0, n))}
		if in == intentLoad {
			items = append(items, emit(c.instr(op.Dup, 0, n)))
		}
		c.fs.push(append(items, store(operand))...)
		return nil
	case "delete":
		var items []work
		switch operand.Kind {
		case ast.KindGetAttr:
			attr := c.fs.def.Attrs.Insert(operand.Value)
			items = []work{load(operand.Children[0]), emit(c.instr(op.DelAttr, attr, operand))}
		case ast.KindSubscr:
			items = []work{load(operand.Children[1]), load(operand.Children[0]), emit(c.instr(op.DelIndex, 0, operand))}
		case ast.KindLocal, ast.KindGlobal, ast.KindCell, ast.KindFree:
			del, err := c.variableInstr(operand, accessDelete)
			if err != nil {
				return err
			}
			items = []work{emit(del)}
		default:
			items = []work{bare(operand)}
		}
		if in == intentLoad {
			items = append(items, emit(c.instr(op.Bool, 1, n)))
		}
		c.fs.push(items...)
		return nil
	case "-":
		if operand.Kind == ast.KindNumber {
			return c.emitNumber(operand, "-"+operand.Value)
		}
	}
	code, ok := prefixOps[n.Value]
	if !ok {
		return errorAt(n, errz.E2104, "unsupported prefix operator %q", n.Value)
	}
	c.fs.push(load(operand), emit(c.instr(code, 0, n)))
	return nil
}

func updateOp(operator string) op.Code {
	if operator == "--" {
		return op.Subtract
	}
	return op.Add
}

func (c *Compiler) visitPostfix(in intent, n *ast.Node) error {
	operand := n.Children[0]
	items := []work{load(operand)}
	if in == intentLoad {
		items = append(items, emit(c.instr(op.Dup, 0, n)))
	}
	items = append(items,
		emit(c.instr(op.Int, 1, n)),
		emit(c.instr(updateOp(n.Value), 0, n)),
		store(operand),
	)
	c.fs.push(items...)
	return nil
}

func hasSpread(items []*ast.Node) bool {
	for _, item := range items {
		if item.Kind == ast.KindSpread {
			return true
		}
	}
	return false
}

// visitObject builds an object literal. Without spreads all pairs go to a
// single CREATE_OBJECT. Otherwise runs of pairs and spread sources are merged
// into an initially empty object one at a time.
func (c *Compiler) visitObject(n *ast.Node) error {
	if !hasSpread(n.Children) {
		items := make([]work, 0, 2*len(n.Children)+1)
		for _, pair := range n.Children {
			items = append(items, load(pair.Children[0]), load(pair.Children[1]))
		}
		items = append(items, emit(c.instr(op.CreateObject, len(n.Children), n)))
		c.fs.push(items...)
		return nil
	}
	items := []work{emit(c.instr(op.CreateObject, 0, n))}
	var run int
	flush := func() {
		if run > 0 {
			items = append(items,
				emit(c.instr(op.CreateObject, run, n)),
				emit(c.instr(op.UpdateObject, 0, n)))
			run = 0
		}
	}
	for _, member := range n.Children {
		if member.Kind == ast.KindSpread {
			flush()
			items = append(items, load(member.Children[0]), emit(c.instr(op.UpdateObject, 0, member)))
			continue
		}
		items = append(items, load(member.Children[0]), load(member.Children[1]))
		run++
	}
	flush()
	c.fs.push(items...)
	return nil
}

func (c *Compiler) visitArray(n *ast.Node) error {
	c.fs.push(c.arrayItems(n, n.Children)...)
	return nil
}

// arrayItems schedules the construction of an array from elements that may
// include spreads.
func (c *Compiler) arrayItems(n *ast.Node, elems []*ast.Node) []work {
	if !hasSpread(elems) {
		items := make([]work, 0, len(elems)+1)
		for _, e := range elems {
			items = append(items, load(e))
		}
		return append(items, emit(c.instr(op.CreateArray, len(elems), n)))
	}
	items := []work{emit(c.instr(op.CreateArray, 0, n))}
	var run int
	flush := func() {
		if run > 0 {
			items = append(items,
				emit(c.instr(op.CreateArray, run, n)),
				emit(c.instr(op.UpdateArray, 0, n)))
			run = 0
		}
	}
	for _, e := range elems {
		if e.Kind == ast.KindSpread {
			flush()
			items = append(items, load(e.Children[0]), emit(c.instr(op.UpdateArray, 0, e)))
			continue
		}
		items = append(items, load(e))
		run++
	}
	flush()
	return items
}

// visitCall compiles a call in one of three shapes: CALL with positional
// arguments, CALL_KW with a trailing object of keyword arguments, or CALL_EX
// with an argument array and a keyword object when any argument is spread.
func (c *Compiler) visitCall(in intent, n *ast.Node) error {
	callee, args := n.Children[0], n.Children[1:]
	var positional, kwargs []*ast.Node
	for _, arg := range args {
		if arg.Kind == ast.KindKwarg {
			kwargs = append(kwargs, arg)
			continue
		}
		if len(kwargs) > 0 {
			return errorAt(arg, errz.E2106, "positional argument follows keyword argument")
		}
		positional = append(positional, arg)
	}

	items := []work{load(callee)}
	kwObject := func() {
		for _, kw := range kwargs {
			items = append(items,
				emit(c.instr(op.String, c.stringConstant(kw.Value), kw)),
				load(kw.Children[0]))
		}
		items = append(items, emit(c.instr(op.CreateObject, len(kwargs), n)))
	}
	switch {
	case hasSpread(positional):
		items = append(items, c.arrayItems(n, positional)...)
		kwObject()
		items = append(items, emit(c.instr(op.CallEx, 0, n)))
	case len(kwargs) > 0:
		for _, arg := range positional {
			items = append(items, load(arg))
		}
		kwObject()
		items = append(items, emit(c.instr(op.CallKw, len(positional), n)))
	default:
		for _, arg := range positional {
			items = append(items, load(arg))
		}
		items = append(items, emit(c.instr(op.Call, len(positional), n)))
	}
	if in == intentBare {
		items = append(items, emit(c.instr(op.Pop, 0, n)))
	}
	c.fs.push(items...)
	return nil
}
