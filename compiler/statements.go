package compiler

import (
	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/op"
)

// valueKinds are expressions whose value is discarded with a POP when they
// appear in statement position.
var valueKinds = map[ast.Kind]bool{
	ast.KindNumber:   true,
	ast.KindString:   true,
	ast.KindKeyword:  true,
	ast.KindLocal:    true,
	ast.KindGlobal:   true,
	ast.KindCell:     true,
	ast.KindFree:     true,
	ast.KindBinary:   true,
	ast.KindObject:   true,
	ast.KindArray:    true,
	ast.KindGetAttr:  true,
	ast.KindSubscr:   true,
	ast.KindAnonFunc: true,
	ast.KindLambda:   true,
}

func (c *Compiler) visit(w work) error {
	n := w.node
	if w.intent == intentBare && (valueKinds[n.Kind] || (n.Kind == ast.KindPrefix && !isUpdate(n.Value) && n.Value != "delete")) {
		c.fs.push(load(n), emit(c.instr(op.Pop, 0, n)))
		return nil
	}
	if w.intent == intentStore {
		return c.visitStore(n)
	}
	switch n.Kind {
	case ast.KindModule, ast.KindBlock:
		items := make([]work, len(n.Children))
		for i, stmt := range n.Children {
			items[i] = bare(stmt)
		}
		c.fs.push(items...)
		return nil
	case ast.KindEmpty:
		if w.intent == intentLoad {
			c.fs.push(emit(c.instr(op.Undefined, 0, n)))
		}
		return nil
	case ast.KindGrouping:
		c.fs.push(visitAs(w.intent, n.Children[0]))
		return nil
	case ast.KindIf:
		return c.visitIf(n)
	case ast.KindWhile:
		return c.visitWhile(n)
	case ast.KindDoWhile:
		return c.visitDoWhile(n)
	case ast.KindFor:
		return c.visitFor(n)
	case ast.KindSwitch:
		return c.visitSwitch(n)
	case ast.KindBreak:
		return c.visitBreak(n)
	case ast.KindContinue:
		return c.visitContinue(n)
	case ast.KindTry:
		return c.visitTry(n)
	case ast.KindReturn:
		if len(n.Children) == 0 {
			c.fs.push(emit(c.instr(op.Return, 0, n)))
		} else {
			c.fs.push(load(n.Children[0]), emit(c.instr(op.Return, 1, n)))
		}
		return nil
	case ast.KindThrow:
		c.fs.push(load(n.Children[0]), emit(c.instr(op.Throw, 0, n)))
		return nil
	case ast.KindFunction, ast.KindAnonFunc, ast.KindLambda:
		return c.visitFunction(w.intent, n)
	case ast.KindSaveVar:
		c.fs.push(load(n.Children[0]))
		return nil
	case ast.KindRestoreVar:
		c.fs.push(store(n.Children[0]))
		return nil
	case ast.KindDeleteVar:
		return c.emitVariable(n.Children[0], accessDelete)
	case ast.KindNumber, ast.KindString, ast.KindKeyword:
		return c.visitLiteral(n)
	case ast.KindLocal, ast.KindGlobal, ast.KindCell, ast.KindFree:
		return c.emitVariable(n, accessGet)
	case ast.KindBinary:
		return c.visitBinary(n)
	case ast.KindAssign:
		return c.visitAssign(w.intent, n)
	case ast.KindTernary:
		return c.visitTernary(w.intent, n)
	case ast.KindPrefix:
		return c.visitPrefix(w.intent, n)
	case ast.KindPostfix:
		return c.visitPostfix(w.intent, n)
	case ast.KindObject:
		return c.visitObject(n)
	case ast.KindArray:
		return c.visitArray(n)
	case ast.KindGetAttr:
		attr := c.fs.def.Attrs.Insert(n.Value)
		c.fs.push(load(n.Children[0]), emit(c.instr(op.GetAttr, attr, n)))
		return nil
	case ast.KindSubscr:
		c.fs.push(load(n.Children[1]), load(n.Children[0]), emit(c.instr(op.GetIndex, 0, n)))
		return nil
	case ast.KindCall:
		return c.visitCall(w.intent, n)
	case ast.KindNew:
		c.fs.push(visitAs(w.intent, n.Children[0]))
		return nil
	}
	return errorAt(n, errz.E2101, "unexpected %s node in this position", n.Kind)
}

func (c *Compiler) visitIf(n *ast.Node) error {
	end := c.instr(op.End, 0, n)
	test := c.jumpInstr(op.If, n)
	if len(n.Children) == 2 {
		c.jumpTo(test, end)
		c.fs.push(load(n.Children[0]), emit(test), bare(n.Children[1]), emit(end))
		return nil
	}
	els := c.jumpInstr(op.Else, n)
	c.jumpTo(test, els)
	c.jumpTo(els, end)
	c.fs.push(
		load(n.Children[0]), emit(test),
		bare(n.Children[1]), emit(els),
		bare(n.Children[2]), emit(end),
	)
	return nil
}

func (c *Compiler) pushTarget(t *jumpTarget) work {
	return action(func() error {
		t.brkDepth = c.fs.tryDepth
		if t.cont != nil {
			t.contDepth = c.fs.tryDepth
		}
		c.fs.targets = append(c.fs.targets, t)
		return nil
	})
}

func (c *Compiler) popTarget() work {
	return action(func() error {
		c.fs.targets = c.fs.targets[:len(c.fs.targets)-1]
		return nil
	})
}

func (c *Compiler) visitWhile(n *ast.Node) error {
	loop := c.instr(op.Loop, 0, n)
	end := c.instr(op.End, 0, n)
	test := c.jumpInstr(op.If, n)
	back := c.jumpInstr(op.Jump, n)
	c.jumpTo(test, end)
	c.jumpTo(back, loop)
	target := &jumpTarget{brk: end, cont: loop}
	c.fs.push(
		emit(loop), c.pushTarget(target),
		load(n.Children[0]), emit(test),
		bare(n.Children[1]),
		emit(back), c.popTarget(), emit(end),
	)
	return nil
}

func (c *Compiler) visitDoWhile(n *ast.Node) error {
	loop := c.instr(op.Loop, 0, n)
	cont := c.instr(op.Nop, 0, n)
	end := c.instr(op.End, 0, n)
	test := c.jumpInstr(op.If, n)
	back := c.jumpInstr(op.Jump, n)
	c.jumpTo(test, end)
	c.jumpTo(back, loop)
	target := &jumpTarget{brk: end, cont: cont}
	c.fs.push(
		emit(loop), c.pushTarget(target),
		bare(n.Children[0]),
		emit(cont), load(n.Children[1]), emit(test),
		emit(back), c.popTarget(), emit(end),
	)
	return nil
}

func (c *Compiler) visitFor(n *ast.Node) error {
	init, cond, incr, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	loop := c.instr(op.Loop, 0, n)
	cont := c.instr(op.Nop, 0, n)
	end := c.instr(op.End, 0, n)
	back := c.jumpInstr(op.Jump, n)
	c.jumpTo(back, loop)
	target := &jumpTarget{brk: end, cont: cont}

	items := []work{bare(init), emit(loop), c.pushTarget(target)}
	if !cond.IsEmpty() {
		test := c.jumpInstr(op.If, n)
		c.jumpTo(test, end)
		items = append(items, load(cond), emit(test))
	}
	items = append(items,
		bare(body),
		emit(cont), bare(incr),
		emit(back), c.popTarget(), emit(end),
	)
	c.fs.push(items...)
	return nil
}

// visitSwitch places every clause body first, then a linear chain of
// strict-equality tests that jump into the bodies:
//
//	disc, JUMP tests, body0, body1, ..., JUMP end,
//	tests: {DUP, test_i, TEQ, IF next_i, POP, JUMP body_i, next_i}...,
//	POP, JUMP default|end, end
func (c *Compiler) visitSwitch(n *ast.Node) error {
	clauses := n.Children[1:]
	end := c.instr(op.End, 0, n)
	tests := c.instr(op.Nop, 0, n)
	toTests := c.jumpInstr(op.Jump, n)
	toEnd := c.jumpInstr(op.Jump, n)
	c.jumpTo(toTests, tests)
	c.jumpTo(toEnd, end)

	target := &jumpTarget{brk: end}
	if len(c.fs.targets) > 0 {
		outer := c.fs.targets[len(c.fs.targets)-1]
		target.cont = outer.cont
		target.contDepth = outer.contDepth
	}
	pushSwitch := action(func() error {
		target.brkDepth = c.fs.tryDepth
		c.fs.targets = append(c.fs.targets, target)
		return nil
	})

	items := []work{load(n.Children[0]), emit(toTests), pushSwitch}
	labels := make([]*Instruction, len(clauses))
	var defaultLabel *Instruction
	for i, clause := range clauses {
		labels[i] = c.instr(op.Nop, 0, clause)
		items = append(items, emit(labels[i]))
		body := clause.Children
		if clause.Kind == ast.KindCase {
			body = body[1:]
		} else {
			defaultLabel = labels[i]
		}
		for _, stmt := range body {
			items = append(items, bare(stmt))
		}
	}
	items = append(items, emit(toEnd), c.popTarget(), emit(tests))

	for i, clause := range clauses {
		if clause.Kind != ast.KindCase {
			continue
		}
		next := c.instr(op.Nop, 0, clause)
		test := c.jumpInstr(op.If, clause)
		enter := c.jumpInstr(op.Jump, clause)
		c.jumpTo(test, next)
		c.jumpTo(enter, labels[i])
		items = append(items,
			emit(c.instr(op.Dup, 0, clause)),
			load(clause.Children[0]),
			emit(c.instr(op.StrictEqual, 0, clause)),
			emit(test),
			emit(c.instr(op.Pop, 0, clause)),
			emit(enter),
			emit(next),
		)
	}
	fallback := c.jumpInstr(op.Jump, n)
	if defaultLabel != nil {
		c.jumpTo(fallback, defaultLabel)
	} else {
		c.jumpTo(fallback, end)
	}
	items = append(items, emit(c.instr(op.Pop, 0, n)), emit(fallback), emit(end))
	c.fs.push(items...)
	return nil
}

// exitTries emits one TRYEND for every try block between the current
// position and the given depth.
func (c *Compiler) exitTries(n *ast.Node, depth int) {
	for i := c.fs.tryDepth; i > depth; i-- {
		c.fs.instrs = append(c.fs.instrs, c.instr(op.TryEnd, 0, n))
	}
}

func (c *Compiler) visitBreak(n *ast.Node) error {
	if len(c.fs.targets) == 0 {
		return errorAt(n, errz.E2003, "break outside of a loop or switch")
	}
	t := c.fs.targets[len(c.fs.targets)-1]
	c.exitTries(n, t.brkDepth)
	jump := c.jumpInstr(op.Jump, n)
	c.jumpTo(jump, t.brk)
	c.fs.instrs = append(c.fs.instrs, jump)
	return nil
}

func (c *Compiler) visitContinue(n *ast.Node) error {
	if len(c.fs.targets) == 0 || c.fs.targets[len(c.fs.targets)-1].cont == nil {
		return errorAt(n, errz.E2004, "continue outside of a loop")
	}
	t := c.fs.targets[len(c.fs.targets)-1]
	c.exitTries(n, t.contDepth)
	jump := c.jumpInstr(op.Jump, n)
	c.jumpTo(jump, t.cont)
	c.fs.instrs = append(c.fs.instrs, jump)
	return nil
}

// visitTry emits the runtime protocol for a try statement:
//
//	INT catch, INT finally, TRY, body, JUMP finally,
//	[CATCH, bind, catch body], FINALLY, finally body, TRYEND
//
// The two INT immediates are resolved like jumps, relative to their own
// positions. Without a catch clause both point at FINALLY.
func (c *Compiler) visitTry(n *ast.Node) error {
	var catchClause, finallyClause *ast.Node
	for _, clause := range n.Children[1:] {
		switch clause.Kind {
		case ast.KindCatch:
			catchClause = clause
		case ast.KindFinally:
			finallyClause = clause
		}
	}
	catchTarget := c.instr(op.Int, Placeholder, n)
	finallyTarget := c.instr(op.Int, Placeholder, n)
	try := c.instr(op.Try, 0, n)
	skip := c.jumpInstr(op.Jump, n)
	finally := c.instr(op.Finally, 0, n)
	c.jumpTo(finallyTarget, finally)
	c.jumpTo(skip, finally)

	items := []work{
		emit(catchTarget), emit(finallyTarget), emit(try),
		action(func() error { c.fs.tryDepth++; return nil }),
		bare(n.Children[0]),
		emit(skip),
	}
	if catchClause != nil {
		catch := c.instr(op.Catch, 0, catchClause)
		c.jumpTo(catchTarget, catch)
		items = append(items, emit(catch))
		if param := catchClause.Children[0]; param.IsEmpty() {
			items = append(items, emit(c.instr(op.Pop, 0, catchClause)))
		} else {
			items = append(items, store(param))
		}
		items = append(items, bare(catchClause.Children[1]))
	} else {
		c.jumpTo(catchTarget, finally)
	}
	items = append(items, emit(finally))
	if finallyClause != nil {
		items = append(items, bare(finallyClause.Children[0]))
	}
	items = append(items,
		action(func() error { c.fs.tryDepth--; return nil }),
		emit(c.instr(op.TryEnd, 0, n)),
	)
	c.fs.push(items...)
	return nil
}

// visitFunction registers a new FunctionDef and emits the instructions that
// build its closure value:
//
//	defaults..., INT nargs, CREATE_OBJECT 0, BOOL autobind,
//	[CELL_LOAD free..., CREATE_TUPLE n], CREATE_FUNCTION index
func (c *Compiler) visitFunction(in intent, n *ast.Node) error {
	nameNode, params, body, closure := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	name := n.Value
	if name == "" && !nameNode.IsEmpty() {
		name = nameNode.Value
	}
	def := c.newFunctionDef(name, n)
	def.Autobind = n.Kind == ast.KindLambda

	restName := DefaultRestName
	var defaults []*ast.Node
	for _, p := range params.Children {
		switch p.Kind {
		case ast.KindLocal, ast.KindCell:
			def.ArgLabels = append(def.ArgLabels, p.Value)
			defaults = append(defaults, nil)
		case ast.KindAssign:
			def.ArgLabels = append(def.ArgLabels, p.Children[0].Value)
			defaults = append(defaults, p.Children[1])
		case ast.KindSpread:
			restName = p.Children[0].Value
		}
	}
	for _, label := range def.ArgLabels {
		def.Locals.Insert(label)
	}
	def.RestIndex = def.Locals.Insert(restName)

	for _, v := range closure.Children {
		idx := def.Cells.Insert(v.Value)
		if v.Kind == ast.KindFree {
			def.Frees = append(def.Frees, v.Value)
			def.FreeCellIndex = append(def.FreeCellIndex, idx)
		}
	}
	def.HasClosure = len(closure.Children) > 0
	def.ParamCells = make([]int, len(def.ArgLabels))
	for i, label := range def.ArgLabels {
		def.ParamCells[i] = def.Cells.IndexOr(label, -1)
	}
	def.RestCell = def.Cells.IndexOr(restName, -1)

	kind := n.Kind
	if body.Kind == ast.KindBlock {
		kind = ast.KindBlock
	}
	c.pending = append(c.pending, &pendingFunc{def: def, body: body, kind: kind})

	items := make([]work, 0, len(defaults)+8)
	for _, d := range defaults {
		if d == nil {
			items = append(items, emit(c.instr(op.Undefined, 0, n)))
		} else {
			items = append(items, load(d))
		}
	}
	autobind := 0
	if def.Autobind {
		autobind = 1
	}
	items = append(items,
		emit(c.instr(op.Int, len(def.ArgLabels), n)),
		emit(c.instr(op.CreateObject, 0, n)),
		emit(c.instr(op.Bool, autobind, n)),
	)
	if def.HasClosure {
		for _, free := range def.Frees {
			outer := c.fs.def.Cells.Insert(free)
			items = append(items, emit(c.instr(op.CellLoad, outer, n)))
		}
		items = append(items, emit(c.instr(op.CreateTuple, len(def.Frees), n)))
	}
	items = append(items, emit(c.instr(op.CreateFunction, def.Index, n)))

	if n.Kind == ast.KindFunction {
		if in == intentLoad {
			items = append(items, emit(c.instr(op.Dup, 0, n)))
		}
		items = append(items, store(nameNode))
	}
	c.fs.push(items...)
	return nil
}
