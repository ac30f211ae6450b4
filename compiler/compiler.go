// Package compiler turns a normalized syntax tree into a Module of
// per-function instruction arrays.
//
// The tree is walked with an explicit work list rather than recursion. Each
// work item is visited under an intent: load (leave a value on the stack),
// store (consume the top of the stack into a target) or bare (statement
// position, value discarded). Control flow is emitted as placeholder
// instructions whose jump deltas are resolved by a finalize pass once the
// final position of every instruction is known.
package compiler

import (
	"errors"
	"fmt"
	"math"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/op"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"
)

const (
	// MaxInt and MinInt bound the literals encoded directly in an INT
	// immediate. Anything outside goes to the constant pool as a float.
	MaxInt = math.MaxInt32
	MinInt = math.MinInt32

	// Placeholder is the immediate of a jump before it is resolved.
	Placeholder = math.MinInt
)

// Option configures a Compiler.
type Option func(*Compiler)

// WithFilename sets the filename recorded on the Module and in errors.
func WithFilename(name string) Option {
	return func(c *Compiler) {
		c.filename = name
	}
}

// WithLogger sets the logger used for compile diagnostics.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Compiler) {
		c.log = logger
	}
}

// Compiler compiles one tree into one Module. A Compiler is single use.
type Compiler struct {
	filename string
	log      zerolog.Logger
	module   *Module
	pending  []*pendingFunc
	fs       *funcState
	strings  map[string]int
	floats   map[uint64]int
}

type pendingFunc struct {
	def  *FunctionDef
	body *ast.Node
	kind ast.Kind
}

// Compile compiles the tree rooted at a module node.
func Compile(root *ast.Node, opts ...Option) (*Module, error) {
	return New(opts...).Compile(root)
}

// New returns a Compiler configured with the given options.
func New(opts ...Option) *Compiler {
	c := &Compiler{
		log:     zerolog.Nop(),
		strings: map[string]int{},
		floats:  map[uint64]int{},
	}
	for _, opt := range opts {
		opt(c)
	}
	c.module = &Module{
		Filename: c.filename,
		Globals:  NewNameTable(),
	}
	return c
}

// Compile validates the tree, compiles every function and resolves jumps.
// No Module is returned when any error occurs.
func (c *Compiler) Compile(root *ast.Node) (*Module, error) {
	if c.pending != nil {
		return nil, fmt.Errorf("compiler has already been used")
	}
	if err := ast.Validate(root); err != nil {
		return nil, c.wrapProblems(err)
	}
	if root.Kind != ast.KindModule {
		return nil, c.wrapProblems(errz.NewCompileError(errz.E2101, root.Line, root.Column,
			"expected module at the root, got %s", root.Kind))
	}
	main := c.newFunctionDef(MainName, root)
	c.pending = append(c.pending, &pendingFunc{def: main, body: root, kind: ast.KindModule})

	var errs errz.CompileErrors
	for i := 0; i < len(c.pending); i++ {
		if err := c.compileFunction(c.pending[i]); err != nil {
			errs.Add(c.asCompileError(err))
		}
	}
	if errs.HasErrors() {
		return nil, &errs
	}
	return c.module, nil
}

func (c *Compiler) wrapProblems(err error) error {
	var errs errz.CompileErrors
	var merr *multierror.Error
	if errors.As(err, &merr) {
		for _, e := range merr.Errors {
			errs.Add(c.asCompileError(e))
		}
	} else {
		errs.Add(c.asCompileError(err))
	}
	return &errs
}

func (c *Compiler) asCompileError(err error) *errz.CompileError {
	var ce *errz.CompileError
	if !errors.As(err, &ce) {
		ce = errz.NewCompileError(errz.E2101, 0, 0, "%s", err.Error())
	}
	if ce.Filename == "" {
		ce.Filename = c.filename
	}
	return ce
}

func (c *Compiler) newFunctionDef(name string, n *ast.Node) *FunctionDef {
	def := &FunctionDef{
		Index:     len(c.module.Functions),
		Name:      name,
		Locals:    NewNameTable(),
		Cells:     NewNameTable(),
		Attrs:     NewNameTable(),
		RestIndex: -1,
		RestCell:  -1,
		ThisIndex: -1,
		Line:      n.Line,
		Column:    n.Column,
	}
	c.module.Functions = append(c.module.Functions, def)
	return def
}

// intent is the context a node is visited in.
type intent uint8

const (
	intentBare intent = iota
	intentLoad
	intentStore
)

type workState uint8

const (
	stateVisit workState = iota
	stateEmit
	stateAction
)

type work struct {
	state  workState
	intent intent
	node   *ast.Node
	instr  *Instruction
	action func() error

	// line and column are inherited from the nearest positioned ancestor.
	line, column int
}

func load(n *ast.Node) work               { return work{state: stateVisit, intent: intentLoad, node: n} }
func store(n *ast.Node) work              { return work{state: stateVisit, intent: intentStore, node: n} }
func bare(n *ast.Node) work               { return work{state: stateVisit, intent: intentBare, node: n} }
func visitAs(i intent, n *ast.Node) work  { return work{state: stateVisit, intent: i, node: n} }
func emit(in *Instruction) work           { return work{state: stateEmit, instr: in} }
func action(f func() error) work          { return work{state: stateAction, action: f} }

// jumpTarget is where break and continue go inside a loop or switch.
type jumpTarget struct {
	brk       *Instruction
	cont      *Instruction
	brkDepth  int
	contDepth int
}

// funcState is the compile state of the function currently being compiled.
type funcState struct {
	def      *FunctionDef
	instrs   []*Instruction
	jumps    map[*Instruction][]*Instruction // target -> sources
	sources  []*Instruction
	targets  []*jumpTarget
	tryDepth int
	work     []work

	line, column int
}

// push schedules items so that they are processed in the order given.
func (fs *funcState) push(items ...work) {
	for i := len(items) - 1; i >= 0; i-- {
		w := items[i]
		if w.line == 0 {
			w.line, w.column = fs.line, fs.column
		}
		fs.work = append(fs.work, w)
	}
}

func (c *Compiler) compileFunction(p *pendingFunc) error {
	fs := &funcState{
		def:    p.def,
		jumps:  map[*Instruction][]*Instruction{},
		line:   p.def.Line,
		column: p.def.Column,
	}
	c.fs = fs
	body := p.body
	switch {
	case p.kind == ast.KindModule:
		stmts := body.Children
		if n := len(stmts); n > 0 && stmts[n-1].IsExpression() {
			// The final expression statement is the module's result.
			items := make([]work, 0, n+1)
			for _, stmt := range stmts[:n-1] {
				items = append(items, bare(stmt))
			}
			last := stmts[n-1]
			items = append(items, load(last), emit(c.instr(op.Return, 1, last)))
			fs.push(items...)
		} else {
			fs.push(bare(body))
		}
	case body.Kind != ast.KindBlock:
		fs.push(load(body), emit(c.instr(op.Return, 1, body)))
	default:
		fs.push(bare(body))
	}

	for len(fs.work) > 0 {
		w := fs.work[len(fs.work)-1]
		fs.work = fs.work[:len(fs.work)-1]
		var err error
		switch w.state {
		case stateEmit:
			fs.instrs = append(fs.instrs, w.instr)
		case stateAction:
			err = w.action()
		case stateVisit:
			fs.line, fs.column = w.line, w.column
			if w.node.Line > 0 {
				fs.line, fs.column = w.node.Line, w.node.Column
			}
			err = c.visit(w)
		}
		if err != nil {
			return err
		}
	}
	if err := fs.finalize(); err != nil {
		return err
	}
	def := fs.def
	def.Instructions = make([]Instruction, len(fs.instrs))
	for i, in := range fs.instrs {
		def.Instructions[i] = *in
	}
	def.ThisIndex = def.Locals.IndexOr("this", -1)
	c.log.Debug().
		Str("function", def.Name).
		Int("index", def.Index).
		Int("instructions", len(def.Instructions)).
		Int("locals", def.Locals.Len()).
		Int("cells", def.Cells.Len()).
		Msg("compiled function")
	return nil
}

// finalize rewrites every recorded jump immediate to the delta between the
// jump and its target. A target that is an ELSE resolves to the
// instruction after it. Running finalize again yields the same result.
func (fs *funcState) finalize() error {
	index := make(map[*Instruction]int, len(fs.instrs))
	for i, in := range fs.instrs {
		index[in] = i
	}
	resolved := make(map[*Instruction]bool, len(fs.sources))
	for _, target := range fs.instrs {
		sources, ok := fs.jumps[target]
		if !ok {
			continue
		}
		ti := index[target]
		if target.Op == op.Else {
			ti++
		}
		for _, src := range sources {
			si, ok := index[src]
			if !ok {
				continue
			}
			src.Arg = ti - si
			resolved[src] = true
		}
	}
	for _, src := range fs.sources {
		if !resolved[src] {
			return errz.NewCompileError(errz.E2107, src.Line, src.Column,
				"%s in %s has no emitted target", src.Op, fs.def.Name)
		}
	}
	for ip, in := range fs.instrs {
		if in.Op.IsJump() && !resolved[in] {
			return errz.NewCompileError(errz.E2107, in.Line, in.Column,
				"%s at %d in %s was never resolved", in.Op, ip, fs.def.Name)
		}
	}
	return nil
}

// instr creates an instruction positioned at the given node. It is not
// part of the function until an emit item for it is processed.
func (c *Compiler) instr(code op.Code, arg int, n *ast.Node) *Instruction {
	in := &Instruction{Op: code, Arg: arg}
	if n != nil && n.Line > 0 {
		in.Line = n.Line
		in.Column = n.Column
	} else if c.fs != nil {
		in.Line = c.fs.line
		in.Column = c.fs.column
	}
	return in
}

// jumpInstr creates a jump-kind instruction with an unresolved immediate.
func (c *Compiler) jumpInstr(code op.Code, n *ast.Node) *Instruction {
	return c.instr(code, Placeholder, n)
}

// jumpTo records that src must be resolved against target.
func (c *Compiler) jumpTo(src, target *Instruction) {
	c.fs.jumps[target] = append(c.fs.jumps[target], src)
	c.fs.sources = append(c.fs.sources, src)
}

// stringConstant returns the deduplicated pool index of s.
func (c *Compiler) stringConstant(s string) int {
	if idx, ok := c.strings[s]; ok {
		return idx
	}
	idx := len(c.module.Constants)
	c.module.Constants = append(c.module.Constants, s)
	c.strings[s] = idx
	return idx
}

// floatConstant returns the deduplicated pool index of f.
func (c *Compiler) floatConstant(f float64) int {
	bits := math.Float64bits(f)
	if idx, ok := c.floats[bits]; ok {
		return idx
	}
	idx := len(c.module.Constants)
	c.module.Constants = append(c.module.Constants, f)
	c.floats[bits] = idx
	return idx
}

func errorAt(n *ast.Node, code errz.ErrorCode, format string, args ...any) error {
	return errz.NewCompileError(code, n.Line, n.Column, format, args...)
}
