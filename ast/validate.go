package ast

import (
	"fmt"
	"strings"

	"github.com/daedalus-js/daedalus/errz"
	"github.com/hashicorp/go-multierror"
)

// Operator sets accepted by Validate.
var (
	BinaryOperators = set("+", "-", "*", "/", "%", "**", "<<", ">>", "&", "|", "^",
		"<", "<=", "==", "!=", ">=", ">", "===", "!==", "&&", "||", "??", "in")
	AssignOperators = set("=", "+=", "-=", "*=", "/=", "%=", "**=", "<<=", ">>=",
		"&=", "|=", "^=", "??=", "||=", "&&=")
	PrefixOperators  = set("!", "~", "+", "-", "typeof", "delete", "++", "--")
	PostfixOperators = set("++", "--")
	Keywords         = set("true", "false", "null", "undefined", "this")
)

func set(items ...string) map[string]bool {
	m := make(map[string]bool, len(items))
	for _, item := range items {
		m[item] = true
	}
	return m
}

type arity struct {
	min, max int // max < 0 means unbounded
}

var arities = map[Kind]arity{
	KindModule:     {0, -1},
	KindBlock:      {0, -1},
	KindGrouping:   {1, 1},
	KindEmpty:      {0, 0},
	KindNumber:     {0, 0},
	KindString:     {0, 0},
	KindKeyword:    {0, 0},
	KindLocal:      {0, 0},
	KindGlobal:     {0, 0},
	KindCell:       {0, 0},
	KindFree:       {0, 0},
	KindBinary:     {2, 2},
	KindAssign:     {2, 2},
	KindTernary:    {3, 3},
	KindPrefix:     {1, 1},
	KindPostfix:    {1, 1},
	KindIf:         {2, 3},
	KindWhile:      {2, 2},
	KindDoWhile:    {2, 2},
	KindFor:        {4, 4},
	KindBreak:      {0, 0},
	KindContinue:   {0, 0},
	KindSwitch:     {1, -1},
	KindCase:       {1, -1},
	KindDefault:    {0, -1},
	KindObject:     {0, -1},
	KindPair:       {2, 2},
	KindArray:      {0, -1},
	KindSpread:     {1, 1},
	KindGetAttr:    {1, 1},
	KindSubscr:     {2, 2},
	KindCall:       {1, -1},
	KindNew:        {1, 1},
	KindKwarg:      {1, 1},
	KindFunction:   {4, 4},
	KindAnonFunc:   {4, 4},
	KindLambda:     {4, 4},
	KindParams:     {0, -1},
	KindClosure:    {0, -1},
	KindReturn:     {0, 1},
	KindThrow:      {1, 1},
	KindTry:        {2, 3},
	KindCatch:      {2, 2},
	KindFinally:    {1, 1},
	KindSaveVar:    {1, 1},
	KindRestoreVar: {1, 1},
	KindDeleteVar:  {1, 1},
}

// Validate checks the shape of every node in the tree and returns all
// problems found as a multierror of *errz.CompileError values. It returns
// nil when the tree is well formed.
func Validate(root *Node) error {
	var result *multierror.Error
	if root == nil {
		return errz.NewCompileError(errz.E2101, 0, 0, "nil tree")
	}
	for n := range Preorder(root) {
		for _, problem := range checkNode(n) {
			result = multierror.Append(result, problem)
		}
	}
	if result != nil {
		result.ErrorFormat = formatProblems
	}
	return result.ErrorOrNil()
}

func formatProblems(errs []error) string {
	lines := make([]string, len(errs))
	for i, err := range errs {
		lines[i] = err.Error()
	}
	return fmt.Sprintf("%d problem(s) in tree:\n  %s", len(errs), strings.Join(lines, "\n  "))
}

func checkNode(n *Node) []*errz.CompileError {
	var problems []*errz.CompileError
	fail := func(code errz.ErrorCode, format string, args ...any) {
		problems = append(problems, errz.NewCompileError(code, n.Line, n.Column, format, args...))
	}
	a, ok := arities[n.Kind]
	if !ok {
		fail(errz.E2101, "unsupported node kind %q", n.Kind)
		return problems
	}
	count := len(n.Children)
	if count < a.min || (a.max >= 0 && count > a.max) {
		fail(errz.E2103, "%s node has %d children", n.Kind, count)
		return problems
	}
	for i, child := range n.Children {
		if child == nil {
			fail(errz.E2103, "%s node has nil child %d", n.Kind, i)
			return problems
		}
	}
	switch n.Kind {
	case KindLocal, KindGlobal, KindCell, KindFree, KindGetAttr, KindKwarg:
		if n.Value == "" {
			fail(errz.E2103, "%s node requires a name", n.Kind)
		}
	case KindNumber:
		if n.Value == "" {
			fail(errz.E2102, "empty number literal")
		}
	case KindKeyword:
		if !Keywords[n.Value] {
			fail(errz.E2102, "unknown keyword %q", n.Value)
		}
	case KindBinary:
		if !BinaryOperators[n.Value] {
			fail(errz.E2104, "unsupported binary operator %q", n.Value)
		}
	case KindAssign:
		if !AssignOperators[n.Value] {
			fail(errz.E2104, "unsupported assignment operator %q", n.Value)
		}
		if !isTarget(n.Children[0]) {
			fail(errz.E2105, "cannot assign to %s", n.Children[0].Kind)
		}
	case KindPrefix:
		if !PrefixOperators[n.Value] {
			fail(errz.E2104, "unsupported prefix operator %q", n.Value)
		}
		if (n.Value == "++" || n.Value == "--") && !isTarget(n.Children[0]) {
			fail(errz.E2105, "cannot update %s", n.Children[0].Kind)
		}
	case KindPostfix:
		if !PostfixOperators[n.Value] {
			fail(errz.E2104, "unsupported postfix operator %q", n.Value)
		}
		if !isTarget(n.Children[0]) {
			fail(errz.E2105, "cannot update %s", n.Children[0].Kind)
		}
	case KindSwitch:
		defaults := 0
		for _, clause := range n.Children[1:] {
			switch clause.Kind {
			case KindCase:
			case KindDefault:
				defaults++
			default:
				fail(errz.E2103, "switch clause must be case or default, got %s", clause.Kind)
			}
		}
		if defaults > 1 {
			fail(errz.E2103, "switch has %d default clauses", defaults)
		}
	case KindObject:
		for _, item := range n.Children {
			if item.Kind != KindPair && item.Kind != KindSpread {
				fail(errz.E2103, "object member must be pair or spread, got %s", item.Kind)
			}
		}
	case KindNew:
		if n.Children[0].Kind != KindCall {
			fail(errz.E2103, "new requires a call, got %s", n.Children[0].Kind)
		}
	case KindFunction, KindAnonFunc, KindLambda:
		name := n.Children[0]
		if n.Kind == KindFunction && !name.IsVariable() {
			fail(errz.E2103, "function name must be a variable, got %s", name.Kind)
		}
		if n.Children[1].Kind != KindParams {
			fail(errz.E2103, "function parameters must be params, got %s", n.Children[1].Kind)
		}
		if n.Children[3].Kind != KindClosure {
			fail(errz.E2103, "function closure must be closure, got %s", n.Children[3].Kind)
		}
	case KindParams:
		for i, p := range n.Children {
			switch {
			case p.Kind == KindLocal || p.Kind == KindCell:
			case p.Kind == KindAssign && p.Value == "=" && isParamName(p.Children[0]):
			case p.Kind == KindSpread && isParamName(p.Children[0]) && i == len(n.Children)-1:
			default:
				fail(errz.E2103, "invalid parameter %s", p.Kind)
			}
		}
	case KindClosure:
		for _, v := range n.Children {
			if v.Kind != KindCell && v.Kind != KindFree {
				fail(errz.E2103, "closure entries must be cell or free variables, got %s", v.Kind)
			}
		}
	case KindTry:
		rest := n.Children[1:]
		for i, clause := range rest {
			switch {
			case clause.Kind == KindCatch && i == 0:
			case clause.Kind == KindFinally && i == len(rest)-1:
			default:
				fail(errz.E2103, "unexpected %s clause in try", clause.Kind)
			}
		}
	case KindCatch:
		if p := n.Children[0]; !p.IsEmpty() && !p.IsVariable() {
			fail(errz.E2103, "catch parameter must be a variable, got %s", p.Kind)
		}
	case KindSaveVar, KindRestoreVar, KindDeleteVar:
		if !n.Children[0].IsVariable() {
			fail(errz.E2103, "%s requires a variable, got %s", n.Kind, n.Children[0].Kind)
		}
	}
	return problems
}

func isTarget(n *Node) bool {
	return n.IsVariable() || n.Kind == KindGetAttr || n.Kind == KindSubscr
}

func isParamName(n *Node) bool {
	return n.Kind == KindLocal || n.Kind == KindCell
}
