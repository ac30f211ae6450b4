// Package ast defines the normalized syntax tree consumed by the daedalus
// compiler.
//
// A tree arrives with scope resolution already applied: every variable
// reference is tagged as a local, global, cell or free variable, and sugar
// such as classes, destructuring and template strings has been lowered to
// the primitive node shapes listed below.
package ast

import (
	"strconv"
	"strings"
)

// Kind identifies the shape of a Node.
type Kind string

const (
	KindModule   Kind = "module"   // statements...
	KindBlock    Kind = "block"    // statements...
	KindGrouping Kind = "grouping" // expression
	KindEmpty    Kind = "empty"    // placeholder for an absent optional child

	KindNumber  Kind = "number"  // Value: literal text
	KindString  Kind = "string"  // Value: decoded string contents
	KindKeyword Kind = "keyword" // Value: true, false, null, undefined, this

	KindLocal  Kind = "local"  // Value: name
	KindGlobal Kind = "global" // Value: name
	KindCell   Kind = "cell"   // Value: name, captured by an inner function
	KindFree   Kind = "free"   // Value: name, bound in an enclosing function

	KindBinary  Kind = "binary"  // Value: operator; lhs, rhs
	KindAssign  Kind = "assign"  // Value: "=" or compound operator; target, value
	KindTernary Kind = "ternary" // cond, then, else
	KindPrefix  Kind = "prefix"  // Value: operator; operand
	KindPostfix Kind = "postfix" // Value: "++" or "--"; operand

	KindIf       Kind = "if"      // cond, then[, else]
	KindWhile    Kind = "while"   // cond, body
	KindDoWhile  Kind = "dowhile" // body, cond
	KindFor      Kind = "for"     // init, cond, incr, body
	KindBreak    Kind = "break"
	KindContinue Kind = "continue"
	KindSwitch   Kind = "switch"  // discriminant, case|default...
	KindCase     Kind = "case"    // test, statements...
	KindDefault  Kind = "default" // statements...

	KindObject   Kind = "object"    // pair|spread...
	KindPair     Kind = "pair"      // key, value
	KindArray    Kind = "array"     // elements...
	KindSpread   Kind = "spread"    // expression
	KindGetAttr  Kind = "getattr"   // Value: attribute name; object
	KindSubscr   Kind = "subscr"    // object, index
	KindCall     Kind = "call"      // callee, arguments...
	KindNew      Kind = "new"       // call
	KindKwarg    Kind = "kwarg"     // Value: name; value
	KindFunction Kind = "function"  // name, params, body, closure
	KindAnonFunc Kind = "anonymous" // name(empty), params, body, closure
	KindLambda   Kind = "lambda"    // autobinds this; body may be an expression
	KindParams   Kind = "params"    // variable | assign(variable, default) | spread(variable)
	KindClosure  Kind = "closure"   // cell|free variables captured by the function

	KindReturn  Kind = "return"  // [value]
	KindThrow   Kind = "throw"   // value
	KindTry     Kind = "try"     // block, [catch], [finally]
	KindCatch   Kind = "catch"   // param|empty, block
	KindFinally Kind = "finally" // block

	KindSaveVar    Kind = "savevar"    // variable
	KindRestoreVar Kind = "restorevar" // variable
	KindDeleteVar  Kind = "deletevar"  // variable
)

// Node is one element of the normalized tree.
type Node struct {
	Kind     Kind    `json:"kind" yaml:"kind"`
	Value    string  `json:"value,omitempty" yaml:"value,omitempty"`
	Children []*Node `json:"children,omitempty" yaml:"children,omitempty"`
	Line     int     `json:"line,omitempty" yaml:"line,omitempty"`
	Column   int     `json:"column,omitempty" yaml:"column,omitempty"`
}

// At sets the source position of the node and returns it.
func (n *Node) At(line, column int) *Node {
	n.Line = line
	n.Column = column
	return n
}

// Child returns the i-th child or nil when absent.
func (n *Node) Child(i int) *Node {
	if i < 0 || i >= len(n.Children) {
		return nil
	}
	return n.Children[i]
}

// IsEmpty reports whether the node is nil or an Empty placeholder.
func (n *Node) IsEmpty() bool {
	return n == nil || n.Kind == KindEmpty
}

// IsVariable reports whether the node is a scope-tagged variable reference.
func (n *Node) IsVariable() bool {
	switch n.Kind {
	case KindLocal, KindGlobal, KindCell, KindFree:
		return true
	}
	return false
}

// IsFunction reports whether the node defines a function value.
func (n *Node) IsFunction() bool {
	switch n.Kind {
	case KindFunction, KindAnonFunc, KindLambda:
		return true
	}
	return false
}

// IsExpression reports whether the node kind produces a value.
func (n *Node) IsExpression() bool {
	switch n.Kind {
	case KindGrouping, KindNumber, KindString, KindKeyword, KindLocal, KindGlobal, KindCell, KindFree,
		KindBinary, KindAssign, KindTernary, KindPrefix, KindPostfix, KindObject,
		KindArray, KindGetAttr, KindSubscr, KindCall, KindNew, KindAnonFunc, KindLambda:
		return true
	}
	return false
}

// String renders the node as an s-expression.
func (n *Node) String() string {
	var b strings.Builder
	n.write(&b)
	return b.String()
}

func (n *Node) write(b *strings.Builder) {
	if n == nil {
		b.WriteString("nil")
		return
	}
	b.WriteByte('(')
	b.WriteString(string(n.Kind))
	if n.Value != "" {
		b.WriteByte(' ')
		if n.Kind == KindString {
			b.WriteString(strconv.Quote(n.Value))
		} else {
			b.WriteString(n.Value)
		}
	}
	for _, child := range n.Children {
		b.WriteByte(' ')
		child.write(b)
	}
	b.WriteByte(')')
}
