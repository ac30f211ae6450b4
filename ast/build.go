package ast

// Constructors for building trees in Go code and tests. Every constructor
// returns a fresh node without a position; use At to attach one.

func node(kind Kind, value string, children ...*Node) *Node {
	return &Node{Kind: kind, Value: value, Children: children}
}

func Module(stmts ...*Node) *Node   { return node(KindModule, "", stmts...) }
func Block(stmts ...*Node) *Node    { return node(KindBlock, "", stmts...) }
func Grouping(expr *Node) *Node     { return node(KindGrouping, "", expr) }
func Empty() *Node                  { return node(KindEmpty, "") }
func Number(text string) *Node      { return node(KindNumber, text) }
func String(s string) *Node         { return node(KindString, s) }
func Keyword(word string) *Node     { return node(KindKeyword, word) }
func True() *Node                   { return Keyword("true") }
func False() *Node                  { return Keyword("false") }
func Null() *Node                   { return Keyword("null") }
func Undefined() *Node              { return Keyword("undefined") }
func This() *Node                   { return Keyword("this") }
func Local(name string) *Node       { return node(KindLocal, name) }
func Global(name string) *Node      { return node(KindGlobal, name) }
func Cell(name string) *Node        { return node(KindCell, name) }
func Free(name string) *Node        { return node(KindFree, name) }
func Break() *Node                  { return node(KindBreak, "") }
func Continue() *Node               { return node(KindContinue, "") }
func Spread(expr *Node) *Node       { return node(KindSpread, "", expr) }
func Throw(expr *Node) *Node        { return node(KindThrow, "", expr) }
func Finally(block *Node) *Node     { return node(KindFinally, "", block) }
func SaveVar(v *Node) *Node         { return node(KindSaveVar, "", v) }
func RestoreVar(v *Node) *Node      { return node(KindRestoreVar, "", v) }
func DeleteVar(v *Node) *Node       { return node(KindDeleteVar, "", v) }
func New(call *Node) *Node          { return node(KindNew, "", call) }
func Array(items ...*Node) *Node    { return node(KindArray, "", items...) }
func Object(items ...*Node) *Node   { return node(KindObject, "", items...) }
func Pair(key, value *Node) *Node   { return node(KindPair, "", key, value) }
func Params(params ...*Node) *Node  { return node(KindParams, "", params...) }
func Closure(vars ...*Node) *Node   { return node(KindClosure, "", vars...) }
func Default(body ...*Node) *Node   { return node(KindDefault, "", body...) }
func Kwarg(name string, v *Node) *Node { return node(KindKwarg, name, v) }

// Binary builds a binary operation such as "+", "&&" or "in".
func Binary(operator string, lhs, rhs *Node) *Node {
	return node(KindBinary, operator, lhs, rhs)
}

// Assign builds "=" or a compound assignment such as "+=" or "??=".
func Assign(operator string, target, value *Node) *Node {
	return node(KindAssign, operator, target, value)
}

func Ternary(cond, then, otherwise *Node) *Node {
	return node(KindTernary, "", cond, then, otherwise)
}

func Prefix(operator string, operand *Node) *Node {
	return node(KindPrefix, operator, operand)
}

func Postfix(operator string, operand *Node) *Node {
	return node(KindPostfix, operator, operand)
}

// If builds an if statement. The else branch is optional.
func If(cond, then *Node, otherwise ...*Node) *Node {
	n := node(KindIf, "", cond, then)
	if len(otherwise) > 0 && otherwise[0] != nil {
		n.Children = append(n.Children, otherwise[0])
	}
	return n
}

func While(cond, body *Node) *Node   { return node(KindWhile, "", cond, body) }
func DoWhile(body, cond *Node) *Node { return node(KindDoWhile, "", body, cond) }

// For builds a C-style loop. Pass nil for any omitted clause.
func For(init, cond, incr, body *Node) *Node {
	return node(KindFor, "", orEmpty(init), orEmpty(cond), orEmpty(incr), body)
}

func Switch(disc *Node, clauses ...*Node) *Node {
	return node(KindSwitch, "", append([]*Node{disc}, clauses...)...)
}

func Case(test *Node, body ...*Node) *Node {
	return node(KindCase, "", append([]*Node{test}, body...)...)
}

func GetAttr(obj *Node, name string) *Node { return node(KindGetAttr, name, obj) }
func Subscr(obj, index *Node) *Node        { return node(KindSubscr, "", obj, index) }

func Call(callee *Node, args ...*Node) *Node {
	return node(KindCall, "", append([]*Node{callee}, args...)...)
}

// Return builds a return statement with an optional value.
func Return(value ...*Node) *Node {
	n := node(KindReturn, "")
	if len(value) > 0 && value[0] != nil {
		n.Children = append(n.Children, value[0])
	}
	return n
}

// Try builds a try statement. Either catch or finally may be nil but not
// both.
func Try(block, catch, finally *Node) *Node {
	n := node(KindTry, "", block)
	if catch != nil {
		n.Children = append(n.Children, catch)
	}
	if finally != nil {
		n.Children = append(n.Children, finally)
	}
	return n
}

// Catch builds a catch clause. A nil param discards the exception value.
func Catch(param, block *Node) *Node {
	return node(KindCatch, "", orEmpty(param), block)
}

// Function builds a named function declaration stored into name.
func Function(name *Node, params, body, closure *Node) *Node {
	return node(KindFunction, name.Value, name, params, body, orClosure(closure))
}

// AnonFunction builds an anonymous function expression.
func AnonFunction(params, body, closure *Node) *Node {
	return node(KindAnonFunc, "", Empty(), params, body, orClosure(closure))
}

// Lambda builds an arrow function. Its body may be a block or a single
// expression, and it binds this from the defining scope.
func Lambda(params, body, closure *Node) *Node {
	return node(KindLambda, "", Empty(), params, body, orClosure(closure))
}

func orEmpty(n *Node) *Node {
	if n == nil {
		return Empty()
	}
	return n
}

func orClosure(n *Node) *Node {
	if n == nil {
		return Closure()
	}
	return n
}
