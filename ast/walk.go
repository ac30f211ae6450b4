package ast

import "iter"

// Preorder returns an iterator over every node of the tree in depth-first
// preorder. Traversal uses an explicit stack so arbitrarily deep trees do not
// grow the Go call stack.
func Preorder(root *Node) iter.Seq[*Node] {
	return func(yield func(*Node) bool) {
		if root == nil {
			return
		}
		stack := []*Node{root}
		for len(stack) > 0 {
			n := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !yield(n) {
				return
			}
			for i := len(n.Children) - 1; i >= 0; i-- {
				if n.Children[i] != nil {
					stack = append(stack, n.Children[i])
				}
			}
		}
	}
}

// Inspect calls f for every node in preorder until f returns false.
func Inspect(root *Node, f func(*Node) bool) {
	for n := range Preorder(root) {
		if !f(n) {
			return
		}
	}
}
