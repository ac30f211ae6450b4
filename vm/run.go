package vm

import (
	"context"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/object"
)

// Run executes mod in a new Virtual Machine and returns the result.
func Run(ctx context.Context, mod *compiler.Module, options ...Option) (object.Object, error) {
	return New(mod, options...).Run(ctx)
}

// Eval compiles and runs an AST, returning the machine so its globals can
// be inspected.
func Eval(ctx context.Context, root *ast.Node, options ...Option) (object.Object, *VirtualMachine, error) {
	mod, err := compiler.Compile(root)
	if err != nil {
		return nil, nil, err
	}
	machine := New(mod, options...)
	result, err := machine.Run(ctx)
	return result, machine, err
}
