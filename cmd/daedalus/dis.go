package main

import (
	"github.com/spf13/cobra"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/dis"
)

func newDisCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "dis [file]",
		Short: "Disassemble the bytecode compiled from a syntax tree",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.dis(cmd, args)
		},
	}
	cmd.Flags().String("func", "", "Function to disassemble")
	a.v.BindPFlag("func", cmd.Flags().Lookup("func"))
	return cmd
}

func (a *app) dis(cmd *cobra.Command, args []string) error {
	root, name, err := a.readTree(cmd, args)
	if err != nil {
		return err
	}
	mod, err := compiler.Compile(root, compiler.WithFilename(name), compiler.WithLogger(a.logger))
	if err != nil {
		return err
	}

	// If a function name was provided, disassemble its code only
	funcName := a.v.GetString("func")
	if funcName == "" {
		return dis.PrintModule(mod, cmd.OutOrStdout())
	}
	fn, err := dis.Lookup(mod, funcName)
	if err != nil {
		return err
	}
	instructions, err := dis.Disassemble(mod, fn)
	if err != nil {
		return err
	}
	dis.Print(instructions, cmd.OutOrStdout())
	return nil
}
