package main

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/errz"
)

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check [files...]",
		Short: "Validate and compile syntax trees without running them",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				args = []string{"-"}
			}
			return a.check(cmd, args)
		},
	}
}

func (a *app) check(cmd *cobra.Command, paths []string) error {
	var result *multierror.Error
	for _, path := range paths {
		mod, name, err := a.checkOne(cmd, path)
		if err != nil {
			msg := err.Error()
			if friendly, ok := err.(errz.FriendlyError); ok {
				msg = friendly.FriendlyErrorMessage()
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "%s: %s\n", red("FAIL"), msg)
			result = multierror.Append(result, fmt.Errorf("%s: %w", name, err))
			continue
		}
		var count int
		for _, fn := range mod.Functions {
			count += len(fn.Instructions)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "ok %s (%d functions, %d instructions)\n", name, len(mod.Functions), count)
	}
	if result != nil {
		return fmt.Errorf("%d of %d trees failed", len(result.Errors), len(paths))
	}
	return nil
}

func (a *app) checkOne(cmd *cobra.Command, path string) (*compiler.Module, string, error) {
	root, name, err := a.readTree(cmd, []string{path})
	if err != nil {
		return nil, path, err
	}
	mod, err := compiler.Compile(root, compiler.WithFilename(name), compiler.WithLogger(a.logger))
	return mod, name, err
}
