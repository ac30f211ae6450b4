package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/daedalus-js/daedalus/compiler"
	"github.com/daedalus-js/daedalus/vm"
)

func newRunCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [file]",
		Short: "Compile and run a syntax tree file",
		Long: `Compile and run a syntax tree stored as JSON or YAML. The format is
chosen by file extension. With no file, or "-", the tree is read from stdin.

The value of the module's final expression statement is printed.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.run(cmd, args)
		},
	}
	flags := cmd.Flags()
	flags.StringP("output", "o", "", "Result format: json, text or inspect")
	flags.Duration("timeout", 0, "Abort the run after this long")
	flags.Int("max-frame-depth", 0, "Limit nested calls")
	flags.Int("max-stack-depth", 0, "Limit the operand stack of one frame")
	flags.Bool("no-drain", false, "Return without waiting for future timers")
	flags.Bool("quiet", false, "Do not print the result")
	for _, name := range []string{"output", "timeout", "max-frame-depth", "max-stack-depth", "no-drain", "quiet"} {
		a.v.BindPFlag(name, flags.Lookup(name))
	}
	return cmd
}

func (a *app) run(cmd *cobra.Command, args []string) error {
	root, name, err := a.readTree(cmd, args)
	if err != nil {
		return err
	}
	mod, err := compiler.Compile(root,
		compiler.WithFilename(name),
		compiler.WithLogger(a.logger),
	)
	if err != nil {
		return err
	}

	if depth := a.v.GetInt("max-frame-depth"); depth > 0 {
		a.cfg.VM.MaxFrameDepth = depth
	}
	if depth := a.v.GetInt("max-stack-depth"); depth > 0 {
		a.cfg.VM.MaxStackDepth = depth
	}
	if a.v.GetBool("no-drain") {
		drain := false
		a.cfg.VM.DrainTimers = &drain
	}
	opts := append(a.cfg.Options(),
		vm.WithLogger(a.logger),
		vm.WithStdout(cmd.OutOrStdout()),
		vm.WithStderr(cmd.ErrOrStderr()),
	)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if timeout := a.v.GetDuration("timeout"); timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	result, err := vm.Run(ctx, mod, opts...)
	if err != nil {
		return err
	}
	if a.v.GetBool("quiet") {
		return nil
	}
	colorize := !color.NoColor && isTerminal(cmd.OutOrStdout())
	output, err := getOutput(result, a.v.GetString("output"), colorize)
	if err != nil {
		return err
	}
	if output != "" {
		fmt.Fprintln(cmd.OutOrStdout(), output)
	}
	return nil
}
