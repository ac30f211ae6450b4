package main

import (
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/daedalus-js/daedalus/internal/config"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

var red = color.New(color.FgRed).SprintFunc()

// app holds state shared by all subcommands of one invocation.
type app struct {
	v      *viper.Viper
	cfg    *config.Config
	logger zerolog.Logger
}

func newRootCmd() *cobra.Command {
	a := &app{v: viper.New(), cfg: config.Default(), logger: zerolog.Nop()}

	cmd := &cobra.Command{
		Use:           "daedalus",
		Short:         "Compile and run normalized JavaScript syntax trees",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init(cmd)
		},
	}

	pf := cmd.PersistentFlags()
	pf.String("config", "", "config file (default is ~/"+config.FileName+")")
	pf.Bool("no-color", false, "Disable colored output")
	pf.String("log-level", "", "Log level: debug, info, warn or error")
	pf.String("format", "", "Tree encoding for stdin input: json or yaml")
	a.v.BindPFlags(pf)
	a.v.BindEnv("no-color", "NO_COLOR")
	a.v.SetEnvPrefix("daedalus")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	cmd.AddCommand(
		newRunCmd(a),
		newDisCmd(a),
		newCheckCmd(a),
		newVersionCmd(a),
	)
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fatal(err)
	}
}
