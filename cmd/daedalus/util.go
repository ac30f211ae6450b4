package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/hokaccha/go-prettyjson"
	"github.com/mattn/go-isatty"
	"github.com/mitchellh/go-homedir"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/errz"
	"github.com/daedalus-js/daedalus/internal/config"
	"github.com/daedalus-js/daedalus/object"
)

func fatal(msg interface{}) {
	var s string
	switch msg := msg.(type) {
	case string:
		s = msg
	case errz.FriendlyError:
		s = msg.FriendlyErrorMessage()
	case error:
		s = msg.Error()
	default:
		s = fmt.Sprintf("%v", msg)
	}
	fmt.Fprintf(os.Stderr, "%s\n", red(s))
	os.Exit(1)
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// init loads the config file and applies global flags. An explicit
// --config path must exist; the default home path is optional.
func (a *app) init(cmd *cobra.Command) error {
	if a.v.GetBool("no-color") {
		color.NoColor = true
	}
	path := a.v.GetString("config")
	explicit := path != ""
	if !explicit {
		path = "~/" + config.FileName
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return err
	}
	if _, err := os.Stat(expanded); err == nil || explicit {
		cfg, err := config.Load(expanded)
		if err != nil {
			return err
		}
		a.cfg = cfg
	}
	if level := a.v.GetString("log-level"); level != "" {
		a.cfg.Log.Level = level
	}
	level, err := a.cfg.Level()
	if err != nil {
		return err
	}
	a.logger = zerolog.New(zerolog.ConsoleWriter{
		Out:     cmd.ErrOrStderr(),
		NoColor: color.NoColor || !isTerminal(cmd.ErrOrStderr()),
	}).Level(level).With().Timestamp().Logger()
	a.logger.Debug().Str("config", a.cfg.Path).Str("level", level.String()).Msg("settings loaded")
	return nil
}

// readTree loads the tree named by args, or reads stdin when no path or
// "-" is given. The returned name labels locations in error messages.
func (a *app) readTree(cmd *cobra.Command, args []string) (*ast.Node, string, error) {
	if len(args) > 0 && args[0] != "-" {
		root, err := ast.LoadFile(args[0])
		if err != nil {
			return nil, "", fmt.Errorf("cannot load %s: %w", args[0], err)
		}
		return root, args[0], nil
	}
	format := ast.Format(strings.ToLower(a.v.GetString("format")))
	if format == "" {
		format = ast.FormatJSON
	}
	root, err := ast.Decode(cmd.InOrStdin(), format)
	if err != nil {
		return nil, "", err
	}
	return root, "<stdin>", nil
}

var errNoJSON = errors.New("result has no JSON form")

func getOutput(result object.Object, format string, colorize bool) (string, error) {
	switch strings.ToLower(format) {
	case "":
		// Print nothing for undefined, JSON when the value has a JSON form,
		// and the inspected form otherwise.
		if result == nil || result == object.Undefined {
			return "", nil
		}
		output, err := getOutputJSON(result, colorize)
		if err != nil {
			return result.Inspect(), nil
		}
		return output, nil
	case "json":
		return getOutputJSON(result, colorize)
	case "text":
		return object.ToString(result), nil
	case "inspect":
		return result.Inspect(), nil
	default:
		return "", fmt.Errorf("unknown output format: %s", format)
	}
}

func getOutputJSON(result object.Object, colorize bool) (string, error) {
	text, ok, err := object.Stringify(result, "  ")
	if err != nil {
		return "", err
	}
	if !ok {
		return "", errNoJSON
	}
	if !colorize {
		return text, nil
	}
	formatted, err := prettyjson.Format([]byte(text))
	if err != nil {
		return text, nil
	}
	return string(formatted), nil
}
