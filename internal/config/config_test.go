package config

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/daedalus-js/daedalus/ast"
	"github.com/daedalus-js/daedalus/vm"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.Empty(t, cfg.Options())
	level, err := cfg.Level()
	require.Nil(t, err)
	require.Equal(t, zerolog.WarnLevel, level)
	require.Nil(t, cfg.Validate())
}

func TestLoad(t *testing.T) {
	path := filepath.Join("testdata", "daedalus.toml")
	cfg, err := Load(path)
	require.Nil(t, err)
	require.Equal(t, path, cfg.Path)
	require.Equal(t, 16, cfg.VM.MaxFrameDepth)
	require.Equal(t, 256, cfg.VM.MaxStackDepth)
	require.NotNil(t, cfg.VM.ContextCheckInterval)
	require.Equal(t, 0, *cfg.VM.ContextCheckInterval)
	require.NotNil(t, cfg.VM.DrainTimers)
	require.False(t, *cfg.VM.DrainTimers)
	require.Equal(t, 8, cfg.Timers.MaxPending)
	require.Len(t, cfg.Options(), 5)

	level, err := cfg.Level()
	require.Nil(t, err)
	require.Equal(t, zerolog.DebugLevel, level)
}

func TestLoadMissing(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), FileName))
	require.ErrorContains(t, err, "cannot read")
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{"syntax", "[vm\n", []string{"parse error"}},
		{"unknown", "[vm]\nmax_depth = 3\n[extra]\nx = 1\n", []string{"unknown keys", "extra.x", "vm.max_depth"}},
		{"level", "[log]\nlevel = \"loud\"\n", []string{"log.level"}},
		{"negative", "[vm]\nmax_frame_depth = -1\n[timers]\nmax_pending = -2\n", []string{
			"2 errors occurred",
			"vm.max_frame_depth must not be negative",
			"timers.max_pending must not be negative",
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(tt.input))
			require.Error(t, err)
			for _, want := range tt.want {
				require.ErrorContains(t, err, want)
			}
		})
	}
}

func TestOptionsApplyToVM(t *testing.T) {
	cfg, err := Decode(strings.NewReader("[vm]\nmax_frame_depth = 8\n"))
	require.Nil(t, err)

	root := ast.Module(
		ast.Function(ast.Global("f"), ast.Params(), ast.Block(ast.Return(ast.Call(ast.Global("f")))), nil),
		ast.Call(ast.Global("f")),
	)
	_, _, err = vm.Eval(context.Background(), root, cfg.Options()...)
	require.ErrorContains(t, err, "maximum call depth exceeded (8)")
}
