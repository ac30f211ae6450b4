// Package config loads daedalus runtime settings from TOML files.
package config

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/go-multierror"
	"github.com/rs/zerolog"

	"github.com/daedalus-js/daedalus/vm"
)

// FileName is the name of the per-user config file in the home directory.
const FileName = ".daedalus.toml"

// Config is the decoded form of a daedalus.toml file. Pointer fields are
// optional and leave the VM default in place when unset.
type Config struct {
	VM     VM     `toml:"vm"`
	Timers Timers `toml:"timers"`
	Log    Log    `toml:"log"`

	// Path is the file the config was loaded from, if any.
	Path string `toml:"-"`
}

type VM struct {
	MaxFrameDepth        int   `toml:"max_frame_depth"`
	MaxStackDepth        int   `toml:"max_stack_depth"`
	ContextCheckInterval *int  `toml:"context_check_interval"`
	DrainTimers          *bool `toml:"drain_timers"`
}

type Timers struct {
	MaxPending int `toml:"max_pending"`
}

type Log struct {
	Level string `toml:"level"`
}

// Default returns a config that changes nothing about the VM defaults.
func Default() *Config {
	return &Config{Log: Log{Level: "warn"}}
}

// Load reads and validates the TOML file at path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	defer f.Close()
	cfg, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	cfg.Path = path
	return cfg, nil
}

// Decode parses TOML from r over the defaults. Unknown keys are errors.
func Decode(r io.Reader) (*Config, error) {
	cfg := Default()
	md, err := toml.NewDecoder(r).Decode(cfg)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, 0, len(undecoded))
		for _, key := range undecoded {
			keys = append(keys, key.String())
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every out-of-range setting at once.
func (c *Config) Validate() error {
	var result *multierror.Error
	if c.VM.MaxFrameDepth < 0 {
		result = multierror.Append(result, fmt.Errorf("vm.max_frame_depth must not be negative"))
	}
	if c.VM.MaxStackDepth < 0 {
		result = multierror.Append(result, fmt.Errorf("vm.max_stack_depth must not be negative"))
	}
	if c.VM.ContextCheckInterval != nil && *c.VM.ContextCheckInterval < 0 {
		result = multierror.Append(result, fmt.Errorf("vm.context_check_interval must not be negative"))
	}
	if c.Timers.MaxPending < 0 {
		result = multierror.Append(result, fmt.Errorf("timers.max_pending must not be negative"))
	}
	if _, err := c.Level(); err != nil {
		result = multierror.Append(result, err)
	}
	return result.ErrorOrNil()
}

// Level returns the configured log level. An empty level means warn.
func (c *Config) Level() (zerolog.Level, error) {
	if c.Log.Level == "" {
		return zerolog.WarnLevel, nil
	}
	level, err := zerolog.ParseLevel(strings.ToLower(c.Log.Level))
	if err != nil {
		return zerolog.NoLevel, fmt.Errorf("log.level: %w", err)
	}
	return level, nil
}

// Options converts the config into VM options. Zero limits keep the VM
// defaults.
func (c *Config) Options() []vm.Option {
	var opts []vm.Option
	if c.VM.MaxFrameDepth > 0 {
		opts = append(opts, vm.WithMaxFrameDepth(c.VM.MaxFrameDepth))
	}
	if c.VM.MaxStackDepth > 0 {
		opts = append(opts, vm.WithMaxStackDepth(c.VM.MaxStackDepth))
	}
	if c.VM.ContextCheckInterval != nil {
		opts = append(opts, vm.WithContextCheckInterval(*c.VM.ContextCheckInterval))
	}
	if c.VM.DrainTimers != nil {
		opts = append(opts, vm.WithDrainTimers(*c.VM.DrainTimers))
	}
	if c.Timers.MaxPending > 0 {
		opts = append(opts, vm.WithMaxPendingTimers(c.Timers.MaxPending))
	}
	return opts
}
