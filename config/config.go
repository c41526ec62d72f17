// Package config loads the settings shared by theorem tools: which solver
// backend to use, how to run it, and how verbosely to log.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
	"github.com/signadot/go-theorem/smt"
	"github.com/signadot/go-theorem/smt/sat"
	"github.com/signadot/go-theorem/smt/smtlib"
)

const (
	BackendSAT    = "sat"
	BackendSMTLIB = "smtlib"
)

// Environment variables overriding the configuration file.
const (
	EnvBackend       = "THEOREM_BACKEND"
	EnvSMTLIBCommand = "THEOREM_SMTLIB_COMMAND"
	EnvLogLevel      = "THEOREM_LOG_LEVEL"
)

// Config is the configuration file structure.
type Config struct {
	// Backend selects the solver: sat (built in) or smtlib (external
	// process).
	Backend string        `yaml:"backend"`
	SAT     *SATConfig    `yaml:"sat,omitempty"`
	SMTLIB  *SMTLIBConfig `yaml:"smtlib,omitempty"`
	Log     *LogConfig    `yaml:"log,omitempty"`
}

type SATConfig struct {
	// Width is the minimum bit width of integer variables.
	Width int `yaml:"width,omitempty"`
}

type SMTLIBConfig struct {
	Command string   `yaml:"command,omitempty"`
	Args    []string `yaml:"args,omitempty"`
	// Timeout is passed to the solver, as a Go duration ("5s").
	Timeout string `yaml:"timeout,omitempty"`
}

type LogConfig struct {
	// Level is one of debug, info, warn or error.
	Level string `yaml:"level,omitempty"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendSAT,
		SAT:     &SATConfig{Width: 32},
		SMTLIB: &SMTLIBConfig{
			Command: smtlib.DefaultCommand,
			Args:    append([]string(nil), smtlib.DefaultArgs...),
		},
		Log: &LogConfig{Level: "warn"},
	}
}

// LoadConfig reads the YAML file at path over the defaults. An empty path
// yields the defaults. Environment overrides are applied in both cases.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := cfg.Decode(data); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Decode merges the YAML document data into c. Settings absent from data
// keep their current value.
func (c *Config) Decode(data []byte) error {
	file := &Config{}
	dec := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField())
	if err := dec.Decode(file); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	c.merge(file)
	return nil
}

func (c *Config) merge(o *Config) {
	if o.Backend != "" {
		c.Backend = o.Backend
	}
	if o.SAT != nil {
		if c.SAT == nil {
			c.SAT = &SATConfig{}
		}
		if o.SAT.Width != 0 {
			c.SAT.Width = o.SAT.Width
		}
	}
	if o.SMTLIB != nil {
		if c.SMTLIB == nil {
			c.SMTLIB = &SMTLIBConfig{}
		}
		if o.SMTLIB.Command != "" {
			c.SMTLIB.Command = o.SMTLIB.Command
			c.SMTLIB.Args = nil
		}
		if o.SMTLIB.Args != nil {
			c.SMTLIB.Args = o.SMTLIB.Args
		}
		if o.SMTLIB.Timeout != "" {
			c.SMTLIB.Timeout = o.SMTLIB.Timeout
		}
	}
	if o.Log != nil && o.Log.Level != "" {
		if c.Log == nil {
			c.Log = &LogConfig{}
		}
		c.Log.Level = o.Log.Level
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvBackend); ok && v != "" {
		c.Backend = v
	}
	if v, ok := lookup(EnvSMTLIBCommand); ok && v != "" {
		// command and arguments, split on spaces
		fields := strings.Fields(v)
		if c.SMTLIB == nil {
			c.SMTLIB = &SMTLIBConfig{}
		}
		c.SMTLIB.Command, c.SMTLIB.Args = fields[0], fields[1:]
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		if c.Log == nil {
			c.Log = &LogConfig{}
		}
		c.Log.Level = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	switch c.Backend {
	case BackendSAT:
		if c.SAT != nil && c.SAT.Width < 0 {
			return fmt.Errorf("sat.width must not be negative, got %d", c.SAT.Width)
		}
	case BackendSMTLIB:
		if c.SMTLIB == nil || c.SMTLIB.Command == "" {
			return fmt.Errorf("smtlib backend needs a command")
		}
		if _, err := c.timeout(); err != nil {
			return err
		}
	default:
		return fmt.Errorf("unknown backend %q, want %s or %s", c.Backend, BackendSAT, BackendSMTLIB)
	}
	if _, err := c.LogLevel(); err != nil {
		return err
	}
	return nil
}

func (c *Config) timeout() (time.Duration, error) {
	if c.SMTLIB == nil || c.SMTLIB.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.SMTLIB.Timeout)
	if err != nil {
		return 0, fmt.Errorf("smtlib.timeout: %w", err)
	}
	return d, nil
}

// LogLevel returns the configured log level.
func (c *Config) LogLevel() (slog.Level, error) {
	var lvl slog.Level
	if c.Log == nil || c.Log.Level == "" {
		return slog.LevelWarn, nil
	}
	if err := lvl.UnmarshalText([]byte(c.Log.Level)); err != nil {
		return 0, fmt.Errorf("log.level: %w", err)
	}
	return lvl, nil
}

// NewBackend builds the configured solver backend. log receives the traffic
// of process backends.
func (c *Config) NewBackend(log *slog.Logger) (smt.Backend, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	if c.Backend == BackendSMTLIB {
		d, _ := c.timeout()
		opts := []smtlib.Option{smtlib.WithCommand(c.SMTLIB.Command, c.SMTLIB.Args...)}
		if d > 0 {
			opts = append(opts, smtlib.WithTimeout(d))
		}
		if log != nil {
			opts = append(opts, smtlib.WithLogger(log))
		}
		return smtlib.New(opts...), nil
	}
	var opts []sat.Option
	if c.SAT != nil && c.SAT.Width > 0 {
		opts = append(opts, sat.WithWidth(c.SAT.Width))
	}
	return sat.New(opts...), nil
}

// Encode renders c as YAML.
func (c *Config) Encode() ([]byte, error) {
	return yaml.Marshal(c)
}
