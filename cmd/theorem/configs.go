package main

import (
	"fmt"
	"io"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/scott-cotton/cli"
	"github.com/signadot/go-theorem/config"
	"github.com/signadot/go-theorem/theorem"
)

type MainConfig struct {
	ConfigFile string `cli:"name=config desc='configuration file'"`
	Backend    string `cli:"name=backend desc='solver backend: sat or smtlib'"`
	Color      bool   `cli:"name=color desc='color output'"`
	Gops       bool   `cli:"name=gops desc='run a gops agent'"`

	Main *cli.Command
}

// context loads the configuration and builds the theorem context.
func (cfg *MainConfig) context(cc *cli.Context) (*theorem.Context, error) {
	conf, err := config.LoadConfig(cfg.ConfigFile)
	if err != nil {
		return nil, err
	}
	if cfg.Backend != "" {
		conf.Backend = cfg.Backend
	}
	if err := conf.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", cli.ErrUsage, err)
	}
	lvl, err := conf.LogLevel()
	if err != nil {
		return nil, err
	}
	log := newLogger(os.Stderr, lvl)
	backend, err := conf.NewBackend(log)
	if err != nil {
		return nil, err
	}
	return theorem.NewContext(backend, theorem.WithLogger(log)), nil
}

// colors reports whether output to w is colored: always when -color is
// given, otherwise when w is a terminal.
func (cfg *MainConfig) colors(w io.Writer) bool {
	if cfg.Color {
		return true
	}
	for _, opt := range cfg.Main.Opts {
		if opt.Name != "color" {
			continue
		}
		if opt.Value != nil {
			return false
		}
		break
	}
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}

type SolveConfig struct {
	*MainConfig
	Diag bool `cli:"name=x desc='also print the solver assertions'"`

	Solve *cli.Command
}

type ExplainConfig struct {
	*MainConfig

	Explain *cli.Command
}

type DiffConfig struct {
	*MainConfig

	Diff *cli.Command
}
