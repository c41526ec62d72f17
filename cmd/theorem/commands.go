package main

import (
	"github.com/scott-cotton/cli"
)

func MainCommand() *cli.Command {
	cfg := &MainConfig{}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	return cli.NewCommandAt(&cfg.Main, "theorem").
		WithSynopsis("theorem [opts] command [opts]").
		WithDescription("theorem solves constraint problems described in YAML files.").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return theoremMain(cfg, cc, args)
		}).
		WithSubs(
			SolveCommand(cfg),
			ExplainCommand(cfg),
			DiffCommand(cfg))
}

func SolveCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &SolveConfig{MainConfig: mainCfg}
	opts, err := cli.StructOpts(cfg)
	if err != nil {
		panic(err)
	}
	cmd := cli.NewCommand("solve").
		WithAliases("s").
		WithSynopsis("solve [opts] problem.yaml").
		WithDescription("solve a problem and print the solution").
		WithOpts(opts...).
		WithRun(func(cc *cli.Context, args []string) error {
			return solve(cfg, cc, args)
		})
	cfg.Solve = cmd
	return cmd
}

func ExplainCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &ExplainConfig{MainConfig: mainCfg}
	cmd := cli.NewCommand("explain").
		WithAliases("x").
		WithSynopsis("explain problem.yaml").
		WithDescription("print the solver assertions of a problem and its status").
		WithRun(func(cc *cli.Context, args []string) error {
			return explain(cfg, cc, args)
		})
	cfg.Explain = cmd
	return cmd
}

func DiffCommand(mainCfg *MainConfig) *cli.Command {
	cfg := &DiffConfig{MainConfig: mainCfg}
	cmd := cli.NewCommand("diff").
		WithAliases("d").
		WithSynopsis("diff a.yaml b.yaml").
		WithDescription("compare the solver assertions of two problems").
		WithRun(func(cc *cli.Context, args []string) error {
			return diff(cfg, cc, args)
		})
	cfg.Diff = cmd
	return cmd
}
