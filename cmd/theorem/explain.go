package main

import (
	"bytes"
	"fmt"

	"github.com/scott-cotton/cli"
	"github.com/signadot/go-theorem/theorem"
)

func explain(cfg *ExplainConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Explain.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: explain requires 1 problem file, got %v", cli.ErrUsage, args)
	}
	tc, err := cfg.context(cc)
	if err != nil {
		return err
	}
	p, err := loadProblem(tc, args[0])
	if err != nil {
		return err
	}
	ctx, cancel := signalContext()
	defer cancel()
	diag := &bytes.Buffer{}
	_, ok, err := p.solve(ctx, theorem.Diagnostics(diag))
	if err != nil {
		return err
	}
	pal := newPalette(cfg.colors(cc.Out))
	fmt.Fprintln(cc.Out, pal.comment("; %s over %s", p.file.Name, p.p.Type()))
	for _, pred := range p.p.Predicates() {
		fmt.Fprintln(cc.Out, pal.comment("; where %s", pred.Body))
	}
	fmt.Fprint(cc.Out, diag.String())
	if ok {
		fmt.Fprintln(cc.Out, pal.value("sat"))
	} else {
		fmt.Fprintln(cc.Out, pal.unsat("unsat or unknown"))
	}
	return nil
}

// assertions compiles p and returns its diagnostic text.
func assertions(cc *cli.Context, cfg *MainConfig, path string) (string, error) {
	tc, err := cfg.context(cc)
	if err != nil {
		return "", err
	}
	p, err := loadProblem(tc, path)
	if err != nil {
		return "", err
	}
	ctx, cancel := signalContext()
	defer cancel()
	diag := &bytes.Buffer{}
	if _, _, err := p.solve(ctx, theorem.Diagnostics(diag)); err != nil {
		return "", fmt.Errorf("error solving %s: %w", path, err)
	}
	return diag.String(), nil
}
