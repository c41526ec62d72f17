package main

import (
	"bytes"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/fatih/color"
	"github.com/goccy/go-yaml"
	"github.com/scott-cotton/cli"
	"github.com/signadot/go-theorem/theorem"
)

func solve(cfg *SolveConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Solve.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 1 {
		return fmt.Errorf("%w: solve requires 1 problem file, got %v", cli.ErrUsage, args)
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
	var opts []theorem.SolveOption
	diag := &bytes.Buffer{}
	if cfg.Diag {
		opts = append(opts, theorem.Diagnostics(diag))
	}
	res, ok, err := p.solve(ctx, opts...)
	if err != nil {
		return err
	}
	pal := newPalette(cfg.colors(cc.Out))
	if cfg.Diag {
		writeAssertions(cc.Out, pal, diag.String())
	}
	if !ok {
		fmt.Fprintln(cc.Out, pal.unsat("no solution"))
		return cli.ExitCodeErr(1)
	}
	return writeSolution(cc.Out, pal, res)
}

// palette holds the output colors. Its funcs are identities when color is
// off.
type palette struct {
	key, value, unsat, comment, insert, delete func(string, ...any) string
}

func newPalette(on bool) *palette {
	if !on {
		plain := func(f string, args ...any) string {
			if len(args) == 0 {
				return f
			}
			return fmt.Sprintf(f, args...)
		}
		return &palette{plain, plain, plain, plain, plain, plain}
	}
	enable := func(c *color.Color) func(string, ...any) string {
		c.EnableColor()
		return c.SprintfFunc()
	}
	return &palette{
		key:     enable(color.New(color.FgYellow)),
		value:   enable(color.New(color.FgCyan)),
		unsat:   enable(color.New(color.FgRed, color.Bold)),
		comment: enable(color.New(color.FgBlue)),
		insert:  enable(color.New(color.FgGreen)),
		delete:  enable(color.New(color.FgRed)),
	}
}

// writeSolution prints one line per field of res, each value in YAML flow
// style.
func writeSolution(w io.Writer, pal *palette, res reflect.Value) error {
	for i := range res.NumField() {
		v, err := yaml.MarshalWithOptions(res.Field(i).Interface(), yaml.Flow(true))
		if err != nil {
			return fmt.Errorf("encoding %s: %w", res.Type().Field(i).Name, err)
		}
		text := strings.TrimSpace(string(v))
		if _, err := fmt.Fprintf(w, "%s: %s\n", pal.key("%s", res.Type().Field(i).Name), pal.value("%s", text)); err != nil {
			return err
		}
	}
	return nil
}

func writeAssertions(w io.Writer, pal *palette, diag string) {
	for line := range strings.Lines(diag) {
		fmt.Fprint(w, pal.comment("; %s", line))
	}
}
