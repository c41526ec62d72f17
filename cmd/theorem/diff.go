package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/scott-cotton/cli"
	diffpatch "github.com/sergi/go-diff/diffmatchpatch"
)

func diff(cfg *DiffConfig, cc *cli.Context, args []string) error {
	args, err := cfg.Diff.Parse(cc, args)
	if err != nil {
		return err
	}
	if len(args) != 2 {
		return fmt.Errorf("%w: diff requires 2 problem files, got %v", cli.ErrUsage, args)
	}
	a, err := assertions(cc, cfg.MainConfig, args[0])
	if err != nil {
		return err
	}
	b, err := assertions(cc, cfg.MainConfig, args[1])
	if err != nil {
		return err
	}
	if !writeDiff(cc.Out, newPalette(cfg.colors(cc.Out)), a, b) {
		return nil
	}
	return cli.ExitCodeErr(1)
}

// writeDiff prints a line diff of a and b and reports whether they differ.
func writeDiff(w io.Writer, pal *palette, a, b string) bool {
	dmp := diffpatch.New()
	ca, cb, lines := dmp.DiffLinesToChars(a, b)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(ca, cb, false), lines)
	differs := false
	for _, d := range diffs {
		for line := range strings.Lines(d.Text) {
			line = strings.TrimSuffix(line, "\n")
			switch d.Type {
			case diffpatch.DiffInsert:
				differs = true
				fmt.Fprintln(w, pal.insert("+ %s", line))
			case diffpatch.DiffDelete:
				differs = true
				fmt.Fprintln(w, pal.delete("- %s", line))
			case diffpatch.DiffEqual:
				fmt.Fprintf(w, "  %s\n", line)
			}
		}
	}
	return differs
}
