// Package debug holds tracing switches read from the environment at
// startup.
package debug

import (
	"os"
	"strconv"
)

type debug struct {
	Compile bool
	SAT     bool
	SMTLIB  bool
}

var d *debug

func init() {
	d = &debug{}
	d.Compile = boolEnv("THEOREM_DEBUG_COMPILE")
	d.SAT = boolEnv("THEOREM_DEBUG_SAT")
	d.SMTLIB = boolEnv("THEOREM_DEBUG_SMTLIB")
}

func boolEnv(v string) bool {
	x := os.Getenv(v)
	if x == "" {
		return false
	}
	b, _ := strconv.ParseBool(x)
	return b
}

// Compile reports whether compiled predicates are traced.
func Compile() bool {
	return d.Compile
}

// SAT reports whether the in-process backend traces its encoding and
// search.
func SAT() bool {
	return d.SAT
}

// SMTLIB reports whether traffic with an external solver is traced.
func SMTLIB() bool {
	return d.SMTLIB
}
