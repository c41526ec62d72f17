// Package smtlib is an smt.Backend that drives an external SMT-LIB2 solver
// process, z3 by default.
//
// Each session starts its own process. Commands which print nothing on
// success are followed by an echo marker so that errors are attributed to
// the command that caused them. Models are read back with get-value.
//
// Set THEOREM_DEBUG_SMTLIB=1 to trace the traffic on stderr.
package smtlib
