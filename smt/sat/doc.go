// Package sat is an in-process smt.Backend built on the gini SAT solver.
//
// Bool terms map to circuit literals. Int terms are bit-blasted as
// two's-complement vectors whose width is the configured minimum, widened to
// hold every literal of the problem; arithmetic carries overflow guards, so
// models are exact but confined to that range. Real and String terms range
// over a finite set of candidate values derived from the problem's literals.
// Arrays are materialised per index, with Ackermann constraints relating
// symbolic indices.
//
// Because of these bounds an unsatisfiable encoding of a problem with Int,
// Real or String variables is reported as smt.Unknown. Problems over Bool
// variables alone are decided exactly.
//
// Optimizer sessions accept a single Int objective, optimised by binary
// search on its bound, solving a fresh CNF copy of the circuit per round.
package sat
