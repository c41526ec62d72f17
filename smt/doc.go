// Package smt is a small solver-neutral term language and the interface to
// constraint solvers.
//
// Terms are built with Var, Lit and Apply and render as SMT-LIB2. A Backend
// opens sessions (Solver or Optimizer) which accept declarations and
// assertions, check satisfiability and produce a Model.
//
// Package sat provides an in-process backend built on a SAT solver and
// package smtlib drives an external SMT-LIB2 solver process.
package smt
