package smt

import (
	"context"
	"errors"
)

// ErrNoModel is returned by Model when the last Check did not report Sat.
var ErrNoModel = errors.New("no model available")

// Status is the result of a satisfiability check.
type Status int

const (
	Unknown Status = iota
	Sat
	Unsat
)

func (s Status) String() string {
	switch s {
	case Sat:
		return "sat"
	case Unsat:
		return "unsat"
	}
	return "unknown"
}

// Backend opens solver sessions.
type Backend interface {
	Name() string
	NewSolver(ctx context.Context) (Solver, error)
	NewOptimizer(ctx context.Context) (Optimizer, error)
}

// Solver is one solver session. A session is used by a single goroutine and
// must be closed.
type Solver interface {
	// Declare declares a variable of sort s and returns a reference to it.
	Declare(name string, s Sort) (*Expr, error)
	// Assert adds a Bool constraint.
	Assert(e *Expr) error
	Check(ctx context.Context) (Status, error)
	// Model returns the model of the last Check, which must have been Sat.
	Model() (Model, error)
	Close() error
}

// Optimizer is a Solver which also accepts objectives. Check then reports a
// model that is optimal for the registered objectives.
type Optimizer interface {
	Solver
	Minimize(e *Expr) error
	Maximize(e *Expr) error
}

// Model interprets expressions after a Sat check.
type Model interface {
	Eval(e *Expr) (Value, error)
}
