package theorem

import (
	"context"

	"github.com/signadot/go-theorem/ast"
)

// Solveable is implemented by theorems and ordered theorems.
type Solveable[T any] interface {
	Solve(ctx context.Context, opts ...SolveOption) (T, bool, error)
	String() string
}

var (
	_ Solveable[struct{}] = (*Theorem[struct{}])(nil)
	_ Solveable[struct{}] = (*Ordered[struct{}])(nil)
)

// Ordered is a theorem with a pending objective.
type Ordered[T any] struct {
	base *Theorem[T]
	dir  Direction
	obj  *ast.Lambda
}

// Where returns a new Ordered with preds added to the underlying theorem.
func (o *Ordered[T]) Where(preds ...*ast.Lambda) *Ordered[T] {
	return &Ordered[T]{base: o.base.Where(preds...), dir: o.dir, obj: o.obj}
}

// Solve optimises the underlying theorem.
func (o *Ordered[T]) Solve(ctx context.Context, opts ...SolveOption) (T, bool, error) {
	return o.base.Optimize(ctx, o.dir, o.obj, opts...)
}

func (o *Ordered[T]) Objective() (Direction, *ast.Lambda) {
	return o.dir, o.obj
}

func (o *Ordered[T]) Theorem() *Theorem[T] {
	return o.base
}

func (o *Ordered[T]) String() string {
	obj := "<nil>"
	if o.obj != nil {
		obj = o.obj.String()
	}
	return o.base.String() + " " + o.dir.String() + " " + obj
}
