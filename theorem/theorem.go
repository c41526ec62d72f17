package theorem

import (
	"context"
	"reflect"

	"github.com/signadot/go-theorem/ast"
)

// Theorem is an immutable set of predicates over the environment type T.
type Theorem[T any] struct {
	p *Problem
}

// New returns a theorem over T without predicates.
func New[T any](c *Context, opts ...Option) *Theorem[T] {
	return &Theorem[T]{p: NewProblem(c, reflect.TypeFor[T](), opts...)}
}

// NewFrom returns a theorem over the type of skeleton, which also serves as
// the prototype of results.
func NewFrom[T any](c *Context, skeleton T, opts ...Option) *Theorem[T] {
	return New[T](c, append([]Option{WithPrototype(skeleton)}, opts...)...)
}

// Where returns a new theorem with preds appended. t is unchanged.
func (t *Theorem[T]) Where(preds ...*ast.Lambda) *Theorem[T] {
	return &Theorem[T]{p: t.p.Where(preds...)}
}

// Solve solves t. When ok is false the result is the zero value; with the
// sat backend this includes problems it cannot decide, see Problem.Solve.
func (t *Theorem[T]) Solve(ctx context.Context, opts ...SolveOption) (T, bool, error) {
	return typed[T](t.p.Solve(ctx, opts...))
}

// Optimize solves t for a value which is optimal for obj. When ok is false
// the result is the zero value and carries no meaning.
func (t *Theorem[T]) Optimize(ctx context.Context, dir Direction, obj *ast.Lambda, opts ...SolveOption) (T, bool, error) {
	return typed[T](t.p.Optimize(ctx, dir, obj, opts...))
}

// OrderBy returns t with the pending objective of minimising obj. No solver
// work happens until its Solve is called.
func (t *Theorem[T]) OrderBy(obj *ast.Lambda) *Ordered[T] {
	return &Ordered[T]{base: t, dir: Minimize, obj: obj}
}

func (t *Theorem[T]) OrderByDescending(obj *ast.Lambda) *Ordered[T] {
	return &Ordered[T]{base: t, dir: Maximize, obj: obj}
}

func (t *Theorem[T]) String() string {
	return t.p.String()
}

func (t *Theorem[T]) Problem() *Problem {
	return t.p
}

func typed[T any](v reflect.Value, ok bool, err error) (T, bool, error) {
	var zero T
	if err != nil || !ok || !v.IsValid() {
		return zero, false, err
	}
	return v.Interface().(T), true, nil
}
