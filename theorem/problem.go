package theorem

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"reflect"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/smt"
)

// Direction selects minimisation or maximisation of an objective.
type Direction int

const (
	Minimize Direction = iota
	Maximize
)

func (d Direction) String() string {
	if d == Maximize {
		return "maximize"
	}
	return "minimize"
}

// Option configures a Problem or Theorem.
type Option func(*Problem)

// WithPrototype sets the value projection starts from. Its sequence fields
// fix the length of the corresponding results. v must have the environment
// type, or be a pointer to it.
func WithPrototype(v any) Option {
	return func(p *Problem) {
		p.proto = reflect.ValueOf(v)
	}
}

// WithBuilder sets the constructor of an environment type with unexported
// fields. build receives the value of every field in declaration order.
func WithBuilder[T any](build func(values []any) (T, error)) Option {
	return func(p *Problem) {
		p.build = func(values []any) (reflect.Value, error) {
			res, err := build(values)
			if err != nil {
				return reflect.Value{}, err
			}
			return reflect.ValueOf(&res).Elem(), nil
		}
	}
}

// SolveOption configures a single Solve or Optimize call.
type SolveOption func(*solveOptions)

type solveOptions struct {
	diag io.Writer
}

// Diagnostics sends the SMT-LIB2 text of every assertion and objective of
// the call to w, one per line.
func Diagnostics(w io.Writer) SolveOption {
	return func(o *solveOptions) {
		o.diag = w
	}
}

// Problem is the untyped form of a Theorem: predicates over an environment
// type given as a reflect.Type. A Problem is immutable; Where returns a new
// Problem.
type Problem struct {
	ctx   *Context
	typ   reflect.Type
	preds []*ast.Lambda
	proto reflect.Value
	build builderFunc
}

func NewProblem(c *Context, t reflect.Type, opts ...Option) *Problem {
	p := &Problem{ctx: c, typ: t}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Problem) Type() reflect.Type {
	return p.typ
}

func (p *Problem) Context() *Context {
	return p.ctx
}

// Predicates returns a copy of the predicates of p.
func (p *Problem) Predicates() []*ast.Lambda {
	return slices.Clone(p.preds)
}

// Where returns a new Problem with preds appended.
func (p *Problem) Where(preds ...*ast.Lambda) *Problem {
	res := *p
	res.preds = append(slices.Clip(p.preds), preds...)
	return &res
}

func (p *Problem) String() string {
	parts := make([]string, len(p.preds))
	for i, pred := range p.preds {
		if pred == nil || pred.Body == nil {
			parts[i] = "<nil>"
			continue
		}
		parts[i] = pred.Body.String()
	}
	return strings.Join(parts, ", ")
}

// Solve searches for a value of the environment type satisfying every
// predicate. ok is false when there is none, or the backend could not
// decide.
//
// The in-process sat backend bounds Int, Real and String variables (see
// package smt/sat), so it cannot decide problems whose solutions lie past
// those bounds, such as 3*R == 1 on a float64 or values whose squares
// overflow the bit width. Solve then reports ok == false even though a
// solution exists. Use the smtlib backend for such problems.
func (p *Problem) Solve(ctx context.Context, opts ...SolveOption) (res reflect.Value, ok bool, err error) {
	return p.run(ctx, nil, opts)
}

// Optimize is like Solve, but returns a value which is optimal for obj in
// direction dir.
func (p *Problem) Optimize(ctx context.Context, dir Direction, obj *ast.Lambda, opts ...SolveOption) (res reflect.Value, ok bool, err error) {
	return p.run(ctx, &objective{dir: dir, fn: obj}, opts)
}

type objective struct {
	dir Direction
	fn  *ast.Lambda
}

func (p *Problem) prototype() (reflect.Value, error) {
	v := p.proto
	if !v.IsValid() {
		return reflect.New(p.typ).Elem(), nil
	}
	if v.Kind() == reflect.Pointer && v.Type().Elem() == p.typ {
		if v.IsNil() {
			return reflect.New(p.typ).Elem(), nil
		}
		v = v.Elem()
	}
	if v.Type() != p.typ {
		return reflect.Value{}, fmt.Errorf("prototype has type %s, not %s", v.Type(), p.typ)
	}
	return v, nil
}

// session writes assertions to a solver and to the diagnostic sink.
type session struct {
	s    smt.Solver
	diag io.Writer
	n    int
}

func (s *session) assert(e *smt.Expr) error {
	if s.diag != nil {
		fmt.Fprintln(s.diag, e.String())
	}
	s.n++
	return s.s.Assert(e)
}

func (p *Problem) run(ctx context.Context, obj *objective, opts []SolveOption) (res reflect.Value, ok bool, err error) {
	if p.ctx == nil || p.ctx.backend == nil {
		return reflect.Value{}, false, fmt.Errorf("theorem has no backend")
	}
	if p.typ == nil {
		return reflect.Value{}, false, &BindError{Message: "theorem has no environment type"}
	}
	so := solveOptions{diag: p.ctx.diag}
	for _, opt := range opts {
		opt(&so)
	}
	start := time.Now()
	log := p.ctx.log.With(
		slog.String("session", uuid.NewString()),
		slog.String("backend", p.ctx.backend.Name()),
		slog.String("type", p.typ.String()),
	)
	root, err := p.ctx.describe(p.typ)
	if err != nil {
		return reflect.Value{}, false, err
	}
	proto, err := p.prototype()
	if err != nil {
		return reflect.Value{}, false, err
	}

	var (
		s   smt.Solver
		opt smt.Optimizer
	)
	if obj != nil {
		opt, err = p.ctx.backend.NewOptimizer(ctx)
		s = opt
	} else {
		s, err = p.ctx.backend.NewSolver(ctx)
	}
	if err != nil {
		return reflect.Value{}, false, fmt.Errorf("opening %s session: %w", p.ctx.backend.Name(), err)
	}
	defer func() {
		if cerr := s.Close(); cerr != nil {
			log.Warn("closing session", "error", cerr)
		}
	}()
	sess := &session{s: s, diag: so.diag}

	env, bounds, err := bind(s, root, proto)
	if err != nil {
		return reflect.Value{}, false, err
	}
	for _, b := range bounds {
		if err := sess.assert(b); err != nil {
			return reflect.Value{}, false, err
		}
	}

	preds := p.preds
	if rw, ok := p.ctx.globalRewriters[p.typ]; ok {
		if rw == nil {
			return reflect.Value{}, false, &RewriteError{Rewriter: p.typ.String(), Message: "global rewriter is nil"}
		}
		preds, err = rw(slices.Clone(preds))
		if err != nil {
			return reflect.Value{}, false, &RewriteError{Rewriter: p.typ.String(), Message: "global rewrite failed", Err: err}
		}
	}
	comp := newCompiler(p.ctx, env)
	for _, pred := range preds {
		e, err := comp.predicate(pred)
		if err != nil {
			return reflect.Value{}, false, err
		}
		if err := sess.assert(e); err != nil {
			return reflect.Value{}, false, err
		}
	}
	if obj != nil {
		e, err := comp.objective(obj.fn)
		if err != nil {
			return reflect.Value{}, false, err
		}
		for _, g := range comp.guards {
			if err := sess.assert(g); err != nil {
				return reflect.Value{}, false, err
			}
		}
		if so.diag != nil {
			fmt.Fprintf(so.diag, "(%s %s)\n", obj.dir, e)
		}
		if obj.dir == Maximize {
			err = opt.Maximize(e)
		} else {
			err = opt.Minimize(e)
		}
		if err != nil {
			return reflect.Value{}, false, err
		}
	}

	status, err := s.Check(ctx)
	log.Debug("checked",
		"status", status.String(),
		"predicates", len(preds),
		"assertions", sess.n,
		"elapsed", time.Since(start),
	)
	if err != nil {
		return reflect.Value{}, false, err
	}
	if status != smt.Sat {
		return reflect.Zero(p.typ), false, nil
	}
	m, err := s.Model()
	if err != nil {
		return reflect.Value{}, false, err
	}
	res, err = project(m, env, proto, p.build)
	if err != nil {
		return reflect.Value{}, false, err
	}
	return res, true, nil
}
