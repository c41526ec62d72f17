package sat

import (
	"context"
	"errors"
	"fmt"

	"github.com/signadot/go-theorem/smt"
)

// DefaultWidth is the default bit width of Int terms.
const DefaultWidth = 32

// ErrUnsupported is wrapped by errors for terms this backend cannot encode.
var ErrUnsupported = errors.New("unsupported by sat backend")

// Backend solves in process by encoding terms into a gini circuit.
type Backend struct {
	width int
}

type Option func(*Backend)

// WithWidth sets the minimum bit width of Int terms. The width is widened
// as needed to represent every literal of a problem.
func WithWidth(w int) Option {
	return func(b *Backend) {
		if w > 1 {
			b.width = w
		}
	}
}

func New(opts ...Option) *Backend {
	b := &Backend{width: DefaultWidth}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Backend) Name() string {
	return "sat"
}

func (b *Backend) NewSolver(ctx context.Context) (smt.Solver, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newSession(b.width), nil
}

func (b *Backend) NewOptimizer(ctx context.Context) (smt.Optimizer, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return newSession(b.width), nil
}

type objective struct {
	e        *smt.Expr
	maximize bool
}

type session struct {
	width   int
	vars    map[string]*smt.Expr
	asserts []*smt.Expr
	obj     *objective
	model   *smt.Assign
	closed  bool
}

func newSession(width int) *session {
	return &session{width: width, vars: map[string]*smt.Expr{}}
}

func (s *session) Declare(name string, sort smt.Sort) (*smt.Expr, error) {
	if s.closed {
		return nil, errClosed
	}
	if _, ok := s.vars[name]; ok {
		return nil, fmt.Errorf("%s already declared", name)
	}
	switch sort.Kind {
	case smt.KindBool, smt.KindInt, smt.KindReal, smt.KindString:
	case smt.KindArray:
		if sort.Index != smt.KindInt {
			return nil, fmt.Errorf("%w: array index sort %s", ErrUnsupported, sort.IndexSort())
		}
	default:
		return nil, fmt.Errorf("%w: sort %s", ErrUnsupported, sort)
	}
	v := smt.Var(name, sort)
	s.vars[name] = v
	return v, nil
}

func (s *session) Assert(e *smt.Expr) error {
	if s.closed {
		return errClosed
	}
	if e.Sort() != smt.Bool {
		return fmt.Errorf("assertion %s has sort %s", e, e.Sort())
	}
	s.asserts = append(s.asserts, e)
	s.model = nil
	return nil
}

func (s *session) Minimize(e *smt.Expr) error {
	return s.setObjective(e, false)
}

func (s *session) Maximize(e *smt.Expr) error {
	return s.setObjective(e, true)
}

func (s *session) setObjective(e *smt.Expr, maximize bool) error {
	if s.closed {
		return errClosed
	}
	if s.obj != nil {
		return fmt.Errorf("%w: more than one objective", ErrUnsupported)
	}
	if e.Sort() != smt.Int {
		return fmt.Errorf("%w: objective of sort %s", ErrUnsupported, e.Sort())
	}
	s.obj = &objective{e: e, maximize: maximize}
	return nil
}

func (s *session) Check(ctx context.Context) (smt.Status, error) {
	if s.closed {
		return smt.Unknown, errClosed
	}
	s.model = nil
	if err := ctx.Err(); err != nil {
		return smt.Unknown, err
	}
	p, err := newProblem(s)
	if err != nil {
		return smt.Unknown, err
	}
	status, model, err := p.search(ctx)
	if err != nil {
		return smt.Unknown, err
	}
	s.model = model
	return status, nil
}

func (s *session) Model() (smt.Model, error) {
	if s.model == nil {
		return nil, smt.ErrNoModel
	}
	return s.model, nil
}

func (s *session) Close() error {
	s.closed = true
	s.model = nil
	return nil
}

var errClosed = errors.New("sat session closed")
