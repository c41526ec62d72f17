package sat

import (
	"context"
	"errors"
	"math/big"
	"testing"

	"github.com/signadot/go-theorem/smt"
)

func declare(t *testing.T, s smt.Solver, name string, sort smt.Sort) *smt.Expr {
	t.Helper()
	v, err := s.Declare(name, sort)
	if err != nil {
		t.Fatalf("Declare(%s) error = %v", name, err)
	}
	return v
}

func apply(t *testing.T, op smt.Op, args ...*smt.Expr) *smt.Expr {
	t.Helper()
	e, err := smt.Apply(op, args...)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", op, err)
	}
	return e
}

func assert(t *testing.T, s smt.Solver, es ...*smt.Expr) {
	t.Helper()
	for _, e := range es {
		if err := s.Assert(e); err != nil {
			t.Fatalf("Assert(%s) error = %v", e, err)
		}
	}
}

func check(t *testing.T, s smt.Solver, want smt.Status) {
	t.Helper()
	got, err := s.Check(context.Background())
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if got != want {
		t.Fatalf("Check() = %s, want %s", got, want)
	}
}

func eval(t *testing.T, s smt.Solver, e *smt.Expr) smt.Value {
	t.Helper()
	m, err := s.Model()
	if err != nil {
		t.Fatalf("Model() error = %v", err)
	}
	v, err := m.Eval(e)
	if err != nil {
		t.Fatalf("Eval(%s) error = %v", e, err)
	}
	return v
}

func newSolver(t *testing.T) smt.Solver {
	t.Helper()
	s, err := New().NewSolver(context.Background())
	if err != nil {
		t.Fatalf("NewSolver() error = %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBoolUnsat(t *testing.T) {
	s := newSolver(t)
	p := declare(t, s, "p", smt.Bool)
	assert(t, s, p, apply(t, smt.OpNot, p))
	check(t, s, smt.Unsat)
	if _, err := s.Model(); !errors.Is(err, smt.ErrNoModel) {
		t.Errorf("Model() error = %v, want ErrNoModel", err)
	}
}

func TestBoolSat(t *testing.T) {
	s := newSolver(t)
	p := declare(t, s, "p", smt.Bool)
	q := declare(t, s, "q", smt.Bool)
	assert(t, s, apply(t, smt.OpXor, p, q), apply(t, smt.OpImplies, p, q))
	check(t, s, smt.Sat)
	if eval(t, s, p).Bool() || !eval(t, s, q).Bool() {
		t.Errorf("model p=%s q=%s, want p=false q=true", eval(t, s, p), eval(t, s, q))
	}
}

func TestIntArithmetic(t *testing.T) {
	s := newSolver(t)
	x := declare(t, s, "x", smt.Int)
	y := declare(t, s, "y", smt.Int)
	q := declare(t, s, "q", smt.Int)
	r := declare(t, s, "r", smt.Int)
	assert(t, s,
		apply(t, smt.OpGt, x, smt.IntLit(2)),
		apply(t, smt.OpLt, x, smt.IntLit(5)),
		apply(t, smt.OpNot, apply(t, smt.OpEq, x, smt.IntLit(3))),
		apply(t, smt.OpEq, y, apply(t, smt.OpSub, apply(t, smt.OpMul, x, x), smt.IntLit(20))),
		apply(t, smt.OpEq, q, apply(t, smt.OpIntDiv, smt.IntLit(-7), smt.IntLit(3))),
		apply(t, smt.OpEq, r, apply(t, smt.OpMod, smt.IntLit(-7), smt.IntLit(3))),
	)
	check(t, s, smt.Sat)
	want := map[*smt.Expr]int64{x: 4, y: -4, q: -3, r: 2}
	for v, w := range want {
		if got := eval(t, s, v); !got.Equal(smt.Int64Value(w)) {
			t.Errorf("%s = %s, want %d", v, got, w)
		}
	}
}

func TestWidthFitsLiterals(t *testing.T) {
	s := newSolver(t)
	x := declare(t, s, "x", smt.Int)
	lim := new(big.Int).Lsh(big.NewInt(1), 40)
	assert(t, s, apply(t, smt.OpEq, apply(t, smt.OpAdd, x, smt.IntLit(1)), smt.BigIntLit(lim)))
	check(t, s, smt.Sat)
	want := new(big.Int).Sub(lim, big.NewInt(1))
	if got := eval(t, s, x); got.Int().Cmp(want) != 0 {
		t.Errorf("x = %s, want %s", got, want)
	}
}

func TestBoundedUnsatIsUnknown(t *testing.T) {
	s := newSolver(t)
	x := declare(t, s, "x", smt.Int)
	y := declare(t, s, "y", smt.Int)
	z := declare(t, s, "z", smt.Int)
	assert(t, s, apply(t, smt.OpDistinct, x, y, z), apply(t, smt.OpEq, x, y))
	check(t, s, smt.Unknown)
}

func TestOptimize(t *testing.T) {
	for _, maximize := range []bool{false, true} {
		o, err := New(WithWidth(8)).NewOptimizer(context.Background())
		if err != nil {
			t.Fatalf("NewOptimizer() error = %v", err)
		}
		x := declare(t, o, "x", smt.Int)
		assert(t, o, apply(t, smt.OpLe, smt.IntLit(2), x), apply(t, smt.OpLe, x, smt.IntLit(9)))
		want := int64(2)
		if maximize {
			want = 9
			err = o.Maximize(x)
		} else {
			err = o.Minimize(x)
		}
		if err != nil {
			t.Fatalf("objective error = %v", err)
		}
		check(t, o, smt.Sat)
		if got := eval(t, o, x); !got.Equal(smt.Int64Value(want)) {
			t.Errorf("maximize=%v: x = %s, want %d", maximize, got, want)
		}
		o.Close()
	}
}

func TestRealObjectiveUnsupported(t *testing.T) {
	o, err := New().NewOptimizer(context.Background())
	if err != nil {
		t.Fatalf("NewOptimizer() error = %v", err)
	}
	defer o.Close()
	r := declare(t, o, "r", smt.Real)
	if err := o.Minimize(r); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Minimize() error = %v, want ErrUnsupported", err)
	}
}

func TestArrays(t *testing.T) {
	s := newSolver(t)
	a := declare(t, s, "a", smt.ArrayOf(smt.KindInt, smt.KindInt))
	i := declare(t, s, "i", smt.Int)
	at := func(k int64) *smt.Expr {
		return apply(t, smt.OpSelect, a, smt.IntLit(k))
	}
	assert(t, s,
		apply(t, smt.OpEq, at(0), smt.IntLit(3)),
		apply(t, smt.OpEq, apply(t, smt.OpAdd, at(0), at(1)), smt.IntLit(10)),
		apply(t, smt.OpEq, i, smt.IntLit(1)),
		apply(t, smt.OpEq, apply(t, smt.OpSelect, a, i), smt.IntLit(7)),
		apply(t, smt.OpEq, apply(t, smt.OpSelect, a, smt.IntLit(2)), smt.IntLit(-1)),
	)
	check(t, s, smt.Sat)
	for k, w := range []int64{3, 7, -1} {
		if got := eval(t, s, at(int64(k))); !got.Equal(smt.Int64Value(w)) {
			t.Errorf("a[%d] = %s, want %d", k, got, w)
		}
	}
}

func TestArraySymbolicConflict(t *testing.T) {
	s := newSolver(t)
	a := declare(t, s, "a", smt.ArrayOf(smt.KindInt, smt.KindBool))
	i := declare(t, s, "i", smt.Int)
	assert(t, s,
		apply(t, smt.OpEq, i, smt.IntLit(4)),
		apply(t, smt.OpSelect, a, i),
		apply(t, smt.OpNot, apply(t, smt.OpSelect, a, smt.IntLit(4))),
	)
	check(t, s, smt.Unknown)
}

func TestReals(t *testing.T) {
	s := newSolver(t)
	x := declare(t, s, "x", smt.Int)
	r := declare(t, s, "r", smt.Real)
	assert(t, s,
		apply(t, smt.OpEq, x, smt.IntLit(2)),
		apply(t, smt.OpLt, x, r),
		apply(t, smt.OpLt, r, smt.IntLit(3)),
	)
	check(t, s, smt.Sat)
	got := eval(t, s, r).Rat()
	if got.Cmp(big.NewRat(2, 1)) <= 0 || got.Cmp(big.NewRat(3, 1)) >= 0 {
		t.Errorf("r = %s, want 2 < r < 3", got.RatString())
	}
}

func TestRealArithmetic(t *testing.T) {
	s := newSolver(t)
	r := declare(t, s, "r", smt.Real)
	u := declare(t, s, "u", smt.Real)
	assert(t, s,
		apply(t, smt.OpEq, r, smt.RealLit(big.NewRat(3, 2))),
		apply(t, smt.OpEq, u, apply(t, smt.OpMul, r, smt.IntLit(2))),
	)
	check(t, s, smt.Sat)
	if got := eval(t, s, u); !got.Equal(smt.Int64Value(3)) {
		t.Errorf("u = %s, want 3", got)
	}
}

func TestStrings(t *testing.T) {
	s := newSolver(t)
	a := declare(t, s, "a", smt.String)
	b := declare(t, s, "b", smt.String)
	c := declare(t, s, "c", smt.String)
	assert(t, s,
		apply(t, smt.OpEq, a, b),
		apply(t, smt.OpEq, b, smt.StringLit("hello")),
		apply(t, smt.OpDistinct, c, a, smt.StringLit("")),
	)
	check(t, s, smt.Sat)
	if got := eval(t, s, a).Str(); got != "hello" {
		t.Errorf("a = %q, want hello", got)
	}
	if got := eval(t, s, c).Str(); got == "hello" || got == "" {
		t.Errorf("c = %q, want a fresh string", got)
	}
}

func TestClosedSession(t *testing.T) {
	s := newSolver(t)
	s.Close()
	if _, err := s.Declare("x", smt.Int); err == nil {
		t.Error("Declare() after Close succeeded")
	}
	if _, err := s.Check(context.Background()); err == nil {
		t.Error("Check() after Close succeeded")
	}
}

func TestCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := New().NewSolver(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("NewSolver() error = %v, want context.Canceled", err)
	}
}
