package theorem

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/smt"
	"github.com/signadot/go-theorem/smt/sat"
)

// compileOne binds T in a fresh sat session and compiles pred.
func compileOne[T any](t *testing.T, tc *Context, pred *ast.Lambda) (*smt.Expr, error) {
	t.Helper()
	s, err := sat.New().NewSolver(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	typ := reflect.TypeFor[T]()
	root, err := tc.describe(typ)
	if err != nil {
		t.Fatalf("describe(%s) error = %v", typ, err)
	}
	env, _, err := bind(s, root, reflect.New(typ).Elem())
	if err != nil {
		t.Fatalf("bind(%s) error = %v", typ, err)
	}
	return newCompiler(tc, env).predicate(pred)
}

type Mixed struct {
	I   int
	R   float64
	B   bool
	S   string
	Arr [3]int
	In  Inner
}

func TestCompile(t *testing.T) {
	limits := struct{ Max int }{Max: 7}
	tests := []struct {
		name string
		body func(p *ast.Param) ast.Node
		want string
	}{
		{
			name: "arithmetic",
			body: func(p *ast.Param) ast.Node {
				return ast.Eq(ast.Mod(ast.Add(ast.Get(p, "I"), ast.Lit(1)), ast.Lit(3)), ast.Lit(0))
			},
			want: "(= (mod (+ Mixed_I 1) 3) 0)",
		},
		{
			name: "integer division",
			body: func(p *ast.Param) ast.Node {
				return ast.Lt(ast.Div(ast.Get(p, "I"), ast.Lit(2)), ast.Lit(-3))
			},
			want: "(< (div Mixed_I 2) (- 3))",
		},
		{
			name: "real division",
			body: func(p *ast.Param) ast.Node {
				return ast.Ge(ast.Div(ast.Get(p, "R"), ast.Lit(2.5)), ast.Lit(1))
			},
			want: "(>= (/ Mixed_R 2.5) 1.0)",
		},
		{
			name: "mixed widening",
			body: func(p *ast.Param) ast.Node {
				return ast.Gt(ast.Add(ast.Get(p, "R"), ast.Get(p, "I")), ast.Lit(0.1))
			},
			want: "(> (+ Mixed_R (to_real Mixed_I)) 0.1)",
		},
		{
			name: "logic",
			body: func(p *ast.Param) ast.Node {
				return ast.Or(ast.Not(ast.Get(p, "B")), ast.Xor(ast.Get(p, "B"), ast.Eq(ast.Get(p, "S"), ast.Lit("a"))), ast.Get(p, "B"))
			},
			want: `(or (not Mixed_B) (xor Mixed_B (= Mixed_S "a")) Mixed_B)`,
		},
		{
			name: "not equal",
			body: func(p *ast.Param) ast.Node { return ast.Ne(ast.Get(p, "I"), ast.Neg(ast.Get(p, "I"))) },
			want: "(not (= Mixed_I (- Mixed_I)))",
		},
		{
			name: "power",
			body: func(p *ast.Param) ast.Node { return ast.Eq(ast.Pow(ast.Get(p, "I"), ast.Lit(2)), ast.Lit(9)) },
			want: "(= (^ Mixed_I 2) 9)",
		},
		{
			name: "nested member",
			body: func(p *ast.Param) ast.Node { return ast.And(ast.Get(p, "In", "B"), ast.Gt(ast.Get(p, "In", "A"), ast.Lit(0))) },
			want: "(and Mixed_In_B (> Mixed_In_A 0))",
		},
		{
			name: "index",
			body: func(p *ast.Param) ast.Node { return ast.Eq(ast.At(ast.Get(p, "Arr"), ast.Get(p, "I")), ast.Lit(1)) },
			want: "(= (select Mixed_Arr Mixed_I) 1)",
		},
		{
			name: "getter item",
			body: func(p *ast.Param) ast.Node {
				return ast.Eq(ast.Method(ast.Get(p, "Arr"), "get_Item", ast.Lit(1)), ast.Lit(2))
			},
			want: "(= (select Mixed_Arr 1) 2)",
		},
		{
			name: "getter member",
			body: func(p *ast.Param) ast.Node {
				return ast.Eq(ast.Method(p, "get_Arr", ast.Lit(2)), ast.Lit(2))
			},
			want: "(= (select Mixed_Arr 2) 2)",
		},
		{
			name: "captured member",
			body: func(p *ast.Param) ast.Node {
				return ast.Le(ast.Get(p, "I"), ast.Get(ast.Captured("limits", limits), "Max"))
			},
			want: "(<= Mixed_I 7)",
		},
		{
			name: "captured index",
			body: func(p *ast.Param) ast.Node {
				return ast.Eq(ast.Get(p, "I"), ast.At(ast.Captured("sq", []int{0, 1, 4}), ast.Lit(2)))
			},
			want: "(= Mixed_I 4)",
		},
		{
			name: "captured symbolic index",
			body: func(p *ast.Param) ast.Node {
				return ast.Eq(ast.At(ast.Captured("sq", []int{0, 1, 4}), ast.Get(p, "I")), ast.Lit(1))
			},
			want: "(and (<= 0 Mixed_I) (< Mixed_I 3) (= (ite (= Mixed_I 0) 0 (ite (= Mixed_I 1) 1 4)) 1))",
		},
		{
			name: "conversions",
			body: func(p *ast.Param) ast.Node {
				return ast.And(
					ast.Eq(ast.ToInt(ast.Get(p, "R")), ast.Get(p, "I")),
					ast.Eq(ast.ToFloat(ast.Get(p, "I")), ast.Get(p, "R")),
					ast.Eq(ast.To(ast.Get(p, "I"), reflect.TypeFor[int64]()), ast.Lit('a')),
					ast.Eq(ast.ToFloat(ast.Get(p, "R")), ast.ToFloat(ast.Lit(3))),
				)
			},
			want: "(and (= (to_int Mixed_R) Mixed_I) (= (to_real Mixed_I) Mixed_R) (= Mixed_I 97) (= Mixed_R 3.0))",
		},
		{
			name: "distinct literal",
			body: func(p *ast.Param) ast.Node {
				return ast.Distinct(ast.Get(p, "I"), ast.Lit(3), ast.At(ast.Get(p, "Arr"), ast.Lit(0)))
			},
			want: "(distinct Mixed_I 3 (select Mixed_Arr 0))",
		},
		{
			name: "distinct map",
			body: func(p *ast.Param) ast.Node {
				return ast.DistinctOf(ast.Captured("idx", []int{0, 2}), "i", func(i *ast.Param) ast.Node {
					return ast.At(ast.Get(p, "Arr"), ast.Add(i, ast.Lit(0)))
				})
			},
			want: "(distinct (select Mixed_Arr 0) (select Mixed_Arr 2))",
		},
		{
			name: "distinct sequence",
			body: func(p *ast.Param) ast.Node { return ast.Distinct(ast.Get(p, "Arr")) },
			want: "(distinct (select Mixed_Arr 0) (select Mixed_Arr 1) (select Mixed_Arr 2))",
		},
	}
	tc := newTestContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := compileOne[Mixed](t, tc, fn(tt.body))
			if err != nil {
				t.Fatalf("compile error = %v", err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("compile = %s\n want %s", got, tt.want)
			}
		})
	}
}

func TestCompileErrors(t *testing.T) {
	other := &ast.Param{Name: "q"}
	tests := []struct {
		name string
		body func(p *ast.Param) ast.Node
		want error
	}{
		{"unknown member", func(p *ast.Param) ast.Node { return ast.Get(p, "Z") }, ErrUnknownParameter},
		{"unknown nested member", func(p *ast.Param) ast.Node { return ast.Get(p, "In", "Z") }, ErrUnknownParameter},
		{"foreign parameter", func(p *ast.Param) ast.Node { return ast.Get(other, "B") }, ErrUnknownParameter},
		{"missing captured field", func(p *ast.Param) ast.Node {
			return ast.Eq(ast.Get(p, "I"), ast.Get(ast.Captured("c", struct{ A int }{}), "B"))
		}, ErrUnknownParameter},
		{"composite value", func(p *ast.Param) ast.Node { return ast.Eq(ast.Get(p, "In"), ast.Get(p, "In")) }, ErrUnsupported},
		{"call", func(p *ast.Param) ast.Node { return ast.Func("Foo", ast.Get(p, "I")) }, ErrUnsupported},
		{"cast", func(p *ast.Param) ast.Node { return ast.Eq(ast.ToInt(ast.Get(p, "B")), ast.Lit(1)) }, ErrUnsupported},
		{"cast to string", func(p *ast.Param) ast.Node {
			return ast.Eq(ast.To(ast.Get(p, "I"), reflect.TypeFor[string]()), ast.Lit("1"))
		}, ErrUnsupported},
		{"narrowing cast", func(p *ast.Param) ast.Node {
			return ast.Eq(ast.To(ast.Get(p, "I"), reflect.TypeFor[int8]()), ast.Lit(1))
		}, ErrUnsupported},
		{"constant overflow", func(p *ast.Param) ast.Node {
			return ast.Eq(ast.Get(p, "I"), ast.To(ast.Lit(300), reflect.TypeFor[int8]()))
		}, ErrUnsupported},
		{"negative unsigned", func(p *ast.Param) ast.Node {
			return ast.Eq(ast.Get(p, "I"), ast.To(ast.Neg(ast.Lit(1)), reflect.TypeFor[uint]()))
		}, ErrUnsupported},
		{"sort", func(p *ast.Param) ast.Node { return ast.Add(ast.Get(p, "I"), ast.Get(p, "B")) }, smt.ErrSort},
		{"non-bool predicate", func(p *ast.Param) ast.Node { return ast.Get(p, "I") }, ErrUnsupported},
		{"constant", func(p *ast.Param) ast.Node { return ast.Eq(ast.Get(p, "I"), ast.Lit([]int{1})) }, ErrUnsupported},
		{"parameter value", func(p *ast.Param) ast.Node { return ast.Eq(p, p) }, ErrUnsupported},
		{"array literal", func(p *ast.Param) ast.Node { return &ast.ArrayLit{} }, ErrUnsupported},
	}
	tc := newTestContext()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compileOne[Mixed](t, tc, fn(tt.body))
			if !errors.Is(err, tt.want) {
				t.Fatalf("compile error = %v, want %v", err, tt.want)
			}
			var cerr *CompileError
			if !errors.As(err, &cerr) {
				t.Errorf("error %T is not a *CompileError", err)
			}
		})
	}
}

func TestErrorsCloseSession(t *testing.T) {
	b := &countingBackend{Backend: sat.New()}
	th := New[Point](NewContext(b)).Where(fn(func(p *ast.Param) ast.Node { return ast.Get(p, "Z") }))
	if _, _, err := th.Solve(context.Background()); !errors.Is(err, ErrUnknownParameter) {
		t.Fatalf("Solve() error = %v", err)
	}
	if _, _, err := th.OrderBy(fn(func(p *ast.Param) ast.Node { return ast.Get(p, "X") })).Solve(context.Background()); err == nil {
		t.Fatal("Solve() succeeded")
	}
	if b.opened != 2 || b.closed != 2 {
		t.Errorf("sessions opened %d closed %d", b.opened, b.closed)
	}
}

func TestPredicateRewriter(t *testing.T) {
	between := func(call *ast.Call) (ast.Node, error) {
		if len(call.Args) != 3 {
			return nil, errors.New("between takes 3 arguments")
		}
		return ast.Between(call.Args[0], call.Args[1], call.Args[2]), nil
	}
	tc := newTestContext(
		WithPredicateRewriter("Between", between),
		WithPredicateRewriter("Stuck", func(call *ast.Call) (ast.Node, error) { return call, nil }),
		WithPredicateRewriter("Loop", func(call *ast.Call) (ast.Node, error) {
			return ast.Func("Loop", ast.Add(call.Args[0], ast.Lit(1))), nil
		}),
	)
	got, ok, err := New[Point](tc).Where(fn(func(p *ast.Param) ast.Node {
		return ast.Func("Between", ast.Get(p, "X"), ast.Lit(3), ast.Lit(3))
	})).Solve(context.Background())
	if err != nil || !ok || got.X != 3 {
		t.Errorf("Solve() = %v, %v, %v; want X = 3", got, ok, err)
	}

	for _, body := range []func(p *ast.Param) ast.Node{
		func(p *ast.Param) ast.Node { return ast.Func("Stuck", ast.Get(p, "X")) },
		func(p *ast.Param) ast.Node { return ast.Func("Loop", ast.Get(p, "X")) },
		func(p *ast.Param) ast.Node { return ast.Func("Between", ast.Get(p, "X")) },
	} {
		_, _, err := New[Point](tc).Where(fn(body)).Solve(context.Background())
		var rerr *RewriteError
		if !errors.Is(err, ErrRewriter) || !errors.As(err, &rerr) {
			t.Errorf("Solve() error = %v, want a RewriteError", err)
		}
	}
}

type Sudoku struct {
	Cells [81]int
}

func cell(p *ast.Param, i int) ast.Node {
	return ast.At(ast.Get(p, "Cells"), ast.Lit(i))
}

// sudokuRules adds the cell ranges and the row, column and box constraints.
func sudokuRules(preds []*ast.Lambda) ([]*ast.Lambda, error) {
	res := append(preds, fn(func(p *ast.Param) ast.Node {
		var all []ast.Node
		for i := range 81 {
			all = append(all, ast.Between(cell(p, i), ast.Lit(1), ast.Lit(9)))
		}
		return ast.And(all...)
	}))
	for k := range 9 {
		res = append(res, fn(func(p *ast.Param) ast.Node {
			var row, col, box []ast.Node
			for j := range 9 {
				row = append(row, cell(p, 9*k+j))
				col = append(col, cell(p, 9*j+k))
				box = append(box, cell(p, 27*(k/3)+3*(k%3)+9*(j/3)+j%3))
			}
			return ast.And(ast.Distinct(row...), ast.Distinct(col...), ast.Distinct(box...))
		}))
	}
	return res, nil
}

func TestSudoku(t *testing.T) {
	const (
		puzzle   = "530070000600195000098000060800060003400803001700020006060000280000419005000080079"
		solution = "534678912672195348198342567859761423426853791713924856961537284287419635345286179"
	)
	tc := NewContext(sat.New(sat.WithWidth(8)), WithGlobalRewriter[Sudoku](sudokuRules))
	th := New[Sudoku](tc)
	for i, c := range puzzle {
		if c == '0' {
			continue
		}
		th = th.Where(fn(func(p *ast.Param) ast.Node {
			return ast.Eq(cell(p, i), ast.Lit(int(c-'0')))
		}))
	}
	got, ok, err := th.Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	buf := make([]byte, 81)
	for i, v := range got.Cells {
		buf[i] = byte('0' + v)
	}
	if string(buf) != solution {
		t.Errorf("Solve() = %s, want %s", buf, solution)
	}
}

func TestGlobalRewriterError(t *testing.T) {
	boom := errors.New("boom")
	tc := newTestContext(WithGlobalRewriter[Point](func([]*ast.Lambda) ([]*ast.Lambda, error) {
		return nil, boom
	}))
	_, _, err := New[Point](tc).Solve(context.Background())
	if !errors.Is(err, ErrRewriter) || !errors.Is(err, boom) {
		t.Errorf("Solve() error = %v", err)
	}
}
