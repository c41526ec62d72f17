package theorem

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/smt"
	"github.com/signadot/go-theorem/smt/sat"
)

type Celsius struct {
	deg int64
}

func (c Celsius) Degrees() int64 { return c.deg }

type Weather struct {
	Temp Celsius
	Week [2]Celsius
}

func celsiusMapping(construct any) ContextOption {
	return WithTypeMapping(TypeMapping{
		Type:      reflect.TypeFor[Celsius](),
		Domain:    smt.KindInt,
		Construct: construct,
	})
}

func TestTypeMapping(t *testing.T) {
	tc := newTestContext(celsiusMapping(func(d int64) Celsius { return Celsius{deg: d} }))
	got, ok, err := New[Weather](tc).Where(fn(func(p *ast.Param) ast.Node {
		return ast.And(
			ast.Eq(ast.Get(p, "Temp"), ast.Lit(21)),
			ast.Eq(ast.At(ast.Get(p, "Week"), ast.Lit(0)), ast.Sub(ast.Get(p, "Temp"), ast.Lit(30))),
			ast.Eq(ast.At(ast.Get(p, "Week"), ast.Lit(1)), ast.Lit(0)),
		)
	})).Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	want := []int64{21, -9, 0}
	if diff := cmp.Diff(want, []int64{got.Temp.Degrees(), got.Week[0].Degrees(), got.Week[1].Degrees()}); diff != "" {
		t.Errorf("Solve() mismatch (-want +got):\n%s", diff)
	}
}

func TestTypeMappingErrors(t *testing.T) {
	boom := errors.New("too cold")
	tests := []struct {
		name      string
		construct any
		want      error
	}{
		{"not a func", 42, nil},
		{"wrong parameter", func(bool) Celsius { return Celsius{} }, nil},
		{"two parameters", func(int64, int64) Celsius { return Celsius{} }, nil},
		{"wrong result", func(int64) int64 { return 0 }, nil},
		{"second result not an error", func(int64) (Celsius, bool) { return Celsius{}, true }, nil},
		{"failing", func(int64) (Celsius, error) { return Celsius{}, boom }, boom},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := New[Weather](newTestContext(celsiusMapping(tt.construct))).Solve(context.Background())
			if !errors.Is(err, ErrProjection) {
				t.Fatalf("Solve() error = %v, want a projection error", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Errorf("Solve() error = %v, want %v", err, tt.want)
			}
			var perr *ProjectionError
			if !errors.As(err, &perr) || perr.FieldPath != "theorem.Weather.Temp" {
				t.Errorf("Solve() error = %#v, want path theorem.Weather.Temp", err)
			}
		})
	}
}

type pair struct {
	a int
	b bool
}

func TestBuilder(t *testing.T) {
	build := WithBuilder(func(values []any) (pair, error) {
		if len(values) != 2 {
			return pair{}, fmt.Errorf("got %d values", len(values))
		}
		return pair{a: values[0].(int), b: values[1].(bool)}, nil
	})
	pred := fn(func(p *ast.Param) ast.Node {
		return ast.And(ast.Eq(ast.Get(p, "a"), ast.Lit(-4)), ast.Not(ast.Get(p, "b")))
	})
	got, ok, err := New[pair](newTestContext(), build).Where(pred).Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	if got != (pair{a: -4}) {
		t.Errorf("Solve() = %+v", got)
	}

	_, _, err = New[pair](newTestContext()).Where(pred).Solve(context.Background())
	if !errors.Is(err, ErrProjection) {
		t.Errorf("Solve() without builder error = %v", err)
	}

	failing := WithBuilder(func([]any) (pair, error) { return pair{}, errors.New("no") })
	_, _, err = New[pair](newTestContext(), failing).Where(pred).Solve(context.Background())
	if !errors.Is(err, ErrProjection) {
		t.Errorf("Solve() with failing builder error = %v", err)
	}
}

type Narrow struct {
	S int8
	U uint8
}

func TestNarrowIntegers(t *testing.T) {
	tc := newTestContext()
	got, ok, err := New[Narrow](tc).Optimize(context.Background(), Maximize, fn(func(p *ast.Param) ast.Node {
		return ast.Get(p, "S")
	}))
	if err != nil || !ok || got.S != 127 {
		t.Errorf("maximize S = %+v, %v, %v", got, ok, err)
	}
	got, ok, err = New[Narrow](tc).Optimize(context.Background(), Minimize, fn(func(p *ast.Param) ast.Node {
		return ast.Get(p, "U")
	}))
	if err != nil || !ok || got.U != 0 {
		t.Errorf("minimize U = %+v, %v, %v", got, ok, err)
	}
	_, ok, err = New[Narrow](tc).Where(fn(func(p *ast.Param) ast.Node {
		return ast.Gt(ast.Get(p, "U"), ast.Lit(255))
	})).Solve(context.Background())
	if err != nil || ok {
		t.Errorf("U > 255 = %v, %v", ok, err)
	}
}

func TestNative(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		val  smt.Value
		want any
	}{
		{"int8", reflect.TypeFor[int8](), smt.Int64Value(-128), int8(-128)},
		{"uint16", reflect.TypeFor[uint16](), smt.Int64Value(65535), uint16(65535)},
		{"float32", reflect.TypeFor[float32](), mustReal(t, "0.5"), float32(0.5)},
		{"float from int", reflect.TypeFor[float64](), smt.Int64Value(3), 3.0},
		{"duration", durationType, smt.Int64Value(int64(time.Second)), time.Second},
		{"time", timeType, smt.Int64Value(0), time.Unix(0, 0).UTC()},
		{"string", reflect.TypeFor[string](), smt.StringValue("é"), "é"},
		{"named bool", reflect.TypeFor[namedBool](), smt.BoolValue(true), namedBool(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := native(&field{}, tt.typ, tt.val, "x")
			if err != nil {
				t.Fatal(err)
			}
			if diff := cmp.Diff(tt.want, got.Interface()); diff != "" {
				t.Errorf("native() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

type namedBool bool

func mustReal(t *testing.T, s string) smt.Value {
	t.Helper()
	v, err := smt.ParseReal(s)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestNativeErrors(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		val  smt.Value
	}{
		{"int8 overflow", reflect.TypeFor[int8](), smt.Int64Value(300)},
		{"negative uint", reflect.TypeFor[uint](), smt.Int64Value(-1)},
		{"bool as int", reflect.TypeFor[int](), smt.BoolValue(true)},
		{"real as int", reflect.TypeFor[int](), mustReal(t, "1.5")},
		{"string as float", reflect.TypeFor[float64](), smt.StringValue("1")},
		{"int as string", reflect.TypeFor[string](), smt.Int64Value(1)},
		{"unsupported", reflect.TypeFor[complex128](), smt.Int64Value(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := native(&field{}, tt.typ, tt.val, "x")
			var perr *ProjectionError
			if !errors.As(err, &perr) || perr.FieldPath != "x" {
				t.Errorf("native() error = %v", err)
			}
		})
	}
}

type Conv struct {
	I int
	R float64
	J int
}

func TestConversions(t *testing.T) {
	got, ok, err := New[Conv](newTestContext()).Where(fn(func(p *ast.Param) ast.Node {
		return ast.And(
			ast.Eq(ast.Get(p, "R"), ast.Lit(2.5)),
			ast.Eq(ast.Get(p, "I"), ast.ToInt(ast.Get(p, "R"))),
			ast.Eq(ast.ToFloat(ast.Get(p, "J")), ast.Sub(ast.Get(p, "R"), ast.Lit(0.5))),
		)
	})).Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	if want := (Conv{I: 2, R: 2.5, J: 2}); got != want {
		t.Errorf("Solve() = %+v, want %+v", got, want)
	}
}

func TestConstantConversions(t *testing.T) {
	got, ok, err := New[Conv](newTestContext()).Where(fn(func(p *ast.Param) ast.Node {
		return ast.And(
			ast.Eq(ast.Get(p, "I"), ast.ToInt(ast.Lit(-2.5))),
			ast.Eq(ast.Get(p, "J"), ast.To(ast.Lit(100), reflect.TypeFor[int8]())),
			ast.Eq(ast.Get(p, "R"), ast.ToFloat(ast.Add(ast.Lit(1), ast.Lit(2)))),
		)
	})).Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	// constant operands round like symbolic ones
	if want := (Conv{I: -3, R: 3, J: 100}); got != want {
		t.Errorf("Solve() = %+v, want %+v", got, want)
	}
}

func TestCapturedLookup(t *testing.T) {
	sq := []int{0, 1, 4, 9, 16}
	got, ok, err := New[Point](newTestContext()).Where(fn(func(p *ast.Param) ast.Node {
		return ast.And(
			ast.Eq(ast.Get(p, "X"), ast.Lit(3)),
			ast.Eq(ast.Get(p, "Y"), ast.At(ast.Captured("sq", sq), ast.Get(p, "X"))),
		)
	})).Solve(context.Background())
	if err != nil || !ok || got != (Point{X: 3, Y: 9}) {
		t.Errorf("Solve() = %+v, %v, %v", got, ok, err)
	}
}

func TestCapturedIndexOutOfRange(t *testing.T) {
	c := []int{5, 6}
	th := New[Point](newTestContext()).Where(fn(func(p *ast.Param) ast.Node {
		return ast.Eq(ast.At(ast.Captured("c", c), ast.Get(p, "X")), ast.Lit(6))
	}))
	got, ok, err := th.Solve(context.Background())
	if err != nil || !ok || got.X != 1 {
		t.Errorf("Solve() = %+v, %v, %v", got, ok, err)
	}
	_, ok, err = th.Where(fn(func(p *ast.Param) ast.Node {
		return ast.Eq(ast.Get(p, "X"), ast.Lit(7))
	})).Solve(context.Background())
	if err != nil || ok {
		t.Errorf("Solve() with an index past the end = %v, %v", ok, err)
	}
	_, ok, err = th.OrderByDescending(fn(func(p *ast.Param) ast.Node {
		return ast.At(ast.Captured("c", c), ast.Get(p, "Y"))
	})).Solve(context.Background())
	if err != nil || !ok {
		t.Errorf("OrderByDescending() = %v, %v", ok, err)
	}
}

type Clash struct {
	A_B int
	A   struct{ B int }
}

type Tagged struct {
	X    int
	Skip map[string]int `theorem:"-"`
	_    struct{}
}

func TestDescribe(t *testing.T) {
	tests := []struct {
		name string
		typ  reflect.Type
		want string
	}{
		{"named", reflect.TypeFor[Point](), "Point"},
		{"anonymous", reflect.TypeFor[struct{ A int }](), "env"},
		{"generic", reflect.TypeFor[Symbols2[int, bool]](), "Symbols2_int_bool"},
		{"generic qualified", reflect.TypeFor[Symbols2[time.Duration, Point]](), "Symbols2_Duration_Point"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := typeName(tt.typ); got != tt.want {
				t.Errorf("typeName(%s) = %q, want %q", tt.typ, got, tt.want)
			}
		})
	}

	tc := newTestContext()
	f, err := tc.describe(reflect.TypeFor[Tagged]())
	if err != nil {
		t.Fatal(err)
	}
	if len(f.children) != 1 || f.children[0].name != "X" {
		t.Errorf("Tagged children = %v", f.children)
	}
	again, _ := tc.describe(reflect.TypeFor[Tagged]())
	if again != f {
		t.Error("describe did not cache the descriptor")
	}
}

func TestUniqueNames(t *testing.T) {
	tc := newTestContext()
	f, err := tc.describe(reflect.TypeFor[Clash]())
	if err != nil {
		t.Fatal(err)
	}
	s, err := sat.New().NewSolver(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	env, _, err := bind(s, f, reflect.ValueOf(Clash{}))
	if err != nil {
		t.Fatal(err)
	}
	got := []string{env.Child("A_B").Name(), env.Child("A").Child("B").Name()}
	if diff := cmp.Diff([]string{"Clash_A_B", "Clash_A_B_2"}, got); diff != "" {
		t.Errorf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestBindErrors(t *testing.T) {
	type withMap struct{ M map[string]int }
	type withStructs struct{ Ps []Point }
	type withNested struct{ Grid [][]int }
	type withFunc struct{ F func() }
	type hidden struct{ b int }
	type withHidden struct{ H hidden }
	type withUnexported struct{ p Point }
	tests := []struct {
		name string
		typ  reflect.Type
		path string
	}{
		{"map", reflect.TypeFor[withMap](), "theorem.withMap.M"},
		{"struct elements", reflect.TypeFor[withStructs](), "theorem.withStructs.Ps"},
		{"nested sequence", reflect.TypeFor[withNested](), "theorem.withNested.Grid"},
		{"func", reflect.TypeFor[withFunc](), "theorem.withFunc.F"},
		{"nested unexported field", reflect.TypeFor[withHidden](), "theorem.withHidden.H"},
		{"unexported struct field", reflect.TypeFor[withUnexported](), "theorem.withUnexported.p"},
		{"not a struct", reflect.TypeFor[int](), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &countingBackend{Backend: sat.New()}
			_, _, err := NewProblem(NewContext(b), tt.typ).Solve(context.Background())
			var berr *BindError
			if !errors.As(err, &berr) || !errors.Is(err, ErrUnsupported) {
				t.Fatalf("Solve() error = %v, want a BindError", err)
			}
			if berr.FieldPath != tt.path {
				t.Errorf("FieldPath = %q, want %q", berr.FieldPath, tt.path)
			}
			if b.opened != b.closed {
				t.Errorf("sessions opened %d closed %d", b.opened, b.closed)
			}
		})
	}
}

func TestPrototype(t *testing.T) {
	tc := newTestContext()
	pred := fn(func(p *ast.Param) ast.Node {
		return ast.Eq(ast.At(ast.Get(p, "Cells"), ast.Lit(1)), ast.Lit(7))
	})
	got, ok, err := New[Row](tc, WithPrototype(&Row{Cells: make([]int, 2)})).Where(pred).Solve(context.Background())
	if err != nil || !ok {
		t.Fatalf("Solve() = %v, %v", ok, err)
	}
	if len(got.Cells) != 2 || got.Cells[1] != 7 {
		t.Errorf("Solve() = %+v", got)
	}
	if _, _, err := New[Row](tc, WithPrototype(Point{})).Solve(context.Background()); err == nil {
		t.Error("Solve() with a mistyped prototype succeeded")
	}
	got, ok, err = New[Row](tc).Solve(context.Background())
	if err != nil || !ok || got.Cells != nil {
		t.Errorf("Solve() without prototype = %+v, %v, %v", got, ok, err)
	}
}
