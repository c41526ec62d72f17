package smt

import (
	"errors"
	"math/big"
	"testing"
)

func TestValueString(t *testing.T) {
	tests := []struct {
		name string
		v    Value
		want string
	}{
		{"true", BoolValue(true), "true"},
		{"zero", Int64Value(0), "0"},
		{"negative int", Int64Value(-5), "(- 5)"},
		{"decimal", RealValue(big.NewRat(13, 4)), "3.25"},
		{"integral real", RealValue(big.NewRat(5, 1)), "5.0"},
		{"negative real", RealValue(big.NewRat(-1, 2)), "(- 0.5)"},
		{"third", RealValue(big.NewRat(1, 3)), "(/ 1.0 3.0)"},
		{"string", StringValue(`a"b`), `"a""b"`},
		{"escaped string", StringValue("é"), `"\u{e9}"`},
		{"invalid", Value{}, "<invalid>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.v.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecimalString(t *testing.T) {
	tests := []struct {
		v    Value
		want string
	}{
		{RealValue(big.NewRat(1, 3)), "0.33333"},
		{RealValue(big.NewRat(5, 2)), "2.5"},
		{RealValue(big.NewRat(3, 1)), "3"},
		{RealValue(big.NewRat(-1, 8)), "-0.125"},
		{Int64Value(-12), "-12"},
	}
	for _, tt := range tests {
		if got := tt.v.DecimalString(5); got != tt.want {
			t.Errorf("DecimalString(%v) = %q, want %q", tt.v, got, tt.want)
		}
	}
}

func TestParseRealExact(t *testing.T) {
	v, err := ParseReal("0.12345678901234567891")
	if err != nil {
		t.Fatalf("ParseReal() error = %v", err)
	}
	if got := v.DecimalString(40); got != "0.12345678901234567891" {
		t.Errorf("DecimalString() = %q", got)
	}
	if _, err := ParseReal("x"); err == nil {
		t.Error("ParseReal(x) succeeded")
	}
}

func TestValueEqual(t *testing.T) {
	if !Int64Value(2).Equal(RealValue(big.NewRat(2, 1))) {
		t.Error("2 != 2.0")
	}
	if Int64Value(1).Equal(BoolValue(true)) {
		t.Error("1 == true")
	}
	if !StringValue("a").Equal(StringValue("a")) {
		t.Error(`"a" != "a"`)
	}
}

func TestApply(t *testing.T) {
	x := Var("x", Int)
	y := Var("y", Real)
	p := Var("p", Bool)
	a := Var("a", ArrayOf(KindInt, KindInt))

	tests := []struct {
		name     string
		op       Op
		args     []*Expr
		want     string
		wantSort Sort
	}{
		{"int add", OpAdd, []*Expr{x, IntLit(1)}, "(+ x 1)", Int},
		{"widen var", OpAdd, []*Expr{x, RealLit(big.NewRat(1, 2))}, "(+ (to_real x) 0.5)", Real},
		{"widen const", OpMul, []*Expr{IntLit(2), y}, "(* 2.0 y)", Real},
		{"int div", OpDiv, []*Expr{x, IntLit(2)}, "(div x 2)", Int},
		{"real div", OpDiv, []*Expr{y, IntLit(2)}, "(/ y 2.0)", Real},
		{"mod", OpMod, []*Expr{x, IntLit(3)}, "(mod x 3)", Int},
		{"neg", OpNeg, []*Expr{IntLit(3)}, "(- 3)", Int},
		{"compare", OpLt, []*Expr{x, y}, "(< (to_real x) y)", Bool},
		{"eq", OpEq, []*Expr{p, BoolLit(true)}, "(= p true)", Bool},
		{"empty and", OpAnd, nil, "true", Bool},
		{"empty or", OpOr, nil, "false", Bool},
		{"single and", OpAnd, []*Expr{p}, "p", Bool},
		{"distinct", OpDistinct, []*Expr{x, IntLit(1), IntLit(2)}, "(distinct x 1 2)", Bool},
		{"trivial distinct", OpDistinct, []*Expr{x}, "true", Bool},
		{"select", OpSelect, []*Expr{a, IntLit(3)}, "(select a 3)", Int},
		{"ite", OpIte, []*Expr{p, x, y}, "(ite p (to_real x) y)", Real},
		{"to_int", OpToInt, []*Expr{y}, "(to_int y)", Int},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e, err := Apply(tt.op, tt.args...)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if got := e.String(); got != tt.want {
				t.Errorf("Apply() = %s, want %s", got, tt.want)
			}
			if e.Sort() != tt.wantSort {
				t.Errorf("Sort() = %s, want %s", e.Sort(), tt.wantSort)
			}
		})
	}
}

func TestApplySortErrors(t *testing.T) {
	x := Var("x", Int)
	p := Var("p", Bool)
	s := Var("s", String)
	a := Var("a", ArrayOf(KindInt, KindBool))

	tests := []struct {
		name string
		op   Op
		args []*Expr
	}{
		{"and of int", OpAnd, []*Expr{p, x}},
		{"add bool", OpAdd, []*Expr{p, x}},
		{"eq mixed", OpEq, []*Expr{p, x}},
		{"lt strings", OpLt, []*Expr{s, s}},
		{"mod real", OpMod, []*Expr{x, RealLit(big.NewRat(1, 2))}},
		{"select scalar", OpSelect, []*Expr{x, IntLit(0)}},
		{"select by bool", OpSelect, []*Expr{a, p}},
		{"not arity", OpNot, []*Expr{p, p}},
		{"nil operand", OpAdd, []*Expr{x, nil}},
		{"array arithmetic", OpAdd, []*Expr{a, x}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(tt.op, tt.args...)
			if !errors.Is(err, ErrSort) {
				t.Errorf("Apply() error = %v, want ErrSort", err)
			}
		})
	}
}

func TestSymbol(t *testing.T) {
	tests := map[string]string{
		"Point_X":   "Point_X",
		"Point X":   "|Point X|",
		"1a":        "|1a|",
		"a|b":       "|a_b|",
		"x.y-z?":    "x.y-z?",
		"":          "||",
	}
	for in, want := range tests {
		if got := Symbol(in); got != want {
			t.Errorf("Symbol(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestDeclaration(t *testing.T) {
	if got := Declaration(Var("Row_Cells", ArrayOf(KindInt, KindInt))); got != "(declare-const Row_Cells (Array Int Int))" {
		t.Errorf("Declaration() = %s", got)
	}
	if got := Declaration(Var("Env_B", Bool)); got != "(declare-const Env_B Bool)" {
		t.Errorf("Declaration() = %s", got)
	}
}

func mustApply(t *testing.T, op Op, args ...*Expr) *Expr {
	t.Helper()
	e, err := Apply(op, args...)
	if err != nil {
		t.Fatalf("Apply(%s) error = %v", op, err)
	}
	return e
}

func TestEval(t *testing.T) {
	x := Var("x", Int)
	y := Var("y", Int)
	r := Var("r", Real)
	p := Var("p", Bool)
	arr := Var("arr", ArrayOf(KindInt, KindInt))

	a := NewAssign()
	a.Set("x", Int64Value(7))
	a.Set("y", Int64Value(-2))
	a.Set("r", RealValue(big.NewRat(-5, 2)))
	a.SetElement("arr", Int64Value(3), Int64Value(9))

	tests := []struct {
		name string
		e    *Expr
		want Value
	}{
		{"div negative divisor", mustApply(t, OpIntDiv, x, y), Int64Value(-3)},
		{"mod negative divisor", mustApply(t, OpMod, x, y), Int64Value(1)},
		{"div negative dividend", mustApply(t, OpIntDiv, IntLit(-7), IntLit(2)), Int64Value(-4)},
		{"mod negative dividend", mustApply(t, OpMod, IntLit(-7), IntLit(2)), Int64Value(1)},
		{"div by zero", mustApply(t, OpIntDiv, x, IntLit(0)), Int64Value(0)},
		{"to_int floors", mustApply(t, OpToInt, r), Int64Value(-3)},
		{"int pow", mustApply(t, OpPow, IntLit(2), IntLit(10)), Int64Value(1024)},
		{"real pow", mustApply(t, OpPow, RealLit(big.NewRat(1, 2)), IntLit(2)), RealValue(big.NewRat(1, 4))},
		{"real inverse", mustApply(t, OpPow, RealLit(big.NewRat(2, 1)), IntLit(-1)), RealValue(big.NewRat(1, 2))},
		{"mixed sum", mustApply(t, OpAdd, x, r), RealValue(big.NewRat(9, 2))},
		{"select set", mustApply(t, OpSelect, arr, IntLit(3)), Int64Value(9)},
		{"select unset", mustApply(t, OpSelect, arr, IntLit(4)), Int64Value(0)},
		{"unset var", p, BoolValue(false)},
		{"distinct", mustApply(t, OpDistinct, x, y, IntLit(7)), BoolValue(false)},
		{"short circuit", mustApply(t, OpOr, BoolLit(true), mustApply(t, OpEq, mustApply(t, OpPow, x, y), IntLit(1))), BoolValue(true)},
		{"ite", mustApply(t, OpIte, mustApply(t, OpGt, x, y), x, y), Int64Value(7)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.Eval(tt.e)
			if err != nil {
				t.Fatalf("Eval(%s) error = %v", tt.e, err)
			}
			if got.Kind() != tt.want.Kind() || !got.Equal(tt.want) {
				t.Errorf("Eval(%s) = %s, want %s", tt.e, got, tt.want)
			}
		})
	}

	if _, err := a.Eval(mustApply(t, OpPow, x, y)); !errors.Is(err, ErrEval) {
		t.Errorf("negative int exponent: error = %v, want ErrEval", err)
	}
}
