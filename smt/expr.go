package smt

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrSort is wrapped by errors reporting ill-sorted applications.
var ErrSort = errors.New("sort mismatch")

// Op identifies the function at the head of an expression.
type Op uint8

const (
	OpVar Op = iota
	OpConst
	OpNot
	OpAnd
	OpOr
	OpXor
	OpImplies
	OpIte
	OpAdd
	OpSub
	OpMul
	OpDiv // real division; integer operands are lowered to OpIntDiv
	OpIntDiv
	OpMod
	OpNeg
	OpPow
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpDistinct
	OpSelect
	OpToReal
	OpToInt
)

var opNames = [...]string{
	OpVar:      "var",
	OpConst:    "const",
	OpNot:      "not",
	OpAnd:      "and",
	OpOr:       "or",
	OpXor:      "xor",
	OpImplies:  "=>",
	OpIte:      "ite",
	OpAdd:      "+",
	OpSub:      "-",
	OpMul:      "*",
	OpDiv:      "/",
	OpIntDiv:   "div",
	OpMod:      "mod",
	OpNeg:      "-",
	OpPow:      "^",
	OpLt:       "<",
	OpLe:       "<=",
	OpGt:       ">",
	OpGe:       ">=",
	OpEq:       "=",
	OpDistinct: "distinct",
	OpSelect:   "select",
	OpToReal:   "to_real",
	OpToInt:    "to_int",
}

// String returns the SMT-LIB2 symbol of op.
func (op Op) String() string {
	if int(op) < len(opNames) {
		return opNames[op]
	}
	return fmt.Sprintf("op(%d)", op)
}

// Expr is a node of a solver-neutral expression graph. Exprs are immutable
// and may be shared between graphs.
type Expr struct {
	op   Op
	sort Sort
	name string
	val  Value
	args []*Expr
}

func (e *Expr) Op() Op {
	return e.op
}

func (e *Expr) Sort() Sort {
	return e.sort
}

// Name is the symbol of a variable.
func (e *Expr) Name() string {
	return e.name
}

// Value is the literal of a constant.
func (e *Expr) Value() Value {
	return e.val
}

// Args returns the operands. The slice must not be modified.
func (e *Expr) Args() []*Expr {
	return e.args
}

func (e *Expr) IsVar() bool {
	return e.op == OpVar
}

func (e *Expr) IsConst() bool {
	return e.op == OpConst
}

// Var returns a variable reference. Backends create variables through
// Solver.Declare; Var is exported for backends and tests.
func Var(name string, s Sort) *Expr {
	return &Expr{op: OpVar, sort: s, name: name}
}

// Lit returns a constant expression for v.
func Lit(v Value) *Expr {
	return &Expr{op: OpConst, sort: Scalar(v.Kind()), val: v}
}

func True() *Expr  { return Lit(BoolValue(true)) }
func False() *Expr { return Lit(BoolValue(false)) }

func BoolLit(b bool) *Expr        { return Lit(BoolValue(b)) }
func IntLit(i int64) *Expr        { return Lit(Int64Value(i)) }
func BigIntLit(i *big.Int) *Expr  { return Lit(IntValue(i)) }
func RealLit(r *big.Rat) *Expr    { return Lit(RealValue(r)) }
func StringLit(s string) *Expr    { return Lit(StringValue(s)) }

// Apply builds op(args...), checking operand sorts. Int operands mixed with
// Real operands are widened with to_real; OpDiv over Int operands becomes
// OpIntDiv.
func Apply(op Op, args ...*Expr) (*Expr, error) {
	for i, a := range args {
		if a == nil {
			return nil, fmt.Errorf("%w: %s operand %d is nil", ErrSort, op, i)
		}
	}
	switch op {
	case OpNot:
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		if err := allKind(op, args, KindBool); err != nil {
			return nil, err
		}
		return mk(op, Bool, args), nil

	case OpAnd, OpOr:
		if len(args) == 0 {
			return BoolLit(op == OpAnd), nil
		}
		if err := allKind(op, args, KindBool); err != nil {
			return nil, err
		}
		if len(args) == 1 {
			return args[0], nil
		}
		return mk(op, Bool, args), nil

	case OpXor, OpImplies:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		if err := allKind(op, args, KindBool); err != nil {
			return nil, err
		}
		return mk(op, Bool, args), nil

	case OpIte:
		if err := arity(op, args, 3, 3); err != nil {
			return nil, err
		}
		if args[0].sort != Bool {
			return nil, fmt.Errorf("%w: ite condition is %s", ErrSort, args[0].sort)
		}
		branches, err := unify(op, args[1:])
		if err != nil {
			return nil, err
		}
		return mk(op, branches[0].sort, []*Expr{args[0], branches[0], branches[1]}), nil

	case OpAdd, OpSub, OpMul:
		if err := arity(op, args, 2, -1); err != nil {
			return nil, err
		}
		args, err := numeric(op, args)
		if err != nil {
			return nil, err
		}
		return mk(op, args[0].sort, args), nil

	case OpDiv, OpPow:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		args, err := numeric(op, args)
		if err != nil {
			return nil, err
		}
		if op == OpDiv && args[0].sort == Int {
			op = OpIntDiv
		}
		return mk(op, args[0].sort, args), nil

	case OpIntDiv, OpMod:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		if err := allKind(op, args, KindInt); err != nil {
			return nil, err
		}
		return mk(op, Int, args), nil

	case OpNeg:
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		if !args[0].sort.Kind.Numeric() {
			return nil, fmt.Errorf("%w: %s of %s", ErrSort, op, args[0].sort)
		}
		return mk(op, args[0].sort, args), nil

	case OpLt, OpLe, OpGt, OpGe:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		args, err := numeric(op, args)
		if err != nil {
			return nil, err
		}
		return mk(op, Bool, args), nil

	case OpEq:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		args, err := unify(op, args)
		if err != nil {
			return nil, err
		}
		return mk(op, Bool, args), nil

	case OpDistinct:
		if len(args) < 2 {
			return True(), nil
		}
		args, err := unify(op, args)
		if err != nil {
			return nil, err
		}
		return mk(op, Bool, args), nil

	case OpSelect:
		if err := arity(op, args, 2, 2); err != nil {
			return nil, err
		}
		arr, idx := args[0], args[1]
		if !arr.sort.IsArray() {
			return nil, fmt.Errorf("%w: select from %s", ErrSort, arr.sort)
		}
		if idx.sort.Kind != arr.sort.Index {
			if arr.sort.Index == KindInt && idx.sort == Real {
				idx = mk(OpToInt, Int, []*Expr{idx})
			} else {
				return nil, fmt.Errorf("%w: index %s into %s", ErrSort, idx.sort, arr.sort)
			}
		}
		return mk(op, arr.sort.ElemSort(), []*Expr{arr, idx}), nil

	case OpToReal:
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		if err := allKind(op, args, KindInt); err != nil {
			return nil, err
		}
		return mk(op, Real, args), nil

	case OpToInt:
		if err := arity(op, args, 1, 1); err != nil {
			return nil, err
		}
		if err := allKind(op, args, KindReal); err != nil {
			return nil, err
		}
		return mk(op, Int, args), nil
	}
	return nil, fmt.Errorf("%w: cannot apply %s", ErrSort, op)
}

func mk(op Op, s Sort, args []*Expr) *Expr {
	return &Expr{op: op, sort: s, args: append([]*Expr(nil), args...)}
}

func arity(op Op, args []*Expr, lo, hi int) error {
	if len(args) < lo || (hi >= 0 && len(args) > hi) {
		return fmt.Errorf("%w: %s applied to %d operands", ErrSort, op, len(args))
	}
	return nil
}

func allKind(op Op, args []*Expr, k Kind) error {
	for _, a := range args {
		if a.sort.Kind != k || a.sort.IsArray() && k != KindArray {
			return fmt.Errorf("%w: %s expects %s operands, got %s", ErrSort, op, k, a.sort)
		}
	}
	return nil
}

// numeric checks that args are Int or Real and widens Int operands when any
// operand is Real.
func numeric(op Op, args []*Expr) ([]*Expr, error) {
	hasReal := false
	for _, a := range args {
		if !a.sort.Kind.Numeric() || a.sort.IsArray() {
			return nil, fmt.Errorf("%w: %s expects numeric operands, got %s", ErrSort, op, a.sort)
		}
		if a.sort == Real {
			hasReal = true
		}
	}
	if !hasReal {
		return args, nil
	}
	res := make([]*Expr, len(args))
	for i, a := range args {
		res[i] = widen(a)
	}
	return res, nil
}

// unify requires args to share a sort, widening mixed Int/Real operands.
func unify(op Op, args []*Expr) ([]*Expr, error) {
	s := args[0].sort
	same := true
	for _, a := range args[1:] {
		if a.sort != s {
			same = false
		}
	}
	if same {
		return args, nil
	}
	for _, a := range args {
		if !a.sort.Kind.Numeric() || a.sort.IsArray() {
			return nil, fmt.Errorf("%w: %s operands of sorts %s and %s", ErrSort, op, s, a.sort)
		}
	}
	return numeric(op, args)
}

func widen(a *Expr) *Expr {
	if a.sort != Int {
		return a
	}
	if a.op == OpConst {
		return RealLit(a.val.Rat())
	}
	return mk(OpToReal, Real, []*Expr{a})
}
