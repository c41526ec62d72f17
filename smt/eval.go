package smt

import (
	"errors"
	"fmt"
	"math/big"
)

// ErrEval is wrapped by errors from Eval.
var ErrEval = errors.New("cannot evaluate")

// Assignment supplies variable interpretations to Eval.
type Assignment interface {
	// Value returns the value of the scalar variable v.
	Value(v *Expr) (Value, bool)
	// Element returns the element of the array variable at index.
	Element(array *Expr, index Value) (Value, bool)
}

// Eval evaluates e under a. Variables and array elements a does not
// interpret evaluate to the zero value of their sort. Division and modulus
// by zero evaluate to zero.
func Eval(e *Expr, a Assignment) (Value, error) {
	switch e.op {
	case OpVar:
		if e.sort.IsArray() {
			return Value{}, fmt.Errorf("%w: array %s is not a value", ErrEval, e.name)
		}
		if v, ok := a.Value(e); ok {
			return v, nil
		}
		return Zero(e.sort.Kind), nil
	case OpConst:
		return e.val, nil
	case OpSelect:
		arr := e.args[0]
		if !arr.IsVar() {
			return Value{}, fmt.Errorf("%w: select from %s", ErrEval, arr)
		}
		idx, err := Eval(e.args[1], a)
		if err != nil {
			return Value{}, err
		}
		if v, ok := a.Element(arr, idx); ok {
			return v, nil
		}
		return Zero(arr.sort.Elem), nil
	case OpIte:
		c, err := Eval(e.args[0], a)
		if err != nil {
			return Value{}, err
		}
		if c.Bool() {
			return Eval(e.args[1], a)
		}
		return Eval(e.args[2], a)
	case OpAnd, OpOr:
		// short circuit
		want := e.op == OpOr
		for _, arg := range e.args {
			v, err := Eval(arg, a)
			if err != nil {
				return Value{}, err
			}
			if v.Bool() == want {
				return BoolValue(want), nil
			}
		}
		return BoolValue(!want), nil
	}

	args := make([]Value, len(e.args))
	for i, arg := range e.args {
		v, err := Eval(arg, a)
		if err != nil {
			return Value{}, err
		}
		args[i] = v
	}
	return apply(e, args)
}

func apply(e *Expr, args []Value) (Value, error) {
	switch e.op {
	case OpNot:
		return BoolValue(!args[0].Bool()), nil
	case OpXor:
		return BoolValue(args[0].Bool() != args[1].Bool()), nil
	case OpImplies:
		return BoolValue(!args[0].Bool() || args[1].Bool()), nil
	case OpEq:
		return BoolValue(args[0].Equal(args[1])), nil
	case OpDistinct:
		for i := range args {
			for j := i + 1; j < len(args); j++ {
				if args[i].Equal(args[j]) {
					return BoolValue(false), nil
				}
			}
		}
		return BoolValue(true), nil
	case OpLt:
		return BoolValue(args[0].Cmp(args[1]) < 0), nil
	case OpLe:
		return BoolValue(args[0].Cmp(args[1]) <= 0), nil
	case OpGt:
		return BoolValue(args[0].Cmp(args[1]) > 0), nil
	case OpGe:
		return BoolValue(args[0].Cmp(args[1]) >= 0), nil
	case OpToReal:
		return RealValue(args[0].Rat()), nil
	case OpToInt:
		return IntValue(args[0].Int()), nil
	case OpNeg:
		if e.sort == Int {
			return IntValue(new(big.Int).Neg(args[0].i)), nil
		}
		return RealValue(new(big.Rat).Neg(args[0].r)), nil
	case OpIntDiv, OpMod:
		if args[1].i.Sign() == 0 {
			return Int64Value(0), nil
		}
		q, m := new(big.Int).DivMod(args[0].i, args[1].i, new(big.Int))
		if e.op == OpMod {
			return IntValue(m), nil
		}
		return IntValue(q), nil
	case OpPow:
		return pow(e.sort, args[0], args[1])
	case OpAdd, OpSub, OpMul, OpDiv:
		if e.sort == Int {
			return intArith(e.op, args), nil
		}
		return realArith(e.op, args), nil
	}
	return Value{}, fmt.Errorf("%w: %s", ErrEval, e.op)
}

func intArith(op Op, args []Value) Value {
	acc := new(big.Int).Set(args[0].i)
	for _, v := range args[1:] {
		switch op {
		case OpAdd:
			acc.Add(acc, v.i)
		case OpSub:
			acc.Sub(acc, v.i)
		case OpMul:
			acc.Mul(acc, v.i)
		}
	}
	return Value{kind: KindInt, i: acc}
}

func realArith(op Op, args []Value) Value {
	acc := args[0].Rat()
	for _, v := range args[1:] {
		r := v.Rat()
		switch op {
		case OpAdd:
			acc.Add(acc, r)
		case OpSub:
			acc.Sub(acc, r)
		case OpMul:
			acc.Mul(acc, r)
		case OpDiv:
			if r.Sign() == 0 {
				return RealValue(new(big.Rat))
			}
			acc.Quo(acc, r)
		}
	}
	return Value{kind: KindReal, r: acc}
}

// pow supports integer exponents only; a negative exponent on an Int base
// is an error.
func pow(s Sort, base, exp Value) (Value, error) {
	er := exp.Rat()
	if !er.IsInt() {
		return Value{}, fmt.Errorf("%w: non-integral exponent %s", ErrEval, exp)
	}
	n := er.Num()
	if !n.IsInt64() {
		return Value{}, fmt.Errorf("%w: exponent %s too large", ErrEval, exp)
	}
	k := n.Int64()
	if s == Int {
		if k < 0 {
			return Value{}, fmt.Errorf("%w: negative exponent %d", ErrEval, k)
		}
		return IntValue(new(big.Int).Exp(base.i, big.NewInt(k), nil)), nil
	}
	b := base.Rat()
	if k < 0 {
		if b.Sign() == 0 {
			return RealValue(new(big.Rat)), nil
		}
		b.Inv(b)
		k = -k
	}
	num := new(big.Int).Exp(b.Num(), big.NewInt(k), nil)
	den := new(big.Int).Exp(b.Denom(), big.NewInt(k), nil)
	return RealValue(new(big.Rat).SetFrac(num, den)), nil
}
