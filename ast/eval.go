package ast

import (
	"errors"
	"fmt"
	"math"
	"reflect"
)

// ErrNotConstant is returned by Eval for trees that depend on a parameter or
// contain constructs that have no Go value.
var ErrNotConstant = errors.New("expression is not constant")

// Eval evaluates a parameter-free tree to a Go value. Member and Index are
// resolved with reflection against the evaluated operand: struct fields
// (exported only), map keys, and slice, array or string elements. Pointers
// and interfaces are followed.
func Eval(n Node) (any, error) {
	switch x := n.(type) {
	case *Const:
		return x.Value, nil
	case *Capture:
		return x.Value, nil
	case *Member:
		v, err := Eval(x.X)
		if err != nil {
			return nil, err
		}
		return field(v, x.Name)
	case *Index:
		v, err := Eval(x.X)
		if err != nil {
			return nil, err
		}
		k, err := Eval(x.Key)
		if err != nil {
			return nil, err
		}
		return index(v, k)
	case *Convert:
		v, err := Eval(x.X)
		if err != nil {
			return nil, err
		}
		return convert(v, x.Type)
	case *Unary:
		v, err := Eval(x.X)
		if err != nil {
			return nil, err
		}
		return evalUnary(x.Op, v)
	case *Binary:
		l, err := Eval(x.Left)
		if err != nil {
			return nil, err
		}
		r, err := Eval(x.Right)
		if err != nil {
			return nil, err
		}
		return evalBinary(x.Op, l, r)
	}
	return nil, fmt.Errorf("%w: %s", ErrNotConstant, n)
}

// convert converts v to t when the result represents v exactly. Numbers
// only convert to numbers, and truncation or overflow is an error.
func convert(v any, t reflect.Type) (any, error) {
	rv := reflect.ValueOf(v)
	if !rv.IsValid() || t == nil || !rv.Type().ConvertibleTo(t) {
		return nil, fmt.Errorf("%w: cannot convert %v to %v", ErrNotConstant, v, t)
	}
	from, to := numberKind(rv.Kind()), numberKind(t.Kind())
	if from != to && (from == 0 || to == 0) {
		return nil, fmt.Errorf("%w: cannot convert %v to %v", ErrNotConstant, v, t)
	}
	res := rv.Convert(t)
	if from != 0 && res.Convert(rv.Type()).Interface() != rv.Interface() {
		return nil, fmt.Errorf("%w: %v does not fit %v", ErrNotConstant, v, t)
	}
	return res.Interface(), nil
}

// numberKind classifies k as 'i'nteger, 'f'loat or 0 for non-numbers.
func numberKind(k reflect.Kind) byte {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return 'i'
	case reflect.Float32, reflect.Float64:
		return 'f'
	}
	return 0
}

func indirect(v any) reflect.Value {
	rv := reflect.ValueOf(v)
	for rv.IsValid() && (rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface) {
		if rv.IsNil() {
			return reflect.Value{}
		}
		rv = rv.Elem()
	}
	return rv
}

func field(v any, name string) (any, error) {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Struct:
		sf, ok := rv.Type().FieldByName(name)
		if !ok || !sf.IsExported() {
			return nil, fmt.Errorf("%w: %s has no accessible field %s", ErrNotConstant, rv.Type(), name)
		}
		return rv.FieldByIndex(sf.Index).Interface(), nil
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		mv := rv.MapIndex(reflect.ValueOf(name).Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: no key %q", ErrNotConstant, name)
		}
		return mv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: cannot select %s from %T", ErrNotConstant, name, v)
}

func index(v, k any) (any, error) {
	rv := indirect(v)
	switch rv.Kind() {
	case reflect.Slice, reflect.Array, reflect.String:
		i, ok := toInt64(k)
		if !ok || i < 0 || i >= int64(rv.Len()) {
			return nil, fmt.Errorf("%w: index %v out of range", ErrNotConstant, k)
		}
		return rv.Index(int(i)).Interface(), nil
	case reflect.Map:
		kv := reflect.ValueOf(k)
		if !kv.IsValid() || !kv.Type().ConvertibleTo(rv.Type().Key()) {
			break
		}
		mv := rv.MapIndex(kv.Convert(rv.Type().Key()))
		if !mv.IsValid() {
			return nil, fmt.Errorf("%w: no key %v", ErrNotConstant, k)
		}
		return mv.Interface(), nil
	}
	return nil, fmt.Errorf("%w: cannot index %T", ErrNotConstant, v)
}

func toInt64(v any) (int64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int(), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		u := rv.Uint()
		if u > math.MaxInt64 {
			return 0, false
		}
		return int64(u), true
	}
	return 0, false
}

func toFloat64(v any) (float64, bool) {
	if i, ok := toInt64(v); ok {
		return float64(i), true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func evalUnary(op UnaryOp, v any) (any, error) {
	switch op {
	case OpNot:
		if b, ok := v.(bool); ok {
			return !b, nil
		}
	case OpNeg:
		if i, ok := toInt64(v); ok {
			return -i, nil
		}
		if f, ok := toFloat64(v); ok {
			return -f, nil
		}
	}
	return nil, fmt.Errorf("%w: %s%v", ErrNotConstant, op, v)
}

func evalBinary(op BinaryOp, l, r any) (any, error) {
	if lb, ok := l.(bool); ok {
		if rb, ok := r.(bool); ok {
			switch op {
			case OpAnd:
				return lb && rb, nil
			case OpOr:
				return lb || rb, nil
			case OpXor, OpNe:
				return lb != rb, nil
			case OpEq:
				return lb == rb, nil
			}
		}
	}
	if ls, ok := l.(string); ok {
		if rs, ok := r.(string); ok {
			switch op {
			case OpAdd:
				return ls + rs, nil
			case OpEq:
				return ls == rs, nil
			case OpNe:
				return ls != rs, nil
			case OpLt:
				return ls < rs, nil
			case OpLe:
				return ls <= rs, nil
			case OpGt:
				return ls > rs, nil
			case OpGe:
				return ls >= rs, nil
			}
		}
	}
	li, lok := toInt64(l)
	ri, rok := toInt64(r)
	if lok && rok {
		switch op {
		case OpAdd:
			return li + ri, nil
		case OpSub:
			return li - ri, nil
		case OpMul:
			return li * ri, nil
		case OpDiv:
			if ri != 0 {
				return li / ri, nil
			}
		case OpMod:
			if ri != 0 {
				return li % ri, nil
			}
		case OpPow:
			if ri >= 0 {
				res := int64(1)
				for range ri {
					res *= li
				}
				return res, nil
			}
		default:
			if res, ok := compareInts(op, li, ri); ok {
				return res, nil
			}
		}
		return nil, fmt.Errorf("%w: %v %s %v", ErrNotConstant, l, op, r)
	}
	lf, lok := toFloat64(l)
	rf, rok := toFloat64(r)
	if lok && rok {
		switch op {
		case OpAdd:
			return lf + rf, nil
		case OpSub:
			return lf - rf, nil
		case OpMul:
			return lf * rf, nil
		case OpDiv:
			return lf / rf, nil
		case OpPow:
			return math.Pow(lf, rf), nil
		}
		if res, ok := compare(op, lf-rf); ok {
			return res, nil
		}
	}
	return nil, fmt.Errorf("%w: %v %s %v", ErrNotConstant, l, op, r)
}

func compareInts(op BinaryOp, l, r int64) (bool, bool) {
	switch op {
	case OpLt:
		return l < r, true
	case OpLe:
		return l <= r, true
	case OpGt:
		return l > r, true
	case OpGe:
		return l >= r, true
	case OpEq:
		return l == r, true
	case OpNe:
		return l != r, true
	}
	return false, false
}

func compare(op BinaryOp, d float64) (bool, bool) {
	switch op {
	case OpLt:
		return d < 0, true
	case OpLe:
		return d <= 0, true
	case OpGt:
		return d > 0, true
	case OpGe:
		return d >= 0, true
	case OpEq:
		return d == 0, true
	case OpNe:
		return d != 0, true
	}
	return false, false
}
