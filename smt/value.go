package smt

import (
	"fmt"
	"math/big"
	"strings"
)

// Value is a literal of a scalar sort: a constant in an expression graph or
// the interpretation of an expression in a model. The zero Value is invalid.
type Value struct {
	kind Kind
	b    bool
	i    *big.Int
	r    *big.Rat
	s    string
}

func BoolValue(b bool) Value {
	return Value{kind: KindBool, b: b}
}

func Int64Value(i int64) Value {
	return Value{kind: KindInt, i: big.NewInt(i)}
}

func IntValue(i *big.Int) Value {
	return Value{kind: KindInt, i: new(big.Int).Set(i)}
}

func RealValue(r *big.Rat) Value {
	return Value{kind: KindReal, r: new(big.Rat).Set(r)}
}

func StringValue(s string) Value {
	return Value{kind: KindString, s: s}
}

// ParseReal parses an exact decimal or fraction ("3.25", "-1/3").
func ParseReal(text string) (Value, error) {
	r, ok := new(big.Rat).SetString(text)
	if !ok {
		return Value{}, fmt.Errorf("invalid real literal %q", text)
	}
	return Value{kind: KindReal, r: r}, nil
}

// Zero returns the default value of the scalar kind k.
func Zero(k Kind) Value {
	switch k {
	case KindBool:
		return BoolValue(false)
	case KindInt:
		return Int64Value(0)
	case KindReal:
		return RealValue(new(big.Rat))
	case KindString:
		return StringValue("")
	}
	return Value{}
}

func (v Value) Kind() Kind {
	return v.kind
}

func (v Value) IsValid() bool {
	return v.kind != KindInvalid
}

func (v Value) Bool() bool {
	return v.b
}

// Int returns a copy of an Int value. Real values are truncated toward
// negative infinity.
func (v Value) Int() *big.Int {
	switch v.kind {
	case KindInt:
		return new(big.Int).Set(v.i)
	case KindReal:
		return floor(v.r)
	}
	return new(big.Int)
}

// Rat returns a copy of a numeric value as a rational.
func (v Value) Rat() *big.Rat {
	switch v.kind {
	case KindInt:
		return new(big.Rat).SetInt(v.i)
	case KindReal:
		return new(big.Rat).Set(v.r)
	}
	return new(big.Rat)
}

func (v Value) Str() string {
	return v.s
}

// Cmp compares two numeric or two string values.
func (v Value) Cmp(w Value) int {
	if v.kind == KindString && w.kind == KindString {
		return strings.Compare(v.s, w.s)
	}
	if v.kind == KindInt && w.kind == KindInt {
		return v.i.Cmp(w.i)
	}
	return v.Rat().Cmp(w.Rat())
}

// Equal reports whether v and w denote the same value. Int and Real values
// compare numerically.
func (v Value) Equal(w Value) bool {
	switch {
	case v.kind == KindBool || w.kind == KindBool:
		return v.kind == w.kind && v.b == w.b
	case v.kind == KindString || w.kind == KindString:
		return v.kind == w.kind && v.s == w.s
	case v.kind.Numeric() && w.kind.Numeric():
		return v.Cmp(w) == 0
	}
	return v.kind == w.kind
}

// DecimalString renders a numeric value in plain decimal notation. Values
// without a terminating expansion are rounded to prec fractional digits.
func (v Value) DecimalString(prec int) string {
	switch v.kind {
	case KindInt:
		return v.i.String()
	case KindReal:
		if digits, ok := terminatingDigits(v.r); ok {
			return trimZeros(v.r.FloatString(digits))
		}
		return trimZeros(v.r.FloatString(prec))
	}
	return v.String()
}

// String renders v as an SMT-LIB2 literal.
func (v Value) String() string {
	switch v.kind {
	case KindBool:
		if v.b {
			return "true"
		}
		return "false"
	case KindInt:
		if v.i.Sign() < 0 {
			return "(- " + new(big.Int).Neg(v.i).String() + ")"
		}
		return v.i.String()
	case KindReal:
		return realLiteral(v.r)
	case KindString:
		return quoteString(v.s)
	}
	return "<invalid>"
}

func realLiteral(r *big.Rat) string {
	if r.Sign() < 0 {
		return "(- " + realLiteral(new(big.Rat).Neg(r)) + ")"
	}
	if digits, ok := terminatingDigits(r); ok {
		return r.FloatString(max(digits, 1))
	}
	return "(/ " + r.Num().String() + ".0 " + r.Denom().String() + ".0)"
}

// terminatingDigits reports the number of fractional digits of r's decimal
// expansion, if it terminates.
func terminatingDigits(r *big.Rat) (int, bool) {
	d := new(big.Int).Set(r.Denom())
	two, five := big.NewInt(2), big.NewInt(5)
	twos, fives := 0, 0
	m := new(big.Int)
	for {
		q, rem := new(big.Int).QuoRem(d, two, m)
		if rem.Sign() != 0 {
			break
		}
		d = q
		twos++
	}
	for {
		q, rem := new(big.Int).QuoRem(d, five, m)
		if rem.Sign() != 0 {
			break
		}
		d = q
		fives++
	}
	if d.Cmp(big.NewInt(1)) != 0 {
		return 0, false
	}
	return max(twos, fives), true
}

func trimZeros(s string) string {
	if !strings.Contains(s, ".") {
		return s
	}
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

func floor(r *big.Rat) *big.Int {
	q, _ := new(big.Int).DivMod(r.Num(), r.Denom(), new(big.Int))
	return q
}

func quoteString(s string) string {
	buf := &strings.Builder{}
	buf.WriteByte('"')
	for _, c := range s {
		switch {
		case c == '"':
			buf.WriteString(`""`)
		case c == '\\' || c < 0x20 || c > 0x7e:
			fmt.Fprintf(buf, `\u{%x}`, c)
		default:
			buf.WriteRune(c)
		}
	}
	buf.WriteByte('"')
	return buf.String()
}
