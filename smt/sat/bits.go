package sat

import (
	"fmt"
	"math/big"

	"github.com/go-air/gini/z"
	"github.com/signadot/go-theorem/smt"
)

// Int terms are two's-complement vectors of p.width bits. Every arithmetic
// gate adds a guard excluding overflow, so that within range the encoding
// agrees with unbounded integer arithmetic.

func (p *problem) constBits(v *big.Int) []z.Lit {
	u := new(big.Int).Set(v)
	if u.Sign() < 0 {
		u.Add(u, new(big.Int).Lsh(big.NewInt(1), uint(p.width)))
	}
	bits := make([]z.Lit, p.width)
	for i := range bits {
		if u.Bit(i) == 1 {
			bits[i] = p.c.T
		} else {
			bits[i] = p.c.F
		}
	}
	return bits
}

func (p *problem) zero() []z.Lit {
	return p.constBits(new(big.Int))
}

// decode reads the value of bits given the truth of each literal.
func decode(bits []z.Lit, value func(z.Lit) bool) *big.Int {
	res := new(big.Int)
	for i := len(bits) - 1; i >= 0; i-- {
		res.Lsh(res, 1)
		if value(bits[i]) {
			res.SetBit(res, 0, 1)
		}
	}
	if value(bits[len(bits)-1]) {
		res.Sub(res, new(big.Int).Lsh(big.NewInt(1), uint(len(bits))))
	}
	return res
}

func msb(bits []z.Lit) z.Lit {
	return bits[len(bits)-1]
}

func (p *problem) fullAdd(a, b, cin z.Lit) (sum, cout z.Lit) {
	c := p.c
	axb := c.Xor(a, b)
	sum = c.Xor(axb, cin)
	cout = c.Or(c.And(a, b), c.And(cin, axb))
	return sum, cout
}

// addBits adds modulo 2^len(a).
func (p *problem) addBits(a, b []z.Lit, cin z.Lit) []z.Lit {
	res := make([]z.Lit, len(a))
	carry := cin
	for i := range a {
		res[i], carry = p.fullAdd(a[i], b[i], carry)
	}
	return res
}

func not(bits []z.Lit) []z.Lit {
	res := make([]z.Lit, len(bits))
	for i, b := range bits {
		res[i] = b.Not()
	}
	return res
}

func (p *problem) add(a, b []z.Lit) []z.Lit {
	c := p.c
	s := p.addBits(a, b, c.F)
	sameSign := c.Xor(msb(a), msb(b)).Not()
	p.guards = append(p.guards, c.And(sameSign, c.Xor(msb(a), msb(s))).Not())
	return s
}

func (p *problem) sub(a, b []z.Lit) []z.Lit {
	c := p.c
	s := p.addBits(a, not(b), c.T)
	diffSign := c.Xor(msb(a), msb(b))
	p.guards = append(p.guards, c.And(diffSign, c.Xor(msb(a), msb(s))).Not())
	return s
}

func (p *problem) neg(a []z.Lit) []z.Lit {
	return p.sub(p.zero(), a)
}

func signExtend(bits []z.Lit, n int) []z.Lit {
	res := make([]z.Lit, n)
	copy(res, bits)
	for i := len(bits); i < n; i++ {
		res[i] = msb(bits)
	}
	return res
}

// mul multiplies in double width and requires the high half to be the sign
// extension of the low half.
func (p *problem) mul(a, b []z.Lit) []z.Lit {
	c := p.c
	w := len(a)
	ax, bx := signExtend(a, 2*w), signExtend(b, 2*w)
	acc := make([]z.Lit, 2*w)
	for i := range acc {
		acc[i] = c.F
	}
	for i := range bx {
		if bx[i] == c.F {
			continue
		}
		partial := make([]z.Lit, 2*w)
		for j := range partial {
			if j < i {
				partial[j] = c.F
				continue
			}
			partial[j] = c.And(ax[j-i], bx[i])
		}
		acc = p.addBits(acc, partial, c.F)
	}
	for j := w; j < 2*w; j++ {
		p.guards = append(p.guards, c.Xor(acc[j], acc[w-1]).Not())
	}
	return acc[:w]
}

// divMod introduces a quotient and remainder with 0 <= r < |b| and
// a = b*q + r whenever b is not zero.
func (p *problem) divMod(a, b []z.Lit) (q, r []z.Lit) {
	c := p.c
	q = p.fresh(smt.KindInt).bits
	r = p.fresh(smt.KindInt).bits
	nonZero := p.eqBits(b, p.zero()).Not()
	sum := p.add(p.mul(b, q), r)
	rNonNeg := msb(r).Not()
	// for b < 0, r < -b iff r + b < 0, which cannot overflow
	rLtAbs := c.Choice(msb(b), msb(p.addBits(r, b, c.F)), p.slt(r, b))
	def := c.Ands(p.eqBits(a, sum), rNonNeg, rLtAbs)
	p.guards = append(p.guards, c.Implies(nonZero, def))
	return q, r
}

func (p *problem) eqBits(a, b []z.Lit) z.Lit {
	c := p.c
	lits := make([]z.Lit, len(a))
	for i := range a {
		lits[i] = c.Xor(a[i], b[i]).Not()
	}
	return c.Ands(lits...)
}

func (p *problem) ult(a, b []z.Lit) z.Lit {
	c := p.c
	lt := c.F
	for i := range a {
		same := c.Xor(a[i], b[i]).Not()
		lt = c.Or(c.And(a[i].Not(), b[i]), c.And(same, lt))
	}
	return lt
}

// slt is signed less-than: unsigned comparison with the sign bits flipped.
func (p *problem) slt(a, b []z.Lit) z.Lit {
	af := append([]z.Lit(nil), a...)
	bf := append([]z.Lit(nil), b...)
	af[len(af)-1] = msb(a).Not()
	bf[len(bf)-1] = msb(b).Not()
	return p.ult(af, bf)
}

func (p *problem) sle(a, b []z.Lit) z.Lit {
	return p.slt(b, a).Not()
}

func (p *problem) intOp(e *smt.Expr, args []*term) (*term, error) {
	a := args[0].bits
	bits := func(b []z.Lit) *term {
		return &term{sort: smt.Int, bits: b}
	}
	switch e.Op() {
	case smt.OpNeg:
		return bits(p.neg(a)), nil
	case smt.OpAdd, smt.OpSub, smt.OpMul:
		acc := a
		for _, t := range args[1:] {
			switch e.Op() {
			case smt.OpAdd:
				acc = p.add(acc, t.bits)
			case smt.OpSub:
				acc = p.sub(acc, t.bits)
			default:
				acc = p.mul(acc, t.bits)
			}
		}
		return bits(acc), nil
	case smt.OpIntDiv, smt.OpMod:
		q, r := p.divMod(a, args[1].bits)
		if e.Op() == smt.OpMod {
			return bits(r), nil
		}
		return bits(q), nil
	case smt.OpPow:
		k, err := constExponent(e.Args()[1])
		if err != nil {
			return nil, err
		}
		acc := p.constBits(big.NewInt(1))
		for range k {
			acc = p.mul(acc, a)
		}
		return bits(acc), nil
	}
	b := args[1].bits
	switch e.Op() {
	case smt.OpLt:
		return p.boolTerm(p.slt(a, b)), nil
	case smt.OpLe:
		return p.boolTerm(p.sle(a, b)), nil
	case smt.OpGt:
		return p.boolTerm(p.slt(b, a)), nil
	case smt.OpGe:
		return p.boolTerm(p.sle(b, a)), nil
	}
	return nil, fmt.Errorf("%w: %s over Int", ErrUnsupported, e.Op())
}

// maxExponent bounds the unrolling of constant powers.
const maxExponent = 64

func constExponent(e *smt.Expr) (int64, error) {
	if !e.IsConst() {
		return 0, fmt.Errorf("%w: non-constant exponent %s", ErrUnsupported, e)
	}
	r := e.Value().Rat()
	if !r.IsInt() || r.Sign() < 0 || r.Num().Cmp(big.NewInt(maxExponent)) > 0 {
		return 0, fmt.Errorf("%w: exponent %s", ErrUnsupported, e)
	}
	return r.Num().Int64(), nil
}
