package sat

import (
	"fmt"
	"math/big"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/signadot/go-theorem/smt"
)

// Real and String terms are one-hot choices: exactly one entry literal
// holds and the term denotes that entry's value. Operations on choices
// combine entries pairwise, so results stay exact but grow with the product
// of the operand sizes.

// maxEntries bounds the size of a derived choice.
const maxEntries = 1 << 14

// appendEntry adds (v, l) to ch, merging with an existing entry for v.
func appendEntry(c *logic.C, ch []entry, v smt.Value, l z.Lit) []entry {
	if l == c.F {
		return ch
	}
	for i := range ch {
		if ch[i].v.Equal(v) && ch[i].v.Kind() == v.Kind() {
			ch[i].l = c.Or(ch[i].l, l)
			return ch
		}
	}
	return append(ch, entry{v: v, l: l})
}

func (p *problem) combine(x, y []entry, f func(a, b smt.Value) smt.Value) ([]entry, error) {
	c := p.c
	var res []entry
	for _, a := range x {
		for _, b := range y {
			res = appendEntry(c, res, f(a.v, b.v), c.And(a.l, b.l))
			if len(res) > maxEntries {
				return nil, fmt.Errorf("%w: real term has too many candidate values", ErrUnsupported)
			}
		}
	}
	return res, nil
}

// relate is the disjunction of the entry pairs satisfying rel.
func (p *problem) relate(x, y []entry, rel func(a, b smt.Value) bool) z.Lit {
	c := p.c
	var lits []z.Lit
	for _, a := range x {
		for _, b := range y {
			if rel(a.v, b.v) {
				lits = append(lits, c.And(a.l, b.l))
			}
		}
	}
	return c.Ors(lits...)
}

func ratOp(op smt.Op) func(a, b smt.Value) smt.Value {
	return func(a, b smt.Value) smt.Value {
		x, y := a.Rat(), b.Rat()
		switch op {
		case smt.OpAdd:
			x.Add(x, y)
		case smt.OpSub:
			x.Sub(x, y)
		case smt.OpMul:
			x.Mul(x, y)
		case smt.OpDiv:
			if y.Sign() == 0 {
				return smt.RealValue(new(big.Rat))
			}
			x.Quo(x, y)
		}
		return smt.RealValue(x)
	}
}

func (p *problem) realOp(e *smt.Expr, args []*term) (*term, error) {
	choice := func(ch []entry, err error) (*term, error) {
		if err != nil {
			return nil, err
		}
		return &term{sort: e.Sort(), ch: ch}, nil
	}
	a := args[0].ch
	switch e.Op() {
	case smt.OpNeg:
		var ch []entry
		for _, x := range a {
			ch = appendEntry(p.c, ch, smt.RealValue(new(big.Rat).Neg(x.v.Rat())), x.l)
		}
		return choice(ch, nil)
	case smt.OpAdd, smt.OpSub, smt.OpMul, smt.OpDiv:
		acc := a
		for _, t := range args[1:] {
			var err error
			acc, err = p.combine(acc, t.ch, ratOp(e.Op()))
			if err != nil {
				return nil, err
			}
		}
		return choice(acc, nil)
	case smt.OpPow:
		k, err := constExponent(e.Args()[1])
		if err != nil {
			return nil, err
		}
		acc := []entry{{v: smt.RealValue(big.NewRat(1, 1)), l: p.c.T}}
		for range k {
			acc, err = p.combine(acc, a, ratOp(smt.OpMul))
			if err != nil {
				return nil, err
			}
		}
		return choice(acc, nil)
	}
	b := args[1].ch
	var rel func(a, b smt.Value) bool
	switch e.Op() {
	case smt.OpLt:
		rel = func(a, b smt.Value) bool { return a.Cmp(b) < 0 }
	case smt.OpLe:
		rel = func(a, b smt.Value) bool { return a.Cmp(b) <= 0 }
	case smt.OpGt:
		rel = func(a, b smt.Value) bool { return a.Cmp(b) > 0 }
	case smt.OpGe:
		rel = func(a, b smt.Value) bool { return a.Cmp(b) >= 0 }
	default:
		return nil, fmt.Errorf("%w: %s over %s", ErrUnsupported, e.Op(), args[0].sort)
	}
	return p.boolTerm(p.relate(a, b, rel)), nil
}

// toReal restricts an Int term to the integral Real candidates.
func (p *problem) toReal(t *term) *term {
	c := p.c
	var ch []entry
	var lits []z.Lit
	for _, v := range p.reals {
		r := v.Rat()
		if !r.IsInt() {
			continue
		}
		l := p.eqBits(t.bits, p.constBits(r.Num()))
		ch = append(ch, entry{v: v, l: l})
		lits = append(lits, l)
	}
	p.bounded = true
	p.guards = append(p.guards, c.Ors(lits...))
	return &term{sort: smt.Real, ch: ch}
}

// toInt takes the floor of each entry. Entries whose floor does not fit
// the bit width are excluded.
func (p *problem) toInt(t *term) *term {
	c := p.c
	limit := new(big.Int).Lsh(big.NewInt(1), uint(p.width-1))
	ones := make([][]z.Lit, p.width)
	for _, x := range t.ch {
		f := x.v.Int()
		if f.CmpAbs(limit) >= 0 {
			p.guards = append(p.guards, x.l.Not())
			continue
		}
		bits := p.constBits(f)
		for i, b := range bits {
			if b == c.T {
				ones[i] = append(ones[i], x.l)
			}
		}
	}
	bits := make([]z.Lit, p.width)
	for i := range bits {
		bits[i] = c.Ors(ones[i]...)
	}
	return &term{sort: smt.Int, bits: bits}
}
