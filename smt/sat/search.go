package sat

import (
	"context"
	"math/big"
	"sort"

	"github.com/go-air/gini"
	"github.com/go-air/gini/z"
	"github.com/signadot/go-theorem/debug"
	"github.com/signadot/go-theorem/smt"
)

// solve converts the circuit to CNF in a fresh gini instance and solves it
// under the given assumptions. The returned solver holds the model when the
// result is 1.
func (p *problem) solve(assume ...z.Lit) (int, *gini.Gini) {
	c := p.c
	g := gini.New()
	// the anchor is the highest variable, so every circuit literal has a
	// value in g.
	anchor := c.Lit()
	c.ToCnf(g)
	unit := func(l z.Lit) {
		g.Add(l)
		g.Add(0)
	}
	unit(anchor)
	unit(c.T)
	for _, l := range p.goals {
		unit(l)
	}
	for _, l := range p.guards {
		unit(l)
	}
	p.addMutexClauses(g)
	if len(assume) > 0 {
		g.Assume(assume...)
	}
	return g.Solve(), g
}

// addMutexClauses adds pairwise exclusion clauses for every choice.
func (p *problem) addMutexClauses(g *gini.Gini) {
	for _, lits := range p.mutexes {
		for i := 0; i < len(lits); i++ {
			for j := i + 1; j < len(lits); j++ {
				g.Add(lits[i].Not())
				g.Add(lits[j].Not())
				g.Add(0)
			}
		}
	}
}

func (p *problem) search(ctx context.Context) (smt.Status, *smt.Assign, error) {
	if debug.SAT() {
		debug.Logf("sat: %d goals %d guards width %d reals %d strings %d\n",
			len(p.goals), len(p.guards), p.width, len(p.reals), len(p.strs))
	}
	res, g := p.solve()
	switch res {
	case 1:
	case -1:
		if p.bounded {
			return smt.Unknown, nil, nil
		}
		return smt.Unsat, nil, nil
	default:
		return smt.Unknown, nil, nil
	}
	model := p.extract(g)
	if p.obj == nil {
		return smt.Sat, model, nil
	}
	best := decode(p.objBits, g.Value)
	lo, hi := p.minInt(), p.maxInt()
	if p.obj.maximize {
		lo = new(big.Int).Add(best, big.NewInt(1))
	} else {
		hi = new(big.Int).Sub(best, big.NewInt(1))
	}
	rounds := 0
	for lo.Cmp(hi) <= 0 {
		if err := ctx.Err(); err != nil {
			return smt.Unknown, nil, err
		}
		rounds++
		mid := new(big.Int).Add(lo, hi)
		mid.Rsh(mid, 1)
		var bound z.Lit
		if p.obj.maximize {
			bound = p.sle(p.constBits(mid), p.objBits)
		} else {
			bound = p.sle(p.objBits, p.constBits(mid))
		}
		res, g := p.solve(bound)
		if res != 1 {
			if p.obj.maximize {
				hi = new(big.Int).Sub(mid, big.NewInt(1))
			} else {
				lo = new(big.Int).Add(mid, big.NewInt(1))
			}
			continue
		}
		model = p.extract(g)
		best = decode(p.objBits, g.Value)
		if p.obj.maximize {
			lo = new(big.Int).Add(best, big.NewInt(1))
		} else {
			hi = new(big.Int).Sub(best, big.NewInt(1))
		}
	}
	if debug.SAT() {
		debug.Logf("sat: objective %s after %d rounds\n", best, rounds)
	}
	return smt.Sat, model, nil
}

func (p *problem) minInt() *big.Int {
	return new(big.Int).Neg(new(big.Int).Lsh(big.NewInt(1), uint(p.width-1)))
}

func (p *problem) maxInt() *big.Int {
	m := new(big.Int).Lsh(big.NewInt(1), uint(p.width-1))
	return m.Sub(m, big.NewInt(1))
}

func (p *problem) value(g *gini.Gini, t *term) smt.Value {
	switch {
	case t.sort == smt.Bool:
		return smt.BoolValue(g.Value(t.b))
	case t.bits != nil:
		return smt.IntValue(decode(t.bits, g.Value))
	}
	for _, x := range t.ch {
		if g.Value(x.l) {
			return x.v
		}
	}
	return smt.Zero(t.sort.Kind)
}

func (p *problem) extract(g *gini.Gini) *smt.Assign {
	a := smt.NewAssign()
	for name, t := range p.vars {
		a.Set(name, p.value(g, t))
	}
	names := make([]string, 0, len(p.arrays))
	for name := range p.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, cl := range p.arrays[name].cells {
			a.SetElement(name, p.value(g, cl.idx), p.value(g, cl.val))
		}
	}
	return a
}
