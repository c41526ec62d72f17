package sat

import (
	"fmt"
	"math/big"
	"sort"

	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
	"github.com/signadot/go-theorem/smt"
)

// term is the encoding of an expression: a literal for Bool, a
// two's-complement bit vector (least significant bit first) for Int, and
// a one-hot choice over candidate values for Real and String.
type term struct {
	sort smt.Sort
	b    z.Lit
	bits []z.Lit
	ch   []entry
}

type entry struct {
	v smt.Value
	l z.Lit
}

type array struct {
	name   string
	elem   smt.Kind
	consts map[string]*cell
	cells  []*cell
}

type cell struct {
	key string // index literal text when the index is constant
	idx *term
	val *term
}

// problem is one encoding of a session's assertions and objective.
type problem struct {
	c       *logic.C
	width   int
	obj     *objective
	objBits []z.Lit
	reals   []smt.Value
	strs    []smt.Value
	vars    map[string]*term
	arrays  map[string]*array
	memo    map[*smt.Expr]*term

	goals   []z.Lit
	guards  []z.Lit
	mutexes [][]z.Lit

	// bounded is set when the encoding restricts Int, Real or String
	// variables to a finite range, so that unsat is not conclusive.
	bounded bool
}

func newProblem(s *session) (*problem, error) {
	p := &problem{
		c:      logic.NewC(),
		obj:    s.obj,
		vars:   map[string]*term{},
		arrays: map[string]*array{},
		memo:   map[*smt.Expr]*term{},
	}
	roots := append([]*smt.Expr(nil), s.asserts...)
	if s.obj != nil {
		roots = append(roots, s.obj.e)
	}
	p.candidates(roots, s.width)
	for _, a := range s.asserts {
		t, err := p.encode(a)
		if err != nil {
			return nil, err
		}
		p.goals = append(p.goals, t.b)
	}
	if s.obj != nil {
		t, err := p.encode(s.obj.e)
		if err != nil {
			return nil, err
		}
		p.objBits = t.bits
	}
	p.ackermann()
	return p, nil
}

// candidates computes the finite domains of Real and String terms and the
// bit width of Int terms from the literals occurring in roots.
func (p *problem) candidates(roots []*smt.Expr, minWidth int) {
	var nums []*big.Rat
	strs := map[string]bool{"": true}
	nReal, nStr := 0, 0
	seen := map[*smt.Expr]bool{}
	var visit func(e *smt.Expr)
	visit = func(e *smt.Expr) {
		if seen[e] {
			return
		}
		seen[e] = true
		switch e.Op() {
		case smt.OpConst:
			switch e.Sort() {
			case smt.Int, smt.Real:
				nums = append(nums, e.Value().Rat())
			case smt.String:
				strs[e.Value().Str()] = true
			}
		case smt.OpVar:
			switch {
			case e.Sort() == smt.Real:
				nReal++
			case e.Sort() == smt.String:
				nStr++
			}
		case smt.OpSelect:
			switch e.Sort() {
			case smt.Real:
				nReal++
			case smt.String:
				nStr++
			}
		}
		for _, a := range e.Args() {
			visit(a)
		}
	}
	for _, r := range roots {
		visit(r)
	}

	p.reals = realCandidates(nums, nReal)
	p.strs = stringCandidates(strs, nStr)

	p.width = minWidth
	for _, n := range nums {
		p.fit(n)
	}
	for _, v := range p.reals {
		p.fit(v.Rat())
	}
}

// fit widens p.width so that the floor of r and its successor are
// representable with a spare bit.
func (p *problem) fit(r *big.Rat) {
	f := new(big.Int).Abs(smt.RealValue(r).Int())
	if need := f.BitLen() + 2; need > p.width {
		p.width = need
	}
}

func realCandidates(lits []*big.Rat, extra int) []smt.Value {
	set := map[string]*big.Rat{}
	add := func(r *big.Rat) {
		set[r.RatString()] = r
	}
	add(new(big.Rat))
	for _, r := range lits {
		add(r)
	}
	base := sortedRats(set)
	one := big.NewRat(1, 1)
	for i, r := range base {
		add(new(big.Rat).Add(r, one))
		add(new(big.Rat).Sub(r, one))
		add(new(big.Rat).SetInt(smt.RealValue(r).Int()))
		if i+1 < len(base) {
			mid := new(big.Rat).Add(r, base[i+1])
			add(mid.Quo(mid, big.NewRat(2, 1)))
		}
	}
	all := sortedRats(set)
	lo, hi := all[0], all[len(all)-1]
	for i := 1; i <= extra; i++ {
		k := big.NewRat(int64(i), 1)
		add(new(big.Rat).Add(hi, k))
		add(new(big.Rat).Sub(lo, k))
	}
	res := []smt.Value{}
	for _, r := range sortedRats(set) {
		res = append(res, smt.RealValue(r))
	}
	return res
}

func sortedRats(set map[string]*big.Rat) []*big.Rat {
	res := make([]*big.Rat, 0, len(set))
	for _, r := range set {
		res = append(res, r)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Cmp(res[j]) < 0
	})
	return res
}

func stringCandidates(lits map[string]bool, extra int) []smt.Value {
	for i := 0; extra > 0; i++ {
		s := fmt.Sprintf("s%d", i)
		if lits[s] {
			continue
		}
		lits[s] = true
		extra--
	}
	strs := make([]string, 0, len(lits))
	for s := range lits {
		strs = append(strs, s)
	}
	sort.Strings(strs)
	res := make([]smt.Value, len(strs))
	for i, s := range strs {
		res[i] = smt.StringValue(s)
	}
	return res
}

// fresh returns an unconstrained term of kind k.
func (p *problem) fresh(k smt.Kind) *term {
	c := p.c
	switch k {
	case smt.KindBool:
		return &term{sort: smt.Bool, b: c.Lit()}
	case smt.KindInt:
		p.bounded = true
		bits := make([]z.Lit, p.width)
		for i := range bits {
			bits[i] = c.Lit()
		}
		return &term{sort: smt.Int, bits: bits}
	}
	p.bounded = true
	cands := p.reals
	if k == smt.KindString {
		cands = p.strs
	}
	ch := make([]entry, len(cands))
	lits := make([]z.Lit, len(cands))
	for i, v := range cands {
		lits[i] = c.Lit()
		ch[i] = entry{v: v, l: lits[i]}
	}
	p.guards = append(p.guards, c.Ors(lits...))
	p.mutexes = append(p.mutexes, lits)
	return &term{sort: smt.Scalar(k), ch: ch}
}

func (p *problem) constant(v smt.Value) *term {
	switch v.Kind() {
	case smt.KindBool:
		if v.Bool() {
			return &term{sort: smt.Bool, b: p.c.T}
		}
		return &term{sort: smt.Bool, b: p.c.F}
	case smt.KindInt:
		return &term{sort: smt.Int, bits: p.constBits(v.Int())}
	}
	return &term{sort: smt.Scalar(v.Kind()), ch: []entry{{v: v, l: p.c.T}}}
}

func (p *problem) variable(e *smt.Expr) *term {
	if t, ok := p.vars[e.Name()]; ok {
		return t
	}
	t := p.fresh(e.Sort().Kind)
	p.vars[e.Name()] = t
	return t
}

func (p *problem) encode(e *smt.Expr) (*term, error) {
	if t, ok := p.memo[e]; ok {
		return t, nil
	}
	t, err := p.encodeTerm(e)
	if err != nil {
		return nil, err
	}
	p.memo[e] = t
	return t, nil
}

func (p *problem) encodeTerm(e *smt.Expr) (*term, error) {
	switch e.Op() {
	case smt.OpVar:
		if e.Sort().IsArray() {
			return nil, fmt.Errorf("%w: array %s used as a value", ErrUnsupported, e.Name())
		}
		return p.variable(e), nil
	case smt.OpConst:
		return p.constant(e.Value()), nil
	case smt.OpSelect:
		return p.selectCell(e)
	}

	args := make([]*term, len(e.Args()))
	for i, a := range e.Args() {
		t, err := p.encode(a)
		if err != nil {
			return nil, err
		}
		args[i] = t
	}
	c := p.c
	switch e.Op() {
	case smt.OpNot:
		return p.boolTerm(args[0].b.Not()), nil
	case smt.OpAnd, smt.OpOr:
		lits := make([]z.Lit, len(args))
		for i, a := range args {
			lits[i] = a.b
		}
		if e.Op() == smt.OpAnd {
			return p.boolTerm(c.Ands(lits...)), nil
		}
		return p.boolTerm(c.Ors(lits...)), nil
	case smt.OpXor:
		return p.boolTerm(c.Xor(args[0].b, args[1].b)), nil
	case smt.OpImplies:
		return p.boolTerm(c.Implies(args[0].b, args[1].b)), nil
	case smt.OpIte:
		return p.ite(args[0].b, args[1], args[2]), nil
	case smt.OpEq:
		l, err := p.eq(args[0], args[1])
		if err != nil {
			return nil, err
		}
		return p.boolTerm(l), nil
	case smt.OpDistinct:
		var lits []z.Lit
		for i := range args {
			for j := i + 1; j < len(args); j++ {
				l, err := p.eq(args[i], args[j])
				if err != nil {
					return nil, err
				}
				lits = append(lits, l.Not())
			}
		}
		return p.boolTerm(c.Ands(lits...)), nil
	case smt.OpToReal:
		return p.toReal(args[0]), nil
	case smt.OpToInt:
		return p.toInt(args[0]), nil
	}
	if e.Sort() == smt.Int || args[0].sort == smt.Int {
		return p.intOp(e, args)
	}
	return p.realOp(e, args)
}

func (p *problem) boolTerm(l z.Lit) *term {
	return &term{sort: smt.Bool, b: l}
}

func (p *problem) eq(a, b *term) (z.Lit, error) {
	switch {
	case a.sort == smt.Bool:
		return p.c.Xor(a.b, b.b).Not(), nil
	case a.bits != nil:
		return p.eqBits(a.bits, b.bits), nil
	case a.ch != nil:
		return p.relate(a.ch, b.ch, func(x, y smt.Value) bool { return x.Equal(y) }), nil
	}
	return p.c.F, fmt.Errorf("%w: equality of sort %s", ErrUnsupported, a.sort)
}

func (p *problem) ite(cond z.Lit, a, b *term) *term {
	c := p.c
	switch {
	case a.sort == smt.Bool:
		return p.boolTerm(c.Choice(cond, a.b, b.b))
	case a.bits != nil:
		bits := make([]z.Lit, p.width)
		for i := range bits {
			bits[i] = c.Choice(cond, a.bits[i], b.bits[i])
		}
		return &term{sort: a.sort, bits: bits}
	}
	var ch []entry
	for _, x := range a.ch {
		ch = appendEntry(c, ch, x.v, c.And(cond, x.l))
	}
	for _, x := range b.ch {
		ch = appendEntry(c, ch, x.v, c.And(cond.Not(), x.l))
	}
	return &term{sort: a.sort, ch: ch}
}

func (p *problem) selectCell(e *smt.Expr) (*term, error) {
	arrExpr, idxExpr := e.Args()[0], e.Args()[1]
	if !arrExpr.IsVar() {
		return nil, fmt.Errorf("%w: select from %s", ErrUnsupported, arrExpr)
	}
	arr := p.arrays[arrExpr.Name()]
	if arr == nil {
		arr = &array{name: arrExpr.Name(), elem: arrExpr.Sort().Elem, consts: map[string]*cell{}}
		p.arrays[arr.name] = arr
	}
	idx, err := p.encode(idxExpr)
	if err != nil {
		return nil, err
	}
	if idxExpr.IsConst() {
		key := idxExpr.Value().String()
		if cl, ok := arr.consts[key]; ok {
			return cl.val, nil
		}
		cl := &cell{key: key, idx: idx, val: p.fresh(arr.elem)}
		arr.consts[key] = cl
		arr.cells = append(arr.cells, cl)
		return cl.val, nil
	}
	cl := &cell{idx: idx, val: p.fresh(arr.elem)}
	arr.cells = append(arr.cells, cl)
	return cl.val, nil
}

// ackermann constrains cells of the same array at equal indices to hold
// equal values.
func (p *problem) ackermann() {
	names := make([]string, 0, len(p.arrays))
	for name := range p.arrays {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		cells := p.arrays[name].cells
		for i, a := range cells {
			for _, b := range cells[i+1:] {
				if a.key != "" && b.key != "" {
					continue
				}
				same := p.eqBits(a.idx.bits, b.idx.bits)
				eq, _ := p.eq(a.val, b.val)
				p.guards = append(p.guards, p.c.Implies(same, eq))
			}
		}
	}
}
