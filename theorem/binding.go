package theorem

import (
	"fmt"
	"math/big"
	"reflect"
	"strconv"

	"github.com/signadot/go-theorem/smt"
)

// Binding is the solver side of one environment field within a session: a
// scalar variable for a leaf, an array variable for a sequence, or named
// children for a composite.
type Binding struct {
	field    *field
	name     string
	expr     *smt.Expr
	length   int
	children []*Binding
	byName   map[string]*Binding
}

// Name returns the solver variable name of a leaf or sequence, and the name
// prefix of a composite.
func (b *Binding) Name() string {
	return b.name
}

// Expr returns the variable of a leaf or sequence, or nil for a composite.
func (b *Binding) Expr() *smt.Expr {
	return b.expr
}

// Path returns the Go field path, rooted at the environment type.
func (b *Binding) Path() string {
	return b.field.path
}

func (b *Binding) Child(name string) *Binding {
	return b.byName[name]
}

func (b *Binding) Children() []*Binding {
	return b.children
}

// Len returns the element count of a sequence taken from the prototype.
func (b *Binding) Len() int {
	return b.length
}

type binder struct {
	s      smt.Solver
	used   map[string]int
	bounds []*smt.Expr
}

// bind declares one solver variable per leaf and sequence of root. proto
// supplies the sequence lengths.
func bind(s smt.Solver, root *field, proto reflect.Value) (*Binding, []*smt.Expr, error) {
	b := &binder{s: s, used: map[string]int{}}
	res, err := b.bind(root, root.name, proto)
	if err != nil {
		return nil, nil, err
	}
	return res, b.bounds, nil
}

func (b *binder) bind(f *field, name string, v reflect.Value) (*Binding, error) {
	res := &Binding{field: f, name: name}
	switch f.kind {
	case compositeField:
		res.byName = make(map[string]*Binding, len(f.children))
		for _, cf := range f.children {
			c, err := b.bind(cf, name+"_"+cf.name, v.Field(cf.index))
			if err != nil {
				return nil, err
			}
			res.children = append(res.children, c)
			res.byName[cf.name] = c
		}
		return res, nil
	case leafField:
		res.name = b.unique(name)
		x, err := b.s.Declare(res.name, smt.Scalar(f.domain))
		if err != nil {
			return nil, &BindError{FieldPath: f.path, Message: err.Error()}
		}
		res.expr = x
		if err := b.bound(f, f.typ, x); err != nil {
			return nil, err
		}
		return res, nil
	}
	res.name = b.unique(name)
	x, err := b.s.Declare(res.name, smt.ArrayOf(smt.KindInt, f.domain))
	if err != nil {
		return nil, &BindError{FieldPath: f.path, Message: err.Error()}
	}
	res.expr = x
	res.length = v.Len()
	for i := range res.length {
		sel, err := smt.Apply(smt.OpSelect, x, smt.IntLit(int64(i)))
		if err != nil {
			return nil, &BindError{FieldPath: f.path, Message: err.Error()}
		}
		if err := b.bound(f, f.elem, sel); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// unique suffixes name when another variable of the session already uses it.
func (b *binder) unique(name string) string {
	n := b.used[name]
	b.used[name] = n + 1
	if n == 0 {
		return name
	}
	res := name + "_" + strconv.Itoa(n+1)
	for b.used[res] > 0 {
		n++
		res = name + "_" + strconv.Itoa(n+1)
	}
	b.used[res] = 1
	return res
}

// bound constrains x to the range of the integer type t.
func (b *binder) bound(f *field, t reflect.Type, x *smt.Expr) error {
	if f.mapping != nil || f.domain != smt.KindInt {
		return nil
	}
	lo, hi := intRange(t)
	for _, c := range []struct {
		op  smt.Op
		lim *big.Int
	}{{smt.OpGe, lo}, {smt.OpLe, hi}} {
		if c.lim == nil {
			continue
		}
		e, err := smt.Apply(c.op, x, smt.BigIntLit(c.lim))
		if err != nil {
			return &BindError{FieldPath: f.path, Message: fmt.Sprintf("bounding %s: %v", x, err)}
		}
		b.bounds = append(b.bounds, e)
	}
	return nil
}

// intRange returns the bounds of an integer type narrower than 64 bits and
// the lower bound of unsigned types. A nil bound is unconstrained.
func intRange(t reflect.Type) (lo, hi *big.Int) {
	if t == timeType || t == durationType || t == bigIntType {
		return nil, nil
	}
	switch t.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if t.Bits() >= 64 {
			return nil, nil
		}
		m := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits()-1))
		return new(big.Int).Neg(m), m.Sub(m, big.NewInt(1))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		lo = new(big.Int)
		if t.Bits() >= 64 {
			return lo, nil
		}
		m := new(big.Int).Lsh(big.NewInt(1), uint(t.Bits()))
		return lo, m.Sub(m, big.NewInt(1))
	}
	return nil, nil
}
