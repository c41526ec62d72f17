package smt

// Assign is an Assignment backed by maps keyed by variable name. Array
// elements are keyed by the SMT-LIB2 text of their index.
type Assign struct {
	Vars  map[string]Value
	Elems map[string]map[string]Value
}

func NewAssign() *Assign {
	return &Assign{
		Vars:  map[string]Value{},
		Elems: map[string]map[string]Value{},
	}
}

func (a *Assign) Set(name string, v Value) {
	a.Vars[name] = v
}

func (a *Assign) SetElement(name string, index, v Value) {
	m := a.Elems[name]
	if m == nil {
		m = map[string]Value{}
		a.Elems[name] = m
	}
	m[index.String()] = v
}

func (a *Assign) Value(v *Expr) (Value, bool) {
	res, ok := a.Vars[v.name]
	return res, ok
}

func (a *Assign) Element(array *Expr, index Value) (Value, bool) {
	res, ok := a.Elems[array.name][index.String()]
	return res, ok
}

// Eval evaluates e under a; Assign thereby also serves as a Model.
func (a *Assign) Eval(e *Expr) (Value, error) {
	return Eval(e, a)
}
