package ast

import "reflect"

// Fn builds a Lambda whose parameter is named name.
//
//	ast.Fn("t", func(t *ast.Param) ast.Node {
//		return ast.Gt(ast.Get(t, "X"), ast.Lit(2))
//	})
func Fn(name string, body func(p *Param) Node) *Lambda {
	p := &Param{Name: name}
	return &Lambda{Param: p, Body: body(p)}
}

// Get builds a member chain x.path[0].path[1]...
func Get(x Node, path ...string) Node {
	for _, name := range path {
		x = &Member{X: x, Name: name}
	}
	return x
}

func Lit(v any) *Const {
	return &Const{Value: v}
}

func Captured(name string, v any) *Capture {
	return &Capture{Name: name, Value: v}
}

func binary(op BinaryOp, a, b Node) *Binary {
	return &Binary{Op: op, Left: a, Right: b}
}

// And folds xs left to right with &&. And() is the constant true.
func And(xs ...Node) Node {
	return fold(OpAnd, true, xs)
}

// Or folds xs left to right with ||. Or() is the constant false.
func Or(xs ...Node) Node {
	return fold(OpOr, false, xs)
}

func fold(op BinaryOp, empty bool, xs []Node) Node {
	if len(xs) == 0 {
		return Lit(empty)
	}
	res := xs[0]
	for _, x := range xs[1:] {
		res = binary(op, res, x)
	}
	return res
}

func Xor(a, b Node) *Binary { return binary(OpXor, a, b) }
func Add(a, b Node) *Binary { return binary(OpAdd, a, b) }
func Sub(a, b Node) *Binary { return binary(OpSub, a, b) }
func Mul(a, b Node) *Binary { return binary(OpMul, a, b) }
func Div(a, b Node) *Binary { return binary(OpDiv, a, b) }
func Mod(a, b Node) *Binary { return binary(OpMod, a, b) }
func Pow(a, b Node) *Binary { return binary(OpPow, a, b) }
func Lt(a, b Node) *Binary  { return binary(OpLt, a, b) }
func Le(a, b Node) *Binary  { return binary(OpLe, a, b) }
func Gt(a, b Node) *Binary  { return binary(OpGt, a, b) }
func Ge(a, b Node) *Binary  { return binary(OpGe, a, b) }
func Eq(a, b Node) *Binary  { return binary(OpEq, a, b) }
func Ne(a, b Node) *Binary  { return binary(OpNe, a, b) }

func Not(x Node) *Unary { return &Unary{Op: OpNot, X: x} }
func Neg(x Node) *Unary { return &Unary{Op: OpNeg, X: x} }

// Between is lo <= x && x <= hi.
func Between(x, lo, hi Node) Node {
	return And(Le(lo, x), Le(x, hi))
}

func At(x, key Node) *Index {
	return &Index{X: x, Key: key}
}

func To(x Node, t reflect.Type) *Convert {
	return &Convert{X: x, Type: t}
}

func ToFloat(x Node) *Convert {
	return To(x, reflect.TypeFor[float64]())
}

func ToInt(x Node) *Convert {
	return To(x, reflect.TypeFor[int]())
}

// Distinct requires all of xs to be pairwise distinct.
func Distinct(xs ...Node) *Call {
	return &Call{Func: DistinctFunc, Args: []Node{&ArrayLit{Elems: xs}}}
}

// DistinctOf requires body(item) to be pairwise distinct over every item of
// the captured collection source.
func DistinctOf(source Node, item string, body func(p *Param) Node) *Call {
	p := &Param{Name: item}
	return &Call{
		Func: DistinctFunc,
		Args: []Node{&Select{Source: source, Item: p, Body: body(p)}},
	}
}

// Func builds a call to a free function, typically one handled by a
// registered predicate rewriter.
func Func(name string, args ...Node) *Call {
	return &Call{Func: name, Args: args}
}

func Method(recv Node, name string, args ...Node) *Call {
	return &Call{Recv: recv, Func: name, Args: args}
}
