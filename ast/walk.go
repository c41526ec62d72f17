package ast

import "reflect"

// Walk visits n depth first, pre-order. Children are skipped when visit
// returns false.
func Walk(n Node, visit func(Node) bool) {
	if n == nil || !visit(n) {
		return
	}
	switch x := n.(type) {
	case *Lambda:
		Walk(x.Body, visit)
	case *Binary:
		Walk(x.Left, visit)
		Walk(x.Right, visit)
	case *Unary:
		Walk(x.X, visit)
	case *Member:
		Walk(x.X, visit)
	case *Call:
		Walk(x.Recv, visit)
		for _, a := range x.Args {
			Walk(a, visit)
		}
	case *Index:
		Walk(x.X, visit)
		Walk(x.Key, visit)
	case *Convert:
		Walk(x.X, visit)
	case *ArrayLit:
		for _, e := range x.Elems {
			Walk(e, visit)
		}
	case *Select:
		Walk(x.Source, visit)
		Walk(x.Body, visit)
	}
}

// HasParam reports whether any parameter occurs in n.
func HasParam(n Node) bool {
	found := false
	Walk(n, func(c Node) bool {
		if _, ok := c.(*Param); ok {
			found = true
		}
		return !found
	})
	return found
}

// Equal reports whether a and b are structurally equal. Parameters compare
// by name.
func Equal(a, b Node) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	switch x := a.(type) {
	case *Param:
		y, ok := b.(*Param)
		return ok && x.Name == y.Name
	case *Lambda:
		y, ok := b.(*Lambda)
		return ok && Equal(x.Param, y.Param) && Equal(x.Body, y.Body)
	case *Binary:
		y, ok := b.(*Binary)
		return ok && x.Op == y.Op && Equal(x.Left, y.Left) && Equal(x.Right, y.Right)
	case *Unary:
		y, ok := b.(*Unary)
		return ok && x.Op == y.Op && Equal(x.X, y.X)
	case *Member:
		y, ok := b.(*Member)
		return ok && x.Name == y.Name && Equal(x.X, y.X)
	case *Const:
		y, ok := b.(*Const)
		return ok && reflect.DeepEqual(x.Value, y.Value)
	case *Capture:
		y, ok := b.(*Capture)
		return ok && x.Name == y.Name && reflect.DeepEqual(x.Value, y.Value)
	case *Call:
		y, ok := b.(*Call)
		return ok && x.Func == y.Func && Equal(x.Recv, y.Recv) && equalList(x.Args, y.Args)
	case *Index:
		y, ok := b.(*Index)
		return ok && Equal(x.X, y.X) && Equal(x.Key, y.Key)
	case *Convert:
		y, ok := b.(*Convert)
		return ok && x.Type == y.Type && Equal(x.X, y.X)
	case *ArrayLit:
		y, ok := b.(*ArrayLit)
		return ok && equalList(x.Elems, y.Elems)
	case *Select:
		y, ok := b.(*Select)
		return ok && Equal(x.Item, y.Item) && Equal(x.Source, y.Source) && Equal(x.Body, y.Body)
	}
	return false
}

func equalList(xs, ys []Node) bool {
	if len(xs) != len(ys) {
		return false
	}
	for i := range xs {
		if !Equal(xs[i], ys[i]) {
			return false
		}
	}
	return true
}

// Substitute returns a copy of n with every occurrence of p replaced by with.
// A Select whose item is p shadows it.
func Substitute(n Node, p *Param, with Node) Node {
	return rewrite(n, func(c Node) (Node, bool) {
		switch x := c.(type) {
		case *Param:
			if x == p {
				return with, true
			}
		case *Select:
			if x.Item == p {
				return &Select{Source: Substitute(x.Source, p, with), Item: x.Item, Body: x.Body}, true
			}
		}
		return nil, false
	})
}

// PartialEval folds every parameter-free subtree that Eval can reduce into a
// Const. Subtrees that cannot be evaluated are kept as they are.
func PartialEval(n Node) Node {
	return rewrite(n, func(c Node) (Node, bool) {
		switch c.(type) {
		case *Const, *Param:
			return c, true
		}
		if HasParam(c) {
			return nil, false
		}
		v, err := Eval(c)
		if err != nil {
			return nil, false
		}
		return Lit(v), true
	})
}

// rewrite rebuilds n bottom up. f is consulted first on every node; when it
// reports true its result replaces the node and the children are not visited.
func rewrite(n Node, f func(Node) (Node, bool)) Node {
	if n == nil {
		return nil
	}
	if res, ok := f(n); ok {
		return res
	}
	switch x := n.(type) {
	case *Lambda:
		return &Lambda{Param: x.Param, Body: rewrite(x.Body, f)}
	case *Binary:
		return &Binary{Op: x.Op, Left: rewrite(x.Left, f), Right: rewrite(x.Right, f)}
	case *Unary:
		return &Unary{Op: x.Op, X: rewrite(x.X, f)}
	case *Member:
		return &Member{X: rewrite(x.X, f), Name: x.Name}
	case *Call:
		return &Call{Recv: rewrite(x.Recv, f), Func: x.Func, Args: rewriteList(x.Args, f)}
	case *Index:
		return &Index{X: rewrite(x.X, f), Key: rewrite(x.Key, f)}
	case *Convert:
		return &Convert{X: rewrite(x.X, f), Type: x.Type}
	case *ArrayLit:
		return &ArrayLit{Elems: rewriteList(x.Elems, f)}
	case *Select:
		return &Select{Source: rewrite(x.Source, f), Item: x.Item, Body: rewrite(x.Body, f)}
	}
	return n
}

func rewriteList(xs []Node, f func(Node) (Node, bool)) []Node {
	if xs == nil {
		return nil
	}
	res := make([]Node, len(xs))
	for i, x := range xs {
		res[i] = rewrite(x, f)
	}
	return res
}
