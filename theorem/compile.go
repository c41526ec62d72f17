package theorem

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/debug"
	"github.com/signadot/go-theorem/smt"
)

// maxRewrites bounds nested predicate rewrites of a single call.
const maxRewrites = 64

type compiler struct {
	ctx   *Context
	root  *Binding
	param *ast.Param
	depth int

	// range conditions of symbolic indexes into captured sequences,
	// collected while compiling one lambda
	guards []*smt.Expr
}

func newCompiler(c *Context, root *Binding) *compiler {
	return &compiler{ctx: c, root: root}
}

// predicate compiles a Bool-valued lambda.
func (c *compiler) predicate(l *ast.Lambda) (*smt.Expr, error) {
	e, err := c.lambda(l)
	if err != nil {
		return nil, err
	}
	if e.Sort() != smt.Bool {
		return nil, &CompileError{Construct: l.String(), Message: fmt.Sprintf("predicate has sort %s", e.Sort()), Err: ErrUnsupported}
	}
	if len(c.guards) != 0 {
		if e, err = c.apply(l, smt.OpAnd, append(c.guards, e)...); err != nil {
			return nil, err
		}
	}
	if debug.Compile() {
		debug.Logf("compile %s\n   => %s\n", l, e)
	}
	return e, nil
}

// objective compiles a numeric lambda. Range conditions it depends on are
// left in c.guards for the caller to assert.
func (c *compiler) objective(l *ast.Lambda) (*smt.Expr, error) {
	e, err := c.lambda(l)
	if err != nil {
		return nil, err
	}
	if !e.Sort().Kind.Numeric() {
		return nil, &CompileError{Construct: l.String(), Message: fmt.Sprintf("objective has sort %s", e.Sort()), Err: ErrUnsupported}
	}
	if debug.Compile() {
		debug.Logf("compile objective %s\n   => %s\n", l, e)
	}
	return e, nil
}

func (c *compiler) lambda(l *ast.Lambda) (*smt.Expr, error) {
	if l == nil || l.Param == nil || l.Body == nil {
		return nil, &CompileError{Message: "incomplete lambda", Err: ErrUnsupported}
	}
	c.param = l.Param
	c.guards = nil
	return c.compile(l.Body)
}

func unsupported(n ast.Node, format string, args ...any) error {
	return &CompileError{Construct: n.String(), Message: fmt.Sprintf(format, args...), Err: ErrUnsupported}
}

func (c *compiler) apply(n ast.Node, op smt.Op, args ...*smt.Expr) (*smt.Expr, error) {
	e, err := smt.Apply(op, args...)
	if err != nil {
		return nil, &CompileError{Construct: n.String(), Message: err.Error(), Err: fmt.Errorf("%w: %w", ErrUnsupported, err)}
	}
	return e, nil
}

var binaryOps = map[ast.BinaryOp]smt.Op{
	ast.OpAnd: smt.OpAnd,
	ast.OpOr:  smt.OpOr,
	ast.OpXor: smt.OpXor,
	ast.OpAdd: smt.OpAdd,
	ast.OpSub: smt.OpSub,
	ast.OpMul: smt.OpMul,
	ast.OpDiv: smt.OpDiv,
	ast.OpMod: smt.OpMod,
	ast.OpPow: smt.OpPow,
	ast.OpLt:  smt.OpLt,
	ast.OpLe:  smt.OpLe,
	ast.OpGt:  smt.OpGt,
	ast.OpGe:  smt.OpGe,
	ast.OpEq:  smt.OpEq,
}

func (c *compiler) compile(n ast.Node) (*smt.Expr, error) {
	switch x := n.(type) {
	case nil:
		return nil, &CompileError{Message: "missing expression", Err: ErrUnsupported}
	case *ast.Binary:
		return c.binary(x)
	case *ast.Unary:
		arg, err := c.compile(x.X)
		if err != nil {
			return nil, err
		}
		switch x.Op {
		case ast.OpNot:
			return c.apply(x, smt.OpNot, arg)
		case ast.OpNeg:
			return c.apply(x, smt.OpNeg, arg)
		}
		return nil, unsupported(x, "unary operator %s", x.Op)
	case *ast.Member:
		return c.member(x)
	case *ast.Const:
		return c.constant(x, x.Value)
	case *ast.Capture:
		return c.constant(x, x.Value)
	case *ast.Call:
		return c.call(x)
	case *ast.Index:
		return c.index(x)
	case *ast.Convert:
		return c.convert(x)
	case *ast.Param:
		return nil, unsupported(x, "parameter used as a value")
	}
	return nil, unsupported(n, "%T cannot be compiled here", n)
}

func (c *compiler) binary(x *ast.Binary) (*smt.Expr, error) {
	if x.Op == ast.OpAnd || x.Op == ast.OpOr {
		return c.connective(x)
	}
	l, err := c.compile(x.Left)
	if err != nil {
		return nil, err
	}
	r, err := c.compile(x.Right)
	if err != nil {
		return nil, err
	}
	if x.Op == ast.OpNe {
		eq, err := c.apply(x, smt.OpEq, l, r)
		if err != nil {
			return nil, err
		}
		return c.apply(x, smt.OpNot, eq)
	}
	op, ok := binaryOps[x.Op]
	if !ok {
		return nil, unsupported(x, "binary operator %s", x.Op)
	}
	return c.apply(x, op, l, r)
}

// connective compiles a chain of && or || as one n-ary term.
func (c *compiler) connective(x *ast.Binary) (*smt.Expr, error) {
	var args []*smt.Expr
	var walk func(n ast.Node) error
	walk = func(n ast.Node) error {
		if b, ok := n.(*ast.Binary); ok && b.Op == x.Op {
			if err := walk(b.Left); err != nil {
				return err
			}
			return walk(b.Right)
		}
		e, err := c.compile(n)
		if err != nil {
			return err
		}
		args = append(args, e)
		return nil
	}
	if err := walk(x); err != nil {
		return nil, err
	}
	return c.apply(x, binaryOps[x.Op], args...)
}

// chain splits a member chain into its root and the selected names.
func chain(x *ast.Member) (ast.Node, []string) {
	var names []string
	var n ast.Node = x
	for {
		m, ok := n.(*ast.Member)
		if !ok {
			break
		}
		names = append(names, m.Name)
		n = m.X
	}
	for i, j := 0, len(names)-1; i < j; i, j = i+1, j-1 {
		names[i], names[j] = names[j], names[i]
	}
	return n, names
}

func (c *compiler) isParam(n ast.Node) bool {
	p, ok := n.(*ast.Param)
	return ok && (p == c.param || p.Name == c.param.Name)
}

// resolve finds the binding named by a member chain rooted at the lambda
// parameter.
func (c *compiler) resolve(x *ast.Member) (*Binding, bool, error) {
	root, names := chain(x)
	if !c.isParam(root) {
		return nil, false, nil
	}
	b := c.root
	for _, name := range names {
		next := b.Child(name)
		if next == nil {
			return nil, true, &CompileError{
				Construct: x.String(),
				Message:   fmt.Sprintf("%s has no member %s", b.Path(), name),
				Err:       ErrUnknownParameter,
			}
		}
		b = next
	}
	return b, true, nil
}

func (c *compiler) member(x *ast.Member) (*smt.Expr, error) {
	b, rooted, err := c.resolve(x)
	if err != nil {
		return nil, err
	}
	if rooted {
		if b.expr == nil {
			return nil, unsupported(x, "%s is a composite and has no value", b.Path())
		}
		return b.expr, nil
	}
	if ast.HasParam(x) {
		root, _ := chain(x)
		if _, ok := root.(*ast.Param); ok {
			return nil, &CompileError{Construct: x.String(), Message: fmt.Sprintf("%s is not the predicate parameter", root), Err: ErrUnknownParameter}
		}
		return nil, unsupported(x, "member of a computed value")
	}
	v, err := ast.Eval(x)
	if err != nil {
		return nil, &CompileError{Construct: x.String(), Message: err.Error(), Err: ErrUnknownParameter}
	}
	return c.constant(x, v)
}

func (c *compiler) index(x *ast.Index) (*smt.Expr, error) {
	key, err := c.compile(x.Key)
	if err != nil {
		return nil, err
	}
	if !ast.HasParam(x.X) {
		return c.capturedIndex(x, key)
	}
	target, err := c.compile(x.X)
	if err != nil {
		return nil, err
	}
	return c.apply(x, smt.OpSelect, target, key)
}

// capturedIndex indexes a captured sequence. A symbolic key selects among
// the elements with an ite chain and must lie within the sequence.
func (c *compiler) capturedIndex(x *ast.Index, key *smt.Expr) (*smt.Expr, error) {
	coll, err := ast.Eval(x.X)
	if err != nil {
		return nil, &CompileError{Construct: x.String(), Message: err.Error(), Err: ErrUnknownParameter}
	}
	if key.IsConst() {
		k, err := ast.Eval(x.Key)
		if err == nil {
			v, err := ast.Eval(&ast.Index{X: ast.Lit(coll), Key: ast.Lit(k)})
			if err != nil {
				return nil, &CompileError{Construct: x.String(), Message: err.Error(), Err: ErrUnknownParameter}
			}
			return c.constant(x, v)
		}
	}
	rv := reflect.ValueOf(coll)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if (rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array) || rv.Len() == 0 {
		return nil, unsupported(x, "symbolic index into %T", coll)
	}
	if key.Sort() != smt.Int {
		return nil, unsupported(x, "index of sort %s", key.Sort())
	}
	lo, err := c.apply(x, smt.OpLe, smt.IntLit(0), key)
	if err != nil {
		return nil, err
	}
	hi, err := c.apply(x, smt.OpLt, key, smt.IntLit(int64(rv.Len())))
	if err != nil {
		return nil, err
	}
	c.guards = append(c.guards, lo, hi)
	res, err := c.constant(x, rv.Index(rv.Len()-1).Interface())
	if err != nil {
		return nil, err
	}
	for i := rv.Len() - 2; i >= 0; i-- {
		elem, err := c.constant(x, rv.Index(i).Interface())
		if err != nil {
			return nil, err
		}
		cond, err := c.apply(x, smt.OpEq, key, smt.IntLit(int64(i)))
		if err != nil {
			return nil, err
		}
		if res, err = c.apply(x, smt.OpIte, cond, elem, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

// convert compiles a conversion between the Int and Real domains. Real to
// Int rounds toward negative infinity whether or not the operand is
// constant. Conversions into narrower integer types must provably fit.
func (c *compiler) convert(x *ast.Convert) (*smt.Expr, error) {
	if x.Type == nil {
		return nil, unsupported(x, "conversion without a target type")
	}
	k, _, ok := c.ctx.domainOf(x.Type)
	if !ok {
		return nil, unsupported(x, "cast to %s not implemented", x.Type)
	}
	var e *smt.Expr
	var err error
	if v, verr := ast.Eval(x.X); verr == nil {
		e, err = c.constant(x.X, v)
	} else {
		e, err = c.compile(x.X)
	}
	if err != nil {
		return nil, err
	}
	from := e.Sort().Kind
	switch {
	case from == k:
	case from == smt.KindInt && k == smt.KindReal:
		if e.IsConst() {
			e = smt.RealLit(e.Value().Rat())
		} else if e, err = c.apply(x, smt.OpToReal, e); err != nil {
			return nil, err
		}
	case from == smt.KindReal && k == smt.KindInt:
		if e.IsConst() {
			e = smt.BigIntLit(e.Value().Int())
		} else if e, err = c.apply(x, smt.OpToInt, e); err != nil {
			return nil, err
		}
	default:
		return nil, unsupported(x, "cast from %s to %s not implemented", from, x.Type)
	}
	if k == smt.KindInt {
		if err := fits(x, e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// fits checks that e is representable in the integer type x converts to.
// Only constants can be checked, so symbolic narrowing is rejected.
func fits(x *ast.Convert, e *smt.Expr) error {
	lo, hi := intRange(x.Type)
	if lo == nil && hi == nil {
		return nil
	}
	if !e.IsConst() {
		return unsupported(x, "narrowing conversion of %s to %s", x.X, x.Type)
	}
	v := e.Value().Int()
	if (lo != nil && v.Cmp(lo) < 0) || (hi != nil && v.Cmp(hi) > 0) {
		return unsupported(x, "constant %s overflows %s", v, x.Type)
	}
	return nil
}

// constant converts a Go value to a solver literal.
func (c *compiler) constant(n ast.Node, v any) (*smt.Expr, error) {
	switch x := v.(type) {
	case *big.Int:
		if x != nil {
			return smt.BigIntLit(x), nil
		}
	case *big.Rat:
		if x != nil {
			return smt.RealLit(x), nil
		}
	case time.Time:
		return smt.IntLit(x.UnixNano()), nil
	case time.Duration:
		return smt.IntLit(int64(x)), nil
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return smt.BoolLit(rv.Bool()), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return smt.IntLit(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return smt.BigIntLit(new(big.Int).SetUint64(rv.Uint())), nil
	case reflect.Float32, reflect.Float64:
		f := rv.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, unsupported(n, "non-finite constant %v", f)
		}
		val, err := smt.ParseReal(strconv.FormatFloat(f, 'g', -1, rv.Type().Bits()))
		if err != nil {
			return nil, unsupported(n, "%v", err)
		}
		return smt.Lit(val), nil
	case reflect.String:
		return smt.StringLit(rv.String()), nil
	}
	return nil, unsupported(n, "constant of type %T", v)
}

func (c *compiler) call(x *ast.Call) (*smt.Expr, error) {
	if rw, ok := c.ctx.predicateRewriters[x.Func]; ok {
		return c.rewrite(x, rw)
	}
	if x.Func == ast.DistinctFunc && x.Recv == nil {
		return c.distinct(x)
	}
	if strings.HasPrefix(x.Func, ast.GetterPrefix) && x.Recv != nil && len(x.Args) == 1 {
		target := x.Recv
		if name := strings.TrimPrefix(x.Func, ast.GetterPrefix); name != ast.DefaultIndexer {
			target = &ast.Member{X: x.Recv, Name: name}
		}
		return c.compile(ast.At(target, x.Args[0]))
	}
	return nil, unsupported(x, "call to %s", x.Func)
}

func (c *compiler) rewrite(x *ast.Call, rw PredicateRewriter) (*smt.Expr, error) {
	if rw == nil {
		return nil, &RewriteError{Rewriter: x.Func, Message: "rewriter is nil"}
	}
	if c.depth >= maxRewrites {
		return nil, &RewriteError{Rewriter: x.Func, Message: fmt.Sprintf("more than %d nested rewrites", maxRewrites)}
	}
	res, err := rw(x)
	if err != nil {
		return nil, &RewriteError{Rewriter: x.Func, Message: "rewrite failed", Err: err}
	}
	if res == nil || ast.Equal(res, x) {
		return nil, &RewriteError{Rewriter: x.Func, Message: "rewriter made no progress on " + x.String()}
	}
	c.depth++
	defer func() { c.depth-- }()
	return c.compile(res)
}

func (c *compiler) distinct(x *ast.Call) (*smt.Expr, error) {
	items := x.Args
	if len(items) == 1 {
		switch a := items[0].(type) {
		case *ast.ArrayLit:
			items = a.Elems
		case *ast.Select:
			var err error
			if items, err = c.expand(a); err != nil {
				return nil, err
			}
		}
	}
	if len(items) == 1 {
		if m, ok := items[0].(*ast.Member); ok {
			b, rooted, err := c.resolve(m)
			if err != nil {
				return nil, err
			}
			if rooted && b.field.kind == sequenceField {
				return c.distinctSequence(x, b)
			}
		}
	}
	args := make([]*smt.Expr, len(items))
	for i, item := range items {
		e, err := c.compile(item)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}
	return c.apply(x, smt.OpDistinct, args...)
}

// expand evaluates the captured source of s and instantiates its body once
// per element.
func (c *compiler) expand(s *ast.Select) ([]ast.Node, error) {
	if ast.HasParam(s.Source) {
		return nil, unsupported(s, "source of map depends on the predicate parameter")
	}
	v, err := ast.Eval(s.Source)
	if err != nil {
		return nil, &CompileError{Construct: s.String(), Message: err.Error(), Err: ErrUnknownParameter}
	}
	rv := reflect.ValueOf(v)
	for rv.Kind() == reflect.Pointer && !rv.IsNil() {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, unsupported(s, "map over %T", v)
	}
	res := make([]ast.Node, rv.Len())
	for i := range rv.Len() {
		res[i] = ast.PartialEval(ast.Substitute(s.Body, s.Item, ast.Lit(rv.Index(i).Interface())))
	}
	return res, nil
}

// distinctSequence requires the elements of a sequence field to be pairwise
// distinct over the prototype length.
func (c *compiler) distinctSequence(x *ast.Call, b *Binding) (*smt.Expr, error) {
	args := make([]*smt.Expr, b.length)
	for i := range b.length {
		var err error
		if args[i], err = c.apply(x, smt.OpSelect, b.expr, smt.IntLit(int64(i))); err != nil {
			return nil, err
		}
	}
	return c.apply(x, smt.OpDistinct, args...)
}
