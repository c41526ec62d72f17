package exprlang

import (
	"errors"
	"fmt"

	exprast "github.com/expr-lang/expr/ast"
	"github.com/expr-lang/expr/parser"
	"github.com/signadot/go-theorem/ast"
)

// DefaultParam is the name of the environment parameter.
const DefaultParam = "t"

// ErrUnsupported is wrapped by errors for constructs with no predicate
// counterpart.
var ErrUnsupported = errors.New("unsupported expression")

// Error reports a conversion failure at the expr-lang node Node.
type Error struct {
	Node    string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Node == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Node, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type Option func(*converter)

// WithParam sets the name of the environment parameter.
func WithParam(name string) Option {
	return func(c *converter) {
		c.param.Name = name
	}
}

// WithCaptures makes the entries of env available by name. Captured names
// shadow environment fields.
func WithCaptures(env map[string]any) Option {
	return func(c *converter) {
		for k, v := range env {
			c.captures[k] = v
		}
	}
}

type converter struct {
	param    *ast.Param
	captures map[string]any
	items    []*ast.Param
}

func newConverter(opts []Option) *converter {
	c := &converter{
		param:    &ast.Param{Name: DefaultParam},
		captures: map[string]any{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Parse parses input and converts it to a lambda over the environment.
func Parse(input string, opts ...Option) (*ast.Lambda, error) {
	tree, err := parser.Parse(input)
	if err != nil {
		return nil, fmt.Errorf("parsing %q: %w", input, err)
	}
	return Convert(tree.Node, opts...)
}

// ParseAll parses each of inputs with the same options.
func ParseAll(inputs []string, opts ...Option) ([]*ast.Lambda, error) {
	res := make([]*ast.Lambda, len(inputs))
	for i, in := range inputs {
		l, err := Parse(in, opts...)
		if err != nil {
			return nil, err
		}
		res[i] = l
	}
	return res, nil
}

// Convert converts a parsed expr-lang tree.
func Convert(node exprast.Node, opts ...Option) (*ast.Lambda, error) {
	c := newConverter(opts)
	body, err := c.convert(node)
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Param: c.param, Body: body}, nil
}

func unsupported(n exprast.Node, format string, args ...any) error {
	return &Error{Node: n.String(), Message: fmt.Sprintf(format, args...), Err: ErrUnsupported}
}

func (c *converter) convert(n exprast.Node) (ast.Node, error) {
	switch x := n.(type) {
	case nil:
		return nil, &Error{Message: "empty expression", Err: ErrUnsupported}
	case *exprast.IdentifierNode:
		return c.identifier(x.Value), nil
	case *exprast.IntegerNode:
		return ast.Lit(x.Value), nil
	case *exprast.FloatNode:
		return ast.Lit(x.Value), nil
	case *exprast.BoolNode:
		return ast.Lit(x.Value), nil
	case *exprast.StringNode:
		return ast.Lit(x.Value), nil
	case *exprast.ConstantNode:
		return ast.Lit(x.Value), nil
	case *exprast.UnaryNode:
		return c.unary(x)
	case *exprast.BinaryNode:
		return c.binary(x)
	case *exprast.ChainNode:
		return c.convert(x.Node)
	case *exprast.MemberNode:
		return c.member(x)
	case *exprast.CallNode:
		return c.call(x)
	case *exprast.BuiltinNode:
		if x.Name == "map" {
			return nil, unsupported(x, "map is only supported as the argument of distinct")
		}
		return c.function(x, x.Name, x.Arguments)
	case *exprast.ArrayNode:
		elems, err := c.list(x.Nodes)
		if err != nil {
			return nil, err
		}
		return &ast.ArrayLit{Elems: elems}, nil
	case *exprast.PointerNode:
		if x.Name != "" || len(c.items) == 0 {
			return nil, unsupported(x, "pointer outside of map")
		}
		return c.items[len(c.items)-1], nil
	}
	return nil, unsupported(n, "%T is not supported", n)
}

// identifier resolves a bare name: the parameter, a capture, or a field of
// the environment.
func (c *converter) identifier(name string) ast.Node {
	if name == c.param.Name {
		return c.param
	}
	if v, ok := c.captures[name]; ok {
		return ast.Captured(name, v)
	}
	return ast.Get(c.param, name)
}

func (c *converter) list(ns []exprast.Node) ([]ast.Node, error) {
	res := make([]ast.Node, len(ns))
	for i, n := range ns {
		x, err := c.convert(n)
		if err != nil {
			return nil, err
		}
		res[i] = x
	}
	return res, nil
}

func (c *converter) unary(x *exprast.UnaryNode) (ast.Node, error) {
	switch lit := x.Node.(type) {
	case *exprast.IntegerNode:
		if x.Operator == "-" {
			return ast.Lit(-lit.Value), nil
		}
	case *exprast.FloatNode:
		if x.Operator == "-" {
			return ast.Lit(-lit.Value), nil
		}
	}
	arg, err := c.convert(x.Node)
	if err != nil {
		return nil, err
	}
	switch x.Operator {
	case "!", "not":
		return ast.Not(arg), nil
	case "-":
		return ast.Neg(arg), nil
	case "+":
		return arg, nil
	}
	return nil, unsupported(x, "unary operator %s", x.Operator)
}

var binaryOps = map[string]ast.BinaryOp{
	"and": ast.OpAnd,
	"&&":  ast.OpAnd,
	"or":  ast.OpOr,
	"||":  ast.OpOr,
	"+":   ast.OpAdd,
	"-":   ast.OpSub,
	"*":   ast.OpMul,
	"/":   ast.OpDiv,
	"%":   ast.OpMod,
	"**":  ast.OpPow,
	"^":   ast.OpPow,
	"<":   ast.OpLt,
	"<=":  ast.OpLe,
	">":   ast.OpGt,
	">=":  ast.OpGe,
	"==":  ast.OpEq,
	"!=":  ast.OpNe,
}

func (c *converter) binary(x *exprast.BinaryNode) (ast.Node, error) {
	l, err := c.convert(x.Left)
	if err != nil {
		return nil, err
	}
	if x.Operator == "in" {
		return c.in(x, l)
	}
	op, ok := binaryOps[x.Operator]
	if !ok {
		return nil, unsupported(x, "binary operator %s", x.Operator)
	}
	r, err := c.convert(x.Right)
	if err != nil {
		return nil, err
	}
	return &ast.Binary{Op: op, Left: l, Right: r}, nil
}

// in expands membership in a literal array into a disjunction.
func (c *converter) in(x *exprast.BinaryNode, l ast.Node) (ast.Node, error) {
	arr, ok := x.Right.(*exprast.ArrayNode)
	if !ok {
		return nil, unsupported(x, "in requires a literal array")
	}
	elems, err := c.list(arr.Nodes)
	if err != nil {
		return nil, err
	}
	alts := make([]ast.Node, len(elems))
	for i, e := range elems {
		alts[i] = ast.Eq(l, e)
	}
	return ast.Or(alts...), nil
}

func (c *converter) member(x *exprast.MemberNode) (ast.Node, error) {
	if x.Optional {
		return nil, unsupported(x, "optional chaining")
	}
	recv, err := c.convert(x.Node)
	if err != nil {
		return nil, err
	}
	if name, ok := x.Property.(*exprast.StringNode); ok {
		return &ast.Member{X: recv, Name: name.Value}, nil
	}
	key, err := c.convert(x.Property)
	if err != nil {
		return nil, err
	}
	return ast.At(recv, key), nil
}

func (c *converter) call(x *exprast.CallNode) (ast.Node, error) {
	switch callee := x.Callee.(type) {
	case *exprast.IdentifierNode:
		return c.function(x, callee.Value, x.Arguments)
	case *exprast.MemberNode:
		name, ok := callee.Property.(*exprast.StringNode)
		if !ok {
			break
		}
		recv, err := c.convert(callee.Node)
		if err != nil {
			return nil, err
		}
		args, err := c.list(x.Arguments)
		if err != nil {
			return nil, err
		}
		return ast.Method(recv, name.Value, args...), nil
	}
	return nil, unsupported(x, "call of %s", x.Callee)
}

func (c *converter) function(x exprast.Node, name string, argNodes []exprast.Node) (ast.Node, error) {
	if name == "distinct" {
		return c.distinct(x, argNodes)
	}
	args, err := c.list(argNodes)
	if err != nil {
		return nil, err
	}
	switch name {
	case "int", "float":
		if len(args) != 1 {
			return nil, unsupported(x, "%s takes one argument", name)
		}
		if name == "int" {
			return ast.ToInt(args[0]), nil
		}
		return ast.ToFloat(args[0]), nil
	case "xor":
		if len(args) != 2 {
			return nil, unsupported(x, "xor takes two arguments")
		}
		return ast.Xor(args[0], args[1]), nil
	}
	return ast.Func(name, args...), nil
}

func (c *converter) distinct(x exprast.Node, argNodes []exprast.Node) (ast.Node, error) {
	if len(argNodes) == 1 {
		if m, ok := argNodes[0].(*exprast.BuiltinNode); ok && m.Name == "map" {
			return c.distinctMap(m)
		}
	}
	args, err := c.list(argNodes)
	if err != nil {
		return nil, err
	}
	if len(args) == 1 {
		// a single sequence or array literal
		return &ast.Call{Func: ast.DistinctFunc, Args: args}, nil
	}
	return ast.Distinct(args...), nil
}

func (c *converter) distinctMap(m *exprast.BuiltinNode) (ast.Node, error) {
	if len(m.Arguments) != 2 {
		return nil, unsupported(m, "map takes a collection and an expression")
	}
	src, err := c.convert(m.Arguments[0])
	if err != nil {
		return nil, err
	}
	body := m.Arguments[1]
	if p, ok := body.(*exprast.PredicateNode); ok {
		body = p.Node
	}
	item := &ast.Param{Name: fmt.Sprintf("#%d", len(c.items))}
	c.items = append(c.items, item)
	defer func() { c.items = c.items[:len(c.items)-1] }()
	b, err := c.convert(body)
	if err != nil {
		return nil, err
	}
	return &ast.Call{
		Func: ast.DistinctFunc,
		Args: []ast.Node{&ast.Select{Source: src, Item: item, Body: b}},
	}, nil
}
