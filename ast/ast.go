package ast

import (
	"reflect"
)

// Node is an expression tree node. Trees are built by callers (directly, or via
// an adapter such as package exprlang) and are treated as immutable once handed
// to a theorem.
type Node interface {
	String() string
	node()
}

// BinaryOp is the operator of a Binary node.
type BinaryOp int

const (
	OpAnd BinaryOp = iota
	OpOr
	OpXor
	OpAdd
	OpSub
	OpMul
	OpDiv
	OpMod
	OpPow
	OpLt
	OpLe
	OpGt
	OpGe
	OpEq
	OpNe
)

var binaryTokens = [...]string{
	OpAnd: "&&",
	OpOr:  "||",
	OpXor: "xor",
	OpAdd: "+",
	OpSub: "-",
	OpMul: "*",
	OpDiv: "/",
	OpMod: "%",
	OpPow: "**",
	OpLt:  "<",
	OpLe:  "<=",
	OpGt:  ">",
	OpGe:  ">=",
	OpEq:  "==",
	OpNe:  "!=",
}

func (op BinaryOp) String() string {
	if op < 0 || int(op) >= len(binaryTokens) {
		return "?"
	}
	return binaryTokens[op]
}

// UnaryOp is the operator of a Unary node.
type UnaryOp int

const (
	OpNot UnaryOp = iota
	OpNeg
)

func (op UnaryOp) String() string {
	switch op {
	case OpNot:
		return "!"
	case OpNeg:
		return "-"
	}
	return "?"
}

// DistinctFunc is the Call.Func name of the built-in pairwise distinctness
// predicate.
const DistinctFunc = "Distinct"

// GetterPrefix marks a Call.Func as an indexed getter: get_Item indexes the
// receiver itself, get_Name indexes the receiver's member Name.
const (
	GetterPrefix   = "get_"
	DefaultIndexer = "Item"
)

// Param is the parameter of a Lambda. Member chains rooted at the lambda's
// own parameter refer to environment fields.
type Param struct {
	Name string
}

// Lambda is a single-parameter predicate or objective.
type Lambda struct {
	Param *Param
	Body  Node
}

// Binary applies a binary operator.
type Binary struct {
	Op          BinaryOp
	Left, Right Node
}

// Unary applies a unary operator.
type Unary struct {
	Op UnaryOp
	X  Node
}

// Member selects the field Name of X.
type Member struct {
	X    Node
	Name string
}

// Const is a literal value.
type Const struct {
	Value any
}

// Capture is a value closed over by the expression, named for rendering.
// Member chains rooted at a Capture are evaluated eagerly.
type Capture struct {
	Name  string
	Value any
}

// Call invokes Func, optionally on a receiver.
type Call struct {
	Recv Node
	Func string
	Args []Node
}

// Index selects element Key of the sequence X.
type Index struct {
	X   Node
	Key Node
}

// Convert converts X to the Go type Type.
type Convert struct {
	X    Node
	Type reflect.Type
}

// ArrayLit is a literal fixed-size array of expressions.
type ArrayLit struct {
	Elems []Node
}

// Select projects every element of Source through Body, with Item bound to
// the element. Source must evaluate without reference to the lambda parameter.
type Select struct {
	Source Node
	Item   *Param
	Body   Node
}

func (*Param) node()    {}
func (*Lambda) node()   {}
func (*Binary) node()   {}
func (*Unary) node()    {}
func (*Member) node()   {}
func (*Const) node()    {}
func (*Capture) node()  {}
func (*Call) node()     {}
func (*Index) node()    {}
func (*Convert) node()  {}
func (*ArrayLit) node() {}
func (*Select) node()   {}
