package smt

import "fmt"

// Kind is a scalar value domain, or KindArray.
type Kind uint8

const (
	KindInvalid Kind = iota
	KindBool
	KindInt
	KindReal
	KindString
	KindArray
)

func (k Kind) String() string {
	switch k {
	case KindBool:
		return "Bool"
	case KindInt:
		return "Int"
	case KindReal:
		return "Real"
	case KindString:
		return "String"
	case KindArray:
		return "Array"
	}
	return "Invalid"
}

// Numeric reports whether k is Int or Real.
func (k Kind) Numeric() bool {
	return k == KindInt || k == KindReal
}

// Sort is the type of an expression. Arrays map a scalar index kind to a
// scalar element kind; arrays of arrays are not representable.
type Sort struct {
	Kind  Kind
	Index Kind
	Elem  Kind
}

var (
	Bool   = Sort{Kind: KindBool}
	Int    = Sort{Kind: KindInt}
	Real   = Sort{Kind: KindReal}
	String = Sort{Kind: KindString}
)

// Scalar returns the sort of kind k, which must not be KindArray.
func Scalar(k Kind) Sort {
	return Sort{Kind: k}
}

// ArrayOf returns the array sort from index to elem.
func ArrayOf(index, elem Kind) Sort {
	return Sort{Kind: KindArray, Index: index, Elem: elem}
}

func (s Sort) IsArray() bool {
	return s.Kind == KindArray
}

func (s Sort) IndexSort() Sort {
	return Scalar(s.Index)
}

func (s Sort) ElemSort() Sort {
	return Scalar(s.Elem)
}

// String renders s in SMT-LIB2 syntax.
func (s Sort) String() string {
	if s.Kind == KindArray {
		return fmt.Sprintf("(Array %s %s)", s.Index, s.Elem)
	}
	return s.Kind.String()
}
