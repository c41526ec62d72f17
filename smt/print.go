package smt

import (
	"strings"
)

// String renders e as an SMT-LIB2 term.
func (e *Expr) String() string {
	buf := &strings.Builder{}
	e.write(buf)
	return buf.String()
}

func (e *Expr) write(buf *strings.Builder) {
	switch e.op {
	case OpVar:
		buf.WriteString(Symbol(e.name))
		return
	case OpConst:
		buf.WriteString(e.val.String())
		return
	}
	buf.WriteByte('(')
	buf.WriteString(e.op.String())
	for _, a := range e.args {
		buf.WriteByte(' ')
		a.write(buf)
	}
	buf.WriteByte(')')
}

// Symbol renders name as an SMT-LIB2 symbol, quoting it with |...| when it
// is not a simple symbol.
func Symbol(name string) string {
	if isSimpleSymbol(name) {
		return name
	}
	return "|" + strings.ReplaceAll(name, "|", "_") + "|"
}

const symbolPunct = "~!@$%^&*_-+=<>.?/"

func isSimpleSymbol(s string) bool {
	if s == "" {
		return false
	}
	for i, c := range s {
		switch {
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
		case strings.ContainsRune(symbolPunct, c):
		case c >= '0' && c <= '9':
			if i == 0 {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Declaration renders the declare-const command for a variable.
func Declaration(v *Expr) string {
	return "(declare-const " + Symbol(v.name) + " " + v.sort.String() + ")"
}
