package smtlib

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"strings"

	"github.com/signadot/go-theorem/smt"
)

// sexp is a solver response: an atom (symbol, numeral, decimal or string
// literal) or a list.
type sexp struct {
	atom   string
	str    bool
	list   []*sexp
	isList bool
}

func (x *sexp) String() string {
	if !x.isList {
		if x.str {
			return strconv.Quote(x.atom)
		}
		return x.atom
	}
	parts := make([]string, len(x.list))
	for i, y := range x.list {
		parts[i] = y.String()
	}
	return "(" + strings.Join(parts, " ") + ")"
}

// head returns the leading atom of a list.
func (x *sexp) head() string {
	if !x.isList || len(x.list) == 0 || x.list[0].isList {
		return ""
	}
	return x.list[0].atom
}

var errUnbalanced = errors.New("unbalanced s-expression")

func readSexp(r *bufio.Reader) (*sexp, error) {
	c, err := skipSpace(r)
	if err != nil {
		return nil, err
	}
	switch c {
	case ')':
		return nil, errUnbalanced
	case '(':
		x := &sexp{isList: true}
		for {
			c, err := skipSpace(r)
			if err != nil {
				if err == io.EOF {
					return nil, errUnbalanced
				}
				return nil, err
			}
			if c == ')' {
				return x, nil
			}
			if err := r.UnreadByte(); err != nil {
				return nil, err
			}
			y, err := readSexp(r)
			if err != nil {
				return nil, err
			}
			x.list = append(x.list, y)
		}
	case '"':
		s, err := readString(r)
		if err != nil {
			return nil, err
		}
		return &sexp{atom: s, str: true}, nil
	case '|':
		s, err := r.ReadString('|')
		if err != nil {
			return nil, errUnbalanced
		}
		return &sexp{atom: strings.TrimSuffix(s, "|")}, nil
	}
	buf := []byte{c}
	for {
		c, err := r.ReadByte()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		if c == '(' || c == ')' || isSpace(c) {
			if err := r.UnreadByte(); err != nil {
				return nil, err
			}
			break
		}
		buf = append(buf, c)
	}
	return &sexp{atom: string(buf)}, nil
}

func isSpace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

// skipSpace returns the next byte which is neither white space nor part of
// a comment.
func skipSpace(r *bufio.Reader) (byte, error) {
	for {
		c, err := r.ReadByte()
		if err != nil {
			return 0, err
		}
		switch {
		case isSpace(c):
		case c == ';':
			if _, err := r.ReadString('\n'); err != nil {
				return 0, err
			}
		default:
			return c, nil
		}
	}
}

// readString reads a string literal after its opening quote. A doubled
// quote is an escaped quote; \u{X} and \uXXXX are unicode escapes.
func readString(r *bufio.Reader) (string, error) {
	var raw []byte
	for {
		c, err := r.ReadByte()
		if err != nil {
			return "", errUnbalanced
		}
		if c == '"' {
			next, err := r.ReadByte()
			if err == nil && next == '"' {
				raw = append(raw, '"')
				continue
			}
			if err == nil {
				r.UnreadByte()
			}
			return unescape(string(raw)), nil
		}
		raw = append(raw, c)
	}
}

func unescape(s string) string {
	if !strings.Contains(s, `\u`) {
		return s
	}
	buf := &strings.Builder{}
	for i := 0; i < len(s); i++ {
		if s[i] != '\\' || i+1 >= len(s) || s[i+1] != 'u' {
			buf.WriteByte(s[i])
			continue
		}
		rest := s[i+2:]
		var hex string
		n := 0
		if strings.HasPrefix(rest, "{") {
			end := strings.IndexByte(rest, '}')
			if end < 0 {
				buf.WriteByte(s[i])
				continue
			}
			hex, n = rest[1:end], end+1
		} else if len(rest) >= 4 {
			hex, n = rest[:4], 4
		}
		v, err := strconv.ParseUint(hex, 16, 32)
		if hex == "" || err != nil {
			buf.WriteByte(s[i])
			continue
		}
		buf.WriteRune(rune(v))
		i += 1 + n
	}
	return buf.String()
}

// value converts a model value of scalar kind k.
func value(x *sexp, k smt.Kind) (smt.Value, error) {
	switch k {
	case smt.KindBool:
		switch x.atom {
		case "true":
			return smt.BoolValue(true), nil
		case "false":
			return smt.BoolValue(false), nil
		}
	case smt.KindString:
		if x.str {
			return smt.StringValue(x.atom), nil
		}
	case smt.KindInt, smt.KindReal:
		r, err := number(x)
		if err != nil {
			return smt.Value{}, err
		}
		if k == smt.KindInt {
			if !r.IsInt() {
				return smt.Value{}, fmt.Errorf("non-integral Int value %s", x)
			}
			return smt.IntValue(r.Num()), nil
		}
		return smt.RealValue(r), nil
	}
	return smt.Value{}, fmt.Errorf("cannot read %s value from %s", k, x)
}

// number evaluates numerals, decimals and the arithmetic solvers use to
// print them: (- x), (- x y), (/ x y).
func number(x *sexp) (*big.Rat, error) {
	if !x.isList {
		r, ok := new(big.Rat).SetString(x.atom)
		if !ok || x.str {
			return nil, fmt.Errorf("invalid number %s", x)
		}
		return r, nil
	}
	if len(x.list) == 0 {
		return nil, fmt.Errorf("invalid number %s", x)
	}
	args := make([]*big.Rat, len(x.list)-1)
	for i, y := range x.list[1:] {
		r, err := number(y)
		if err != nil {
			return nil, err
		}
		args[i] = r
	}
	switch {
	case x.head() == "-" && len(args) == 1:
		return args[0].Neg(args[0]), nil
	case x.head() == "-" && len(args) == 2:
		return args[0].Sub(args[0], args[1]), nil
	case x.head() == "+" && len(args) == 2:
		return args[0].Add(args[0], args[1]), nil
	case x.head() == "/" && len(args) == 2 && args[1].Sign() != 0:
		return args[0].Quo(args[0], args[1]), nil
	}
	return nil, fmt.Errorf("invalid number %s", x)
}
