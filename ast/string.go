package ast

import (
	"fmt"
	"math/big"
	"strings"
	"time"
)

func (p *Param) String() string {
	return p.Name
}

func (l *Lambda) String() string {
	return l.Param.Name + " => " + l.Body.String()
}

func (b *Binary) String() string {
	return "(" + b.Left.String() + " " + b.Op.String() + " " + b.Right.String() + ")"
}

func (u *Unary) String() string {
	return u.Op.String() + u.X.String()
}

func (m *Member) String() string {
	return m.X.String() + "." + m.Name
}

func (c *Const) String() string {
	return formatValue(c.Value)
}

func (c *Capture) String() string {
	if c.Name != "" {
		return c.Name
	}
	return formatValue(c.Value)
}

func (c *Call) String() string {
	buf := &strings.Builder{}
	if c.Recv != nil {
		buf.WriteString(c.Recv.String())
		buf.WriteByte('.')
	}
	buf.WriteString(c.Func)
	buf.WriteByte('(')
	writeList(buf, c.Args)
	buf.WriteByte(')')
	return buf.String()
}

func (x *Index) String() string {
	return x.X.String() + "[" + x.Key.String() + "]"
}

func (c *Convert) String() string {
	if c.Type == nil {
		return "convert(" + c.X.String() + ")"
	}
	return c.Type.String() + "(" + c.X.String() + ")"
}

func (a *ArrayLit) String() string {
	buf := &strings.Builder{}
	buf.WriteByte('[')
	writeList(buf, a.Elems)
	buf.WriteByte(']')
	return buf.String()
}

func (s *Select) String() string {
	return "map(" + s.Source.String() + ", " + s.Item.Name + " => " + s.Body.String() + ")"
}

func writeList(buf *strings.Builder, xs []Node) {
	for i, x := range xs {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(x.String())
	}
}

func formatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "nil"
	case string:
		return fmt.Sprintf("%q", x)
	case *big.Rat:
		return x.RatString()
	case time.Time:
		return x.Format(time.RFC3339Nano)
	default:
		return fmt.Sprintf("%v", v)
	}
}
