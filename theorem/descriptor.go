package theorem

import (
	"fmt"
	"math/big"
	"reflect"
	"strings"
	"time"

	"github.com/signadot/go-theorem/smt"
)

type fieldKind int

const (
	leafField fieldKind = iota
	compositeField
	sequenceField
)

func (k fieldKind) String() string {
	switch k {
	case leafField:
		return "leaf"
	case compositeField:
		return "composite"
	case sequenceField:
		return "sequence"
	}
	return "?"
}

// field describes how one Go type (the environment, or one of its fields)
// maps onto solver terms.
type field struct {
	kind  fieldKind
	name  string
	index int // struct field index, -1 for the root
	path  string
	typ   reflect.Type

	// leaf and sequence element domain
	domain  smt.Kind
	mapping *TypeMapping
	elem    reflect.Type

	// composites
	children  []*field
	settable  bool
	synthetic bool
}

var (
	timeType     = reflect.TypeFor[time.Time]()
	durationType = reflect.TypeFor[time.Duration]()
	bigIntType   = reflect.TypeFor[*big.Int]()
	bigRatType   = reflect.TypeFor[*big.Rat]()
)

// domainOf returns the solver domain of values of type t and the mapping
// that produces it, if any.
func (c *Context) domainOf(t reflect.Type) (smt.Kind, *TypeMapping, bool) {
	if m, ok := c.mappings[t]; ok {
		return m.Domain, m, true
	}
	switch t {
	case timeType, durationType, bigIntType:
		return smt.KindInt, nil, true
	case bigRatType:
		return smt.KindReal, nil, true
	}
	switch t.Kind() {
	case reflect.Bool:
		return smt.KindBool, nil, true
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return smt.KindInt, nil, true
	case reflect.Float32, reflect.Float64:
		return smt.KindReal, nil, true
	case reflect.String:
		return smt.KindString, nil, true
	}
	return smt.KindInvalid, nil, false
}

// describe returns the cached descriptor of the environment type t.
func (c *Context) describe(t reflect.Type) (*field, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if f, ok := c.descs[t]; ok {
		return f, nil
	}
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &BindError{Message: fmt.Sprintf("environment %v is not a struct type", t)}
	}
	root := &field{
		kind:     compositeField,
		name:     typeName(t),
		index:    -1,
		path:     t.String(),
		typ:      t,
		settable: true,
	}
	if err := c.describeStruct(root); err != nil {
		return nil, err
	}
	c.descs[t] = root
	return root, nil
}

func (c *Context) describeStruct(parent *field) error {
	t := parent.typ
	for i := range t.NumField() {
		sf := t.Field(i)
		if sf.Tag.Get("theorem") == "-" || sf.Name == "_" {
			continue
		}
		f := &field{
			name:     sf.Name,
			index:    i,
			path:     parent.path + "." + sf.Name,
			typ:      sf.Type,
			settable: sf.IsExported() || (sf.Anonymous && sf.Type.Kind() == reflect.Struct),
		}
		if !f.settable {
			parent.synthetic = true
		}
		if err := c.describeField(f); err != nil {
			return err
		}
		parent.children = append(parent.children, f)
	}
	return nil
}

func (c *Context) describeField(f *field) error {
	if d, m, ok := c.domainOf(f.typ); ok {
		f.kind, f.domain, f.mapping = leafField, d, m
		return nil
	}
	switch f.typ.Kind() {
	case reflect.Struct:
		f.kind = compositeField
		if !f.settable {
			return &BindError{FieldPath: f.path, Message: "unexported struct fields cannot be projected"}
		}
		if err := c.describeStruct(f); err != nil {
			return err
		}
		if f.synthetic {
			// builders only construct the environment itself
			return &BindError{FieldPath: f.path, Message: fmt.Sprintf("nested struct %s has unexported fields", f.typ)}
		}
		return nil
	case reflect.Array, reflect.Slice:
		elem := f.typ.Elem()
		d, m, ok := c.domainOf(elem)
		if !ok {
			switch elem.Kind() {
			case reflect.Struct, reflect.Array, reflect.Slice:
				return &BindError{FieldPath: f.path, Message: fmt.Sprintf("sequences of %s elements are not supported", elem.Kind())}
			}
			return &BindError{FieldPath: f.path, Message: fmt.Sprintf("unsupported member type %s", f.typ)}
		}
		f.kind, f.elem, f.domain, f.mapping = sequenceField, elem, d, m
		return nil
	}
	return &BindError{FieldPath: f.path, Message: fmt.Sprintf("unsupported member type %s", f.typ)}
}

// typeName returns the sanitized variable name prefix for t.
func typeName(t reflect.Type) string {
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		// generic instantiations carry package paths in their arguments
		args := strings.Split(strings.TrimSuffix(name[i+1:], "]"), ",")
		for j, a := range args {
			if k := strings.LastIndexAny(a, "./"); k >= 0 {
				args[j] = a[k+1:]
			}
		}
		name = name[:i] + "_" + strings.Join(args, "_")
	}
	res := sanitize(name)
	if res == "" {
		return "env"
	}
	return res
}

func sanitize(s string) string {
	buf := &strings.Builder{}
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			buf.WriteRune(r)
		default:
			buf.WriteByte('_')
		}
	}
	return strings.TrimRight(buf.String(), "_")
}
