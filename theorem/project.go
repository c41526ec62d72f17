package theorem

import (
	"fmt"
	"reflect"
	"time"

	"github.com/signadot/go-theorem/smt"
)

// builderFunc builds a synthetic environment value from its leaf values in
// declaration order.
type builderFunc func(values []any) (reflect.Value, error)

type projector struct {
	model smt.Model
}

// project builds a new environment value from the model, starting from the
// prototype proto.
func project(m smt.Model, root *Binding, proto reflect.Value, build builderFunc) (reflect.Value, error) {
	p := &projector{model: m}
	if root.field.synthetic {
		return p.synthetic(root, build)
	}
	res := reflect.New(root.field.typ).Elem()
	res.Set(proto)
	if err := p.composite(res, root); err != nil {
		return reflect.Value{}, err
	}
	return res, nil
}

// synthetic builds a value whose fields cannot all be set, through build.
func (p *projector) synthetic(root *Binding, build builderFunc) (reflect.Value, error) {
	if build == nil {
		return reflect.Value{}, &ProjectionError{
			FieldPath: root.Path(),
			Message:   "type has unexported fields and no builder",
		}
	}
	values := make([]any, len(root.children))
	for i, b := range root.children {
		f := b.field
		if f.kind != leafField || (f.domain != smt.KindBool && f.domain != smt.KindInt) {
			return reflect.Value{}, &ProjectionError{
				FieldPath: f.path,
				Message:   fmt.Sprintf("only bool and integer fields can be built, not %s %s", f.kind, f.typ),
			}
		}
		v, err := p.leaf(b)
		if err != nil {
			return reflect.Value{}, err
		}
		values[i] = v.Interface()
	}
	res, err := build(values)
	if err != nil {
		return reflect.Value{}, &ProjectionError{FieldPath: root.Path(), Message: "builder failed", Err: err}
	}
	if !res.IsValid() || res.Type() != root.field.typ {
		return reflect.Value{}, &ProjectionError{FieldPath: root.Path(), Message: "builder returned the wrong type"}
	}
	return res, nil
}

func (p *projector) composite(v reflect.Value, b *Binding) error {
	for _, c := range b.children {
		fv := v.Field(c.field.index)
		if c.field.kind == compositeField {
			if err := p.composite(fv, c); err != nil {
				return err
			}
			continue
		}
		if !fv.CanSet() {
			return &ProjectionError{FieldPath: c.Path(), Message: "field cannot be set"}
		}
		var (
			x   reflect.Value
			err error
		)
		if c.field.kind == leafField {
			x, err = p.leaf(c)
		} else {
			x, err = p.sequence(fv, c)
		}
		if err != nil {
			return err
		}
		fv.Set(x)
	}
	return nil
}

func (p *projector) leaf(b *Binding) (reflect.Value, error) {
	val, err := p.model.Eval(b.expr)
	if err != nil {
		return reflect.Value{}, &ProjectionError{FieldPath: b.Path(), Message: "evaluating " + b.name, Err: err}
	}
	return native(b.field, b.field.typ, val, b.Path())
}

// sequence reads one element per position of the prototype value cur. The
// result never aliases cur.
func (p *projector) sequence(cur reflect.Value, b *Binding) (reflect.Value, error) {
	t := b.field.typ
	var res reflect.Value
	if t.Kind() == reflect.Array {
		res = reflect.New(t).Elem()
	} else {
		if cur.IsNil() {
			return cur, nil
		}
		res = reflect.MakeSlice(t, cur.Len(), cur.Len())
	}
	for i := range cur.Len() {
		path := fmt.Sprintf("%s[%d]", b.Path(), i)
		sel, err := smt.Apply(smt.OpSelect, b.expr, smt.IntLit(int64(i)))
		if err != nil {
			return reflect.Value{}, &ProjectionError{FieldPath: path, Message: "selecting element", Err: err}
		}
		val, err := p.model.Eval(sel)
		if err != nil {
			return reflect.Value{}, &ProjectionError{FieldPath: path, Message: "evaluating " + sel.String(), Err: err}
		}
		x, err := native(b.field, t.Elem(), val, path)
		if err != nil {
			return reflect.Value{}, err
		}
		res.Index(i).Set(x)
	}
	return res, nil
}

// native converts a model value to a value of type t.
func native(f *field, t reflect.Type, val smt.Value, path string) (reflect.Value, error) {
	if f.mapping != nil {
		return construct(f.mapping, t, val, path)
	}
	mismatch := func() (reflect.Value, error) {
		return reflect.Value{}, &ProjectionError{
			FieldPath: path,
			Message:   fmt.Sprintf("cannot store %s value %s in %s", val.Kind(), val, t),
		}
	}
	overflow := func() (reflect.Value, error) {
		return reflect.Value{}, &ProjectionError{
			FieldPath: path,
			Message:   fmt.Sprintf("value %s overflows %s", val, t),
		}
	}
	switch t {
	case timeType, durationType:
		if val.Kind() != smt.KindInt {
			return mismatch()
		}
		i := val.Int()
		if !i.IsInt64() {
			return overflow()
		}
		if t == timeType {
			return reflect.ValueOf(time.Unix(0, i.Int64()).UTC()), nil
		}
		return reflect.ValueOf(time.Duration(i.Int64())), nil
	case bigIntType:
		if val.Kind() != smt.KindInt {
			return mismatch()
		}
		return reflect.ValueOf(val.Int()), nil
	case bigRatType:
		if !val.Kind().Numeric() {
			return mismatch()
		}
		return reflect.ValueOf(val.Rat()), nil
	}
	res := reflect.New(t).Elem()
	switch t.Kind() {
	case reflect.Bool:
		if val.Kind() != smt.KindBool {
			return mismatch()
		}
		res.SetBool(val.Bool())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		if val.Kind() != smt.KindInt {
			return mismatch()
		}
		i := val.Int()
		if !i.IsInt64() || res.OverflowInt(i.Int64()) {
			return overflow()
		}
		res.SetInt(i.Int64())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		if val.Kind() != smt.KindInt {
			return mismatch()
		}
		i := val.Int()
		if !i.IsUint64() || res.OverflowUint(i.Uint64()) {
			return overflow()
		}
		res.SetUint(i.Uint64())
	case reflect.Float32:
		if !val.Kind().Numeric() {
			return mismatch()
		}
		f, _ := val.Rat().Float32()
		res.SetFloat(float64(f))
	case reflect.Float64:
		if !val.Kind().Numeric() {
			return mismatch()
		}
		f, _ := val.Rat().Float64()
		res.SetFloat(f)
	case reflect.String:
		if val.Kind() != smt.KindString {
			return mismatch()
		}
		res.SetString(val.Str())
	default:
		return mismatch()
	}
	return res, nil
}

// domainValue returns the native Go value of a model value of kind k.
func domainValue(val smt.Value, k smt.Kind) (any, error) {
	switch k {
	case smt.KindBool:
		return val.Bool(), nil
	case smt.KindInt:
		i := val.Int()
		if !i.IsInt64() {
			return nil, fmt.Errorf("%s overflows int64", val)
		}
		return i.Int64(), nil
	case smt.KindReal:
		return val.Rat(), nil
	case smt.KindString:
		return val.Str(), nil
	}
	return nil, fmt.Errorf("no native value for %s", k)
}

var errorType = reflect.TypeFor[error]()

// construct applies the constructor of a type mapping.
func construct(m *TypeMapping, t reflect.Type, val smt.Value, path string) (reflect.Value, error) {
	fail := func(msg string, err error) (reflect.Value, error) {
		return reflect.Value{}, &ProjectionError{FieldPath: path, Message: msg, Err: err}
	}
	fn := reflect.ValueOf(m.Construct)
	if fn.Kind() != reflect.Func || fn.IsNil() {
		return fail(fmt.Sprintf("constructor for %s is %T, not a func", t, m.Construct), nil)
	}
	ft := fn.Type()
	if ft.NumIn() != 1 || ft.IsVariadic() {
		return fail(fmt.Sprintf("constructor for %s must take exactly one parameter, has %d", t, ft.NumIn()), nil)
	}
	if ft.NumOut() != 1 && (ft.NumOut() != 2 || ft.Out(1) != errorType) {
		return fail(fmt.Sprintf("constructor for %s must return the value and optionally an error", t), nil)
	}
	if !ft.Out(0).AssignableTo(t) {
		return fail(fmt.Sprintf("constructor returns %s, not assignable to %s", ft.Out(0), t), nil)
	}
	arg, err := domainValue(val, m.Domain)
	if err != nil {
		return fail("converting model value", err)
	}
	av := reflect.ValueOf(arg)
	switch {
	case av.Type().AssignableTo(ft.In(0)):
	case av.Kind() != reflect.Pointer && av.Type().ConvertibleTo(ft.In(0)):
		av = av.Convert(ft.In(0))
	default:
		return fail(fmt.Sprintf("constructor parameter %s does not accept %s", ft.In(0), av.Type()), nil)
	}
	out := fn.Call([]reflect.Value{av})
	if len(out) == 2 && !out[1].IsNil() {
		return fail("constructor failed", out[1].Interface().(error))
	}
	res := reflect.New(t).Elem()
	res.Set(out[0])
	return res, nil
}
