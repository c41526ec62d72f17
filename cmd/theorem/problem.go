package main

import (
	"bytes"
	"context"
	"fmt"
	"go/token"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/goccy/go-yaml"
	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/exprlang"
	"github.com/signadot/go-theorem/theorem"
)

// ProblemFile is the YAML form of a problem.
//
//	name: pair
//	fields:
//	- {name: X, type: int}
//	- {name: Cells, type: "[3]int"}
//	captures:
//	  idx: [0, 1, 2]
//	where:
//	- X + Cells[0] == 10
//	- distinct(map(idx, Cells[#]))
//	maximize: X
type ProblemFile struct {
	Name     string         `yaml:"name"`
	Fields   []FieldSpec    `yaml:"fields"`
	Captures map[string]any `yaml:"captures,omitempty"`
	Where    []string       `yaml:"where"`
	Minimize string         `yaml:"minimize,omitempty"`
	Maximize string         `yaml:"maximize,omitempty"`
}

type FieldSpec struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
}

var scalarTypes = map[string]reflect.Type{
	"bool":    reflect.TypeFor[bool](),
	"int":     reflect.TypeFor[int](),
	"int8":    reflect.TypeFor[int8](),
	"int16":   reflect.TypeFor[int16](),
	"int32":   reflect.TypeFor[int32](),
	"int64":   reflect.TypeFor[int64](),
	"uint":    reflect.TypeFor[uint](),
	"uint8":   reflect.TypeFor[uint8](),
	"uint16":  reflect.TypeFor[uint16](),
	"uint32":  reflect.TypeFor[uint32](),
	"uint64":  reflect.TypeFor[uint64](),
	"float64": reflect.TypeFor[float64](),
	"string":  reflect.TypeFor[string](),
}

// fieldType resolves a type name: a scalar, or [N]T of a scalar.
func fieldType(s string) (reflect.Type, error) {
	s = strings.TrimSpace(s)
	if t, ok := scalarTypes[s]; ok {
		return t, nil
	}
	if rest, ok := strings.CutPrefix(s, "["); ok {
		n, elem, ok := strings.Cut(rest, "]")
		if !ok {
			return nil, fmt.Errorf("malformed array type %q", s)
		}
		size, err := strconv.Atoi(n)
		if err != nil || size < 0 {
			return nil, fmt.Errorf("bad array length in %q", s)
		}
		t, ok := scalarTypes[elem]
		if !ok {
			return nil, fmt.Errorf("unknown element type %q", elem)
		}
		return reflect.ArrayOf(size, t), nil
	}
	return nil, fmt.Errorf("unknown type %q", s)
}

// envType builds the environment struct type of p.
func (p *ProblemFile) envType() (reflect.Type, error) {
	if len(p.Fields) == 0 {
		return nil, fmt.Errorf("problem %s has no fields", p.Name)
	}
	seen := map[string]bool{}
	fields := make([]reflect.StructField, len(p.Fields))
	for i, f := range p.Fields {
		if !token.IsIdentifier(f.Name) || !token.IsExported(f.Name) {
			return nil, fmt.Errorf("field name %q must be an exported Go identifier", f.Name)
		}
		if seen[f.Name] {
			return nil, fmt.Errorf("duplicate field %s", f.Name)
		}
		seen[f.Name] = true
		t, err := fieldType(f.Type)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", f.Name, err)
		}
		fields[i] = reflect.StructField{
			Name: f.Name,
			Type: t,
			Tag:  reflect.StructTag(`yaml:"` + f.Name + `"`),
		}
	}
	return reflect.StructOf(fields), nil
}

// problem is a loaded problem file ready to solve.
type problem struct {
	file *ProblemFile
	p    *theorem.Problem
	dir  theorem.Direction
	obj  *ast.Lambda
}

func readProblem(path string) (*ProblemFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return decodeProblem(data)
}

func decodeProblem(data []byte) (*ProblemFile, error) {
	pf := &ProblemFile{}
	dec := yaml.NewDecoder(bytes.NewReader(data), yaml.DisallowUnknownField())
	if err := dec.Decode(pf); err != nil {
		return nil, err
	}
	if pf.Minimize != "" && pf.Maximize != "" {
		return nil, fmt.Errorf("problem %s has both minimize and maximize", pf.Name)
	}
	return pf, nil
}

// build compiles the expressions of pf against the environment type.
func (pf *ProblemFile) build(tc *theorem.Context) (*problem, error) {
	typ, err := pf.envType()
	if err != nil {
		return nil, err
	}
	opts := []exprlang.Option{exprlang.WithCaptures(pf.Captures)}
	preds, err := exprlang.ParseAll(pf.Where, opts...)
	if err != nil {
		return nil, err
	}
	res := &problem{file: pf, p: theorem.NewProblem(tc, typ).Where(preds...)}
	obj := pf.Minimize
	if pf.Maximize != "" {
		obj, res.dir = pf.Maximize, theorem.Maximize
	}
	if obj != "" {
		if res.obj, err = exprlang.Parse(obj, opts...); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (p *problem) solve(ctx context.Context, opts ...theorem.SolveOption) (reflect.Value, bool, error) {
	if p.obj != nil {
		return p.p.Optimize(ctx, p.dir, p.obj, opts...)
	}
	return p.p.Solve(ctx, opts...)
}

func loadProblem(tc *theorem.Context, path string) (*problem, error) {
	pf, err := readProblem(path)
	if err != nil {
		return nil, fmt.Errorf("error reading %s: %w", path, err)
	}
	if pf.Name == "" {
		pf.Name = path
	}
	p, err := pf.build(tc)
	if err != nil {
		return nil, fmt.Errorf("error in %s: %w", path, err)
	}
	return p, nil
}
