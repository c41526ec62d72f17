package theorem

import (
	"io"
	"log/slog"
	"reflect"
	"sync"

	"github.com/signadot/go-theorem/ast"
	"github.com/signadot/go-theorem/smt"
)

// PredicateRewriter rewrites a call the compiler cannot lower into an
// equivalent tree. The result must differ from call.
type PredicateRewriter func(call *ast.Call) (ast.Node, error)

// GlobalRewriter restates the full predicate list of a theorem over one
// environment type before compilation.
type GlobalRewriter func(preds []*ast.Lambda) ([]*ast.Lambda, error)

// TypeMapping represents values of Type by the solver domain Domain.
// Construct must be a func with a single parameter accepting the domain's
// native value (bool, int64, *big.Rat or string) returning a value
// assignable to Type, optionally followed by an error.
type TypeMapping struct {
	Type      reflect.Type
	Domain    smt.Kind
	Construct any
}

// Context binds theorems to a backend and carries the registries shared by
// every theorem created from it. A Context is safe for concurrent use once
// created.
type Context struct {
	backend            smt.Backend
	log                *slog.Logger
	diag               io.Writer
	predicateRewriters map[string]PredicateRewriter
	globalRewriters    map[reflect.Type]GlobalRewriter
	mappings           map[reflect.Type]*TypeMapping

	mu    sync.Mutex
	descs map[reflect.Type]*field
}

type ContextOption func(*Context)

// WithLogger sets the logger sessions report to. The default discards.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		c.log = l
	}
}

// WithDiagnostics sets the default diagnostic sink, used by solve calls
// which do not pass Diagnostics.
func WithDiagnostics(w io.Writer) ContextOption {
	return func(c *Context) {
		c.diag = w
	}
}

// WithPredicateRewriter registers f for calls of the function name.
func WithPredicateRewriter(name string, f PredicateRewriter) ContextOption {
	return func(c *Context) {
		c.predicateRewriters[name] = f
	}
}

// WithGlobalRewriter registers f for theorems over the environment type T.
func WithGlobalRewriter[T any](f GlobalRewriter) ContextOption {
	return func(c *Context) {
		c.globalRewriters[reflect.TypeFor[T]()] = f
	}
}

func WithTypeMapping(m TypeMapping) ContextOption {
	return func(c *Context) {
		c.mappings[m.Type] = &m
	}
}

func NewContext(backend smt.Backend, opts ...ContextOption) *Context {
	c := &Context{
		backend:            backend,
		log:                slog.New(slog.DiscardHandler),
		predicateRewriters: map[string]PredicateRewriter{},
		globalRewriters:    map[reflect.Type]GlobalRewriter{},
		mappings:           map[reflect.Type]*TypeMapping{},
		descs:              map[reflect.Type]*field{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Context) Backend() smt.Backend {
	return c.backend
}

func (c *Context) Logger() *slog.Logger {
	return c.log
}
