package theorem

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported classifies constructs, member types and conversions
	// which cannot be lowered to solver terms.
	ErrUnsupported = errors.New("unsupported")
	// ErrUnknownParameter classifies member chains which resolve neither in
	// the environment nor against a captured value.
	ErrUnknownParameter = errors.New("unknown parameter")
	// ErrRewriter classifies misbehaving rewriters.
	ErrRewriter = errors.New("rewriter misconfiguration")
	// ErrProjection classifies failures to build a result from a model.
	ErrProjection = errors.New("projection mismatch")
)

// BindError reports an environment field which cannot be bound to a solver
// variable.
type BindError struct {
	FieldPath string // Field path (e.g., "Board.Cells")
	Message   string
}

func (e *BindError) Error() string {
	if e.FieldPath != "" {
		return fmt.Sprintf("bind error at %s: %s", e.FieldPath, e.Message)
	}
	return fmt.Sprintf("bind error: %s", e.Message)
}

func (e *BindError) Unwrap() error {
	return ErrUnsupported
}

// CompileError reports an expression which cannot be compiled.
type CompileError struct {
	Construct string // the offending expression, rendered
	Message   string
	Err       error
}

func (e *CompileError) Error() string {
	if e.Construct != "" {
		return fmt.Sprintf("compile error in %s: %s", e.Construct, e.Message)
	}
	return fmt.Sprintf("compile error: %s", e.Message)
}

func (e *CompileError) Unwrap() error {
	return e.Err
}

// RewriteError reports a rewriter which failed or made no progress.
type RewriteError struct {
	Rewriter string
	Message  string
	Err      error
}

func (e *RewriteError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("rewriter %s: %s: %v", e.Rewriter, e.Message, e.Err)
	}
	return fmt.Sprintf("rewriter %s: %s", e.Rewriter, e.Message)
}

func (e *RewriteError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrRewriter}
	}
	return []error{ErrRewriter, e.Err}
}

// ProjectionError reports a model value which cannot be stored in the
// result.
type ProjectionError struct {
	FieldPath string
	Message   string
	Err       error
}

func (e *ProjectionError) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.FieldPath != "" {
		return fmt.Sprintf("projection error at %s: %s", e.FieldPath, msg)
	}
	return fmt.Sprintf("projection error: %s", msg)
}

func (e *ProjectionError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrProjection}
	}
	return []error{ErrProjection, e.Err}
}
