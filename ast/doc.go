// Package ast defines the typed expression trees that theorems are built from.
//
// A predicate is a Lambda over a single parameter standing for the theorem
// environment:
//
//	ast.Fn("t", func(t *ast.Param) ast.Node {
//		return ast.And(
//			ast.Gt(ast.Get(t, "X"), ast.Lit(2)),
//			ast.Ne(ast.Get(t, "X"), ast.Get(t, "Y")),
//		)
//	})
//
// Member chains rooted at the parameter name environment fields. Member chains
// rooted at a Capture are closed-over values which are evaluated eagerly when
// a theorem is compiled.
//
// Trees are never parsed from text by this package; see package exprlang for
// an adapter from expr-lang/expr syntax trees.
package ast
