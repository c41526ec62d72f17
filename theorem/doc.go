// Package theorem solves constraint problems stated as expression trees over
// a Go struct type, the environment.
//
// Every field of the environment becomes a solver variable: bool fields are
// Bool, integer, time.Time, time.Duration and *big.Int fields are Int,
// float and *big.Rat fields are Real, and strings are String. Nested structs
// are bound field by field and arrays or slices of scalars become solver
// arrays. Variables are named after their field path, as in Point_X.
//
//	type Point struct{ X, Y int }
//
//	tc := theorem.NewContext(sat.New())
//	th := theorem.New[Point](tc).Where(
//		ast.Fn("p", func(p *ast.Param) ast.Node {
//			return ast.And(
//				ast.Gt(ast.Get(p, "X"), ast.Lit(2)),
//				ast.Eq(ast.Add(ast.Get(p, "X"), ast.Get(p, "Y")), ast.Lit(10)),
//			)
//		}),
//	)
//	pt, ok, err := th.Solve(ctx)
//
// Theorems are immutable: Where returns a new theorem, so one theorem can be
// the base of several others. Each Solve or Optimize call opens its own
// solver session, compiles every predicate against a freshly bound
// environment and projects the model into a new value. A theorem without
// solution yields ok == false and a nil error.
//
// Results start from a prototype (WithPrototype, the zero value by default).
// Slice fields keep the length they have in the prototype. Environments with
// unexported fields are built through WithBuilder.
//
// Calls the compiler does not know can be rewritten by functions registered
// with WithPredicateRewriter, and the whole predicate list of an environment
// type can be restated by a GlobalRewriter.
package theorem
