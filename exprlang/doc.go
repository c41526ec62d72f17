// Package exprlang converts expressions written in the expr-lang/expr
// language into theorem predicates.
//
//	pred, err := exprlang.Parse(`X + Y == 10 and X > 2`)
//
// Identifiers name fields of the environment. The parameter itself may be
// spelled out (t.X by default, see WithParam), and names given with
// WithCaptures resolve to captured Go values instead. Besides the
// arithmetic, comparison and logical operators the following are
// recognized:
//
//	distinct(a, b, c)            pairwise distinct terms
//	distinct(t.Cells)            pairwise distinct sequence elements
//	distinct(map(idx, t.Cells[#]))  one term per captured element
//	int(x), float(x)             conversions
//	xor(a, b)                    exclusive or
//	x in [1, 2, 3]               membership in a literal array
//
// Any other function call is kept as a call node so that predicate
// rewriters registered on a theorem.Context can expand it.
package exprlang
