package theorem

import "fmt"

// Symbols2 to Symbols5 are ready-made environments of two to five
// variables.
type Symbols2[T1, T2 any] struct {
	X1 T1
	X2 T2
}

func (s Symbols2[T1, T2]) String() string {
	return fmt.Sprintf("{X1 = %v, X2 = %v}", s.X1, s.X2)
}

type Symbols3[T1, T2, T3 any] struct {
	X1 T1
	X2 T2
	X3 T3
}

func (s Symbols3[T1, T2, T3]) String() string {
	return fmt.Sprintf("{X1 = %v, X2 = %v, X3 = %v}", s.X1, s.X2, s.X3)
}

type Symbols4[T1, T2, T3, T4 any] struct {
	X1 T1
	X2 T2
	X3 T3
	X4 T4
}

func (s Symbols4[T1, T2, T3, T4]) String() string {
	return fmt.Sprintf("{X1 = %v, X2 = %v, X3 = %v, X4 = %v}", s.X1, s.X2, s.X3, s.X4)
}

type Symbols5[T1, T2, T3, T4, T5 any] struct {
	X1 T1
	X2 T2
	X3 T3
	X4 T4
	X5 T5
}

func (s Symbols5[T1, T2, T3, T4, T5]) String() string {
	return fmt.Sprintf("{X1 = %v, X2 = %v, X3 = %v, X4 = %v, X5 = %v}", s.X1, s.X2, s.X3, s.X4, s.X5)
}
