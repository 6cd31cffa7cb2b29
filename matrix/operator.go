// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrix

// Operator is an abstract m×n linear map exposing only matrix-vector products.
// It is a shared read-only handle: products may trigger arbitrary computation
// (e.g. lazy finite differencing), so an Operator is never cloned.
type Operator struct {
	m, n int
	mv   func(x, y []float64)
	rmv  func(x, y []float64)
}

// NewOperator creates an operator from its matvec closure.
// rmv implements the transposed product and may be nil
// when the transpose is unavailable.
func NewOperator(m, n int, mv, rmv func(x, y []float64)) *Operator {
	if m <= 0 || n <= 0 {
		panic("negative dimensions")
	}
	if mv == nil {
		panic("matvec is required")
	}
	return &Operator{m: m, n: n, mv: mv, rmv: rmv}
}

// NewSymOperator creates a symmetric n×n operator from a single matvec closure.
func NewSymOperator(n int, mv func(x, y []float64)) *Operator {
	return NewOperator(n, n, mv, mv)
}

// Dims reports the row and column count.
func (op *Operator) Dims() (m, n int) { return op.m, op.n }

// MulVec computes y = A·x.
func (op *Operator) MulVec(x, y []float64) {
	if len(x) != op.n || len(y) != op.m {
		panic("bound check error")
	}
	op.mv(x, y)
}

// MulVecTrans computes y = Aᵀ·x.
func (op *Operator) MulVecTrans(x, y []float64) {
	if op.rmv == nil {
		panic("transposed matvec not available")
	}
	if len(x) != op.m || len(y) != op.n {
		panic("bound check error")
	}
	op.rmv(x, y)
}

// ToDense materializes the operator column by column with n matvec products.
func (op *Operator) ToDense() *Dense {
	d := NewDense(op.m, op.n, nil)
	e := make([]float64, op.n)
	y := make([]float64, op.m)
	for j := 0; j < op.n; j++ {
		e[j] = one
		op.mv(e, y)
		e[j] = zero
		for i, v := range y {
			d.data[i*op.n+j] = v
		}
	}
	return d
}
