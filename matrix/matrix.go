// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package matrix provides the derivative result representations shared by
// the numdiff and objective packages: dense row-major matrices, compressed
// sparse row matrices and abstract linear operators.
package matrix

// Matrix is the common contract for derivative values.
//
// A Matrix is either a *Dense, a *CSR or an *Operator.
// The first two own their storage and may be cloned freely.
// An *Operator is a matvec-only handle whose products may be
// arbitrarily expensive, so it is shared instead of copied.
type Matrix interface {
	// Dims reports the row and column count.
	Dims() (m, n int)
	// MulVec computes y = A·x where len(x) = n and len(y) = m.
	MulVec(x, y []float64)
	// MulVecTrans computes y = Aᵀ·x where len(x) = m and len(y) = n.
	MulVecTrans(x, y []float64)
	// ToDense materializes the matrix as a dense copy.
	// For an *Operator this performs n matvec products.
	ToDense() *Dense
}

const (
	zero = 0.0
	one  = 1.0
)
