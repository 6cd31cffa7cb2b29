// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"
	"slices"

	"github.com/curioloop/deriv/matrix"
)

// Linear memoizes the linear function 𝑭(𝐱) = 𝑨𝐱. The Jacobian is the
// constant 𝑨 and the Hessian of 𝐯·𝑭(𝐱) is identically zero, returned
// in compressed sparse row form. No evaluations are counted: every
// quantity is a constant or a plain matrix-vector product.
type Linear struct {
	n, m int
	j    matrix.Matrix
	h    *matrix.CSR

	x, f     []float64
	fUpdated bool
	sparse   bool
}

// NewLinear creates the engine for 𝑭(𝐱) = 𝑨𝐱.
// AutoStorage adopts the representation of 𝑨 itself.
func NewLinear(a matrix.Matrix, x0 []float64, storage Storage) (*Linear, error) {

	if a == nil {
		return nil, errors.New("coefficient matrix is required")
	}
	if _, ok := a.(*matrix.Operator); ok {
		return nil, errors.New("operator coefficients are not supported")
	}
	m, n := a.Dims()
	if len(x0) != n {
		return nil, errors.New("invalid x0 dimensions")
	}

	e := &Linear{n: n, m: m, h: matrix.ZeroCSR(n, n)}

	switch storage {
	case SparseStorage:
		e.sparse = true
	case AutoStorage:
		_, e.sparse = a.(*matrix.CSR)
	}
	if e.sparse {
		if c, ok := a.(*matrix.CSR); ok {
			e.j = c.Clone()
		} else {
			e.j = matrix.CSRFromDense(a.ToDense())
		}
	} else {
		e.j = a.ToDense().Clone()
	}

	e.x = slices.Repeat(x0, 1)
	e.f = make([]float64, m)
	e.j.MulVec(e.x, e.f)
	e.fUpdated = true

	return e, nil
}

// NewIdentity creates the engine for 𝑭(𝐱) = 𝐱.
// The Jacobian is sparse unless DenseStorage is forced.
func NewIdentity(x0 []float64, storage Storage) (*Linear, error) {
	n := len(x0)
	if n == 0 {
		return nil, errors.New("initial point is required")
	}
	var a matrix.Matrix = matrix.EyeCSR(n)
	if storage == DenseStorage {
		a = matrix.Eye(n)
	}
	return NewLinear(a, x0, storage)
}

func (e *Linear) updateX(x []float64) {
	if len(x) != e.n {
		panic("point dimension not match spec")
	}
	if !slices.Equal(x, e.x) {
		e.x = slices.Repeat(x, 1)
		e.fUpdated = false
	}
}

// Fun evaluates 𝑨𝐱 and returns an owned copy.
func (e *Linear) Fun(x []float64) []float64 {
	e.updateX(x)
	if !e.fUpdated {
		e.j.MulVec(e.x, e.f)
		e.fUpdated = true
	}
	return slices.Repeat(e.f, 1)
}

// Jac returns an owned copy of the constant Jacobian 𝑨.
func (e *Linear) Jac(x []float64) matrix.Matrix {
	e.updateX(x)
	switch j := e.j.(type) {
	case *matrix.Dense:
		return j.Clone()
	case *matrix.CSR:
		return j.Clone()
	default:
		return e.j
	}
}

// Hess returns the zero n×n Hessian in sparse form.
func (e *Linear) Hess(x, v []float64) matrix.Matrix {
	if len(v) != e.m {
		panic("multiplier dimension not match spec")
	}
	e.updateX(x)
	return e.h.Clone()
}

// SparseJac reports whether the Jacobian representation is sparse.
func (e *Linear) SparseJac() bool { return e.sparse }

// Dims reports the output and input dimensions m and n.
func (e *Linear) Dims() (m, n int) { return e.m, e.n }
