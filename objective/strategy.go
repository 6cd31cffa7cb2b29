// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package objective provides memoizing derivative-evaluation engines for
// scalar and vector objectives: function values, gradients, Jacobians and
// Hessians are computed on demand through analytic callables, finite
// differences or quasi-Newton updates, cached per point, and counted.
//
// # Reference:
//
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_differentiable_functions.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
package objective

import (
	"github.com/curioloop/deriv/matrix"
	"github.com/curioloop/deriv/numdiff"
	"github.com/curioloop/deriv/quasi"
)

// Evals counts the logical evaluations performed by one engine.
type Evals struct {
	// Fun counts objective evaluations, including the ones consumed
	// internally by finite-difference derivative probing.
	Fun int
	// Grad counts direct gradient (or Jacobian) evaluations, each
	// counted once regardless of its inner cost.
	Grad int
	// Hess counts direct Hessian evaluations.
	Hess int
}

type strategyKind int

const (
	strategyNone strategyKind = iota
	strategyFunc
	strategyApprox
	strategyUpdate
)

// Grad selects how a scalar engine obtains its gradient.
// The choice is fixed for the lifetime of the engine.
type Grad struct {
	kind   strategyKind
	fn     func(x []float64) []float64
	method numdiff.Method
}

// GradFunc selects an analytic gradient callable 𝒇′(𝐱) : ℝⁿ → ℝⁿ.
func GradFunc(fn func(x []float64) []float64) Grad {
	return Grad{kind: strategyFunc, fn: fn}
}

// GradApprox selects finite-difference gradient estimation.
func GradApprox(method numdiff.Method) Grad {
	return Grad{kind: strategyApprox, method: method}
}

// Hess selects how a scalar engine obtains its Hessian.
type Hess struct {
	kind   strategyKind
	fn     func(x []float64) matrix.Matrix
	method numdiff.Method
	update quasi.Update
}

// HessFunc selects an analytic Hessian callable 𝒇″(𝐱) : ℝⁿ → ℝⁿˣⁿ.
func HessFunc(fn func(x []float64) matrix.Matrix) Hess {
	return Hess{kind: strategyFunc, fn: fn}
}

// HessApprox selects finite-difference Hessian estimation by
// differencing the gradient. The result is a lazy linear operator.
func HessApprox(method numdiff.Method) Hess {
	return Hess{kind: strategyApprox, method: method}
}

// HessUpdate selects a quasi-Newton secant approximation.
func HessUpdate(u quasi.Update) Hess {
	return Hess{kind: strategyUpdate, update: u}
}

// Jac selects how a vector engine obtains its Jacobian.
type Jac struct {
	kind   strategyKind
	fn     func(x []float64) matrix.Matrix
	method numdiff.Method
}

// JacFunc selects an analytic Jacobian callable 𝑭′(𝐱) : ℝⁿ → ℝᵐˣⁿ.
func JacFunc(fn func(x []float64) matrix.Matrix) Jac {
	return Jac{kind: strategyFunc, fn: fn}
}

// JacApprox selects finite-difference Jacobian estimation.
func JacApprox(method numdiff.Method) Jac {
	return Jac{kind: strategyApprox, method: method}
}

// VHess selects how a vector engine obtains the Hessian of 𝐯·𝑭(𝐱).
type VHess struct {
	kind   strategyKind
	fn     func(x, v []float64) matrix.Matrix
	method numdiff.Method
	update quasi.Update
}

// VHessFunc selects an analytic Hessian-vector callable.
func VHessFunc(fn func(x, v []float64) matrix.Matrix) VHess {
	return VHess{kind: strategyFunc, fn: fn}
}

// VHessApprox selects finite-difference Hessian estimation by
// differencing 𝐱 ↦ 𝑱(𝐱)ᵀ𝐯. The result is a lazy linear operator.
func VHessApprox(method numdiff.Method) VHess {
	return VHess{kind: strategyApprox, method: method}
}

// VHessUpdate selects a quasi-Newton secant approximation.
func VHessUpdate(u quasi.Update) VHess {
	return VHess{kind: strategyUpdate, update: u}
}

// Storage pins the matrix representation of a Jacobian.
type Storage int

const (
	// AutoStorage adopts the representation of the first computed value.
	AutoStorage Storage = iota
	// DenseStorage forces a dense representation.
	DenseStorage
	// SparseStorage forces a compressed sparse row representation.
	SparseStorage
)

func validMethod(m numdiff.Method) bool {
	return m == numdiff.Forward || m == numdiff.Central || m == numdiff.Complex
}
