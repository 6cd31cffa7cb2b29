// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package quasi provides quasi-Newton (secant) approximations to a Hessian,
// built incrementally from consecutive step and gradient-change pairs.
//
// # Reference:
//
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_hessian_update_strategy.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
package quasi

import (
	"errors"
	"math"

	"github.com/curioloop/deriv/matrix"
)

// Kind selects which operator a strategy approximates.
type Kind int

const (
	// Hess approximates the Hessian B ≈ ∇²f.
	Hess Kind = iota
	// InvHess approximates the inverse Hessian H ≈ (∇²f)⁻¹.
	InvHess
)

// Update is an incremental approximation to a Hessian (or its inverse).
// It never sees a point directly: it is advanced with Update(Δx, Δg)
// and queried for its current value.
type Update interface {
	// Init declares the problem dimension and the approximated kind.
	// It must be called once before any other method and resets the
	// approximation to the identity.
	Init(n int, kind Kind) error
	// Update folds a step Δx and the corresponding gradient change Δg
	// into the approximation.
	Update(dx, dg []float64)
	// Dot computes the product of the current approximation with p.
	Dot(p []float64) []float64
	// Matrix returns the current approximation as an owned dense copy.
	Matrix() *matrix.Dense
}

// symDense holds a dense symmetric approximation in a flat n×n slice.
// The very first Update rescales the initial identity from the observed
// curvature before applying the secant formula.
type symDense struct {
	n     int
	kind  Kind
	b     []float64
	first bool
}

func (d *symDense) Init(n int, kind Kind) error {
	switch {
	case n <= 0:
		return errors.New("dimension must greater than 0")
	case kind != Hess && kind != InvHess:
		return errors.New("unknown approximation kind")
	}
	d.n, d.kind = n, kind
	d.b = make([]float64, n*n)
	for i := 0; i < n; i++ {
		d.b[i*n+i] = 1
	}
	d.first = true
	return nil
}

// Dot computes the product of the current approximation with p.
func (d *symDense) Dot(p []float64) []float64 {
	if d.b == nil {
		panic("update not initialized")
	}
	if len(p) != d.n {
		panic("bound check error")
	}
	y := make([]float64, d.n)
	for i := 0; i < d.n; i++ {
		y[i] = dotv(d.b[i*d.n:i*d.n+d.n], p)
	}
	return y
}

// Matrix returns the current approximation as an owned dense copy.
func (d *symDense) Matrix() *matrix.Dense {
	if d.b == nil {
		panic("update not initialized")
	}
	return matrix.NewDense(d.n, d.n, d.b)
}

// orient returns the (w, z) pair ordered for the stored kind:
// the B and H forms of a secant formula are dual under swapping Δx and Δg.
func (d *symDense) orient(dx, dg []float64) (w, z []float64) {
	if d.kind == Hess {
		return dx, dg
	}
	return dg, dx
}

// autoScale replaces the initial identity with σI where σ is chosen so the
// first secant pair is reproduced as well as a multiple of the identity can.
func (d *symDense) autoScale(dx, dg []float64) {
	s2 := dotv(dx, dx)
	y2 := dotv(dg, dg)
	ys := math.Abs(dotv(dg, dx))

	scale := 1.0
	if ys != 0 && y2 != 0 && s2 != 0 {
		if d.kind == Hess {
			scale = y2 / ys
		} else {
			scale = ys / y2
		}
	}
	for i := 0; i < d.n; i++ {
		d.b[i*d.n+i] = scale
	}
}

// syr performs the symmetric rank-1 update B += α·vvᵀ.
func (d *symDense) syr(alpha float64, v []float64) {
	n := d.n
	if len(v) != n {
		panic("bound check error")
	}
	for i := 0; i < n; i++ {
		row := d.b[i*n : i*n+n]
		av := alpha * v[i]
		for j := 0; j < n; j++ {
			row[j] += av * v[j]
		}
	}
}

// prepare runs the shared pre-update steps and reports whether the
// secant formula should be applied at all.
func (d *symDense) prepare(dx, dg []float64) bool {
	if d.b == nil {
		panic("update not initialized")
	}
	if len(dx) != d.n || len(dg) != d.n {
		panic("bound check error")
	}
	if allZero(dx) || allZero(dg) {
		return false
	}
	if d.first {
		d.autoScale(dx, dg)
		d.first = false
	}
	return true
}

func dotv(a, b []float64) (dot float64) {
	if len(a) < len(b) {
		panic("bound check error")
	}
	for i, v := range b {
		dot += a[i] * v
	}
	return
}

func nrm2(x []float64) float64 {
	return math.Sqrt(dotv(x, x))
}

func allZero(x []float64) bool {
	for _, v := range x {
		if v != 0 {
			return false
		}
	}
	return true
}
