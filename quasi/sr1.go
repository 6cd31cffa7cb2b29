// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quasi

import "math"

// SR1 approximates a Hessian with the symmetric rank-1 secant formula:
//
//	B ← B + (y - B·s)(y - B·s)ᵀ / sᵀ(y - B·s)
//
// Unlike BFGS it does not preserve positive definiteness, which makes it
// a better model of an indefinite Hessian inside trust-region methods.
// The zero value is ready for Init.
type SR1 struct {
	symDense
	// MinDenominator is the relative threshold below which an update is
	// skipped as numerically meaningless. Zero selects 1e-8.
	MinDenominator float64
}

// Update folds a step Δx and gradient change Δg into the approximation.
// An update whose denominator sᵀ(y - B·s) nearly vanishes is skipped.
func (u *SR1) Update(dx, dg []float64) {
	if !u.prepare(dx, dg) {
		return
	}
	w, z := u.orient(dx, dg)

	minDen := u.MinDenominator
	if minDen == 0 {
		minDen = 1e-8
	}

	mw := u.Dot(w)
	for i, v := range z {
		mw[i] = v - mw[i] // z - B·w
	}
	denom := dotv(w, mw)
	if math.Abs(denom) <= minDen*nrm2(w)*nrm2(mw) {
		return
	}
	u.syr(1/denom, mw)
}
