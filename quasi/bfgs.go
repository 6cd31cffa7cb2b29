// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package quasi

// ExceptionStrategy defines how BFGS reacts when the curvature
// condition wᵀz > 0 breaks down and the plain update would lose
// positive definiteness.
type ExceptionStrategy int

const (
	// Skip drops the offending update entirely.
	Skip ExceptionStrategy = iota
	// Damp interpolates Δg towards B·Δx (Powell damping) until the
	// curvature condition holds again.
	Damp
)

// BFGS approximates a Hessian with the
// Broyden-Fletcher-Goldfarb-Shanno secant formula:
//
//	B ← B - (B·s)(B·s)ᵀ/sᵀBs + yyᵀ/yᵀs
//
// The inverse form is obtained by swapping the roles of s and y.
// The zero value is ready for Init with Skip behaviour.
type BFGS struct {
	symDense
	// Exception chooses the reaction to a failed curvature condition.
	Exception ExceptionStrategy
	// MinCurvature is the threshold below which wᵀz/wᵀBw triggers the
	// exception strategy. Zero selects 1e-8 for Skip and 0.2 for Damp.
	MinCurvature float64
}

// Update folds a step Δx and gradient change Δg into the approximation.
// Updates whose curvature falls below the threshold are skipped or damped,
// never applied raw: a raw update with wᵀz ≤ 0 would break positive
// definiteness of the whole approximation.
func (u *BFGS) Update(dx, dg []float64) {
	if !u.prepare(dx, dg) {
		return
	}
	w, z := u.orient(dx, dg)

	minCurv := u.MinCurvature
	if minCurv == 0 {
		if u.Exception == Damp {
			minCurv = 0.2
		} else {
			minCurv = 1e-8
		}
	}

	wz := dotv(w, z)
	mw := u.Dot(w)
	wmw := dotv(w, mw)

	if wz < minCurv*wmw {
		if u.Exception != Damp {
			return
		}
		// Powell damping: z ← φz + (1-φ)Bw with φ chosen so that
		// the damped curvature equals the minimum allowed.
		// The caller owns dx and dg, so the damped z is a fresh slice.
		phi := (1 - minCurv) / (1 - wz/wmw)
		zd := make([]float64, len(z))
		for i := range z {
			zd[i] = phi*z[i] + (1-phi)*mw[i]
		}
		z = zd
		wz = dotv(w, z)
	}

	u.syr(-1/wmw, mw)
	u.syr(1/wz, z)
}
