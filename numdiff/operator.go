package numdiff

import (
	"errors"
	"math"
	"slices"

	"github.com/curioloop/deriv/matrix"
)

// DiffOperator returns the derivative as a lazy linear operator: nothing is
// evaluated at build time, and each matrix-vector product performs a single
// directional difference of the object along the requested direction. No full
// derivative matrix is ever materialized.
//
// f0 must carry the already computed Object(x0) of length m. onEval, when not
// nil, is invoked with the number of function evaluations consumed by each
// product, so the owner can keep its counters accurate. The returned handle
// captures private copies of x0 and f0.
//
// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py (_linear_operator_difference)
func (as *ApproxSpec) DiffOperator(x0, f0 []float64, onEval func(evals int)) (*matrix.Operator, error) {

	if err := as.Check(x0, nil); err != nil {
		return nil, err
	}
	if len(f0) != as.M {
		return nil, errors.New("invalid f0 dimensions")
	}

	h := as.RelStep
	if h == 0 {
		h = defaultEps(as.Method)
	}

	n, m := as.N, as.M
	x := slices.Repeat(x0, 1)
	fb := slices.Repeat(f0, 1)
	obj, cobj := as.Object, as.ComplexObject
	method := as.Method
	if onEval == nil {
		onEval = func(int) {}
	}

	mv := func(p, y []float64) {
		norm := dnrm2(p)
		if norm == 0 {
			for j := range y {
				y[j] = 0
			}
			return
		}

		switch method {
		case Forward:
			dx := h / norm
			xt := make([]float64, n)
			for i, v := range x {
				xt[i] = v + dx*p[i]
			}
			obj(xt, y)
			onEval(1)
			d := 1.0 / dx
			for j := range y {
				y[j] = (y[j] - fb[j]) * d
			}
		case Central:
			dx := 2 * h / norm
			x1 := make([]float64, n)
			x2 := make([]float64, n)
			for i, v := range x {
				x1[i] = v - 0.5*dx*p[i]
				x2[i] = v + 0.5*dx*p[i]
			}
			f1 := make([]float64, m)
			obj(x1, f1)
			obj(x2, y)
			onEval(2)
			d := 1.0 / dx
			for j := range y {
				y[j] = (y[j] - f1[j]) * d
			}
		case Complex:
			dx := h / norm
			z := make([]complex128, n)
			fz := make([]complex128, m)
			for i, v := range x {
				z[i] = complex(v, dx*p[i])
			}
			cobj(z, fz)
			onEval(1)
			d := 1.0 / dx
			for j := range y {
				y[j] = imag(fz[j]) * d
			}
		}
	}

	return matrix.NewOperator(m, n, mv, nil), nil
}

// dnrm2 computes the Euclidean norm of a vector.
func dnrm2(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}
	return math.Sqrt(s)
}
