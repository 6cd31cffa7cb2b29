package numdiff

import (
	"math"
	"math/cmplx"
	"testing"
)

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativeLinearOperator)
func TestDiffOperator(t *testing.T) {

	x0 := []float64{0.7, -0.2}

	// entire functions keep the complex step at machine precision
	obj := func(x, y []float64) {
		y[0] = math.Sin(x[0]) * math.Exp(x[1])
		y[1] = x[0] * x[1]
		y[2] = math.Cosh(x[0]) + x[1]*x[1]
	}
	cobj := func(x, y []complex128) {
		y[0] = cmplx.Sin(x[0]) * cmplx.Exp(x[1])
		y[1] = x[0] * x[1]
		y[2] = cmplx.Cosh(x[0]) + x[1]*x[1]
	}

	f0 := make([]float64, 3)
	obj(x0, f0)

	jac0 := []float64{
		math.Cos(x0[0]) * math.Exp(x0[1]), math.Sin(x0[0]) * math.Exp(x0[1]),
		x0[1], x0[0],
		math.Sinh(x0[0]), 2 * x0[1],
	}
	matVec := func(p []float64) []float64 {
		y := make([]float64, 3)
		for i := 0; i < 3; i++ {
			y[i] = jac0[i*2]*p[0] + jac0[i*2+1]*p[1]
		}
		return y
	}

	probes := [][]float64{
		{1, 0},
		{0, 1},
		{1, -0.5},
		{-3.5, 2.2},
	}

	for method, tol := range map[Method]float64{
		Forward: 1e-6,
		Central: 1e-9,
		Complex: 1e-12,
	} {
		evals := 0
		as := ApproxSpec{N: 2, M: 3, Method: method, Object: obj, ComplexObject: cobj}
		op, err := as.DiffOperator(x0, f0, func(n int) { evals += n })
		if err != nil {
			t.Fatal("approx operator failed", err)
		}
		if m, n := op.Dims(); m != 3 || n != 2 {
			t.Fatal("unexpected operator dims")
		}

		y := make([]float64, 3)
		for _, p := range probes {
			op.MulVec(p, y)
			if !relativeEqual(y, matVec(p), tol) {
				t.Fatal("unexpected operator product")
			}
		}

		perProbe := 1
		if method == Central {
			perProbe = 2
		}
		if evals != perProbe*len(probes) {
			t.Fatal("unexpected eval count")
		}

		// zero direction costs nothing
		op.MulVec([]float64{0, 0}, y)
		if y[0] != 0 || y[1] != 0 || y[2] != 0 {
			t.Fatal("unexpected zero product")
		}
		if evals != perProbe*len(probes) {
			t.Fatal("unexpected eval count")
		}
	}

	// f0 must match the output dimension
	as := ApproxSpec{N: 2, M: 3, Method: Forward, Object: obj}
	if _, err := as.DiffOperator(x0, []float64{0}, nil); err == nil {
		t.Fatal("unexpected operator status")
	}

}
