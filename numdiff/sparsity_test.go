package numdiff

import (
	"math"
	"slices"
	"testing"
)

// tridiagonal coupling: Fᵢ = xᵢ·(xᵢ₋₁ + xᵢ₊₁) with missing neighbours as zero
func objTri(x, y []float64) {
	n := len(x)
	for i := range y {
		var s float64
		if i > 0 {
			s += x[i-1]
		}
		if i < n-1 {
			s += x[i+1]
		}
		y[i] = x[i] * s
	}
}

func jacTri(x []float64) []float64 {
	n := len(x)
	jac := make([]float64, n*n)
	for i := 0; i < n; i++ {
		if i > 0 {
			jac[i*n+i] += x[i-1]
			jac[i*n+i-1] = x[i]
		}
		if i < n-1 {
			jac[i*n+i] += x[i+1]
			jac[i*n+i+1] = x[i]
		}
	}
	return jac
}

func triPattern(n int) *Pattern {
	p := NewPattern(n, n)
	for i := 0; i < n; i++ {
		p.Set(i, i)
		if i > 0 {
			p.Set(i, i-1)
		}
		if i < n-1 {
			p.Set(i, i+1)
		}
	}
	return p
}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py (test_group_columns)
func TestGroupColumns(t *testing.T) {

	p := NewPattern(5, 4)
	for _, ij := range [][2]int{
		{0, 3}, {1, 2}, {1, 3}, {2, 1}, {2, 2}, {3, 0}, {3, 1}, {4, 0},
	} {
		p.Set(ij[0], ij[1])
	}

	if !slices.Equal(p.GroupColumns(), []int{0, 1, 0, 1}) {
		t.Fatal("unexpected column groups")
	}

	// a tridiagonal structure needs three groups regardless of n
	p = triPattern(7)
	if !slices.Equal(p.GroupColumns(), []int{0, 1, 2, 0, 1, 2, 0}) {
		t.Fatal("unexpected column groups")
	}
	if p.numGroups() != 3 {
		t.Fatal("unexpected group count")
	}

}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativeSparse)
func TestDiffSparse(t *testing.T) {

	n := 6
	x0 := []float64{1.0, -0.5, 2.0, 0.3, -1.2, 0.8}
	jac0 := jacTri(x0)

	for method, tol := range map[Method]float64{
		Forward: 1e-5,
		Central: 1e-8,
	} {
		as := ApproxSpec{N: n, M: n, Method: method, Object: objTri, Sparsity: triPattern(n)}
		jac, nfev, err := as.DiffSparse(x0)
		if err != nil {
			t.Fatal("approx sparse failed", err)
		}

		probes := 3
		if method == Central {
			probes = 6
		}
		if nfev != 1+probes {
			t.Fatal("unexpected eval count")
		}

		dense := jac.ToDense()
		for i := 0; i < n; i++ {
			if !relativeEqual(dense.Row(i), jac0[i*n:(i+1)*n], tol) {
				t.Fatal("unexpected approx sparse result")
			}
		}
	}

	// the pattern must match the declared dimensions
	as := ApproxSpec{N: n, M: n, Method: Forward, Object: objTri, Sparsity: triPattern(n - 1)}
	if _, _, err := as.DiffSparse(x0); err == nil {
		t.Fatal("unexpected approx sparse status")
	}

	as = ApproxSpec{N: n, M: n, Method: Forward, Object: objTri}
	if _, _, err := as.DiffSparse(x0); err == nil {
		t.Fatal("unexpected approx sparse status")
	}

}

// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/tests/test__numdiff.py
// (TestApproxDerivativeSparse.test_with_bounds)
func TestDiffSparseBnd(t *testing.T) {

	n := 6
	x0 := []float64{1.0, -0.5, 2.0, 0.3, -1.2, 0.8}
	jac0 := jacTri(x0)

	bnd := make([]Bound, n)
	for i, v := range x0 {
		bnd[i] = Bound{v - 1e-9, v + math.Abs(v)}
	}

	as := ApproxSpec{N: n, M: n, Method: Central, Object: objTri,
		Sparsity: triPattern(n), Bounds: bnd}
	jac, _, err := as.DiffSparse(x0)
	if err != nil {
		t.Fatal("approx sparse failed", err)
	}

	dense := jac.ToDense()
	for i := 0; i < n; i++ {
		if !relativeEqual(dense.Row(i), jac0[i*n:(i+1)*n], 1e-5) {
			t.Fatal("unexpected approx sparse result")
		}
	}

}
