package numdiff

import (
	"errors"
	"math"
	"slices"
)

var sqrtEps = math.Sqrt(math.Nextafter(1, 2) - 1)
var cubeEps = math.Pow(math.Nextafter(1, 2)-1, float64(1)/3)

type Method int

const (
	// Forward use the first order accuracy forward difference.
	Forward Method = iota
	// Central use central difference in interior points and the second order accuracy
	// forward or backward difference near the boundary.
	Central
	// Complex use the complex-step derivative of a complex continuation of the object.
	// It reaches machine precision but requires ComplexObject to be analytic.
	Complex
)

type Bound [2]float64

// ApproxSpec represents a numerical differentiation algorithms to estimate the derivative of a mathematical function.
//
// Every differentiation reports the number of underlying function evaluations it consumed,
// so a caller keeping evaluation statistics can fold the cost of derivative probing into
// its primary evaluation count.
//
// # Reference:
//
//   - https://en.wikipedia.org/wiki/Finite_difference
//   - https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py
//
// # License
//
//   - https://github.com/scipy/scipy/blob/main/LICENSE.txt
type ApproxSpec struct {
	N, M int
	// Function of which to estimate the derivatives.
	// The argument x passed to this function is an n-vector.
	// The result is store in an m-vector y.
	Object func(x, y []float64)
	// Complex continuation of Object, required by the Complex method
	// and ignored otherwise.
	ComplexObject func(x, y []complex128)
	// Finite difference method to use.
	Method Method
	// Lower and upper bounds on independent variables.
	// Use it to limit the range of function evaluation.
	// Bounds have no effect on the Complex method.
	Bounds []Bound
	// Relative step size used to compute absolute step size.
	// The default absolute step size is computed as h = RelStep * sign(x0) * max(1, abs(x0)) with RelStep being selected automatically.
	// Otherwise, absolute step size is computed as h = RelStep * sign(x0) * abs(x0) when RelStep is provided.
	RelStep float64
	// Absolute step size to use, possibly adjusted to fit into the bounds.
	// The RelStep is used when AbsStep is not provide.
	// For Central method the sign of AbsStep is ignored.
	AbsStep float64
	// Already computed Object(x0) of length m.
	// When present the base evaluation is reused instead of recomputed,
	// and is not charged to the consumed evaluation count.
	F0 []float64
	// Don't check if x0 is out of bounds.
	NotChkBnd bool
	// Workers fans out independent probe evaluations.
	// A nil value means plain sequential evaluation.
	// The Complex method always evaluates sequentially.
	Workers Workers
	// Sparsity enables grouped differencing via DiffSparse.
	Sparsity *Pattern
	approxCtx
}

type approxCtx struct {
	f0      []float64
	absStep []float64
	oneSide []bool
}

// Check the parameters and initialize approxCtx.
// A nil diff skips the output dimension check (used by the sparse and operator paths).
func (as *ApproxSpec) Check(x0, diff []float64) (err error) {

	switch {
	case as.N <= 0 || as.M <= 0:
		err = errors.New("negative dimensions")
	case as.Method != Forward && as.Method != Central && as.Method != Complex:
		err = errors.New("unknown method")
	case as.Object == nil:
		err = errors.New("object function is required")
	case as.Method == Complex && as.ComplexObject == nil:
		err = errors.New("complex object function is required")
	case as.N != len(x0):
		return errors.New("invalid x0 dimensions")
	case diff != nil && as.N*as.M != len(diff):
		return errors.New("invalid diff dimensions")
	case as.F0 != nil && as.M != len(as.F0):
		return errors.New("invalid f0 dimensions")
	}

	if len(as.Bounds) > 0 && as.Method != Complex {
		if len(as.Bounds) != len(x0) {
			err = errors.New("invalid bound dimension")
		} else {
			for i := range as.Bounds {
				bound := &as.Bounds[i]
				if math.IsNaN(bound[0]) {
					bound[0] = math.Inf(-1)
				}
				if math.IsNaN(bound[1]) {
					bound[1] = math.Inf(1)
				}
				if bound[0] > bound[1] {
					err = errors.New("invalid bound range")
					break
				}
				if !as.NotChkBnd && (x0[i] < bound[0] || x0[i] > bound[1]) {
					err = errors.New("x0 violates bound constraints")
					break
				}
			}
		}
	}

	if len(as.f0) != as.M {
		as.f0 = make([]float64, as.M)
	}
	if len(as.absStep) != as.N {
		as.absStep = make([]float64, as.N)
	}
	side := 0
	if as.Method == Central {
		side = as.N
	}
	if len(as.oneSide) != side {
		as.oneSide = make([]bool, side)
	}
	return
}

// Diff calculate approximation of derivatives by finite differences.
// It returns the number of function evaluations consumed, including the
// base evaluation unless F0 was supplied.
func (as *ApproxSpec) Diff(x0, diff []float64) (nfev int, err error) {

	if err = as.Check(x0, diff); err != nil {
		return
	}

	if as.Method == Complex {
		return as.approxComplex(x0, diff)
	}

	bnd := false
	for _, bound := range as.Bounds {
		l, u := bound[0], bound[1]
		if bnd = !(math.IsInf(l, 0) && math.IsInf(u, 0)); bnd {
			break
		}
	}

	as.absoluteStep(x0)
	as.adjustToBounds(x0, bnd)

	nfev, err = as.baseValue(x0)
	if err != nil {
		return
	}

	var probes int
	if as.Method == Central {
		probes, err = as.approxCentral(x0, diff)
	} else {
		probes, err = as.approxForward(x0, diff)
	}
	nfev += probes
	return
}

// baseValue fills as.f0 from F0 or a fresh evaluation at x0.
func (as *ApproxSpec) baseValue(x0 []float64) (nfev int, err error) {
	if as.F0 != nil {
		copy(as.f0, as.F0)
		return 0, nil
	}
	as.Object(x0, as.f0)
	return 1, nil
}

// fanOut evaluates every probe point, through Workers when configured.
func (as *ApproxSpec) fanOut(xs, ys [][]float64) error {
	if w := as.Workers; w != nil {
		return w(as.Object, xs, ys)
	}
	for i := range xs {
		as.Object(xs[i], ys[i])
	}
	return nil
}

func (as *ApproxSpec) adjustToBounds(x0 []float64, bnd bool) {
	h, o := as.absStep, as.oneSide
	if as.Method == Central {
		for i, v := range h {
			h[i] = math.Abs(v)
		}
		for i := range o {
			o[i] = false
		}
	}

	if !bnd {
		return
	}

	b := as.Bounds
	if len(x0) != len(b) || len(x0) != len(h) {
		panic("bound check error")
	}

	if as.Method == Forward {
		for i, x0 := range x0 {
			lb, ub := b[i][0], b[i][1]
			ld, ud := x0-lb, ub-x0
			h0 := h[i]
			x := x0 + h0
			violated := x < lb || x > ub
			fitting := math.Abs(h[i]) < math.Max(ld, ud)
			if violated && fitting {
				h[i] = -h0
			} else if !fitting {
				if ud >= ld {
					h[i] = ud
				} else if ud < ld {
					h[i] = -ld
				}
			}
		}
	} else {
		if len(x0) != len(o) {
			panic("bound check error")
		}
		for i, x0 := range x0 {
			lb, ub := b[i][0], b[i][1]
			ld, ud := x0-lb, ub-x0
			central := ld >= h[i] && ud >= h[i]
			if !central {
				if ud >= ld {
					h[i] = math.Min(h[i], 0.5*ud)
					o[i] = true
				} else if ud < ld {
					h[i] = -math.Min(h[i], 0.5*ld)
					o[i] = true
				}
			}
			minDist := math.Min(ud, ld)
			adjCent := !central && math.Abs(h[i]) <= minDist
			if adjCent {
				h[i] = minDist
				o[i] = false
			}
		}
	}

}

func defaultEps(method Method) float64 {
	switch method {
	case Forward, Complex:
		return sqrtEps
	case Central:
		return cubeEps
	default:
		panic("unknown method")
	}
}

func (as *ApproxSpec) absoluteStep(x0 []float64) {
	h := as.absStep
	if len(h) != len(x0) {
		panic("bound check error")
	}

	eps := defaultEps(as.Method)

	abs := as.AbsStep
	rel := as.RelStep
	if abs == 0 && rel == 0 {
		for i, v := range x0 {
			h[i] = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
		}
	} else {
		for i, v := range x0 {
			s := abs
			if s == 0 {
				s = math.Copysign(rel, v) * math.Abs(v)
			}
			d := (v + s) - v
			if d == 0 {
				s = math.Copysign(eps, v) * math.Max(1.0, math.Abs(v))
			}
			h[i] = s
		}
	}
}

func (as *ApproxSpec) approxForward(x0, df []float64) (probes int, err error) {

	f0, h, n := as.f0, as.absStep, as.N
	if len(h) != len(x0) {
		panic("bound check error")
	}

	xs := make([][]float64, n)
	ys := make([][]float64, n)
	for i, s := range h {
		x := slices.Repeat(x0, 1)
		x[i] += s
		xs[i] = x
		ys[i] = make([]float64, as.M)
	}

	if err = as.fanOut(xs, ys); err != nil {
		return
	}

	for i, s := range h {
		d := 1.0 / s
		fx := ys[i]
		for j := range f0 {
			df[i+j*n] = (fx[j] - f0[j]) * d
		}
	}
	return n, nil
}

func (as *ApproxSpec) approxCentral(x0, df []float64) (probes int, err error) {

	f0, h, o, n := as.f0, as.absStep, as.oneSide, as.N
	if len(h) != len(x0) || len(h) != len(o) {
		panic("bound check error")
	}

	xs := make([][]float64, 2*n)
	ys := make([][]float64, 2*n)
	for i, s := range h {
		x1 := slices.Repeat(x0, 1)
		x2 := slices.Repeat(x0, 1)
		if o[i] {
			x1[i] += s
			x2[i] += 2 * s
		} else {
			x1[i] -= s
			x2[i] += s
		}
		xs[2*i], xs[2*i+1] = x1, x2
		ys[2*i] = make([]float64, as.M)
		ys[2*i+1] = make([]float64, as.M)
	}

	if err = as.fanOut(xs, ys); err != nil {
		return
	}

	for i, s := range h {
		d := 1.0 / (2 * s)
		f1, f2 := ys[2*i], ys[2*i+1]
		if o[i] {
			for j := range f0 {
				df[i+j*n] = (4*f1[j] - 3*f0[j] - f2[j]) * d
			}
		} else {
			for j := range f0 {
				df[i+j*n] = (f2[j] - f1[j]) * d
			}
		}
	}
	return 2 * n, nil
}

// approxComplex evaluates the complex continuation at x0 + i·h·eᵢ and reads
// the derivative off the imaginary part. No subtraction happens so the step
// needs no bound or cancellation adjustment.
func (as *ApproxSpec) approxComplex(x0, df []float64) (nfev int, err error) {

	n, m := as.N, as.M
	h := as.absStep
	eps := defaultEps(Complex)
	for i, v := range x0 {
		s := as.AbsStep
		if s == 0 && as.RelStep != 0 {
			s = as.RelStep * math.Abs(v)
		}
		if s == 0 {
			s = eps * math.Max(1.0, math.Abs(v))
		}
		h[i] = math.Abs(s)
	}

	z := make([]complex128, n)
	y := make([]complex128, m)
	for i, v := range x0 {
		z[i] = complex(v, 0)
	}

	for i, s := range h {
		z[i] = complex(x0[i], s)
		as.ComplexObject(z, y)
		d := 1.0 / s
		for j := range y {
			df[i+j*n] = imag(y[j]) * d
		}
		z[i] = complex(x0[i], 0)
	}
	return n, nil
}
