// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"
	"slices"

	"github.com/curioloop/deriv/matrix"
	"github.com/curioloop/deriv/numdiff"
	"github.com/curioloop/deriv/quasi"
)

// VectorSpec specifies a vector objective 𝑭(𝐱) : ℝⁿ → ℝᵐ
// and the strategies for its Jacobian and the Hessian of 𝐯·𝑭(𝐱).
type VectorSpec struct {
	// The objective function, storing 𝑭(𝐱) into an m-vector y.
	Fun func(x, y []float64)
	// Complex continuation of Fun, required by the Complex difference method.
	ComplexFun func(x, y []complex128)
	// The output dimension m.
	M int
	// The initial point of length n. The engine keeps a private copy.
	X0 []float64
	// Jacobian strategy: analytic callable or finite differences.
	Jac Jac
	// Strategy for the Hessian of 𝐯·𝑭(𝐱): analytic callable, finite
	// differences or quasi-Newton update. Finite differences for both
	// the Jacobian and the Hessian at once is rejected.
	Hess VHess
	// Finite difference step configuration (see numdiff.ApproxSpec).
	RelStep, AbsStep float64
	// Optional bounds limiting the range of function evaluation.
	Bounds []numdiff.Bound
	// Optional sparsity structure of the Jacobian, enabling grouped
	// finite differencing. Only meaningful with a finite-difference
	// Jacobian strategy.
	Sparsity *numdiff.Pattern
	// Storage pins the Jacobian representation. AutoStorage adopts the
	// representation of the initial value.
	Storage Storage
	// Optional parallel map for finite-difference probing.
	Workers numdiff.Workers
	// Optional evaluation logger.
	Logger *Logger
}

// Vector memoizes a vector function, its Jacobian and the Hessian
// of the scalar product 𝐯·𝑭(𝐱).
//
// The engine stores one current point and one current multiplier 𝐯.
// The Hessian cache is keyed on both: changing 𝐯 invalidates only the
// Hessian, changing 𝐱 invalidates everything. The Jacobian
// representation is fixed by the initial value and every later value
// is converted to it.
//
// A Vector is not safe for concurrent use.
type Vector struct {
	fun    func(x, y []float64)
	jac    Jac
	hess   VHess
	logger *Logger

	n, m int
	x, f []float64
	v    []float64
	j, h matrix.Matrix

	fUpdated, jUpdated, hUpdated bool

	// secant bookkeeping, only when hess is a quasi-Newton update
	xPrev []float64
	jPrev matrix.Matrix

	nfev, njev, nhev int

	jRep, hRep repKind
	fdJac      numdiff.ApproxSpec
	fdHess     numdiff.ApproxSpec
}

// New validates the spec and creates the engine. The function and its
// Jacobian are evaluated once at X0 and counted; the Hessian strategy
// is primed with the zero multiplier.
func (s *VectorSpec) New() (engine *Vector, err error) {

	n, m := len(s.X0), s.M

	switch {
	case s.Fun == nil:
		err = errors.New("objective function is required")
	case n == 0:
		err = errors.New("initial point is required")
	case m <= 0:
		err = errors.New("output dimension is required")
	}

	switch s.Jac.kind {
	case strategyFunc:
		if s.Jac.fn == nil {
			err = errors.New("jacobian callable is required")
		}
	case strategyApprox:
		if !validMethod(s.Jac.method) {
			err = errors.New("unknown jacobian method")
		} else if s.Jac.method == numdiff.Complex && s.ComplexFun == nil {
			err = errors.New("complex objective function is required")
		}
	default:
		err = errors.New("jacobian strategy is required")
	}

	switch s.Hess.kind {
	case strategyFunc:
		if s.Hess.fn == nil {
			err = errors.New("hessian callable is required")
		}
	case strategyApprox:
		if !validMethod(s.Hess.method) {
			err = errors.New("unknown hessian method")
		} else if s.Hess.method == numdiff.Complex {
			err = errors.New("complex method not supported for hessian estimation")
		} else if s.Jac.kind == strategyApprox {
			err = errors.New("jacobian and hessian must not both use finite differences")
		}
	case strategyUpdate:
		if s.Hess.update == nil {
			err = errors.New("hessian update strategy is required")
		}
	default:
		err = errors.New("hessian strategy is required")
	}

	if s.Sparsity != nil && s.Jac.kind != strategyApprox && err == nil {
		err = errors.New("sparsity requires a finite-difference jacobian")
	}

	if err != nil {
		return
	}

	e := &Vector{
		fun:    s.Fun,
		jac:    s.Jac,
		hess:   s.Hess,
		logger: normLogger(s.Logger),
		n:      n, m: m,
		x: slices.Repeat(s.X0, 1),
		v: make([]float64, m),
	}

	if s.Jac.kind == strategyApprox {
		e.fdJac = numdiff.ApproxSpec{
			N: n, M: m,
			Object: func(x, y []float64) {
				e.fun(slices.Repeat(x, 1), y)
			},
			Method:   s.Jac.method,
			RelStep:  s.RelStep,
			AbsStep:  s.AbsStep,
			Workers:  s.Workers,
			Sparsity: s.Sparsity,
		}
		if len(s.Bounds) > 0 {
			e.fdJac.Bounds = slices.Repeat(s.Bounds, 1)
		}
		if s.ComplexFun != nil {
			cfun := s.ComplexFun
			e.fdJac.ComplexObject = func(x, y []complex128) {
				cfun(slices.Repeat(x, 1), y)
			}
		}
		if err = e.fdJac.Check(e.x, nil); err != nil {
			return nil, err
		}
	}

	if s.Hess.kind == strategyApprox {
		e.fdHess = numdiff.ApproxSpec{
			N: n, M: n,
			Method:  s.Hess.method,
			RelStep: s.RelStep,
			AbsStep: s.AbsStep,
		}
	}

	// initial evaluation at x0
	e.updateFun()
	if err = e.initJac(s.Storage); err != nil {
		return nil, err
	}

	switch s.Hess.kind {
	case strategyUpdate:
		if err = s.Hess.update.Init(n, quasi.Hess); err != nil {
			return nil, err
		}
		e.hUpdated = true
	case strategyFunc:
		h := s.Hess.fn(slices.Repeat(e.x, 1), slices.Repeat(e.v, 1))
		e.nhev++
		e.hRep = detectRep(h)
		e.h = normRep(h, e.hRep)
		e.hUpdated = true
	case strategyApprox:
		e.hRep = repOperator
		e.updateHess()
	}

	return e, nil
}

// initJac evaluates the Jacobian at x0 and fixes its representation
// for the lifetime of the engine.
func (e *Vector) initJac(storage Storage) error {
	var j0 matrix.Matrix
	if e.jac.kind == strategyApprox {
		var err error
		if j0, err = e.diffJac(); err != nil {
			return err
		}
	} else {
		j0 = e.jac.fn(slices.Repeat(e.x, 1))
		e.njev++
		if jm, jn := j0.Dims(); jm != e.m || jn != e.n {
			return errors.New("invalid jacobian dimensions")
		}
	}

	switch storage {
	case AutoStorage:
		e.jRep = detectRep(j0)
	case DenseStorage:
		e.jRep = repDense
		if _, ok := j0.(*matrix.Operator); ok {
			// an operator exposes no elements to densify cheaply
			e.jRep = repOperator
		}
	case SparseStorage:
		if _, ok := j0.(*matrix.Operator); ok {
			return errors.New("operator jacobian cannot use sparse storage")
		}
		e.jRep = repSparse
	}
	e.j = normRep(j0, e.jRep)
	e.jUpdated = true
	return nil
}

// diffJac estimates the Jacobian by finite differences, reusing the
// cached function value as the base and folding the probe cost into
// the function evaluation count.
func (e *Vector) diffJac() (matrix.Matrix, error) {
	e.fdJac.F0 = e.f
	if e.fdJac.Sparsity != nil {
		j, nfev, err := e.fdJac.DiffSparse(e.x)
		if err != nil {
			return nil, err
		}
		e.nfev += nfev
		return j, nil
	}
	df := make([]float64, e.n*e.m)
	nfev, err := e.fdJac.Diff(e.x, df)
	if err != nil {
		return nil, err
	}
	e.nfev += nfev
	return matrix.NewDense(e.m, e.n, df), nil
}

// updateV swaps in a new multiplier, invalidating only the Hessian.
func (e *Vector) updateV(v []float64) {
	if len(v) != e.m {
		panic("multiplier dimension not match spec")
	}
	if !slices.Equal(v, e.v) {
		e.v = slices.Repeat(v, 1)
		e.hUpdated = false
		if log := e.logger; log.enable(LogTrace) {
			log.log("new multiplier, hessian cache invalidated\n")
		}
	}
}

// updateX moves the engine to a new point, invalidating every cache.
// With a quasi-Newton Hessian the previous point and Jacobian are
// snapshotted first and the new Jacobian and Hessian are recomputed
// eagerly, so the secant pair is never lost.
func (e *Vector) updateX(x []float64) {
	if len(x) != e.n {
		panic("point dimension not match spec")
	}
	if slices.Equal(x, e.x) {
		return
	}
	if log := e.logger; log.enable(LogTrace) {
		log.log("move to new point, cache invalidated\n")
	}
	if e.hess.kind == strategyUpdate {
		e.updateJac()
		e.xPrev, e.jPrev = e.x, e.j
		e.x = slices.Repeat(x, 1)
		e.fUpdated, e.jUpdated, e.hUpdated = false, false, false
		e.updateHess()
	} else {
		e.x = slices.Repeat(x, 1)
		e.fUpdated, e.jUpdated, e.hUpdated = false, false, false
	}
}

func (e *Vector) updateFun() {
	if e.fUpdated {
		return
	}
	f := make([]float64, e.m)
	e.fun(slices.Repeat(e.x, 1), f)
	e.nfev++
	e.f = f
	e.fUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval fun (nfev=%d)\n", e.nfev)
	}
}

func (e *Vector) updateJac() {
	if e.jUpdated {
		return
	}
	if e.jac.kind == strategyApprox {
		// the base value feeds the difference scheme
		e.updateFun()
		j, err := e.diffJac()
		if err != nil {
			panic(err)
		}
		e.j = normRep(j, e.jRep)
	} else {
		j := e.jac.fn(slices.Repeat(e.x, 1))
		e.njev++
		if jm, jn := j.Dims(); jm != e.m || jn != e.n {
			panic("jacobian dimension not match spec")
		}
		e.j = normRep(j, e.jRep)
	}
	e.jUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval jac (njev=%d, nfev=%d)\n", e.njev, e.nfev)
	}
}

func (e *Vector) updateHess() {
	if e.hUpdated {
		return
	}
	switch e.hess.kind {
	case strategyApprox:
		e.updateJac()
		// the lazy operator differences 𝐱 ↦ 𝑱(𝐱)ᵀ𝐯 at a private
		// snapshot of 𝐯, so an old handle never sees a newer multiplier
		hv := slices.Repeat(e.v, 1)
		e.fdHess.Object = func(x, y []float64) {
			j := e.jac.fn(slices.Repeat(x, 1))
			e.njev++
			j.MulVecTrans(hv, y)
		}
		g0 := make([]float64, e.n)
		e.j.MulVecTrans(e.v, g0)
		op, err := e.fdHess.DiffOperator(e.x, g0, nil)
		if err != nil {
			panic(err)
		}
		e.h = matrix.NewSymOperator(e.n, op.MulVec)
	case strategyUpdate:
		e.updateJac()
		// v updated before x leaves the previous pair empty on the
		// very first move, nothing to fold then
		if e.xPrev != nil && e.jPrev != nil {
			dx := make([]float64, e.n)
			for i := range dx {
				dx[i] = e.x[i] - e.xPrev[i]
			}
			dg := make([]float64, e.n)
			gp := make([]float64, e.n)
			e.j.MulVecTrans(e.v, dg)
			e.jPrev.MulVecTrans(e.v, gp)
			for i := range dg {
				dg[i] -= gp[i]
			}
			e.hess.update.Update(dx, dg)
		}
	case strategyFunc:
		h := e.hess.fn(slices.Repeat(e.x, 1), slices.Repeat(e.v, 1))
		e.nhev++
		e.h = normRep(h, e.hRep)
	}
	e.hUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval hess (nhev=%d)\n", e.nhev)
	}
}

// Fun evaluates 𝑭(𝐱) and returns an owned copy,
// reusing the cache when x is the current point.
func (e *Vector) Fun(x []float64) []float64 {
	e.updateX(x)
	e.updateFun()
	return slices.Repeat(e.f, 1)
}

// Jac evaluates 𝑱(𝐱) = 𝑭′(𝐱) in the representation fixed at
// construction. Dense and sparse results are owned copies,
// linear-operator results are shared read-only handles.
func (e *Vector) Jac(x []float64) matrix.Matrix {
	e.updateX(x)
	e.updateJac()
	switch j := e.j.(type) {
	case *matrix.Dense:
		return j.Clone()
	case *matrix.CSR:
		return j.Clone()
	default:
		return e.j
	}
}

// Hess evaluates the Hessian of 𝐯·𝑭(𝐱). The multiplier is folded in
// before the point so a simultaneous change of both invalidates
// consistently. Dense and sparse results are owned copies,
// linear-operator results are shared read-only handles.
func (e *Vector) Hess(x, v []float64) matrix.Matrix {
	// v must be folded in before x so a quasi-Newton update sees the
	// new multiplier against both Jacobian snapshots
	e.updateV(v)
	e.updateX(x)
	e.updateHess()
	if e.hess.kind == strategyUpdate {
		return e.hess.update.Matrix()
	}
	switch h := e.h.(type) {
	case *matrix.Dense:
		return h.Clone()
	case *matrix.CSR:
		return h.Clone()
	default:
		return e.h
	}
}

// Evals reports the running evaluation counts,
// with Grad holding the Jacobian count.
func (e *Vector) Evals() Evals {
	return Evals{Fun: e.nfev, Grad: e.njev, Hess: e.nhev}
}

// SparseJac reports whether the Jacobian representation
// fixed at construction is sparse.
func (e *Vector) SparseJac() bool { return e.jRep == repSparse }

// Dims reports the output and input dimensions m and n.
func (e *Vector) Dims() (m, n int) { return e.m, e.n }
