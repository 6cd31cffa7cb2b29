// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package objective

import (
	"errors"
	"math"
	"slices"

	"github.com/curioloop/deriv/matrix"
	"github.com/curioloop/deriv/numdiff"
	"github.com/curioloop/deriv/quasi"
)

// ScalarSpec specifies a scalar objective 𝒇(𝐱) : ℝⁿ → ℝ
// and the strategies for its first and second derivatives.
type ScalarSpec struct {
	// The objective function.
	Fun func(x []float64) float64
	// Complex continuation of Fun, required by the Complex difference method.
	ComplexFun func(x []complex128) complex128
	// The initial point of length n. The engine keeps a private copy.
	X0 []float64
	// Gradient strategy: analytic callable or finite differences.
	Grad Grad
	// Hessian strategy: analytic callable, finite differences or
	// quasi-Newton update. Finite differences for both the gradient
	// and the Hessian at once is rejected: differencing an already
	// differenced gradient is numerically unstable.
	Hess Hess
	// Finite difference step configuration (see numdiff.ApproxSpec).
	RelStep, AbsStep float64
	// Optional bounds limiting the range of probe evaluation.
	Bounds []numdiff.Bound
	// Optional parallel map for finite-difference probing.
	Workers numdiff.Workers
	// Optional evaluation logger.
	Logger *Logger
}

// Scalar memoizes a scalar function and its derivatives.
//
// The engine stores one current point. Requesting any quantity at a new
// point invalidates every cached quantity; requesting at the cached point
// reuses whatever has already been computed. All accessors return owned
// values, except Hessians represented as linear operators which are
// shared read-only handles.
//
// A Scalar is not safe for concurrent use.
type Scalar struct {
	fun    func(x []float64) float64
	grad   Grad
	hess   Hess
	logger *Logger

	n int
	x []float64
	f float64
	g []float64
	h matrix.Matrix

	fUpdated, gUpdated, hUpdated bool

	// secant bookkeeping, only when hess is a quasi-Newton update
	xPrev, gPrev []float64

	nfev, ngev, nhev int

	lowestF float64
	lowestX []float64

	hRep   repKind
	fdGrad numdiff.ApproxSpec
	fdHess numdiff.ApproxSpec
}

type repKind int

const (
	repDense repKind = iota
	repSparse
	repOperator
)

// New validates the spec and creates the engine.
// The objective (and its gradient, when the strategies demand it)
// is evaluated once at X0 and counted.
func (s *ScalarSpec) New() (engine *Scalar, err error) {

	n := len(s.X0)

	switch {
	case s.Fun == nil:
		err = errors.New("objective function is required")
	case n == 0:
		err = errors.New("initial point is required")
	}

	switch s.Grad.kind {
	case strategyFunc:
		if s.Grad.fn == nil {
			err = errors.New("gradient callable is required")
		}
	case strategyApprox:
		if !validMethod(s.Grad.method) {
			err = errors.New("unknown gradient method")
		} else if s.Grad.method == numdiff.Complex && s.ComplexFun == nil {
			err = errors.New("complex objective function is required")
		}
	default:
		err = errors.New("gradient strategy is required")
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
		} else if s.Grad.kind == strategyApprox {
			err = errors.New("gradient and hessian must not both use finite differences")
		}
	case strategyUpdate:
		if s.Hess.update == nil {
			err = errors.New("hessian update strategy is required")
		}
	default:
		err = errors.New("hessian strategy is required")
	}

	if err != nil {
		return
	}

	e := &Scalar{
		fun:     s.Fun,
		grad:    s.Grad,
		hess:    s.Hess,
		logger:  normLogger(s.Logger),
		n:       n,
		x:       slices.Repeat(s.X0, 1),
		lowestF: math.Inf(1),
	}

	if s.Grad.kind == strategyApprox {
		e.fdGrad = numdiff.ApproxSpec{
			N: n, M: 1,
			Object: func(x, y []float64) {
				y[0] = e.fun(slices.Repeat(x, 1))
			},
			Method:  s.Grad.method,
			RelStep: s.RelStep,
			AbsStep: s.AbsStep,
			Workers: s.Workers,
		}
		if len(s.Bounds) > 0 {
			e.fdGrad.Bounds = slices.Repeat(s.Bounds, 1)
		}
		if s.ComplexFun != nil {
			cfun := s.ComplexFun
			e.fdGrad.ComplexObject = func(x, y []complex128) {
				y[0] = cfun(slices.Repeat(x, 1))
			}
		}
		if err = e.fdGrad.Check(e.x, nil); err != nil {
			return nil, err
		}
	}

	if s.Hess.kind == strategyApprox {
		e.fdHess = numdiff.ApproxSpec{
			N: n, M: n,
			Object: func(x, y []float64) {
				copy(y, e.grad.fn(slices.Repeat(x, 1)))
				e.ngev++
			},
			Method:  s.Hess.method,
			RelStep: s.RelStep,
			AbsStep: s.AbsStep,
		}
	}

	// initial evaluation at x0
	e.updateFun()
	e.updateGrad()

	switch s.Hess.kind {
	case strategyUpdate:
		if err = s.Hess.update.Init(n, quasi.Hess); err != nil {
			return nil, err
		}
		e.hUpdated = true
	case strategyFunc:
		h := s.Hess.fn(slices.Repeat(e.x, 1))
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

func detectRep(h matrix.Matrix) repKind {
	switch h.(type) {
	case *matrix.Operator:
		return repOperator
	case *matrix.CSR:
		return repSparse
	default:
		return repDense
	}
}

// normRep pins a derivative value to the representation chosen at
// construction, copying so the engine owns the stored value.
func normRep(h matrix.Matrix, rep repKind) matrix.Matrix {
	switch rep {
	case repOperator:
		return h
	case repSparse:
		if c, ok := h.(*matrix.CSR); ok {
			return c.Clone()
		}
		return matrix.CSRFromDense(h.ToDense())
	default:
		if c, ok := h.(*matrix.CSR); ok {
			return c.ToDense()
		}
		return h.ToDense().Clone()
	}
}

// updateX moves the engine to a new point, invalidating every cache.
// With a quasi-Newton Hessian the previous point and gradient are
// snapshotted first and the new gradient and Hessian are recomputed
// eagerly, so the secant pair is never lost.
func (e *Scalar) updateX(x []float64) {
	if len(x) != e.n {
		panic("point dimension not match spec")
	}
	if log := e.logger; log.enable(LogTrace) {
		log.log("move to new point, cache invalidated\n")
	}
	if e.hess.kind == strategyUpdate {
		e.updateGrad()
		e.xPrev, e.gPrev = e.x, e.g
		e.x = slices.Repeat(x, 1)
		e.fUpdated, e.gUpdated, e.hUpdated = false, false, false
		e.updateHess()
	} else {
		e.x = slices.Repeat(x, 1)
		e.fUpdated, e.gUpdated, e.hUpdated = false, false, false
	}
}

func (e *Scalar) updateFun() {
	if e.fUpdated {
		return
	}
	f := e.fun(slices.Repeat(e.x, 1))
	e.nfev++
	if f < e.lowestF {
		e.lowestF = f
		e.lowestX = slices.Repeat(e.x, 1)
	}
	e.f = f
	e.fUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval f = %12.5e (nfev=%d)\n", f, e.nfev)
	}
}

func (e *Scalar) updateGrad() {
	if e.gUpdated {
		return
	}
	if e.grad.kind == strategyApprox {
		// the base value feeds the difference scheme
		e.updateFun()
		g := make([]float64, e.n)
		e.fdGrad.F0 = []float64{e.f}
		nfev, err := e.fdGrad.Diff(e.x, g)
		if err != nil {
			panic(err)
		}
		e.nfev += nfev
		e.g = g
	} else {
		g := e.grad.fn(slices.Repeat(e.x, 1))
		if len(g) != e.n {
			panic("gradient dimension not match spec")
		}
		e.g = slices.Repeat(g, 1)
	}
	e.ngev++
	e.gUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval grad (ngev=%d, nfev=%d)\n", e.ngev, e.nfev)
	}
}

func (e *Scalar) updateHess() {
	if e.hUpdated {
		return
	}
	switch e.hess.kind {
	case strategyApprox:
		e.updateGrad()
		op, err := e.fdHess.DiffOperator(e.x, e.g, nil)
		if err != nil {
			panic(err)
		}
		e.h = matrix.NewSymOperator(e.n, op.MulVec)
	case strategyUpdate:
		e.updateGrad()
		if e.xPrev != nil && e.gPrev != nil {
			dx := make([]float64, e.n)
			dg := make([]float64, e.n)
			for i := range dx {
				dx[i] = e.x[i] - e.xPrev[i]
				dg[i] = e.g[i] - e.gPrev[i]
			}
			e.hess.update.Update(dx, dg)
		}
	case strategyFunc:
		h := e.hess.fn(slices.Repeat(e.x, 1))
		e.nhev++
		e.h = normRep(h, e.hRep)
	}
	e.hUpdated = true
	if log := e.logger; log.enable(LogEval) {
		log.log("eval hess (nhev=%d)\n", e.nhev)
	}
}

// Fun evaluates 𝒇(𝐱), reusing the cache when x is the current point.
func (e *Scalar) Fun(x []float64) float64 {
	if !slices.Equal(x, e.x) {
		e.updateX(x)
	}
	e.updateFun()
	return e.f
}

// Grad evaluates ∇𝒇(𝐱) and returns an owned copy.
// With a finite-difference strategy the function cache is filled first,
// so the base value of the difference scheme is never computed twice.
func (e *Scalar) Grad(x []float64) []float64 {
	if !slices.Equal(x, e.x) {
		e.updateX(x)
	}
	e.updateGrad()
	return slices.Repeat(e.g, 1)
}

// Hess evaluates ∇²𝒇(𝐱). Dense and sparse results are owned copies,
// linear-operator results are shared read-only handles.
func (e *Scalar) Hess(x []float64) matrix.Matrix {
	if !slices.Equal(x, e.x) {
		e.updateX(x)
	}
	e.updateHess()
	return e.hessValue()
}

func (e *Scalar) hessValue() matrix.Matrix {
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

// FunGrad evaluates 𝒇(𝐱) and ∇𝒇(𝐱) together without double counting
// quantities already cached.
func (e *Scalar) FunGrad(x []float64) (float64, []float64) {
	if !slices.Equal(x, e.x) {
		e.updateX(x)
	}
	e.updateFun()
	e.updateGrad()
	return e.f, slices.Repeat(e.g, 1)
}

// Evals reports the running evaluation counts.
func (e *Scalar) Evals() Evals {
	return Evals{Fun: e.nfev, Grad: e.ngev, Hess: e.nhev}
}

// Lowest reports the lowest function value observed so far and its point.
func (e *Scalar) Lowest() (x []float64, f float64) {
	return slices.Repeat(e.lowestX, 1), e.lowestF
}

// Dim reports the problem dimension n.
func (e *Scalar) Dim() int { return e.n }
