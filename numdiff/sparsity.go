package numdiff

import (
	"errors"
	"math"
	"slices"

	"github.com/curioloop/deriv/matrix"
)

// Pattern describes the sparsity structure of an m×n Jacobian:
// which entries ∂Fᵢ/∂xⱼ may be structurally nonzero.
type Pattern struct {
	M, N   int
	mask   []bool // row-major m×n
	groups []int  // column grouping, computed lazily
}

// NewPattern creates an empty m×n sparsity pattern.
func NewPattern(m, n int) *Pattern {
	if m <= 0 || n <= 0 {
		panic("negative dimensions")
	}
	return &Pattern{M: m, N: n, mask: make([]bool, m*n)}
}

// Set marks ∂Fᵢ/∂xⱼ as structurally nonzero.
func (p *Pattern) Set(i, j int) {
	if uint(i) >= uint(p.M) || uint(j) >= uint(p.N) {
		panic("bound check error")
	}
	p.mask[i*p.N+j] = true
	p.groups = nil
}

// Has reports whether ∂Fᵢ/∂xⱼ is structurally nonzero.
func (p *Pattern) Has(i, j int) bool {
	if uint(i) >= uint(p.M) || uint(j) >= uint(p.N) {
		panic("bound check error")
	}
	return p.mask[i*p.N+j]
}

// GroupColumns greedily partitions columns into groups such that no two
// columns in a group share a structurally nonzero row. All columns of one
// group can then be perturbed simultaneously during finite differencing.
// The result maps each column to its group id.
//
// Case Sources : https://github.com/scipy/scipy/blob/main/scipy/optimize/_numdiff.py (group_columns)
func (p *Pattern) GroupColumns() []int {
	if p.groups != nil {
		return p.groups
	}

	m, n := p.M, p.N
	groups := make([]int, n)
	for j := range groups {
		groups[j] = -1
	}

	union := make([]bool, m)
	cur := 0
	for j := 0; j < n; j++ {
		if groups[j] >= 0 {
			continue
		}
		groups[j] = cur
		for i := 0; i < m; i++ {
			union[i] = p.mask[i*n+j]
		}
		for k := j + 1; k < n; k++ {
			if groups[k] >= 0 {
				continue
			}
			overlap := false
			for i := 0; i < m; i++ {
				if union[i] && p.mask[i*n+k] {
					overlap = true
					break
				}
			}
			if overlap {
				continue
			}
			groups[k] = cur
			for i := 0; i < m; i++ {
				union[i] = union[i] || p.mask[i*n+k]
			}
		}
		cur++
	}

	p.groups = groups
	return groups
}

func (p *Pattern) numGroups() int {
	ng := 0
	for _, g := range p.GroupColumns() {
		if g+1 > ng {
			ng = g + 1
		}
	}
	return ng
}

// DiffSparse calculate a sparse derivative approximation by grouped finite
// differences: each probe perturbs a whole column group at once, so the sweep
// costs one evaluation per group instead of one per variable.
// It returns the Jacobian in compressed sparse row form together with the
// number of function evaluations consumed.
func (as *ApproxSpec) DiffSparse(x0 []float64) (jac *matrix.CSR, nfev int, err error) {

	if err = as.Check(x0, nil); err != nil {
		return
	}

	p := as.Sparsity
	switch {
	case p == nil:
		return nil, 0, errors.New("sparsity pattern is required")
	case p.M != as.M || p.N != as.N:
		return nil, 0, errors.New("invalid sparsity dimensions")
	case as.Method == Complex:
		return nil, 0, errors.New("sparsity not supported by complex method")
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
		return nil, 0, err
	}

	groups := p.GroupColumns()
	ng := p.numGroups()
	h, o := as.absStep, as.oneSide

	perProbe := 1
	if as.Method == Central {
		perProbe = 2
	}

	xs := make([][]float64, perProbe*ng)
	ys := make([][]float64, perProbe*ng)
	for g := 0; g < ng; g++ {
		if as.Method == Forward {
			x := slices.Repeat(x0, 1)
			for j, gj := range groups {
				if gj == g {
					x[j] += h[j]
				}
			}
			xs[g] = x
			ys[g] = make([]float64, as.M)
		} else {
			x1 := slices.Repeat(x0, 1)
			x2 := slices.Repeat(x0, 1)
			for j, gj := range groups {
				if gj != g {
					continue
				}
				if o[j] {
					x1[j] += h[j]
					x2[j] += 2 * h[j]
				} else {
					x1[j] -= h[j]
					x2[j] += h[j]
				}
			}
			xs[2*g], xs[2*g+1] = x1, x2
			ys[2*g] = make([]float64, as.M)
			ys[2*g+1] = make([]float64, as.M)
		}
	}

	if err = as.fanOut(xs, ys); err != nil {
		return nil, 0, err
	}
	nfev += perProbe * ng

	var rows, cols []int
	var vals []float64
	for j, g := range groups {
		for i := 0; i < as.M; i++ {
			if !p.mask[i*as.N+j] {
				continue
			}
			var v float64
			if as.Method == Forward {
				v = (ys[g][i] - as.f0[i]) / h[j]
			} else {
				f1, f2 := ys[2*g], ys[2*g+1]
				d := 1.0 / (2 * h[j])
				if o[j] {
					v = (4*f1[i] - 3*as.f0[i] - f2[i]) * d
				} else {
					v = (f2[i] - f1[i]) * d
				}
			}
			rows = append(rows, i)
			cols = append(cols, j)
			vals = append(vals, v)
		}
	}

	return matrix.NewCSR(as.M, as.N, rows, cols, vals), nfev, nil
}
