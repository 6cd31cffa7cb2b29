// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrix

import (
	"slices"
	"sort"
)

// CSR is an m×n matrix in compressed sparse row form.
type CSR struct {
	m, n    int
	indptr  []int // row pointers, len m+1
	indices []int // column indices of stored values
	data    []float64
}

// ZeroCSR creates an m×n sparse matrix with no stored values.
func ZeroCSR(m, n int) *CSR {
	if m <= 0 || n <= 0 {
		panic("negative dimensions")
	}
	return &CSR{m: m, n: n, indptr: make([]int, m+1)}
}

// EyeCSR creates the n×n sparse identity matrix.
func EyeCSR(n int) *CSR {
	c := ZeroCSR(n, n)
	c.indices = make([]int, n)
	c.data = make([]float64, n)
	for i := 0; i < n; i++ {
		c.indptr[i+1] = i + 1
		c.indices[i] = i
		c.data[i] = one
	}
	return c
}

// NewCSR builds an m×n sparse matrix from triplets.
// Duplicate entries are summed, entries within a row are kept column sorted.
func NewCSR(m, n int, rows, cols []int, vals []float64) *CSR {
	if m <= 0 || n <= 0 {
		panic("negative dimensions")
	}
	if len(rows) != len(cols) || len(rows) != len(vals) {
		panic("invalid triplet dimensions")
	}

	ord := make([]int, len(rows))
	for i := range ord {
		if uint(rows[i]) >= uint(m) || uint(cols[i]) >= uint(n) {
			panic("bound check error")
		}
		ord[i] = i
	}
	sort.Slice(ord, func(a, b int) bool {
		i, j := ord[a], ord[b]
		if rows[i] != rows[j] {
			return rows[i] < rows[j]
		}
		return cols[i] < cols[j]
	})

	c := ZeroCSR(m, n)
	c.indices = make([]int, 0, len(ord))
	c.data = make([]float64, 0, len(ord))
	prevR, prevJ := -1, -1
	for _, k := range ord {
		r, j, v := rows[k], cols[k], vals[k]
		if r == prevR && j == prevJ {
			c.data[len(c.data)-1] += v
			continue
		}
		for rr := prevR + 1; rr <= r; rr++ {
			c.indptr[rr] = len(c.indices)
		}
		c.indices = append(c.indices, j)
		c.data = append(c.data, v)
		prevR, prevJ = r, j
	}
	for rr := prevR + 1; rr <= m; rr++ {
		c.indptr[rr] = len(c.indices)
	}
	return c
}

// CSRFromDense converts a dense matrix, dropping exact zeros.
func CSRFromDense(d *Dense) *CSR {
	m, n := d.Dims()
	c := ZeroCSR(m, n)
	for i := 0; i < m; i++ {
		row := d.Row(i)
		for j, v := range row {
			if v != zero {
				c.indices = append(c.indices, j)
				c.data = append(c.data, v)
			}
		}
		c.indptr[i+1] = len(c.indices)
	}
	return c
}

// Dims reports the row and column count.
func (c *CSR) Dims() (m, n int) { return c.m, c.n }

// NNZ reports the number of stored values.
func (c *CSR) NNZ() int { return len(c.data) }

// Clone returns a deep copy.
func (c *CSR) Clone() *CSR {
	return &CSR{
		m: c.m, n: c.n,
		indptr:  slices.Repeat(c.indptr, 1),
		indices: slices.Repeat(c.indices, 1),
		data:    slices.Repeat(c.data, 1),
	}
}

// MulVec computes y = A·x.
func (c *CSR) MulVec(x, y []float64) {
	if len(x) != c.n || len(y) != c.m {
		panic("bound check error")
	}
	for i := 0; i < c.m; i++ {
		s := zero
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			s += c.data[k] * x[c.indices[k]]
		}
		y[i] = s
	}
}

// MulVecTrans computes y = Aᵀ·x.
func (c *CSR) MulVecTrans(x, y []float64) {
	if len(x) != c.m || len(y) != c.n {
		panic("bound check error")
	}
	for j := range y {
		y[j] = zero
	}
	for i := 0; i < c.m; i++ {
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			y[c.indices[k]] += c.data[k] * x[i]
		}
	}
}

// ToDense materializes the matrix as a dense copy.
func (c *CSR) ToDense() *Dense {
	d := NewDense(c.m, c.n, nil)
	for i := 0; i < c.m; i++ {
		row := d.Row(i)
		for k := c.indptr[i]; k < c.indptr[i+1]; k++ {
			row[c.indices[k]] = c.data[k]
		}
	}
	return d
}
