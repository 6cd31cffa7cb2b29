// Copyright ©2025 curioloop. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package matrix

import "slices"

// Dense is an m×n matrix stored in a flat row-major slice.
type Dense struct {
	m, n int
	data []float64
}

// NewDense creates an m×n dense matrix.
// When data is nil the matrix is zero filled,
// otherwise data must have length m×n and is copied.
func NewDense(m, n int, data []float64) *Dense {
	if m <= 0 || n <= 0 {
		panic("negative dimensions")
	}
	if data == nil {
		data = make([]float64, m*n)
	} else {
		if len(data) != m*n {
			panic("invalid data dimensions")
		}
		data = slices.Repeat(data, 1)
	}
	return &Dense{m: m, n: n, data: data}
}

// Eye creates the n×n dense identity matrix.
func Eye(n int) *Dense {
	d := NewDense(n, n, nil)
	for i := 0; i < n; i++ {
		d.data[i*n+i] = one
	}
	return d
}

// Dims reports the row and column count.
func (d *Dense) Dims() (m, n int) { return d.m, d.n }

// At returns the element at row i, column j.
func (d *Dense) At(i, j int) float64 {
	if uint(i) >= uint(d.m) || uint(j) >= uint(d.n) {
		panic("bound check error")
	}
	return d.data[i*d.n+j]
}

// Set stores v at row i, column j.
func (d *Dense) Set(i, j int, v float64) {
	if uint(i) >= uint(d.m) || uint(j) >= uint(d.n) {
		panic("bound check error")
	}
	d.data[i*d.n+j] = v
}

// Row returns row i as a shared view into the underlying storage.
func (d *Dense) Row(i int) []float64 {
	if uint(i) >= uint(d.m) {
		panic("bound check error")
	}
	return d.data[i*d.n : (i+1)*d.n : (i+1)*d.n]
}

// Data returns the flat row-major storage as a shared view.
func (d *Dense) Data() []float64 { return d.data }

// Clone returns a deep copy.
func (d *Dense) Clone() *Dense {
	return &Dense{m: d.m, n: d.n, data: slices.Repeat(d.data, 1)}
}

// MulVec computes y = A·x.
func (d *Dense) MulVec(x, y []float64) {
	if len(x) != d.n || len(y) != d.m {
		panic("bound check error")
	}
	for i := 0; i < d.m; i++ {
		y[i] = ddot(d.n, d.data[i*d.n:], x)
	}
}

// MulVecTrans computes y = Aᵀ·x.
func (d *Dense) MulVecTrans(x, y []float64) {
	if len(x) != d.m || len(y) != d.n {
		panic("bound check error")
	}
	for j := range y {
		y[j] = zero
	}
	for i := 0; i < d.m; i++ {
		daxpy(d.n, x[i], d.data[i*d.n:], y)
	}
}

// ToDense returns the receiver itself.
func (d *Dense) ToDense() *Dense { return d }
