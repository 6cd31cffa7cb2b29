package numdiff

import (
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Workers evaluates eval at every probe point xs[i], storing the result in ys[i].
// The probes are independent, so an implementation may run them in any order or
// in parallel, but the call must not return before every probe has finished.
// A nil Workers means plain sequential evaluation.
type Workers func(eval func(x, y []float64), xs, ys [][]float64) error

// PoolWorkers returns a Workers backed by a goroutine pool of the given size.
// A panic escaping eval is captured and reported as an error so that a single
// failing probe cannot tear down sibling goroutines mid-sweep.
func PoolWorkers(size int) Workers {
	return func(eval func(x, y []float64), xs, ys [][]float64) error {
		if len(xs) != len(ys) {
			panic("bound check error")
		}
		var g errgroup.Group
		g.SetLimit(max(1, size))
		for i := range xs {
			g.Go(func() (err error) {
				defer func() {
					if r := recover(); r != nil {
						err = fmt.Errorf("evaluation panic: %v", r)
					}
				}()
				eval(xs[i], ys[i])
				return
			})
		}
		return g.Wait()
	}
}
