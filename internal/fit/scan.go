package fit

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/banshee-data/transitfit/internal/params"
)

// Factory builds an Objective bound to s. Scan calls it once per worker
// with a private store clone.
type Factory func(s *params.Store) (*Objective, error)

// ScanPoint is one evaluated grid point.
type ScanPoint struct {
	Values  []float64
	LogProb float64
}

// Scan evaluates every point of the grid spanned by axes, starting from a
// clone of base, using up to workers goroutines. Points are returned
// ordered by decreasing log-probability.
func Scan(ctx context.Context, base *params.Store, factory Factory, axes []Axis, workers int) ([]ScanPoint, error) {
	grid, err := ExpandGrid(axes)
	if err != nil {
		return nil, err
	}
	for _, a := range axes {
		if !base.Has(a.Name) {
			return nil, fmt.Errorf("%w: grid axis %s", params.ErrUnknownParameter, a.Name)
		}
	}
	if workers < 1 {
		workers = 1
	}
	workers = min(workers, len(grid))

	jobs := make(chan int, len(grid))
	for i := range grid {
		jobs <- i
	}
	close(jobs)

	points := make([]ScanPoint, len(grid))
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		firstErr error
	)
	fail := func(err error) {
		mu.Lock()
		defer mu.Unlock()
		if firstErr == nil {
			firstErr = err
		}
	}
	for range workers {
		wg.Go(func() {
			obj, err := factory(base.Clone())
			if err != nil {
				fail(err)
				return
			}
			for i := range jobs {
				if ctx.Err() != nil {
					fail(ctx.Err())
					return
				}
				lp, err := evalPoint(obj, axes, grid[i])
				if err != nil {
					fail(fmt.Errorf("grid point %v: %w", grid[i], err))
					return
				}
				points[i] = ScanPoint{Values: grid[i], LogProb: lp}
			}
		})
	}
	wg.Wait()
	if firstErr != nil {
		return nil, firstErr
	}

	sort.SliceStable(points, func(i, j int) bool {
		a, b := points[i].LogProb, points[j].LogProb
		if math.IsNaN(b) {
			return !math.IsNaN(a)
		}
		return a > b
	})
	return points, nil
}

func evalPoint(obj *Objective, axes []Axis, vals []float64) (float64, error) {
	for k, a := range axes {
		if err := obj.store.SetValue(a.Name, vals[k]); err != nil {
			return 0, err
		}
	}
	return obj.Evaluate()
}
