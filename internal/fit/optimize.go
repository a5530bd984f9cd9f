package fit

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/optimize"

	"github.com/banshee-data/transitfit/internal/monitoring"
)

// ErrNoFreeParameters is returned when there is nothing to optimize.
var ErrNoFreeParameters = errors.New("fit: no free parameters")

// Result is the outcome of a Minimize call. The objective's store holds
// Values on return.
type Result struct {
	Names       []string
	Values      []float64
	LogProb     float64
	Iterations  int
	Evaluations int
	Status      string
}

// Minimize maximises the log-probability with Nelder-Mead, starting from
// the store's current free values. Points outside the prior support are
// treated as +Inf cost.
func Minimize(o *Objective, maxIter int) (Result, error) {
	names := o.store.FreeNames()
	if len(names) == 0 {
		return Result{}, ErrNoFreeParameters
	}
	start := o.store.FreeValues()

	var evalErr error
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			if evalErr != nil {
				return math.Inf(1)
			}
			lp, err := o.LogProbability(x)
			if err != nil {
				evalErr = err
				return math.Inf(1)
			}
			if math.IsNaN(lp) || math.IsInf(lp, -1) {
				return math.Inf(1)
			}
			return -lp
		},
	}
	settings := &optimize.Settings{MajorIterations: maxIter}
	res, err := optimize.Minimize(problem, start, settings, &optimize.NelderMead{})
	if evalErr != nil {
		return Result{}, evalErr
	}
	if err != nil {
		return Result{}, fmt.Errorf("nelder-mead: %w", err)
	}

	best := res.Location.X
	if err := o.store.Update(best); err != nil {
		return Result{}, err
	}
	monitoring.Logf("nelder-mead finished: %s after %d iterations, %d evaluations", res.Status, res.Stats.MajorIterations, res.Stats.FuncEvaluations)
	return Result{
		Names:       names,
		Values:      append([]float64(nil), best...),
		LogProb:     -res.Location.F,
		Iterations:  res.Stats.MajorIterations,
		Evaluations: res.Stats.FuncEvaluations,
		Status:      res.Status.String(),
	}, nil
}
