// Package fit turns a composite light-curve model into the objective an
// optimizer or sampler calls, and provides a reference Nelder-Mead fit and
// a concurrent grid scan on top of it.
package fit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/transitfit/internal/model"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// Objective evaluates the log-probability of a store's parameters under a
// composite model. It is not safe for concurrent use; parallel callers
// build one Objective per store clone.
type Objective struct {
	store *params.Store
	comp  *model.CompositeModel
}

// NewObjective sets up comp and binds it to s, which must be the store
// comp's components read from.
func NewObjective(s *params.Store, comp *model.CompositeModel) (*Objective, error) {
	if s == nil || comp == nil {
		return nil, fmt.Errorf("fit: nil store or model")
	}
	if err := comp.Setup(); err != nil {
		return nil, err
	}
	return &Objective{store: s, comp: comp}, nil
}

// Store returns the bound parameter store.
func (o *Objective) Store() *params.Store { return o.store }

// Model returns the bound composite model.
func (o *Objective) Model() *model.CompositeModel { return o.comp }

// residuals returns LC.Flux - fit with invalid and masked samples excluded.
func (o *Objective) residuals(fit timeseries.Masked) (timeseries.Masked, error) {
	lc := o.comp.LightCurve()
	r, err := lc.Flux.Sub(fit)
	if err != nil {
		return timeseries.Masked{}, err
	}
	return r.WithMask(lc.UncFit.Mask).MaskInvalid(), nil
}

// LogLikelihood returns the log-likelihood of the current store values.
// With a GP component it is the GP marginal likelihood of the residuals;
// otherwise it is the independent Gaussian likelihood with widths UncFit.
func (o *Objective) LogLikelihood() (float64, error) {
	fit, err := o.comp.Eval(nil, false)
	if err != nil {
		return 0, err
	}
	if o.comp.HasGP() {
		return o.comp.GPLogLikelihood(fit, nil)
	}
	r, err := o.residuals(fit)
	if err != nil {
		return 0, err
	}
	unc := o.comp.LightCurve().UncFit.Values
	var ll float64
	for _, i := range r.Good() {
		ll += distuv.Normal{Mu: 0, Sigma: unc[i]}.LogProb(r.Values[i])
	}
	return ll, nil
}

// Evaluate returns log prior + log-likelihood of the current store values.
// A point outside the prior support returns -Inf without evaluating the
// model.
func (o *Objective) Evaluate() (float64, error) {
	lp := o.store.LogPrior()
	if math.IsInf(lp, -1) {
		return lp, nil
	}
	ll, err := o.LogLikelihood()
	if err != nil {
		return 0, err
	}
	return lp + ll, nil
}

// LogProbability writes values into the free parameters, in FreeNames
// order, and evaluates them.
func (o *Objective) LogProbability(values []float64) (float64, error) {
	if err := o.store.Update(values); err != nil {
		return 0, err
	}
	return o.Evaluate()
}

// Stats summarises the residuals of the full model, GP included.
type Stats struct {
	N        int
	NFree    int
	ChiSq    float64
	RedChiSq float64
	RMS      float64
}

// Residuals computes goodness-of-fit statistics at the current store
// values.
func (o *Objective) Residuals() (Stats, error) {
	fit, err := o.comp.Eval(nil, true)
	if err != nil {
		return Stats{}, err
	}
	r, err := o.residuals(fit)
	if err != nil {
		return Stats{}, err
	}
	unc := o.comp.LightCurve().UncFit.Values
	good := r.Good()
	st := Stats{N: len(good), NFree: len(o.store.FreeNames())}
	if st.N == 0 {
		return st, nil
	}
	sq := make([]float64, len(good))
	for k, i := range good {
		z := r.Values[i] / unc[i]
		st.ChiSq += z * z
		sq[k] = r.Values[i] * r.Values[i]
	}
	st.RMS = math.Sqrt(stat.Mean(sq, nil))
	if dof := st.N - st.NFree; dof > 0 {
		st.RedChiSq = st.ChiSq / float64(dof)
	} else {
		st.RedChiSq = math.NaN()
	}
	return st, nil
}
