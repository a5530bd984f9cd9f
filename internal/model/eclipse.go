package model

import (
	"fmt"
	"strings"

	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/occult"
	"github.com/banshee-data/transitfit/internal/planet"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// EclipseModel is the secondary-eclipse light curve of every planet,
// combined per channel as 1 + sum(lc_p - 1).
type EclipseModel struct {
	Base
	computeLTT bool
}

// NewEclipseModel builds an eclipse model. When computeLTT is requested
// but the store lacks an input to the light-travel-time correction, the
// correction is turned off and a diagnostic is logged.
func NewEclipseModel(b Base, computeLTT bool) (*EclipseModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	m := &EclipseModel{Base: b, computeLTT: computeLTT}
	if computeLTT {
		if missing := missingLTTParams(b); len(missing) > 0 {
			m.computeLTT = false
			warnLTT(missing, b.Store.Has("t_secondary"))
		}
	}
	return m, nil
}

func missingLTTParams(b Base) []string {
	var missing []string
	if !b.Store.Has("a") && !b.Store.Has("ars") {
		missing = append(missing, "a")
	}
	if !b.Store.Has("Rs") {
		missing = append(missing, "Rs")
	}
	for _, name := range []string{"per", "inc", "t0", "ecc", "w"} {
		if !b.Store.Has(name) {
			missing = append(missing, name)
		}
	}
	return missing
}

// warnLTT logs the degrade once per distinct set of missing inputs.
func warnLTT(missing []string, fitsSecondary bool) {
	advice := "Add the missing parameters, fit for t_secondary (which will not account for light-travel time), or set compute_ltt to false."
	if fitsSecondary {
		advice = "Fitting t_secondary helps, but the fitted value will not account for light-travel time. Add the missing parameters or set compute_ltt to false."
	}
	list := strings.Join(missing, ", ")
	monitoring.Once(fmt.Sprintf("ltt-disabled:%s:%t", list, fitsSecondary),
		"WARNING: Missing parameters [%s] required to account for light-travel time. %s Setting compute_ltt to false.", list, advice)
}

func (m *EclipseModel) Name() string { return "eclipse" }
func (m *EclipseModel) Type() Type   { return Physical }
func (m *EclipseModel) Setup() error { return nil }

// ComputesLTT reports whether the light-travel-time correction is active.
func (m *EclipseModel) ComputesLTT() bool { return m.computeLTT }

func (m *EclipseModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	return m.perChannel(opts, func(_, pc int, time timeseries.Masked) (timeseries.Masked, error) {
		curve := make([]float64, time.Len())
		for i := range curve {
			curve[i] = 1
		}
		for _, pid := range m.planets(opts.Planet) {
			p, err := planet.Resolve(m.Store, pid, pc, planet.EclipseRequired...)
			if err != nil {
				return timeseries.Masked{}, err
			}
			if !p.Has("t_secondary") {
				if err := p.Require("t0"); err != nil {
					return timeseries.Masked{}, err
				}
			}
			if !p.Physical() {
				fill(curve, EclipsePenalty)
				continue
			}
			t := time.Values
			if m.computeLTT {
				t = p.CorrectLightTravelTime(t)
			}
			flux := occult.Eclipse(t, p.EclipseOrbit(), p.RpRs, p.FpFs)
			for i, f := range flux {
				curve[i] += f - 1
			}
		}
		return withTimeMask(curve, time), nil
	})
}
