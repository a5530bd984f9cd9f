package model

import (
	"errors"
	"math"

	"github.com/banshee-data/transitfit/internal/planet"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// positivityPhases is the number of orbital phases checked when forcing
// positive phase variations.
const positivityPhases = 1000

// SinusoidPhaseCurveModel modulates the planet's eclipse signal by first
// and second harmonic phase variations and adds the transit, if any:
//
//	transit + sum_p (eclipse_p - 1) * phaseVars_p
type SinusoidPhaseCurveModel struct {
	Base
	transit         *TransitModel
	eclipse         *EclipseModel
	forcePositivity bool
}

// NewSinusoidPhaseCurveModel wraps an eclipse model and an optional
// transit model sharing b's store and light curve.
func NewSinusoidPhaseCurveModel(b Base, transit *TransitModel, eclipse *EclipseModel, forcePositivity bool) (*SinusoidPhaseCurveModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	if eclipse == nil {
		return nil, errors.New("phase curve model needs an eclipse model")
	}
	return &SinusoidPhaseCurveModel{Base: b, transit: transit, eclipse: eclipse, forcePositivity: forcePositivity}, nil
}

func (m *SinusoidPhaseCurveModel) Name() string { return "sinusoid phase curve" }
func (m *SinusoidPhaseCurveModel) Type() Type   { return Physical }
func (m *SinusoidPhaseCurveModel) Setup() error { return nil }

// phaseVariation evaluates the harmonic series at orbital phase phi.
func phaseVariation(p planet.Params, phi float64) float64 {
	v := 1 + p.AmpCos1*(math.Cos(phi)-1) + p.AmpSin1*math.Sin(phi)
	if p.AmpCos2 != 0 || p.AmpSin2 != 0 {
		v += p.AmpCos2*(math.Cos(2*phi)-1) + p.AmpSin2*math.Sin(2*phi)
	}
	return v
}

func positive(p planet.Params) bool {
	for i := range positivityPhases {
		phi := 2 * math.Pi * float64(i) / float64(positivityPhases-1)
		if phaseVariation(p, phi) <= 0 {
			return false
		}
	}
	return true
}

// phases returns the orbital phase of each time, zero at mid-eclipse.
func phases(p planet.Params, t []float64) []float64 {
	out := make([]float64, len(t))
	if p.Ecc == 0 {
		tsec := p.EclipseTime()
		freq := 2 * math.Pi / p.Per
		for i, ti := range t {
			out[i] = freq * (ti - tsec)
		}
		return out
	}
	o := p.Orbit()
	w := p.W * math.Pi / 180
	for i, ti := range t {
		out[i] = o.TrueAnomaly(ti) + w + math.Pi/2
	}
	return out
}

func (m *SinusoidPhaseCurveModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	return m.perChannel(opts, func(ch, pc int, time timeseries.Masked) (timeseries.Masked, error) {
		n := time.Len()
		light := make([]float64, n)
		sub := EvalOptions{Channel: Channel(ch), LightCurve: opts.LightCurve}
		for _, pid := range m.planets(opts.Planet) {
			p, err := planet.Resolve(m.Store, pid, pc, "per", "w")
			if err != nil {
				return timeseries.Masked{}, err
			}
			if !p.Has("t_secondary") || p.Ecc != 0 {
				if err := p.Require("t0"); err != nil {
					return timeseries.Masked{}, err
				}
			}
			if m.forcePositivity && !positive(p) {
				fill(light, PositivityPenalty)
				continue
			}
			sub.Planet = Planet(pid)
			ecl, err := m.eclipse.Eval(sub)
			if err != nil {
				return timeseries.Masked{}, err
			}
			for i, phi := range phases(p, time.Values) {
				light[i] += (ecl.Values[i] - 1) * phaseVariation(p, phi)
			}
		}
		out := timeseries.Masked{Values: light}
		if m.transit == nil {
			return out.AddScalar(1).WithMask(time.Mask), nil
		}
		tr, err := m.transit.Eval(EvalOptions{Channel: Channel(ch), LightCurve: opts.LightCurve})
		if err != nil {
			return timeseries.Masked{}, err
		}
		return tr.Add(out)
	})
}
