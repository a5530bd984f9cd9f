package model

import (
	"fmt"
	"math"

	"github.com/banshee-data/transitfit/internal/timeseries"
)

// maxPolyOrder is the highest polynomial coefficient read from the store.
const maxPolyOrder = 9

// PolynomialModel is sum_k c_k (t - mean(t))^k for k = 0..9. Absent
// coefficients are zero except c0, which defaults to 1.
type PolynomialModel struct {
	Base
}

func NewPolynomialModel(b Base) (*PolynomialModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &PolynomialModel{Base: b}, nil
}

func (m *PolynomialModel) Name() string { return "polynomial" }
func (m *PolynomialModel) Type() Type   { return Systematic }
func (m *PolynomialModel) Setup() error { return nil }

// Coefficients returns c0..c9 for parameter channel pc.
func (m *PolynomialModel) Coefficients(pc int) []float64 {
	c := make([]float64, maxPolyOrder+1)
	for k := range c {
		def := 0.0
		if k == 0 {
			def = 1
		}
		c[k] = lookup(m.Store, fmt.Sprintf("c%d", k), pc, def)
	}
	return c
}

func (m *PolynomialModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	return m.perChannel(opts, func(_, pc int, time timeseries.Masked) (timeseries.Masked, error) {
		c := m.Coefficients(pc)
		mean := time.Mean()
		out := make([]float64, time.Len())
		for i, t := range time.Values {
			dt := t - mean
			// Horner evaluation from the highest order down.
			v := 0.0
			for k := maxPolyOrder; k >= 0; k-- {
				v = v*dt + c[k]
			}
			out[i] = v
		}
		return withTimeMask(out, time), nil
	})
}

// DampedOscillatorModel is a sinusoid whose amplitude and period decay
// exponentially from osc_t0:
//
//	1 + A exp(-gA (t - t0)) sin(2 pi (t - t1) / (P exp(-gP (t - t0))))
//
// and 1 before osc_t0.
type DampedOscillatorModel struct {
	Base
}

func NewDampedOscillatorModel(b Base) (*DampedOscillatorModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	return &DampedOscillatorModel{Base: b}, nil
}

func (m *DampedOscillatorModel) Name() string { return "damped oscillator" }
func (m *DampedOscillatorModel) Type() Type   { return Physical }
func (m *DampedOscillatorModel) Setup() error { return nil }

func (m *DampedOscillatorModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	return m.perChannel(opts, func(_, pc int, time timeseries.Masked) (timeseries.Masked, error) {
		amp0 := lookup(m.Store, "osc_amp", pc, 0)
		ampDecay := lookup(m.Store, "osc_amp_decay", pc, 0)
		per0 := lookup(m.Store, "osc_per", pc, 1)
		perDecay := lookup(m.Store, "osc_per_decay", pc, 0)
		t0 := lookup(m.Store, "osc_t0", pc, 0)
		t1 := lookup(m.Store, "osc_t1", pc, 0)

		out := make([]float64, time.Len())
		for i, t := range time.Values {
			if t < t0 {
				out[i] = 1
				continue
			}
			amp := amp0 * math.Exp(-ampDecay*(t-t0))
			per := per0 * math.Exp(-perDecay*(t-t0))
			out[i] = 1 + amp*math.Sin(2*math.Pi*(t-t1)/per)
		}
		return withTimeMask(out, time), nil
	})
}
