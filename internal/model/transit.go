package model

import (
	"fmt"

	"github.com/banshee-data/transitfit/internal/limbdark"
	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/occult"
	"github.com/banshee-data/transitfit/internal/planet"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// TransitModel is the primary-transit light curve of every planet,
// multiplied together per channel.
type TransitModel struct {
	Base
	law limbdark.Law
}

// NewTransitModel reads the limb-darkening law from the store's limb_dark
// setting, defaulting to quadratic.
func NewTransitModel(b Base) (*TransitModel, error) {
	if err := b.validate(); err != nil {
		return nil, err
	}
	name, ok := b.Store.Text("limb_dark")
	if !ok {
		name = string(limbdark.Quadratic)
	}
	law, err := limbdark.Parse(name)
	if err != nil {
		return nil, err
	}
	return &TransitModel{Base: b, law: law}, nil
}

func (m *TransitModel) Name() string { return "transit" }
func (m *TransitModel) Type() Type   { return Physical }
func (m *TransitModel) Setup() error { return nil }

// Law returns the configured limb-darkening law.
func (m *TransitModel) Law() limbdark.Law { return m.law }

// ApplyLimbDarkening seeds the limb-darkening coefficients of every fitted
// channel from table, whose rows are indexed by channel. With recenter set,
// normal priors on the coefficients move to the seeded values.
func (m *TransitModel) ApplyLimbDarkening(table limbdark.Table, recenter bool) error {
	monitoring.Logf("Using the following limb-darkening values:")
	for _, ch := range m.LC.Channels() {
		row, err := table.Row(ch)
		if err != nil {
			return err
		}
		pc := m.LC.ParamChannel(ch)
		for i, name := range m.law.CoeffNames() {
			if !m.Store.Has(name) {
				continue
			}
			if i >= len(row) {
				return fmt.Errorf("%w: channel %d row has %d values, %s needs %d", limbdark.ErrCoeffCount, ch, len(row), m.law, m.law.NumCoeffs())
			}
			key := m.Store.LongName(pc, name)
			monitoring.Logf("%s, %g", key, row[i])
			if err := m.Store.SetValue(key, row[i]); err != nil {
				return err
			}
			if recenter {
				if err := m.Store.RecenterPrior(key, row[i]); err != nil {
					return err
				}
			}
		}
	}
	return nil
}

// coefficients resolves u1..un for parameter channel pc.
func (m *TransitModel) coefficients(pc int) ([]float64, error) {
	names := m.law.CoeffNames()
	u := make([]float64, len(names))
	for i, name := range names {
		v, ok := m.Store.Lookup(name, 0, pc)
		if !ok {
			return nil, fmt.Errorf("%w: %s", planet.ErrMissingParameter, name)
		}
		u[i] = v
	}
	return u, nil
}

func (m *TransitModel) Eval(opts EvalOptions) (timeseries.Masked, error) {
	return m.perChannel(opts, func(_, pc int, time timeseries.Masked) (timeseries.Masked, error) {
		n := time.Len()
		curve := make([]float64, n)
		for i := range curve {
			curve[i] = 1
		}
		for _, pid := range m.planets(opts.Planet) {
			p, err := planet.Resolve(m.Store, pid, pc, planet.TransitRequired...)
			if err != nil {
				return timeseries.Masked{}, err
			}
			u, err := m.coefficients(pc)
			if err != nil {
				return timeseries.Masked{}, err
			}
			if !p.Physical() {
				fill(curve, TransitPenalty)
				continue
			}
			if m.law == limbdark.Kipping2013 && u[0] <= 0 {
				fill(curve, LimbDarkPenalty)
				continue
			}
			prof, err := limbdark.New(m.law, u)
			if err != nil {
				return timeseries.Masked{}, err
			}
			flux := occult.Transit(time.Values, p.Orbit(), p.RpRs, prof)
			for i, f := range flux {
				curve[i] *= f
			}
		}
		return withTimeMask(curve, time), nil
	})
}

func fill(dst []float64, v float64) {
	for i := range dst {
		dst[i] = v
	}
}
