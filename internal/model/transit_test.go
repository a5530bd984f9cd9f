package model

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/limbdark"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/planet"
	"github.com/banshee-data/transitfit/internal/testutil"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

func newTransit(t *testing.T, s *params.Store, lc *timeseries.LightCurve, nplanets int) *TransitModel {
	t.Helper()
	m, err := NewTransitModel(Base{Store: s, LC: lc, NumPlanets: nplanets})
	require.NoError(t, err)
	require.NoError(t, m.Setup())
	return m
}

func TestTransit_MidTransitDepth(t *testing.T) {
	t.Parallel()
	time := testutil.Linspace(-0.2, 0.2, 201)
	lc := testutil.LightCurve(t, time, 1, 1e-3)
	m := newTransit(t, testutil.TransitStore(t), lc, 1)

	flux, err := m.Eval(EvalOptions{})
	require.NoError(t, err)
	require.Equal(t, len(time), flux.Len())

	depth := 1 - flux.Values[100]
	assert.InEpsilon(t, 0.01, depth, 0.15, "depth should be close to rprs^2")
	assert.InDelta(t, 0.01089, depth, 2e-4)
	assert.Equal(t, 1.0, flux.Values[0])
	assert.Equal(t, 1.0, flux.Values[200])
	for i := 1; i <= 100; i++ {
		assert.LessOrEqual(t, flux.Values[i], flux.Values[i-1]+1e-12, "ingress must be monotonic")
	}
}

func TestTransit_FiniteForEveryLaw(t *testing.T) {
	t.Parallel()
	coeffs := map[limbdark.Law][]float64{
		limbdark.Uniform:     nil,
		limbdark.Linear:      {0.4},
		limbdark.Quadratic:   {0.1, 0.3},
		limbdark.Kipping2013: {0.3, 0.4},
		limbdark.SquareRoot:  {0.2, 0.3},
		limbdark.Logarithmic: {0.3, 0.2},
		limbdark.Exponential: {0.2, 0.01},
		limbdark.Power2:      {0.6, 0.5},
		limbdark.ThreeParam:  {0.2, 0.1, 0.1},
		limbdark.FourParam:   {0.5, -0.2, 0.4, -0.1},
	}
	time := testutil.Linspace(-0.15, 0.15, 61)
	lc := testutil.LightCurve(t, time, 1, 1e-3)
	orbits := []struct{ per, inc, ars, ecc, w float64 }{
		{3, 89, 10, 0, 90},
		{1.2, 85, 4, 0.2, 30},
		{10, 89.9, 25, 0.6, 250},
	}
	for law, u := range coeffs {
		for _, o := range orbits {
			s := testutil.TransitStore(t)
			s.SetText("limb_dark", string(law))
			for i, v := range u {
				s.SetFixed(law.CoeffNames()[i], v)
			}
			s.SetFixed("per", o.per)
			s.SetFixed("inc", o.inc)
			s.SetFixed("ars", o.ars)
			s.SetFixed("ecc", o.ecc)
			s.SetFixed("w", o.w)
			m := newTransit(t, s, lc, 1)
			flux, err := m.Eval(EvalOptions{})
			require.NoError(t, err, law)
			require.Equal(t, len(time), flux.Len())
			for _, v := range flux.Values {
				require.False(t, math.IsNaN(v) || math.IsInf(v, 0), "%s %+v", law, o)
			}
		}
	}
}

func TestTransit_PhysicalityPenalty(t *testing.T) {
	t.Parallel()
	lc := testutil.LightCurve(t, testutil.Linspace(-0.1, 0.1, 11), 1, 1e-3)
	tests := []struct {
		name   string
		mutate func(*params.Store)
		want   float64
	}{
		{"zero period", func(s *params.Store) { s.SetFixed("per", 0) }, TransitPenalty},
		{"inc 90", func(s *params.Store) { s.SetFixed("inc", 90) }, TransitPenalty},
		{"ars below 1", func(s *params.Store) { s.SetFixed("ars", 0.9) }, TransitPenalty},
		{"ecc 1", func(s *params.Store) { s.SetFixed("ecc", 1) }, TransitPenalty},
		{"negative ecc", func(s *params.Store) { s.SetFixed("ecc", -0.01) }, TransitPenalty},
		{"kipping q1 zero", func(s *params.Store) {
			s.SetText("limb_dark", "kipping2013")
			s.SetFixed("u1", 0)
		}, LimbDarkPenalty},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := testutil.TransitStore(t)
			tt.mutate(s)
			m := newTransit(t, s, lc, 1)
			flux, err := m.Eval(EvalOptions{})
			require.NoError(t, err)
			for _, v := range flux.Values {
				assert.Equal(t, tt.want, v)
			}
		})
	}
}

func TestTransit_MissingParameter(t *testing.T) {
	t.Parallel()
	s := testutil.TransitStore(t)
	lc := testutil.LightCurve(t, testutil.Linspace(-0.1, 0.1, 5), 1, 1e-3)
	s2 := params.NewStore()
	s2.SetFixed("per", 3)
	m := newTransit(t, s2, lc, 1)
	_, err := m.Eval(EvalOptions{})
	assert.True(t, errors.Is(err, planet.ErrMissingParameter))

	s.SetText("limb_dark", "linear")
	s3 := params.NewStore()
	for _, k := range []string{"t0", "per", "inc", "ars", "w", "rprs"} {
		v, _ := s.Value(k)
		s3.SetFixed(k, v)
	}
	s3.SetText("limb_dark", "linear")
	m = newTransit(t, s3, lc, 1)
	_, err = m.Eval(EvalOptions{})
	assert.True(t, errors.Is(err, planet.ErrMissingParameter), "u1 absent")

	s.SetText("limb_dark", "cubic")
	_, err = NewTransitModel(Base{Store: s, LC: lc})
	assert.True(t, errors.Is(err, limbdark.ErrUnknownLaw))
}

func TestTransit_ChannelConcatenation(t *testing.T) {
	t.Parallel()
	time := testutil.Linspace(-0.1, 0.1, 21)
	lc := testutil.LightCurve(t, time, 3, 1e-3)
	s := testutil.TransitStore(t)
	testutil.SetFree(t, s, "rprs", 0.1, 0, 0.3)
	s.ExpandChannels(lc.Channels())
	require.NoError(t, s.SetValue("rprs_1", 0.12))
	require.NoError(t, s.SetValue("rprs_2", 0.08))
	m := newTransit(t, s, lc, 1)

	full, err := m.Eval(EvalOptions{})
	require.NoError(t, err)
	require.Equal(t, 3*len(time), full.Len())

	var parts []timeseries.Masked
	for _, ch := range lc.Channels() {
		seg, err := m.Eval(EvalOptions{Channel: Channel(ch)})
		require.NoError(t, err)
		parts = append(parts, seg)
	}
	assert.Equal(t, timeseries.Concat(parts...).Values, full.Values)

	mid := len(time) / 2
	d0 := 1 - full.Values[mid]
	d1 := 1 - full.Values[len(time)+mid]
	d2 := 1 - full.Values[2*len(time)+mid]
	assert.Greater(t, d1, d0)
	assert.Less(t, d2, d0)
}

func TestTransit_MultiPlanetProduct(t *testing.T) {
	t.Parallel()
	time := testutil.Linspace(-0.1, 0.6, 71)
	lc := testutil.LightCurve(t, time, 1, 1e-3)
	s := testutil.TransitStore(t)
	for _, k := range []string{"per", "inc", "ars", "ecc", "w"} {
		v, _ := s.Value(k)
		s.SetFixed(k+"1", v)
	}
	s.SetFixed("t01", 0.5)
	s.SetFixed("rprs1", 0.05)
	m := newTransit(t, s, lc, 2)

	both, err := m.Eval(EvalOptions{})
	require.NoError(t, err)
	p0, err := m.Eval(EvalOptions{Planet: Planet(0)})
	require.NoError(t, err)
	p1, err := m.Eval(EvalOptions{Planet: Planet(1)})
	require.NoError(t, err)
	for i := range both.Values {
		assert.InDelta(t, p0.Values[i]*p1.Values[i], both.Values[i], 1e-15)
	}
	assert.Less(t, p1.Values[60], 1.0)
	assert.Equal(t, 1.0, p0.Values[60])
}

func TestTransit_ApplyLimbDarkening(t *testing.T) {
	t.Parallel()
	lc := testutil.LightCurve(t, testutil.Linspace(-0.1, 0.1, 5), 2, 1e-3)
	s := testutil.TransitStore(t)
	require.NoError(t, s.Set(params.Parameter{
		Name: "u1", Value: 0.1, Status: params.Free,
		Prior: &params.Prior{Kind: params.Normal, P1: 0.1, P2: 0.05},
	}))
	s.ExpandChannels(lc.Channels())
	m := newTransit(t, s, lc, 1)

	table := limbdark.Table{{0.2, 0.25}, {0.3, 0.35}}
	require.NoError(t, m.ApplyLimbDarkening(table, true))

	v, _ := s.Value("u1")
	assert.Equal(t, 0.2, v)
	p, _ := s.Get("u1_1")
	assert.Equal(t, 0.3, p.Value)
	assert.Equal(t, 0.3, p.Prior.P1)
	// u2 is fixed and shared, so the last channel's value wins.
	v, _ = s.Value("u2")
	assert.Equal(t, 0.35, v)

	assert.Error(t, m.ApplyLimbDarkening(limbdark.Table{{0.2, 0.25}}, false))
}
