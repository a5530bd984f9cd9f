package planet

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/units"
)

func baseStore(t *testing.T) *params.Store {
	t.Helper()
	s := params.NewStore()
	s.SetFixed("t0", 0)
	s.SetFixed("per", 3)
	s.SetFixed("inc", 89)
	s.SetFixed("w", 90)
	s.SetText("limb_dark", "quadratic")
	return s
}

func TestResolve_AliasRoundTrip(t *testing.T) {
	t.Parallel()
	direct := baseStore(t)
	direct.SetFixed("rprs", 0.12)
	direct.SetFixed("ars", 10)
	direct.SetFixed("fpfs", 1e-3)

	alt := baseStore(t)
	alt.SetFixed("rp", 0.12)
	alt.SetFixed("a", 10)
	alt.SetFixed("fp", 1e-3)

	p1, err := Resolve(direct, 0, 0, TransitRequired...)
	require.NoError(t, err)
	p2, err := Resolve(alt, 0, 0, TransitRequired...)
	require.NoError(t, err)

	for _, p := range []Params{p1, p2} {
		assert.Equal(t, 0.12, p.RpRs)
		assert.Equal(t, 0.12, p.Rp)
		assert.Equal(t, 10.0, p.Ars)
		assert.Equal(t, 10.0, p.A)
		assert.Equal(t, 1e-3, p.FpFs)
		assert.Equal(t, 1e-3, p.Fp)
		assert.Equal(t, "quadratic", p.LimbDark)
	}
}

func TestResolve_CanonicalWins(t *testing.T) {
	t.Parallel()
	s := baseStore(t)
	s.SetFixed("rprs", 0.1)
	s.SetFixed("rp", 0.2)
	p, err := Resolve(s, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.RpRs)
	assert.Equal(t, 0.2, p.Rp)
}

func TestResolve_Defaults(t *testing.T) {
	t.Parallel()
	s := baseStore(t)
	s.SetFixed("rprs", 0.1)
	s.SetFixed("ars", 8)
	p, err := Resolve(s, 0, 0, EclipseRequired...)
	require.NoError(t, err)
	assert.Zero(t, p.Ecc)
	assert.Zero(t, p.FpFs)
	assert.Zero(t, p.Fp)
	assert.Zero(t, p.AmpCos1)
	assert.False(t, p.Has("ecc"))
	assert.False(t, p.Has("t_secondary"))
}

func TestResolve_Missing(t *testing.T) {
	t.Parallel()
	s := params.NewStore()
	s.SetFixed("per", 3)
	_, err := Resolve(s, 0, 0, TransitRequired...)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingParameter))
	assert.Contains(t, err.Error(), "rprs")
	assert.Contains(t, err.Error(), "inc")
	assert.NotContains(t, err.Error(), "per,")
}

func TestResolve_ChannelAndPlanet(t *testing.T) {
	t.Parallel()
	s := baseStore(t)
	require.NoError(t, s.Set(params.Parameter{
		Name: "rp", Value: 0.1, Status: params.Free,
		Prior: &params.Prior{Kind: params.Uniform, P1: 0, P2: 1},
	}))
	s.SetFixed("ars", 10)
	s.SetFixed("rp1", 0.05)
	s.SetFixed("ars1", 20)
	s.SetFixed("per1", 7)
	s.ExpandChannels([]int{0, 2})
	require.NoError(t, s.SetValue("rp_2", 0.11))

	p, err := Resolve(s, 0, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.11, p.RpRs)

	// Channel 3 has no replica: the base value is shared.
	p, err = Resolve(s, 0, 3)
	require.NoError(t, err)
	assert.Equal(t, 0.1, p.RpRs)

	p, err = Resolve(s, 1, 2)
	require.NoError(t, err)
	assert.Equal(t, 0.05, p.RpRs)
	assert.Equal(t, 7.0, p.Per)
	assert.False(t, p.Has("t0"))
}

func TestPhysical(t *testing.T) {
	t.Parallel()
	good := Params{Per: 3, Inc: 89, Ars: 10, Ecc: 0}
	assert.True(t, good.Physical())

	tests := map[string]func(*Params){
		"zero period":  func(p *Params) { p.Per = 0 },
		"inc 90":       func(p *Params) { p.Inc = 90 },
		"inc 0":        func(p *Params) { p.Inc = 0 },
		"ars 1":        func(p *Params) { p.Ars = 1 },
		"ecc negative": func(p *Params) { p.Ecc = -0.1 },
		"ecc 1":        func(p *Params) { p.Ecc = 1 },
	}
	for name, mutate := range tests {
		p := good
		mutate(&p)
		assert.False(t, p.Physical(), name)
	}
}

func TestEclipseTime(t *testing.T) {
	t.Parallel()
	s := baseStore(t)
	s.SetFixed("rprs", 0.1)
	s.SetFixed("ars", 10)
	p, err := Resolve(s, 0, 0)
	require.NoError(t, err)
	assert.InDelta(t, 1.5, p.EclipseTime(), 1e-9)

	s.SetFixed("t_secondary", 1.6)
	p, err = Resolve(s, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1.6, p.EclipseTime())
}

func TestLightTravelTime(t *testing.T) {
	t.Parallel()
	s := baseStore(t)
	s.SetFixed("rprs", 0.1)
	s.SetFixed("ars", 10)
	s.SetFixed("ecc", 0)
	s.SetFixed("Rs", 1)
	p, err := Resolve(s, 0, 0)
	require.NoError(t, err)

	delay := units.LightTravelDays(10*units.SolarRadius) * math.Sin(89*math.Pi/180)
	got := p.CorrectLightTravelTime([]float64{0, 1.5})
	// In front of the star the planet is closer to us than the star.
	assert.InDelta(t, delay, got[0], 1e-12)
	assert.InDelta(t, 1.5-delay, got[1], 1e-12)
}
