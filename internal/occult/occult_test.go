package occult

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/limbdark"
)

func TestSolveKepler(t *testing.T) {
	t.Parallel()
	for _, ecc := range []float64{0, 0.1, 0.5, 0.9, 0.99} {
		for _, m := range []float64{0, 0.3, 1.5, 3.0, 5.9} {
			e := SolveKepler(m, ecc)
			assert.InDelta(t, m, e-ecc*math.Sin(e), 1e-10, "ecc=%g m=%g", ecc, m)
		}
	}
}

func TestOverlapArea(t *testing.T) {
	t.Parallel()
	assert.Zero(t, OverlapArea(1, 0.1, 1.2))
	assert.InDelta(t, math.Pi*0.01, OverlapArea(1, 0.1, 0.5), 1e-15)
	assert.InDelta(t, math.Pi, OverlapArea(1, 2, 0.5), 1e-15)
	// Two unit circles whose centers are 1 apart.
	want := 2*math.Pi/3 - math.Sqrt(3)/2
	assert.InDelta(t, want, OverlapArea(1, 1, 1), 1e-12)
	// Area grows monotonically as the planet moves onto the disk.
	prev := 0.0
	for z := 1.1; z >= 0.9; z -= 0.01 {
		a := OverlapArea(1, 0.1, z)
		assert.GreaterOrEqual(t, a, prev)
		prev = a
	}
}

func TestPhase_Circular(t *testing.T) {
	t.Parallel()
	assert.InDelta(t, 0.0, Phase(0, 90, false), 1e-12)
	assert.InDelta(t, 0.5, Phase(0, 90, true), 1e-12)
	assert.InDelta(t, 1.5, EclipseMidpoint(0, 3, 0, 90), 1e-9)
	assert.InDelta(t, 11.5, EclipseMidpoint(10, 3, 0, 45), 1e-9)
}

func TestEclipseMidpoint_Eccentric(t *testing.T) {
	t.Parallel()
	// With periastron at conjunction the eclipse stays at half phase.
	assert.InDelta(t, 5.0, EclipseMidpoint(0, 10, 0.3, 90), 1e-9)

	tsec := EclipseMidpoint(0, 10, 0.3, 0)
	assert.InDelta(t, 6.88, tsec, 0.01)

	// Both conjunctions must place the planet along the line of sight.
	o := Orbit{Per: 10, Ars: 20, Inc: 90, Ecc: 0.3, W: 0}
	o.TPeri = PeriastronFromTransit(0, o.Per, o.Ecc, o.W)
	z, front := o.Position(0)
	assert.InDelta(t, 0, z, 1e-5)
	assert.True(t, front)
	z, front = o.Position(tsec)
	assert.InDelta(t, 0, z, 1e-5)
	assert.False(t, front)
}

func TestTransit_UniformDepth(t *testing.T) {
	t.Parallel()
	prof, err := limbdark.New(limbdark.Uniform, nil)
	require.NoError(t, err)
	o := Orbit{Per: 3, Ars: 10, Inc: 90, W: 90}
	flux := Transit([]float64{0, 0.5, 1.5}, o, 0.1, prof)
	assert.InDelta(t, 1-0.01, flux[0], 1e-12)
	assert.Equal(t, 1.0, flux[1])
	// Half an orbit later the planet is behind the star.
	assert.Equal(t, 1.0, flux[2])
}

func TestTransit_QuadraticMatchesUniformWhenCoefficientsZero(t *testing.T) {
	t.Parallel()
	uni, err := limbdark.New(limbdark.Uniform, nil)
	require.NoError(t, err)
	quadZero, err := limbdark.New(limbdark.Quadratic, []float64{0, 0})
	require.NoError(t, err)
	for _, z := range []float64{0, 0.5, 0.95, 1.0, 1.05} {
		assert.InDelta(t, Blocked(z, 0.1, uni), Blocked(z, 0.1, quadZero), 1e-6, "z=%g", z)
	}
}

func TestTransit_LimbDarkenedDepth(t *testing.T) {
	t.Parallel()
	prof, err := limbdark.New(limbdark.Quadratic, []float64{0.1, 0.3})
	require.NoError(t, err)
	// Small planet at disk center blocks I(1)/norm * pi p^2.
	p := 0.01
	want := math.Pi * p * p / prof.Norm()
	assert.InDelta(t, want, Blocked(0, p, prof), want*1e-3)
	// Near the limb the star is dimmer.
	assert.Less(t, Blocked(0.9, p, prof), Blocked(0, p, prof))
}

func TestEclipse(t *testing.T) {
	t.Parallel()
	o := Orbit{Per: 3, Ars: 10, Inc: 90, W: 90}
	o.TPeri = PeriastronFromEclipse(1.5, o.Per, o.Ecc, o.W)
	flux := Eclipse([]float64{1.5, 0, 0.75}, o, 0.1, 1e-3)
	assert.InDelta(t, 1.0, flux[0], 1e-12)
	assert.InDelta(t, 1.001, flux[1], 1e-12)
	assert.InDelta(t, 1.001, flux[2], 1e-12)
}
