package model

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/transitfit/internal/kernel"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/testutil"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

func gpStore(t *testing.T) *params.Store {
	t.Helper()
	s := params.NewStore()
	s.SetFixed("A", math.Log(1e-6))
	s.SetFixed("m", math.Log(0.05))
	return s
}

func TestNewGPModel_ConfigErrors(t *testing.T) {
	t.Parallel()
	lc := testutil.LightCurve(t, testutil.Linspace(0, 1, 10), 1, 1e-3)
	b := Base{Store: gpStore(t), LC: lc}
	tests := []struct {
		name string
		cfg  GPConfig
		want error
	}{
		{"backend", GPConfig{KernelClasses: []string{"Matern32"}, Backend: "celerite"}, ErrUnsupportedBackend},
		{"two kernels", GPConfig{KernelClasses: []string{"Matern32", "Exp"}}, ErrMultiDimensionalGP},
		{"no kernels", GPConfig{}, kernel.ErrUnsupportedKernel},
		{"unknown kernel", GPConfig{KernelClasses: []string{"SHO"}}, kernel.ErrUnsupportedKernel},
		{"input", GPConfig{KernelClasses: []string{"Matern32"}, KernelInputs: []string{"x"}}, ErrUnsupportedKernelInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewGPModel(b, tt.cfg)
			assert.True(t, errors.Is(err, tt.want), "got %v", err)
		})
	}

	m, err := NewGPModel(b, GPConfig{KernelClasses: []string{"Matern32"}, Backend: BackendDense})
	require.NoError(t, err)
	assert.Equal(t, GPType, m.Type())
}

func TestGPModel_SetupMissingHyperparameter(t *testing.T) {
	t.Parallel()
	lc := testutil.LightCurve(t, testutil.Linspace(0, 1, 10), 1, 1e-3)
	s := params.NewStore()
	s.SetFixed("A", 0)
	m, err := NewGPModel(Base{Store: s, LC: lc}, GPConfig{KernelClasses: []string{"Matern32"}})
	require.NoError(t, err)
	assert.True(t, errors.Is(m.Setup(), params.ErrUnknownParameter))
}

func TestGPModel_EvalReexpandsMask(t *testing.T) {
	t.Parallel()
	n := 50
	time := testutil.Linspace(0, 1, n)
	flux := make([]float64, n)
	for i, ti := range time {
		flux[i] = 1 + 1e-3*math.Sin(2*math.Pi*ti)
	}
	flux[7] = math.NaN()
	mask := make([]bool, n)
	mask[20] = true
	lc, err := timeseries.NewLightCurve(
		timeseries.NewMasked(time),
		timeseries.Masked{Values: flux, Mask: mask},
		timeseries.Full(n, 1e-4), timeseries.Masked{},
		timeseries.Options{},
	)
	require.NoError(t, err)
	m, err := NewGPModel(Base{Store: gpStore(t), LC: lc}, GPConfig{KernelClasses: []string{"Matern32"}, Normalize: true})
	require.NoError(t, err)
	require.NoError(t, m.Setup())

	got, err := m.Eval(EvalOptions{Fit: timeseries.Ones(n)})
	require.NoError(t, err)
	require.Equal(t, n, got.Len())
	assert.True(t, got.IsMasked(7))
	assert.True(t, got.IsMasked(20))
	for i, v := range got.Values {
		if got.IsMasked(i) {
			continue
		}
		assert.False(t, math.IsNaN(v))
		// The GP absorbs most of the sinusoid.
		assert.InDelta(t, flux[i]-1, v, 3e-4, "sample %d", i)
	}

	ll, err := m.LogLikelihood(timeseries.Ones(n), nil)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(ll) || math.IsInf(ll, 0))
}

func TestGPModel_LogLikelihoodPermutationInvariant(t *testing.T) {
	t.Parallel()
	n := 40
	rng := rand.New(rand.NewPCG(3, 4))
	time := testutil.Linspace(0, 2, n)
	flux := testutil.AddNoise(timeseries.Ones(n).Values, 1e-3, 11)
	mask := make([]bool, n)
	mask[5], mask[17] = true, true
	unc := timeseries.Full(n, 1e-3)

	build := func(time, flux []float64, mask []bool) *GPModel {
		lc, err := timeseries.NewLightCurve(
			timeseries.NewMasked(time),
			timeseries.Masked{Values: flux, Mask: mask},
			unc, unc, timeseries.Options{},
		)
		require.NoError(t, err)
		s := params.NewStore()
		s.SetFixed("A", math.Log(1e-6))
		s.SetFixed("m", math.Log(0.3))
		m, err := NewGPModel(Base{Store: s, LC: lc}, GPConfig{KernelClasses: []string{"Matern32"}})
		require.NoError(t, err)
		require.NoError(t, m.Setup())
		return m
	}

	want, err := build(time, flux, mask).LogLikelihood(timeseries.Ones(n), nil)
	require.NoError(t, err)

	perm := rng.Perm(n)
	pt, pf, pm := make([]float64, n), make([]float64, n), make([]bool, n)
	for i, j := range perm {
		pt[i], pf[i], pm[i] = time[j], flux[j], mask[j]
	}
	got, err := build(pt, pf, pm).LogLikelihood(timeseries.Ones(n), nil)
	require.NoError(t, err)
	assert.InDelta(t, want, got, 1e-8*math.Abs(want))
}

func TestGPModel_ChannelKeys(t *testing.T) {
	t.Parallel()
	lc := testutil.LightCurve(t, testutil.Linspace(0, 1, 20), 2, 1e-3)
	s := gpStore(t)
	testutil.SetFree(t, s, "A", math.Log(1e-6), -30, 0)
	s.ExpandChannels(lc.Channels())
	require.NoError(t, s.SetValue("A_1", math.Log(4e-6)))
	m, err := NewGPModel(Base{Store: s, LC: lc}, GPConfig{KernelClasses: []string{"ExpSquared"}})
	require.NoError(t, err)
	require.NoError(t, m.Setup())

	k0, err := m.Kernel(0)
	require.NoError(t, err)
	k1, err := m.Kernel(1)
	require.NoError(t, err)
	assert.InDelta(t, 1e-6, k0.Eval(0, 0), 1e-18)
	assert.InDelta(t, 4e-6, k1.Eval(0, 0), 1e-18)

	// Evaluating one channel takes only that channel's fit segment.
	full, err := m.Eval(EvalOptions{Fit: timeseries.Ones(40)})
	require.NoError(t, err)
	one, err := m.Eval(EvalOptions{Channel: Channel(1), Fit: timeseries.Ones(20)})
	require.NoError(t, err)
	assert.Equal(t, full.Values[20:], one.Values)

	llAll, err := m.LogLikelihood(timeseries.Ones(40), nil)
	require.NoError(t, err)
	ll0, err := m.LogLikelihood(timeseries.Ones(20), Channel(0))
	require.NoError(t, err)
	ll1, err := m.LogLikelihood(timeseries.Ones(20), Channel(1))
	require.NoError(t, err)
	assert.InDelta(t, llAll, ll0+ll1, 1e-9)
}
