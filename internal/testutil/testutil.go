// Package testutil provides shared test fixtures: synthetic light curves
// and the canonical single-planet parameter sets used across packages.
package testutil

import (
	"math/rand/v2"
	"testing"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

// AssertNoError fails the test if err is not nil.
func AssertNoError(tb testing.TB, err error) {
	tb.Helper()
	if err != nil {
		tb.Fatalf("unexpected error: %v", err)
	}
}

// Linspace returns n evenly spaced values from start to stop inclusive.
func Linspace(start, stop float64, n int) []float64 {
	out := make([]float64, n)
	if n == 1 {
		out[0] = start
		return out
	}
	step := (stop - start) / float64(n-1)
	for i := range out {
		out[i] = start + float64(i)*step
	}
	return out
}

// TransitStore returns a store describing one planet on a 3-day circular
// orbit, inc 89, a/Rs 10, rp/Rs 0.1, quadratic limb darkening u=[0.1,0.3],
// mid-transit at t=0.
func TransitStore(tb testing.TB) *params.Store {
	tb.Helper()
	s := params.NewStore()
	s.SetFixed("t0", 0)
	s.SetFixed("per", 3)
	s.SetFixed("inc", 89)
	s.SetFixed("ars", 10)
	s.SetFixed("ecc", 0)
	s.SetFixed("w", 90)
	s.SetFixed("rprs", 0.1)
	s.SetText("limb_dark", "quadratic")
	s.SetFixed("u1", 0.1)
	s.SetFixed("u2", 0.3)
	return s
}

// SetFree marks name as a fitted parameter with a uniform prior.
func SetFree(tb testing.TB, s *params.Store, name string, value, lo, hi float64) {
	tb.Helper()
	err := s.Set(params.Parameter{
		Name:   name,
		Value:  value,
		Status: params.Free,
		Prior:  &params.Prior{Kind: params.Uniform, P1: lo, P2: hi},
	})
	AssertNoError(tb, err)
}

// LightCurve returns a light curve over time with nchan channels sharing
// the time axis, unit flux and constant uncertainty unc.
func LightCurve(tb testing.TB, time []float64, nchan int, unc float64) *timeseries.LightCurve {
	tb.Helper()
	channels := make([]int, nchan)
	for i := range channels {
		channels[i] = i
	}
	n := len(time) * nchan
	lc, err := timeseries.NewLightCurve(
		timeseries.NewMasked(time),
		timeseries.Ones(n),
		timeseries.Full(n, unc),
		timeseries.Full(n, unc),
		timeseries.Options{Channels: channels},
	)
	AssertNoError(tb, err)
	return lc
}

// AddNoise adds Gaussian noise of width sigma to values, seeded for
// reproducibility.
func AddNoise(values []float64, sigma float64, seed uint64) []float64 {
	noise := distuv.Normal{Mu: 0, Sigma: sigma, Src: rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)}
	out := make([]float64, len(values))
	for i, v := range values {
		out[i] = v + noise.Rand()
	}
	return out
}
