package main

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/banshee-data/transitfit/internal/fit"
	"github.com/banshee-data/transitfit/internal/lcio"
	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

type simulateFlags struct {
	start, stop float64
	n           int
	noise       float64
	seed        uint64
	out         string
}

func newSimulateCmd(g *globalFlags) *cobra.Command {
	f := &simulateFlags{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Write a synthetic light curve drawn from the configured model.",
		Long: `Evaluate the configured model, without the GP, on an even time grid for
every configured channel and add white Gaussian noise. The noise level is
also written as the per-sample uncertainty.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if f.out == "" {
				return errors.New("--out is required")
			}
			if f.n < 2 || f.stop <= f.start {
				return fmt.Errorf("need --n >= 2 and --stop > --start, got n=%d over [%g, %g]", f.n, f.start, f.stop)
			}
			if f.noise <= 0 {
				return fmt.Errorf("--noise must be positive, got %g", f.noise)
			}
			cfg, err := g.loadConfig()
			if err != nil {
				return err
			}
			if g.paramsPath == "" {
				return errors.New("--params is required")
			}
			s, err := params.LoadFile(g.paramsPath)
			if err != nil {
				return err
			}

			lc, err := syntheticLightCurve(cfg.Channels, cfg.MultiWhite, cfg.TimeUnits, f)
			if err != nil {
				return err
			}
			s.ExpandChannels(lc.Channels())
			obj, err := fit.NewFactory(cfg, lc)(s)
			if err != nil {
				return err
			}
			m, err := obj.Model().Eval(nil, false)
			if err != nil {
				return err
			}

			noise := distuv.Normal{Mu: 0, Sigma: f.noise, Src: rand.NewPCG(f.seed, f.seed^0x5851f42d4c957f2d)}
			for i, v := range m.Values {
				lc.Flux.Values[i] = v + noise.Rand()
			}
			if err := lcio.WriteLightCurve(f.out, lc); err != nil {
				return err
			}
			monitoring.Logger().Info().
				Str("path", f.out).
				Int("samples", lc.Flux.Len()).
				Ints("channels", lc.Channels()).
				Msg("synthetic light curve written")
			return nil
		},
	}
	fl := cmd.Flags()
	fl.Float64Var(&f.start, "start", -0.2, "first time stamp")
	fl.Float64Var(&f.stop, "stop", 0.2, "last time stamp")
	fl.IntVar(&f.n, "n", 200, "samples per channel")
	fl.Float64Var(&f.noise, "noise", 1e-3, "white noise standard deviation")
	fl.Uint64Var(&f.seed, "seed", 1, "random seed")
	fl.StringVarP(&f.out, "out", "o", "", "output Parquet file")
	return cmd
}

// syntheticLightCurve lays out an even time grid with unit flux for every
// channel. Multiwhite light curves repeat the grid per channel.
func syntheticLightCurve(channels []int, multiWhite bool, timeUnits string, f *simulateFlags) (*timeseries.LightCurve, error) {
	if len(channels) == 0 {
		channels = []int{0}
	}
	grid := make([]float64, f.n)
	step := (f.stop - f.start) / float64(f.n-1)
	for i := range grid {
		grid[i] = f.start + float64(i)*step
	}

	opts := timeseries.Options{Channels: channels, MultiWhite: multiWhite, TimeUnits: timeUnits}
	time := timeseries.NewMasked(grid)
	if multiWhite {
		parts := make([]timeseries.Masked, len(channels))
		opts.Nints = make([]int, len(channels))
		for i := range parts {
			parts[i] = timeseries.NewMasked(append([]float64(nil), grid...))
			opts.Nints[i] = f.n
		}
		time = timeseries.Concat(parts...)
	}
	total := f.n * len(channels)
	return timeseries.NewLightCurve(
		time,
		timeseries.Ones(total),
		timeseries.Full(total, f.noise),
		timeseries.Masked{},
		opts,
	)
}
