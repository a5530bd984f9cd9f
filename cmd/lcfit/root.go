package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/transitfit/internal/config"
	"github.com/banshee-data/transitfit/internal/lcio"
	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/params"
	"github.com/banshee-data/transitfit/internal/report"
	"github.com/banshee-data/transitfit/internal/timeseries"
	"github.com/banshee-data/transitfit/internal/version"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	paramsPath string
	lcPath     string
	logLevel   string
	format     string
	color      bool
	precision  int
}

func newRootCmd() *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "lcfit",
		Short:         "Evaluate and fit transit, eclipse and GP light-curve models.",
		Version:       version.String(),
		SilenceErrors: true,
		SilenceUsage:  true,
		Run: func(cmd *cobra.Command, _ []string) {
			_ = cmd.Help()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&g.configPath, "config", "c", "", "control file (YAML, JSON or TOML)")
	pf.StringVarP(&g.paramsPath, "params", "p", "", "parameter file")
	pf.StringVarP(&g.lcPath, "lc", "l", "", "light-curve Parquet file")
	pf.StringVar(&g.logLevel, "log-level", "", "override the control file log level")
	pf.StringVar(&g.format, "format", report.TableOut, "output format: table or json")
	pf.BoolVar(&g.color, "color", false, "colour terminal output")
	pf.IntVar(&g.precision, "precision", 6, "significant digits in tables")

	root.AddCommand(
		newEvalCmd(g),
		newLogLikeCmd(g),
		newParamsCmd(g),
		newFitCmd(g),
		newScanCmd(g),
		newSimulateCmd(g),
		newRunsCmd(g),
		newVersionCmd(),
	)
	return root
}

func (g *globalFlags) reportOptions() report.Options {
	return report.Options{Format: g.format, Precision: g.precision, Color: g.color}
}

// loadConfig reads the control file and installs its logger.
func (g *globalFlags) loadConfig() (*config.FitConfig, error) {
	if g.configPath == "" {
		return nil, errors.New("--config is required")
	}
	v := config.NewViper(g.configPath)
	if g.logLevel != "" {
		v.Set("log.level", g.logLevel)
	}
	cfg, err := config.FromViper(v)
	if err != nil {
		return nil, err
	}
	if _, err := monitoring.New(cfg.Log.Monitoring()); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is everything a model evaluation needs.
type session struct {
	cfg   *config.FitConfig
	store *params.Store
	lc    *timeseries.LightCurve
}

func (g *globalFlags) loadSession() (*session, error) {
	cfg, err := g.loadConfig()
	if err != nil {
		return nil, err
	}
	if g.paramsPath == "" || g.lcPath == "" {
		return nil, errors.New("--params and --lc are required")
	}
	s, err := params.LoadFile(g.paramsPath)
	if err != nil {
		return nil, err
	}
	lc, err := lcio.ReadLightCurve(g.lcPath, lcio.ReadOptions{
		Channels:   cfg.Channels,
		MultiWhite: cfg.MultiWhite,
		TimeUnits:  cfg.TimeUnits,
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", g.lcPath, err)
	}
	s.ExpandChannels(lc.Channels())
	monitoring.Logger().Debug().
		Str("event", cfg.EventLabel).
		Ints("channels", lc.Channels()).
		Int("samples", lc.Flux.Len()).
		Strs("free", s.FreeNames()).
		Msg("session loaded")
	return &session{cfg: cfg, store: s, lc: lc}, nil
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "lcfit", version.String())
			return err
		},
	}
}
