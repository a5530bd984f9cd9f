package main

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/spf13/cobra"

	"github.com/banshee-data/transitfit/internal/config"
	"github.com/banshee-data/transitfit/internal/fit"
	"github.com/banshee-data/transitfit/internal/monitoring"
	"github.com/banshee-data/transitfit/internal/report"
	"github.com/banshee-data/transitfit/internal/store"
)

// storeFlags select where finished runs are recorded.
type storeFlags struct {
	dbPath  string
	noStore bool
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.dbPath, "db", "", "run database (defaults to the control file's database)")
	cmd.Flags().BoolVar(&f.noStore, "no-store", false, "do not record the run")
}

func (f *storeFlags) path(cfg *config.FitConfig) string {
	if f.dbPath != "" {
		return f.dbPath
	}
	return cfg.Database
}

// record stores run with the session's final parameter values.
func (f *storeFlags) record(sess *session, run *store.Run) (string, error) {
	if f.noStore {
		return "", nil
	}
	db, err := store.Open(f.path(sess.cfg))
	if err != nil {
		return "", err
	}
	defer db.Close()

	cfgJSON, err := json.Marshal(sess.cfg)
	if err != nil {
		return "", fmt.Errorf("encode config: %w", err)
	}
	run.EventLabel = sess.cfg.EventLabel
	run.Models = sess.cfg.Models
	run.Channels = sess.lc.Channels()
	run.NSamples = sess.lc.Flux.Len()
	run.ConfigJSON = cfgJSON
	run.Params = sess.store.Values()
	run.Free = sess.store.FreeNames()
	if err := store.NewRunStore(db).Insert(run); err != nil {
		return "", err
	}
	monitoring.Logger().Info().Str("run_id", run.RunID).Str("method", run.Method).Msg("run stored")
	return run.RunID, nil
}

func newFitCmd(g *globalFlags) *cobra.Command {
	var (
		sf      storeFlags
		maxIter int
	)
	cmd := &cobra.Command{
		Use:   "fit",
		Short: "Maximise the log-probability with Nelder-Mead and record the result.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := g.loadSession()
			if err != nil {
				return err
			}
			obj, err := sess.objective()
			if err != nil {
				return err
			}
			if maxIter <= 0 {
				maxIter = sess.cfg.GetMaxIterations()
			}
			res, err := fit.Minimize(obj, maxIter)
			if err != nil {
				return err
			}
			st, err := obj.Residuals()
			if err != nil {
				return err
			}
			id, err := sf.record(sess, &store.Run{
				Method:     config.MethodLSQ,
				Status:     res.Status,
				NFree:      st.NFree,
				LogProb:    res.LogProb,
				ChiSq:      st.ChiSq,
				RedChiSq:   st.RedChiSq,
				RMS:        st.RMS,
				Iterations: res.Iterations,
			})
			if err != nil {
				return err
			}
			return report.WriteFit(cmd.OutOrStdout(), report.FitSummary{Result: res, Stats: st, RunID: id}, g.reportOptions())
		},
	}
	sf.register(cmd)
	cmd.Flags().IntVar(&maxIter, "max-iter", 0, "iteration limit (defaults to the control file's max_iterations)")
	return cmd
}

func newScanCmd(g *globalFlags) *cobra.Command {
	var (
		sf      storeFlags
		specs   []string
		top     int
		workers int
	)
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Evaluate the log-probability on a parameter grid.",
		Long: `Evaluate the log-probability on the cartesian product of one or more
parameter axes, given as name=min:max:step or name=v1,v2,...`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if len(specs) == 0 {
				return fmt.Errorf("at least one --grid axis is required")
			}
			axes := make([]fit.Axis, len(specs))
			for i, spec := range specs {
				a, err := fit.ParseAxis(spec)
				if err != nil {
					return err
				}
				axes[i] = a
			}
			sess, err := g.loadSession()
			if err != nil {
				return err
			}
			if workers <= 0 {
				workers = sess.cfg.GetScanWorkers()
			}
			points, err := fit.Scan(cmd.Context(), sess.store, fit.NewFactory(sess.cfg, sess.lc), axes, workers)
			if err != nil {
				return err
			}

			// Leave the session store at the best point for the record.
			best := points[0]
			for k, a := range axes {
				if err := sess.store.SetValue(a.Name, best.Values[k]); err != nil {
					return err
				}
			}
			if _, err := sf.record(sess, &store.Run{
				Method:     config.MethodScan,
				Status:     fmt.Sprintf("%d points", len(points)),
				NFree:      len(axes),
				LogProb:    best.LogProb,
				ChiSq:      math.NaN(),
				RedChiSq:   math.NaN(),
				RMS:        math.NaN(),
				Iterations: len(points),
			}); err != nil {
				return err
			}
			return report.WriteScan(cmd.OutOrStdout(), axes, points, top, g.reportOptions())
		},
	}
	sf.register(cmd)
	cmd.Flags().StringArrayVarP(&specs, "grid", "g", nil, "grid axis name=min:max:step or name=v1,v2 (repeatable)")
	cmd.Flags().IntVar(&top, "top", 10, "rows to print (0 for all)")
	cmd.Flags().IntVar(&workers, "workers", 0, "concurrent evaluators (defaults to the control file's scan_workers)")
	return cmd
}
