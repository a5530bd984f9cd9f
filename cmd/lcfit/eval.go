package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/transitfit/internal/fit"
	"github.com/banshee-data/transitfit/internal/lcio"
	"github.com/banshee-data/transitfit/internal/report"
	"github.com/banshee-data/transitfit/internal/timeseries"
)

func (s *session) objective() (*fit.Objective, error) {
	return fit.NewFactory(s.cfg, s.lc)(s.store)
}

func newEvalCmd(g *globalFlags) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the full model, GP included, and optionally write predictions.",
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
			comp := obj.Model()
			noGP, err := comp.Eval(nil, false)
			if err != nil {
				return err
			}
			var gpPart timeseries.Masked
			full := noGP
			if comp.HasGP() {
				if gpPart, err = comp.GPEval(noGP, nil); err != nil {
					return err
				}
				if full, err = noGP.Add(gpPart); err != nil {
					return err
				}
			}
			if out != "" {
				rows, err := lcio.Predictions(sess.lc, full, gpPart)
				if err != nil {
					return err
				}
				if err := lcio.WritePredictions(out, rows); err != nil {
					return err
				}
			}
			st, err := obj.Residuals()
			if err != nil {
				return err
			}
			return report.WriteFit(cmd.OutOrStdout(), report.FitSummary{
				Result: fit.Result{Status: "evaluated"},
				Stats:  st,
			}, g.reportOptions())
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write predictions to this Parquet file")
	return cmd
}

func newLogLikeCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "loglike",
		Short: "Print the log prior, log-likelihood and log-probability of the parameter file.",
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
			lp := sess.store.LogPrior()
			ll, err := obj.LogLikelihood()
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "log prior %.10g\nlog likelihood %.10g\nlog probability %.10g\n", lp, ll, lp+ll)
			return err
		},
	}
}

func newParamsCmd(g *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "params",
		Short: "List the parameters, with channel replicas, that a fit would use.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			sess, err := g.loadSession()
			if err != nil {
				return err
			}
			return report.WriteParams(cmd.OutOrStdout(), sess.store, g.reportOptions())
		},
	}
}
