package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/banshee-data/transitfit/internal/report"
	"github.com/banshee-data/transitfit/internal/store"
)

func newRunsCmd(g *globalFlags) *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "runs",
		Short: "Inspect recorded fit and scan runs.",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "run database (defaults to the control file's database)")

	// open resolves the database from --db, falling back to the control file.
	open := func() (*store.RunStore, func() error, error) {
		path := dbPath
		if path == "" {
			cfg, err := g.loadConfig()
			if err != nil {
				return nil, nil, fmt.Errorf("--db or --config is required: %w", err)
			}
			path = cfg.Database
		}
		db, err := store.Open(path)
		if err != nil {
			return nil, nil, err
		}
		return store.NewRunStore(db), db.Close, nil
	}

	var (
		event string
		limit int
	)
	list := &cobra.Command{
		Use:   "list",
		Short: "List runs, newest first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			rs, closeDB, err := open()
			if err != nil {
				return err
			}
			defer closeDB()
			runs, err := rs.List(event, limit)
			if err != nil {
				return err
			}
			return report.WriteRuns(cmd.OutOrStdout(), runs, g.reportOptions())
		},
	}
	list.Flags().StringVar(&event, "event", "", "only runs with this event label")
	list.Flags().IntVar(&limit, "limit", 20, "maximum rows")

	show := &cobra.Command{
		Use:   "show RUN_ID",
		Short: "Show one run with its parameter values.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, closeDB, err := open()
			if err != nil {
				return err
			}
			defer closeDB()
			run, err := rs.Get(args[0])
			if err != nil {
				return err
			}
			return report.WriteRun(cmd.OutOrStdout(), run, g.reportOptions())
		},
	}

	del := &cobra.Command{
		Use:   "delete RUN_ID",
		Short: "Delete one run.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rs, closeDB, err := open()
			if err != nil {
				return err
			}
			defer closeDB()
			if err := rs.Delete(args[0]); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "deleted", args[0])
			return err
		},
	}

	cmd.AddCommand(list, show, del)
	return cmd
}
