package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/migrate"
	"github.com/sakif/awesome-blog/internal/model"
)

func migrateCmd(opts *options) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back the generated schema",
	}
	cmd.AddCommand(
		migrateDirectionCmd(opts, true),
		migrateDirectionCmd(opts, false),
	)
	return cmd
}

func migrateDirectionCmd(opts *options, up bool) *cobra.Command {
	var (
		dryRun bool
		limit  int
	)

	use, short := "up", "Create the missing tables"
	if !up {
		use, short = "down", "Drop tables, newest first"
	}

	cmd := &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := opts.loadConfig(cmd.Flags())
			if err != nil {
				return err
			}
			logger := opts.logger(cmd)

			engine, err := db.Open(cfg.DB, logger)
			if err != nil {
				return err
			}
			defer engine.Close()

			m := migrate.New(engine, logger, model.All()...)
			out := cmd.OutOrStdout()

			if dryRun {
				planned, err := m.Plan(up, limit)
				if err != nil {
					return err
				}
				if len(planned) == 0 {
					fmt.Fprintln(out, "Nothing to do.")
				}
				for _, p := range planned {
					fmt.Fprintf(out, "-- %s\n%s\n", p.ID, strings.Join(p.Queries, "\n"))
				}
				return nil
			}

			var n int
			if up {
				n, err = m.Up()
			} else {
				n, err = m.Down(limit)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "Applied %d migration(s) %s.\n", n, use)
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print SQL without executing")
	if !up {
		cmd.Flags().IntVar(&limit, "limit", 1, "Number of migrations to roll back (0 for all)")
	}
	return cmd
}
