package main

import (
	"fmt"
	"slices"

	"github.com/spf13/cobra"

	"github.com/sakif/awesome-blog/internal/db"
	"github.com/sakif/awesome-blog/internal/orm"

	// Registers the blog mappings.
	_ "github.com/sakif/awesome-blog/internal/model"
)

var dialects = []string{db.DriverMySQL, db.DriverPostgres, db.DriverSQLite}

// schemaCmd prints the CREATE TABLE statements of every registered mapping.
// It never connects to a database.
func schemaCmd(opts *options) *cobra.Command {
	var driver string

	cmd := &cobra.Command{
		Use:   "schema",
		Short: "Print the generated DDL",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if driver == "" {
				cfg, err := opts.loadConfig(cmd.Flags())
				if err != nil {
					return err
				}
				driver = cfg.DB.Driver
			}
			if !slices.Contains(dialects, driver) {
				return fmt.Errorf("unknown driver %q (want one of %v)", driver, dialects)
			}

			d := db.DialectFor(driver)
			out := cmd.OutOrStdout()
			for i, m := range orm.Mappings() {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintln(out, m.DDL(d))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&driver, "driver", "", "SQL dialect (mysql, postgres, sqlite); defaults to the configured driver")
	return cmd
}
