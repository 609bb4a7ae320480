// Command blogctl inspects and migrates the blog's schema.
//
// Usage:
//
//	blogctl schema [--driver mysql|postgres|sqlite]   # print generated DDL
//	blogctl migrate up [--dry-run]                    # create missing tables
//	blogctl migrate down [--limit N] [--dry-run]      # drop tables, newest first
//
// The database comes from --config (YAML) and the same environment variables
// the server reads; the --db-* flags override both.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/sakif/awesome-blog/internal/config"
	"github.com/sakif/awesome-blog/internal/db"
)

// version is set via ldflags: -ldflags="-X main.version=v1.0.0"
var version = "dev"

// options are the root's persistent flags.
type options struct {
	configFile string
	logLevel   string
	db         dbFlags
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "blogctl",
		Short:         "Schema tooling for the blog database",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "", "Path to config file")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	opts.db.register(root.PersistentFlags())

	root.AddCommand(
		schemaCmd(opts),
		migrateCmd(opts),
	)
	return root
}

// loadConfig reads the configuration and applies the flag overrides.
func (o *options) loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	cfg, err := config.Load(o.configFile)
	if err != nil {
		return config.Config{}, err
	}
	o.db.apply(fs, &cfg.DB)
	return cfg, nil
}

func (o *options) logger(cmd *cobra.Command) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(o.logLevel)); err != nil {
		level = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
}

// dbFlags override the configured database. Only flags given on the command
// line are applied.
type dbFlags struct {
	driver   string
	host     string
	port     int
	user     string
	password string
	name     string
}

func (f *dbFlags) register(fs *pflag.FlagSet) {
	fs.StringVar(&f.driver, "db-driver", "", "Database driver (mysql, postgres, sqlite)")
	fs.StringVar(&f.host, "db-host", "", "Database host")
	fs.IntVar(&f.port, "db-port", 0, "Database port")
	fs.StringVar(&f.user, "db-user", "", "Database user")
	fs.StringVar(&f.password, "db-password", "", "Database password")
	fs.StringVar(&f.name, "db-name", "", "Database name, or file path for sqlite")
}

func (f *dbFlags) apply(fs *pflag.FlagSet, cfg *db.Config) {
	if fs.Changed("db-driver") {
		cfg.Driver = f.driver
	}
	if fs.Changed("db-host") {
		cfg.Host = f.host
	}
	if fs.Changed("db-port") {
		cfg.Port = f.port
	}
	if fs.Changed("db-user") {
		cfg.User = f.user
	}
	if fs.Changed("db-password") {
		cfg.Password = f.password
	}
	if fs.Changed("db-name") {
		cfg.Database = f.name
	}
}
