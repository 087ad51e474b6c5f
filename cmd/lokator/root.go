package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/erazemk/lokator/internal/clock"
	"github.com/erazemk/lokator/internal/config"
	"github.com/erazemk/lokator/internal/db"
	"github.com/erazemk/lokator/internal/store"
)

// app is the state shared by all subcommands.
type app struct {
	v        *viper.Viper
	cfgFile  string
	cfg      *config.Config
	closeLog func()
}

func newRootCmd() *cobra.Command {
	a := &app{v: config.New()}

	root := &cobra.Command{
		Use:           "lokator",
		Short:         "Track which location every inventory item is at",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if a.closeLog != nil {
				a.closeLog()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.cfgFile, "config", "c", "", "YAML config file")
	pf.StringP("db", "d", "", "SQLite database path (default: lokator.sqlite3)")
	pf.String("db-driver", "", "database backend: sqlite or postgres")
	pf.String("dsn", "", "Postgres connection string")
	pf.StringP("log", "l", "", "log file path (default: stdout/stderr only)")
	pf.String("log-level", "", "log level: debug, info, warn, error")
	pf.String("log-format", "", "log format: text or json")
	a.bind(pf.Lookup("db"), "db.path")
	a.bind(pf.Lookup("db-driver"), "db.driver")
	a.bind(pf.Lookup("dsn"), "db.dsn")
	a.bind(pf.Lookup("log"), "log.path")
	a.bind(pf.Lookup("log-level"), "log.level")
	a.bind(pf.Lookup("log-format"), "log.format")

	root.AddCommand(
		a.serveCmd(),
		a.initCmd(),
		a.migrateCmd(),
		a.useraddCmd(),
		a.exportCmd(),
		a.importCmd(),
	)
	return root
}

// setup binds the running command's flags, loads the configuration and
// installs the logger.
func (a *app) setup(cmd *cobra.Command) error {
	var bindErr error
	cmd.Flags().VisitAll(func(f *pflag.Flag) {
		if keys := f.Annotations[configKey]; len(keys) == 1 && bindErr == nil {
			bindErr = a.v.BindPFlag(keys[0], f)
		}
	})
	if bindErr != nil {
		return bindErr
	}

	cfg, err := config.Load(a.v, a.cfgFile)
	if err != nil {
		return err
	}
	a.cfg = cfg

	closeLog, err := setupLogger(cfg.Log)
	if err != nil {
		return err
	}
	a.closeLog = closeLog
	return nil
}

// openStore opens the configured database, brings its schema up to date and
// wraps it in a Store on the real clock.
func (a *app) openStore(ctx context.Context) (*store.Store, error) {
	database, dialect, err := db.Open(ctx, a.cfg.DB.Driver, a.cfg.DB.Target())
	if err != nil {
		return nil, err
	}
	if err := db.Migrate(ctx, database, dialect); err != nil {
		database.Close()
		return nil, err
	}
	return store.New(database, dialect, clock.Real{}), nil
}

// sqliteMissing reports whether the configured backend is a SQLite file that
// does not exist yet.
func (a *app) sqliteMissing() bool {
	if a.cfg.DB.Driver != db.DriverSQLite {
		return false
	}
	_, err := os.Stat(a.cfg.DB.Path)
	return os.IsNotExist(err)
}

// configKey is the flag annotation naming the config key a flag overrides.
const configKey = "lokator_config_key"

// bind marks f as overriding key. Binding happens in setup, for the running
// command only, because several subcommands override the same key.
func (a *app) bind(f *pflag.Flag, key string) {
	if f.Annotations == nil {
		f.Annotations = map[string][]string{}
	}
	f.Annotations[configKey] = []string{key}
}
