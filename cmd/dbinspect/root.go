package main

import (
	"io"

	"github.com/koustreak/dbinspect/internal/config"
	"github.com/koustreak/dbinspect/internal/inspect"
	"github.com/koustreak/dbinspect/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by all subcommands.
type app struct {
	v       *viper.Viper
	cfgFile string
	cfg     *config.Config
	log     *logger.Logger
	out     io.Writer
}

func newRootCmd(out io.Writer) *cobra.Command {
	a := &app{v: config.New(), out: out}

	root := &cobra.Command{
		Use:   "dbinspect",
		Short: "Inspect the schema of a live database",
		Long: `dbinspect connects to a PostgreSQL, MySQL, SQL Server or SQLite database,
reads the tables, columns and foreign keys of one schema and prints them.

The backend is chosen from the URI scheme:
  postgres:// postgresql:// pg://   PostgreSQL
  mysql:// mariadb://               MySQL
  sqlserver:// mssql://             SQL Server
  sqlite: sqlite3: file:            SQLite`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.load,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is dbinspect.yaml next to the binary or in the working directory)")
	pf.String("uri", "", "database connection URI")
	pf.String("schema", "", "schema to inspect (database name on MySQL, main on SQLite)")
	pf.Int("concurrency", 1, "tables whose columns are loaded in parallel")
	pf.StringSlice("exclude-prefix", nil, "skip tables starting with this prefix (repeatable)")
	pf.Duration("timeout", 0, "abort the inspection after this long (0 means no limit)")
	pf.String("log-level", "info", "log level: debug, info, warn, error, disabled")
	pf.String("log-format", "console", "log format: console or json")

	_ = a.v.BindPFlag("database.uri", pf.Lookup("uri"))
	_ = a.v.BindPFlag("database.schema", pf.Lookup("schema"))
	_ = a.v.BindPFlag("database.concurrency", pf.Lookup("concurrency"))
	_ = a.v.BindPFlag("database.exclude_prefixes", pf.Lookup("exclude-prefix"))
	_ = a.v.BindPFlag("database.timeout", pf.Lookup("timeout"))
	_ = a.v.BindPFlag("log.level", pf.Lookup("log-level"))
	_ = a.v.BindPFlag("log.format", pf.Lookup("log-format"))

	root.AddCommand(a.newInspectCmd(), a.newServeCmd())
	return root
}

// load merges config file, environment and flags, then sets up logging.
func (a *app) load(cmd *cobra.Command, args []string) error {
	used, err := config.ReadFile(a.v, a.cfgFile)
	if err != nil {
		return err
	}

	cfg, err := config.Load(a.v)
	if err != nil {
		return err
	}
	a.cfg = cfg

	a.log = logger.New(cfg.LoggerConfig())
	logger.SetGlobal(a.log)
	if used != "" {
		a.log.Debugf("using config file %s", used)
	}
	return nil
}

func (a *app) inspectOptions() []inspect.Option {
	db := a.cfg.Database
	return []inspect.Option{
		inspect.WithConcurrency(db.Concurrency),
		inspect.WithExcludePrefixes(db.ExcludePrefixes...),
		inspect.WithMaxConns(db.MaxConns),
		inspect.WithConnectTimeout(db.ConnectTimeout),
		inspect.WithTimeout(db.Timeout),
	}
}
