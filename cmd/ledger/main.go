package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"budget-tracker/internal/analysis"
	"budget-tracker/internal/config"
	"budget-tracker/internal/currency"
	"budget-tracker/internal/export"
	"budget-tracker/internal/logging"
	"budget-tracker/internal/storage"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func main() {
	_ = godotenv.Load()

	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdin)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

// app holds the state shared by every subcommand of one invocation.
type app struct {
	stdin      io.Reader
	configPath string
	dbPath     string

	cfg *config.Config
	log *logrus.Logger
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	a := &app{stdin: stdin}

	cmd := &cobra.Command{
		Use:   "ledger",
		Short: "ledger tracks personal income, expenses and savings goals",
		Long: `ledger records income, expenses and savings goals per account in a local
SQLite database, reports totals and budgeting advice and exports the ledger
to CSV or JSON.`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
	}
	cmd.PersistentFlags().StringVar(&a.configPath, "config", "ledger.yaml", "path to the YAML config file")
	cmd.PersistentFlags().StringVar(&a.dbPath, "db", "", "path to the database file (overrides DB_PATH)")

	cmd.AddCommand(
		a.registerCmd(),
		a.loginCmd(),
		a.addCmd(),
		a.importCmd(),
		a.summaryCmd(),
		a.topCmd(),
		a.exportCmd(),
		a.convertCmd(),
	)
	return cmd
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(a.configPath)
	if err != nil {
		return err
	}
	if a.dbPath != "" {
		cfg.DBPath = a.dbPath
	}
	a.cfg = cfg

	a.log, err = logging.Setup(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
	return err
}

func (a *app) converter() *currency.Converter {
	return currency.New(currency.Options{
		URL:     a.cfg.RatesURL,
		Timeout: a.cfg.RatesTimeout,
		Logger:  a.log,
	})
}

// ledger is an open database with the services built on it.
type ledger struct {
	db       *storage.DB
	engine   *analysis.Engine
	exporter *export.Exporter
}

// withLedger opens the database, runs fn as the named logged command and
// closes the database again.
func (a *app) withLedger(name string, fn func(l *ledger, logData *logging.LogData) error) error {
	db, err := storage.Open(a.cfg.DBPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	engine := analysis.New(db, a.converter(), a.cfg.BaseCurrency)
	l := &ledger{
		db:     db,
		engine: engine,
		exporter: export.New(db, engine, export.Options{
			Dir:    a.cfg.ExportDir,
			Logger: a.log,
		}),
	}

	return logging.Run(a.log, name, func(logData *logging.LogData) error {
		return fn(l, logData)
	})
}

func (l *ledger) accountID(username string, logData *logging.LogData) (int64, error) {
	id, err := l.db.GetAccountID(username)
	if err != nil {
		return 0, err
	}
	logData.AddData("account_id", id)
	return id, nil
}

// requireFlags reports the named flags that were left empty.
func requireFlags(cmd *cobra.Command, names ...string) error {
	var missing []string
	for _, name := range names {
		if f := cmd.Flags().Lookup(name); f != nil && f.Value.String() == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	cmd.Usage()
	return fmt.Errorf("missing required flags: %s", strings.Join(missing, ", "))
}
