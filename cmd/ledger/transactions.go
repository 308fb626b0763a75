package main

import (
	"fmt"
	"time"

	"budget-tracker/internal/export"
	"budget-tracker/internal/logging"
	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

func (a *app) addCmd() *cobra.Command {
	var (
		username, kind, category, amount, currencyCode, date string
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "record an income, expense or savings goal",
		Example: `  ledger add -u alice --kind income --category Salary --amount 1000 --date 2024-01-01
  ledger add -u alice --kind expense --category Rent --amount 400`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "user", "kind", "category", "amount"); err != nil {
				return err
			}
			k, err := models.ParseKind(kind)
			if err != nil {
				return err
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: invalid amount %q", models.ErrValidation, amount)
			}
			if date == "" {
				date = time.Now().Format(models.DateLayout)
			}
			entry := models.Entry{Kind: k, Category: category, Amount: value, Currency: currencyCode, Date: date}

			return a.withLedger("add", func(l *ledger, logData *logging.LogData) error {
				accountID, err := l.accountID(username, logData)
				if err != nil {
					return err
				}
				id, err := l.db.InsertTransaction(accountID, entry)
				if err != nil {
					return err
				}
				logData.AddData("transaction_id", id)

				stored, err := entry.Normalize()
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recorded %s #%d: %s %s %s on %s\n",
					stored.Kind, id, stored.Category, stored.Amount.StringFixed(2), stored.Currency, stored.Date)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "income, expense or goal")
	cmd.Flags().StringVarP(&category, "category", "c", "", "category")
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "positive amount with at most two decimals")
	cmd.Flags().StringVar(&currencyCode, "currency", "", "ISO 4217 currency code (default USD)")
	cmd.Flags().StringVarP(&date, "date", "d", "", "date as YYYY-MM-DD (default today)")
	return cmd
}

func (a *app) importCmd() *cobra.Command {
	var username, kind, format string
	cmd := &cobra.Command{
		Use:   "import FILE...",
		Short: "import transactions from exported CSV or JSON files",
		Long: `Import transactions from files written by export. CSV files hold one kind of
transaction, given by --kind. All files are imported in one batch: if any row is
invalid nothing is stored.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := requireFlags(cmd, "user"); err != nil {
				return err
			}
			var k models.Kind
			if format == export.FormatCSV {
				if kind == "" {
					return fmt.Errorf("%w: --kind is required for CSV imports", models.ErrValidation)
				}
				var err error
				if k, err = models.ParseKind(kind); err != nil {
					return err
				}
			}

			return a.withLedger("import", func(l *ledger, logData *logging.LogData) error {
				accountID, err := l.accountID(username, logData)
				if err != nil {
					return err
				}
				n, err := l.exporter.ImportFiles(accountID, format, k, args...)
				if err != nil {
					return err
				}
				logData.AddData("count", n)
				fmt.Fprintf(cmd.OutOrStdout(), "Imported %d transactions\n", n)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "kind of the transactions in CSV files")
	cmd.Flags().StringVarP(&format, "format", "f", export.FormatCSV, "file format: csv or json")
	return cmd
}
