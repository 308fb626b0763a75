package main

import (
	"fmt"
	"io"

	"budget-tracker/internal/analysis"
	"budget-tracker/internal/logging"
	"budget-tracker/internal/models"

	"github.com/Rhymond/go-money"
	"github.com/fatih/color"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var (
	green  = color.New(color.FgGreen)
	red    = color.New(color.FgRed)
	yellow = color.New(color.FgYellow)
)

// display formats d in the conventions of the currency, e.g. $1,000.00.
func display(d decimal.Decimal, code string) string {
	c := money.GetCurrency(code)
	if c == nil {
		return d.StringFixed(2) + " " + code
	}
	minor := d.Shift(int32(c.Fraction)).Round(0).IntPart()
	return money.New(minor, c.Code).Display()
}

// rangeFlags are the optional --from and --to bounds of a report.
type rangeFlags struct {
	from, to string
}

func (r *rangeFlags) flags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.from, "from", "", "first day of the range as YYYY-MM-DD")
	cmd.Flags().StringVar(&r.to, "to", "", "last day of the range as YYYY-MM-DD")
}

// value returns nil when neither bound is set.
func (r *rangeFlags) value() (*models.DateRange, error) {
	if r.from == "" && r.to == "" {
		return nil, nil
	}
	if r.from == "" || r.to == "" {
		return nil, fmt.Errorf("%w: --from and --to must be given together", models.ErrValidation)
	}
	dr, err := models.NewDateRange(r.from, r.to)
	if err != nil {
		return nil, err
	}
	return &dr, nil
}

func (a *app) summaryCmd() *cobra.Command {
	var (
		username, target string
		topN             int
		dates            rangeFlags
	)
	cmd := &cobra.Command{
		Use:   "summary",
		Short: "show totals, savings rate and budgeting advice",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "user"); err != nil {
				return err
			}
			r, err := dates.value()
			if err != nil {
				return err
			}
			if r != nil && target != "" {
				return fmt.Errorf("%w: --currency cannot be combined with a date range", models.ErrValidation)
			}

			return a.withLedger("summary", func(l *ledger, logData *logging.LogData) error {
				accountID, err := l.accountID(username, logData)
				if err != nil {
					return err
				}
				s, err := l.engine.Summarize(accountID, r, topN)
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				base := a.cfg.BaseCurrency
				fmt.Fprintf(out, "Account: %s\n", username)
				if r != nil {
					fmt.Fprintf(out, "Date Range: %s\n", r)
				}

				income, expenses, net, code := s.TotalIncome, s.TotalExpenses, s.NetIncome, base
				if target != "" && target != base {
					t, err := l.engine.ConvertedTotals(cmd.Context(), accountID, target)
					if err != nil {
						return err
					}
					for _, w := range t.Warnings {
						yellow.Fprintf(out, "Warning: %v\n", w)
					}
					logData.AddData("conversion_warnings", len(t.Warnings))
					income, expenses, net, code = t.Income, t.Expenses, t.Net, t.Currency
				}

				fmt.Fprintf(out, "Total Income:   %s\n", display(income, code))
				fmt.Fprintf(out, "Total Expenses: %s\n", display(expenses, code))
				fmt.Fprintf(out, "Net Income:     %s\n", display(net, code))
				fmt.Fprintf(out, "Savings Rate:   %s%%\n", s.SavingsRate.StringFixed(2))
				fmt.Fprintln(out)

				status := green
				if s.Status == analysis.StatusOverBudget {
					status = red
				}
				status.Fprintln(out, s.Status)
				fmt.Fprintf(out, "Advice: %s\n", s.Advice)

				printTop(out, fmt.Sprintf("Top %d Income Categories", topN), s.TopIncome, base)
				printTop(out, fmt.Sprintf("Top %d Expense Categories", topN), s.TopExpenses, base)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVar(&target, "currency", "", "show totals converted into this currency")
	cmd.Flags().IntVarP(&topN, "top", "n", 5, "number of categories to list per kind")
	dates.flags(cmd)
	return cmd
}

func printTop(out io.Writer, title string, totals []models.GroupTotal, code string) {
	fmt.Fprintf(out, "\n%s\n", title)
	if len(totals) == 0 {
		fmt.Fprintln(out, "  (none)")
		return
	}
	for i, g := range totals {
		fmt.Fprintf(out, "  %d. %s %s\n", i+1, g.Key, display(g.Total, code))
	}
}

func (a *app) topCmd() *cobra.Command {
	var (
		username, kind string
		n              int
	)
	cmd := &cobra.Command{
		Use:   "top",
		Short: "rank the categories of one kind by their total",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "user", "kind"); err != nil {
				return err
			}
			k, err := models.ParseKind(kind)
			if err != nil {
				return err
			}

			return a.withLedger("top", func(l *ledger, logData *logging.LogData) error {
				accountID, err := l.accountID(username, logData)
				if err != nil {
					return err
				}
				totals, err := l.engine.TopCategories(accountID, k, n)
				if err != nil {
					return err
				}
				shares, err := l.engine.Breakdown(accountID, k)
				if err != nil {
					return err
				}
				percent := make(map[string]decimal.Decimal, len(shares))
				for _, s := range shares {
					percent[s.Category] = s.Percentage
				}

				out := cmd.OutOrStdout()
				if len(totals) == 0 {
					fmt.Fprintf(out, "No %s recorded\n", k.Plural())
					return nil
				}
				for i, g := range totals {
					fmt.Fprintf(out, "%d. %s %s (%d, %s%%)\n", i+1, g.Key,
						display(g.Total, a.cfg.BaseCurrency), g.Count, percent[g.Key].StringFixed(2))
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&username, "user", "u", "", "username")
	cmd.Flags().StringVarP(&kind, "kind", "k", "", "income, expense or goal")
	cmd.Flags().IntVarP(&n, "limit", "n", 5, "number of categories to list")
	return cmd
}

func (a *app) convertCmd() *cobra.Command {
	var amount, from, to string
	cmd := &cobra.Command{
		Use:   "convert",
		Short: "convert an amount between currencies at the current rate",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := requireFlags(cmd, "amount", "to"); err != nil {
				return err
			}
			value, err := decimal.NewFromString(amount)
			if err != nil {
				return fmt.Errorf("%w: invalid amount %q", models.ErrValidation, amount)
			}
			if from == "" {
				from = a.cfg.BaseCurrency
			}

			return logging.Run(a.log, "convert", func(logData *logging.LogData) error {
				c := a.converter().Convert(cmd.Context(), value, from, to)
				logData.AddData("converted", c.Converted)

				out := cmd.OutOrStdout()
				if c.Warning != nil {
					yellow.Fprintf(out, "Warning: %v\n", c.Warning)
				}
				fmt.Fprintf(out, "%s %s = %s %s\n", value.StringFixed(2), from, c.Amount.StringFixed(2), c.Currency)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&amount, "amount", "a", "", "amount to convert")
	cmd.Flags().StringVar(&from, "from", "", "currency of the amount (default base currency)")
	cmd.Flags().StringVar(&to, "to", "", "target currency")
	return cmd
}
