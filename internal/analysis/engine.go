// Package analysis computes totals, rankings and budget advice over a ledger.
package analysis

import (
	"context"
	"fmt"
	"slices"

	"budget-tracker/internal/currency"
	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// Converter converts an amount into another currency without failing.
type Converter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) currency.Conversion
}

// Engine answers aggregate questions about one ledger.
type Engine struct {
	db           *storage.DB
	converter    Converter
	baseCurrency string
}

// New creates an Engine. converter may be nil when no conversion is
// needed; baseCurrency is the currency amounts are recorded in.
func New(db *storage.DB, converter Converter, baseCurrency string) *Engine {
	if baseCurrency == "" {
		baseCurrency = models.DefaultCurrency
	}
	return &Engine{db: db, converter: converter, baseCurrency: baseCurrency}
}

// Total sums every transaction of kind. It is zero when there are none.
func (e *Engine) Total(accountID int64, kind models.Kind) (decimal.Decimal, error) {
	return e.db.Total(accountID, kind, nil)
}

// TopCategories returns at most n categories of kind ranked by their summed
// amount, largest first. Ties keep the order in which categories first appeared.
func (e *Engine) TopCategories(accountID int64, kind models.Kind, n int) ([]models.GroupTotal, error) {
	return e.topCategories(accountID, kind, n, nil)
}

func (e *Engine) topCategories(accountID int64, kind models.Kind, n int, r *models.DateRange) ([]models.GroupTotal, error) {
	if n < 0 {
		return nil, fmt.Errorf("%w: category count must not be negative, got %d", models.ErrValidation, n)
	}
	totals, err := e.db.QueryAggregateRange(accountID, kind, models.GroupByCategory, r)
	if err != nil {
		return nil, err
	}
	slices.SortStableFunc(totals, func(a, b models.GroupTotal) int {
		return b.Total.Cmp(a.Total)
	})
	if len(totals) > n {
		totals = totals[:n]
	}
	if totals == nil {
		totals = []models.GroupTotal{}
	}
	return totals, nil
}

// NetBalance is total income minus total expenses.
func (e *Engine) NetBalance(accountID int64) (decimal.Decimal, error) {
	income, expenses, err := e.totals(accountID, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return income.Sub(expenses), nil
}

// SavingsRate is the net balance as a percentage of total income, or zero
// when there is no income.
func (e *Engine) SavingsRate(accountID int64) (decimal.Decimal, error) {
	income, expenses, err := e.totals(accountID, nil)
	if err != nil {
		return decimal.Zero, err
	}
	return savingsRate(income, expenses), nil
}

func savingsRate(income, expenses decimal.Decimal) decimal.Decimal {
	if !income.IsPositive() {
		return decimal.Zero
	}
	return income.Sub(expenses).Div(income).Mul(hundred).Round(2)
}

func (e *Engine) totals(accountID int64, r *models.DateRange) (income, expenses decimal.Decimal, err error) {
	income, err = e.db.Total(accountID, models.KindIncome, r)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	expenses, err = e.db.Total(accountID, models.KindExpense, r)
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	return income, expenses, nil
}

// Summary is the aggregate view of a ledger exported alongside its transactions.
type Summary struct {
	AccountID     int64               `json:"-"`
	Range         *models.DateRange   `json:"range,omitempty"`
	TotalIncome   decimal.Decimal     `json:"total_income"`
	TotalExpenses decimal.Decimal     `json:"total_expenses"`
	NetIncome     decimal.Decimal     `json:"net_income"`
	SavingsRate   decimal.Decimal     `json:"savings_rate"`
	TopIncome     []models.GroupTotal `json:"top_income"`
	TopExpenses   []models.GroupTotal `json:"top_expenses"`
	Advice        string              `json:"advice"`
	Status        string              `json:"status"`
}

// Summarize computes the summary of an account, restricted to r when r is not nil.
func (e *Engine) Summarize(accountID int64, r *models.DateRange, topN int) (Summary, error) {
	income, expenses, err := e.totals(accountID, r)
	if err != nil {
		return Summary{}, err
	}
	topIncome, err := e.topCategories(accountID, models.KindIncome, topN, r)
	if err != nil {
		return Summary{}, err
	}
	topExpenses, err := e.topCategories(accountID, models.KindExpense, topN, r)
	if err != nil {
		return Summary{}, err
	}

	rate := savingsRate(income, expenses)
	return Summary{
		AccountID:     accountID,
		Range:         r,
		TotalIncome:   income,
		TotalExpenses: expenses,
		NetIncome:     income.Sub(expenses),
		SavingsRate:   rate,
		TopIncome:     topIncome,
		TopExpenses:   topExpenses,
		Advice:        Advise(rate, expenses, income),
		Status:        BudgetStatus(income, expenses),
	}, nil
}

// Totals are income and expense figures expressed in one currency.
type Totals struct {
	Currency string
	Income   decimal.Decimal
	Expenses decimal.Decimal
	Net      decimal.Decimal
	// Warnings lists conversions that fell back to base currency amounts.
	Warnings []error
}

// ConvertedTotals returns the account's totals converted from the base
// currency into target. Failed conversions keep the base amount and are
// reported in Totals.Warnings.
func (e *Engine) ConvertedTotals(ctx context.Context, accountID int64, target string) (Totals, error) {
	income, expenses, err := e.totals(accountID, nil)
	if err != nil {
		return Totals{}, err
	}

	t := Totals{Currency: e.baseCurrency, Income: income, Expenses: expenses}
	if target != "" && target != e.baseCurrency && e.converter != nil {
		in := e.converter.Convert(ctx, income, e.baseCurrency, target)
		out := e.converter.Convert(ctx, expenses, e.baseCurrency, target)
		for _, c := range []currency.Conversion{in, out} {
			if c.Warning != nil {
				t.Warnings = append(t.Warnings, c.Warning)
			}
		}
		// Mixing converted and unconverted figures would be meaningless.
		if in.Converted && out.Converted {
			t.Currency, t.Income, t.Expenses = in.Currency, in.Amount, out.Amount
		}
	}
	t.Net = t.Income.Sub(t.Expenses)
	return t, nil
}
