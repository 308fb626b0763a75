package analysis

import (
	"slices"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// CategoryShare is a category with its spending statistics.
type CategoryShare struct {
	Category   string
	Total      decimal.Decimal
	Count      int
	Percentage decimal.Decimal
}

// Breakdown returns every category of kind with its share of the kind total,
// in the order categories first appeared.
func (e *Engine) Breakdown(accountID int64, kind models.Kind) ([]CategoryShare, error) {
	categoryTotals, err := e.db.QueryAggregate(accountID, kind, models.GroupByCategory)
	if err != nil {
		return nil, err
	}

	// Calculate total and prepare category items
	total := decimal.Zero
	for _, ct := range categoryTotals {
		total = total.Add(ct.Total)
	}

	items := make([]CategoryShare, 0, len(categoryTotals))
	for _, ct := range categoryTotals {
		percentage := decimal.Zero
		if total.IsPositive() {
			percentage = ct.Total.Div(total).Mul(hundred).Round(2)
		}
		items = append(items, CategoryShare{
			Category:   ct.Key,
			Total:      ct.Total,
			Count:      ct.Count,
			Percentage: percentage,
		})
	}
	return items, nil
}

// Timeline returns the per-day sums of kind in date order.
func (e *Engine) Timeline(accountID int64, kind models.Kind) ([]models.GroupTotal, error) {
	days, err := e.db.QueryAggregate(accountID, kind, models.GroupByDate)
	if err != nil {
		return nil, err
	}
	slices.SortFunc(days, func(a, b models.GroupTotal) int {
		switch {
		case a.Key < b.Key:
			return -1
		case a.Key > b.Key:
			return 1
		}
		return 0
	})
	return days, nil
}
