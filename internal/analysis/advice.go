package analysis

import "github.com/shopspring/decimal"

// Advice messages, chosen by savings rate.
const (
	AdviceReduceExpenses = "Your savings rate is below 20%. Consider reducing your expenses."
	AdviceOnTrack        = "Your savings rate is healthy. Keep up the good work!"
	AdviceInvest         = "Your savings rate is excellent. Consider investing your surplus."
	AdviceOverBudget     = "Warning: your expenses exceed your income."
)

// Budget status messages.
const (
	StatusWithinBudget = "You are within your budget."
	StatusBreakingEven = "You are breaking even."
	StatusOverBudget   = "You are over budget!"
)

var (
	lowRate  = decimal.NewFromInt(20)
	highRate = decimal.NewFromInt(50)
)

// Advise returns budgeting advice for a savings rate. The over-budget warning
// is appended whenever expenses exceed income, whatever the rate.
func Advise(savingsRate, totalExpenses, totalIncome decimal.Decimal) string {
	var advice string
	switch {
	case savingsRate.LessThan(lowRate):
		advice = AdviceReduceExpenses
	case savingsRate.LessThan(highRate):
		advice = AdviceOnTrack
	default:
		advice = AdviceInvest
	}
	if totalExpenses.GreaterThan(totalIncome) {
		advice += " " + AdviceOverBudget
	}
	return advice
}

// BudgetStatus compares income with expenses.
func BudgetStatus(totalIncome, totalExpenses decimal.Decimal) string {
	switch totalIncome.Cmp(totalExpenses) {
	case 1:
		return StatusWithinBudget
	case 0:
		return StatusBreakingEven
	}
	return StatusOverBudget
}
