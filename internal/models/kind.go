package models

import (
	"fmt"
	"strings"
)

// Kind is the category axis of a transaction.
type Kind string

const (
	KindIncome  Kind = "income"
	KindExpense Kind = "expense"
	KindGoal    Kind = "goal"
)

// Kinds lists every supported kind in export order.
var Kinds = []Kind{KindIncome, KindExpense, KindGoal}

// ParseKind accepts the singular or plural name of a kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "income", "incomes":
		return KindIncome, nil
	case "expense", "expenses":
		return KindExpense, nil
	case "goal", "goals":
		return KindGoal, nil
	}
	return "", fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, s)
}

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindIncome, KindExpense, KindGoal:
		return true
	}
	return false
}

// Plural returns the name used for report artifacts, e.g. "expenses".
func (k Kind) Plural() string {
	switch k {
	case KindExpense:
		return "expenses"
	case KindGoal:
		return "goals"
	}
	return string(k)
}

func (k Kind) String() string { return string(k) }
