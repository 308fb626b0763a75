package models

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/Rhymond/go-money"
	"github.com/shopspring/decimal"
)

// DefaultCurrency is used when an entry carries no currency code.
const DefaultCurrency = "USD"

// MaxAmount is the largest amount whose cents fit in an int64.
var MaxAmount = decimal.New(math.MaxInt64, -2)

// Usernames name export files, so they are limited to file-name safe characters.
var usernamePattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// ValidateUsername checks that username is 1 to 64 letters, digits, dots,
// underscores or hyphens and not a relative path element.
func ValidateUsername(username string) error {
	if !usernamePattern.MatchString(username) || username == "." || username == ".." {
		return fmt.Errorf("%w: username %q must be 1 to 64 letters, digits, '.', '_' or '-'", ErrValidation, username)
	}
	return nil
}

// NormalizeCurrency upper-cases code and checks it is a known ISO 4217 code.
func NormalizeCurrency(code string) (string, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) != 3 || money.GetCurrency(code) == nil {
		return "", fmt.Errorf("%w: unknown currency code %q", ErrValidation, code)
	}
	return code, nil
}

// Normalize validates e and returns it in its stored form.
func (e Entry) Normalize() (Entry, error) {
	if !e.Kind.Valid() {
		return Entry{}, fmt.Errorf("%w: unknown transaction kind %q", ErrValidation, string(e.Kind))
	}

	e.Category = strings.TrimSpace(e.Category)
	if e.Category == "" {
		return Entry{}, fmt.Errorf("%w: category is required", ErrValidation)
	}

	if !e.Amount.IsPositive() {
		return Entry{}, fmt.Errorf("%w: amount must be greater than zero, got %s", ErrValidation, e.Amount)
	}
	if !e.Amount.Equal(e.Amount.Round(2)) {
		return Entry{}, fmt.Errorf("%w: amount %s has more than two decimal places", ErrValidation, e.Amount)
	}
	if e.Amount.GreaterThan(MaxAmount) {
		return Entry{}, fmt.Errorf("%w: amount %s exceeds the maximum of %s", ErrValidation, e.Amount, MaxAmount)
	}

	if strings.TrimSpace(e.Currency) == "" {
		e.Currency = DefaultCurrency
	}
	currency, err := NormalizeCurrency(e.Currency)
	if err != nil {
		return Entry{}, err
	}
	e.Currency = currency

	date, err := ParseDate(e.Date)
	if err != nil {
		return Entry{}, err
	}
	e.Date = date

	return e, nil
}
