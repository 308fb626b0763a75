package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account represents a registered ledger owner.
type Account struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry holds the values of a transaction as the user records them.
type Entry struct {
	Kind     Kind            `json:"kind"`
	Category string          `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency"`
	Date     string          `json:"date"`
}

// Transaction is a persisted entry.
type Transaction struct {
	ID        int64 `json:"id"`
	AccountID int64 `json:"account_id"`
	Entry
}

// GroupTotal is the summed amount of every transaction sharing a key.
type GroupTotal struct {
	Key   string          `json:"key"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

// GroupBy selects the key QueryAggregate groups transactions by.
type GroupBy int

const (
	GroupByCategory GroupBy = iota
	GroupByDate
)
