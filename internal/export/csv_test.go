package export

import (
	"strings"
	"testing"

	"budget-tracker/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadTransactionsCSV(t *testing.T) {
	input := "Category,Amount,Currency,Date\n" +
		"Salary,1000.00,USD,2024-01-01\n" +
		"\"Side, gig\",12.5,eur,2024-01-05 10:00:00\n"

	entries, err := ReadTransactionsCSV(strings.NewReader(input), models.KindIncome)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, models.KindIncome, entries[0].Kind)
	assert.Equal(t, "Side, gig", entries[1].Category)
	assert.Equal(t, "12.50", entries[1].Amount.StringFixed(2))
	assert.Equal(t, "EUR", entries[1].Currency)
	assert.Equal(t, "2024-01-05 10:00:00", entries[1].Date)
}

func TestReadTransactionsCSVErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"empty", "", "empty income file"},
		{"wrong header", "Name,Amount,Currency,Date\n", "unexpected header"},
		{"missing column", "Category,Amount,Currency,Date\nSalary,10,USD\n", "wrong number of fields"},
		{"bad amount", "Category,Amount,Currency,Date\nSalary,ten,USD,2024-01-01\n", "line 2: invalid amount"},
		{"bad date", "Category,Amount,Currency,Date\nSalary,10,USD,2024-13-01\n", "line 2"},
		{"bad currency", "Category,Amount,Currency,Date\nSalary,10,XXQ,2024-01-01\n", "unknown currency code"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadTransactionsCSV(strings.NewReader(tt.input), models.KindIncome)
			require.Error(t, err)
			assert.ErrorIs(t, err, models.ErrValidation)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestReadTransactionsCSVUnknownKind(t *testing.T) {
	_, err := ReadTransactionsCSV(strings.NewReader("Category,Amount,Currency,Date\n"), models.Kind("savings"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestReadSnapshotRejectsInvalidEntries(t *testing.T) {
	input := `{"account":"alice","income":[{"category":"Salary","amount":"0","currency":"USD","date":"2024-01-01"}]}`

	_, err := ReadSnapshot(strings.NewReader(input))
	assert.ErrorIs(t, err, models.ErrValidation)
	assert.Contains(t, err.Error(), "income[0]")
}

func TestReadSnapshotMalformed(t *testing.T) {
	_, err := ReadSnapshot(strings.NewReader("{"))
	assert.ErrorIs(t, err, models.ErrValidation)
}
