package export

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"
	"time"

	"budget-tracker/internal/analysis"
	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
)

// TransactionHeader is the first row of every transaction file.
var TransactionHeader = []string{"Category", "Amount", "Currency", "Date"}

// SummaryTopN is the number of categories listed per kind in the summary file.
const SummaryTopN = 5

// WriteTransactionsCSV writes transactions under TransactionHeader with
// amounts fixed to two decimals.
func WriteTransactionsCSV(w io.Writer, transactions []models.Transaction) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(TransactionHeader); err != nil {
		return err
	}
	for _, t := range transactions {
		record := []string{t.Category, t.Amount.StringFixed(2), t.Currency, t.Date}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// ReadTransactionsCSV parses a file written by WriteTransactionsCSV into
// entries of kind. Every entry is validated; the first invalid row aborts
// the read.
func ReadTransactionsCSV(r io.Reader, kind models.Kind) ([]models.Entry, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: unknown transaction kind %q", models.ErrValidation, string(kind))
	}

	reader := csv.NewReader(r)
	reader.FieldsPerRecord = len(TransactionHeader)

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty %s file", models.ErrValidation, kind.Plural())
	}
	if err != nil {
		return nil, fmt.Errorf("%w: read header: %v", models.ErrValidation, err)
	}
	if !slices.Equal(header, TransactionHeader) {
		return nil, fmt.Errorf("%w: unexpected header %q, want %q", models.ErrValidation,
			strings.Join(header, ","), strings.Join(TransactionHeader, ","))
	}

	entries := []models.Entry{}
	for {
		record, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", models.ErrValidation, err)
		}
		line, _ := reader.FieldPos(0)

		amount, err := decimal.NewFromString(strings.TrimSpace(record[1]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: invalid amount %q", models.ErrValidation, line, record[1])
		}
		e, err := models.Entry{
			Kind:     kind,
			Category: record[0],
			Amount:   amount,
			Currency: record[2],
			Date:     record[3],
		}.Normalize()
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func dollars(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}

// WriteSummaryCSV writes the account summary report.
func WriteSummaryCSV(w io.Writer, username string, s analysis.Summary, exportedAt time.Time) error {
	records := [][]string{{"Account Summary", username}}
	if s.Range != nil {
		records = append(records, []string{"Date Range", s.Range.String()})
	}
	records = append(records,
		[]string{"Total Income", dollars(s.TotalIncome)},
		[]string{"Total Expenses", dollars(s.TotalExpenses)},
		[]string{"Net Income", dollars(s.NetIncome)},
	)

	sections := []struct {
		title  string
		totals []models.GroupTotal
	}{
		{fmt.Sprintf("Top %d Income Categories", SummaryTopN), s.TopIncome},
		{fmt.Sprintf("Top %d Expense Categories", SummaryTopN), s.TopExpenses},
	}
	for _, section := range sections {
		records = append(records, []string{}, []string{section.title}, []string{"Category", "Amount"})
		for _, g := range section.totals {
			records = append(records, []string{g.Key, dollars(g.Total)})
		}
	}
	records = append(records, []string{}, []string{"Export Date", exportedAt.Format(models.DateTimeLayout)})

	cw := csv.NewWriter(w)
	return cw.WriteAll(records)
}
