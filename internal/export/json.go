package export

import (
	"encoding/json"
	"fmt"
	"io"

	"budget-tracker/internal/analysis"
	"budget-tracker/internal/models"
)

// Snapshot is the JSON form of an exported ledger.
type Snapshot struct {
	Account    string            `json:"account"`
	Range      *models.DateRange `json:"range,omitempty"`
	ExportedAt string            `json:"exported_at"`
	Summary    analysis.Summary  `json:"summary"`
	Income     []models.Entry    `json:"income"`
	Expenses   []models.Entry    `json:"expenses"`
	Goals      []models.Entry    `json:"goals"`
}

// Entries returns every entry of the snapshot, income first.
func (s *Snapshot) Entries() []models.Entry {
	all := make([]models.Entry, 0, len(s.Income)+len(s.Expenses)+len(s.Goals))
	all = append(all, s.Income...)
	all = append(all, s.Expenses...)
	return append(all, s.Goals...)
}

func (s *Snapshot) set(kind models.Kind, entries []models.Entry) {
	switch kind {
	case models.KindIncome:
		s.Income = entries
	case models.KindExpense:
		s.Expenses = entries
	case models.KindGoal:
		s.Goals = entries
	}
}

// WriteSnapshot encodes s as indented JSON.
func WriteSnapshot(w io.Writer, s *Snapshot) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(s)
}

// ReadSnapshot decodes a snapshot and validates its entries. Each entry keeps
// the kind of the list it was found in.
func ReadSnapshot(r io.Reader) (*Snapshot, error) {
	var s Snapshot
	if err := json.NewDecoder(r).Decode(&s); err != nil {
		return nil, fmt.Errorf("%w: decode snapshot: %v", models.ErrValidation, err)
	}
	lists := map[models.Kind][]models.Entry{
		models.KindIncome:  s.Income,
		models.KindExpense: s.Expenses,
		models.KindGoal:    s.Goals,
	}
	for kind, entries := range lists {
		normalized := make([]models.Entry, 0, len(entries))
		for i, e := range entries {
			e.Kind = kind
			n, err := e.Normalize()
			if err != nil {
				return nil, fmt.Errorf("%s[%d]: %w", kind.Plural(), i, err)
			}
			normalized = append(normalized, n)
		}
		s.set(kind, normalized)
	}
	return &s, nil
}
