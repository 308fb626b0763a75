// Package export writes ledgers to CSV and JSON files and reads them back.
package export

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"budget-tracker/internal/analysis"
	"budget-tracker/internal/models"
	"budget-tracker/internal/storage"

	"github.com/natefinch/atomic"
	"github.com/sirupsen/logrus"
	"go.uber.org/multierr"
)

// Artifacts are the files written by one export.
type Artifacts struct {
	Username     string
	Range        *models.DateRange
	Transactions map[models.Kind]string
	Summary      string
}

// Paths lists every written file, transaction files in kind order first.
func (a Artifacts) Paths() []string {
	var paths []string
	for _, kind := range models.Kinds {
		if p, ok := a.Transactions[kind]; ok {
			paths = append(paths, p)
		}
	}
	if a.Summary != "" {
		paths = append(paths, a.Summary)
	}
	return paths
}

// Options configure an Exporter.
type Options struct {
	Dir    string
	Now    func() time.Time
	Logger logrus.FieldLogger
}

// Exporter writes account ledgers into a directory.
type Exporter struct {
	db     *storage.DB
	engine *analysis.Engine
	dir    string
	now    func() time.Time
	log    logrus.FieldLogger
}

// New creates an Exporter writing into opts.Dir, the working directory by default.
func New(db *storage.DB, engine *analysis.Engine, opts Options) *Exporter {
	e := &Exporter{db: db, engine: engine, dir: opts.Dir, now: opts.Now, log: opts.Logger}
	if e.dir == "" {
		e.dir = "."
	}
	if e.now == nil {
		e.now = time.Now
	}
	if e.log == nil {
		e.log = logrus.StandardLogger()
	}
	return e
}

func (e *Exporter) path(username, name, ext string, r *models.DateRange) string {
	base := username + "_" + name
	if r != nil {
		base += "_" + r.Start + "_" + r.End
	}
	return filepath.Join(e.dir, base+ext)
}

// Export writes every transaction of the account, one file per kind, and the summary.
func (e *Exporter) Export(accountID int64) (Artifacts, error) {
	return e.export(accountID, nil)
}

// ExportRange is Export restricted to the days from start to end inclusive.
func (e *Exporter) ExportRange(accountID int64, start, end string) (Artifacts, error) {
	r, err := models.NewDateRange(start, end)
	if err != nil {
		return Artifacts{}, err
	}
	return e.export(accountID, &r)
}

type file struct {
	path string
	data bytes.Buffer
}

// account loads the owner of an export. Names stored before usernames were
// restricted could escape the export directory and are refused.
func (e *Exporter) account(accountID int64) (*models.Account, error) {
	account, err := e.db.GetAccountByID(accountID)
	if err != nil {
		return nil, err
	}
	if err := models.ValidateUsername(account.Username); err != nil {
		return nil, err
	}
	return account, nil
}

func (e *Exporter) export(accountID int64, r *models.DateRange) (Artifacts, error) {
	account, err := e.account(accountID)
	if err != nil {
		return Artifacts{}, err
	}

	a := Artifacts{Username: account.Username, Range: r, Transactions: make(map[models.Kind]string)}
	var files []*file

	// Everything is rendered before the first file is written.
	for _, kind := range models.Kinds {
		transactions, err := e.db.ListTransactions(accountID, kind, r)
		if err != nil {
			return Artifacts{}, err
		}
		f := &file{path: e.path(account.Username, kind.Plural(), ".csv", r)}
		if err := WriteTransactionsCSV(&f.data, transactions); err != nil {
			return Artifacts{}, fmt.Errorf("render %s: %w", f.path, err)
		}
		files = append(files, f)
		a.Transactions[kind] = f.path
	}

	summary, err := e.engine.Summarize(accountID, r, SummaryTopN)
	if err != nil {
		return Artifacts{}, err
	}
	f := &file{path: e.path(account.Username, "summary", ".csv", r)}
	if err := WriteSummaryCSV(&f.data, account.Username, summary, e.now()); err != nil {
		return Artifacts{}, fmt.Errorf("render %s: %w", f.path, err)
	}
	files = append(files, f)
	a.Summary = f.path

	if err := e.write(files); err != nil {
		return Artifacts{}, err
	}
	e.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"files":      len(files),
		"range":      rangeField(r),
	}).Info("ledger exported")
	return a, nil
}

// ExportJSON writes a single JSON snapshot of the account, restricted to r
// when r is not nil, and returns its path.
func (e *Exporter) ExportJSON(accountID int64, r *models.DateRange) (string, error) {
	account, err := e.account(accountID)
	if err != nil {
		return "", err
	}

	s := &Snapshot{Account: account.Username, Range: r, ExportedAt: e.now().Format(models.DateTimeLayout)}
	for _, kind := range models.Kinds {
		transactions, err := e.db.ListTransactions(accountID, kind, r)
		if err != nil {
			return "", err
		}
		entries := make([]models.Entry, 0, len(transactions))
		for _, t := range transactions {
			entries = append(entries, t.Entry)
		}
		s.set(kind, entries)
	}
	if s.Summary, err = e.engine.Summarize(accountID, r, SummaryTopN); err != nil {
		return "", err
	}

	f := &file{path: e.path(account.Username, "ledger", ".json", r)}
	if err := WriteSnapshot(&f.data, s); err != nil {
		return "", fmt.Errorf("render %s: %w", f.path, err)
	}
	if err := e.write([]*file{f}); err != nil {
		return "", err
	}
	e.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"path":       f.path,
		"range":      rangeField(r),
	}).Info("ledger snapshot exported")
	return f.path, nil
}

func (e *Exporter) write(files []*file) error {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return fmt.Errorf("create export directory: %w", err)
	}
	for _, f := range files {
		if err := atomic.WriteFile(f.path, &f.data); err != nil {
			return fmt.Errorf("write %s: %w", f.path, err)
		}
	}
	return nil
}

func rangeField(r *models.DateRange) string {
	if r == nil {
		return "all"
	}
	return r.String()
}

// File formats read and written by the exporter.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Decode parses one exported file. kind is the kind of every row of a CSV
// file and is ignored for JSON snapshots, which carry their own kinds.
func Decode(format string, kind models.Kind, r io.Reader) ([]models.Entry, error) {
	switch format {
	case FormatCSV:
		return ReadTransactionsCSV(r, kind)
	case FormatJSON:
		s, err := ReadSnapshot(r)
		if err != nil {
			return nil, err
		}
		return s.Entries(), nil
	}
	return nil, fmt.Errorf("%w: unknown format %q", models.ErrValidation, format)
}

// ImportCSV reads a transaction file of kind and stores its rows for the
// account. Either every row is stored or none is.
func (e *Exporter) ImportCSV(accountID int64, kind models.Kind, r io.Reader) (int, error) {
	entries, err := Decode(FormatCSV, kind, r)
	if err != nil {
		return 0, err
	}
	return e.store(accountID, entries)
}

// ImportJSON reads a snapshot written by ExportJSON and stores its
// transactions for the account in one batch.
func (e *Exporter) ImportJSON(accountID int64, r io.Reader) (int, error) {
	entries, err := Decode(FormatJSON, "", r)
	if err != nil {
		return 0, err
	}
	return e.store(accountID, entries)
}

// ImportFiles parses every file before storing anything, then stores all
// of their transactions for the account in one batch.
func (e *Exporter) ImportFiles(accountID int64, format string, kind models.Kind, paths ...string) (int, error) {
	var entries []models.Entry
	for _, path := range paths {
		parsed, err := readFile(path, format, kind)
		if err != nil {
			return 0, err
		}
		entries = append(entries, parsed...)
	}
	return e.store(accountID, entries)
}

// ImportArtifacts reads back the transaction files of an export and stores
// all of them for the account in one batch. The summary file is not read.
func (e *Exporter) ImportArtifacts(accountID int64, a Artifacts) (int, error) {
	var entries []models.Entry
	for _, kind := range models.Kinds {
		path, ok := a.Transactions[kind]
		if !ok {
			continue
		}
		parsed, err := readFile(path, FormatCSV, kind)
		if err != nil {
			return 0, err
		}
		entries = append(entries, parsed...)
	}
	return e.store(accountID, entries)
}

func readFile(path, format string, kind models.Kind) (entries []models.Entry, err error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { err = multierr.Append(err, f.Close()) }()

	entries, err = Decode(format, kind, f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return entries, nil
}

func (e *Exporter) store(accountID int64, entries []models.Entry) (int, error) {
	ids, err := e.db.InsertTransactions(accountID, entries)
	if err != nil {
		return 0, err
	}
	e.log.WithFields(logrus.Fields{
		"account_id": accountID,
		"count":      len(ids),
	}).Info("transactions imported")
	return len(ids), nil
}
