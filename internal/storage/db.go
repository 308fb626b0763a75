package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"budget-tracker/internal/models"

	"github.com/shopspring/decimal"
	"go.uber.org/multierr"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// connParams turns on foreign key enforcement for the connection and waits
// on file locks held by other processes instead of failing immediately.
const connParams = "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)"

// DB is the ledger store. It wraps a single SQLite connection.
type DB struct {
	conn *sql.DB
}

// Open opens or creates the ledger at path, migrates it and verifies the schema.
// Every failure is reported as models.ErrStorage.
func Open(path string) (*DB, error) {
	conn, err := sql.Open("sqlite", path+connParams)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", models.ErrStorage, path, err)
	}
	// One connection keeps ":memory:" databases alive for the lifetime of the
	// handle and matches the single-writer model of the ledger.
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		return nil, closeOnError(conn, fmt.Errorf("%w: open %s: %v", models.ErrStorage, path, err))
	}

	if err := checkUnmanagedTables(conn); err != nil {
		return nil, closeOnError(conn, fmt.Errorf("%w: incompatible schema in %s: %v", models.ErrStorage, path, err))
	}

	if err := runMigrations(conn); err != nil {
		return nil, closeOnError(conn, fmt.Errorf("%w: %s: %v", models.ErrStorage, path, err))
	}

	if err := verifySchema(conn); err != nil {
		return nil, closeOnError(conn, fmt.Errorf("%w: incompatible schema in %s: %v", models.ErrStorage, path, err))
	}

	return &DB{conn: conn}, nil
}

func closeOnError(conn *sql.DB, err error) error {
	return multierr.Append(err, conn.Close())
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// CreateAccount inserts a new account. A username collision is reported as
// models.ErrDuplicateAccount straight from the UNIQUE constraint.
func (db *DB) CreateAccount(username string, passwordHash []byte) (*models.Account, error) {
	if err := models.ValidateUsername(username); err != nil {
		return nil, err
	}
	result, err := db.conn.Exec(
		"INSERT INTO accounts (username, password_hash) VALUES (?, ?)",
		username, passwordHash,
	)
	if err != nil {
		if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_UNIQUE, "UNIQUE") {
			return nil, fmt.Errorf("%w: %s", models.ErrDuplicateAccount, username)
		}
		return nil, storageError("create account", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, storageError("create account", err)
	}

	return db.GetAccountByID(id)
}

// GetAccountByID retrieves an account by ID.
func (db *DB) GetAccountByID(id int64) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM accounts WHERE id = ?",
		id,
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %d", models.ErrNotFound, id)
	}
	return a, err
}

// GetAccountByUsername retrieves an account by username.
func (db *DB) GetAccountByUsername(username string) (*models.Account, error) {
	row := db.conn.QueryRow(
		"SELECT id, username, password_hash, created_at FROM accounts WHERE username = ?",
		username,
	)
	a, err := scanAccount(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: account %q", models.ErrNotFound, username)
	}
	return a, err
}

func scanAccount(row *sql.Row) (*models.Account, error) {
	var a models.Account
	if err := row.Scan(&a.ID, &a.Username, &a.PasswordHash, &a.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageError("read account", err)
	}
	return &a, nil
}

// GetAccountID returns the ID of the account named username.
func (db *DB) GetAccountID(username string) (int64, error) {
	var id int64
	err := db.conn.QueryRow("SELECT id FROM accounts WHERE username = ?", username).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("%w: account %q", models.ErrNotFound, username)
	}
	if err != nil {
		return 0, storageError("read account", err)
	}
	return id, nil
}

// InsertTransaction validates e and stores it for the account.
func (db *DB) InsertTransaction(accountID int64, e models.Entry) (int64, error) {
	ids, err := db.InsertTransactions(accountID, []models.Entry{e})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertTransactions stores all entries for the account in one SQL
// transaction: either every entry is stored or none is.
func (db *DB) InsertTransactions(accountID int64, entries []models.Entry) ([]int64, error) {
	normalized := make([]models.Entry, len(entries))
	for i, e := range entries {
		n, err := e.Normalize()
		if err != nil {
			return nil, err
		}
		normalized[i] = n
	}

	tx, err := db.conn.Begin()
	if err != nil {
		return nil, storageError("begin insert", err)
	}
	defer tx.Rollback()

	if err := requireAccount(tx, accountID); err != nil {
		return nil, err
	}

	stmt, err := tx.Prepare(
		"INSERT INTO transactions (account_id, kind, category, amount_cents, currency, date) VALUES (?, ?, ?, ?, ?, ?)",
	)
	if err != nil {
		return nil, storageError("prepare insert", err)
	}
	defer stmt.Close()

	ids := make([]int64, 0, len(normalized))
	for _, e := range normalized {
		result, err := stmt.Exec(accountID, string(e.Kind), e.Category, toCents(e.Amount), e.Currency, e.Date)
		if err != nil {
			if isConstraint(err, sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY, "FOREIGN KEY") {
				return nil, fmt.Errorf("%w: account %d", models.ErrNotFound, accountID)
			}
			return nil, storageError("insert transaction", err)
		}
		id, err := result.LastInsertId()
		if err != nil {
			return nil, storageError("insert transaction", err)
		}
		ids = append(ids, id)
	}

	if err := tx.Commit(); err != nil {
		return nil, storageError("commit insert", err)
	}
	return ids, nil
}

type queryer interface {
	QueryRow(query string, args ...any) *sql.Row
}

func requireAccount(q queryer, accountID int64) error {
	var one int
	err := q.QueryRow("SELECT 1 FROM accounts WHERE id = ?", accountID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: account %d", models.ErrNotFound, accountID)
	}
	if err != nil {
		return storageError("read account", err)
	}
	return nil
}

// The range predicate is disabled by binding an empty start date.
const (
	listQuery = `
		SELECT id, account_id, kind, category, amount_cents, currency, date
		FROM transactions
		WHERE account_id = ? AND kind = ?
		  AND (? = '' OR substr(date, 1, 10) BETWEEN ? AND ?)
		ORDER BY date, id`

	totalQuery = `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM transactions
		WHERE account_id = ? AND kind = ?
		  AND (? = '' OR substr(date, 1, 10) BETWEEN ? AND ?)`

	aggregateByCategoryQuery = `
		SELECT category, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE account_id = ? AND kind = ?
		  AND (? = '' OR substr(date, 1, 10) BETWEEN ? AND ?)
		GROUP BY category
		ORDER BY MIN(id)`

	aggregateByDateQuery = `
		SELECT substr(date, 1, 10) AS day, SUM(amount_cents), COUNT(*)
		FROM transactions
		WHERE account_id = ? AND kind = ?
		  AND (? = '' OR substr(date, 1, 10) BETWEEN ? AND ?)
		GROUP BY day
		ORDER BY MIN(id)`
)

var aggregateQueries = map[models.GroupBy]string{
	models.GroupByCategory: aggregateByCategoryQuery,
	models.GroupByDate:     aggregateByDateQuery,
}

func scopeArgs(accountID int64, kind models.Kind, r *models.DateRange) []any {
	var start, end string
	if r != nil {
		start, end = r.Start, r.End
	}
	return []any{accountID, string(kind), start, start, end}
}

func checkKind(kind models.Kind) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: unknown transaction kind %q", models.ErrValidation, string(kind))
	}
	return nil
}

// ListTransactions returns the account's transactions of one kind ordered by
// date. A nil range selects every transaction.
func (db *DB) ListTransactions(accountID int64, kind models.Kind, r *models.DateRange) ([]models.Transaction, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	if err := requireAccount(db.conn, accountID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(listQuery, scopeArgs(accountID, kind, r)...)
	if err != nil {
		return nil, storageError("list transactions", err)
	}
	defer rows.Close()

	var transactions []models.Transaction
	for rows.Next() {
		var t models.Transaction
		var kindName string
		var cents int64
		if err := rows.Scan(&t.ID, &t.AccountID, &kindName, &t.Category, &cents, &t.Currency, &t.Date); err != nil {
			return nil, storageError("list transactions", err)
		}
		t.Kind = models.Kind(kindName)
		t.Amount = fromCents(cents)
		transactions = append(transactions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("list transactions", err)
	}
	return transactions, nil
}

// Total sums the amounts of one kind. It is zero when there are none.
func (db *DB) Total(accountID int64, kind models.Kind, r *models.DateRange) (decimal.Decimal, error) {
	if err := checkKind(kind); err != nil {
		return decimal.Zero, err
	}
	if err := requireAccount(db.conn, accountID); err != nil {
		return decimal.Zero, err
	}

	var cents int64
	if err := db.conn.QueryRow(totalQuery, scopeArgs(accountID, kind, r)...).Scan(&cents); err != nil {
		return decimal.Zero, storageError("sum transactions", err)
	}
	return fromCents(cents), nil
}

// QueryAggregate sums the amounts of one kind grouped by category or day. Groups
// are returned in order of their first recorded transaction.
func (db *DB) QueryAggregate(accountID int64, kind models.Kind, groupBy models.GroupBy) ([]models.GroupTotal, error) {
	return db.QueryAggregateRange(accountID, kind, groupBy, nil)
}

// QueryAggregateRange is QueryAggregate restricted to r. A nil range selects every transaction.
func (db *DB) QueryAggregateRange(accountID int64, kind models.Kind, groupBy models.GroupBy, r *models.DateRange) ([]models.GroupTotal, error) {
	if err := checkKind(kind); err != nil {
		return nil, err
	}
	query, ok := aggregateQueries[groupBy]
	if !ok {
		return nil, fmt.Errorf("%w: unknown grouping %d", models.ErrValidation, groupBy)
	}
	if err := requireAccount(db.conn, accountID); err != nil {
		return nil, err
	}

	rows, err := db.conn.Query(query, scopeArgs(accountID, kind, r)...)
	if err != nil {
		return nil, storageError("aggregate transactions", err)
	}
	defer rows.Close()

	var totals []models.GroupTotal
	for rows.Next() {
		var g models.GroupTotal
		var cents int64
		if err := rows.Scan(&g.Key, &cents, &g.Count); err != nil {
			return nil, storageError("aggregate transactions", err)
		}
		g.Total = fromCents(cents)
		totals = append(totals, g)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("aggregate transactions", err)
	}
	return totals, nil
}

func toCents(amount decimal.Decimal) int64 {
	return amount.Shift(2).IntPart()
}

func fromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}

func storageError(op string, err error) error {
	return fmt.Errorf("%w: %s: %v", models.ErrStorage, op, err)
}

// isConstraint matches the extended result code, or the primary code plus the
// message marker when extended codes are not reported.
func isConstraint(err error, extended int, marker string) bool {
	var serr *sqlite.Error
	if !errors.As(err, &serr) {
		return false
	}
	if serr.Code() == extended {
		return true
	}
	return serr.Code()&0xff == sqlite3.SQLITE_CONSTRAINT && strings.Contains(serr.Error(), marker)
}
