package storage

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// requiredColumns is the durable schema other tooling may depend on.
var requiredColumns = map[string][]string{
	"accounts":     {"id", "username", "password_hash"},
	"transactions": {"id", "account_id", "kind", "category", "amount_cents", "currency", "date"},
}

// runMigrations applies the embedded migrations on conn itself, so that
// in-memory databases are migrated on the connection that will use them.
func runMigrations(conn *sql.DB) error {
	driver, err := sqlite.WithInstance(conn, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite driver: %w", err)
	}

	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	defer d.Close()

	// m.Close is not called: it would close conn along with the driver.
	m, err := migrate.NewWithInstance("iofs", d, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

func tableExists(conn *sql.DB, table string) (bool, error) {
	var n int
	err := conn.QueryRow("SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?", table).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("inspect table %s: %w", table, err)
	}
	return n > 0, nil
}

// checkUnmanagedTables runs before any migration. Ledger tables left by an
// earlier program without migration history must already be compatible, so
// that an incompatible file is rejected untouched.
func checkUnmanagedTables(conn *sql.DB) error {
	managed, err := tableExists(conn, "schema_migrations")
	if err != nil || managed {
		return err
	}
	for table := range requiredColumns {
		exists, err := tableExists(conn, table)
		if err != nil {
			return err
		}
		if !exists {
			continue
		}
		if err := verifyColumns(conn, table); err != nil {
			return err
		}
	}
	return nil
}

func verifyColumns(conn *sql.DB, table string) error {
	rows, err := conn.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		return fmt.Errorf("inspect table %s: %w", table, err)
	}

	present := make(map[string]bool)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			rows.Close()
			return err
		}
		present[name] = true
	}
	if err := rows.Close(); err != nil {
		return err
	}

	for _, c := range requiredColumns[table] {
		if !present[c] {
			return fmt.Errorf("table %s has no column %s", table, c)
		}
	}
	return nil
}

// verifySchema checks that tables created by an earlier program under the
// same names carry the columns this package reads and writes.
func verifySchema(conn *sql.DB) error {
	for table := range requiredColumns {
		if err := verifyColumns(conn, table); err != nil {
			return err
		}
	}

	var fk int
	if err := conn.QueryRow("PRAGMA foreign_keys").Scan(&fk); err != nil {
		return fmt.Errorf("read foreign_keys pragma: %w", err)
	}
	if fk != 1 {
		return errors.New("foreign key enforcement is disabled")
	}
	return nil
}
