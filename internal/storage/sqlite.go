package storage

import (
	"database/sql"
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/kalambet/cpgagent/internal/sales"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DBFile is the database file name inside the data directory.
const DBFile = "cpgagent.db"

// SalesTable is the warehouse table holding imported sales records. Its
// column names match the sales file headers.
const SalesTable = "sales_records"

// Store wraps a SQLite database holding the imported sales warehouse and
// the log of tool runs.
type Store struct {
	db *sql.DB
}

// Open opens (or creates) a SQLite database in dataDir and runs pending migrations.
// Pass ":memory:" as dataDir for an in-memory database (used by tests).
func Open(dataDir string) (*Store, error) {
	var dsn string
	if dataDir == ":memory:" {
		dsn = ":memory:"
	} else {
		if err := os.MkdirAll(dataDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating data directory: %w", err)
		}
		dsn = filepath.Join(dataDir, DBFile)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("pinging database: %w", err)
	}

	// Limit to single connection to avoid "database is locked" errors.
	db.SetMaxOpenConns(1)

	// Set busy timeout so concurrent access waits briefly instead of failing immediately.
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting journal mode: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate reads embedded SQL migration files and applies any that haven't been run yet.
func (s *Store) migrate() error {
	// Ensure schema_version table exists (bootstrap).
	if _, err := s.db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (
		version INTEGER PRIMARY KEY,
		applied_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`); err != nil {
		return fmt.Errorf("creating schema_version table: %w", err)
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	// Sort by filename to guarantee ascending order.
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		version, err := parseMigrationVersion(entry.Name())
		if err != nil {
			return err
		}

		// Check if already applied.
		var exists int
		if err := s.db.QueryRow("SELECT COUNT(*) FROM schema_version WHERE version = ?", version).Scan(&exists); err != nil {
			return fmt.Errorf("checking migration %d: %w", version, err)
		}
		if exists > 0 {
			continue
		}

		content, err := migrationsFS.ReadFile("migrations/" + entry.Name())
		if err != nil {
			return fmt.Errorf("reading migration %s: %w", entry.Name(), err)
		}

		tx, err := s.db.Begin()
		if err != nil {
			return fmt.Errorf("beginning transaction for migration %d: %w", version, err)
		}

		if _, err := tx.Exec(string(content)); err != nil {
			tx.Rollback()
			return fmt.Errorf("applying migration %d: %w", version, err)
		}

		if _, err := tx.Exec("INSERT INTO schema_version (version) VALUES (?)", version); err != nil {
			tx.Rollback()
			return fmt.Errorf("recording migration %d: %w", version, err)
		}

		if err := tx.Commit(); err != nil {
			return fmt.Errorf("committing migration %d: %w", version, err)
		}
	}

	return nil
}

func parseMigrationVersion(filename string) (int, error) {
	var version int
	if _, err := fmt.Sscanf(filename, "%d_", &version); err != nil {
		return 0, fmt.Errorf("parsing migration version from %q: %w", filename, err)
	}
	return version, nil
}

// AppliedMigrations returns the list of applied migration versions in ascending order.
func (s *Store) AppliedMigrations() ([]int, error) {
	rows, err := s.db.Query("SELECT version FROM schema_version ORDER BY version ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var versions []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}

// --- Sales records ---

// ReplaceSalesRecords atomically replaces the warehouse contents with recs.
func (s *Store) ReplaceSalesRecords(recs []sales.Record) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("beginning import transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec("DELETE FROM sales_records"); err != nil {
		return fmt.Errorf("clearing sales records: %w", err)
	}

	stmt, err := tx.Prepare(`
		INSERT INTO sales_records (date, store_id, store_region, sku_id, category, units_sold, revenue, promo_flag, price, inventory_level, promo_type, store_size, holiday_flag)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing insert: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		_, err := stmt.Exec(
			r.Date.Format(sales.DateLayout), r.StoreID, r.StoreRegion, r.SKUID, r.Category,
			r.UnitsSold, r.Revenue, r.Promo, r.Price, r.InventoryLevel,
			r.PromoType, r.StoreSize, r.Holiday,
		)
		if err != nil {
			return fmt.Errorf("inserting record %d: %w", i+1, err)
		}
	}

	return tx.Commit()
}

// SalesRecords returns every imported record in import order.
func (s *Store) SalesRecords() ([]sales.Record, error) {
	rows, err := s.db.Query(`
		SELECT date, store_id, store_region, sku_id, category, units_sold, revenue, promo_flag, price, inventory_level, promo_type, store_size, holiday_flag
		FROM sales_records ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []sales.Record
	for rows.Next() {
		var r sales.Record
		var date string
		if err := rows.Scan(&date, &r.StoreID, &r.StoreRegion, &r.SKUID, &r.Category,
			&r.UnitsSold, &r.Revenue, &r.Promo, &r.Price, &r.InventoryLevel,
			&r.PromoType, &r.StoreSize, &r.Holiday); err != nil {
			return nil, err
		}
		d, err := time.Parse(sales.DateLayout, date)
		if err != nil {
			return nil, fmt.Errorf("parsing date %q: %w", date, err)
		}
		r.Date = d
		results = append(results, r)
	}
	return results, rows.Err()
}

// CountSalesRecords returns the number of imported records.
func (s *Store) CountSalesRecords() (int, error) {
	var n int
	err := s.db.QueryRow("SELECT COUNT(*) FROM sales_records").Scan(&n)
	return n, err
}

// --- Runs ---

func (s *Store) SaveRun(r Run) error {
	status := r.Status
	if status == "" {
		status = RunCompleted
	}
	args := r.ArgsJSON
	if args == "" {
		args = "{}"
	}
	_, err := s.db.Exec(`
		INSERT INTO runs (id, created_at, tool, args_json, result_json, status, error, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UTC().Format(runTimeLayout), r.Tool, args, r.ResultJSON, status, r.Error, r.DurationMs,
	)
	return err
}

func (s *Store) GetRun(id string) (Run, error) {
	r, err := scanRun(s.db.QueryRow(`
		SELECT id, created_at, tool, args_json, result_json, status, error, duration_ms
		FROM runs WHERE id = ?`, id))
	if err == sql.ErrNoRows {
		return Run{}, ErrNotFound
	}
	return r, err
}

// ListRuns returns runs newest first.
func (s *Store) ListRuns(limit, offset int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := s.db.Query(`
		SELECT id, created_at, tool, args_json, result_json, status, error, duration_ms
		FROM runs ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`, limit, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

func (s *Store) DeleteRun(id string) error {
	res, err := s.db.Exec("DELETE FROM runs WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// runTimeLayout is fixed width so created_at sorts lexically.
const runTimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (Run, error) {
	var r Run
	var createdAt string
	if err := row.Scan(&r.ID, &createdAt, &r.Tool, &r.ArgsJSON, &r.ResultJSON, &r.Status, &r.Error, &r.DurationMs); err != nil {
		return Run{}, err
	}
	t, err := time.Parse(runTimeLayout, createdAt)
	if err != nil {
		return Run{}, fmt.Errorf("parsing created_at: %w", err)
	}
	r.CreatedAt = t
	return r, nil
}
