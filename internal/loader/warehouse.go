package loader

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"strconv"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/kalambet/cpgagent/internal/sales"
)

// identRe accepts a table name, optionally schema-qualified.
var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

func readSQLite(ctx context.Context, path, table string) ([]sales.Record, error) {
	if path == "" {
		return nil, fmt.Errorf("sqlite source requires a database path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite %s: %w", path, err)
	}
	defer db.Close()
	return FromDB(ctx, db, table)
}

func readPostgres(ctx context.Context, dsn, table string) ([]sales.Record, error) {
	if dsn == "" {
		return nil, fmt.Errorf("postgres source requires warehouse.postgres_dsn")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("opening postgres: %w", err)
	}
	defer db.Close()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	return FromDB(ctx, db, table)
}

// FromDB reads every row of table through db. Column names are matched the
// same way as file headers.
func FromDB(ctx context.Context, db *sql.DB, table string) ([]sales.Record, error) {
	if !identRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}

	rows, err := db.QueryContext(ctx, "SELECT * FROM "+table)
	if err != nil {
		return nil, fmt.Errorf("querying %s: %w", table, err)
	}
	defer rows.Close()

	header, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("reading columns of %s: %w", table, err)
	}

	var cells [][]string
	vals := make([]any, len(header))
	ptrs := make([]any, len(header))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, fmt.Errorf("scanning %s: %w", table, err)
		}
		row := make([]string, len(vals))
		for i, v := range vals {
			row[i] = sqlCell(v)
		}
		cells = append(cells, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating %s: %w", table, err)
	}

	recs, err := parseRows(header, cells)
	if err != nil {
		return nil, fmt.Errorf("table %s: %w", table, err)
	}
	return recs, nil
}

func sqlCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	case string:
		return x
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format(sales.DateLayout)
	}
	return fmt.Sprint(v)
}
