// Package loader reads sales data from files and warehouse tables into a
// validated sales.Table. It performs no analysis.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/kalambet/cpgagent/internal/sales"
)

// ErrUnsupportedFormat is returned for file extensions or source kinds the
// loader cannot read.
var ErrUnsupportedFormat = errors.New("unsupported data source")

// Source kinds.
const (
	SourceFile     = "file"
	SourceSQLite   = "sqlite"
	SourcePostgres = "postgres"
)

// Source names where sales rows come from. Path is a file path for file
// and sqlite sources; DSN is used for postgres.
type Source struct {
	Kind  string
	Path  string
	Table string
	DSN   string
}

func (s Source) String() string {
	switch s.Kind {
	case SourcePostgres:
		return "postgres table " + s.Table
	case SourceSQLite:
		return fmt.Sprintf("sqlite table %s in %s", s.Table, s.Path)
	}
	return s.Path
}

// Load reads every row of src and returns the validated table.
func Load(ctx context.Context, src Source) (*sales.Table, error) {
	var (
		recs []sales.Record
		err  error
	)
	switch src.Kind {
	case SourceFile, "":
		recs, err = readFile(ctx, src.Path)
	case SourceSQLite:
		recs, err = readSQLite(ctx, src.Path, src.Table)
	case SourcePostgres:
		recs, err = readPostgres(ctx, src.DSN, src.Table)
	default:
		return nil, fmt.Errorf("%w: source kind %q", ErrUnsupportedFormat, src.Kind)
	}
	if err != nil {
		return nil, err
	}

	t, err := sales.NewTable(recs)
	if err != nil {
		return nil, fmt.Errorf("loading %s: %w", src, err)
	}
	slog.Debug("sales data loaded", "source", src.String(), "records", t.Len())
	return t, nil
}

func readFile(ctx context.Context, path string) ([]sales.Record, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: no file path given", ErrUnsupportedFormat)
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".csv":
		return ReadCSVFile(path)
	case ".xlsx":
		return ReadXLSXFile(path)
	case ".parquet":
		return ReadParquetFile(ctx, path)
	default:
		return nil, fmt.Errorf("%w: file extension %q", ErrUnsupportedFormat, ext)
	}
}
