package loader

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
	"github.com/xuri/excelize/v2"

	"github.com/kalambet/cpgagent/internal/sales"
)

// ReadCSVFile reads a CSV file with a header row.
func ReadCSVFile(path string) ([]sales.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, nil
}

// ReadCSV reads CSV rows with a header from r.
func ReadCSV(r io.Reader) ([]sales.Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	rows, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty file: header row required")
	}
	return parseRows(rows[0], rows[1:])
}

// ReadXLSXFile reads the first sheet of an Excel workbook.
func ReadXLSXFile(path string) ([]sales.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	recs, err := ReadXLSX(f)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, nil
}

// ReadXLSX reads the first sheet of a workbook from r.
func ReadXLSX(r io.Reader) ([]sales.Record, error) {
	wb, err := excelize.OpenReader(r)
	if err != nil {
		return nil, err
	}
	defer wb.Close()

	rows, err := wb.GetRows(wb.GetSheetName(0))
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("empty sheet: header row required")
	}
	return parseRows(rows[0], rows[1:])
}

// ReadParquetFile reads a Parquet file through Arrow.
func ReadParquetFile(ctx context.Context, path string) ([]sales.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	mem := memory.NewGoAllocator()
	tbl, err := pqarrow.ReadTable(ctx, f, parquet.NewReaderProperties(mem), pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	defer tbl.Release()

	header, rows := arrowRows(tbl)
	recs, err := parseRows(header, rows)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return recs, nil
}

// arrowRows flattens an Arrow table into string cells so every format
// shares one row parser.
func arrowRows(tbl arrow.Table) ([]string, [][]string) {
	ncols := int(tbl.NumCols())
	header := make([]string, ncols)
	rows := make([][]string, tbl.NumRows())
	for i := range rows {
		rows[i] = make([]string, ncols)
	}

	for c := 0; c < ncols; c++ {
		header[c] = tbl.Schema().Field(c).Name
		row := 0
		for _, chunk := range tbl.Column(c).Data().Chunks() {
			for j := 0; j < chunk.Len(); j++ {
				rows[row][c] = arrowCell(chunk, j)
				row++
			}
		}
	}
	return header, rows
}

func arrowCell(arr arrow.Array, i int) string {
	if arr.IsNull(i) {
		return ""
	}
	switch a := arr.(type) {
	case *array.Timestamp:
		unit := a.DataType().(*arrow.TimestampType).Unit
		return a.Value(i).ToTime(unit).UTC().Format(sales.DateLayout)
	case *array.Date32:
		return a.Value(i).ToTime().Format(sales.DateLayout)
	case *array.Date64:
		return a.Value(i).ToTime().UTC().Format(sales.DateLayout)
	}
	return arr.ValueStr(i)
}
