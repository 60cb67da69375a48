package loader

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/kalambet/cpgagent/internal/sales"
)

var required = []string{
	"date", "store_id", "store_region", "sku_id", "category",
	"units_sold", "revenue", "promo_flag", "price", "inventory_level",
}

var dateLayouts = []string{
	sales.DateLayout,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// normalizeHeader trims, lowercases and replaces inner spaces with
// underscores.
func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Join(strings.Fields(h), "_")
}

// columnIndex maps normalized column names to positions.
type columnIndex map[string]int

func indexHeader(header []string) (columnIndex, error) {
	idx := make(columnIndex, len(header))
	for i, h := range header {
		name := normalizeHeader(h)
		if _, dup := idx[name]; dup {
			return nil, fmt.Errorf("duplicate column %q", name)
		}
		idx[name] = i
	}
	var missing []string
	for _, c := range required {
		if _, ok := idx[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required columns: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

func (c columnIndex) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// parseRows converts a header plus string rows into records. Row numbers in
// errors are 1-based and count the header as row 1.
func parseRows(header []string, rows [][]string) ([]sales.Record, error) {
	cols, err := indexHeader(header)
	if err != nil {
		return nil, err
	}

	out := make([]sales.Record, 0, len(rows))
	for i, row := range rows {
		if blank(row) {
			continue
		}
		rec, err := parseRow(cols, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, rec)
	}
	return out, nil
}

func parseRow(cols columnIndex, row []string) (sales.Record, error) {
	var (
		r   sales.Record
		err error
	)
	if r.Date, err = parseDate(cols.get(row, "date")); err != nil {
		return r, err
	}
	if r.StoreID, err = parseID("store_id", cols.get(row, "store_id")); err != nil {
		return r, err
	}
	if r.SKUID, err = parseID("sku_id", cols.get(row, "sku_id")); err != nil {
		return r, err
	}
	if r.UnitsSold, err = parseNumber("units_sold", cols.get(row, "units_sold")); err != nil {
		return r, err
	}
	if r.Revenue, err = parseNumber("revenue", cols.get(row, "revenue")); err != nil {
		return r, err
	}
	if r.Price, err = parseNumber("price", cols.get(row, "price")); err != nil {
		return r, err
	}
	if r.InventoryLevel, err = parseID("inventory_level", cols.get(row, "inventory_level")); err != nil {
		return r, err
	}
	if r.Promo, err = parseFlag("promo_flag", cols.get(row, "promo_flag")); err != nil {
		return r, err
	}
	if v := cols.get(row, "holiday_flag"); v != "" {
		if r.Holiday, err = parseFlag("holiday_flag", v); err != nil {
			return r, err
		}
	}
	r.StoreRegion = cols.get(row, "store_region")
	r.Category = cols.get(row, "category")
	r.PromoType = cols.get(row, "promo_type")
	r.StoreSize = cols.get(row, "store_size")
	return r, nil
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

func parseDate(s string) (time.Time, error) {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return sales.Day(t), nil
		}
	}
	return time.Time{}, fmt.Errorf("date %q is not a recognised date", s)
}

// parseID accepts integral values, including those written as floats by
// spreadsheet exports ("101.0").
func parseID(name, s string) (int64, error) {
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return 0, fmt.Errorf("%s %q is not an integer", name, s)
	}
	return int64(f), nil
}

func parseNumber(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%s %q is not a number", name, s)
	}
	return f, nil
}

func parseFlag(name, s string) (bool, error) {
	switch strings.ToLower(s) {
	case "1", "true", "t", "yes", "y":
		return true, nil
	case "0", "false", "f", "no", "n", "":
		return false, nil
	}
	return false, fmt.Errorf("%s %q is not a flag (use 0/1 or true/false)", name, s)
}
