package sales

import (
	"fmt"
	"sort"
	"time"
)

// Table is an immutable, validated set of sales records. It is built once per
// session and shared by reference with every analytic operation; nothing in
// this module writes to it after construction, so concurrent readers need no
// locking.
type Table struct {
	rows []Record
}

// NewTable validates every record and returns a Table holding a private copy
// of them. Dates are normalized to UTC calendar days.
func NewTable(records []Record) (*Table, error) {
	rows := make([]Record, len(records))
	for i, r := range records {
		r.Date = Day(r.Date)
		if err := r.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		rows[i] = r
	}
	return &Table{rows: rows}, nil
}

// Len returns the number of records.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rows)
}

// At returns a copy of the i-th record.
func (t *Table) At(i int) Record {
	return t.rows[i]
}

// Records returns a copy of all records in table order.
func (t *Table) Records() []Record {
	out := make([]Record, t.Len())
	if t != nil {
		copy(out, t.rows)
	}
	return out
}

// Summary describes the shape of a loaded table.
type Summary struct {
	Records    int      `json:"records"`
	Stores     int      `json:"stores"`
	SKUs       int      `json:"skus"`
	Categories []string `json:"categories"`
	FirstDate  string   `json:"first_date,omitempty"`
	LastDate   string   `json:"last_date,omitempty"`
}

// Summarize counts distinct stores, SKUs and categories and the covered date range.
func Summarize(t *Table) Summary {
	stores := make(map[int64]struct{})
	skus := make(map[int64]struct{})
	cats := make(map[string]struct{})
	var first, last time.Time

	for i := 0; i < t.Len(); i++ {
		r := t.rows[i]
		stores[r.StoreID] = struct{}{}
		skus[r.SKUID] = struct{}{}
		cats[r.Category] = struct{}{}
		if first.IsZero() || r.Date.Before(first) {
			first = r.Date
		}
		if r.Date.After(last) {
			last = r.Date
		}
	}

	categories := make([]string, 0, len(cats))
	for c := range cats {
		categories = append(categories, c)
	}
	sort.Strings(categories)

	s := Summary{
		Records:    t.Len(),
		Stores:     len(stores),
		SKUs:       len(skus),
		Categories: categories,
	}
	if !first.IsZero() {
		s.FirstDate = first.Format(DateLayout)
		s.LastDate = last.Format(DateLayout)
	}
	return s
}
