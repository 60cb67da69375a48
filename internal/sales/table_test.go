package sales

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func validRecord() Record {
	return Record{
		Date:           time.Date(2022, 1, 1, 15, 30, 0, 0, time.UTC),
		StoreID:        1,
		StoreRegion:    "North",
		SKUID:          101,
		Category:       "Beverages",
		UnitsSold:      18,
		Revenue:        90,
		Price:          5,
		InventoryLevel: 550,
	}
}

func TestNewTable_NormalizesDates(t *testing.T) {
	tbl, err := NewTable([]Record{validRecord()})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	got := tbl.At(0).Date
	want := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Date = %v, want %v", got, want)
	}
}

func TestNewTable_RejectsInvalidRows(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *Record)
		want   string
	}{
		{"missing date", func(r *Record) { r.Date = time.Time{} }, "date"},
		{"missing region", func(r *Record) { r.StoreRegion = "" }, "store_region"},
		{"missing category", func(r *Record) { r.Category = "" }, "category"},
		{"negative units", func(r *Record) { r.UnitsSold = -1 }, "units_sold"},
		{"negative revenue", func(r *Record) { r.Revenue = -0.5 }, "revenue"},
		{"zero price", func(r *Record) { r.Price = 0 }, "price"},
		{"negative inventory", func(r *Record) { r.InventoryLevel = -3 }, "inventory_level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			_, err := NewTable([]Record{validRecord(), r})
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), "record 1") || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error = %q, want it to mention record 1 and %q", err, tt.want)
			}
		})
	}
}

func TestTable_CopiesInput(t *testing.T) {
	in := []Record{validRecord()}
	tbl, err := NewTable(in)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	in[0].UnitsSold = 999
	if tbl.At(0).UnitsSold != 18 {
		t.Errorf("table changed after caller mutated input slice")
	}

	out := tbl.Records()
	out[0].UnitsSold = 777
	if tbl.At(0).UnitsSold != 18 {
		t.Errorf("table changed after caller mutated Records() result")
	}
}

func TestSummarize(t *testing.T) {
	a := validRecord()
	b := validRecord()
	b.StoreID = 2
	b.SKUID = 202
	b.Category = "Snacks"
	b.Date = time.Date(2022, 3, 5, 0, 0, 0, 0, time.UTC)
	c := validRecord()
	c.Date = time.Date(2021, 12, 31, 0, 0, 0, 0, time.UTC)

	tbl, err := NewTable([]Record{a, b, c})
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}

	s := Summarize(tbl)
	if s.Records != 3 || s.Stores != 2 || s.SKUs != 2 {
		t.Errorf("Summary = %+v, want 3 records, 2 stores, 2 skus", s)
	}
	if len(s.Categories) != 2 || s.Categories[0] != "Beverages" || s.Categories[1] != "Snacks" {
		t.Errorf("Categories = %v", s.Categories)
	}
	if s.FirstDate != "2021-12-31" || s.LastDate != "2022-03-05" {
		t.Errorf("date range = %s..%s", s.FirstDate, s.LastDate)
	}
}

func TestSummarize_Empty(t *testing.T) {
	tbl, err := NewTable(nil)
	if err != nil {
		t.Fatalf("NewTable: %v", err)
	}
	s := Summarize(tbl)
	if s.Records != 0 || s.FirstDate != "" || len(s.Categories) != 0 {
		t.Errorf("Summary = %+v, want empty", s)
	}
}

func TestInvalidParameter(t *testing.T) {
	err := InvalidParameter("metric %q is not supported", "profit")
	if !errors.Is(err, ErrInvalidParameter) {
		t.Fatalf("errors.Is(%v, ErrInvalidParameter) = false", err)
	}
	if !strings.Contains(err.Error(), `"profit"`) {
		t.Errorf("error = %q", err)
	}
}

func TestNoDataString(t *testing.T) {
	if got := (&NoData{Filter: "sku", Value: "999"}).String(); got != "No data found for SKU 999" {
		t.Errorf("got %q", got)
	}
	if got := (&NoData{Filter: "category", Value: "Toys"}).String(); got != "No data found for category 'Toys'" {
		t.Errorf("got %q", got)
	}
}
