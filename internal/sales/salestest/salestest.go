// Package salestest builds sales tables for tests.
package salestest

import (
	"testing"
	"time"

	"github.com/kalambet/cpgagent/internal/sales"
)

// Row returns a valid record for the given day, store and SKU with neutral
// defaults that tests override field by field.
func Row(day string, store, sku int64) sales.Record {
	d, err := time.Parse(sales.DateLayout, day)
	if err != nil {
		panic(err)
	}
	return sales.Record{
		Date:           d,
		StoreID:        store,
		StoreRegion:    "North",
		SKUID:          sku,
		Category:       "Beverages",
		UnitsSold:      10,
		Revenue:        50,
		Price:          5,
		InventoryLevel: 100,
	}
}

// Units sets units_sold and keeps revenue consistent with price.
func Units(r sales.Record, units float64) sales.Record {
	r.UnitsSold = units
	r.Revenue = units * r.Price
	return r
}

// Promo marks the record as sold under promotion.
func Promo(r sales.Record) sales.Record {
	r.Promo = true
	return r
}

// Table builds a validated table or fails the test.
func Table(t testing.TB, rows ...sales.Record) *sales.Table {
	t.Helper()
	tbl, err := sales.NewTable(rows)
	if err != nil {
		t.Fatalf("building table: %v", err)
	}
	return tbl
}
