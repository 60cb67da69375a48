package sales

import (
	"fmt"
	"math"
	"time"
)

// DateLayout is the canonical calendar-date format used on the wire.
const DateLayout = "2006-01-02"

// Record is one row of the sales table.
type Record struct {
	Date           time.Time `json:"date"`
	StoreID        int64     `json:"store_id"`
	StoreRegion    string    `json:"store_region"`
	SKUID          int64     `json:"sku_id"`
	Category       string    `json:"category"`
	UnitsSold      float64   `json:"units_sold"`
	Revenue        float64   `json:"revenue"`
	Promo          bool      `json:"promo_flag"`
	Price          float64   `json:"price"`
	InventoryLevel int64     `json:"inventory_level"`

	// Passthrough columns. Never used in computations.
	PromoType string `json:"promo_type,omitempty"`
	StoreSize string `json:"store_size,omitempty"`
	Holiday   bool   `json:"holiday_flag,omitempty"`
}

// Validate checks the schema constraints of a single record.
func (r Record) Validate() error {
	switch {
	case r.Date.IsZero():
		return fmt.Errorf("date is required")
	case r.StoreRegion == "":
		return fmt.Errorf("store_region is required")
	case r.Category == "":
		return fmt.Errorf("category is required")
	case !finite(r.UnitsSold) || r.UnitsSold < 0:
		return fmt.Errorf("units_sold must be a non-negative number, got %v", r.UnitsSold)
	case !finite(r.Revenue) || r.Revenue < 0:
		return fmt.Errorf("revenue must be a non-negative number, got %v", r.Revenue)
	case !finite(r.Price) || r.Price <= 0:
		return fmt.Errorf("price must be a positive number, got %v", r.Price)
	case r.InventoryLevel < 0:
		return fmt.Errorf("inventory_level must be non-negative, got %d", r.InventoryLevel)
	}
	return nil
}

// Day truncates t to a calendar date in UTC.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
