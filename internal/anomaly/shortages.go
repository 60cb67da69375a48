package anomaly

import (
	"sort"

	"github.com/kalambet/cpgagent/internal/sales"
)

// DefaultCriticalLevel is the inventory level used when none is given.
const DefaultCriticalLevel = 50

// StockShortages returns every row with inventory_level strictly below level,
// sorted by (date, store_id, sku_id).
func StockShortages(t *sales.Table, level int64) (Report, error) {
	if level < 0 {
		return Report{}, sales.InvalidParameter("critical level must be a non-negative integer, got %d", level)
	}

	rep := Report{Rows: []Flagged{}}
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if r.InventoryLevel < level {
			rep.Rows = append(rep.Rows, Flagged{
				Record:    r,
				Reason:    ReasonStockShortage,
				Observed:  float64(r.InventoryLevel),
				Threshold: float64(level),
			})
		}
	}

	sort.SliceStable(rep.Rows, func(i, j int) bool {
		a, b := rep.Rows[i], rep.Rows[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StoreID != b.StoreID {
			return a.StoreID < b.StoreID
		}
		return a.SKUID < b.SKUID
	})
	return rep, nil
}
