// Package anomaly flags sales records that deviate from statistical or
// rule-based expectations.
//
// Groups that lack the data needed for a statistic are never guessed at: they
// are left out of the flagged rows and listed in Report.Excluded with the
// reason, so a division by zero can not leak into a result.
package anomaly

import (
	"sort"

	"github.com/kalambet/cpgagent/internal/sales"
)

// Reasons attached to flagged rows.
const (
	ReasonSalesSpike    = "sales_spike"
	ReasonStockShortage = "stock_shortage"
	ReasonFailedPromo   = "failed_promotion"
)

// Reasons attached to excluded groups.
const (
	ExcludedInsufficientRows = "insufficient_rows"
	ExcludedZeroVariance     = "zero_variance"
	ExcludedNoBaseline       = "no_baseline"
)

// Flagged is a full record plus why it was flagged. Threshold is the value
// Observed was compared against.
type Flagged struct {
	sales.Record
	Reason    string  `json:"reason"`
	Observed  float64 `json:"observed"`
	Threshold float64 `json:"threshold"`
}

// Exclusion names a (sku_id, store_id) group left out of a computation.
type Exclusion struct {
	SKUID   int64  `json:"sku_id"`
	StoreID int64  `json:"store_id"`
	Rows    int    `json:"rows"`
	Reason  string `json:"reason"`
}

// Report is the result of every detector.
type Report struct {
	Rows     []Flagged   `json:"rows"`
	Excluded []Exclusion `json:"excluded,omitempty"`
}

type partitionKey struct {
	sku   int64
	store int64
}

// partition groups row indices by (sku_id, store_id), returning keys in
// ascending order.
func partition(t *sales.Table, keep func(sales.Record) bool) (map[partitionKey][]int, []partitionKey) {
	groups := make(map[partitionKey][]int)
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if keep != nil && !keep(r) {
			continue
		}
		k := partitionKey{sku: r.SKUID, store: r.StoreID}
		groups[k] = append(groups[k], i)
	}

	keys := make([]partitionKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].sku != keys[j].sku {
			return keys[i].sku < keys[j].sku
		}
		return keys[i].store < keys[j].store
	})
	return groups, keys
}

// sortByDate orders flagged rows by date. The sort is stable so rows on the
// same day keep partition order.
func sortByDate(rows []Flagged) {
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Date.Before(rows[j].Date)
	})
}
