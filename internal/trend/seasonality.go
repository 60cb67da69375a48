package trend

import (
	"sort"

	"github.com/kalambet/cpgagent/internal/sales"
)

// AllCategories is the category argument meaning "no filter". It is matched
// exactly, so a category literally named "All" can still be selected.
const AllCategories = "all"

// MonthTotal is revenue for one month of the year (1-12).
type MonthTotal struct {
	Month        int     `json:"month"`
	TotalRevenue float64 `json:"total_revenue"`
}

// Seasonality sums revenue per month of year, optionally restricted to one
// category, and sorts descending by revenue. An empty category or "all"
// means every row; a category without rows yields an empty result.
func Seasonality(t *sales.Table, category string) []MonthTotal {
	all := category == "" || category == AllCategories

	var months [13]float64
	var seen [13]bool
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if !all && r.Category != category {
			continue
		}
		m := int(r.Date.Month())
		months[m] += r.Revenue
		seen[m] = true
	}

	out := make([]MonthTotal, 0, 12)
	for m := 1; m <= 12; m++ {
		if seen[m] {
			out = append(out, MonthTotal{Month: m, TotalRevenue: months[m]})
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].TotalRevenue > out[j].TotalRevenue
	})
	return out
}
