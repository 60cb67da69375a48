// Package tools is the closed catalog of analytic operations an orchestrator
// may invoke. Each Kind has exactly one typed argument struct implementing
// Call; callers resolve free text into a Call before running it.
package tools

import (
	"fmt"
	"sort"
)

// Kind identifies one catalog operation.
type Kind string

const (
	KindCategoryTrends      Kind = "category_trends"
	KindStorePerformance    Kind = "store_performance"
	KindSeasonality         Kind = "seasonality"
	KindSalesSpikes         Kind = "sales_spikes"
	KindStockShortages      Kind = "stock_shortages"
	KindFailedPromotions    Kind = "failed_promotions"
	KindSimulatePriceChange Kind = "simulate_price_change"
	KindSimulatePromotion   Kind = "simulate_promotion"
)

// Param documents one argument of a catalog entry.
type Param struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"` // "string", "number" or "integer"
	Description string   `json:"description"`
	Required    bool     `json:"required,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// Entry describes one catalog operation.
type Entry struct {
	Kind        Kind    `json:"kind"`
	Description string  `json:"description"`
	Params      []Param `json:"params"`
	// Input documents the comma-separated form accepted by ParseInput.
	Input string `json:"input"`
}

var catalog = []Entry{
	{
		Kind:        KindCategoryTrends,
		Description: "Sales volume and revenue per category over weekly or monthly periods.",
		Params: []Param{
			{Name: "period", Type: "string", Description: "W for weekly, M for monthly", Required: true, Enum: []string{"W", "M"}},
		},
		Input: "W",
	},
	{
		Kind:        KindStorePerformance,
		Description: "Compare overall store performance, best store first.",
		Params: []Param{
			{Name: "metric", Type: "string", Description: "Sort metric", Required: true, Enum: []string{"revenue", "units_sold"}},
		},
		Input: "revenue",
	},
	{
		Kind:        KindSeasonality,
		Description: "Best selling months of the year for a category or for all categories.",
		Params: []Param{
			{Name: "category", Type: "string", Description: "Category name, or 'all' (exact, lowercase) for every category"},
		},
		Input: "Beverages",
	},
	{
		Kind:        KindSalesSpikes,
		Description: "Days where a SKU sold abnormally more than usual at a store (mean + k standard deviations).",
		Params: []Param{
			{Name: "threshold", Type: "number", Description: "Standard deviation multiplier k (default 2.0)"},
		},
		Input: "2.0",
	},
	{
		Kind:        KindStockShortages,
		Description: "Store and SKU days with inventory below a critical level.",
		Params: []Param{
			{Name: "critical_level", Type: "integer", Description: "Inventory level (default 50)"},
		},
		Input: "50",
	},
	{
		Kind:        KindFailedPromotions,
		Description: "Promotion days that sold fewer units than the average non-promotion day for the same SKU and store.",
		Params:      []Param{},
		Input:       "",
	},
	{
		Kind:        KindSimulatePriceChange,
		Description: "Project volume and revenue for a relative price change on one SKU using a constant elasticity.",
		Params: []Param{
			{Name: "sku_id", Type: "integer", Description: "SKU identifier", Required: true},
			{Name: "price_change_pct", Type: "number", Description: "Relative price change, 0.1 for +10%", Required: true},
			{Name: "elasticity", Type: "number", Description: "Price elasticity of volume (default -1.5)"},
		},
		Input: "101,0.1,-1.5",
	},
	{
		Kind:        KindSimulatePromotion,
		Description: "Project the net revenue of a promotion across a category given a volume uplift and a per-unit cost.",
		Params: []Param{
			{Name: "category", Type: "string", Description: "Category name", Required: true},
			{Name: "promo_uplift_pct", Type: "number", Description: "Volume uplift, 0.2 for +20%", Required: true},
			{Name: "promo_cost_per_unit", Type: "number", Description: "Promotion cost per unit sold", Required: true},
		},
		Input: "Beverages,0.2,1.5",
	},
}

// Catalog returns every operation in a stable order.
func Catalog() []Entry {
	out := make([]Entry, len(catalog))
	copy(out, catalog)
	return out
}

// Lookup returns the catalog entry for k.
func Lookup(k Kind) (Entry, bool) {
	for _, e := range catalog {
		if e.Kind == k {
			return e, true
		}
	}
	return Entry{}, false
}

// ParseKind resolves a kind name.
func ParseKind(name string) (Kind, error) {
	if _, ok := Lookup(Kind(name)); ok {
		return Kind(name), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownKind, name)
}

// Kinds returns every kind name, sorted.
func Kinds() []string {
	out := make([]string, len(catalog))
	for i, e := range catalog {
		out[i] = string(e.Kind)
	}
	sort.Strings(out)
	return out
}
