package scenario

import (
	"github.com/kalambet/cpgagent/internal/sales"
)

// Promotion is the projection of running a promotion across a category.
type Promotion struct {
	Category              string        `json:"category"`
	PromoUpliftAssumption string        `json:"promo_uplift_assumption"`
	BaselineUnits         int64         `json:"baseline_units"`
	SimulatedUnits        int64         `json:"simulated_units"`
	BaselineRevenue       float64       `json:"baseline_revenue"`
	SimulatedGrossRevenue float64       `json:"simulated_gross_revenue"`
	TotalPromoCost        float64       `json:"total_promo_cost"`
	SimulatedNetRevenue   float64       `json:"simulated_net_revenue"`
	NetRevenueImpact      float64       `json:"net_revenue_impact"`
	NoData                *sales.NoData `json:"no_data,omitempty"`
}

// SimulatePromotion scales the category's non-promo volume by the uplift,
// prices it at the category's mean price over all rows and subtracts a flat
// per-unit promotion cost.
func SimulatePromotion(t *sales.Table, category string, uplift, costPerUnit float64) (Promotion, error) {
	if err := sales.RequireFinite("promo uplift", uplift); err != nil {
		return Promotion{}, err
	}
	if err := sales.RequireFinite("promo cost per unit", costPerUnit); err != nil {
		return Promotion{}, err
	}

	out := Promotion{
		Category:              category,
		PromoUpliftAssumption: pctLabel(uplift),
	}

	var baseVolume, baseRevenue, priceSum float64
	var n int
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if r.Category != category {
			continue
		}
		priceSum += r.Price
		n++
		if !r.Promo {
			baseVolume += r.UnitsSold
			baseRevenue += r.Revenue
		}
	}
	if n == 0 {
		out.NoData = &sales.NoData{Filter: "category", Value: category}
		return out, nil
	}

	simVolume := baseVolume * (1 + uplift)
	avgPrice := priceSum / float64(n)
	gross := simVolume * avgPrice
	cost := simVolume * costPerUnit
	net := gross - cost

	out.BaselineUnits = units(baseVolume)
	out.SimulatedUnits = units(simVolume)
	out.BaselineRevenue = money(baseRevenue)
	out.SimulatedGrossRevenue = money(gross)
	out.TotalPromoCost = money(cost)
	out.SimulatedNetRevenue = money(net)
	out.NetRevenueImpact = money(net - baseRevenue)
	return out, nil
}
