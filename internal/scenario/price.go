package scenario

import (
	"strconv"

	"github.com/kalambet/cpgagent/internal/sales"
)

// PriceChange is the projection for a single SKU. When NoData is set the SKU
// had no rows and every numeric field is zero.
type PriceChange struct {
	SKUID                int64         `json:"sku_id"`
	PriceChange          string        `json:"price_change"`
	ElasticityAssumption float64       `json:"elasticity_assumption"`
	OriginalAvgPrice     float64       `json:"original_avg_price"`
	NewAvgPrice          float64       `json:"new_avg_price"`
	OriginalTotalUnits   int64         `json:"original_total_units"`
	SimulatedTotalUnits  int64         `json:"simulated_total_units"`
	OriginalRevenue      float64       `json:"original_revenue"`
	SimulatedRevenue     float64       `json:"simulated_revenue"`
	RevenueImpact        float64       `json:"revenue_impact"`
	NoData               *sales.NoData `json:"no_data,omitempty"`
}

// SimulatePriceChange applies a constant-elasticity volume response to a
// relative price change on one SKU:
//
//	newPrice  = avgPrice * (1 + pct)
//	newVolume = volume * (1 + pct*elasticity), clamped to 0 when pct*elasticity <= -1
//	newRevenue = newVolume * newPrice
func SimulatePriceChange(t *sales.Table, sku int64, pct, elasticity float64) (PriceChange, error) {
	if err := sales.RequireFinite("price change", pct); err != nil {
		return PriceChange{}, err
	}
	if err := sales.RequireFinite("elasticity", elasticity); err != nil {
		return PriceChange{}, err
	}

	out := PriceChange{
		SKUID:                sku,
		PriceChange:          pctLabel(pct),
		ElasticityAssumption: elasticity,
	}

	var volume, revenue, priceSum float64
	var n int
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if r.SKUID != sku {
			continue
		}
		volume += r.UnitsSold
		revenue += r.Revenue
		priceSum += r.Price
		n++
	}
	if n == 0 {
		out.NoData = &sales.NoData{Filter: "sku", Value: strconv.FormatInt(sku, 10)}
		return out, nil
	}

	avgPrice := priceSum / float64(n)
	newPrice := avgPrice * (1 + pct)
	volumeChange := pct * elasticity

	var newVolume float64
	if volumeChange > -1 {
		newVolume = volume * (1 + volumeChange)
	}
	newRevenue := newVolume * newPrice

	out.OriginalAvgPrice = money(avgPrice)
	out.NewAvgPrice = money(newPrice)
	out.OriginalTotalUnits = units(volume)
	out.SimulatedTotalUnits = units(newVolume)
	out.OriginalRevenue = money(revenue)
	out.SimulatedRevenue = money(newRevenue)
	out.RevenueImpact = money(newRevenue - revenue)
	return out, nil
}
