package trend

import (
	"sort"
	"strings"

	"github.com/kalambet/cpgagent/internal/sales"
)

// Metric selects the sort key for StorePerformance.
type Metric string

const (
	MetricRevenue   Metric = "revenue"
	MetricUnitsSold Metric = "units_sold"
)

// ParseMetric accepts revenue or units_sold.
func ParseMetric(s string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(s))); m {
	case MetricRevenue, MetricUnitsSold:
		return m, nil
	}
	return "", sales.InvalidParameter("metric %q is not supported; use revenue or units_sold", s)
}

// StoreTotal aggregates one store.
type StoreTotal struct {
	StoreID        int64   `json:"store_id"`
	StoreRegion    string  `json:"store_region"`
	TotalRevenue   float64 `json:"total_revenue"`
	TotalUnitsSold float64 `json:"total_units_sold"`
}

type storeKey struct {
	id     int64
	region string
}

// StorePerformance sums revenue and units per (store_id, store_region) and
// sorts descending by the requested metric. Ties keep store id order.
func StorePerformance(t *sales.Table, metric string) ([]StoreTotal, error) {
	m, err := ParseMetric(metric)
	if err != nil {
		return nil, err
	}

	acc := make(map[storeKey]*StoreTotal)
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		k := storeKey{id: r.StoreID, region: r.StoreRegion}
		agg, ok := acc[k]
		if !ok {
			agg = &StoreTotal{StoreID: r.StoreID, StoreRegion: r.StoreRegion}
			acc[k] = agg
		}
		agg.TotalRevenue += r.Revenue
		agg.TotalUnitsSold += r.UnitsSold
	}

	out := make([]StoreTotal, 0, len(acc))
	for _, agg := range acc {
		out = append(out, *agg)
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := metricValue(out[i], m), metricValue(out[j], m)
		if a != b {
			return a > b
		}
		if out[i].StoreID != out[j].StoreID {
			return out[i].StoreID < out[j].StoreID
		}
		return out[i].StoreRegion < out[j].StoreRegion
	})
	return out, nil
}

func metricValue(s StoreTotal, m Metric) float64 {
	if m == MetricUnitsSold {
		return s.TotalUnitsSold
	}
	return s.TotalRevenue
}
