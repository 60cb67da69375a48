package anomaly

import (
	"math"

	"github.com/kalambet/cpgagent/internal/sales"
)

// DefaultSpikeThreshold is the standard-deviation multiplier used when the
// caller does not provide one.
const DefaultSpikeThreshold = 2.0

// SalesSpikes flags rows whose units_sold exceed mean + k*stddev of their own
// (sku_id, store_id) partition, using the sample standard deviation. Output is
// sorted by date ascending.
func SalesSpikes(t *sales.Table, k float64) (Report, error) {
	if err := sales.RequireFinite("threshold multiplier", k); err != nil {
		return Report{}, err
	}
	if k <= 0 {
		return Report{}, sales.InvalidParameter("threshold multiplier must be positive, got %v", k)
	}

	groups, keys := partition(t, nil)
	rep := Report{Rows: []Flagged{}}
	for _, key := range keys {
		idx := groups[key]
		if len(idx) < 2 {
			rep.Excluded = append(rep.Excluded, Exclusion{SKUID: key.sku, StoreID: key.store, Rows: len(idx), Reason: ExcludedInsufficientRows})
			continue
		}

		mean, sd := meanStddev(t, idx)
		if constantUnits(t, idx) || sd == 0 {
			rep.Excluded = append(rep.Excluded, Exclusion{SKUID: key.sku, StoreID: key.store, Rows: len(idx), Reason: ExcludedZeroVariance})
			continue
		}

		limit := mean + k*sd
		for _, i := range idx {
			r := t.At(i)
			if r.UnitsSold > limit {
				rep.Rows = append(rep.Rows, Flagged{Record: r, Reason: ReasonSalesSpike, Observed: r.UnitsSold, Threshold: limit})
			}
		}
	}

	sortByDate(rep.Rows)
	return rep, nil
}

// meanStddev computes the mean and the n-1 sample standard deviation of
// units_sold over the given rows. Callers guarantee len(idx) >= 2.
func meanStddev(t *sales.Table, idx []int) (float64, float64) {
	var sum float64
	for _, i := range idx {
		sum += t.At(i).UnitsSold
	}
	mean := sum / float64(len(idx))

	var ss float64
	for _, i := range idx {
		d := t.At(i).UnitsSold - mean
		ss += d * d
	}
	return mean, math.Sqrt(ss / float64(len(idx)-1))
}

// constantUnits reports whether every row in idx sold the same units. The
// float stddev of identical fractional values can be a tiny non-zero number.
func constantUnits(t *sales.Table, idx []int) bool {
	first := t.At(idx[0]).UnitsSold
	for _, i := range idx[1:] {
		if t.At(i).UnitsSold != first {
			return false
		}
	}
	return true
}
