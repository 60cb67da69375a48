// Package trend aggregates sales records over time periods and dimensions.
//
// Every function follows the same two passes: accumulate into a map keyed by
// the group tuple, then finalize into a sorted slice. The input table is only
// read.
package trend

import (
	"sort"
	"strings"
	"time"

	"github.com/kalambet/cpgagent/internal/sales"
)

// Period is a supported time-bucket granularity.
type Period string

const (
	// Weekly buckets end on Sunday and are labelled with that Sunday.
	Weekly Period = "W"
	// Monthly buckets are labelled with the first day of the month.
	Monthly Period = "M"
)

// ParsePeriod accepts W/week/weekly and M/month/monthly, case-insensitively.
func ParsePeriod(code string) (Period, error) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "w", "week", "weekly":
		return Weekly, nil
	case "m", "month", "monthly":
		return Monthly, nil
	}
	return "", sales.InvalidParameter("period %q is not supported; use W (weekly) or M (monthly)", code)
}

// Bucket returns the label date of the period containing d.
func (p Period) Bucket(d time.Time) time.Time {
	d = sales.Day(d)
	if p == Monthly {
		return time.Date(d.Year(), d.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return d.AddDate(0, 0, (7-int(d.Weekday()))%7)
}

// PeriodTotal is one (period, category) aggregate.
type PeriodTotal struct {
	Period         string  `json:"period"`
	Category       string  `json:"category"`
	TotalUnitsSold float64 `json:"total_units_sold"`
	TotalRevenue   float64 `json:"total_revenue"`
}

type periodKey struct {
	bucket   time.Time
	category string
}

// CategoryTrends sums units and revenue per (period, category), ordered by
// period then category ascending.
func CategoryTrends(t *sales.Table, period string) ([]PeriodTotal, error) {
	p, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}

	acc := make(map[periodKey]*PeriodTotal)
	keys := make([]periodKey, 0)
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		k := periodKey{bucket: p.Bucket(r.Date), category: r.Category}
		agg, ok := acc[k]
		if !ok {
			agg = &PeriodTotal{Period: k.bucket.Format(sales.DateLayout), Category: r.Category}
			acc[k] = agg
			keys = append(keys, k)
		}
		agg.TotalUnitsSold += r.UnitsSold
		agg.TotalRevenue += r.Revenue
	}

	sort.Slice(keys, func(i, j int) bool {
		if !keys[i].bucket.Equal(keys[j].bucket) {
			return keys[i].bucket.Before(keys[j].bucket)
		}
		return keys[i].category < keys[j].category
	})

	out := make([]PeriodTotal, len(keys))
	for i, k := range keys {
		out[i] = *acc[k]
	}
	return out, nil
}
