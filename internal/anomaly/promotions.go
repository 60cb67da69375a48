package anomaly

import (
	"github.com/kalambet/cpgagent/internal/sales"
)

// FailedPromotions flags promo rows that sold strictly fewer units than the
// mean of non-promo rows for the same (sku_id, store_id). Pairs with no
// non-promo rows have no baseline and are reported as excluded.
func FailedPromotions(t *sales.Table) Report {
	type baseline struct {
		sum float64
		n   int
	}
	base := make(map[partitionKey]*baseline)
	for i := 0; i < t.Len(); i++ {
		r := t.At(i)
		if r.Promo {
			continue
		}
		k := partitionKey{sku: r.SKUID, store: r.StoreID}
		b, ok := base[k]
		if !ok {
			b = &baseline{}
			base[k] = b
		}
		b.sum += r.UnitsSold
		b.n++
	}

	promos, keys := partition(t, func(r sales.Record) bool { return r.Promo })
	rep := Report{Rows: []Flagged{}}
	for _, key := range keys {
		idx := promos[key]
		b, ok := base[key]
		if !ok {
			rep.Excluded = append(rep.Excluded, Exclusion{SKUID: key.sku, StoreID: key.store, Rows: len(idx), Reason: ExcludedNoBaseline})
			continue
		}

		avg := b.sum / float64(b.n)
		for _, i := range idx {
			r := t.At(i)
			if r.UnitsSold < avg {
				rep.Rows = append(rep.Rows, Flagged{Record: r, Reason: ReasonFailedPromo, Observed: r.UnitsSold, Threshold: avg})
			}
		}
	}

	sortByDate(rep.Rows)
	return rep
}
