package tools

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strconv"
	"strings"

	"github.com/kalambet/cpgagent/internal/sales"
)

// New returns the zero-value call for k.
func New(k Kind) (Call, error) {
	switch k {
	case KindCategoryTrends:
		return CategoryTrends{}, nil
	case KindStorePerformance:
		return StorePerformance{}, nil
	case KindSeasonality:
		return Seasonality{}, nil
	case KindSalesSpikes:
		return SalesSpikes{}, nil
	case KindStockShortages:
		return StockShortages{}, nil
	case KindFailedPromotions:
		return FailedPromotions{}, nil
	case KindSimulatePriceChange:
		return SimulatePriceChange{}, nil
	case KindSimulatePromotion:
		return SimulatePromotion{}, nil
	}
	return nil, ErrUnknownKind
}

// Decode builds a call of kind k from a JSON object. An empty body is
// treated as {}. Unknown fields and mistyped values are invalid parameters.
func Decode(k Kind, raw []byte) (Call, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		raw = []byte("{}")
	}

	var err error
	var c Call
	switch k {
	case KindCategoryTrends:
		var v CategoryTrends
		err = strictUnmarshal(raw, &v)
		c = v
	case KindStorePerformance:
		var v StorePerformance
		err = strictUnmarshal(raw, &v)
		c = v
	case KindSeasonality:
		var v Seasonality
		err = strictUnmarshal(raw, &v)
		c = v
	case KindSalesSpikes:
		var v SalesSpikes
		err = strictUnmarshal(raw, &v)
		c = v
	case KindStockShortages:
		var v StockShortages
		err = strictUnmarshal(raw, &v)
		c = v
	case KindFailedPromotions:
		var v FailedPromotions
		err = strictUnmarshal(raw, &v)
		c = v
	case KindSimulatePriceChange:
		var v SimulatePriceChange
		err = strictUnmarshal(raw, &v)
		c = v
	case KindSimulatePromotion:
		var v SimulatePromotion
		err = strictUnmarshal(raw, &v)
		c = v
	default:
		return nil, ErrUnknownKind
	}
	if err != nil {
		return nil, sales.InvalidParameter("%s arguments: %v", k, err)
	}
	if err := checkRequired(k, raw); err != nil {
		return nil, err
	}
	return c, nil
}

func strictUnmarshal(raw []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		if err == nil {
			return errors.New("unexpected data after the arguments object")
		}
		return err
	}
	return nil
}

// checkRequired rejects objects that omit, or set to null, a parameter the
// catalog marks as required.
func checkRequired(k Kind, raw []byte) error {
	e, ok := Lookup(k)
	if !ok {
		return ErrUnknownKind
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return sales.InvalidParameter("%s arguments: %v", k, err)
	}
	var missing []string
	for _, p := range e.Params {
		if !p.Required {
			continue
		}
		if v, ok := fields[p.Name]; !ok || string(bytes.TrimSpace(v)) == "null" {
			missing = append(missing, p.Name)
		}
	}
	if len(missing) > 0 {
		return sales.InvalidParameter("%s requires %s", k, strings.Join(missing, ", "))
	}
	return nil
}

// ParseInput builds a call from the comma-separated text form used by
// LLM tool descriptions, e.g. "101,0.1,-1.5" for simulate_price_change or
// "Beverages,0.2,1.5" for simulate_promotion.
func ParseInput(k Kind, input string) (Call, error) {
	input = strings.TrimSpace(input)
	switch k {
	case KindCategoryTrends:
		return CategoryTrends{Period: input}, nil
	case KindStorePerformance:
		return StorePerformance{Metric: input}, nil
	case KindSeasonality:
		return Seasonality{Category: input}, nil
	case KindFailedPromotions:
		return FailedPromotions{}, nil

	case KindSalesSpikes:
		if input == "" {
			return SalesSpikes{}, nil
		}
		k, err := parseFloat("threshold", input)
		if err != nil {
			return nil, err
		}
		return SalesSpikes{Threshold: &k}, nil

	case KindStockShortages:
		if input == "" {
			return StockShortages{}, nil
		}
		level, err := parseInt("critical level", input)
		if err != nil {
			return nil, err
		}
		return StockShortages{CriticalLevel: &level}, nil

	case KindSimulatePriceChange:
		parts := splitFields(input)
		if len(parts) < 2 || len(parts) > 3 {
			return nil, sales.InvalidParameter("expected 'sku_id,price_change_pct[,elasticity]', got %q", input)
		}
		sku, err := parseInt("sku_id", parts[0])
		if err != nil {
			return nil, err
		}
		pct, err := parseFloat("price_change_pct", parts[1])
		if err != nil {
			return nil, err
		}
		c := SimulatePriceChange{SKUID: sku, PriceChangePct: pct}
		if len(parts) == 3 {
			e, err := parseFloat("elasticity", parts[2])
			if err != nil {
				return nil, err
			}
			c.Elasticity = &e
		}
		return c, nil

	case KindSimulatePromotion:
		parts := splitFields(input)
		if len(parts) < 3 {
			return nil, sales.InvalidParameter("expected 'category,promo_uplift_pct,promo_cost_per_unit', got %q", input)
		}
		// The category may itself contain commas; the last two fields are numbers.
		n := len(parts)
		uplift, err := parseFloat("promo_uplift_pct", parts[n-2])
		if err != nil {
			return nil, err
		}
		cost, err := parseFloat("promo_cost_per_unit", parts[n-1])
		if err != nil {
			return nil, err
		}
		return SimulatePromotion{
			Category:         strings.Join(parts[:n-2], ","),
			PromoUpliftPct:   uplift,
			PromoCostPerUnit: cost,
		}, nil
	}
	return nil, ErrUnknownKind
}

// StandardReport is the set of calls run by a full report with default
// arguments.
func StandardReport() []Call {
	return []Call{
		CategoryTrends{Period: string(periodWeekly)},
		StorePerformance{Metric: "revenue"},
		Seasonality{Category: "all"},
		SalesSpikes{},
		StockShortages{},
		FailedPromotions{},
	}
}

const periodWeekly = "W"

func splitFields(s string) []string {
	parts := strings.Split(s, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseFloat(name, s string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, sales.InvalidParameter("%s must be a number, got %q", name, s)
	}
	if err := sales.RequireFinite(name, f); err != nil {
		return 0, err
	}
	return f, nil
}

func parseInt(name, s string) (int64, error) {
	i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, sales.InvalidParameter("%s must be an integer, got %q", name, s)
	}
	return i, nil
}
