package tools

import (
	"errors"

	"github.com/kalambet/cpgagent/internal/anomaly"
	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/scenario"
	"github.com/kalambet/cpgagent/internal/trend"
)

// ErrUnknownKind is returned for a kind name outside the catalog.
var ErrUnknownKind = errors.New("unknown tool")

// Defaults fills optional arguments left unset by the caller.
type Defaults struct {
	SpikeThreshold float64
	CriticalLevel  int64
	Elasticity     float64
}

// DefaultDefaults mirrors the constants of the engine packages.
func DefaultDefaults() Defaults {
	return Defaults{
		SpikeThreshold: anomaly.DefaultSpikeThreshold,
		CriticalLevel:  anomaly.DefaultCriticalLevel,
		Elasticity:     scenario.DefaultElasticity,
	}
}

// Call is a fully typed invocation of one catalog operation. The set of
// implementations is closed: only this package can add one.
type Call interface {
	Kind() Kind
	run(t *sales.Table, d Defaults) (any, error)
}

type CategoryTrends struct {
	Period string `json:"period"`
}

type StorePerformance struct {
	Metric string `json:"metric"`
}

type Seasonality struct {
	Category string `json:"category"`
}

type SalesSpikes struct {
	Threshold *float64 `json:"threshold,omitempty"`
}

type StockShortages struct {
	CriticalLevel *int64 `json:"critical_level,omitempty"`
}

type FailedPromotions struct{}

type SimulatePriceChange struct {
	SKUID          int64    `json:"sku_id"`
	PriceChangePct float64  `json:"price_change_pct"`
	Elasticity     *float64 `json:"elasticity,omitempty"`
}

type SimulatePromotion struct {
	Category         string  `json:"category"`
	PromoUpliftPct   float64 `json:"promo_uplift_pct"`
	PromoCostPerUnit float64 `json:"promo_cost_per_unit"`
}

func (CategoryTrends) Kind() Kind      { return KindCategoryTrends }
func (StorePerformance) Kind() Kind    { return KindStorePerformance }
func (Seasonality) Kind() Kind         { return KindSeasonality }
func (SalesSpikes) Kind() Kind         { return KindSalesSpikes }
func (StockShortages) Kind() Kind      { return KindStockShortages }
func (FailedPromotions) Kind() Kind    { return KindFailedPromotions }
func (SimulatePriceChange) Kind() Kind { return KindSimulatePriceChange }
func (SimulatePromotion) Kind() Kind   { return KindSimulatePromotion }

func (c CategoryTrends) run(t *sales.Table, _ Defaults) (any, error) {
	return trend.CategoryTrends(t, c.Period)
}

func (c StorePerformance) run(t *sales.Table, _ Defaults) (any, error) {
	return trend.StorePerformance(t, c.Metric)
}

func (c Seasonality) run(t *sales.Table, _ Defaults) (any, error) {
	return trend.Seasonality(t, c.Category), nil
}

func (c SalesSpikes) run(t *sales.Table, d Defaults) (any, error) {
	k := d.SpikeThreshold
	if c.Threshold != nil {
		k = *c.Threshold
	}
	return anomaly.SalesSpikes(t, k)
}

func (c StockShortages) run(t *sales.Table, d Defaults) (any, error) {
	level := d.CriticalLevel
	if c.CriticalLevel != nil {
		level = *c.CriticalLevel
	}
	return anomaly.StockShortages(t, level)
}

func (FailedPromotions) run(t *sales.Table, _ Defaults) (any, error) {
	return anomaly.FailedPromotions(t), nil
}

func (c SimulatePriceChange) run(t *sales.Table, d Defaults) (any, error) {
	e := d.Elasticity
	if c.Elasticity != nil {
		e = *c.Elasticity
	}
	return scenario.SimulatePriceChange(t, c.SKUID, c.PriceChangePct, e)
}

func (c SimulatePromotion) run(t *sales.Table, _ Defaults) (any, error) {
	return scenario.SimulatePromotion(t, c.Category, c.PromoUpliftPct, c.PromoCostPerUnit)
}
