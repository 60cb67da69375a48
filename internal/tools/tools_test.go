package tools

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/kalambet/cpgagent/internal/anomaly"
	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/sales/salestest"
	"github.com/kalambet/cpgagent/internal/scenario"
	"github.com/kalambet/cpgagent/internal/trend"
)

func testTable(t *testing.T) *sales.Table {
	t.Helper()
	snack := salestest.Row("2022-02-01", 2, 201)
	snack.Category = "Snacks"
	snack.InventoryLevel = 10
	return salestest.Table(t,
		salestest.Row("2022-01-03", 1, 101),
		salestest.Units(salestest.Row("2022-01-04", 1, 101), 20),
		salestest.Promo(salestest.Units(salestest.Row("2022-01-05", 1, 101), 5)),
		snack,
	)
}

func TestCatalog_CoversEveryKind(t *testing.T) {
	kinds := Kinds()
	if len(kinds) != 8 {
		t.Fatalf("expected 8 kinds, got %d", len(kinds))
	}
	for _, name := range kinds {
		k, err := ParseKind(name)
		if err != nil {
			t.Fatalf("ParseKind(%q): %v", name, err)
		}
		c, err := New(k)
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if c.Kind() != k {
			t.Errorf("New(%q).Kind() = %q", name, c.Kind())
		}
		e, ok := Lookup(k)
		if !ok || e.Description == "" {
			t.Errorf("missing catalog entry for %q", name)
		}
	}
}

func TestParseKind_Unknown(t *testing.T) {
	_, err := ParseKind("forecast_demand")
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}

func TestCatalog_ReturnsCopy(t *testing.T) {
	c := Catalog()
	c[0].Description = "changed"
	if Catalog()[0].Description == "changed" {
		t.Error("Catalog must not expose the package slice")
	}
}

func TestDecode(t *testing.T) {
	threshold := 3.0
	elasticity := -1.2

	tests := []struct {
		name string
		kind Kind
		body string
		want Call
	}{
		{"trends", KindCategoryTrends, `{"period":"M"}`, CategoryTrends{Period: "M"}},
		{"empty body", KindFailedPromotions, ``, FailedPromotions{}},
		{"optional omitted", KindSalesSpikes, `{}`, SalesSpikes{}},
		{"optional set", KindSalesSpikes, `{"threshold":3}`, SalesSpikes{Threshold: &threshold}},
		{"price", KindSimulatePriceChange, `{"sku_id":101,"price_change_pct":0.1,"elasticity":-1.2}`,
			SimulatePriceChange{SKUID: 101, PriceChangePct: 0.1, Elasticity: &elasticity}},
		{"promotion", KindSimulatePromotion, `{"category":"Snacks","promo_uplift_pct":0.2,"promo_cost_per_unit":1.5}`,
			SimulatePromotion{Category: "Snacks", PromoUpliftPct: 0.2, PromoCostPerUnit: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode(tt.kind, []byte(tt.body))
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("got %#v, want %#v", got, tt.want)
			}
		})
	}
}

func TestDecode_Rejects(t *testing.T) {
	tests := []struct {
		name string
		kind Kind
		body string
	}{
		{"unknown field", KindCategoryTrends, `{"period":"W","extra":1}`},
		{"wrong type", KindSimulatePriceChange, `{"sku_id":"abc","price_change_pct":0.1}`},
		{"malformed", KindSeasonality, `{"category":`},
		{"trailing data", KindCategoryTrends, `{"period":"W"} junk`},
		{"second object", KindCategoryTrends, `{"period":"W"}{"period":"M"}`},
		{"missing sku", KindSimulatePriceChange, `{"price_change_pct":0.1}`},
		{"null sku", KindSimulatePriceChange, `{"sku_id":null,"price_change_pct":0.1}`},
		{"missing promotion fields", KindSimulatePromotion, `{}`},
		{"missing cost", KindSimulatePromotion, `{"category":"Snacks","promo_uplift_pct":0.2}`},
		{"missing period", KindCategoryTrends, ``},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode(tt.kind, []byte(tt.body))
			if !errors.Is(err, sales.ErrInvalidParameter) {
				t.Fatalf("expected ErrInvalidParameter, got %v", err)
			}
		})
	}

	if _, err := Decode(Kind("nope"), nil); !errors.Is(err, ErrUnknownKind) {
		t.Errorf("expected ErrUnknownKind, got %v", err)
	}
}

func TestParseInput(t *testing.T) {
	elasticity := -1.5
	level := int64(20)

	tests := []struct {
		kind  Kind
		input string
		want  Call
	}{
		{KindCategoryTrends, " W ", CategoryTrends{Period: "W"}},
		{KindStockShortages, "20", StockShortages{CriticalLevel: &level}},
		{KindStockShortages, "", StockShortages{}},
		{KindSimulatePriceChange, "101,0.1", SimulatePriceChange{SKUID: 101, PriceChangePct: 0.1}},
		{KindSimulatePriceChange, "101, 0.1, -1.5", SimulatePriceChange{SKUID: 101, PriceChangePct: 0.1, Elasticity: &elasticity}},
		{KindSimulatePromotion, "Beverages,0.2,1.5", SimulatePromotion{Category: "Beverages", PromoUpliftPct: 0.2, PromoCostPerUnit: 1.5}},
		{KindSimulatePromotion, "Dairy, Eggs,0.1,0.5", SimulatePromotion{Category: "Dairy,Eggs", PromoUpliftPct: 0.1, PromoCostPerUnit: 0.5}},
	}

	for _, tt := range tests {
		got, err := ParseInput(tt.kind, tt.input)
		if err != nil {
			t.Fatalf("ParseInput(%s, %q): %v", tt.kind, tt.input, err)
		}
		if !reflect.DeepEqual(got, tt.want) {
			t.Errorf("ParseInput(%s, %q) = %#v, want %#v", tt.kind, tt.input, got, tt.want)
		}
	}
}

func TestParseInput_Rejects(t *testing.T) {
	tests := []struct {
		kind  Kind
		input string
	}{
		{KindSimulatePriceChange, "101"},
		{KindSimulatePriceChange, "abc,0.1"},
		{KindSimulatePriceChange, "101,NaN"},
		{KindSimulatePromotion, "Beverages,0.2"},
		{KindSimulatePromotion, "Beverages,x,1"},
		{KindSalesSpikes, "high"},
		{KindStockShortages, "1.5"},
	}
	for _, tt := range tests {
		if _, err := ParseInput(tt.kind, tt.input); !errors.Is(err, sales.ErrInvalidParameter) {
			t.Errorf("ParseInput(%s, %q): expected ErrInvalidParameter, got %v", tt.kind, tt.input, err)
		}
	}
}

func TestRunner_Run(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())

	out, err := r.Run(CategoryTrends{Period: "M"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	rows, ok := out.Result.([]trend.PeriodTotal)
	if !ok {
		t.Fatalf("unexpected result type %T", out.Result)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 period rows, got %d", len(rows))
	}
	if out.Kind != KindCategoryTrends || out.NoData != nil {
		t.Errorf("unexpected output %+v", out)
	}
}

func TestRunner_DefaultsApplied(t *testing.T) {
	d := DefaultDefaults()
	d.CriticalLevel = 5
	r := NewRunner(testTable(t), d)

	out, err := r.Run(StockShortages{})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep := out.Result.(anomaly.Report); len(rep.Rows) != 0 {
		t.Errorf("level 5 should flag nothing, got %d rows", len(rep.Rows))
	}

	level := int64(50)
	out, err = r.Run(StockShortages{CriticalLevel: &level})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if rep := out.Result.(anomaly.Report); len(rep.Rows) != 1 {
		t.Errorf("level 50 should flag the snack row, got %d rows", len(rep.Rows))
	}
}

func TestRunner_NoDataSurfaced(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())
	out, err := r.Run(SimulatePriceChange{SKUID: 999, PriceChangePct: 0.1})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if out.NoData == nil {
		t.Fatal("expected NoData for an unknown SKU")
	}
	if _, ok := out.Result.(scenario.PriceChange); !ok {
		t.Errorf("unexpected result type %T", out.Result)
	}
}

func TestRunner_InvalidParameter(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())
	_, err := r.Run(StorePerformance{Metric: "margin"})
	if !errors.Is(err, sales.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRunAll_PreservesOrder(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())
	calls := StandardReport()
	calls = append(calls, SimulatePromotion{Category: "Snacks", PromoUpliftPct: 0.1, PromoCostPerUnit: 1})

	outs, err := r.RunAll(context.Background(), calls, 3)
	if err != nil {
		t.Fatalf("RunAll: %v", err)
	}
	if len(outs) != len(calls) {
		t.Fatalf("expected %d outputs, got %d", len(calls), len(outs))
	}
	for i, c := range calls {
		if outs[i].Kind != c.Kind() {
			t.Errorf("output %d: kind %s, want %s", i, outs[i].Kind, c.Kind())
		}
		seq, err := r.Run(c)
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
		if !reflect.DeepEqual(seq.Result, outs[i].Result) {
			t.Errorf("output %d differs from sequential run", i)
		}
	}
}

func TestRunAll_FirstErrorReturned(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())
	calls := []Call{CategoryTrends{Period: "W"}, CategoryTrends{Period: "Q"}}
	_, err := r.RunAll(context.Background(), calls, 1)
	if !errors.Is(err, sales.ErrInvalidParameter) {
		t.Fatalf("expected ErrInvalidParameter, got %v", err)
	}
}

func TestRunAll_CanceledContext(t *testing.T) {
	r := NewRunner(testTable(t), DefaultDefaults())
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := r.RunAll(ctx, StandardReport(), 2)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
