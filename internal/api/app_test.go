package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/kalambet/cpgagent/internal/sales"
	"github.com/kalambet/cpgagent/internal/sales/salestest"
	"github.com/kalambet/cpgagent/internal/storage"
	"github.com/kalambet/cpgagent/internal/tools"
)

const testToken = "test-token-12345"

func testTable(t *testing.T) *sales.Table {
	t.Helper()
	snack := salestest.Row("2022-01-04", 2, 202)
	snack.Category, snack.StoreRegion, snack.InventoryLevel = "Snacks", "South", 20
	return salestest.Table(t,
		salestest.Row("2022-01-03", 1, 101),
		salestest.Units(salestest.Row("2022-01-04", 1, 101), 20),
		snack,
	)
}

func newTestExecutor(t *testing.T) (*Executor, *storage.Store) {
	t.Helper()
	store, err := storage.Open(":memory:")
	if err != nil {
		t.Fatalf("Open(:memory:) failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	runner := tools.NewRunner(testTable(t), tools.DefaultDefaults())
	return NewExecutor(runner, store), store
}

func setupAppHandler(t *testing.T, token string) (http.Handler, *storage.Store) {
	t.Helper()
	exec, store := newTestExecutor(t)
	handler := NewAppHandler(AppDeps{
		Exec:  exec,
		Runs:  store,
		Token: token,
	})
	return handler, store
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req
}

func TestHealth_NoAuthRequired(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
	if !strings.Contains(rr.Body.String(), `"ok"`) {
		t.Errorf("body = %s", rr.Body.String())
	}
}

func TestAuth(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	tests := []struct {
		name  string
		token string
		want  int
	}{
		{"missing", "", http.StatusUnauthorized},
		{"wrong", "nope", http.StatusUnauthorized},
		{"valid", testToken, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/tools", "", tt.token))
			if rr.Code != tt.want {
				t.Errorf("status = %d, want %d; body = %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestAuth_DisabledWithoutToken(t *testing.T) {
	h, _ := setupAppHandler(t, "")

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/tools", "", ""))
	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestListTools(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/tools", "", testToken))

	var entries []tools.Entry
	if err := json.NewDecoder(rr.Body).Decode(&entries); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(entries) != len(tools.Catalog()) {
		t.Errorf("got %d tools, want %d", len(entries), len(tools.Catalog()))
	}
}

func TestDataset(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/dataset", "", testToken))

	var sum sales.Summary
	if err := json.NewDecoder(rr.Body).Decode(&sum); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if sum.Records != 3 || sum.Stores != 2 || sum.SKUs != 2 {
		t.Errorf("unexpected summary: %+v", sum)
	}
}

func TestRunTool_StorePerformance(t *testing.T) {
	h, store := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/tools/store_performance", `{"metric":"revenue"}`, testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d; body = %s", rr.Code, http.StatusOK, rr.Body.String())
	}

	var resp struct {
		RunID  string `json:"run_id"`
		Kind   string `json:"kind"`
		Result []struct {
			StoreID      int64   `json:"store_id"`
			TotalRevenue float64 `json:"total_revenue"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if resp.Kind != "store_performance" || len(resp.Result) != 2 {
		t.Fatalf("unexpected response: %+v", resp)
	}
	if resp.Result[0].StoreID != 1 || resp.Result[0].TotalRevenue != 150 {
		t.Errorf("expected store 1 first with revenue 150, got %+v", resp.Result[0])
	}

	run, err := store.GetRun(resp.RunID)
	if err != nil {
		t.Fatalf("GetRun(%q): %v", resp.RunID, err)
	}
	if run.Status != storage.RunCompleted || run.ArgsJSON != `{"metric":"revenue"}` {
		t.Errorf("unexpected run: %+v", run)
	}
}

func TestRunTool_EmptyBodyUsesDefaults(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/tools/stock_shortages", "", testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp struct {
		Result struct {
			Rows []json.RawMessage `json:"rows"`
		} `json:"result"`
	}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decoding: %v", err)
	}
	if len(resp.Result.Rows) != 1 {
		t.Errorf("expected 1 shortage at the default level, got %d", len(resp.Result.Rows))
	}
}

func TestRunTool_NoData(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/tools/simulate_promotion",
		`{"category":"Toys","promo_uplift_pct":0.2,"promo_cost_per_unit":1}`, testToken))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d; body = %s", rr.Code, rr.Body.String())
	}
	var resp map[string]any
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp["no_data"] != "No data found for category 'Toys'" {
		t.Errorf("no_data = %v", resp["no_data"])
	}
}

func TestRunTool_Errors(t *testing.T) {
	h, store := setupAppHandler(t, testToken)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantType string
	}{
		{"unknown tool", "/v1/tools/forecast", `{}`, http.StatusNotFound, "not_found"},
		{"unknown field", "/v1/tools/category_trends", `{"period":"W","x":1}`, http.StatusBadRequest, "invalid_request_error"},
		{"bad json", "/v1/tools/category_trends", `{`, http.StatusBadRequest, "invalid_request_error"},
		{"invalid period", "/v1/tools/category_trends", `{"period":"Q"}`, http.StatusBadRequest, "invalid_request_error"},
		{"invalid metric", "/v1/tools/store_performance", `{"metric":"margin"}`, http.StatusBadRequest, "invalid_request_error"},
		{"missing sku", "/v1/tools/simulate_price_change", `{"price_change_pct":0.1}`, http.StatusBadRequest, "invalid_request_error"},
		{"trailing data", "/v1/tools/category_trends", `{"period":"W"} junk`, http.StatusBadRequest, "invalid_request_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			h.ServeHTTP(rr, authReq(http.MethodPost, tt.path, tt.body, testToken))
			if rr.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d; body = %s", rr.Code, tt.wantCode, rr.Body.String())
			}
			var e apiError
			if err := json.NewDecoder(rr.Body).Decode(&e); err != nil {
				t.Fatalf("decoding error body: %v", err)
			}
			if e.Error.Type != tt.wantType {
				t.Errorf("error type = %q, want %q", e.Error.Type, tt.wantType)
			}
		})
	}

	// Rejected arguments are still recorded as failed runs.
	runs, err := store.ListRuns(10, 0)
	if err != nil {
		t.Fatalf("ListRuns: %v", err)
	}
	failed := 0
	for _, r := range runs {
		if r.Status == storage.RunFailed {
			failed++
		}
	}
	if failed != 2 {
		t.Errorf("expected 2 failed runs, got %d", failed)
	}
}

func TestRuns_ListGetDelete(t *testing.T) {
	h, _ := setupAppHandler(t, testToken)

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodPost, "/v1/tools/seasonality", `{"category":"all"}`, testToken))
	var created Result
	json.NewDecoder(rr.Body).Decode(&created)
	if created.RunID == "" {
		t.Fatal("response missing run_id")
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/runs?limit=5", "", testToken))
	var list []runView
	if err := json.NewDecoder(rr.Body).Decode(&list); err != nil {
		t.Fatalf("decoding list: %v", err)
	}
	if len(list) != 1 || list[0].ID != created.RunID || list[0].Result != nil {
		t.Fatalf("unexpected list: %+v", list)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/runs/"+created.RunID, "", testToken))
	var got runView
	if err := json.NewDecoder(rr.Body).Decode(&got); err != nil {
		t.Fatalf("decoding run: %v", err)
	}
	if got.Tool != "seasonality" || len(got.Result) == 0 {
		t.Errorf("unexpected run: %+v", got)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodDelete, "/v1/runs/"+created.RunID, "", testToken))
	if rr.Code != http.StatusOK {
		t.Fatalf("delete status = %d", rr.Code)
	}

	rr = httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/runs/"+created.RunID, "", testToken))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status after delete = %d, want 404", rr.Code)
	}
}

func TestRuns_NotMountedWithoutStore(t *testing.T) {
	exec, _ := newTestExecutor(t)
	h := NewAppHandler(AppDeps{Exec: exec})

	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, authReq(http.MethodGet, "/v1/runs", "", ""))
	if rr.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rr.Code)
	}
}
