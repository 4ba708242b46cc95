package main

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/fencecpq/quoteengine/internal/db"
	"github.com/fencecpq/quoteengine/internal/domain"
	"github.com/fencecpq/quoteengine/internal/migrations"
	"github.com/fencecpq/quoteengine/internal/quoting"
	"github.com/fencecpq/quoteengine/internal/seed"
	"github.com/fencecpq/quoteengine/internal/store"
)

// Seeded ids on a fresh database.
const (
	seededProductID  = 1
	seededTallOption = 2
)

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "server-test.db"))
	if err != nil {
		t.Fatalf("open sqlite database: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	if err := migrations.Up(database); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	if _, err := seed.Run(context.Background(), database); err != nil {
		t.Fatalf("seed demo catalog: %v", err)
	}

	quotes := quoting.NewService(store.New(database), zap.NewNop())
	return newServer(database, quotes, zap.NewNop()).routes()
}

func doRequest(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func decodeBody(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response: %v\n%s", err, rr.Body.String())
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status=%d, want %d, body=%s", rr.Code, want, rr.Body.String())
	}
}

func TestHealthz(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodGet, "/healthz", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Header().Get("Content-Type"), "application/json") {
		t.Fatalf("expected JSON content type, got %q", rr.Header().Get("Content-Type"))
	}
}

func TestQuoteFlow(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/quotes",
		`{"name":"Backyard","quote_type":"fence_project","quote_config_id":1}`)
	expectStatus(t, rr, http.StatusCreated)
	var q domain.Quote
	decodeBody(t, rr, &q)
	if q.Status != domain.StatusDraft || q.Type != domain.QuoteFenceProject {
		t.Fatalf("unexpected quote: %+v", q)
	}
	quotePath := "/api/quotes/" + itoa(q.ID)

	rr = doRequest(t, h, http.MethodGet, quotePath+"/calculation", "")
	expectStatus(t, rr, http.StatusNotFound)

	rr = doRequest(t, h, http.MethodPost, quotePath+"/entries",
		`{"product_id":1,"quantity":"100","role":"main","notes":"rear lot line"}`)
	expectStatus(t, rr, http.StatusCreated)
	var entry quoting.MaterializedEntry
	decodeBody(t, rr, &entry)
	if entry.ProductID != seededProductID || len(entry.VariationGroups) != 2 {
		t.Fatalf("unexpected entry: %+v", entry)
	}

	rr = doRequest(t, h, http.MethodPost, "/api/entries/"+itoa(entry.ID)+"/variations/"+itoa(seededTallOption), "")
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &entry)
	if opt := entry.VariationGroups[0].Options[1]; opt.ID != seededTallOption || !opt.IsSelected {
		t.Fatalf("expected tall option selected, got %+v", opt)
	}

	rr = doRequest(t, h, http.MethodPost, quotePath+"/calculate", "")
	expectStatus(t, rr, http.StatusOK)
	var cq domain.CalculatedQuote
	decodeBody(t, rr, &cq)
	for _, c := range []struct {
		field string
		got   decimal.Decimal
		want  string
	}{
		{"total_material_cost", cq.TotalMaterialCost, "1586.95"},
		{"total_labor_cost", cq.TotalLaborCost, "975"},
		{"cost_of_goods_sold", cq.CostOfGoodsSold, "2561.95"},
		{"subtotal_before_tax", cq.SubtotalBeforeTax, "4525.02"},
		{"tax_amount", cq.TaxAmount, "373.31"},
		{"final_price", cq.FinalPrice, "4898.34"},
	} {
		if !c.got.Equal(decimal.RequireFromString(c.want)) {
			t.Fatalf("%s=%s, want %s", c.field, c.got, c.want)
		}
	}
	if len(cq.BillOfMaterials) != 5 || len(cq.AppliedRates) != 4 {
		t.Fatalf("unexpected breakdown: %d bill lines, %d rates", len(cq.BillOfMaterials), len(cq.AppliedRates))
	}

	rr = doRequest(t, h, http.MethodGet, quotePath+"/calculation", "")
	expectStatus(t, rr, http.StatusOK)
	if !strings.Contains(rr.Body.String(), `"final_price":"4898.34"`) {
		t.Fatalf("expected decimal encoded as string, got %s", rr.Body.String())
	}

	rr = doRequest(t, h, http.MethodGet, quotePath, "")
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &q)
	if q.Status != domain.StatusCalculated {
		t.Fatalf("status=%q, want %q", q.Status, domain.StatusCalculated)
	}

	rr = doRequest(t, h, http.MethodPut, quotePath+"/status", `{"status":"sent"}`)
	expectStatus(t, rr, http.StatusOK)

	rr = doRequest(t, h, http.MethodDelete, quotePath+"/entries/"+itoa(entry.ID), "")
	expectStatus(t, rr, http.StatusNoContent)
	rr = doRequest(t, h, http.MethodGet, quotePath+"/entries", "")
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty entry list, got %s", rr.Body.String())
	}
}

func TestErrorMapping(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/quotes", `{"quote_config_id":1}`)
	expectStatus(t, rr, http.StatusCreated)
	var q domain.Quote
	decodeBody(t, rr, &q)
	quotePath := "/api/quotes/" + itoa(q.ID)

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		want   int
	}{
		{name: "unknown quote", method: http.MethodGet, path: "/api/quotes/999", want: http.StatusNotFound},
		{name: "bad quote id", method: http.MethodGet, path: "/api/quotes/abc", want: http.StatusBadRequest},
		{name: "malformed body", method: http.MethodPost, path: "/api/quotes", body: `{"name":`, want: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/api/quotes", body: `{"config":1}`, want: http.StatusBadRequest},
		{name: "unknown config", method: http.MethodPost, path: "/api/quotes", body: `{"quote_config_id":42}`, want: http.StatusNotFound},
		{name: "zero quantity", method: http.MethodPost, path: quotePath + "/entries", body: `{"product_id":1,"quantity":"0"}`, want: http.StatusUnprocessableEntity},
		{name: "empty status", method: http.MethodPut, path: quotePath + "/status", body: `{"status":""}`, want: http.StatusUnprocessableEntity},
		{name: "unknown entry", method: http.MethodGet, path: "/api/entries/999", want: http.StatusNotFound},
		{name: "unknown option", method: http.MethodPost, path: "/api/entries/999/variations/1", want: http.StatusNotFound},
		{name: "unknown quote type filter", method: http.MethodGet, path: "/api/quotes?quote_type=patio", want: http.StatusUnprocessableEntity},
		{name: "bad limit", method: http.MethodGet, path: "/api/quotes?limit=ten", want: http.StatusBadRequest},
		{name: "negative offset", method: http.MethodGet, path: "/api/categories?offset=-1", want: http.StatusBadRequest},
		{name: "unknown role filter", method: http.MethodGet, path: quotePath + "/entries?role=accessory", want: http.StatusUnprocessableEntity},
		{name: "ui state unknown quote", method: http.MethodPut, path: "/api/quotes/999/ui-state", body: `{"ui_state":"x"}`, want: http.StatusNotFound},
		{name: "ui state too long", method: http.MethodPut, path: quotePath + "/ui-state", body: `{"ui_state":"` + strings.Repeat("x", 101) + `"}`, want: http.StatusUnprocessableEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequest(t, h, tt.method, tt.path, tt.body)
			expectStatus(t, rr, tt.want)

			var body map[string]string
			decodeBody(t, rr, &body)
			if body["error"] == "" {
				t.Fatalf("expected error message, got %s", rr.Body.String())
			}
		})
	}
}

func TestQuoteListingRoutes(t *testing.T) {
	h := newTestHandler(t)

	var created []domain.Quote
	for _, body := range []string{
		`{"name":"north","quote_type":"fence_project","quote_config_id":1}`,
		`{"name":"deck","quote_type":"deck_project","quote_config_id":1}`,
		`{"name":"south","quote_type":"fence_project","quote_config_id":1}`,
	} {
		rr := doRequest(t, h, http.MethodPost, "/api/quotes", body)
		expectStatus(t, rr, http.StatusCreated)
		var q domain.Quote
		decodeBody(t, rr, &q)
		created = append(created, q)
	}
	north := created[0]

	rr := doRequest(t, h, http.MethodPut, "/api/quotes/"+itoa(north.ID)+"/ui-state", `{"ui_state":"step:review"}`)
	expectStatus(t, rr, http.StatusOK)
	var updated domain.Quote
	decodeBody(t, rr, &updated)
	if updated.UIState != "step:review" {
		t.Fatalf("ui_state=%q, want step:review", updated.UIState)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/quotes?quote_type=fence_project", "")
	expectStatus(t, rr, http.StatusOK)
	var previews []domain.QuotePreview
	decodeBody(t, rr, &previews)
	if len(previews) != 2 || previews[0].ID != north.ID {
		t.Fatalf("expected the updated quote first, got %+v", previews)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/quotes?quote_type=fence_project&offset=1&limit=5", "")
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &previews)
	if len(previews) != 1 || previews[0].Name != "south" {
		t.Fatalf("unexpected second page: %+v", previews)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/quotes", "")
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected no general quotes, got %s", rr.Body.String())
	}
}

func TestEntryRoleFilterRoute(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodPost, "/api/quotes", `{"quote_config_id":1}`)
	expectStatus(t, rr, http.StatusCreated)
	var q domain.Quote
	decodeBody(t, rr, &q)
	quotePath := "/api/quotes/" + itoa(q.ID)

	for _, body := range []string{
		`{"product_id":1,"quantity":"100","role":"main"}`,
		`{"product_id":1,"quantity":"12","role":"secondary"}`,
	} {
		rr = doRequest(t, h, http.MethodPost, quotePath+"/entries", body)
		expectStatus(t, rr, http.StatusCreated)
	}

	rr = doRequest(t, h, http.MethodGet, quotePath+"/entries?role=secondary", "")
	expectStatus(t, rr, http.StatusOK)
	var entries []quoting.MaterializedEntry
	decodeBody(t, rr, &entries)
	if len(entries) != 1 || entries[0].Role != domain.RoleSecondary {
		t.Fatalf("unexpected secondary entries: %+v", entries)
	}

	rr = doRequest(t, h, http.MethodGet, quotePath+"/entries", "")
	expectStatus(t, rr, http.StatusOK)
	decodeBody(t, rr, &entries)
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
}

func TestCatalogRoutes(t *testing.T) {
	h := newTestHandler(t)

	rr := doRequest(t, h, http.MethodGet, "/api/categories", "")
	expectStatus(t, rr, http.StatusOK)
	var categories []domain.CategoryPreview
	decodeBody(t, rr, &categories)
	if len(categories) != 1 || categories[0].Name != "Fences" {
		t.Fatalf("unexpected categories: %+v", categories)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/categories/Fences/products", "")
	expectStatus(t, rr, http.StatusOK)
	var products []domain.ProductPreview
	decodeBody(t, rr, &products)
	if len(products) != 1 || products[0].ID != seededProductID {
		t.Fatalf("unexpected products: %+v", products)
	}

	rr = doRequest(t, h, http.MethodGet, "/api/categories/Pergolas/products", "")
	expectStatus(t, rr, http.StatusOK)
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Fatalf("expected empty product list, got %s", rr.Body.String())
	}
}

func itoa(id int64) string {
	return strconv.FormatInt(id, 10)
}
