package inventory

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	householdcontext "fridge/frontend/shared/context"
	"fridge/models"
)

func newInventoryRouter(store *Store, household models.Household) http.Handler {
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(householdcontext.NewContextWithHousehold(req.Context(), household)))
		})
	})
	r.Get("/fridge", FridgePageQueryHandler(store))
	r.Get("/fridge/export.csv", ExportCSVQueryHandler(store))
	r.Get("/fridge/labels.pdf", AllLabelsPDFQueryHandler(store))
	r.Get("/fridge/{id}/label.pdf", ItemLabelPDFQueryHandler(store))
	r.Get("/api/fridge/items", ListItemsAPIQueryHandler(store))
	r.Post("/api/fridge/items", CreateItemAPICommandHandler(store))
	return r
}

func TestFridgePage_ListsItems(t *testing.T) {
	store, _, household := newTestStore(t)
	if _, err := store.CreateItem(context.Background(), household.ID, models.DraftItem{Name: "Cheese <b>", Category: "dairy", ExpirationDate: "2030-01-01", Quantity: 1}, SourceApp); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newInventoryRouter(store, household)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Cheese &lt;b&gt;") || !strings.Contains(body, "/label.pdf") {
		t.Fatalf("expected escaped item with label link, got %s", body)
	}
}

func TestFridgePage_Empty(t *testing.T) {
	store, _, household := newTestStore(t)
	rec := httptest.NewRecorder()
	newInventoryRouter(store, household).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge", nil))
	if !strings.Contains(rec.Body.String(), "Your fridge is empty") {
		t.Fatalf("expected empty state, got %s", rec.Body.String())
	}
}

func TestItemLabelPDF(t *testing.T) {
	store, _, household := newTestStore(t)
	item, err := store.CreateItem(context.Background(), household.ID, models.DraftItem{Name: "Butter", Category: "dairy", ExpirationDate: "2030-01-01", Quantity: 1, Barcode: "012345678905"}, SourceApp)
	if err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newInventoryRouter(store, household)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/"+formatID(item.ID)+"/label.pdf", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/pdf" {
		t.Fatalf("expected pdf content type, got %q", ct)
	}
	if !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf body")
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/999/label.pdf", nil))
	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/abc/label.pdf", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestItemsAPI_CreateAndList(t *testing.T) {
	store, _, household := newTestStore(t)
	router := newInventoryRouter(store, household)

	payload := `{"name":"Apples","type":"fruit","expirationDate":"2030-04-01","servingCount":6}`
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fridge/items", strings.NewReader(payload)))
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/fridge/items", nil))
	var out struct {
		Items []ItemView `json:"items"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(out.Items) != 1 || out.Items[0].Name != "Apples" || out.Items[0].Source != SourceAPI {
		t.Fatalf("unexpected items %+v", out.Items)
	}
}

func TestItemsAPI_RejectsInvalidDraft(t *testing.T) {
	store, _, household := newTestStore(t)
	router := newInventoryRouter(store, household)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fridge/items", strings.NewReader(`{"name":"","servingCount":0}`)))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", rec.Code)
	}
	var out struct {
		Errors map[string]string `json:"errors"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for _, field := range []string{"name", "type", "expirationDate", "servingCount"} {
		if out.Errors[field] == "" {
			t.Fatalf("expected error for %s, got %v", field, out.Errors)
		}
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/fridge/items", strings.NewReader(`{`)))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for malformed json, got %d", rec.Code)
	}
}
