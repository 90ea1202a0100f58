package inventory

import (
	"bytes"
	"context"
	"encoding/csv"
	"net/http"
	"net/http/httptest"
	"testing"

	"fridge/models"
)

func TestExportCSV(t *testing.T) {
	store, db, household := newTestStore(t)
	if _, err := store.CreateItem(context.Background(), household.ID, models.DraftItem{Name: "Feta, crumbled", Category: "dairy", ExpirationDate: "2030-01-01", Quantity: 2, ServingSize: 28}, SourceApp); err != nil {
		t.Fatalf("seed: %v", err)
	}
	router := newInventoryRouter(store, household)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/export.csv", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	rows, err := csv.NewReader(bytes.NewReader(rec.Body.Bytes())).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected header and 1 row, got %d", len(rows))
	}
	if rows[1][1] != "Feta, crumbled" || rows[1][3] != "2030-01-01" || rows[1][6] != "28" {
		t.Fatalf("unexpected row %v", rows[1])
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'inventory.export'`); n != 1 {
		t.Fatalf("expected export audit row, got %d", n)
	}
}

func TestAllLabelsPDF(t *testing.T) {
	store, _, household := newTestStore(t)
	router := newInventoryRouter(store, household)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/labels.pdf", nil))
	if rec.Code != http.StatusSeeOther {
		t.Fatalf("expected redirect for empty fridge, got %d", rec.Code)
	}

	for _, name := range []string{"Kale", "Tofu"} {
		if _, err := store.CreateItem(context.Background(), household.ID, models.DraftItem{Name: name, Category: "other", ExpirationDate: "2030-01-01", Quantity: 1}, SourceApp); err != nil {
			t.Fatalf("seed %s: %v", name, err)
		}
	}
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fridge/labels.pdf", nil))
	if rec.Code != http.StatusOK || !bytes.HasPrefix(rec.Body.Bytes(), []byte("%PDF")) {
		t.Fatalf("expected pdf, got %d", rec.Code)
	}
}
