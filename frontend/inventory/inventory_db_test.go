package inventory

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/uptrace/bun"

	householdcontext "fridge/frontend/shared/context"
	"fridge/infrastructure/sqlite"
	"fridge/models"
)

func openInventoryTestDB(t *testing.T) *sqlite.DB {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "inventory-test.db")
	db, err := sqlite.OpenDB(dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	_, file, _, ok := runtime.Caller(0)
	if !ok {
		t.Fatalf("runtime caller unavailable")
	}
	migrationsDir := filepath.Join(filepath.Dir(file), "..", "..", "infrastructure", "sqlite", "migrations")
	if err := sqlite.ApplyMigrations(context.Background(), db, migrationsDir); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return db
}

func newTestStore(t *testing.T) (*Store, *sqlite.DB, models.Household) {
	t.Helper()
	db := openInventoryTestDB(t)
	store := NewStore(db, nil)
	household, err := store.EnsureHousehold(context.Background(), "hh-1")
	if err != nil {
		t.Fatalf("ensure household: %v", err)
	}
	return store, db, household
}

func countRows(t *testing.T, db *sqlite.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.WithReadTx(context.Background(), func(ctx context.Context, tx bun.Tx) error {
		return tx.NewRaw(query, args...).Scan(ctx, &n)
	}); err != nil {
		t.Fatalf("count rows: %v", err)
	}
	return n
}

func TestEnsureHousehold_Idempotent(t *testing.T) {
	store, db, _ := newTestStore(t)
	if _, err := store.EnsureHousehold(context.Background(), "hh-1"); err != nil {
		t.Fatalf("ensure household again: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM households`); n != 1 {
		t.Fatalf("expected 1 household, got %d", n)
	}
	if _, err := store.EnsureHousehold(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for blank household id")
	}
}

func TestCreateInventoryItem_UsesHouseholdFromContext(t *testing.T) {
	store, db, household := newTestStore(t)
	ctx := householdcontext.NewContextWithHousehold(context.Background(), household)

	id, err := store.CreateInventoryItem(ctx, models.DraftItem{
		Name:           "Milk",
		Category:       "dairy",
		ExpirationDate: "2030-01-05",
		Quantity:       2,
		NutritionFacts: []models.NutrientFact{{NutrientName: "Protein", UnitName: "G", Value: 3.4}},
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if id == "" {
		t.Fatalf("expected id")
	}

	items, err := store.ListItems(context.Background(), household.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("expected 1 item, got %d", len(items))
	}
	got := items[0]
	if got.Name != "Milk" || got.Quantity != 2 || got.Source != SourceApp {
		t.Fatalf("unexpected item %+v", got)
	}
	if got.ExpirationDate.Format(dateLayout) != "2030-01-05" {
		t.Fatalf("unexpected expiration %v", got.ExpirationDate)
	}
	view := toItemView(got, time.Date(2030, 1, 1, 12, 0, 0, 0, time.UTC))
	if view.DaysLeft != 4 || view.Expired || len(view.NutritionFacts) != 1 {
		t.Fatalf("unexpected view %+v", view)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'inventory.create' AND actor = ?`, household.ID); n != 1 {
		t.Fatalf("expected 1 audit row, got %d", n)
	}
}

func TestCreateItem_DefaultsAndRejects(t *testing.T) {
	store, _, household := newTestStore(t)
	ctx := context.Background()

	item, err := store.CreateItem(ctx, household.ID, models.DraftItem{Name: "Eggs", ExpirationDate: "2030-02-01", Quantity: 12}, SourceAPI)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if item.Category != "other" {
		t.Fatalf("expected default category other, got %q", item.Category)
	}

	cases := []models.DraftItem{
		{Name: "", ExpirationDate: "2030-02-01", Quantity: 1},
		{Name: "Bread", ExpirationDate: "01/02/2030", Quantity: 1},
		{Name: "Bread", ExpirationDate: "2030-02-01", Quantity: 0},
	}
	for _, draft := range cases {
		if _, err := store.CreateItem(ctx, household.ID, draft, SourceAPI); !errors.Is(err, ErrInvalidItem) {
			t.Fatalf("expected ErrInvalidItem for %+v, got %v", draft, err)
		}
	}
}

func TestCreateItem_WithoutHouseholdStoresNull(t *testing.T) {
	store, db, _ := newTestStore(t)
	if _, err := store.CreateInventoryItem(context.Background(), models.DraftItem{Name: "Jam", Category: "other", ExpirationDate: "2031-01-01", Quantity: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM inventory_items WHERE household_id IS NULL`); n != 1 {
		t.Fatalf("expected 1 item without household, got %d", n)
	}
}

func TestLoadItem_ScopedToHousehold(t *testing.T) {
	store, _, household := newTestStore(t)
	ctx := context.Background()
	if _, err := store.EnsureHousehold(ctx, "hh-2"); err != nil {
		t.Fatalf("ensure second household: %v", err)
	}
	item, err := store.CreateItem(ctx, household.ID, models.DraftItem{Name: "Yogurt", Category: "dairy", ExpirationDate: "2030-03-01", Quantity: 1}, SourceApp)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.LoadItem(ctx, household.ID, item.ID); err != nil {
		t.Fatalf("load own item: %v", err)
	}
	if _, err := store.LoadItem(ctx, "hh-2", item.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("expected sql.ErrNoRows for other household, got %v", err)
	}
}

func TestListItems_OrderedByExpiry(t *testing.T) {
	store, _, household := newTestStore(t)
	ctx := context.Background()
	for _, d := range []models.DraftItem{
		{Name: "Late", Category: "other", ExpirationDate: "2030-12-01", Quantity: 1},
		{Name: "Soon", Category: "other", ExpirationDate: "2030-01-01", Quantity: 1},
	} {
		if _, err := store.CreateItem(ctx, household.ID, d, SourceApp); err != nil {
			t.Fatalf("create %s: %v", d.Name, err)
		}
	}
	items, err := store.ListItems(ctx, household.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 2 || items[0].Name != "Soon" || items[1].Name != "Late" {
		t.Fatalf("unexpected order %+v", items)
	}
}

func TestRecordUploadRun(t *testing.T) {
	store, db, household := newTestStore(t)
	run := models.UploadRun{HouseholdID: household.ID, FileName: "fridge.jpg", MIMEType: "image/jpeg", Total: 3, Succeeded: 2, ErrorText: "remote down"}
	if err := store.RecordUploadRun(context.Background(), run); err != nil {
		t.Fatalf("record: %v", err)
	}
	runs, err := store.UploadRuns(context.Background(), household.ID, 5)
	if err != nil {
		t.Fatalf("list runs: %v", err)
	}
	if len(runs) != 1 || runs[0].Succeeded != 2 || runs[0].Total != 3 {
		t.Fatalf("unexpected runs %+v", runs)
	}
	if n := countRows(t, db, `SELECT COUNT(*) FROM audit_logs WHERE action = 'upload.record'`); n != 1 {
		t.Fatalf("expected upload audit row, got %d", n)
	}
}
