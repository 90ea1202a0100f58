package inventory

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/uptrace/bun"

	householdcontext "fridge/frontend/shared/context"
	"fridge/infrastructure/audit"
	"fridge/infrastructure/sqlite"
	"fridge/models"
)

var ErrInvalidItem = errors.New("invalid inventory item")

// Store persists households, inventory items and upload runs in sqlite.
type Store struct {
	db    *sqlite.DB
	audit *audit.Service
	now   func() time.Time
}

func NewStore(db *sqlite.DB, auditSvc *audit.Service) *Store {
	if auditSvc == nil {
		auditSvc = audit.NewService()
	}
	return &Store{db: db, audit: auditSvc, now: time.Now}
}

// EnsureHousehold creates the household on first sight and refreshes last_seen_at.
func (s *Store) EnsureHousehold(ctx context.Context, id string) (models.Household, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return models.Household{}, errors.New("household id is required")
	}
	var household models.Household
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO households (id, created_at, last_seen_at)
VALUES (?, CURRENT_TIMESTAMP, CURRENT_TIMESTAMP)
ON CONFLICT(id) DO UPDATE SET last_seen_at = CURRENT_TIMESTAMP`, id); err != nil {
			return err
		}
		return tx.NewSelect().Model(&household).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		return models.Household{}, fmt.Errorf("ensure household: %w", err)
	}
	return household, nil
}

// CreateInventoryItem stores draft for the household attached to ctx and returns the new id.
func (s *Store) CreateInventoryItem(ctx context.Context, draft models.DraftItem) (string, error) {
	var householdID string
	if household, ok := householdcontext.GetHouseholdFromContext(ctx); ok {
		householdID = household.ID
	}
	item, err := s.CreateItem(ctx, householdID, draft, SourceApp)
	if err != nil {
		return "", err
	}
	return formatID(item.ID), nil
}

// CreateItem inserts one item and its audit record in a single transaction.
func (s *Store) CreateItem(ctx context.Context, householdID string, draft models.DraftItem, source string) (models.InventoryItem, error) {
	name := strings.TrimSpace(draft.Name)
	if name == "" {
		return models.InventoryItem{}, fmt.Errorf("%w: name is required", ErrInvalidItem)
	}
	if draft.Quantity <= 0 {
		return models.InventoryItem{}, fmt.Errorf("%w: quantity must be at least 1", ErrInvalidItem)
	}
	exp, err := time.Parse(dateLayout, strings.TrimSpace(draft.ExpirationDate))
	if err != nil {
		return models.InventoryItem{}, fmt.Errorf("%w: expiration date must be YYYY-MM-DD", ErrInvalidItem)
	}
	category := strings.TrimSpace(draft.Category)
	if category == "" {
		category = "other"
	}

	var nutrition string
	if len(draft.NutritionFacts) > 0 {
		b, err := json.Marshal(draft.NutritionFacts)
		if err != nil {
			return models.InventoryItem{}, fmt.Errorf("encode nutrition facts: %w", err)
		}
		nutrition = string(b)
	}

	now := s.now().UTC()
	item := models.InventoryItem{
		HouseholdID:    strings.TrimSpace(householdID),
		Name:           name,
		Category:       category,
		ExpirationDate: exp,
		Barcode:        strings.TrimSpace(draft.Barcode),
		Quantity:       int64(draft.Quantity),
		ServingSize:    draft.ServingSize,
		NutritionJSON:  nutrition,
		Source:         source,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	err = s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&item).Exec(ctx); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, item.HouseholdID, "inventory.create", "inventory_item", formatID(item.ID), nil, draft)
	})
	if err != nil {
		return models.InventoryItem{}, fmt.Errorf("create inventory item: %w", err)
	}
	return item, nil
}

// RecordUploadRun stores the outcome of one bulk upload.
func (s *Store) RecordUploadRun(ctx context.Context, run models.UploadRun) error {
	if run.CreatedAt.IsZero() {
		run.CreatedAt = s.now().UTC()
	}
	err := s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(&run).Exec(ctx); err != nil {
			return err
		}
		return s.audit.Write(ctx, tx, run.HouseholdID, "upload.record", "upload_run", formatID(run.ID), nil, map[string]any{
			"file":      run.FileName,
			"total":     run.Total,
			"succeeded": run.Succeeded,
		})
	})
	if err != nil {
		return fmt.Errorf("record upload run: %w", err)
	}
	return nil
}

// ListItems returns a household's items, soonest expiry first.
func (s *Store) ListItems(ctx context.Context, householdID string) ([]models.InventoryItem, error) {
	items := make([]models.InventoryItem, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&items).
			Where("household_id = ?", householdID).
			OrderExpr("expiration_date ASC, id ASC").
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list inventory items: %w", err)
	}
	return items, nil
}

// LoadItem returns sql.ErrNoRows when the item does not belong to the household.
func (s *Store) LoadItem(ctx context.Context, householdID string, id int64) (models.InventoryItem, error) {
	var item models.InventoryItem
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&item).
			Where("id = ?", id).
			Where("household_id = ?", householdID).
			Limit(1).
			Scan(ctx)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return models.InventoryItem{}, sql.ErrNoRows
	}
	if err != nil {
		return models.InventoryItem{}, fmt.Errorf("load inventory item: %w", err)
	}
	return item, nil
}

// UploadRuns returns the most recent upload runs for a household.
func (s *Store) UploadRuns(ctx context.Context, householdID string, limit int) ([]models.UploadRun, error) {
	if limit <= 0 {
		limit = 10
	}
	runs := make([]models.UploadRun, 0)
	err := s.db.WithReadTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return tx.NewSelect().
			Model(&runs).
			Where("household_id = ?", householdID).
			OrderExpr("id DESC").
			Limit(limit).
			Scan(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("list upload runs: %w", err)
	}
	return runs, nil
}
