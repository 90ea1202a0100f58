package inventory

import (
	"context"
	"encoding/csv"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/uptrace/bun"

	householdcontext "fridge/frontend/shared/context"
	"fridge/infrastructure/labels"
	"fridge/models"
)

func writeInventoryCSV(w io.Writer, items []models.InventoryItem, now time.Time) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	header := []string{"id", "name", "type", "expiration_date", "days_left", "serving_count", "serving_size", "barcode", "source", "added_at"}
	if err := writer.Write(header); err != nil {
		return err
	}
	for _, item := range items {
		view := toItemView(item, now)
		servingSize := ""
		if item.ServingSize > 0 {
			servingSize = strconv.FormatFloat(item.ServingSize, 'f', -1, 64)
		}
		record := []string{
			formatID(item.ID),
			item.Name,
			item.Category,
			view.ExpirationDate,
			strconv.Itoa(view.DaysLeft),
			strconv.FormatInt(item.Quantity, 10),
			servingSize,
			item.Barcode,
			item.Source,
			item.CreatedAt.UTC().Format(time.RFC3339),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// RecordExport audits one export download.
func (s *Store) RecordExport(ctx context.Context, householdID, exportType string, count int) error {
	return s.db.WithWriteTx(ctx, func(ctx context.Context, tx bun.Tx) error {
		return s.audit.Write(ctx, tx, householdID, "inventory.export", "household", householdID, nil, map[string]any{
			"type":  exportType,
			"items": count,
		})
	})
}

// ExportCSVQueryHandler downloads the household inventory as CSV.
func ExportCSVQueryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			http.Error(w, "household required", http.StatusBadRequest)
			return
		}
		items, err := store.ListItems(r.Context(), household.ID)
		if err != nil {
			http.Error(w, "failed to load inventory", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", "attachment; filename=fridge.csv")
		if err := writeInventoryCSV(w, items, time.Now()); err != nil {
			http.Error(w, "failed to export csv", http.StatusInternalServerError)
			return
		}
		if err := store.RecordExport(r.Context(), household.ID, "inventory_csv", len(items)); err != nil {
			slog.Error("record export failed", slog.String("type", "inventory_csv"), slog.Any("err", err))
		}
	}
}

// AllLabelsPDFQueryHandler renders one label page per item.
func AllLabelsPDFQueryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			http.Error(w, "household required", http.StatusBadRequest)
			return
		}
		items, err := store.ListItems(r.Context(), household.ID)
		if err != nil {
			http.Error(w, "failed to load inventory", http.StatusInternalServerError)
			return
		}
		if len(items) == 0 {
			http.Redirect(w, r, "/fridge?error=Nothing+to+print", http.StatusSeeOther)
			return
		}
		itemLabels := make([]labels.ItemLabel, 0, len(items))
		for _, item := range items {
			itemLabels = append(itemLabels, toLabel(item))
		}
		pdfBytes, err := labels.RenderItemLabelsPDF(itemLabels, time.Now())
		if err != nil {
			http.Error(w, "failed to build label pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", "inline; filename=fridge-labels.pdf")
		_, _ = w.Write(pdfBytes)
		if err := store.RecordExport(r.Context(), household.ID, "labels_pdf", len(items)); err != nil {
			slog.Error("record export failed", slog.String("type", "labels_pdf"), slog.Any("err", err))
		}
	}
}
