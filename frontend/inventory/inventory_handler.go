package inventory

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"fridge/frontend/additem"
	householdcontext "fridge/frontend/shared/context"
	"fridge/frontend/shared/nav"
	"fridge/infrastructure/labels"
	"fridge/models"
)

const maxAPIBodyBytes = 1 << 20

// FridgePageQueryHandler renders the household inventory list.
func FridgePageQueryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			http.Error(w, "household required", http.StatusBadRequest)
			return
		}
		items, err := store.ListItems(r.Context(), household.ID)
		if err != nil {
			slog.Error("list inventory failed", slog.String("household_id", household.ID), slog.Any("err", err))
			http.Error(w, "failed to load inventory", http.StatusInternalServerError)
			return
		}
		data := FridgePageData{
			Items:   viewsFor(items, time.Now()),
			Message: r.URL.Query().Get("error"),
			Status:  r.URL.Query().Get("status"),
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := FridgePage(nav.BuildTopNavData(household, "/fridge"), data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render inventory", http.StatusInternalServerError)
			return
		}
	}
}

// ItemLabelPDFQueryHandler renders a printable label for one item.
func ItemLabelPDFQueryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			http.Error(w, "household required", http.StatusBadRequest)
			return
		}
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, "invalid item id", http.StatusBadRequest)
			return
		}
		item, err := store.LoadItem(r.Context(), household.ID, id)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				http.Error(w, "item not found", http.StatusNotFound)
				return
			}
			http.Error(w, "failed to load item", http.StatusInternalServerError)
			return
		}
		pdfBytes, err := labels.RenderItemLabelsPDF([]labels.ItemLabel{toLabel(item)}, time.Now())
		if err != nil {
			http.Error(w, "failed to build label pdf", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("inline; filename=item-%d-label.pdf", item.ID))
		_, _ = w.Write(pdfBytes)
	}
}

// ListItemsAPIQueryHandler returns the household inventory as JSON.
func ListItemsAPIQueryHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "household required"})
			return
		}
		items, err := store.ListItems(r.Context(), household.ID)
		if err != nil {
			slog.Error("list inventory failed", slog.String("household_id", household.ID), slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to load inventory"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"items": viewsFor(items, time.Now())})
	}
}

// CreateItemAPICommandHandler validates a JSON draft and stores it.
func CreateItemAPICommandHandler(store *Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		household, ok := householdcontext.GetHouseholdFromContext(r.Context())
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "household required"})
			return
		}
		var draft models.DraftItem
		dec := json.NewDecoder(io.LimitReader(r.Body, maxAPIBodyBytes))
		if err := dec.Decode(&draft); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json body"})
			return
		}
		if err := additem.ValidateDraft(draft); err != nil {
			var verr *additem.ValidationError
			if errors.As(err, &verr) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"errors": verr.Fields})
				return
			}
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		item, err := store.CreateItem(r.Context(), household.ID, draft, SourceAPI)
		if err != nil {
			if errors.Is(err, ErrInvalidItem) {
				writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
				return
			}
			slog.Error("create inventory item failed", slog.String("household_id", household.ID), slog.Any("err", err))
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "failed to create item"})
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"id": formatID(item.ID), "item": toItemView(item, time.Now())})
	}
}

func viewsFor(items []models.InventoryItem, now time.Time) []ItemView {
	views := make([]ItemView, 0, len(items))
	for _, item := range items {
		views = append(views, toItemView(item, now))
	}
	return views
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
