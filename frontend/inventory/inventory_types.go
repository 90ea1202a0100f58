package inventory

import (
	"encoding/json"
	"strconv"
	"time"

	"fridge/infrastructure/labels"
	"fridge/models"
)

const dateLayout = "2006-01-02"

// Item sources recorded on each row.
const (
	SourceApp = "app"
	SourceAPI = "api"
)

// ItemView is an inventory row prepared for pages and the JSON API.
type ItemView struct {
	ID             int64                 `json:"id"`
	Name           string                `json:"name"`
	Category       string                `json:"type"`
	ExpirationDate string                `json:"expirationDate"`
	Barcode        string                `json:"barcode,omitempty"`
	Quantity       int64                 `json:"servingCount"`
	ServingSize    float64               `json:"servingSize,omitempty"`
	NutritionFacts []models.NutrientFact `json:"nutritionFacts,omitempty"`
	Source         string                `json:"source"`
	DaysLeft       int                   `json:"daysLeft"`
	Expired        bool                  `json:"expired"`
	AddedAt        time.Time             `json:"addedAt"`
}

// FridgePageData is rendered by FridgePage.
type FridgePageData struct {
	Items   []ItemView
	Message string
	Status  string
}

func toItemView(item models.InventoryItem, today time.Time) ItemView {
	exp := item.ExpirationDate
	days := int(dateOnly(exp).Sub(dateOnly(today)).Hours() / 24)
	view := ItemView{
		ID:             item.ID,
		Name:           item.Name,
		Category:       item.Category,
		ExpirationDate: exp.Format(dateLayout),
		Barcode:        item.Barcode,
		Quantity:       item.Quantity,
		ServingSize:    item.ServingSize,
		Source:         item.Source,
		DaysLeft:       days,
		Expired:        days < 0,
		AddedAt:        item.CreatedAt,
	}
	if item.NutritionJSON != "" {
		_ = json.Unmarshal([]byte(item.NutritionJSON), &view.NutritionFacts)
	}
	return view
}

func toLabel(item models.InventoryItem) labels.ItemLabel {
	return labels.ItemLabel{
		ItemID:         item.ID,
		Name:           item.Name,
		Category:       item.Category,
		Barcode:        item.Barcode,
		ExpirationDate: item.ExpirationDate,
		Quantity:       item.Quantity,
		AddedAt:        item.CreatedAt,
	}
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
