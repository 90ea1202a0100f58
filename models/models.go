package models

import (
	"time"

	"github.com/uptrace/bun"
)

// NutrientFact is one nutrient row as reported by the product lookup service.
type NutrientFact struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

// DraftItem is an unpersisted inventory entry. It is passed by value between flows.
type DraftItem struct {
	Name           string         `json:"name"`
	Category       string         `json:"type"`
	ExpirationDate string         `json:"expirationDate"`
	Barcode        string         `json:"barcode,omitempty"`
	Quantity       int            `json:"servingCount"`
	ServingSize    float64        `json:"servingSize,omitempty"`
	NutritionFacts []NutrientFact `json:"nutritionFacts,omitempty"`
}

// ProductRecord is the first food returned for a barcode lookup.
type ProductRecord struct {
	Description   string         `json:"description"`
	FoodCategory  string         `json:"foodCategory"`
	GTINUPC       string         `json:"gtinUpc"`
	BrandOwner    string         `json:"brandOwner"`
	FoodNutrients []NutrientFact `json:"foodNutrients"`
}

// MediaFile is one uploaded image or video handed to the media parser.
type MediaFile struct {
	Name     string
	MIMEType string
	Data     []byte
}

// Household is the anonymous browser session an inventory belongs to.
type Household struct {
	bun.BaseModel `bun:"table:households,alias:h"`

	ID         string    `bun:"id,pk"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
	LastSeenAt time.Time `bun:"last_seen_at,notnull,default:current_timestamp"`
}

// InventoryItem is a persisted fridge entry.
type InventoryItem struct {
	bun.BaseModel `bun:"table:inventory_items,alias:ii"`

	ID             int64     `bun:"id,pk,autoincrement"`
	HouseholdID    string    `bun:"household_id,nullzero"`
	Name           string    `bun:"name,notnull"`
	Category       string    `bun:"category,notnull"`
	ExpirationDate time.Time `bun:"expiration_date,notnull"`
	Barcode        string    `bun:"barcode"`
	Quantity       int64     `bun:"quantity,notnull"`
	ServingSize    float64   `bun:"serving_size"`
	NutritionJSON  string    `bun:"nutrition_json"`
	Source         string    `bun:"source,notnull"`
	CreatedAt      time.Time `bun:"created_at,notnull,default:current_timestamp"`
	UpdatedAt      time.Time `bun:"updated_at,notnull,default:current_timestamp"`
}

// UploadRun records the outcome of one bulk media upload.
type UploadRun struct {
	bun.BaseModel `bun:"table:upload_runs,alias:ur"`

	ID          int64     `bun:"id,pk,autoincrement"`
	HouseholdID string    `bun:"household_id,nullzero"`
	FileName    string    `bun:"file_name,notnull"`
	MIMEType    string    `bun:"mime_type,notnull"`
	ArchiveKey  string    `bun:"archive_key"`
	Total       int64     `bun:"total_count,notnull"`
	Succeeded   int64     `bun:"succeeded_count,notnull"`
	ErrorText   string    `bun:"error_text"`
	CreatedAt   time.Time `bun:"created_at,notnull,default:current_timestamp"`
}

// AuditLog captures immutable change history for key operations.
type AuditLog struct {
	bun.BaseModel `bun:"table:audit_logs,alias:al"`

	ID         int64     `bun:"id,pk,autoincrement"`
	Actor      string    `bun:"actor,notnull"`
	Action     string    `bun:"action,notnull"`
	EntityType string    `bun:"entity_type,notnull"`
	EntityID   string    `bun:"entity_id,notnull"`
	BeforeJSON string    `bun:"before_json"`
	AfterJSON  string    `bun:"after_json"`
	CreatedAt  time.Time `bun:"created_at,notnull,default:current_timestamp"`
}
