package additem

import (
	"context"

	"fridge/infrastructure/scanner"
	"fridge/models"
)

// Visibility selects the single add-item surface on screen.
type Visibility string

const (
	VisibilityNone        Visibility = "none"
	VisibilityScanning    Visibility = "scanning"
	VisibilityManualEntry Visibility = "manual_entry"
	VisibilityBulkUpload  Visibility = "bulk_upload"
)

// ScanSession tracks one scanner opening. It owns the stream handle.
type ScanSession struct {
	ID              string
	Active          bool
	DeviceID        string
	LastDecodedCode string

	handle scanner.StreamHandle
	ctx    context.Context
}

type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeSuccess NoticeLevel = "success"
	NoticeError   NoticeLevel = "error"
)

type Notice struct {
	Level NoticeLevel `json:"level"`
	Text  string      `json:"text"`
}

// BulkResult reports one upload run. FailedIndex is 1-based; zero means no failure.
type BulkResult struct {
	Total       int      `json:"total"`
	Succeeded   int      `json:"succeeded"`
	FailedIndex int      `json:"failedIndex,omitempty"`
	ItemIDs     []string `json:"itemIds,omitempty"`
	Err         error    `json:"-"`
}

// Snapshot is the externally visible workflow state.
type Snapshot struct {
	Visibility    Visibility        `json:"visibility"`
	Scanning      bool              `json:"scanning"`
	DeviceID      string            `json:"deviceId,omitempty"`
	ScannedCode   string            `json:"scannedCode,omitempty"`
	LookupPending bool              `json:"lookupPending"`
	Busy          bool              `json:"busy"`
	Draft         models.DraftItem  `json:"draft"`
	FieldErrors   map[string]string `json:"fieldErrors,omitempty"`
	LastError     string            `json:"lastError,omitempty"`
	LastUpload    *BulkResult       `json:"lastUpload,omitempty"`
}

// PageData feeds the add-item page.
type PageData struct {
	Snapshot
	Notices    []Notice
	Message    string
	Categories []string
	Accept     string
}

// Categories offered by the manual entry form. Free text is also accepted.
var Categories = []string{"vegetable", "fruit", "protein", "dairy", "other"}

// ProductLookup resolves a scanned code to a product.
type ProductLookup interface {
	LookupProductByCode(ctx context.Context, code string) (models.ProductRecord, error)
}

// InventoryCreator persists one inventory item and returns its id.
type InventoryCreator interface {
	CreateInventoryItem(ctx context.Context, draft models.DraftItem) (string, error)
}

// MediaParser extracts draft items from an image or video.
type MediaParser interface {
	ParseMediaFile(ctx context.Context, file models.MediaFile) ([]models.DraftItem, error)
}

// MediaArchive keeps a copy of uploaded media and returns its storage key.
type MediaArchive interface {
	ArchiveMedia(ctx context.Context, householdID string, file models.MediaFile) (string, error)
}

// UploadRecorder stores the outcome of a bulk upload.
type UploadRecorder interface {
	RecordUploadRun(ctx context.Context, run models.UploadRun) error
}
