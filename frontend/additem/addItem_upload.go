package additem

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"fridge/models"
)

const msgParseFailed = "Error parsing image/video. Please try again."

var errParserUnavailable = errors.New("media parsing is not configured")

// OpenUpload shows the bulk upload surface.
func (w *Workflow) OpenUpload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visibility == VisibilityBulkUpload {
		return
	}
	w.closeSurfacesLocked()
	w.visibility = VisibilityBulkUpload
}

// CloseUpload hides the bulk upload surface.
func (w *Workflow) CloseUpload() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visibility == VisibilityBulkUpload {
		w.visibility = VisibilityNone
	}
}

// Upload parses file into drafts and submits them one at a time in order.
// Submission stops at the first failure; the result reports how many succeeded.
func (w *Workflow) Upload(ctx context.Context, file models.MediaFile) (BulkResult, error) {
	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return BulkResult{}, newFlowError(KindBusy, "upload", nil)
	}
	w.busy = true
	w.closeScanLocked()
	w.visibility = VisibilityBulkUpload
	w.mu.Unlock()

	archiveKey := w.archive(ctx, file)

	items, err := w.parse(ctx, file)
	if err != nil {
		err = classify(KindParse, "parse media", err)
		result := BulkResult{Err: err}
		w.record(ctx, file, archiveKey, result)

		w.mu.Lock()
		defer w.mu.Unlock()
		w.busy = false
		w.lastUpload = &result
		w.failLocked(err, msgParseFailed)
		return result, err
	}

	result := BulkResult{Total: len(items)}
	for i, item := range items {
		id, err := w.deps.Submitter.SubmitItem(ctx, item)
		if err != nil {
			result.FailedIndex = i + 1
			result.Err = err
			break
		}
		result.Succeeded++
		result.ItemIDs = append(result.ItemIDs, id)
	}
	w.record(ctx, file, archiveKey, result)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	w.lastUpload = &result
	if result.Err != nil {
		w.failLocked(result.Err, fmt.Sprintf("Added %d of %d items before item %d failed", result.Succeeded, result.Total, result.FailedIndex))
		return result, result.Err
	}
	w.lastErr = nil
	w.noticeLocked(NoticeSuccess, fmt.Sprintf("Successfully added %d items to your fridge!", result.Total))
	if w.visibility == VisibilityBulkUpload {
		w.visibility = VisibilityNone
	}
	slog.Info("bulk upload complete", slog.String("household_id", w.householdID), slog.Int("items", result.Total))
	return result, nil
}

func (w *Workflow) archive(ctx context.Context, file models.MediaFile) string {
	if w.deps.Archive == nil {
		return ""
	}
	key, err := w.deps.Archive.ArchiveMedia(ctx, w.householdID, file)
	if err != nil {
		slog.Warn("archive upload failed", slog.String("household_id", w.householdID), slog.String("file", file.Name), slog.Any("err", err))
		return ""
	}
	return key
}

func (w *Workflow) record(ctx context.Context, file models.MediaFile, archiveKey string, result BulkResult) {
	if w.deps.Recorder == nil {
		return
	}
	run := models.UploadRun{
		HouseholdID: w.householdID,
		FileName:    file.Name,
		MIMEType:    file.MIMEType,
		ArchiveKey:  archiveKey,
		Total:       int64(result.Total),
		Succeeded:   int64(result.Succeeded),
	}
	if result.Err != nil {
		run.ErrorText = result.Err.Error()
	}
	if err := w.deps.Recorder.RecordUploadRun(ctx, run); err != nil {
		slog.Error("record upload run failed", slog.String("household_id", w.householdID), slog.Any("err", err))
	}
}

func (w *Workflow) parse(ctx context.Context, file models.MediaFile) ([]models.DraftItem, error) {
	if w.deps.Parser == nil {
		return nil, errParserUnavailable
	}
	ctx, cancel := context.WithTimeout(ctx, w.deps.CallTimeout)
	defer cancel()
	return w.deps.Parser.ParseMediaFile(ctx, file)
}
