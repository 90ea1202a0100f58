package additem

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	householdcontext "fridge/frontend/shared/context"
	"fridge/frontend/shared/nav"
	"fridge/infrastructure/labels"
	"fridge/infrastructure/scanner"
	"fridge/models"
)

const (
	maxFrameBytes   = 4 << 20
	DefaultMaxBytes = 50 << 20
	acceptMedia     = "image/*,video/*"
)

func workflowFor(reg *Registry, r *http.Request) (*Workflow, models.Household) {
	household, _ := householdcontext.GetHouseholdFromContext(r.Context())
	return reg.Workflow(household.ID), household
}

// AddItemPageQueryHandler renders the add-item page for the current surface.
func AddItemPageQueryHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, household := workflowFor(reg, r)
		data := PageData{
			Snapshot:   wf.Snapshot(),
			Notices:    wf.DrainNotices(),
			Categories: Categories,
			Accept:     acceptMedia,
		}
		if msg := strings.TrimSpace(r.URL.Query().Get("error")); msg != "" {
			data.Message = msg
		}
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		if err := AddItemPage(nav.BuildTopNavData(household, "/add"), data).Render(r.Context(), w); err != nil {
			http.Error(w, "failed to render add item page", http.StatusInternalServerError)
			return
		}
	}
}

// ScanStatusQueryHandler returns the workflow snapshot as JSON.
func ScanStatusQueryHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		writeSnapshot(w, http.StatusOK, wf.Snapshot())
	}
}

// OpenScannerCommandHandler records the browser's cameras and opens the scanner.
func OpenScannerCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, household := workflowFor(reg, r)
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, "invalid form")
			return
		}
		if relay := reg.Relay(household.ID); relay != nil {
			reportDevices(relay, r)
		}
		if err := wf.OpenScanner(r.Context(), strings.TrimSpace(r.FormValue("device_id"))); err != nil {
			slog.Info("open scanner did not start", slog.String("household_id", household.ID), slog.Any("err", err))
		}
		respond(w, r, wf)
	}
}

func reportDevices(relay *scanner.Relay, r *http.Request) {
	if msg := strings.TrimSpace(r.FormValue("device_error")); msg != "" {
		relay.ReportDevices(nil, errors.New(msg))
		return
	}
	raw := strings.TrimSpace(r.FormValue("devices"))
	if raw == "" {
		return
	}
	var devices []scanner.DeviceDescriptor
	if err := json.Unmarshal([]byte(raw), &devices); err != nil {
		relay.ReportDevices(nil, errors.New("invalid device list"))
		return
	}
	relay.ReportDevices(devices, nil)
}

// StopScannerCommandHandler releases the camera but keeps the scanner open.
func StopScannerCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.StopScanner()
		respond(w, r, wf)
	}
}

func CloseScannerCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.CloseScanner()
		respond(w, r, wf)
	}
}

func ScanToManualCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.ScanToManual()
		respond(w, r, wf)
	}
}

// ScanFrameCommandHandler feeds one camera frame to the decode loop.
// The frame is the raw request body or a multipart "frame" part.
// ?ended=1 reports that the camera track stopped.
func ScanFrameCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, household := workflowFor(reg, r)
		relay := reg.Relay(household.ID)
		if relay == nil {
			http.Error(w, "scanner unavailable", http.StatusServiceUnavailable)
			return
		}
		deviceID := strings.TrimSpace(r.URL.Query().Get("device_id"))
		if r.URL.Query().Get("ended") != "" {
			_ = relay.EndStream(deviceID)
			writeSnapshot(w, http.StatusOK, wf.Snapshot())
			return
		}

		frame, err := readFrame(w, r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		status := http.StatusOK
		if err := relay.PushFrame(deviceID, frame); err != nil {
			status = http.StatusConflict
		}
		writeSnapshot(w, status, wf.Snapshot())
	}
}

func readFrame(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFrameBytes+(1<<20))
	var src io.Reader = r.Body
	if strings.HasPrefix(strings.ToLower(r.Header.Get("Content-Type")), "multipart/form-data") {
		file, _, err := r.FormFile("frame")
		if err != nil {
			return nil, errors.New("frame is required")
		}
		defer file.Close()
		src = file
	}
	data, err := io.ReadAll(io.LimitReader(src, maxFrameBytes+1))
	if err != nil {
		return nil, errors.New("failed to read frame")
	}
	if len(data) == 0 {
		return nil, errors.New("frame is required")
	}
	if len(data) > maxFrameBytes {
		return nil, errors.New("frame must be 4MB or less")
	}
	return data, nil
}

// ScannedBarcodeImageQueryHandler renders a scanned code as a Code128 PNG.
func ScannedBarcodeImageQueryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		code := strings.TrimSpace(chi.URLParam(r, "code"))
		if code == "" || len(code) > 64 {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
		png, err := labels.RenderCode128PNG(code, 480, 120)
		if err != nil {
			http.Error(w, "invalid code", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		_, _ = w.Write(png)
	}
}

func OpenManualCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.OpenManual()
		respond(w, r, wf)
	}
}

// SubmitManualCommandHandler validates and submits the manual entry form.
func SubmitManualCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, household := workflowFor(reg, r)
		if err := r.ParseForm(); err != nil {
			redirectWithError(w, r, "invalid form")
			return
		}
		draft := draftFromForm(r)
		if _, err := wf.SubmitManual(r.Context(), draft); err != nil {
			if errors.Is(err, ErrBusy) {
				redirectWithError(w, r, "an item is already being added")
				return
			}
			slog.Info("manual submit rejected", slog.String("household_id", household.ID), slog.Any("err", err))
		}
		respond(w, r, wf)
	}
}

func draftFromForm(r *http.Request) models.DraftItem {
	draft := models.DraftItem{
		Name:           strings.TrimSpace(r.FormValue("name")),
		Category:       strings.TrimSpace(r.FormValue("type")),
		ExpirationDate: strings.TrimSpace(r.FormValue("expirationDate")),
		Barcode:        strings.TrimSpace(r.FormValue("barcode")),
		Quantity:       parseFormInt(r.FormValue("servingCount")),
		ServingSize:    parseFormFloat(r.FormValue("servingSize")),
	}
	if raw := strings.TrimSpace(r.FormValue("nutritionFacts")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &draft.NutritionFacts); err != nil {
			slog.Warn("ignoring malformed nutrition facts", slog.Any("err", err))
			draft.NutritionFacts = nil
		}
	}
	return draft
}

// parseFormInt returns 0 for blank input and -1 for malformed input so the
// validator reports "required" and "at least" respectively.
func parseFormInt(raw string) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return -1
	}
	return v
}

func parseFormFloat(raw string) float64 {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return -1
	}
	return v
}

func CloseManualCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.CloseManual()
		respond(w, r, wf)
	}
}

func OpenUploadCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.OpenUpload()
		respond(w, r, wf)
	}
}

// UploadCommandHandler parses an uploaded image or video and adds its items.
func UploadCommandHandler(reg *Registry, maxBytes int64) http.HandlerFunc {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	return func(w http.ResponseWriter, r *http.Request) {
		wf, household := workflowFor(reg, r)
		file, err := parseMediaUpload(w, r, maxBytes)
		if err != nil {
			redirectWithError(w, r, err.Error())
			return
		}
		if _, err := wf.Upload(r.Context(), file); err != nil {
			if errors.Is(err, ErrBusy) {
				redirectWithError(w, r, "an upload is already in progress")
				return
			}
			slog.Info("bulk upload incomplete", slog.String("household_id", household.ID), slog.Any("err", err))
		}
		respond(w, r, wf)
	}
}

func parseMediaUpload(w http.ResponseWriter, r *http.Request, maxBytes int64) (models.MediaFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes+(1<<20))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		return models.MediaFile{}, errors.New("file must be " + formatMB(maxBytes) + " or less")
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return models.MediaFile{}, errors.New("choose an image or video to upload")
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, maxBytes+1))
	if err != nil {
		return models.MediaFile{}, errors.New("failed to read upload")
	}
	if len(data) == 0 {
		return models.MediaFile{}, errors.New("uploaded file is empty")
	}
	if int64(len(data)) > maxBytes {
		return models.MediaFile{}, errors.New("file must be " + formatMB(maxBytes) + " or less")
	}

	mimeType := strings.TrimSpace(header.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}
	if !strings.HasPrefix(mimeType, "image/") && !strings.HasPrefix(mimeType, "video/") {
		return models.MediaFile{}, errors.New("file must be an image or video")
	}

	name := strings.TrimSpace(header.Filename)
	if name == "" {
		name = "upload"
	} else {
		name = filepath.Base(name)
	}
	return models.MediaFile{Name: name, MIMEType: mimeType, Data: data}, nil
}

func formatMB(n int64) string {
	return strconv.FormatInt(n>>20, 10) + "MB"
}

func CloseUploadCommandHandler(reg *Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		wf, _ := workflowFor(reg, r)
		wf.CloseUpload()
		respond(w, r, wf)
	}
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func respond(w http.ResponseWriter, r *http.Request, wf *Workflow) {
	if wantsJSON(r) {
		writeSnapshot(w, http.StatusOK, wf.Snapshot())
		return
	}
	http.Redirect(w, r, "/add", http.StatusSeeOther)
}

func redirectWithError(w http.ResponseWriter, r *http.Request, msg string) {
	if wantsJSON(r) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
		return
	}
	http.Redirect(w, r, "/add?error="+url.QueryEscape(msg), http.StatusSeeOther)
}

func writeSnapshot(w http.ResponseWriter, status int, snap Snapshot) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(snap)
}
