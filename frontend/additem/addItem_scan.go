package additem

import (
	"context"
	"errors"
	"log/slog"

	householdcontext "fridge/frontend/shared/context"
	"fridge/infrastructure/scanner"
	"fridge/models"
)

const (
	msgNoCamera      = "No camera found. Please ensure your device has a camera."
	msgDeviceAccess  = "Error accessing camera. Please check permissions."
	msgStreamEnded   = "Camera stream ended. Please try again."
	msgLookupFailed  = "Error scanning barcode. Please try again."
	msgLookupTimeout = "Product lookup timed out. Please fill in the details."
	defaultCategory  = "other"
)

// OpenScanner closes any other surface, shows the scanner, and acquires a camera.
// preferredDeviceID is used when listed, otherwise the first device is chosen.
// Acquisition failures return the surface to none and are queued as notices.
func (w *Workflow) OpenScanner(ctx context.Context, preferredDeviceID string) error {
	w.mu.Lock()
	w.closeSurfacesLocked()
	session := &ScanSession{ID: newSessionID(), ctx: w.detachedContext(ctx)}
	w.session = session
	w.scannedCode = ""
	w.lastErr = nil
	w.visibility = VisibilityScanning
	w.mu.Unlock()

	deviceID, err := w.acquireDevice(ctx, session.ID, preferredDeviceID)
	if err != nil || deviceID == "" {
		return err
	}
	return w.startDecoding(ctx, session.ID, deviceID)
}

func (w *Workflow) acquireDevice(ctx context.Context, sessionID, preferredDeviceID string) (string, error) {
	devices, err := w.deps.Devices.ListVideoDevices(ctx)
	if err == nil && len(devices) == 0 {
		err = newFlowError(KindNoCamera, "open scanner", nil)
	} else if err != nil {
		err = newFlowError(KindDeviceAccess, "open scanner", err)
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.sessionCurrentLocked(sessionID) {
		return "", nil
	}
	if err != nil {
		w.session = nil
		w.visibility = VisibilityNone
		if errors.Is(err, ErrNoCamera) {
			w.failLocked(err, msgNoCamera)
		} else {
			w.failLocked(err, msgDeviceAccess)
		}
		return "", err
	}

	deviceID := devices[0].DeviceID
	for _, d := range devices {
		if preferredDeviceID != "" && d.DeviceID == preferredDeviceID {
			deviceID = d.DeviceID
			break
		}
	}
	w.session.DeviceID = deviceID
	return deviceID, nil
}

func (w *Workflow) startDecoding(ctx context.Context, sessionID, deviceID string) error {
	handle, err := w.deps.Decoder.DecodeStream(ctx, deviceID, func(code string, err error) {
		w.onDecodeResult(sessionID, code, err)
	})

	w.mu.Lock()
	defer w.mu.Unlock()
	if err != nil {
		if w.sessionCurrentLocked(sessionID) {
			w.session = nil
			w.visibility = VisibilityNone
			ferr := newFlowError(KindDeviceAccess, "start decoding", err)
			w.failLocked(ferr, msgDeviceAccess)
			return ferr
		}
		return nil
	}
	// The session may have been closed or already decoded while the stream started.
	if !w.sessionCurrentLocked(sessionID) || w.session.LastDecodedCode != "" {
		handle.Release()
		return nil
	}
	w.session.handle = handle
	w.session.Active = true
	slog.Info("scanner started", slog.String("household_id", w.householdID), slog.String("device_id", deviceID))
	return nil
}

func (w *Workflow) sessionCurrentLocked(sessionID string) bool {
	return w.session != nil && w.session.ID == sessionID && w.visibility == VisibilityScanning
}

// decodeOutcome maps a stream result onto the workflow's error kinds. A track
// that ended loses device access; every other frame failure is transient.
func decodeOutcome(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, scanner.ErrStreamEnded):
		return newFlowError(KindDeviceAccess, "decode", err)
	default:
		return newFlowError(KindDecodeTransient, "decode", err)
	}
}

func (w *Workflow) onDecodeResult(sessionID, code string, err error) {
	err = decodeOutcome(err)
	switch {
	case err == nil && code != "":
		w.mu.Lock()
		if !w.sessionCurrentLocked(sessionID) || w.session.LastDecodedCode != "" {
			w.mu.Unlock()
			return
		}
		w.session.LastDecodedCode = code
		w.scannedCode = code
		w.releaseLocked()
		w.lookupPending = true
		base := w.session.ctx
		w.mu.Unlock()
		slog.Info("barcode decoded", slog.String("household_id", w.householdID), slog.String("code", code))
		w.handleDecodedCode(base, sessionID, code)
	case err == nil:
	case errors.Is(err, ErrDecodeTransient):
		if !errors.Is(err, scanner.ErrNoCode) {
			slog.Debug("frame decode error", slog.String("household_id", w.householdID), slog.Any("err", err))
		}
	case errors.Is(err, ErrDeviceAccess):
		w.mu.Lock()
		defer w.mu.Unlock()
		if !w.sessionCurrentLocked(sessionID) || w.session.LastDecodedCode != "" {
			return
		}
		w.releaseLocked()
		w.session = nil
		w.visibility = VisibilityNone
		w.failLocked(err, msgStreamEnded)
	}
}

// handleDecodedCode looks the code up and moves to manual entry with a pre-filled
// draft. If the user left the scan surface during the lookup the result is dropped.
func (w *Workflow) handleDecodedCode(base context.Context, sessionID, code string) {
	ctx, cancel := context.WithTimeout(base, w.deps.CallTimeout)
	product, err := w.deps.Lookup.LookupProductByCode(ctx, code)
	cancel()
	err = classify(KindLookup, "lookup product", err)

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.session == nil || w.session.ID != sessionID || w.visibility != VisibilityScanning {
		slog.Info("lookup result dropped", slog.String("household_id", w.householdID), slog.String("code", code))
		return
	}
	w.lookupPending = false
	w.session = nil
	w.fieldErrors = nil
	w.visibility = VisibilityManualEntry
	if err != nil {
		w.draft = models.DraftItem{Barcode: code}
		if errors.Is(err, ErrTimeout) {
			w.failLocked(err, msgLookupTimeout)
		} else {
			w.failLocked(err, msgLookupFailed)
		}
		return
	}
	w.draft = draftFromProduct(code, product)
}

// detachedContext keeps ctx values, the household among them, for work that
// outlives the request that opened the scanner.
func (w *Workflow) detachedContext(ctx context.Context) context.Context {
	ctx = context.WithoutCancel(ctx)
	if _, ok := householdcontext.GetHouseholdFromContext(ctx); !ok {
		ctx = householdcontext.NewContextWithHousehold(ctx, models.Household{ID: w.householdID})
	}
	return ctx
}

func draftFromProduct(code string, product models.ProductRecord) models.DraftItem {
	category := product.FoodCategory
	if category == "" {
		category = defaultCategory
	}
	return models.DraftItem{
		Name:           product.Description,
		Category:       category,
		Barcode:        code,
		NutritionFacts: append([]models.NutrientFact(nil), product.FoodNutrients...),
	}
}

// StopScanner releases the camera but keeps the scan surface open.
func (w *Workflow) StopScanner() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.releaseLocked()
}

// CloseScanner releases the camera and hides the scan surface.
func (w *Workflow) CloseScanner() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visibility != VisibilityScanning {
		return
	}
	w.closeSurfacesLocked()
}

// ScanToManual abandons scanning for a blank manual entry form.
func (w *Workflow) ScanToManual() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeSurfacesLocked()
	w.draft = models.DraftItem{}
	w.visibility = VisibilityManualEntry
}

// closeScanLocked leaves the scan surface if it is the one open.
func (w *Workflow) closeScanLocked() {
	if w.visibility == VisibilityScanning {
		w.closeSurfacesLocked()
	}
}
