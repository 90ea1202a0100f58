package additem

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"fridge/infrastructure/scanner"
	"fridge/models"
)

const (
	msgItemAdded     = "Item added to fridge successfully!"
	msgAddItemFailed = "Error adding item. Please try again."
)

// Deps are the collaborators of one workflow. Archive and Recorder are optional.
type Deps struct {
	Devices     scanner.DeviceEnumerator
	Decoder     scanner.Decoder
	Lookup      ProductLookup
	Submitter   *Submitter
	Parser      MediaParser
	Archive     MediaArchive
	Recorder    UploadRecorder
	CallTimeout time.Duration
}

// Workflow coordinates the scan, manual entry, and bulk upload surfaces of one household.
// Only one surface is visible at a time and the draft slot is shared between them.
type Workflow struct {
	householdID string
	deps        Deps

	mu            sync.Mutex
	visibility    Visibility
	session       *ScanSession
	scannedCode   string
	lookupPending bool
	draft         models.DraftItem
	fieldErrors   map[string]string
	lastErr       error
	lastUpload    *BulkResult
	busy          bool
	notices       []Notice
}

func NewWorkflow(householdID string, deps Deps) *Workflow {
	if deps.CallTimeout <= 0 {
		deps.CallTimeout = DefaultCallTimeout
	}
	return &Workflow{
		householdID: householdID,
		deps:        deps,
		visibility:  VisibilityNone,
	}
}

func (w *Workflow) HouseholdID() string {
	return w.householdID
}

// Snapshot returns a copy of the current state.
func (w *Workflow) Snapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	snap := Snapshot{
		Visibility:    w.visibility,
		ScannedCode:   w.scannedCode,
		LookupPending: w.lookupPending,
		Busy:          w.busy,
		Draft:         w.draft,
	}
	if w.session != nil {
		snap.Scanning = w.session.Active
		snap.DeviceID = w.session.DeviceID
	}
	if len(w.draft.NutritionFacts) > 0 {
		snap.Draft.NutritionFacts = append([]models.NutrientFact(nil), w.draft.NutritionFacts...)
	}
	if len(w.fieldErrors) > 0 {
		snap.FieldErrors = make(map[string]string, len(w.fieldErrors))
		for k, v := range w.fieldErrors {
			snap.FieldErrors[k] = v
		}
	}
	if w.lastErr != nil {
		snap.LastError = w.lastErr.Error()
	}
	if w.lastUpload != nil {
		res := *w.lastUpload
		snap.LastUpload = &res
	}
	return snap
}

// LastError returns the most recent flow error, if any.
func (w *Workflow) LastError() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

// DrainNotices returns and clears queued notices.
func (w *Workflow) DrainNotices() []Notice {
	w.mu.Lock()
	defer w.mu.Unlock()
	out := w.notices
	w.notices = nil
	return out
}

func (w *Workflow) noticeLocked(level NoticeLevel, text string) {
	w.notices = append(w.notices, Notice{Level: level, Text: text})
}

func (w *Workflow) failLocked(err error, text string) {
	w.lastErr = err
	w.noticeLocked(NoticeError, text)
	slog.Warn("add item flow failed", slog.String("household_id", w.householdID), slog.Any("err", err))
}

// releaseLocked releases the scan device, if held. The handle is cleared first so
// no path can release it twice.
func (w *Workflow) releaseLocked() {
	if w.session == nil {
		return
	}
	h := w.session.handle
	w.session.handle = nil
	w.session.Active = false
	if h != nil {
		h.Release()
	}
}

// closeSurfacesLocked leaves whatever surface is open.
func (w *Workflow) closeSurfacesLocked() {
	w.releaseLocked()
	w.session = nil
	w.lookupPending = false
	w.fieldErrors = nil
	w.visibility = VisibilityNone
}

func (w *Workflow) isBusy() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.busy
}

// shutdown releases the camera and closes every surface.
func (w *Workflow) shutdown() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.closeSurfacesLocked()
}

// OpenManual shows the manual entry surface with a blank draft. An already open
// manual surface keeps its draft.
func (w *Workflow) OpenManual() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visibility == VisibilityManualEntry {
		return
	}
	w.closeSurfacesLocked()
	w.draft = models.DraftItem{}
	w.visibility = VisibilityManualEntry
}

// CloseManual hides the manual entry surface and discards the draft.
func (w *Workflow) CloseManual() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.visibility != VisibilityManualEntry {
		return
	}
	w.visibility = VisibilityNone
	w.draft = models.DraftItem{}
	w.fieldErrors = nil
}

// SubmitManual validates the draft and, when valid, submits it once.
func (w *Workflow) SubmitManual(ctx context.Context, draft models.DraftItem) (string, error) {
	draft = normalizeDraft(draft)

	w.mu.Lock()
	if w.busy {
		w.mu.Unlock()
		return "", newFlowError(KindBusy, "submit manual", nil)
	}
	w.closeScanLocked()
	w.visibility = VisibilityManualEntry
	w.draft = draft
	if err := ValidateDraft(draft); err != nil {
		var verr *ValidationError
		if errors.As(err, &verr) {
			w.fieldErrors = verr.Fields
		}
		w.lastErr = err
		w.mu.Unlock()
		return "", err
	}
	w.fieldErrors = nil
	w.busy = true
	w.mu.Unlock()

	id, err := w.deps.Submitter.SubmitItem(ctx, draft)

	w.mu.Lock()
	defer w.mu.Unlock()
	w.busy = false
	if err != nil {
		w.failLocked(err, msgAddItemFailed)
		return "", err
	}
	w.lastErr = nil
	w.noticeLocked(NoticeSuccess, msgItemAdded)
	if w.visibility == VisibilityManualEntry {
		w.visibility = VisibilityNone
	}
	w.draft = models.DraftItem{}
	slog.Info("inventory item submitted", slog.String("household_id", w.householdID), slog.String("item_id", id))
	return id, nil
}

// Registry keeps one workflow per household. Workflows not asked for within an
// idle TTL are dropped by EvictIdle.
type Registry struct {
	mu        sync.Mutex
	deps      Deps
	hub       *scanner.Hub
	workflows map[string]*Workflow
	lastSeen  map[string]time.Time
	now       func() time.Time
}

// NewRegistry builds workflows from deps. When hub is set, each household gets
// its own relay as device enumerator and decoder.
func NewRegistry(deps Deps, hub *scanner.Hub) *Registry {
	return &Registry{
		deps:      deps,
		hub:       hub,
		workflows: make(map[string]*Workflow),
		lastSeen:  make(map[string]time.Time),
		now:       time.Now,
	}
}

func (r *Registry) Workflow(householdID string) *Workflow {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.lastSeen[householdID] = r.now()
	if wf, ok := r.workflows[householdID]; ok {
		return wf
	}
	deps := r.deps
	if r.hub != nil {
		relay := r.hub.Relay(householdID)
		deps.Devices = relay
		deps.Decoder = relay
	}
	wf := NewWorkflow(householdID, deps)
	r.workflows[householdID] = wf
	return wf
}

// Len reports how many workflows are held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.workflows)
}

// EvictIdle drops workflows last asked for more than ttl ago, releasing any
// camera stream they hold together with the household's relay. Busy workflows
// are kept until their submission finishes.
func (r *Registry) EvictIdle(ttl time.Duration) int {
	cutoff := r.now().Add(-ttl)

	r.mu.Lock()
	var idle []*Workflow
	for id, wf := range r.workflows {
		if r.lastSeen[id].After(cutoff) || wf.isBusy() {
			continue
		}
		idle = append(idle, wf)
		delete(r.workflows, id)
		delete(r.lastSeen, id)
		// Under the lock so a concurrent Workflow call gets a fresh relay.
		if r.hub != nil {
			r.hub.Remove(id)
		}
	}
	r.mu.Unlock()

	for _, wf := range idle {
		wf.shutdown()
		slog.Debug("idle workflow evicted", slog.String("household_id", wf.householdID))
	}
	return len(idle)
}

// Relay returns the household's frame relay, or nil without a hub.
func (r *Registry) Relay(householdID string) *scanner.Relay {
	if r.hub == nil {
		return nil
	}
	return r.hub.Relay(householdID)
}

func newSessionID() string {
	return uuid.NewString()
}
