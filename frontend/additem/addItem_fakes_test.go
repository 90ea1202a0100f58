package additem

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	householdcontext "fridge/frontend/shared/context"
	"fridge/infrastructure/scanner"
	"fridge/models"
)

type fakeDevices struct {
	devices []scanner.DeviceDescriptor
	err     error
}

func (f fakeDevices) ListVideoDevices(context.Context) ([]scanner.DeviceDescriptor, error) {
	return f.devices, f.err
}

type countingHandle struct {
	releases atomic.Int32
}

func (h *countingHandle) Release() {
	h.releases.Add(1)
}

type fakeDecoder struct {
	mu       sync.Mutex
	err      error
	deviceID string
	onResult scanner.ResultFunc
	handles  []*countingHandle
}

func (f *fakeDecoder) DecodeStream(_ context.Context, deviceID string, onResult scanner.ResultFunc) (scanner.StreamHandle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	h := &countingHandle{}
	f.deviceID = deviceID
	f.onResult = onResult
	f.handles = append(f.handles, h)
	return h, nil
}

func (f *fakeDecoder) emit(code string, err error) {
	f.mu.Lock()
	cb := f.onResult
	f.mu.Unlock()
	cb(code, err)
}

func (f *fakeDecoder) lastHandle(t *testing.T) *countingHandle {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.handles) == 0 {
		t.Fatalf("no stream was started")
	}
	return f.handles[len(f.handles)-1]
}

type fakeLookup struct {
	product models.ProductRecord
	err     error
	wait    chan struct{}
	calls   atomic.Int32

	mu         sync.Mutex
	households []string
}

func (f *fakeLookup) LookupProductByCode(ctx context.Context, code string) (models.ProductRecord, error) {
	f.calls.Add(1)
	household, _ := householdcontext.GetHouseholdFromContext(ctx)
	f.mu.Lock()
	f.households = append(f.households, household.ID)
	f.mu.Unlock()
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return models.ProductRecord{}, ctx.Err()
		}
	}
	if f.err != nil {
		return models.ProductRecord{}, f.err
	}
	p := f.product
	p.GTINUPC = code
	return p, nil
}

func (f *fakeLookup) seenHouseholds() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.households...)
}

type fakeCreator struct {
	mu     sync.Mutex
	failAt int
	err    error
	wait   chan struct{}
	drafts []models.DraftItem
	calls  int
}

func (f *fakeCreator) CreateInventoryItem(ctx context.Context, draft models.DraftItem) (string, error) {
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failAt > 0 && f.calls == f.failAt {
		return "", f.err
	}
	if f.failAt == 0 && f.err != nil {
		return "", f.err
	}
	f.drafts = append(f.drafts, draft)
	return fmt.Sprintf("item-%d", len(f.drafts)), nil
}

func (f *fakeCreator) persisted() []models.DraftItem {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]models.DraftItem(nil), f.drafts...)
}

func (f *fakeCreator) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeParser struct {
	items []models.DraftItem
	err   error
}

func (f fakeParser) ParseMediaFile(context.Context, models.MediaFile) ([]models.DraftItem, error) {
	return f.items, f.err
}

type fakeRecorder struct {
	mu   sync.Mutex
	runs []models.UploadRun
}

func (f *fakeRecorder) RecordUploadRun(_ context.Context, run models.UploadRun) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.runs = append(f.runs, run)
	return nil
}

type fakeArchive struct {
	err error
}

func (f fakeArchive) ArchiveMedia(_ context.Context, householdID string, file models.MediaFile) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return householdID + "/" + file.Name, nil
}

type harness struct {
	wf       *Workflow
	decoder  *fakeDecoder
	lookup   *fakeLookup
	creator  *fakeCreator
	recorder *fakeRecorder
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		decoder:  &fakeDecoder{},
		lookup:   &fakeLookup{product: models.ProductRecord{Description: "Whole Milk", FoodCategory: "dairy"}},
		creator:  &fakeCreator{},
		recorder: &fakeRecorder{},
	}
	h.wf = NewWorkflow("household-1", Deps{
		Devices:     fakeDevices{devices: []scanner.DeviceDescriptor{{DeviceID: "cam-front"}, {DeviceID: "cam-back"}}},
		Decoder:     h.decoder,
		Lookup:      h.lookup,
		Submitter:   NewSubmitter(h.creator, time.Second),
		Parser:      fakeParser{},
		Recorder:    h.recorder,
		CallTimeout: time.Second,
	})
	return h
}

func (h *harness) openScanner(t *testing.T) *countingHandle {
	t.Helper()
	if err := h.wf.OpenScanner(context.Background(), ""); err != nil {
		t.Fatalf("open scanner: %v", err)
	}
	return h.decoder.lastHandle(t)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatalf("condition not met in time")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

var errRemote = errors.New("remote unavailable")
