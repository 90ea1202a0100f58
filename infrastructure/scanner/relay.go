package scanner

import (
	"context"
	"log/slog"
	"sync"
)

// Relay turns frames pushed by a browser camera into a decode stream.
// One Relay serves one household; at most one stream is active at a time.
type Relay struct {
	reader FrameReader

	mu        sync.Mutex
	devices   []DeviceDescriptor
	reported  bool
	accessErr error
	active    *relayStream
}

func NewRelay(reader FrameReader) *Relay {
	return &Relay{reader: reader}
}

// ReportDevices records the browser's device enumeration. A non-nil accessErr
// means the browser could not enumerate (permission denied, insecure origin).
func (r *Relay) ReportDevices(devices []DeviceDescriptor, accessErr error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = append([]DeviceDescriptor(nil), devices...)
	r.accessErr = accessErr
	r.reported = true
}

func (r *Relay) ListVideoDevices(_ context.Context) ([]DeviceDescriptor, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.accessErr != nil {
		return nil, r.accessErr
	}
	if !r.reported {
		return nil, ErrDevicesNotReported
	}
	return append([]DeviceDescriptor(nil), r.devices...), nil
}

func (r *Relay) DecodeStream(ctx context.Context, deviceID string, onResult ResultFunc) (StreamHandle, error) {
	r.mu.Lock()
	known := false
	for _, d := range r.devices {
		if d.DeviceID == deviceID {
			known = true
			break
		}
	}
	if !known {
		r.mu.Unlock()
		return nil, ErrUnknownDevice
	}
	previous := r.active
	loopCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	stream := &relayStream{
		relay:    r,
		deviceID: deviceID,
		frames:   make(chan []byte, 1),
		ended:    make(chan struct{}),
		cancel:   cancel,
	}
	r.active = stream
	r.mu.Unlock()

	if previous != nil {
		previous.Release()
	}
	go stream.loop(loopCtx, r.reader, onResult)
	return stream, nil
}

// PushFrame hands one frame to the active stream. Frames arriving while the
// loop is still busy with the previous one are dropped.
func (r *Relay) PushFrame(deviceID string, frame []byte) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || (deviceID != "" && r.active.deviceID != deviceID) {
		return ErrNoActiveStream
	}
	select {
	case r.active.frames <- frame:
	default:
	}
	return nil
}

// EndStream marks the active stream's video track as finished.
func (r *Relay) EndStream(deviceID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active == nil || (deviceID != "" && r.active.deviceID != deviceID) {
		return ErrNoActiveStream
	}
	r.active.endOnce.Do(func() { close(r.active.ended) })
	return nil
}

// Close releases the active stream, if any.
func (r *Relay) Close() {
	r.mu.Lock()
	active := r.active
	r.mu.Unlock()
	if active != nil {
		active.Release()
	}
}

// Streaming reports whether a decode loop is currently running.
func (r *Relay) Streaming() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.active != nil
}

type relayStream struct {
	relay    *Relay
	deviceID string
	frames   chan []byte
	ended    chan struct{}
	cancel   context.CancelFunc

	endOnce     sync.Once
	releaseOnce sync.Once
}

func (s *relayStream) Release() {
	s.releaseOnce.Do(func() {
		s.cancel()
		s.relay.mu.Lock()
		if s.relay.active == s {
			s.relay.active = nil
		}
		s.relay.mu.Unlock()
	})
}

func (s *relayStream) loop(ctx context.Context, reader FrameReader, onResult ResultFunc) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.ended:
			if ctx.Err() == nil {
				onResult("", ErrStreamEnded)
			}
			return
		case frame := <-s.frames:
			code, err := reader.DecodeBytes(frame)
			if ctx.Err() != nil {
				return
			}
			if err != nil && err != ErrNoCode {
				slog.Debug("frame decode failed", slog.String("device_id", s.deviceID), slog.Any("err", err))
			}
			onResult(code, err)
		}
	}
}

// Hub keeps one Relay per household.
type Hub struct {
	mu     sync.Mutex
	reader FrameReader
	relays map[string]*Relay
}

func NewHub(reader FrameReader) *Hub {
	return &Hub{reader: reader, relays: make(map[string]*Relay)}
}

func (h *Hub) Relay(householdID string) *Relay {
	h.mu.Lock()
	defer h.mu.Unlock()
	r, ok := h.relays[householdID]
	if !ok {
		r = NewRelay(h.reader)
		h.relays[householdID] = r
	}
	return r
}

// Remove drops the household's relay and stops its stream.
func (h *Hub) Remove(householdID string) {
	h.mu.Lock()
	r := h.relays[householdID]
	delete(h.relays, householdID)
	h.mu.Unlock()
	if r != nil {
		r.Close()
	}
}

// Len reports how many relays are held.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.relays)
}
