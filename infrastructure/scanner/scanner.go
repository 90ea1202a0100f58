package scanner

import (
	"context"
	"errors"
)

var (
	// ErrNoCode is reported for a frame that holds no recognizable barcode.
	ErrNoCode = errors.New("no barcode in frame")
	// ErrStreamEnded is reported once when the camera stream stops delivering frames.
	ErrStreamEnded = errors.New("video stream ended")
	// ErrNoActiveStream is returned when frames arrive without a running decode loop.
	ErrNoActiveStream = errors.New("no active decode stream")
	// ErrUnknownDevice is returned when decoding is requested for a device that was never reported.
	ErrUnknownDevice = errors.New("unknown video device")
	// ErrDevicesNotReported is returned by ListVideoDevices before the browser reported anything.
	ErrDevicesNotReported = errors.New("video devices not reported")
)

// DeviceDescriptor identifies one video input.
type DeviceDescriptor struct {
	DeviceID string `json:"deviceId"`
	Label    string `json:"label"`
}

// DeviceEnumerator lists the video inputs available to a household.
type DeviceEnumerator interface {
	ListVideoDevices(ctx context.Context) ([]DeviceDescriptor, error)
}

// ResultFunc receives one decode result. Exactly one of code or err is set.
type ResultFunc func(code string, err error)

// StreamHandle owns a running decode loop. Release is idempotent and never blocks on the loop.
type StreamHandle interface {
	Release()
}

// Decoder starts a decode loop on a device.
type Decoder interface {
	DecodeStream(ctx context.Context, deviceID string, onResult ResultFunc) (StreamHandle, error)
}

// FrameReader extracts a barcode from one encoded camera frame.
type FrameReader interface {
	DecodeBytes(data []byte) (string, error)
}
