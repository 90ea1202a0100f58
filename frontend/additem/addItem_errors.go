package additem

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
)

// ErrorKind classifies workflow failures.
type ErrorKind string

const (
	KindNoCamera        ErrorKind = "no_camera"
	KindDeviceAccess    ErrorKind = "device_access"
	KindDecodeTransient ErrorKind = "decode_transient"
	KindLookup          ErrorKind = "lookup"
	KindParse           ErrorKind = "parse"
	KindSubmission      ErrorKind = "submission"
	KindTimeout         ErrorKind = "timeout"
	KindBusy            ErrorKind = "busy"
)

// FlowError is a workflow failure of a given kind raised by operation Op.
type FlowError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *FlowError) Error() string {
	var b strings.Builder
	if e.Op != "" {
		b.WriteString(e.Op)
		b.WriteString(": ")
	}
	b.WriteString(string(e.Kind))
	if e.Err != nil {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

// Is matches any FlowError of the same kind, so errors.Is(err, ErrTimeout) works
// regardless of the operation that failed.
func (e *FlowError) Is(target error) bool {
	t, ok := target.(*FlowError)
	return ok && t.Kind == e.Kind
}

var (
	ErrNoCamera        = &FlowError{Kind: KindNoCamera}
	ErrDeviceAccess    = &FlowError{Kind: KindDeviceAccess}
	ErrDecodeTransient = &FlowError{Kind: KindDecodeTransient}
	ErrLookup          = &FlowError{Kind: KindLookup}
	ErrParse           = &FlowError{Kind: KindParse}
	ErrSubmission      = &FlowError{Kind: KindSubmission}
	ErrTimeout         = &FlowError{Kind: KindTimeout}
	ErrBusy            = &FlowError{Kind: KindBusy}
)

func newFlowError(kind ErrorKind, op string, err error) *FlowError {
	return &FlowError{Kind: kind, Op: op, Err: err}
}

// classify wraps err from an external call. Deadline overruns become timeouts.
func classify(kind ErrorKind, op string, err error) error {
	if err == nil {
		return nil
	}
	var fe *FlowError
	if errors.As(err, &fe) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return newFlowError(KindTimeout, op, err)
	}
	return newFlowError(kind, op, err)
}

// ValidationError lists field problems keyed by form field name.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, e.Fields[k]))
	}
	return "invalid item: " + strings.Join(parts, "; ")
}
