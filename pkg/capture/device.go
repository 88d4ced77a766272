package capture

import (
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
)

// Acquisition errors. Each maps to a user-visible status; none is fatal.
var (
	ErrPermissionDenied = errors.New("capture: permission denied")
	ErrDeviceNotFound   = errors.New("capture: device not found")
	ErrDeviceBusy       = errors.New("capture: device busy")
	ErrDeviceClosed     = errors.New("capture: device closed")
	ErrDeviceNotReady   = errors.New("capture: device did not become ready")
)

// DeviceError wraps an error with the device source and operation.
type DeviceError struct {
	Source string
	Op     string
	Err    error
}

// Error returns the error message with device context.
func (e *DeviceError) Error() string {
	return fmt.Sprintf("capture: %s %s: %v", e.Op, e.Source, e.Err)
}

// Unwrap returns the underlying error for errors.Is/As.
func (e *DeviceError) Unwrap() error {
	return e.Err
}

// Device is an acquired capture source.
type Device interface {
	// Source returns the source string the device was opened with.
	Source() string

	// Ready is closed once the device has finished starting up.
	Ready() <-chan struct{}

	// Err reports why the device cannot deliver frames. It is only
	// meaningful after Ready is closed; nil means the device is usable.
	Err() error

	// Frame returns the current frame. The returned image must not be
	// modified by the caller.
	Frame() (image.Image, error)

	// Close releases the device. Calling Close more than once is a no-op.
	Close() error
}

// Opener acquires a device. The frame streamer receives one so tests can
// substitute fakes.
type Opener func(source string) (Device, error)

var (
	heldMu sync.Mutex
	held   = make(map[string]bool)
)

func acquire(source string) error {
	heldMu.Lock()
	defer heldMu.Unlock()
	if held[source] {
		return ErrDeviceBusy
	}
	held[source] = true
	return nil
}

func release(source string) {
	heldMu.Lock()
	delete(held, source)
	heldMu.Unlock()
}

// Open acquires the capture source named by source.
func Open(source string) (Device, error) {
	if source == "" {
		source = "synthetic"
	}
	if err := acquire(source); err != nil {
		return nil, &DeviceError{Source: source, Op: "open", Err: err}
	}

	var (
		dev Device
		err error
	)
	switch {
	case source == "synthetic":
		dev = newSynthetic(source, 640, 480)
	case strings.HasPrefix(source, "dir:"):
		dev, err = openDir(source, strings.TrimPrefix(source, "dir:"))
	case source == "none":
		err = ErrDeviceNotFound
	default:
		err = ErrDeviceNotFound
	}
	if err != nil {
		release(source)
		return nil, &DeviceError{Source: source, Op: "open", Err: err}
	}
	return dev, nil
}
