package capture

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceClosed is wrapped by Capture after Close.
	ErrSourceClosed = errors.New("frame source closed")
	// ErrCaptureTimeout is wrapped when a screenshot exceeds the per-capture timeout.
	ErrCaptureTimeout = errors.New("capture timed out")
	// ErrNotJPEG is wrapped when the surface returns bytes that are not a JPEG image.
	ErrNotJPEG = errors.New("frame is not a jpeg image")
)

// Error is returned by every failed Capture. Op names the step that failed.
type Error struct {
	Op  string
	Err error
}

func (e *Error) Error() string {
	return fmt.Sprintf("capture %s: %v", e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }
