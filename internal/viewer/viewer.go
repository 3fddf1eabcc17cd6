package viewer

import (
	"errors"
	"fmt"

	"github.com/GriffinCanCode/PageCast/internal/capture"
)

var (
	// ErrViewerClosed means the viewer's connection is closing or gone.
	ErrViewerClosed = errors.New("viewer closed")
	// ErrViewerBusy means the viewer could not accept a frame right now.
	ErrViewerBusy = errors.New("viewer busy")
	// ErrRegistryFull is returned by Add when the viewer limit is reached.
	ErrRegistryFull = errors.New("viewer limit reached")
)

// Viewer is a connected client that wants frames.
//
// Deliver must not block: it hands the frame off and returns. Done is closed
// once the viewer will never accept another frame.
type Viewer interface {
	ID() string
	Deliver(frame capture.Frame) error
	Done() <-chan struct{}
}

// DeliveryError reports that one viewer missed one frame.
type DeliveryError struct {
	ViewerID string
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("deliver to viewer %s: %v", e.ViewerID, e.Err)
}

func (e *DeliveryError) Unwrap() error { return e.Err }

// Reason is a short label for metrics.
func (e *DeliveryError) Reason() string {
	switch {
	case errors.Is(e.Err, ErrViewerClosed):
		return "closed"
	case errors.Is(e.Err, ErrViewerBusy):
		return "busy"
	default:
		return "error"
	}
}
