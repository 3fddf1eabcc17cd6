package render

import (
	"errors"
	"fmt"
	"time"
)

// ErrSurfaceClosed is returned by Screenshot after Close.
var ErrSurfaceClosed = errors.New("render surface closed")

// LaunchError reports that the browser could not start or navigate.
type LaunchError struct {
	URL string
	Err error
}

func (e *LaunchError) Error() string {
	return fmt.Sprintf("launch browser for %s: %v", e.URL, e.Err)
}

func (e *LaunchError) Unwrap() error { return e.Err }

// NavigationTimeoutError reports that the target page did not settle in time.
type NavigationTimeoutError struct {
	URL     string
	Timeout time.Duration
}

func (e *NavigationTimeoutError) Error() string {
	return fmt.Sprintf("navigation to %s did not settle within %s", e.URL, e.Timeout)
}

// PreflightError reports an unreachable or failing target before launch.
type PreflightError struct {
	URL        string
	StatusCode int
	Err        error
}

func (e *PreflightError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("preflight %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("preflight %s: unexpected status %d", e.URL, e.StatusCode)
}

func (e *PreflightError) Unwrap() error { return e.Err }
