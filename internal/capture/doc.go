// Package capture produces JPEG frames from a render surface.
//
// A Source owns its surface. Capture is rate limited to the configured frame
// rate, bounded by a per-capture timeout, and checks that the bytes returned
// really are a JPEG before handing them out. Every failure is a *Error; the
// caller decides whether to back off and try again.
package capture
