// Package render owns the headless browser that produces frames.
//
// Launch starts Chrome through chromedp, emulates the configured viewport,
// user agent and extra headers, navigates to the target and waits until the
// network is almost idle. The returned Surface exposes only Screenshot and
// Close; it is handed to exactly one capture.Source and never shared.
//
// Preflighter performs a cheap HTTP check of the target before the browser is
// launched so that DNS or HTTP failures surface with a clear error.
package render
