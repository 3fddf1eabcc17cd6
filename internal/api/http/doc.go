// Package http holds the JSON endpoints of the gateway: /health for
// liveness probes and /status for a human-readable view of the stream.
package http
