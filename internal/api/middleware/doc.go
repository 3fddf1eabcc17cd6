// Package middleware provides the Gin middleware stack for the gateway:
// CORS, per-IP rate limiting and zap access logging.
package middleware
