/*
Package monitoring provides Prometheus metrics for the streaming service.

# Overview

Metrics live on a private registry owned by *Metrics, so tests can build
as many collectors as they like without clashing on the global registry.

# Features

- HTTP request metrics (count, latency) via Gin middleware
- Capture metrics (frames, errors, duration, frame size)
- Delivery metrics (delivered, failed by reason, superseded)
- Loop and capture breaker state gauges
- Viewer gauge and WebSocket message counters
- Go runtime, process and uptime collectors

# Usage

	metrics := monitoring.NewMetrics()
	router.Use(monitoring.Middleware(metrics))
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	timer := monitoring.NewTimer(metrics)
	frame, err := source.Capture(ctx)
	if err != nil {
		timer.Stop(-1)
	} else {
		timer.Stop(len(frame.Data))
	}
*/
package monitoring
