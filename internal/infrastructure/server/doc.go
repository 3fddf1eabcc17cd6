// Package server assembles the PageCast process: configuration, logging,
// metrics and tracing, the render surface, the broadcast core and the gin
// router that fronts them.
//
// Routes:
//
//	GET /          viewer page
//	GET /static/*  viewer assets
//	GET /ws        frame stream (binary JPEG messages)
//	GET /health    liveness
//	GET /status    stream status
//	GET /metrics   Prometheus exposition
package server
