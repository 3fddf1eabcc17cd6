package monitoring

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "pagecast"

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Capture metrics
	FramesCaptured  prometheus.Counter
	CaptureErrors   prometheus.Counter
	CaptureDuration prometheus.Histogram
	FrameSize       prometheus.Histogram

	// Delivery metrics
	FramesDelivered  prometheus.Counter
	DeliveriesFailed *prometheus.CounterVec
	FramesSuperseded prometheus.Counter

	// Loop metrics
	LoopState    prometheus.Gauge
	BreakerState prometheus.Gauge

	// WebSocket metrics
	Viewers    prometheus.Gauge
	WSMessages *prometheus.CounterVec

	startTime time.Time
}

// NewMetrics creates a collector set on its own registry, so several
// instances can coexist in one process.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
			},
			[]string{"method", "path"},
		),

		FramesCaptured: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_captured_total",
			Help:      "Frames captured from the render surface",
		}),
		CaptureErrors: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "capture_errors_total",
			Help:      "Failed capture attempts",
		}),
		CaptureDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "capture_duration_seconds",
			Help:      "Time spent producing one frame",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		FrameSize: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "frame_size_bytes",
			Help:      "Encoded frame size in bytes",
			Buckets:   prometheus.ExponentialBuckets(8*1024, 2, 8),
		}),

		FramesDelivered: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_delivered_total",
			Help:      "Frames handed to viewers",
		}),
		DeliveriesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "deliveries_failed_total",
				Help:      "Frames that could not be handed to a viewer",
			},
			[]string{"reason"},
		),
		FramesSuperseded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "frames_superseded_total",
			Help:      "Queued frames replaced by a newer frame before a slow viewer sent them",
		}),

		LoopState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "loop_state",
			Help:      "Broadcast loop state (0 stopped, 1 running, 2 closed)",
		}),
		BreakerState: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_breaker_state",
			Help:      "Capture circuit breaker state (0 closed, 1 half-open, 2 open)",
		}),

		Viewers: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "viewers",
			Help:      "Number of connected viewers",
		}),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Total number of WebSocket messages",
			},
			[]string{"direction", "type"},
		),
	}

	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "uptime_seconds",
		Help:      "Process uptime in seconds",
	}, func() float64 {
		return time.Since(m.startTime).Seconds()
	})

	return m
}

// Registry exposes the underlying registry (used by tests and /metrics).
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, status string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, status).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}

// RecordCapture records a successful capture.
func (m *Metrics) RecordCapture(duration time.Duration, size int) {
	m.FramesCaptured.Inc()
	m.CaptureDuration.Observe(duration.Seconds())
	m.FrameSize.Observe(float64(size))
}

// RecordCaptureError records a failed capture.
func (m *Metrics) RecordCaptureError() {
	m.CaptureErrors.Inc()
}

// RecordDelivery records one frame handed to one viewer.
func (m *Metrics) RecordDelivery() {
	m.FramesDelivered.Inc()
}

// RecordDeliveryFailure records a frame that could not be handed to a viewer.
func (m *Metrics) RecordDeliveryFailure(reason string) {
	m.DeliveriesFailed.WithLabelValues(reason).Inc()
}

// RecordSuperseded records a queued frame overwritten before it was sent.
func (m *Metrics) RecordSuperseded() {
	m.FramesSuperseded.Inc()
}

// RecordWSMessage records a WebSocket message
func (m *Metrics) RecordWSMessage(direction, msgType string) {
	m.WSMessages.WithLabelValues(direction, msgType).Inc()
}

// SetViewers sets the number of connected viewers
func (m *Metrics) SetViewers(count int) {
	m.Viewers.Set(float64(count))
}

// SetLoopState sets the loop state gauge.
func (m *Metrics) SetLoopState(state int) {
	m.LoopState.Set(float64(state))
}

// SetBreakerState sets the capture breaker gauge.
func (m *Metrics) SetBreakerState(state int) {
	m.BreakerState.Set(float64(state))
}
