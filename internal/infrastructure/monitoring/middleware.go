package monitoring

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// Middleware creates a Gin middleware for metrics collection
func Middleware(metrics *Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		c.Next()

		// Route template keeps label cardinality bounded; unmatched paths collapse.
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		metrics.RecordHTTPRequest(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// Timer measures a capture and records it on Stop.
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer starts a capture timer. A nil metrics yields a no-op timer.
func NewTimer(metrics *Metrics) *Timer {
	return &Timer{start: time.Now(), metrics: metrics}
}

// Stop records the elapsed time. size is the frame length, or -1 on failure.
func (t *Timer) Stop(size int) time.Duration {
	elapsed := time.Since(t.start)
	if t.metrics == nil {
		return elapsed
	}
	if size < 0 {
		t.metrics.RecordCaptureError()
	} else {
		t.metrics.RecordCapture(elapsed, size)
	}
	return elapsed
}
