package tracing

import (
	"github.com/gin-gonic/gin"

	"github.com/GriffinCanCode/PageCast/internal/shared/id"
)

const (
	HeaderTraceID = "X-Trace-ID"
	HeaderSpanID  = "X-Span-ID"
)

// validHeader returns the named header when it holds a well-formed ID.
// Anything else starts a fresh trace.
func validHeader(c *gin.Context, name string) string {
	v := c.GetHeader(name)
	if v == "" || !id.IsValid(v) {
		return ""
	}
	return v
}

// HTTPMiddleware creates Gin middleware for HTTP tracing. For /ws the span
// covers the whole viewer session.
func HTTPMiddleware(tracer *Tracer) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := WithRemoteParent(c.Request.Context(),
			id.TraceID(validHeader(c, HeaderTraceID)),
			id.SpanID(validHeader(c, HeaderSpanID)),
		)

		name := c.FullPath()
		if name == "" {
			name = "unmatched"
		}
		span, ctx := tracer.StartSpan(ctx, name)
		span.SetTag("http.method", c.Request.Method)
		span.SetTag("http.client_ip", c.ClientIP())

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderTraceID, span.TraceID.String())
		c.Header(HeaderSpanID, span.SpanID.String())

		c.Next()

		span.StatusCode = c.Writer.Status()
		if len(c.Errors) > 0 {
			span.SetError(c.Errors.Last())
		}
		span.Finish()
		tracer.Submit(span)
	}
}
