/*
Package tracing provides lightweight request tracing.

Each HTTP request (and each viewer WebSocket session) gets a span whose trace
ID is propagated through X-Trace-ID / X-Span-ID headers. Finished spans are
logged through zap by a background collector so request paths never block on
logging.

# Usage

	tracer := tracing.New("pagecast", logger)
	defer tracer.Close()
	router.Use(tracing.HTTPMiddleware(tracer))
*/
package tracing
