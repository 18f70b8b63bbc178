package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"github.com/looplj/visgate/internal/tracing"
)

// WithLoggingTracing save the trace ID and request ID to the request context.
// So the logger can log the trace ID and request ID in the next logs.
func WithLoggingTracing(config tracing.Config) gin.HandlerFunc {
	traceHeader := config.TraceHeaderName()
	requestHeader := config.RequestHeaderName()

	return func(c *gin.Context) {
		// Use the trace header from the request first.
		traceID := c.GetHeader(traceHeader)
		if traceID == "" {
			traceID = tracing.GenerateTraceID()
		}

		requestID := tracing.GenerateRequestID()

		c.Header(traceHeader, traceID)
		c.Header(requestHeader, requestID)

		ctx := tracing.WithTraceID(c.Request.Context(), traceID)
		ctx = tracing.WithRequestID(ctx, requestID)

		if path := c.FullPath(); path != "" {
			ctx = tracing.WithOperationName(ctx, fmt.Sprintf("%s %s", c.Request.Method, path))
		}

		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
