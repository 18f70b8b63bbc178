package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/looplj/visgate/internal/tracing"
)

func TestWithLoggingTracing(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req, _ := http.NewRequest(http.MethodGet, "/items/42", nil)
	w := httptest.NewRecorder()

	engine := gin.New()
	engine.Use(WithLoggingTracing(tracing.Config{}))

	engine.GET("/items/:id", func(c *gin.Context) {
		ctx := c.Request.Context()

		traceID, ok := tracing.GetTraceID(ctx)
		assert.True(t, ok)
		assert.True(t, strings.HasPrefix(traceID, "vt-"))

		requestID, ok := tracing.GetRequestID(ctx)
		assert.True(t, ok)
		assert.True(t, strings.HasPrefix(requestID, "vr-"))

		operation, ok := tracing.GetOperationName(ctx)
		assert.True(t, ok)
		assert.Equal(t, "GET /items/:id", operation)

		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.HasPrefix(w.Header().Get(tracing.DefaultRequestHeader), "vr-"))
	assert.True(t, strings.HasPrefix(w.Header().Get(tracing.DefaultTraceHeader), "vt-"))
}

func TestWithLoggingTracingExistingHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Vg-Trace-Id", "vt-existing-trace-id")

	w := httptest.NewRecorder()

	engine := gin.New()
	engine.Use(WithLoggingTracing(tracing.Config{}))

	engine.GET("/", func(c *gin.Context) {
		traceID, ok := tracing.GetTraceID(c.Request.Context())
		assert.True(t, ok)
		assert.Equal(t, "vt-existing-trace-id", traceID)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "vt-existing-trace-id", w.Header().Get("VG-Trace-Id"))
}

func TestWithLoggingTracingCustomHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)

	req, _ := http.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Custom-Trace-Id", "custom-trace-id")

	w := httptest.NewRecorder()

	engine := gin.New()
	engine.Use(WithLoggingTracing(tracing.Config{
		TraceHeader:   "X-Custom-Trace-Id",
		RequestHeader: "X-Custom-Request-Id",
	}))

	engine.GET("/", func(c *gin.Context) {
		traceID, ok := tracing.GetTraceID(c.Request.Context())
		assert.True(t, ok)
		assert.Equal(t, "custom-trace-id", traceID)
		c.Status(http.StatusOK)
	})

	engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Custom-Request-Id"))
	assert.Empty(t, w.Header().Get(tracing.DefaultRequestHeader))
}
