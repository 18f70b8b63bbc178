package tracing

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/looplj/visgate/internal/contexts"
)

const (
	DefaultTraceHeader   = "VG-Trace-Id"
	DefaultRequestHeader = "VG-Request-Id"
)

type Config struct {
	TraceHeader   string `conf:"trace_header" yaml:"trace_header" json:"trace_header"`
	RequestHeader string `conf:"request_header" yaml:"request_header" json:"request_header"`
}

// TraceHeaderName returns the configured trace header or the default.
func (c Config) TraceHeaderName() string {
	if c.TraceHeader != "" {
		return c.TraceHeader
	}

	return DefaultTraceHeader
}

// RequestHeaderName returns the configured request header or the default.
func (c Config) RequestHeaderName() string {
	if c.RequestHeader != "" {
		return c.RequestHeader
	}

	return DefaultRequestHeader
}

// GenerateTraceID generate trace id, format as vt-{{uuid}}.
func GenerateTraceID() string {
	return fmt.Sprintf("vt-%s", uuid.New().String())
}

// GenerateRequestID generate request id, format as vr-{{uuid}}.
func GenerateRequestID() string {
	return fmt.Sprintf("vr-%s", uuid.New().String())
}

// WithTraceID store trace id to context.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return contexts.WithTraceID(ctx, traceID)
}

// GetTraceID get trace id from context.
func GetTraceID(ctx context.Context) (string, bool) {
	return contexts.GetTraceID(ctx)
}

// WithRequestID store request id to context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return contexts.WithRequestID(ctx, requestID)
}

// GetRequestID get request id from context.
func GetRequestID(ctx context.Context) (string, bool) {
	return contexts.GetRequestID(ctx)
}

// WithOperationName store operation name to context.
func WithOperationName(ctx context.Context, name string) context.Context {
	return contexts.WithOperationName(ctx, name)
}

// GetOperationName get operation name from context.
func GetOperationName(ctx context.Context) (string, bool) {
	return contexts.GetOperationName(ctx)
}
