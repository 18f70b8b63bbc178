package tracing

import (
	"context"
	"slices"

	"github.com/looplj/visgate/internal/log"
)

// contextFields lists the request identifiers copied from the context into log entries.
var contextFields = []struct {
	key string
	get func(context.Context) (string, bool)
}{
	{"trace_id", GetTraceID},
	{"request_id", GetRequestID},
	{"operation_name", GetOperationName},
}

// InstallLogHook makes logger tag every entry with the request identifiers of its context.
func InstallLogHook(logger *log.Logger) {
	logger.AddHook(log.HookFunc(RequestFields))
}

// RequestFields appends the trace id, request id and operation name found in ctx. Empty
// values and keys the caller already set are skipped.
func RequestFields(ctx context.Context, _ string, fields ...log.Field) []log.Field {
	if ctx == nil {
		return fields
	}

	for _, f := range contextFields {
		value, ok := f.get(ctx)
		if !ok || value == "" || hasKey(fields, f.key) {
			continue
		}

		fields = append(fields, log.String(f.key, value))
	}

	return fields
}

func hasKey(fields []log.Field, key string) bool {
	return slices.ContainsFunc(fields, func(f log.Field) bool { return f.Key == key })
}
