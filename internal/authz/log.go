package authz

import (
	"context"

	"github.com/looplj/visgate/internal/log"
)

// PrincipalFieldsHook adds the request principal to log entries.
func PrincipalFieldsHook(ctx context.Context, msg string, fields ...log.Field) []log.Field {
	if ctx == nil {
		return fields
	}

	if p, ok := GetPrincipal(ctx); ok {
		fields = append(fields, log.String("principal", p.String()))
	}

	return fields
}
