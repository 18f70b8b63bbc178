package contexts

import (
	"context"
	"sync"
)

// contextContainer holds the request scoped values. It is created once per request
// and mutated in place, so every accessor takes the lock.
type contextContainer struct {
	mu            sync.RWMutex
	TraceID       *string
	RequestID     *string
	OperationName *string
	Errors        []error
}

// getContainer retrieves the existing container from context, or creates a new one if it doesn't exist.
func getContainer(ctx context.Context) *contextContainer {
	if container, ok := ctx.Value(containerContextKey).(*contextContainer); ok {
		return container
	}

	return &contextContainer{}
}

// withContainer stores the container in the context (if not already stored).
func withContainer(ctx context.Context, container *contextContainer) context.Context {
	if ctx.Value(containerContextKey) == nil {
		return context.WithValue(ctx, containerContextKey, container)
	}

	return ctx
}

func getString(ctx context.Context, field func(c *contextContainer) *string) (string, bool) {
	container := getContainer(ctx)

	container.mu.RLock()
	defer container.mu.RUnlock()

	if v := field(container); v != nil {
		return *v, true
	}

	return "", false
}
