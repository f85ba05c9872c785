package patterns

import (
	"context"
	"time"
)

// WithTimeout derives a context with timeout for fail-fast behavior
func WithTimeout(parent context.Context, duration time.Duration) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return context.WithTimeout(parent, duration)
}

// DefaultTimeout is the default timeout for HTTP requests
const DefaultTimeout = 3 * time.Second

// SlowServiceTimeout is a longer timeout for services that might be slow
const SlowServiceTimeout = 10 * time.Second

// DefaultMutationWait bounds how long a cart mutation queues behind the one in flight
const DefaultMutationWait = 5 * time.Second

// DefaultBulkheadWait bounds how long an outbound call waits for a bulkhead slot
const DefaultBulkheadWait = 1 * time.Second
