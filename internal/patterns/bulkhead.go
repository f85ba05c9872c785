package patterns

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Thivyatharshni/zestify-frontend-v2-sub000/internal/metrics"
)

// ErrBulkheadFull is returned when a slot could not be acquired in time.
var ErrBulkheadFull = errors.New("bulkhead full")

// Bulkhead implements the bulkhead pattern for resource isolation. A bulkhead
// of size 1 serializes the calls passing through it.
type Bulkhead struct {
	semaphore chan struct{}
	wait      time.Duration
	name      string
	service   string
}

// NewBulkhead creates a new bulkhead with specified capacity. wait bounds how
// long a caller queues for a slot; zero means until the caller's context ends.
func NewBulkhead(size int, wait time.Duration, name, service string) *Bulkhead {
	if size < 1 {
		size = 1
	}
	return &Bulkhead{
		semaphore: make(chan struct{}, size),
		wait:      wait,
		name:      name,
		service:   service,
	}
}

// Execute runs a function within the bulkhead's resource limits
func (b *Bulkhead) Execute(ctx context.Context, fn func() error) error {
	var timeout <-chan time.Time
	if b.wait > 0 {
		timer := time.NewTimer(b.wait)
		defer timer.Stop()
		timeout = timer.C
	}

	select {
	case b.semaphore <- struct{}{}:
		metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Inc()

		defer func() {
			<-b.semaphore
			metrics.BulkheadActiveRequests.WithLabelValues(b.service, b.name).Dec()
		}()

		return fn()

	case <-ctx.Done():
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: %w", b.name, ctx.Err())

	case <-timeout:
		metrics.BulkheadRejectedRequests.WithLabelValues(b.service, b.name).Inc()
		return fmt.Errorf("bulkhead %s: timeout acquiring resource: %w", b.name, ErrBulkheadFull)
	}
}

// InFlight returns the number of calls currently holding a slot.
func (b *Bulkhead) InFlight() int {
	return len(b.semaphore)
}

// GetName returns the bulkhead name
func (b *Bulkhead) GetName() string {
	return b.name
}
