package metrics

import "time"

// RouterMetrics provides observability for playground routing.
//
// Implementations collect one sample per routed operation. If no metrics are
// configured the playground uses NewNoopRouterMetrics, which has zero overhead.
//
// Example usage:
//
//	// With metrics enabled
//	metrics.InitRegistry()
//	pg := playground.New(loader, playground.WithMetrics(prometheus.NewRouterMetrics()))
//
//	// Without metrics (no-op)
//	pg := playground.New(loader)
type RouterMetrics interface {
	// RecordOperation records a completed operation.
	//
	// Parameters:
	//   - operation: e.g. "get_catalog", "read"
	//   - owner: owner of the backend that served it ("" if unresolved)
	//   - duration: time spent, including the backend call
	//   - err: nil on success
	RecordOperation(operation, owner string, duration time.Duration, err error)

	// RecordSuppressedError counts a backend failure that was logged and
	// dropped from an aggregate result (registration listing).
	RecordSuppressedError(operation, owner string)

	// SetMountedSources reports the size of the mount table.
	SetMountedSources(count int)
}

type noopRouterMetrics struct{}

// NewNoopRouterMetrics returns a RouterMetrics that records nothing.
func NewNoopRouterMetrics() RouterMetrics {
	return noopRouterMetrics{}
}

func (noopRouterMetrics) RecordOperation(string, string, time.Duration, error) {}
func (noopRouterMetrics) RecordSuppressedError(string, string)                 {}
func (noopRouterMetrics) SetMountedSources(int)                                {}
