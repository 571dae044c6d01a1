// Package metrics provides tracking and exposure of dockerpoller metrics.
// It integrates with Prometheus to count registry requests, bearer challenges, poller
// operations and the outcome of scheduled watch cycles.
//
// Key components:
//   - Metrics: Holds the Prometheus collectors and processes queued watch cycle metrics.
//   - Metric: Summary of one watch cycle (packages polled, changed, failed).
//
// Usage example:
//
//	m := metrics.Default()
//	m.ObserveOperation(metrics.OperationLatestRevision, metrics.ResultSuccess)
//	m.RegisterPoll(&metrics.Metric{Polled: 3, Changed: 1})
//
// All observation methods are safe to call on a nil *Metrics, which records nothing.
package metrics
