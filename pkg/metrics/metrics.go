package metrics

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var metrics *Metrics

// Operation labels.
const (
	OperationCheckRepository     = "check_repository"
	OperationCheckPackage        = "check_package"
	OperationLatestRevision      = "latest_revision"
	OperationLatestRevisionSince = "latest_revision_since"
)

// Result labels.
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
	ResultEmpty   = "empty"
	ResultError   = "error"
)

// Request outcome labels.
const (
	RequestOK           = "ok"
	RequestUnauthorized = "unauthorized"
	RequestStatus       = "status"
	RequestError        = "error"
)

// Metric holds data points from a single watch cycle.
type Metric struct {
	Polled  int // Number of packages polled.
	Changed int // Number of packages with a newer revision.
	Failed  int // Number of packages whose poll returned an error.
}

// Metrics handles processing and exposing poller metrics.
type Metrics struct {
	channel    chan *Metric             // Channel for queuing watch cycle metrics.
	polled     prometheus.Gauge         // Gauge for packages polled in the last cycle.
	changed    prometheus.Gauge         // Gauge for packages changed in the last cycle.
	failed     prometheus.Gauge         // Gauge for packages failed in the last cycle.
	total      prometheus.Counter       // Counter for total cycles.
	skipped    prometheus.Counter       // Counter for skipped cycles.
	dropped    prometheus.Counter       // Counter for dropped metrics.
	requests   *prometheus.CounterVec   // Counter for registry requests by outcome.
	challenges prometheus.Counter       // Counter for bearer challenges answered.
	operations *prometheus.CounterVec   // Counter for poller operations by operation and result.
	tags       *prometheus.GaugeVec     // Gauge for tags matched per image in the last poll.
	stopCh     chan struct{}            // Channel for shutdown signaling.
	once       sync.Once                // Ensures shutdown is called only once.
	//nolint:containedctx
	ctx    context.Context    // Context for cancellation.
	cancel context.CancelFunc // Cancel function for the context.
}

// NewWithRegistry creates a new Metrics handler with a custom Prometheus registry.
//
// Parameters:
//   - registry: Prometheus registerer to use for metric registration.
//
// Returns:
//   - (*Metrics, error): Metrics handler with a running update goroutine, or an error if
//     registration fails.
func NewWithRegistry(registry prometheus.Registerer) (*Metrics, error) {
	// channelBufferSize sets the metrics channel capacity.
	const channelBufferSize = 10

	ctx, cancel := context.WithCancel(context.Background())

	metrics := &Metrics{
		polled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockerpoller_packages_polled",
			Help: "Number of packages polled during the last watch cycle",
		}),
		changed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockerpoller_packages_changed",
			Help: "Number of packages with a newer revision during the last watch cycle",
		}),
		failed: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "dockerpoller_packages_failed",
			Help: "Number of packages whose poll failed during the last watch cycle",
		}),
		total: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockerpoller_cycles_total",
			Help: "Number of watch cycles since dockerpoller started",
		}),
		skipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockerpoller_cycles_skipped_total",
			Help: "Number of watch cycles skipped because another one was running",
		}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockerpoller_metrics_dropped_total",
			Help: "Number of metrics dropped due to full channel",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dockerpoller_registry_requests_total",
			Help: "Number of registry requests by outcome",
		}, []string{"outcome"}),
		challenges: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "dockerpoller_auth_challenges_total",
			Help: "Number of bearer challenges answered with a token exchange",
		}),
		operations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "dockerpoller_operations_total",
			Help: "Number of poller operations by operation and result",
		}, []string{"operation", "result"}),
		tags: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "dockerpoller_matching_tags",
			Help: "Number of tags matching the filter during the last poll of an image",
		}, []string{"image"}),
		channel: make(chan *Metric, channelBufferSize),
		stopCh:  make(chan struct{}),
		ctx:     ctx,
		cancel:  cancel,
	}

	collectors := []prometheus.Collector{
		metrics.polled,
		metrics.changed,
		metrics.failed,
		metrics.total,
		metrics.skipped,
		metrics.dropped,
		metrics.requests,
		metrics.challenges,
		metrics.operations,
		metrics.tags,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			cancel()

			return nil, fmt.Errorf("failed to register metric: %w", err)
		}
	}

	go metrics.HandleUpdate()

	return metrics, nil
}

// Default initializes or returns the singleton Metrics handler registered against the default
// Prometheus registry. It panics on registration failure.
func Default() *Metrics {
	if metrics != nil {
		return metrics
	}

	var err error

	metrics, err = NewWithRegistry(prometheus.DefaultRegisterer)
	if err != nil {
		panic(err)
	}

	return metrics
}

// ObserveRequest counts a registry request with the given outcome.
func (m *Metrics) ObserveRequest(outcome string) {
	if m == nil {
		return
	}

	m.requests.WithLabelValues(outcome).Inc()
}

// ObserveChallenge counts a bearer challenge answered with a token exchange.
func (m *Metrics) ObserveChallenge() {
	if m == nil {
		return
	}

	m.challenges.Inc()
}

// ObserveOperation counts a poller operation with its result.
func (m *Metrics) ObserveOperation(operation, result string) {
	if m == nil {
		return
	}

	m.operations.WithLabelValues(operation, result).Inc()
}

// ObserveMatchingTags records how many tags matched the filter for an image.
func (m *Metrics) ObserveMatchingTags(image string, count int) {
	if m == nil {
		return
	}

	m.tags.WithLabelValues(image).Set(float64(count))
}

// QueueIsEmpty checks if the metrics channel is empty.
func (m *Metrics) QueueIsEmpty() bool {
	return len(m.channel) == 0
}

// RegisterPoll enqueues a watch cycle metric. A nil metric records a skipped cycle.
// If the channel is full, the metric is dropped and the dropped counter is incremented.
func (m *Metrics) RegisterPoll(metric *Metric) {
	if m == nil {
		return
	}

	select {
	case m.channel <- metric:
	default:
		m.dropped.Inc()
	}
}

// Shutdown stops the update goroutine. It is idempotent.
func (m *Metrics) Shutdown() {
	m.once.Do(func() {
		close(m.stopCh)
		m.cancel()
	})
}

// HandleUpdate processes watch cycle metrics from the channel.
func (m *Metrics) HandleUpdate() {
	for {
		select {
		case change, ok := <-m.channel:
			if !ok {
				return
			}

			if change == nil {
				// Cycle was skipped because another one was still running.
				m.skipped.Inc()
				m.polled.Set(0)
				m.changed.Set(0)
				m.failed.Set(0)
				m.total.Inc()

				continue
			}

			m.polled.Set(float64(change.Polled))
			m.changed.Set(float64(change.Changed))
			m.failed.Set(float64(change.Failed))
			m.total.Inc()
		case <-m.stopCh:
			return
		case <-m.ctx.Done():
			return
		}
	}
}
