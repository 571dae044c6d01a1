package poll

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
)

// Pattern is the route served by Handler.
const Pattern = "POST /v1/poll"

// Func runs one poll cycle over the named packages, or over every package when names is empty.
type Func func(ctx context.Context, names []string) *metrics.Metric

// Handler triggers poll cycles via HTTP.
type Handler struct {
	fn      Func
	Pattern string
	lock    chan bool
}

// New creates a new Handler instance.
//
// Parameters:
//   - pollFn: Function running a poll cycle.
//   - pollLock: Optional lock channel shared with the scheduler; if nil, a new channel is created.
//
// Returns:
//   - *Handler: Initialized handler.
func New(pollFn Func, pollLock chan bool) *Handler {
	lock := pollLock
	if lock == nil {
		lock = make(chan bool, 1)
		lock <- true

		logrus.Debug("Initialized new poll lock channel")
	}

	return &Handler{
		fn:      pollFn,
		Pattern: Pattern,
		lock:    lock,
	}
}

// Handle runs a poll cycle.
//
// Targeted polls (with "package" query parameters) wait for the lock. Full polls answer
// HTTP 429 immediately when a cycle is already running.
func (handle *Handler) Handle(w http.ResponseWriter, r *http.Request) {
	logrus.WithFields(logrus.Fields{
		"method": r.Method,
		"path":   r.URL.Path,
	}).Info("Received HTTP API poll request")

	if _, err := io.Copy(io.Discard, r.Body); err != nil {
		logrus.WithError(err).Debug("Failed to read request body")
		http.Error(w, "Failed to read request body", http.StatusInternalServerError)

		return
	}

	var names []string

	for _, value := range r.URL.Query()["package"] {
		for name := range strings.SplitSeq(value, ",") {
			if name = strings.TrimSpace(name); name != "" {
				names = append(names, name)
			}
		}
	}

	if len(names) > 0 {
		select {
		case chanValue := <-handle.lock:
			defer func() { handle.lock <- chanValue }()
		case <-r.Context().Done():
			logrus.Debug("Request cancelled while waiting for poll lock")
			http.Error(w, "request cancelled", http.StatusServiceUnavailable)

			return
		}

		logrus.WithField("packages", names).Info("Executing targeted poll")
	} else {
		select {
		case chanValue := <-handle.lock:
			defer func() { handle.lock <- chanValue }()
		default:
			logrus.Debug("Skipped poll, another poll already in progress")

			w.Header().Set("Retry-After", "30")
			writeJSON(w, http.StatusTooManyRequests, map[string]any{
				"error":       "another poll is already running",
				"api_version": "v1",
				"timestamp":   time.Now().UTC().Format(time.RFC3339),
			})

			return
		}

		logrus.Info("Executing full poll")
	}

	startTime := time.Now()
	metric := handle.fn(r.Context(), names)
	duration := time.Since(startTime)

	summary := map[string]any{"polled": 0, "changed": 0, "failed": 0}
	if metric != nil {
		summary = map[string]any{
			"polled":  metric.Polled,
			"changed": metric.Changed,
			"failed":  metric.Failed,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": summary,
		"timing": map[string]any{
			"duration_ms": duration.Milliseconds(),
			"duration":    duration.String(),
		},
		"timestamp":   time.Now().UTC().Format(time.RFC3339),
		"api_version": "v1",
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	var buf bytes.Buffer

	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		logrus.WithError(err).Error("Failed to encode JSON response")
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if _, err := w.Write(buf.Bytes()); err != nil {
		logrus.WithError(err).Error("Failed to write response")
	}
}
