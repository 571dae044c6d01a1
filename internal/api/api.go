// Package api wires the plugin, metrics and poll endpoints into the HTTP API server.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/api"
	metricsAPI "github.com/nicholas-fedor/dockerpoller/pkg/api/metrics"
	pluginAPI "github.com/nicholas-fedor/dockerpoller/pkg/api/plugin"
	"github.com/nicholas-fedor/dockerpoller/pkg/api/poll"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/plugin"
)

// Options selects the endpoints served by SetupAndStartAPI.
type Options struct {
	Host  string
	Port  string
	Token string
	// Plugin serves POST /v1/plugin/{request} when set.
	Plugin *plugin.Handler
	// Metrics serves GET /v1/metrics when set.
	Metrics *metrics.Metrics
	// Gatherer is the registry exposed on /v1/metrics. Nil uses the default registry.
	Gatherer prometheus.Gatherer
	// Poll serves POST /v1/poll when set.
	Poll poll.Func
	// PollLock is shared with the scheduler.
	PollLock chan bool
	// Block runs the server in the foreground until the context is cancelled.
	Block bool
}

// GetAPIAddr formats the API address string based on host and port.
func GetAPIAddr(host, port string) string {
	address := host + ":" + port
	if host != "" && strings.Contains(host, ":") && net.ParseIP(host) != nil {
		address = "[" + host + "]:" + port
	}

	return address
}

// SetupAndStartAPI registers the endpoints selected by opts and starts the HTTP API.
// Nothing is started when no endpoint is selected.
func SetupAndStartAPI(ctx context.Context, opts Options, server ...api.HTTPServer) error {
	address := GetAPIAddr(opts.Host, opts.Port)

	httpAPI := api.New(opts.Token, address, server...)

	if opts.Plugin != nil {
		handler := pluginAPI.New(opts.Plugin)
		httpAPI.RegisterHandler(handler.Pattern, handler)
	}

	if opts.Metrics != nil {
		gatherer := opts.Gatherer
		if gatherer == nil {
			gatherer = prometheus.DefaultGatherer
		}

		handler := metricsAPI.NewWithGatherer(opts.Metrics, gatherer)
		httpAPI.RegisterHandler(handler.Pattern, handler.Handle)
	}

	if opts.Poll != nil {
		pollFn := opts.Poll
		m := opts.Metrics

		handler := poll.New(func(ctx context.Context, names []string) *metrics.Metric {
			metric := pollFn(ctx, names)
			m.RegisterPoll(metric)

			return metric
		}, opts.PollLock)
		httpAPI.RegisterFunc(handler.Pattern, handler.Handle)
	}

	logrus.WithFields(logrus.Fields{
		"addr":    address,
		"plugin":  opts.Plugin != nil,
		"metrics": opts.Metrics != nil,
		"poll":    opts.Poll != nil,
	}).Debug("Configured HTTP API")

	if err := httpAPI.Start(ctx, opts.Block); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logrus.WithError(err).Error("Failed to start API")

		return fmt.Errorf("failed to start HTTP API: %w", err)
	}

	return nil
}
