package registry

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/docker/go-connections/tlsconfig"
)

// DefaultTimeout bounds a single registry request when no timeout is configured.
const DefaultTimeout = 30 * time.Second

var errUnexpectedTransport = errors.New("default transport is not an *http.Transport")

// TransportOptions configures the HTTP client used to reach registries and token realms.
type TransportOptions struct {
	Timeout            time.Duration
	CAFile             string
	InsecureSkipVerify bool
}

// NewHTTPClient builds an *http.Client honouring the TLS settings in opts.
func NewHTTPClient(opts TransportOptions) (*http.Client, error) {
	tlsConfig, err := tlsconfig.Client(tlsconfig.Options{
		CAFile:             opts.CAFile,
		InsecureSkipVerify: opts.InsecureSkipVerify, //nolint:gosec // opt-in via --tls-skip-verify
	})
	if err != nil {
		return nil, fmt.Errorf("failed to configure TLS: %w", err)
	}

	base, ok := http.DefaultTransport.(*http.Transport)
	if !ok {
		return nil, errUnexpectedTransport
	}

	transport := base.Clone()
	transport.TLSClientConfig = tlsConfig

	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}, nil
}
