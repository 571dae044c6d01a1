package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry/auth"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// maxResponseBytes bounds how much of a registry response body is read.
const maxResponseBytes = 32 << 20

// ErrRequestFailed indicates the registry could not be reached or its response could not be read.
var ErrRequestFailed = errors.New("registry request failed")

// StatusError reports a non-2xx response that ended a fetch.
type StatusError struct {
	URL        string
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	status := e.Status
	if status == "" {
		status = fmt.Sprintf("%d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}

	return fmt.Sprintf("unexpected status %s from %s", status, e.URL)
}

// Response is a fully read successful registry response.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// CredentialsFunc returns the credentials presented to the token realm for a registry URL.
type CredentialsFunc func(rawURL string) types.RegistryCredentials

// Client fetches registry resources, answering a single bearer challenge per fetch.
// It holds no mutable state and is safe for concurrent use.
type Client struct {
	doer        auth.Doer
	credentials CredentialsFunc
	userAgent   string
	metrics     *metrics.Metrics
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the executor used for registry and realm requests.
func WithHTTPClient(doer auth.Doer) Option {
	return func(c *Client) {
		if doer != nil {
			c.doer = doer
		}
	}
}

// WithCredentials sets the credential lookup used for token requests.
func WithCredentials(fn CredentialsFunc) Option {
	return func(c *Client) {
		if fn != nil {
			c.credentials = fn
		}
	}
}

// WithUserAgent sets the User-Agent header sent with every request.
func WithUserAgent(userAgent string) Option {
	return func(c *Client) {
		c.userAgent = userAgent
	}
}

// WithMetrics records request outcomes on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) {
		c.metrics = m
	}
}

// NewClient returns a Client using http.DefaultClient and CredentialsFor unless overridden.
func NewClient(opts ...Option) *Client {
	client := &Client{
		doer:        http.DefaultClient,
		credentials: CredentialsFor,
	}

	for _, opt := range opts {
		opt(client)
	}

	return client
}

// authState tracks the progress of a fetch through the bearer challenge.
type authState int

const (
	stateUnauthenticated authState = iota
	stateChallengeReceived
	stateTokenAcquired
	stateRetried
)

func (s authState) String() string {
	switch s {
	case stateUnauthenticated:
		return "unauthenticated"
	case stateChallengeReceived:
		return "challenge-received"
	case stateTokenAcquired:
		return "token-acquired"
	case stateRetried:
		return "retried"
	default:
		return "unknown"
	}
}

// Fetch performs a GET of url. A 401 carrying a bearer challenge is answered once: a token is
// requested from the advertised realm and the request is retried with it. The outcome of the
// retry is final.
//
// Returns:
//   - *Response: The response when the final status is 2xx.
//   - error: *StatusError for other statuses, ErrRequestFailed for transport failures, or the
//     auth package's errors when the challenge cannot be answered.
func (c *Client) Fetch(ctx context.Context, url string) (*Response, error) {
	var (
		challenge auth.Challenge
		token     string
	)

	state := stateUnauthenticated

	for {
		fields := logrus.Fields{"url": url, "state": state.String()}

		switch state {
		case stateUnauthenticated:
			res, err := c.get(ctx, url, "")
			if err != nil {
				return nil, err
			}

			if res.StatusCode != http.StatusUnauthorized {
				return c.complete(url, res)
			}

			c.metrics.ObserveChallenge()

			challenge, err = auth.ParseChallenge(res.Header.Get(auth.ChallengeHeader))
			if err != nil {
				logrus.WithError(err).WithFields(fields).Debug("Could not parse authentication challenge")

				return nil, err
			}

			state = stateChallengeReceived
		case stateChallengeReceived:
			var err error

			token, err = auth.FetchToken(ctx, c.doer, challenge, c.credentials(url), c.userAgent)
			if err != nil {
				logrus.WithError(err).WithFields(fields).Debug("Could not obtain bearer token")

				return nil, err
			}

			state = stateTokenAcquired
		case stateTokenAcquired:
			res, err := c.get(ctx, url, token)
			state = stateRetried

			if err != nil {
				return nil, err
			}

			logrus.WithFields(fields).WithField("status", res.StatusCode).Debug("Authenticated retry completed")

			return c.complete(url, res)
		default:
			return nil, fmt.Errorf("%w: fetch reached state %s", ErrRequestFailed, state)
		}
	}
}

// complete turns a final response into a result.
func (c *Client) complete(url string, res *rawResponse) (*Response, error) {
	if res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices {
		return &Response{
			StatusCode: res.StatusCode,
			Header:     res.Header,
			Body:       res.Body,
		}, nil
	}

	return nil, &StatusError{URL: url, StatusCode: res.StatusCode, Status: res.Status}
}

type rawResponse struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// get issues a single GET, optionally with a bearer token, and reads the whole body.
func (c *Client) get(ctx context.Context, url, token string) (*rawResponse, error) {
	fields := logrus.Fields{
		"method":        http.MethodGet,
		"url":           url,
		"authenticated": token != "",
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		c.metrics.ObserveRequest(metrics.RequestError)

		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	logrus.WithFields(fields).Debug("Sending registry request")

	res, err := c.doer.Do(req)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Registry request failed")
		c.metrics.ObserveRequest(metrics.RequestError)

		return nil, fmt.Errorf("%w: %w", ErrRequestFailed, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, maxResponseBytes))
	if err != nil {
		c.metrics.ObserveRequest(metrics.RequestError)

		return nil, fmt.Errorf("%w: reading body: %w", ErrRequestFailed, err)
	}

	logrus.WithFields(fields).WithField("status", res.StatusCode).Debug("Received registry response")

	switch {
	case res.StatusCode == http.StatusUnauthorized:
		c.metrics.ObserveRequest(metrics.RequestUnauthorized)
	case res.StatusCode >= http.StatusOK && res.StatusCode < http.StatusMultipleChoices:
		c.metrics.ObserveRequest(metrics.RequestOK)
	default:
		c.metrics.ObserveRequest(metrics.RequestStatus)
	}

	return &rawResponse{
		StatusCode: res.StatusCode,
		Status:     res.Status,
		Header:     res.Header,
		Body:       body,
	}, nil
}

// IsUnavailable reports whether err means the registry or its token realm could not be reached
// or answered with an error status, as opposed to a malformed protocol exchange.
func IsUnavailable(err error) bool {
	var statusErr *StatusError

	return errors.As(err, &statusErr) ||
		errors.Is(err, ErrRequestFailed) ||
		errors.Is(err, auth.ErrTokenRequestFailed)
}
