// Package auth provides functionality for authenticating with container registries.
// It parses bearer challenges returned with HTTP 401 responses and exchanges them for a
// token at the advertised realm.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// ChallengeHeader is the HTTP Header containing challenge instructions.
const ChallengeHeader = "WWW-Authenticate"

// bearerScheme is the only challenge scheme handled.
const bearerScheme = "bearer"

// maxTokenResponseBytes bounds how much of a realm response body is read.
const maxTokenResponseBytes = 1 << 20

// challengeParamPattern extracts key="value" pairs from a challenge header.
// Values are quoted, so commas inside a scope ("repository:a:pull,push") are preserved.
var challengeParamPattern = regexp.MustCompile(`([A-Za-z_]+)="([^"]*)"`)

// Static errors for registry authentication failures.
var (
	// ErrMissingRealm indicates a 401 response without a usable realm in its challenge.
	ErrMissingRealm = errors.New("challenge header did not include a realm")
	// ErrUnsupportedChallenge indicates a challenge scheme other than bearer.
	ErrUnsupportedChallenge = errors.New("unsupported challenge type from registry")
	// ErrMalformedTokenResponse indicates the realm returned a body without a token.
	ErrMalformedTokenResponse = errors.New("malformed token response")
	// ErrTokenRequestFailed indicates the realm could not be reached or rejected the request.
	ErrTokenRequestFailed = errors.New("token request failed")
	// errInvalidRealm indicates the realm is not a valid absolute URL.
	errInvalidRealm = errors.New("invalid token realm")
)

// Doer executes HTTP requests. *http.Client satisfies it.
type Doer interface {
	Do(req *http.Request) (*http.Response, error)
}

// Challenge holds the parameters of a bearer challenge.
type Challenge struct {
	Realm   string
	Service string
	Scope   string
}

// ParseChallenge extracts the bearer challenge parameters from a WWW-Authenticate header value.
//
// Parameters:
//   - header: Raw header value, e.g. `Bearer realm="https://auth.example.com/token",service="registry"`.
//
// Returns:
//   - Challenge: Parsed realm, service and scope.
//   - error: ErrMissingRealm if the header is empty or has no realm, ErrUnsupportedChallenge for
//     non-bearer schemes.
func ParseChallenge(header string) (Challenge, error) {
	header = strings.TrimSpace(header)
	if header == "" {
		return Challenge{}, fmt.Errorf("%w: no %s header", ErrMissingRealm, ChallengeHeader)
	}

	scheme, params, _ := strings.Cut(header, " ")
	if !strings.EqualFold(scheme, bearerScheme) {
		return Challenge{}, fmt.Errorf("%w: %q", ErrUnsupportedChallenge, scheme)
	}

	var challenge Challenge

	for _, match := range challengeParamPattern.FindAllStringSubmatch(params, -1) {
		switch strings.ToLower(match[1]) {
		case "realm":
			challenge.Realm = match[2]
		case "service":
			challenge.Service = match[2]
		case "scope":
			challenge.Scope = match[2]
		}
	}

	logrus.WithFields(logrus.Fields{
		"realm":   challenge.Realm,
		"service": challenge.Service,
		"scope":   challenge.Scope,
	}).Debug("Checking challenge header content")

	if challenge.Realm == "" {
		return Challenge{}, fmt.Errorf("%w: %q", ErrMissingRealm, header)
	}

	return challenge, nil
}

// TokenURL builds the realm URL, adding the service and scope query parameters when the
// challenge advertises them.
func (c Challenge) TokenURL() (*url.URL, error) {
	authURL, err := url.Parse(c.Realm)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errInvalidRealm, err)
	}

	if !authURL.IsAbs() {
		return nil, fmt.Errorf("%w: %q is not absolute", errInvalidRealm, c.Realm)
	}

	q := authURL.Query()
	if c.Service != "" {
		q.Set("service", c.Service)
	}

	if c.Scope != "" {
		q.Set("scope", c.Scope)
	}

	authURL.RawQuery = q.Encode()

	return authURL, nil
}

// FetchToken exchanges a challenge for a bearer token at its realm.
//
// Parameters:
//   - ctx: Context for request lifecycle control.
//   - client: Executes the realm request.
//   - challenge: Parsed challenge from the registry.
//   - credentials: Basic credentials for the realm; empty credentials request an anonymous token.
//   - userAgent: User-Agent header value.
//
// Returns:
//   - string: The bearer token.
//   - error: ErrTokenRequestFailed for transport or status failures, ErrMalformedTokenResponse
//     if the body is not JSON or carries no token.
func FetchToken(
	ctx context.Context,
	client Doer,
	challenge Challenge,
	credentials types.RegistryCredentials,
	userAgent string,
) (string, error) {
	authURL, err := challenge.TokenURL()
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrMissingRealm, err)
	}

	fields := logrus.Fields{
		"method": http.MethodGet,
		"url":    authURL.String(),
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, authURL.String(), nil)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRequestFailed, err)
	}

	req.Header.Set("Accept", "application/json")

	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	if credentials.IsEmpty() {
		logrus.WithFields(fields).Debug("No credentials found.")
	} else {
		logrus.WithFields(fields).WithField("username", credentials.Username).Debug("Credentials found.")
		req.SetBasicAuth(credentials.Username, credentials.Password)
	}

	res, err := client.Do(req)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to request token")

		return "", fmt.Errorf("%w: %w", ErrTokenRequestFailed, err)
	}
	defer res.Body.Close()

	logrus.WithFields(fields).WithField("status", res.StatusCode).Debug("Got response to token request")

	if res.StatusCode < http.StatusOK || res.StatusCode >= http.StatusMultipleChoices {
		return "", fmt.Errorf("%w: realm responded with %s", ErrTokenRequestFailed, res.Status)
	}

	body, err := io.ReadAll(io.LimitReader(res.Body, maxTokenResponseBytes))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrTokenRequestFailed, err)
	}

	tokenResponse := types.TokenResponse{}
	if err := json.Unmarshal(body, &tokenResponse); err != nil {
		return "", fmt.Errorf("%w: %w", ErrMalformedTokenResponse, err)
	}

	token := tokenResponse.Value()
	if token == "" {
		return "", fmt.Errorf("%w: no token field", ErrMalformedTokenResponse)
	}

	// Log token only in trace mode to avoid leaking credentials
	if logrus.GetLevel() == logrus.TraceLevel {
		logrus.WithFields(fields).WithField("token", token).Trace("Received bearer token")
	}

	return token, nil
}
