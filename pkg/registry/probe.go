package registry

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// APIVersionHeader is returned by every Docker Registry HTTP API v2 endpoint.
const APIVersionHeader = "docker-distribution-api-version"

// apiVersionPrefix is the accepted prefix of the APIVersionHeader value.
const apiVersionPrefix = "registry/2."

// Subjects named in probe messages.
const (
	SubjectRegistry = "registry"
	SubjectImage    = "image"
)

// Probe checks that url is served by a Docker Registry v2, reporting the outcome as a
// ConnectionResult. It never returns an error.
func (c *Client) Probe(ctx context.Context, url, subject string) types.ConnectionResult {
	fields := logrus.Fields{"url": url, "subject": subject}

	res, err := c.Fetch(ctx, url)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Info("Connection check failed")

		return types.NewConnectionResult(types.StatusFailure,
			fmt.Sprintf("Could not find docker %s. [%s]", subject, err.Error()))
	}

	values := res.Header.Values(APIVersionHeader)
	if len(values) == 0 {
		logrus.WithFields(fields).Info("Response is missing the registry API version header")

		return types.NewConnectionResult(types.StatusFailure,
			fmt.Sprintf("Missing header: %s found only: [%s]",
				APIVersionHeader, strings.Join(helpers.HeaderNames(res.Header), ", ")))
	}

	if value := values[0]; !strings.HasPrefix(value, apiVersionPrefix) {
		logrus.WithFields(fields).WithField("value", value).Info("Unknown registry API version")

		return types.NewConnectionResult(types.StatusFailure,
			fmt.Sprintf("Unknown value %s for header %s", value, APIVersionHeader))
	}

	logrus.WithFields(fields).Debug("Connection check succeeded")

	return types.NewConnectionResult(types.StatusSuccess, fmt.Sprintf("Docker %s found.", subject))
}
