// Package helpers provides utility functions for registry-related operations.
// It includes methods for deriving registry addresses from image references and URLs.
package helpers

import (
	"errors"
	"fmt"
	"net/url"
	"sort"
	"strings"

	"github.com/distribution/reference"
)

// Domains for Docker Hub, the default registry.
const (
	DefaultRegistryDomain       = "docker.io"
	DefaultRegistryHost         = "index.docker.io"
	LegacyDefaultRegistryDomain = "index.docker.io"
)

// errNoHost indicates a URL without a host component.
var errNoHost = errors.New("url has no host")

// GetRegistryAddress extracts the registry address from an image reference.
// It returns the domain part of the reference, mapping Docker Hub's default domain
// to its canonical host address if applicable.
func GetRegistryAddress(imageRef string) (string, error) {
	normalizedRef, err := reference.ParseNormalizedNamed(imageRef)
	if err != nil {
		return "", fmt.Errorf("failed to parse image reference: %w", err)
	}

	address := reference.Domain(normalizedRef)
	if address == DefaultRegistryDomain {
		address = DefaultRegistryHost
	}

	return address, nil
}

// GetURLHost returns the host (with port, if any) of a registry API URL.
// Docker Hub's API hosts map to DefaultRegistryHost so that credential lookups match the
// keys written by docker login.
func GetURLHost(rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("failed to parse url: %w", err)
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("%w: %q", errNoHost, rawURL)
	}

	host := parsed.Host
	if host == DefaultRegistryDomain || host == "registry-1.docker.io" {
		host = DefaultRegistryHost
	}

	return host, nil
}

// HeaderNames returns the lower-cased, sorted names of the headers present in h.
func HeaderNames(h map[string][]string) []string {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, strings.ToLower(name))
	}

	sort.Strings(names)

	return names
}
