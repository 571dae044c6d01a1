// Package registry talks to Docker Registry HTTP API v2 servers.
//
// Client.Fetch performs a GET and answers at most one bearer challenge per call: on a 401 the
// WWW-Authenticate realm is asked for a token and the request is retried once with it.
// FetchTags decodes /tags/list responses and Probe reports whether a URL is served by a
// v2 registry.
//
// Credentials for token realms come from REPO_USER/REPO_PASS or the Docker CLI config file
// (DOCKER_CONFIG). GetPullOptions builds the encoded auth used when pulling resolved images.
//
// Subpackages:
//   - auth: Challenge parsing and token retrieval.
//   - helpers: Registry address and header utilities.
package registry
