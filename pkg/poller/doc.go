// Package poller resolves the latest revision of an image from a Docker Registry v2 and checks
// connectivity to registries and images.
//
// A RegistryPoller lists the image's tags, keeps those matching the package's tag filter and
// picks the biggest under the numeric-aware ordering of the sorter package. Registries that
// cannot be reached, or that answer with an error status, yield an empty revision rather than
// an error; malformed protocol exchanges and invalid tag filters are returned as errors.
package poller
