package types

import "strings"

// Configuration keys used by the plugin host.
const (
	DockerRegistryURLKey  = "DOCKER_REGISTRY_URL"
	DockerRegistryNameKey = "DOCKER_REGISTRY_NAME"
	DockerImageKey        = "DOCKER_IMAGE"
	DockerTagFilterKey    = "DOCKER_TAG_FILTER"
)

// tagsListSuffix is appended to the image path to build the tag listing endpoint.
const tagsListSuffix = "/tags/list"

// RepositoryConfig describes a Docker Registry v2 instance.
type RepositoryConfig struct {
	// RegistryURL is the base URL of the registry API, e.g. "https://registry.example.com/v2/".
	RegistryURL string `key:"DOCKER_REGISTRY_URL"  mapstructure:"url"  validate:"required,registryurl"`
	// RegistryName is the registry host name used when pulling images, e.g. "registry.example.com".
	RegistryName string `key:"DOCKER_REGISTRY_NAME" mapstructure:"name" validate:"required"`
}

// PackageConfig describes an image within a registry and the tags to consider.
type PackageConfig struct {
	// Image is the repository path within the registry, e.g. "library/alpine".
	Image string `key:"DOCKER_IMAGE"      mapstructure:"image"      validate:"required,imagename"`
	// TagFilter is a regular expression selecting candidate tags. Empty matches everything.
	TagFilter string `key:"DOCKER_TAG_FILTER" mapstructure:"tag-filter" validate:"omitempty,tagfilter"`
}

// ImageReference combines a registry endpoint with an image name.
type ImageReference struct {
	RegistryURL string
	Image       string
}

// NewImageReference builds the image reference for a package hosted in a repository.
func NewImageReference(pkg PackageConfig, repo RepositoryConfig) ImageReference {
	return ImageReference{RegistryURL: repo.RegistryURL, Image: pkg.Image}
}

// TagsURL returns the tag listing endpoint, <registryURL><image>/tags/list.
func (r ImageReference) TagsURL() string {
	return r.RegistryURL + r.Image + tagsListSuffix
}

// PackageURL returns the image endpoint probed by package connection checks.
// It is the same endpoint as TagsURL.
func (r ImageReference) PackageURL() string {
	return r.TagsURL()
}

// String returns the image as <registry host path>/<image>.
func (r ImageReference) String() string {
	base := strings.TrimSuffix(r.RegistryURL, "/")

	return base + "/" + strings.TrimPrefix(r.Image, "/")
}
