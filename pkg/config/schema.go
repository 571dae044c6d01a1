package config

import "github.com/nicholas-fedor/dockerpoller/pkg/types"

// Property describes one configuration field to the plugin host.
type Property struct {
	DisplayName    string `json:"display-name"`
	DisplayOrder   string `json:"display-order"`
	PartOfIdentity bool   `json:"part-of-identity"`
	Required       bool   `json:"required"`
	Secure         bool   `json:"secure"`
}

// Schema maps configuration keys to their properties.
type Schema map[string]Property

// RepositorySchema returns the repository configuration fields.
func RepositorySchema() Schema {
	return Schema{
		types.DockerRegistryURLKey: {
			DisplayName:    "Docker Registry URL",
			DisplayOrder:   "0",
			PartOfIdentity: false,
			Required:       true,
		},
		types.DockerRegistryNameKey: {
			DisplayName:    "Docker Registry Name",
			DisplayOrder:   "1",
			PartOfIdentity: true,
			Required:       true,
		},
	}
}

// PackageSchema returns the package configuration fields.
func PackageSchema() Schema {
	return Schema{
		types.DockerImageKey: {
			DisplayName:    "Docker Image",
			DisplayOrder:   "0",
			PartOfIdentity: true,
			Required:       true,
		},
		types.DockerTagFilterKey: {
			DisplayName:    "Docker Tag Filter Regular Expression",
			DisplayOrder:   "1",
			PartOfIdentity: false,
			Required:       false,
		},
	}
}
