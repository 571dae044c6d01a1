package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// WatchKey is the configuration file key listing watched packages.
const WatchKey = "packages"

// Watch is a package polled by the watch command.
type Watch struct {
	Name       string                 `mapstructure:"name"`
	Repository types.RepositoryConfig `mapstructure:"repository"`
	Package    types.PackageConfig    `mapstructure:"package"`
}

// DisplayName returns the configured name, falling back to the image reference.
func (w Watch) DisplayName() string {
	if w.Name != "" {
		return w.Name
	}

	return types.NewImageReference(w.Package, w.Repository).String()
}

// LoadWatchList decodes and validates the packages listed under WatchKey.
//
// Example file:
//
//	packages:
//	  - name: alpine
//	    repository:
//	      url: https://registry-1.docker.io/v2/
//	      name: docker.io
//	    package:
//	      image: library/alpine
//	      tag-filter: '^\d+\.\d+$'
func LoadWatchList(v *viper.Viper) ([]Watch, error) {
	var watches []Watch
	if err := v.UnmarshalKey(WatchKey, &watches); err != nil {
		return nil, fmt.Errorf("%w: failed to decode %s: %w", ErrInvalidConfig, WatchKey, err)
	}

	problems := []string{}

	for i, watch := range watches {
		if err := Check(watch.Package, watch.Repository); err != nil {
			problems = append(problems, fmt.Sprintf("%s[%d] (%s): %v", WatchKey, i, watch.DisplayName(), err))
		}
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}

	return watches, nil
}
