package pull

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	cerrdefs "github.com/containerd/errdefs"
	"github.com/distribution/reference"
	"github.com/docker/docker/api/types/image"
	dockerClient "github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
)

// Environment variable name parts.
const (
	repoPrefix         = "GO_REPO_"
	packagePrefix      = "GO_PACKAGE_"
	registryNameSuffix = "_DOCKER_REGISTRY_NAME"
	imageSuffix        = "_DOCKER_IMAGE"
	labelSuffix        = "_LABEL"
)

var (
	// ErrMissingVariable indicates a package variable is absent from the environment.
	ErrMissingVariable = errors.New("missing package variable")
	// ErrInvalidImageName indicates the variables do not form a valid image reference.
	ErrInvalidImageName = errors.New("invalid image name")
	// ErrImageNotFound indicates the registry does not know the image or tag.
	ErrImageNotFound = errors.New("image not found")
	// ErrPullFailed indicates the Docker Engine failed to pull the image.
	ErrPullFailed = errors.New("failed to pull image")
)

// ImageAPI is the part of the Docker Engine client used for pulling.
type ImageAPI interface {
	ImagePull(ctx context.Context, ref string, options image.PullOptions) (io.ReadCloser, error)
}

// ProvidedPackages returns the sorted, distinct package ids found in env, a list of
// KEY=VALUE entries as returned by os.Environ.
func ProvidedPackages(env []string) []string {
	ids := []string{}

	for _, entry := range env {
		key, _, _ := strings.Cut(entry, "=")

		id, ok := strings.CutPrefix(key, repoPrefix)
		if !ok {
			continue
		}

		id, ok = strings.CutSuffix(id, registryNameSuffix)
		if !ok || id == "" {
			continue
		}

		if !slices.Contains(ids, id) {
			ids = append(ids, id)
		}
	}

	slices.Sort(ids)

	return ids
}

// EnvMap converts KEY=VALUE entries into a map. Later entries win.
func EnvMap(env []string) map[string]string {
	values := make(map[string]string, len(env))

	for _, entry := range env {
		if key, value, ok := strings.Cut(entry, "="); ok {
			values[key] = value
		}
	}

	return values
}

// ImageName returns <registry>/<image>:<label> for the package id.
func ImageName(env map[string]string, id string) (string, error) {
	lookup := func(key string) (string, error) {
		value, ok := env[key]
		if !ok || value == "" {
			return "", fmt.Errorf("%w: %s", ErrMissingVariable, key)
		}

		return value, nil
	}

	registryName, err := lookup(repoPrefix + id + registryNameSuffix)
	if err != nil {
		return "", err
	}

	repository, err := lookup(packagePrefix + id + imageSuffix)
	if err != nil {
		return "", err
	}

	label, err := lookup(packagePrefix + id + labelSuffix)
	if err != nil {
		return "", err
	}

	name := registryName + "/" + repository + ":" + label

	if _, err := reference.ParseNormalizedNamed(name); err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidImageName, name, err)
	}

	return name, nil
}

// Puller pulls images through the Docker Engine API.
type Puller struct {
	api ImageAPI
	out io.Writer
}

// NewPuller returns a Puller writing pull progress to out. A nil out discards progress.
func NewPuller(api ImageAPI, out io.Writer) *Puller {
	if out == nil {
		out = io.Discard
	}

	return &Puller{api: api, out: out}
}

// NewDockerPuller returns a Puller backed by a Docker client configured from the
// environment (DOCKER_HOST, DOCKER_API_VERSION, DOCKER_TLS_VERIFY).
func NewDockerPuller(out io.Writer) (*Puller, error) {
	cli, err := dockerClient.NewClientWithOpts(
		dockerClient.FromEnv,
		dockerClient.WithAPIVersionNegotiation(),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Docker client: %w", err)
	}

	return NewPuller(cli, out), nil
}

// Pull pulls imageName and waits for the pull to complete.
func (p *Puller) Pull(ctx context.Context, imageName string) error {
	clog := logrus.WithField("image", imageName)

	opts, err := registry.GetPullOptions(imageName)
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrPullFailed, imageName, err)
	}

	clog.Info("Pulling image")

	response, err := p.api.ImagePull(ctx, imageName, opts)
	if err != nil {
		clog.WithError(err).Debug("Failed to initiate image pull")

		if cerrdefs.IsNotFound(err) {
			return fmt.Errorf("%w: %s: %w", ErrImageNotFound, imageName, err)
		}

		return fmt.Errorf("%w: %s: %w", ErrPullFailed, imageName, err)
	}
	defer response.Close()

	// Errors after the pull started are reported inside the progress stream.
	if err := jsonmessage.DisplayJSONMessagesStream(response, p.out, 0, false, nil); err != nil {
		clog.WithError(err).Debug("Image pull reported an error")

		return fmt.Errorf("%w: %s: %w", ErrPullFailed, imageName, err)
	}

	clog.Debug("Image pull completed")

	return nil
}

// PullAll pulls the image of every package provided in env. It pulls every package even
// when some fail, and returns the joined errors.
func (p *Puller) PullAll(ctx context.Context, env []string) ([]string, error) {
	values := EnvMap(env)
	ids := ProvidedPackages(env)

	if len(ids) == 0 {
		logrus.Warn("No packages found in the environment")
	}

	pulled := make([]string, 0, len(ids))

	var errs []error

	for _, id := range ids {
		name, err := ImageName(values, id)
		if err != nil {
			logrus.WithError(err).WithField("package", id).Error("Skipping package")
			errs = append(errs, err)

			continue
		}

		if err := p.Pull(ctx, name); err != nil {
			logrus.WithError(err).WithField("package", id).Error("Failed to pull package image")
			errs = append(errs, err)

			continue
		}

		pulled = append(pulled, name)
	}

	return pulled, errors.Join(errs...)
}
