package framework

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"github.com/opencontainers/go-digest"
	"github.com/opencontainers/image-spec/specs-go"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// registryImage is the registry started for tests.
const registryImage = "registry:2"

// errUnexpectedStatus indicates the registry rejected an upload.
var errUnexpectedStatus = errors.New("unexpected registry response")

// emptyConfig is the image configuration shared by every pushed tag.
var emptyConfig = []byte("{}")

// LocalRegistry is a registry container reachable from the test process.
type LocalRegistry struct {
	container testcontainers.Container
	host      string
	client    *http.Client
}

// NewLocalRegistry starts a registry container and waits until it answers.
func NewLocalRegistry(ctx context.Context) (*LocalRegistry, error) {
	req := testcontainers.ContainerRequest{
		Image:        registryImage,
		ExposedPorts: []string{"5000/tcp"},
		WaitingFor: wait.ForHTTP("/v2/").
			WithPort("5000/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to start registry container: %w", err)
	}

	endpoint, err := container.PortEndpoint(ctx, "5000/tcp", "")
	if err != nil {
		_ = container.Terminate(ctx)

		return nil, fmt.Errorf("failed to get registry endpoint: %w", err)
	}

	log.Printf("Local registry started at: %s", endpoint)

	return &LocalRegistry{
		container: container,
		host:      endpoint,
		client:    &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Host returns host:port of the registry.
func (r *LocalRegistry) Host() string {
	return r.host
}

// URL returns the registry API base URL, ending in /v2/.
func (r *LocalRegistry) URL() string {
	return "http://" + r.host + "/v2/"
}

// PushTag publishes tag in repository as a manifest without layers.
func (r *LocalRegistry) PushTag(ctx context.Context, repository, tag string) error {
	configDigest := digest.FromBytes(emptyConfig)

	if err := r.uploadBlob(ctx, repository, configDigest, emptyConfig); err != nil {
		return err
	}

	manifest := ocispec.Manifest{
		Versioned: specs.Versioned{SchemaVersion: 2},
		MediaType: ocispec.MediaTypeImageManifest,
		Config: ocispec.Descriptor{
			MediaType: ocispec.MediaTypeImageConfig,
			Digest:    configDigest,
			Size:      int64(len(emptyConfig)),
		},
		Layers: []ocispec.Descriptor{},
	}

	body, err := json.Marshal(manifest)
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	_, err = r.do(ctx, http.MethodPut, r.URL()+repository+"/manifests/"+tag,
		ocispec.MediaTypeImageManifest, body, http.StatusCreated)

	return err
}

// PushTags publishes every tag in repository.
func (r *LocalRegistry) PushTags(ctx context.Context, repository string, tags ...string) error {
	for _, tag := range tags {
		if err := r.PushTag(ctx, repository, tag); err != nil {
			return fmt.Errorf("failed to push %s:%s: %w", repository, tag, err)
		}
	}

	return nil
}

// uploadBlob runs a monolithic blob upload.
func (r *LocalRegistry) uploadBlob(ctx context.Context, repository string, dgst digest.Digest, content []byte) error {
	res, err := r.do(ctx, http.MethodPost, r.URL()+repository+"/blobs/uploads/", "", nil, http.StatusAccepted)
	if err != nil {
		return err
	}

	location, err := url.Parse(res.Header.Get("Location"))
	if err != nil {
		return fmt.Errorf("invalid upload location: %w", err)
	}

	base, _ := url.Parse(r.URL())
	location = base.ResolveReference(location)

	query := location.Query()
	query.Set("digest", dgst.String())
	location.RawQuery = query.Encode()

	_, err = r.do(ctx, http.MethodPut, location.String(), "application/octet-stream", content, http.StatusCreated)

	return err
}

func (r *LocalRegistry) do(
	ctx context.Context,
	method, target, contentType string,
	body []byte,
	want int,
) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", target, err)
	}
	defer res.Body.Close()

	_, _ = io.Copy(io.Discard, res.Body)

	if res.StatusCode != want {
		return nil, fmt.Errorf("%w: %s %s: %s", errUnexpectedStatus, method, target, res.Status)
	}

	return res, nil
}

// Cleanup terminates the registry container.
func (r *LocalRegistry) Cleanup(ctx context.Context) error {
	if err := r.container.Terminate(ctx); err != nil {
		return fmt.Errorf("failed to terminate registry: %w", err)
	}

	return nil
}
