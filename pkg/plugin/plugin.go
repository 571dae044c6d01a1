package plugin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/config"
	"github.com/nicholas-fedor/dockerpoller/pkg/poller"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Request names understood by the handler.
const (
	RequestRepositoryConfiguration         = "repository-configuration"
	RequestPackageConfiguration            = "package-configuration"
	RequestValidateRepositoryConfiguration = "validate-repository-configuration"
	RequestValidatePackageConfiguration    = "validate-package-configuration"
	RequestCheckRepositoryConnection       = "check-repository-connection"
	RequestCheckPackageConnection          = "check-package-connection"
	RequestLatestRevision                  = "latest-revision"
	RequestLatestRevisionSince             = "latest-revision-since"
)

// Errors returned by Handle.
var (
	// ErrUnknownRequest indicates a request name with no handler.
	ErrUnknownRequest = errors.New("unknown request")
	// ErrMalformedRequest indicates a request body that is not a valid envelope.
	ErrMalformedRequest = errors.New("malformed request body")
)

type handlerFunc func(ctx context.Context, req Request) (any, error)

// Handler dispatches plugin requests to a poller.
type Handler struct {
	poller   poller.Poller
	handlers map[string]handlerFunc
}

// NewHandler returns a Handler serving every known request with p.
func NewHandler(p poller.Poller) *Handler {
	h := &Handler{poller: p}
	h.handlers = map[string]handlerFunc{
		RequestRepositoryConfiguration:         h.repositoryConfiguration,
		RequestPackageConfiguration:            h.packageConfiguration,
		RequestValidateRepositoryConfiguration: h.validateRepository,
		RequestValidatePackageConfiguration:    h.validatePackage,
		RequestCheckRepositoryConnection:       h.checkRepository,
		RequestCheckPackageConnection:          h.checkPackage,
		RequestLatestRevision:                  h.latestRevision,
		RequestLatestRevisionSince:             h.latestRevisionSince,
	}

	return h
}

// Requests returns the supported request names, sorted.
func (h *Handler) Requests() []string {
	names := make([]string, 0, len(h.handlers))
	for name := range h.handlers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Handle decodes body and runs the handler registered for name.
func (h *Handler) Handle(ctx context.Context, name string, body []byte) (any, error) {
	handler, ok := h.handlers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownRequest, name)
	}

	req := Request{}

	if len(body) > 0 {
		if err := json.Unmarshal(body, &req); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrMalformedRequest, err)
		}
	}

	logrus.WithField("request", name).Debug("Handling plugin request")

	return handler(ctx, req)
}

func (h *Handler) repositoryConfiguration(context.Context, Request) (any, error) {
	return config.RepositorySchema(), nil
}

func (h *Handler) packageConfiguration(context.Context, Request) (any, error) {
	return config.PackageSchema(), nil
}

func (h *Handler) validateRepository(_ context.Context, req Request) (any, error) {
	return validationErrors(config.ValidateRepositoryValues(req.Repository.Values())), nil
}

func (h *Handler) validatePackage(_ context.Context, req Request) (any, error) {
	return validationErrors(config.ValidatePackageValues(req.Package.Values())), nil
}

func (h *Handler) checkRepository(ctx context.Context, req Request) (any, error) {
	return h.poller.CheckConnectionToRepository(ctx, config.RepositoryFromValues(req.Repository.Values())), nil
}

func (h *Handler) checkPackage(ctx context.Context, req Request) (any, error) {
	return h.poller.CheckConnectionToPackage(
		ctx,
		config.PackageFromValues(req.Package.Values()),
		config.RepositoryFromValues(req.Repository.Values()),
	), nil
}

func (h *Handler) latestRevision(ctx context.Context, req Request) (any, error) {
	revision, err := h.poller.LatestRevision(
		ctx,
		config.PackageFromValues(req.Package.Values()),
		config.RepositoryFromValues(req.Repository.Values()),
	)
	if err != nil {
		return nil, err
	}

	return RevisionResponse(revision), nil
}

func (h *Handler) latestRevisionSince(ctx context.Context, req Request) (any, error) {
	previous := types.Revision{}
	if req.Previous != nil {
		previous = req.Previous.ToRevision()
	}

	revision, err := h.poller.LatestRevisionSince(
		ctx,
		config.PackageFromValues(req.Package.Values()),
		config.RepositoryFromValues(req.Repository.Values()),
		previous,
	)
	if err != nil {
		return nil, err
	}

	return RevisionResponse(revision), nil
}

// RevisionResponse returns the message for revision, EmptyRevision when it carries no tag.
func RevisionResponse(revision types.Revision) any {
	if revision.IsEmpty() {
		return EmptyRevision{}
	}

	return NewRevisionMessage(revision)
}

func validationErrors(result types.ValidationResult) []types.ValidationError {
	if result.Errors == nil {
		return []types.ValidationError{}
	}

	return result.Errors
}
