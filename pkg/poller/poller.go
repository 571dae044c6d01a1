package poller

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/filters"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/sorter"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Poller is the set of operations offered to the plugin host.
type Poller interface {
	CheckConnectionToRepository(ctx context.Context, repo types.RepositoryConfig) types.ConnectionResult
	CheckConnectionToPackage(
		ctx context.Context,
		pkg types.PackageConfig,
		repo types.RepositoryConfig,
	) types.ConnectionResult
	LatestRevision(ctx context.Context, pkg types.PackageConfig, repo types.RepositoryConfig) (types.Revision, error)
	LatestRevisionSince(
		ctx context.Context,
		pkg types.PackageConfig,
		repo types.RepositoryConfig,
		previous types.Revision,
	) (types.Revision, error)
}

// Registry is the registry access a RegistryPoller needs. *registry.Client satisfies it.
type Registry interface {
	FetchTags(ctx context.Context, url string) (types.TagsList, error)
	Probe(ctx context.Context, url, subject string) types.ConnectionResult
}

var (
	_ Poller   = (*RegistryPoller)(nil)
	_ Registry = (*registry.Client)(nil)
)

// RegistryPoller implements Poller against a Docker Registry v2.
type RegistryPoller struct {
	registry Registry
	metrics  *metrics.Metrics
}

// New returns a RegistryPoller. A nil metrics collector disables metrics.
func New(reg Registry, m *metrics.Metrics) *RegistryPoller {
	return &RegistryPoller{registry: reg, metrics: m}
}

// CheckConnectionToRepository probes the registry base URL.
func (p *RegistryPoller) CheckConnectionToRepository(
	ctx context.Context,
	repo types.RepositoryConfig,
) types.ConnectionResult {
	result := p.registry.Probe(ctx, repo.RegistryURL, registry.SubjectRegistry)
	p.metrics.ObserveOperation(metrics.OperationCheckRepository, connectionOutcome(result))

	return result
}

// CheckConnectionToPackage probes the image's tag listing endpoint.
func (p *RegistryPoller) CheckConnectionToPackage(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) types.ConnectionResult {
	ref := types.NewImageReference(pkg, repo)

	result := p.registry.Probe(ctx, ref.PackageURL(), registry.SubjectImage)
	p.metrics.ObserveOperation(metrics.OperationCheckPackage, connectionOutcome(result))

	return result
}

// LatestRevision returns the biggest tag matching the package's filter, or an empty revision
// when no tag matches or the registry is unavailable.
func (p *RegistryPoller) LatestRevision(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) (types.Revision, error) {
	revision, err := p.latestRevision(ctx, pkg, repo)
	p.metrics.ObserveOperation(metrics.OperationLatestRevision, revisionOutcome(revision, err))

	return revision, err
}

// LatestRevisionSince returns the latest revision unless it orders below previous, in which
// case it returns an empty revision. Equal tags return the latest revision.
func (p *RegistryPoller) LatestRevisionSince(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
	previous types.Revision,
) (types.Revision, error) {
	latest, err := p.latestRevision(ctx, pkg, repo)
	if err == nil && sorter.Biggest(previous.Tag, latest.Tag) != latest.Tag {
		logrus.WithFields(logrus.Fields{
			"image":    pkg.Image,
			"previous": previous.Tag,
			"latest":   latest.Tag,
		}).Debug("Latest tag is older than the previous revision")

		latest = types.Revision{}
	}

	p.metrics.ObserveOperation(metrics.OperationLatestRevisionSince, revisionOutcome(latest, err))

	return latest, err
}

// MatchingTags returns the image's tags that match the package's filter, in registry order.
func (p *RegistryPoller) MatchingTags(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) ([]string, error) {
	ref := types.NewImageReference(pkg, repo)
	fields := logrus.Fields{
		"image": ref.String(),
		"url":   ref.TagsURL(),
	}

	tags, err := p.fetchTags(ctx, ref.TagsURL(), fields)
	if err != nil {
		return nil, err
	}

	matching, err := filters.FilterTags(tags, pkg.TagFilter)
	if err != nil {
		return nil, fmt.Errorf("failed to filter tags of %s: %w", ref.String(), err)
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"tags":     len(tags),
		"matching": len(matching),
		"filter":   pkg.TagFilter,
	}).Debug("Filtered tags")

	p.metrics.ObserveMatchingTags(ref.String(), len(matching))

	return matching, nil
}

func (p *RegistryPoller) latestRevision(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) (types.Revision, error) {
	matching, err := p.MatchingTags(ctx, pkg, repo)
	if err != nil {
		return types.Revision{}, err
	}

	if len(matching) == 0 {
		logrus.WithField("image", pkg.Image).Info("No matching tags found")

		return types.Revision{}, nil
	}

	return types.NewRevision(sorter.Latest(matching)), nil
}

// fetchTags lists the tags at url. An unavailable registry yields an empty list.
func (p *RegistryPoller) fetchTags(ctx context.Context, url string, fields logrus.Fields) ([]string, error) {
	list, err := p.registry.FetchTags(ctx, url)
	if err == nil {
		return list.Tags, nil
	}

	if registry.IsUnavailable(err) {
		logrus.WithError(err).WithFields(fields).Warn("Could not list tags, treating as no tags")

		return []string{}, nil
	}

	return nil, fmt.Errorf("failed to list tags: %w", err)
}

func connectionOutcome(result types.ConnectionResult) string {
	if result.Success() {
		return metrics.ResultSuccess
	}

	return metrics.ResultFailure
}

func revisionOutcome(revision types.Revision, err error) string {
	switch {
	case err != nil:
		return metrics.ResultError
	case revision.IsEmpty():
		return metrics.ResultEmpty
	default:
		return metrics.ResultSuccess
	}
}
