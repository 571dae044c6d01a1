// Package mocks provides mock implementations of the poller interfaces for testing.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Poller is a mock type for the Poller type.
type Poller struct {
	mock.Mock
}

// CheckConnectionToRepository provides a mock function with given fields: ctx, repo.
func (_m *Poller) CheckConnectionToRepository(
	ctx context.Context,
	repo types.RepositoryConfig,
) types.ConnectionResult {
	ret := _m.Called(ctx, repo)

	return ret.Get(0).(types.ConnectionResult)
}

// CheckConnectionToPackage provides a mock function with given fields: ctx, pkg, repo.
func (_m *Poller) CheckConnectionToPackage(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) types.ConnectionResult {
	ret := _m.Called(ctx, pkg, repo)

	return ret.Get(0).(types.ConnectionResult)
}

// LatestRevision provides a mock function with given fields: ctx, pkg, repo.
func (_m *Poller) LatestRevision(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
) (types.Revision, error) {
	ret := _m.Called(ctx, pkg, repo)

	var result0 types.Revision
	if rf, ok := ret.Get(0).(func(context.Context, types.PackageConfig, types.RepositoryConfig) types.Revision); ok {
		result0 = rf(ctx, pkg, repo)
	} else {
		result0 = ret.Get(0).(types.Revision)
	}

	return result0, ret.Error(1)
}

// LatestRevisionSince provides a mock function with given fields: ctx, pkg, repo, previous.
func (_m *Poller) LatestRevisionSince(
	ctx context.Context,
	pkg types.PackageConfig,
	repo types.RepositoryConfig,
	previous types.Revision,
) (types.Revision, error) {
	ret := _m.Called(ctx, pkg, repo, previous)

	return ret.Get(0).(types.Revision), ret.Error(1)
}
