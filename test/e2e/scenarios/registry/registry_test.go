package registry_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nicholas-fedor/dockerpoller/pkg/poller"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
	"github.com/nicholas-fedor/dockerpoller/test/e2e/framework"
)

const image = "e2e/app"

func TestRegistryPolling(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping end-to-end test in short mode")
	}

	fw := framework.NewE2EFramework(t)

	fw.RunTestWithCleanup(t, func() error {
		ctx := fw.Context()

		reg, err := fw.CreateLocalRegistry()
		if err != nil {
			return err
		}

		if err := reg.PushTags(ctx, image, "1.2", "1.9", "1.10", "1.11-rc1", "latest"); err != nil {
			return err
		}

		p := poller.New(registry.NewClient(), nil)
		repo := types.RepositoryConfig{RegistryURL: reg.URL(), RegistryName: reg.Host()}
		pkg := types.PackageConfig{Image: image, TagFilter: `^1\.\d+$`}

		t.Run("repository connection", func(t *testing.T) {
			result := p.CheckConnectionToRepository(ctx, repo)
			assert.True(t, result.Success(), result.Messages)
		})

		t.Run("package connection", func(t *testing.T) {
			result := p.CheckConnectionToPackage(ctx, pkg, repo)
			assert.True(t, result.Success(), result.Messages)
		})

		t.Run("missing package", func(t *testing.T) {
			missing := types.PackageConfig{Image: "e2e/missing"}
			result := p.CheckConnectionToPackage(ctx, missing, repo)
			assert.False(t, result.Success())
		})

		t.Run("latest revision", func(t *testing.T) {
			revision, err := p.LatestRevision(ctx, pkg, repo)
			require.NoError(t, err)
			assert.Equal(t, "1.10", revision.Tag)
			assert.Equal(t, types.RevisionSource, revision.Source)
		})

		t.Run("latest revision since", func(t *testing.T) {
			revision, err := p.LatestRevisionSince(ctx, pkg, repo, types.NewRevision("1.11"))
			require.NoError(t, err)
			assert.True(t, revision.IsEmpty())

			revision, err = p.LatestRevisionSince(ctx, pkg, repo, types.NewRevision("1.10"))
			require.NoError(t, err)
			assert.Equal(t, "1.10", revision.Tag)

			require.NoError(t, reg.PushTag(ctx, image, "1.12"))

			revision, err = p.LatestRevisionSince(ctx, pkg, repo, types.NewRevision("1.10"))
			require.NoError(t, err)
			assert.Equal(t, "1.12", revision.Tag)
		})

		return nil
	})
}
