package poller_test

import (
	"context"
	"net/http"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/onsi/gomega/ghttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nicholas-fedor/dockerpoller/pkg/filters"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/poller"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry/auth"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

const tagsPath = "/v2/library/app/tags/list"

var versionHeader = http.Header{registry.APIVersionHeader: []string{"registry/2.0"}}

func tagsHandler(tags ...string) http.HandlerFunc {
	return ghttp.CombineHandlers(
		ghttp.VerifyRequest(http.MethodGet, tagsPath),
		ghttp.RespondWithJSONEncoded(http.StatusOK, types.TagsList{Name: "library/app", Tags: tags}, versionHeader),
	)
}

var _ = ginkgo.Describe("the registry poller", func() {
	var (
		server  *ghttp.Server
		subject *poller.RegistryPoller
		repo    types.RepositoryConfig
		pkg     types.PackageConfig
		ctx     context.Context
	)

	ginkgo.BeforeEach(func() {
		server = ghttp.NewServer()
		ctx = context.Background()
		repo = types.RepositoryConfig{RegistryURL: server.URL() + "/v2/", RegistryName: "localhost"}
		pkg = types.PackageConfig{Image: "library/app"}

		client := registry.NewClient(
			registry.WithHTTPClient(server.HTTPTestServer.Client()),
			registry.WithCredentials(func(string) types.RegistryCredentials { return types.RegistryCredentials{} }),
		)
		subject = poller.New(client, nil)
	})

	ginkgo.AfterEach(func() {
		server.Close()
	})

	ginkgo.Describe("LatestRevision", func() {
		ginkgo.It("should pick the numerically biggest tag", func() {
			server.AppendHandlers(tagsHandler("1.0", "1.9", "1.10", "latest"))

			revision, err := subject.LatestRevision(ctx, types.PackageConfig{Image: "library/app", TagFilter: `^\d`}, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.Tag).To(gomega.Equal("1.10"))
			gomega.Expect(revision.Source).To(gomega.Equal(types.RevisionSource))
			gomega.Expect(revision.Timestamp.IsZero()).To(gomega.BeFalse())
		})

		ginkgo.It("should match the filter anywhere in the tag", func() {
			server.AppendHandlers(tagsHandler("v1-alpine", "v2-debian", "v3-alpine", "v10-debian"))

			revision, err := subject.LatestRevision(ctx, types.PackageConfig{Image: "library/app", TagFilter: "alpine"}, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.Tag).To(gomega.Equal("v3-alpine"))
		})

		ginkgo.It("should return an empty revision when nothing matches", func() {
			server.AppendHandlers(tagsHandler("latest", "edge"))

			revision, err := subject.LatestRevision(ctx, types.PackageConfig{Image: "library/app", TagFilter: `^\d`}, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.IsEmpty()).To(gomega.BeTrue())
		})

		ginkgo.It("should return an empty revision when the registry answers 404", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, "not found"))

			revision, err := subject.LatestRevision(ctx, pkg, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.IsEmpty()).To(gomega.BeTrue())
		})

		ginkgo.It("should fail for an invalid filter", func() {
			server.AppendHandlers(tagsHandler("1.0"))

			_, err := subject.LatestRevision(ctx, types.PackageConfig{Image: "library/app", TagFilter: "*1"}, repo)
			gomega.Expect(err).To(gomega.MatchError(filters.ErrInvalidTagFilter))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring(repo.RegistryURL))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("library/app"))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring(`"*1"`))
		})

		ginkgo.It("should propagate a challenge without realm", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusUnauthorized, "", http.Header{
				auth.ChallengeHeader: []string{`Bearer service="registry"`},
			}))

			_, err := subject.LatestRevision(ctx, pkg, repo)
			gomega.Expect(err).To(gomega.MatchError(auth.ErrMissingRealm))
		})

		ginkgo.It("should authenticate against the advertised realm", func() {
			challenge := http.Header{
				auth.ChallengeHeader: []string{`Bearer realm="` + server.URL() + `/token",service="registry"`},
			}

			server.AppendHandlers(
				ghttp.RespondWith(http.StatusUnauthorized, "", challenge),
				ghttp.CombineHandlers(
					ghttp.VerifyRequest(http.MethodGet, "/token", "service=registry"),
					ghttp.RespondWithJSONEncoded(http.StatusOK, types.TokenResponse{Token: "secret"}),
				),
				ghttp.CombineHandlers(
					ghttp.VerifyHeaderKV("Authorization", "Bearer secret"),
					tagsHandler("2", "10", "9"),
				),
			)

			revision, err := subject.LatestRevision(ctx, pkg, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.Tag).To(gomega.Equal("10"))
			gomega.Expect(server.ReceivedRequests()).To(gomega.HaveLen(3))
		})
	})

	ginkgo.Describe("LatestRevisionSince", func() {
		ginkgo.It("should return the latest revision when it is newer", func() {
			server.AppendHandlers(tagsHandler("1.0", "1.2"))

			revision, err := subject.LatestRevisionSince(ctx, pkg, repo, types.Revision{Tag: "1.1"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.Tag).To(gomega.Equal("1.2"))
		})

		ginkgo.It("should return the latest revision when it equals the previous one", func() {
			server.AppendHandlers(tagsHandler("1.0", "1.2"))

			revision, err := subject.LatestRevisionSince(ctx, pkg, repo, types.Revision{Tag: "1.2"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.Tag).To(gomega.Equal("1.2"))
		})

		ginkgo.It("should return an empty revision when the previous one is bigger", func() {
			server.AppendHandlers(tagsHandler("1.0", "1.2"))

			revision, err := subject.LatestRevisionSince(ctx, pkg, repo, types.Revision{Tag: "1.10"})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(revision.IsEmpty()).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("connection checks", func() {
		ginkgo.It("should probe the registry base URL", func() {
			server.AppendHandlers(ghttp.CombineHandlers(
				ghttp.VerifyRequest(http.MethodGet, "/v2/"),
				ghttp.RespondWith(http.StatusOK, "{}", versionHeader),
			))

			result := subject.CheckConnectionToRepository(ctx, repo)
			gomega.Expect(result.Success()).To(gomega.BeTrue())
			gomega.Expect(result.Messages).To(gomega.Equal([]string{"Docker registry found."}))
		})

		ginkgo.It("should probe the image tag listing", func() {
			server.AppendHandlers(tagsHandler("1.0"))

			result := subject.CheckConnectionToPackage(ctx, pkg, repo)
			gomega.Expect(result.Success()).To(gomega.BeTrue())
			gomega.Expect(result.Messages).To(gomega.Equal([]string{"Docker image found."}))
		})

		ginkgo.It("should report an unreachable image", func() {
			server.AppendHandlers(ghttp.RespondWith(http.StatusNotFound, ""))

			result := subject.CheckConnectionToPackage(ctx, pkg, repo)
			gomega.Expect(result.Status).To(gomega.Equal(types.StatusFailure))
			gomega.Expect(result.Messages[0]).To(gomega.HavePrefix("Could not find docker image. ["))
		})
	})

	ginkgo.Describe("metrics", func() {
		ginkgo.It("should count operations by result", func() {
			reg := prometheus.NewRegistry()
			m, err := metrics.NewWithRegistry(reg)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			ginkgo.DeferCleanup(m.Shutdown)

			client := registry.NewClient(registry.WithHTTPClient(server.HTTPTestServer.Client()))
			subject = poller.New(client, m)

			server.AppendHandlers(tagsHandler("1.0"), tagsHandler())

			_, err = subject.LatestRevision(ctx, pkg, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			_, err = subject.LatestRevision(ctx, pkg, repo)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			count, err := testutil.GatherAndCount(reg, "dockerpoller_operations_total")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(count).To(gomega.Equal(2))
		})
	})
})
