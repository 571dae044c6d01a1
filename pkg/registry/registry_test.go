package registry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry/auth"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

const (
	tagsPath  = "/v2/library/alpine/tags/list"
	tokenPath = "/token"
)

func noCredentials(string) types.RegistryCredentials { return types.RegistryCredentials{} }

// tokenRegistry serves a registry protected by a bearer challenge whose realm is the same server.
type tokenRegistry struct {
	server        *httptest.Server
	registryHits  atomic.Int32
	tokenHits     atomic.Int32
	tokenBody     string
	acceptToken   bool
	lastTokenAuth atomic.Value
	lastQuery     atomic.Value
}

func newTokenRegistry(tokenBody string, acceptToken bool) *tokenRegistry {
	reg := &tokenRegistry{tokenBody: tokenBody, acceptToken: acceptToken}

	mux := http.NewServeMux()
	mux.HandleFunc(tokenPath, func(w http.ResponseWriter, r *http.Request) {
		reg.tokenHits.Add(1)
		reg.lastTokenAuth.Store(r.Header.Get("Authorization"))
		reg.lastQuery.Store(r.URL.RawQuery)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(reg.tokenBody))
	})
	mux.HandleFunc(tagsPath, func(w http.ResponseWriter, r *http.Request) {
		reg.registryHits.Add(1)

		if reg.acceptToken && r.Header.Get("Authorization") == "Bearer abc" {
			w.Header().Set(registry.APIVersionHeader, "registry/2.0")
			_, _ = w.Write([]byte(`{"name":"library/alpine","tags":["1.0","1.10","1.9"]}`))

			return
		}

		w.Header().Set(auth.ChallengeHeader,
			`Bearer realm="`+reg.server.URL+tokenPath+`",service="registry.test",scope="repository:library/alpine:pull"`)
		w.WriteHeader(http.StatusUnauthorized)
	})

	reg.server = httptest.NewServer(mux)

	return reg
}

var _ = ginkgo.Describe("the registry client", func() {
	var ctx context.Context

	ginkgo.BeforeEach(func() {
		ctx = context.Background()
	})

	ginkgo.Describe("Fetch", func() {
		ginkgo.It("should return the body of a successful response", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gomega.Expect(r.Header.Get("Authorization")).To(gomega.BeEmpty())
				gomega.Expect(r.Header.Get("User-Agent")).To(gomega.Equal("dockerpoller/test"))
				_, _ = w.Write([]byte(`{"tags":[]}`))
			}))
			defer server.Close()

			client := registry.NewClient(
				registry.WithHTTPClient(server.Client()),
				registry.WithCredentials(noCredentials),
				registry.WithUserAgent("dockerpoller/test"),
			)

			res, err := client.Fetch(ctx, server.URL+tagsPath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(res.StatusCode).To(gomega.Equal(http.StatusOK))
			gomega.Expect(string(res.Body)).To(gomega.Equal(`{"tags":[]}`))
		})

		ginkgo.It("should answer a bearer challenge and retry once with the token", func() {
			reg := newTokenRegistry(`{"token":"abc"}`, true)
			defer reg.server.Close()

			client := registry.NewClient(
				registry.WithHTTPClient(reg.server.Client()),
				registry.WithCredentials(func(string) types.RegistryCredentials {
					return types.RegistryCredentials{Username: "user", Password: "pass"}
				}),
			)

			res, err := client.Fetch(ctx, reg.server.URL+tagsPath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(res.Body)).To(gomega.ContainSubstring(`"1.10"`))
			gomega.Expect(reg.registryHits.Load()).To(gomega.Equal(int32(2)))
			gomega.Expect(reg.tokenHits.Load()).To(gomega.Equal(int32(1)))
			gomega.Expect(reg.lastTokenAuth.Load()).To(gomega.HavePrefix("Basic "))
			gomega.Expect(reg.lastQuery.Load()).To(gomega.ContainSubstring("service=registry.test"))
			gomega.Expect(reg.lastQuery.Load()).To(gomega.ContainSubstring("scope=repository%3Alibrary%2Falpine%3Apull"))
		})

		ginkgo.It("should accept access_token when token is absent", func() {
			reg := newTokenRegistry(`{"access_token":"abc"}`, true)
			defer reg.server.Close()

			client := registry.NewClient(
				registry.WithHTTPClient(reg.server.Client()),
				registry.WithCredentials(noCredentials),
			)

			_, err := client.Fetch(ctx, reg.server.URL+tagsPath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(reg.lastTokenAuth.Load()).To(gomega.BeEmpty())
		})

		ginkgo.It("should fail with the retry status when the token is rejected", func() {
			reg := newTokenRegistry(`{"token":"abc"}`, false)
			defer reg.server.Close()

			client := registry.NewClient(
				registry.WithHTTPClient(reg.server.Client()),
				registry.WithCredentials(noCredentials),
			)

			_, err := client.Fetch(ctx, reg.server.URL+tagsPath)

			var statusErr *registry.StatusError
			gomega.Expect(errors.As(err, &statusErr)).To(gomega.BeTrue())
			gomega.Expect(statusErr.StatusCode).To(gomega.Equal(http.StatusUnauthorized))
			gomega.Expect(reg.registryHits.Load()).To(gomega.Equal(int32(2)))
			gomega.Expect(reg.tokenHits.Load()).To(gomega.Equal(int32(1)))
			gomega.Expect(registry.IsUnavailable(err)).To(gomega.BeTrue())
		})

		ginkgo.It("should fail with ErrMalformedTokenResponse for a token body without token", func() {
			reg := newTokenRegistry(`{"expires_in":300}`, true)
			defer reg.server.Close()

			client := registry.NewClient(
				registry.WithHTTPClient(reg.server.Client()),
				registry.WithCredentials(noCredentials),
			)

			_, err := client.Fetch(ctx, reg.server.URL+tagsPath)
			gomega.Expect(err).To(gomega.MatchError(auth.ErrMalformedTokenResponse))
			gomega.Expect(registry.IsUnavailable(err)).To(gomega.BeFalse())
			gomega.Expect(reg.registryHits.Load()).To(gomega.Equal(int32(1)))
		})

		ginkgo.It("should fail with ErrMissingRealm when a 401 has no challenge", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusUnauthorized)
			}))
			defer server.Close()

			client := registry.NewClient(registry.WithHTTPClient(server.Client()), registry.WithCredentials(noCredentials))

			_, err := client.Fetch(ctx, server.URL+tagsPath)
			gomega.Expect(err).To(gomega.MatchError(auth.ErrMissingRealm))
		})

		ginkgo.It("should return a StatusError for other statuses", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			defer server.Close()

			client := registry.NewClient(registry.WithHTTPClient(server.Client()), registry.WithCredentials(noCredentials))

			_, err := client.Fetch(ctx, server.URL+tagsPath)

			var statusErr *registry.StatusError
			gomega.Expect(errors.As(err, &statusErr)).To(gomega.BeTrue())
			gomega.Expect(statusErr.StatusCode).To(gomega.Equal(http.StatusNotFound))
			gomega.Expect(err.Error()).To(gomega.ContainSubstring("404 Not Found"))
		})

		ginkgo.It("should wrap transport failures in ErrRequestFailed", func() {
			server := httptest.NewServer(http.NotFoundHandler())
			url := server.URL + tagsPath
			server.Close()

			client := registry.NewClient(registry.WithCredentials(noCredentials))

			_, err := client.Fetch(ctx, url)
			gomega.Expect(err).To(gomega.MatchError(registry.ErrRequestFailed))
			gomega.Expect(registry.IsUnavailable(err)).To(gomega.BeTrue())
		})
	})

	ginkgo.Describe("FetchTags", func() {
		ginkgo.It("should decode the tag list in registry order", func() {
			reg := newTokenRegistry(`{"token":"abc"}`, true)
			defer reg.server.Close()

			client := registry.NewClient(registry.WithHTTPClient(reg.server.Client()), registry.WithCredentials(noCredentials))

			list, err := client.FetchTags(ctx, reg.server.URL+tagsPath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(list.Name).To(gomega.Equal("library/alpine"))
			gomega.Expect(list.Tags).To(gomega.Equal([]string{"1.0", "1.10", "1.9"}))
		})

		ginkgo.It("should decode null tags as an empty list", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`{"name":"library/alpine","tags":null}`))
			}))
			defer server.Close()

			client := registry.NewClient(registry.WithHTTPClient(server.Client()), registry.WithCredentials(noCredentials))

			list, err := client.FetchTags(ctx, server.URL+tagsPath)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(list.Tags).NotTo(gomega.BeNil())
			gomega.Expect(list.Tags).To(gomega.BeEmpty())
		})

		ginkgo.It("should reject bodies that are not a tag list", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(`<html></html>`))
			}))
			defer server.Close()

			client := registry.NewClient(registry.WithHTTPClient(server.Client()), registry.WithCredentials(noCredentials))

			_, err := client.FetchTags(ctx, server.URL+tagsPath)
			gomega.Expect(err).To(gomega.MatchError(registry.ErrMalformedTagsList))
		})
	})

	ginkgo.Describe("Probe", func() {
		probe := func(handler http.HandlerFunc, subject string) types.ConnectionResult {
			server := httptest.NewServer(handler)
			defer server.Close()

			client := registry.NewClient(registry.WithHTTPClient(server.Client()), registry.WithCredentials(noCredentials))

			return client.Probe(ctx, server.URL+"/v2/", subject)
		}

		ginkgo.It("should succeed for a v2 registry", func() {
			result := probe(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(registry.APIVersionHeader, "registry/2.0")
			}, registry.SubjectRegistry)

			gomega.Expect(result.Status).To(gomega.Equal(types.StatusSuccess))
			gomega.Expect(result.Messages).To(gomega.Equal([]string{"Docker registry found."}))
		})

		ginkgo.It("should list the headers found when the version header is missing", func() {
			result := probe(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("X-Custom", "1")
			}, registry.SubjectRegistry)

			gomega.Expect(result.Status).To(gomega.Equal(types.StatusFailure))
			gomega.Expect(result.Messages).To(gomega.HaveLen(1))
			gomega.Expect(result.Messages[0]).To(gomega.HavePrefix(
				"Missing header: docker-distribution-api-version found only: ["))
			gomega.Expect(result.Messages[0]).To(gomega.HaveSuffix("date, x-custom]"))
		})

		ginkgo.It("should reject unknown version values", func() {
			result := probe(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set(registry.APIVersionHeader, "registry/1.0")
			}, registry.SubjectImage)

			gomega.Expect(result.Status).To(gomega.Equal(types.StatusFailure))
			gomega.Expect(result.Messages).To(gomega.Equal([]string{
				"Unknown value registry/1.0 for header docker-distribution-api-version",
			}))
		})

		ginkgo.It("should report fetch failures with their detail", func() {
			result := probe(http.NotFoundHandler().ServeHTTP, registry.SubjectImage)

			gomega.Expect(result.Status).To(gomega.Equal(types.StatusFailure))
			gomega.Expect(result.Messages).To(gomega.HaveLen(1))
			gomega.Expect(result.Messages[0]).To(gomega.HavePrefix("Could not find docker image. ["))
			gomega.Expect(result.Messages[0]).To(gomega.ContainSubstring("404 Not Found"))
		})

		ginkgo.It("should probe through a bearer challenge", func() {
			reg := newTokenRegistry(`{"token":"abc"}`, true)
			defer reg.server.Close()

			client := registry.NewClient(registry.WithHTTPClient(reg.server.Client()), registry.WithCredentials(noCredentials))

			result := client.Probe(ctx, reg.server.URL+tagsPath, registry.SubjectImage)
			gomega.Expect(result.Success()).To(gomega.BeTrue())
			gomega.Expect(result.Messages).To(gomega.Equal([]string{"Docker image found."}))
		})
	})
})
