package registry_test

import (
	"encoding/base64"
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

func setEnv(key, value string) {
	previous, existed := os.LookupEnv(key)
	gomega.Expect(os.Setenv(key, value)).To(gomega.Succeed())

	ginkgo.DeferCleanup(func() {
		if existed {
			_ = os.Setenv(key, previous)
		} else {
			_ = os.Unsetenv(key)
		}
	})
}

var _ = ginkgo.Describe("registry credentials", func() {
	ginkgo.BeforeEach(func() {
		setEnv("REPO_USER", "")
		setEnv("REPO_PASS", "")
		setEnv("DOCKER_CONFIG", ginkgo.GinkgoT().TempDir())
	})

	ginkgo.When("environment credentials are set", func() {
		ginkgo.It("should prefer them over the config file", func() {
			setEnv("REPO_USER", "env-user")
			setEnv("REPO_PASS", "env-pass")

			creds := registry.CredentialsFor("https://registry.example.com/v2/app/tags/list")
			gomega.Expect(creds).To(gomega.Equal(types.RegistryCredentials{Username: "env-user", Password: "env-pass"}))
		})

		ginkgo.It("should encode them for pulls", func() {
			setEnv("REPO_USER", "env-user")
			setEnv("REPO_PASS", "env-pass")

			encoded, err := registry.EncodedAuth("registry.example.com/app:1.0")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())

			raw, err := base64.URLEncoding.DecodeString(encoded)
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(string(raw)).To(gomega.ContainSubstring(`"username":"env-user"`))
		})
	})

	ginkgo.When("a docker config holds credentials", func() {
		ginkgo.BeforeEach(func() {
			dir := ginkgo.GinkgoT().TempDir()
			setEnv("DOCKER_CONFIG", dir)

			config, err := json.Marshal(map[string]any{
				"auths": map[string]any{
					"registry.example.com:5000": map[string]string{
						"auth": base64.StdEncoding.EncodeToString([]byte("cfg-user:cfg-pass")),
					},
				},
			})
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(os.WriteFile(filepath.Join(dir, "config.json"), config, 0o600)).To(gomega.Succeed())
		})

		ginkgo.It("should look them up by the registry URL host", func() {
			creds := registry.CredentialsFor("https://registry.example.com:5000/v2/app/tags/list")
			gomega.Expect(creds.Username).To(gomega.Equal("cfg-user"))
			gomega.Expect(creds.Password).To(gomega.Equal("cfg-pass"))
		})

		ginkgo.It("should return empty credentials for other hosts", func() {
			creds := registry.CredentialsFor("https://other.example.com/v2/app/tags/list")
			gomega.Expect(creds.IsEmpty()).To(gomega.BeTrue())
		})

		ginkgo.It("should build pull options with a privilege func", func() {
			opts, err := registry.GetPullOptions("registry.example.com:5000/app:1.0")
			gomega.Expect(err).NotTo(gomega.HaveOccurred())
			gomega.Expect(opts.RegistryAuth).NotTo(gomega.BeEmpty())
			gomega.Expect(opts.PrivilegeFunc).NotTo(gomega.BeNil())
		})
	})

	ginkgo.It("should return no pull options without credentials", func() {
		opts, err := registry.GetPullOptions("registry.example.com:5000/app:1.0")
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(opts.RegistryAuth).To(gomega.BeEmpty())
	})
})
