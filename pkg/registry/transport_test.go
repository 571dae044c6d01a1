package registry_test

import (
	"os"
	"path/filepath"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
)

var _ = ginkgo.Describe("NewHTTPClient", func() {
	ginkgo.It("should apply the default timeout", func() {
		client, err := registry.NewHTTPClient(registry.TransportOptions{})
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(client.Timeout).To(gomega.Equal(registry.DefaultTimeout))
	})

	ginkgo.It("should fail for an unreadable CA bundle", func() {
		_, err := registry.NewHTTPClient(registry.TransportOptions{
			CAFile: filepath.Join(ginkgo.GinkgoT().TempDir(), "missing.pem"),
		})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})

	ginkgo.It("should fail for a CA file without certificates", func() {
		path := filepath.Join(ginkgo.GinkgoT().TempDir(), "empty.pem")
		gomega.Expect(os.WriteFile(path, []byte("not a certificate"), 0o600)).To(gomega.Succeed())

		_, err := registry.NewHTTPClient(registry.TransportOptions{CAFile: path})
		gomega.Expect(err).To(gomega.HaveOccurred())
	})
})
