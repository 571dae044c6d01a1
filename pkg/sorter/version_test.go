package sorter_test

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/nicholas-fedor/dockerpoller/pkg/sorter"
)

var _ = ginkgo.Describe("numeric-aware ordering", func() {
	ginkgo.Describe("ExpandNumbers", func() {
		ginkgo.It("pads every digit run to six digits", func() {
			gomega.Expect(sorter.ExpandNumbers("123.1-X")).To(gomega.Equal("000123.000001-X"))
		})

		ginkgo.It("leaves strings without digits untouched", func() {
			gomega.Expect(sorter.ExpandNumbers("latest")).To(gomega.Equal("latest"))
			gomega.Expect(sorter.ExpandNumbers("")).To(gomega.Equal(""))
		})

		ginkgo.It("drops leading zeros before padding", func() {
			gomega.Expect(sorter.ExpandNumbers("v007")).To(gomega.Equal("v000007"))
			gomega.Expect(sorter.ExpandNumbers("0000000")).To(gomega.Equal("000000"))
		})

		ginkgo.It("keeps runs above 999999 at their natural width", func() {
			gomega.Expect(sorter.ExpandNumbers("1234567")).To(gomega.Equal("1234567"))
		})

		ginkgo.It("handles digits at both ends of the tag", func() {
			gomega.Expect(sorter.ExpandNumbers("1-alpine3")).To(gomega.Equal("000001-alpine000003"))
		})
	})

	ginkgo.Describe("Biggest", func() {
		ginkgo.DescribeTable("picks the numerically greater tag",
			func(first, second, expected string) {
				gomega.Expect(sorter.Biggest(first, second)).To(gomega.Equal(expected))
			},
			ginkgo.Entry("longer minor wins", "1.100", "1.11", "1.100"),
			ginkgo.Entry("two digit minor beats one digit", "1.2", "1.11", "1.11"),
			ginkgo.Entry("major dominates", "2.0", "1.100", "2.0"),
			ginkgo.Entry("any tag beats the empty seed", "", "0", "0"),
			ginkgo.Entry("empty loses when first", "1.0", "", "1.0"),
		)

		ginkgo.It("returns the second argument on ties", func() {
			gomega.Expect(sorter.Biggest("1.01", "1.1")).To(gomega.Equal("1.1"))
			gomega.Expect(sorter.Biggest("1.1", "1.01")).To(gomega.Equal("1.01"))
		})
	})

	ginkgo.Describe("Latest", func() {
		ginkgo.It("returns the maximum tag", func() {
			tags := []string{"1.1", "1.11", "1.100", "1.2", "1.3"}
			gomega.Expect(sorter.Latest(tags)).To(gomega.Equal("1.100"))
		})

		ginkgo.It("returns an empty string for no tags", func() {
			gomega.Expect(sorter.Latest(nil)).To(gomega.BeEmpty())
		})
	})
})
