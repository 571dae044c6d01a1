package notifications

import (
	"errors"
	"sync"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// mockRouter records the messages it is asked to send.
type mockRouter struct {
	mu       sync.Mutex
	messages []string
	titles   []string
	errs     []error
}

func (r *mockRouter) Send(message string, params *shoutrrrTypes.Params) []error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.messages = append(r.messages, message)

	r.titles = append(r.titles, (*params)["title"])

	return r.errs
}

func (r *mockRouter) Messages() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	return append([]string(nil), r.messages...)
}

var updates = []types.PackageUpdate{
	{
		Image:    types.ImageReference{RegistryURL: "https://registry.example.com/v2/", Image: "team/app"},
		Previous: types.Revision{Tag: "1.9"},
		Latest:   types.Revision{Tag: "1.10"},
	},
	{
		Image:  types.ImageReference{RegistryURL: "https://registry.example.com/v2/", Image: "team/db"},
		Latest: types.Revision{Tag: "2"},
	},
}

func notifierWith(r router, tplString string) *shoutrrrNotifier {
	tpl, err := getShoutrrrTemplate(tplString)
	gomega.Expect(err).NotTo(gomega.HaveOccurred())

	return newNotifier([]string{"logger://", "generic://example.com"}, r, tpl,
		StaticData{Title: "New image tags on host", Host: "host"}, 0)
}

var _ = ginkgo.Describe("the shoutrrr notifier", func() {
	ginkgo.It("should render the default template", func() {
		r := &mockRouter{}
		notifier := notifierWith(r, "")

		gomega.Expect(notifier.Notify(updates)).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.Equal([]string{
			"2 new tags found\n" +
				"- https://registry.example.com/v2/team/app: 1.9 -> 1.10\n" +
				"- https://registry.example.com/v2/team/db: none -> 2",
		}))
		gomega.Expect(r.titles).To(gomega.Equal([]string{"New image tags on host"}))
	})

	ginkgo.It("should render the compact template by name", func() {
		r := &mockRouter{}
		notifier := notifierWith(r, "compact")

		gomega.Expect(notifier.Notify(updates)).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.Equal([]string{"team/app:1.10, team/db:2"}))
	})

	ginkgo.It("should render custom templates with template functions", func() {
		r := &mockRouter{}
		notifier := notifierWith(r, `{{range .Updates}}{{ToUpper .Latest.Tag}}{{end}} {{Title .Host}}`)

		gomega.Expect(notifier.Notify([]types.PackageUpdate{{Latest: types.Revision{Tag: "v1-rc"}}})).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.Equal([]string{"V1-RC Host"}))
	})

	ginkgo.It("should render JSON", func() {
		r := &mockRouter{}
		notifier := notifierWith(r, "json")

		gomega.Expect(notifier.Notify(updates[:1])).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.HaveLen(1))
		gomega.Expect(r.Messages()[0]).To(gomega.ContainSubstring(`"title": "New image tags on host"`))
		gomega.Expect(r.Messages()[0]).To(gomega.ContainSubstring(`"revision": "1.10"`))
	})

	ginkgo.It("should skip empty update lists", func() {
		r := &mockRouter{}
		notifier := notifierWith(r, "")

		gomega.Expect(notifier.Notify(nil)).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.BeEmpty())
	})

	ginkgo.It("should keep sending after delivery errors", func() {
		r := &mockRouter{errs: []error{nil, errors.New("unreachable")}}
		notifier := notifierWith(r, "compact")

		gomega.Expect(notifier.Notify(updates[:1])).To(gomega.Succeed())
		gomega.Expect(notifier.Notify(updates[1:])).To(gomega.Succeed())
		notifier.Close()

		gomega.Expect(r.Messages()).To(gomega.Equal([]string{"team/app:1.10", "team/db:2"}))
	})

	ginkgo.It("should refuse notifications after Close", func() {
		notifier := notifierWith(&mockRouter{}, "")
		notifier.Close()
		notifier.Close()

		gomega.Expect(notifier.Notify(updates)).To(gomega.MatchError(ErrNotifierClosed))
	})

	ginkgo.It("should report service names from URL schemes", func() {
		notifier := notifierWith(&mockRouter{}, "")
		defer notifier.Close()

		gomega.Expect(notifier.GetNames()).To(gomega.Equal([]string{"logger", "generic"}))
		gomega.Expect(notifier.GetURLs()).To(gomega.HaveLen(2))
		gomega.Expect(GetScheme("no-scheme")).To(gomega.Equal("invalid"))
	})

	ginkgo.It("should reject templates that do not parse", func() {
		_, err := getShoutrrrTemplate("{{ .Updates")
		gomega.Expect(err).To(gomega.MatchError(ErrInvalidTemplate))
	})
})
