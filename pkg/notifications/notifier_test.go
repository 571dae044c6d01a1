package notifications_test

import (
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/flags"
	"github.com/nicholas-fedor/dockerpoller/pkg/notifications"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

func newCommand(args ...string) *cobra.Command {
	cmd := &cobra.Command{}
	flags.RegisterNotificationFlags(cmd)
	gomega.Expect(cmd.ParseFlags(args)).To(gomega.Succeed())

	return cmd
}

var _ = ginkgo.Describe("notifier configuration", func() {
	ginkgo.It("should not create a notifier without URLs", func() {
		notifier, err := notifications.NewNotifier(newCommand())
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(notifier).To(gomega.BeNil())
	})

	ginkgo.It("should create a notifier for logger URLs", func() {
		notifier, err := notifications.NewNotifier(newCommand("--notification-url", "logger://"))
		gomega.Expect(err).NotTo(gomega.HaveOccurred())
		gomega.Expect(notifier).NotTo(gomega.BeNil())
		defer notifier.Close()

		gomega.Expect(notifier.GetNames()).To(gomega.Equal([]string{"logger"}))
		gomega.Expect(notifier.Notify([]types.PackageUpdate{{Latest: types.Revision{Tag: "1.0"}}})).To(gomega.Succeed())
	})

	ginkgo.It("should fail for unsupported services", func() {
		_, err := notifications.NewNotifier(newCommand("--notification-url", "nosuchservice://host"))
		gomega.Expect(err).To(gomega.MatchError(notifications.ErrRouterSetup))
	})

	ginkgo.It("should fail for invalid templates", func() {
		_, err := notifications.NewNotifier(newCommand(
			"--notification-url", "logger://",
			"--notification-template", "{{ .Broken",
		))
		gomega.Expect(err).To(gomega.MatchError(notifications.ErrInvalidTemplate))
	})

	ginkgo.DescribeTable("titles",
		func(hostname, tag, expected string) {
			gomega.Expect(notifications.GetTitle(hostname, tag)).To(gomega.Equal(expected))
		},
		ginkgo.Entry("plain", "", "", "New image tags"),
		ginkgo.Entry("with host", "ci", "", "New image tags on ci"),
		ginkgo.Entry("with host and tag", "ci", "prod", "[prod] New image tags on ci"),
	)

	ginkgo.It("should read the title and delay from flags", func() {
		cmd := newCommand(
			"--notifications-hostname", "ci",
			"--notification-title-tag", "prod",
			"--notifications-delay", "2",
		)

		gomega.Expect(notifications.GetTemplateData(cmd)).To(gomega.Equal(notifications.StaticData{
			Title: "[prod] New image tags on ci",
			Host:  "ci",
		}))
		gomega.Expect(notifications.GetDelay(cmd)).To(gomega.Equal(2 * time.Second))
	})

	ginkgo.It("should skip the title when requested", func() {
		cmd := newCommand("--notifications-hostname", "ci", "--notification-skip-title")
		gomega.Expect(notifications.GetTemplateData(cmd).Title).To(gomega.BeEmpty())
	})
})
