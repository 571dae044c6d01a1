package notifications

import (
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// NewNotifier creates a Notifier from the command's notification flags.
// It returns nil when no notification URL is configured.
func NewNotifier(c *cobra.Command) (types.Notifier, error) {
	flag := c.Flags()

	urls, _ := flag.GetStringArray("notification-url")
	if len(urls) == 0 {
		logrus.Debug("No notification URLs configured")

		return nil, nil //nolint:nilnil // no notifier configured
	}

	stdout, _ := flag.GetBool("notification-log-stdout")
	tplString, _ := flag.GetString("notification-template")

	data := GetTemplateData(c)
	delay := GetDelay(c)

	logrus.WithFields(logrus.Fields{
		"services": len(urls),
		"template": tplString,
		"stdout":   stdout,
		"delay":    delay,
		"hostname": data.Host,
		"title":    data.Title,
	}).Debug("Creating notifier with configuration")

	notifier, err := createNotifier(urls, tplString, data, stdout, delay)
	if err != nil {
		return nil, err
	}

	return notifier, nil
}

// GetDelay returns the delay before each notification is sent.
func GetDelay(c *cobra.Command) time.Duration {
	delay, _ := c.Flags().GetInt("notifications-delay")
	if delay > 0 {
		return time.Duration(delay) * time.Second
	}

	return 0
}

// GetTitle formats the title based on the passed hostname and tag.
func GetTitle(hostname string, tag string) string {
	titleBuilder := strings.Builder{}
	if tag != "" {
		titleBuilder.WriteRune('[')
		titleBuilder.WriteString(tag)
		titleBuilder.WriteRune(']')
		titleBuilder.WriteRune(' ')
	}

	titleBuilder.WriteString("New image tags")

	if hostname != "" {
		titleBuilder.WriteString(" on ")
		titleBuilder.WriteString(hostname)
	}

	return titleBuilder.String()
}

// GetTemplateData populates the static notification data from flags and environment.
func GetTemplateData(c *cobra.Command) StaticData {
	flag := c.Flags()

	hostname, _ := flag.GetString("notifications-hostname")
	if hostname == "" {
		hostname, _ = os.Hostname()
	}

	title := ""

	if skip, _ := flag.GetBool("notification-skip-title"); !skip {
		tag, _ := flag.GetString("notification-title-tag")
		title = GetTitle(hostname, tag)
	}

	return StaticData{
		Host:  hostname,
		Title: title,
	}
}
