// Package logging writes the startup summary of the watch command.
package logging

import (
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// WriteStartupMessage logs the version, notification setup, watched packages, schedule and
// HTTP API status of a watch.
//
// Parameters:
//   - c: The cobra.Command instance, providing access to flags like --no-startup-message.
//   - sched: The time of the first scheduled cycle, or zero if no schedule is set.
//   - packages: Display names of the watched packages.
//   - notifier: The configured notifier, or nil.
//   - version: The dockerpoller version.
func WriteStartupMessage(
	c *cobra.Command,
	sched time.Time,
	packages []string,
	notifier types.Notifier,
	version string,
) {
	noStartupMessage, _ := c.PersistentFlags().GetBool("no-startup-message")
	if noStartupMessage {
		return
	}

	log := logrus.NewEntry(logrus.StandardLogger())

	log.Info("dockerpoller ", version)

	var notifierNames []string
	if notifier != nil {
		notifierNames = notifier.GetNames()
	}

	LogNotifierInfo(log, notifierNames)
	LogPackageInfo(log, packages)
	LogScheduleInfo(log, c, sched)

	enableMetricsAPI, _ := c.PersistentFlags().GetBool("http-api-metrics")
	enablePollAPI, _ := c.PersistentFlags().GetBool("http-api-poll")

	if enableMetricsAPI || enablePollAPI {
		host, _ := c.PersistentFlags().GetString("http-api-host")
		port, _ := c.PersistentFlags().GetString("http-api-port")

		log.WithFields(logrus.Fields{
			"addr":    host + ":" + port,
			"metrics": enableMetricsAPI,
			"poll":    enablePollAPI,
		}).Info("The HTTP API is enabled")
	}

	if logrus.IsLevelEnabled(logrus.TraceLevel) {
		log.Warn(
			"Trace level enabled: log will include sensitive information as credentials and tokens",
		)
	}
}

// LogNotifierInfo logs the configured notifier names, or that there are none.
func LogNotifierInfo(log *logrus.Entry, notifierNames []string) {
	if len(notifierNames) > 0 {
		log.Info("Using notifications: " + strings.Join(notifierNames, ", "))
	} else {
		log.Info("Using no notifications")
	}
}

// LogPackageInfo logs how many packages are watched. Their names are logged at debug level.
func LogPackageInfo(log *logrus.Entry, packages []string) {
	switch len(packages) {
	case 0:
		log.Warn("No packages to watch")
	case 1:
		log.Info("Watching 1 package")
	default:
		log.Info("Watching " + strconv.Itoa(len(packages)) + " packages")
	}

	for _, name := range packages {
		log.WithField("package", name).Debug("Watching package")
	}
}

// LogScheduleInfo logs when the next cycle runs, or how cycles are triggered otherwise.
func LogScheduleInfo(log *logrus.Entry, c *cobra.Command, sched time.Time) {
	runOnce, _ := c.PersistentFlags().GetBool("run-once")
	enablePollAPI, _ := c.PersistentFlags().GetBool("http-api-poll")

	switch {
	case runOnce:
		log.Info("Running a one time poll.")
	case !sched.IsZero():
		log.Info("Scheduling next run: " + sched.Format("2006-01-02 15:04:05 -0700 MST"))
		log.Info("Next poll in " + formatWait(time.Until(sched)))
	case enablePollAPI:
		log.Info("Polls via HTTP API enabled. Periodic polls are not enabled.")
	default:
		log.Info("Periodic polls are not enabled.")
	}
}
