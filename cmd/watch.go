package cmd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/dockerpoller/internal/api"
	"github.com/nicholas-fedor/dockerpoller/internal/logging"
	"github.com/nicholas-fedor/dockerpoller/internal/meta"
	"github.com/nicholas-fedor/dockerpoller/internal/scheduling"
	"github.com/nicholas-fedor/dockerpoller/pkg/config"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/notifications"
)

var (
	// errPollFailed indicates a one time watch cycle failed for some packages.
	errPollFailed = errors.New("failed to poll packages")
	// errWatchAPI indicates the watch HTTP API could not start.
	errWatchAPI = errors.New("failed to start watch API")
)

// loadWatchList reads the packages listed in the YAML file at path.
func loadWatchList(path string) ([]config.Watch, error) {
	v := viper.New()
	v.SetConfigFile(path)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	return config.LoadWatchList(v)
}

// watchList returns the packages of the --config file, or the package given by flags.
func watchList(cmd *cobra.Command) ([]config.Watch, error) {
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		return loadWatchList(path)
	}

	repo, pkg, err := readPackage(cmd)
	if err != nil {
		return nil, err
	}

	return []config.Watch{{Repository: repo, Package: pkg}}, nil
}

func newWatchCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Polls packages on a schedule and notifies about new tags",
		Long: "Polls every package of the --config file (or the package given by flags) on the " +
			"--schedule, and sends a notification to every --notification-url when a newer tag appears.",
		Args: cobra.NoArgs,
		RunE: runWatch,
	}
}

func runWatch(cmd *cobra.Command, _ []string) error {
	watches, err := watchList(cmd)
	if err != nil {
		return err
	}

	m := metrics.Default()
	defer m.Shutdown()

	p, err := newRegistryPoller(cmd, m)
	if err != nil {
		return err
	}

	notifier, err := notifications.NewNotifier(cmd)
	if err != nil {
		return err
	}

	watcher := scheduling.NewWatcher(p, watches, notifier)

	flagsSet := cmd.Flags()
	runOnce, _ := flagsSet.GetBool("run-once")

	if runOnce {
		logging.WriteStartupMessage(cmd, time.Time{}, watcher.Names(), notifier, meta.Version)

		metric := watcher.Poll(cmd.Context(), nil)

		if notifier != nil {
			notifier.Close()
		}

		if metric.Failed > 0 {
			return fmt.Errorf("%w: %d of %d", errPollFailed, metric.Failed, metric.Polled)
		}

		return nil
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	lock := scheduling.NewLock()

	if err := startWatchAPI(ctx, cmd, watcher, m, lock); err != nil {
		return err
	}

	scheduleSpec, _ := flagsSet.GetString("schedule")
	logrus.WithField("schedule", scheduleSpec).Debug("Retrieved cron schedule specification")

	return scheduling.RunPollsOnSchedule(ctx, scheduling.Schedule{
		Spec:       scheduleSpec,
		Lock:       lock,
		RunOnStart: true,
		Poll: func(ctx context.Context) *metrics.Metric {
			return watcher.Poll(ctx, nil)
		},
		Metrics:  m,
		Notifier: notifier,
		Started: func(next time.Time) {
			logging.WriteStartupMessage(cmd, next, watcher.Names(), notifier, meta.Version)
		},
	})
}

// startWatchAPI serves metrics and poll triggers in the background when enabled.
func startWatchAPI(
	ctx context.Context,
	cmd *cobra.Command,
	watcher *scheduling.Watcher,
	m *metrics.Metrics,
	lock chan bool,
) error {
	flagsSet := cmd.Flags()
	enableMetricsAPI, _ := flagsSet.GetBool("http-api-metrics")
	enablePollAPI, _ := flagsSet.GetBool("http-api-poll")

	if !enableMetricsAPI && !enablePollAPI {
		return nil
	}

	opts := api.Options{
		PollLock: lock,
	}
	opts.Host, _ = flagsSet.GetString("http-api-host")
	opts.Port, _ = flagsSet.GetString("http-api-port")
	opts.Token, _ = flagsSet.GetString("http-api-token")

	if enableMetricsAPI {
		opts.Metrics = m
	}

	if enablePollAPI {
		opts.Poll = watcher.Poll
	}

	if err := api.SetupAndStartAPI(ctx, opts); err != nil {
		return fmt.Errorf("%w: %w", errWatchAPI, err)
	}

	return nil
}
