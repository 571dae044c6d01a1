// Package scheduling runs watch cycles on a cron schedule.
// It serializes cycles through a lock channel shared with the HTTP API and shuts down
// gracefully on interrupt signals or context cancellation.
package scheduling

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron"
	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// pollWaitTimeout bounds how long shutdown waits for a running cycle.
const pollWaitTimeout = 60 * time.Second

// Schedule describes a scheduled watch.
type Schedule struct {
	// Spec is the cron specification. Empty disables periodic cycles.
	Spec string
	// Lock is shared with the HTTP API. Nil creates a new one.
	Lock chan bool
	// RunOnStart runs a cycle before the first scheduled one.
	RunOnStart bool
	// Poll runs one watch cycle.
	Poll func(ctx context.Context) *metrics.Metric
	// Metrics receives cycle metrics. Nil disables them.
	Metrics *metrics.Metrics
	// Notifier is closed on shutdown. It may be nil.
	Notifier types.Notifier
	// Started is called once with the time of the first scheduled cycle, or the zero time.
	Started func(next time.Time)
}

// NewLock returns a lock channel holding its single token.
func NewLock() chan bool {
	lock := make(chan bool, 1)
	lock <- true

	return lock
}

// WaitForRunningPoll waits for a running cycle to release the lock before shutdown.
func WaitForRunningPoll(ctx context.Context, lock chan bool) {
	logrus.Debug("Checking lock status before shutdown.")

	if len(lock) == 0 {
		select {
		case <-lock:
			logrus.Debug("Lock acquired, poll finished.")
		case <-time.After(pollWaitTimeout):
			logrus.Warn("Timeout waiting for running poll to finish, proceeding with shutdown.")
		case <-ctx.Done():
			logrus.Warn("Context cancelled while waiting for running poll.")
		}
	} else {
		logrus.Debug("No poll running, lock available.")
	}
}

// RunPollsOnSchedule runs watch cycles according to the schedule until ctx is cancelled or the
// process receives SIGINT or SIGTERM. A cycle that fires while another holds the lock is skipped
// and recorded as such.
func RunPollsOnSchedule(ctx context.Context, schedule Schedule) error {
	lock := schedule.Lock
	if lock == nil {
		lock = NewLock()
	}

	scheduler := cron.New()

	pollFunc := func() {
		select {
		case v := <-lock:
			defer func() { lock <- v }()

			metric := schedule.Poll(ctx)
			schedule.Metrics.RegisterPoll(metric)
		default:
			schedule.Metrics.RegisterPoll(nil)
			logrus.Debug("Skipped another poll already running.")
		}

		if nextRuns := scheduler.Entries(); len(nextRuns) > 0 {
			logrus.Debug("Scheduled next run: " + nextRuns[0].Next.String())
		}
	}

	if schedule.Spec != "" {
		if err := scheduler.AddFunc(schedule.Spec, pollFunc); err != nil {
			return fmt.Errorf("failed to schedule polls: %w", err)
		}
	}

	var nextRun time.Time
	if entries := scheduler.Entries(); len(entries) > 0 {
		nextRun = entries[0].Schedule.Next(time.Now())
	}

	if schedule.Started != nil {
		schedule.Started(nextRun)
	}

	if schedule.RunOnStart {
		pollFunc()
	}

	scheduler.Start()

	interrupt := make(chan os.Signal, 1)
	signal.Notify(interrupt, os.Interrupt, syscall.SIGTERM)

	defer signal.Stop(interrupt)

	select {
	case <-ctx.Done():
		logrus.Debug("Context canceled, stopping scheduler...")
	case <-interrupt:
		logrus.Debug("Received interrupt signal, stopping scheduler...")
	}

	scheduler.Stop()
	logrus.Debug("Waiting for running poll to be finished...")

	WaitForRunningPoll(ctx, lock)

	if schedule.Notifier != nil {
		schedule.Notifier.Close()
	}

	logrus.Debug("Scheduler stopped and poll completed.")

	return nil
}
