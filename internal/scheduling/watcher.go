package scheduling

import (
	"context"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/nicholas-fedor/dockerpoller/pkg/config"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/poller"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Watcher polls a fixed list of packages and remembers the last revision seen for each.
type Watcher struct {
	poller    poller.Poller
	watches   []config.Watch
	notifier  types.Notifier
	mu        sync.Mutex
	revisions map[string]types.Revision
}

// NewWatcher returns a Watcher over watches. A nil notifier disables notifications.
func NewWatcher(p poller.Poller, watches []config.Watch, notifier types.Notifier) *Watcher {
	return &Watcher{
		poller:    p,
		watches:   watches,
		notifier:  notifier,
		revisions: make(map[string]types.Revision, len(watches)),
	}
}

// Names returns the display names of the watched packages.
func (w *Watcher) Names() []string {
	names := make([]string, 0, len(w.watches))
	for _, watch := range w.watches {
		names = append(names, watch.DisplayName())
	}

	return names
}

// Revision returns the last revision recorded for the named package.
func (w *Watcher) Revision(name string) (types.Revision, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	revision, ok := w.revisions[name]

	return revision, ok
}

// Poll runs one cycle over the named packages, or over every package when names is empty.
//
// The first revision found for a package is recorded as its baseline. Later cycles report a
// change whenever the resolved tag differs from the recorded one, and send one notification
// for all changes of the cycle.
func (w *Watcher) Poll(ctx context.Context, names []string) *metrics.Metric {
	metric := &metrics.Metric{}

	var updates []types.PackageUpdate

	for _, watch := range w.watches {
		name := watch.DisplayName()
		if len(names) > 0 && !slices.Contains(names, name) {
			continue
		}

		if ctx.Err() != nil {
			logrus.WithError(ctx.Err()).Debug("Poll cycle cancelled")

			break
		}

		metric.Polled++

		update, changed, err := w.pollOne(ctx, watch)
		if err != nil {
			metric.Failed++

			logrus.WithError(err).WithField("package", name).Warn("Failed to poll package")

			continue
		}

		if changed {
			metric.Changed++
			updates = append(updates, update)
		}
	}

	logrus.WithFields(logrus.Fields{
		"polled":  metric.Polled,
		"changed": metric.Changed,
		"failed":  metric.Failed,
	}).Info("Poll cycle done")

	if len(updates) > 0 && w.notifier != nil {
		if err := w.notifier.Notify(updates); err != nil {
			logrus.WithError(err).Error("Failed to queue notification")
		}
	}

	return metric
}

func (w *Watcher) pollOne(ctx context.Context, watch config.Watch) (types.PackageUpdate, bool, error) {
	name := watch.DisplayName()
	previous, known := w.Revision(name)

	var (
		latest types.Revision
		err    error
	)

	if known {
		latest, err = w.poller.LatestRevisionSince(ctx, watch.Package, watch.Repository, previous)
	} else {
		latest, err = w.poller.LatestRevision(ctx, watch.Package, watch.Repository)
	}

	if err != nil {
		return types.PackageUpdate{}, false, err
	}

	fields := logrus.Fields{
		"package":  name,
		"previous": previous.Tag,
		"latest":   latest.Tag,
	}

	if latest.IsEmpty() || latest.Tag == previous.Tag {
		logrus.WithFields(fields).Debug("No new revision")

		return types.PackageUpdate{}, false, nil
	}

	w.mu.Lock()
	w.revisions[name] = latest
	w.mu.Unlock()

	if !known {
		logrus.WithFields(fields).Info("Tracking package")

		return types.PackageUpdate{}, false, nil
	}

	logrus.WithFields(fields).Info("Found new revision")

	return types.PackageUpdate{
		Image:    types.NewImageReference(watch.Package, watch.Repository),
		Previous: previous,
		Latest:   latest,
	}, true, nil
}
