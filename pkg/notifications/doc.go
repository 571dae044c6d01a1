// Package notifications sends messages about newly discovered tags through Shoutrrr.
//
// Key components:
//   - Notifier creation: Configures a notifier from command flags (notifier.go).
//   - Shoutrrr integration: Renders templates and delivers messages in the background (shoutrrr.go).
//   - Templates: Built-in message templates (templates.go) and template functions (templates/).
//
// Usage example:
//
//	notifier, err := notifications.NewNotifier(cmd)
//	if err != nil {
//	    logrus.WithError(err).Fatal("Invalid notification configuration")
//	}
//	defer notifier.Close()
//	_ = notifier.Notify(updates)
package notifications
