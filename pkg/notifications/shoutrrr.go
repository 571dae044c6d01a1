package notifications

import (
	"bytes"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"text/template"
	"time"

	"github.com/nicholas-fedor/shoutrrr"
	"github.com/sirupsen/logrus"

	shoutrrrTypes "github.com/nicholas-fedor/shoutrrr/pkg/types"

	"github.com/nicholas-fedor/dockerpoller/pkg/notifications/templates"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// LocalLog is a logrus logger used for the notifier's own diagnostics.
var LocalLog = logrus.WithField("notify", "no")

// Errors for notification setup and delivery.
var (
	// ErrInvalidTemplate indicates a notification template that does not parse.
	ErrInvalidTemplate = errors.New("invalid notification template")
	// ErrRouterSetup indicates Shoutrrr rejected the configured URLs.
	ErrRouterSetup = errors.New("failed to initialize Shoutrrr notifications")
	// ErrNotifierClosed indicates Notify was called after Close.
	ErrNotifierClosed = errors.New("notifier is closed")
)

// messageQueueSize bounds the number of rendered messages awaiting delivery.
const messageQueueSize = 8

// router defines the interface for sending Shoutrrr notifications.
type router interface {
	Send(message string, params *shoutrrrTypes.Params) []error
}

// shoutrrrNotifier implements types.Notifier on top of a Shoutrrr router.
type shoutrrrNotifier struct {
	Urls     []string
	Router   router
	template *template.Template
	messages chan string
	done     chan bool
	closed   bool
	params   *shoutrrrTypes.Params
	data     StaticData
	delay    time.Duration
}

// GetScheme extracts the scheme part of a Shoutrrr URL.
// It returns "invalid" if no scheme is found.
func GetScheme(url string) string {
	schemeEnd := strings.Index(url, ":")
	if schemeEnd <= 0 {
		return "invalid"
	}

	return url[:schemeEnd]
}

// GetNames returns a list of notification service names derived from URLs.
func (n *shoutrrrNotifier) GetNames() []string {
	names := make([]string, len(n.Urls))
	for i, u := range n.Urls {
		names[i] = GetScheme(u)
	}

	return names
}

// GetURLs returns the list of URLs for configured notification services.
func (n *shoutrrrNotifier) GetURLs() []string {
	return n.Urls
}

// createNotifier builds a notifier sending through shoutrrr.NewSender. Shoutrrr's own log
// output goes to stdout when requested and to the logrus trace level otherwise.
func createNotifier(
	urls []string,
	tplString string,
	data StaticData,
	stdout bool,
	delay time.Duration,
) (*shoutrrrNotifier, error) {
	tpl, err := getShoutrrrTemplate(tplString)
	if err != nil {
		return nil, err
	}

	var logger shoutrrrTypes.StdLogger
	if stdout {
		logger = log.New(os.Stdout, ``, 0)
	} else {
		logger = log.New(logrus.StandardLogger().WriterLevel(logrus.TraceLevel), "Shoutrrr: ", 0)
	}

	sender, err := shoutrrr.NewSender(logger, urls...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRouterSetup, err)
	}

	return newNotifier(urls, sender, tpl, data, delay), nil
}

// newNotifier starts the delivery goroutine for a notifier using r.
func newNotifier(
	urls []string,
	r router,
	tpl *template.Template,
	data StaticData,
	delay time.Duration,
) *shoutrrrNotifier {
	params := &shoutrrrTypes.Params{}
	if data.Title != "" {
		params.SetTitle(data.Title)
	}

	notifier := &shoutrrrNotifier{
		Urls:     urls,
		Router:   r,
		template: tpl,
		messages: make(chan string, messageQueueSize),
		done:     make(chan bool),
		params:   params,
		data:     data,
		delay:    delay,
	}

	go sendNotifications(notifier)

	return notifier
}

// sendNotifications delivers queued messages via the router until the queue is closed.
func sendNotifications(notifier *shoutrrrNotifier) {
	for msg := range notifier.messages {
		time.Sleep(notifier.delay)

		errs := notifier.Router.Send(msg, notifier.params)

		for i, err := range errs {
			if err != nil {
				scheme := "unknown"
				if i < len(notifier.Urls) {
					scheme = GetScheme(notifier.Urls[i])
				}

				LocalLog.WithFields(logrus.Fields{
					"service": scheme,
					"index":   i,
				}).WithError(err).Error("Failed to send shoutrrr notification")
			}
		}
	}

	notifier.done <- true
}

// buildMessage renders the notification for a set of updates.
func (n *shoutrrrNotifier) buildMessage(updates []types.PackageUpdate) (string, error) {
	var body bytes.Buffer

	if err := n.template.Execute(&body, Data{StaticData: n.data, Updates: updates}); err != nil {
		return "", fmt.Errorf("failed to execute notification template: %w", err)
	}

	return body.String(), nil
}

// Notify renders updates and queues the message for delivery. Empty update lists and empty
// messages are skipped.
func (n *shoutrrrNotifier) Notify(updates []types.PackageUpdate) error {
	if len(updates) == 0 {
		return nil
	}

	if n.closed {
		return ErrNotifierClosed
	}

	msg, err := n.buildMessage(updates)
	if err != nil {
		return err
	}

	if strings.TrimSpace(msg) == "" {
		LocalLog.Info("Skipping notification due to empty message")

		return nil
	}

	LocalLog.WithField("updates", len(updates)).Debug("Queued notification")
	n.messages <- msg

	return nil
}

// Close prevents further messages from being queued and waits until all queued messages are sent.
func (n *shoutrrrNotifier) Close() {
	if n.closed {
		return
	}

	n.closed = true
	close(n.messages)

	LocalLog.Debug("Waiting for the notification goroutine to finish")

	<-n.done
}

// getShoutrrrTemplate resolves a built-in template name or parses tplString, falling back to
// the default template when tplString is empty.
func getShoutrrrTemplate(tplString string) (*template.Template, error) {
	tplBase := template.New("").Funcs(templates.Funcs)

	if builtin, found := commonTemplates[tplString]; found {
		logrus.WithField(`template`, tplString).Debug(`Using common template`)
		tplString = builtin
	}

	if tplString == "" {
		tplString = commonTemplates[`default`]
	}

	tpl, err := tplBase.Parse(tplString)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTemplate, err)
	}

	return tpl, nil
}
