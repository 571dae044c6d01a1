package plugin

import (
	"time"

	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// TimestampLayout is the revision timestamp format exchanged with the plugin host.
const TimestampLayout = "2006-01-02T15:04:05.000Z"

// Property is a single configuration value sent by the plugin host.
type Property struct {
	Value string `json:"value"`
}

// Configuration maps configuration keys to their values.
type Configuration map[string]Property

// Values flattens the configuration into key/value pairs.
func (c Configuration) Values() map[string]string {
	values := make(map[string]string, len(c))
	for key, property := range c {
		values[key] = property.Value
	}

	return values
}

// Request is the envelope of every plugin request carrying configuration.
type Request struct {
	Repository Configuration    `json:"repository-configuration"`
	Package    Configuration    `json:"package-configuration"`
	Previous   *RevisionMessage `json:"previous-revision,omitempty"`
}

// RevisionMessage is a revision as exchanged with the plugin host.
type RevisionMessage struct {
	Revision        string            `json:"revision"`
	Timestamp       string            `json:"timestamp"`
	User            string            `json:"user,omitempty"`
	RevisionComment string            `json:"revisionComment,omitempty"`
	Data            map[string]string `json:"data,omitempty"`
}

// NewRevisionMessage converts a resolved revision.
func NewRevisionMessage(revision types.Revision) RevisionMessage {
	return RevisionMessage{
		Revision:  revision.Tag,
		Timestamp: revision.Timestamp.UTC().Format(TimestampLayout),
		User:      revision.Source,
	}
}

// ToRevision converts the message back to a revision. Unparseable timestamps are left zero.
func (m RevisionMessage) ToRevision() types.Revision {
	timestamp, _ := time.Parse(TimestampLayout, m.Timestamp)

	return types.Revision{
		Tag:       m.Revision,
		Timestamp: timestamp,
		Source:    m.User,
	}
}

// EmptyRevision encodes as {} and tells the host no revision was found.
type EmptyRevision struct{}
