package types

import "time"

// RevisionSource is the fixed source label attached to every resolved revision.
const RevisionSource = "docker"

// Revision is the tag chosen as "latest" for an image.
//
// A Revision is built fresh on every poll and never mutated. The zero value denotes
// "no matching tag found".
type Revision struct {
	Tag       string    `json:"revision"`  // Chosen tag.
	Timestamp time.Time `json:"timestamp"` // Time the revision was resolved.
	Source    string    `json:"user"`      // Always RevisionSource for non-empty revisions.
}

// NewRevision wraps a tag with the current time and the docker source label.
func NewRevision(tag string) Revision {
	return Revision{
		Tag:       tag,
		Timestamp: time.Now(),
		Source:    RevisionSource,
	}
}

// IsEmpty reports whether the revision carries no tag.
func (r Revision) IsEmpty() bool {
	return r.Tag == ""
}
