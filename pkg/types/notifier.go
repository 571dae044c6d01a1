package types

// PackageUpdate describes a newly discovered revision for a watched package.
type PackageUpdate struct {
	Image    ImageReference
	Previous Revision
	Latest   Revision
}

// Notifier defines the common interface for notification services.
type Notifier interface {
	Notify(updates []PackageUpdate) error // Send a message describing the updates.
	GetNames() []string                   // Service names.
	GetURLs() []string                    // Service URLs.
	Close()                               // Stop and flush notifications.
}
