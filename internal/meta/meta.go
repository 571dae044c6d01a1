// Package meta holds build metadata.
package meta

var (
	// Version is the compile-time set version of dockerpoller.
	Version = "v0.0.0-unknown"
	// UserAgent is the http client identifier derived from Version.
	UserAgent = "dockerpoller/" + Version
)
