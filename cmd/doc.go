// Package cmd contains the command-line interface of dockerpoller.
//
// The root command carries the shared registry, logging, API and notification flags.
// Subcommands run single plugin operations against a registry (check-repository,
// check-package, latest-revision, tags, validate), serve the plugin over HTTP (serve),
// poll packages on a schedule (watch) and pull delivered package images (pull).
package cmd
