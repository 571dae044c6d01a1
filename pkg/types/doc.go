// Package types defines the core value types shared by the dockerpoller packages.
// It provides the revision, connection-check, configuration and validation models exchanged
// between the registry client, the poller and the outer adapters (CLI, plugin API, scheduler).
//
// Key components:
//   - Revision: The resolved "latest" tag with its timestamp and source label.
//   - ConnectionResult: Status plus human-readable messages of a connection check.
//   - RepositoryConfig / PackageConfig: Registry and image settings supplied by the host.
//   - ValidationResult: Per-key configuration validation errors.
//   - TagsList / TokenResponse: Registry wire payloads.
//   - Notifier: Interface for revision notifications.
//
// Usage example:
//
//	repo := types.RepositoryConfig{RegistryURL: "https://registry.example.com/v2/"}
//	pkg := types.PackageConfig{Image: "library/alpine", TagFilter: `^3\.`}
//	rev, err := p.LatestRevision(ctx, pkg, repo)
//	if err == nil && !rev.IsEmpty() {
//	    fmt.Println(rev.Tag)
//	}
package types
