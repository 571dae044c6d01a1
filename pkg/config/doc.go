// Package config declares the repository and package configuration schemas presented to the
// plugin host and validates configurations against them.
//
// Validation uses struct tags on types.RepositoryConfig and types.PackageConfig together with
// the registryurl, imagename and tagfilter validations registered here. Errors are reported
// per configuration key with human-readable messages.
package config
