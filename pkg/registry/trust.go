package registry

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	dockerCliConfig "github.com/docker/cli/cli/config"
	dockerConfigConfigfile "github.com/docker/cli/cli/config/configfile"
	dockerConfigCredentials "github.com/docker/cli/cli/config/credentials"
	dockerConfigTypes "github.com/docker/cli/cli/config/types"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry/helpers"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// Environment variables holding explicit registry credentials.
const (
	envRegistryUser     = "REPO_USER"
	envRegistryPassword = "REPO_PASS"
	envDockerConfig     = "DOCKER_CONFIG"
)

// Errors for registry authentication operations.
var (
	// errUnsetRegAuthVars indicates registry auth environment variables (REPO_USER, REPO_PASS) are not set.
	errUnsetRegAuthVars = errors.New(
		"registry auth environment variables (REPO_USER, REPO_PASS) not set",
	)
	// errFailedGetRegistryAddress indicates a failure to extract the registry address from an image reference.
	errFailedGetRegistryAddress = errors.New("failed to get registry address")
	// errFailedLoadDockerConfig indicates a failure to load the Docker configuration file.
	errFailedLoadDockerConfig = errors.New("failed to load Docker config")
	// errFailedMarshalAuthConfig indicates a failure to marshal the auth config to JSON.
	errFailedMarshalAuthConfig = errors.New("failed to marshal auth config to JSON")
)

// CredentialsFor returns the credentials to present to the token realm of the registry serving
// rawURL. REPO_USER and REPO_PASS take precedence over the Docker config file; lookup failures
// yield empty credentials, which request an anonymous token.
func CredentialsFor(rawURL string) types.RegistryCredentials {
	fields := logrus.Fields{"url": rawURL}

	if creds, ok := envCredentials(); ok {
		logrus.WithFields(fields).WithField("username", creds.Username).
			Debug("Loaded registry credentials from environment")

		return creds
	}

	server, err := helpers.GetURLHost(rawURL)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get registry host")

		return types.RegistryCredentials{}
	}

	authConfig, err := configAuth(server)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to read Docker config credentials")

		return types.RegistryCredentials{}
	}

	return types.RegistryCredentials{
		Username: authConfig.Username,
		Password: authConfig.Password,
	}
}

// EncodedAuth attempts to retrieve encoded authentication credentials for a given image reference,
// first checking environment variables and then falling back to the Docker config file if necessary.
// It returns the encoded auth string or an error if both methods fail.
func EncodedAuth(ref string) (string, error) {
	fields := logrus.Fields{
		"image_ref": ref,
	}

	logrus.WithFields(fields).Debug("Attempting to retrieve auth credentials")

	auth, err := EncodedEnvAuth()
	if err != nil {
		logrus.WithError(err).
			WithFields(fields).
			Debug("Environment auth not available, trying config file")

		auth, err = EncodedConfigAuth(ref)
	}

	if err == nil {
		logrus.WithFields(fields).Debug("Successfully retrieved auth credentials")
	}

	return auth, err
}

// EncodedEnvAuth checks for REPO_USER and REPO_PASS environment variables and encodes them into
// a base64 string if present. It returns an error if these variables are not set.
func EncodedEnvAuth() (string, error) {
	creds, ok := envCredentials()
	if !ok {
		logrus.Debug("Environment auth variables not set")

		return "", errUnsetRegAuthVars
	}

	return EncodeAuth(dockerConfigTypes.AuthConfig{
		Username: creds.Username,
		Password: creds.Password,
	})
}

// EncodedConfigAuth retrieves authentication credentials from the Docker config file for the given
// image reference. It returns an empty string when the config holds no credentials for the
// image's registry.
func EncodedConfigAuth(imageRef string) (string, error) {
	fields := logrus.Fields{
		"image_ref": imageRef,
	}

	server, err := helpers.GetRegistryAddress(imageRef)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to get registry address")

		return "", fmt.Errorf("%w: %w", errFailedGetRegistryAddress, err)
	}

	auth, err := configAuth(server)
	if err != nil {
		return "", err
	}

	if !hasCredentials(auth) {
		return "", nil
	}

	return EncodeAuth(auth)
}

// CredentialsStore returns a new credentials store based on the settings provided in the configuration file.
// It determines whether to use a native or file-based store depending on the config.
func CredentialsStore(configFile dockerConfigConfigfile.ConfigFile) dockerConfigCredentials.Store {
	if configFile.CredentialsStore != "" {
		return dockerConfigCredentials.NewNativeStore(&configFile, configFile.CredentialsStore)
	}

	return dockerConfigCredentials.NewFileStore(&configFile)
}

// EncodeAuth Base64 encodes an AuthConfig struct for transmission over HTTP.
// It marshals the struct to JSON and applies URL-safe base64 encoding.
func EncodeAuth(authConfig dockerConfigTypes.AuthConfig) (string, error) {
	fields := logrus.Fields{
		"username": authConfig.Username,
	}

	buf, err := json.Marshal(authConfig)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to marshal auth config to JSON")

		return "", fmt.Errorf("%w: %w", errFailedMarshalAuthConfig, err)
	}

	encoded := base64.URLEncoding.EncodeToString(buf)

	logrus.WithFields(fields).Debug("Encoded auth config")

	return encoded, nil
}

func envCredentials() (types.RegistryCredentials, bool) {
	creds := types.RegistryCredentials{
		Username: os.Getenv(envRegistryUser),
		Password: os.Getenv(envRegistryPassword),
	}

	if creds.IsEmpty() {
		return types.RegistryCredentials{}, false
	}

	// Log password only in trace mode
	if logrus.GetLevel() == logrus.TraceLevel {
		logrus.WithFields(logrus.Fields{
			"username": creds.Username,
			"password": creds.Password,
		}).Trace("Using environment credentials")
	}

	return creds, true
}

// configAuth looks up the credentials stored for server in the Docker config file.
// The directory comes from DOCKER_CONFIG, defaulting to the Docker CLI's own location.
func configAuth(server string) (dockerConfigTypes.AuthConfig, error) {
	configDir := os.Getenv(envDockerConfig)
	if configDir == "" {
		configDir = dockerCliConfig.Dir()
	}

	fields := logrus.Fields{
		"server":     server,
		"config_dir": configDir,
	}

	configFile, err := dockerCliConfig.Load(configDir)
	if err != nil {
		logrus.WithError(err).WithFields(fields).Debug("Failed to load Docker config")

		return dockerConfigTypes.AuthConfig{}, fmt.Errorf("%w: %w", errFailedLoadDockerConfig, err)
	}

	credStore := CredentialsStore(*configFile)
	auth, _ := credStore.Get(server)

	if !hasCredentials(auth) {
		logrus.WithFields(fields).WithField("config_file", configFile.Filename).
			Debug("No credentials found in config")

		return dockerConfigTypes.AuthConfig{}, nil
	}

	logrus.WithFields(fields).WithFields(logrus.Fields{
		"username":    auth.Username,
		"config_file": configFile.Filename,
	}).Debug("Loaded auth credentials from config")

	return auth, nil
}

// hasCredentials reports whether a stored entry carries anything to authenticate with.
// Stores echo the server address back for unknown hosts.
func hasCredentials(auth dockerConfigTypes.AuthConfig) bool {
	return auth.Username != "" || auth.Password != "" || auth.IdentityToken != ""
}
