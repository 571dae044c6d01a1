package flags

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

// DockerAPIMinVersion specifies the minimum Docker API version used by the pull command.
const DockerAPIMinVersion string = "1.44"

// defaultPollIntervalSeconds defines the default watch interval in seconds (5 minutes).
const defaultPollIntervalSeconds = 300

// Output formats for command results.
const (
	OutputText = "text"
	OutputJSON = "json"
)

// errInvalidLogFormat indicates an unsupported log format.
var errInvalidLogFormat = errors.New("invalid log format specified")

// errInvalidLogLevel indicates an unsupported log level.
var errInvalidLogLevel = errors.New("invalid log level specified")

// errInvalidOutput indicates an unsupported output format.
var errInvalidOutput = errors.New("invalid output format specified")

// errScheduleAndInterval indicates both a schedule and an interval were configured.
var errScheduleAndInterval = errors.New("only schedule or interval can be defined, not both")

// errSetEnvFailed indicates a failure to set an environment variable.
var errSetEnvFailed = errors.New("failed to set environment variable")

// errOpenFileFailed indicates a failure to open a secret file.
var errOpenFileFailed = errors.New("failed to open secret file")

// errCloseFileFailed indicates a failure to close a secret file.
var errCloseFileFailed = errors.New("failed to close secret file")

// errReplaceSliceFailed indicates a failure to replace a slice flag value.
var errReplaceSliceFailed = errors.New("failed to replace slice value in flag")

// errReadFileFailed indicates a failure to read a secret file.
var errReadFileFailed = errors.New("failed to read secret file")

// errSetFlagFailed indicates a failure to read or set a flag value.
var errSetFlagFailed = errors.New("failed to set flag value")

// errInvalidFlagName indicates a lookup of an undefined flag.
var errInvalidFlagName = errors.New("invalid flag name provided")

// RegisterDockerFlags adds Docker Engine client flags used when pulling images.
func RegisterDockerFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()
	flags.StringP("host", "H", envString("DOCKER_HOST"), "daemon socket to connect to")
	flags.BoolP("tlsverify", "v", envBool("DOCKER_TLS_VERIFY"), "use TLS and verify the remote")
	flags.StringP(
		"api-version",
		"a",
		envString("DOCKER_API_VERSION"),
		"api version to use by docker client",
	)
}

// RegisterRegistryFlags adds flags describing the registry, the image and how to reach them.
func RegisterRegistryFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"registry-url",
		"r",
		envString("DOCKERPOLLER_REGISTRY_URL"),
		"Base URL of the registry API, e.g. https://registry.example.com/v2/")

	flags.String(
		"registry-name",
		envString("DOCKERPOLLER_REGISTRY_NAME"),
		"Registry host name used when pulling images")

	flags.StringP(
		"image",
		"i",
		envString("DOCKERPOLLER_IMAGE"),
		"Image repository within the registry, e.g. library/alpine")

	flags.StringP(
		"tag-filter",
		"f",
		envString("DOCKERPOLLER_TAG_FILTER"),
		"Regular expression selecting candidate tags (matches anywhere in the tag)")

	flags.Duration(
		"timeout",
		envDuration("DOCKERPOLLER_TIMEOUT"),
		"Timeout for each registry request")

	flags.Bool(
		"tls-skip-verify",
		envBool("DOCKERPOLLER_TLS_SKIP_VERIFY"),
		"Do not verify the registry's TLS certificate")

	flags.String(
		"tls-ca-file",
		envString("DOCKERPOLLER_TLS_CA_FILE"),
		"PEM bundle of additional CAs trusted for the registry")

	flags.String(
		"docker-config",
		envString("DOCKER_CONFIG"),
		"Directory holding the Docker CLI config.json used for registry credentials")
}

// RegisterSystemFlags adds flags controlling logging, output, the HTTP API and scheduling.
func RegisterSystemFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringP(
		"config",
		"c",
		envString("DOCKERPOLLER_CONFIG"),
		"YAML file listing the packages to watch")

	flags.StringP(
		"output",
		"o",
		envString("DOCKERPOLLER_OUTPUT"),
		"Output format for command results. Possible values: text or json")

	flags.IntP(
		"interval",
		"",
		envInt("DOCKERPOLLER_POLL_INTERVAL"),
		"Watch poll interval (in seconds)")

	flags.StringP(
		"schedule",
		"s",
		envString("DOCKERPOLLER_SCHEDULE"),
		"The cron expression which defines when to poll")

	flags.Bool(
		"run-once",
		envBool("DOCKERPOLLER_RUN_ONCE"),
		"Run a single watch cycle and exit")

	flags.String(
		"http-api-host",
		envString("DOCKERPOLLER_HTTP_API_HOST"),
		"Address the HTTP API listens on")

	flags.String(
		"http-api-port",
		envString("DOCKERPOLLER_HTTP_API_PORT"),
		"Port the HTTP API listens on")

	flags.String(
		"http-api-token",
		envString("DOCKERPOLLER_HTTP_API_TOKEN"),
		"Sets an authentication token to HTTP API requests.")

	flags.Bool(
		"no-startup-message",
		envBool("DOCKERPOLLER_NO_STARTUP_MESSAGE"),
		"Prevents the watch command from logging its startup summary")

	flags.Bool(
		"http-api-metrics",
		envBool("DOCKERPOLLER_HTTP_API_METRICS"),
		"Expose Prometheus metrics on the HTTP API while watching")

	flags.Bool(
		"http-api-poll",
		envBool("DOCKERPOLLER_HTTP_API_POLL"),
		"Allow watch cycles to be triggered through the HTTP API")

	flags.BoolP(
		"debug",
		"d",
		envBool("DOCKERPOLLER_DEBUG"),
		"Enable debug mode with verbose logging")

	flags.Bool(
		"trace",
		envBool("DOCKERPOLLER_TRACE"),
		"Enable trace mode with very verbose logging - caution, exposes credentials")

	flags.String(
		"log-level",
		envString("DOCKERPOLLER_LOG_LEVEL"),
		"The maximum log level that will be written to STDERR. Possible values: panic, fatal, error, warn, info, debug or trace")

	flags.String(
		"log-format",
		envString("DOCKERPOLLER_LOG_FORMAT"),
		"Sets what logging format to use for console output. Possible values: Auto, LogFmt, Pretty, JSON")

	flags.Bool(
		"no-color",
		envBool("NO_COLOR"),
		"Disable ANSI color escape codes in log output")
}

// RegisterNotificationFlags adds flags configuring watch notifications.
func RegisterNotificationFlags(rootCmd *cobra.Command) {
	flags := rootCmd.PersistentFlags()

	flags.StringArrayP(
		"notification-url",
		"n",
		envStringSlice("DOCKERPOLLER_NOTIFICATION_URL"),
		"The shoutrrr URL to send notifications to")

	flags.String(
		"notification-template",
		envString("DOCKERPOLLER_NOTIFICATION_TEMPLATE"),
		"The shoutrrr text/template for the messages, or the name of a built-in template (default, compact, json)")

	flags.String(
		"notification-title-tag",
		envString("DOCKERPOLLER_NOTIFICATION_TITLE_TAG"),
		"Title prefix tag for notifications")

	flags.Bool(
		"notification-skip-title",
		envBool("DOCKERPOLLER_NOTIFICATION_SKIP_TITLE"),
		"Do not pass the title param to notifications")

	flags.String(
		"notifications-hostname",
		envString("DOCKERPOLLER_NOTIFICATIONS_HOSTNAME"),
		"Custom hostname for notification titles")

	flags.Int(
		"notifications-delay",
		envInt("DOCKERPOLLER_NOTIFICATIONS_DELAY"),
		"Delay before sending notifications, expressed in seconds")

	flags.Bool(
		"notification-log-stdout",
		envBool("DOCKERPOLLER_NOTIFICATION_LOG_STDOUT"),
		"Write notification logs to stdout instead of logging (to stderr)")
}

// envString retrieves a string value from an environment variable via Viper.
func envString(key string) string {
	viper.MustBindEnv(key)

	return viper.GetString(key)
}

// envStringSlice retrieves a string slice from an environment variable via Viper.
func envStringSlice(key string) []string {
	viper.MustBindEnv(key)

	return viper.GetStringSlice(key)
}

// envInt retrieves an integer value from an environment variable via Viper.
func envInt(key string) int {
	viper.MustBindEnv(key)

	return viper.GetInt(key)
}

// envBool retrieves a boolean value from an environment variable via Viper.
func envBool(key string) bool {
	viper.MustBindEnv(key)

	return viper.GetBool(key)
}

// envDuration retrieves a duration value from an environment variable via Viper.
func envDuration(key string) time.Duration {
	viper.MustBindEnv(key)

	return viper.GetDuration(key)
}

// SetDefaults configures default values for environment variables.
// It must run before the Register functions, which read those values as flag defaults.
func SetDefaults() {
	viper.AutomaticEnv()
	viper.SetDefault("DOCKER_HOST", "unix:///var/run/docker.sock")
	viper.SetDefault("DOCKER_API_VERSION", DockerAPIMinVersion)
	viper.SetDefault("DOCKERPOLLER_TIMEOUT", registry.DefaultTimeout)
	viper.SetDefault("DOCKERPOLLER_POLL_INTERVAL", defaultPollIntervalSeconds)
	viper.SetDefault("DOCKERPOLLER_HTTP_API_PORT", "8080")
	viper.SetDefault("DOCKERPOLLER_OUTPUT", OutputText)
	viper.SetDefault("DOCKERPOLLER_NOTIFICATION_URL", []string{})
	viper.SetDefault("DOCKERPOLLER_LOG_LEVEL", "info")
	viper.SetDefault("DOCKERPOLLER_LOG_FORMAT", "auto")
}

// EnvConfig exports Docker-related flags to the environment read by the Docker client and
// the credential lookup.
func EnvConfig(cmd *cobra.Command) error {
	flags := cmd.Flags()

	for flagName, env := range map[string]string{
		"host":          "DOCKER_HOST",
		"api-version":   "DOCKER_API_VERSION",
		"docker-config": "DOCKER_CONFIG",
	} {
		if flags.Lookup(flagName) == nil {
			continue
		}

		value, err := flags.GetString(flagName)
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		if err := setEnvOptStr(env, value); err != nil {
			return err
		}
	}

	if flags.Lookup("tlsverify") != nil {
		tls, err := flags.GetBool("tlsverify")
		if err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		if err := setEnvOptBool("DOCKER_TLS_VERIFY", tls); err != nil {
			return err
		}
	}

	return nil
}

// ReadPackageFlags returns the repository and package described by the registry flags.
func ReadPackageFlags(cmd *cobra.Command) (types.RepositoryConfig, types.PackageConfig, error) {
	flags := cmd.Flags()

	values := map[string]string{}

	for flagName, target := range map[string]string{
		"registry-url":  types.DockerRegistryURLKey,
		"registry-name": types.DockerRegistryNameKey,
		"image":         types.DockerImageKey,
		"tag-filter":    types.DockerTagFilterKey,
	} {
		value, err := flags.GetString(flagName)
		if err != nil {
			return types.RepositoryConfig{}, types.PackageConfig{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}

		values[target] = value
	}

	repo := types.RepositoryConfig{
		RegistryURL:  values[types.DockerRegistryURLKey],
		RegistryName: values[types.DockerRegistryNameKey],
	}
	pkg := types.PackageConfig{
		Image:     values[types.DockerImageKey],
		TagFilter: values[types.DockerTagFilterKey],
	}

	logrus.WithFields(logrus.Fields{
		"registry_url":  repo.RegistryURL,
		"registry_name": repo.RegistryName,
		"image":         pkg.Image,
		"tag_filter":    pkg.TagFilter,
	}).Debug("Read package flags")

	return repo, pkg, nil
}

// ReadTransportOptions returns the HTTP client settings from the registry flags.
func ReadTransportOptions(cmd *cobra.Command) (registry.TransportOptions, error) {
	flags := cmd.Flags()

	timeout, err := flags.GetDuration("timeout")
	if err != nil {
		return registry.TransportOptions{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	skipVerify, err := flags.GetBool("tls-skip-verify")
	if err != nil {
		return registry.TransportOptions{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	caFile, err := flags.GetString("tls-ca-file")
	if err != nil {
		return registry.TransportOptions{}, fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if skipVerify {
		logrus.Warn("TLS verification of the registry is disabled")
	}

	return registry.TransportOptions{
		Timeout:            timeout,
		CAFile:             caFile,
		InsecureSkipVerify: skipVerify,
	}, nil
}

// ReadOutput returns the validated output format.
func ReadOutput(cmd *cobra.Command) (string, error) {
	output, err := cmd.Flags().GetString("output")
	if err != nil {
		return "", fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	switch strings.ToLower(output) {
	case OutputText, "":
		return OutputText, nil
	case OutputJSON:
		return OutputJSON, nil
	default:
		return "", fmt.Errorf("%w: %s", errInvalidOutput, output)
	}
}

// setEnvOptStr sets an environment variable to a specified string value if needed.
// It skips setting if the value is empty or matches the current environment.
func setEnvOptStr(env string, opt string) error {
	if opt == "" || opt == os.Getenv(env) {
		return nil
	}

	if err := os.Setenv(env, opt); err != nil {
		return fmt.Errorf("%w: %s: %w", errSetEnvFailed, env, err)
	}

	return nil
}

// setEnvOptBool sets an environment variable to "1" if the boolean is true.
func setEnvOptBool(env string, opt bool) error {
	if opt {
		return setEnvOptStr(env, "1")
	}

	return nil
}

// GetSecretsFromFiles replaces flag values with file contents if they reference files.
func GetSecretsFromFiles(rootCmd *cobra.Command) error {
	flags := rootCmd.PersistentFlags()

	secrets := []string{
		"notification-url",
		"http-api-token",
	}
	for _, secret := range secrets {
		if err := getSecretFromFile(flags, secret); err != nil {
			return fmt.Errorf("failed to get secret from flag %v: %w", secret, err)
		}
	}

	return nil
}

// getSecretFromFile updates a flag's value with file contents if it references a file.
// Slice flags take one value per non-empty line.
func getSecretFromFile(flags *pflag.FlagSet, secret string) error {
	flag := flags.Lookup(secret)
	if flag == nil {
		return fmt.Errorf("%w: %q", errInvalidFlagName, secret)
	}

	if sliceValue, ok := flag.Value.(pflag.SliceValue); ok {
		oldValues := sliceValue.GetSlice()
		values := make([]string, 0, len(oldValues))

		for _, value := range oldValues {
			if value == "" || !isFilePath(value) {
				values = append(values, value)

				continue
			}

			lines, err := readLines(value)
			if err != nil {
				return err
			}

			values = append(values, lines...)
		}

		if err := sliceValue.Replace(values); err != nil {
			return fmt.Errorf("%w: %w", errReplaceSliceFailed, err)
		}

		return nil
	}

	value := flag.Value.String()
	if value != "" && isFilePath(value) {
		content, err := os.ReadFile(value)
		if err != nil {
			return fmt.Errorf("%w: %w", errReadFileFailed, err)
		}

		if err := flags.Set(secret, strings.TrimSpace(string(content))); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

func readLines(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errOpenFileFailed, err)
	}

	var lines []string

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		if line := scanner.Text(); line != "" {
			lines = append(lines, line)
		}
	}

	if err := file.Close(); err != nil {
		return nil, fmt.Errorf("%w: %w", errCloseFileFailed, err)
	}

	return lines, nil
}

// isFilePath determines if a string likely represents a file path.
// It checks for file existence, avoiding false positives from URLs or invalid Windows paths.
func isFilePath(path string) bool {
	firstColon := strings.IndexRune(path, ':')
	if firstColon != 1 && firstColon != -1 {
		// If ':' exists but isn't the second character, it's likely not a file path (e.g., URLs).
		return false
	}

	_, err := os.Stat(path)

	return !errors.Is(err, os.ErrNotExist)
}

// ProcessFlagAliases synchronizes flag values based on helper flags.
// An interval is converted to an "@every" schedule, and debug/trace raise the log level.
func ProcessFlagAliases(flags *pflag.FlagSet) error {
	scheduleChanged := flags.Changed("schedule")
	intervalChanged := flags.Changed("interval")

	// Values may come from the environment rather than the command line.
	if val, _ := flags.GetString("schedule"); val != "" {
		scheduleChanged = true
	}

	if val, _ := flags.GetInt("interval"); val != defaultPollIntervalSeconds {
		intervalChanged = true
	}

	if intervalChanged && scheduleChanged {
		return errScheduleAndInterval
	}

	if intervalChanged || !scheduleChanged {
		interval, _ := flags.GetInt("interval")
		if err := flags.Set("schedule", fmt.Sprintf("@every %ds", interval)); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if flagIsEnabled(flags, "debug") {
		if err := flags.Set("log-level", "debug"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	if flagIsEnabled(flags, "trace") {
		if err := flags.Set("log-level", "trace"); err != nil {
			return fmt.Errorf("%w: %w", errSetFlagFailed, err)
		}
	}

	return nil
}

// SetupLogging configures the global logger based on log-related flags.
// It sets the log format and level, returning an error for invalid configurations.
func SetupLogging(flags *pflag.FlagSet) error {
	logFormat, err := flags.GetString("log-format")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	noColor, err := flags.GetBool("no-color")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	if err := configureLogFormat(logFormat, noColor); err != nil {
		return err
	}

	rawLogLevel, err := flags.GetString("log-level")
	if err != nil {
		return fmt.Errorf("%w: %w", errSetFlagFailed, err)
	}

	logLevel, err := logrus.ParseLevel(rawLogLevel)
	if err != nil {
		return fmt.Errorf("%w: %w", errInvalidLogLevel, err)
	}

	logrus.SetLevel(logLevel)

	return nil
}

// configureLogFormat sets the logrus formatter based on the specified format and color preference.
func configureLogFormat(logFormat string, noColor bool) error {
	switch strings.ToLower(logFormat) {
	case "auto":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors:             noColor,
			EnvironmentOverrideColors: true,
		})
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "logfmt":
		logrus.SetFormatter(&logrus.TextFormatter{
			DisableColors: true,
			FullTimestamp: true,
		})
	case "pretty":
		logrus.SetFormatter(&logrus.TextFormatter{
			ForceColors:   !noColor,
			FullTimestamp: false,
		})
	default:
		return fmt.Errorf("%w: %s", errInvalidLogFormat, logFormat)
	}

	return nil
}

// flagIsEnabled checks if a boolean flag is set to true. Undefined flags count as disabled.
func flagIsEnabled(flags *pflag.FlagSet, name string) bool {
	value, err := flags.GetBool(name)
	if err != nil {
		logrus.WithField("flag", name).Debug("Flag is not defined")

		return false
	}

	return value
}
