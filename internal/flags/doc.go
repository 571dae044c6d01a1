// Package flags manages command-line flags and environment variables for dockerpoller.
// It configures the registry connection, logging, the HTTP API, scheduling and notifications
// via Cobra and Viper.
//
// Key components:
//   - RegisterRegistryFlags: Adds registry, image and transport flags.
//   - RegisterSystemFlags: Adds logging, output, API and scheduling flags.
//   - RegisterNotificationFlags: Adds notification settings.
//   - RegisterDockerFlags: Adds Docker Engine client flags for pulling.
//   - SetupLogging: Configures logrus based on flags.
//
// Usage example:
//
//	cmd := &cobra.Command{}
//	flags.SetDefaults()
//	flags.RegisterSystemFlags(cmd)
//	err := flags.SetupLogging(cmd.PersistentFlags())
//	if err != nil {
//	    logrus.WithError(err).Fatal("Logging setup failed")
//	}
package flags
