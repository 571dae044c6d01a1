package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/flags"
)

// rootCmd is the dockerpoller command, built once with all subcommands attached.
var rootCmd = NewRootCommand()

// NewRootCommand creates the root command with every flag and subcommand registered.
// flags.SetDefaults must run first so environment values become flag defaults.
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "dockerpoller",
		Short: "Polls Docker Registry v2 repositories for new image tags",
		Long: "\ndockerpoller resolves the latest tag of a Docker image in a Docker Registry v2 " +
			"repository.\nIt answers package-material requests over HTTP, runs single checks " +
			"from the command line and watches images for new tags.",
		PersistentPreRunE: preRun,
		SilenceUsage:      true,
	}

	flags.SetDefaults()
	flags.RegisterDockerFlags(root)
	flags.RegisterRegistryFlags(root)
	flags.RegisterSystemFlags(root)
	flags.RegisterNotificationFlags(root)

	root.AddCommand(
		newCheckRepositoryCommand(),
		newCheckPackageCommand(),
		newLatestRevisionCommand(),
		newTagsCommand(),
		newValidateCommand(),
		newServeCommand(),
		newWatchCommand(),
		newPullCommand(),
		newVersionCommand(),
	)

	return root
}

// Execute runs the root command, exiting the process on failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		logrus.WithError(err).Fatal("Failed to execute command")
	}
}

// preRun prepares logging, secrets and the Docker environment before any subcommand runs.
func preRun(cmd *cobra.Command, _ []string) error {
	flagsSet := cmd.Flags()

	if err := flags.ProcessFlagAliases(flagsSet); err != nil {
		return err
	}

	if err := flags.SetupLogging(flagsSet); err != nil {
		return err
	}

	if err := flags.GetSecretsFromFiles(cmd.Root()); err != nil {
		return err
	}

	if err := flags.EnvConfig(cmd); err != nil {
		return err
	}

	logrus.WithField("command", cmd.Name()).Debug("Prepared command")

	return nil
}
