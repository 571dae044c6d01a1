package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/flags"
	"github.com/nicholas-fedor/dockerpoller/pkg/pull"
)

func newPullCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "pull",
		Short: "Pulls the images of the packages delivered to this build agent",
		Long: "Pulls <registry>/<image>:<label> for every package described by GO_REPO_<ID>_DOCKER_REGISTRY_NAME, " +
			"GO_PACKAGE_<ID>_DOCKER_IMAGE and GO_PACKAGE_<ID>_LABEL environment variables.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			output, err := flags.ReadOutput(cmd)
			if err != nil {
				return err
			}

			var progress io.Writer = cmd.ErrOrStderr()
			if output == flags.OutputJSON {
				progress = io.Discard
			}

			puller, err := pull.NewDockerPuller(progress)
			if err != nil {
				return err
			}

			pulled, pullErr := puller.PullAll(cmd.Context(), os.Environ())

			err = writeOutput(cmd, pulled, func(w io.Writer) error {
				for _, name := range pulled {
					if _, err := fmt.Fprintln(w, name); err != nil {
						return err
					}
				}

				return nil
			})
			if err != nil {
				return err
			}

			return pullErr
		},
	}
}
