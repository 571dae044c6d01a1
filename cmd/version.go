package cmd

import (
	"fmt"
	"io"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/meta"
)

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Prints the dockerpoller version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := map[string]string{
				"version":    meta.Version,
				"user_agent": meta.UserAgent,
				"go":         runtime.Version(),
			}

			return writeOutput(cmd, info, func(w io.Writer) error {
				_, err := fmt.Fprintf(w, "dockerpoller %s (%s)\n", meta.Version, runtime.Version())

				return err
			})
		},
	}
}
