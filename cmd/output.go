package cmd

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/flags"
)

// writeOutput writes value as indented JSON with --output json, or through text otherwise.
func writeOutput(cmd *cobra.Command, value any, text func(w io.Writer) error) error {
	output, err := flags.ReadOutput(cmd)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()

	if output == flags.OutputJSON {
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")

		if err := encoder.Encode(value); err != nil {
			return fmt.Errorf("failed to encode output: %w", err)
		}

		return nil
	}

	return text(w)
}
