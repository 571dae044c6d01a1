package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/flags"
	"github.com/nicholas-fedor/dockerpoller/internal/meta"
	"github.com/nicholas-fedor/dockerpoller/pkg/config"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/plugin"
	"github.com/nicholas-fedor/dockerpoller/pkg/poller"
	"github.com/nicholas-fedor/dockerpoller/pkg/registry"
	"github.com/nicholas-fedor/dockerpoller/pkg/sorter"
	"github.com/nicholas-fedor/dockerpoller/pkg/types"
)

var (
	// errCheckFailed indicates a connection check reported failure.
	errCheckFailed = errors.New("connection check failed")
	// errInvalidConfiguration indicates validation found problems.
	errInvalidConfiguration = errors.New("configuration is invalid")
)

// newRegistryPoller builds a poller from the transport flags. A nil m disables metrics.
func newRegistryPoller(cmd *cobra.Command, m *metrics.Metrics) (*poller.RegistryPoller, error) {
	opts, err := flags.ReadTransportOptions(cmd)
	if err != nil {
		return nil, err
	}

	httpClient, err := registry.NewHTTPClient(opts)
	if err != nil {
		return nil, err
	}

	client := registry.NewClient(
		registry.WithHTTPClient(httpClient),
		registry.WithUserAgent(meta.UserAgent),
		registry.WithMetrics(m),
	)

	return poller.New(client, m), nil
}

// readPackage returns the repository and package given by flags, checked for use.
func readPackage(cmd *cobra.Command) (types.RepositoryConfig, types.PackageConfig, error) {
	repo, pkg, err := flags.ReadPackageFlags(cmd)
	if err != nil {
		return repo, pkg, err
	}

	if err := config.Check(pkg, repo); err != nil {
		return repo, pkg, err
	}

	return repo, pkg, nil
}

func writeConnectionResult(cmd *cobra.Command, result types.ConnectionResult) error {
	err := writeOutput(cmd, result, func(w io.Writer) error {
		_, err := fmt.Fprintf(w, "%s: %s\n", result.Status, strings.Join(result.Messages, "; "))

		return err
	})
	if err != nil {
		return err
	}

	if !result.Success() {
		return fmt.Errorf("%w: %s", errCheckFailed, strings.Join(result.Messages, "; "))
	}

	return nil
}

func newCheckRepositoryCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-repository",
		Short: "Checks that the registry URL serves the Docker Registry v2 API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, _, err := flags.ReadPackageFlags(cmd)
			if err != nil {
				return err
			}

			if result := config.ValidateRepository(repo); !result.Success() {
				return fmt.Errorf("%w: %s", errInvalidConfiguration, strings.Join(result.Messages(), "; "))
			}

			p, err := newRegistryPoller(cmd, nil)
			if err != nil {
				return err
			}

			return writeConnectionResult(cmd, p.CheckConnectionToRepository(cmd.Context(), repo))
		},
	}
}

func newCheckPackageCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "check-package",
		Short: "Checks that the image exists in the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, pkg, err := readPackage(cmd)
			if err != nil {
				return err
			}

			p, err := newRegistryPoller(cmd, nil)
			if err != nil {
				return err
			}

			return writeConnectionResult(cmd, p.CheckConnectionToPackage(cmd.Context(), pkg, repo))
		},
	}
}

func newLatestRevisionCommand() *cobra.Command {
	latestCmd := &cobra.Command{
		Use:   "latest-revision",
		Short: "Prints the biggest tag matching the tag filter",
		Long: "Prints the biggest tag matching the tag filter, comparing numbers inside tags by value.\n" +
			"With --since, nothing is printed when the latest tag orders below the given tag.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, pkg, err := readPackage(cmd)
			if err != nil {
				return err
			}

			p, err := newRegistryPoller(cmd, nil)
			if err != nil {
				return err
			}

			since, _ := cmd.Flags().GetString("since")

			var revision types.Revision
			if since != "" {
				revision, err = p.LatestRevisionSince(cmd.Context(), pkg, repo, types.NewRevision(since))
			} else {
				revision, err = p.LatestRevision(cmd.Context(), pkg, repo)
			}

			if err != nil {
				return err
			}

			if revision.IsEmpty() {
				logrus.WithField("image", pkg.Image).Info("No matching revision")
			}

			return writeOutput(cmd, plugin.RevisionResponse(revision), func(w io.Writer) error {
				if revision.IsEmpty() {
					return nil
				}

				_, err := fmt.Fprintln(w, revision.Tag)

				return err
			})
		},
	}

	latestCmd.Flags().String("since", "", "Previous revision; newer or equal tags only")

	return latestCmd
}

func newTagsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "tags",
		Short: "Lists the tags matching the tag filter, smallest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			repo, pkg, err := readPackage(cmd)
			if err != nil {
				return err
			}

			p, err := newRegistryPoller(cmd, nil)
			if err != nil {
				return err
			}

			tags, err := p.MatchingTags(cmd.Context(), pkg, repo)
			if err != nil {
				return err
			}

			sorter.SortByVersion(tags)

			return writeOutput(cmd, tags, func(w io.Writer) error {
				for _, tag := range tags {
					if _, err := fmt.Fprintln(w, tag); err != nil {
						return err
					}
				}

				return nil
			})
		},
	}
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validates the repository and package configuration without contacting the registry",
		Long: "Validates the repository and package configuration given by flags, or every package " +
			"of the --config file when one is given.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if path, _ := cmd.Flags().GetString("config"); path != "" {
				watches, err := loadWatchList(path)
				if err != nil {
					return err
				}

				return writeOutput(cmd, map[string]int{"packages": len(watches)}, func(w io.Writer) error {
					_, err := fmt.Fprintf(w, "%d packages valid\n", len(watches))

					return err
				})
			}

			repo, pkg, err := flags.ReadPackageFlags(cmd)
			if err != nil {
				return err
			}

			result := config.ValidateRepository(repo)
			packageResult := config.ValidatePackage(pkg)
			result.Errors = append(result.Errors, packageResult.Errors...)

			if result.Errors == nil {
				result.Errors = []types.ValidationError{}
			}

			err = writeOutput(cmd, result.Errors, func(w io.Writer) error {
				if result.Success() {
					_, err := fmt.Fprintln(w, "valid")

					return err
				}

				for _, e := range result.Errors {
					if _, err := fmt.Fprintf(w, "%s: %s\n", e.Key, e.Message); err != nil {
						return err
					}
				}

				return nil
			})
			if err != nil {
				return err
			}

			if !result.Success() {
				return errInvalidConfiguration
			}

			return nil
		},
	}
}
