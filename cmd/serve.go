package cmd

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/nicholas-fedor/dockerpoller/internal/api"
	"github.com/nicholas-fedor/dockerpoller/pkg/metrics"
	"github.com/nicholas-fedor/dockerpoller/pkg/plugin"
)

func newServeCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Serves package-material requests over the HTTP API",
		Long: "Serves package-material requests on POST /v1/plugin/{request} and Prometheus metrics " +
			"on GET /v1/metrics. Every request must carry the --http-api-token as a bearer token.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			m := metrics.Default()
			defer m.Shutdown()

			p, err := newRegistryPoller(cmd, m)
			if err != nil {
				return err
			}

			handler := plugin.NewHandler(p)

			host, _ := cmd.Flags().GetString("http-api-host")
			port, _ := cmd.Flags().GetString("http-api-port")
			token, _ := cmd.Flags().GetString("http-api-token")

			logrus.WithField("requests", handler.Requests()).Debug("Serving plugin requests")

			return api.SetupAndStartAPI(ctx, api.Options{
				Host:    host,
				Port:    port,
				Token:   token,
				Plugin:  handler,
				Metrics: m,
				Block:   true,
			})
		},
	}
}
