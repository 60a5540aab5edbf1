package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/s0up4200/marquee/web"
)

var listenAddr string

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the web interface",
	Long: `Serve the home and movie pages over HTTP. Pages render whatever their
sections have loaded within server.render_timeout and fill in the rest as it
arrives. JSON screen state is available under /api/screens.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&listenAddr, "addr", "", "listen address (overrides server.address)")

	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	opts := web.Options{
		Address:         cfg.Server.Address,
		RenderTimeout:   cfg.Server.RenderTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		DefaultFilter:   cfg.Filter.DefaultExpression,
	}
	if listenAddr != "" {
		opts.Address = listenAddr
	}
	if cfg.Metrics.Enabled {
		opts.MetricsEndpoint = cfg.Metrics.Endpoint
	}

	server, err := web.New(opts, web.Deps{
		Coordinator: coordinator,
		Filters:     filters,
		Themes:      themes,
		Images:      tmdbClient.Images(),
		Logger:      logger,
		Sentry:      sentryHub,
	})
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	return server.Run(cmd.Context())
}
