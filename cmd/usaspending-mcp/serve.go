package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/grantscope/usaspending-mcp/internal/config"
	"github.com/grantscope/usaspending-mcp/internal/logging"
	"github.com/grantscope/usaspending-mcp/internal/server"
	"github.com/grantscope/usaspending-mcp/pkg/upstream"
)

var flagServeConfig string

func init() {
	serveCmd.Flags().StringVar(&flagServeConfig, "config", "", "Path to a YAML config file")
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server over stdio",
	Long: `Run the MCP server on stdin/stdout. All logging goes to stderr;
stdout carries the protocol stream. Intended to be launched by an MCP client.`,
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := config.Load(flagServeConfig)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = log.Sync() }()

		srv := server.New(&server.Dependencies{
			Client: newUpstreamClient(cfg, log),
			Logger: log,
		})

		log.Info("starting usaspending MCP server",
			zap.String("base_url", cfg.Upstream.BaseURL))
		return srv.ServeStdio()
	},
}

func newUpstreamClient(cfg *config.Config, log *zap.Logger) *upstream.Client {
	return upstream.NewClient(
		upstream.Config{
			BaseURL:    cfg.Upstream.BaseURL,
			Timeout:    cfg.Upstream.Timeout,
			UserAgent:  cfg.Upstream.UserAgent,
			MaxRecords: cfg.Search.MaxRecords,
		},
		upstream.RetryPolicy{
			MaxAttempts: cfg.Retry.MaxAttempts,
			Delay:       cfg.Retry.Delay,
			MaxDelay:    cfg.Retry.MaxDelay,
		},
		log,
	)
}
