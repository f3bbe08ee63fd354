package main

import (
	"context"
	"os"

	"log/slog"

	"github.com/spf13/cobra"

	"github.com/container-engine/container-engine/internal/config"
	"github.com/container-engine/container-engine/internal/logging"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "container-engine",
		Short:   "Multi-tenant container deployment control plane",
		Long:    "container-engine deploys user workloads onto a Kubernetes cluster: namespaces, deployments, services, ingresses, custom domains and TLS.",
		Version: version,
		RunE: func(cmd *cobra.Command, args []string) error {
			// Show help by default when no subcommand is provided.
			return cmd.Help()
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().String("log-format", "text", "Log format (text|json) (env CONTAINER_ENGINE_LOG_FORMAT)")
	cmd.PersistentFlags().String("log-level", "info", "Log level (debug|info|warn|error)")

	cmd.PersistentPreRunE = func(c *cobra.Command, _ []string) error {
		format, _ := c.Flags().GetString("log-format")
		if !c.Flags().Changed("log-format") {
			if cfg, err := config.Load(); err == nil && cfg.LogFormat != "" {
				format = cfg.LogFormat
			}
		}
		levelName, _ := c.Flags().GetString("log-level")
		l, err := logging.New(format, parseLevel(levelName))
		if err != nil {
			return err
		}
		ctx := logging.WithLogger(c.Context(), l)
		c.SetContext(ctx)
		return nil
	}

	cmd.AddCommand(newCmdVersion())
	cmd.AddCommand(newCmdServe())
	return cmd
}

func parseLevel(name string) slog.Level {
	switch name {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func main() {
	root := newRootCmd()
	root.SetContext(context.Background())
	executed, err := root.ExecuteC()
	if err != nil {
		ctx := root.Context()
		if executed != nil {
			ctx = executed.Context()
		}
		logging.FromContext(ctx).Errorf(ctx, "Failed: %s", err)
		os.Exit(1)
	}
}
