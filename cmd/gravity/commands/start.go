package commands

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/gravity-proxy/internal/app"
	"github.com/florianilch/gravity-proxy/internal/observability"
)

func proxyStartCommand(version string) *cli.Command {
	return &cli.Command{
		Name:  "start",
		Usage: "Starts the proxy",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "log-format",
				Usage: "log format (text|json|otel)",
			},
			&cli.StringFlag{
				Name:  "addr",
				Usage: "listen address (host:port)",
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			return proxyStartAction(ctx, cmd, version)
		},
	}
}

func proxyStartAction(ctx context.Context, cmd *cli.Command, version string) error {
	cfg, err := app.LoadConfig(loadOptions(cmd))
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Log.Level)); err != nil {
		return err
	}

	// Set up observability before creating app
	shutdownLogs, err := observability.Instrument(ctx, observability.Options{
		Level:    level,
		Format:   cfg.Log.Format,
		Exporter: cfg.Log.Exporter,
		Version:  version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up observability layer: %w", err)
	}
	defer func() {
		if err := shutdownLogs(context.WithoutCancel(ctx)); err != nil {
			fmt.Fprintf(cmd.Root().ErrWriter, "failed to flush logs: %v\n", err)
		}
	}()

	application, err := app.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to create app: %w", err)
	}

	slog.InfoContext(ctx, "starting", "version", version)

	if err := application.Start(ctx); err != nil {
		return fmt.Errorf("app failed to start: %w", err)
	}

	slog.InfoContext(ctx, "stopped gracefully")
	return nil
}
