package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/gravity-proxy/internal/app"
)

// Execute runs the root command with the given context and arguments.
func Execute(ctx context.Context, args []string, version, commit string) error {
	cmd := &cli.Command{
		Name:    "gravity",
		Usage:   "OpenAI-compatible gateway for the Antigravity upstream",
		Version: fmt.Sprintf("%s (%s)", version, commit),
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "path to a TOML config file",
				Sources: cli.EnvVars(app.EnvPrefix + "CONFIG"),
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "log level (debug|info|warn|error)",
			},
		},
		Commands: []*cli.Command{
			proxyStartCommand(version),
			configCommand(),
		},
	}

	return cmd.Run(ctx, args)
}

// loadOptions collects config sources from flags. Flags only override the configuration
// when they are set explicitly.
func loadOptions(cmd *cli.Command) app.LoadOptions {
	overrides := map[string]any{}
	for flag, key := range map[string]string{
		"log-level":  "log.level",
		"log-format": "log.format",
		"addr":       "server.addr",
	} {
		if cmd.IsSet(flag) {
			overrides[key] = cmd.String(flag)
		}
	}

	return app.LoadOptions{
		File:      cmd.String("config"),
		Overrides: overrides,
	}
}
