package commands

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/florianilch/gravity-proxy/internal/app"
)

func configCommand() *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Inspects the configuration",
		Commands: []*cli.Command{
			{
				Name:   "print",
				Usage:  "Prints the effective configuration with secrets redacted",
				Action: configPrintAction,
			},
			{
				Name:   "check",
				Usage:  "Validates the effective configuration",
				Action: configCheckAction,
			},
		},
	}
}

func configPrintAction(_ context.Context, cmd *cli.Command) error {
	out, err := app.RenderConfig(loadOptions(cmd))
	if err != nil {
		return err
	}
	_, err = cmd.Root().Writer.Write(out)
	return err
}

func configCheckAction(_ context.Context, cmd *cli.Command) error {
	if _, err := app.LoadConfig(loadOptions(cmd)); err != nil {
		return err
	}
	_, err := fmt.Fprintln(cmd.Root().Writer, "configuration is valid")
	return err
}
