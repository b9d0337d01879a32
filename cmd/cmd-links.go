package cmd

import (
	"context"

	"github.com/urfave/cli/v3"

	"github.com/stupside/kisskh/internal/app"
)

// linksCommand returns the "links" CLI subcommand.
func linksCommand() *cli.Command {
	var urlArg string

	return &cli.Command{
		Name:      "links",
		Usage:     "Discover and save the episode links of a series",
		ArgsUsage: "[catalog URL]",
		Arguments: []cli.Argument{
			&cli.StringArg{
				Name:        "url",
				Destination: &urlArg,
			},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			cfg, err := app.ConfigFrom(cmd)
			if err != nil {
				return err
			}
			return collect(ctx, cfg, urlArg, func(context.Context, collected) error { return nil })
		},
	}
}
