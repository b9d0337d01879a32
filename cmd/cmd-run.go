package cmd

import (
	"context"
	"log/slog"

	"github.com/urfave/cli/v3"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/download"
)

// runCommand returns the "run" CLI subcommand.
func runCommand() *cli.Command {
	var urlArg string

	return &cli.Command{
		Name:      "run",
		Usage:     "Discover the episode links of a series and download them with yt-dlp",
		ArgsUsage: "[catalog URL]",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "dry-run",
				Usage: "Print the yt-dlp commands instead of running them",
			},
		},
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

			dl, err := download.New(cfg.Download, cfg.Site.Referer, download.WithDryRun(cmd.Bool("dry-run")))
			if err != nil {
				return err
			}

			return collect(ctx, cfg, urlArg, func(ctx context.Context, c collected) error {
				slog.InfoContext(ctx, "starting downloads", "dir", c.store.Dir())
				if err := dl.Batch(ctx, c.series, c.episodes, c.links, c.store.Dir()); err != nil {
					slog.ErrorContext(ctx, "some downloads failed", "error", err)
					return err
				}
				slog.InfoContext(ctx, "all downloads finished")
				return nil
			})
		},
	}
}
