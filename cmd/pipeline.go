package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/mattn/go-isatty"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/browser"
	"github.com/stupside/kisskh/internal/discovery"
	"github.com/stupside/kisskh/internal/links"
	"github.com/stupside/kisskh/internal/series"
)

// ErrNoLinks is returned when a run ends without a single link to persist.
var ErrNoLinks = errors.New("failed to retrieve any valid links")

// collected is the outcome of a discovery run, persisted and still locked.
type collected struct {
	series   series.Context
	episodes series.Episodes
	links    links.Map
	store    *links.Store
}

// resolveSeries reads the catalog URL from rawURL, or from stdin when empty.
func resolveSeries(ctx context.Context, cfg *app.Config, rawURL string) (series.Context, error) {
	prefix := cfg.Site.CatalogPrefix()
	if rawURL != "" {
		return series.Resolve(rawURL, prefix)
	}
	return series.Prompt(ctx, os.Stdin, os.Stdout, prefix)
}

// collect resolves the series, discovers and persists its links, then calls
// next while still holding the series directory lock.
func collect(ctx context.Context, cfg *app.Config, rawURL string, next func(context.Context, collected) error) error {
	sc, err := resolveSeries(ctx, cfg, rawURL)
	if err != nil {
		return fmt.Errorf("resolving series: %w", err)
	}
	slog.InfoContext(ctx, "series resolved", "name", sc.Name, "id", sc.ID)

	store := links.NewStore(cfg.Output.Dir, sc)
	if err := store.Lock(); err != nil {
		return err
	}
	defer func() {
		if err := store.Unlock(); err != nil {
			slog.WarnContext(ctx, "releasing output lock", "error", err)
		}
	}()

	open := func(ctx context.Context) (discovery.Session, error) {
		return browser.Open(ctx, cfg)
	}
	episodes, m, err := discovery.Collect(ctx, open, nil, cfg, sc)
	if err != nil {
		return fmt.Errorf("collecting links: %w", err)
	}

	links.Builtin().WithConfig(cfg.Overrides).Apply(sc.ID, episodes, m)

	if len(m) == 0 {
		return ErrNoLinks
	}

	path, err := store.WriteLinks(m)
	if err != nil {
		return err
	}
	slog.InfoContext(ctx, "links saved", "path", path, "count", len(m))

	if _, err := store.WriteSummary(sc, episodes, m); err != nil {
		return err
	}

	color := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	fmt.Println(links.Render(m, color))

	return next(ctx, collected{series: sc, episodes: episodes, links: m, store: store})
}
