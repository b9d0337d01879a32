package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stupside/kisskh/internal/capture"
	"github.com/stupside/kisskh/internal/series"
)

// Episodes loads the series page, nudges the player so the page requests its
// episode list, and reads that list from the captured traffic. The traffic is
// scanned once; an empty result is ErrNoEpisodes.
func (d *Discoverer) Episodes(ctx context.Context, sc series.Context) (series.Episodes, error) {
	slog.InfoContext(ctx, "discovering episodes", "series", sc.Name, "id", sc.ID)

	// AwaitingPageLoad
	if err := d.session.Navigate(ctx, sc.TargetURL); err != nil {
		return nil, fmt.Errorf("loading series page: %w", err)
	}
	if err := d.sleep(ctx, d.timing.DiscoverySettle); err != nil {
		return nil, err
	}
	d.passChallenge(ctx)

	settle := d.timing.DiscoveryClickSettle
	if err := d.session.ClickPlayer(ctx); err != nil {
		if fatal(ctx, err) {
			return nil, err
		}
		slog.WarnContext(ctx, "player click failed, waiting for the page instead", "error", err)
		settle = d.timing.DiscoveryFallback
	}
	if err := d.sleep(ctx, settle); err != nil {
		return nil, err
	}

	// AwaitingListCapture
	entries, err := d.session.NetworkLog(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading network log: %w", err)
	}

	list := capture.ScanEpisodeList(ctx, entries, d.session, sc.ID)
	if len(list) == 0 {
		return nil, fmt.Errorf("%w for series %d", ErrNoEpisodes, sc.ID)
	}

	episodes := series.NewEpisodes(list)
	slog.InfoContext(ctx, "episodes discovered", "count", len(episodes))
	return episodes, nil
}
