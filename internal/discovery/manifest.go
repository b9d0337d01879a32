package discovery

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/stupside/kisskh/internal/capture"
	"github.com/stupside/kisskh/internal/links"
	"github.com/stupside/kisskh/internal/series"
)

// Links resolves one link per episode, in ascending episode order. An episode
// whose manifest does not show up in time, or whose page fails to load, gets
// its page URL instead. Only a lost session aborts the loop, in which case no
// links are returned.
func (d *Discoverer) Links(ctx context.Context, sc series.Context, episodes series.Episodes) (links.Map, error) {
	m := make(links.Map, len(episodes))
	list := episodes.Sorted()

	for i, ep := range list {
		page := sc.EpisodeURL(d.site.BaseURL, ep.Number, ep.ID)
		log := slog.With("episode", ep.Number, "episode_id", ep.ID)

		manifest, err := d.resolve(ctx, page, ep)
		switch {
		case err != nil && fatal(ctx, err):
			return nil, fmt.Errorf("episode %d: %w", ep.Number, err)
		case err != nil:
			log.WarnContext(ctx, "episode failed, keeping page URL", "error", err)
			m[ep.Number] = page
		case manifest == "":
			log.WarnContext(ctx, "no manifest captured, keeping page URL", "timeout", d.timing.PollTimeout)
			m[ep.Number] = page
		default:
			log.InfoContext(ctx, "manifest captured", "url", manifest)
			m[ep.Number] = manifest
		}

		if i < len(list)-1 {
			if err := d.sleep(ctx, d.timing.EpisodeGap); err != nil {
				return nil, err
			}
		}
	}

	return m, nil
}

// resolve loads one episode page and polls its traffic for the manifest. An
// empty result with a nil error means the poll timed out.
func (d *Discoverer) resolve(ctx context.Context, page string, ep series.Episode) (string, error) {
	if err := d.session.Navigate(ctx, page); err != nil {
		return "", err
	}
	if err := d.sleep(ctx, d.timing.EpisodeSettle); err != nil {
		return "", err
	}

	if err := d.session.ClickPlayer(ctx); err != nil {
		if fatal(ctx, err) {
			return "", err
		}
		slog.DebugContext(ctx, "player click failed", "episode", ep.Number, "error", err)
	}

	return d.pollManifest(ctx, ep.ID)
}

// pollManifest scans a fresh network log snapshot every poll interval until
// the manifest of episodeID shows up or the poll timeout elapses. Snapshot
// errors count as an empty tick unless the session is gone.
func (d *Discoverer) pollManifest(ctx context.Context, episodeID string) (string, error) {
	deadline := d.clock.Now().Add(d.timing.PollTimeout)

	for {
		entries, err := d.session.NetworkLog(ctx)
		switch {
		case err != nil && fatal(ctx, err):
			return "", err
		case err != nil:
			slog.DebugContext(ctx, "network log unavailable", "error", err)
		default:
			if url, ok := capture.ScanManifest(ctx, entries, d.session, episodeID, d.rules); ok {
				return url, nil
			}
		}

		if !d.clock.Now().Before(deadline) {
			return "", nil
		}
		if err := d.sleep(ctx, d.timing.PollInterval); err != nil {
			return "", err
		}
	}
}
