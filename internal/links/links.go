package links

import (
	"log/slog"
	"maps"
	"slices"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/media"
	"github.com/stupside/kisskh/internal/series"
)

// Map holds the recorded link of every episode, keyed by episode number.
type Map map[int]string

// Numbers returns the episode numbers in ascending order.
func (m Map) Numbers() []int {
	return slices.Sorted(maps.Keys(m))
}

// Overrides maps a series id to episode identifiers whose manifest is known
// to be unextractable, and the replacement manifest for each.
type Overrides map[int]map[string]string

// Builtin returns the static override table shipped with the program.
func Builtin() Overrides {
	return Overrides{
		10652: {
			"184427": "https://hls.cdnvideo11.shop/hls07/10652/Ep2.v1865_index.m3u8",
		},
	}
}

// WithConfig returns a copy of o extended by the configured entries.
// Configured entries win over built-in ones for the same episode.
func (o Overrides) WithConfig(entries []app.OverrideConfig) Overrides {
	out := make(Overrides, len(o))
	for sid, eps := range o {
		out[sid] = maps.Clone(eps)
	}
	for _, e := range entries {
		if out[e.SeriesID] == nil {
			out[e.SeriesID] = map[string]string{}
		}
		out[e.SeriesID][e.EpisodeID] = e.URL
	}
	return out
}

// Applied records one substitution made by Apply.
type Applied struct {
	Number    int
	EpisodeID string
	URL       string
}

// Apply replaces every recorded link that is not a manifest with the
// override for its episode, if any. Manifest links are never touched, so
// applying twice changes nothing.
func (o Overrides) Apply(seriesID int, episodes series.Episodes, m Map) []Applied {
	table := o[seriesID]
	if len(table) == 0 {
		return nil
	}

	var applied []Applied
	for _, ep := range episodes.Sorted() {
		replacement, ok := table[ep.ID]
		if !ok {
			continue
		}
		current, recorded := m[ep.Number]
		if !recorded || media.IsManifest(current) {
			continue
		}
		m[ep.Number] = replacement
		applied = append(applied, Applied{Number: ep.Number, EpisodeID: ep.ID, URL: replacement})
		slog.Info("manual override applied", "episode", ep.Number, "episode_id", ep.ID)
	}
	return applied
}
