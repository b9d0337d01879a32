package capture

import (
	"context"
	"log/slog"
	"math"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/tidwall/gjson"

	"github.com/stupside/kisskh/internal/media"
	"github.com/stupside/kisskh/internal/series"
)

// Rules name the per-episode config endpoint and the manifest field of its
// JSON payload.
type Rules struct {
	ConfigMarker  string // e.g. "Epconfig/", followed by the episode identifier
	ManifestField string // e.g. "HlsUrl"
}

// ScanEpisodeList looks through successful responses for the series detail
// payload: a JSON object whose "id" equals seriesID and that carries an
// "episodes" array. It returns the episodes whose number is a positive whole
// number, first occurrence winning, or nil when no payload matched.
func ScanEpisodeList(ctx context.Context, entries []Entry, fetch BodyFetcher, seriesID int) []series.Episode {
	for _, e := range entries {
		if e.Kind != KindResponse || e.Status < 200 || e.Status >= 300 {
			continue
		}

		body := fetchJSON(ctx, fetch, e)
		if body == nil {
			continue
		}

		doc := gjson.ParseBytes(body)
		id := doc.Get("id")
		if id.Type != gjson.Number || id.Num != float64(seriesID) {
			continue
		}
		list := doc.Get("episodes")
		if !list.IsArray() {
			continue
		}

		var episodes []series.Episode
		seen := map[int]string{}
		for _, item := range list.Array() {
			num := item.Get("number")
			if num.Type != gjson.Number || num.Num <= 0 || num.Num != math.Trunc(num.Num) {
				slog.DebugContext(ctx, "scan: skipping episode without a positive whole number", "number", num.Raw, "id", item.Get("id").String())
				continue
			}
			ep := series.Episode{Number: int(num.Num), ID: item.Get("id").String()}
			if first, dup := seen[ep.Number]; dup {
				slog.WarnContext(ctx, "scan: duplicate episode number, keeping the first", "number", ep.Number, "kept", first, "dropped", ep.ID)
				continue
			}
			seen[ep.Number] = ep.ID
			episodes = append(episodes, ep)
		}

		slog.DebugContext(ctx, "scan: episode list found", "url", e.URL, "episodes", len(episodes))
		return episodes
	}

	return nil
}

// ScanManifest looks for the manifest URL of one episode. Any captured URL
// ending in the manifest suffix wins immediately; otherwise the body of the
// episode's config endpoint response is checked for a manifest field. Entries
// that cannot be fetched or parsed are skipped.
func ScanManifest(ctx context.Context, entries []Entry, fetch BodyFetcher, episodeID string, rules Rules) (string, bool) {
	needle := rules.ConfigMarker + episodeID

	for _, e := range entries {
		if e.URL == "" {
			continue
		}

		if media.IsManifest(e.URL) {
			slog.DebugContext(ctx, "scan: manifest URL captured", "url", e.URL, "kind", e.Kind)
			return e.URL, true
		}

		if e.Kind != KindResponse || !containsIdentifier(e.URL, needle) {
			continue
		}

		body := fetchJSON(ctx, fetch, e)
		if body == nil {
			continue
		}

		link := gjson.GetBytes(body, rules.ManifestField).String()
		if media.IsManifest(link) {
			slog.DebugContext(ctx, "scan: manifest found in config payload", "url", e.URL, "manifest", link)
			return link, true
		}
	}

	return "", false
}

// containsIdentifier reports whether u contains needle not directly followed
// by another letter or digit, so "Epconfig/55" does not match "Epconfig/555".
func containsIdentifier(u, needle string) bool {
	for {
		i := strings.Index(u, needle)
		if i < 0 {
			return false
		}
		rest := u[i+len(needle):]
		if rest == "" {
			return true
		}
		r, _ := utf8.DecodeRuneInString(rest)
		if !unicode.IsLetter(r) && !unicode.IsDigit(r) {
			return true
		}
		u = u[i+1:]
	}
}

// fetchJSON fetches an entry's body and returns it only when it is
// non-empty, valid JSON.
func fetchJSON(ctx context.Context, fetch BodyFetcher, e Entry) []byte {
	body, err := fetch.ResponseBody(ctx, e.RequestID)
	if err != nil {
		slog.DebugContext(ctx, "scan: body unavailable", "url", e.URL, "error", err)
		return nil
	}
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return nil
	}
	return body
}
