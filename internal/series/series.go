package series

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"unicode"
)

// UnknownName is used when the catalog URL carries no usable title segment.
const UnknownName = "Unknown_Series"

var (
	// ErrPrefix is returned when the input is not a catalog URL.
	ErrPrefix = errors.New("not a catalog URL")
	// ErrSeriesID is returned when the catalog URL has no numeric id parameter.
	ErrSeriesID = errors.New("could not extract series id from URL")
)

// Context identifies the series a run works on. It is resolved once from
// user input and passed by value afterwards.
type Context struct {
	ID        int
	Name      string
	TargetURL string
}

// Episode pairs a catalog episode number with the site's opaque identifier.
type Episode struct {
	Number int
	ID     string
}

// Episodes maps episode numbers to episode identifiers.
type Episodes map[int]string

// Sorted returns the episodes in ascending episode number order.
func (e Episodes) Sorted() []Episode {
	out := make([]Episode, 0, len(e))
	for _, n := range slices.Sorted(maps.Keys(e)) {
		out = append(out, Episode{Number: n, ID: e[n]})
	}
	return out
}

// NewEpisodes builds the identifier map from scanned pairs. The first pair
// for a number wins; later ones are logged and dropped.
func NewEpisodes(list []Episode) Episodes {
	e := make(Episodes, len(list))
	for _, ep := range list {
		if kept, ok := e[ep.Number]; ok {
			slog.Warn("duplicate episode number", "number", ep.Number, "kept", kept, "dropped", ep.ID)
			continue
		}
		e[ep.Number] = ep.ID
	}
	return e
}

// Resolve parses a catalog URL into a series Context. The raw input must
// start with prefix and carry a purely numeric "id" query parameter.
func Resolve(raw, prefix string) (Context, error) {
	raw = strings.TrimSpace(raw)
	if !strings.HasPrefix(raw, prefix) {
		return Context{}, fmt.Errorf("%w: %q does not start with %s", ErrPrefix, raw, prefix)
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %w", ErrSeriesID, err)
	}

	idParam := u.Query().Get("id")
	if !isDigits(idParam) {
		return Context{}, fmt.Errorf("%w: id=%q", ErrSeriesID, idParam)
	}
	id, err := strconv.Atoi(idParam)
	if err != nil {
		return Context{}, fmt.Errorf("%w: %w", ErrSeriesID, err)
	}

	return Context{
		ID:        id,
		Name:      nameFromPath(u.Path),
		TargetURL: raw,
	}, nil
}

// nameFromPath takes the first path segment that is not a generic catalog
// segment and turns its dashes into spaces.
func nameFromPath(p string) string {
	for seg := range strings.SplitSeq(p, "/") {
		if seg == "" || strings.Contains(seg, "Drama") || strings.Contains(seg, "Episode") {
			continue
		}
		if unescaped, err := url.PathUnescape(seg); err == nil {
			seg = unescaped
		}
		return strings.ReplaceAll(seg, "-", " ")
	}
	return UnknownName
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// EpisodeURL returns the catalog page of one episode.
func (c Context) EpisodeURL(baseURL string, number int, episodeID string) string {
	slug := url.PathEscape(strings.ReplaceAll(c.Name, " ", "-"))
	return fmt.Sprintf("%s/Drama/%s/Episode-%d?id=%d&ep=%s&page=0&pageSize=100",
		strings.TrimSuffix(baseURL, "/"), slug, number, c.ID, url.QueryEscape(episodeID))
}

// FolderName returns the series name with whitespace and colons replaced by
// underscores, for use as an output directory name.
func (c Context) FolderName() string {
	return strings.Map(func(r rune) rune {
		if r == ':' || unicode.IsSpace(r) {
			return '_'
		}
		return r
	}, c.Name)
}
