package links

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"
	"github.com/pelletier/go-toml/v2"

	"github.com/stupside/kisskh/internal/media"
	"github.com/stupside/kisskh/internal/series"
)

const (
	// LinksFile is the flat list of final links, one per episode.
	LinksFile = "final_links.txt"
	// SummaryFile describes the run per episode.
	SummaryFile = "episodes.toml"

	lockFile = ".kisskh.lock"
)

// ErrLocked is returned when another run holds the series directory.
var ErrLocked = errors.New("series directory is locked by another run")

// Store writes the artifacts of one series into its output directory.
type Store struct {
	dir  string
	lock *flock.Flock
}

// NewStore returns a Store rooted at baseDir/<series folder name>.
func NewStore(baseDir string, sc series.Context) *Store {
	dir := filepath.Join(baseDir, sc.FolderName())
	return &Store{
		dir:  dir,
		lock: flock.New(filepath.Join(dir, lockFile)),
	}
}

// Dir returns the series output directory.
func (s *Store) Dir() string {
	return s.dir
}

// Lock creates the directory and takes an exclusive, non-blocking lock on it.
func (s *Store) Lock() error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", s.dir, err)
	}
	ok, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("locking %s: %w", s.dir, err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrLocked, s.dir)
	}
	return nil
}

// Unlock releases the directory lock.
func (s *Store) Unlock() error {
	return s.lock.Unlock()
}

// WriteLinks writes one link per line in ascending episode order and returns
// the file path.
func (s *Store) WriteLinks(m Map) (string, error) {
	path := filepath.Join(s.dir, LinksFile)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("creating %s: %w", path, err)
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, n := range m.Numbers() {
		if _, err := fmt.Fprintln(w, m[n]); err != nil {
			return "", fmt.Errorf("writing %s: %w", path, err)
		}
	}
	if err := w.Flush(); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("closing %s: %w", path, err)
	}
	return path, nil
}

// Summary is the TOML document written next to the links file.
type Summary struct {
	SeriesID   int              `toml:"series_id"`
	SeriesName string           `toml:"series_name"`
	TargetURL  string           `toml:"target_url"`
	Episodes   []SummaryEpisode `toml:"episodes"`
}

// SummaryEpisode describes the outcome for one episode.
type SummaryEpisode struct {
	Number    int    `toml:"number"`
	EpisodeID string `toml:"episode_id"`
	Kind      string `toml:"kind"`
	Link      string `toml:"link"`
}

func newSummary(sc series.Context, episodes series.Episodes, m Map) Summary {
	sum := Summary{SeriesID: sc.ID, SeriesName: sc.Name, TargetURL: sc.TargetURL}
	for _, n := range m.Numbers() {
		sum.Episodes = append(sum.Episodes, SummaryEpisode{
			Number:    n,
			EpisodeID: episodes[n],
			Kind:      string(media.KindOf(m[n])),
			Link:      m[n],
		})
	}
	return sum
}

// WriteSummary records, per episode, its identifier, link and link kind as
// TOML and returns the file path.
func (s *Store) WriteSummary(sc series.Context, episodes series.Episodes, m Map) (string, error) {
	path := filepath.Join(s.dir, SummaryFile)

	data, err := toml.Marshal(newSummary(sc, episodes, m))
	if err != nil {
		return "", fmt.Errorf("encoding summary: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing %s: %w", path, err)
	}
	return path, nil
}
