package download

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"
	"text/template"

	"golang.org/x/sync/errgroup"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/links"
	"github.com/stupside/kisskh/internal/media"
	"github.com/stupside/kisskh/internal/series"
)

// Runner executes one external command to completion.
type Runner func(ctx context.Context, name string, args []string) error

// Downloader hands manifest links to yt-dlp, one episode at a time.
type Downloader struct {
	cfg      app.DownloadConfig
	referer  string
	filename *template.Template
	run      Runner
	dryRun   bool
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithRunner replaces the process runner.
func WithRunner(r Runner) Option {
	return func(d *Downloader) { d.run = r }
}

// WithDryRun logs each command line instead of running it.
func WithDryRun(dry bool) Option {
	return func(d *Downloader) { d.dryRun = dry }
}

// New returns a Downloader. It fails when the filename template does not parse.
func New(cfg app.DownloadConfig, referer string, opts ...Option) (*Downloader, error) {
	tmpl, err := template.New("filename").Option("missingkey=error").Parse(cfg.FilenameTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing filename template: %w", err)
	}

	d := &Downloader{
		cfg:      cfg,
		referer:  referer,
		filename: tmpl,
		run:      execRunner,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// filenameData is what the filename template sees.
type filenameData struct {
	Series    string
	SeriesID  int
	Episode   int
	EpisodeID string
}

// Filename renders the output file name of one episode.
func (d *Downloader) Filename(sc series.Context, ep series.Episode) (string, error) {
	var buf bytes.Buffer
	err := d.filename.Execute(&buf, filenameData{
		Series:    sc.Name,
		SeriesID:  sc.ID,
		Episode:   ep.Number,
		EpisodeID: ep.ID,
	})
	if err != nil {
		return "", fmt.Errorf("rendering filename for episode %d: %w", ep.Number, err)
	}
	return buf.String(), nil
}

// Args builds the yt-dlp argument list for one manifest.
func (d *Downloader) Args(manifest, outDir, filename string) []string {
	args := []string{
		// The CDN rejects requests without the site as referer
		"--referer", d.referer,
		manifest,
		// Parallel HLS fragment downloads within the one invocation
		"--concurrent-fragments", strconv.Itoa(d.cfg.ConcurrentFragments),
		"--paths", outDir,
	}
	if d.cfg.FFmpegLocation != "" {
		args = append(args, "--ffmpeg-location", d.cfg.FFmpegLocation)
	}
	return append(args, "-o", filename)
}

// Batch downloads every manifest link of m into outDir in ascending episode
// order. Fallback page links are skipped. A failed episode does not stop the
// batch; all failures are returned joined.
func (d *Downloader) Batch(ctx context.Context, sc series.Context, episodes series.Episodes, m links.Map, outDir string) error {
	var errs []error

	for _, n := range m.Numbers() {
		link := m[n]
		log := slog.With("episode", n)

		if !media.IsManifest(link) {
			log.WarnContext(ctx, "skipping download, no manifest", "link", link)
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}

		name, err := d.Filename(sc, series.Episode{Number: n, ID: episodes[n]})
		if err != nil {
			errs = append(errs, err)
			continue
		}
		args := d.Args(link, outDir, name)

		if d.dryRun {
			log.InfoContext(ctx, "dry run", "cmd", d.cfg.YtDlpPath+" "+strings.Join(args, " "))
			continue
		}

		log.InfoContext(ctx, "downloading", "file", name)
		if err := d.run(ctx, d.cfg.YtDlpPath, args); err != nil {
			log.ErrorContext(ctx, "download failed", "error", err)
			errs = append(errs, fmt.Errorf("episode %d: %w", n, err))
			continue
		}
		log.InfoContext(ctx, "download finished", "file", name)
	}

	return errors.Join(errs...)
}

// execRunner runs name with args and streams its output into the log.
func execRunner(ctx context.Context, name string, args []string) error {
	cmd := exec.CommandContext(ctx, name, args...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("creating stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return fmt.Errorf("creating stderr pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", name, err)
	}

	var g errgroup.Group
	g.Go(func() error { return drain(ctx, name, stdout, slog.LevelDebug) })
	g.Go(func() error { return drain(ctx, name, stderr, slog.LevelWarn) })

	// Pipes must be fully read before Wait closes them.
	drainErr := g.Wait()
	if err := cmd.Wait(); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return drainErr
}

const maxLineSize = 1 << 20

// drain logs r line by line at level. r is always read to EOF so the process
// never blocks on a full pipe, even when a line is too long to log.
func drain(ctx context.Context, name string, r io.Reader, level slog.Level) error {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineSize)
	for scanner.Scan() {
		slog.Log(ctx, level, name, "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		_, _ = io.Copy(io.Discard, r)
		return fmt.Errorf("reading %s output: %w", name, err)
	}
	return nil
}
