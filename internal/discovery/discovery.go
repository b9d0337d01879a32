package discovery

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/browser"
	"github.com/stupside/kisskh/internal/capture"
	"github.com/stupside/kisskh/internal/links"
	"github.com/stupside/kisskh/internal/series"
)

// ErrNoEpisodes is returned when the series page never delivered its episode
// list. No link can be produced without it.
var ErrNoEpisodes = errors.New("episode list not captured")

// Session is the browser the discoverer drives. browser.Session implements it.
type Session interface {
	capture.BodyFetcher
	Navigate(ctx context.Context, url string) error
	PassChallenge(ctx context.Context) error
	ClickPlayer(ctx context.Context) error
	NetworkLog(ctx context.Context) ([]capture.Entry, error)
	Close()
}

// Clock abstracts time for the settle waits and the polling loop.
type Clock interface {
	Now() time.Time
	Sleep(ctx context.Context, d time.Duration) error
}

// SystemClock is the wall clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

func (SystemClock) Sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Discoverer finds a series' episodes and then each episode's manifest by
// watching the traffic of a single browser session.
type Discoverer struct {
	session Session
	clock   Clock
	site    app.SiteConfig
	timing  app.TimingConfig
	rules   capture.Rules
}

// New returns a Discoverer driving session. A nil clock means SystemClock.
func New(session Session, clock Clock, cfg *app.Config) *Discoverer {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Discoverer{
		session: session,
		clock:   clock,
		site:    cfg.Site,
		timing:  cfg.Timing,
		rules: capture.Rules{
			ConfigMarker:  cfg.Site.ConfigMarker,
			ManifestField: cfg.Site.ManifestField,
		},
	}
}

// Opener starts a browser session.
type Opener func(ctx context.Context) (Session, error)

// Collect opens a session, discovers the episodes of sc and resolves a link
// for each of them. The session is closed before Collect returns, whatever
// the outcome. On error no links are returned.
func Collect(ctx context.Context, open Opener, clock Clock, cfg *app.Config, sc series.Context) (series.Episodes, links.Map, error) {
	session, err := open(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("opening browser: %w", err)
	}
	defer session.Close()

	d := New(session, clock, cfg)

	episodes, err := d.Episodes(ctx, sc)
	if err != nil {
		return nil, nil, err
	}

	m, err := d.Links(ctx, sc, episodes)
	if err != nil {
		return nil, nil, err
	}
	return episodes, m, nil
}

// fatal reports whether err means the session cannot be used any more.
func fatal(ctx context.Context, err error) bool {
	return errors.Is(err, browser.ErrClosed) || ctx.Err() != nil
}

// sleep waits d on the clock, tagging an interrupted wait as fatal.
func (d *Discoverer) sleep(ctx context.Context, dur time.Duration) error {
	if err := d.clock.Sleep(ctx, dur); err != nil {
		return fmt.Errorf("%w: %w", browser.ErrClosed, err)
	}
	return nil
}

func (d *Discoverer) passChallenge(ctx context.Context) {
	if err := d.session.PassChallenge(ctx); err != nil {
		slog.WarnContext(ctx, "challenge not passed", "error", err)
	}
}
