package browser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	cdpbrowser "github.com/chromedp/cdproto/browser"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/stupside/kisskh/internal/action"
	"github.com/stupside/kisskh/internal/app"
	"github.com/stupside/kisskh/internal/capture"
)

// ErrClosed marks errors caused by the browser session itself going away:
// Chrome exited, the tab was closed, or the run was interrupted.
var ErrClosed = errors.New("browser session closed")

// Session owns one Chrome instance and the network recorder attached to its
// tab. It is not safe for concurrent use.
type Session struct {
	ctx         context.Context
	cancel      context.CancelFunc
	allocCancel context.CancelFunc
	recorder    *capture.Recorder
	nav         *navigator
	frame       cdp.FrameID
	site        app.SiteConfig
	timing      app.TimingConfig
	current     string
}

// Open launches Chrome with a fresh stealth profile and starts recording
// network traffic. The caller must Close the session.
func Open(ctx context.Context, cfg *app.Config) (*Session, error) {
	profile := NewProfile()
	slog.DebugContext(ctx, "stealth profile generated",
		"ua", profile.UserAgent,
		"platform", profile.Platform,
		"timezone", profile.TimezoneID,
		"screen", fmt.Sprintf("%dx%d", profile.ScreenWidth, profile.ScreenHeight),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocatorOpts(cfg.Browser, profile)...)
	taskCtx, taskCancel := chromedp.NewContext(allocCtx)

	recorder := capture.NewRecorder()
	chromedp.ListenTarget(taskCtx, recorder.Listen)

	if err := chromedp.Run(taskCtx,
		network.Enable(),
		cdpbrowser.SetDownloadBehavior(cdpbrowser.SetDownloadBehaviorBehaviorDeny),
		injectStealth(profile),
		injectCDPStealth(profile),
	); err != nil {
		taskCancel()
		allocCancel()
		return nil, fmt.Errorf("starting browser: %w", err)
	}

	slog.InfoContext(ctx, "browser started", "headless", cfg.Browser.Headless)

	// The main frame of a page target shares the target's id.
	frame := cdp.FrameID(chromedp.FromContext(taskCtx).Target.TargetID)

	s := &Session{
		ctx:         taskCtx,
		cancel:      taskCancel,
		allocCancel: allocCancel,
		recorder:    recorder,
		frame:       frame,
		site:        cfg.Site,
		timing:      cfg.Timing,
	}
	s.nav = &navigator{
		run: func(url string) error {
			return chromedp.Run(taskCtx, chromedp.Navigate(url))
		},
		stop: func() {
			if err := chromedp.Run(taskCtx, page.StopLoading()); err != nil {
				slog.DebugContext(ctx, "stopping page load failed", "error", err)
			}
		},
		timeout: cfg.Browser.Timeout,
	}
	return s, nil
}

// wrap tags err with ErrClosed when the session context is gone.
func (s *Session) wrap(err error) error {
	if err == nil {
		return nil
	}
	if s.ctx.Err() != nil {
		return fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return err
}

// Navigate loads url in the session tab. Traffic of the previous page is
// dropped, and ignored until the new document arrives. A load that times out
// is stopped; the next Navigate waits for it to wind down first.
func (s *Session) Navigate(ctx context.Context, url string) error {
	s.current = url

	err := s.nav.navigate(ctx, url, func() { s.recorder.Arm(s.frame) })
	if err != nil {
		return s.wrap(fmt.Errorf("navigating to %s: %w", url, err))
	}
	s.recorder.Open()

	snapshot(s.ctx, url, "after_nav")
	return nil
}

// PassChallenge clears a Cloudflare Turnstile challenge if the page shows one.
func (s *Session) PassChallenge(ctx context.Context) error {
	return s.wrap(action.PassChallenge(s.ctx, s.timing.TurnstileTimeout))
}

// ClickPlayer waits out the loading overlay and clicks the video player.
func (s *Session) ClickPlayer(ctx context.Context) error {
	err := action.ClickPlayer(s.ctx, s.site.SpinnerSelector, s.site.PlayerSelector, s.timing.ElementTimeout)
	snapshot(s.ctx, s.current, "after_click")
	return s.wrap(err)
}

// NetworkLog returns the transactions recorded since the last navigation.
func (s *Session) NetworkLog(ctx context.Context) ([]capture.Entry, error) {
	if err := s.ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return s.recorder.Snapshot(), nil
}

// ResponseBody fetches the body of a recorded response from Chrome.
func (s *Session) ResponseBody(ctx context.Context, requestID string) ([]byte, error) {
	var body []byte
	err := chromedp.Run(s.ctx, chromedp.ActionFunc(func(ctx context.Context) error {
		var err error
		body, err = network.GetResponseBody(network.RequestID(requestID)).Do(ctx)
		return err
	}))
	if err != nil {
		return nil, s.wrap(fmt.Errorf("fetching body of %s: %w", requestID, err))
	}
	return body, nil
}

// Close tears down the tab and the browser process.
func (s *Session) Close() {
	s.cancel()
	s.allocCancel()
	slog.Info("browser closed")
}
