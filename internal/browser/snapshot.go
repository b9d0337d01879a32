package browser

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// snapshot writes a screenshot and the outer HTML of the current page under
// .debug/. It only runs when debug logging is enabled and never fails the
// caller.
func snapshot(ctx context.Context, pageURL, label string) {
	if !slog.Default().Enabled(ctx, slog.LevelDebug) {
		return
	}

	dir := filepath.Join(".debug", sanitize(pageURL))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		slog.DebugContext(ctx, "snapshot: mkdir failed", "error", err)
		return
	}
	prefix := filepath.Join(dir, fmt.Sprintf("%s_%d", label, time.Now().UnixMilli()))

	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		slog.DebugContext(ctx, "snapshot: screenshot failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".png", buf, 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write png failed", "error", err)
	}

	var html string
	if err := chromedp.Run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		slog.DebugContext(ctx, "snapshot: html failed", "label", label, "error", err)
	} else if err := os.WriteFile(prefix+".html", []byte(html), 0o644); err != nil {
		slog.DebugContext(ctx, "snapshot: write html failed", "error", err)
	}

	slog.DebugContext(ctx, "snapshot: saved", "label", label, "path", prefix)
}

// sanitize turns a URL into a safe directory name.
func sanitize(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "unknown"
	}
	s := strings.NewReplacer("/", "_", ":", "_", "?", "_", "&", "_", "=", "_").Replace(u.Host + u.Path + "?" + u.RawQuery)
	if len(s) > 80 {
		s = s[:80]
	}
	return s
}
