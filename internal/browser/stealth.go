package browser

import (
	"context"
	_ "embed"
	"strconv"
	"strings"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/stupside/kisskh/internal/app"
)

//go:embed js/stealth.js
var stealthJS string

// stealthScript fills the profile placeholders of the stealth shim.
func stealthScript(profile *Profile) string {
	return strings.NewReplacer(
		"__WEBGL_VENDOR__", profile.WebGLVendor,
		"__WEBGL_RENDERER__", profile.WebGLRenderer,
		"__DEVICE_MEMORY__", strconv.Itoa(profile.DeviceMemory),
	).Replace(stealthJS)
}

// allocatorOpts returns exec-allocator options without the usual headless
// giveaways.
func allocatorOpts(cfg app.BrowserConfig, profile *Profile) []chromedp.ExecAllocatorOption {
	var headless string
	if cfg.Headless {
		headless = "new"
	}

	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,

		chromedp.Flag("headless", headless),
		chromedp.Flag("no-sandbox", cfg.NoSandbox),
		chromedp.Flag("disable-dev-shm-usage", true),

		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("autoplay-policy", "no-user-gesture-required"),

		chromedp.WindowSize(profile.ScreenWidth, profile.ScreenHeight),
		chromedp.UserAgent(profile.UserAgent),
	}
	if cfg.ChromePath != "" {
		opts = append(opts, chromedp.ExecPath(cfg.ChromePath))
	}
	return opts
}

// injectStealth installs the JS shim before any page script runs.
func injectStealth(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(stealthScript(profile)).Do(ctx)
		return err
	}
}

// injectCDPStealth applies the overrides that only the protocol can set:
// navigator.webdriver, focus, hardware, timezone, locale and client hints.
func injectCDPStealth(profile *Profile) chromedp.ActionFunc {
	return func(ctx context.Context) error {
		if err := emulation.SetAutomationOverride(false).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetFocusEmulationEnabled(true).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetHardwareConcurrencyOverride(profile.HardwareConcurrency).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetTimezoneOverride(profile.TimezoneID).Do(ctx); err != nil {
			return err
		}
		if err := emulation.SetLocaleOverride().WithLocale(profile.Locale).Do(ctx); err != nil {
			return err
		}

		ua := emulation.SetUserAgentOverride(profile.UserAgent)
		ua.AcceptLanguage = profile.AcceptLanguage
		ua.Platform = profile.NavigatorPlatform
		ua.UserAgentMetadata = &emulation.UserAgentMetadata{
			Brands:          brandVersions(profile.Brands),
			FullVersionList: brandVersions(profile.FullVersionList),
			Platform:        profile.Platform,
			PlatformVersion: profile.PlatformVersion,
			Architecture:    profile.Architecture,
			Bitness:         "64",
		}
		return ua.Do(ctx)
	}
}

func brandVersions(pairs [][2]string) []*emulation.UserAgentBrandVersion {
	out := make([]*emulation.UserAgentBrandVersion, len(pairs))
	for i, p := range pairs {
		out[i] = &emulation.UserAgentBrandVersion{Brand: p[0], Version: p[1]}
	}
	return out
}
