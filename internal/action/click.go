package action

import (
	"context"
	_ "embed"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
)

// elementGoneJS returns true once the element matching __SELECTOR__ is absent
// or not rendered.
//
//go:embed js/element_gone.js
var elementGoneJS string

// elementClickJS clicks the element matching __SELECTOR__ from script and
// returns whether it was found.
//
//go:embed js/element_click.js
var elementClickJS string

func withSelector(js, selector string) string {
	return strings.ReplaceAll(js, "__SELECTOR__", strconv.Quote(selector))
}

// ClickPlayer waits for the loading overlay matching spinner to disappear and
// for the element matching player to exist, then clicks the player from
// script so overlays cannot intercept the click. Both waits share timeout.
func ClickPlayer(ctx context.Context, spinner, player string, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var gone, clicked bool
	err := chromedp.Run(ctx,
		chromedp.Poll(withSelector(elementGoneJS, spinner), &gone, chromedp.WithPollingTimeout(0)),
		chromedp.WaitReady(player, chromedp.ByQuery),
		chromedp.Evaluate(withSelector(elementClickJS, player), &clicked),
	)
	if err != nil {
		return fmt.Errorf("clicking %s: %w", player, err)
	}
	if !clicked {
		return fmt.Errorf("clicking %s: element disappeared before click", player)
	}
	return nil
}
