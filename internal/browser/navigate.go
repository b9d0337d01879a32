package browser

import (
	"context"
	"errors"
	"fmt"
	"time"
)

var errNavigationTimeout = errors.New("navigation timed out")

// navigator runs one page load at a time. A load that outlives its timeout
// is stopped and must finish before the next one starts.
type navigator struct {
	run     func(url string) error
	stop    func()
	timeout time.Duration
	pending <-chan error
}

// navigate loads url, calling begin right before the load starts.
func (n *navigator) navigate(ctx context.Context, url string, begin func()) error {
	if n.pending != nil {
		finished, err := await(ctx, n.pending, n.timeout)
		if !finished {
			if err != nil {
				return err
			}
			return fmt.Errorf("previous load still running: %w", errNavigationTimeout)
		}
		n.pending = nil
	}

	begin()

	// The load runs on the task context itself: canceling a child of the
	// chromedp task context breaks the target in chromedp v0.14.
	done := make(chan error, 1)
	go func() {
		done <- n.run(url)
	}()

	finished, err := await(ctx, done, n.timeout)
	if !finished {
		n.pending = done
		n.stop()
		if err != nil {
			return err
		}
		return fmt.Errorf("after %s: %w", n.timeout, errNavigationTimeout)
	}
	return err
}

// await waits for done. finished is false when the timeout or ctx ended the
// wait first; err is then ctx's error, if any.
func await(ctx context.Context, done <-chan error, timeout time.Duration) (finished bool, err error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case err := <-done:
		return true, err
	case <-timer.C:
		return false, nil
	case <-ctx.Done():
		return false, ctx.Err()
	}
}
