package browser

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// fakeLoads blocks the load of "slow" until release is closed.
type fakeLoads struct {
	mu      sync.Mutex
	started []string
	stops   int
	release chan struct{}
}

func (f *fakeLoads) run(url string) error {
	f.mu.Lock()
	f.started = append(f.started, url)
	f.mu.Unlock()
	if url == "slow" {
		<-f.release
	}
	return nil
}

func (f *fakeLoads) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.started)
}

func TestNavigatorWaitsForTimedOutLoad(t *testing.T) {
	f := &fakeLoads{release: make(chan struct{})}
	n := &navigator{run: f.run, stop: func() { f.stops++ }, timeout: 20 * time.Millisecond}
	ctx := context.Background()

	var begins int
	begin := func() { begins++ }

	if err := n.navigate(ctx, "slow", begin); !errors.Is(err, errNavigationTimeout) {
		t.Fatalf("first load error = %v, want timeout", err)
	}
	if f.stops != 1 {
		t.Fatalf("stop called %d times, want 1", f.stops)
	}

	// The stopped load has not returned yet: nothing new may start.
	if err := n.navigate(ctx, "next", begin); !errors.Is(err, errNavigationTimeout) {
		t.Fatalf("overlapping load error = %v, want timeout", err)
	}
	if f.count() != 1 || begins != 1 {
		t.Fatalf("second load started while the first was running: %v", f.started)
	}

	close(f.release)
	if err := n.navigate(ctx, "next", begin); err != nil {
		t.Fatalf("load after release: %v", err)
	}
	if f.count() != 2 || begins != 2 {
		t.Fatalf("unexpected loads %v, begins %d", f.started, begins)
	}
}

func TestNavigatorCanceled(t *testing.T) {
	f := &fakeLoads{release: make(chan struct{})}
	defer close(f.release)
	n := &navigator{run: f.run, stop: func() {}, timeout: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := n.navigate(ctx, "slow", func() {}); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
}
