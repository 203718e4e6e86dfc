package poller

import (
	"context"
	"testing"
	"time"

	"github.com/go-playground/assert/v2"
	"github.com/xaenox/teams-notify/internal/detector"
	"go.uber.org/zap"
)

type fakeChecker struct {
	calls int
	panic bool
}

func (f *fakeChecker) CheckForUpdates(ctx context.Context, sess *detector.Session) {
	f.calls++
	if f.panic {
		panic("detector blew up")
	}
}

func TestTickInvokesDetector(t *testing.T) {
	checker := &fakeChecker{}
	p := New(checker, time.Minute, zap.NewNop())

	p.Tick(context.Background())

	assert.Equal(t, checker.calls, 1)
}

func TestTickSwallowsPanics(t *testing.T) {
	checker := &fakeChecker{panic: true}
	p := New(checker, time.Minute, zap.NewNop())

	p.Tick(context.Background())
	p.Tick(context.Background())

	// A failed cycle must not prevent the next one.
	assert.Equal(t, checker.calls, 2)
}

func TestRunStopsOnContextCancel(t *testing.T) {
	checker := &fakeChecker{}
	p := New(checker, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		p.Run(ctx)
		close(done)
	}()

	// Run ticks once immediately, then waits on the ticker.
	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on context cancellation")
	}

	assert.Equal(t, checker.calls, 1)
}
