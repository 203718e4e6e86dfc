package poller

import (
	"context"
	"time"

	"github.com/xaenox/teams-notify/internal/detector"
	"go.uber.org/zap"
)

// UpdateChecker runs one poll cycle against the given session.
type UpdateChecker interface {
	CheckForUpdates(ctx context.Context, sess *detector.Session)
}

// Poller drives the detector on a fixed interval. Ticks run one at a
// time in the loop goroutine, which is what keeps the session safe to
// mutate without locks.
type Poller struct {
	detector UpdateChecker
	session  *detector.Session
	interval time.Duration
	logger   *zap.Logger
}

func New(d UpdateChecker, interval time.Duration, logger *zap.Logger) *Poller {
	return &Poller{
		detector: d,
		session:  &detector.Session{},
		interval: interval,
		logger:   logger,
	}
}

// Run polls immediately and then on every tick until ctx is cancelled.
func (p *Poller) Run(ctx context.Context) {
	p.logger.Info("Starting update polling", zap.Duration("interval", p.interval))

	p.Tick(ctx)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Stopping update polling")
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs a single poll cycle. The detector's contract says it never
// returns an error, so the only thing left to defend against here is a
// panic; one failed cycle must not stop the next.
func (p *Poller) Tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			metrics.cycleFailureCounter.Inc()
			p.logger.Error("Poll cycle panicked", zap.Any("panic", r))
		}
	}()

	p.logger.Info("Checking for updates")
	metrics.cycleCounter.Inc()
	p.detector.CheckForUpdates(ctx, p.session)
}
