package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/rick-sundayai/sales-flow-security/internal/infra/telemetry"
)

// SessionSweeper runs CleanupExpired on a fixed interval, independent of
// request traffic. Start once at process init and Stop at shutdown.
type SessionSweeper struct {
	sessions *SessionService
	interval time.Duration
	logger   *zap.Logger
	metrics  *telemetry.Provider
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewSessionSweeper constructs a sweeper. Intervals below one second are clamped.
func NewSessionSweeper(sessions *SessionService, interval time.Duration, logger *zap.Logger) *SessionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < time.Second {
		interval = 5 * time.Minute
	}
	return &SessionSweeper{
		sessions: sessions,
		interval: interval,
		logger:   logger,
	}
}

// WithTelemetry attaches metric counters.
func (w *SessionSweeper) WithTelemetry(metrics *telemetry.Provider) *SessionSweeper {
	w.metrics = metrics
	return w
}

// Start launches the background sweep loop. Calling Start twice is a no-op.
func (w *SessionSweeper) Start(ctx context.Context) {
	if w.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	go func() {
		defer close(w.done)
		ticker := time.NewTicker(w.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				removed, err := w.sessions.CleanupExpired(ctx)
				if err != nil {
					w.logger.Warn("session sweep failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					w.metrics.SessionsSwept(removed)
					w.logger.Info("session sweep reclaimed expired sessions", zap.Int("removed", removed))
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the sweep loop and waits for it to exit.
func (w *SessionSweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}
