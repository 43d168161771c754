package usecase

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RetentionSweeper deletes audit entries past the retention window on a
// fixed interval.
type RetentionSweeper struct {
	audit         *AuditService
	retentionDays int
	interval      time.Duration
	logger        *zap.Logger
	cancel        context.CancelFunc
	done          chan struct{}
}

// NewRetentionSweeper constructs a retention sweeper.
func NewRetentionSweeper(audit *AuditService, retentionDays int, interval time.Duration, logger *zap.Logger) *RetentionSweeper {
	if logger == nil {
		logger = zap.NewNop()
	}
	if interval < time.Minute {
		interval = 24 * time.Hour
	}
	return &RetentionSweeper{
		audit:         audit,
		retentionDays: retentionDays,
		interval:      interval,
		logger:        logger,
	}
}

// Start launches the cleanup loop. Calling Start twice is a no-op.
func (w *RetentionSweeper) Start(ctx context.Context) {
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
				removed, err := w.audit.Cleanup(ctx, w.retentionDays)
				if err != nil {
					w.logger.Warn("audit retention cleanup failed", zap.Error(err))
					continue
				}
				if removed > 0 {
					w.logger.Info("audit retention cleanup removed entries",
						zap.Int("removed", removed),
						zap.Int("retention_days", w.retentionDays),
					)
				}
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop cancels the cleanup loop and waits for it to exit.
func (w *RetentionSweeper) Stop() {
	if w.cancel == nil {
		return
	}
	w.cancel()
	<-w.done
	w.cancel = nil
	w.done = nil
}
