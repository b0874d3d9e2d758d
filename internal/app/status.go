package app

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/five82/podtail/internal/state"
)

const defaultStatusInterval = 5 * time.Second

// StartStatusLogger launches a background goroutine that logs run progress
// at debug level at a fixed cadence until ctx is done. It returns
// immediately.
func StartStatusLogger(ctx context.Context, store *state.Store, logger *zap.Logger, interval time.Duration) {
	if interval <= 0 {
		interval = defaultStatusInterval
	}
	if !logger.Core().Enabled(zap.DebugLevel) {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}
			logStatus(logger, store.Snapshot())
		}
	}()
}

func logStatus(logger *zap.Logger, snap state.Snapshot) {
	counts := snap.Counts()
	fields := []zap.Field{
		zap.Int("sources", len(snap.Sources)),
		zap.Int("streaming", counts[state.StatusStreaming]),
		zap.Int("completed", counts[state.StatusCompleted]),
		zap.Int("failed", counts[state.StatusFailed]),
		zap.Int("lines", snap.TotalLines()),
	}
	if failed := snap.Failed(); len(failed) > 0 {
		ids := make([]string, len(failed))
		for i, f := range failed {
			ids[i] = f.ID
		}
		fields = append(fields, zap.Strings("failed_sources", ids))
	}
	logger.Debug("run status", fields...)
}
