package daemon

import (
	"context"
	"log/slog"

	"conductor/internal/aimeta"
)

// StaleJobFailer marks jobs left active by a previous process as failed.
type StaleJobFailer interface {
	FailStaleJobs(ctx context.Context, reason string) (int64, error)
}

// RecoverJobs runs once at startup, before the job runner accepts work.
func RecoverJobs(ctx context.Context, store StaleJobFailer, logger *slog.Logger) error {
	n, err := store.FailStaleJobs(ctx, aimeta.ReasonInterrupted)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Warn("marked interrupted batch jobs as failed", "projects", n)
	}
	return nil
}
