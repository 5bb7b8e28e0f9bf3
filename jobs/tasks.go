package jobs

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/portalkota/portalkota/internal/jobs"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPurge removes expired rows from the sessions table.
	TaskSessionsPurge = "sessions:purge"
	// TaskAuditPrune removes audit entries past the retention window.
	TaskAuditPrune = "audit:prune"
)

// SessionPurger removes expired sessions from durable storage.
type SessionPurger interface {
	PurgeExpiredSessions(ctx context.Context) (int64, error)
}

// AuditPruner removes audit entries older than the retention window.
type AuditPruner interface {
	Prune(ctx context.Context, retention time.Duration) (int64, error)
}

// NewSessionsPurgeTask constructs the periodic session purge task.
func NewSessionsPurgeTask() *asynq.Task {
	return asynq.NewTask(TaskSessionsPurge, nil)
}

// NewAuditPruneTask constructs the periodic audit retention task.
func NewAuditPruneTask() *asynq.Task {
	return asynq.NewTask(TaskAuditPrune, nil)
}

// HandleSessionsPurgeTask processes TaskSessionsPurge tasks.
func HandleSessionsPurgeTask(purger SessionPurger, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskSessionsPurge)
		removed, err := purger.PurgeExpiredSessions(ctx)
		if err != nil {
			logger.Error("purge sessions", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddRemoved(TaskSessionsPurge, removed)
		logger.Info("purged expired sessions", slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}

// HandleAuditPruneTask processes TaskAuditPrune tasks.
func HandleAuditPruneTask(pruner AuditPruner, retention time.Duration, metrics *jobmetrics.Metrics, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		tracker := metrics.Track(TaskAuditPrune)
		removed, err := pruner.Prune(ctx, retention)
		if err != nil {
			logger.Error("prune audit trail", slog.Any("error", err))
			return tracker.End(err)
		}
		metrics.AddRemoved(TaskAuditPrune, removed)
		logger.Info("pruned audit trail", slog.Int64("removed", removed))
		return tracker.End(nil)
	}
}
