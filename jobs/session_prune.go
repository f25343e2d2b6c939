package jobs

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/launchpad-web/launchpad/internal/jobs"
)

// SessionPruner deletes expired session records.
type SessionPruner interface {
	PruneExpired(ctx context.Context) (int64, error)
}

// SessionsPruneJob handles TaskSessionsPrune.
type SessionsPruneJob struct {
	pruner  SessionPruner
	logger  *slog.Logger
	metrics *jobmetrics.Metrics
}

// NewSessionsPruneJob constructs the job handler.
func NewSessionsPruneJob(pruner SessionPruner, logger *slog.Logger, metrics *jobmetrics.Metrics) *SessionsPruneJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionsPruneJob{pruner: pruner, logger: logger, metrics: metrics}
}

// Handle runs one prune pass.
func (j *SessionsPruneJob) Handle(ctx context.Context, task *asynq.Task) (err error) {
	tracker := j.metrics.Track(TaskSessionsPrune)
	defer func() { err = tracker.End(err) }()

	var payload SessionsPrunePayload
	if len(task.Payload()) > 0 {
		if err := json.Unmarshal(task.Payload(), &payload); err != nil {
			return fmt.Errorf("decode payload: %v: %w", err, asynq.SkipRetry)
		}
	}
	removed, err := j.pruner.PruneExpired(ctx)
	if err != nil {
		return fmt.Errorf("prune sessions: %w", err)
	}
	j.logger.Info("sessions pruned", slog.Int64("removed", removed), slog.String("reason", payload.Reason))
	return nil
}
