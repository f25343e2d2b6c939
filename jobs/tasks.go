package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSessionsPrune removes persisted session records past their expiry.
	TaskSessionsPrune = "auth:sessions:prune"
)

// SessionsPrunePayload scopes a prune run.
type SessionsPrunePayload struct {
	Reason string `json:"reason"`
}

// NewSessionsPruneTask constructs the prune task.
func NewSessionsPruneTask(reason string) (*asynq.Task, error) {
	data, err := json.Marshal(SessionsPrunePayload{Reason: reason})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSessionsPrune, data, asynq.Queue(QueueDefault)), nil
}
