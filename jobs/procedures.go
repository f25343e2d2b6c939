package jobs

import (
	"context"

	"github.com/hibiken/asynq"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

// Enqueuer schedules prune passes.
type Enqueuer interface {
	EnqueueSessionsPrune(ctx context.Context, reason string) (*asynq.TaskInfo, error)
}

type enqueued struct {
	TaskID string `json:"taskId"`
	Queue  string `json:"queue"`
}

// Procedures returns the admin.jobs.* procedures.
func Procedures(client Enqueuer) []rpc.Procedure {
	return []rpc.Procedure{
		{
			Name:    "admin.jobs.pruneSessions",
			Kind:    rpc.Mutation,
			Access:  rpc.Admin,
			Ability: func(s *ability.Set) bool { return s.Can(ability.ActionManage, ability.SubjectUser) },
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, _ struct{}) (enqueued, error) {
				user, err := rc.User()
				if err != nil {
					return enqueued{}, err
				}
				info, err := client.EnqueueSessionsPrune(ctx, "requested by "+user.ID)
				if err != nil {
					return enqueued{}, err
				}
				return enqueued{TaskID: info.ID, Queue: info.Queue}, nil
			}),
		},
	}
}
