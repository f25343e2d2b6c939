package users

import (
	"context"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

// Procedures returns the admin.users.* procedures.
func Procedures(svc *Service) []rpc.Procedure {
	canManage := guard.Can(ability.ActionManage, ability.SubjectUser)
	return []rpc.Procedure{
		{
			Name:    "admin.users.list",
			Kind:    rpc.Query,
			Access:  rpc.Admin,
			Ability: canManage,
			Handle: rpc.Typed(func(ctx context.Context, _ *reqctx.Context, in ListInput) (ListResult, error) {
				return svc.ListUsers(ctx, in)
			}),
		},
		{
			Name:    "admin.users.setEnabled",
			Kind:    rpc.Mutation,
			Access:  rpc.Admin,
			Ability: canManage,
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in SetEnabledInput) (bool, error) {
				actor, err := rc.User()
				if err != nil {
					return false, err
				}
				if err := svc.SetEnabled(ctx, actor.ID, in); err != nil {
					return false, err
				}
				return true, nil
			}),
		},
	}
}
