package roles

import (
	"context"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

// Procedures returns the admin.roles.* procedures.
func Procedures(svc *Service) []rpc.Procedure {
	canManage := guard.Can(ability.ActionManage, ability.SubjectRole)
	return []rpc.Procedure{
		{
			Name:    "admin.roles.list",
			Kind:    rpc.Query,
			Access:  rpc.Admin,
			Ability: canManage,
			Handle: rpc.Typed(func(ctx context.Context, _ *reqctx.Context, _ struct{}) ([]Role, error) {
				return svc.ListRoles(ctx)
			}),
		},
		{
			Name:    "admin.roles.create",
			Kind:    rpc.Mutation,
			Access:  rpc.Admin,
			Ability: canManage,
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in CreateInput) (*Role, error) {
				actor, err := rc.User()
				if err != nil {
					return nil, err
				}
				return svc.CreateRole(ctx, actor.ID, in)
			}),
		},
		{
			Name:    "admin.roles.assign",
			Kind:    rpc.Mutation,
			Access:  rpc.Admin,
			Ability: canManage,
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in AssignInput) (bool, error) {
				actor, err := rc.User()
				if err != nil {
					return false, err
				}
				if err := svc.AssignRole(ctx, actor.ID, in); err != nil {
					return false, err
				}
				return true, nil
			}),
		},
	}
}
