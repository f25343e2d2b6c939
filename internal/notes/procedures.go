package notes

import (
	"context"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

// Procedures returns the note.* procedures backed by svc.
func Procedures(svc *Service) []rpc.Procedure {
	return []rpc.Procedure{
		{
			Name:    "note.list",
			Kind:    rpc.Query,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionRead, ability.SubjectNote),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, _ struct{}) (ListResult, error) {
				user, err := rc.User()
				if err != nil {
					return ListResult{}, err
				}
				notes, err := svc.List(ctx, user.ID)
				if err != nil {
					return ListResult{}, err
				}
				result := ListResult{Notes: notes}
				if rc.Intl != nil {
					result.Summary = rc.Intl.Message("notes.count", "You have %d notes", len(notes))
				}
				return result, nil
			}),
		},
		{
			Name:    "note.get",
			Kind:    rpc.Query,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionRead, ability.SubjectNote),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in ByID) (*Note, error) {
				user, err := rc.User()
				if err != nil {
					return nil, err
				}
				return svc.Get(ctx, user.ID, in.ID)
			}),
		},
		{
			Name:    "note.create",
			Kind:    rpc.Mutation,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionCreate, ability.SubjectNote),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in CreateInput) (*Note, error) {
				user, err := rc.User()
				if err != nil {
					return nil, err
				}
				return svc.Create(ctx, user.ID, in)
			}),
		},
		{
			Name:    "note.update",
			Kind:    rpc.Mutation,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionUpdate, ability.SubjectNote),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in UpdateInput) (*Note, error) {
				user, err := rc.User()
				if err != nil {
					return nil, err
				}
				return svc.Update(ctx, user.ID, in)
			}),
		},
		{
			Name:    "note.delete",
			Kind:    rpc.Mutation,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionDelete, ability.SubjectNote),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in ByID) (bool, error) {
				user, err := rc.User()
				if err != nil {
					return false, err
				}
				if err := svc.Delete(ctx, user.ID, in.ID); err != nil {
					return false, err
				}
				return true, nil
			}),
		},
	}
}
