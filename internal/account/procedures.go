// Package account exposes the signed-in user's own data over RPC.
package account

import (
	"context"
	"fmt"

	"github.com/launchpad-web/launchpad/internal/ability"
	"github.com/launchpad-web/launchpad/internal/guard"
	"github.com/launchpad-web/launchpad/internal/identity"
	"github.com/launchpad-web/launchpad/internal/intl"
	"github.com/launchpad-web/launchpad/internal/reqctx"
	"github.com/launchpad-web/launchpad/internal/rpc"
)

// PreferencesStore persists user preferences.
type PreferencesStore interface {
	UpdatePreferences(ctx context.Context, userID string, prefs identity.Preferences) error
}

// Session is the payload of account.me.
type Session struct {
	User   *identity.Identity `json:"user"`
	Rules  []ability.Rule     `json:"rules"`
	Locale string             `json:"locale"`
}

// PreferencesInput is the payload of account.updatePreferences.
type PreferencesInput struct {
	Locale         string `json:"locale" validate:"required,bcp47_language_tag"`
	Timezone       string `json:"timezone" validate:"required,timezone"`
	FirstDayOfWeek int    `json:"firstDayOfWeek" validate:"min=0,max=6"`
	AccentColor    string `json:"accentColor" validate:"omitempty,hexcolor"`
	ColorScheme    string `json:"colorScheme" validate:"required,oneof=light dark system"`
}

// Procedures returns the account.* procedures.
func Procedures(store PreferencesStore) []rpc.Procedure {
	return []rpc.Procedure{
		{
			Name: "account.me",
			Kind: rpc.Query,
			Handle: rpc.Typed(func(_ context.Context, rc *reqctx.Context, _ struct{}) (Session, error) {
				out := Session{User: rc.Identity, Rules: rc.Ability.Rules()}
				if rc.Intl != nil {
					out.Locale = rc.Intl.Locale()
				}
				if out.Rules == nil {
					out.Rules = []ability.Rule{}
				}
				return out, nil
			}),
		},
		{
			Name:    "account.profile",
			Kind:    rpc.Query,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionRead, ability.SubjectProfile),
			Handle: rpc.Typed(func(_ context.Context, rc *reqctx.Context, _ struct{}) (identity.Profile, error) {
				user, err := rc.User()
				if err != nil {
					return identity.Profile{}, err
				}
				return user.Profile, nil
			}),
		},
		{
			Name:    "account.preferences",
			Kind:    rpc.Query,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionRead, ability.SubjectPreferences),
			Handle: rpc.Typed(func(_ context.Context, rc *reqctx.Context, _ struct{}) (identity.Preferences, error) {
				user, err := rc.User()
				if err != nil {
					return identity.Preferences{}, err
				}
				return user.Preferences, nil
			}),
		},
		{
			Name:    "account.updatePreferences",
			Kind:    rpc.Mutation,
			Access:  rpc.Protected,
			Ability: guard.Can(ability.ActionUpdate, ability.SubjectPreferences),
			Handle: rpc.Typed(func(ctx context.Context, rc *reqctx.Context, in PreferencesInput) (identity.Preferences, error) {
				user, err := rc.User()
				if err != nil {
					return identity.Preferences{}, err
				}
				prefs := identity.Preferences{
					Locale:         intl.Supported(in.Locale).String(),
					Timezone:       in.Timezone,
					FirstDayOfWeek: in.FirstDayOfWeek,
					AccentColor:    in.AccentColor,
					ColorScheme:    in.ColorScheme,
				}
				if err := store.UpdatePreferences(ctx, user.ID, prefs); err != nil {
					return identity.Preferences{}, fmt.Errorf("account: update preferences: %w", err)
				}
				return prefs, nil
			}),
		},
	}
}
