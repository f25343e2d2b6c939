// Package identity resolves the acting user of a request from its session.
package identity

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

var (
	// ErrNotFound is returned by stores when no user row exists for a subject.
	ErrNotFound = errors.New("identity: not found")
	// ErrInconsistent signals a live session whose identity data is missing.
	ErrInconsistent = errors.New("identity: session and identity store disagree")
)

// SessionValidator maps request credentials to the subject of a live session.
type SessionValidator interface {
	SubjectFromRequest(ctx context.Context, r *http.Request) (subjectID string, ok bool, err error)
}

// Store loads identity records.
type Store interface {
	FindRecord(ctx context.Context, subjectID string, asOf time.Time) (*Record, error)
}

// Resolver turns request credentials into an Identity.
type Resolver struct {
	sessions SessionValidator
	store    Store
	now      func() time.Time
}

// NewResolver constructs a Resolver. A nil clock defaults to time.Now.
func NewResolver(sessions SessionValidator, store Store, now func() time.Time) *Resolver {
	if now == nil {
		now = time.Now
	}
	return &Resolver{sessions: sessions, store: store, now: now}
}

// Resolve returns the identity behind the request, or nil for anonymous callers.
// A live session without a complete identity record is an error, never nil.
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Identity, error) {
	subject, ok, err := r.sessions.SubjectFromRequest(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("identity: validate session: %w", err)
	}
	if !ok || subject == "" {
		return nil, nil
	}

	asOf := r.now()
	record, err := r.store.FindRecord(ctx, subject, asOf)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, fmt.Errorf("%w: user %s not found", ErrInconsistent, subject)
		}
		return nil, fmt.Errorf("identity: load %s: %w", subject, err)
	}
	return Build(record, asOf)
}

// Build assembles an Identity from a stored record as of the given time.
func Build(record *Record, asOf time.Time) (*Identity, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: empty record", ErrInconsistent)
	}
	if record.Profile == nil {
		return nil, fmt.Errorf("%w: profile for user %s not found", ErrInconsistent, record.ID)
	}
	if record.Preferences == nil {
		return nil, fmt.Errorf("%w: preferences for user %s not found", ErrInconsistent, record.ID)
	}

	profile := *record.Profile
	return &Identity{
		ID:            record.ID,
		Email:         record.Email,
		EmailVerified: record.EmailVerified,
		Profile: Profile{
			AvatarURL:   profile.AvatarURL,
			DisplayName: displayName(profile),
			FirstName:   profile.FirstName,
			LastName:    profile.LastName,
			Initials:    initials(profile.FirstName, profile.LastName),
		},
		Preferences: *record.Preferences,
		Enabled:     record.Enabled,
		Admin:       record.Admin,
		Permissions: activePermissions(record.Memberships, asOf),
	}, nil
}

// activePermissions flattens the permissions of memberships valid at asOf,
// dropping duplicates while keeping first-seen order.
func activePermissions(memberships []Membership, asOf time.Time) []string {
	seen := make(map[string]struct{})
	perms := make([]string, 0)
	for _, m := range memberships {
		if !m.ActiveAt(asOf) {
			continue
		}
		for _, p := range m.Permissions {
			if _, ok := seen[p]; ok {
				continue
			}
			seen[p] = struct{}{}
			perms = append(perms, p)
		}
	}
	return perms
}
