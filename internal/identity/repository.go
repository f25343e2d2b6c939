package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PGStore implements Store using PostgreSQL.
type PGStore struct {
	pool *pgxpool.Pool
}

// NewPGStore constructs a PostgreSQL identity store.
func NewPGStore(pool *pgxpool.Pool) *PGStore {
	return &PGStore{pool: pool}
}

const findUserSQL = `
SELECT u.id::text, u.email, u.email_verified, u.is_enabled, u.is_admin,
       p.user_id IS NOT NULL, p.avatar_url, p.display_name,
       COALESCE(p.first_name, ''), COALESCE(p.last_name, ''),
       pr.user_id IS NOT NULL, COALESCE(pr.locale, ''), COALESCE(pr.timezone, ''),
       COALESCE(pr.first_day_of_week, 0), COALESCE(pr.accent_color, ''), COALESCE(pr.color_scheme, '')
FROM users u
LEFT JOIN user_profiles p ON p.user_id = u.id
LEFT JOIN user_preferences pr ON pr.user_id = u.id
WHERE u.id = $1`

const findMembershipsSQL = `
SELECT ur.role_id::text, r.permissions, ur.active_from, ur.active_to
FROM user_roles ur
JOIN roles r ON r.id = ur.role_id
WHERE ur.user_id = $1
  AND (ur.active_from IS NULL OR ur.active_from <= $2)
  AND (ur.active_to IS NULL OR ur.active_to >= $2)
ORDER BY ur.created_at, ur.role_id`

// FindRecord loads the user, profile, preferences and memberships valid at asOf.
func (s *PGStore) FindRecord(ctx context.Context, subjectID string, asOf time.Time) (*Record, error) {
	var (
		record         Record
		hasProfile     bool
		hasPreferences bool
		profile        ProfileRecord
		prefs          Preferences
	)
	err := s.pool.QueryRow(ctx, findUserSQL, subjectID).Scan(
		&record.ID, &record.Email, &record.EmailVerified, &record.Enabled, &record.Admin,
		&hasProfile, &profile.AvatarURL, &profile.DisplayName, &profile.FirstName, &profile.LastName,
		&hasPreferences, &prefs.Locale, &prefs.Timezone, &prefs.FirstDayOfWeek, &prefs.AccentColor, &prefs.ColorScheme,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("identity: find user: %w", err)
	}
	if hasProfile {
		record.Profile = &profile
	}
	if hasPreferences {
		record.Preferences = &prefs
	}

	rows, err := s.pool.Query(ctx, findMembershipsSQL, subjectID, asOf)
	if err != nil {
		return nil, fmt.Errorf("identity: find memberships: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			m   Membership
			raw string
		)
		if err := rows.Scan(&m.RoleID, &raw, &m.ActiveFrom, &m.ActiveTo); err != nil {
			return nil, fmt.Errorf("identity: scan membership: %w", err)
		}
		m.Permissions = SplitPermissions(raw)
		record.Memberships = append(record.Memberships, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("identity: memberships: %w", err)
	}
	return &record, nil
}

// UpdatePreferences overwrites the stored preferences of a user.
func (s *PGStore) UpdatePreferences(ctx context.Context, userID string, prefs Preferences) error {
	tag, err := s.pool.Exec(ctx, `
UPDATE user_preferences
SET locale = $2, timezone = $3, first_day_of_week = $4, accent_color = $5, color_scheme = $6, updated_at = NOW()
WHERE user_id = $1`,
		userID, prefs.Locale, prefs.Timezone, prefs.FirstDayOfWeek, prefs.AccentColor, prefs.ColorScheme)
	if err != nil {
		return fmt.Errorf("identity: update preferences: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*PGStore)(nil)
