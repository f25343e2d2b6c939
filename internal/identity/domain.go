package identity

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Identity is the fully resolved actor of one request.
type Identity struct {
	ID            string      `json:"id"`
	Email         string      `json:"email"`
	EmailVerified bool        `json:"emailVerified"`
	Profile       Profile     `json:"profile"`
	Preferences   Preferences `json:"preferences"`
	Enabled       bool        `json:"enabled"`
	Admin         bool        `json:"admin"`
	Permissions   []string    `json:"permissions"`
}

// Profile holds presentation data about the user.
type Profile struct {
	AvatarURL   *string `json:"avatarUrl"`
	DisplayName string  `json:"displayName"`
	FirstName   string  `json:"firstName"`
	LastName    string  `json:"lastName"`
	Initials    string  `json:"initials"`
}

// Preferences holds per-user formatting preferences.
type Preferences struct {
	Locale         string `json:"locale"`
	Timezone       string `json:"timezone"`
	FirstDayOfWeek int    `json:"firstDayOfWeek"`
	AccentColor    string `json:"accentColor"`
	ColorScheme    string `json:"colorScheme"`
}

// HasPermission reports whether the permission string was granted by a role.
func (i *Identity) HasPermission(permission string) bool {
	if i == nil {
		return false
	}
	for _, p := range i.Permissions {
		if p == permission {
			return true
		}
	}
	return false
}

// Membership is a role assignment with an optional validity window.
type Membership struct {
	RoleID      string
	Permissions []string
	ActiveFrom  *time.Time
	ActiveTo    *time.Time
}

// ActiveAt reports whether the window contains t. Open bounds always match.
func (m Membership) ActiveAt(t time.Time) bool {
	if m.ActiveFrom != nil && m.ActiveFrom.After(t) {
		return false
	}
	if m.ActiveTo != nil && m.ActiveTo.Before(t) {
		return false
	}
	return true
}

// ProfileRecord is the stored profile row.
type ProfileRecord struct {
	AvatarURL   *string
	DisplayName *string
	FirstName   string
	LastName    string
}

// Record is what the identity store returns for a subject.
// Profile and Preferences are nil when their rows are missing.
type Record struct {
	ID            string
	Email         string
	EmailVerified bool
	Enabled       bool
	Admin         bool
	Profile       *ProfileRecord
	Preferences   *Preferences
	Memberships   []Membership
}

// SplitPermissions parses the comma separated permission column of a role.
func SplitPermissions(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	perms := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		perms = append(perms, p)
	}
	return perms
}

// JoinPermissions is the inverse of SplitPermissions.
func JoinPermissions(perms []string) string {
	return strings.Join(perms, ",")
}

func displayName(p ProfileRecord) string {
	if p.DisplayName != nil && *p.DisplayName != "" {
		return *p.DisplayName
	}
	parts := make([]string, 0, 2)
	for _, s := range []string{p.FirstName, p.LastName} {
		if s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}

func initials(first, last string) string {
	var b strings.Builder
	for _, s := range []string{first, last} {
		if r, _ := utf8.DecodeRuneInString(s); r != utf8.RuneError {
			b.WriteRune(unicode.ToUpper(r))
		}
	}
	return b.String()
}
