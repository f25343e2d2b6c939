package ability

import "github.com/launchpad-web/launchpad/internal/identity"

// Actions.
const (
	ActionRead   Action = "read"
	ActionCreate Action = "create"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionSee    Action = "see"
	ActionManage Action = "manage"
)

// Subjects.
const (
	SubjectNote                Subject = "note"
	SubjectProfile             Subject = "profile"
	SubjectPreferences         Subject = "preferences"
	SubjectDashboardPage       Subject = "dashboard-page"
	SubjectUserPreferencesPage Subject = "user-preferences-page"
	SubjectUserProfilePage     Subject = "user-profile-page"
	SubjectAdminPage           Subject = "admin-page"
	SubjectUser                Subject = "user"
	SubjectRole                Subject = "role"
)

// Permission strings carried by roles.
const (
	PermProfileRead       = "profile:read"
	PermProfileUpdate     = "profile:update"
	PermPreferencesRead   = "preferences:read"
	PermPreferencesUpdate = "preferences:update"
	PermNoteRead          = "note:read"
	PermNoteCreate        = "note:create"
	PermNoteUpdate        = "note:update"
	PermNoteDelete        = "note:delete"
)

// AllPermissions lists every permission string known to the contributors.
func AllPermissions() []string {
	return []string{
		PermProfileRead,
		PermProfileUpdate,
		PermPreferencesRead,
		PermPreferencesUpdate,
		PermNoteRead,
		PermNoteCreate,
		PermNoteUpdate,
		PermNoteDelete,
	}
}

func active(id *identity.Identity) bool {
	return id != nil && id.Enabled
}

// grantIf grants the rule when the identity holds perm or is an admin.
func grantIf(id *identity.Identity, grant Grant, perm string, action Action, subject Subject) {
	if id.Admin || id.HasPermission(perm) {
		grant(action, subject)
	}
}

// Notes grants note CRUD from note:* permissions; admins get all of it.
func Notes(id *identity.Identity, grant Grant) {
	if !active(id) {
		return
	}
	grantIf(id, grant, PermNoteRead, ActionRead, SubjectNote)
	grantIf(id, grant, PermNoteCreate, ActionCreate, SubjectNote)
	grantIf(id, grant, PermNoteUpdate, ActionUpdate, SubjectNote)
	grantIf(id, grant, PermNoteDelete, ActionDelete, SubjectNote)
}

// Profile grants access to the user's own profile and preferences.
func Profile(id *identity.Identity, grant Grant) {
	if !active(id) {
		return
	}
	grantIf(id, grant, PermProfileRead, ActionRead, SubjectProfile)
	grantIf(id, grant, PermProfileUpdate, ActionUpdate, SubjectProfile)
	grantIf(id, grant, PermPreferencesRead, ActionRead, SubjectPreferences)
	grantIf(id, grant, PermPreferencesUpdate, ActionUpdate, SubjectPreferences)
}

// Pages lets every enabled user see the signed-in pages.
func Pages(id *identity.Identity, grant Grant) {
	if !active(id) {
		return
	}
	grant(ActionSee, SubjectDashboardPage)
	grant(ActionSee, SubjectUserPreferencesPage)
	grant(ActionSee, SubjectUserProfilePage)
}

// Admin grants the administration area to admins only.
func Admin(id *identity.Identity, grant Grant) {
	if !active(id) || !id.Admin {
		return
	}
	grant(ActionSee, SubjectAdminPage)
	grant(ActionManage, SubjectUser)
	grant(ActionManage, SubjectRole)
}
