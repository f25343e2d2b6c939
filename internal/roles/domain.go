package roles

import (
	"time"

	"github.com/google/uuid"
)

// Role groups permission strings granted through time-bounded memberships.
type Role struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Permissions []string  `json:"permissions"`
	CreatedAt   time.Time `json:"createdAt"`
}

// CreateInput is the payload of admin.roles.create.
type CreateInput struct {
	Name        string   `json:"name" validate:"required,max=100"`
	Description string   `json:"description" validate:"max=500"`
	Permissions []string `json:"permissions" validate:"dive,required"`
}

// AssignInput grants a role to a user, optionally within a validity window.
type AssignInput struct {
	UserID     uuid.UUID  `json:"userId" validate:"required"`
	RoleID     uuid.UUID  `json:"roleId" validate:"required"`
	ActiveFrom *time.Time `json:"activeFrom"`
	ActiveTo   *time.Time `json:"activeTo"`
}
