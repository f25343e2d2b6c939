package users

import (
	"time"

	"github.com/google/uuid"

	"github.com/launchpad-web/launchpad/internal/shared"
)

// User is an account as seen by administrators.
type User struct {
	ID          string    `json:"id"`
	Email       string    `json:"email"`
	DisplayName string    `json:"displayName"`
	Enabled     bool      `json:"enabled"`
	Admin       bool      `json:"admin"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ListInput pages through users.
type ListInput struct {
	Page    int `json:"page" validate:"min=0"`
	PerPage int `json:"perPage" validate:"min=0,max=100"`
}

// ListResult is one page of users.
type ListResult struct {
	Users      []User            `json:"users"`
	Pagination shared.Pagination `json:"pagination"`
}

// SetEnabledInput toggles an account.
type SetEnabledInput struct {
	UserID  uuid.UUID `json:"userId" validate:"required"`
	Enabled bool      `json:"enabled"`
}
