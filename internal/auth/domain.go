package auth

import "time"

// User is the credential view of an account.
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Enabled      bool
}

// SessionRecord is the audit row written for each sign-in.
type SessionRecord struct {
	ID        string
	UserID    string
	CreatedAt time.Time
	ExpiresAt time.Time
	IP        string
	UserAgent string
}
