package domain

import "time"

// User is a durable account record. The password hash is a bcrypt (or legacy
// argon2id PHC) string, never the plaintext.
type User struct {
	ID           string
	Email        string // unique, compared case-sensitively as stored
	FullName     string
	PasswordHash string
	Role         Role
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// IsAdmin is a convenience for the single admin-only check sites.
func (u User) IsAdmin() bool { return u.Role == RoleAdmin }
