package domain

import "time"

// User account statuses.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

type User struct {
	ID           string
	Username     string
	Nickname     string
	Email        string // empty for third-party provisioned accounts
	Avatar       string
	PasswordHash string // argon2 encoded; empty for third-party accounts
	Status       string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Disabled reports whether the account may not log in.
func (u User) Disabled() bool { return u.Status == StatusDisabled }

// Identity is a user plus the authorization snapshot taken at token
// issuance. Roles and permissions ride inside the claims and are not
// re-resolved per request.
type Identity struct {
	User  User
	Roles []string
	Perms []string
}
