package model

import "time"

// Role names used throughout the service.  The set is closed; any other
// value arriving on input is normalized to RoleUser before it is stored.
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// NormalizeRole maps arbitrary input to a member of the closed role set.
func NormalizeRole(r string) string {
	if r == RoleAdmin {
		return RoleAdmin
	}
	return RoleUser
}

// User mirrors the `users` table.  PasswordHash and ExternalID are
// pointers because either may be NULL: accounts created through the
// external-identity path carry no password, and password accounts carry
// no external id until linked.
//
// Fields:
//  ID           – primary key identifier of the user.
//  Email        – unique, lower-cased email address.
//  Name         – display name.
//  PasswordHash – bcrypt hashed password (nil for external-only accounts).
//  Role         – RoleUser or RoleAdmin.
//  ExternalID   – stable identifier from the external identity provider (nullable).
//  CreatedAt    – timestamp of creation.
//  UpdatedAt    – timestamp of last update.
type User struct {
	ID           uint64
	Email        string
	Name         string
	PasswordHash *string
	Role         string
	ExternalID   *string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// HasPassword reports whether the account can authenticate with a password.
func (u *User) HasPassword() bool {
	return u.PasswordHash != nil && *u.PasswordHash != ""
}

// RefreshTokenRecord models one row of the `refresh_tokens` table.  Each
// record represents one active session/device for its owning user.  The
// raw signed token string is stored so that sweeps can re-verify it
// cryptographically.  Exact string membership in the owner's rows is the
// revocation mechanism: a token that verifies but has no matching row
// is invalid.
//
// Fields:
//  ID        – primary key identifier.
//  UserID    – owner of the record.
//  Token     – the raw signed refresh token string.
//  CreatedAt – timestamp of issuance.
type RefreshTokenRecord struct {
	ID        uint64
	UserID    uint64
	Token     string
	CreatedAt time.Time
}

// ActivityLog models a row of the append-only `activity_logs` table.
type ActivityLog struct {
	ID        uint64
	UserID    uint64
	Action    string
	Success   bool
	Detail    string
	IP        string
	UserAgent string
	CreatedAt time.Time
}
