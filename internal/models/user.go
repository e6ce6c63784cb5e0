package models

import "time"

// Built-in roles. Role is free text at the store level; these are the
// values the service assigns and the RBAC middleware checks against.
const (
	RoleUser  = "User"
	RoleAdmin = "Admin"
)

// User represents an identity record stored in the users table.
// Usernames are unique and normalized to lowercase before any lookup
// or insert. The hash and salt are opaque byte sequences produced by
// pkg/password; plaintext passwords are never persisted.
type User struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash []byte    `db:"password_hash" json:"-"`
	PasswordSalt []byte    `db:"password_salt" json:"-"`
	Blocked      bool      `db:"blocked" json:"blocked"`
	Role         string    `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
