package models

import "time"

// RefreshToken is a single rotation unit in a refresh chain. The token
// value is an opaque random string used as the lookup key. A token is
// mutated exactly once: revocation stamps RevokedAt and RevokedByIP and
// the row then persists as an audit trail; rows are only ever deleted by
// the cascading delete of their owning user.
type RefreshToken struct {
	ID          int64      `db:"id" json:"id"`
	UserID      int64      `db:"user_id" json:"user_id"`
	Token       string     `db:"token" json:"token"`
	CreatedAt   time.Time  `db:"created_at" json:"created_at"`
	ExpiresAt   time.Time  `db:"expires_at" json:"expires_at"`
	RevokedAt   *time.Time `db:"revoked_at" json:"revoked_at,omitempty"`
	RevokedByIP *string    `db:"revoked_by_ip" json:"revoked_by_ip,omitempty"`

	// User is the owning user, resolved eagerly by the store on lookup.
	// The token is meaningless without it.
	User *User `db:"-" json:"-"`
}

// Expired reports whether the token is past its expiry.
func (t *RefreshToken) Expired() bool {
	return !time.Now().UTC().Before(t.ExpiresAt)
}

// Active reports whether the token can still be rotated: never revoked
// and not yet expired. There is no transition back to active.
func (t *RefreshToken) Active() bool {
	return t.RevokedAt == nil && !t.Expired()
}
