// Package user provides the persisted user registry: access flags,
// profile fields and saved session snapshots.
package user

import (
	"time"

	"github.com/roelfdiedericks/parrot/internal/session"
)

// User is one registry entry, keyed by transport user id.
type User struct {
	ID        int64           `json:"id"`
	FirstName string          `json:"first_name"`
	Username  string          `json:"username,omitempty"`
	Access    bool            `json:"access"`
	JoinedAt  time.Time       `json:"joined_at"`
	System    string          `json:"system,omitempty"`  // saved system message
	Session   *session.Config `json:"session,omitempty"` // saved session snapshot
}

// Store persists registry entries.
type Store interface {
	Load() ([]User, error)
	Put(u User) error
	Close() error
}
