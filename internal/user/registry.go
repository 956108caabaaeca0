package user

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/session"
)

// ErrNotFound is returned for operations on unknown users.
var ErrNotFound = errors.New("user not found")

// Registry maintains the set of known users. Every mutation is persisted
// synchronously to the store.
type Registry struct {
	users map[int64]*User
	store Store
	mu    sync.RWMutex
}

// NewRegistry loads every entry from store.
func NewRegistry(store Store) (*Registry, error) {
	users, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load users: %w", err)
	}
	r := &Registry{users: make(map[int64]*User, len(users)), store: store}
	for i := range users {
		u := users[i]
		r.users[u.ID] = &u
	}
	L_info("user: registry loaded", "users", len(r.users))
	return r, nil
}

// Has reports whether id is registered.
func (r *Registry) Has(id int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.users[id]
	return ok
}

// Add registers a new user with access granted. Returns false if the
// user already exists, in which case nothing changes.
func (r *Registry) Add(id int64, firstName, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; ok {
		return false, nil
	}
	u := &User{
		ID:        id,
		FirstName: firstName,
		Username:  username,
		Access:    true,
		JoinedAt:  time.Now().UTC(),
	}
	if err := r.store.Put(*u); err != nil {
		return false, fmt.Errorf("save user %d: %w", id, err)
	}
	r.users[id] = u
	L_info("user: registered", "user", id, "username", username)
	return true, nil
}

// Get returns a copy of the entry for id.
func (r *Registry) Get(id int64) (User, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return User{}, false
	}
	return *u, true
}

// Access reports whether id may use the bot. Unknown users are permitted.
func (r *Registry) Access(id int64) bool {
	u, ok := r.Get(id)
	return !ok || u.Access
}

// SetAccess grants or revokes access.
func (r *Registry) SetAccess(id int64, allowed bool) error {
	return r.Update(id, func(u *User) { u.Access = allowed })
}

// SaveSession stores a session snapshot and system message for id.
func (r *Registry) SaveSession(id int64, cfg session.Config, system string) error {
	return r.Update(id, func(u *User) {
		c := cfg
		u.Session = &c
		u.System = system
	})
}

// Update applies fn to the entry and persists it. The in-memory entry
// is only replaced once the store accepts the write.
func (r *Registry) Update(id int64, fn func(*User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	updated := *u
	fn(&updated)
	if err := r.store.Put(updated); err != nil {
		return fmt.Errorf("save user %d: %w", id, err)
	}
	*u = updated
	return nil
}

// List returns every entry ordered by id.
func (r *Registry) List() []User {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, *u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Replace swaps the in-memory set, used when the backing file changed on disk.
func (r *Registry) Replace(users []User) {
	m := make(map[int64]*User, len(users))
	for i := range users {
		u := users[i]
		m[u.ID] = &u
	}
	r.mu.Lock()
	r.users = m
	r.mu.Unlock()
	L_info("user: registry reloaded", "users", len(m))
}

// Close closes the store.
func (r *Registry) Close() error {
	return r.store.Close()
}
