package session

import (
	"context"
	"sort"
	"sync"

	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// Store is the concurrency-safe session registry, keyed by user id.
//
// Each user has a gate serializing dispatch cycles and a mutex guarding
// the session value itself. Cycles work on copies and Put them back on
// success, so readers never observe a half-applied transition.
type Store struct {
	mu       sync.Mutex
	entries  map[int64]*entry
	defaults Defaults
}

type entry struct {
	gate chan struct{}
	mu   sync.Mutex
	sess Session
}

// NewStore creates an empty store.
func NewStore(d Defaults) *Store {
	return &Store{entries: make(map[int64]*entry), defaults: d}
}

func (s *Store) entry(id int64) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		e = &entry{gate: make(chan struct{}, 1), sess: *New(id, s.defaults)}
		s.entries[id] = e
		L_trace("session: created", "user", id)
	}
	return e
}

// Acquire takes the user's cycle gate, blocking until it is free or ctx is done.
func (s *Store) Acquire(ctx context.Context, id int64) (release func(), err error) {
	e := s.entry(id)
	select {
	case e.gate <- struct{}{}:
		var once sync.Once
		return func() { once.Do(func() { <-e.gate }) }, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Get returns a copy of the user's session, creating it on first contact.
func (s *Store) Get(id int64) *Session {
	e := s.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Clone()
}

// Put replaces the user's session with sess.
func (s *Store) Put(sess *Session) {
	e := s.entry(sess.UserID)
	e.mu.Lock()
	e.sess = *sess
	e.mu.Unlock()
}

// Update applies fn to the live session under its lock.
func (s *Store) Update(id int64, fn func(*Session)) {
	e := s.entry(id)
	e.mu.Lock()
	fn(&e.sess)
	e.mu.Unlock()
}

// Reset restores the user's session to defaults.
func (s *Store) Reset(id int64) {
	s.Put(New(id, s.defaults))
}

// Defaults returns the defaults used for new sessions.
func (s *Store) Defaults() Defaults {
	return s.defaults
}

// Snapshot returns the persisted form of every session.
func (s *Store) Snapshot() map[int64]Config {
	s.mu.Lock()
	entries := make(map[int64]*entry, len(s.entries))
	for id, e := range s.entries {
		entries[id] = e
	}
	s.mu.Unlock()

	out := make(map[int64]Config, len(entries))
	for id, e := range entries {
		e.mu.Lock()
		out[id] = e.sess.Config()
		e.mu.Unlock()
	}
	return out
}

// Restore installs a persisted session.
func (s *Store) Restore(id int64, c Config) error {
	sess, err := FromConfig(id, c)
	if err != nil {
		return err
	}
	s.Put(sess)
	return nil
}

// IDs returns the known user ids in ascending order.
func (s *Store) IDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.entries))
	for id := range s.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
