package user

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/roelfdiedericks/parrot/internal/config"
	. "github.com/roelfdiedericks/parrot/internal/logging"
)

// JSONStore keeps the registry in one JSON object keyed by the string user id.
type JSONStore struct {
	path    string
	backups int

	mu      sync.Mutex
	users   map[string]User
	watcher *fsnotify.Watcher
}

// NewJSONStore opens (or lazily creates) the registry file at path.
func NewJSONStore(path string) *JSONStore {
	return &JSONStore{path: path, backups: config.DefaultBackupCount, users: make(map[string]User)}
}

func (s *JSONStore) Load() ([]User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		return nil, err
	}
	s.users = users
	return sortedUsers(users), nil
}

func (s *JSONStore) read() (map[string]User, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return make(map[string]User), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.path, err)
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return make(map[string]User), nil
	}

	users := make(map[string]User)
	if err := json.Unmarshal(data, &users); err != nil {
		return nil, fmt.Errorf("parse %s: %w", s.path, err)
	}
	for key, u := range users {
		if u.ID == 0 {
			id, err := strconv.ParseInt(key, 10, 64)
			if err != nil {
				return nil, fmt.Errorf("parse %s: bad user key %q", s.path, key)
			}
			u.ID = id
			users[key] = u
		}
	}
	return users, nil
}

// Put rewrites the whole file with u inserted or replaced.
func (s *JSONStore) Put(u User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make(map[string]User, len(s.users)+1)
	for k, v := range s.users {
		next[k] = v
	}
	next[strconv.FormatInt(u.ID, 10)] = u

	if err := config.BackupAndWriteJSON(s.path, next, s.backups); err != nil {
		return err
	}
	s.users = next
	return nil
}

// Watch reloads the file when it changes on disk and passes the new
// entries to onChange. Returns once the watcher is running.
func (s *JSONStore) Watch(ctx context.Context, onChange func([]User)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	// Watch the directory; atomic writes replace the file inode.
	dir := filepath.Dir(s.path)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return err
	}

	s.mu.Lock()
	s.watcher = watcher
	s.mu.Unlock()

	L_info("user: watching registry file", "path", s.path)
	go s.watchLoop(ctx, watcher, onChange)
	return nil
}

func (s *JSONStore) watchLoop(ctx context.Context, watcher *fsnotify.Watcher, onChange func([]User)) {
	target := filepath.Base(s.path)
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if users, changed := s.reload(); changed {
				onChange(users)
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			L_warn("user: watcher error", "error", err)
		}
	}
}

// reload re-reads the file and reports whether it differs from memory.
func (s *JSONStore) reload() ([]User, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	users, err := s.read()
	if err != nil {
		L_warn("user: reload failed", "error", err)
		return nil, false
	}
	if equalUsers(users, s.users) {
		return nil, false
	}
	s.users = users
	return sortedUsers(users), true
}

func (s *JSONStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.watcher != nil {
		err := s.watcher.Close()
		s.watcher = nil
		return err
	}
	return nil
}

func equalUsers(a, b map[string]User) bool {
	ja, err1 := json.Marshal(a)
	jb, err2 := json.Marshal(b)
	return err1 == nil && err2 == nil && bytes.Equal(ja, jb)
}

func sortedUsers(m map[string]User) []User {
	out := make([]User, 0, len(m))
	for _, u := range m {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
