// Package snapshot persists live sessions and system messages into the
// user registry on a cron schedule and restores them at startup.
package snapshot

import (
	"context"
	"errors"
	"fmt"
	"sync"

	cronlib "github.com/robfig/cron/v3"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/metrics"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/user"
)

// Sessions is the live session store.
type Sessions interface {
	Snapshot() map[int64]session.Config
	Restore(id int64, c session.Config) error
}

// Dialogue holds per-user system messages.
type Dialogue interface {
	Systems() map[int64]string
	SetSystem(id int64, text string)
	ReinsertSystem(id int64)
}

// Registry is where snapshots are written.
type Registry interface {
	List() []user.User
	SaveSession(id int64, cfg session.Config, system string) error
}

// Service runs the snapshot job.
type Service struct {
	sessions Sessions
	dialogue Dialogue
	users    Registry
	schedule string

	mu   sync.Mutex // serializes Save
	cron *cronlib.Cron
}

// New creates a service. An empty schedule disables periodic saves;
// Stop still writes a final snapshot.
func New(schedule string, sessions Sessions, dialogue Dialogue, users Registry) *Service {
	return &Service{
		sessions: sessions,
		dialogue: dialogue,
		users:    users,
		schedule: schedule,
	}
}

// Restore loads every saved session from the registry. Entries that no
// longer decode are skipped. Returns the number restored.
func (s *Service) Restore() int {
	restored := 0
	for _, u := range s.users.List() {
		if u.Session != nil {
			if err := s.sessions.Restore(u.ID, *u.Session); err != nil {
				L_warn("snapshot: skipping saved session", "user", u.ID, "error", err)
				continue
			}
			restored++
		}
		if u.System != "" {
			s.dialogue.SetSystem(u.ID, u.System)
			s.dialogue.ReinsertSystem(u.ID)
		}
	}
	L_info("snapshot: sessions restored", "count", restored)
	return restored
}

// Save writes every live session to the registry. Sessions of users the
// registry does not know are skipped.
func (s *Service) Save() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := s.sessions.Snapshot()
	systems := s.dialogue.Systems()

	var errs []error
	saved := 0
	for id, cfg := range snap {
		err := s.users.SaveSession(id, cfg, systems[id])
		switch {
		case err == nil:
			saved++
		case errors.Is(err, user.ErrNotFound):
			L_trace("snapshot: user not registered", "user", id)
		default:
			errs = append(errs, err)
		}
	}
	metrics.SessionsSnapshotted.Add(float64(saved))
	L_debug("snapshot: sessions saved", "saved", saved, "total", len(snap), "errors", len(errs))
	return errors.Join(errs...)
}

// Start schedules periodic saves.
func (s *Service) Start() error {
	if s.schedule == "" {
		L_info("snapshot: periodic saves disabled")
		return nil
	}
	c := cronlib.New()
	if _, err := c.AddFunc(s.schedule, s.run); err != nil {
		return fmt.Errorf("invalid snapshot schedule %q: %w", s.schedule, err)
	}
	c.Start()
	s.cron = c
	L_info("snapshot: scheduled", "schedule", s.schedule)
	return nil
}

func (s *Service) run() {
	if err := s.Save(); err != nil {
		L_warn("snapshot: save failed", "error", err)
	}
}

// Stop waits for a running save, then writes a final snapshot.
func (s *Service) Stop(ctx context.Context) error {
	if s.cron != nil {
		select {
		case <-s.cron.Stop().Done():
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return s.Save()
}
