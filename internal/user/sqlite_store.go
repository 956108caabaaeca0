package user

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/session"
)

// SQLiteStore keeps the registry in a single users table.
type SQLiteStore struct {
	db *sql.DB
}

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS users (
	id         INTEGER PRIMARY KEY,
	first_name TEXT NOT NULL DEFAULT '',
	username   TEXT NOT NULL DEFAULT '',
	access     INTEGER NOT NULL DEFAULT 1,
	joined_at  INTEGER NOT NULL,
	system     TEXT NOT NULL DEFAULT '',
	session    TEXT
);`

// NewSQLiteStore opens the database at path and creates the schema.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// one connection keeps :memory: databases shared and serializes writes
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	L_info("sqlite: user store opened", "path", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Load() ([]User, error) {
	rows, err := s.db.Query(`SELECT id, first_name, username, access, joined_at, system, session FROM users ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []User
	for rows.Next() {
		var (
			u       User
			joined  int64
			sessRaw sql.NullString
		)
		if err := rows.Scan(&u.ID, &u.FirstName, &u.Username, &u.Access, &joined, &u.System, &sessRaw); err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		u.JoinedAt = time.Unix(joined, 0).UTC()
		if sessRaw.Valid && sessRaw.String != "" {
			var c session.Config
			if err := json.Unmarshal([]byte(sessRaw.String), &c); err != nil {
				L_warn("sqlite: dropping unreadable session", "user", u.ID, "error", err)
			} else {
				u.Session = &c
			}
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *SQLiteStore) Put(u User) error {
	var sess sql.NullString
	if u.Session != nil {
		data, err := json.Marshal(u.Session)
		if err != nil {
			return fmt.Errorf("marshal session: %w", err)
		}
		sess = sql.NullString{String: string(data), Valid: true}
	}

	_, err := s.db.Exec(`
		INSERT INTO users (id, first_name, username, access, joined_at, system, session)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			first_name = excluded.first_name,
			username   = excluded.username,
			access     = excluded.access,
			joined_at  = excluded.joined_at,
			system     = excluded.system,
			session    = excluded.session`,
		u.ID, u.FirstName, u.Username, u.Access, u.JoinedAt.Unix(), u.System, sess)
	if err != nil {
		return fmt.Errorf("upsert user %d: %w", u.ID, err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
