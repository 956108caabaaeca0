// Package session holds per-user dispatcher state.
package session

import (
	"fmt"
	"time"

	"github.com/roelfdiedericks/parrot/internal/speech"
)

// Scratch is the transient per-message buffer.
type Scratch struct {
	Text      string    // accumulated chain fragments
	FileID    string    // last voice file reference
	LastEvent time.Time // timestamp of the last event

	// Pending holds the /lang choices until the flow completes.
	Pending [2]speech.Profile
	Staged  bool
}

// Session is one user's dispatcher configuration.
type Session struct {
	UserID int64

	State State
	Flow  Flow

	AnswerFormat        AnswerFormat
	Mode                Mode
	Model               string
	TranslateType       TranslateType
	RecognitionLanguage string // speech.Auto when TranslateType is Auto
	Profiles            [2]speech.Profile

	Scratch Scratch
}

// Defaults are the values of a newly created session.
type Defaults struct {
	Model    string
	Voice    string
	Language string
}

// New returns a session in StateStart with default settings.
// The two profiles get different languages.
func New(userID int64, d Defaults) *Session {
	second := "en-US"
	if d.Language == second {
		second = "ru-RU"
	}
	return &Session{
		UserID:              userID,
		State:               StateStart,
		AnswerFormat:        AnswerText,
		Mode:                ModeAI,
		Model:               d.Model,
		TranslateType:       TranslateAuto,
		RecognitionLanguage: speech.Auto,
		Profiles: [2]speech.Profile{
			{Voice: d.Voice, Language: d.Language},
			{Voice: d.Voice, Language: second},
		},
	}
}

// Clone returns an independent copy.
func (s *Session) Clone() *Session {
	c := *s
	return &c
}

// Stage returns the profile pair a /lang step edits, copying the live
// pair on first use.
func (s *Session) Stage() *[2]speech.Profile {
	if !s.Scratch.Staged {
		s.Scratch.Pending = s.Profiles
		s.Scratch.Staged = true
	}
	return &s.Scratch.Pending
}

// Commit replaces the live pair with the staged one. The pair must be distinct.
func (s *Session) Commit() error {
	if !s.Scratch.Staged {
		return nil
	}
	p := s.Scratch.Pending
	if p[0] == p[1] {
		return fmt.Errorf("speech profiles must be distinct")
	}
	s.Profiles = p
	s.Unstage()
	return nil
}

// Unstage drops any staged choices.
func (s *Session) Unstage() {
	s.Scratch.Pending = [2]speech.Profile{}
	s.Scratch.Staged = false
}

// SetTranslateType applies t, forcing the recognition language to auto for TranslateAuto.
func (s *Session) SetTranslateType(t TranslateType, language string) {
	s.TranslateType = t
	if t == TranslateAuto {
		s.RecognitionLanguage = speech.Auto
		return
	}
	s.RecognitionLanguage = language
}

// Config is the persisted form of a Session. Scratch is not persisted.
type Config struct {
	State               State            `json:"state"`
	Flow                Flow             `json:"flow,omitempty"`
	Mode                Mode             `json:"mode"`
	AnswerFormat        AnswerFormat     `json:"answer_format"`
	Model               string           `json:"model"`
	TranslateType       TranslateType    `json:"translate_type"`
	RecognitionLanguage string           `json:"recognition_language"`
	Profiles            []speech.Profile `json:"profiles"`
}

// Config returns the persisted form of s.
func (s *Session) Config() Config {
	return Config{
		State:               s.State,
		Flow:                s.Flow,
		Mode:                s.Mode,
		AnswerFormat:        s.AnswerFormat,
		Model:               s.Model,
		TranslateType:       s.TranslateType,
		RecognitionLanguage: s.RecognitionLanguage,
		Profiles:            []speech.Profile{s.Profiles[0], s.Profiles[1]},
	}
}

// FromConfig rebuilds a session, rejecting values outside the declared sets.
func FromConfig(userID int64, c Config) (*Session, error) {
	if !c.State.Valid() {
		return nil, fmt.Errorf("session %d: unknown state %q", userID, c.State)
	}
	if !c.Mode.Valid() {
		return nil, fmt.Errorf("session %d: unknown mode %q", userID, c.Mode)
	}
	if !c.AnswerFormat.Valid() {
		return nil, fmt.Errorf("session %d: unknown answer format %q", userID, c.AnswerFormat)
	}
	if !c.TranslateType.Valid() {
		return nil, fmt.Errorf("session %d: unknown translate type %q", userID, c.TranslateType)
	}
	if !speech.ValidLanguage(c.RecognitionLanguage) {
		return nil, fmt.Errorf("session %d: invalid recognition language %q", userID, c.RecognitionLanguage)
	}
	if len(c.Profiles) != 2 {
		return nil, fmt.Errorf("session %d: want 2 speech profiles, got %d", userID, len(c.Profiles))
	}
	for i, p := range c.Profiles {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("session %d: profile %d: %w", userID, i+1, err)
		}
	}
	if c.Profiles[0] == c.Profiles[1] {
		return nil, fmt.Errorf("session %d: speech profiles must be distinct", userID)
	}

	return &Session{
		UserID:              userID,
		State:               c.State,
		Flow:                c.Flow,
		AnswerFormat:        c.AnswerFormat,
		Mode:                c.Mode,
		Model:               c.Model,
		TranslateType:       c.TranslateType,
		RecognitionLanguage: c.RecognitionLanguage,
		Profiles:            [2]speech.Profile{c.Profiles[0], c.Profiles[1]},
	}, nil
}
