// Package types contains shared types used across multiple packages.
package types

import (
	"context"
	"time"
)

// EventKind is the content type of an inbound event.
type EventKind string

const (
	EventText  EventKind = "text"
	EventVoice EventKind = "voice"
)

// Event is one inbound message from the transport.
type Event struct {
	// === Identity ===
	UserID    int64
	FirstName string
	Username  string

	// === Content ===
	Kind     EventKind
	Text     string        // text payload, or the command argument string
	FileID   string        // transport file reference for voice payloads
	Duration time.Duration // voice duration as reported by the transport

	Time time.Time
}

// Reply is one outbound message. Any combination of fields may be set;
// the transport sends image, voice, then text.
type Reply struct {
	Text     string
	Markdown bool   // Text is markdown and may be rendered as rich text
	Voice    []byte // ogg/opus
	Image    []byte // png
	Caption  string // image caption

	// Suggestions is a reply-keyboard hint. nil leaves the keyboard alone,
	// an empty non-nil slice removes it.
	Suggestions []string
}

// TextReply builds a plain text reply.
func TextReply(text string) Reply {
	return Reply{Text: text}
}

// Responder delivers replies to a user.
type Responder interface {
	Send(ctx context.Context, userID int64, r Reply) error
}

// Downloader fetches a transport file by reference.
type Downloader interface {
	Download(ctx context.Context, fileID string) ([]byte, error)
}

// ResponderFunc adapts a function to Responder.
type ResponderFunc func(ctx context.Context, userID int64, r Reply) error

func (f ResponderFunc) Send(ctx context.Context, userID int64, r Reply) error {
	return f(ctx, userID, r)
}
