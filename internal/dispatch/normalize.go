package dispatch

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/speech"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Status tells the caller what to do with a normalized event.
type Status int

const (
	// Ready means the text goes to the state machine.
	Ready Status = iota
	// Chained means the text was buffered; wait for the terminating message.
	Chained
	// Dropped means there is nothing to process.
	Dropped
)

func (s Status) String() string {
	switch s {
	case Ready:
		return "ready"
	case Chained:
		return "chained"
	case Dropped:
		return "dropped"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

// Defaults for chain detection.
const (
	DefaultChainMarker    = "+\n"
	DefaultChainThreshold = 3580
)

const notRecognized = "Sorry, I could not recognize your message."

// Recognizer turns a voice note into text.
type Recognizer interface {
	Recognize(ctx context.Context, p speech.Profile, audio []byte) (string, error)
}

// NormalizerConfig holds chain detection settings.
type NormalizerConfig struct {
	ChainMarker    string
	ChainThreshold int // rune count above which a message is a fragment
}

// Normalizer resolves one event into the effective input text.
type Normalizer struct {
	speech    Recognizer
	files     types.Downloader
	out       types.Responder
	marker    string
	threshold int
}

// NewNormalizer creates a normalizer. Zero config fields take the defaults.
func NewNormalizer(cfg NormalizerConfig, rec Recognizer, files types.Downloader, out types.Responder) *Normalizer {
	if cfg.ChainMarker == "" {
		cfg.ChainMarker = DefaultChainMarker
	}
	if cfg.ChainThreshold <= 0 {
		cfg.ChainThreshold = DefaultChainThreshold
	}
	return &Normalizer{
		speech:    rec,
		files:     files,
		out:       out,
		marker:    cfg.ChainMarker,
		threshold: cfg.ChainThreshold,
	}
}

// Normalize returns the text of ev and what to do with it. It writes the
// scratch buffer of s and nothing else.
func (n *Normalizer) Normalize(ctx context.Context, s *session.Session, ev types.Event) (string, Status, error) {
	s.Scratch.LastEvent = ev.Time

	switch ev.Kind {
	case types.EventVoice:
		return n.voice(ctx, s, ev)
	case types.EventText:
		return n.text(s, ev.Text), n.status(ev.Text), nil
	default:
		return "", Dropped, fmt.Errorf("unsupported event kind %q", ev.Kind)
	}
}

// IsChain reports whether text is a fragment of a longer message.
func (n *Normalizer) IsChain(text string) bool {
	return strings.HasPrefix(text, n.marker) || utf8.RuneCountInString(text) > n.threshold
}

func (n *Normalizer) status(text string) Status {
	if n.IsChain(text) {
		return Chained
	}
	return Ready
}

// text buffers fragments and flushes the buffer in front of the
// terminating message.
func (n *Normalizer) text(s *session.Session, text string) string {
	if n.IsChain(text) {
		s.Scratch.Text += strings.TrimPrefix(text, n.marker)
		L_trace("dispatch: chain fragment buffered", "user", s.UserID, "buffered", len(s.Scratch.Text))
		return ""
	}
	if s.Scratch.Text != "" {
		text = s.Scratch.Text + text
		s.Scratch.Text = ""
	}
	return text
}

func (n *Normalizer) voice(ctx context.Context, s *session.Session, ev types.Event) (string, Status, error) {
	s.Scratch.FileID = ev.FileID
	profile := RecognitionProfile(s)

	audio, err := n.files.Download(ctx, ev.FileID)
	if err != nil {
		return "", Dropped, fmt.Errorf("download voice: %w", err)
	}
	text, err := n.speech.Recognize(ctx, profile, audio)
	if err != nil {
		return "", Dropped, fmt.Errorf("recognize voice: %w", err)
	}
	text = strings.TrimSpace(text)
	if text == "" {
		L_debug("dispatch: empty recognition", "user", s.UserID, "language", profile.Language)
		return "", Dropped, n.out.Send(ctx, s.UserID, types.Reply{Text: notRecognized, Suggestions: []string{}})
	}

	if err := n.out.Send(ctx, s.UserID, types.Reply{Text: text, Suggestions: []string{}}); err != nil {
		return "", Dropped, err
	}
	return text, Ready, nil
}

// RecognitionProfile picks the profile to recognize voice with. Manual
// translation uses the profile of the chosen language; otherwise the
// auto-tagged profile wins, then the first one.
func RecognitionProfile(s *session.Session) speech.Profile {
	want := speech.Auto
	if s.TranslateType == session.TranslateManual && s.RecognitionLanguage != speech.Auto {
		want = s.RecognitionLanguage
	}
	for _, p := range s.Profiles {
		if p.Language == want {
			return p
		}
	}
	return s.Profiles[0]
}
