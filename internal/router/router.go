// Package router turns input text into a response payload according to
// the session's mode.
package router

import (
	"context"
	"fmt"

	"github.com/roelfdiedericks/parrot/internal/dialogue"
	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/metrics"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/speech"
	"github.com/roelfdiedericks/parrot/internal/translate"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Dialogue is the generation capability the AI mode needs.
type Dialogue interface {
	Generate(ctx context.Context, userID int64, model, text string) (dialogue.Generation, error)
}

// Response is what a mode produced.
type Response struct {
	Text  string
	Image []byte

	// Profile, when set, is the voice the response should be spoken with.
	Profile *speech.Profile
}

// RouteFunc handles one mode.
type RouteFunc func(ctx context.Context, s *session.Session, text string) (Response, error)

// Router dispatches by session mode.
type Router struct {
	routes map[session.Mode]RouteFunc
}

// New builds the router with the AI, Echo and Translate modes.
func New(d Dialogue, t translate.Translator) *Router {
	r := &Router{routes: make(map[session.Mode]RouteFunc)}
	r.routes[session.ModeAI] = aiRoute(d)
	r.routes[session.ModeEcho] = echoRoute
	r.routes[session.ModeTranslate] = translateRoute(t)
	return r
}

// Handle replaces the route of mode.
func (r *Router) Handle(mode session.Mode, fn RouteFunc) {
	r.routes[mode] = fn
}

// Route produces the response for text in s.Mode. A mode without a
// route is ErrUnidentifiedMode.
func (r *Router) Route(ctx context.Context, s *session.Session, text string) (Response, error) {
	fn, ok := r.routes[s.Mode]
	if !ok {
		metrics.RoutesTotal.WithLabelValues(string(s.Mode), "unidentified").Inc()
		return Response{}, fmt.Errorf("mode %q: %w", s.Mode, types.ErrUnidentifiedMode)
	}
	resp, err := fn(ctx, s, text)
	status := "ok"
	if err != nil {
		status = "error"
	}
	metrics.RoutesTotal.WithLabelValues(string(s.Mode), status).Inc()
	return resp, err
}

func echoRoute(_ context.Context, _ *session.Session, text string) (Response, error) {
	return Response{Text: text}, nil
}

func aiRoute(d Dialogue) RouteFunc {
	return func(ctx context.Context, s *session.Session, text string) (Response, error) {
		gen, err := d.Generate(ctx, s.UserID, s.Model, text)
		if err != nil {
			return Response{}, err
		}
		return Response{Text: gen.Text, Image: gen.Image}, nil
	}
}

func translateRoute(t translate.Translator) RouteFunc {
	return func(ctx context.Context, s *session.Session, text string) (Response, error) {
		source, err := sourceLanguage(ctx, t, s, text)
		if err != nil {
			return Response{}, err
		}

		target := translate.Target(source, s.Profiles)
		targetCode := target.Short()
		if target.Language == speech.Auto {
			targetCode = translate.Fallback(source)
			target.Language = localeFor(targetCode)
		}

		L_debug("router: translating", "user", s.UserID, "source", source, "target", targetCode)
		out, err := t.Translate(ctx, text, targetCode, source)
		if err != nil {
			return Response{}, fmt.Errorf("translate: %w", err)
		}
		return Response{Text: out, Profile: &target}, nil
	}
}

// sourceLanguage is the recognition language in manual mode, otherwise
// the detected language of text.
func sourceLanguage(ctx context.Context, t translate.Translator, s *session.Session, text string) (string, error) {
	if s.TranslateType == session.TranslateManual && s.RecognitionLanguage != speech.Auto {
		return speech.Short(s.RecognitionLanguage), nil
	}
	lang, err := t.Detect(ctx, text, translate.Hints(s.Profiles[0], s.Profiles[1]))
	if err != nil {
		return "", fmt.Errorf("%w: %w", types.ErrUnableDetectLanguage, err)
	}
	if lang == "" {
		return "", types.ErrUnableDetectLanguage
	}
	return lang, nil
}

// localeFor maps a short code to the first matching selectable locale.
func localeFor(short string) string {
	for _, l := range speech.Languages {
		if speech.Short(l.Tag) == short {
			return l.Tag
		}
	}
	return speech.Auto
}
