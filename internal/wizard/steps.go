package wizard

import (
	"context"
	"fmt"
	"unicode/utf8"

	. "github.com/roelfdiedericks/parrot/internal/logging"
	"github.com/roelfdiedericks/parrot/internal/menu"
	"github.com/roelfdiedericks/parrot/internal/router"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/speech"
	"github.com/roelfdiedericks/parrot/internal/types"
)

// Capability contracts the steps depend on.
type (
	Router interface {
		Route(ctx context.Context, s *session.Session, text string) (router.Response, error)
	}
	Dialogue interface {
		SetSystem(userID int64, text string)
		GetSystem(userID int64) string
		Clear(userID int64)
		ReinsertSystem(userID int64)
	}
	Synthesizer interface {
		Synthesize(ctx context.Context, p speech.Profile, text string) ([]byte, error)
	}
	AccessChecker interface {
		Access(userID int64) bool
	}
)

// Deps wires the steps to their collaborators.
type Deps struct {
	Router   Router
	Dialogue Dialogue
	Speech   Synthesizer
	Access   AccessChecker
	Out      types.Responder
}

// Flows is the fixed step order per top-level command.
var Flows = map[session.Flow][]session.State{
	session.FlowSystem: {session.StateSystem, session.StateSystemConfirm},
	session.FlowLang: {
		session.StateRecognition1,
		session.StateVoice1,
		session.StateRecognition2,
		session.StateVoice2,
		session.StateTranslateType,
	},
	session.FlowVoice:  {session.StateVoice1, session.StateVoice2},
	session.FlowAnswer: {session.StateAnswerFormat},
	session.FlowModel:  {session.StateModel},
	session.FlowMode:   {session.StateMode},
}

// maxCaption is the transport's photo caption limit.
const maxCaption = 1024

// New builds the shipped state machine. StateStart and StateDefault are
// served by the message handler.
func New(d Deps) (*Machine, error) {
	w := &steps{Deps: d}
	table := map[session.State]Step{
		session.StateSystem:        {Prompt: w.systemPrompt, Handle: w.system},
		session.StateSystemConfirm: {Prompt: w.confirmPrompt, Handle: w.systemConfirm},
		session.StateRecognition1:  {Prompt: w.recognitionPrompt(0), Handle: w.recognition(0)},
		session.StateRecognition2:  {Prompt: w.recognitionPrompt(1), Handle: w.recognition(1)},
		session.StateVoice1:        {Prompt: w.voicePrompt(0), Handle: w.voice(0)},
		session.StateVoice2:        {Prompt: w.voicePrompt(1), Handle: w.voice(1)},
		session.StateTranslateType: {Prompt: w.translateTypePrompt, Handle: w.translateType},
		session.StateAnswerFormat:  {Prompt: w.answerPrompt, Handle: w.answer},
		session.StateModel:         {Prompt: w.modelPrompt, Handle: w.model},
		session.StateMode:          {Prompt: w.modePrompt, Handle: w.mode},
	}
	return NewMachine(d.Out, table, w.message, Flows)
}

type steps struct {
	Deps
}

func (w *steps) send(ctx context.Context, s *session.Session, r types.Reply) error {
	return w.Out.Send(ctx, s.UserID, r)
}

// done confirms a finished step and removes the keyboard.
func (w *steps) done(ctx context.Context, s *session.Session, format string, args ...any) (Outcome, error) {
	if err := w.send(ctx, s, types.Reply{Text: fmt.Sprintf(format, args...), Suggestions: []string{}}); err != nil {
		return Stay, err
	}
	return Advance, nil
}

func choose[T comparable](m *menu.Menu[T], input string) (T, error) {
	v, ok := m.Lookup(input)
	if !ok {
		return v, fmt.Errorf("%q: %w", input, types.ErrInvalidInput)
	}
	return v, nil
}

// === system ===

func (w *steps) systemPrompt(s *session.Session) types.Reply {
	return types.Reply{
		Text:        fmt.Sprintf("Current system message:\n%s\n\nSend the new system message.", w.Dialogue.GetSystem(s.UserID)),
		Suggestions: []string{},
	}
}

// system accepts any text.
func (w *steps) system(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	w.Dialogue.SetSystem(s.UserID, input)
	return Advance, nil
}

func (w *steps) confirmPrompt(s *session.Session) types.Reply {
	return types.Reply{Text: "Clear the conversation history?", Suggestions: confirmMenu.Labels()}
}

func (w *steps) systemConfirm(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	wipe, err := choose(confirmMenu, input)
	if err != nil {
		return Stay, err
	}
	if wipe {
		w.Dialogue.Clear(s.UserID)
		return w.done(ctx, s, "System message set, history cleared.")
	}
	w.Dialogue.ReinsertSystem(s.UserID)
	return w.done(ctx, s, "System message set, history kept.")
}

// === languages and voices ===

// pair is what the profile steps edit. The lang flow works on a staged
// copy that only replaces the live pair at the translation type step.
func pair(s *session.Session) *[2]speech.Profile {
	if s.Flow == session.FlowLang {
		return s.Stage()
	}
	return &s.Profiles
}

func (w *steps) recognitionPrompt(i int) func(*session.Session) types.Reply {
	return func(s *session.Session) types.Reply {
		return types.Reply{
			Text:        fmt.Sprintf("Language %d is %s. Choose language %d.", i+1, languageLabel(pair(s)[i].Language), i+1),
			Suggestions: languageMenu.Labels(),
		}
	}
}

// recognition sets profile i's language. The second language must differ
// from the first so the pair stays distinct.
func (w *steps) recognition(i int) Handler {
	return func(ctx context.Context, s *session.Session, input string) (Outcome, error) {
		tag, err := choose(languageMenu, input)
		if err != nil {
			return Stay, err
		}
		profiles := pair(s)
		if i == 1 && tag == profiles[0].Language {
			return Stay, fmt.Errorf("language 2 equals language 1: %w", types.ErrInvalidInput)
		}
		if err := profiles[i].SetLanguage(tag); err != nil {
			return Stay, fmt.Errorf("%v: %w", err, types.ErrInvalidInput)
		}
		return Advance, nil
	}
}

func (w *steps) voicePrompt(i int) func(*session.Session) types.Reply {
	return func(s *session.Session) types.Reply {
		p := pair(s)[i]
		return types.Reply{
			Text:        fmt.Sprintf("Voice %d (%s) is %s. Choose voice %d.", i+1, languageLabel(p.Language), voiceLabel(p.Voice), i+1),
			Suggestions: voiceMenu.Labels(),
		}
	}
}

func (w *steps) voice(i int) Handler {
	return func(ctx context.Context, s *session.Session, input string) (Outcome, error) {
		id, err := choose(voiceMenu, input)
		if err != nil {
			return Stay, err
		}
		profiles := pair(s)
		p := profiles[i]
		if err := p.SetVoice(id); err != nil {
			return Stay, fmt.Errorf("%v: %w", err, types.ErrInvalidInput)
		}
		// In the lang flow profile 2 is not chosen yet when voice 1 is set;
		// the second recognition step enforces distinctness there.
		pending := s.Flow == session.FlowLang && i == 0
		if !pending && p == profiles[1-i] {
			return Stay, fmt.Errorf("profiles %d and %d would be identical: %w", i+1, 2-i, types.ErrInvalidInput)
		}
		profiles[i] = p
		if s.Flow == session.FlowVoice && i == 1 {
			return w.done(ctx, s, "Voices set: %s, %s.", voiceLabel(s.Profiles[0].Voice), voiceLabel(s.Profiles[1].Voice))
		}
		return Advance, nil
	}
}

func (w *steps) translateTypePrompt(s *session.Session) types.Reply {
	return types.Reply{
		Text:        "Translate from which language? Auto detects it for every message.",
		Suggestions: translateTypeMenu(pair(s)).Labels(),
	}
}

// translateType ends the lang flow: the staged pair goes live together
// with the translation type.
func (w *steps) translateType(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	tag, err := choose(translateTypeMenu(pair(s)), input)
	if err != nil {
		return Stay, err
	}
	if err := s.Commit(); err != nil {
		return Stay, fmt.Errorf("%v: %w", err, types.ErrInvalidInput)
	}
	if tag == speech.Auto {
		s.SetTranslateType(session.TranslateAuto, "")
	} else {
		s.SetTranslateType(session.TranslateManual, tag)
	}
	return w.done(ctx, s, "Languages set: %s / %s, source: %s.",
		languageLabel(s.Profiles[0].Language), languageLabel(s.Profiles[1].Language), languageLabel(s.RecognitionLanguage))
}

// === single-step settings ===

func (w *steps) answerPrompt(s *session.Session) types.Reply {
	current, _ := answerMenu.Label(s.AnswerFormat)
	return types.Reply{Text: fmt.Sprintf("Answer format is %s. Choose the answer format.", current), Suggestions: answerMenu.Labels()}
}

func (w *steps) answer(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	f, err := choose(answerMenu, input)
	if err != nil {
		return Stay, err
	}
	s.AnswerFormat = f
	label, _ := answerMenu.Label(f)
	return w.done(ctx, s, "Answer format: %s.", label)
}

func (w *steps) modelPrompt(s *session.Session) types.Reply {
	current, ok := modelMenu.Label(s.Model)
	if !ok {
		current = s.Model
	}
	return types.Reply{Text: fmt.Sprintf("Model is %s. Choose the model.", current), Suggestions: modelMenu.Labels()}
}

func (w *steps) model(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	id, err := choose(modelMenu, input)
	if err != nil {
		return Stay, err
	}
	s.Model = id
	label, _ := modelMenu.Label(id)
	return w.done(ctx, s, "Model: %s.", label)
}

func (w *steps) modePrompt(s *session.Session) types.Reply {
	current, _ := modeMenu.Label(s.Mode)
	return types.Reply{Text: fmt.Sprintf("Mode is %s. Choose the mode.", current), Suggestions: modeMenu.Labels()}
}

func (w *steps) mode(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	m, err := choose(modeMenu, input)
	if err != nil {
		return Stay, err
	}
	s.Mode = m
	label, _ := modeMenu.Label(m)
	return w.done(ctx, s, "Mode: %s.", label)
}

// === default ===

// message gates on access, routes the input and sends the response in
// the session's answer format.
func (w *steps) message(ctx context.Context, s *session.Session, input string) (Outcome, error) {
	if !w.Access.Access(s.UserID) {
		return Stay, types.ErrAccessDenied
	}

	resp, err := w.Router.Route(ctx, s, input)
	if err != nil {
		return Stay, err
	}
	if resp.Text == "" && resp.Image == nil {
		return Stay, types.ErrEmptyContent
	}

	var reply types.Reply
	if resp.Image != nil {
		reply.Image = resp.Image
		reply.Caption = truncateRunes(resp.Text, maxCaption)
	} else if s.AnswerFormat.WantsText() {
		reply.Text = resp.Text
		reply.Markdown = s.Mode == session.ModeAI
	}

	if s.AnswerFormat.WantsVoice() && resp.Text != "" {
		profile := s.Profiles[0]
		if resp.Profile != nil {
			profile = *resp.Profile
		}
		audio, err := w.Speech.Synthesize(ctx, profile, resp.Text)
		if err != nil {
			return Stay, fmt.Errorf("synthesize: %w", err)
		}
		reply.Voice = audio
	}

	if reply.Text == "" && reply.Voice == nil && reply.Image == nil {
		return Stay, types.ErrEmptyContent
	}
	if err := w.send(ctx, s, reply); err != nil {
		return Stay, err
	}
	L_trace("wizard: message answered", "user", s.UserID, "mode", s.Mode, "format", s.AnswerFormat)
	return Advance, nil
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}
