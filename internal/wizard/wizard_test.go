package wizard

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/parrot/internal/dialogue"
	"github.com/roelfdiedericks/parrot/internal/router"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/speech"
	"github.com/roelfdiedericks/parrot/internal/types"
)

type recorder struct {
	replies []types.Reply
}

func (r *recorder) Send(_ context.Context, _ int64, reply types.Reply) error {
	r.replies = append(r.replies, reply)
	return nil
}

func (r *recorder) last() types.Reply {
	if len(r.replies) == 0 {
		return types.Reply{}
	}
	return r.replies[len(r.replies)-1]
}

type fakeRouter struct {
	resp  router.Response
	err   error
	calls []string
}

func (f *fakeRouter) Route(_ context.Context, _ *session.Session, text string) (router.Response, error) {
	f.calls = append(f.calls, text)
	return f.resp, f.err
}

type fakeSynth struct {
	profiles []speech.Profile
}

func (f *fakeSynth) Synthesize(_ context.Context, p speech.Profile, text string) ([]byte, error) {
	f.profiles = append(f.profiles, p)
	return []byte("OggS" + text), nil
}

type accessFunc func(int64) bool

func (f accessFunc) Access(id int64) bool { return f(id) }

type wordCounter struct{}

func (wordCounter) Count(s string) int { return len(strings.Fields(s)) }

type echoChat struct{}

func (echoChat) Name() string { return dialogue.ProviderOpenAI }

func (echoChat) Complete(_ context.Context, _ string, history []dialogue.Message) (string, error) {
	return "re: " + history[len(history)-1].Content, nil
}

type harness struct {
	m       *Machine
	out     *recorder
	router  *fakeRouter
	synth   *fakeSynth
	dlg     *dialogue.Engine
	allowed bool
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		out:     &recorder{},
		router:  &fakeRouter{resp: router.Response{Text: "answer"}},
		synth:   &fakeSynth{},
		dlg:     dialogue.New(dialogue.Config{DefaultSystem: "default", Counter: wordCounter{}}),
		allowed: true,
	}
	h.dlg.AddChat(echoChat{})
	m, err := New(Deps{
		Router:   h.router,
		Dialogue: h.dlg,
		Speech:   h.synth,
		Access:   accessFunc(func(int64) bool { return h.allowed }),
		Out:      h.out,
	})
	require.NoError(t, err)
	h.m = m
	return h
}

func newSession() *session.Session {
	s := session.New(7, session.Defaults{Model: "gpt-3.5-turbo-1106", Voice: "marina", Language: "ru-RU"})
	s.State = session.StateDefault
	return s
}

func TestSystemFlowClearsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.dlg.Generate(ctx, 7, "gpt-3.5-turbo-1106", "hello")
	require.NoError(t, err)
	require.Len(t, h.dlg.History(7), 3)

	s := newSession()
	require.NoError(t, h.m.Start(ctx, s, session.FlowSystem))
	assert.Equal(t, session.StateSystem, s.State)
	assert.Contains(t, h.out.last().Text, "default")

	require.NoError(t, h.m.Handle(ctx, s, "Be concise."))
	assert.Equal(t, session.StateSystemConfirm, s.State)
	assert.Equal(t, confirmMenu.Labels(), h.out.last().Suggestions)

	require.NoError(t, h.m.Handle(ctx, s, "Да"))
	assert.Equal(t, session.StateDefault, s.State)
	assert.Equal(t, session.FlowNone, s.Flow)
	assert.Equal(t, "Be concise.", h.dlg.GetSystem(7))
	assert.Equal(t, []dialogue.Message{{Role: dialogue.RoleSystem, Content: "Be concise."}}, h.dlg.History(7))
	assert.Empty(t, h.router.calls)
}

func TestSystemFlowKeepsHistory(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	_, err := h.dlg.Generate(ctx, 7, "gpt-3.5-turbo-1106", "hello")
	require.NoError(t, err)

	s := newSession()
	require.NoError(t, h.m.Start(ctx, s, session.FlowSystem))
	require.NoError(t, h.m.Handle(ctx, s, "Be brief."))
	require.NoError(t, h.m.Handle(ctx, s, "no"))

	hist := h.dlg.History(7)
	require.Len(t, hist, 3)
	assert.Equal(t, "Be brief.", hist[0].Content)
	assert.Equal(t, "hello", hist[1].Content)
	assert.Equal(t, session.StateDefault, s.State)
}

func TestRejectedInputStays(t *testing.T) {
	for _, tc := range []struct {
		state session.State
		flow  session.Flow
	}{
		{session.StateSystemConfirm, session.FlowSystem},
		{session.StateRecognition1, session.FlowLang},
		{session.StateRecognition2, session.FlowLang},
		{session.StateVoice1, session.FlowVoice},
		{session.StateVoice2, session.FlowVoice},
		{session.StateTranslateType, session.FlowLang},
		{session.StateAnswerFormat, session.FlowAnswer},
		{session.StateModel, session.FlowModel},
		{session.StateMode, session.FlowMode},
	} {
		t.Run(string(tc.state), func(t *testing.T) {
			h := newHarness(t)
			s := newSession()
			s.State, s.Flow = tc.state, tc.flow
			before := *s

			require.NoError(t, h.m.Handle(context.Background(), s, "definitely not an option"))
			assert.Equal(t, before, *s)
			reply := h.out.last()
			assert.True(t, strings.HasPrefix(reply.Text, types.UserMessage(types.ErrInvalidInput)))
			assert.NotEmpty(t, reply.Suggestions)
			assert.Empty(t, h.router.calls)
		})
	}
}

func TestAcceptedInputAdvances(t *testing.T) {
	for _, tc := range []struct {
		name  string
		state session.State
		flow  session.Flow
		input string
		next  session.State
		check func(t *testing.T, s *session.Session)
	}{
		{"answer", session.StateAnswerFormat, session.FlowAnswer, "voice", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, session.AnswerVoice, s.AnswerFormat) }},
		{"answer all", session.StateAnswerFormat, session.FlowAnswer, "Text and voice", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, session.AnswerAll, s.AnswerFormat) }},
		{"model", session.StateModel, session.FlowModel, "GPT-4 Turbo 128K", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "gpt-4-1106-preview", s.Model) }},
		{"model by id", session.StateModel, session.FlowModel, "dall-e-3", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "dall-e-3", s.Model) }},
		{"mode", session.StateMode, session.FlowMode, "translate", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, session.ModeTranslate, s.Mode) }},
		{"recognition 1", session.StateRecognition1, session.FlowLang, "German", session.StateVoice1,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "de-DE", s.Scratch.Pending[0].Language) }},
		{"voice 1", session.StateVoice1, session.FlowLang, "Filipp", session.StateRecognition2,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "filipp", s.Scratch.Pending[0].Voice) }},
		{"recognition 2", session.StateRecognition2, session.FlowLang, "auto", session.StateVoice2,
			func(t *testing.T, s *session.Session) { assert.Equal(t, speech.Auto, s.Scratch.Pending[1].Language) }},
		{"voice 2", session.StateVoice2, session.FlowLang, "nova", session.StateTranslateType,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "nova", s.Scratch.Pending[1].Voice) }},
		{"voice flow 1", session.StateVoice1, session.FlowVoice, "jane", session.StateVoice2,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "jane", s.Profiles[0].Voice) }},
		{"voice flow 2", session.StateVoice2, session.FlowVoice, "zahar", session.StateDefault,
			func(t *testing.T, s *session.Session) { assert.Equal(t, "zahar", s.Profiles[1].Voice) }},
		{"translate type manual", session.StateTranslateType, session.FlowLang, "English", session.StateDefault,
			func(t *testing.T, s *session.Session) {
				assert.Equal(t, session.TranslateManual, s.TranslateType)
				assert.Equal(t, "en-US", s.RecognitionLanguage)
			}},
		{"translate type auto", session.StateTranslateType, session.FlowLang, "Auto", session.StateDefault,
			func(t *testing.T, s *session.Session) {
				assert.Equal(t, session.TranslateAuto, s.TranslateType)
				assert.Equal(t, speech.Auto, s.RecognitionLanguage)
			}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			s := newSession()
			s.State, s.Flow = tc.state, tc.flow
			s.Scratch.Text = "pending fragment"

			require.NoError(t, h.m.Handle(context.Background(), s, tc.input))
			assert.Equal(t, tc.next, s.State)
			tc.check(t, s)
			assert.Equal(t, "pending fragment", s.Scratch.Text, "wizard steps do not consume the buffer")
			if tc.next == session.StateDefault {
				assert.Equal(t, session.FlowNone, s.Flow)
				assert.NotNil(t, h.out.last().Suggestions)
				assert.Empty(t, h.out.last().Suggestions)
			}
		})
	}
}

func TestLangFlowWalk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := newSession()

	require.NoError(t, h.m.Start(ctx, s, session.FlowLang))
	for _, in := range []string{"English", "Jane", "Russian", "Filipp", "Russian"} {
		require.NoError(t, h.m.Handle(ctx, s, in), in)
	}
	assert.Equal(t, session.StateDefault, s.State)
	assert.Equal(t, speech.Profile{Voice: "jane", Language: "en-US"}, s.Profiles[0])
	assert.Equal(t, speech.Profile{Voice: "filipp", Language: "ru-RU"}, s.Profiles[1])
	assert.Equal(t, session.TranslateManual, s.TranslateType)
	assert.Equal(t, "ru-RU", s.RecognitionLanguage)
}

func TestLangFlowAbortKeepsLivePair(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	s := newSession()
	before := s.Profiles

	require.NoError(t, h.m.Start(ctx, s, session.FlowLang))
	// English matches profile 2 exactly; applied live it would duplicate it.
	require.NoError(t, h.m.Handle(ctx, s, "English"))
	require.Equal(t, session.StateVoice1, s.State)
	assert.Equal(t, before, s.Profiles)

	require.NoError(t, h.m.Start(ctx, s, session.FlowMode))
	assert.False(t, s.Scratch.Staged)
	assert.NotEqual(t, s.Profiles[0], s.Profiles[1])
	_, err := session.FromConfig(s.UserID, s.Config())
	require.NoError(t, err)

	// A fresh /lang starts from the live pair, not the abandoned choices.
	require.NoError(t, h.m.Start(ctx, s, session.FlowLang))
	assert.Contains(t, h.out.last().Text, "Language 1 is Russian")
}

func TestTranslateTypeCommitsStagedPair(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	s.State, s.Flow = session.StateTranslateType, session.FlowLang
	staged := s.Stage()
	staged[0] = speech.Profile{Voice: "jane", Language: "de-DE"}

	require.NoError(t, h.m.Handle(context.Background(), s, "German"))
	assert.Equal(t, session.StateDefault, s.State)
	assert.Equal(t, speech.Profile{Voice: "jane", Language: "de-DE"}, s.Profiles[0])
	assert.Equal(t, "de-DE", s.RecognitionLanguage)
	assert.False(t, s.Scratch.Staged)
}

func TestTranslateTypeRejectsIdenticalStagedPair(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	before := s.Profiles
	s.State, s.Flow = session.StateTranslateType, session.FlowLang
	staged := s.Stage()
	staged[1] = staged[0]

	require.NoError(t, h.m.Handle(context.Background(), s, "Auto"))
	assert.Equal(t, session.StateTranslateType, s.State)
	assert.Equal(t, before, s.Profiles)
}

func TestRecognition2RejectsDuplicateLanguage(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	s.State, s.Flow = session.StateRecognition2, session.FlowLang

	require.NoError(t, h.m.Handle(context.Background(), s, "Russian"))
	assert.Equal(t, session.StateRecognition2, s.State)
	assert.Equal(t, "en-US", s.Profiles[1].Language)
}

func TestVoiceRejectsIdenticalProfiles(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	s.Profiles[1].Language = s.Profiles[0].Language
	s.Profiles[1].Voice = "jane"
	s.State, s.Flow = session.StateVoice2, session.FlowVoice

	require.NoError(t, h.m.Handle(context.Background(), s, "Marina"))
	assert.Equal(t, session.StateVoice2, s.State)
	assert.Equal(t, "jane", s.Profiles[1].Voice)
}

func TestTranslateTypeOnlyOffersPairLanguages(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	s.State, s.Flow = session.StateTranslateType, session.FlowLang

	require.NoError(t, h.m.Handle(context.Background(), s, "German"))
	assert.Equal(t, session.StateTranslateType, s.State)
	assert.Equal(t, []string{"Auto", "Russian", "English"}, h.out.last().Suggestions)
}

func TestMessageAccessDenied(t *testing.T) {
	h := newHarness(t)
	h.allowed = false
	s := newSession()

	err := h.m.Handle(context.Background(), s, "hi")
	assert.ErrorIs(t, err, types.ErrAccessDenied)
	assert.Empty(t, h.router.calls)
	assert.Empty(t, h.out.replies)
	assert.Equal(t, session.StateDefault, s.State)
}

func TestMessageFormats(t *testing.T) {
	override := speech.Profile{Voice: "jane", Language: "en-US"}
	for _, tc := range []struct {
		name      string
		format    session.AnswerFormat
		mode      session.Mode
		resp      router.Response
		wantText  string
		wantVoice bool
		wantImage bool
		markdown  bool
		profile   speech.Profile
	}{
		{"text ai", session.AnswerText, session.ModeAI, router.Response{Text: "**hi**"}, "**hi**", false, false, true, speech.Profile{}},
		{"text echo", session.AnswerText, session.ModeEcho, router.Response{Text: "hi"}, "hi", false, false, false, speech.Profile{}},
		{"voice", session.AnswerVoice, session.ModeEcho, router.Response{Text: "hi"}, "", true, false, false, speech.Profile{Voice: "marina", Language: "ru-RU"}},
		{"all translated", session.AnswerAll, session.ModeTranslate, router.Response{Text: "hello", Profile: &override}, "hello", true, false, false, override},
		{"image", session.AnswerText, session.ModeAI, router.Response{Text: "a cat", Image: []byte{0x89, 'P'}}, "", false, true, false, speech.Profile{}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.router.resp = tc.resp
			s := newSession()
			s.AnswerFormat, s.Mode = tc.format, tc.mode

			require.NoError(t, h.m.Handle(context.Background(), s, "input"))
			require.Len(t, h.out.replies, 1)
			reply := h.out.replies[0]
			assert.Equal(t, tc.wantText, reply.Text)
			assert.Equal(t, tc.markdown, reply.Markdown)
			assert.Equal(t, tc.wantImage, reply.Image != nil)
			if tc.wantImage {
				assert.Equal(t, tc.resp.Text, reply.Caption)
			}
			assert.Equal(t, tc.wantVoice, reply.Voice != nil)
			if tc.wantVoice {
				require.Len(t, h.synth.profiles, 1)
				assert.Equal(t, tc.profile, h.synth.profiles[0])
			}
			assert.Equal(t, []string{"input"}, h.router.calls)
			assert.Equal(t, session.StateDefault, s.State)
		})
	}
}

func TestMessageErrorsKeepState(t *testing.T) {
	for _, tc := range []struct {
		name string
		resp router.Response
		err  error
		want error
	}{
		{"empty", router.Response{}, nil, types.ErrEmptyContent},
		{"unidentified", router.Response{}, types.ErrUnidentifiedMode, types.ErrUnidentifiedMode},
		{"detect", router.Response{}, types.ErrUnableDetectLanguage, types.ErrUnableDetectLanguage},
	} {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t)
			h.router.resp, h.router.err = tc.resp, tc.err
			s := newSession()

			err := h.m.Handle(context.Background(), s, "input")
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, session.StateDefault, s.State)
			assert.Empty(t, h.out.replies)
		})
	}
}

func TestStartStateRoutesToMessage(t *testing.T) {
	h := newHarness(t)
	s := newSession()
	s.State = session.StateStart

	require.NoError(t, h.m.Handle(context.Background(), s, "hi"))
	assert.Equal(t, session.StateDefault, s.State)
	assert.Equal(t, []string{"hi"}, h.router.calls)
}

func TestLookupUnknownState(t *testing.T) {
	h := newHarness(t)
	_, err := h.m.Lookup(session.State("nowhere"))
	assert.ErrorIs(t, err, types.ErrUnknownState)

	s := newSession()
	s.State = "nowhere"
	assert.ErrorIs(t, h.m.Handle(context.Background(), s, "hi"), types.ErrUnknownState)
}

func TestNewMachineWithoutFallbackFailsLoudly(t *testing.T) {
	steps := map[session.State]Step{
		session.StateMode: {Prompt: func(*session.Session) types.Reply { return types.Reply{} }, Handle: func(context.Context, *session.Session, string) (Outcome, error) {
			return Advance, nil
		}},
	}
	_, err := NewMachine(&recorder{}, steps, nil, nil)
	var nf *types.NotFoundHandlerError
	require.True(t, errors.As(err, &nf))
	assert.NotEmpty(t, nf.State)
}

func TestNewMachineRejectsFlowWithoutPrompt(t *testing.T) {
	steps := map[session.State]Step{
		session.StateMode: {Handle: func(context.Context, *session.Session, string) (Outcome, error) { return Advance, nil }},
	}
	fallback := func(context.Context, *session.Session, string) (Outcome, error) { return Advance, nil }
	_, err := NewMachine(&recorder{}, steps, fallback, map[session.Flow][]session.State{session.FlowMode: {session.StateMode}})
	assert.Error(t, err)

	_, err = NewMachine(&recorder{}, map[session.State]Step{"bogus": {}}, fallback, nil)
	assert.ErrorIs(t, err, types.ErrUnknownState)
}

func TestNext(t *testing.T) {
	h := newHarness(t)
	assert.Equal(t, session.StateVoice1, h.m.Next(session.FlowLang, session.StateRecognition1))
	assert.Equal(t, session.StateTranslateType, h.m.Next(session.FlowLang, session.StateVoice2))
	assert.Equal(t, session.StateDefault, h.m.Next(session.FlowVoice, session.StateVoice2))
	assert.Equal(t, session.StateDefault, h.m.Next(session.FlowNone, session.StateMode))
}
