package session

// State is the user's wizard position.
type State string

const (
	StateStart         State = "start"
	StateSystem        State = "system"
	StateSystemConfirm State = "system_confirm"
	StateRecognition1  State = "recognition_1"
	StateRecognition2  State = "recognition_2"
	StateTranslateType State = "translate_type"
	StateVoice1        State = "voice_1"
	StateVoice2        State = "voice_2"
	StateAnswerFormat  State = "answer_format"
	StateModel         State = "model"
	StateMode          State = "mode"
	StateDefault       State = "message"
)

// States is the full declared state set.
var States = []State{
	StateStart,
	StateSystem,
	StateSystemConfirm,
	StateRecognition1,
	StateRecognition2,
	StateTranslateType,
	StateVoice1,
	StateVoice2,
	StateAnswerFormat,
	StateModel,
	StateMode,
	StateDefault,
}

// Valid reports whether s is a declared state.
func (s State) Valid() bool {
	for _, st := range States {
		if st == s {
			return true
		}
	}
	return false
}

// Flow names the command that started the current wizard.
type Flow string

const (
	FlowNone   Flow = ""
	FlowSystem Flow = "system"
	FlowLang   Flow = "lang"
	FlowVoice  Flow = "voice"
	FlowAnswer Flow = "answer"
	FlowModel  Flow = "model"
	FlowMode   Flow = "mode"
)

// AnswerFormat selects the output channels.
type AnswerFormat string

const (
	AnswerText  AnswerFormat = "text"
	AnswerVoice AnswerFormat = "voice"
	AnswerAll   AnswerFormat = "all"
)

// Valid reports whether f is a declared format.
func (f AnswerFormat) Valid() bool {
	switch f {
	case AnswerText, AnswerVoice, AnswerAll:
		return true
	}
	return false
}

// WantsText reports whether replies include a text message.
func (f AnswerFormat) WantsText() bool {
	return f == AnswerText || f == AnswerAll
}

// WantsVoice reports whether replies include a voice message.
func (f AnswerFormat) WantsVoice() bool {
	return f == AnswerVoice || f == AnswerAll
}

// Mode is the response-generation strategy.
type Mode string

const (
	ModeEcho      Mode = "echo"
	ModeAI        Mode = "ai"
	ModeTranslate Mode = "translate"
)

// Valid reports whether m is a declared mode.
func (m Mode) Valid() bool {
	switch m {
	case ModeEcho, ModeAI, ModeTranslate:
		return true
	}
	return false
}

// TranslateType selects how the translate mode finds the source language.
type TranslateType string

const (
	TranslateAuto   TranslateType = "auto"
	TranslateManual TranslateType = "manual"
)

// Valid reports whether t is a declared translate type.
func (t TranslateType) Valid() bool {
	return t == TranslateAuto || t == TranslateManual
}
