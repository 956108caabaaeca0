// Package speech provides voice synthesis and recognition for speech profiles.
package speech

import (
	"fmt"
	"regexp"
)

// Backend identifies the service that owns a voice.
type Backend string

const (
	BackendYandex Backend = "yandex"
	BackendOpenAI Backend = "openai"
)

// Voice is one entry of the fixed voice catalog.
type Voice struct {
	ID      string
	Label   string
	Backend Backend
}

// Voices is the fixed voice catalog, in menu order.
var Voices = []Voice{
	{"alena", "Alena", BackendYandex},
	{"filipp", "Filipp", BackendYandex},
	{"ermil", "Ermil", BackendYandex},
	{"jane", "Jane", BackendYandex},
	{"madirus", "Madirus", BackendYandex},
	{"omazh", "Omazh", BackendYandex},
	{"zahar", "Zahar", BackendYandex},
	{"dasha", "Dasha", BackendYandex},
	{"julia", "Julia", BackendYandex},
	{"lera", "Lera", BackendYandex},
	{"masha", "Masha", BackendYandex},
	{"marina", "Marina", BackendYandex},
	{"alexander", "Alexander", BackendYandex},
	{"kirill", "Kirill", BackendYandex},
	{"anton", "Anton", BackendYandex},
	{"alloy", "Alloy (OpenAI)", BackendOpenAI},
	{"echo", "Echo (OpenAI)", BackendOpenAI},
	{"fable", "Fable (OpenAI)", BackendOpenAI},
	{"onyx", "Onyx (OpenAI)", BackendOpenAI},
	{"nova", "Nova (OpenAI)", BackendOpenAI},
	{"shimmer", "Shimmer (OpenAI)", BackendOpenAI},
}

// LookupVoice returns the catalog entry for id.
func LookupVoice(id string) (Voice, bool) {
	for _, v := range Voices {
		if v.ID == id {
			return v, true
		}
	}
	return Voice{}, false
}

// Auto is the language sentinel meaning "detect / any".
const Auto = "auto"

// Language is one selectable locale.
type Language struct {
	Tag   string
	Label string
}

// Languages is the selectable locale list, in menu order. Auto is not included.
var Languages = []Language{
	{"de-DE", "German"},
	{"en-US", "English"},
	{"es-ES", "Spanish"},
	{"fi-FI", "Finnish"},
	{"fr-FR", "French"},
	{"he-HE", "Hebrew"},
	{"it-IT", "Italian"},
	{"kk-KZ", "Kazakh"},
	{"nl-NL", "Dutch"},
	{"pl-PL", "Polish"},
	{"pt-PT", "Portuguese"},
	{"pt-BR", "Brazilian Portuguese"},
	{"ru-RU", "Russian"},
	{"sv-SE", "Swedish"},
	{"tr-TR", "Turkish"},
	{"uz-UZ", "Uzbek (Latin)"},
}

var localeTag = regexp.MustCompile(`^[a-z]{2}-[A-Z]{2}$`)

// ValidLanguage reports whether tag is Auto or an xx-XX locale tag.
func ValidLanguage(tag string) bool {
	return tag == Auto || localeTag.MatchString(tag)
}

// Short returns the 2-character language code of tag; Auto stays Auto.
func Short(tag string) string {
	if tag == Auto || len(tag) < 2 {
		return tag
	}
	return tag[:2]
}

// Profile is a (voice, language) pairing used for recognition and synthesis.
type Profile struct {
	Voice    string `json:"voice"`
	Language string `json:"language"`
}

// NewProfile validates and builds a profile.
func NewProfile(voice, language string) (Profile, error) {
	p := Profile{Voice: voice, Language: language}
	return p, p.Validate()
}

// Validate checks the voice against the catalog and the language tag format.
func (p Profile) Validate() error {
	if _, ok := LookupVoice(p.Voice); !ok {
		return fmt.Errorf("unknown voice %q", p.Voice)
	}
	if !ValidLanguage(p.Language) {
		return fmt.Errorf("invalid language tag %q", p.Language)
	}
	return nil
}

// SetVoice changes the voice, rejecting ids outside the catalog.
func (p *Profile) SetVoice(id string) error {
	if _, ok := LookupVoice(id); !ok {
		return fmt.Errorf("unknown voice %q", id)
	}
	p.Voice = id
	return nil
}

// SetLanguage changes the language tag.
func (p *Profile) SetLanguage(tag string) error {
	if !ValidLanguage(tag) {
		return fmt.Errorf("invalid language tag %q", tag)
	}
	p.Language = tag
	return nil
}

// Short returns the profile's 2-character language code.
func (p Profile) Short() string {
	return Short(p.Language)
}

// Backend returns the backend serving p's voice. Unknown voices map to Yandex.
func (p Profile) Backend() Backend {
	if v, ok := LookupVoice(p.Voice); ok {
		return v.Backend
	}
	return BackendYandex
}
