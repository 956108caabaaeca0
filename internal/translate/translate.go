// Package translate holds the translation capability contract and the
// language-pair rules the translate mode applies on top of it.
package translate

import (
	"context"

	"github.com/roelfdiedericks/parrot/internal/speech"
)

// Translator detects and translates text. Detect returns "" when the
// language cannot be determined; Translate returns "" when the backend
// produced nothing. Language codes are 2-character short tags.
type Translator interface {
	Detect(ctx context.Context, text string, hints []string) (string, error)
	Translate(ctx context.Context, text, target, source string) (string, error)
}

// Hints returns the detection hints for a language pair: the short tags
// of every profile, or none at all if any profile is auto.
func Hints(profiles ...speech.Profile) []string {
	hints := make([]string, 0, len(profiles))
	for _, p := range profiles {
		if p.Language == speech.Auto {
			return nil
		}
		hints = append(hints, p.Short())
	}
	return hints
}

// Canonical pair used when the paired profile is itself auto.
const (
	primaryLanguage   = "ru"
	secondaryLanguage = "en"
)

// Fallback returns the default target for source when no concrete
// target profile exists: ru translates to en, everything else to ru.
func Fallback(source string) string {
	if source == primaryLanguage {
		return secondaryLanguage
	}
	return primaryLanguage
}

// Target picks the profile that is not source. The first profile whose
// short tag differs from source wins; if both match, the second is used.
func Target(source string, profiles [2]speech.Profile) speech.Profile {
	for _, p := range profiles {
		if p.Short() != source {
			return p
		}
	}
	return profiles[1]
}
