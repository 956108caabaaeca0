package wizard

import (
	"github.com/roelfdiedericks/parrot/internal/dialogue"
	"github.com/roelfdiedericks/parrot/internal/menu"
	"github.com/roelfdiedericks/parrot/internal/session"
	"github.com/roelfdiedericks/parrot/internal/speech"
)

var confirmMenu = menu.Must(
	menu.Item[bool]{Label: "Yes", Value: true, Aliases: []string{"Да", "y"}},
	menu.Item[bool]{Label: "No", Value: false, Aliases: []string{"Нет", "n"}},
)

var answerMenu = menu.Must(
	menu.Item[session.AnswerFormat]{Label: "Text", Value: session.AnswerText},
	menu.Item[session.AnswerFormat]{Label: "Voice", Value: session.AnswerVoice},
	menu.Item[session.AnswerFormat]{Label: "Text and voice", Value: session.AnswerAll},
)

var modeMenu = menu.Must(
	menu.Item[session.Mode]{Label: "AI dialogue", Value: session.ModeAI},
	menu.Item[session.Mode]{Label: "Echo", Value: session.ModeEcho},
	menu.Item[session.Mode]{Label: "Translate", Value: session.ModeTranslate},
)

var modelMenu = func() *menu.Menu[string] {
	items := make([]menu.Item[string], 0, len(dialogue.Models))
	for _, m := range dialogue.Models {
		items = append(items, menu.Item[string]{Label: m.Label, Value: m.ID})
	}
	return menu.Must(items...)
}()

var voiceMenu = func() *menu.Menu[string] {
	items := make([]menu.Item[string], 0, len(speech.Voices))
	for _, v := range speech.Voices {
		items = append(items, menu.Item[string]{Label: v.Label, Value: v.ID})
	}
	return menu.Must(items...)
}()

const autoLabel = "Auto"

var languageMenu = func() *menu.Menu[string] {
	items := []menu.Item[string]{{Label: autoLabel, Value: speech.Auto}}
	for _, l := range speech.Languages {
		items = append(items, menu.Item[string]{Label: l.Label, Value: l.Tag})
	}
	return menu.Must(items...)
}()

// languageLabel returns the menu label for tag.
func languageLabel(tag string) string {
	if l, ok := languageMenu.Label(tag); ok {
		return l
	}
	return tag
}

func voiceLabel(id string) string {
	if l, ok := voiceMenu.Label(id); ok {
		return l
	}
	return id
}

// translateTypeMenu offers Auto plus the concrete languages of the pair.
// A language value selects manual translation from that language.
func translateTypeMenu(profiles *[2]speech.Profile) *menu.Menu[string] {
	items := []menu.Item[string]{{Label: autoLabel, Value: speech.Auto}}
	seen := map[string]bool{speech.Auto: true}
	for _, p := range profiles {
		if seen[p.Language] {
			continue
		}
		seen[p.Language] = true
		items = append(items, menu.Item[string]{Label: languageLabel(p.Language), Value: p.Language})
	}
	return menu.Must(items...)
}
