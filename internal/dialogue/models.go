package dialogue

// Kind is what a model variant produces.
type Kind string

const (
	KindChat  Kind = "chat"
	KindImage Kind = "image"
)

// Provider names.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Model is one selectable generation backend variant.
type Model struct {
	ID       string
	Label    string
	Provider string
	Kind     Kind
}

// Models is the model menu, in display order.
var Models = []Model{
	{ID: "gpt-3.5-turbo-1106", Label: "GPT-3.5 Turbo 16K", Provider: ProviderOpenAI, Kind: KindChat},
	{ID: "gpt-4-1106-preview", Label: "GPT-4 Turbo 128K", Provider: ProviderOpenAI, Kind: KindChat},
	{ID: "dall-e-3", Label: "DALL-E 3", Provider: ProviderOpenAI, Kind: KindImage},
	{ID: "claude-3-5-sonnet-latest", Label: "Claude 3.5 Sonnet", Provider: ProviderAnthropic, Kind: KindChat},
}

// LookupModel returns the catalog entry for id. Ids outside the catalog
// are served as OpenAI chat models.
func LookupModel(id string) Model {
	for _, m := range Models {
		if m.ID == id {
			return m
		}
	}
	return Model{ID: id, Label: id, Provider: ProviderOpenAI, Kind: KindChat}
}

// IsImage reports whether id produces images.
func IsImage(id string) bool {
	return LookupModel(id).Kind == KindImage
}
