package models

import "reflect"

// Supported LLM providers. The backend only understands these two.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

// DefaultOllamaBaseURL is where a locally running Ollama server listens.
const DefaultOllamaBaseURL = "http://localhost:11434"

// LLMTierConfig configures one model endpoint. base_url only applies to
// ollama, api_key only to openai; the unused one stays nil.
type LLMTierConfig struct {
	Provider    string  `json:"provider"`
	Model       string  `json:"model"`
	Temperature float64 `json:"temperature"`
	MaxTokens   int     `json:"max_tokens"`
	Timeout     int     `json:"timeout"`
	BaseURL     *string `json:"base_url"`
	APIKey      *string `json:"api_key"`
}

// LLMConfig is the full two-tier configuration: tier1 drives user-facing
// generation, tier2 drives internal utility calls.
type LLMConfig struct {
	Tier1 LLMTierConfig `json:"tier1"`
	Tier2 LLMTierConfig `json:"tier2"`
}

// LLMTierPatch carries a partial tier edit; nil fields are left alone.
// BaseURL/APIKey use double pointers so a patch can explicitly set them
// to null as well as to a value.
type LLMTierPatch struct {
	Provider    *string  `json:"provider,omitempty"`
	Model       *string  `json:"model,omitempty"`
	Temperature *float64 `json:"temperature,omitempty"`
	MaxTokens   *int     `json:"max_tokens,omitempty"`
	Timeout     *int     `json:"timeout,omitempty"`
	BaseURL     **string `json:"base_url,omitempty"`
	APIKey      **string `json:"api_key,omitempty"`
}

// DefaultLLMConfig returns the configuration substituted when the backend
// has none yet (the expected first-run state).
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Tier1: LLMTierConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o",
			Temperature: 0.7,
			MaxTokens:   2000,
			Timeout:     60,
		},
		Tier2: LLMTierConfig{
			Provider:    ProviderOpenAI,
			Model:       "gpt-4o-mini",
			Temperature: 0.3,
			MaxTokens:   1000,
			Timeout:     30,
		},
	}
}

// Clone returns a deep copy so the working copy can be edited without
// touching the saved one.
func (c LLMConfig) Clone() LLMConfig {
	out := c
	out.Tier1 = c.Tier1.Clone()
	out.Tier2 = c.Tier2.Clone()
	return out
}

// Clone returns a deep copy of the tier.
func (t LLMTierConfig) Clone() LLMTierConfig {
	out := t
	if t.BaseURL != nil {
		v := *t.BaseURL
		out.BaseURL = &v
	}
	if t.APIKey != nil {
		v := *t.APIKey
		out.APIKey = &v
	}
	return out
}

// Equal reports deep structural equality, the comparison dirty-state
// tracking is built on. Pointer fields compare by pointed-to value.
func (c LLMConfig) Equal(other LLMConfig) bool {
	return reflect.DeepEqual(c, other)
}
