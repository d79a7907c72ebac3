package services

import "memdash/internal/models"

// LLMPreset is a named, complete two-tier configuration the settings form
// can apply in one click.
type LLMPreset struct {
	ID          string           `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Config      models.LLMConfig `json:"config"`
}

func llmPresets() []LLMPreset {
	ollamaBase := models.DefaultOllamaBaseURL

	return []LLMPreset{
		{
			ID:          "cost-optimized",
			Name:        "Cost optimized",
			Description: "Small hosted models with tight token budgets.",
			Config: models.LLMConfig{
				Tier1: models.LLMTierConfig{
					Provider:    models.ProviderOpenAI,
					Model:       "gpt-4o-mini",
					Temperature: 0.7,
					MaxTokens:   1000,
					Timeout:     30,
				},
				Tier2: models.LLMTierConfig{
					Provider:    models.ProviderOpenAI,
					Model:       "gpt-4o-mini",
					Temperature: 0.2,
					MaxTokens:   500,
					Timeout:     15,
				},
			},
		},
		{
			ID:          "performance-optimized",
			Name:        "Performance optimized",
			Description: "Strongest hosted model for conversation, fast utility tier.",
			Config: models.LLMConfig{
				Tier1: models.LLMTierConfig{
					Provider:    models.ProviderOpenAI,
					Model:       "gpt-4o",
					Temperature: 0.7,
					MaxTokens:   4000,
					Timeout:     120,
				},
				Tier2: models.LLMTierConfig{
					Provider:    models.ProviderOpenAI,
					Model:       "gpt-4o-mini",
					Temperature: 0.3,
					MaxTokens:   1500,
					Timeout:     30,
				},
			},
		},
		{
			ID:          "privacy-first",
			Name:        "Privacy first",
			Description: "Everything stays on a local Ollama server.",
			Config: models.LLMConfig{
				Tier1: models.LLMTierConfig{
					Provider:    models.ProviderOllama,
					Model:       "llama3.1:8b",
					Temperature: 0.7,
					MaxTokens:   2000,
					Timeout:     180,
					BaseURL:     &ollamaBase,
				},
				Tier2: models.LLMTierConfig{
					Provider:    models.ProviderOllama,
					Model:       "llama3.2:3b",
					Temperature: 0.2,
					MaxTokens:   800,
					Timeout:     120,
					BaseURL:     &ollamaBase,
				},
			},
		},
	}
}

func findPreset(id string) (LLMPreset, bool) {
	for _, preset := range llmPresets() {
		if preset.ID == id {
			return preset, true
		}
	}
	return LLMPreset{}, false
}
