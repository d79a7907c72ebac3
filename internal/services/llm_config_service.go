package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"strings"
	"sync"
	"time"

	einopenai "github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/schema"

	"memdash/internal/api"
	"memdash/internal/assets"
	"memdash/internal/events"
	"memdash/internal/models"
)

// LLMConfigStatus is the explicit state of the edit session over the
// two-tier configuration.
type LLMConfigStatus string

const (
	LLMStatusUninitialized LLMConfigStatus = "uninitialized"
	LLMStatusLoading       LLMConfigStatus = "loading"
	LLMStatusClean         LLMConfigStatus = "clean"
	LLMStatusDirty         LLMConfigStatus = "dirty"
	LLMStatusSaving        LLMConfigStatus = "saving"
)

// SaveResult reports the outcome of a save without ever rejecting the
// caller; failure text goes in Message.
type SaveResult struct {
	Success         bool   `json:"success"`
	Message         string `json:"message,omitempty"`
	RequiresRestart bool   `json:"requiresRestart,omitempty"`
}

// OllamaModelsResult wraps the local model listing so the model picker can
// render an inline error instead of the whole form failing.
type OllamaModelsResult struct {
	Success bool              `json:"success"`
	Models  []api.OllamaModel `json:"models"`
	Message string            `json:"message,omitempty"`
}

// ConnectionTestResult reports a tier connectivity probe.
type ConnectionTestResult struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
}

// LLMConfigService manages the editable two-tier LLM configuration and its
// synchronization with the backend. Two copies exist at all times: the
// last value the backend confirmed saved, and the working copy bound to
// the edit form. The saved copy only moves on a successful save.
type LLMConfigService interface {
	Startup(ctx context.Context)
	Load() models.LLMConfig
	Config() models.LLMConfig
	TempConfig() models.LLMConfig
	Status() LLMConfigStatus
	HasUnsavedChanges() bool
	UpdateTier(tier string, patch models.LLMTierPatch) (*models.LLMConfig, error)
	SaveTempConfig() SaveResult
	ResetTempConfig() models.LLMConfig
	ResetToDefaults() models.LLMConfig
	ApplyPreset(id string) (*models.LLMConfig, error)
	Presets() []LLMPreset
	ValidateTier(tier string) []string
	GetOllamaModels(baseURL string) OllamaModelsResult
	SuggestedModels(provider string) []string
	TestTierConnection(tier string) ConnectionTestResult
	RememberAPIKey(provider, key string) error
	RememberedAPIKey(provider string) string
}

type llmConfigService struct {
	clients ClientService
	keyring *KeyringService
	context context.Context

	mu      sync.Mutex
	status  LLMConfigStatus
	saved   models.LLMConfig
	working models.LLMConfig

	catalogOnce sync.Once
	catalog     map[string][]string
}

func NewLLMConfigService(clients ClientService, keyring *KeyringService) LLMConfigService {
	return &llmConfigService{
		clients: clients,
		keyring: keyring,
		status:  LLMStatusUninitialized,
	}
}

func (s *llmConfigService) Startup(ctx context.Context) {
	s.context = ctx
}

// Load fetches the stored configuration from the backend. Any failure,
// including a backend that has no configuration yet, silently substitutes
// the defaults so the form is always usable; an uninitialized backend is
// an expected first-run state, not an error.
func (s *llmConfigService) Load() models.LLMConfig {
	s.mu.Lock()
	s.status = LLMStatusLoading
	s.mu.Unlock()

	loaded := models.DefaultLLMConfig()

	resp, err := s.clients.Client().GetLLMConfig(s.ctx())
	switch {
	case err != nil:
		log.Printf("llm config: load failed, using defaults: %v", err)
	case !resp.Success || resp.LLMConfig == nil:
		log.Printf("llm config: backend has no stored config, using defaults")
	default:
		loaded = *resp.LLMConfig
	}

	s.mu.Lock()
	s.saved = loaded.Clone()
	s.working = loaded.Clone()
	s.status = LLMStatusClean
	snapshot := s.working.Clone()
	s.mu.Unlock()

	return snapshot
}

// Config returns the last backend-confirmed configuration.
func (s *llmConfigService) Config() models.LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saved.Clone()
}

// TempConfig returns the working copy bound to the edit form.
func (s *llmConfigService) TempConfig() models.LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.working.Clone()
}

func (s *llmConfigService) Status() LLMConfigStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// HasUnsavedChanges reports structural inequality between the working copy
// and the saved copy.
func (s *llmConfigService) HasUnsavedChanges() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.working.Equal(s.saved)
}

// UpdateTier applies a partial edit to one tier of the working copy.
// Switching provider clears the model and re-derives base_url/api_key
// applicability: ollama gets the default local base URL and no API key,
// openai drops the base URL.
func (s *llmConfigService) UpdateTier(tier string, patch models.LLMTierPatch) (*models.LLMConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.tierLocked(tier)
	if err != nil {
		return nil, err
	}

	if patch.Provider != nil && *patch.Provider != target.Provider {
		switch *patch.Provider {
		case models.ProviderOpenAI:
			target.Provider = models.ProviderOpenAI
			target.Model = ""
			target.BaseURL = nil
		case models.ProviderOllama:
			base := models.DefaultOllamaBaseURL
			target.Provider = models.ProviderOllama
			target.Model = ""
			target.BaseURL = &base
			target.APIKey = nil
		default:
			return nil, fmt.Errorf("provider must be %q or %q", models.ProviderOpenAI, models.ProviderOllama)
		}
	}
	if patch.Model != nil {
		target.Model = *patch.Model
	}
	if patch.Temperature != nil {
		target.Temperature = *patch.Temperature
	}
	if patch.MaxTokens != nil {
		target.MaxTokens = *patch.MaxTokens
	}
	if patch.Timeout != nil {
		target.Timeout = *patch.Timeout
	}
	if patch.BaseURL != nil {
		target.BaseURL = *patch.BaseURL
	}
	if patch.APIKey != nil {
		target.APIKey = *patch.APIKey
	}

	s.recomputeStatusLocked()
	snapshot := s.working.Clone()
	return &snapshot, nil
}

// SaveTempConfig pushes the working copy to the backend. On success the
// saved copy catches up to exactly what was sent; on failure both copies
// are left alone so the user can fix and retry without losing edits.
func (s *llmConfigService) SaveTempConfig() SaveResult {
	s.mu.Lock()
	attempted := s.working.Clone()
	s.status = LLMStatusSaving
	s.mu.Unlock()

	resp, err := s.clients.Client().UpdateLLMConfig(s.ctx(), attempted)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.recomputeStatusLocked()
		return SaveResult{Success: false, Message: fmt.Sprintf("failed to save LLM configuration: %v", err)}
	}
	if !resp.Success {
		s.recomputeStatusLocked()
		message := resp.Message
		if message == "" {
			message = "the backend rejected the configuration"
		}
		return SaveResult{Success: false, Message: message}
	}

	s.saved = attempted
	s.recomputeStatusLocked()

	events.Emit(s.ctx(), events.LLMConfigSaved, events.NewSuccess("LLM configuration saved"))

	result := SaveResult{Success: true, Message: resp.Message, RequiresRestart: resp.RequiresRestart}
	if resp.RequiresRestart && result.Message == "" {
		result.Message = "saved; the backend needs a restart to pick up the new configuration"
	}
	return result
}

// ResetTempConfig discards in-progress edits, returning to the saved copy.
func (s *llmConfigService) ResetTempConfig() models.LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = s.saved.Clone()
	s.recomputeStatusLocked()
	return s.working.Clone()
}

// ResetToDefaults overwrites the working copy with the hard-coded default
// configuration. The saved copy is untouched until the next save.
func (s *llmConfigService) ResetToDefaults() models.LLMConfig {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = models.DefaultLLMConfig()
	s.recomputeStatusLocked()
	return s.working.Clone()
}

// ApplyPreset overwrites the working copy with a named preset.
func (s *llmConfigService) ApplyPreset(id string) (*models.LLMConfig, error) {
	preset, ok := findPreset(id)
	if !ok {
		return nil, fmt.Errorf("unknown preset %q", id)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.working = preset.Config.Clone()
	s.recomputeStatusLocked()
	snapshot := s.working.Clone()
	return &snapshot, nil
}

func (s *llmConfigService) Presets() []LLMPreset {
	return llmPresets()
}

// ValidateTier checks one tier of the working copy independently of the
// other and returns human-readable problems, empty when valid.
func (s *llmConfigService) ValidateTier(tier string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	target, err := s.tierLocked(tier)
	if err != nil {
		return []string{err.Error()}
	}
	return validateTierConfig(tier, *target)
}

// GetOllamaModels lists the models installed on a local Ollama server.
// With no explicit baseURL it uses the first ollama tier's configured one.
// Failures come back as a structured result, never an error, so the model
// picker can show an inline message.
func (s *llmConfigService) GetOllamaModels(baseURL string) OllamaModelsResult {
	if strings.TrimSpace(baseURL) == "" {
		baseURL = s.configuredOllamaBaseURL()
	}

	ollamaModels, err := api.ListOllamaModels(s.ctx(), baseURL)
	if err != nil {
		return OllamaModelsResult{
			Success: false,
			Models:  []api.OllamaModel{},
			Message: fmt.Sprintf("could not list Ollama models: %v", err),
		}
	}
	return OllamaModelsResult{Success: true, Models: ollamaModels}
}

// SuggestedModels returns the embedded catalog's model names for a
// provider, for the dropdown shown before any live listing is available.
func (s *llmConfigService) SuggestedModels(provider string) []string {
	s.catalogOnce.Do(s.loadCatalog)

	names := make([]string, len(s.catalog[provider]))
	copy(names, s.catalog[provider])
	return names
}

// TestTierConnection probes whether a tier's endpoint is usable with its
// current working values: openai by running a tiny generation through the
// configured model, ollama by listing the server's models.
func (s *llmConfigService) TestTierConnection(tier string) ConnectionTestResult {
	s.mu.Lock()
	target, err := s.tierLocked(tier)
	if err != nil {
		s.mu.Unlock()
		return ConnectionTestResult{Success: false, Message: err.Error()}
	}
	cfg := target.Clone()
	s.mu.Unlock()

	if problems := validateTierConfig(tier, cfg); len(problems) > 0 {
		return ConnectionTestResult{Success: false, Message: strings.Join(problems, "; ")}
	}

	timeout := time.Duration(cfg.Timeout) * time.Second
	ctx, cancel := context.WithTimeout(s.ctx(), timeout)
	defer cancel()

	switch cfg.Provider {
	case models.ProviderOpenAI:
		chatModel, err := einopenai.NewChatModel(ctx, &einopenai.ChatModelConfig{
			APIKey: deref(cfg.APIKey),
			Model:  cfg.Model,
		})
		if err != nil {
			return ConnectionTestResult{Success: false, Message: fmt.Sprintf("could not create OpenAI client: %v", err)}
		}
		if _, err := chatModel.Generate(ctx, []*schema.Message{schema.UserMessage("ping")}); err != nil {
			return ConnectionTestResult{Success: false, Message: fmt.Sprintf("OpenAI request failed: %v", err)}
		}
		return ConnectionTestResult{Success: true, Message: "OpenAI connection OK"}
	case models.ProviderOllama:
		if _, err := api.ListOllamaModels(ctx, deref(cfg.BaseURL)); err != nil {
			return ConnectionTestResult{Success: false, Message: fmt.Sprintf("Ollama request failed: %v", err)}
		}
		return ConnectionTestResult{Success: true, Message: "Ollama connection OK"}
	default:
		return ConnectionTestResult{Success: false, Message: fmt.Sprintf("unsupported provider %q", cfg.Provider)}
	}
}

// RememberAPIKey stores a provider key in the OS keyring so the form can
// prefill it next time without asking the backend.
func (s *llmConfigService) RememberAPIKey(provider, key string) error {
	if s.keyring == nil {
		return fmt.Errorf("keyring not available")
	}
	return s.keyring.StoreProviderKey(provider, key)
}

// RememberedAPIKey returns the locally stored key for a provider, or "".
func (s *llmConfigService) RememberedAPIKey(provider string) string {
	if s.keyring == nil {
		return ""
	}
	key, err := s.keyring.ProviderKey(provider)
	if err != nil {
		return ""
	}
	return key
}

func (s *llmConfigService) tierLocked(tier string) (*models.LLMTierConfig, error) {
	switch tier {
	case "tier1":
		return &s.working.Tier1, nil
	case "tier2":
		return &s.working.Tier2, nil
	default:
		return nil, fmt.Errorf("tier must be \"tier1\" or \"tier2\"")
	}
}

func (s *llmConfigService) recomputeStatusLocked() {
	if s.working.Equal(s.saved) {
		s.status = LLMStatusClean
	} else {
		s.status = LLMStatusDirty
	}
}

func (s *llmConfigService) configuredOllamaBaseURL() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, tier := range []models.LLMTierConfig{s.working.Tier1, s.working.Tier2} {
		if tier.Provider == models.ProviderOllama && tier.BaseURL != nil && *tier.BaseURL != "" {
			return *tier.BaseURL
		}
	}
	return models.DefaultOllamaBaseURL
}

func (s *llmConfigService) loadCatalog() {
	s.catalog = make(map[string][]string)

	var parsed struct {
		Providers []struct {
			ID     string `json:"id"`
			Models []struct {
				APIName string `json:"apiName"`
			} `json:"models"`
		} `json:"providers"`
	}
	if err := json.Unmarshal(assets.ModelsData, &parsed); err != nil {
		log.Printf("llm config: failed to parse model catalog: %v", err)
		return
	}

	for _, provider := range parsed.Providers {
		names := make([]string, 0, len(provider.Models))
		for _, mdl := range provider.Models {
			if name := strings.TrimSpace(mdl.APIName); name != "" {
				names = append(names, name)
			}
		}
		sort.Strings(names)
		s.catalog[provider.ID] = names
	}
}

// validateTierConfig checks one tier's fields against their allowed
// ranges. Each tier validates independently of the other.
func validateTierConfig(tier string, cfg models.LLMTierConfig) []string {
	var problems []string

	switch cfg.Provider {
	case models.ProviderOpenAI:
		key := deref(cfg.APIKey)
		if key == "" {
			problems = append(problems, tier+": an OpenAI API key is required")
		} else if !strings.HasPrefix(key, "sk-") {
			problems = append(problems, tier+": OpenAI API keys start with sk-")
		}
	case models.ProviderOllama:
		if deref(cfg.BaseURL) == "" {
			problems = append(problems, tier+": a base URL is required for Ollama")
		}
	default:
		problems = append(problems, fmt.Sprintf("%s: provider must be %q or %q", tier, models.ProviderOpenAI, models.ProviderOllama))
	}

	if strings.TrimSpace(cfg.Model) == "" {
		problems = append(problems, tier+": a model is required")
	}
	if cfg.Temperature < 0.0 || cfg.Temperature > 2.0 {
		problems = append(problems, tier+": temperature must be between 0.0 and 2.0")
	}
	if cfg.MaxTokens < 1 || cfg.MaxTokens > 8000 {
		problems = append(problems, tier+": max_tokens must be between 1 and 8000")
	}
	if cfg.Timeout < 1 || cfg.Timeout > 300 {
		problems = append(problems, tier+": timeout must be between 1 and 300 seconds")
	}

	return problems
}

func (s *llmConfigService) ctx() context.Context {
	if s.context != nil {
		return s.context
	}
	return context.Background()
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
