package unit_tests

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"memdash/internal/api"
	"memdash/internal/models"
	"memdash/internal/services"
)

// llmBackend is a fake memory agent that only speaks /api/llm-config.
type llmBackend struct {
	mu              sync.Mutex
	stored          *models.LLMConfig
	getStatus       int
	putStatus       int
	requiresRestart bool
	putCount        int
	lastSaved       models.LLMConfig
}

func (b *llmBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/api/llm-config" {
		http.NotFound(w, r)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch r.Method {
	case http.MethodGet:
		if b.getStatus != 0 {
			http.Error(w, "boom", b.getStatus)
			return
		}
		if b.stored == nil {
			json.NewEncoder(w).Encode(api.LLMConfigResponse{Success: false, Message: "no configuration stored"})
			return
		}
		json.NewEncoder(w).Encode(api.LLMConfigResponse{Success: true, LLMConfig: b.stored})
	case http.MethodPut:
		if b.putStatus != 0 {
			http.Error(w, "save failed", b.putStatus)
			return
		}
		var cfg models.LLMConfig
		if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		b.putCount++
		b.lastSaved = cfg
		b.stored = &cfg
		json.NewEncoder(w).Encode(api.LLMConfigResponse{Success: true, RequiresRestart: b.requiresRestart})
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func newLLMConfigService(t *testing.T, backend *llmBackend) services.LLMConfigService {
	t.Helper()
	clients := newBackendClientService(t, backend)
	return services.NewLLMConfigService(clients, nil)
}

func TestLLMConfigService_LoadUsesBackendConfig(t *testing.T) {
	stored := models.DefaultLLMConfig()
	stored.Tier1.Model = "gpt-4.1"
	stored.Tier1.MaxTokens = 4000
	backend := &llmBackend{stored: &stored}
	service := newLLMConfigService(t, backend)

	require.Equal(t, services.LLMStatusUninitialized, service.Status())
	loaded := service.Load()

	require.Equal(t, "gpt-4.1", loaded.Tier1.Model)
	require.Equal(t, services.LLMStatusClean, service.Status())
	require.False(t, service.HasUnsavedChanges())
	require.True(t, service.Config().Equal(stored))
}

func TestLLMConfigService_LoadWithNoStoredConfigYieldsDefaults(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})

	loaded := service.Load()

	require.True(t, loaded.Equal(models.DefaultLLMConfig()))
	require.Equal(t, services.LLMStatusClean, service.Status())
	require.False(t, service.HasUnsavedChanges())
}

func TestLLMConfigService_LoadFailureYieldsDefaults(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{getStatus: http.StatusInternalServerError})

	loaded := service.Load()

	require.True(t, loaded.Equal(models.DefaultLLMConfig()))
	require.Equal(t, services.LLMStatusClean, service.Status())
}

func TestLLMConfigService_UpdateTierMarksDirtyAndResetClears(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	model := "o4-mini"
	updated, err := service.UpdateTier("tier1", models.LLMTierPatch{Model: &model})
	require.NoError(t, err)
	require.Equal(t, "o4-mini", updated.Tier1.Model)
	require.Equal(t, services.LLMStatusDirty, service.Status())
	require.True(t, service.HasUnsavedChanges())

	// The saved copy only moves on a successful save.
	require.True(t, service.Config().Equal(models.DefaultLLMConfig()))

	reverted := service.ResetTempConfig()
	require.True(t, reverted.Equal(models.DefaultLLMConfig()))
	require.Equal(t, services.LLMStatusClean, service.Status())
}

func TestLLMConfigService_UpdateTierRejectsUnknownTier(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	model := "gpt-4o"
	_, err := service.UpdateTier("tier3", models.LLMTierPatch{Model: &model})
	require.Error(t, err)
}

func TestLLMConfigService_ProviderSwitchResetsDependentFields(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	provider := models.ProviderOllama
	updated, err := service.UpdateTier("tier1", models.LLMTierPatch{Provider: &provider})
	require.NoError(t, err)

	require.Equal(t, models.ProviderOllama, updated.Tier1.Provider)
	require.Equal(t, "", updated.Tier1.Model)
	require.NotNil(t, updated.Tier1.BaseURL)
	require.Equal(t, models.DefaultOllamaBaseURL, *updated.Tier1.BaseURL)
	require.Nil(t, updated.Tier1.APIKey)

	// Switching back drops the base URL again.
	provider = models.ProviderOpenAI
	updated, err = service.UpdateTier("tier1", models.LLMTierPatch{Provider: &provider})
	require.NoError(t, err)
	require.Nil(t, updated.Tier1.BaseURL)
	require.Equal(t, "", updated.Tier1.Model)
}

func TestLLMConfigService_PresetSaveRoundTrip(t *testing.T) {
	backend := &llmBackend{}
	service := newLLMConfigService(t, backend)
	service.Load()

	applied, err := service.ApplyPreset("cost-optimized")
	require.NoError(t, err)
	require.Equal(t, "gpt-4o-mini", applied.Tier1.Model)
	require.True(t, service.HasUnsavedChanges())

	result := service.SaveTempConfig()
	require.True(t, result.Success)

	var preset services.LLMPreset
	for _, p := range service.Presets() {
		if p.ID == "cost-optimized" {
			preset = p
		}
	}
	require.True(t, service.Config().Equal(preset.Config))
	require.False(t, service.HasUnsavedChanges())
	require.Equal(t, services.LLMStatusClean, service.Status())
	require.Equal(t, 1, backend.putCount)
	require.True(t, backend.lastSaved.Equal(preset.Config))
}

func TestLLMConfigService_ApplyPresetUnknownID(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	_, err := service.ApplyPreset("imaginary")
	require.Error(t, err)
}

func TestLLMConfigService_FailedSaveKeepsEdits(t *testing.T) {
	backend := &llmBackend{putStatus: http.StatusInternalServerError}
	service := newLLMConfigService(t, backend)
	service.Load()

	model := "gpt-4.1-mini"
	_, err := service.UpdateTier("tier2", models.LLMTierPatch{Model: &model})
	require.NoError(t, err)

	result := service.SaveTempConfig()
	require.False(t, result.Success)
	require.NotEmpty(t, result.Message)

	// The edit survives for a retry; the saved copy did not move.
	require.Equal(t, services.LLMStatusDirty, service.Status())
	require.Equal(t, "gpt-4.1-mini", service.TempConfig().Tier2.Model)
	require.True(t, service.Config().Equal(models.DefaultLLMConfig()))
}

func TestLLMConfigService_SaveReportsRequiredRestart(t *testing.T) {
	backend := &llmBackend{requiresRestart: true}
	service := newLLMConfigService(t, backend)
	service.Load()

	result := service.SaveTempConfig()
	require.True(t, result.Success)
	require.True(t, result.RequiresRestart)
	require.NotEmpty(t, result.Message)
}

func TestLLMConfigService_ResetToDefaults(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	_, err := service.ApplyPreset("privacy-first")
	require.NoError(t, err)

	reset := service.ResetToDefaults()
	require.True(t, reset.Equal(models.DefaultLLMConfig()))
	require.Equal(t, services.LLMStatusClean, service.Status())
}

func TestLLMConfigService_ValidateTier(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	// Defaults are openai with no API key.
	problems := service.ValidateTier("tier1")
	require.NotEmpty(t, problems)

	key := "sk-test-key"
	_, err := service.UpdateTier("tier1", models.LLMTierPatch{APIKey: ptrPtr(&key)})
	require.NoError(t, err)
	require.Empty(t, service.ValidateTier("tier1"))

	temp := 3.5
	_, err = service.UpdateTier("tier1", models.LLMTierPatch{Temperature: &temp})
	require.NoError(t, err)
	require.NotEmpty(t, service.ValidateTier("tier1"))
}

func TestLLMConfigService_GetOllamaModels(t *testing.T) {
	tags := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/tags", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"models": []map[string]interface{}{
				{"name": "llama3.1:8b", "size": 4661224676},
				{"name": "qwen2.5:7b"},
			},
		})
	}))
	defer tags.Close()

	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	result := service.GetOllamaModels(tags.URL)
	require.True(t, result.Success)
	require.Len(t, result.Models, 2)
	require.Equal(t, "llama3.1:8b", result.Models[0].Name)
}

func TestLLMConfigService_GetOllamaModelsFailureIsStructured(t *testing.T) {
	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer down.Close()

	service := newLLMConfigService(t, &llmBackend{})
	service.Load()

	result := service.GetOllamaModels(down.URL)
	require.False(t, result.Success)
	require.NotEmpty(t, result.Message)
	require.NotNil(t, result.Models)
	require.Empty(t, result.Models)
}

func TestLLMConfigService_SuggestedModels(t *testing.T) {
	service := newLLMConfigService(t, &llmBackend{})

	openai := service.SuggestedModels(models.ProviderOpenAI)
	require.Contains(t, openai, "gpt-4o")
	require.Contains(t, openai, "gpt-4o-mini")

	ollama := service.SuggestedModels(models.ProviderOllama)
	require.Contains(t, ollama, "llama3.1:8b")

	require.Empty(t, service.SuggestedModels("anthropic"))
}

func ptrPtr(s *string) **string { return &s }
