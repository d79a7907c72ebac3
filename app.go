package main

import (
	"context"
	"fmt"

	"github.com/wailsapp/wails/v2/pkg/runtime"

	"memdash/internal/api"
	"memdash/internal/models"
	"memdash/internal/services"
)

// App struct
type App struct {
	ctx         context.Context
	Settings    services.SettingsService
	Clients     services.ClientService
	LLMConfig   services.LLMConfigService
	Performance *services.PerformanceService
	dbClose     func() error
}

// NewApp creates a new App application struct
func NewApp() *App {
	return &App{}
}

// startup is called when the app starts. The context is saved
// so we can call the runtime methods
func (a *App) startup(ctx context.Context) {
	a.ctx = ctx
}

// shutdown is called when the app is closing. Clean up resources here.
func (a *App) shutdown(ctx context.Context) {
	if a.Performance != nil {
		a.Performance.Shutdown()
	}

	if a.dbClose != nil {
		if err := a.dbClose(); err != nil {
			runtime.LogError(ctx, fmt.Sprintf("failed to close database: %v", err))
		} else {
			runtime.LogInfo(ctx, "database closed")
		}
		a.dbClose = nil
	}
}

// ServerStatus reports whether the configured memory agent is reachable
// and healthy; used by the header indicator.
func (a *App) ServerStatus() string {
	if a.Clients == nil {
		return "unknown"
	}
	status, err := a.Clients.Client().Status(a.ctx)
	if err != nil {
		runtime.LogError(a.ctx, fmt.Sprintf("status probe failed: %v", err))
		return "unreachable"
	}
	if status.Status == "healthy" {
		return "ready"
	}
	return status.Status
}

// SearchMemories runs a retrieval query with the user's configured topK
// and similarity floor, for the search/browse pages.
func (a *App) SearchMemories(query string) (*api.SearchResponse, error) {
	if a.Clients == nil || a.Settings == nil {
		return nil, fmt.Errorf("services not available")
	}
	settings := a.Settings.Get()
	return a.Clients.Client().SearchMemories(a.ctx, query, settings.QuestionTopK, settings.MinSimilarity)
}

// GetUserSettings returns the current settings record for the settings panel.
func (a *App) GetUserSettings() (models.UserSettings, error) {
	if a.Settings == nil {
		return models.DefaultUserSettings(), fmt.Errorf("settings service not available")
	}
	return a.Settings.Get(), nil
}
