package main

import (
	"context"
	"embed"
	"fmt"

	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"
	"github.com/wailsapp/wails/v2/pkg/options/linux"
	"gorm.io/gorm/logger"

	"memdash/internal/database"
	"memdash/internal/events"
	"memdash/internal/services"
	"memdash/internal/utils"
)

//go:embed all:frontend/dist
var assets embed.FS

func main() {

	// Developer overrides (db path etc.) come from .env in dev mode only;
	// the settings layer itself never reads the environment.
	if database.IsDevelopment() {
		_ = utils.LoadEnv()
	}

	app := NewApp()

	db, err := database.Init(database.Config{
		LogLevel: logger.Info,
	})
	if err != nil {
		fmt.Println("Error opening database:", err)
		return
	}

	if sqlDB, err := db.DB(); err == nil {
		app.dbClose = sqlDB.Close
	}

	//Create each service
	keyringService := services.NewKeyringService()
	dbService := services.NewDbServices(db)
	clientService := services.NewClientService(dbService.Settings, keyringService)
	llmConfigService := services.NewLLMConfigService(clientService, keyringService)
	performanceService := services.NewPerformanceService(clientService)

	app.Settings = dbService.Settings
	app.Clients = clientService
	app.LLMConfig = llmConfigService
	app.Performance = performanceService

	// Create application with options
	err = wails.Run(&options.App{
		Title:  "Memdash",
		Width:  1280,
		Height: 800,
		AssetServer: &assetserver.Options{
			Assets: assets,
		},
		Linux: &linux.Options{
			WindowIsTranslucent: false,
			WebviewGpuPolicy:    linux.WebviewGpuPolicyAlways,
			ProgramName:         "Memdash",
		},
		BackgroundColour: &options.RGBA{R: 24, G: 28, B: 38, A: 1},
		OnStartup: func(ctx context.Context) {
			app.startup(ctx)
			events.EnableRuntimeEmitter()

			dbService.StartDbServices(ctx)
			keyringService.Startup()
			clientService.Startup(ctx)
			llmConfigService.Startup(ctx)
			performanceService.Startup(ctx)

			// Settings are loaded, so the initial config fetch targets the
			// user's configured server rather than the fallback.
			go llmConfigService.Load()
		},
		OnShutdown: app.shutdown,
		Bind: []interface{}{
			app,
			dbService.Settings,
			clientService,
			llmConfigService,
			performanceService,
			keyringService,
		},
	})

	if err != nil {
		println("Error:", err.Error())
	}
}
