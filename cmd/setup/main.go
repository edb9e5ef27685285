package main

import (
	"context"
	"flag"
	"fmt"

	"wallet-ledger-go/internal/common"
	"wallet-ledger-go/internal/config"
	"wallet-ledger-go/internal/database"
	"wallet-ledger-go/internal/models"

	"go.uber.org/zap"
)

func seedSettings(ctx context.Context, dbService *database.Service, file string, overwrite bool) (int, []models.Setting) {
	zap.L().Info("Loading settings seed", zap.String("file", file))
	settings, err := common.LoadSettingsFile(file)
	if err != nil {
		zap.L().Fatal("Failed to load settings file", zap.Error(err))
	}

	written, err := dbService.SeedSettings(ctx, settings, overwrite)
	if err != nil {
		zap.L().Fatal("Failed to seed settings", zap.Error(err))
	}
	return written, settings
}

func printSettings(ctx context.Context, dbService *database.Service) {
	current, err := dbService.ListGlobalSettings(ctx)
	if err != nil {
		zap.L().Fatal("Failed to read settings", zap.Error(err))
	}

	common.PrintHeader("GLOBAL SETTINGS", common.DefaultWidth)
	category := ""
	for _, s := range current {
		if s.Category != category {
			category = s.Category
			fmt.Printf("\n┌─ %s\n", category)
		}
		fmt.Printf("│  %-30s %12s  %s\n", s.Key, s.Value.String(), s.Description)
	}
}

func main() {
	ctx := context.Background()

	_, loggerCleanup := common.InitializeLogger()
	defer loggerCleanup()

	fileFlag := flag.String("file", "", "Settings seed file (defaults to SETTINGS_FILE)")
	overwriteFlag := flag.Bool("overwrite", false, "Replace settings that already exist")
	listFlag := flag.Bool("list", false, "Only print the current settings")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		zap.L().Fatal("Failed to load config", zap.Error(err))
	}

	// Opening the store applies the schema (and dummy users when enabled).
	dbService, err := common.InitializeDatabaseOnly(ctx, cfg)
	if err != nil {
		zap.L().Fatal("Failed to initialize database", zap.Error(err))
	}
	defer dbService.Close()

	if !*listFlag {
		file := *fileFlag
		if file == "" {
			file = cfg.Settings.SeedFile
		}
		written, settings := seedSettings(ctx, dbService, file, *overwriteFlag)
		common.PrintSuccess("Seeded %d of %d settings from %s", written, len(settings), file)
	}

	printSettings(ctx, dbService)
	common.PrintFooter("Setup complete", common.DefaultWidth)
}
