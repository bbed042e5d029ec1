package main

import (
	"context"
	"fmt"

	"github.com/skondo/wordkeep/internal/app"
	"github.com/skondo/wordkeep/internal/backup"
	"github.com/skondo/wordkeep/internal/config"
	"github.com/skondo/wordkeep/internal/database"
	"github.com/skondo/wordkeep/internal/progress"
	"github.com/skondo/wordkeep/internal/remote"
	"github.com/skondo/wordkeep/internal/report"
	"github.com/skondo/wordkeep/internal/snapshot"
	"github.com/skondo/wordkeep/internal/syncer"
)

func loadConfig() (*config.Config, error) {
	loader, err := config.NewConfigLoader(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to create config loader: %w", err)
	}
	return loader.Load()
}

// openApp wires the full application from the configuration. The returned
// close function releases the database connection.
func openApp(ctx context.Context) (*app.App, func(), error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	db, err := database.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("database.Open() > %w", err)
	}
	closeDB := func() {
		_ = db.Close()
	}

	store, err := progress.NewDBStore(ctx, db)
	if err != nil {
		closeDB()
		return nil, nil, fmt.Errorf("progress.NewDBStore() > %w", err)
	}

	codec := snapshot.New()
	engine := backup.New(store, codec, cfg.Backup.Directory)

	options := []app.Option{
		app.WithPassphrase(cfg.Backup.Passphrase),
		app.WithDailyGoal(cfg.Study.DailyGoal),
		app.WithReports(report.New(store, cfg.Reports.Directory,
			report.WithTemplate(cfg.Reports.Template))),
	}
	if cfg.Sync.Endpoint != "" {
		remoteStore := remote.NewHTTPStore(cfg.Sync.Endpoint, cfg.Sync.SessionToken)
		coordinator := syncer.New(engine, store, remoteStore, codec, cfg.Sync.Slot,
			syncer.WithPassphrase(cfg.Backup.Passphrase),
			syncer.WithMaxAttempts(cfg.Sync.MaxAttempts))
		options = append(options, app.WithSync(coordinator))
	}

	return app.New(store, engine, options...), closeDB, nil
}
