package backend

import (
	"context"
	"fmt"

	"glow/internal/config"
	"glow/internal/log"
	"glow/internal/storage"
)

// FromAppConfig converts the application config to backend config
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, fmt.Errorf("app config is nil")
	}
	cfg := Config{
		Type:          Type(appConfig.DataBackend),
		DataDirectory: appConfig.DataDir,
		SQLiteDBPath:  appConfig.SQLiteDBPath,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Open creates the snapshot backend described by cfg
func Open(_ context.Context, cfg Config, logger *log.Logger) (*Result, error) {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithComponent(log.ComponentStorage)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	switch cfg.Type {
	case SQLite:
		db, err := storage.NewSQLite(cfg.SQLiteDBPath)
		if err != nil {
			return nil, fmt.Errorf("initialize SQLite backend: %w", err)
		}
		logger.Info("Initialized SQLite backend", log.FieldBackend, cfg.Type, "db_path", cfg.SQLiteDBPath)
		return &Result{Snapshots: db, Type: cfg.Type, Cleanup: db.Close}, nil

	case File:
		f, err := storage.NewFile(cfg.DataDirectory)
		if err != nil {
			return nil, fmt.Errorf("initialize file backend: %w", err)
		}
		logger.Info("Initialized file backend", log.FieldBackend, cfg.Type, "data_directory", cfg.DataDirectory)
		return &Result{Snapshots: f, Type: cfg.Type}, nil

	case Memory:
		logger.Warn("Initialized memory backend, snapshots will not survive a restart", log.FieldBackend, cfg.Type)
		return &Result{Snapshots: storage.NewMemory(), Type: cfg.Type}, nil

	default:
		return nil, fmt.Errorf("unsupported backend type: %s", cfg.Type)
	}
}
