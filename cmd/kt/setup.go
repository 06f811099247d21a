package main

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/klartext/klartext/internal/config"
	"github.com/klartext/klartext/internal/db"
	"github.com/klartext/klartext/internal/decompose"
	"github.com/klartext/klartext/internal/provider"
	"github.com/klartext/klartext/internal/quota"
	"github.com/klartext/klartext/internal/run"
)

// defaultConfigPath is the config file used when --config is not given.
const defaultConfigPath = "klartext.yaml"

// openDatabase loads the config and connects to the configured database.
func openDatabase(configPath string) (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	gormDB, err := db.Connect(cfg.Database)
	if err != nil {
		return nil, nil, err
	}
	return cfg, gormDB, nil
}

// engine bundles the wired simplification services.
type engine struct {
	cfg        *config.Config
	db         *gorm.DB
	tracker    *quota.Tracker
	registry   *provider.Registry
	orch       *run.Orchestrator
	decomposer *decompose.Decomposer
}

// buildEngine constructs the service instances once, passed by reference
// everywhere they are needed.
func buildEngine(configPath string) (*engine, error) {
	cfg, gormDB, err := openDatabase(configPath)
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(gormDB); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	tracker := quota.NewTracker(gormDB, cfg)
	registry := provider.BuildRegistry(gormDB, tracker, cfg, 0)
	return &engine{
		cfg:        cfg,
		db:         gormDB,
		tracker:    tracker,
		registry:   registry,
		orch:       run.New(gormDB, registry, tracker),
		decomposer: decompose.New(decompose.NewRegistry()),
	}, nil
}
