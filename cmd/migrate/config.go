package main

import (
	"bookquery/internal/config"

	"github.com/joho/godotenv"
)

func loadEnvFiles() {
	// Do not override environment provided by the runtime (e.g. Docker).
	_ = godotenv.Load(".env.local")
}

// migrateSettings is the subset of the service configuration goose needs.
type migrateSettings struct {
	DSN string
	Dir string
}

func loadSettings() (migrateSettings, error) {
	loadEnvFiles()
	cfg, err := config.Load(config.Prefix)
	if err != nil {
		return migrateSettings{}, err
	}
	return migrateSettings{DSN: cfg.DB.DSN, Dir: cfg.Migrations.Dir}, nil
}
