package main

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/tbourn/portfolio-assistant/internal/config"
	"github.com/tbourn/portfolio-assistant/internal/repo"
	"github.com/tbourn/portfolio-assistant/internal/storage"
)

// openStore builds the configured backend wrapped in a degrading fallback.
// The returned close func releases backend resources.
func openStore(cfg config.StoreConfig, log zerolog.Logger) (*storage.Fallback, func() error, error) {
	noop := func() error { return nil }

	switch cfg.Driver {
	case "memory":
		return storage.NewFallback(storage.NewMemory(), log), noop, nil

	case "sqlite":
		db, err := repo.OpenSQLite(cfg.DBPath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite %q: %w", cfg.DBPath, err)
		}
		if err := repo.AutoMigrate(db); err != nil {
			return nil, nil, fmt.Errorf("migrate: %w", err)
		}
		sqlDB, err := db.DB()
		if err != nil {
			return nil, nil, fmt.Errorf("sql handle: %w", err)
		}
		return storage.NewFallback(repo.NewKVStore(db), log), sqlDB.Close, nil

	case "redis":
		r := storage.NewRedis(storage.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
			Prefix:   cfg.RedisPrefix,
			TTL:      cfg.RedisTTL,
		})
		return storage.NewFallback(r, log), r.Close, nil
	}
	return nil, nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
}
