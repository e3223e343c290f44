// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.

package main

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/rapidaai/streamrt/internal/logging"
	"github.com/rapidaai/streamrt/pkg/store"
)

// openStore opens the gorm connection named by cfg, applies pending
// migrations, attaches a Redis-backed query cache when a Redis backend is
// configured, and returns a store.Store ready for session bookkeeping.
func openStore(cfg *appConfig, logger logging.Logger) (store.Store, error) {
	var (
		db  *gorm.DB
		err error
	)

	switch store.Dialect(cfg.DBDialect) {
	case store.DialectPostgres:
		db, err = gorm.Open(postgres.Open(cfg.DBDSN), &gorm.Config{})
	case store.DialectSQLite:
		db, err = gorm.Open(sqlite.Open(cfg.DBDSN), &gorm.Config{})
	default:
		return nil, fmt.Errorf("cmd/streamrt: unsupported db_dialect %q", cfg.DBDialect)
	}
	if err != nil {
		return nil, fmt.Errorf("cmd/streamrt: open database: %w", err)
	}

	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := db.Use(store.NewCachesPlugin(rdb, 30*time.Second)); err != nil {
			return nil, fmt.Errorf("cmd/streamrt: attach query cache: %w", err)
		}
		logger.Infow("store: redis query cache attached", "redis_addr", cfg.RedisAddr)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("cmd/streamrt: unwrap sql.DB: %w", err)
	}
	if err := migrateStore(sqlDB, store.Dialect(cfg.DBDialect)); err != nil {
		return nil, err
	}

	return store.NewStore(db, logger), nil
}

func migrateStore(sqlDB *sql.DB, dialect store.Dialect) error {
	if err := store.Migrate(sqlDB, dialect); err != nil {
		return fmt.Errorf("cmd/streamrt: apply migrations: %w", err)
	}
	return nil
}
