package db

import (
	"context"
	"fmt"

	"survey-drafts/internal/config"
	"survey-drafts/internal/drafts"
	"survey-drafts/internal/logger"
	"survey-drafts/internal/repository"
)

// Closer releases whatever OpenStore acquired
type Closer func() error

func noopCloser() error { return nil }

// OpenStore builds the key-value backend named by cfg.StoreBackend.
// Learning: every backend is returned behind the two-method interface
// the drafts package declares, so nothing above this line cares which
// one is running.
func OpenStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (drafts.KeyValueStore, Closer, error) {
	log = log.With("store_backend", cfg.StoreBackend)
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	switch cfg.StoreBackend {
	case config.BackendMemory:
		log.Warn("drafts are kept in memory and lost on restart")
		return repository.NewMemoryKVRepository(), noopCloser, nil

	case config.BackendFile:
		kv, err := repository.NewFileKVRepository(cfg.DraftDataDir)
		if err != nil {
			return nil, nil, err
		}
		log.Info("draft store ready", "dir", cfg.DraftDataDir)
		return kv, noopCloser, nil

	case config.BackendSQLite:
		kv, err := repository.NewSQLiteKVRepository(cfg.SQLitePath)
		if err != nil {
			return nil, nil, err
		}
		log.Info("draft store ready", "path", cfg.SQLitePath)
		return kv, kv.Close, nil

	case config.BackendPostgres:
		gdb, err := NewGorm(cfg, log)
		if err != nil {
			return nil, nil, err
		}
		return repository.NewGormKVRepository(gdb.DB), gdb.Close, nil

	case config.BackendRedis:
		kv, err := repository.NewRedisKVRepository(cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return nil, nil, err
		}
		log.Info("draft store ready", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return kv, kv.Close, nil
	}

	return nil, nil, fmt.Errorf("unknown store backend %q", cfg.StoreBackend)
}
