package main

import (
	"context"
	"fmt"

	"github.com/yourusername/task-manager/internal/config"
	"github.com/yourusername/task-manager/internal/storage"
	"github.com/yourusername/task-manager/internal/storage/memory"
	"github.com/yourusername/task-manager/internal/storage/postgres"
	"github.com/yourusername/task-manager/internal/storage/redis"
)

// openStore は STORE_DRIVER に応じたストアを開きます。
// 接続できない場合は起動を中止するためエラーを返します。
func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return memory.New(), nil
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("open postgres store: %w", err)
		}
		return store, nil
	case config.StoreRedis:
		store, err := redis.Open(ctx, cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("open redis store: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store driver: %q", cfg.StoreDriver)
	}
}
