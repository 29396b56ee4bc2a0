package main

import (
	"context"
	"fmt"
	"log/slog"

	"postit/internal/clients/mongo"
	"postit/internal/clients/sqlite"
	"postit/internal/config"
	"postit/internal/kv"
)

// openStore opens the durable store named by STORE_BACKEND. The returned
// close func releases it.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (kv.Store, func(context.Context) error, error) {
	switch cfg.StoreBackend {
	case config.BackendMongo:
		_, db, err := mongo.Init(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo init: %w", err)
		}
		repo, err := mongo.NewKVRepo(ctx, db)
		if err != nil {
			_ = mongo.Shutdown(ctx)
			return nil, nil, err
		}
		return repo, mongo.Shutdown, nil

	case config.BackendSQLite:
		store, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("sqlite open: %w", err)
		}
		log.Info("opened sqlite store", "path", cfg.SQLitePath)
		return store, func(context.Context) error { return store.Close() }, nil

	case config.BackendMemory:
		log.Warn("using in-memory store, data is lost on restart")
		return kv.NewMemoryStore(), func(context.Context) error { return nil }, nil
	}
	return nil, nil, config.ErrStoreBackend
}
