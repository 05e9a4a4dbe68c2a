package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ldelvillar/snap-notes-sub000/internal/clients/memstore"
	"github.com/ldelvillar/snap-notes-sub000/internal/clients/mongo"
	"github.com/ldelvillar/snap-notes-sub000/internal/clients/postgres"
	"github.com/ldelvillar/snap-notes-sub000/internal/config"
	"github.com/ldelvillar/snap-notes-sub000/internal/services/notes"
)

// openStore connects the note store selected by cfg.StoreDriver. The returned
// closer releases it and is never nil.
func openStore(ctx context.Context, cfg config.Config, log *slog.Logger) (notes.Store, func(context.Context) error, error) {
	switch cfg.StoreDriver {
	case config.DriverMongo:
		_, db, err := mongo.Init(ctx, cfg, log)
		if err != nil {
			return nil, nil, fmt.Errorf("mongo init: %w", err)
		}
		store, err := mongo.NewNotesStore(ctx, db)
		if err != nil {
			_ = mongo.Shutdown(ctx)
			return nil, nil, fmt.Errorf("mongo notes store: %w", err)
		}
		log.Info("connected to mongo", "db", db.Name())
		return store, mongo.Shutdown, nil

	case config.DriverPostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("postgres open: %w", err)
		}
		log.Info("connected to postgres")
		return store, func(context.Context) error { return store.Close() }, nil

	case config.DriverMemory:
		log.Warn("using in-memory note store, data is lost on restart")
		return memstore.New(), func(context.Context) error { return nil }, nil
	}

	return nil, nil, fmt.Errorf("%w: %q", config.ErrStoreDriver, cfg.StoreDriver)
}
