package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/ldelvillar/snap-notes-sub000/internal/config"

	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// ErrNotInitialized is returned by Shutdown when no connection was ever established.
var ErrNotInitialized = errors.New("mongo client not initialized")

var (
	client *mongo.Client
	db     *mongo.Database
	mu     sync.Mutex

	drv driver = mongoDriver{}
)

// Init connects to MongoDB once; later calls return the cached connection.
// A failed attempt caches nothing, so the next call retries.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	mu.Lock()
	defer mu.Unlock()

	if client != nil && db != nil {
		return client, db, nil
	}

	opts := options.Client().
		ApplyURI(cfg.MongoURI).
		SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
		SetConnectTimeout(10 * time.Second).
		SetAppName("snap-notes")

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	cli, err := drv.Connect(ctx, opts)
	if err != nil {
		log.Error("failed to connect to mongo", "err", err)
		return nil, nil, err
	}

	if err := drv.Ping(ctx, cli); err != nil {
		log.Error("failed to ping mongo", "err", err)
		if derr := drv.Disconnect(ctx, cli); derr != nil {
			log.Warn("failed to disconnect after ping failure", "err", derr)
		}
		return nil, nil, err
	}

	client = cli
	db = cli.Database(cfg.MongoDBName)
	log.Info("successfully connected to mongo", "db", cfg.MongoDBName)

	return client, db, nil
}

// Client returns the singleton MongoDB client instance.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the singleton MongoDB database instance.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown disconnects the singleton client. Calling it without a live
// connection returns ErrNotInitialized.
func Shutdown(ctx context.Context) error {
	mu.Lock()
	defer mu.Unlock()

	if client == nil {
		return ErrNotInitialized
	}

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	err := drv.Disconnect(ctx, client)

	client = nil
	db = nil

	return err
}
