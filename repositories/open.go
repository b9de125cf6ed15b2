package repositories

import (
	"context"
	"fmt"
	"log/slog"

	apperrors "poll-chat/errors"

	"github.com/dgraph-io/badger/v4"
)

type Driver string

const (
	DriverBadger   Driver = "badger"
	DriverMongo    Driver = "mongo"
	DriverPostgres Driver = "postgres"
	DriverRedis    Driver = "redis"
)

// StoreConfig selects and parameterizes the message store backend.
type StoreConfig struct {
	Driver         Driver
	BadgerFilepath string
	// Badger is an already opened database, used instead of BadgerFilepath. The caller closes it.
	Badger        *badger.DB
	MongoURI      string
	MongoDatabase string
	DatabaseURL   string
	RedisURL      string
	// CacheSize is the number of cached pages; 0 disables the cache.
	// Only the badger driver is cached: the other stores can be shared by
	// several servers, and the cache only sees this process's appends.
	CacheSize int
}

// Open builds the configured backend. A badger store belongs to this process
// alone and is wrapped with the read cache.
func Open(ctx context.Context, cfg StoreConfig, log *slog.Logger) (IMessageRepository, error) {
	var (
		repository IMessageRepository
		err        error
	)
	switch cfg.Driver {
	case DriverBadger:
		if cfg.Badger != nil {
			repository, err = NewMessageRepository(cfg.Badger, log)
		} else {
			repository, err = OpenMessageRepository(cfg.BadgerFilepath, log)
		}
	case DriverMongo:
		repository, err = NewMongoMessageRepository(ctx, cfg.MongoURI, cfg.MongoDatabase, log)
	case DriverPostgres:
		repository, err = NewPostgresMessageRepository(ctx, cfg.DatabaseURL, log)
	case DriverRedis:
		repository, err = NewRedisMessageRepository(ctx, cfg.RedisURL, log)
	default:
		return nil, fmt.Errorf("%w: %q", apperrors.ErrUnknownDriver, cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	log.Info("Message store opened", "driver", cfg.Driver)

	if cfg.Driver != DriverBadger || cfg.CacheSize <= 0 {
		return repository, nil
	}
	cached, err := NewCachedRepository(repository, cfg.CacheSize)
	if err != nil {
		_ = repository.Close()
		return nil, err
	}
	return cached, nil
}
