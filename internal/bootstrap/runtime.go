// Package bootstrap wires the storage backend and Redis selected by the
// configuration into the repositories the services consume.
package bootstrap

import (
	"context"
	"fmt"

	"arcade/internal/cache"
	"arcade/internal/config"
	"arcade/internal/database"
	"arcade/internal/repository"
	"arcade/internal/repository/mongostore"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Stores is the set of repositories for one storage backend plus its
// lifecycle hooks.
type Stores struct {
	Driver   string
	Users    repository.UserRepository
	Posts    repository.PostRepository
	Comments repository.CommentRepository

	// DB is set for the relational drivers and nil for mongo.
	DB    *gorm.DB
	Mongo *mongostore.Store
}

// Ping reports whether the backing store is reachable.
func (s *Stores) Ping(ctx context.Context) error {
	if s.Mongo != nil {
		return s.Mongo.Ping(ctx)
	}
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the backing store's connections.
func (s *Stores) Close(ctx context.Context) error {
	if s.Mongo != nil {
		return s.Mongo.Close(ctx)
	}
	return database.Close(s.DB)
}

// NewGormStores builds the relational repositories on an open handle.
func NewGormStores(driver string, db *gorm.DB) *Stores {
	return &Stores{
		Driver:   driver,
		Users:    repository.NewUserRepository(db),
		Posts:    repository.NewPostRepository(db),
		Comments: repository.NewCommentRepository(db),
		DB:       db,
	}
}

// NewMongoStores builds the document repositories on a connected store.
func NewMongoStores(store *mongostore.Store) *Stores {
	return &Stores{
		Driver:   config.DriverMongo,
		Users:    mongostore.NewUserRepository(store),
		Posts:    mongostore.NewPostRepository(store),
		Comments: mongostore.NewCommentRepository(store),
		Mongo:    store,
	}
}

// OpenStores connects to the backend named by cfg.DBDriver.
func OpenStores(ctx context.Context, cfg *config.Config) (*Stores, error) {
	switch cfg.DBDriver {
	case config.DriverMongo:
		store, err := mongostore.Connect(ctx, cfg.MongoURI, cfg.MongoDatabase)
		if err != nil {
			return nil, fmt.Errorf("mongodb connection failed: %w", err)
		}
		return NewMongoStores(store), nil
	case config.DriverPostgres, config.DriverSQLite:
		db, err := database.Connect(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("database connection failed: %w", err)
		}
		return NewGormStores(cfg.DBDriver, db), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER %q", cfg.DBDriver)
	}
}

// InitRuntime connects to the store and Redis. The Redis client is nil when
// REDIS_URL is unset or unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config) (*Stores, *redis.Client, error) {
	stores, err := OpenStores(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	cache.InitRedis(cfg.RedisURL)
	return stores, cache.GetClient(), nil
}
