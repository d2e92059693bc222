package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/karar-hayder/recanthology/internal/config"
)

type Database struct {
	PG     *pgxpool.Pool
	Redis  *RedisClients
	logger *logrus.Logger
}

type RedisClients struct {
	// Hot serves sessions and rate limiting; Warm serves the engine's
	// similarity and result caches.
	Hot  *redis.Client
	Warm *redis.Client
}

func New(cfg *config.Config, logger *logrus.Logger) (*Database, error) {
	db := &Database{
		logger: logger,
	}

	if err := db.initPostgreSQL(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := db.initRedis(cfg); err != nil {
		return nil, fmt.Errorf("failed to initialize Redis: %w", err)
	}

	return db, nil
}

func (db *Database) initPostgreSQL(cfg *config.Config) error {
	poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return fmt.Errorf("failed to parse PostgreSQL config: %w", err)
	}

	poolConfig.MaxConns = int32(cfg.Database.MaxConnections)
	poolConfig.MaxConnIdleTime = cfg.Database.MaxIdleTime
	poolConfig.MaxConnLifetime = cfg.Database.MaxLifetime
	poolConfig.ConnConfig.ConnectTimeout = cfg.Database.ConnectTimeout

	pool, err := pgxpool.NewWithConfig(context.Background(), poolConfig)
	if err != nil {
		return fmt.Errorf("failed to create PostgreSQL pool: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := pool.Ping(ctx); err != nil {
		return fmt.Errorf("failed to ping PostgreSQL: %w", err)
	}

	db.PG = pool
	db.logger.Info("PostgreSQL connection established")
	return nil
}

func (db *Database) initRedis(cfg *config.Config) error {
	db.Redis = &RedisClients{
		Hot: redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Hot.URL,
			MaxRetries:   cfg.Redis.Hot.MaxRetries,
			PoolSize:     cfg.Redis.Hot.PoolSize,
			ReadTimeout:  cfg.Redis.Hot.Timeout,
			WriteTimeout: cfg.Redis.Hot.Timeout,
		}),
		Warm: redis.NewClient(&redis.Options{
			Addr:         cfg.Redis.Warm.URL,
			MaxRetries:   cfg.Redis.Warm.MaxRetries,
			PoolSize:     cfg.Redis.Warm.PoolSize,
			ReadTimeout:  cfg.Redis.Warm.Timeout,
			WriteTimeout: cfg.Redis.Warm.Timeout,
		}),
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := db.Redis.Hot.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis Hot: %w", err)
	}

	if err := db.Redis.Warm.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("failed to ping Redis Warm: %w", err)
	}

	db.logger.Info("Redis connections established")
	return nil
}

func (db *Database) Close() error {
	var errs []error

	if db.PG != nil {
		db.PG.Close()
		db.logger.Info("PostgreSQL connection closed")
	}

	if db.Redis != nil {
		if db.Redis.Hot != nil {
			if err := db.Redis.Hot.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close Redis Hot: %w", err))
			}
		}
		if db.Redis.Warm != nil {
			if err := db.Redis.Warm.Close(); err != nil {
				errs = append(errs, fmt.Errorf("failed to close Redis Warm: %w", err))
			}
		}
		if len(errs) == 0 {
			db.logger.Info("Redis connections closed")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors closing database connections: %v", errs)
	}

	return nil
}
