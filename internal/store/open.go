package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/config"
)

// Open creates the Store selected by cfg.Store.Driver.
func Open(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Store.Driver {
	case "file", "":
		return NewFile(cfg.Store.Dir), nil
	case "sqlite":
		return nonNil(NewSQLite(cfg.Store.SQLitePath))
	case "postgres":
		return nonNil(NewPostgres(ctx, cfg.Store.DatabaseURL, &PoolConfig{
			MaxConns: cfg.Store.MaxConns,
			MinConns: cfg.Store.MinConns,
		}))
	case "minio":
		return nonNil(NewMinIO(MinIOConfig{
			Endpoint:  cfg.MinIO.Endpoint,
			AccessKey: cfg.MinIO.AccessKey,
			SecretKey: cfg.MinIO.SecretKey,
			Bucket:    cfg.MinIO.Bucket,
			Region:    cfg.MinIO.Region,
			UseSSL:    cfg.MinIO.UseSSL,
		}))
	case "redis":
		return nonNil(NewRedis(ctx, RedisConfig{
			Addr:      cfg.Redis.Addr,
			Password:  cfg.Redis.Password,
			DB:        cfg.Redis.DB,
			KeyPrefix: cfg.Redis.KeyPrefix,
			TTL:       time.Duration(cfg.Redis.TTLHours) * time.Hour,
		}))
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Store.Driver)
	}
}

// nonNil keeps a typed nil pointer from escaping as a non-nil Store.
func nonNil[S Store](s S, err error) (Store, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
