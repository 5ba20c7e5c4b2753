package store

import (
	"context"
	"errors"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/rotisserie/eris"

	"github.com/gjeldshjelp/debt-cli/internal/model"
)

// RedisConfig holds connection settings for RedisStore.
type RedisConfig struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
}

// RedisStore keeps snapshots as string values, with sets indexing the
// dates per person and the sites per date.
type RedisStore struct {
	rdb    *goredis.Client
	prefix string
	ttl    time.Duration
}

// NewRedis connects to Redis and verifies the connection.
func NewRedis(ctx context.Context, cfg RedisConfig) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		MaxRetries:   2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, eris.Wrapf(err, "redis: ping %s", cfg.Addr)
	}
	return &RedisStore{rdb: rdb, prefix: cfg.KeyPrefix, ttl: cfg.TTL}, nil
}

func (s *RedisStore) snapshotKey(key Key) string {
	return s.prefix + "snapshot:" + key.String()
}

func (s *RedisStore) unvalidatedKey(key Key) string {
	return s.prefix + "unvalidated:" + key.String()
}

func (s *RedisStore) datesKey(personID string) string {
	return s.prefix + "dates:" + personID
}

func (s *RedisStore) sitesKey(personID, date string) string {
	return s.prefix + "sites:" + personID + "/" + date
}

func (s *RedisStore) Migrate(context.Context) error { return nil }

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}

func (s *RedisStore) Put(ctx context.Context, key Key, snap model.RawSnapshot) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(snap)
	if err != nil {
		return err
	}

	_, err = s.rdb.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.Set(ctx, s.snapshotKey(key), data, s.ttl)
		pipe.SAdd(ctx, s.datesKey(key.PersonID), key.Date)
		pipe.SAdd(ctx, s.sitesKey(key.PersonID, key.Date), key.Site)
		return nil
	})
	return eris.Wrapf(err, "redis: put %s", key)
}

func (s *RedisStore) PutUnvalidated(ctx context.Context, key Key, v any) error {
	if err := key.Validate(); err != nil {
		return err
	}
	data, err := encode(v)
	if err != nil {
		return err
	}
	err = s.rdb.Set(ctx, s.unvalidatedKey(key), data, s.ttl).Err()
	return eris.Wrapf(err, "redis: put unvalidated %s", key)
}

func (s *RedisStore) Get(ctx context.Context, key Key) ([]byte, error) {
	if err := key.Validate(); err != nil {
		return nil, err
	}
	data, err := s.rdb.Get(ctx, s.snapshotKey(key)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, eris.Wrapf(ErrNotFound, "redis: %s", key)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "redis: get %s", key)
	}
	return data, nil
}

func (s *RedisStore) ListDates(ctx context.Context, personID string) ([]string, error) {
	dates, err := s.rdb.SMembers(ctx, s.datesKey(personID)).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "redis: list dates for %s", personID)
	}
	return sortDatesDesc(dates), nil
}

// ListSites drops index entries whose snapshot has expired.
func (s *RedisStore) ListSites(ctx context.Context, personID, date string) ([]string, error) {
	members, err := s.rdb.SMembers(ctx, s.sitesKey(personID, date)).Result()
	if err != nil {
		return nil, eris.Wrapf(err, "redis: list sites for %s/%s", personID, date)
	}

	var sites []string
	for _, site := range members {
		n, err := s.rdb.Exists(ctx, s.snapshotKey(Key{PersonID: personID, Date: date, Site: site})).Result()
		if err != nil {
			return nil, eris.Wrapf(err, "redis: check %s", site)
		}
		if n > 0 {
			sites = append(sites, site)
		}
	}
	return sortedUnique(sites), nil
}
