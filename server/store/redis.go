package store

import (
	"context"
	"errors"

	"github.com/IMINABO1/Vault/server/apperrors"
	"github.com/IMINABO1/Vault/server/models"
	"github.com/go-redis/redis/v8"
)

const defaultRedisRetries = 100

type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisStore keeps the database under one key. Update uses WATCH/MULTI so
// several vault processes can share the same record store.
type RedisStore struct {
	client     *redis.Client
	key        string
	maxRetries int
}

func NewRedisStore(client *redis.Client, key string) *RedisStore {
	return &RedisStore{client: client, key: key, maxRetries: defaultRedisRetries}
}

// Ping checks the connection, so a bad address fails at startup.
func (rs *RedisStore) Ping(ctx context.Context) error {
	if err := rs.client.Ping(ctx).Err(); err != nil {
		return unavailable(err, "ping redis")
	}
	return nil
}

func (rs *RedisStore) Load(ctx context.Context) (*models.Database, error) {
	return rs.load(ctx, rs.client)
}

func (rs *RedisStore) Save(ctx context.Context, db *models.Database) error {
	data, err := encode(db)
	if err != nil {
		return unavailable(err, "encode database")
	}

	if err := rs.client.Set(ctx, rs.key, data, 0).Err(); err != nil {
		return unavailable(err, "write database")
	}

	return nil
}

func (rs *RedisStore) Update(ctx context.Context, mutate MutateFunc) error {
	for attempt := 0; attempt < rs.maxRetries; attempt++ {
		var mutateErr error

		err := rs.client.Watch(ctx, func(tx *redis.Tx) error {
			db, err := rs.load(ctx, tx)
			if err != nil {
				return err
			}

			if mutateErr = mutate(db); mutateErr != nil {
				return mutateErr
			}

			if err := ctx.Err(); err != nil {
				return err
			}

			data, err := encode(db)
			if err != nil {
				return unavailable(err, "encode database")
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, rs.key, data, 0)
				return nil
			})
			return err
		}, rs.key)

		switch {
		case mutateErr != nil:
			return mutateErr
		case errors.Is(err, redis.TxFailedErr):
			logg.Debugf("record store key %v changed during update, retrying", rs.key)
			continue
		case err != nil && errors.Is(err, ctx.Err()):
			return err
		case apperrors.Is(err, apperrors.StorageUnavailable):
			return err
		case err != nil:
			return unavailable(err, "update database")
		}

		return nil
	}

	return unavailable(redis.TxFailedErr, "update database: too much contention")
}

func (rs *RedisStore) Close() error {
	return rs.client.Close()
}

func (rs *RedisStore) load(ctx context.Context, cmd getter) (*models.Database, error) {
	data, err := cmd.Get(ctx, rs.key).Bytes()
	if err == redis.Nil {
		return models.NewDatabase(), nil
	}

	if err != nil {
		return nil, unavailable(err, "read database")
	}

	db, err := decode(data)
	if err != nil {
		return nil, unavailable(err, "parse database")
	}

	return db, nil
}
