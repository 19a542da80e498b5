package localcache

import (
	"context"
	"errors"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

const maxWatchRetries = 5

// RedisStore 多实例部署时共享的本地缓存
type RedisStore struct {
	rdb      *redis.Client
	prefix   string
	maxBytes int
	clock    util.Clock
}

func NewRedisStore(rdb *redis.Client, prefix string, maxBytes int, clock util.Clock) *RedisStore {
	if clock == nil {
		clock = util.NewMonotonicClock()
	}
	if prefix == "" {
		prefix = "notebook"
	}
	return &RedisStore{rdb: rdb, prefix: prefix, maxBytes: maxBytes, clock: clock}
}

func (s *RedisStore) recordKey(key string) string {
	return s.prefix + ":record:" + key
}

func (s *RedisStore) bindingKey(deviceKey string) string {
	return s.prefix + ":binding:" + deviceKey
}

func (s *RedisStore) Load(ctx context.Context, key string) (*model.UserRecord, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}

	payload, err := s.rdb.Get(ctx, s.recordKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	rec, err := decode(payload)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

// Save 使用 WATCH/MULTI 做读改写，并发冲突时重试
func (s *RedisStore) Save(ctx context.Context, key string, patch model.RecordPatch) (*model.UserRecord, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	redisKey := s.recordKey(key)
	var saved *model.UserRecord

	txf := func(tx *redis.Tx) error {
		var existing *model.UserRecord
		payload, err := tx.Get(ctx, redisKey).Bytes()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return err
		default:
			if existing, err = decode(payload); err != nil {
				return err
			}
		}

		rec, next, err := merge(existing, key, patch, s.clock, s.maxBytes)
		if err != nil {
			return err
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, redisKey, next, 0)
			return nil
		})
		if err == nil {
			saved = rec
		}
		return err
	}

	for i := 0; i < maxWatchRetries; i++ {
		err := s.rdb.Watch(ctx, txf, redisKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return nil, err
		}
		return saved, nil
	}
	return nil, errors.New("local cache save aborted after repeated concurrent updates")
}

func (s *RedisStore) BindIdentity(ctx context.Context, deviceKey, userID string) error {
	if deviceKey == "" {
		return ErrEmptyKey
	}
	return s.rdb.Set(ctx, s.bindingKey(deviceKey), userID, 0).Err()
}

func (s *RedisStore) BoundIdentity(ctx context.Context, deviceKey string) (string, bool, error) {
	userID, err := s.rdb.Get(ctx, s.bindingKey(deviceKey)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return userID, true, nil
}

func (s *RedisStore) ClearBinding(ctx context.Context, deviceKey string) error {
	return s.rdb.Del(ctx, s.bindingKey(deviceKey)).Err()
}

func (s *RedisStore) Name() string {
	return "redis"
}

// Close 客户端由调用方管理
func (s *RedisStore) Close() error {
	return nil
}
