package localcache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"

	"github.com/go-redis/redis/v8"
)

var (
	// ErrQuotaExceeded 序列化后的记录超过本地存储上限
	ErrQuotaExceeded = errors.New("local cache quota exceeded")
	ErrEmptyKey      = errors.New("local cache key is required")
)

// Store 未登录时的本地回退存储，按设备标识保存一份与 UserRecord 同结构的记录，
// 另外维护设备当前绑定的账号。清除绑定不会删除已缓存的数据。
type Store interface {
	Load(ctx context.Context, key string) (*model.UserRecord, bool, error)
	Save(ctx context.Context, key string, patch model.RecordPatch) (*model.UserRecord, error)
	BindIdentity(ctx context.Context, deviceKey, userID string) error
	BoundIdentity(ctx context.Context, deviceKey string) (string, bool, error)
	ClearBinding(ctx context.Context, deviceKey string) error
	Name() string
	Close() error
}

// New 根据配置创建本地缓存，redis 类型需要传入已连接的客户端
func New(cfg config.LocalCacheConfig, rdb *redis.Client, clock util.Clock) (Store, error) {
	switch cfg.Type {
	case config.LocalCacheSQLite:
		return NewSQLiteStore(cfg.SQLitePath, cfg.MaxRecordBytes, clock)
	case config.LocalCacheRedis:
		if rdb == nil {
			return nil, errors.New("redis local cache requires a redis client")
		}
		return NewRedisStore(rdb, cfg.KeyPrefix, cfg.MaxRecordBytes, clock), nil
	case config.LocalCacheMemory:
		return NewMemoryStore(cfg.MaxRecordBytes, clock), nil
	}
	return nil, fmt.Errorf("unsupported local cache type %q", cfg.Type)
}

// merge 把 patch 应用到已有记录上并序列化，超出上限时返回 ErrQuotaExceeded
func merge(existing *model.UserRecord, key string, patch model.RecordPatch, clock util.Clock, maxBytes int) (*model.UserRecord, []byte, error) {
	if err := patch.Validate(); err != nil {
		return nil, nil, err
	}

	rec := existing
	if rec == nil {
		rec = model.NewSkeleton(key, clock.Now())
	} else {
		rec = rec.Clone()
	}
	rec.Apply(patch.WithoutOwner())
	rec.LastUpdated = clock.Now()

	payload, err := json.Marshal(rec)
	if err != nil {
		return nil, nil, err
	}
	if maxBytes > 0 && len(payload) > maxBytes {
		return nil, nil, fmt.Errorf("%w: record is %d bytes, limit %d", ErrQuotaExceeded, len(payload), maxBytes)
	}
	return rec, payload, nil
}

func decode(payload []byte) (*model.UserRecord, error) {
	var rec model.UserRecord
	if err := json.Unmarshal(payload, &rec); err != nil {
		return nil, fmt.Errorf("corrupt local record: %w", err)
	}
	return rec.Normalize(), nil
}
