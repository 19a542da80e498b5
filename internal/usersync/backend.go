package usersync

import (
	"context"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/model"
)

const (
	BackendDurable = "durable"
	BackendLocal   = "local"
)

// RecordRepository 持久化的用户数据仓库
type RecordRepository interface {
	Load(ctx context.Context, userID string) (*model.UserRecord, error)
	Save(ctx context.Context, userID string, patch model.RecordPatch) (*model.WriteResult, error)
}

// RecordBackend 门面在一次会话中选定的存储
type RecordBackend interface {
	// Load 记录不存在时返回 nil
	Load(ctx context.Context) (*model.UserRecord, error)
	Save(ctx context.Context, patch model.RecordPatch) error
	Name() string
	Owner() string
}

// Durable 已登录，读写走文档存储
type Durable struct {
	Repo   RecordRepository
	UserID string
}

func (d *Durable) Load(ctx context.Context) (*model.UserRecord, error) {
	return d.Repo.Load(ctx, d.UserID)
}

func (d *Durable) Save(ctx context.Context, patch model.RecordPatch) error {
	_, err := d.Repo.Save(ctx, d.UserID, patch)
	return err
}

func (d *Durable) Name() string  { return BackendDurable }
func (d *Durable) Owner() string { return d.UserID }

// LocalFallback 未登录，读写走设备本地缓存
type LocalFallback struct {
	Cache localcache.Store
	Key   string
}

func (l *LocalFallback) Load(ctx context.Context) (*model.UserRecord, error) {
	rec, found, err := l.Cache.Load(ctx, l.Key)
	if err != nil || !found {
		return nil, err
	}
	return rec, nil
}

func (l *LocalFallback) Save(ctx context.Context, patch model.RecordPatch) error {
	_, err := l.Cache.Save(ctx, l.Key, patch)
	return err
}

func (l *LocalFallback) Name() string  { return BackendLocal }
func (l *LocalFallback) Owner() string { return l.Key }
