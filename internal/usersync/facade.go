package usersync

import (
	"context"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/pkg/logger"
	"study_notebook_backend/pkg/monitoring"
	"sync"

	"go.uber.org/zap"
)

type Mode int

const (
	ModeUnresolved Mode = iota
	ModeBound
	ModeLocal
)

func (m Mode) String() string {
	switch m {
	case ModeBound:
		return "bound"
	case ModeLocal:
		return "local"
	}
	return "unresolved"
}

// IdentitySource 当前身份查询
type IdentitySource interface {
	CurrentIdentity(ctx context.Context) (session.Identity, bool)
}

// Facade 功能模块读写用户数据的唯一入口。
// 第一次使用时根据身份选定存储，之后保持不变，登录状态变化需要调用 Refresh。
type Facade struct {
	identities IdentitySource
	repo       RecordRepository
	cache      localcache.Store

	mu       sync.Mutex
	mode     Mode
	backend  RecordBackend
	identity session.Identity
}

func NewFacade(identities IdentitySource, repo RecordRepository, cache localcache.Store) *Facade {
	return &Facade{
		identities: identities,
		repo:       repo,
		cache:      cache,
	}
}

func (f *Facade) resolve(ctx context.Context) RecordBackend {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.mode != ModeUnresolved {
		return f.backend
	}

	if identity, ok := f.identities.CurrentIdentity(ctx); ok {
		f.mode = ModeBound
		f.identity = identity
		f.backend = &Durable{Repo: f.repo, UserID: identity.UserID}
	} else {
		f.mode = ModeLocal
		f.identity = session.Identity{}
		f.backend = &LocalFallback{Cache: f.cache, Key: session.DeviceKeyFrom(ctx)}
	}

	logger.Log.Debug("User record backend resolved",
		zap.String("mode", f.mode.String()),
		zap.String("owner", f.backend.Owner()))
	return f.backend
}

// Mode 当前状态，未使用过时为 ModeUnresolved
func (f *Facade) Mode() Mode {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mode
}

// Identity Bound 状态下的身份
func (f *Facade) Identity(ctx context.Context) (session.Identity, bool) {
	f.resolve(ctx)
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.identity, f.mode == ModeBound
}

// Refresh 重新查询身份，登录或登出后调用
func (f *Facade) Refresh(ctx context.Context) Mode {
	f.mu.Lock()
	f.mode = ModeUnresolved
	f.backend = nil
	f.identity = session.Identity{}
	f.mu.Unlock()

	f.resolve(ctx)
	return f.Mode()
}

// Load 读取整条记录，失败时返回空骨架和 false
func (f *Facade) Load(ctx context.Context) (*model.UserRecord, bool) {
	backend := f.resolve(ctx)

	rec, err := backend.Load(ctx)
	monitoring.RecordSync("load", backend.Name(), err == nil)
	if err != nil {
		logger.Log.Warn("Failed to load user record",
			zap.String("backend", backend.Name()),
			zap.String("owner", backend.Owner()),
			zap.Error(err))
		return model.NewSkeleton(backend.Owner(), zeroTime), false
	}
	if rec == nil {
		return model.NewSkeleton(backend.Owner(), zeroTime), true
	}
	return rec.Normalize(), true
}

// LoadSlice 读取一个序列，记录或字段不存在时返回空序列
func (f *Facade) LoadSlice(ctx context.Context, name model.SliceName) (any, bool) {
	rec, ok := f.Load(ctx)
	value, err := rec.Slice(name)
	if err != nil {
		logger.Log.Warn("Unknown user record slice", zap.String("slice", string(name)))
		return nil, false
	}
	return value, ok
}

// SaveSlice 把 value 作为单字段 patch 整体替换对应序列。
// 返回 false 表示没有持久化，调用方的内存状态保持不变，可以重试。
func (f *Facade) SaveSlice(ctx context.Context, name model.SliceName, value any) bool {
	backend := f.resolve(ctx)

	patch, err := model.NewSlicePatch(name, value)
	if err == nil {
		err = backend.Save(ctx, patch)
	}

	monitoring.RecordSync("save", backend.Name(), err == nil)
	if err != nil {
		logger.Log.Warn("Failed to persist user record slice",
			zap.String("backend", backend.Name()),
			zap.String("owner", backend.Owner()),
			zap.String("slice", string(name)),
			zap.Error(err))
		return false
	}
	return true
}
