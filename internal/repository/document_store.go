package repository

import (
	"context"
	"errors"
	"study_notebook_backend/internal/model"
	"time"
)

var (
	// ErrUserIDMismatch 写入数据声明的 userId 与当前身份不一致
	ErrUserIDMismatch = errors.New("userId does not match the bound identity")
	// ErrStoreUnavailable 文档存储不可用或超时，调用方可重试
	ErrStoreUnavailable = errors.New("document store unavailable")
	ErrMissingUserID    = errors.New("user id is required")
)

// DocumentStore 以 userId 为键的用户数据文档存储
type DocumentStore interface {
	// FindOrCreate 读取文档，不存在时原子地创建空骨架
	FindOrCreate(ctx context.Context, userID string, now time.Time) (*model.UserRecord, error)
	// UpsertFields 整体替换 patch 中出现的序列并刷新 lastUpdated，文档不存在时创建
	UpsertFields(ctx context.Context, userID string, patch model.RecordPatch, now time.Time) error
	Ping(ctx context.Context) error
	Name() string
}
