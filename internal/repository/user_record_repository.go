package repository

import (
	"context"
	"errors"
	"fmt"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"
	"study_notebook_backend/pkg/logger"
	"study_notebook_backend/pkg/tracing"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
)

const defaultStoreTimeout = 5 * time.Second

// UserRecordRepository 负责用户数据文档的读取（不存在即创建）和字段级替换写入
type UserRecordRepository struct {
	Store   DocumentStore
	Clock   util.Clock
	Timeout time.Duration
}

func NewUserRecordRepository(store DocumentStore, clock util.Clock, timeout time.Duration) *UserRecordRepository {
	if clock == nil {
		clock = util.NewMonotonicClock()
	}
	if timeout <= 0 {
		timeout = defaultStoreTimeout
	}
	return &UserRecordRepository{
		Store:   store,
		Clock:   clock,
		Timeout: timeout,
	}
}

// Load 读取用户文档，首次访问时创建空骨架
func (r *UserRecordRepository) Load(ctx context.Context, userID string) (rec *model.UserRecord, err error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}

	ctx, span := tracing.StartSpan(ctx, "UserRecordRepository.Load",
		attribute.String("user.id", userID),
		attribute.String("store", r.Store.Name()),
	)
	defer func() { tracing.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	rec, err = r.Store.FindOrCreate(ctx, userID, r.Clock.Now())
	if err != nil {
		logger.Log.Warn("Failed to load user record",
			zap.String("userId", userID),
			zap.String("store", r.Store.Name()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return rec, nil
}

// Save 整体替换 patch 中出现的序列，其他字段保持不变
func (r *UserRecordRepository) Save(ctx context.Context, userID string, patch model.RecordPatch) (result *model.WriteResult, err error) {
	if userID == "" {
		return nil, ErrMissingUserID
	}
	if patch.UserID != nil && *patch.UserID != userID {
		logger.Log.Warn("Rejected user record write for another user",
			zap.String("userId", userID),
			zap.String("declaredUserId", *patch.UserID))
		return nil, ErrUserIDMismatch
	}
	if err := patch.Validate(); err != nil {
		return nil, err
	}

	ctx, span := tracing.StartSpan(ctx, "UserRecordRepository.Save",
		attribute.String("user.id", userID),
		attribute.String("store", r.Store.Name()),
		attribute.Int("fields", len(patch.Fields())),
	)
	defer func() { tracing.EndSpan(span, err) }()

	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()

	fields := patch.WithoutOwner()
	now := r.Clock.Now()
	if err = r.Store.UpsertFields(ctx, userID, fields, now); err != nil {
		logger.Log.Warn("Failed to save user record",
			zap.String("userId", userID),
			zap.String("store", r.Store.Name()),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	owner := userID
	fields.UserID = &owner
	return &model.WriteResult{RecordPatch: fields, LastUpdated: now}, nil
}

func (r *UserRecordRepository) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, r.Timeout)
	defer cancel()
	return r.Store.Ping(ctx)
}

func (r *UserRecordRepository) StoreName() string {
	return r.Store.Name()
}

// IsRetryable 存储故障可重试，格式和权限错误不可重试
func IsRetryable(err error) bool {
	return errors.Is(err, ErrStoreUnavailable)
}
