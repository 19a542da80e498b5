package repository

import (
	"context"
	"study_notebook_backend/internal/model"
	"sync"
	"sync/atomic"
	"time"
)

// MemoryDocumentStore 进程内文档存储，用于开发环境和测试
type MemoryDocumentStore struct {
	mu      sync.RWMutex
	records map[string]*model.UserRecord
	calls   atomic.Int64
}

func NewMemoryDocumentStore() *MemoryDocumentStore {
	return &MemoryDocumentStore{records: make(map[string]*model.UserRecord)}
}

func (s *MemoryDocumentStore) FindOrCreate(ctx context.Context, userID string, now time.Time) (*model.UserRecord, error) {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = model.NewSkeleton(userID, now)
		s.records[userID] = rec
	}
	return rec.Clone(), nil
}

func (s *MemoryDocumentStore) UpsertFields(ctx context.Context, userID string, patch model.RecordPatch, now time.Time) error {
	s.calls.Add(1)
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.records[userID]
	if !ok {
		rec = model.NewSkeleton(userID, now)
		s.records[userID] = rec
	}
	rec.Apply(patch)
	rec.LastUpdated = now
	return nil
}

func (s *MemoryDocumentStore) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (s *MemoryDocumentStore) Name() string {
	return "memory"
}

// Calls 读写调用次数
func (s *MemoryDocumentStore) Calls() int64 {
	return s.calls.Load()
}

// Len 已保存的文档数
func (s *MemoryDocumentStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
