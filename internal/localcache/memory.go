package localcache

import (
	"context"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"
	"sync"
)

type MemoryStore struct {
	mu       sync.RWMutex
	records  map[string][]byte
	bindings map[string]string
	maxBytes int
	clock    util.Clock
}

func NewMemoryStore(maxBytes int, clock util.Clock) *MemoryStore {
	if clock == nil {
		clock = util.NewMonotonicClock()
	}
	return &MemoryStore{
		records:  make(map[string][]byte),
		bindings: make(map[string]string),
		maxBytes: maxBytes,
		clock:    clock,
	}
}

func (s *MemoryStore) Load(ctx context.Context, key string) (*model.UserRecord, bool, error) {
	if key == "" {
		return nil, false, ErrEmptyKey
	}
	s.mu.RLock()
	payload, ok := s.records[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	rec, err := decode(payload)
	if err != nil {
		return nil, false, err
	}
	return rec, true, nil
}

func (s *MemoryStore) Save(ctx context.Context, key string, patch model.RecordPatch) (*model.UserRecord, error) {
	if key == "" {
		return nil, ErrEmptyKey
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var existing *model.UserRecord
	if payload, ok := s.records[key]; ok {
		rec, err := decode(payload)
		if err != nil {
			return nil, err
		}
		existing = rec
	}

	rec, payload, err := merge(existing, key, patch, s.clock, s.maxBytes)
	if err != nil {
		return nil, err
	}
	s.records[key] = payload
	return rec, nil
}

func (s *MemoryStore) BindIdentity(ctx context.Context, deviceKey, userID string) error {
	if deviceKey == "" {
		return ErrEmptyKey
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bindings[deviceKey] = userID
	return nil
}

func (s *MemoryStore) BoundIdentity(ctx context.Context, deviceKey string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	userID, ok := s.bindings[deviceKey]
	return userID, ok, nil
}

func (s *MemoryStore) ClearBinding(ctx context.Context, deviceKey string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.bindings, deviceKey)
	return nil
}

func (s *MemoryStore) Name() string {
	return "memory"
}

func (s *MemoryStore) Close() error {
	return nil
}
