package localcache

import (
	"context"
	"strings"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T, maxBytes int) *RedisStore {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewRedisStore(rdb, "test", maxBytes, util.NewMonotonicClock())
}

func newSQLiteStore(t *testing.T, maxBytes int) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(":memory:", maxBytes, util.NewMonotonicClock())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func stores(t *testing.T, maxBytes int) map[string]Store {
	return map[string]Store{
		"memory": NewMemoryStore(maxBytes, nil),
		"sqlite": newSQLiteStore(t, maxBytes),
		"redis":  newRedisStore(t, maxBytes),
	}
}

func TestLoadMissingRecord(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			rec, found, err := s.Load(context.Background(), "device-1")
			require.NoError(t, err)
			assert.False(t, found)
			assert.Nil(t, rec)
		})
	}
}

func TestSaveThenLoadRoundTrip(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			goals := []model.Goal{{ID: "g1", Title: "Untimed RC", Category: model.GoalDaily, CreatedDate: "2024-03-01"}}

			saved, err := s.Save(ctx, "device-1", model.RecordPatch{Goals: &goals})
			require.NoError(t, err)
			assert.Equal(t, goals, saved.Goals)

			rec, found, err := s.Load(ctx, "device-1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, goals, rec.Goals)
			assert.Empty(t, rec.ScoreRecords)
			assert.True(t, rec.LastUpdated.Equal(saved.LastUpdated))
		})
	}
}

func TestSaveReplacesOnlyPresentFields(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			scores := []model.ScoreRecord{{ID: "s1", Date: "2024-03-02", Score: 165, TotalPossible: model.ScoreCeiling}}
			_, err := s.Save(ctx, "device-1", model.RecordPatch{ScoreRecords: &scores})
			require.NoError(t, err)

			wrong := []model.WrongAnswer{{ID: "w1", Question: "Which weakens?", CorrectAnswer: "C", Tags: []string{"weaken"}}}
			_, err = s.Save(ctx, "device-1", model.RecordPatch{WrongAnswers: &wrong})
			require.NoError(t, err)

			rec, _, err := s.Load(ctx, "device-1")
			require.NoError(t, err)
			assert.Equal(t, scores, rec.ScoreRecords)
			assert.Equal(t, wrong, rec.WrongAnswers)
		})
	}
}

func TestSaveRejectsOversizedRecord(t *testing.T) {
	for name, s := range stores(t, 256) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			wrong := []model.WrongAnswer{{ID: "w1", Question: strings.Repeat("x", 512), CorrectAnswer: "A"}}

			_, err := s.Save(ctx, "device-1", model.RecordPatch{WrongAnswers: &wrong})
			assert.ErrorIs(t, err, ErrQuotaExceeded)

			_, found, err := s.Load(ctx, "device-1")
			require.NoError(t, err)
			assert.False(t, found)
		})
	}
}

func TestSaveRejectsEmptyKeyAndPatch(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			goals := []model.Goal{}
			_, err := s.Save(context.Background(), "", model.RecordPatch{Goals: &goals})
			assert.ErrorIs(t, err, ErrEmptyKey)

			_, err = s.Save(context.Background(), "device-1", model.RecordPatch{})
			assert.ErrorIs(t, err, model.ErrInvalidPatch)
		})
	}
}

func TestClearBindingKeepsRecords(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.BindIdentity(ctx, "device-1", "u1"))

			userID, bound, err := s.BoundIdentity(ctx, "device-1")
			require.NoError(t, err)
			assert.True(t, bound)
			assert.Equal(t, "u1", userID)

			events := []model.CalendarEvent{{ID: "e1", Title: "PT", Date: "2024-03-03", Category: model.EventCategoryGoal}}
			_, err = s.Save(ctx, "device-1", model.RecordPatch{CalendarEvents: &events})
			require.NoError(t, err)

			require.NoError(t, s.ClearBinding(ctx, "device-1"))
			_, bound, err = s.BoundIdentity(ctx, "device-1")
			require.NoError(t, err)
			assert.False(t, bound)

			rec, found, err := s.Load(ctx, "device-1")
			require.NoError(t, err)
			require.True(t, found)
			assert.Equal(t, events, rec.CalendarEvents)
		})
	}
}

func TestConcurrentSavesOnDifferentFields(t *testing.T) {
	for name, s := range stores(t, 0) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			goals := []model.Goal{{ID: "g1", Title: "t", Category: model.GoalWeekly}}
			events := []model.CalendarEvent{{ID: "e1", Title: "t", Date: "2024-03-04"}}

			var wg sync.WaitGroup
			wg.Add(2)
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "device-1", model.RecordPatch{Goals: &goals})
				assert.NoError(t, err)
			}()
			go func() {
				defer wg.Done()
				_, err := s.Save(ctx, "device-1", model.RecordPatch{CalendarEvents: &events})
				assert.NoError(t, err)
			}()
			wg.Wait()

			rec, _, err := s.Load(ctx, "device-1")
			require.NoError(t, err)
			assert.Equal(t, goals, rec.Goals)
			assert.Equal(t, events, rec.CalendarEvents)
		})
	}
}

func TestNewSelectsVariant(t *testing.T) {
	s, err := New(config.LocalCacheConfig{Type: config.LocalCacheMemory}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "memory", s.Name())

	_, err = New(config.LocalCacheConfig{Type: config.LocalCacheRedis}, nil, nil)
	assert.Error(t, err)

	_, err = New(config.LocalCacheConfig{Type: "indexeddb"}, nil, nil)
	assert.Error(t, err)
}
