package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/repository"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

var fixedNow = time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC)

func fixedClock() util.Clock {
	return util.NewMonotonicClockFrom(func() time.Time { return fixedNow })
}

type staticIdentity struct {
	userID string
}

func (s staticIdentity) CurrentIdentity(context.Context) (session.Identity, bool) {
	if s.userID == "" {
		return session.Identity{}, false
	}
	return session.Identity{UserID: s.userID}, true
}

// localFacade 未登录的会话，数据写入内存本地缓存
func localFacade() (*usersync.Facade, context.Context) {
	ctx := session.WithDeviceKey(context.Background(), "device-test")
	return usersync.NewFacade(staticIdentity{}, nil, localcache.NewMemoryStore(0, nil)), ctx
}

type unreachableStore struct{}

func (unreachableStore) FindOrCreate(context.Context, string, time.Time) (*model.UserRecord, error) {
	return nil, errors.New("server selection timeout")
}

func (unreachableStore) UpsertFields(context.Context, string, model.RecordPatch, time.Time) error {
	return errors.New("server selection timeout")
}

func (unreachableStore) Ping(context.Context) error { return errors.New("server selection timeout") }
func (unreachableStore) Name() string               { return "unreachable" }

func unavailableFacade() *usersync.Facade {
	repo := repository.NewUserRecordRepository(unreachableStore{}, nil, time.Second)
	return usersync.NewFacade(staticIdentity{userID: "u1"}, repo, localcache.NewMemoryStore(0, nil))
}

func TestGoalServiceLifecycle(t *testing.T) {
	svc := NewGoalService(fixedClock())
	f, ctx := localFacade()

	added, err := svc.Add(ctx, f, CreateGoalRequest{Title: "  Finish Section 1 ", Category: "daily"})
	require.NoError(t, err)
	assert.True(t, added.Persisted)
	assert.Equal(t, "Finish Section 1", added.Goal.Title)
	assert.Equal(t, "2024-03-15", added.Goal.CreatedDate)
	assert.False(t, added.Goal.Completed)
	assert.NotEmpty(t, added.Goal.ID)

	_, err = svc.Add(ctx, f, CreateGoalRequest{Title: "Take PT", Category: "test-day", DueDate: "2024-06-08"})
	require.NoError(t, err)

	toggled, err := svc.Toggle(ctx, f, added.Goal.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Goal.Completed)
	assert.True(t, toggled.Persisted)

	list, err := svc.List(ctx, f, "daily")
	require.NoError(t, err)
	require.Len(t, list.Goals, 1)
	assert.Equal(t, GoalStats{Total: 2, Completed: 1, Percentage: 50}, list.Stats)

	deleted, err := svc.Delete(ctx, f, added.Goal.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Goals, 1)

	list, err = svc.List(ctx, f, "all")
	require.NoError(t, err)
	assert.Len(t, list.Goals, 1)
	assert.Equal(t, "Take PT", list.Goals[0].Title)
}

func TestGoalServiceValidation(t *testing.T) {
	svc := NewGoalService(fixedClock())
	f, ctx := localFacade()

	tests := []struct {
		name string
		req  CreateGoalRequest
	}{
		{"blank title", CreateGoalRequest{Title: "  ", Category: "daily"}},
		{"bad category", CreateGoalRequest{Title: "t", Category: "yearly"}},
		{"bad due date", CreateGoalRequest{Title: "t", Category: "weekly", DueDate: "06/08/2024"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Add(ctx, f, tt.req)
			assert.ErrorIs(t, err, util.ErrValidation)
		})
	}

	_, err := svc.Toggle(ctx, f, "missing")
	assert.ErrorIs(t, err, util.ErrEntryNotFound)
	_, err = svc.List(ctx, f, "yearly")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func TestMutationsRefuseToWriteWhenRecordUnavailable(t *testing.T) {
	f := unavailableFacade()
	ctx := context.Background()

	_, err := NewGoalService(fixedClock()).Add(ctx, f, CreateGoalRequest{Title: "t", Category: "daily"})
	assert.ErrorIs(t, err, ErrRecordUnavailable)

	_, err = NewCalendarService().Add(ctx, f, CreateEventRequest{Title: "t", Date: "2024-03-16"})
	assert.ErrorIs(t, err, ErrRecordUnavailable)

	_, err = NewScoreService().Add(ctx, f, CreateScoreRequest{Date: "2024-03-16", Score: 160})
	assert.ErrorIs(t, err, ErrRecordUnavailable)

	_, err = NewWrongAnswerService(fixedClock()).Add(ctx, f, CreateWrongAnswerRequest{Question: "q", CorrectAnswer: "A"})
	assert.ErrorIs(t, err, ErrRecordUnavailable)
}

func TestGoalStatsRounding(t *testing.T) {
	goals := []model.Goal{{Completed: true}, {}, {}}
	assert.Equal(t, GoalStats{Total: 3, Completed: 1, Percentage: 33}, GoalCompletionStats(goals))
	assert.Equal(t, GoalStats{}, GoalCompletionStats(nil))
}

func TestCalendarService(t *testing.T) {
	svc := NewCalendarService()
	f, ctx := localFacade()

	late, err := svc.Add(ctx, f, CreateEventRequest{Title: "PT 90", Date: "2024-03-20", StartTime: "14:00"})
	require.NoError(t, err)
	assert.Equal(t, model.EventCategoryGoal, late.Event.Category)
	assert.False(t, late.Event.IsCompleted())

	_, err = svc.Add(ctx, f, CreateEventRequest{Title: "Drill", Date: "2024-03-20", StartTime: "08:00", Category: model.EventCategoryAssignment})
	require.NoError(t, err)
	_, err = svc.Add(ctx, f, CreateEventRequest{Title: "April review", Date: "2024-04-01"})
	require.NoError(t, err)

	march, err := svc.List(ctx, f, "2024-03", "")
	require.NoError(t, err)
	require.Len(t, march, 2)
	assert.Equal(t, "Drill", march[0].Title)
	assert.Equal(t, "PT 90", march[1].Title)

	day, err := svc.List(ctx, f, "", "2024-04-01")
	require.NoError(t, err)
	assert.Len(t, day, 1)

	toggled, err := svc.Toggle(ctx, f, late.Event.ID)
	require.NoError(t, err)
	assert.True(t, toggled.Event.IsCompleted())
	toggled, err = svc.Toggle(ctx, f, late.Event.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Event.IsCompleted())

	_, err = svc.Delete(ctx, f, late.Event.ID)
	require.NoError(t, err)
	all, err := svc.List(ctx, f, "", "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.Add(ctx, f, CreateEventRequest{Title: "x", Date: "2024-13-01"})
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = svc.Add(ctx, f, CreateEventRequest{Title: "x", Date: "2024-03-01", StartTime: "9am"})
	assert.ErrorIs(t, err, util.ErrValidation)
	_, err = svc.List(ctx, f, "March", "")
	assert.ErrorIs(t, err, util.ErrValidation)
}

func intPtr(v int) *int { return &v }

func TestScoreService(t *testing.T) {
	svc := NewScoreService()
	f, ctx := localFacade()

	_, err := svc.Add(ctx, f, CreateScoreRequest{Date: "2024-02-01", Score: 150, Reading: intPtr(20), Logic: intPtr(18)})
	require.NoError(t, err)
	_, err = svc.Add(ctx, f, CreateScoreRequest{Date: "2024-01-01", Score: 145, TestType: "diagnostic", Reading: intPtr(15)})
	require.NoError(t, err)
	added, err := svc.Add(ctx, f, CreateScoreRequest{Date: "2024-03-01", Score: 162, TestType: "official"})
	require.NoError(t, err)
	assert.Equal(t, model.ScoreCeiling, added.Score.TotalPossible)

	list, err := svc.List(ctx, f)
	require.NoError(t, err)
	require.Len(t, list.Scores, 3)
	assert.Equal(t, "2024-01-01", list.Scores[0].Date)
	assert.Equal(t, model.TestPractice, list.Scores[1].TestType)
	assert.Equal(t, ScoreStats{Current: 162, Highest: 162, Improvement: 17, Average: 152}, list.Stats)
	assert.Equal(t, []SectionAverage{
		{Section: "Reading", Average: 18, Samples: 2},
		{Section: "Logic", Average: 18, Samples: 1},
		{Section: "Analytical", Average: 0, Samples: 0},
	}, list.Sections)

	for _, req := range []CreateScoreRequest{
		{Date: "2024-03-01", Score: 119},
		{Date: "2024-03-01", Score: 181},
		{Date: "", Score: 160},
		{Date: "2024-03-01", Score: 160, TestType: "mock"},
		{Date: "2024-03-01", Score: 160, Logic: intPtr(-1)},
	} {
		_, err := svc.Add(ctx, f, req)
		assert.ErrorIs(t, err, util.ErrValidation, fmt.Sprintf("%+v", req))
	}

	deleted, err := svc.Delete(ctx, f, added.Score.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.Scores, 2)
}

func TestWrongAnswerService(t *testing.T) {
	svc := NewWrongAnswerService(fixedClock())
	f, ctx := localFacade()

	first, err := svc.Add(ctx, f, CreateWrongAnswerRequest{
		Section:       "Logical Reasoning",
		QuestionType:  "Flaw",
		Question:      "The argument is most vulnerable to criticism because",
		CorrectAnswer: "B",
		Tags:          []string{" causation ", "", "  "},
	})
	require.NoError(t, err)
	assert.Equal(t, "2024-03-15", first.WrongAnswer.Date)
	assert.Equal(t, []string{"causation"}, first.WrongAnswer.Tags)

	_, err = svc.Add(ctx, f, CreateWrongAnswerRequest{Date: "2024-01-02", Section: "Reading Comprehension", QuestionType: "Main Point", Question: "Which best states the main point?", CorrectAnswer: "D"})
	require.NoError(t, err)
	_, err = svc.Add(ctx, f, CreateWrongAnswerRequest{Date: "2024-03-10", Section: "Logical Reasoning", QuestionType: "Flaw", Question: "Which flaw?", CorrectAnswer: "A"})
	require.NoError(t, err)

	list, err := svc.List(ctx, f, "Logical Reasoning", "")
	require.NoError(t, err)
	assert.Len(t, list.WrongAnswers, 2)

	list, err = svc.List(ctx, f, "all", "MAIN")
	require.NoError(t, err)
	require.Len(t, list.WrongAnswers, 1)
	assert.Equal(t, "D", list.WrongAnswers[0].CorrectAnswer)

	assert.Equal(t, 3, list.Stats.Total)
	assert.Equal(t, 2, list.Stats.ThisWeek)
	assert.Equal(t, "Flaw", list.Stats.MostCommonType)
	assert.Equal(t, []TypeCount{{"Flaw", 2}, {"Main Point", 1}}, list.Stats.TypeCounts)

	_, err = svc.Add(ctx, f, CreateWrongAnswerRequest{Question: " ", CorrectAnswer: "A"})
	assert.ErrorIs(t, err, util.ErrValidation)

	deleted, err := svc.Delete(ctx, f, first.WrongAnswer.ID)
	require.NoError(t, err)
	assert.Len(t, deleted.WrongAnswers, 2)
	_, err = svc.Delete(ctx, f, first.WrongAnswer.ID)
	assert.ErrorIs(t, err, util.ErrEntryNotFound)
}

func TestWrongAnswerStatsWeekBoundary(t *testing.T) {
	svc := NewWrongAnswerService(fixedClock())

	stats := svc.Stats([]model.WrongAnswer{
		{ID: "w1", Date: "2024-03-08"},
		{ID: "w2", Date: "2024-03-09"},
		{ID: "w3", Date: "2024-03-15"},
		{ID: "w4", Date: "not-a-date"},
	})

	assert.Equal(t, 4, stats.Total)
	assert.Equal(t, 2, stats.ThisWeek)
}

func TestFeatureServicesOwnTheirSlice(t *testing.T) {
	f, ctx := localFacade()

	_, err := NewGoalService(fixedClock()).Add(ctx, f, CreateGoalRequest{Title: "g", Category: "monthly"})
	require.NoError(t, err)
	_, err = NewScoreService().Add(ctx, f, CreateScoreRequest{Date: "2024-03-01", Score: 170})
	require.NoError(t, err)

	rec, ok := f.Load(ctx)
	require.True(t, ok)
	assert.Len(t, rec.Goals, 1)
	assert.Len(t, rec.ScoreRecords, 1)
	assert.Empty(t, rec.WrongAnswers)
	assert.Empty(t, rec.CalendarEvents)
}

func newAuthFixture(t *testing.T) (*AuthService, *repository.MemoryDocumentStore, localcache.Store) {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.UserRecordRow{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	store := repository.NewMemoryDocumentStore()
	records := repository.NewUserRecordRepository(store, nil, time.Second)
	cache := localcache.NewMemoryStore(0, nil)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour}}

	return NewAuthService(repository.NewUserRepository(db), records, cache, cfg), store, cache
}

func TestAuthServiceRegisterLoginLogout(t *testing.T) {
	svc, store, cache := newAuthFixture(t)
	ctx := context.Background()

	user := &model.User{Name: "Kim", Email: "Kim@Example.com", Password: "correct horse"}
	require.NoError(t, svc.Register(ctx, user))
	assert.NotEmpty(t, user.ID)
	assert.Equal(t, "kim", user.Username)
	assert.NotEqual(t, "correct horse", user.Password)
	// 注册时已创建空文档
	assert.Equal(t, 1, store.Len())

	err := svc.Register(ctx, &model.User{Name: "Kim", Email: "kim@example.com", Password: "another one"})
	assert.ErrorIs(t, err, util.ErrEmailRegistered)

	_, err = svc.Login(ctx, "kim@example.com", "wrong password", "device-1")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)
	_, err = svc.Login(ctx, "nobody@example.com", "correct horse", "device-1")
	assert.ErrorIs(t, err, util.ErrInvalidCredentials)

	res, err := svc.Login(ctx, "kim@example.com", "correct horse", "device-1")
	require.NoError(t, err)
	claims, err := util.ParseJWT(res.Token, svc.Cfg.JWT.Secret)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	state := svc.Session(ctx, session.Identity{UserID: user.ID}, true, "device-1")
	assert.True(t, state.Authenticated)
	assert.Equal(t, user.ID, state.BoundUserID)

	goals := []model.Goal{}
	_, err = cache.Save(ctx, "device-1", model.RecordPatch{Goals: &goals})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, "device-1"))
	state = svc.Session(ctx, session.Identity{}, false, "device-1")
	assert.False(t, state.Authenticated)
	assert.Empty(t, state.BoundUserID)

	_, found, err := cache.Load(ctx, "device-1")
	require.NoError(t, err)
	assert.True(t, found)

	profile, err := svc.Profile(user.ID)
	require.NoError(t, err)
	assert.Equal(t, "kim@example.com", profile.Email)
	_, err = svc.Profile("missing")
	assert.ErrorIs(t, err, util.ErrUserNotFound)
}

func TestUserDataServiceUpdate(t *testing.T) {
	records := repository.NewUserRecordRepository(repository.NewMemoryDocumentStore(), nil, time.Second)
	svc := NewUserDataService(records)
	ctx := context.Background()

	res, err := svc.Update(ctx, "u1", []byte(`{"userId":"u1","goals":[{"id":"g1","title":"t","category":"daily","completed":false,"createdDate":"2024-01-01"}]}`))
	require.NoError(t, err)
	assert.Equal(t, []model.SliceName{model.SliceGoals}, res.Fields())

	_, err = svc.Update(ctx, "u1", []byte(`{"userId":"u2","goals":[]}`))
	assert.ErrorIs(t, err, repository.ErrUserIDMismatch)

	_, err = svc.Update(ctx, "u1", []byte(`["goals"]`))
	assert.ErrorIs(t, err, model.ErrInvalidPatch)

	rec, err := svc.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, rec.Goals, 1)
}
