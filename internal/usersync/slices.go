package usersync

import (
	"context"
	"study_notebook_backend/internal/model"
	"time"
)

var zeroTime time.Time

func loadTyped[T any](ctx context.Context, f *Facade, name model.SliceName) ([]T, bool) {
	value, ok := f.LoadSlice(ctx, name)
	items, _ := value.([]T)
	if items == nil {
		items = []T{}
	}
	return items, ok
}

func (f *Facade) WrongAnswers(ctx context.Context) ([]model.WrongAnswer, bool) {
	return loadTyped[model.WrongAnswer](ctx, f, model.SliceWrongAnswers)
}

func (f *Facade) SaveWrongAnswers(ctx context.Context, items []model.WrongAnswer) bool {
	return f.SaveSlice(ctx, model.SliceWrongAnswers, items)
}

func (f *Facade) Goals(ctx context.Context) ([]model.Goal, bool) {
	return loadTyped[model.Goal](ctx, f, model.SliceGoals)
}

func (f *Facade) SaveGoals(ctx context.Context, items []model.Goal) bool {
	return f.SaveSlice(ctx, model.SliceGoals, items)
}

func (f *Facade) CalendarEvents(ctx context.Context) ([]model.CalendarEvent, bool) {
	return loadTyped[model.CalendarEvent](ctx, f, model.SliceCalendarEvents)
}

func (f *Facade) SaveCalendarEvents(ctx context.Context, items []model.CalendarEvent) bool {
	return f.SaveSlice(ctx, model.SliceCalendarEvents, items)
}

func (f *Facade) ScoreRecords(ctx context.Context) ([]model.ScoreRecord, bool) {
	return loadTyped[model.ScoreRecord](ctx, f, model.SliceScoreRecords)
}

func (f *Facade) SaveScoreRecords(ctx context.Context, items []model.ScoreRecord) bool {
	return f.SaveSlice(ctx, model.SliceScoreRecords, items)
}
