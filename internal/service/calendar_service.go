package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
	"time"
)

type CalendarService struct{}

func NewCalendarService() *CalendarService {
	return &CalendarService{}
}

type CreateEventRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Date        string `json:"date" binding:"required"`
	Category    string `json:"category"`
	Description string `json:"description" binding:"max=1000"`
	StartTime   string `json:"startTime"`
	EndTime     string `json:"endTime"`
}

type EventMutation struct {
	Event     *model.CalendarEvent  `json:"event,omitempty"`
	Events    []model.CalendarEvent `json:"events"`
	Persisted bool                  `json:"persisted"`
}

// List 按月份（YYYY-MM）或日期过滤，结果按日期和开始时间排序
func (s *CalendarService) List(ctx context.Context, f *usersync.Facade, month, date string) ([]model.CalendarEvent, error) {
	if month != "" {
		if _, err := time.Parse(util.MonthFormat, month); err != nil {
			return nil, fmt.Errorf("%w: month must be YYYY-MM", util.ErrValidation)
		}
	}
	if date != "" && !validDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", util.ErrValidation)
	}

	events, ok := f.CalendarEvents(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	out := make([]model.CalendarEvent, 0, len(events))
	for _, e := range events {
		if month != "" && !strings.HasPrefix(e.Date, month+"-") {
			continue
		}
		if date != "" && e.Date != date {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Date != out[j].Date {
			return out[i].Date < out[j].Date
		}
		return out[i].StartTime < out[j].StartTime
	})
	return out, nil
}

func (s *CalendarService) Add(ctx context.Context, f *usersync.Facade, req CreateEventRequest) (*EventMutation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	if !validDate(req.Date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", util.ErrValidation)
	}
	for _, t := range []string{req.StartTime, req.EndTime} {
		if t == "" {
			continue
		}
		if _, err := time.Parse(util.ClockFormat, t); err != nil {
			return nil, fmt.Errorf("%w: times must be HH:MM", util.ErrValidation)
		}
	}

	category := req.Category
	if category == "" {
		category = model.EventCategoryGoal
	}

	events, ok := f.CalendarEvents(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	completed := false
	event := model.CalendarEvent{
		ID:          newEntryID(),
		Title:       title,
		Date:        req.Date,
		Category:    category,
		Description: strings.TrimSpace(req.Description),
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Completed:   &completed,
	}
	updated := append(append([]model.CalendarEvent{}, events...), event)

	return &EventMutation{
		Event:     &event,
		Events:    updated,
		Persisted: f.SaveCalendarEvents(ctx, updated),
	}, nil
}

func (s *CalendarService) Toggle(ctx context.Context, f *usersync.Facade, id string) (*EventMutation, error) {
	events, ok := f.CalendarEvents(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(events, id, func(e model.CalendarEvent) string { return e.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := append([]model.CalendarEvent{}, events...)
	completed := !updated[i].IsCompleted()
	updated[i].Completed = &completed
	event := updated[i]

	return &EventMutation{
		Event:     &event,
		Events:    updated,
		Persisted: f.SaveCalendarEvents(ctx, updated),
	}, nil
}

func (s *CalendarService) Delete(ctx context.Context, f *usersync.Facade, id string) (*EventMutation, error) {
	events, ok := f.CalendarEvents(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(events, id, func(e model.CalendarEvent) string { return e.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := without(events, i)
	return &EventMutation{
		Events:    updated,
		Persisted: f.SaveCalendarEvents(ctx, updated),
	}, nil
}
