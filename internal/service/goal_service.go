package service

import (
	"context"
	"fmt"
	"math"
	"strings"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
)

type GoalService struct {
	Clock util.Clock
}

func NewGoalService(clock util.Clock) *GoalService {
	return &GoalService{Clock: clock}
}

type CreateGoalRequest struct {
	Title       string `json:"title" binding:"required,max=255"`
	Description string `json:"description" binding:"max=1000"`
	Category    string `json:"category" binding:"required"`
	DueDate     string `json:"dueDate"`
}

type GoalStats struct {
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Percentage int `json:"percentage"`
}

type GoalList struct {
	Goals []model.Goal `json:"goals"`
	Stats GoalStats    `json:"stats"`
}

// GoalMutation Persisted 为 false 表示修改未能持久化，可重试
type GoalMutation struct {
	Goal      *model.Goal  `json:"goal,omitempty"`
	Goals     []model.Goal `json:"goals"`
	Persisted bool         `json:"persisted"`
}

func (s *GoalService) List(ctx context.Context, f *usersync.Facade, category string) (*GoalList, error) {
	if category != "" && category != "all" && !model.GoalCategory(category).Valid() {
		return nil, fmt.Errorf("%w: unknown goal category %q", util.ErrValidation, category)
	}

	goals, ok := f.Goals(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	filtered := make([]model.Goal, 0, len(goals))
	for _, g := range goals {
		if category == "" || category == "all" || string(g.Category) == category {
			filtered = append(filtered, g)
		}
	}
	return &GoalList{Goals: filtered, Stats: GoalCompletionStats(goals)}, nil
}

func (s *GoalService) Add(ctx context.Context, f *usersync.Facade, req CreateGoalRequest) (*GoalMutation, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", util.ErrValidation)
	}
	category := model.GoalCategory(req.Category)
	if !category.Valid() {
		return nil, fmt.Errorf("%w: unknown goal category %q", util.ErrValidation, req.Category)
	}
	if req.DueDate != "" && !validDate(req.DueDate) {
		return nil, fmt.Errorf("%w: dueDate must be YYYY-MM-DD", util.ErrValidation)
	}

	goals, ok := f.Goals(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	goal := model.Goal{
		ID:          newEntryID(),
		Title:       title,
		Description: strings.TrimSpace(req.Description),
		Category:    category,
		Completed:   false,
		DueDate:     req.DueDate,
		CreatedDate: util.Today(s.Clock),
	}
	updated := append(append([]model.Goal{}, goals...), goal)

	return &GoalMutation{
		Goal:      &goal,
		Goals:     updated,
		Persisted: f.SaveGoals(ctx, updated),
	}, nil
}

func (s *GoalService) Toggle(ctx context.Context, f *usersync.Facade, id string) (*GoalMutation, error) {
	goals, ok := f.Goals(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(goals, id, func(g model.Goal) string { return g.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := append([]model.Goal{}, goals...)
	updated[i].Completed = !updated[i].Completed
	goal := updated[i]

	return &GoalMutation{
		Goal:      &goal,
		Goals:     updated,
		Persisted: f.SaveGoals(ctx, updated),
	}, nil
}

func (s *GoalService) Delete(ctx context.Context, f *usersync.Facade, id string) (*GoalMutation, error) {
	goals, ok := f.Goals(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(goals, id, func(g model.Goal) string { return g.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := without(goals, i)
	return &GoalMutation{
		Goals:     updated,
		Persisted: f.SaveGoals(ctx, updated),
	}, nil
}

// GoalCompletionStats 完成率四舍五入到整数百分比
func GoalCompletionStats(goals []model.Goal) GoalStats {
	stats := GoalStats{Total: len(goals)}
	for _, g := range goals {
		if g.Completed {
			stats.Completed++
		}
	}
	if stats.Total > 0 {
		stats.Percentage = int(math.Round(float64(stats.Completed) / float64(stats.Total) * 100))
	}
	return stats
}
