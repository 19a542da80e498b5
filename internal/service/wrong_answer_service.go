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

type WrongAnswerService struct {
	Clock util.Clock
}

func NewWrongAnswerService(clock util.Clock) *WrongAnswerService {
	return &WrongAnswerService{Clock: clock}
}

type CreateWrongAnswerRequest struct {
	Date          string   `json:"date"`
	Section       string   `json:"section"`
	QuestionType  string   `json:"questionType"`
	Question      string   `json:"question" binding:"required"`
	YourAnswer    string   `json:"yourAnswer"`
	CorrectAnswer string   `json:"correctAnswer" binding:"required"`
	Explanation   string   `json:"explanation"`
	Tags          []string `json:"tags"`
}

type TypeCount struct {
	QuestionType string `json:"questionType"`
	Count        int    `json:"count"`
}

type WrongAnswerStats struct {
	Total          int         `json:"total"`
	MostCommonType string      `json:"mostCommonType"`
	ThisWeek       int         `json:"thisWeek"`
	TypeCounts     []TypeCount `json:"typeCounts"`
}

type WrongAnswerList struct {
	WrongAnswers []model.WrongAnswer `json:"wrongAnswers"`
	Stats        WrongAnswerStats    `json:"stats"`
}

type WrongAnswerMutation struct {
	WrongAnswer  *model.WrongAnswer  `json:"wrongAnswer,omitempty"`
	WrongAnswers []model.WrongAnswer `json:"wrongAnswers"`
	Persisted    bool                `json:"persisted"`
}

// List section 为空或 all 时不过滤，q 匹配题目和题型（不区分大小写）
func (s *WrongAnswerService) List(ctx context.Context, f *usersync.Facade, section, q string) (*WrongAnswerList, error) {
	answers, ok := f.WrongAnswers(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	needle := strings.ToLower(strings.TrimSpace(q))
	filtered := make([]model.WrongAnswer, 0, len(answers))
	for _, a := range answers {
		if section != "" && section != "all" && a.Section != section {
			continue
		}
		if needle != "" &&
			!strings.Contains(strings.ToLower(a.Question), needle) &&
			!strings.Contains(strings.ToLower(a.QuestionType), needle) {
			continue
		}
		filtered = append(filtered, a)
	}

	return &WrongAnswerList{
		WrongAnswers: filtered,
		Stats:        s.Stats(answers),
	}, nil
}

func (s *WrongAnswerService) Add(ctx context.Context, f *usersync.Facade, req CreateWrongAnswerRequest) (*WrongAnswerMutation, error) {
	question := strings.TrimSpace(req.Question)
	correct := strings.TrimSpace(req.CorrectAnswer)
	if question == "" || correct == "" {
		return nil, fmt.Errorf("%w: question and correctAnswer are required", util.ErrValidation)
	}

	date := req.Date
	if date == "" {
		date = util.Today(s.Clock)
	} else if !validDate(date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", util.ErrValidation)
	}

	answers, ok := f.WrongAnswers(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	entry := model.WrongAnswer{
		ID:            newEntryID(),
		Date:          date,
		Section:       strings.TrimSpace(req.Section),
		QuestionType:  strings.TrimSpace(req.QuestionType),
		Question:      question,
		YourAnswer:    strings.TrimSpace(req.YourAnswer),
		CorrectAnswer: correct,
		Explanation:   strings.TrimSpace(req.Explanation),
		Tags:          CleanTags(req.Tags),
	}
	updated := append(append([]model.WrongAnswer{}, answers...), entry)

	return &WrongAnswerMutation{
		WrongAnswer:  &entry,
		WrongAnswers: updated,
		Persisted:    f.SaveWrongAnswers(ctx, updated),
	}, nil
}

func (s *WrongAnswerService) Delete(ctx context.Context, f *usersync.Facade, id string) (*WrongAnswerMutation, error) {
	answers, ok := f.WrongAnswers(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(answers, id, func(a model.WrongAnswer) string { return a.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := without(answers, i)
	return &WrongAnswerMutation{
		WrongAnswers: updated,
		Persisted:    f.SaveWrongAnswers(ctx, updated),
	}, nil
}

// Stats 本周指最近 7 天（含今天）
func (s *WrongAnswerService) Stats(answers []model.WrongAnswer) WrongAnswerStats {
	stats := WrongAnswerStats{Total: len(answers), TypeCounts: []TypeCount{}}

	today, _ := time.Parse(util.DateFormat, util.Today(s.Clock))
	weekStart := today.AddDate(0, 0, -6)

	counts := map[string]int{}
	for _, a := range answers {
		if a.QuestionType != "" {
			counts[a.QuestionType]++
		}
		if d, err := time.Parse(util.DateFormat, a.Date); err == nil && !d.Before(weekStart) {
			stats.ThisWeek++
		}
	}

	for t, n := range counts {
		stats.TypeCounts = append(stats.TypeCounts, TypeCount{QuestionType: t, Count: n})
	}
	sort.Slice(stats.TypeCounts, func(i, j int) bool {
		if stats.TypeCounts[i].Count != stats.TypeCounts[j].Count {
			return stats.TypeCounts[i].Count > stats.TypeCounts[j].Count
		}
		return stats.TypeCounts[i].QuestionType < stats.TypeCounts[j].QuestionType
	})
	if len(stats.TypeCounts) > 0 {
		stats.MostCommonType = stats.TypeCounts[0].QuestionType
	}
	return stats
}

// CleanTags 去掉首尾空白和空标签
func CleanTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}
