package service

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
)

type ScoreService struct{}

func NewScoreService() *ScoreService {
	return &ScoreService{}
}

type CreateScoreRequest struct {
	Date       string `json:"date" binding:"required"`
	Score      int    `json:"score" binding:"required"`
	Section    string `json:"section"`
	Notes      string `json:"notes" binding:"max=2000"`
	Reading    *int   `json:"reading"`
	Logic      *int   `json:"logic"`
	Analytical *int   `json:"analytical"`
	TestType   string `json:"testType"`
}

type ScoreStats struct {
	Current     int `json:"current"`
	Highest     int `json:"highest"`
	Improvement int `json:"improvement"`
	Average     int `json:"average"`
}

type SectionAverage struct {
	Section string `json:"section"`
	Average int    `json:"average"`
	Samples int    `json:"samples"`
}

type ScoreList struct {
	Scores   []model.ScoreRecord `json:"scores"`
	Stats    ScoreStats          `json:"stats"`
	Sections []SectionAverage    `json:"sections"`
}

type ScoreMutation struct {
	Score     *model.ScoreRecord  `json:"score,omitempty"`
	Scores    []model.ScoreRecord `json:"scores"`
	Persisted bool                `json:"persisted"`
}

func (s *ScoreService) List(ctx context.Context, f *usersync.Facade) (*ScoreList, error) {
	scores, ok := f.ScoreRecords(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	sorted := sortByDate(scores)
	return &ScoreList{
		Scores:   sorted,
		Stats:    ComputeScoreStats(sorted),
		Sections: SectionAverages(sorted),
	}, nil
}

// Add 满分固定为 180，写入后按日期排序
func (s *ScoreService) Add(ctx context.Context, f *usersync.Facade, req CreateScoreRequest) (*ScoreMutation, error) {
	if !validDate(req.Date) {
		return nil, fmt.Errorf("%w: date must be YYYY-MM-DD", util.ErrValidation)
	}
	if req.Score < model.ScoreFloor || req.Score > model.ScoreCeiling {
		return nil, fmt.Errorf("%w: score must be between %d and %d", util.ErrValidation, model.ScoreFloor, model.ScoreCeiling)
	}
	for name, v := range map[string]*int{"reading": req.Reading, "logic": req.Logic, "analytical": req.Analytical} {
		if v != nil && *v < 0 {
			return nil, fmt.Errorf("%w: %s must not be negative", util.ErrValidation, name)
		}
	}

	testType := model.TestType(req.TestType)
	if testType == "" {
		testType = model.TestPractice
	}
	if !testType.Valid() {
		return nil, fmt.Errorf("%w: unknown test type %q", util.ErrValidation, req.TestType)
	}

	scores, ok := f.ScoreRecords(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	record := model.ScoreRecord{
		ID:            newEntryID(),
		Date:          req.Date,
		Score:         req.Score,
		TotalPossible: model.ScoreCeiling,
		Section:       strings.TrimSpace(req.Section),
		Notes:         strings.TrimSpace(req.Notes),
		Reading:       req.Reading,
		Logic:         req.Logic,
		Analytical:    req.Analytical,
		TestType:      testType,
	}
	updated := sortByDate(append(append([]model.ScoreRecord{}, scores...), record))

	return &ScoreMutation{
		Score:     &record,
		Scores:    updated,
		Persisted: f.SaveScoreRecords(ctx, updated),
	}, nil
}

func (s *ScoreService) Delete(ctx context.Context, f *usersync.Facade, id string) (*ScoreMutation, error) {
	scores, ok := f.ScoreRecords(ctx)
	if !ok {
		return nil, ErrRecordUnavailable
	}

	i := indexOf(scores, id, func(r model.ScoreRecord) string { return r.ID })
	if i < 0 {
		return nil, util.ErrEntryNotFound
	}

	updated := without(scores, i)
	return &ScoreMutation{
		Scores:    updated,
		Persisted: f.SaveScoreRecords(ctx, updated),
	}, nil
}

func sortByDate(scores []model.ScoreRecord) []model.ScoreRecord {
	out := append([]model.ScoreRecord{}, scores...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// ComputeScoreStats scores 需已按日期升序
func ComputeScoreStats(scores []model.ScoreRecord) ScoreStats {
	if len(scores) == 0 {
		return ScoreStats{}
	}

	stats := ScoreStats{
		Current: scores[len(scores)-1].Score,
		Highest: scores[0].Score,
	}
	sum := 0
	for _, r := range scores {
		sum += r.Score
		if r.Score > stats.Highest {
			stats.Highest = r.Score
		}
	}
	stats.Improvement = stats.Current - scores[0].Score
	stats.Average = int(math.Round(float64(sum) / float64(len(scores))))
	return stats
}

// SectionAverages 只统计填写了分项成绩的记录
func SectionAverages(scores []model.ScoreRecord) []SectionAverage {
	sections := []struct {
		name string
		get  func(model.ScoreRecord) *int
	}{
		{"Reading", func(r model.ScoreRecord) *int { return r.Reading }},
		{"Logic", func(r model.ScoreRecord) *int { return r.Logic }},
		{"Analytical", func(r model.ScoreRecord) *int { return r.Analytical }},
	}

	out := make([]SectionAverage, 0, len(sections))
	for _, sec := range sections {
		sum, n := 0, 0
		for _, r := range scores {
			if v := sec.get(r); v != nil {
				sum += *v
				n++
			}
		}
		avg := SectionAverage{Section: sec.name, Samples: n}
		if n > 0 {
			avg.Average = int(math.Round(float64(sum) / float64(n)))
		}
		out = append(out, avg)
	}
	return out
}
