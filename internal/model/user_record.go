package model

import (
	"fmt"
	"time"
)

// SliceName UserRecord 的顶层序列字段
type SliceName string

const (
	SliceWrongAnswers   SliceName = "wrongAnswers"
	SliceGoals          SliceName = "goals"
	SliceCalendarEvents SliceName = "calendarEvents"
	SliceScoreRecords   SliceName = "scoreRecords"
)

var AllSlices = []SliceName{SliceWrongAnswers, SliceGoals, SliceCalendarEvents, SliceScoreRecords}

func ParseSliceName(s string) (SliceName, error) {
	for _, name := range AllSlices {
		if string(name) == s {
			return name, nil
		}
	}
	return "", fmt.Errorf("unknown slice %q", s)
}

// WrongAnswer 错题本条目
// swagger:model WrongAnswer
type WrongAnswer struct {
	ID            string   `json:"id" bson:"id"`
	Date          string   `json:"date" bson:"date"`
	Section       string   `json:"section" bson:"section"`
	QuestionType  string   `json:"questionType" bson:"questionType"`
	Question      string   `json:"question" bson:"question"`
	YourAnswer    string   `json:"yourAnswer" bson:"yourAnswer"`
	CorrectAnswer string   `json:"correctAnswer" bson:"correctAnswer"`
	Explanation   string   `json:"explanation" bson:"explanation"`
	Tags          []string `json:"tags" bson:"tags"`
}

type GoalCategory string

const (
	GoalDaily   GoalCategory = "daily"
	GoalWeekly  GoalCategory = "weekly"
	GoalMonthly GoalCategory = "monthly"
	GoalTestDay GoalCategory = "test-day"
)

func (c GoalCategory) Valid() bool {
	switch c {
	case GoalDaily, GoalWeekly, GoalMonthly, GoalTestDay:
		return true
	}
	return false
}

// Goal 学习目标，CreatedDate 创建后不再修改
// swagger:model Goal
type Goal struct {
	ID          string       `json:"id" bson:"id"`
	Title       string       `json:"title" bson:"title"`
	Description string       `json:"description,omitempty" bson:"description,omitempty"`
	Category    GoalCategory `json:"category" bson:"category"`
	Completed   bool         `json:"completed" bson:"completed"`
	DueDate     string       `json:"dueDate,omitempty" bson:"dueDate,omitempty"`
	CreatedDate string       `json:"createdDate" bson:"createdDate"`
}

const (
	EventCategoryGoal       = "goal"
	EventCategoryAssignment = "assignment"
)

// CalendarEvent 日历事件，Category 约定为 goal 或 assignment
// swagger:model CalendarEvent
type CalendarEvent struct {
	ID          string `json:"id" bson:"id"`
	Title       string `json:"title" bson:"title"`
	Date        string `json:"date" bson:"date"`
	Category    string `json:"category" bson:"category"`
	Description string `json:"description,omitempty" bson:"description,omitempty"`
	StartTime   string `json:"startTime,omitempty" bson:"startTime,omitempty"`
	EndTime     string `json:"endTime,omitempty" bson:"endTime,omitempty"`
	Completed   *bool  `json:"completed,omitempty" bson:"completed,omitempty"`
}

func (e CalendarEvent) IsCompleted() bool {
	return e.Completed != nil && *e.Completed
}

const (
	// ScoreCeiling LSAT 满分
	ScoreCeiling = 180
	ScoreFloor   = 120
)

type TestType string

const (
	TestPractice   TestType = "practice"
	TestDiagnostic TestType = "diagnostic"
	TestOfficial   TestType = "official"
)

func (t TestType) Valid() bool {
	switch t {
	case TestPractice, TestDiagnostic, TestOfficial:
		return true
	}
	return false
}

// ScoreRecord 模考成绩，分项成绩使用独立字段而不是写在 notes 里
// swagger:model ScoreRecord
type ScoreRecord struct {
	ID            string   `json:"id" bson:"id"`
	Date          string   `json:"date" bson:"date"`
	Score         int      `json:"score" bson:"score"`
	TotalPossible int      `json:"totalPossible" bson:"totalPossible"`
	Section       string   `json:"section,omitempty" bson:"section,omitempty"`
	Notes         string   `json:"notes,omitempty" bson:"notes,omitempty"`
	Reading       *int     `json:"reading,omitempty" bson:"reading,omitempty"`
	Logic         *int     `json:"logic,omitempty" bson:"logic,omitempty"`
	Analytical    *int     `json:"analytical,omitempty" bson:"analytical,omitempty"`
	TestType      TestType `json:"testType,omitempty" bson:"testType,omitempty"`
}

// UserRecord 每个用户唯一的一份学习数据文档
// swagger:model UserRecord
type UserRecord struct {
	UserID         string          `json:"userId" bson:"userId"`
	WrongAnswers   []WrongAnswer   `json:"wrongAnswers" bson:"wrongAnswers"`
	Goals          []Goal          `json:"goals" bson:"goals"`
	CalendarEvents []CalendarEvent `json:"calendarEvents" bson:"calendarEvents"`
	ScoreRecords   []ScoreRecord   `json:"scoreRecords" bson:"scoreRecords"`
	LastUpdated    time.Time       `json:"lastUpdated" bson:"lastUpdated"`
}

// NewSkeleton 创建所有序列为空的记录
func NewSkeleton(userID string, now time.Time) *UserRecord {
	return &UserRecord{
		UserID:         userID,
		WrongAnswers:   []WrongAnswer{},
		Goals:          []Goal{},
		CalendarEvents: []CalendarEvent{},
		ScoreRecords:   []ScoreRecord{},
		LastUpdated:    now,
	}
}

// Normalize 将缺失的序列补为空序列
func (r *UserRecord) Normalize() *UserRecord {
	if r.WrongAnswers == nil {
		r.WrongAnswers = []WrongAnswer{}
	}
	if r.Goals == nil {
		r.Goals = []Goal{}
	}
	if r.CalendarEvents == nil {
		r.CalendarEvents = []CalendarEvent{}
	}
	if r.ScoreRecords == nil {
		r.ScoreRecords = []ScoreRecord{}
	}
	return r
}

// Apply 用 patch 中出现的字段整体替换对应序列
func (r *UserRecord) Apply(p RecordPatch) {
	if p.WrongAnswers != nil {
		r.WrongAnswers = cloneWrongAnswers(*p.WrongAnswers)
	}
	if p.Goals != nil {
		r.Goals = append([]Goal{}, *p.Goals...)
	}
	if p.CalendarEvents != nil {
		r.CalendarEvents = append([]CalendarEvent{}, *p.CalendarEvents...)
	}
	if p.ScoreRecords != nil {
		r.ScoreRecords = append([]ScoreRecord{}, *p.ScoreRecords...)
	}
	r.Normalize()
}

func (r *UserRecord) Clone() *UserRecord {
	if r == nil {
		return nil
	}
	out := *r
	out.WrongAnswers = cloneWrongAnswers(r.WrongAnswers)
	if r.Goals != nil {
		out.Goals = append([]Goal{}, r.Goals...)
	}
	if r.CalendarEvents != nil {
		out.CalendarEvents = append([]CalendarEvent{}, r.CalendarEvents...)
	}
	if r.ScoreRecords != nil {
		out.ScoreRecords = append([]ScoreRecord{}, r.ScoreRecords...)
	}
	return &out
}

// Slice 按名称返回序列字段
func (r *UserRecord) Slice(name SliceName) (any, error) {
	switch name {
	case SliceWrongAnswers:
		return r.WrongAnswers, nil
	case SliceGoals:
		return r.Goals, nil
	case SliceCalendarEvents:
		return r.CalendarEvents, nil
	case SliceScoreRecords:
		return r.ScoreRecords, nil
	}
	return nil, fmt.Errorf("unknown slice %q", name)
}

func cloneWrongAnswers(in []WrongAnswer) []WrongAnswer {
	if in == nil {
		return nil
	}
	out := make([]WrongAnswer, len(in))
	for i, wa := range in {
		out[i] = wa
		if wa.Tags != nil {
			out[i].Tags = append([]string{}, wa.Tags...)
		}
	}
	return out
}
