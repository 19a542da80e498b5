package model

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"
)

// ErrInvalidPatch 写入的局部数据不是合法的结构化对象
var ErrInvalidPatch = errors.New("invalid user data format")

// RecordPatch 局部写入：可选的 userId 加四个可选序列，未知字段直接拒绝
// swagger:model RecordPatch
type RecordPatch struct {
	UserID         *string          `json:"userId,omitempty"`
	WrongAnswers   *[]WrongAnswer   `json:"wrongAnswers,omitempty"`
	Goals          *[]Goal          `json:"goals,omitempty"`
	CalendarEvents *[]CalendarEvent `json:"calendarEvents,omitempty"`
	ScoreRecords   *[]ScoreRecord   `json:"scoreRecords,omitempty"`
}

// patchKeys 顶层键按大小写精确匹配
var patchKeys = map[string]bool{
	"userId":         true,
	"wrongAnswers":   true,
	"goals":          true,
	"calendarEvents": true,
	"scoreRecords":   true,
}

// WriteResult 回显实际写入的字段和新的 lastUpdated
// swagger:model WriteResult
type WriteResult struct {
	RecordPatch
	LastUpdated time.Time `json:"lastUpdated"`
}

// DecodePatch 严格解析请求体
func DecodePatch(data []byte) (RecordPatch, error) {
	var p RecordPatch

	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return p, fmt.Errorf("%w: payload must be a JSON object", ErrInvalidPatch)
	}

	var keys map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &keys); err != nil {
		return p, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	for k := range keys {
		if !patchKeys[k] {
			return p, fmt.Errorf("%w: unknown field %q", ErrInvalidPatch, k)
		}
	}

	dec := json.NewDecoder(bytes.NewReader(trimmed))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&p); err != nil {
		return RecordPatch{}, fmt.Errorf("%w: %v", ErrInvalidPatch, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return RecordPatch{}, fmt.Errorf("%w: trailing data after object", ErrInvalidPatch)
	}

	if err := p.Validate(); err != nil {
		return RecordPatch{}, err
	}
	return p, nil
}

// NewSlicePatch 将单个序列包装成只含一个字段的 patch
func NewSlicePatch(name SliceName, value any) (RecordPatch, error) {
	var p RecordPatch
	switch name {
	case SliceWrongAnswers:
		v, ok := value.([]WrongAnswer)
		if !ok {
			return p, fmt.Errorf("%w: %s expects []WrongAnswer, got %T", ErrInvalidPatch, name, value)
		}
		if v == nil {
			v = []WrongAnswer{}
		}
		p.WrongAnswers = &v
	case SliceGoals:
		v, ok := value.([]Goal)
		if !ok {
			return p, fmt.Errorf("%w: %s expects []Goal, got %T", ErrInvalidPatch, name, value)
		}
		if v == nil {
			v = []Goal{}
		}
		p.Goals = &v
	case SliceCalendarEvents:
		v, ok := value.([]CalendarEvent)
		if !ok {
			return p, fmt.Errorf("%w: %s expects []CalendarEvent, got %T", ErrInvalidPatch, name, value)
		}
		if v == nil {
			v = []CalendarEvent{}
		}
		p.CalendarEvents = &v
	case SliceScoreRecords:
		v, ok := value.([]ScoreRecord)
		if !ok {
			return p, fmt.Errorf("%w: %s expects []ScoreRecord, got %T", ErrInvalidPatch, name, value)
		}
		if v == nil {
			v = []ScoreRecord{}
		}
		p.ScoreRecords = &v
	default:
		return p, fmt.Errorf("%w: unknown slice %q", ErrInvalidPatch, name)
	}
	return p, p.Validate()
}

// Fields 返回 patch 中出现的序列名
func (p RecordPatch) Fields() []SliceName {
	fields := make([]SliceName, 0, len(AllSlices))
	if p.WrongAnswers != nil {
		fields = append(fields, SliceWrongAnswers)
	}
	if p.Goals != nil {
		fields = append(fields, SliceGoals)
	}
	if p.CalendarEvents != nil {
		fields = append(fields, SliceCalendarEvents)
	}
	if p.ScoreRecords != nil {
		fields = append(fields, SliceScoreRecords)
	}
	return fields
}

func (p RecordPatch) IsEmpty() bool {
	return len(p.Fields()) == 0
}

// WithoutOwner 去掉 userId，只保留序列
func (p RecordPatch) WithoutOwner() RecordPatch {
	p.UserID = nil
	return p
}

func (p RecordPatch) Validate() error {
	if p.IsEmpty() {
		return fmt.Errorf("%w: at least one of wrongAnswers, goals, calendarEvents, scoreRecords is required", ErrInvalidPatch)
	}
	if p.WrongAnswers != nil {
		if err := checkIDs(SliceWrongAnswers, *p.WrongAnswers, func(w WrongAnswer) string { return w.ID }); err != nil {
			return err
		}
	}
	if p.Goals != nil {
		if err := checkIDs(SliceGoals, *p.Goals, func(g Goal) string { return g.ID }); err != nil {
			return err
		}
		for i, g := range *p.Goals {
			if !g.Category.Valid() {
				return fmt.Errorf("%w: goals[%d] has invalid category %q", ErrInvalidPatch, i, g.Category)
			}
		}
	}
	if p.CalendarEvents != nil {
		if err := checkIDs(SliceCalendarEvents, *p.CalendarEvents, func(e CalendarEvent) string { return e.ID }); err != nil {
			return err
		}
	}
	if p.ScoreRecords != nil {
		if err := checkIDs(SliceScoreRecords, *p.ScoreRecords, func(s ScoreRecord) string { return s.ID }); err != nil {
			return err
		}
	}
	return nil
}

func checkIDs[T any](field SliceName, items []T, id func(T) string) error {
	seen := make(map[string]struct{}, len(items))
	for i, item := range items {
		key := id(item)
		if key == "" {
			return fmt.Errorf("%w: %s[%d] is missing an id", ErrInvalidPatch, field, i)
		}
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s[%d] has duplicate id %q", ErrInvalidPatch, field, i, key)
		}
		seen[key] = struct{}{}
	}
	return nil
}
