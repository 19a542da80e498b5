package model

import (
	"time"
)

// UserRecordRow SQL 版文档存储的行结构，四个序列以 JSON 列保存
// MySQL 的 text 上限 64KB，序列列用 longtext
type UserRecordRow struct {
	UserID         string          `gorm:"primaryKey;type:varchar(64)"`
	WrongAnswers   []WrongAnswer   `gorm:"serializer:json;type:longtext"`
	Goals          []Goal          `gorm:"serializer:json;type:longtext"`
	CalendarEvents []CalendarEvent `gorm:"serializer:json;type:longtext"`
	ScoreRecords   []ScoreRecord   `gorm:"serializer:json;type:longtext"`
	LastUpdated    time.Time
	CreatedAt      time.Time
}

func (UserRecordRow) TableName() string {
	return "user_records"
}

// 列名与 gorm 默认命名保持一致
const (
	ColumnWrongAnswers   = "wrong_answers"
	ColumnGoals          = "goals"
	ColumnCalendarEvents = "calendar_events"
	ColumnScoreRecords   = "score_records"
	ColumnLastUpdated    = "last_updated"
)

// SliceColumns 序列名到列名
var SliceColumns = map[SliceName]string{
	SliceWrongAnswers:   ColumnWrongAnswers,
	SliceGoals:          ColumnGoals,
	SliceCalendarEvents: ColumnCalendarEvents,
	SliceScoreRecords:   ColumnScoreRecords,
}

func NewUserRecordRow(rec *UserRecord) *UserRecordRow {
	rec = rec.Clone().Normalize()
	return &UserRecordRow{
		UserID:         rec.UserID,
		WrongAnswers:   rec.WrongAnswers,
		Goals:          rec.Goals,
		CalendarEvents: rec.CalendarEvents,
		ScoreRecords:   rec.ScoreRecords,
		LastUpdated:    rec.LastUpdated,
	}
}

func (r *UserRecordRow) ToRecord() *UserRecord {
	rec := &UserRecord{
		UserID:         r.UserID,
		WrongAnswers:   r.WrongAnswers,
		Goals:          r.Goals,
		CalendarEvents: r.CalendarEvents,
		ScoreRecords:   r.ScoreRecords,
		LastUpdated:    r.LastUpdated.UTC(),
	}
	return rec.Normalize()
}
