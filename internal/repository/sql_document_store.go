package repository

import (
	"context"
	"study_notebook_backend/internal/model"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// SQLDocumentStore 基于 gorm 的文档存储，每个用户一行
type SQLDocumentStore struct {
	DB *gorm.DB
}

func NewSQLDocumentStore(db *gorm.DB) *SQLDocumentStore {
	return &SQLDocumentStore{DB: db}
}

func (s *SQLDocumentStore) FindOrCreate(ctx context.Context, userID string, now time.Time) (*model.UserRecord, error) {
	db := s.DB.WithContext(ctx)

	// 并发首次读取只有一个插入生效
	skeleton := model.NewUserRecordRow(model.NewSkeleton(userID, now))
	if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(skeleton).Error; err != nil {
		return nil, err
	}

	var row model.UserRecordRow
	if err := db.Where("user_id = ?", userID).First(&row).Error; err != nil {
		return nil, err
	}
	return row.ToRecord(), nil
}

func (s *SQLDocumentStore) UpsertFields(ctx context.Context, userID string, patch model.RecordPatch, now time.Time) error {
	rec := model.NewSkeleton(userID, now)
	rec.Apply(patch)
	row := model.NewUserRecordRow(rec)

	columns := []string{model.ColumnLastUpdated}
	for _, name := range patch.Fields() {
		columns = append(columns, model.SliceColumns[name])
	}

	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns(columns),
	}).Create(row).Error
}

func (s *SQLDocumentStore) Ping(ctx context.Context) error {
	sqlDB, err := s.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLDocumentStore) Name() string {
	return "sql"
}
