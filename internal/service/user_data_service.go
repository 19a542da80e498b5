package service

import (
	"context"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/repository"
)

// UserDataService 整条用户数据的读取和局部写入
type UserDataService struct {
	Records *repository.UserRecordRepository
}

func NewUserDataService(records *repository.UserRecordRepository) *UserDataService {
	return &UserDataService{Records: records}
}

func (s *UserDataService) Get(ctx context.Context, userID string) (*model.UserRecord, error) {
	return s.Records.Load(ctx, userID)
}

// Update 解析请求体并写入出现的字段
func (s *UserDataService) Update(ctx context.Context, userID string, body []byte) (*model.WriteResult, error) {
	patch, err := model.DecodePatch(body)
	if err != nil {
		return nil, err
	}
	return s.Records.Save(ctx, userID, patch)
}
