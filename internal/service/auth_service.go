package service

import (
	"context"
	"errors"
	"strings"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/repository"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/internal/util"
	"study_notebook_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Records  *repository.UserRecordRepository
	Cache    localcache.Store
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, records *repository.UserRecordRepository, cache localcache.Store, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Records:  records,
		Cache:    cache,
		Cfg:      cfg,
	}
}

type LoginResult struct {
	Token string      `json:"token"`
	User  *model.User `json:"user"`
}

// SessionState 当前设备的登录状态和本地绑定标记
type SessionState struct {
	Authenticated bool   `json:"authenticated"`
	UserID        string `json:"userId,omitempty"`
	Email         string `json:"email,omitempty"`
	DeviceKey     string `json:"deviceKey"`
	BoundUserID   string `json:"boundUserId,omitempty"`
}

// Register 创建账号并立即创建空的用户数据文档
func (s *AuthService) Register(ctx context.Context, user *model.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	_, err := s.UserRepo.FindByEmail(user.Email)
	if err == nil {
		return util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(user.Password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	user.Password = string(hashedPassword)
	if user.Username == "" {
		user.Username = strings.SplitN(user.Email, "@", 2)[0]
	}

	if err := s.UserRepo.Create(user); err != nil {
		return err
	}

	// 首次读取时也会创建，这里失败不影响注册
	if _, err := s.Records.Load(ctx, user.ID); err != nil {
		logger.Log.Warn("Failed to create user record skeleton at registration",
			zap.String("userId", user.ID),
			zap.Error(err))
	}
	return nil
}

// Login 校验密码并签发 token，同时在设备上记录绑定的账号
func (s *AuthService) Login(ctx context.Context, email, password, deviceKey string) (*LoginResult, error) {
	user, err := s.UserRepo.FindByEmail(strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return nil, util.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	if err := s.UserRepo.UpdateLastLogin(user.ID, now); err != nil {
		logger.Log.Warn("Failed to update last login", zap.String("userId", user.ID), zap.Error(err))
	} else {
		user.LastLogin = now
	}

	if deviceKey != "" {
		if err := s.Cache.BindIdentity(ctx, deviceKey, user.ID); err != nil {
			logger.Log.Warn("Failed to bind device to user", zap.String("userId", user.ID), zap.Error(err))
		}
	}

	return &LoginResult{Token: token, User: user}, nil
}

// Logout 只清除设备上的绑定标记，本地缓存的学习数据保留
func (s *AuthService) Logout(ctx context.Context, deviceKey string) error {
	if deviceKey == "" {
		return nil
	}
	return s.Cache.ClearBinding(ctx, deviceKey)
}

func (s *AuthService) Profile(userID string) (*model.User, error) {
	user, err := s.UserRepo.FindByID(userID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, util.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Session(ctx context.Context, identity session.Identity, authenticated bool, deviceKey string) SessionState {
	state := SessionState{DeviceKey: deviceKey}
	if authenticated {
		state.Authenticated = true
		state.UserID = identity.UserID
		state.Email = identity.Email
	}

	if deviceKey != "" {
		bound, ok, err := s.Cache.BoundIdentity(ctx, deviceKey)
		if err != nil {
			logger.Log.Debug("Failed to read device binding", zap.Error(err))
		} else if ok {
			state.BoundUserID = bound
		}
	}
	return state
}
