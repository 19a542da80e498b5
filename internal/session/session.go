package session

import (
	"context"
	"errors"
	"fmt"
	"study_notebook_backend/internal/util"
	"study_notebook_backend/pkg/logger"
	"time"

	"go.uber.org/zap"
)

// ErrNoIdentity 当前请求没有登录身份
var ErrNoIdentity = errors.New("no identity")

const defaultResolveTimeout = 2 * time.Second

// Identity 登录身份，UserID 是用户数据文档的键
type Identity struct {
	UserID string `json:"userId"`
	Email  string `json:"email,omitempty"`
}

// Provider 身份来源，只需回答“当前是谁”或“没有身份”
type Provider interface {
	Resolve(ctx context.Context) (Identity, error)
}

type ctxKey int

const (
	tokenKey ctxKey = iota
	deviceKey
)

func WithToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, tokenKey, token)
}

func TokenFrom(ctx context.Context) string {
	token, _ := ctx.Value(tokenKey).(string)
	return token
}

// WithDeviceKey 设备标识，作为本地缓存的键
func WithDeviceKey(ctx context.Context, key string) context.Context {
	return context.WithValue(ctx, deviceKey, key)
}

func DeviceKeyFrom(ctx context.Context) string {
	key, _ := ctx.Value(deviceKey).(string)
	return key
}

// JWTProvider 从请求上下文中的 token 解析身份
type JWTProvider struct {
	Secret string
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{Secret: secret}
}

func (p *JWTProvider) Resolve(ctx context.Context) (Identity, error) {
	token := TokenFrom(ctx)
	if token == "" {
		return Identity{}, ErrNoIdentity
	}

	claims, err := util.ParseJWT(token, p.Secret)
	if err != nil {
		return Identity{}, fmt.Errorf("invalid session token: %w", err)
	}
	return Identity{UserID: claims.UserID, Email: claims.Email}, nil
}

// Binding 在每次读写用户数据前查询当前身份
type Binding struct {
	Provider Provider
	Timeout  time.Duration
}

func NewBinding(provider Provider, timeout time.Duration) *Binding {
	if timeout <= 0 {
		timeout = defaultResolveTimeout
	}
	return &Binding{Provider: provider, Timeout: timeout}
}

type resolveResult struct {
	identity Identity
	err      error
}

// CurrentIdentity 查询失败、超时或 panic 都视为没有身份
func (b *Binding) CurrentIdentity(ctx context.Context) (Identity, bool) {
	if b == nil || b.Provider == nil {
		return Identity{}, false
	}

	ctx, cancel := context.WithTimeout(ctx, b.Timeout)
	defer cancel()

	done := make(chan resolveResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- resolveResult{err: fmt.Errorf("identity provider panic: %v", r)}
			}
		}()
		identity, err := b.Provider.Resolve(ctx)
		done <- resolveResult{identity: identity, err: err}
	}()

	var res resolveResult
	select {
	case res = <-done:
	case <-ctx.Done():
		res.err = ctx.Err()
	}

	if res.err != nil {
		if !errors.Is(res.err, ErrNoIdentity) {
			logger.Log.Debug("Identity lookup failed, continuing without identity", zap.Error(res.err))
		}
		return Identity{}, false
	}
	if res.identity.UserID == "" {
		return Identity{}, false
	}
	return res.identity, true
}
