package session

import (
	"context"
	"errors"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type providerFunc func(ctx context.Context) (Identity, error)

func (f providerFunc) Resolve(ctx context.Context) (Identity, error) { return f(ctx) }

func TestJWTProviderResolvesToken(t *testing.T) {
	user := &model.User{UUIDBase: model.UUIDBase{ID: "u1"}, Email: "u1@example.com"}
	token, err := util.GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)

	binding := NewBinding(NewJWTProvider(testSecret), time.Second)
	identity, ok := binding.CurrentIdentity(WithToken(context.Background(), token))
	require.True(t, ok)
	assert.Equal(t, Identity{UserID: "u1", Email: "u1@example.com"}, identity)
}

func TestCurrentIdentityWithoutSession(t *testing.T) {
	tests := []struct {
		name    string
		binding *Binding
		ctx     context.Context
	}{
		{
			name:    "no token",
			binding: NewBinding(NewJWTProvider(testSecret), time.Second),
			ctx:     context.Background(),
		},
		{
			name:    "corrupt token",
			binding: NewBinding(NewJWTProvider(testSecret), time.Second),
			ctx:     WithToken(context.Background(), "corrupt.session.state"),
		},
		{
			name: "provider error",
			binding: NewBinding(providerFunc(func(context.Context) (Identity, error) {
				return Identity{}, errors.New("session store offline")
			}), time.Second),
			ctx: context.Background(),
		},
		{
			name: "provider panic",
			binding: NewBinding(providerFunc(func(context.Context) (Identity, error) {
				panic("broken session")
			}), time.Second),
			ctx: context.Background(),
		},
		{
			name: "provider hangs",
			binding: NewBinding(providerFunc(func(ctx context.Context) (Identity, error) {
				time.Sleep(time.Second)
				return Identity{UserID: "late"}, nil
			}), 20*time.Millisecond),
			ctx: context.Background(),
		},
		{
			name: "empty user id",
			binding: NewBinding(providerFunc(func(context.Context) (Identity, error) {
				return Identity{Email: "x@example.com"}, nil
			}), time.Second),
			ctx: context.Background(),
		},
		{name: "nil binding", ctx: context.Background()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			identity, ok := tt.binding.CurrentIdentity(tt.ctx)
			assert.False(t, ok)
			assert.Empty(t, identity.UserID)
		})
	}
}

func TestContextHelpers(t *testing.T) {
	ctx := WithDeviceKey(WithToken(context.Background(), "tok"), "device-1")
	assert.Equal(t, "tok", TokenFrom(ctx))
	assert.Equal(t, "device-1", DeviceKeyFrom(ctx))
	assert.Empty(t, TokenFrom(context.Background()))
	assert.Empty(t, DeviceKeyFrom(context.Background()))
}
