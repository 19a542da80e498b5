package logger

import (
	"study_notebook_backend/internal/config"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestResolveLevel(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.Config
		want zap.AtomicLevel
	}{
		{name: "debug mode forces debug", cfg: config.Config{Server: config.ServerConfig{Mode: "debug"}, Log: config.LogConfig{Level: "error"}}, want: zap.NewAtomicLevelAt(zap.DebugLevel)},
		{name: "configured level", cfg: config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "warn"}}, want: zap.NewAtomicLevelAt(zap.WarnLevel)},
		{name: "invalid level falls back to info", cfg: config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "loud"}}, want: zap.NewAtomicLevelAt(zap.InfoLevel)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want.Level(), ResolveLevel(&tt.cfg))
		})
	}
}

func TestSetLevel(t *testing.T) {
	SetLevel(&config.Config{Server: config.ServerConfig{Mode: "release"}, Log: config.LogConfig{Level: "error"}})
	assert.Equal(t, zap.ErrorLevel, CurrentLevel())

	SetLevel(&config.Config{Server: config.ServerConfig{Mode: "debug"}})
	assert.Equal(t, zap.DebugLevel, CurrentLevel())
}

func TestNopLoggerBeforeInit(t *testing.T) {
	assert.NotPanics(t, func() { Log.Info("not initialised yet") })
}
