package app

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/util"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	dir := t.TempDir()
	cfg := &config.Config{
		Server:        config.ServerConfig{Port: "0", Mode: "test"},
		Log:           config.LogConfig{Level: "error", File: filepath.Join(dir, "app.log")},
		Database:      config.DatabaseConfig{Driver: "sqlite", SQLitePath: filepath.Join(dir, "accounts.db")},
		DocumentStore: config.DocumentStoreConfig{Driver: config.DocumentStoreSQL, Timeout: time.Second},
		LocalCache:    config.LocalCacheConfig{Type: config.LocalCacheSQLite, SQLitePath: filepath.Join(dir, "cache", "local.db")},
		JWT:           config.JWTConfig{Secret: "0123456789abcdef0123456789abcdef", ExpireTime: time.Hour},
		Storage:       config.StorageConfig{Type: util.StorageLocal, LocalPath: filepath.Join(dir, "uploads")},
		CORS:          config.CORSConfig{AllowedOrigins: []string{"http://localhost:3000"}},
		RateLimit:     config.RateLimitConfig{MaxRequests: 1000, WindowMinutes: 1},
		Jobs:          config.JobsConfig{StoreProbeSeconds: 30},
	}
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestNewAppServesRoutes(t *testing.T) {
	a, err := NewApp(testConfig(t))
	require.NoError(t, err)
	t.Cleanup(a.Close)

	w := httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/health", nil))
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())

	req := httptest.NewRequest(http.MethodPost, "/api/goals", strings.NewReader(`{"title":"Review flaws","category":"weekly"}`))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(util.DeviceHeader, "device-app-test-1")
	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/user-data", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	a.Router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "user_record_sync_total")
}

func TestNewAppRejectsRedisCacheWithoutServer(t *testing.T) {
	cfg := testConfig(t)
	cfg.LocalCache.Type = config.LocalCacheRedis
	cfg.Redis = config.RedisConfig{Host: "127.0.0.1", Port: 1}

	_, err := NewApp(cfg)
	assert.Error(t, err)
}

func TestMigrateOnlyStopsAfterDatabase(t *testing.T) {
	cfg := testConfig(t)
	cfg.MigrateOnly = true

	a, err := NewApp(cfg)
	require.NoError(t, err)
	t.Cleanup(a.Close)
	assert.Nil(t, a.Router)
	assert.True(t, a.DB.Migrator().HasTable("user_records"))
}
