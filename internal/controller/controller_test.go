package controller

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"study_notebook_backend/internal/config"
	"study_notebook_backend/internal/localcache"
	"study_notebook_backend/internal/middleware"
	"study_notebook_backend/internal/model"
	"study_notebook_backend/internal/repository"
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type testServer struct {
	engine *gin.Engine
	store  *repository.MemoryDocumentStore
	cache  *localcache.MemoryStore
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"))
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}))
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { sqlDB.Close() })

	clock := util.NewMonotonicClock()
	store := repository.NewMemoryDocumentStore()
	records := repository.NewUserRecordRepository(store, clock, time.Second)
	cache := localcache.NewMemoryStore(0, clock)
	cfg := &config.Config{JWT: config.JWTConfig{Secret: testSecret, ExpireTime: time.Hour}}

	identities := session.NewBinding(session.NewJWTProvider(testSecret), time.Second)
	factory := usersync.NewFactory(identities, records, cache)

	authController := NewAuthController(service.NewAuthService(repository.NewUserRepository(db), records, cache, cfg), identities)
	userDataController := NewUserDataController(service.NewUserDataService(records), service.NewExportService(nil, clock))
	goalController := NewGoalController(service.NewGoalService(clock), factory)
	scoreController := NewScoreController(service.NewScoreService(), factory)
	healthController := NewHealthController(db, records)

	r := gin.New()
	r.Use(middleware.SessionMiddleware(false), middleware.SyncMiddleware(factory))
	api := r.Group("/api")
	api.GET("/health", healthController.HealthCheck)
	api.POST("/register", authController.Register)
	api.POST("/login", authController.Login)
	api.POST("/logout", authController.Logout)
	api.GET("/session", authController.GetSession)
	api.GET("/goals", goalController.ListGoals)
	api.POST("/goals", goalController.CreateGoal)
	api.PATCH("/goals/:id/toggle", goalController.ToggleGoal)
	api.GET("/scores", scoreController.ListScores)
	api.POST("/scores", scoreController.CreateScore)

	authed := api.Group("")
	authed.Use(middleware.AuthMiddleware(identities))
	authed.GET("/profile", authController.GetProfile)
	authed.GET("/user-data", userDataController.GetUserData)
	authed.PUT("/user-data", userDataController.UpdateUserData)
	authed.GET("/user-data/export", userDataController.DownloadExport)

	return &testServer{engine: r, store: store, cache: cache}
}

type request struct {
	method string
	path   string
	body   string
	token  string
	device string
}

func (s *testServer) do(req request) *httptest.ResponseRecorder {
	var body *bytes.Reader
	if req.body != "" {
		body = bytes.NewReader([]byte(req.body))
	} else {
		body = bytes.NewReader(nil)
	}
	r := httptest.NewRequest(req.method, req.path, body)
	r.Header.Set("Content-Type", "application/json")
	if req.token != "" {
		r.Header.Set("Authorization", "Bearer "+req.token)
	}
	if req.device != "" {
		r.Header.Set(util.DeviceHeader, req.device)
	}
	w := httptest.NewRecorder()
	s.engine.ServeHTTP(w, r)
	return w
}

func decodeData(t *testing.T, w *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp struct {
		Code int                    `json:"code"`
		Data map[string]interface{} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	return resp.Data
}

func (s *testServer) login(t *testing.T, device string) (token, userID string) {
	t.Helper()
	w := s.do(request{method: http.MethodPost, path: "/api/register", body: `{"name":"Kim","email":"kim@example.com","password":"correct horse"}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.do(request{method: http.MethodPost, path: "/api/login", body: `{"email":"kim@example.com","password":"correct horse"}`, device: device})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	data := decodeData(t, w)
	user := data["user"].(map[string]interface{})
	return data["token"].(string), user["id"].(string)
}

func TestAnonymousGoalsStayOnDevice(t *testing.T) {
	s := newTestServer(t)
	const device = "device-aaaa-1111"

	w := s.do(request{method: http.MethodPost, path: "/api/goals", body: `{"title":"Finish Section 1","category":"daily"}`, device: device})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decodeData(t, w)
	assert.Equal(t, true, created["persisted"])
	goalID := created["goal"].(map[string]interface{})["id"].(string)

	w = s.do(request{method: http.MethodPatch, path: "/api/goals/" + goalID + "/toggle", device: device})
	require.Equal(t, http.StatusOK, w.Code)

	w = s.do(request{method: http.MethodGet, path: "/api/goals", device: device})
	require.Equal(t, http.StatusOK, w.Code)
	list := decodeData(t, w)
	goals := list["goals"].([]interface{})
	require.Len(t, goals, 1)
	assert.Equal(t, true, goals[0].(map[string]interface{})["completed"])

	// 其他设备看不到
	w = s.do(request{method: http.MethodGet, path: "/api/goals", device: "device-bbbb-2222"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decodeData(t, w)["goals"])

	assert.Zero(t, s.store.Calls())
}

func TestDeviceKeyIssuedWhenMissing(t *testing.T) {
	s := newTestServer(t)

	w := s.do(request{method: http.MethodGet, path: "/api/session"})
	require.Equal(t, http.StatusOK, w.Code)
	issued := w.Header().Get(util.DeviceHeader)
	assert.NotEmpty(t, issued)

	data := decodeData(t, w)
	assert.Equal(t, false, data["authenticated"])
	assert.Equal(t, issued, data["deviceKey"])
}

func TestUserDataRequiresIdentity(t *testing.T) {
	s := newTestServer(t)

	w := s.do(request{method: http.MethodGet, path: "/api/user-data"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(request{method: http.MethodPut, path: "/api/user-data", body: `{"goals":[]}`, token: "garbage"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Zero(t, s.store.Calls())
}

func TestUserDataFieldLevelWrite(t *testing.T) {
	s := newTestServer(t)
	token, userID := s.login(t, "device-aaaa-1111")

	w := s.do(request{method: http.MethodGet, path: "/api/user-data", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	rec := decodeData(t, w)
	assert.Equal(t, userID, rec["userId"])
	assert.Empty(t, rec["goals"])

	w = s.do(request{method: http.MethodPut, path: "/api/user-data", token: token,
		body: `{"calendarEvents":[{"id":"e1","title":"PT 71","date":"2024-02-01","category":"assignment"}]}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(request{method: http.MethodPut, path: "/api/user-data", token: token,
		body: `{"goals":[{"id":"g1","title":"Drill flaws","category":"weekly","completed":false,"createdDate":"2024-02-01"}]}`})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	written := decodeData(t, w)
	assert.Contains(t, written, "goals")
	assert.NotContains(t, written, "calendarEvents")

	w = s.do(request{method: http.MethodGet, path: "/api/user-data", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	rec = decodeData(t, w)
	assert.Len(t, rec["goals"], 1)
	assert.Len(t, rec["calendarEvents"], 1)
}

func TestUserDataRejectsBadWrites(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "")

	tests := []struct {
		name string
		body string
		want int
	}{
		{name: "other owner", body: `{"userId":"someone-else","goals":[]}`, want: http.StatusForbidden},
		{name: "unknown field", body: `{"notes":[]}`, want: http.StatusBadRequest},
		{name: "not an object", body: `[]`, want: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(request{method: http.MethodPut, path: "/api/user-data", token: token, body: tt.body})
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestBoundSessionRoutesFeaturesToDocumentStore(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "device-aaaa-1111")

	w := s.do(request{method: http.MethodPost, path: "/api/scores", token: token, body: `{"date":"2024-02-01","score":165}`})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.NotZero(t, s.store.Calls())

	w = s.do(request{method: http.MethodGet, path: "/api/user-data", token: token})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decodeData(t, w)["scoreRecords"], 1)

	w = s.do(request{method: http.MethodPost, path: "/api/scores", token: token, body: `{"date":"2024-02-01","score":200}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(request{method: http.MethodGet, path: "/api/session", token: token, device: "device-aaaa-1111"})
	data := decodeData(t, w)
	assert.Equal(t, true, data["authenticated"])
	assert.Equal(t, data["userId"], data["boundUserId"])
}

func TestToggleUnknownGoal(t *testing.T) {
	s := newTestServer(t)
	w := s.do(request{method: http.MethodPatch, path: "/api/goals/missing/toggle", device: "device-aaaa-1111"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestRegisterAndLoginErrors(t *testing.T) {
	s := newTestServer(t)
	s.login(t, "")

	w := s.do(request{method: http.MethodPost, path: "/api/register", body: `{"name":"Kim","email":"kim@example.com","password":"another pass"}`})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(request{method: http.MethodPost, path: "/api/login", body: `{"email":"kim@example.com","password":"wrong password"}`})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = s.do(request{method: http.MethodPost, path: "/api/register", body: `{"email":"not-an-email","password":"x"}`})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExportDownload(t *testing.T) {
	s := newTestServer(t)
	token, _ := s.login(t, "")

	w := s.do(request{method: http.MethodGet, path: "/api/user-data/export", token: token})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, util.MimeXLSX, w.Header().Get("Content-Type"))
	assert.Contains(t, w.Header().Get("Content-Disposition"), ".xlsx")
	assert.NotZero(t, w.Body.Len())
}

func TestHealthCheck(t *testing.T) {
	s := newTestServer(t)
	w := s.do(request{method: http.MethodGet, path: "/api/health"})
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeData(t, w)
	assert.Equal(t, "ok", data["status"])
}
