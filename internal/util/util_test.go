package util

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"study_notebook_backend/internal/model"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestJWTRoundTrip(t *testing.T) {
	user := &model.User{UUIDBase: model.UUIDBase{ID: "u1"}, Username: "kim", Email: "kim@example.com"}

	token, err := GenerateJWT(user, testSecret, time.Hour)
	require.NoError(t, err)

	claims, err := ParseJWT(token, testSecret)
	require.NoError(t, err)
	assert.Equal(t, "u1", claims.UserID)
	assert.Equal(t, "kim@example.com", claims.Email)
}

func TestParseJWTRejects(t *testing.T) {
	user := &model.User{UUIDBase: model.UUIDBase{ID: "u1"}}

	expired, err := GenerateJWT(user, testSecret, -time.Minute)
	require.NoError(t, err)
	wrongKey, err := GenerateJWT(user, "another-secret-another-secret-xx", time.Hour)
	require.NoError(t, err)
	noSubject, err := jwt.NewWithClaims(jwt.SigningMethodHS256, &Claims{}).SignedString([]byte(testSecret))
	require.NoError(t, err)

	for name, token := range map[string]string{
		"expired":    expired,
		"wrong key":  wrongKey,
		"no user id": noSubject,
		"garbage":    "not-a-token",
	} {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJWT(token, testSecret)
			assert.Error(t, err)
		})
	}
}

func TestMonotonicClock(t *testing.T) {
	fixed := time.Date(2024, 1, 1, 0, 0, 0, 500, time.UTC)
	clock := NewMonotonicClockFrom(func() time.Time { return fixed })

	first := clock.Now()
	second := clock.Now()
	assert.Equal(t, fixed.Truncate(time.Millisecond), first)
	assert.True(t, second.After(first))
	assert.Equal(t, time.Millisecond, second.Sub(first))
	assert.Equal(t, "2024-01-01", Today(clock))
}

func TestMonotonicClockConcurrent(t *testing.T) {
	clock := NewMonotonicClock()
	var mu sync.Mutex
	seen := map[time.Time]bool{}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ts := clock.Now()
			mu.Lock()
			defer mu.Unlock()
			assert.False(t, seen[ts])
			seen[ts] = true
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 50)
}

func TestResponseEnvelope(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	ServiceUnavailable(c, "retry later")

	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var resp Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
	assert.Equal(t, "retry later", resp.Message)
}
