package middleware

import (
	"regexp"
	"strings"
	"study_notebook_backend/internal/session"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	identityKey        = "identity"
	deviceCookieMaxAge = 365 * 24 * 3600
)

var deviceKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_-]{8,128}$`)

// SessionMiddleware 把 token 和设备标识放进请求 context，没有设备标识时签发一个
func SessionMiddleware(secureCookie bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := ""
		authHeader := c.GetHeader("Authorization")
		if authHeader != "" {
			tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		}

		deviceKey := c.GetHeader(util.DeviceHeader)
		if deviceKey == "" {
			deviceKey, _ = c.Cookie(util.DeviceCookie)
		}
		if !deviceKeyPattern.MatchString(deviceKey) {
			deviceKey = uuid.NewString()
			c.SetCookie(util.DeviceCookie, deviceKey, deviceCookieMaxAge, "/", "", secureCookie, true)
		}
		c.Header(util.DeviceHeader, deviceKey)

		ctx := session.WithDeviceKey(c.Request.Context(), deviceKey)
		if tokenString != "" {
			ctx = session.WithToken(ctx, tokenString)
		}
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// SyncMiddleware 每个请求使用独立的 Facade
func SyncMiddleware(factory *usersync.Factory) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := usersync.WithFacade(c.Request.Context(), factory.New())
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// AuthMiddleware 需要登录的接口，没有身份时在访问存储前直接拒绝
func AuthMiddleware(identities usersync.IdentitySource) gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := identities.CurrentIdentity(c.Request.Context())
		if !ok {
			util.Unauthorized(c)
			c.Abort()
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// GetIdentity AuthMiddleware 之后可用
func GetIdentity(c *gin.Context) (session.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return session.Identity{}, false
	}
	identity, ok := v.(session.Identity)
	return identity, ok
}

func GetDeviceKey(c *gin.Context) string {
	return session.DeviceKeyFrom(c.Request.Context())
}
