package controller

import (
	"context"
	"net/http"
	"study_notebook_backend/internal/util"
	"study_notebook_backend/pkg/monitoring"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Pinger 文档存储健康检查
type Pinger interface {
	Ping(ctx context.Context) error
	StoreName() string
}

type HealthController struct {
	DB    *gorm.DB
	Store Pinger
}

func NewHealthController(db *gorm.DB, store Pinger) *HealthController {
	return &HealthController{DB: db, Store: store}
}

// @Summary 健康检查
// @Description 检查账号数据库和用户数据文档存储
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	components := gin.H{}
	healthy := true

	sqlDB, err := c.DB.DB()
	if err == nil {
		err = sqlDB.PingContext(ctx.Request.Context())
	}
	if err != nil {
		components["database"] = "down"
		healthy = false
	} else {
		components["database"] = "up"
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 3*time.Second)
	defer cancel()
	storeKey := "documentStore:" + c.Store.StoreName()
	if err := c.Store.Ping(pingCtx); err != nil {
		components[storeKey] = "down"
		monitoring.SetDocumentStoreUp(false)
		healthy = false
	} else {
		components[storeKey] = "up"
		monitoring.SetDocumentStoreUp(true)
	}

	if !healthy {
		ctx.JSON(http.StatusServiceUnavailable, util.Response{
			Code:    http.StatusServiceUnavailable,
			Message: "degraded",
			Data:    gin.H{"status": "degraded", "components": components},
		})
		return
	}

	util.Success(ctx, gin.H{
		"status":     "ok",
		"components": components,
	})
}
