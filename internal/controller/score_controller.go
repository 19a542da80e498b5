package controller

import (
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type ScoreController struct {
	ScoreService *service.ScoreService
	Sync         *usersync.Factory
}

func NewScoreController(scoreService *service.ScoreService, sync *usersync.Factory) *ScoreController {
	return &ScoreController{ScoreService: scoreService, Sync: sync}
}

// @Summary 获取成绩记录
// @Description 返回按日期排序的成绩、统计和分项平均分
// @Tags 成绩
// @Produce json
// @Success 200 {object} util.Response{data=service.ScoreList}
// @Failure 503 {object} util.Response
// @Router /api/scores [get]
func (c *ScoreController) ListScores(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	list, err := c.ScoreService.List(ctx.Request.Context(), f)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 新增成绩
// @Tags 成绩
// @Accept json
// @Produce json
// @Param score body service.CreateScoreRequest true "成绩信息，分数范围 120-180"
// @Success 201 {object} util.Response{data=service.ScoreMutation}
// @Failure 400 {object} util.Response
// @Router /api/scores [post]
func (c *ScoreController) CreateScore(ctx *gin.Context) {
	var req service.CreateScoreRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.ScoreService.Add(ctx.Request.Context(), f, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 删除成绩
// @Tags 成绩
// @Produce json
// @Param id path string true "成绩ID"
// @Success 200 {object} util.Response{data=service.ScoreMutation}
// @Router /api/scores/{id} [delete]
func (c *ScoreController) DeleteScore(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.ScoreService.Delete(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
