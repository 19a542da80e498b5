package controller

import (
	"study_notebook_backend/internal/service"
	"study_notebook_backend/internal/usersync"
	"study_notebook_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// GoalController 目标列表，未登录时数据保存在设备本地缓存
type GoalController struct {
	GoalService *service.GoalService
	Sync        *usersync.Factory
}

func NewGoalController(goalService *service.GoalService, sync *usersync.Factory) *GoalController {
	return &GoalController{GoalService: goalService, Sync: sync}
}

// @Summary 获取目标
// @Description 获取目标列表及完成率，可按类别过滤
// @Tags 目标
// @Produce json
// @Param category query string false "目标类别" enums(all,daily,weekly,monthly,test-day)
// @Success 200 {object} util.Response{data=service.GoalList}
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/goals [get]
func (c *GoalController) ListGoals(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	list, err := c.GoalService.List(ctx.Request.Context(), f, ctx.Query("category"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, list)
}

// @Summary 新增目标
// @Tags 目标
// @Accept json
// @Produce json
// @Param goal body service.CreateGoalRequest true "目标信息"
// @Success 201 {object} util.Response{data=service.GoalMutation}
// @Failure 400 {object} util.Response
// @Failure 503 {object} util.Response
// @Router /api/goals [post]
func (c *GoalController) CreateGoal(ctx *gin.Context) {
	var req service.CreateGoalRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.GoalService.Add(ctx.Request.Context(), f, req)
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Created(ctx, result)
}

// @Summary 切换目标完成状态
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response{data=service.GoalMutation}
// @Failure 404 {object} util.Response
// @Router /api/goals/{id}/toggle [patch]
func (c *GoalController) ToggleGoal(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.GoalService.Toggle(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}

// @Summary 删除目标
// @Tags 目标
// @Produce json
// @Param id path string true "目标ID"
// @Success 200 {object} util.Response{data=service.GoalMutation}
// @Failure 404 {object} util.Response
// @Router /api/goals/{id} [delete]
func (c *GoalController) DeleteGoal(ctx *gin.Context) {
	f := c.Sync.FromContext(ctx.Request.Context())
	result, err := c.GoalService.Delete(ctx.Request.Context(), f, ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	util.Success(ctx, result)
}
